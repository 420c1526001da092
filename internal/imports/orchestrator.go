package imports

// orchestrator.go drives the import state machine. There is no distributed
// transaction across the database and the object store; instead the run is
// structured as "local transaction, external side effect, second local
// transaction" with a compensation path:
//
//  1. stage the raw file in object storage
//  2. parse the staged bytes
//  3. transaction A: PENDING → PROCESSING, persist entities, → FINALIZING_FILE
//  4. promote the staged object to its permanent key
//  5. transaction B: set storage key, → COMPLETED
//
// Any failure routes to compensate(), which records a terminal state in its
// own transaction and best-effort deletes the staged object. A finalize
// failure in step 4 happens after transaction A committed: the entities stay
// persisted while the operation is marked FAILED. That asymmetry matches the
// observed behavior of the system this replaces and is deliberately not
// "fixed" here; whether file archival is best-effort or authoritative is an
// open product question.

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/logging"
)

// maxErrorMessageLength bounds the errorMessage column on terminal states.
const maxErrorMessageLength = 1000

// Job is one queued import run.
type Job struct {
	OperationID uuid.UUID
	Owner       string
	Filename    string
	ContentType string
	Data        []byte
}

// Orchestrator executes import runs to a terminal state. Errors are never
// returned to the submitting caller; they are converted into terminal
// operation states observed via the operation record.
type Orchestrator struct {
	store     OperationStore
	objects   ObjectStore
	parsers   *ParserFacade
	processor *Processor
	events    EventSink
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(store OperationStore, objects ObjectStore, parsers *ParserFacade, processor *Processor, events EventSink) *Orchestrator {
	return &Orchestrator{
		store:     store,
		objects:   objects,
		parsers:   parsers,
		processor: processor,
		events:    events,
	}
}

// Run executes one import to a terminal state. It never returns an error;
// every failure is captured in the operation record.
func (o *Orchestrator) Run(ctx context.Context, job Job) {
	log := logging.WithFields(ctx,
		"operation_id", job.OperationID,
		"filename", job.Filename,
		"owner", job.Owner,
	)
	log.Info("import started", "content_type", job.ContentType, "size", len(job.Data))

	// Step 1: stage the raw file. On failure there is nothing to clean up;
	// the operation row stays as created and is marked FAILED.
	stagingKey, err := o.objects.PutStaging(ctx, job.OperationID, job.Filename, job.ContentType, job.Data)
	if err != nil {
		log.Error("staging failed", "error", err)
		o.compensate(ctx, job.OperationID, StatusFailed, stageMessage("stage file", err), "")
		return
	}
	log.Debug("file staged", "staging_key", stagingKey)

	// Step 2: parse. Parse problems, including "empty import", are the
	// submitter's fault and terminate as VALIDATION_FAILED.
	records, err := o.parsers.ParseFile(job.Data, job.Filename, job.ContentType)
	if err != nil {
		status := StatusFailed
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			status = StatusValidationFailed
		}
		log.Warn("parse failed", "error", err)
		o.compensate(ctx, job.OperationID, status, stageMessage("parse", err), stagingKey)
		return
	}
	log.Info("file parsed", "records", len(records))

	// Step 3: transaction A. The processor runs inside it, so a validation
	// failure rolls back every entity from this run.
	var createdCount int
	err = o.store.InTx(ctx, func(tx Tx) error {
		op, err := tx.GetOperation(ctx, job.OperationID)
		if err != nil {
			return err
		}
		op.Status = StatusProcessing
		op.StagingObjectKey = &stagingKey
		if err := tx.UpdateOperation(ctx, op); err != nil {
			return err
		}

		ids, err := o.processor.Process(ctx, tx, records, job.Owner)
		if err != nil {
			return err
		}

		createdCount = len(ids)
		op.CreatedEntitiesCount = &createdCount
		op.Status = StatusFinalizingFile
		return tx.UpdateOperation(ctx, op)
	})
	if err != nil {
		status := StatusFailed
		var valErr *ValidationError
		if errors.As(err, &valErr) {
			status = StatusValidationFailed
		}
		log.Warn("processing failed", "error", err)
		o.compensate(ctx, job.OperationID, status, stageMessage("persist", err), stagingKey)
		return
	}
	log.Info("entities persisted", "created", createdCount)

	// Step 4: promote the staged file. Transaction A has already committed;
	// a failure here leaves the created entities in place and marks the
	// operation FAILED (see package comment).
	finalKey, err := o.objects.FinalizeFromStaging(ctx, stagingKey, job.OperationID, job.Filename)
	if err != nil {
		log.Error("finalize failed", "error", err)
		o.compensate(ctx, job.OperationID, StatusFailed, stageMessage("finalize file", err), stagingKey)
		return
	}
	log.Debug("file finalized", "storage_key", finalKey)

	// Step 5: transaction B. The sink is signalled only after the commit, so
	// it never observes a COMPLETED state that was rolled back.
	var completed *Operation
	err = o.store.InTx(ctx, func(tx Tx) error {
		op, err := tx.GetOperation(ctx, job.OperationID)
		if err != nil {
			return err
		}
		op.StorageObjectKey = &finalKey
		op.Status = StatusCompleted
		now := nowFunc()
		op.CompletedAt = &now
		if err := tx.UpdateOperation(ctx, op); err != nil {
			return err
		}
		completed = op
		return nil
	})
	if err != nil {
		// The file is already promoted; the staging key no longer exists, so
		// there is nothing left to clean up in storage.
		log.Error("completing transaction failed", "error", err)
		o.compensate(ctx, job.OperationID, StatusFailed, stageMessage("complete", err), "")
		return
	}
	o.notify(ctx, completed)

	log.Info("import completed", "created", createdCount)
}

// compensate records a terminal failure state in its own transaction and
// then best-effort deletes the staged object. It must never panic or
// propagate: if the compensating update itself fails it is logged and the
// storage cleanup still runs, so the real failure is never masked.
func (o *Orchestrator) compensate(ctx context.Context, opID uuid.UUID, status Status, message, stagingKey string) {
	log := logging.WithFields(ctx, "operation_id", opID)

	var failed *Operation
	err := o.store.InTx(ctx, func(tx Tx) error {
		op, err := tx.GetOperation(ctx, opID)
		if err != nil {
			return err
		}
		op.Status = status
		op.ErrorMessage = &message
		op.CreatedEntitiesCount = nil
		now := nowFunc()
		op.CompletedAt = &now
		if err := tx.UpdateOperation(ctx, op); err != nil {
			return err
		}
		failed = op
		return nil
	})
	if err != nil {
		log.Error("compensating update failed", "status", status, "error", err)
	} else {
		o.notify(ctx, failed)
	}

	if stagingKey != "" {
		o.objects.Delete(ctx, stagingKey)
	}
}

// notify emits the terminal state change to the event sink. Callers invoke
// it only after the transaction that recorded the state has committed; the
// sink must never observe a state that was rolled back.
func (o *Orchestrator) notify(ctx context.Context, op *Operation) {
	if o.events == nil {
		return
	}
	copied := *op
	o.events.OperationFinished(ctx, &copied)
}

// stageMessage formats the errorMessage stored on terminal operations:
// stage, error kind, then the error text, truncated to the column bound.
// Truncation backs off to a rune boundary so non-ASCII error text is never
// cut mid-sequence.
func stageMessage(stage string, err error) string {
	msg := fmt.Sprintf("%s: %s: %s", stage, errorKind(err), err.Error())
	if len(msg) > maxErrorMessageLength {
		cut := maxErrorMessageLength
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "... [truncated]"
	}
	return msg
}
