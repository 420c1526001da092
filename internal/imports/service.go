package imports

// service.go is the outward face of the pipeline: submission, operation
// lookup and listing, file download, and capability discovery. Submission
// returns the PENDING operation immediately; the run itself happens on the
// worker lane.

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/logging"
)

// nowFunc is swapped in tests for deterministic timestamps.
var nowFunc = time.Now

// Service exposes the import pipeline to callers.
type Service struct {
	store       OperationStore
	objects     ObjectStore
	parsers     *ParserFacade
	worker      *Worker
	maxFileSize int64
}

// Options configures a Service.
type Options struct {
	// MaxFileSize caps uploads in bytes; 0 disables the check.
	MaxFileSize int64

	// QueueCapacity sizes the worker lane queue.
	QueueCapacity int

	// Events receives terminal state changes; nil falls back to a logging sink.
	Events EventSink
}

// NewService wires the pipeline: facade, processor, orchestrator and the
// worker lane. Call Start before submitting imports.
func NewService(store OperationStore, objects ObjectStore, opts Options) *Service {
	events := opts.Events
	if events == nil {
		events = loggingSink{}
	}

	parsers := DefaultParserFacade()
	orchestrator := NewOrchestrator(store, objects, parsers, NewProcessor(), events)

	s := &Service{
		store:       store,
		objects:     objects,
		parsers:     parsers,
		maxFileSize: opts.MaxFileSize,
	}
	s.worker = NewWorker(opts.QueueCapacity, orchestrator.Run)
	return s
}

// Start launches the worker lane with ctx as the processing context.
func (s *Service) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

// Stop drains the worker lane; see Worker.Stop.
func (s *Service) Stop(ctx context.Context) error {
	return s.worker.Stop(ctx)
}

// StartImport validates the submission, creates the PENDING operation and
// queues the run. Format problems are the only errors surfaced here: an
// unsupported MIME type / extension is rejected with ErrUnsupportedFormat
// before any operation row exists. Everything that can go wrong later is
// reported through the operation state, never to this caller.
func (s *Service) StartImport(ctx context.Context, data []byte, filename, contentType, owner string) (*Operation, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	if !s.parsers.Supported(contentType, filename) {
		return nil, ErrUnsupportedFormat
	}

	op := &Operation{
		ID:          uuid.New(),
		Owner:       owner,
		Filename:    filename,
		ContentType: contentType,
		FileSize:    int64(len(data)),
		Status:      StatusPending,
		StartedAt:   nowFunc(),
	}
	if err := s.store.CreateOperation(ctx, op); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	logging.FromContext(ctx).Info("import submitted",
		"operation_id", op.ID,
		"filename", filename,
		"owner", owner,
	)

	// The request context dies with the HTTP response; the run must not.
	s.worker.Submit(context.WithoutCancel(ctx), Job{
		OperationID: op.ID,
		Owner:       owner,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})

	return op, nil
}

// GetOperation returns one operation, or ErrNotFound.
func (s *Service) GetOperation(ctx context.Context, id uuid.UUID) (*Operation, error) {
	return s.store.GetOperation(ctx, id)
}

// ListOperations returns a filtered page of operations.
func (s *Service) ListOperations(ctx context.Context, f Filter, p Page) (*OperationPage, error) {
	return s.store.ListOperations(ctx, f, p.Normalize())
}

// FileDownload is a stored import file opened for streaming.
type FileDownload struct {
	Reader      io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// DownloadFile streams the archived import file. It is valid only once the
// operation is COMPLETED and its storage key set; before that it fails with
// ErrFileNotAvailable (and ErrNotFound for unknown ids).
func (s *Service) DownloadFile(ctx context.Context, id uuid.UUID) (*FileDownload, error) {
	op, err := s.store.GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Status != StatusCompleted || op.StorageObjectKey == nil {
		return nil, ErrFileNotAvailable
	}

	r, contentType, size, err := s.objects.Open(ctx, *op.StorageObjectKey)
	if err != nil {
		return nil, err
	}
	if op.ContentType != "" {
		contentType = op.ContentType
	}
	if op.FileSize > 0 {
		size = op.FileSize
	}

	return &FileDownload{
		Reader:      r,
		Filename:    op.Filename,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// SupportedFormats lists the content types accepted by the registered
// parsers.
func (s *Service) SupportedFormats() []string {
	return s.parsers.SupportedFormats()
}

// QueueLen reports the number of queued import runs, for introspection.
func (s *Service) QueueLen() int {
	return s.worker.QueueLen()
}

// loggingSink is the default event sink: terminal transitions are logged
// and otherwise dropped.
type loggingSink struct{}

func (loggingSink) OperationFinished(ctx context.Context, op *Operation) {
	attrs := []any{"operation_id", op.ID, "status", op.Status}
	if op.ErrorMessage != nil {
		attrs = append(attrs, "error", *op.ErrorMessage)
	}
	logging.FromContext(ctx).Info("import finished", attrs...)
}
