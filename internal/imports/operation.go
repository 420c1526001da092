package imports

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import operation.
//
// Transitions:
//
//	PENDING → PROCESSING → FINALIZING_FILE → COMPLETED
//	PENDING/PROCESSING → VALIDATION_FAILED
//	PENDING/PROCESSING/FINALIZING_FILE → FAILED
//
// COMPLETED, VALIDATION_FAILED and FAILED are terminal.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusProcessing       Status = "PROCESSING"
	StatusFinalizingFile   Status = "FINALIZING_FILE"
	StatusCompleted        Status = "COMPLETED"
	StatusValidationFailed Status = "VALIDATION_FAILED"
	StatusFailed           Status = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusValidationFailed, StatusFailed:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusFinalizingFile,
		StatusCompleted, StatusValidationFailed, StatusFailed:
		return true
	}
	return false
}

// Operation is the persisted state record tracking one run of the pipeline
// from submission to terminal outcome. It is the single source of truth for
// pipeline progress.
//
// Invariant: StorageObjectKey is non-nil iff Status == COMPLETED. Every
// terminal transition either finalizes or deletes the staging object, so a
// StagingObjectKey never outlives its operation.
type Operation struct {
	ID                   uuid.UUID
	Owner                string
	Filename             string
	ContentType          string
	FileSize             int64
	Status               Status
	StagingObjectKey     *string
	StorageObjectKey     *string
	CreatedEntitiesCount *int
	ErrorMessage         *string
	StartedAt            time.Time
	CompletedAt          *time.Time
}

// Filter narrows an operation listing. Zero values mean "no constraint".
type Filter struct {
	Owner            string
	Filename         string // substring match
	Status           Status
	CreatedCountFrom *int
	CreatedCountTo   *int
	StartedAfter     *time.Time
	StartedBefore    *time.Time
	CompletedAfter   *time.Time
	CompletedBefore  *time.Time
}

// Page selects one page of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// DefaultPageSize bounds listings when the caller does not specify a size.
const DefaultPageSize = 20

// MaxPageSize caps a caller-supplied page size.
const MaxPageSize = 200

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// OperationPage is one page of an operation listing.
type OperationPage struct {
	Items      []Operation
	TotalCount int64
	Number     int
	Size       int
}
