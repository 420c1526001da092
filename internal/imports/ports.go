package imports

// ports.go declares the collaborator interfaces the pipeline depends on.
// Implementations live in internal/repository (Postgres) and
// internal/storage (S3); tests substitute in-memory fakes.

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/band"
)

// OperationStore persists import operations. Every mutation of an operation
// after creation happens inside InTx; the pipeline never updates state
// outside a transaction boundary.
type OperationStore interface {
	CreateOperation(ctx context.Context, op *Operation) error
	GetOperation(ctx context.Context, id uuid.UUID) (*Operation, error)
	ListOperations(ctx context.Context, f Filter, p Page) (*OperationPage, error)

	// InTx runs fn inside a single database transaction. fn returning an
	// error rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view of the store: operation reads/writes plus the
// entity writer, all bound to one database transaction.
type Tx interface {
	GetOperation(ctx context.Context, id uuid.UUID) (*Operation, error)
	UpdateOperation(ctx context.Context, op *Operation) error
	EntityWriter
}

// EntityWriter persists the band aggregate's sub-entities. Create methods
// assign the entity's ID on success. The processor calls these in fixed
// dependency order: location, person, coordinates, album, then band.
type EntityWriter interface {
	BandNameExists(ctx context.Context, name string) (bool, error)
	CreateLocation(ctx context.Context, l *band.Location) error
	CreatePerson(ctx context.Context, p *band.Person) error
	CreateCoordinates(ctx context.Context, c *band.Coordinates) error
	CreateAlbum(ctx context.Context, a *band.Album) error
	CreateBand(ctx context.Context, b *band.MusicBand) error
}

// ObjectStore archives uploaded files in an S3-compatible store.
type ObjectStore interface {
	// PutStaging writes the raw upload under a collision-resistant key
	// namespaced by operation id. It never overwrites an existing object.
	PutStaging(ctx context.Context, opID uuid.UUID, filename, contentType string, data []byte) (string, error)

	// FinalizeFromStaging promotes the staged object to its permanent key.
	// Safe to retry: an already-promoted key is detected and short-circuited.
	FinalizeFromStaging(ctx context.Context, stagingKey string, opID uuid.UUID, filename string) (string, error)

	// Delete removes an object best-effort. Failures are logged, never
	// returned: Delete runs during cleanup and must not mask the failure
	// that triggered it.
	Delete(ctx context.Context, key string)

	// Open streams a stored object for download.
	Open(ctx context.Context, key string) (r io.ReadCloser, contentType string, size int64, err error)
}

// EventSink receives a signal whenever an operation reaches a terminal
// state. Downstream notification fan-out is implemented behind this
// interface and stays outside the pipeline.
type EventSink interface {
	OperationFinished(ctx context.Context, op *Operation)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, op *Operation)

func (f EventSinkFunc) OperationFinished(ctx context.Context, op *Operation) { f(ctx, op) }
