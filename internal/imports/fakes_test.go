package imports

// fakes_test.go holds the in-memory collaborators the pipeline tests run
// against: an operation store with real transaction semantics (entity writes
// roll back when the callback errors), an entity writer, and an object store.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/band"
)

func ptr[T any](v T) *T { return &v }

// validRecord returns a record that passes every validation rule.
func validRecord(name string) band.ImportRecord {
	return band.ImportRecord{
		Name:                 name,
		Description:          "formed in a garage",
		Genre:                "ROCK",
		NumberOfParticipants: ptr[int64](4),
		SinglesCount:         ptr[int64](12),
		AlbumsCount:          ptr[int64](5),
		EstablishmentDate:    "1970-07-01",
		Coordinates: &band.CoordinatesRecord{
			X: ptr[int64](10),
			Y: ptr(42.5),
		},
		FrontMan: &band.PersonRecord{
			Name:        "Freddie",
			EyeColor:    "BROWN",
			HairColor:   "BLACK",
			Weight:      ptr(72.0),
			Nationality: "UK",
			Location: &band.LocationRecord{
				X: ptr[int64](1),
				Y: ptr[int64](2),
				Z: ptr[int64](3),
			},
		},
		BestAlbum: &band.AlbumRecord{
			Name:   "A Night at the Opera",
			Tracks: ptr[int64](12),
			Sales:  ptr[int64](6000000),
		},
	}
}

// memWriter is an in-memory EntityWriter counting created rows.
type memWriter struct {
	nextID    int64
	locations int
	persons   int
	coords    int
	albums    int
	bandNames []string

	existing map[string]bool // names BandNameExists reports as taken
	failOn   string          // entity kind whose create fails ("band", ...)
	calls    []string        // create call order, e.g. "location", "band"
}

func newMemWriter() *memWriter {
	return &memWriter{existing: map[string]bool{}}
}

func (w *memWriter) clone() *memWriter {
	c := *w
	c.bandNames = append([]string(nil), w.bandNames...)
	c.calls = append([]string(nil), w.calls...)
	return &c
}

func (w *memWriter) id() int64 {
	w.nextID++
	return w.nextID
}

func (w *memWriter) fail(kind string) error {
	if w.failOn == kind {
		return fmt.Errorf("forced %s failure", kind)
	}
	return nil
}

func (w *memWriter) BandNameExists(_ context.Context, name string) (bool, error) {
	return w.existing[name], nil
}

func (w *memWriter) CreateLocation(_ context.Context, l *band.Location) error {
	if err := w.fail("location"); err != nil {
		return err
	}
	l.ID = w.id()
	w.locations++
	w.calls = append(w.calls, "location")
	return nil
}

func (w *memWriter) CreatePerson(_ context.Context, p *band.Person) error {
	if err := w.fail("person"); err != nil {
		return err
	}
	p.ID = w.id()
	w.persons++
	w.calls = append(w.calls, "person")
	return nil
}

func (w *memWriter) CreateCoordinates(_ context.Context, c *band.Coordinates) error {
	if err := w.fail("coordinates"); err != nil {
		return err
	}
	c.ID = w.id()
	w.coords++
	w.calls = append(w.calls, "coordinates")
	return nil
}

func (w *memWriter) CreateAlbum(_ context.Context, a *band.Album) error {
	if err := w.fail("album"); err != nil {
		return err
	}
	a.ID = w.id()
	w.albums++
	w.calls = append(w.calls, "album")
	return nil
}

func (w *memWriter) CreateBand(_ context.Context, b *band.MusicBand) error {
	if err := w.fail("band"); err != nil {
		return err
	}
	b.ID = w.id()
	w.bandNames = append(w.bandNames, b.Name)
	w.calls = append(w.calls, "band")
	return nil
}

// memStore is an in-memory OperationStore. InTx snapshots the entity writer
// and the operations map and restores both when the callback errors, so
// rollback behavior matches a real database transaction.
type memStore struct {
	mu     sync.Mutex
	ops    map[uuid.UUID]*Operation
	writer *memWriter

	createErr error
	txErr     error // forced commit failure, returned after fn succeeds
	txErrOn   int   // 1-based InTx call txErr applies to; 0 means every call
	txCalls   int

	transitions []Status // every status written through UpdateOperation
}

func newMemStore() *memStore {
	return &memStore{
		ops:    map[uuid.UUID]*Operation{},
		writer: newMemWriter(),
	}
}

func (s *memStore) CreateOperation(_ context.Context, op *Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *op
	s.ops[op.ID] = &copied
	return nil
}

func (s *memStore) GetOperation(_ context.Context, id uuid.UUID) (*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *memStore) getLocked(id uuid.UUID) (*Operation, error) {
	op, ok := s.ops[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *op
	return &copied, nil
}

func (s *memStore) ListOperations(_ context.Context, f Filter, p Page) (*OperationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []Operation
	for _, op := range s.ops {
		if f.Owner != "" && op.Owner != f.Owner {
			continue
		}
		if f.Status != "" && op.Status != f.Status {
			continue
		}
		items = append(items, *op)
	}
	return &OperationPage{
		Items:      items,
		TotalCount: int64(len(items)),
		Number:     p.Number,
		Size:       p.Size,
	}, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedWriter := s.writer.clone()
	savedOps := make(map[uuid.UUID]*Operation, len(s.ops))
	for id, op := range s.ops {
		copied := *op
		savedOps[id] = &copied
	}
	savedTransitions := append([]Status(nil), s.transitions...)

	s.txCalls++
	err := fn(&memTx{store: s})
	if err == nil && s.txErr != nil && (s.txErrOn == 0 || s.txErrOn == s.txCalls) {
		err = s.txErr
	}
	if err != nil {
		s.writer = savedWriter
		s.ops = savedOps
		s.transitions = savedTransitions
		return err
	}
	return nil
}

// statuses returns the transition history of one operation.
func (s *memStore) statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.transitions...)
}

func (s *memStore) op(id uuid.UUID) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.getLocked(id)
	if err != nil {
		return nil
	}
	return op
}

// memTx runs against the already-locked store.
type memTx struct {
	store *memStore
}

func (t *memTx) GetOperation(_ context.Context, id uuid.UUID) (*Operation, error) {
	return t.store.getLocked(id)
}

func (t *memTx) UpdateOperation(_ context.Context, op *Operation) error {
	if _, ok := t.store.ops[op.ID]; !ok {
		return ErrNotFound
	}
	copied := *op
	t.store.ops[op.ID] = &copied
	t.store.transitions = append(t.store.transitions, op.Status)
	return nil
}

func (t *memTx) BandNameExists(ctx context.Context, name string) (bool, error) {
	return t.store.writer.BandNameExists(ctx, name)
}

func (t *memTx) CreateLocation(ctx context.Context, l *band.Location) error {
	return t.store.writer.CreateLocation(ctx, l)
}

func (t *memTx) CreatePerson(ctx context.Context, p *band.Person) error {
	return t.store.writer.CreatePerson(ctx, p)
}

func (t *memTx) CreateCoordinates(ctx context.Context, c *band.Coordinates) error {
	return t.store.writer.CreateCoordinates(ctx, c)
}

func (t *memTx) CreateAlbum(ctx context.Context, a *band.Album) error {
	return t.store.writer.CreateAlbum(ctx, a)
}

func (t *memTx) CreateBand(ctx context.Context, b *band.MusicBand) error {
	return t.store.writer.CreateBand(ctx, b)
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr      error
	finalizeErr error

	deleted []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (o *memObjects) PutStaging(_ context.Context, opID uuid.UUID, filename, _ string, data []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return "", &StorageError{Op: "put staging", Err: o.putErr}
	}
	key := fmt.Sprintf("staging/op-%s/%s", opID, filename)
	o.objects[key] = data
	return key, nil
}

func (o *memObjects) FinalizeFromStaging(_ context.Context, stagingKey string, opID uuid.UUID, filename string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finalizeErr != nil {
		return "", &StorageError{Op: "finalize", Key: stagingKey, Err: o.finalizeErr}
	}
	data, ok := o.objects[stagingKey]
	if !ok {
		return "", &StorageError{Op: "finalize", Key: stagingKey, Err: errors.New("no such key")}
	}
	finalKey := fmt.Sprintf("imports/op-%s/%s", opID, filename)
	o.objects[finalKey] = data
	delete(o.objects, stagingKey)
	return finalKey, nil
}

func (o *memObjects) Delete(_ context.Context, key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	o.deleted = append(o.deleted, key)
}

func (o *memObjects) Open(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	if !ok {
		return nil, "", 0, ErrFileNotAvailable
	}
	return io.NopCloser(bytes.NewReader(data)), "application/octet-stream", int64(len(data)), nil
}

func (o *memObjects) deletedKeys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.deleted...)
}
