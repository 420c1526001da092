package imports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *memStore, *memObjects) {
	t.Helper()
	store := newMemStore()
	objects := newMemObjects()
	svc := NewService(store, objects, Options{MaxFileSize: 1024})
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Stop(ctx)
	})
	return svc, store, objects
}

// waitTerminal polls until the operation reaches a terminal state.
func waitTerminal(t *testing.T, store *memStore, id uuid.UUID) *Operation {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if op := store.op(id); op != nil && op.Status.Terminal() {
			return op
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("operation %s never reached a terminal state", id)
	return nil
}

func TestStartImportRejections(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		data     []byte
		filename string
		mimeType string
		wantErr  error
	}{
		{"empty file", nil, "bands.csv", "text/csv", ErrEmptyFile},
		{"over size limit", bytes.Repeat([]byte("x"), 2048), "bands.csv", "text/csv", ErrFileTooLarge},
		{"unsupported format", []byte("hello"), "bands.txt", "text/plain", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartImport(context.Background(), tt.data, tt.filename, tt.mimeType, "alice")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartImportReturnsPendingImmediately(t *testing.T) {
	svc, store, _ := newTestService(t)

	op, err := svc.StartImport(context.Background(),
		[]byte(validJSONImport), "bands.json", "application/json", "alice")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	if op.Status != StatusPending {
		t.Errorf("status = %s, want PENDING at submission", op.Status)
	}
	if op.Owner != "alice" || op.Filename != "bands.json" {
		t.Errorf("op = %+v, want submission metadata recorded", op)
	}

	final := waitTerminal(t, store, op.ID)
	if final.Status != StatusCompleted {
		t.Errorf("final status = %s, want COMPLETED (error: %v)", final.Status, final.ErrorMessage)
	}
}

func TestStartImportQueuesFailedOutcome(t *testing.T) {
	svc, store, _ := newTestService(t)

	// Format is supported, content is not parseable: accepted at submit,
	// failed asynchronously.
	op, err := svc.StartImport(context.Background(),
		[]byte("{}"), "bands.json", "application/json", "alice")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	final := waitTerminal(t, store, op.ID)
	if final.Status != StatusValidationFailed {
		t.Errorf("final status = %s, want VALIDATION_FAILED", final.Status)
	}
}

// gatedObjects blocks the first staging write until released, keeping the
// lane busy so queued submissions can be observed.
type gatedObjects struct {
	*memObjects
	gate chan struct{}
	once sync.Once
}

func (o *gatedObjects) PutStaging(ctx context.Context, opID uuid.UUID, filename, contentType string, data []byte) (string, error) {
	o.once.Do(func() { <-o.gate })
	return o.memObjects.PutStaging(ctx, opID, filename, contentType, data)
}

// A submission made while another import is running stays PENDING until the
// lane reaches it.
func TestSecondSubmissionWaitsPending(t *testing.T) {
	store := newMemStore()
	objects := &gatedObjects{memObjects: newMemObjects(), gate: make(chan struct{})}
	svc := NewService(store, objects, Options{})
	svc.Start(context.Background())

	first, err := svc.StartImport(context.Background(),
		[]byte(validJSONImport), "first.json", "application/json", "alice")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}
	data := `[{"name": "Muse"}]`
	second, err := svc.StartImport(context.Background(),
		[]byte(data), "second.json", "application/json", "alice")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	// The first run is blocked in staging; the second must not have started.
	time.Sleep(50 * time.Millisecond)
	if got := store.op(second.ID).Status; got != StatusPending {
		t.Errorf("second status = %s, want PENDING while first runs", got)
	}

	close(objects.gate)
	if op := waitTerminal(t, store, first.ID); op.Status != StatusCompleted {
		t.Errorf("first status = %s, want COMPLETED (error: %v)", op.Status, op.ErrorMessage)
	}
	// The second import fails validation, which proves the lane reached it.
	if op := waitTerminal(t, store, second.ID); op.Status != StatusValidationFailed {
		t.Errorf("second status = %s, want VALIDATION_FAILED", op.Status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}

func TestGetOperationUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetOperation(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDownloadFileBeforeCompletion(t *testing.T) {
	svc, store, _ := newTestService(t)

	op := &Operation{ID: uuid.New(), Status: StatusProcessing, StartedAt: time.Now()}
	if err := store.CreateOperation(context.Background(), op); err != nil {
		t.Fatal(err)
	}

	_, err := svc.DownloadFile(context.Background(), op.ID)
	if !errors.Is(err, ErrFileNotAvailable) {
		t.Errorf("err = %v, want ErrFileNotAvailable", err)
	}
}

func TestDownloadFileAfterCompletion(t *testing.T) {
	svc, store, _ := newTestService(t)

	op, err := svc.StartImport(context.Background(),
		[]byte(validJSONImport), "bands.json", "application/json", "alice")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}
	waitTerminal(t, store, op.ID)

	download, err := svc.DownloadFile(context.Background(), op.ID)
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	defer download.Reader.Close()

	data, err := io.ReadAll(download.Reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != validJSONImport {
		t.Error("downloaded bytes differ from the upload")
	}
	if download.Filename != "bands.json" {
		t.Errorf("filename = %q, want bands.json", download.Filename)
	}
	if download.ContentType != "application/json" {
		t.Errorf("content type = %q, want the submitted type", download.ContentType)
	}
}

func TestSupportedFormatsExposed(t *testing.T) {
	svc, _, _ := newTestService(t)

	formats := svc.SupportedFormats()
	if len(formats) == 0 {
		t.Fatal("no supported formats reported")
	}
}
