package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/imports"
)

// fakeService records calls and plays back scripted results.
type fakeService struct {
	startOp  *imports.Operation
	startErr error
	gotData  []byte
	gotName  string
	gotType  string
	gotOwner string

	getOp  *imports.Operation
	getErr error

	listPage  *imports.OperationPage
	listErr   error
	gotFilter imports.Filter
	gotPage   imports.Page

	download    *imports.FileDownload
	downloadErr error
}

func (f *fakeService) StartImport(_ context.Context, data []byte, filename, contentType, owner string) (*imports.Operation, error) {
	f.gotData, f.gotName, f.gotType, f.gotOwner = data, filename, contentType, owner
	return f.startOp, f.startErr
}

func (f *fakeService) GetOperation(_ context.Context, id uuid.UUID) (*imports.Operation, error) {
	return f.getOp, f.getErr
}

func (f *fakeService) ListOperations(_ context.Context, filter imports.Filter, page imports.Page) (*imports.OperationPage, error) {
	f.gotFilter, f.gotPage = filter, page
	return f.listPage, f.listErr
}

func (f *fakeService) DownloadFile(_ context.Context, id uuid.UUID) (*imports.FileDownload, error) {
	return f.download, f.downloadErr
}

func (f *fakeService) SupportedFormats() []string {
	return []string{"text/csv", "application/json"}
}

func newTestServer(svc ImportService) *Server {
	return NewServer(svc, Options{Addr: ":0", MaxFileSize: 1 << 20})
}

func pendingOperation() *imports.Operation {
	return &imports.Operation{
		ID:          uuid.New(),
		Owner:       "alice",
		Filename:    "bands.csv",
		ContentType: "text/csv",
		FileSize:    11,
		Status:      imports.StatusPending,
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func multipartBody(t *testing.T, field, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleStartImport(t *testing.T) {
	svc := &fakeService{startOp: pendingOperation()}
	srv := newTestServer(svc)

	body, contentType := multipartBody(t, "file", "bands.csv", "text/csv; charset=utf-8", "name\nQueen\n")
	req := httptest.NewRequest(http.MethodPost, "/api/import/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Owner", "alice")
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body)
	}
	if svc.gotName != "bands.csv" || svc.gotOwner != "alice" {
		t.Errorf("service got name=%q owner=%q", svc.gotName, svc.gotOwner)
	}
	if svc.gotType != "text/csv" {
		t.Errorf("content type = %q, want parameters stripped", svc.gotType)
	}
	if string(svc.gotData) != "name\nQueen\n" {
		t.Errorf("data = %q", svc.gotData)
	}

	var resp operationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(imports.StatusPending) {
		t.Errorf("response status = %q, want PENDING", resp.Status)
	}
}

func TestHandleStartImportMissingFile(t *testing.T) {
	srv := newTestServer(&fakeService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unsupported format", imports.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
		{"empty file", imports.ErrEmptyFile, http.StatusBadRequest, "EMPTY_FILE"},
		{"too large", imports.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeService{startErr: tt.err})

			body, contentType := multipartBody(t, "file", "bands.bin", "application/octet-stream", "x")
			req := httptest.NewRequest(http.MethodPost, "/api/import/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleGetOperation(t *testing.T) {
	op := pendingOperation()
	srv := newTestServer(&fakeService{getOp: op})

	req := httptest.NewRequest(http.MethodGet, "/api/import/operations/"+op.ID.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp operationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != op.ID {
		t.Errorf("id = %s, want %s", resp.ID, op.ID)
	}
}

func TestHandleGetOperationBadID(t *testing.T) {
	srv := newTestServer(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/import/operations/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetOperationNotFound(t *testing.T) {
	srv := newTestServer(&fakeService{getErr: imports.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/import/operations/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListOperationsQuery(t *testing.T) {
	svc := &fakeService{listPage: &imports.OperationPage{Number: 2, Size: 10}}
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/import/operations?owner=alice&status=COMPLETED&filename=bands&createdFrom=3&page=2&pageSize=10&startedAfter=2026-01-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}
	if svc.gotFilter.Owner != "alice" || svc.gotFilter.Status != imports.StatusCompleted ||
		svc.gotFilter.Filename != "bands" {
		t.Errorf("filter = %+v", svc.gotFilter)
	}
	if svc.gotFilter.CreatedCountFrom == nil || *svc.gotFilter.CreatedCountFrom != 3 {
		t.Errorf("CreatedCountFrom = %v, want 3", svc.gotFilter.CreatedCountFrom)
	}
	if svc.gotFilter.StartedAfter == nil {
		t.Error("StartedAfter not parsed")
	}
	if svc.gotPage.Number != 2 || svc.gotPage.Size != 10 {
		t.Errorf("page = %+v, want 2/10", svc.gotPage)
	}
}

func TestHandleListOperationsBadQuery(t *testing.T) {
	srv := newTestServer(&fakeService{})

	for _, query := range []string{
		"status=NOT_A_STATUS",
		"createdFrom=many",
		"startedAfter=yesterday",
		"page=first",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/import/operations?"+query, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandleDownloadFile(t *testing.T) {
	srv := newTestServer(&fakeService{download: &imports.FileDownload{
		Reader:      io.NopCloser(strings.NewReader("name\nQueen\n")),
		Filename:    "bands.csv",
		ContentType: "text/csv",
		Size:        11,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/import/operations/"+uuid.NewString()+"/file", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="bands.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "name\nQueen\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleDownloadFileNotReady(t *testing.T) {
	srv := newTestServer(&fakeService{downloadErr: imports.ErrFileNotAvailable})

	req := httptest.NewRequest(http.MethodGet, "/api/import/operations/"+uuid.NewString()+"/file", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHandleSupportedFormats(t *testing.T) {
	srv := newTestServer(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/import/supported-formats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["formats"]) != 2 {
		t.Errorf("formats = %v", resp["formats"])
	}
}

func TestOwnerDefaultsWhenHeaderMissing(t *testing.T) {
	svc := &fakeService{startOp: pendingOperation()}
	srv := newTestServer(svc)

	body, contentType := multipartBody(t, "file", "bands.csv", "text/csv", "name\n")
	req := httptest.NewRequest(http.MethodPost, "/api/import/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if svc.gotOwner != "anonymous" {
		t.Errorf("owner = %q, want anonymous default", svc.gotOwner)
	}
}
