package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/imports"
	"github.com/bandvault/bandvault/internal/logging"
	"github.com/bandvault/bandvault/internal/web/middleware"
)

// multipartMemoryLimit bounds how much of the form is held in memory before
// spilling to disk. The file itself may be larger.
const multipartMemoryLimit = 32 << 20

// handleStartImport accepts a multipart upload and enqueues an import run.
// Responds 202 with the PENDING operation; the outcome is polled via the
// operations endpoints.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	// Slack on top of the limit so the multipart framing itself does not
	// trip the reader before the size check can produce a clean error.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, r, imports.ErrFileTooLarge)
			return
		}
		respondError(w, r, badRequest("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, badRequest("missing form field \"file\""))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}

	owner := middleware.OwnerFromContext(r.Context())
	op, err := s.service.StartImport(r.Context(), data, header.Filename, contentType, owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import accepted",
		"operation_id", op.ID,
		"filename", op.Filename,
		"size", op.FileSize,
		"owner", owner,
	)
	writeJSON(w, http.StatusAccepted, toOperationResponse(op))
}

// handleGetOperation returns one operation by id.
func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := operationID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	op, err := s.service.GetOperation(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponse(op))
}

// handleListOperations returns a filtered page of operations, newest first.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.ListOperations(r.Context(), filter, page)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationPageResponse(result))
}

// handleDownloadFile streams the archived import file of a completed
// operation.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	id, err := operationID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	download, err := s.service.DownloadFile(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer download.Reader.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", download.Filename))
	if download.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	}

	if _, err := io.Copy(w, download.Reader); err != nil {
		// Response is underway; the client sees a truncated body.
		logging.FromContext(r.Context()).Error("streaming import file failed",
			"operation_id", id, "error", err)
	}
}

// handleSupportedFormats lists the accepted upload content types.
func (s *Server) handleSupportedFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"formats": s.service.SupportedFormats(),
	})
}

func operationID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "operationID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid operation id")
	}
	return id, nil
}

// parseListQuery decodes the listing filter and page from query parameters.
func parseListQuery(q url.Values) (imports.Filter, imports.Page, error) {
	var f imports.Filter
	var p imports.Page

	f.Owner = q.Get("owner")
	f.Filename = q.Get("filename")

	if raw := q.Get("status"); raw != "" {
		status := imports.Status(raw)
		if !status.Valid() {
			return f, p, badRequest("unknown status " + strconv.Quote(raw))
		}
		f.Status = status
	}

	var err error
	if f.CreatedCountFrom, err = intParam(q, "createdFrom"); err != nil {
		return f, p, err
	}
	if f.CreatedCountTo, err = intParam(q, "createdTo"); err != nil {
		return f, p, err
	}
	if f.StartedAfter, err = timeParam(q, "startedAfter"); err != nil {
		return f, p, err
	}
	if f.StartedBefore, err = timeParam(q, "startedBefore"); err != nil {
		return f, p, err
	}
	if f.CompletedAfter, err = timeParam(q, "completedAfter"); err != nil {
		return f, p, err
	}
	if f.CompletedBefore, err = timeParam(q, "completedBefore"); err != nil {
		return f, p, err
	}

	if raw := q.Get("page"); raw != "" {
		if p.Number, err = strconv.Atoi(raw); err != nil {
			return f, p, badRequest("invalid page")
		}
	}
	if raw := q.Get("pageSize"); raw != "" {
		if p.Size, err = strconv.Atoi(raw); err != nil {
			return f, p, badRequest("invalid pageSize")
		}
	}

	return f, p.Normalize(), nil
}

func intParam(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &v, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, badRequest("invalid " + name + ", want RFC 3339")
	}
	return &t, nil
}
