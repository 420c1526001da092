package imports

// errors.go defines the error taxonomy of the import pipeline. Each stage
// returns a distinct error kind so the orchestrator can map failures onto
// terminal operation states without inspecting error strings:
//
//   ErrUnsupportedFormat  no parser matches; surfaced synchronously at submit
//   *ParseError           malformed bytes for the detected format
//   *ValidationError      a record fails field rules (carries index + field)
//   *StorageError         object store put/finalize/delete failure
//   *PersistenceError     database failure unrelated to validation
//   ErrNotFound           unknown operation id
//   ErrFileNotAvailable   download requested before the file is finalized

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when no registered parser supports the
// submitted MIME type / filename combination.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNotFound is returned for an unknown import operation id.
var ErrNotFound = errors.New("import operation not found")

// ErrFileNotAvailable is returned when a download is requested for an
// operation that has not reached COMPLETED.
var ErrFileNotAvailable = errors.New("import file not available")

// ErrEmptyFile is returned at submission time for a zero-byte upload.
var ErrEmptyFile = errors.New("uploaded file is empty")

// ErrFileTooLarge is returned at submission time when the upload exceeds the
// configured size limit.
var ErrFileTooLarge = errors.New("uploaded file exceeds size limit")

// ParseError reports malformed input for the detected file format. An empty
// but well-formed file is also a ParseError ("empty import").
type ParseError struct {
	Format  string // "csv", "json" or "xml"
	Message string
	Err     error // underlying decoder error, may be nil
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a record that fails structural validation. Record
// is the 1-based index in file order; Field is a dotted path in wire naming.
type ValidationError struct {
	Record  int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("Record %d: %s", e.Record, e.Message)
	}
	return fmt.Sprintf("Record %d: %s %s", e.Record, e.Field, e.Message)
}

// StorageError reports an object store failure. Op names the storage call
// that failed ("put staging", "finalize", "delete", "open").
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistenceError reports a database failure that is not a validation
// problem (connection loss, constraint violations outside field rules, etc).
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence: %v", e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// errorKind returns the taxonomy name of err for error messages on terminal
// operations, e.g. "ValidationError" or "StorageError".
func errorKind(err error) string {
	var (
		pe  *ParseError
		ve  *ValidationError
		se  *StorageError
		dbe *PersistenceError
	)
	switch {
	case errors.As(err, &pe):
		return "ParseError"
	case errors.As(err, &ve):
		return "ValidationError"
	case errors.As(err, &se):
		return "StorageError"
	case errors.As(err, &dbe):
		return "PersistenceError"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	default:
		return fmt.Sprintf("%T", err)
	}
}
