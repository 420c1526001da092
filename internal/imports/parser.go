package imports

// parser.go implements the parser registry. Parsers are registered in a
// statically configured, ordered list; selection is a first-match scan over
// Supports. There is no priority beyond registration order.

import (
	"path/filepath"
	"strings"

	"github.com/bandvault/bandvault/internal/band"
)

// FileParser converts raw file bytes of one wire format into normalized
// import records.
type FileParser interface {
	// Supports reports whether this parser handles the given MIME type or
	// filename extension.
	Supports(mimeType, filename string) bool

	// Parse converts raw bytes into records. Malformed structure returns a
	// *ParseError, never a partial or empty result.
	Parse(data []byte, filename string) ([]band.ImportRecord, error)

	// ContentTypes lists the MIME types this parser declares, for
	// capability discovery.
	ContentTypes() []string
}

// ParserFacade selects the parser matching an upload and exposes the
// supported-format listing.
type ParserFacade struct {
	parsers []FileParser
}

// NewParserFacade builds a facade over the given parsers in order.
func NewParserFacade(parsers ...FileParser) *ParserFacade {
	return &ParserFacade{parsers: parsers}
}

// DefaultParserFacade returns the facade with the standard CSV, JSON and XML
// parsers registered.
func DefaultParserFacade() *ParserFacade {
	return NewParserFacade(&CSVParser{}, &JSONParser{}, &XMLParser{})
}

// Supported reports whether any registered parser handles the upload.
func (f *ParserFacade) Supported(mimeType, filename string) bool {
	return f.find(mimeType, filename) != nil
}

// ParseFile parses data with the first parser that supports the MIME type /
// filename. Returns ErrUnsupportedFormat when none matches, and a
// *ParseError("empty import") for a well-formed file with zero records.
func (f *ParserFacade) ParseFile(data []byte, filename, mimeType string) ([]band.ImportRecord, error) {
	parser := f.find(mimeType, filename)
	if parser == nil {
		return nil, ErrUnsupportedFormat
	}

	records, err := parser.Parse(data, filename)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ParseError{Message: "empty import"}
	}
	return records, nil
}

// SupportedFormats flattens the content types declared by all registered
// parsers, in registration order.
func (f *ParserFacade) SupportedFormats() []string {
	var formats []string
	for _, p := range f.parsers {
		formats = append(formats, p.ContentTypes()...)
	}
	return formats
}

func (f *ParserFacade) find(mimeType, filename string) FileParser {
	for _, p := range f.parsers {
		if p.Supports(mimeType, filename) {
			return p
		}
	}
	return nil
}

// hasExtension reports whether filename ends in ext (case-insensitive).
// ext includes the dot, e.g. ".csv".
func hasExtension(filename, ext string) bool {
	return strings.EqualFold(filepath.Ext(filename), ext)
}

// baseMIME strips any parameters from a MIME type, so
// "text/csv; charset=utf-8" matches "text/csv".
func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
