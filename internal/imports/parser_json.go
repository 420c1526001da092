package imports

// parser_json.go parses JSON import files. The top-level value must be an
// array of record objects; anything else is a parse failure, not an empty
// result.

import (
	"bytes"
	"encoding/json"

	"github.com/bandvault/bandvault/internal/band"
)

// JSONParser parses application/json import files.
type JSONParser struct{}

// Supports matches the JSON MIME type and the .json extension.
func (p *JSONParser) Supports(mimeType, filename string) bool {
	if baseMIME(mimeType) == "application/json" {
		return true
	}
	return hasExtension(filename, ".json")
}

// ContentTypes lists the declared JSON MIME types.
func (p *JSONParser) ContentTypes() []string {
	return []string{"application/json"}
}

// Parse decodes a top-level array of record objects.
func (p *JSONParser) Parse(data []byte, filename string) ([]band.ImportRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Format: "json", Message: "invalid JSON document", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &ParseError{Format: "json", Message: "top-level value must be an array of records"}
	}

	var records []band.ImportRecord
	for dec.More() {
		var rec band.ImportRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, &ParseError{Format: "json", Message: err.Error(), Err: err}
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Format: "json", Message: "unterminated array", Err: err}
	}

	if records == nil {
		records = []band.ImportRecord{}
	}
	return records, nil
}
