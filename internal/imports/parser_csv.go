package imports

// parser_csv.go parses CSV import files. The header row maps columns to
// record fields using dotted wire paths (name, coordinates.x,
// frontMan.location.y, bestAlbum.tracks, ...). One data row is one record.
// An empty cell in a numeric column means "absent", never zero.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/bandvault/bandvault/internal/band"
)

// CSVParser parses text/csv import files.
type CSVParser struct{}

// Supports matches the CSV MIME types and the .csv extension.
func (p *CSVParser) Supports(mimeType, filename string) bool {
	switch baseMIME(mimeType) {
	case "text/csv", "application/vnd.ms-excel":
		return true
	}
	return hasExtension(filename, ".csv")
}

// ContentTypes lists the declared CSV MIME types.
func (p *CSVParser) ContentTypes() []string {
	return []string{"text/csv", "application/vnd.ms-excel"}
}

// Parse reads the header row and converts each data row into a record.
func (p *CSVParser) Parse(data []byte, filename string) ([]band.ImportRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Format: "csv", Message: err.Error(), Err: err}
	}
	if len(rows) == 0 {
		return []band.ImportRecord{}, nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	records := make([]band.ImportRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := csvRow{header: header, row: row, line: n + 2}.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// csvRow converts one data row using the header index. line is the 1-based
// physical line number, used in parse error messages.
type csvRow struct {
	header map[string]int
	row    []string
	line   int
}

func (r csvRow) record() (band.ImportRecord, error) {
	rec := band.ImportRecord{
		Name:              r.str("name"),
		Description:       r.str("description"),
		Genre:             r.str("genre"),
		EstablishmentDate: r.str("establishmentDate"),
	}

	var err error
	if rec.NumberOfParticipants, err = r.optInt("numberOfParticipants"); err != nil {
		return rec, err
	}
	if rec.SinglesCount, err = r.optInt("singlesCount"); err != nil {
		return rec, err
	}
	if rec.AlbumsCount, err = r.optInt("albumsCount"); err != nil {
		return rec, err
	}

	if r.hasGroup("coordinates") {
		c := &band.CoordinatesRecord{}
		if c.X, err = r.optInt("coordinates.x"); err != nil {
			return rec, err
		}
		if c.Y, err = r.optFloat("coordinates.y"); err != nil {
			return rec, err
		}
		rec.Coordinates = c
	}

	if r.hasGroup("frontMan") {
		fm := &band.PersonRecord{
			Name:        r.str("frontMan.name"),
			EyeColor:    r.str("frontMan.eyeColor"),
			HairColor:   r.str("frontMan.hairColor"),
			Nationality: r.str("frontMan.nationality"),
		}
		if fm.Weight, err = r.optFloat("frontMan.weight"); err != nil {
			return rec, err
		}
		if r.hasGroup("frontMan.location") {
			loc := &band.LocationRecord{}
			if loc.X, err = r.optInt("frontMan.location.x"); err != nil {
				return rec, err
			}
			if loc.Y, err = r.optInt("frontMan.location.y"); err != nil {
				return rec, err
			}
			if loc.Z, err = r.optInt("frontMan.location.z"); err != nil {
				return rec, err
			}
			fm.Location = loc
		}
		rec.FrontMan = fm
	}

	if r.hasGroup("bestAlbum") {
		al := &band.AlbumRecord{Name: r.str("bestAlbum.name")}
		if al.Tracks, err = r.optInt("bestAlbum.tracks"); err != nil {
			return rec, err
		}
		if al.Sales, err = r.optInt("bestAlbum.sales"); err != nil {
			return rec, err
		}
		rec.BestAlbum = al
	}

	return rec, nil
}

// str returns the trimmed cell for a column, or "" when the column is absent.
func (r csvRow) str(col string) string {
	i, ok := r.header[strings.ToLower(col)]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

// optInt converts a cell to *int64; an absent column or empty cell is nil.
func (r csvRow) optInt(col string) (*int64, error) {
	raw := r.str(col)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ParseError{
			Format:  "csv",
			Message: fmt.Sprintf("line %d: column %q: invalid integer %q", r.line, col, raw),
			Err:     err,
		}
	}
	return &v, nil
}

// optFloat converts a cell to *float64; an absent column or empty cell is nil.
func (r csvRow) optFloat(col string) (*float64, error) {
	raw := r.str(col)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ParseError{
			Format:  "csv",
			Message: fmt.Sprintf("line %d: column %q: invalid number %q", r.line, col, raw),
			Err:     err,
		}
	}
	return &v, nil
}

// hasGroup reports whether any header column belongs to the dotted group,
// so a file without any coordinates.* columns produces a nil Coordinates
// (caught by validation as a missing group, not a missing leaf).
func (r csvRow) hasGroup(prefix string) bool {
	p := strings.ToLower(prefix) + "."
	for col := range r.header {
		if strings.HasPrefix(col, p) {
			return true
		}
	}
	return false
}
