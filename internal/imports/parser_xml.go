package imports

// parser_xml.go parses XML import files. A <musicBands> wrapper contains
// repeated <musicBand> elements. Numeric fields use a nullable-aware
// conversion: an empty or whitespace-only element converts to "absent",
// while any other non-numeric text is a hard parse failure; the value is
// never silently defaulted to zero.

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/bandvault/bandvault/internal/band"
)

// XMLParser parses application/xml import files.
type XMLParser struct{}

// Supports matches the XML MIME types and the .xml extension.
func (p *XMLParser) Supports(mimeType, filename string) bool {
	switch baseMIME(mimeType) {
	case "application/xml", "text/xml":
		return true
	}
	return hasExtension(filename, ".xml")
}

// ContentTypes lists the declared XML MIME types.
func (p *XMLParser) ContentTypes() []string {
	return []string{"application/xml", "text/xml"}
}

// Parse decodes the wrapper document and converts each element.
func (p *XMLParser) Parse(data []byte, filename string) ([]band.ImportRecord, error) {
	var doc xmlBandList
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Format: "xml", Message: err.Error(), Err: err}
	}

	records := make([]band.ImportRecord, 0, len(doc.Bands))
	for i, el := range doc.Bands {
		rec, err := el.record(i + 1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Intermediate decode targets keep every leaf as a string so the nullable
// conversion rule can tell "empty" apart from "malformed".

type xmlBandList struct {
	XMLName xml.Name  `xml:"musicBands"`
	Bands   []xmlBand `xml:"musicBand"`
}

type xmlBand struct {
	Name                 string          `xml:"name"`
	Description          string          `xml:"description"`
	Genre                string          `xml:"genre"`
	NumberOfParticipants string          `xml:"numberOfParticipants"`
	SinglesCount         string          `xml:"singlesCount"`
	AlbumsCount          string          `xml:"albumsCount"`
	EstablishmentDate    string          `xml:"establishmentDate"`
	Coordinates          *xmlCoordinates `xml:"coordinates"`
	FrontMan             *xmlPerson      `xml:"frontMan"`
	BestAlbum            *xmlAlbum       `xml:"bestAlbum"`
}

type xmlCoordinates struct {
	X string `xml:"x"`
	Y string `xml:"y"`
}

type xmlPerson struct {
	Name        string       `xml:"name"`
	EyeColor    string       `xml:"eyeColor"`
	HairColor   string       `xml:"hairColor"`
	Weight      string       `xml:"weight"`
	Nationality string       `xml:"nationality"`
	Location    *xmlLocation `xml:"location"`
}

type xmlLocation struct {
	X string `xml:"x"`
	Y string `xml:"y"`
	Z string `xml:"z"`
}

type xmlAlbum struct {
	Name   string `xml:"name"`
	Tracks string `xml:"tracks"`
	Sales  string `xml:"sales"`
}

func (b xmlBand) record(n int) (band.ImportRecord, error) {
	rec := band.ImportRecord{
		Name:              strings.TrimSpace(b.Name),
		Description:       strings.TrimSpace(b.Description),
		Genre:             strings.TrimSpace(b.Genre),
		EstablishmentDate: strings.TrimSpace(b.EstablishmentDate),
	}

	var err error
	if rec.NumberOfParticipants, err = xmlInt(n, "numberOfParticipants", b.NumberOfParticipants); err != nil {
		return rec, err
	}
	if rec.SinglesCount, err = xmlInt(n, "singlesCount", b.SinglesCount); err != nil {
		return rec, err
	}
	if rec.AlbumsCount, err = xmlInt(n, "albumsCount", b.AlbumsCount); err != nil {
		return rec, err
	}

	if b.Coordinates != nil {
		c := &band.CoordinatesRecord{}
		if c.X, err = xmlInt(n, "coordinates.x", b.Coordinates.X); err != nil {
			return rec, err
		}
		if c.Y, err = xmlFloat(n, "coordinates.y", b.Coordinates.Y); err != nil {
			return rec, err
		}
		rec.Coordinates = c
	}

	if b.FrontMan != nil {
		fm := &band.PersonRecord{
			Name:        strings.TrimSpace(b.FrontMan.Name),
			EyeColor:    strings.TrimSpace(b.FrontMan.EyeColor),
			HairColor:   strings.TrimSpace(b.FrontMan.HairColor),
			Nationality: strings.TrimSpace(b.FrontMan.Nationality),
		}
		if fm.Weight, err = xmlFloat(n, "frontMan.weight", b.FrontMan.Weight); err != nil {
			return rec, err
		}
		if b.FrontMan.Location != nil {
			loc := &band.LocationRecord{}
			if loc.X, err = xmlInt(n, "frontMan.location.x", b.FrontMan.Location.X); err != nil {
				return rec, err
			}
			if loc.Y, err = xmlInt(n, "frontMan.location.y", b.FrontMan.Location.Y); err != nil {
				return rec, err
			}
			if loc.Z, err = xmlInt(n, "frontMan.location.z", b.FrontMan.Location.Z); err != nil {
				return rec, err
			}
			fm.Location = loc
		}
		rec.FrontMan = fm
	}

	if b.BestAlbum != nil {
		al := &band.AlbumRecord{Name: strings.TrimSpace(b.BestAlbum.Name)}
		if al.Tracks, err = xmlInt(n, "bestAlbum.tracks", b.BestAlbum.Tracks); err != nil {
			return rec, err
		}
		if al.Sales, err = xmlInt(n, "bestAlbum.sales", b.BestAlbum.Sales); err != nil {
			return rec, err
		}
		rec.BestAlbum = al
	}

	return rec, nil
}

// xmlInt applies the nullable conversion rule for integer elements.
func xmlInt(record int, field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ParseError{
			Format:  "xml",
			Message: fmt.Sprintf("record %d: element %q: invalid integer %q", record, field, raw),
			Err:     err,
		}
	}
	return &v, nil
}

// xmlFloat applies the nullable conversion rule for decimal elements.
func xmlFloat(record int, field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ParseError{
			Format:  "xml",
			Message: fmt.Sprintf("record %d: element %q: invalid number %q", record, field, raw),
			Err:     err,
		}
	}
	return &v, nil
}
