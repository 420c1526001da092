package band

// record.go defines the normalized import record produced by the file
// parsers and consumed by the record processor, plus its structural
// validation rules.
//
// Optional numeric fields are pointer-typed so that "absent" is nil, never
// zero. Required numerics are pointers too: a parser cannot invent a value
// for a missing column, and validation must be able to tell the difference.

import (
	"fmt"
	"strings"
	"time"
)

// ImportRecord is one parsed unit of an import file: a music band together
// with its owned sub-records. It has no lifecycle beyond a single pipeline
// run; it is discarded after persistence or rejection.
type ImportRecord struct {
	Name                 string             `json:"name" xml:"name"`
	Description          string             `json:"description" xml:"description"`
	Genre                string             `json:"genre" xml:"genre"`
	NumberOfParticipants *int64             `json:"numberOfParticipants" xml:"numberOfParticipants"`
	SinglesCount         *int64             `json:"singlesCount" xml:"singlesCount"`
	AlbumsCount          *int64             `json:"albumsCount" xml:"albumsCount"`
	EstablishmentDate    string             `json:"establishmentDate" xml:"establishmentDate"`
	Coordinates          *CoordinatesRecord `json:"coordinates" xml:"coordinates"`
	FrontMan             *PersonRecord      `json:"frontMan" xml:"frontMan"`
	BestAlbum            *AlbumRecord       `json:"bestAlbum" xml:"bestAlbum"`
}

// CoordinatesRecord is the coordinates part of an import record.
type CoordinatesRecord struct {
	X *int64   `json:"x" xml:"x"`
	Y *float64 `json:"y" xml:"y"`
}

// PersonRecord is the front man part of an import record.
type PersonRecord struct {
	Name        string          `json:"name" xml:"name"`
	EyeColor    string          `json:"eyeColor" xml:"eyeColor"`
	HairColor   string          `json:"hairColor" xml:"hairColor"`
	Weight      *float64        `json:"weight" xml:"weight"`
	Nationality string          `json:"nationality" xml:"nationality"`
	Location    *LocationRecord `json:"location" xml:"location"`
}

// LocationRecord is the front man's location part of an import record.
type LocationRecord struct {
	X *int64 `json:"x" xml:"x"`
	Y *int64 `json:"y" xml:"y"`
	Z *int64 `json:"z" xml:"z"`
}

// AlbumRecord is the best album part of an import record.
type AlbumRecord struct {
	Name   string `json:"name" xml:"name"`
	Tracks *int64 `json:"tracks" xml:"tracks"`
	Sales  *int64 `json:"sales" xml:"sales"`
}

// EstablishmentDateLayout is the wire format for establishment dates.
const EstablishmentDateLayout = "2006-01-02"

// FieldError reports a structural validation failure for a single field.
// Field is a dotted path in wire naming, e.g. "frontMan.location.y".
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the record against the structural rules: required fields,
// enum membership, and numeric lower bounds. It returns the first violation
// as a *FieldError, or nil when the record is well-formed.
func (r *ImportRecord) Validate() *FieldError {
	if strings.TrimSpace(r.Name) == "" {
		return &FieldError{"name", "must not be blank"}
	}
	if strings.TrimSpace(r.Description) == "" {
		return &FieldError{"description", "must not be blank"}
	}
	if r.Genre == "" {
		return &FieldError{"genre", "is required"}
	}
	if _, err := ParseMusicGenre(r.Genre); err != nil {
		return &FieldError{"genre", err.Error()}
	}
	if err := requirePositive("numberOfParticipants", r.NumberOfParticipants); err != nil {
		return err
	}
	if err := requirePositive("singlesCount", r.SinglesCount); err != nil {
		return err
	}
	if err := requirePositive("albumsCount", r.AlbumsCount); err != nil {
		return err
	}
	if r.EstablishmentDate == "" {
		return &FieldError{"establishmentDate", "is required"}
	}
	if _, err := time.Parse(EstablishmentDateLayout, r.EstablishmentDate); err != nil {
		return &FieldError{"establishmentDate", fmt.Sprintf("must match %s", EstablishmentDateLayout)}
	}

	if r.Coordinates == nil {
		return &FieldError{"coordinates", "is required"}
	}
	if r.Coordinates.X == nil {
		return &FieldError{"coordinates.x", "is required"}
	}
	if *r.Coordinates.X <= -147 {
		return &FieldError{"coordinates.x", "must be greater than -147"}
	}

	if r.FrontMan == nil {
		return &FieldError{"frontMan", "is required"}
	}
	if err := r.FrontMan.validate(); err != nil {
		return err
	}

	if r.BestAlbum == nil {
		return &FieldError{"bestAlbum", "is required"}
	}
	if err := r.BestAlbum.validate(); err != nil {
		return err
	}

	return nil
}

func (p *PersonRecord) validate() *FieldError {
	if strings.TrimSpace(p.Name) == "" {
		return &FieldError{"frontMan.name", "must not be blank"}
	}
	if p.EyeColor == "" {
		return &FieldError{"frontMan.eyeColor", "is required"}
	}
	if _, err := ParseColor(p.EyeColor); err != nil {
		return &FieldError{"frontMan.eyeColor", err.Error()}
	}
	if p.HairColor == "" {
		return &FieldError{"frontMan.hairColor", "is required"}
	}
	if _, err := ParseColor(p.HairColor); err != nil {
		return &FieldError{"frontMan.hairColor", err.Error()}
	}
	if p.Weight == nil {
		return &FieldError{"frontMan.weight", "is required"}
	}
	if *p.Weight <= 0 {
		return &FieldError{"frontMan.weight", "must be greater than 0"}
	}
	if p.Nationality == "" {
		return &FieldError{"frontMan.nationality", "is required"}
	}
	if _, err := ParseCountry(p.Nationality); err != nil {
		return &FieldError{"frontMan.nationality", err.Error()}
	}
	if p.Location == nil {
		return &FieldError{"frontMan.location", "is required"}
	}
	if p.Location.Y == nil {
		return &FieldError{"frontMan.location.y", "is required"}
	}
	if p.Location.Z == nil {
		return &FieldError{"frontMan.location.z", "is required"}
	}
	return nil
}

func (a *AlbumRecord) validate() *FieldError {
	if strings.TrimSpace(a.Name) == "" {
		return &FieldError{"bestAlbum.name", "must not be blank"}
	}
	if err := requirePositive("bestAlbum.tracks", a.Tracks); err != nil {
		return err
	}
	if a.Sales != nil && *a.Sales <= 0 {
		return &FieldError{"bestAlbum.sales", "must be greater than 0"}
	}
	return nil
}

func requirePositive(field string, v *int64) *FieldError {
	if v == nil {
		return &FieldError{field, "is required"}
	}
	if *v <= 0 {
		return &FieldError{field, "must be greater than 0"}
	}
	return nil
}
