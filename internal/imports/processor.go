package imports

// processor.go validates and persists one batch of normalized records.
//
// Processing is fail-fast and whole-batch: the first validation or
// persistence failure aborts the entire batch, and the caller's transaction
// rolls everything back. Callers never observe a half-imported file. For
// very large files this means one bad row invalidates all prior work in the
// run; that tradeoff is accepted for consistency.

import (
	"context"
	"strings"
	"time"

	"github.com/bandvault/bandvault/internal/band"
)

// Processor persists parsed import records into the band entity graph.
type Processor struct{}

// NewProcessor returns a Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process validates all records, then persists each record's entities in
// dependency order, returning the created band ids in file order.
//
// Validation covers structural field rules plus band-name uniqueness, both
// within the batch and against already-persisted bands. Record indexes in
// errors are 1-based.
func (p *Processor) Process(ctx context.Context, w EntityWriter, records []band.ImportRecord, owner string) ([]int64, error) {
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, &ValidationError{Record: i + 1, Field: err.Field, Message: err.Message}
		}

		name := strings.TrimSpace(rec.Name)
		if _, dup := seen[name]; dup {
			return nil, &ValidationError{
				Record:  i + 1,
				Field:   "name",
				Message: "duplicates another record in this file",
			}
		}
		exists, err := w.BandNameExists(ctx, name)
		if err != nil {
			return nil, &PersistenceError{Err: err}
		}
		if exists {
			return nil, &ValidationError{
				Record:  i + 1,
				Field:   "name",
				Message: "already exists",
			}
		}
		seen[name] = struct{}{}
	}

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id, err := p.persist(ctx, w, rec, owner)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// persist writes one record's entity graph: location first, then the person
// referencing it, then coordinates and album, and finally the band holding
// all the foreign keys. Every row is created fresh; identical sub-record
// values across rows are not deduplicated.
func (p *Processor) persist(ctx context.Context, w EntityWriter, rec band.ImportRecord, owner string) (int64, error) {
	loc := &band.Location{
		X: rec.FrontMan.Location.X,
		Y: *rec.FrontMan.Location.Y,
		Z: *rec.FrontMan.Location.Z,
	}
	if err := w.CreateLocation(ctx, loc); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	frontMan := &band.Person{
		Name:        strings.TrimSpace(rec.FrontMan.Name),
		EyeColor:    band.Color(rec.FrontMan.EyeColor),
		HairColor:   band.Color(rec.FrontMan.HairColor),
		LocationID:  loc.ID,
		Weight:      *rec.FrontMan.Weight,
		Nationality: band.Country(rec.FrontMan.Nationality),
	}
	if err := w.CreatePerson(ctx, frontMan); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	coords := &band.Coordinates{
		X: *rec.Coordinates.X,
		Y: rec.Coordinates.Y,
	}
	if err := w.CreateCoordinates(ctx, coords); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	album := &band.Album{
		Name:   strings.TrimSpace(rec.BestAlbum.Name),
		Tracks: *rec.BestAlbum.Tracks,
		Sales:  rec.BestAlbum.Sales,
	}
	if err := w.CreateAlbum(ctx, album); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	established, _ := time.Parse(band.EstablishmentDateLayout, rec.EstablishmentDate)
	b := &band.MusicBand{
		Name:                 strings.TrimSpace(rec.Name),
		CoordinatesID:        coords.ID,
		Genre:                band.MusicGenre(rec.Genre),
		NumberOfParticipants: *rec.NumberOfParticipants,
		SinglesCount:         *rec.SinglesCount,
		Description:          strings.TrimSpace(rec.Description),
		BestAlbumID:          album.ID,
		AlbumsCount:          *rec.AlbumsCount,
		EstablishmentDate:    established,
		FrontManID:           frontMan.ID,
		CreatedBy:            owner,
	}
	if err := w.CreateBand(ctx, b); err != nil {
		return 0, &PersistenceError{Err: err}
	}

	return b.ID, nil
}
