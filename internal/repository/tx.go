package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/band"
	"github.com/bandvault/bandvault/internal/imports"
)

// storeTx is the transactional view handed to imports.OperationStore.InTx
// callbacks. All queries run on the enclosing pgx transaction.
type storeTx struct {
	q querier
}

var _ imports.Tx = (*storeTx)(nil)

func (t *storeTx) GetOperation(ctx context.Context, id uuid.UUID) (*imports.Operation, error) {
	return getOperation(ctx, t.q, id)
}

func (t *storeTx) UpdateOperation(ctx context.Context, op *imports.Operation) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE import_operations SET
			status = $2,
			staging_object_key = $3,
			storage_object_key = $4,
			created_entities_count = $5,
			error_message = $6,
			completed_at = $7
		WHERE id = $1`,
		op.ID, op.Status, op.StagingObjectKey, op.StorageObjectKey,
		op.CreatedEntitiesCount, op.ErrorMessage, op.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return imports.ErrNotFound
	}
	return nil
}

func (t *storeTx) BandNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM music_bands WHERE name = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check band name: %w", err)
	}
	return exists, nil
}

func (t *storeTx) CreateLocation(ctx context.Context, l *band.Location) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO locations (x, y, z)
		VALUES ($1, $2, $3)
		RETURNING id`,
		l.X, l.Y, l.Z,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (t *storeTx) CreatePerson(ctx context.Context, p *band.Person) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO persons (name, eye_color, hair_color, location_id, weight, nationality)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.Name, p.EyeColor, p.HairColor, p.LocationID, p.Weight, p.Nationality,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (t *storeTx) CreateCoordinates(ctx context.Context, c *band.Coordinates) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO coordinates (x, y)
		VALUES ($1, $2)
		RETURNING id`,
		c.X, c.Y,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert coordinates: %w", err)
	}
	return nil
}

func (t *storeTx) CreateAlbum(ctx context.Context, a *band.Album) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO albums (name, tracks, sales)
		VALUES ($1, $2, $3)
		RETURNING id`,
		a.Name, a.Tracks, a.Sales,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

func (t *storeTx) CreateBand(ctx context.Context, b *band.MusicBand) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO music_bands (
			name, coordinates_id, genre, number_of_participants, singles_count,
			description, best_album_id, albums_count, establishment_date,
			front_man_id, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		b.Name, b.CoordinatesID, b.Genre, b.NumberOfParticipants,
		b.SinglesCount, b.Description, b.BestAlbumID, b.AlbumsCount,
		b.EstablishmentDate, b.FrontManID, b.CreatedBy,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert band: %w", err)
	}
	return nil
}
