// Package repository implements the import pipeline's persistence ports on
// Postgres via pgx.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bandvault/bandvault/internal/imports"
)

// querier is the intersection of *pgxpool.Pool and pgx.Tx the queries need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists import operations and band entities in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ imports.OperationStore = (*Store)(nil)

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const operationColumns = `id, owner_name, filename, content_type, file_size, status,
	staging_object_key, storage_object_key, created_entities_count,
	error_message, started_at, completed_at`

// CreateOperation inserts a new operation row.
func (s *Store) CreateOperation(ctx context.Context, op *imports.Operation) error {
	return insertOperation(ctx, s.pool, op)
}

// GetOperation loads one operation by id.
func (s *Store) GetOperation(ctx context.Context, id uuid.UUID) (*imports.Operation, error) {
	return getOperation(ctx, s.pool, id)
}

// ListOperations returns one page of operations matching the filter, newest
// first.
func (s *Store) ListOperations(ctx context.Context, f imports.Filter, p imports.Page) (*imports.OperationPage, error) {
	p = p.Normalize()
	where, args := buildFilter(f)

	var total int64
	countQuery := "SELECT count(*) FROM import_operations" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count operations: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM import_operations%s ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d",
		operationColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, p.Size, p.Offset())

	rows, err := s.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	items := make([]imports.Operation, 0, p.Size)
	for rows.Next() {
		var op imports.Operation
		if err := scanOperation(rows, &op); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		items = append(items, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}

	return &imports.OperationPage{
		Items:      items,
		TotalCount: total,
		Number:     p.Number,
		Size:       p.Size,
	}, nil
}

// InTx runs fn inside one database transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx imports.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(pgxTx pgx.Tx) error {
		return fn(&storeTx{q: pgxTx})
	})
}

func insertOperation(ctx context.Context, q querier, op *imports.Operation) error {
	_, err := q.Exec(ctx, `
		INSERT INTO import_operations (`+operationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		op.ID, op.Owner, op.Filename, op.ContentType, op.FileSize, op.Status,
		op.StagingObjectKey, op.StorageObjectKey, op.CreatedEntitiesCount,
		op.ErrorMessage, op.StartedAt, op.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

func getOperation(ctx context.Context, q querier, id uuid.UUID) (*imports.Operation, error) {
	row := q.QueryRow(ctx,
		"SELECT "+operationColumns+" FROM import_operations WHERE id = $1", id)

	var op imports.Operation
	if err := scanOperation(row, &op); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imports.ErrNotFound
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return &op, nil
}

func scanOperation(row pgx.Row, op *imports.Operation) error {
	return row.Scan(
		&op.ID, &op.Owner, &op.Filename, &op.ContentType, &op.FileSize,
		&op.Status, &op.StagingObjectKey, &op.StorageObjectKey,
		&op.CreatedEntitiesCount, &op.ErrorMessage,
		&op.StartedAt, &op.CompletedAt,
	)
}

// buildFilter renders the filter as a WHERE clause with positional args.
func buildFilter(f imports.Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Owner != "" {
		add("owner_name = $%d", f.Owner)
	}
	if f.Filename != "" {
		add("filename ILIKE $%d", "%"+escapeLike(f.Filename)+"%")
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.CreatedCountFrom != nil {
		add("created_entities_count >= $%d", *f.CreatedCountFrom)
	}
	if f.CreatedCountTo != nil {
		add("created_entities_count <= $%d", *f.CreatedCountTo)
	}
	if f.StartedAfter != nil {
		add("started_at >= $%d", *f.StartedAfter)
	}
	if f.StartedBefore != nil {
		add("started_at <= $%d", *f.StartedBefore)
	}
	if f.CompletedAfter != nil {
		add("completed_at >= $%d", *f.CompletedAfter)
	}
	if f.CompletedBefore != nil {
		add("completed_at <= $%d", *f.CompletedBefore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
