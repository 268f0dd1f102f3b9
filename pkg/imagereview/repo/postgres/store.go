// Package postgres provides a PostgreSQL implementation of the
// imagereview.RecordStore interface.
//
// Expected schema:
//
//	CREATE TABLE image_record (
//	    id          TEXT PRIMARY KEY,
//	    created_at  TEXT,
//	    caption     TEXT,
//	    image_date  TEXT,
//	    image_name  TEXT,
//	    status      TEXT,
//	    reason      TEXT,
//	    reviewed_at TEXT
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/image-review/pkg/imagereview"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// columns whitelists the field-to-column mapping. Fields outside this map
// never reach SQL text.
var columns = map[imagereview.RecordField]string{
	imagereview.FieldCaption:    "caption",
	imagereview.FieldDate:       "image_date",
	imagereview.FieldName:       "image_name",
	imagereview.FieldStatus:     "status",
	imagereview.FieldReason:     "reason",
	imagereview.FieldReviewedAt: "reviewed_at",
}

// Store implements imagereview.RecordStore using PostgreSQL.
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL record store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL record store with a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Put writes a record unconditionally. Only id and created_at are written;
// an existing record keeps its other fields, matching the unconditional put
// of a fresh, otherwise-empty record.
func (s *Store) Put(ctx context.Context, record *imagereview.ImageRecord) error {
	query := `
		INSERT INTO image_record (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET created_at = EXCLUDED.created_at`

	if _, err := s.db.Exec(ctx, query, record.ID, record.CreatedAt); err != nil {
		return fmt.Errorf("failed to put record %s: %w", record.ID, err)
	}
	return nil
}

// UpdateFields sets the named fields in one statement, creating the record
// when it is absent so updates never race record creation.
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[imagereview.RecordField]string) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]imagereview.RecordField, 0, len(fields))
	for field := range fields {
		if _, ok := columns[field]; !ok {
			return fmt.Errorf("unknown record field %q", string(field))
		}
		names = append(names, field)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	cols := make([]string, 0, len(names))
	placeholders := make([]string, 0, len(names))
	sets := make([]string, 0, len(names))
	args := []interface{}{id}
	for i, field := range names {
		col := columns[field]
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		args = append(args, fields[field])
	}

	query := fmt.Sprintf(`
		INSERT INTO image_record (id, %s)
		VALUES ($1, %s)
		ON CONFLICT (id) DO UPDATE SET %s`,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ", "))

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*imagereview.ImageRecord, error) {
	query := `
		SELECT id, COALESCE(created_at, ''), COALESCE(caption, ''),
		       COALESCE(image_date, ''), COALESCE(image_name, ''),
		       COALESCE(status, ''), COALESCE(reason, ''), COALESCE(reviewed_at, '')
		FROM image_record
		WHERE id = $1`

	var record imagereview.ImageRecord
	var status string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.CreatedAt, &record.Caption,
		&record.Date, &record.Name,
		&status, &record.Reason, &record.ReviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, imagereview.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	record.Status = imagereview.ReviewStatus(status)
	return &record, nil
}
