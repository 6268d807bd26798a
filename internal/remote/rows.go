package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Row is one record in the remote mirror. Data holds the snake_case payload.
type Row struct {
	ID        types.ID       `json:"id"`
	Table     string         `json:"table"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RowAccess is the slice of row storage the change feed and the mirror
// consume.
type RowAccess interface {
	Select(ctx context.Context, table string, filters map[string]string) ([]*Row, error)
	Insert(ctx context.Context, table string, data map[string]any) (*Row, error)
	Update(ctx context.Context, table string, id types.ID, patch map[string]any) (*Row, error)
}

// RowStore is collection-style storage over the portal_rows table: select
// with equality filters, insert, update by id.
type RowStore struct {
	pool *pgxpool.Pool
}

var _ RowAccess = (*RowStore)(nil)

// NewRowStore creates a row store on the pool.
func NewRowStore(pool *pgxpool.Pool) *RowStore {
	return &RowStore{pool: pool}
}

func scanRow(r pgx.Row, table string) (*Row, error) {
	var row Row
	var data []byte
	if err := r.Scan(&row.ID, &data, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, err
	}
	row.Table = table
	if err := json.Unmarshal(data, &row.Data); err != nil {
		return nil, fmt.Errorf("corrupt row payload: %w", err)
	}
	return &row, nil
}

// Select returns rows from the named table matching every equality filter,
// oldest update first. Filters compare against top-level JSON keys.
func (s *RowStore) Select(ctx context.Context, table string, filters map[string]string) ([]*Row, error) {
	query := `SELECT id, data, created_at, updated_at FROM portal_rows WHERE table_name = $1`
	args := []any{table}
	for key, value := range filters {
		args = append(args, key, value)
		query += fmt.Sprintf(" AND data->>$%d = $%d", len(args)-1, len(args))
	}
	query += " ORDER BY updated_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select failed")
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var row Row
		var data []byte
		if err := rows.Scan(&row.ID, &data, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "row scan failed")
		}
		row.Table = table
		if err := json.Unmarshal(data, &row.Data); err != nil {
			return nil, errors.Wrap(err, "corrupt row payload")
		}
		out = append(out, &row)
	}
	return out, rows.Err()
}

// Get returns one row by id.
func (s *RowStore) Get(ctx context.Context, table string, id types.ID) (*Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `
		SELECT id, data, created_at, updated_at
		FROM portal_rows
		WHERE table_name = $1 AND id = $2
	`, table, id), table)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound(table, id.String())
		}
		return nil, errors.Wrap(err, "row lookup failed")
	}
	return row, nil
}

// Insert stores a new row and returns it with its generated id.
func (s *RowStore) Insert(ctx context.Context, table string, data map[string]any) (*Row, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode row payload")
	}
	row, err := scanRow(s.pool.QueryRow(ctx, `
		INSERT INTO portal_rows (table_name, data)
		VALUES ($1, $2)
		RETURNING id, data, created_at, updated_at
	`, table, payload), table)
	if err != nil {
		return nil, errors.Wrap(err, "insert failed")
	}
	return row, nil
}

// Update merges the patch into the row's payload and bumps updated_at, which
// is what the change feed polls on. Last-writer-wins.
func (s *RowStore) Update(ctx context.Context, table string, id types.ID, patch map[string]any) (*Row, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode row patch")
	}
	row, err := scanRow(s.pool.QueryRow(ctx, `
		UPDATE portal_rows
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE table_name = $1 AND id = $2
		RETURNING id, data, created_at, updated_at
	`, table, id, payload), table)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound(table, id.String())
		}
		return nil, errors.Wrap(err, "update failed")
	}
	return row, nil
}
