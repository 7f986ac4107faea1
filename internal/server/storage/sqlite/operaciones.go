package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/XavierGuerrero1989/sistema-impo/internal/server/storage"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

// MergeOperacion накладывает data поверх сохраненного документа или создает новый.
// Ключи, отсутствующие в data, сохраняются. updated_at = max(now, prev+1).
func (s *Storage) MergeOperacion(ctx context.Context, id string, data map[string]any, userID string, now int64) (*api.OperacionDocument, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	doc, err := scanOperacion(tx.QueryRowContext(ctx, `
		SELECT id, data, updated_by, created_at, updated_at
		FROM operaciones
		WHERE id = ?
	`, id))
	switch {
	case errors.Is(err, storage.ErrOperacionNotFound):
		doc = &api.OperacionDocument{ID: id, Data: map[string]any{}, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	maps.Copy(doc.Data, data)
	doc.UpdatedBy = userID
	doc.UpdatedAt = max(now, doc.UpdatedAt+1)

	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operacion data: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operaciones (id, data, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`, doc.ID, string(raw), doc.UpdatedBy, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save operacion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return doc, nil
}

// GetOperacion retrieves a document by id
func (s *Storage) GetOperacion(ctx context.Context, id string) (*api.OperacionDocument, error) {
	return scanOperacion(s.db.QueryRowContext(ctx, `
		SELECT id, data, updated_by, created_at, updated_at
		FROM operaciones
		WHERE id = ?
	`, id))
}

// ListOperaciones returns every document ordered by id
func (s *Storage) ListOperaciones(ctx context.Context) ([]api.OperacionDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, updated_by, created_at, updated_at
		FROM operaciones
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query operaciones: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []api.OperacionDocument{}
	for rows.Next() {
		doc, err := scanOperacion(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return docs, nil
}

// DeleteOperacion removes the document
func (s *Storage) DeleteOperacion(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM operaciones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete operacion: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrOperacionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperacion(row rowScanner) (*api.OperacionDocument, error) {
	doc := &api.OperacionDocument{}
	var raw string

	err := row.Scan(&doc.ID, &raw, &doc.UpdatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrOperacionNotFound
		}
		return nil, fmt.Errorf("failed to scan operacion: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to decode operacion %s: %w", doc.ID, err)
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}

	return doc, nil
}
