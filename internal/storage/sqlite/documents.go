package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitboard/internal/storage"
)

func (s *Store) ready() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	if s.db == nil {
		return fmt.Errorf("sqlite store not loaded")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (storage.Snapshot, error) {
	if err := s.ready(); err != nil {
		return storage.Snapshot{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := storage.Snapshot{Key: key}
	err = tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE key = ?", key).Scan(&snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read document %s: %w", key, err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT field, value FROM document_fields WHERE doc_key = ?", key)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read fields of %s: %w", key, err)
	}
	defer rows.Close()

	snap.Exists = true
	snap.Data = make(storage.Document)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return storage.Snapshot{}, err
		}
		snap.Data[field] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) Subscribe(ctx context.Context, key string) (<-chan storage.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	wake, remove := s.hub.Add(key)
	return storage.Follow(ctx, key, s.Get, wake, s.poll, s.logger, remove)
}

func (s *Store) MergeWrite(ctx context.Context, key string, fields storage.Document) (int64, error) {
	return s.write(ctx, key, fields, -1)
}

func (s *Store) MergeWriteIf(ctx context.Context, key string, fields storage.Document, version int64) (int64, error) {
	return s.write(ctx, key, fields, version)
}

// write merges fields in one transaction; expected < 0 skips the version check.
func (s *Store) write(ctx context.Context, key string, fields storage.Document, expected int64) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := storage.CheckFields(fields); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	exists := true
	err = tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE key = ?", key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return 0, fmt.Errorf("failed to read document %s: %w", key, err)
	}

	if expected >= 0 && current != expected {
		return 0, storage.ErrVersionConflict
	}

	next := current + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if exists {
		_, err = tx.ExecContext(ctx, "UPDATE documents SET version = ?, updated_at = ? WHERE key = ?", next, now, key)
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO documents (key, version, updated_at) VALUES (?, ?, ?)", key, next, now)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump version of %s: %w", key, err)
	}

	for name, raw := range fields {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_fields (doc_key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(doc_key, field) DO UPDATE SET value = excluded.value
		`, key, name, string(raw))
		if err != nil {
			return 0, fmt.Errorf("failed to write field %q of %s: %w", name, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write to %s: %w", key, err)
	}

	s.hub.Notify(key)
	s.logger.Debug("Merged document fields", "key", key, "version", next, "fields", len(fields))
	return next, nil
}
