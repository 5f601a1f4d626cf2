package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/storage"
)

const (
	upsertSQL = `
		INSERT INTO documents (key, data, version, updated_at) VALUES ($1, $2::jsonb, 1, now())
		ON CONFLICT (key) DO UPDATE
		SET data = documents.data || EXCLUDED.data, version = documents.version + 1, updated_at = now()
		RETURNING version`
	createSQL = `
		INSERT INTO documents (key, data, version, updated_at) VALUES ($1, $2::jsonb, 1, now())
		ON CONFLICT (key) DO NOTHING
		RETURNING version`
	updateIfSQL = `
		UPDATE documents SET data = data || $2::jsonb, version = version + 1, updated_at = now()
		WHERE key = $1 AND version = $3
		RETURNING version`
)

func (s *Store) ready() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	if s.db == nil {
		return fmt.Errorf("postgres store not loaded")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (storage.Snapshot, error) {
	if err := s.ready(); err != nil {
		return storage.Snapshot{}, err
	}

	snap := storage.Snapshot{Key: key}
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data, version FROM documents WHERE key = $1", key).Scan(&data, &snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to read document %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &snap.Data); err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to decode document %s: %w", key, err)
	}
	if snap.Data == nil {
		snap.Data = make(storage.Document)
	}
	snap.Exists = true
	return snap, nil
}

func (s *Store) Subscribe(ctx context.Context, key string) (<-chan storage.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.startListener(); err != nil {
		return nil, err
	}
	wake, remove := s.hub.Add(key)
	return storage.Follow(ctx, key, s.Get, wake, 0, s.logger, remove)
}

// startListener opens the shared LISTEN connection on first use and relays
// notifications into the fanout.
func (s *Store) startListener() error {
	s.listenOnce.Do(func() {
		l := pq.NewListener(s.connStr, 100*time.Millisecond, 10*time.Second, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("Postgres listener event", "event", ev, "error", err)
			}
		})
		if err := l.Listen(constants.PostgresNotifyChannel); err != nil {
			_ = l.Close()
			s.listenErr = fmt.Errorf("failed to listen on %s: %w", constants.PostgresNotifyChannel, err)
			return
		}
		s.listener = l

		go func() {
			for n := range l.Notify {
				if n == nil {
					// Reconnected; anything may have changed meanwhile.
					s.hub.NotifyAll()
					continue
				}
				s.hub.Notify(n.Extra)
			}
		}()
	})
	return s.listenErr
}

func (s *Store) MergeWrite(ctx context.Context, key string, fields storage.Document) (int64, error) {
	return s.write(ctx, key, fields, -1)
}

func (s *Store) MergeWriteIf(ctx context.Context, key string, fields storage.Document, version int64) (int64, error) {
	return s.write(ctx, key, fields, version)
}

// write merges fields with the jsonb || operator; expected < 0 skips the version check.
func (s *Store) write(ctx context.Context, key string, fields storage.Document, expected int64) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := storage.CheckFields(fields); err != nil {
		return 0, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("failed to encode fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row *sql.Row
	switch {
	case expected < 0:
		row = tx.QueryRowContext(ctx, upsertSQL, key, string(data))
	case expected == 0:
		row = tx.QueryRowContext(ctx, createSQL, key, string(data))
	default:
		row = tx.QueryRowContext(ctx, updateIfSQL, key, string(data), expected)
	}

	var version int64
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrVersionConflict
		}
		return 0, fmt.Errorf("failed to write document %s: %w", key, err)
	}

	// Delivered to listeners only once the transaction commits
	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", constants.PostgresNotifyChannel, key); err != nil {
		return 0, fmt.Errorf("failed to notify change of %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write to %s: %w", key, err)
	}

	s.hub.Notify(key)
	s.logger.Debug("Merged document fields", "key", key, "version", version, "fields", len(fields))
	return version, nil
}
