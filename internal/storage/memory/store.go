// Package memory is an in-process storage.DocumentStore, used for tests and
// for running the board without any database.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/storage"
)

type document struct {
	fields  storage.Document
	version int64
}

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*document
	hub    *storage.Fanout
	logger *log.Logger
	closed bool
}

var _ storage.DocumentStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		docs:   make(map[string]*document),
		hub:    storage.NewFanout(),
		logger: logger.With("store", "memory"),
	}
}

func (s *Store) Get(ctx context.Context, key string) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.Snapshot{}, storage.ErrClosed
	}

	d, ok := s.docs[key]
	if !ok {
		return storage.Snapshot{Key: key}, nil
	}
	return storage.Snapshot{
		Key:     key,
		Exists:  true,
		Data:    copyFields(d.fields),
		Version: d.version,
	}, nil
}

func (s *Store) Subscribe(ctx context.Context, key string) (<-chan storage.Snapshot, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, storage.ErrClosed
	}

	wake, remove := s.hub.Add(key)
	return storage.Follow(ctx, key, s.Get, wake, 0, s.logger, remove)
}

func (s *Store) MergeWrite(ctx context.Context, key string, fields storage.Document) (int64, error) {
	return s.write(ctx, key, fields, -1)
}

func (s *Store) MergeWriteIf(ctx context.Context, key string, fields storage.Document, version int64) (int64, error) {
	return s.write(ctx, key, fields, version)
}

// write merges fields; expected < 0 skips the version check.
func (s *Store) write(ctx context.Context, key string, fields storage.Document, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := storage.CheckFields(fields); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, storage.ErrClosed
	}

	d, ok := s.docs[key]
	var current int64
	if ok {
		current = d.version
	}
	if expected >= 0 && current != expected {
		s.mu.Unlock()
		return 0, storage.ErrVersionConflict
	}
	if !ok {
		d = &document{fields: make(storage.Document)}
		s.docs[key] = d
	}
	for name, raw := range fields {
		d.fields[name] = append(json.RawMessage(nil), raw...)
	}
	d.version++
	version := d.version
	s.mu.Unlock()

	s.hub.Notify(key)
	s.logger.Debug("Merged document fields", "key", key, "version", version, "fields", len(fields))
	return version, nil
}

// Close ends every subscription. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

func copyFields(in storage.Document) storage.Document {
	out := make(storage.Document, len(in))
	for name, raw := range in {
		out[name] = append(json.RawMessage(nil), raw...)
	}
	return out
}
