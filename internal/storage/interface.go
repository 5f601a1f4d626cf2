// Package storage defines the document store the board stores sync against.
//
// A document is a flat set of named top-level JSON fields. Writes merge the
// named fields into the stored document, leaving other fields untouched, and
// create the document if it does not exist. Every successful write bumps the
// document version by one; an absent document has version 0.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is returned by MergeWriteIf when the stored version moved
	ErrVersionConflict = errors.New("document version conflict")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("document store closed")
	// ErrInvalidField is returned for an empty field name or a value that is not JSON
	ErrInvalidField = errors.New("invalid document field")
)

// Document holds a document's top-level fields as raw JSON.
type Document map[string]json.RawMessage

// Snapshot is the state of one document at a version.
type Snapshot struct {
	Key     string
	Exists  bool
	Data    Document
	Version int64
}

// Field decodes the named field into dst. It reports false, leaving dst
// untouched, when the document or the field is absent or JSON null.
func (s Snapshot) Field(name string, dst any) (bool, error) {
	if !s.Exists {
		return false, nil
	}
	raw, ok := s.Data[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding field %q of %s: %w", name, s.Key, err)
	}
	return true, nil
}

// Fields encodes values into a Document for MergeWrite.
func Fields(values map[string]any) (Document, error) {
	doc := make(Document, len(values))
	for name, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", name, err)
		}
		doc[name] = raw
	}
	return doc, nil
}

// CheckFields validates a write before it reaches a backend.
func CheckFields(fields Document) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to write", ErrInvalidField)
	}
	for name, raw := range fields {
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidField)
		}
		if !json.Valid(raw) {
			return fmt.Errorf("%w: %q is not valid JSON", ErrInvalidField, name)
		}
	}
	return nil
}

// DocumentStore is a key-value document service with live subscriptions.
type DocumentStore interface {
	// Get returns the current snapshot. A missing document is not an error.
	Get(ctx context.Context, key string) (Snapshot, error)

	// Subscribe emits the current snapshot immediately and again after every
	// change, until ctx is done or the store is closed, then closes the
	// channel. Snapshots are full state, so a slow reader only ever sees the
	// latest one; intermediate versions may be skipped.
	Subscribe(ctx context.Context, key string) (<-chan Snapshot, error)

	// MergeWrite shallow-merges fields into the document and returns the new version.
	MergeWrite(ctx context.Context, key string, fields Document) (int64, error)

	// MergeWriteIf is MergeWrite conditioned on the stored version still being
	// version (0 = document must not exist). Returns ErrVersionConflict otherwise.
	MergeWriteIf(ctx context.Context, key string, fields Document, version int64) (int64, error)

	// Close releases the store's resources and ends all subscriptions.
	Close() error
}
