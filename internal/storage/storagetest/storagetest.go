// Package storagetest is a behavioral test suite shared by every
// storage.DocumentStore backend.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/habitboard/internal/storage"
)

// Timeout bounds every wait for a subscription snapshot. Polling backends
// need it to cover at least one poll interval.
var Timeout = 5 * time.Second

// Run exercises newStore against the DocumentStore contract. Each subtest
// gets a fresh store and is responsible for nothing else.
func Run(t *testing.T, newStore func(t *testing.T) storage.DocumentStore) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.DocumentStore)
	}{
		{"GetMissing", testGetMissing},
		{"MergeWriteCreates", testMergeWriteCreates},
		{"MergeWriteIsShallow", testMergeWriteIsShallow},
		{"MergeWriteIf", testMergeWriteIf},
		{"RejectsInvalidFields", testRejectsInvalidFields},
		{"SubscribeInitialAndChanges", testSubscribeInitialAndChanges},
		{"SubscribeIsolatesKeys", testSubscribeIsolatesKeys},
		{"SubscribeEndsWithContext", testSubscribeEndsWithContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), Timeout)
	t.Cleanup(cancel)
	return c
}

func doc(t *testing.T, values map[string]any) storage.Document {
	t.Helper()
	d, err := storage.Fields(values)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	return d
}

// fieldEquals compares decoded JSON so backends that normalize whitespace or
// key order (jsonb) still pass.
func fieldEquals(t *testing.T, snap storage.Snapshot, name string, want any) {
	t.Helper()
	raw, ok := snap.Data[name]
	if !ok {
		t.Fatalf("field %q missing from %v", name, snap.Data)
	}
	var got any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("field %q: %v", name, err)
	}
	wantRaw, _ := json.Marshal(want)
	var wantVal any
	_ = json.Unmarshal(wantRaw, &wantVal)
	if !reflect.DeepEqual(got, wantVal) {
		t.Errorf("field %q = %s, want %s", name, raw, wantRaw)
	}
}

// Next waits for the next snapshot on ch.
func Next(t *testing.T, ch <-chan storage.Snapshot) storage.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for snapshot")
	}
	return storage.Snapshot{}
}

// NextVersion skips snapshots until one reaches at least version.
func NextVersion(t *testing.T, ch <-chan storage.Snapshot, version int64) storage.Snapshot {
	t.Helper()
	for {
		snap := Next(t, ch)
		if snap.Version >= version {
			return snap
		}
	}
}

func testGetMissing(t *testing.T, s storage.DocumentStore) {
	snap, err := s.Get(ctx(t), "users/nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Exists || snap.Version != 0 || len(snap.Data) != 0 {
		t.Errorf("missing document = %+v", snap)
	}
}

func testMergeWriteCreates(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	v, err := s.MergeWrite(c, "users/u1", doc(t, map[string]any{"habits": []string{"h1"}}))
	if err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	if v != 1 {
		t.Errorf("first write version = %d, want 1", v)
	}

	snap, err := s.Get(c, "users/u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !snap.Exists || snap.Version != 1 || snap.Key != "users/u1" {
		t.Errorf("snapshot = %+v", snap)
	}
	fieldEquals(t, snap, "habits", []string{"h1"})
}

func testMergeWriteIsShallow(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	if _, err := s.MergeWrite(c, "users/u1", doc(t, map[string]any{
		"habits":      []string{"h1"},
		"completions": map[string]any{"2024-W01": map[string]any{}},
	})); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	v, err := s.MergeWrite(c, "users/u1", doc(t, map[string]any{"habits": []string{"h1", "h2"}}))
	if err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	if v != 2 {
		t.Errorf("second write version = %d, want 2", v)
	}

	snap, err := s.Get(c, "users/u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	fieldEquals(t, snap, "habits", []string{"h1", "h2"})
	fieldEquals(t, snap, "completions", map[string]any{"2024-W01": map[string]any{}})
}

func testMergeWriteIf(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	fields := doc(t, map[string]any{"habits": []string{}})

	if _, err := s.MergeWriteIf(c, "users/u1", fields, 3); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("write against a missing document at version 3: %v, want conflict", err)
	}

	v, err := s.MergeWriteIf(c, "users/u1", fields, 0)
	if err != nil || v != 1 {
		t.Fatalf("create with expected version 0 = %d, %v", v, err)
	}
	if _, err := s.MergeWriteIf(c, "users/u1", fields, 0); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("second create: %v, want conflict", err)
	}

	v, err = s.MergeWriteIf(c, "users/u1", doc(t, map[string]any{"habits": []string{"h1"}}), 1)
	if err != nil || v != 2 {
		t.Fatalf("write at current version = %d, %v", v, err)
	}
	if _, err := s.MergeWriteIf(c, "users/u1", fields, 1); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale write: %v, want conflict", err)
	}

	snap, err := s.Get(c, "users/u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Version != 2 {
		t.Errorf("version after rejected write = %d, want 2", snap.Version)
	}
	fieldEquals(t, snap, "habits", []string{"h1"})
}

func testRejectsInvalidFields(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	bad := storage.Document{"habits": json.RawMessage(`{not json`)}
	if _, err := s.MergeWrite(c, "users/u1", bad); !errors.Is(err, storage.ErrInvalidField) {
		t.Errorf("MergeWrite(invalid) = %v, want ErrInvalidField", err)
	}
	snap, err := s.Get(c, "users/u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Exists {
		t.Error("rejected write must not create the document")
	}
}

func testSubscribeInitialAndChanges(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	ch, err := s.Subscribe(c, "users/u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	first := Next(t, ch)
	if first.Exists {
		t.Errorf("initial snapshot of a missing document = %+v", first)
	}

	if _, err := s.MergeWrite(c, "users/u1", doc(t, map[string]any{"habits": []string{"h1"}})); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	snap := NextVersion(t, ch, 1)
	if !snap.Exists {
		t.Fatal("expected the written document")
	}
	fieldEquals(t, snap, "habits", []string{"h1"})

	if _, err := s.MergeWrite(c, "users/u1", doc(t, map[string]any{"completions": map[string]any{}})); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	snap = NextVersion(t, ch, 2)
	fieldEquals(t, snap, "habits", []string{"h1"})
	fieldEquals(t, snap, "completions", map[string]any{})
}

func testSubscribeIsolatesKeys(t *testing.T, s storage.DocumentStore) {
	c := ctx(t)
	ch, err := s.Subscribe(c, "users/a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	Next(t, ch)

	if _, err := s.MergeWrite(c, "users/b", doc(t, map[string]any{"habits": []string{"b"}})); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	if _, err := s.MergeWrite(c, "users/a", doc(t, map[string]any{"habits": []string{"a"}})); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}

	snap := NextVersion(t, ch, 1)
	if snap.Key != "users/a" {
		t.Errorf("snapshot key = %q, want users/a", snap.Key)
	}
	fieldEquals(t, snap, "habits", []string{"a"})
}

func testSubscribeEndsWithContext(t *testing.T, s storage.DocumentStore) {
	c, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(c, "users/u1")
	if err != nil {
		cancel()
		t.Fatalf("Subscribe: %v", err)
	}
	Next(t, ch)
	cancel()

	deadline := time.After(Timeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription did not close after cancel")
		}
	}
}
