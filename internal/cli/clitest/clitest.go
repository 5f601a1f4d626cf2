// Package clitest runs CLI commands against an in-memory document store.
package clitest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage/memory"
)

// Now is the clock every command sees: Wednesday of 2026-W05.
var Now = time.Date(2026, time.January, 28, 9, 30, 0, 0, time.Local)

// Command is any kong command.
type Command interface {
	Run(ctx *cli.Context) error
}

// Env is a document store shared by successive command invocations, each of
// which gets a fresh Context the way separate processes would.
type Env struct {
	Store *memory.Store
	User  string
}

// New returns an Env signed in as "tester".
func New(t *testing.T) *Env {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })
	return &Env{Store: store, User: "tester"}
}

// Context builds a Context writing to the returned buffer.
func (e *Env) Context() (*cli.Context, *bytes.Buffer) {
	var out bytes.Buffer
	return &cli.Context{
		Store:   sharedBackend{e.Store},
		Session: identity.NewSession(e.User),
		Out:     &out,
		Now:     func() time.Time { return Now },
	}, &out
}

// Run executes cmd in a fresh Context and returns its output.
func (e *Env) Run(t *testing.T, cmd Command) (string, error) {
	t.Helper()
	ctx, out := e.Context()
	err := cmd.Run(ctx)
	if cerr := ctx.Close(); cerr != nil {
		t.Errorf("closing context: %v", cerr)
	}
	return out.String(), err
}

// MustRun is Run that fails the test on error.
func (e *Env) MustRun(t *testing.T, cmd Command) string {
	t.Helper()
	out, err := e.Run(t, cmd)
	if err != nil {
		t.Fatalf("%T failed: %v\noutput:\n%s", cmd, err, out)
	}
	return out
}

// Habits reads the stored habit list.
func (e *Env) Habits(t *testing.T) []models.Habit {
	t.Helper()
	var habits []models.Habit
	e.field(t, constants.FieldHabits, &habits)
	return habits
}

// Completions reads the stored completion map.
func (e *Env) Completions(t *testing.T) models.Completions {
	t.Helper()
	completions := models.Completions{}
	e.field(t, constants.FieldCompletions, &completions)
	return completions
}

func (e *Env) field(t *testing.T, name string, dst any) {
	t.Helper()
	snap, err := e.Store.Get(context.Background(), constants.UserDocumentKey(e.User))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := snap.Field(name, dst); err != nil {
		t.Fatalf("decoding %s: %v", name, err)
	}
}

// sharedBackend outlives each Context; the Env's cleanup closes the store.
type sharedBackend struct {
	*memory.Store
}

func (b sharedBackend) Init() error           { return nil }
func (b sharedBackend) Load() error           { return nil }
func (b sharedBackend) GetConfigPath() string { return "memory:" }
func (b sharedBackend) Close() error          { return nil }
