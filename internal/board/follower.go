package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/storage"
)

var (
	// ErrNotStarted is returned by WaitSynced before Start.
	ErrNotStarted = errors.New("board store not started")
	// ErrUndecodableField is returned by mutations while the stored field
	// cannot be decoded. Nothing is written until the field is repaired.
	ErrUndecodableField = errors.New("stored board data could not be decoded")
)

func defaultLogger(component string) *log.Logger {
	return logger.With("component", component)
}

// follower mirrors one top-level field of the signed-in user's document.
type follower[T any] struct {
	store    storage.DocumentStore
	identity identity.Provider
	field    string
	empty    func() T
	opts     options
	logger   *log.Logger

	mu      sync.RWMutex
	userID  string
	state   State
	value     T
	decodeErr error
	version   int64
	synced    chan struct{}

	listenMu  sync.Mutex
	listeners []func()

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func newFollower[T any](store storage.DocumentStore, id identity.Provider, field string, empty func() T, opts options) *follower[T] {
	f := &follower[T]{
		store:     store,
		identity:  id,
		field:     field,
		empty:     empty,
		opts:      opts,
		logger:    opts.logger,
		value:     empty(),
		synced:    make(chan struct{}),
		listeners: append([]func(){}, opts.onChange...),
	}
	return f
}

// OnChange registers fn to run after every local state replacement. It runs
// on the sync goroutine and must not block.
func (f *follower[T]) OnChange(fn func()) {
	f.listenMu.Lock()
	defer f.listenMu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *follower[T]) notify() {
	f.listenMu.Lock()
	listeners := append([]func(){}, f.listeners...)
	f.listenMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// State returns the store's lifecycle state.
func (f *follower[T]) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// UserID returns the user whose document the store follows, or "".
func (f *follower[T]) UserID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.userID
}

// Err returns the decode error of the last applied snapshot, or nil.
func (f *follower[T]) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decodeErr
}

// Version returns the document version of the last applied snapshot.
func (f *follower[T]) Version() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

func (f *follower[T]) read() (T, State) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, f.state
}

// Start follows the identity provider until ctx is done or Close is called.
func (f *follower[T]) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		f.mu.Lock()
		f.cancel = cancel
		f.done = make(chan struct{})
		f.mu.Unlock()

		watch, stop := f.identity.Watch()
		go f.run(ctx, watch, stop)
	})
}

// Close stops syncing and waits for the sync goroutine to exit.
func (f *follower[T]) Close() {
	f.mu.RLock()
	cancel, done := f.cancel, f.done
	f.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// WaitSynced blocks until the first snapshot for the current user is applied.
// It returns immediately when no user is signed in.
func (f *follower[T]) WaitSynced(ctx context.Context) error {
	for {
		f.mu.RLock()
		started := f.done != nil
		state, synced, done := f.state, f.synced, f.done
		f.mu.RUnlock()

		if !started {
			return ErrNotStarted
		}
		if state == StateSynced {
			return nil
		}
		if state == StateUnauthenticated {
			if _, ok := f.identity.Current(); !ok {
				return nil
			}
		}

		select {
		case <-synced:
		case <-done:
			return ErrNotStarted
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (f *follower[T]) run(ctx context.Context, watch <-chan string, stopWatch func()) {
	defer close(f.done)
	defer stopWatch()

	var (
		subCancel context.CancelFunc
		snaps     <-chan storage.Snapshot
		retry     <-chan time.Time
		current   string
	)
	unsubscribe := func() {
		if subCancel != nil {
			subCancel()
			subCancel = nil
		}
		snaps = nil
		retry = nil
	}
	subscribe := func(userID string) {
		unsubscribe()
		subCtx, cancel := context.WithCancel(ctx)
		ch, err := f.store.Subscribe(subCtx, constants.UserDocumentKey(userID))
		if err != nil {
			cancel()
			f.logger.Error("Failed to subscribe to user document", "user", userID, "error", err)
			retry = time.After(f.opts.resubscribe)
			return
		}
		subCancel = cancel
		snaps = ch
	}
	switchUser := func(userID string) {
		if userID == current && (snaps != nil || retry != nil) {
			return
		}
		current = userID
		unsubscribe()
		if userID == "" {
			f.reset("", StateUnauthenticated)
			return
		}
		f.reset(userID, StateLoading)
		subscribe(userID)
	}

	initial, _ := f.identity.Current()
	switchUser(initial)

	for {
		select {
		case <-ctx.Done():
			unsubscribe()
			return
		case userID, ok := <-watch:
			if !ok {
				unsubscribe()
				return
			}
			switchUser(userID)
		case snap, ok := <-snaps:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				f.logger.Warn("User document subscription ended, resubscribing", "user", current)
				unsubscribe()
				retry = time.After(f.opts.resubscribe)
				continue
			}
			f.apply(current, snap)
		case <-retry:
			retry = nil
			if current != "" {
				subscribe(current)
			}
		}
	}
}

// reset drops local state for a user switch.
func (f *follower[T]) reset(userID string, state State) {
	f.mu.Lock()
	f.userID = userID
	f.state = state
	f.value = f.empty()
	f.decodeErr = nil
	f.version = 0
	select {
	case <-f.synced:
		f.synced = make(chan struct{})
	default:
	}
	f.mu.Unlock()

	f.logger.Debug("Board store reset", "field", f.field, "user", userID, "state", state)
	f.notify()
}

// apply replaces local state with the snapshot's field.
func (f *follower[T]) apply(userID string, snap storage.Snapshot) {
	value, err := f.decode(snap)
	if err != nil {
		f.logger.Warn("Stored field is undecodable; showing it empty and refusing writes",
			"key", snap.Key, "field", f.field, "error", err)
	}

	f.mu.Lock()
	if f.userID != userID {
		f.mu.Unlock()
		return
	}
	f.value = value
	f.decodeErr = err
	f.version = snap.Version
	f.state = StateSynced
	select {
	case <-f.synced:
	default:
		close(f.synced)
	}
	f.mu.Unlock()

	f.logger.Debug("Applied snapshot", "field", f.field, "user", userID, "version", snap.Version)
	f.notify()
}

// decode reads the field from snap. An absent field is empty; an undecodable
// one is empty plus an ErrUndecodableField error.
func (f *follower[T]) decode(snap storage.Snapshot) (T, error) {
	value := f.empty()
	ok, err := snap.Field(f.field, &value)
	if err != nil {
		return f.empty(), fmt.Errorf("%w: %w", ErrUndecodableField, err)
	}
	if !ok {
		return f.empty(), nil
	}
	return value, nil
}

// mutate computes the next field value with next and persists it. next
// reports false when nothing changes, in which case nothing is written. With
// no signed-in user mutate is a no-op. A field that failed to decode is never
// used as a base.
func (f *follower[T]) mutate(ctx context.Context, next func(base T) (T, bool, error)) error {
	f.mu.RLock()
	userID, base, state, decodeErr := f.userID, f.value, f.state, f.decodeErr
	f.mu.RUnlock()

	if userID == "" {
		f.logger.Debug("Ignoring mutation while signed out", "field", f.field)
		return nil
	}
	key := constants.UserDocumentKey(userID)

	if f.opts.retries > 0 {
		return f.mutateOptimistic(ctx, key, next)
	}

	if state != StateSynced {
		// No snapshot yet; base the change on the server's copy rather than
		// on an empty placeholder.
		snap, err := f.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if base, err = f.decode(snap); err != nil {
			return err
		}
	} else if decodeErr != nil {
		return decodeErr
	}

	value, changed, err := next(base)
	if err != nil || !changed {
		return err
	}
	return f.write(ctx, key, value, -1)
}

func (f *follower[T]) mutateOptimistic(ctx context.Context, key string, next func(T) (T, bool, error)) error {
	for attempt := 0; ; attempt++ {
		snap, err := f.store.Get(ctx, key)
		if err != nil {
			return err
		}
		base, err := f.decode(snap)
		if err != nil {
			return err
		}
		value, changed, err := next(base)
		if err != nil || !changed {
			return err
		}

		err = f.write(ctx, key, value, snap.Version)
		if !errors.Is(err, storage.ErrVersionConflict) || attempt >= f.opts.retries {
			return err
		}
		f.logger.Debug("Version conflict, retrying", "key", key, "field", f.field, "attempt", attempt+1)
	}
}

// write merges the field; expected < 0 writes unconditionally.
func (f *follower[T]) write(ctx context.Context, key string, value T, expected int64) error {
	fields, err := storage.Fields(map[string]any{f.field: value})
	if err != nil {
		return err
	}
	if expected < 0 {
		_, err = f.store.MergeWrite(ctx, key, fields)
	} else {
		_, err = f.store.MergeWriteIf(ctx, key, fields, expected)
	}
	if err != nil {
		f.logger.Warn("Failed to write document field", "key", key, "field", f.field, "error", err)
	}
	return err
}
