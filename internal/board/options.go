// Package board keeps a signed-in user's habits and weekly completions in
// sync with their document in a storage.DocumentStore.
//
// Each store follows the identity provider: signing out resets it to empty,
// signing in subscribes to users/<uid> and replaces local state wholesale on
// every snapshot. Mutations compute the next full field value from the last
// snapshot and merge-write it; local state only changes when the resulting
// snapshot comes back.
package board

import (
	"time"

	"github.com/charmbracelet/log"
)

// State is a store's position in its sync lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

type options struct {
	logger      *log.Logger
	onChange    []func()
	now         func() time.Time
	retries     int
	resubscribe time.Duration
}

// Option configures a HabitStore or CompletionStore.
type Option func(*options)

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOnChange registers fn to run after every local state replacement.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = append(o.onChange, fn) }
}

// WithClock replaces time.Now, which stamps createdAt and derives CurrentWeek.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithOptimisticWrites makes every mutation read the server's current
// document, apply its change to that, and write conditioned on the version
// it read. A conflicting write is retried up to maxRetries times before the
// conflict is returned. The default is a blind last-write-wins merge.
func WithOptimisticWrites(maxRetries int) Option {
	return func(o *options) { o.retries = maxRetries }
}

// WithResubscribeDelay sets the wait before retrying a failed or dropped subscription.
func WithResubscribeDelay(d time.Duration) Option {
	return func(o *options) { o.resubscribe = d }
}

func buildOptions(component string, opts []Option) options {
	o := options{
		now:         time.Now,
		resubscribe: time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = defaultLogger(component)
	}
	return o
}
