package storage

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// GetFunc reads one document snapshot.
type GetFunc func(ctx context.Context, key string) (Snapshot, error)

// Follow implements the Subscribe contract on top of a wakeup source. It reads
// the current snapshot synchronously, then re-reads after every wakeup (and
// every poll interval, if poll > 0) and emits whenever the version moved.
// The returned channel closes when ctx is done or wake is closed. stop, if
// non-nil, runs once when the loop exits.
func Follow(ctx context.Context, key string, get GetFunc, wake <-chan struct{}, poll time.Duration, logger *log.Logger, stop func()) (<-chan Snapshot, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	first, err := get(ctx, key)
	if err != nil {
		if stop != nil {
			stop()
		}
		return nil, err
	}

	out := make(chan Snapshot, 1)
	out <- first

	go func() {
		defer close(out)
		if stop != nil {
			defer stop()
		}

		var tick <-chan time.Time
		if poll > 0 {
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			tick = ticker.C
		}

		last := first.Version
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-wake:
				if !ok {
					return
				}
			case <-tick:
			}

			snap, err := get(ctx, key)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Failed to refresh subscribed document", "key", key, "error", err)
				continue
			}
			if snap.Version == last {
				continue
			}
			last = snap.Version
			offer(out, snap)
		}
	}()

	return out, nil
}

// offer replaces any unread snapshot with snap. Only the owning goroutine sends
// on out, so the send after draining cannot block.
func offer(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- snap
}
