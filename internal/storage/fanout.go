package storage

import "sync"

// Fanout delivers per-key wakeups to in-process subscribers. Backends call
// Notify after a committed write; subscribers re-read the document.
type Fanout struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	closed bool
}

// NewFanout creates an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[string]map[chan struct{}]struct{})}
}

// Add registers a wakeup channel for key. The channel is closed by the
// returned func or by Close, whichever comes first.
func (f *Fanout) Add(key string) (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	if f.subs[key] == nil {
		f.subs[key] = make(map[chan struct{}]struct{})
	}
	f.subs[key][ch] = struct{}{}

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[key][ch]; !ok {
			return
		}
		delete(f.subs[key], ch)
		if len(f.subs[key]) == 0 {
			delete(f.subs, key)
		}
		close(ch)
	}
}

// Notify wakes every subscriber of key. Pending wakeups are not duplicated.
func (f *Fanout) Notify(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// NotifyAll wakes every subscriber of every key, e.g. after a lost connection.
func (f *Fanout) NotifyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.subs {
		for ch := range set {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Close closes every subscriber channel; later Adds get a closed channel.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for key, set := range f.subs {
		for ch := range set {
			close(ch)
		}
		delete(f.subs, key)
	}
}
