// Package identity supplies the signed-in user to the board stores.
package identity

import (
	"errors"
	"sync"
)

// ErrSignedOut is returned by commands that need a signed-in user
var ErrSignedOut = errors.New("not signed in")

// Provider reports the current user and notifies on change.
type Provider interface {
	// Current returns the signed-in user id, or ok=false when signed out.
	Current() (userID string, ok bool)
	// Watch returns a channel receiving the user id after every change
	// ("" when signed out) and a func that stops the watch. Intermediate
	// values may be dropped; the latest identity is always delivered.
	Watch() (<-chan string, func())
}

// Session is an in-process Provider whose identity is set explicitly.
type Session struct {
	mu       sync.Mutex
	userID   string
	watchers map[int]chan string
	nextID   int
}

// NewSession creates a session signed in as userID, or signed out if userID is empty.
func NewSession(userID string) *Session {
	return &Session{
		userID:   userID,
		watchers: make(map[int]chan string),
	}
}

func (s *Session) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != ""
}

func (s *Session) Watch() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan string, 1)
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
			close(ch)
		})
	}
}

// SignIn switches the session to userID. Signing in as the current user is a no-op.
func (s *Session) SignIn(userID string) {
	s.set(userID)
}

// SignOut clears the session.
func (s *Session) SignOut() {
	s.set("")
}

func (s *Session) set(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		return
	}
	s.userID = userID
	for _, ch := range s.watchers {
		// Replace any undelivered value with the latest one.
		select {
		case <-ch:
		default:
		}
		ch <- userID
	}
}
