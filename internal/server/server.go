// Package server exposes the signed-in user's board over HTTP, with a
// server-sent event stream of every synced change.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/storage"
)

const (
	streamKey       = "board"
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	board    *board.Board
	identity identity.Provider
	now      func() time.Time
	logger   *log.Logger
	changes  *storage.Fanout
	router   *gin.Engine
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used for "current" week lookups.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger replaces the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router over a started board.
func New(b *board.Board, id identity.Provider, opts ...Option) *Server {
	s := &Server{
		board:    b,
		identity: id,
		now:      time.Now,
		logger:   logger.With("component", "server"),
		changes:  storage.NewFanout(),
	}
	for _, opt := range opts {
		opt(s)
	}

	b.OnChange(func() { s.changes.Notify(streamKey) })
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.changes.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Ends open event streams so Shutdown does not wait on them
	s.changes.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.Use(s.requireUser())
	{
		api.GET("/habits", s.ListHabits)
		api.POST("/habits", s.CreateHabit)
		api.POST("/habits/reorder", s.ReorderHabits)
		api.PATCH("/habits/:id", s.UpdateHabit)
		api.DELETE("/habits/:id", s.DeleteHabit)
		api.POST("/habits/:id/items", s.AddChecklistItem)
		api.DELETE("/habits/:id/items/:itemID", s.RemoveChecklistItem)

		api.GET("/weeks/:week", s.GetWeek)
		api.POST("/weeks/:week/habits/:id/days/:day/items/:itemID/toggle", s.ToggleChecklistItem)
		api.POST("/weeks/:week/habits/:id/days/:day/done/toggle", s.ToggleHabitDone)

		api.GET("/stream", s.Stream)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireUser rejects API calls while nobody is signed in.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.identity.Current(); !ok {
			respondError(c, http.StatusUnauthorized, identity.ErrSignedOut.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
