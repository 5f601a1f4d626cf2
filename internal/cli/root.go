package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/logger"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/validation"
	"github.com/julianstephens/habitboard/internal/week"
)

// ErrHabitNotFound is returned when a habit reference matches nothing.
var ErrHabitNotFound = errors.New("habit not found")

type Context struct {
	Store   Backend
	Session *identity.Session
	Out     io.Writer
	Now     func() time.Time

	// Optimistic enables version-checked writes for board mutations
	Optimistic bool

	board  *board.Board
	cancel context.CancelFunc
}

// Stdout returns the writer commands print to.
func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Printf writes formatted output for the user.
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

// Println writes a line of output for the user.
func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Stdout(), args...)
}

// Clock returns the current time.
func (c *Context) Clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Board loads the store and returns a started board synced for the signed-in user.
// The board lives until Close.
func (c *Context) Board(ctx context.Context) (*board.Board, error) {
	if c.board != nil {
		return c.board, nil
	}
	if _, ok := c.Session.Current(); !ok {
		return nil, identity.ErrSignedOut
	}
	if err := c.Store.Load(); err != nil {
		return nil, err
	}

	opts := []board.Option{board.WithClock(c.Clock)}
	if c.Optimistic {
		opts = append(opts, board.WithOptimisticWrites(constants.DefaultWriteRetries))
	}
	b := board.New(c.Store, c.Session, opts...)

	runCtx, cancel := context.WithCancel(context.Background())
	b.Start(runCtx)

	waitCtx, waitCancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer waitCancel()
	if err := b.WaitSynced(waitCtx); err != nil {
		cancel()
		b.Close()
		return nil, fmt.Errorf("failed to load board: %w", err)
	}

	c.board = b
	c.cancel = cancel
	return b, nil
}

// Close stops the board, if any, and closes the store.
func (c *Context) Close() error {
	if c.board != nil {
		c.cancel()
		c.board.Close()
		c.board = nil
	}
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// ResolveUser picks the signed-in user from the flag, the environment, then the keyring.
func ResolveUser(flag string, fromKeyring func() (string, error)) string {
	if flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(constants.EnvUser)); env != "" {
		return env
	}
	if fromKeyring != nil {
		user, err := fromKeyring()
		if err == nil {
			return user
		}
		logger.Debug("No session user in keyring", "error", err)
	}
	return ""
}

// FindHabit resolves ref as a habit id, then as an exact title.
func FindHabit(habits []models.Habit, ref string) (models.Habit, error) {
	for _, h := range habits {
		if h.ID == ref {
			return h, nil
		}
	}
	var matches []models.Habit
	for _, h := range habits {
		if h.Title == ref {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("%w: %s", ErrHabitNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%d habits are titled %q, use the habit ID instead", len(matches), ref)
	}
}

// FindItem resolves ref as a checklist item id, then as an exact label.
func FindItem(h models.Habit, ref string) (models.ChecklistItem, error) {
	for _, it := range h.ChecklistTemplate {
		if it.ID == ref {
			return it, nil
		}
	}
	for _, it := range h.ChecklistTemplate {
		if it.Label == ref {
			return it, nil
		}
	}
	return models.ChecklistItem{}, fmt.Errorf("habit %q has no checklist item %q", h.Title, ref)
}

// ParseDays parses a comma-separated list of weekdays
func ParseDays(s string) ([]models.DayKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []models.DayKey
	for _, part := range strings.Split(s, ",") {
		day, err := models.ParseDayKey(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", validation.ErrInvalidDay, strings.TrimSpace(part))
		}
		days = append(days, day)
	}
	return days, nil
}

// ResolveDay parses a weekday name, accepting "today" for now's weekday.
func ResolveDay(s string, now time.Time) (models.DayKey, error) {
	if strings.EqualFold(strings.TrimSpace(s), "today") {
		return week.DayKeyOf(now), nil
	}
	day, err := models.ParseDayKey(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s", validation.ErrInvalidDay, s)
	}
	return day, nil
}

// ResolveWeek returns key, or now's week when key is empty, shifted by offset weeks.
func ResolveWeek(key string, offset int, now time.Time) (string, error) {
	if key == "" {
		key = week.Key(now)
	}
	if _, err := week.ParseKey(key); err != nil {
		return "", err
	}
	if offset == 0 {
		return key, nil
	}
	return week.Shift(key, offset)
}

// FormatDays renders a habit's schedule.
func FormatDays(days []models.DayKey) string {
	if len(days) == 0 {
		return "every day"
	}
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Label()
	}
	return strings.Join(labels, ",")
}
