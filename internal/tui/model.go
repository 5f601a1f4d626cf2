// Package tui renders the weekly habit board in the terminal.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/week"
)

type SessionState int

const (
	StateBoard SessionState = iota
	StateChecklist
	StateAddHabit
	StateConfirmDelete
)

// HabitFormModel holds the add-habit form values
type HabitFormModel struct {
	Title string
	Color string
	Items string
	Days  []models.DayKey
}

// changeMsg is sent when either store replaced its state.
type changeMsg struct{}

// errMsg carries a failed write back to the model.
type errMsg struct{ err error }

type Model struct {
	board   *board.Board
	now     func() time.Time
	changes chan struct{}

	state    SessionState
	keys     KeyMap
	help     help.Model
	form     *huh.Form
	habitFm  *HabitFormModel
	weekKey  string
	view     board.WeekView
	day      int
	row      int
	item     int
	err      string
	width    int
	height   int
	quitting bool
}

// Option configures a Model
type Option func(*Model)

// WithClock sets the clock used for "today" and the starting week.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithWeek opens the board on weekKey instead of the current week.
func WithWeek(weekKey string) Option {
	return func(m *Model) { m.weekKey = weekKey }
}

// NewModel creates a board model. b must already be started.
func NewModel(b *board.Board, opts ...Option) Model {
	m := Model{
		board:   b,
		now:     time.Now,
		changes: make(chan struct{}, 1),
		state:   StateBoard,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	today := m.now()
	if m.weekKey == "" {
		m.weekKey = week.Key(today)
	}
	if m.weekKey == week.Key(today) {
		m.day = dayIndex(week.DayKeyOf(today))
	}

	changes := m.changes
	b.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) ShortHelp() []key.Binding {
	switch m.state {
	case StateChecklist:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Toggle, m.keys.Back}
	case StateConfirmDelete:
		return nil
	}
	return m.keys.ShortHelp()
}

func (m Model) FullHelp() [][]key.Binding {
	if m.state != StateBoard {
		return [][]key.Binding{m.ShortHelp()}
	}
	return m.keys.FullHelp()
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// refresh rebuilds the week view from the stores and clamps the cursor.
func (m *Model) refresh() {
	view, err := m.board.Week(m.weekKey, m.now())
	if err != nil {
		m.err = err.Error()
		return
	}
	m.view = view
	m.clamp()
}

func (m *Model) clamp() {
	if m.day < 0 {
		m.day = 0
	}
	if m.day > len(models.AllDays)-1 {
		m.day = len(models.AllDays) - 1
	}
	cards := m.cards()
	if m.row >= len(cards) {
		m.row = len(cards) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if card, ok := m.selected(); ok {
		if n := len(card.Habit.ChecklistTemplate); m.item >= n {
			m.item = n - 1
		}
	}
	if m.item < 0 {
		m.item = 0
	}
}

func (m Model) column() (board.Column, bool) {
	if m.day < 0 || m.day >= len(m.view.Columns) {
		return board.Column{}, false
	}
	return m.view.Columns[m.day], true
}

func (m Model) cards() []board.Card {
	col, ok := m.column()
	if !ok {
		return nil
	}
	return col.Cards
}

func (m Model) selected() (board.Card, bool) {
	cards := m.cards()
	if m.row < 0 || m.row >= len(cards) {
		return board.Card{}, false
	}
	return cards[m.row], true
}

func (m Model) dayKey() models.DayKey {
	return models.AllDays[m.day]
}

func dayIndex(d models.DayKey) int {
	for i, k := range models.AllDays {
		if k == d {
			return i
		}
	}
	return 0
}
