package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/week"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case changeMsg:
		m.refresh()
		return m, m.waitForChange()
	case errMsg:
		m.err = msg.err.Error()
		return m, nil
	}

	switch m.state {
	case StateAddHabit:
		return m.updateAddHabit(msg)
	case StateChecklist:
		return m.updateChecklist(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m.updateBoard(msg)
}

func (m Model) updateBoard(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = ""

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(keyMsg, m.keys.Up):
		m.row--
		m.clamp()
	case key.Matches(keyMsg, m.keys.Down):
		m.row++
		m.clamp()
	case key.Matches(keyMsg, m.keys.Left):
		m.moveDay(-1)
	case key.Matches(keyMsg, m.keys.Right):
		m.moveDay(1)
	case key.Matches(keyMsg, m.keys.PrevWeek):
		m.shiftWeek(-1)
	case key.Matches(keyMsg, m.keys.NextWeek):
		m.shiftWeek(1)
	case key.Matches(keyMsg, m.keys.Today):
		today := m.now()
		m.weekKey = week.Key(today)
		m.day = dayIndex(week.DayKeyOf(today))
		m.row = 0
		m.refresh()

	case key.Matches(keyMsg, m.keys.Toggle):
		card, ok := m.selected()
		if !ok {
			return m, nil
		}
		weekKey, day := m.weekKey, m.dayKey()
		return m, m.write(func(ctx context.Context) error {
			return m.board.Completions.ToggleHabitDone(ctx, weekKey, card.Habit.ID, day)
		})
	case key.Matches(keyMsg, m.keys.Open):
		if _, ok := m.selected(); ok {
			m.state = StateChecklist
			m.item = 0
		}
	case key.Matches(keyMsg, m.keys.Add):
		m.habitFm = &HabitFormModel{
			Color: constants.DefaultColor,
			Days:  []models.DayKey{m.dayKey()},
		}
		m.form = NewHabitForm(m.habitFm)
		m.state = StateAddHabit
		return m, m.form.Init()
	case key.Matches(keyMsg, m.keys.Delete):
		if _, ok := m.selected(); ok {
			m.state = StateConfirmDelete
		}
	case key.Matches(keyMsg, m.keys.MoveUp):
		return m, m.reorder(-1)
	case key.Matches(keyMsg, m.keys.MoveDown):
		return m, m.reorder(1)
	}
	return m, nil
}

// moveDay steps the day cursor, crossing into the neighboring week at the edges.
func (m *Model) moveDay(delta int) {
	last := len(models.AllDays) - 1
	next := m.day + delta
	switch {
	case next < 0:
		m.shiftWeek(-1)
		next = last
	case next > last:
		m.shiftWeek(1)
		next = 0
	}
	m.day = next
	m.row = 0
	m.clamp()
}

func (m *Model) shiftWeek(n int) {
	next, err := week.Shift(m.weekKey, n)
	if err != nil {
		m.err = err.Error()
		return
	}
	m.weekKey = next
	m.row = 0
	m.refresh()
}

// reorder moves the selected habit onto its neighbor in the current column.
func (m *Model) reorder(delta int) tea.Cmd {
	cards := m.cards()
	target := m.row + delta
	if m.row < 0 || m.row >= len(cards) || target < 0 || target >= len(cards) {
		return nil
	}
	dragged, onto := cards[m.row].Habit.ID, cards[target].Habit.ID
	m.row = target
	return m.write(func(ctx context.Context) error {
		return m.board.Habits.ReorderHabits(ctx, dragged, onto)
	})
}

func (m Model) updateChecklist(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = ""
	card, ok := m.selected()
	if !ok {
		m.state = StateBoard
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back), key.Matches(keyMsg, m.keys.Open), key.Matches(keyMsg, m.keys.Quit):
		m.state = StateBoard
	case key.Matches(keyMsg, m.keys.Up):
		m.item--
		m.clamp()
	case key.Matches(keyMsg, m.keys.Down):
		m.item++
		m.clamp()
	case key.Matches(keyMsg, m.keys.Toggle):
		if m.item >= len(card.Habit.ChecklistTemplate) {
			return m, nil
		}
		weekKey, day := m.weekKey, m.dayKey()
		itemID := card.Habit.ChecklistTemplate[m.item].ID
		return m, m.write(func(ctx context.Context) error {
			return m.board.Completions.ToggleChecklistItem(ctx, weekKey, card.Habit.ID, day, itemID)
		})
	}
	return m, nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		m.state = StateBoard
		card, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.write(func(ctx context.Context) error {
			return m.board.Habits.DeleteHabit(ctx, card.Habit.ID)
		})
	case "n", "N", "esc", "q":
		m.state = StateBoard
	}
	return m, nil
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = StateBoard
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		in := m.habitFm.newHabit()
		m.state = StateBoard
		cmds = append(cmds, m.write(func(ctx context.Context) error {
			_, err := m.board.Habits.AddHabit(ctx, in)
			return err
		}))
	case huh.StateAborted:
		m.state = StateBoard
	}
	return m, tea.Batch(cmds...)
}

// write runs a store mutation off the update loop. The result arrives as a
// changeMsg from the subscription, or an errMsg on failure.
func (m Model) write(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.SyncTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}
