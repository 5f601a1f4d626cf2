package tui

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage/memory"
)

var wednesday = time.Date(2026, time.January, 28, 9, 30, 0, 0, time.Local)

func clock() time.Time { return wednesday }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestModel(t *testing.T, titles ...string) (Model, *board.Board) {
	t.Helper()
	store := memory.New()
	b := board.New(store, identity.NewSession("tester"), board.WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	t.Cleanup(func() {
		cancel()
		b.Close()
		store.Close()
	})
	if err := b.WaitSynced(ctx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}
	for i, title := range titles {
		if _, err := b.Habits.AddHabit(ctx, models.NewHabit{Title: title, ChecklistTemplate: []string{"First", "Second"}}); err != nil {
			t.Fatalf("AddHabit: %v", err)
		}
		want := i + 1
		waitFor(t, "habit added", func() bool { return len(b.Habits.Habits()) == want })
	}
	return NewModel(b, WithClock(clock)), b
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

// runWrite executes a write command and fails on an error message.
func runWrite(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if msg, ok := cmd().(errMsg); ok {
		t.Fatalf("write failed: %v", msg.err)
	}
}

func TestNewModelStartsOnToday(t *testing.T) {
	m, _ := newTestModel(t)
	if m.weekKey != "2026-W05" || m.dayKey() != models.Wednesday {
		t.Errorf("start = %s %s, want 2026-W05 wednesday", m.weekKey, m.dayKey())
	}
	if !strings.Contains(m.View(), "2026-W05 (Jan 26 - Feb 1)") {
		t.Errorf("header missing week range:\n%s", m.View())
	}

	other := NewModel(m.board, WithClock(clock), WithWeek("2026-W10"))
	if other.weekKey != "2026-W10" || other.day != 0 {
		t.Errorf("WithWeek start = %s day %d", other.weekKey, other.day)
	}
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.dayKey() != models.Thursday {
		t.Errorf("right -> %s, want thursday", m.dayKey())
	}

	for i := 0; i < 4; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	}
	if m.weekKey != "2026-W04" || m.dayKey() != models.Sunday {
		t.Errorf("left past monday -> %s %s, want 2026-W04 sunday", m.weekKey, m.dayKey())
	}

	m, _ = press(t, m, runes("]"))
	m, _ = press(t, m, runes("]"))
	if m.weekKey != "2026-W06" {
		t.Errorf("week after ]] = %s", m.weekKey)
	}

	m, _ = press(t, m, runes("t"))
	if m.weekKey != "2026-W05" || m.dayKey() != models.Wednesday {
		t.Errorf("today -> %s %s", m.weekKey, m.dayKey())
	}
}

func TestToggleDone(t *testing.T) {
	m, b := newTestModel(t, "Read")
	habit := b.Habits.Habits()[0]

	m, cmd := press(t, m, space)
	runWrite(t, cmd)
	waitFor(t, "done flag", func() bool {
		return b.Completions.IsHabitDone("2026-W05", habit.ID, models.Wednesday)
	})

	next, _ := m.Update(changeMsg{})
	m = next.(Model)
	if !strings.Contains(m.View(), "✓ Read") {
		t.Errorf("board does not show the done mark:\n%s", m.View())
	}
}

func TestChecklistToggle(t *testing.T) {
	m, b := newTestModel(t, "Stretch")
	habit := b.Habits.Habits()[0]

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateChecklist {
		t.Fatalf("state = %v, want checklist", m.state)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, space)
	runWrite(t, cmd)

	want := []string{habit.ChecklistTemplate[1].ID}
	waitFor(t, "checklist item", func() bool {
		return reflect.DeepEqual(b.Completions.CompletedItems("2026-W05", habit.ID, models.Wednesday), want)
	})

	next, _ := m.Update(changeMsg{})
	m = next.(Model)
	if view := m.View(); !strings.Contains(view, "> [x] Second") || !strings.Contains(view, "1/2") {
		t.Errorf("checklist view:\n%s", view)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != StateBoard {
		t.Errorf("esc left state %v", m.state)
	}
}

func TestReorderAndDelete(t *testing.T) {
	m, b := newTestModel(t, "A", "B")

	m, cmd := press(t, m, runes("J"))
	if m.row != 1 {
		t.Errorf("cursor did not follow the moved habit: row %d", m.row)
	}
	runWrite(t, cmd)
	waitFor(t, "reorder", func() bool {
		h := b.Habits.Habits()
		return len(h) == 2 && h[0].Title == "B"
	})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m.refresh()
	m, _ = press(t, m, runes("d"))
	if m.state != StateConfirmDelete {
		t.Fatalf("state = %v, want confirm delete", m.state)
	}
	if !strings.Contains(m.View(), `Delete habit "B"?`) {
		t.Errorf("confirm view:\n%s", m.View())
	}
	m, cmd = press(t, m, runes("y"))
	runWrite(t, cmd)
	waitFor(t, "delete", func() bool {
		h := b.Habits.Habits()
		return len(h) == 1 && h[0].Title == "A"
	})
}

func TestAddHabitFormDefaultsToColumnDay(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, runes("a"))
	if m.state != StateAddHabit {
		t.Fatalf("state = %v, want add habit", m.state)
	}
	if !reflect.DeepEqual(m.habitFm.Days, []models.DayKey{models.Thursday}) {
		t.Errorf("form days = %v, want [thursday]", m.habitFm.Days)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != StateBoard {
		t.Errorf("esc left state %v", m.state)
	}
}

func TestHabitFormNewHabit(t *testing.T) {
	fm := &HabitFormModel{Title: "Stretch", Color: "#22C55E", Items: "Neck, Back,", Days: []models.DayKey{models.Monday}}
	got := fm.newHabit()
	if got.Title != "Stretch" || got.Color != "#22C55E" {
		t.Errorf("newHabit = %+v", got)
	}
	if len(got.ChecklistTemplate) != 3 {
		t.Errorf("items = %q, want raw split for validation to normalize", got.ChecklistTemplate)
	}
	if (&HabitFormModel{Title: "Read"}).newHabit().ChecklistTemplate != nil {
		t.Error("empty items should give no checklist")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	m, cmd := press(t, m, runes("q"))
	if cmd == nil || !m.quitting {
		t.Fatal("q should quit")
	}
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
}
