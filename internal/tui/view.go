package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitboard/internal/board"
)

const minColumnWidth = 16

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateAddHabit:
		content = docStyle.Render(m.form.View())
	case StateChecklist:
		content = m.viewChecklist()
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	default:
		content = m.viewBoard()
	}

	parts := []string{m.viewHeader(), content}
	if m.err != "" {
		parts = append(parts, warningStyle.Render("⚠ "+m.err))
	}
	parts = append(parts, m.help.View(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewHeader() string {
	title := titleStyle.Render("Habit Board")
	if len(m.view.Columns) == 0 {
		return title
	}
	first, last := m.view.Columns[0], m.view.Columns[len(m.view.Columns)-1]
	header := fmt.Sprintf("%s  %s (%s - %s)", title, m.view.Week, first.DateStr, last.DateStr)

	switch m.board.Habits.State() {
	case board.StateUnauthenticated:
		header += "  " + mutedStyle.Render("not signed in")
	case board.StateLoading:
		header += "  " + mutedStyle.Render("syncing…")
	}
	return header
}

func (m Model) columnWidth() int {
	if m.width == 0 {
		return minColumnWidth + 2
	}
	w := m.width/len(m.view.Columns) - 1
	if w < minColumnWidth {
		return minColumnWidth
	}
	return w
}

func (m Model) viewBoard() string {
	if len(m.view.Columns) == 0 {
		return ""
	}
	width := m.columnWidth()
	cols := make([]string, 0, len(m.view.Columns))
	for i, col := range m.view.Columns {
		cols = append(cols, m.viewColumn(i, col, width))
	}
	return docStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func (m Model) viewColumn(index int, col board.Column, width int) string {
	header := dayHeaderStyle
	if col.IsToday {
		header = todayHeaderStyle
	}
	lines := []string{header.Width(width).Render(fmt.Sprintf("%s %s", col.Label, col.DateStr))}
	if index == m.day {
		lines[0] = lipgloss.NewStyle().Underline(true).Render(lines[0])
	}

	if len(col.Cards) == 0 {
		lines = append(lines, mutedStyle.Width(width).Render("no habits"))
	}
	for i, card := range col.Cards {
		selected := index == m.day && i == m.row
		lines = append(lines, cardStyle(card.Habit, width-2, selected).Render(cardText(card)))
	}
	return lipgloss.NewStyle().MarginRight(1).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func cardText(card board.Card) string {
	mark := "○"
	if card.Done {
		mark = "✓"
	}
	text := mark + " " + card.Habit.Title
	if len(card.Habit.ChecklistTemplate) > 0 {
		text += "\n  " + card.Progress.Fraction
	}
	return text
}

func (m Model) viewChecklist() string {
	card, ok := m.selected()
	if !ok {
		return ""
	}
	col, _ := m.column()

	var b strings.Builder
	b.WriteString(cardStyle(card.Habit, m.columnWidth()*2, false).Render(cardText(card)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s %s · %s", col.Label, col.DateStr, card.Progress.Fraction)))
	b.WriteString("\n\n")
	if len(card.Habit.ChecklistTemplate) == 0 {
		b.WriteString(mutedStyle.Render("No checklist items"))
	}
	for i, it := range card.Habit.ChecklistTemplate {
		cursor := "  "
		if i == m.item {
			cursor = "> "
		}
		check := "[ ]"
		if slices.Contains(card.Completed, it.ID) {
			check = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, check, it.Label)
	}
	return docStyle.Render(b.String())
}

func (m Model) viewConfirmDelete() string {
	card, _ := m.selected()
	return lipgloss.Place(m.width, max(m.height-4, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete habit %q?", card.Habit.Title)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
