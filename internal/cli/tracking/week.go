package tracking

import (
	"context"
	"slices"

	"github.com/julianstephens/habitboard/internal/cli"
)

// WeekCmd prints the weekly board with checklist progress
type WeekCmd struct {
	Week   string `short:"w" help:"ISO week key (e.g. 2026-W05). Defaults to the current week."`
	Offset int    `short:"o" help:"Weeks relative to --week, e.g. -1 for last week."`
	Items  bool   `short:"i" help:"Show each checklist item."`
}

func (c *WeekCmd) Run(ctx *cli.Context) error {
	weekKey, err := cli.ResolveWeek(c.Week, c.Offset, ctx.Clock())
	if err != nil {
		return err
	}
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	view, err := b.Week(weekKey, ctx.Clock())
	if err != nil {
		return err
	}

	first, last := view.Columns[0], view.Columns[len(view.Columns)-1]
	ctx.Printf("Week %s (%s - %s)\n", view.Week, first.DateStr, last.DateStr)
	for _, col := range view.Columns {
		today := ""
		if col.IsToday {
			today = " (today)"
		}
		ctx.Printf("\n%s %s%s\n", col.Label, col.DateStr, today)
		if len(col.Cards) == 0 {
			ctx.Println("  (no habits)")
			continue
		}
		for _, card := range col.Cards {
			if len(card.Habit.ChecklistTemplate) == 0 {
				ctx.Printf("  %s %s\n", mark(card.Done), card.Habit.Title)
				continue
			}
			ctx.Printf("  %s %s  %s (%d%%)\n", mark(card.Done), card.Habit.Title, card.Progress.Fraction, card.Progress.Percent)
			if !c.Items {
				continue
			}
			for _, it := range card.Habit.ChecklistTemplate {
				ctx.Printf("        %s %s\n", mark(slices.Contains(card.Completed, it.ID)), it.Label)
			}
		}
	}
	return nil
}
