package tracking

import (
	"context"
	"fmt"
	"slices"

	"github.com/julianstephens/habitboard/internal/cli"
)

// CheckCmd toggles a checklist item for a habit on a day
type CheckCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Day   string `arg:"" help:"Weekday (monday..sunday, mon..sun or today)."`
	Item  string `arg:"" help:"Checklist item ID or label."`
	Week  string `short:"w" help:"ISO week key (e.g. 2026-W05). Defaults to the current week."`
}

func (c *CheckCmd) Run(ctx *cli.Context) error {
	weekKey, err := cli.ResolveWeek(c.Week, 0, ctx.Clock())
	if err != nil {
		return err
	}
	day, err := cli.ResolveDay(c.Day, ctx.Clock())
	if err != nil {
		return err
	}

	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habit, err := cli.FindHabit(b.Habits.Habits(), c.Habit)
	if err != nil {
		return err
	}
	item, err := cli.FindItem(habit, c.Item)
	if err != nil {
		return err
	}

	checked := !slices.Contains(b.Completions.CompletedItems(weekKey, habit.ID, day), item.ID)
	if err := b.Completions.ToggleChecklistItem(context.Background(), weekKey, habit.ID, day, item.ID); err != nil {
		return fmt.Errorf("failed to toggle checklist item: %w", err)
	}
	ctx.Printf("%s %s: %s on %s (%s)\n", mark(checked), habit.Title, item.Label, day.Label(), weekKey)
	return nil
}

// DoneCmd toggles a habit's done flag on a day
type DoneCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Day   string `arg:"" default:"today" help:"Weekday (monday..sunday, mon..sun or today)."`
	Week  string `short:"w" help:"ISO week key (e.g. 2026-W05). Defaults to the current week."`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	weekKey, err := cli.ResolveWeek(c.Week, 0, ctx.Clock())
	if err != nil {
		return err
	}
	day, err := cli.ResolveDay(c.Day, ctx.Clock())
	if err != nil {
		return err
	}

	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habit, err := cli.FindHabit(b.Habits.Habits(), c.Habit)
	if err != nil {
		return err
	}

	done := !b.Completions.IsHabitDone(weekKey, habit.ID, day)
	if err := b.Completions.ToggleHabitDone(context.Background(), weekKey, habit.ID, day); err != nil {
		return fmt.Errorf("failed to toggle habit: %w", err)
	}
	state := "not done"
	if done {
		state = "done"
	}
	ctx.Printf("%s %s marked %s on %s (%s)\n", mark(done), habit.Title, state, day.Label(), weekKey)
	return nil
}

func mark(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
