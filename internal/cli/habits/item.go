package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitboard/internal/cli"
)

type ItemCmd struct {
	Add    ItemAddCmd    `cmd:"" help:"Add a checklist item to a habit."`
	Remove ItemRemoveCmd `cmd:"" help:"Remove a checklist item from a habit."`
}

type ItemAddCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Label string `arg:"" help:"Item label."`
}

func (c *ItemAddCmd) Run(ctx *cli.Context) error {
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habit, err := cli.FindHabit(b.Habits.Habits(), c.Habit)
	if err != nil {
		return err
	}
	item, err := b.Habits.AddChecklistItem(context.Background(), habit.ID, c.Label)
	if err != nil {
		return fmt.Errorf("failed to add checklist item: %w", err)
	}
	ctx.Printf("Added item to %s: %s (ID: %s)\n", habit.Title, item.Label, item.ID)
	return nil
}

type ItemRemoveCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Item  string `arg:"" help:"Item ID or label."`
}

func (c *ItemRemoveCmd) Run(ctx *cli.Context) error {
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
	if err := b.Habits.RemoveChecklistItem(context.Background(), habit.ID, item.ID); err != nil {
		return fmt.Errorf("failed to remove checklist item: %w", err)
	}
	ctx.Printf("Removed item from %s: %s\n", habit.Title, item.Label)
	return nil
}
