package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/cli"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/validation"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits in board order." default:"1"`
	Edit    HabitEditCmd    `cmd:"" help:"Edit a habit."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit."`
	Reorder HabitReorderCmd `cmd:"" help:"Move a habit to another habit's position."`
}

type HabitAddCmd struct {
	Title string   `arg:"" help:"Habit title."`
	Color string   `short:"c" help:"Hex color (#RGB or #RRGGBB). Defaults to blue."`
	Days  string   `short:"d" help:"Comma-separated weekdays the habit shows on (e.g. mon,wed,fri). Defaults to every day."`
	Items []string `name:"item" short:"i" help:"Checklist item label. Repeat for several items."`
}

func (c *HabitAddCmd) Validate() error {
	if c.Color != "" {
		return validation.ValidateColor(c.Color)
	}
	return nil
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	days, err := cli.ParseDays(c.Days)
	if err != nil {
		return err
	}
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}

	habit, err := b.Habits.AddHabit(context.Background(), models.NewHabit{
		Title:             c.Title,
		Color:             c.Color,
		Days:              days,
		ChecklistTemplate: c.Items,
	})
	if err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}
	ctx.Printf("Added habit: %s (ID: %s)\n", habit.Title, habit.ID)
	return nil
}

type HabitListCmd struct {
	Day     string `help:"Only show habits scheduled on this weekday."`
	ShowIDs bool   `help:"Show habit and checklist item IDs." name:"show-ids"`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}

	habits := b.Habits.Habits()
	if c.Day != "" {
		day, err := cli.ResolveDay(c.Day, ctx.Clock())
		if err != nil {
			return err
		}
		habits = b.Habits.HabitsFor(day)
	}
	if len(habits) == 0 {
		ctx.Println("No habits found")
		return nil
	}

	ctx.Println("Habits:")
	for _, h := range habits {
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", h.ID)
		}
		ctx.Printf("  %d. %s%s - %s, %s\n", h.Order+1, h.Title, idStr, h.EffectiveColor(), cli.FormatDays(h.Days))
		for _, it := range h.ChecklistTemplate {
			if c.ShowIDs {
				ctx.Printf("      - %s (ID: %s)\n", it.Label, it.ID)
			} else {
				ctx.Printf("      - %s\n", it.Label)
			}
		}
	}
	return nil
}

type HabitEditCmd struct {
	Habit string  `arg:"" help:"Habit ID or title."`
	Title *string `short:"t" help:"New title."`
	Color *string `short:"c" help:"New hex color."`
	Days  *string `short:"d" help:"New comma-separated weekdays. Pass an empty string for every day."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	var update models.HabitUpdate
	update.Title = c.Title
	update.Color = c.Color
	if c.Days != nil {
		days, err := cli.ParseDays(*c.Days)
		if err != nil {
			return err
		}
		if days == nil {
			days = []models.DayKey{}
		}
		update.Days = &days
	}
	if update.IsEmpty() {
		return fmt.Errorf("nothing to change, pass --title, --color or --days")
	}

	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habit, err := cli.FindHabit(b.Habits.Habits(), c.Habit)
	if err != nil {
		return err
	}
	if err := b.Habits.UpdateHabit(context.Background(), habit.ID, update); err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	ctx.Printf("Updated habit: %s\n", habit.Title)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habit, err := cli.FindHabit(b.Habits.Habits(), c.Habit)
	if err != nil {
		return err
	}
	if err := b.Habits.DeleteHabit(context.Background(), habit.ID); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	ctx.Printf("Deleted habit: %s\n", habit.Title)
	return nil
}

type HabitReorderCmd struct {
	Habit  string `arg:"" help:"Habit to move (ID or title)."`
	Target string `arg:"" help:"Habit whose position it takes (ID or title)."`
}

func (c *HabitReorderCmd) Run(ctx *cli.Context) error {
	b, err := ctx.Board(context.Background())
	if err != nil {
		return err
	}
	habits := b.Habits.Habits()
	dragged, err := cli.FindHabit(habits, c.Habit)
	if err != nil {
		return err
	}
	target, err := cli.FindHabit(habits, c.Target)
	if err != nil {
		return err
	}
	if err := b.Habits.ReorderHabits(context.Background(), dragged.ID, target.ID); err != nil {
		return fmt.Errorf("failed to reorder habits: %w", err)
	}

	reordered, _ := board.Reorder(habits, dragged.ID, target.ID)
	titles := make([]string, len(reordered))
	for i, h := range reordered {
		titles[i] = h.Title
	}
	ctx.Printf("New order: %s\n", strings.Join(titles, ", "))
	return nil
}
