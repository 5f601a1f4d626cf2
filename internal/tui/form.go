package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/validation"
)

// NewHabitForm creates the add-habit form
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	colors := make([]huh.Option[string], 0, len(constants.PresetColors))
	for _, c := range constants.PresetColors {
		colors = append(colors, huh.NewOption(c, c))
	}
	days := make([]huh.Option[models.DayKey], 0, len(models.AllDays))
	for _, d := range models.AllDays {
		days = append(days, huh.NewOption(d.Label(), d).Selected(slices.Contains(fm.Days, d)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Title").
				Value(&fm.Title).
				Validate(func(s string) error {
					_, err := validation.ValidateTitle(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Color").
				Options(colors...).
				Value(&fm.Color),
			huh.NewInput().
				Title("Checklist").
				Description("Comma-separated items (optional)").
				Value(&fm.Items),
			huh.NewMultiSelect[models.DayKey]().
				Title("Days").
				Description("Leave empty for every day").
				Options(days...).
				Value(&fm.Days),
		),
	).WithTheme(huh.ThemeDracula())
}

// newHabit converts form values into AddHabit input.
func (fm *HabitFormModel) newHabit() models.NewHabit {
	var items []string
	if strings.TrimSpace(fm.Items) != "" {
		items = strings.Split(fm.Items, ",")
	}
	return models.NewHabit{
		Title:             fm.Title,
		Color:             fm.Color,
		ChecklistTemplate: items,
		Days:              fm.Days,
	}
}
