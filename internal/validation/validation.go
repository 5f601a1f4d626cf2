// Package validation checks habit input before the board stores persist it.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/julianstephens/habitboard/internal/models"
)

var (
	// ErrEmptyTitle is returned when a habit title is empty or whitespace only
	ErrEmptyTitle = errors.New("habit title cannot be empty")
	// ErrInvalidColor is returned for colors that are not #RGB or #RRGGBB
	ErrInvalidColor = errors.New("invalid color")
	// ErrInvalidDay is returned for day keys outside monday..sunday
	ErrInvalidDay = errors.New("invalid day")
	// ErrEmptyLabel is returned when a checklist item label is blank
	ErrEmptyLabel = errors.New("checklist item label cannot be empty")
)

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateTitle returns the trimmed title or ErrEmptyTitle.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrEmptyTitle
	}
	return trimmed, nil
}

// ValidateColor accepts an empty color (the default applies) or a hex color.
func ValidateColor(color string) error {
	if color == "" || hexColorPattern.MatchString(color) {
		return nil
	}
	return fmt.Errorf("%w: %q (expected #RGB or #RRGGBB)", ErrInvalidColor, color)
}

// ValidateDays rejects unknown day keys and returns the list without duplicates,
// preserving first-seen order. A nil or empty list means every day.
func ValidateDays(days []models.DayKey) ([]models.DayKey, error) {
	out := make([]models.DayKey, 0, len(days))
	seen := make(map[models.DayKey]bool, len(days))
	for _, d := range days {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDay, d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}

// ValidateLabel returns the trimmed checklist label or ErrEmptyLabel.
func ValidateLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", ErrEmptyLabel
	}
	return trimmed, nil
}

// NormalizeLabels trims checklist labels and drops blank ones.
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NewHabit validates and normalizes addHabit input.
func NewHabit(in models.NewHabit) (models.NewHabit, error) {
	title, err := ValidateTitle(in.Title)
	if err != nil {
		return models.NewHabit{}, err
	}
	if err := ValidateColor(in.Color); err != nil {
		return models.NewHabit{}, err
	}
	days, err := ValidateDays(in.Days)
	if err != nil {
		return models.NewHabit{}, err
	}
	return models.NewHabit{
		Title:             title,
		Color:             in.Color,
		ChecklistTemplate: NormalizeLabels(in.ChecklistTemplate),
		Days:              days,
	}, nil
}

// Update validates the fields an update sets and returns a normalized copy.
func Update(u models.HabitUpdate) (models.HabitUpdate, error) {
	var out models.HabitUpdate
	if u.Title != nil {
		title, err := ValidateTitle(*u.Title)
		if err != nil {
			return models.HabitUpdate{}, err
		}
		out.Title = &title
	}
	if u.Color != nil {
		if err := ValidateColor(*u.Color); err != nil {
			return models.HabitUpdate{}, err
		}
		color := *u.Color
		out.Color = &color
	}
	if u.Days != nil {
		days, err := ValidateDays(*u.Days)
		if err != nil {
			return models.HabitUpdate{}, err
		}
		out.Days = &days
	}
	return out, nil
}
