package models

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/julianstephens/habitboard/internal/constants"
)

// ChecklistItem is a named sub-task in a habit's checklist template.
type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Habit represents a recurring task shown on the weekly board.
type Habit struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Color             string          `json:"color,omitempty"`
	Order             int             `json:"order"`
	Days              []DayKey        `json:"days"`
	ChecklistTemplate []ChecklistItem `json:"checklistTemplate"`
	CreatedAt         string          `json:"createdAt"`

	// Extra holds stored keys this version does not know. They are written
	// back unchanged so other clients sharing the document keep them.
	Extra map[string]json.RawMessage `json:"-"`
}

// habitFields are the keys Habit decodes itself.
var habitFields = []string{"id", "title", "color", "order", "days", "checklistTemplate", "createdAt"}

// habitJSON is Habit without its JSON methods.
type habitJSON Habit

func (h Habit) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(habitJSON(h), h.Extra)
}

func (h *Habit) UnmarshalJSON(data []byte) error {
	var known habitJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := unknownFields(data, habitFields)
	if err != nil {
		return err
	}
	known.Extra = extra
	*h = Habit(known)
	return nil
}

// unknownFields returns the object's keys not matching known. Matching is
// case-insensitive, as encoding/json's is.
func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	maps.DeleteFunc(fields, func(k string, _ json.RawMessage) bool {
		return slices.ContainsFunc(known, func(name string) bool { return strings.EqualFold(k, name) })
	})
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// marshalWithExtra encodes v and adds the extra keys it does not already set.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}

// NewHabit holds the fields a caller supplies when adding a habit.
type NewHabit struct {
	Title             string
	Color             string
	ChecklistTemplate []string
	Days              []DayKey
}

// HabitUpdate names the fields UpdateHabit may change. Nil fields are left unchanged.
type HabitUpdate struct {
	Title *string
	Color *string
	Days  *[]DayKey
}

// IsEmpty reports whether the update changes nothing.
func (u HabitUpdate) IsEmpty() bool {
	return u.Title == nil && u.Color == nil && u.Days == nil
}

// Apply returns a copy of h with the update's fields replaced.
func (u HabitUpdate) Apply(h Habit) Habit {
	if u.Title != nil {
		h.Title = *u.Title
	}
	if u.Color != nil {
		h.Color = *u.Color
	}
	if u.Days != nil {
		h.Days = slices.Clone(*u.Days)
	}
	return h
}

// EffectiveColor returns the habit color, falling back to the default blue.
func (h Habit) EffectiveColor() string {
	if h.Color == "" {
		return constants.DefaultColor
	}
	return h.Color
}

// AppliesTo reports whether the habit is scheduled on day.
// A habit with no days applies to every day.
func (h Habit) AppliesTo(day DayKey) bool {
	return len(h.Days) == 0 || slices.Contains(h.Days, day)
}

// Clone returns a deep copy of h.
func (h Habit) Clone() Habit {
	h.Days = slices.Clone(h.Days)
	h.ChecklistTemplate = slices.Clone(h.ChecklistTemplate)
	h.Extra = maps.Clone(h.Extra)
	return h
}

// HasItem reports whether itemID is in the habit's current checklist template.
func (h Habit) HasItem(itemID string) bool {
	return slices.ContainsFunc(h.ChecklistTemplate, func(it ChecklistItem) bool {
		return it.ID == itemID
	})
}

// CloneHabits deep-copies a habit list.
func CloneHabits(habits []Habit) []Habit {
	out := make([]Habit, len(habits))
	for i, h := range habits {
		out[i] = h.Clone()
	}
	return out
}

// ContrastColor picks dark or light text for a background hex color using
// perceived luminance.
func ContrastColor(hexColor string) string {
	hex := strings.TrimPrefix(hexColor, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return "#ffffff"
	}
	r, errR := strconv.ParseUint(hex[0:2], 16, 8)
	g, errG := strconv.ParseUint(hex[2:4], 16, 8)
	b, errB := strconv.ParseUint(hex[4:6], 16, 8)
	if errR != nil || errG != nil || errB != nil {
		return "#ffffff"
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#1f2937"
	}
	return "#ffffff"
}
