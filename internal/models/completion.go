package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// HabitWeek is one habit's completion record for one week: the checklist item
// ids completed on each day, and the independent per-day done flag.
type HabitWeek struct {
	Items      map[DayKey][]string
	DoneStatus map[DayKey]bool

	// Extra holds stored keys other than the days and doneStatus, written back unchanged.
	Extra map[string]json.RawMessage
}

// WeekCompletions maps habit id to that habit's record for a week.
type WeekCompletions map[string]HabitWeek

// Completions maps ISO week key to the week's records.
type Completions map[string]WeekCompletions

// NewHabitWeek returns the default record: seven empty day lists and no done flags.
func NewHabitWeek() HabitWeek {
	hw := HabitWeek{
		Items:      make(map[DayKey][]string, len(AllDays)),
		DoneStatus: make(map[DayKey]bool),
	}
	for _, d := range AllDays {
		hw.Items[d] = []string{}
	}
	return hw
}

// Clone returns a deep copy with every day list present.
func (h HabitWeek) Clone() HabitWeek {
	out := NewHabitWeek()
	for d, ids := range h.Items {
		out.Items[d] = slices.Clone(ids)
		if out.Items[d] == nil {
			out.Items[d] = []string{}
		}
	}
	maps.Copy(out.DoneStatus, h.DoneStatus)
	out.Extra = maps.Clone(h.Extra)
	return out
}

// Completed returns the item ids completed on day. Never nil.
func (h HabitWeek) Completed(day DayKey) []string {
	ids := h.Items[day]
	if len(ids) == 0 {
		return []string{}
	}
	return slices.Clone(ids)
}

// Done reports the done flag for day.
func (h HabitWeek) Done(day DayKey) bool {
	return h.DoneStatus[day]
}

// ToggleItem returns a copy of h with itemID added to or removed from day's list.
func (h HabitWeek) ToggleItem(day DayKey, itemID string) HabitWeek {
	out := h.Clone()
	ids := out.Items[day]
	if i := slices.Index(ids, itemID); i >= 0 {
		out.Items[day] = slices.Delete(ids, i, i+1)
	} else {
		out.Items[day] = append(ids, itemID)
	}
	return out
}

// ToggleDone returns a copy of h with day's done flag flipped.
func (h HabitWeek) ToggleDone(day DayKey) HabitWeek {
	out := h.Clone()
	out.DoneStatus[day] = !out.DoneStatus[day]
	return out
}

// HabitWeek returns the record for (week, habitID), defaulted when any level is absent.
// Read accessors and toggles both go through here so their default shape cannot drift.
func (c Completions) HabitWeek(week, habitID string) HabitWeek {
	if hw, ok := c[week][habitID]; ok {
		return hw.Clone()
	}
	return NewHabitWeek()
}

// With returns a copy of c where (week, habitID) holds hw. Unrelated weeks and
// habits are shared with c, which is left untouched.
func (c Completions) With(week, habitID string, hw HabitWeek) Completions {
	out := make(Completions, len(c)+1)
	maps.Copy(out, c)
	wk := make(WeekCompletions, len(c[week])+1)
	maps.Copy(wk, c[week])
	wk[habitID] = hw
	out[week] = wk
	return out
}

// Week returns a deep copy of one week's records. Never nil.
func (c Completions) Week(week string) WeekCompletions {
	out := make(WeekCompletions, len(c[week]))
	for id, hw := range c[week] {
		out[id] = hw.Clone()
	}
	return out
}

// Clone returns a deep copy of c.
func (c Completions) Clone() Completions {
	out := make(Completions, len(c))
	for wk := range c {
		out[wk] = c.Week(wk)
	}
	return out
}

const doneStatusField = "doneStatus"

// MarshalJSON writes the persisted shape:
// {"monday":[...],...,"sunday":[...],"doneStatus":{"monday":true,...}}.
func (h HabitWeek) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(AllDays)+1)
	for _, d := range AllDays {
		ids := h.Items[d]
		if ids == nil {
			ids = []string{}
		}
		out[string(d)] = ids
	}
	done := make(map[string]bool, len(h.DoneStatus))
	for d, v := range h.DoneStatus {
		done[string(d)] = v
	}
	out[doneStatusField] = done
	for k, raw := range h.Extra {
		if _, ok := out[k]; !ok {
			out[k] = raw
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the persisted shape. Missing days default to empty lists;
// unknown keys are kept in Extra.
func (h *HabitWeek) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	hw := NewHabitWeek()
	for _, d := range AllDays {
		field, ok := raw[string(d)]
		if !ok {
			continue
		}
		var ids []string
		if err := json.Unmarshal(field, &ids); err != nil {
			return fmt.Errorf("decoding %s completions: %w", d, err)
		}
		if ids != nil {
			hw.Items[d] = ids
		}
	}
	if field, ok := raw[doneStatusField]; ok {
		var done map[string]bool
		if err := json.Unmarshal(field, &done); err != nil {
			return fmt.Errorf("decoding doneStatus: %w", err)
		}
		for k, v := range done {
			hw.DoneStatus[DayKey(k)] = v
		}
	}
	for k, field := range raw {
		if k == doneStatusField || DayKey(k).Valid() {
			continue
		}
		if hw.Extra == nil {
			hw.Extra = make(map[string]json.RawMessage)
		}
		hw.Extra[k] = field
	}
	*h = hw
	return nil
}
