package board

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage"
	"github.com/julianstephens/habitboard/internal/validation"
)

// HabitStore syncs the user's habit list, the document's "habits" field.
type HabitStore struct {
	*follower[[]models.Habit]
}

// NewHabitStore creates a HabitStore. Call Start to begin syncing.
func NewHabitStore(store storage.DocumentStore, id identity.Provider, opts ...Option) *HabitStore {
	o := buildOptions("habits", opts)
	return &HabitStore{
		follower: newFollower(store, id, constants.FieldHabits, func() []models.Habit {
			return []models.Habit{}
		}, o),
	}
}

// Habits returns a copy of the habit list in stored order.
func (s *HabitStore) Habits() []models.Habit {
	habits, _ := s.read()
	return models.CloneHabits(habits)
}

// Habit returns the habit with id.
func (s *HabitStore) Habit(id string) (models.Habit, bool) {
	habits, _ := s.read()
	if i := indexOf(habits, id); i >= 0 {
		return habits[i].Clone(), true
	}
	return models.Habit{}, false
}

// HabitsFor returns the habits scheduled on day, in stored order.
func (s *HabitStore) HabitsFor(day models.DayKey) []models.Habit {
	habits, _ := s.read()
	var out []models.Habit
	for _, h := range habits {
		if h.AppliesTo(day) {
			out = append(out, h.Clone())
		}
	}
	return out
}

// AddHabit appends a new habit with order equal to the current list length.
// It returns the zero Habit when nothing was written (no signed-in user).
func (s *HabitStore) AddHabit(ctx context.Context, in models.NewHabit) (models.Habit, error) {
	in, err := validation.NewHabit(in)
	if err != nil {
		return models.Habit{}, err
	}

	color := in.Color
	if color == "" {
		color = constants.DefaultColor
	}
	items := make([]models.ChecklistItem, 0, len(in.ChecklistTemplate))
	for _, label := range in.ChecklistTemplate {
		items = append(items, models.ChecklistItem{ID: uuid.NewString(), Label: label})
	}
	habit := models.Habit{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Color:             color,
		Days:              in.Days,
		ChecklistTemplate: items,
		CreatedAt:         s.opts.now().UTC().Format(time.RFC3339),
	}

	added := false
	err = s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		h := habit.Clone()
		h.Order = len(base)
		habit, added = h, true
		return append(slices.Clone(base), h), true, nil
	})
	if err != nil || !added {
		return models.Habit{}, err
	}
	return habit, nil
}

// UpdateHabit replaces the fields u sets on the habit. Unknown ids are a no-op.
func (s *HabitStore) UpdateHabit(ctx context.Context, id string, u models.HabitUpdate) error {
	u, err := validation.Update(u)
	if err != nil {
		return err
	}
	if u.IsEmpty() {
		return nil
	}

	return s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		i := indexOf(base, id)
		if i < 0 {
			return nil, false, nil
		}
		next := slices.Clone(base)
		next[i] = u.Apply(base[i].Clone())
		return next, true, nil
	})
}

// DeleteHabit removes the habit. Remaining habits keep their order values and
// the habit's completion records are left in place.
func (s *HabitStore) DeleteHabit(ctx context.Context, id string) error {
	return s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		i := indexOf(base, id)
		if i < 0 {
			return nil, false, nil
		}
		return slices.Delete(slices.Clone(base), i, i+1), true, nil
	})
}

// AddChecklistItem appends a new item to the habit's checklist template.
func (s *HabitStore) AddChecklistItem(ctx context.Context, habitID, label string) (models.ChecklistItem, error) {
	label, err := validation.ValidateLabel(label)
	if err != nil {
		return models.ChecklistItem{}, err
	}
	item := models.ChecklistItem{ID: uuid.NewString(), Label: label}

	var found bool
	err = s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		i := indexOf(base, habitID)
		found = i >= 0
		if !found {
			return nil, false, nil
		}
		next := slices.Clone(base)
		h := base[i].Clone()
		h.ChecklistTemplate = append(h.ChecklistTemplate, item)
		next[i] = h
		return next, true, nil
	})
	if err != nil || !found {
		return models.ChecklistItem{}, err
	}
	return item, nil
}

// RemoveChecklistItem drops the item from the template. Completion records
// that reference it are left alone.
func (s *HabitStore) RemoveChecklistItem(ctx context.Context, habitID, itemID string) error {
	return s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		i := indexOf(base, habitID)
		if i < 0 || !base[i].HasItem(itemID) {
			return nil, false, nil
		}
		next := slices.Clone(base)
		h := base[i].Clone()
		h.ChecklistTemplate = slices.DeleteFunc(h.ChecklistTemplate, func(it models.ChecklistItem) bool {
			return it.ID == itemID
		})
		next[i] = h
		return next, true, nil
	})
}

// ReorderHabits moves the dragged habit to the target's position and
// renumbers every habit's order to its new index.
func (s *HabitStore) ReorderHabits(ctx context.Context, draggedID, targetID string) error {
	return s.mutate(ctx, func(base []models.Habit) ([]models.Habit, bool, error) {
		next, ok := Reorder(base, draggedID, targetID)
		return next, ok, nil
	})
}

// Reorder removes the dragged habit and reinserts it at the index the target
// held before the move, then sets each habit's order to its index. It reports
// false, returning nil, when either id is missing or they are the same.
func Reorder(habits []models.Habit, draggedID, targetID string) ([]models.Habit, bool) {
	from := indexOf(habits, draggedID)
	to := indexOf(habits, targetID)
	if from < 0 || to < 0 || from == to {
		return nil, false
	}

	next := models.CloneHabits(habits)
	dragged := next[from]
	next = slices.Delete(next, from, from+1)
	next = slices.Insert(next, to, dragged)
	for i := range next {
		next[i].Order = i
	}
	return next, true
}

func indexOf(habits []models.Habit, id string) int {
	return slices.IndexFunc(habits, func(h models.Habit) bool { return h.ID == id })
}
