package board

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage"
	"github.com/julianstephens/habitboard/internal/validation"
	"github.com/julianstephens/habitboard/internal/week"
)

// CompletionStore syncs the user's per-week completion records, the
// document's "completions" field. Every write persists the whole map.
type CompletionStore struct {
	*follower[models.Completions]
}

// NewCompletionStore creates a CompletionStore. Call Start to begin syncing.
func NewCompletionStore(store storage.DocumentStore, id identity.Provider, opts ...Option) *CompletionStore {
	o := buildOptions("completions", opts)
	return &CompletionStore{
		follower: newFollower(store, id, constants.FieldCompletions, func() models.Completions {
			return models.Completions{}
		}, o),
	}
}

// CurrentWeek returns the week key for the store's clock. Callers capture it
// once per session and pass it to the other operations.
func (s *CompletionStore) CurrentWeek() string {
	return week.Key(s.opts.now())
}

// CompletedItems returns the item ids completed for the habit on day. Never nil.
func (s *CompletionStore) CompletedItems(weekKey, habitID string, day models.DayKey) []string {
	c, _ := s.read()
	return c.HabitWeek(weekKey, habitID).Completed(day)
}

// IsHabitDone reports the habit's done flag for day.
func (s *CompletionStore) IsHabitDone(weekKey, habitID string, day models.DayKey) bool {
	c, _ := s.read()
	return c.HabitWeek(weekKey, habitID).Done(day)
}

// Week returns a copy of every habit record for weekKey.
func (s *CompletionStore) Week(weekKey string) models.WeekCompletions {
	c, _ := s.read()
	return c.Week(weekKey)
}

// Completions returns a copy of the whole completions map.
func (s *CompletionStore) Completions() models.Completions {
	c, _ := s.read()
	return c.Clone()
}

// ToggleChecklistItem adds itemID to, or removes it from, the habit's
// completed items for day.
func (s *CompletionStore) ToggleChecklistItem(ctx context.Context, weekKey, habitID string, day models.DayKey, itemID string) error {
	if err := checkTarget(weekKey, habitID, day); err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}
	return s.mutate(ctx, func(base models.Completions) (models.Completions, bool, error) {
		hw := base.HabitWeek(weekKey, habitID).ToggleItem(day, itemID)
		return base.With(weekKey, habitID, hw), true, nil
	})
}

// ToggleHabitDone flips the habit's done flag for day. Checklist state is untouched.
func (s *CompletionStore) ToggleHabitDone(ctx context.Context, weekKey, habitID string, day models.DayKey) error {
	if err := checkTarget(weekKey, habitID, day); err != nil {
		return err
	}
	return s.mutate(ctx, func(base models.Completions) (models.Completions, bool, error) {
		hw := base.HabitWeek(weekKey, habitID).ToggleDone(day)
		return base.With(weekKey, habitID, hw), true, nil
	})
}

func checkTarget(weekKey, habitID string, day models.DayKey) error {
	if _, err := week.ParseKey(weekKey); err != nil {
		return err
	}
	if habitID == "" {
		return fmt.Errorf("habit id is required")
	}
	if !day.Valid() {
		return fmt.Errorf("%w: %q", validation.ErrInvalidDay, day)
	}
	return nil
}
