package board

import (
	"context"
	"time"

	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage"
	"github.com/julianstephens/habitboard/internal/week"
)

// Board pairs the habit and completion stores for one identity provider.
type Board struct {
	Habits      *HabitStore
	Completions *CompletionStore
}

// New creates both stores over the same document store and identity.
func New(store storage.DocumentStore, id identity.Provider, opts ...Option) *Board {
	return &Board{
		Habits:      NewHabitStore(store, id, opts...),
		Completions: NewCompletionStore(store, id, opts...),
	}
}

func (b *Board) Start(ctx context.Context) {
	b.Habits.Start(ctx)
	b.Completions.Start(ctx)
}

func (b *Board) Close() {
	b.Habits.Close()
	b.Completions.Close()
}

// WaitSynced waits for both stores to apply their first snapshot.
func (b *Board) WaitSynced(ctx context.Context) error {
	if err := b.Habits.WaitSynced(ctx); err != nil {
		return err
	}
	return b.Completions.WaitSynced(ctx)
}

// OnChange registers fn on both stores.
func (b *Board) OnChange(fn func()) {
	b.Habits.OnChange(fn)
	b.Completions.OnChange(fn)
}

// Data is the full synced state of a board.
type Data struct {
	UserID      string             `json:"userId"`
	Habits      []models.Habit     `json:"habits"`
	Completions models.Completions `json:"completions"`
}

// Data returns a copy of the board's current state.
func (b *Board) Data() Data {
	return Data{
		UserID:      b.Habits.UserID(),
		Habits:      b.Habits.Habits(),
		Completions: b.Completions.Completions(),
	}
}

// Card is one habit as shown in a day column.
type Card struct {
	Habit     models.Habit  `json:"habit"`
	Completed []string      `json:"completedItems"`
	Done      bool          `json:"done"`
	Progress  week.Progress `json:"progress"`
}

// Column is one day of the weekly board with the habits scheduled on it.
type Column struct {
	week.Day
	Cards []Card `json:"cards"`
}

// WeekView is the rendered board for one week.
type WeekView struct {
	Week    string   `json:"week"`
	Columns []Column `json:"columns"`
}

// Week builds the board for weekKey. Day dates use today's location.
func (b *Board) Week(weekKey string, today time.Time) (WeekView, error) {
	monday, err := week.ParseKeyIn(weekKey, today.Location())
	if err != nil {
		return WeekView{}, err
	}
	habits := b.Habits.Habits()
	records := b.Completions.Week(weekKey)

	view := WeekView{Week: weekKey}
	for _, day := range week.DaysAt(monday, today) {
		col := Column{Day: day, Cards: []Card{}}
		for _, h := range habits {
			if !h.AppliesTo(day.Key) {
				continue
			}
			record, ok := records[h.ID]
			if !ok {
				record = models.NewHabitWeek()
			}
			completed := record.Completed(day.Key)
			col.Cards = append(col.Cards, Card{
				Habit:     h,
				Completed: completed,
				Done:      record.Done(day.Key),
				Progress:  week.CalculateProgress(completed, len(h.ChecklistTemplate)),
			})
		}
		view.Columns = append(view.Columns, col)
	}
	return view, nil
}
