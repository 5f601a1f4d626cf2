package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/habitboard/internal/board"
	"github.com/julianstephens/habitboard/internal/identity"
	"github.com/julianstephens/habitboard/internal/models"
	"github.com/julianstephens/habitboard/internal/storage/memory"
)

// Wednesday of 2026-W05
var fixedNow = time.Date(2026, time.January, 28, 9, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func clock() time.Time { return fixedNow }

func newTestServer(t *testing.T) (*Server, *board.Board) {
	t.Helper()
	store := memory.New()
	session := identity.NewSession("tester")
	b := board.New(store, session, board.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	t.Cleanup(func() {
		cancel()
		b.Close()
		store.Close()
	})
	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := b.WaitSynced(waitCtx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}
	return New(b, session, WithClock(clock)), b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createHabit(t *testing.T, s *Server, b *board.Board, body gin.H) models.Habit {
	t.Helper()
	before := len(b.Habits.Habits())
	w := do(t, s, http.MethodPost, "/api/habits", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var habit models.Habit
	if err := json.Unmarshal(w.Body.Bytes(), &habit); err != nil {
		t.Fatalf("decoding habit: %v", err)
	}
	waitFor(t, "habit to sync", func() bool { return len(b.Habits.Habits()) > before })
	return habit
}

func TestSignedOutIsUnauthorized(t *testing.T) {
	store := memory.New()
	defer store.Close()
	b := board.New(store, identity.NewSession(""))
	s := New(b, identity.NewSession(""))

	w := do(t, s, http.MethodGet, "/api/habits", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCreateAndListHabits(t *testing.T) {
	s, b := newTestServer(t)

	habit := createHabit(t, s, b, gin.H{
		"title":             "Stretch",
		"days":              []string{"mon", "wednesday"},
		"checklistTemplate": []string{"Neck", "Back"},
	})
	if habit.ID == "" || habit.Title != "Stretch" {
		t.Fatalf("unexpected habit %+v", habit)
	}
	if len(habit.ChecklistTemplate) != 2 {
		t.Errorf("checklist = %v, want 2 items", habit.ChecklistTemplate)
	}

	w := do(t, s, http.MethodGet, "/api/habits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp struct {
		Habits []models.Habit `json:"habits"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(resp.Habits) != 1 || resp.Habits[0].ID != habit.ID {
		t.Errorf("habits = %+v", resp.Habits)
	}
}

func TestCreateHabitRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"empty title", gin.H{"title": "   "}},
		{"bad color", gin.H{"title": "Read", "color": "blue"}},
		{"bad day", gin.H{"title": "Read", "days": []string{"someday"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/habits", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (body %s)", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestUnknownHabitIsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPatch, "/api/habits/missing", gin.H{"title": "x"}},
		{http.MethodDelete, "/api/habits/missing", nil},
		{http.MethodPost, "/api/habits/missing/items", gin.H{"label": "x"}},
		{http.MethodDelete, "/api/habits/missing/items/abc", nil},
	}
	for _, tt := range tests {
		w := do(t, s, tt.method, tt.path, tt.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, http.StatusNotFound)
		}
	}
}

func TestUpdateAndDeleteHabit(t *testing.T) {
	s, b := newTestServer(t)
	habit := createHabit(t, s, b, gin.H{"title": "Read"})

	w := do(t, s, http.MethodPatch, "/api/habits/"+habit.ID, gin.H{"title": "Read more", "days": []string{"fri"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch status = %d, body %s", w.Code, w.Body.String())
	}
	waitFor(t, "rename", func() bool {
		h, ok := b.Habits.Habit(habit.ID)
		return ok && h.Title == "Read more" && len(h.Days) == 1 && h.Days[0] == models.Friday
	})

	w = do(t, s, http.MethodDelete, "/api/habits/"+habit.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	waitFor(t, "delete", func() bool { return len(b.Habits.Habits()) == 0 })
}

func TestChecklistItems(t *testing.T) {
	s, b := newTestServer(t)
	habit := createHabit(t, s, b, gin.H{"title": "Stretch"})

	w := do(t, s, http.MethodPost, "/api/habits/"+habit.ID+"/items", gin.H{"label": "Neck"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add item status = %d, body %s", w.Code, w.Body.String())
	}
	var item models.ChecklistItem
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("decoding item: %v", err)
	}
	waitFor(t, "item", func() bool {
		h, _ := b.Habits.Habit(habit.ID)
		return h.HasItem(item.ID)
	})

	w = do(t, s, http.MethodPost, "/api/habits/"+habit.ID+"/items", gin.H{"label": " "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank label status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = do(t, s, http.MethodDelete, "/api/habits/"+habit.ID+"/items/"+item.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove item status = %d", w.Code)
	}
	waitFor(t, "item removal", func() bool {
		h, _ := b.Habits.Habit(habit.ID)
		return !h.HasItem(item.ID)
	})
}

func TestReorderHabits(t *testing.T) {
	s, b := newTestServer(t)
	first := createHabit(t, s, b, gin.H{"title": "First"})
	second := createHabit(t, s, b, gin.H{"title": "Second"})

	w := do(t, s, http.MethodPost, "/api/habits/reorder", gin.H{"draggedId": second.ID, "targetId": first.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("reorder status = %d, body %s", w.Code, w.Body.String())
	}
	waitFor(t, "reorder", func() bool {
		habits := b.Habits.Habits()
		return len(habits) == 2 && habits[0].ID == second.ID
	})

	w = do(t, s, http.MethodPost, "/api/habits/reorder", gin.H{"draggedId": second.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing target status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestWeekAndToggles(t *testing.T) {
	s, b := newTestServer(t)
	habit := createHabit(t, s, b, gin.H{"title": "Stretch", "checklistTemplate": []string{"Neck", "Back"}})
	neck := habit.ChecklistTemplate[0].ID

	w := do(t, s, http.MethodPost, "/api/weeks/2026-W05/habits/"+habit.ID+"/days/wed/items/"+neck+"/toggle", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("toggle item status = %d, body %s", w.Code, w.Body.String())
	}
	waitFor(t, "item toggle", func() bool {
		return len(b.Completions.CompletedItems("2026-W05", habit.ID, models.Wednesday)) == 1
	})

	w = do(t, s, http.MethodPost, "/api/weeks/current/habits/"+habit.ID+"/days/wednesday/done/toggle", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("toggle done status = %d, body %s", w.Code, w.Body.String())
	}
	waitFor(t, "done toggle", func() bool {
		return b.Completions.IsHabitDone("2026-W05", habit.ID, models.Wednesday)
	})

	w = do(t, s, http.MethodGet, "/api/weeks/current", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("week status = %d", w.Code)
	}
	var view board.WeekView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding week: %v", err)
	}
	if view.Week != "2026-W05" || len(view.Columns) != 7 {
		t.Fatalf("week = %s with %d columns", view.Week, len(view.Columns))
	}
	wed := view.Columns[2]
	if !wed.IsToday || len(wed.Cards) != 1 {
		t.Fatalf("wednesday column = %+v", wed)
	}
	card := wed.Cards[0]
	if !card.Done || card.Progress.Fraction != "1/2" || card.Progress.Percent != 50 {
		t.Errorf("card = %+v", card)
	}
}

func TestBadWeekAndDay(t *testing.T) {
	s, _ := newTestServer(t)

	paths := []string{
		"/api/weeks/2026-05",
		"/api/weeks/2027-W53",
	}
	for _, p := range paths {
		if w := do(t, s, http.MethodGet, p, nil); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want %d", p, w.Code, http.StatusBadRequest)
		}
	}

	w := do(t, s, http.MethodPost, "/api/weeks/2026-W05/habits/h1/days/funday/done/toggle", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad day status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func readEvent(t *testing.T, r *bufio.Reader) board.Data {
	t.Helper()
	var event string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if event != streamKey {
				t.Fatalf("event = %q, want %q", event, streamKey)
			}
			var data board.Data
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &data); err != nil {
				t.Fatalf("decoding event: %v", err)
			}
			return data
		}
	}
}

func TestStreamSendsBoardOnChange(t *testing.T) {
	s, b := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	first := readEvent(t, r)
	if first.UserID != "tester" || len(first.Habits) != 0 {
		t.Errorf("initial event = %+v", first)
	}

	if _, err := b.Habits.AddHabit(context.Background(), models.NewHabit{Title: "Read"}); err != nil {
		t.Fatalf("AddHabit: %v", err)
	}
	// Both stores follow the same document, so an event may arrive before
	// the habit list has caught up.
	for {
		next := readEvent(t, r)
		if len(next.Habits) == 1 {
			if next.Habits[0].Title != "Read" {
				t.Errorf("change event = %+v", next)
			}
			return
		}
	}
}
