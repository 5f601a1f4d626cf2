package models

import (
	"encoding/json"
	"testing"
)

func TestHabitAppliesTo(t *testing.T) {
	tests := []struct {
		name string
		days []DayKey
		day  DayKey
		want bool
	}{
		{name: "no days means every day", days: nil, day: Sunday, want: true},
		{name: "empty days means every day", days: []DayKey{}, day: Monday, want: true},
		{name: "listed day", days: []DayKey{Monday, Friday}, day: Friday, want: true},
		{name: "unlisted day", days: []DayKey{Monday, Friday}, day: Tuesday, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Habit{Days: tt.days}
			if got := h.AppliesTo(tt.day); got != tt.want {
				t.Errorf("AppliesTo(%s) = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestHabitUpdateApply(t *testing.T) {
	h := Habit{ID: "h1", Title: "Read", Color: "#EF4444", Days: []DayKey{Monday}}
	title := "Read 20 pages"
	days := []DayKey{Tuesday, Thursday}

	got := HabitUpdate{Title: &title, Days: &days}.Apply(h)
	if got.Title != title {
		t.Errorf("Title = %q, want %q", got.Title, title)
	}
	if got.Color != "#EF4444" {
		t.Errorf("Color changed to %q", got.Color)
	}
	if len(got.Days) != 2 || got.Days[0] != Tuesday {
		t.Errorf("Days = %v", got.Days)
	}
	days[0] = Sunday
	if got.Days[0] != Tuesday {
		t.Error("Apply aliased the caller's slice")
	}
	if (HabitUpdate{}).IsEmpty() != true {
		t.Error("zero update should be empty")
	}
}

func TestEffectiveColor(t *testing.T) {
	if got := (Habit{}).EffectiveColor(); got != "#3B82F6" {
		t.Errorf("EffectiveColor() = %q", got)
	}
	if got := (Habit{Color: "#22C55E"}).EffectiveColor(); got != "#22C55E" {
		t.Errorf("EffectiveColor() = %q", got)
	}
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFFFFF", "#1f2937"},
		{"#F59E0B", "#1f2937"},
		{"#3B82F6", "#ffffff"},
		{"#000", "#ffffff"},
		{"#fff", "#1f2937"},
		{"not-a-color", "#ffffff"},
	}
	for _, tt := range tests {
		if got := ContrastColor(tt.in); got != tt.want {
			t.Errorf("ContrastColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDayKey(t *testing.T) {
	tests := []struct {
		in      string
		want    DayKey
		wantErr bool
	}{
		{"monday", Monday, false},
		{"Wed", Wednesday, false},
		{" SUNDAY ", Sunday, false},
		{"thu", Thursday, false},
		{"funday", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDayKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDayKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDayKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Monday.Label() != "Mon" || Sunday.Label() != "Sun" {
		t.Errorf("unexpected labels %q %q", Monday.Label(), Sunday.Label())
	}
}

func TestHabitKeepsUnknownKeys(t *testing.T) {
	input := `{"id":"h1","title":"Read","order":0,"days":["monday"],"checklistTemplate":[],"createdAt":"2026-01-28T09:30:00Z","streakGoal":30}`
	var h Habit
	if err := json.Unmarshal([]byte(input), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h.Title != "Read" {
		t.Errorf("Title = %q", h.Title)
	}
	if len(h.Extra) != 1 || string(h.Extra["streakGoal"]) != "30" {
		t.Fatalf("Extra = %v, want only streakGoal", h.Extra)
	}

	title := "Read more"
	updated := HabitUpdate{Title: &title}.Apply(h.Clone())
	data, err := json.Marshal(updated)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if string(raw["streakGoal"]) != "30" {
		t.Errorf("streakGoal lost: %s", data)
	}
	if string(raw["title"]) != `"Read more"` {
		t.Errorf("title = %s", raw["title"])
	}
}

func TestHabitWithoutUnknownKeysHasNoExtra(t *testing.T) {
	var h Habit
	if err := json.Unmarshal([]byte(`{"id":"h1","title":"Read","color":"#3B82F6"}`), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h.Extra != nil {
		t.Errorf("Extra = %v, want nil", h.Extra)
	}
}
