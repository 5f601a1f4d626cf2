package week

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/julianstephens/habitboard/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "mid week", in: date(2026, time.January, 29), want: "2026-W05"},
		{name: "jan 1 belongs to previous year", in: date(2027, time.January, 1), want: "2026-W53"},
		{name: "late december belongs to next year", in: date(2024, time.December, 30), want: "2025-W01"},
		{name: "sunday closes the week", in: date(2026, time.February, 1), want: "2026-W05"},
		{name: "monday opens the week", in: date(2026, time.January, 26), want: "2026-W05"},
		{name: "single digit week is padded", in: date(2026, time.January, 5), want: "2026-W02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.in); got != tt.want {
				t.Errorf("Key(%s) = %q, want %q", tt.in.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestKeyMatchesISOWeekAcrossYears(t *testing.T) {
	start := time.Date(2019, time.December, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 365*8; i++ {
		d := start.AddDate(0, 0, i)
		y, w := d.ISOWeek()
		want := fmt.Sprintf("%d-W%02d", y, w)
		if got := Key(d); got != want {
			t.Fatalf("Key(%s) = %q, want %q", d.Format("2006-01-02"), got, want)
		}
	}
}

func TestKeySameForWholeWeek(t *testing.T) {
	monday := date(2026, time.October, 12)
	want := Key(monday.AddDate(0, 0, 3))
	for i := 0; i < 7; i++ {
		if got := Key(monday.AddDate(0, 0, i)); got != want {
			t.Errorf("day %d of week: Key = %q, want %q", i, got, want)
		}
	}
}

func TestParseKey(t *testing.T) {
	got, err := ParseKeyIn("2026-W05", time.UTC)
	if err != nil {
		t.Fatalf("ParseKeyIn() error: %v", err)
	}
	want := time.Date(2026, time.January, 26, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseKeyIn() = %s, want %s", got, want)
	}

	got, err = ParseKeyIn("2026-W53", time.UTC)
	if err != nil {
		t.Fatalf("2026 has 53 weeks: %v", err)
	}
	if Key(got) != "2026-W53" {
		t.Errorf("round trip = %q", Key(got))
	}

	invalid := []string{"", "2026", "2026-05", "2026-W5", "2026-W00", "2025-W53", "abcd-W01", "2026-Wxx"}
	for _, in := range invalid {
		if _, err := ParseKeyIn(in, time.UTC); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKeyIn(%q) error = %v, want ErrInvalidKey", in, err)
		}
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		key  string
		n    int
		want string
	}{
		{"2026-W05", 1, "2026-W06"},
		{"2026-W05", -1, "2026-W04"},
		{"2026-W53", 1, "2027-W01"},
		{"2026-W01", -1, "2025-W52"},
		{"2026-W10", 0, "2026-W10"},
	}
	for _, tt := range tests {
		got, err := Shift(tt.key, tt.n)
		if err != nil {
			t.Fatalf("Shift(%q, %d) error: %v", tt.key, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("Shift(%q, %d) = %q, want %q", tt.key, tt.n, got, tt.want)
		}
	}
}

func TestDaysAt(t *testing.T) {
	ref := date(2026, time.January, 28) // Wednesday
	today := date(2026, time.January, 30)

	days := DaysAt(ref, today)
	if len(days) != 7 {
		t.Fatalf("got %d days, want 7", len(days))
	}
	if days[0].Key != models.Monday || days[6].Key != models.Sunday {
		t.Errorf("week should run monday..sunday, got %s..%s", days[0].Key, days[6].Key)
	}
	if days[0].DateStr != "Jan 26" || days[6].DateStr != "Feb 1" {
		t.Errorf("unexpected date strings %q %q", days[0].DateStr, days[6].DateStr)
	}
	if days[0].Label != "Mon" {
		t.Errorf("label = %q", days[0].Label)
	}

	todayCount := 0
	for _, d := range days {
		if d.IsToday {
			todayCount++
			if d.Key != models.Friday {
				t.Errorf("today flagged on %s, want friday", d.Key)
			}
		}
	}
	if todayCount != 1 {
		t.Errorf("IsToday set on %d days, want 1", todayCount)
	}
}

func TestDaysAtOtherWeekHasNoToday(t *testing.T) {
	days := DaysAt(date(2026, time.March, 4), date(2026, time.January, 30))
	for _, d := range days {
		if d.IsToday {
			t.Errorf("unexpected IsToday on %s", d.Key)
		}
	}
}

func TestDaysAtSundayReference(t *testing.T) {
	days := DaysAt(date(2026, time.February, 1), date(2026, time.February, 1))
	if days[0].Date.Day() != 26 || days[0].Date.Month() != time.January {
		t.Errorf("monday = %s, want Jan 26", days[0].Date.Format("Jan 2"))
	}
	if !days[6].IsToday {
		t.Error("sunday should be today")
	}
}

func TestDayKeyOf(t *testing.T) {
	if got := DayKeyOf(date(2026, time.February, 1)); got != models.Sunday {
		t.Errorf("DayKeyOf(sunday) = %s", got)
	}
	if got := DayKeyOf(date(2026, time.January, 26)); got != models.Monday {
		t.Errorf("DayKeyOf(monday) = %s", got)
	}
}

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed []string
		total     int
		want      Progress
	}{
		{name: "no checklist", completed: nil, total: 0, want: Progress{"0/0", 0}},
		{name: "orphans with no checklist", completed: []string{"gone"}, total: 0, want: Progress{"0/0", 0}},
		{name: "half", completed: []string{"a", "b"}, total: 4, want: Progress{"2/4", 50}},
		{name: "rounds down", completed: []string{"a"}, total: 3, want: Progress{"1/3", 33}},
		{name: "rounds up", completed: []string{"a", "b"}, total: 3, want: Progress{"2/3", 67}},
		{name: "half rounds up", completed: []string{"a"}, total: 8, want: Progress{"1/8", 13}},
		{name: "complete", completed: []string{"a", "b", "c"}, total: 3, want: Progress{"3/3", 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateProgress(tt.completed, tt.total); got != tt.want {
				t.Errorf("CalculateProgress(%v, %d) = %+v, want %+v", tt.completed, tt.total, got, tt.want)
			}
		})
	}
}
