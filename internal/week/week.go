// Package week computes ISO week keys and the weekday descriptors a board renders.
package week

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/models"
)

// ErrInvalidKey is returned when a string is not a valid ISO week key.
var ErrInvalidKey = errors.New("invalid week key")

// Day describes one column of the weekly board.
type Day struct {
	Key     models.DayKey `json:"key"`
	Label   string        `json:"label"`
	Date    time.Time     `json:"date"`
	DateStr string        `json:"dateStr"`
	IsToday bool          `json:"isToday"`
}

// Progress is the checklist completion summary for a habit on a day.
type Progress struct {
	Fraction string `json:"fraction"`
	Percent  int    `json:"percent"`
}

// Key returns the ISO-8601 week key (e.g. "2026-W05") for the week containing t.
// The week belongs to the year of its Thursday. Computed in t's location.
func Key(t time.Time) string {
	thursday := midnight(t).AddDate(0, 0, 4-isoWeekday(t))
	weekNum := (thursday.YearDay() + 6) / 7
	return fmt.Sprintf("%d-W%02d", thursday.Year(), weekNum)
}

// Current returns the week key for now in the local timezone.
func Current() string {
	return Key(time.Now())
}

// ParseKey returns local midnight on the Monday of the week named by key.
func ParseKey(key string) (time.Time, error) {
	return ParseKeyIn(key, time.Local)
}

// ParseKeyIn is ParseKey for an explicit location.
func ParseKeyIn(key string, loc *time.Location) (time.Time, error) {
	yearStr, weekStr, ok := strings.Cut(strings.TrimSpace(key), "-W")
	if !ok || len(yearStr) != 4 || len(weekStr) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-Www)", ErrInvalidKey, key)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: bad year", ErrInvalidKey, key)
	}
	num, err := strconv.Atoi(weekStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: bad week number", ErrInvalidKey, key)
	}
	if num < 1 || num > weeksInYear(year, loc) {
		return time.Time{}, fmt.Errorf("%w: %q: year %d has no week %d", ErrInvalidKey, key, year, num)
	}

	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	monday := jan4.AddDate(0, 0, 1-isoWeekday(jan4))
	return monday.AddDate(0, 0, (num-1)*7), nil
}

// Shift returns the key n weeks after key (n may be negative).
func Shift(key string, n int) (string, error) {
	monday, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	return Key(monday.AddDate(0, 0, 7*n)), nil
}

// Days returns the seven descriptors, Monday first, for the week containing ref.
// IsToday is judged against the real current date.
func Days(ref time.Time) []Day {
	return DaysAt(ref, time.Now())
}

// DaysAt is Days with an explicit "today".
func DaysAt(ref, today time.Time) []Day {
	monday := midnight(ref).AddDate(0, 0, 1-isoWeekday(ref))

	days := make([]Day, 0, len(models.AllDays))
	for i, key := range models.AllDays {
		date := monday.AddDate(0, 0, i)
		days = append(days, Day{
			Key:     key,
			Label:   key.Label(),
			Date:    date,
			DateStr: date.Format(constants.DayLabelFormat),
			IsToday: sameDay(date, today),
		})
	}
	return days
}

// DayKeyOf returns the day key for t's weekday.
func DayKeyOf(t time.Time) models.DayKey {
	return models.AllDays[isoWeekday(t)-1]
}

// CalculateProgress summarizes completed checklist items against the template size.
// A habit with no checklist reports 0/0 and 0%.
func CalculateProgress(completed []string, total int) Progress {
	if total <= 0 {
		return Progress{Fraction: "0/0", Percent: 0}
	}
	n := len(completed)
	percent := int(math.Floor(float64(n)/float64(total)*100 + 0.5))
	return Progress{
		Fraction: fmt.Sprintf("%d/%d", n, total),
		Percent:  percent,
	}
}

// isoWeekday maps Sunday to 7 so weeks run Monday(1)..Sunday(7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// weeksInYear is 53 when December 28th falls in week 53, else 52.
func weeksInYear(year int, loc *time.Location) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, loc).ISOWeek()
	return w
}
