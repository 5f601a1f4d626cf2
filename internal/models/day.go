package models

import (
	"fmt"
	"strings"
)

// DayKey identifies a weekday within a week's completion record.
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"
)

// AllDays lists the day keys Monday first.
var AllDays = []DayKey{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d is one of the seven weekday keys.
func (d DayKey) Valid() bool {
	for _, k := range AllDays {
		if d == k {
			return true
		}
	}
	return false
}

// Label returns the three-letter label, e.g. "Mon".
func (d DayKey) Label() string {
	if !d.Valid() {
		return string(d)
	}
	s := string(d)
	return strings.ToUpper(s[:1]) + s[1:3]
}

// ParseDayKey accepts full weekday names and three-letter abbreviations, case-insensitive.
func ParseDayKey(s string) (DayKey, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, k := range AllDays {
		if s == string(k) || (len(s) == 3 && strings.HasPrefix(string(k), s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid day: %q", s)
}
