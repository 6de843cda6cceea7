// Package streak tracks consecutive days of practice.
//
// Days are calendar days in UTC. A submission close to midnight may land on a
// different day than the learner sees locally; that is accepted.
package streak

import (
	"time"
)

const dayLayout = "2006-01-02"

// Day is a UTC calendar day formatted as 2006-01-02. The zero value means no day.
type Day string

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayLayout))
}

// Today returns the current UTC calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses a 2006-01-02 formatted day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", err
	}
	return DayOf(t), nil
}

// AddDays returns the day n days after d. It returns the zero Day if d is not valid.
func (d Day) AddDays(n int) Day {
	t, ok := d.time()
	if !ok {
		return ""
	}
	return DayOf(t.AddDate(0, 0, n))
}

func (d Day) time() (time.Time, bool) {
	if d == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// State is the persisted streak of one user.
type State struct {
	Count      int `json:"count"`
	LastActive Day `json:"last_active,omitempty"`
}

// Advance records activity on today and returns the new state:
//   - activity already recorded today leaves the state unchanged,
//   - activity the day after LastActive extends the streak by one,
//   - anything else starts a new streak of 1. This includes a LastActive that
//     is missing, unparsable or later than today.
func Advance(today Day, st State) State {
	if st.LastActive != "" && st.LastActive == today {
		return st
	}

	if yesterday := today.AddDays(-1); yesterday != "" && st.LastActive == yesterday {
		return State{Count: st.Count + 1, LastActive: today}
	}

	return State{Count: 1, LastActive: today}
}

// Current returns the streak as it should be displayed on today: the stored
// count while it can still be extended, 0 once a day has been missed.
func Current(today Day, st State) int {
	if st.LastActive == "" {
		return 0
	}
	if st.LastActive == today || st.LastActive == today.AddDays(-1) {
		return st.Count
	}
	return 0
}
