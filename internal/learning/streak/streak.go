// Package streak counts consecutive calendar days of learning activity.
package streak

import (
	"time"
)

const dayLayout = "2006-01-02"

// Day is the calendar day of t in loc, formatted YYYY-MM-DD.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// Compute returns the number of consecutive days ending today (in loc) on
// which at least one activity happened. No activity today means 0.
func Compute(days []string, today time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	set := make(map[string]struct{}, len(days))
	for _, d := range days {
		if d != "" {
			set[d] = struct{}{}
		}
	}
	if len(set) == 0 {
		return 0
	}
	y, m, d := today.In(loc).Date()
	cursor := time.Date(y, m, d, 12, 0, 0, 0, loc)
	n := 0
	for {
		if _, ok := set[cursor.Format(dayLayout)]; !ok {
			return n
		}
		n++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// ComputeFromTimes is Compute over raw activity instants.
func ComputeFromTimes(times []time.Time, today time.Time, loc *time.Location) int {
	days := make([]string, 0, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		days = append(days, Day(t, loc))
	}
	return Compute(days, today, loc)
}

// Advance is the incremental rule used by heartbeats: same day keeps the
// streak, the next day extends it, a gap or no prior activity restarts at 1.
// An event older than the previous activity day leaves the streak unchanged.
// It returns the new streak and the new last-active instant.
func Advance(prevStreak int, prevActive *time.Time, now time.Time, loc *time.Location) (int, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	if prevActive == nil || prevActive.IsZero() || prevStreak <= 0 {
		return 1, now
	}
	prevDay := midnight(*prevActive, loc)
	today := midnight(now, loc)
	switch {
	case today.Equal(prevDay):
		return prevStreak, latest(*prevActive, now)
	case today.Before(prevDay):
		return prevStreak, *prevActive
	case prevDay.AddDate(0, 0, 1).Equal(today):
		return prevStreak + 1, now
	default:
		return 1, now
	}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
