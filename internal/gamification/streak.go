package gamification

import (
	"sort"
	"time"
)

type Streaks struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CalculateStreaks counts consecutive UTC calendar days with at least one
// completion. Longest is the longest run anywhere in history; Current is
// the run that ends on the most recent day, and only when that day is today
// or yesterday relative to now.
func CalculateStreaks(completions []time.Time, now time.Time) Streaks {
	if len(completions) == 0 {
		return Streaks{}
	}

	seen := make(map[time.Time]struct{}, len(completions))
	days := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		d := truncateDay(c)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	longest, run := 1, 1
	firstRun := 0
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			run++
		} else {
			if firstRun == 0 {
				firstRun = run
			}
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	if firstRun == 0 {
		firstRun = run
	}

	today := truncateDay(now)
	current := 0
	if gap := today.Sub(days[0]); gap == 0 || gap == 24*time.Hour {
		current = firstRun
	}
	return Streaks{Current: current, Longest: longest}
}
