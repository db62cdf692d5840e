package model

import (
	"database/sql"
	"testing"
	"time"
)

func TestUserStatsAsOf(t *testing.T) {
	last := time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)
	stored := UserStats{CurrentStreak: 4, LongestStreak: 6, LastQuizDate: sql.NullTime{Time: last, Valid: true}}

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same day", time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC), 4},
		{"next day", time.Date(2024, 1, 11, 23, 59, 0, 0, time.UTC), 4},
		{"gap", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), 0},
		{"non-UTC clock on next UTC day", time.Date(2024, 1, 12, 1, 0, 0, 0, time.FixedZone("WIB", 7*3600)), 4},
	}
	for _, tc := range cases {
		got := stored.AsOf(tc.now)
		if got.CurrentStreak != tc.want {
			t.Fatalf("%s: current = %d, want %d", tc.name, got.CurrentStreak, tc.want)
		}
		if got.LongestStreak != 6 {
			t.Fatalf("%s: longest = %d", tc.name, got.LongestStreak)
		}
	}

	if got := (UserStats{CurrentStreak: 2}).AsOf(last); got.CurrentStreak != 0 {
		t.Fatalf("no last quiz date: current = %d", got.CurrentStreak)
	}
}
