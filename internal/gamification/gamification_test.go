package gamification

import (
	"testing"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestCalculateLevel(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 499: 1, 500: 2, 999: 2, 1000: 3, 2750: 6, -10: 1}
	for xp, want := range cases {
		if got := CalculateLevel(xp); got != want {
			t.Fatalf("CalculateLevel(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestCalculateStreaks(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	ago := func(days int) time.Time { return now.AddDate(0, 0, -days) }

	cases := []struct {
		name string
		in   []time.Time
		want Streaks
	}{
		{"none", nil, Streaks{}},
		{"single today", []time.Time{now}, Streaks{Current: 1, Longest: 1}},
		{"three consecutive", []time.Time{ago(0), ago(1), ago(2)}, Streaks{Current: 3, Longest: 3}},
		{"stale single", []time.Time{ago(3)}, Streaks{Current: 0, Longest: 1}},
		{"broken history", []time.Time{ago(0), ago(5), ago(6), ago(7)}, Streaks{Current: 1, Longest: 3}},
		{"ends yesterday", []time.Time{ago(1), ago(2)}, Streaks{Current: 2, Longest: 2}},
		{"unordered with duplicates", []time.Time{ago(2), ago(0), ago(1), ago(0).Add(-time.Hour), ago(1)}, Streaks{Current: 3, Longest: 3}},
		{"gap of two days", []time.Time{ago(2), ago(3)}, Streaks{Current: 0, Longest: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateStreaks(tc.in, now); got != tc.want {
				t.Fatalf("CalculateStreaks = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCalculateStreaksUsesUTCDays(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST on the 14th is 04:30 UTC on the 15th.
	late := time.Date(2024, 3, 14, 23, 30, 0, 0, est)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	got := CalculateStreaks([]time.Time{late, now}, now)
	if got.Current != 1 || got.Longest != 1 {
		t.Fatalf("both timestamps are the same UTC day, got %+v", got)
	}
}

func TestBonusXP(t *testing.T) {
	scheduled := day(t, "2024-01-10 00:00")
	if got := BonusXP(scheduled, day(t, "2024-01-10 21:15")); got != OnTimeBonusXP {
		t.Fatalf("same day bonus = %d, want %d", got, OnTimeBonusXP)
	}
	if got := BonusXP(scheduled, day(t, "2024-01-11 00:01")); got != 0 {
		t.Fatalf("late bonus = %d, want 0", got)
	}
	if got := BonusXP(scheduled, day(t, "2024-01-09 23:59")); got != 0 {
		t.Fatalf("early bonus = %d, want 0", got)
	}
	for i := 0; i < 3; i++ {
		if got := BonusXP(scheduled, day(t, "2024-01-10 08:00")); got != OnTimeBonusXP {
			t.Fatalf("repeat %d bonus = %d", i, got)
		}
	}
}

func TestBuildStatsSumsPointsAndBonus(t *testing.T) {
	now := day(t, "2024-01-12 10:00")
	totals := []model.CompletedTotals{
		{SessionID: "a", TotalPoints: 80, BonusXP: 10, CompletedAt: day(t, "2024-01-10 09:00")},
		{SessionID: "b", TotalPoints: 300, CompletedAt: day(t, "2024-01-11 09:00")},
		{SessionID: "c", TotalPoints: 120, CompletedAt: day(t, "2024-01-12 09:00")},
	}
	st := BuildStats("u1", totals, now)
	if st.TotalXP != 510 {
		t.Fatalf("TotalXP = %d, want 510", st.TotalXP)
	}
	if st.CurrentLevel != 2 {
		t.Fatalf("CurrentLevel = %d, want 2", st.CurrentLevel)
	}
	if st.CurrentStreak != 3 || st.LongestStreak != 3 {
		t.Fatalf("streaks = %d/%d, want 3/3", st.CurrentStreak, st.LongestStreak)
	}
	if !st.LastQuizDate.Valid || !st.LastQuizDate.Time.Equal(day(t, "2024-01-12 00:00")) {
		t.Fatalf("LastQuizDate = %+v", st.LastQuizDate)
	}

	empty := BuildStats("u1", nil, now)
	if empty.TotalXP != 0 || empty.CurrentLevel != 1 || empty.LastQuizDate.Valid {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestMeets(t *testing.T) {
	p := Progress{CompletedQuizzes: 5, TotalXP: 1200, LongestStreak: 4}
	cases := []struct {
		a          model.Achievement
		met, known bool
	}{
		{model.Achievement{CriteriaType: model.CriteriaQuizzesCompleted, Threshold: 5}, true, true},
		{model.Achievement{CriteriaType: model.CriteriaQuizzesCompleted, Threshold: 6}, false, true},
		{model.Achievement{CriteriaType: model.CriteriaPointsEarned, Threshold: 1000}, true, true},
		{model.Achievement{CriteriaType: model.CriteriaLongestStreak, Threshold: 7}, false, true},
		{model.Achievement{CriteriaType: "perfect_score", Threshold: 1}, false, false},
	}
	for _, tc := range cases {
		met, known := Meets(tc.a, p)
		if met != tc.met || known != tc.known {
			t.Fatalf("Meets(%s>=%d) = (%v,%v), want (%v,%v)", tc.a.CriteriaType, tc.a.Threshold, met, known, tc.met, tc.known)
		}
	}
}
