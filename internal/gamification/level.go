// Package gamification derives XP, levels, streaks and achievement unlocks
// from a user's completed quiz sessions.
//
// Stats are always rebuilt from the full list of completed sessions and
// upserted, never incremented, so a concurrent or repeated completion
// converges on the next recomputation.
package gamification

import (
	"database/sql"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

const XPPerLevel = 500

// CalculateLevel returns floor(xp/500)+1. Negative xp counts as zero.
func CalculateLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// BuildStats folds completed sessions into a UserStats row.
func BuildStats(userID string, totals []model.CompletedTotals, now time.Time) model.UserStats {
	xp := 0
	completions := make([]time.Time, 0, len(totals))
	var last time.Time
	for _, t := range totals {
		xp += t.TotalPoints + t.BonusXP
		completions = append(completions, t.CompletedAt)
		if t.CompletedAt.After(last) {
			last = t.CompletedAt
		}
	}
	streaks := CalculateStreaks(completions, now)

	st := model.UserStats{
		UserID:        userID,
		TotalXP:       xp,
		CurrentLevel:  CalculateLevel(xp),
		CurrentStreak: streaks.Current,
		LongestStreak: streaks.Longest,
		UpdatedAt:     now.UTC(),
	}
	if !last.IsZero() {
		st.LastQuizDate = sql.NullTime{Time: truncateDay(last), Valid: true}
	}
	return st
}
