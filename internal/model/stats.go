package model

import (
	"database/sql"
	"time"
)

type UserStats struct {
	UserID        string       `db:"user_id" json:"user_id"`
	TotalXP       int          `db:"total_xp" json:"total_xp"`
	CurrentLevel  int          `db:"current_level" json:"current_level"`
	CurrentStreak int          `db:"current_streak" json:"current_streak"`
	LongestStreak int          `db:"longest_streak" json:"longest_streak"`
	LastQuizDate  sql.NullTime `db:"last_quiz_date" json:"-"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// AsOf ages a stored row to now. The current streak only survives while the
// last quiz day is today or yesterday in UTC; the row was computed against
// the clock of its last recompute.
func (st UserStats) AsOf(now time.Time) UserStats {
	if !st.LastQuizDate.Valid {
		st.CurrentStreak = 0
		return st
	}
	if utcDay(now).Sub(utcDay(st.LastQuizDate.Time)) > 24*time.Hour {
		st.CurrentStreak = 0
	}
	return st
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompletedTotals is the per-session input to a stats recomputation.
type CompletedTotals struct {
	SessionID   string    `db:"id"`
	TotalPoints int       `db:"total_points"`
	BonusXP     int       `db:"bonus_xp"`
	CompletedAt time.Time `db:"completed_at"`
}

type CriteriaType string

const (
	CriteriaQuizzesCompleted CriteriaType = "total_quizzes_completed"
	CriteriaPointsEarned     CriteriaType = "total_points_earned"
	CriteriaLongestStreak    CriteriaType = "longest_streak"
)

type Achievement struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Description  string       `db:"description" json:"description"`
	CriteriaType CriteriaType `db:"criteria_type" json:"criteria_type"`
	Threshold    int          `db:"threshold" json:"threshold"`
}

type UserAchievement struct {
	UserID        string    `db:"user_id" json:"user_id"`
	AchievementID string    `db:"achievement_id" json:"achievement_id"`
	Name          string    `db:"name" json:"name"`
	UnlockedAt    time.Time `db:"unlocked_at" json:"unlocked_at"`
}
