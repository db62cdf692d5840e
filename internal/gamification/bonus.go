package gamification

import "time"

const OnTimeBonusXP = 10

// SameDay compares UTC calendar days.
func SameDay(a, b time.Time) bool {
	return truncateDay(a).Equal(truncateDay(b))
}

// BonusXP awards OnTimeBonusXP when an assignment's quiz is completed on the
// assignment's scheduled day. Early and late completions earn nothing.
func BonusXP(assignmentDate, completedAt time.Time) int {
	if SameDay(assignmentDate, completedAt) {
		return OnTimeBonusXP
	}
	return 0
}
