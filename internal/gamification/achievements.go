package gamification

import "github.com/emandor/pbe_journey/internal/model"

// Progress is the set of aggregates achievement criteria are checked against.
type Progress struct {
	CompletedQuizzes int
	TotalXP          int
	LongestStreak    int
}

// Meets reports whether p satisfies a. known is false for criteria types this
// build does not understand.
func Meets(a model.Achievement, p Progress) (met, known bool) {
	switch a.CriteriaType {
	case model.CriteriaQuizzesCompleted:
		return p.CompletedQuizzes >= a.Threshold, true
	case model.CriteriaPointsEarned:
		return p.TotalXP >= a.Threshold, true
	case model.CriteriaLongestStreak:
		return p.LongestStreak >= a.Threshold, true
	}
	return false, false
}
