// Package analytics turns question attempt logs into per-chapter, per-day and
// per-question performance reports.
package analytics

import (
	"fmt"
	"sort"

	"github.com/emandor/pbe_journey/internal/model"
)

type Group struct {
	Key              string  `json:"key"`
	Book             string  `json:"book,omitempty"`
	Chapter          int     `json:"chapter,omitempty"`
	Day              string  `json:"day,omitempty"`
	QuestionID       string  `json:"question_id,omitempty"`
	Total            int     `json:"total"`
	Correct          int     `json:"correct"`
	Accuracy         float64 `json:"accuracy"`
	AverageTime      float64 `json:"average_time"`
	PointsEfficiency float64 `json:"points_efficiency"`

	timeSum        int
	pointsEarned   int
	pointsPossible int
}

func (g *Group) add(l model.AttemptLog) {
	g.Total++
	if l.Correct {
		g.Correct++
	}
	g.timeSum += l.TimeSpent
	g.pointsEarned += l.PointsEarned
	g.pointsPossible += l.PointsPossible
}

func (g *Group) finish() {
	g.Accuracy = ratio(g.Correct, g.Total)
	g.AverageTime = ratio(g.timeSum, g.Total)
	g.PointsEfficiency = ratio(g.pointsEarned, g.pointsPossible)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// groupBy buckets logs by key and returns the groups weakest first: ascending
// accuracy, ties broken by key.
func groupBy(logs []model.AttemptLog, key func(model.AttemptLog) string, seed func(*Group, model.AttemptLog)) []Group {
	byKey := map[string]*Group{}
	for _, l := range logs {
		k := key(l)
		g, ok := byKey[k]
		if !ok {
			g = &Group{Key: k}
			seed(g, l)
			byKey[k] = g
		}
		g.add(l)
	}
	out := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		g.finish()
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func ByChapter(logs []model.AttemptLog) []Group {
	return groupBy(logs,
		func(l model.AttemptLog) string { return fmt.Sprintf("%s %d", l.Book, l.Chapter) },
		func(g *Group, l model.AttemptLog) { g.Book, g.Chapter = l.Book, l.Chapter })
}

// ByDay buckets by the UTC calendar day the answer was recorded.
func ByDay(logs []model.AttemptLog) []Group {
	day := func(l model.AttemptLog) string { return l.CreatedAt.UTC().Format("2006-01-02") }
	return groupBy(logs, day, func(g *Group, l model.AttemptLog) { g.Day = day(l) })
}

func ByQuestion(logs []model.AttemptLog) []Group {
	return groupBy(logs,
		func(l model.AttemptLog) string { return l.QuestionID },
		func(g *Group, l model.AttemptLog) { g.QuestionID, g.Book, g.Chapter = l.QuestionID, l.Book, l.Chapter })
}

type Summary struct {
	Sessions       int     `json:"sessions"`
	Attempts       int     `json:"attempts"`
	Correct        int     `json:"correct"`
	Accuracy       float64 `json:"accuracy"`
	TotalPoints    int     `json:"total_points"`
	TotalTimeSpent int     `json:"total_time_spent"`
	ActiveDays     int     `json:"active_days"`
}

// Summarize reports overall performance and engagement. Points and active
// days come from the sessions so a session with no logged answers still
// counts.
func Summarize(sessions []model.QuizSession, logs []model.AttemptLog) Summary {
	s := Summary{Sessions: len(sessions), Attempts: len(logs)}
	days := map[string]struct{}{}
	for _, qs := range sessions {
		s.TotalPoints += qs.TotalPoints
		s.TotalTimeSpent += qs.TotalTimeSpent
		if qs.CompletedAt.Valid {
			days[qs.CompletedAt.Time.UTC().Format("2006-01-02")] = struct{}{}
		}
	}
	for _, l := range logs {
		if l.Correct {
			s.Correct++
		}
	}
	s.Accuracy = ratio(s.Correct, s.Attempts)
	s.ActiveDays = len(days)
	return s
}
