package store

import (
	"context"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

// Scope selects whose sessions analytics read: one user, or a whole team.
type Scope struct {
	UserID string
	TeamID string
	From   time.Time
	To     time.Time
}

func (s *Store) CompletedSessionsInScope(ctx context.Context, sc Scope) ([]model.QuizSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM quiz_sessions WHERE status='completed'`
	var args []any
	if sc.TeamID != "" {
		query += ` AND team_id=?`
		args = append(args, sc.TeamID)
	} else {
		query += ` AND user_id=?`
		args = append(args, sc.UserID)
	}
	if !sc.From.IsZero() {
		query += ` AND completed_at >= ?`
		args = append(args, sc.From.UTC())
	}
	if !sc.To.IsZero() {
		query += ` AND completed_at < ?`
		args = append(args, sc.To.UTC())
	}
	query += ` ORDER BY completed_at ASC`
	out := []model.QuizSession{}
	err := s.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

// AttemptLogsInScope reads the attempt logs of every completed session in
// the scope, filtered the same way as CompletedSessionsInScope.
func (s *Store) AttemptLogsInScope(ctx context.Context, sc Scope) ([]model.AttemptLog, error) {
	query := `
		SELECT l.session_id, l.user_id, l.question_id, l.book, l.chapter, l.correct, l.points_earned,
			l.points_possible, l.time_spent, l.created_at
		FROM question_attempt_logs l
		JOIN quiz_sessions qs ON qs.id = l.session_id
		WHERE qs.status='completed'`
	var args []any
	if sc.TeamID != "" {
		query += ` AND qs.team_id=?`
		args = append(args, sc.TeamID)
	} else {
		query += ` AND qs.user_id=?`
		args = append(args, sc.UserID)
	}
	if !sc.From.IsZero() {
		query += ` AND qs.completed_at >= ?`
		args = append(args, sc.From.UTC())
	}
	if !sc.To.IsZero() {
		query += ` AND qs.completed_at < ?`
		args = append(args, sc.To.UTC())
	}
	query += ` ORDER BY l.created_at ASC`
	out := []model.AttemptLog{}
	err := s.db.SelectContext(ctx, &out, query, args...)
	return out, err
}
