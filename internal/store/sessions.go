package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emandor/pbe_journey/internal/gamification"
	"github.com/emandor/pbe_journey/internal/model"
)

const sessionColumns = `id, user_id, team_id, study_assignment_id, question_ids, results,
	current_question_index, status, total_points, total_possible_points, total_time_allowance_seconds,
	total_actual_time_spent_seconds, bonus_xp, approval_status, created_at, updated_at, completed_at`

func (s *Store) CreateSession(ctx context.Context, qs model.QuizSession) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO quiz_sessions (id, user_id, team_id, study_assignment_id, question_ids, results,
			current_question_index, status, total_points, total_possible_points, total_time_allowance_seconds,
			total_actual_time_spent_seconds, created_at, updated_at)
		VALUES (:id, :user_id, :team_id, :study_assignment_id, :question_ids, :results,
			:current_question_index, :status, :total_points, :total_possible_points, :total_time_allowance_seconds,
			:total_actual_time_spent_seconds, :created_at, :updated_at)`, qs)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (model.QuizSession, error) {
	var qs model.QuizSession
	err := s.db.GetContext(ctx, &qs, `SELECT `+sessionColumns+` FROM quiz_sessions WHERE id=? LIMIT 1`, id)
	return qs, notFound(err)
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]model.QuizSession, error) {
	out := []model.QuizSession{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE user_id=? ORDER BY created_at DESC`, userID)
	return out, err
}

func (s *Store) ListSessionsByTeam(ctx context.Context, teamID string) ([]model.QuizSession, error) {
	out := []model.QuizSession{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+sessionColumns+` FROM quiz_sessions WHERE team_id=? ORDER BY created_at DESC`, teamID)
	return out, err
}

// UpdateSessionProgress writes results and the derived totals of an active
// session. Completed sessions are left untouched.
func (s *Store) UpdateSessionProgress(ctx context.Context, qs model.QuizSession) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE quiz_sessions SET
			results = :results,
			current_question_index = :current_question_index,
			total_points = :total_points,
			total_actual_time_spent_seconds = :total_actual_time_spent_seconds,
			updated_at = :updated_at
		WHERE id = :id AND status = 'active'`, qs)
	if err != nil {
		return err
	}
	return affected(res)
}

// CompleteSession flips an active session to completed. It returns
// ErrNotFound when the session is missing or already completed.
func (s *Store) CompleteSession(ctx context.Context, qs model.QuizSession) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE quiz_sessions SET
			status = 'completed',
			results = :results,
			current_question_index = :current_question_index,
			total_points = :total_points,
			total_actual_time_spent_seconds = :total_actual_time_spent_seconds,
			completed_at = :completed_at,
			updated_at = :updated_at
		WHERE id = :id AND status = 'active'`, qs)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) SetSessionBonusXP(ctx context.Context, sessionID string, bonus int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE quiz_sessions SET bonus_xp=? WHERE id=?`, bonus, sessionID)
	return err
}

func (s *Store) SetApprovalStatus(ctx context.Context, sessionID string, status model.ApprovalStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_sessions SET approval_status=?, updated_at=UTC_TIMESTAMP() WHERE id=?`, status, sessionID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) InsertAttemptLog(ctx context.Context, l model.AttemptLog) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO question_attempt_logs (session_id, user_id, question_id, book, chapter, correct,
			points_earned, points_possible, time_spent, created_at)
		VALUES (:session_id, :user_id, :question_id, :book, :chapter, :correct,
			:points_earned, :points_possible, :time_spent, :created_at)`, l)
	return err
}

// DeleteSessionAndAdjustGamification removes a session with its attempt
// logs, releases any assignment it satisfied and rebuilds the owner's stats
// from the sessions that remain, all in one transaction.
func (s *Store) DeleteSessionAndAdjustGamification(ctx context.Context, sessionID string, now time.Time) (model.UserStats, error) {
	var st model.UserStats
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var userID string
		if err := tx.GetContext(ctx, &userID, `SELECT user_id FROM quiz_sessions WHERE id=? FOR UPDATE`, sessionID); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_attempt_logs WHERE session_id=?`, sessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE id=?`, sessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE study_assignments SET completed=0, quiz_session_id=NULL WHERE quiz_session_id=?`, sessionID); err != nil {
			return err
		}

		totals, err := completedTotals(ctx, tx, userID)
		if err != nil {
			return err
		}
		st = gamification.BuildStats(userID, totals, now)
		return upsertStats(ctx, tx, st)
	})
	return st, err
}

func completedTotals(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.CompletedTotals, error) {
	out := []model.CompletedTotals{}
	err := sqlx.SelectContext(ctx, q, &out, `
		SELECT id, total_points, COALESCE(bonus_xp, 0) AS bonus_xp, completed_at
		FROM quiz_sessions
		WHERE user_id=? AND status='completed' AND completed_at IS NOT NULL`, userID)
	return out, err
}

func upsertStats(ctx context.Context, e sqlx.ExecerContext, st model.UserStats) error {
	var last any
	if st.LastQuizDate.Valid {
		last = st.LastQuizDate.Time
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, total_xp, current_level, current_streak, longest_streak, last_quiz_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_xp = VALUES(total_xp),
			current_level = VALUES(current_level),
			current_streak = VALUES(current_streak),
			longest_streak = VALUES(longest_streak),
			last_quiz_date = VALUES(last_quiz_date),
			updated_at = VALUES(updated_at)`,
		st.UserID, st.TotalXP, st.CurrentLevel, st.CurrentStreak, st.LongestStreak, last, st.UpdatedAt)
	return err
}
