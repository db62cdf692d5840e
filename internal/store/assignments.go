package store

import (
	"context"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

const assignmentColumns = `id, date, team_id, user_id, study_items, completed, quiz_session_id`

func (s *Store) GetAssignment(ctx context.Context, id string) (model.StudyAssignment, error) {
	var a model.StudyAssignment
	err := s.db.GetContext(ctx, &a, `SELECT `+assignmentColumns+` FROM study_assignments WHERE id=?`, id)
	return a, notFound(err)
}

// CompleteAssignment links the assignment to sessionID. An assignment already
// held by another session is left alone and reported as ErrNotFound.
func (s *Store) CompleteAssignment(ctx context.Context, assignmentID, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE study_assignments SET completed=1, quiz_session_id=?
		 WHERE id=? AND (completed=0 OR quiz_session_id=?)`, sessionID, assignmentID, sessionID)
	if err != nil {
		return err
	}
	return affected(res)
}

// ListAssignments returns a user's assignments ordered by date. Zero from or
// to leave that side of the range open.
func (s *Store) ListAssignments(ctx context.Context, userID string, from, to time.Time) ([]model.StudyAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM study_assignments WHERE user_id=?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.UTC().Format("2006-01-02"))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.UTC().Format("2006-01-02"))
	}
	query += ` ORDER BY date ASC`
	out := []model.StudyAssignment{}
	err := s.db.SelectContext(ctx, &out, query, args...)
	return out, err
}
