package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emandor/pbe_journey/internal/model"
)

// CreateTeam inserts a team and makes its creator the owner.
func (s *Store) CreateTeam(ctx context.Context, t model.Team) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO teams (id, name, owner_id, created_at) VALUES (?,?,?,?)`,
			t.ID, t.Name, t.OwnerID, t.CreatedAt); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET team_id=?, team_role='owner', updated_at=UTC_TIMESTAMP() WHERE id=? AND team_id IS NULL`,
			t.ID, t.OwnerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrDuplicate
		}
		return nil
	})
}

func (s *Store) GetTeam(ctx context.Context, id string) (model.Team, error) {
	var t model.Team
	err := s.db.GetContext(ctx, &t, `SELECT id, name, owner_id, created_at FROM teams WHERE id=?`, id)
	return t, notFound(err)
}

// AddTeamMember joins a user with no current team. ErrDuplicate means the
// user already belongs to a team.
func (s *Store) AddTeamMember(ctx context.Context, teamID, userID string, role model.TeamRole) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET team_id=?, team_role=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND team_id IS NULL`,
		teamID, role, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *Store) SetTeamRole(ctx context.Context, teamID, userID string, role model.TeamRole) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET team_role=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND team_id=?`, role, userID, teamID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET team_id=NULL, team_role=NULL, updated_at=UTC_TIMESTAMP() WHERE id=? AND team_id=?`,
		userID, teamID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) ListTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	out := []model.TeamMember{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, email, name, picture, team_role FROM users
		WHERE team_id=?
		ORDER BY FIELD(team_role, 'owner', 'admin', 'member'), name`, teamID)
	return out, err
}

// ListTeamAssignments supports team schedule views.
func (s *Store) ListTeamAssignments(ctx context.Context, teamID string, on time.Time) ([]model.StudyAssignment, error) {
	out := []model.StudyAssignment{}
	err := s.db.SelectContext(ctx, &out, `SELECT `+assignmentColumns+` FROM study_assignments
		WHERE team_id=? AND date=? ORDER BY user_id`, teamID, on.UTC().Format("2006-01-02"))
	return out, err
}
