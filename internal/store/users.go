package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/emandor/pbe_journey/internal/model"
)

const userColumns = `id, provider, provider_id, email, password_hash, name, picture, role,
	team_id, team_role, plan, plan_settings, created_at, updated_at, last_login_at`

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, provider, email, password_hash, name, role, plan, plan_settings, created_at, updated_at)
		VALUES (?, 'password', ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Plan, u.PlanSettings)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	return u, notFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	return u, notFound(err)
}

// UpsertOAuthUser creates or refreshes a Google account and returns its id.
func (s *Store) UpsertOAuthUser(ctx context.Context, newID, providerID, email, name, picture string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, provider, provider_id, email, name, picture, role, plan, last_login_at, created_at, updated_at)
		VALUES (?, 'google', ?, ?, ?, ?, 'user', 'free', UTC_TIMESTAMP(), UTC_TIMESTAMP(), UTC_TIMESTAMP())
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			picture = IF(picture = '', VALUES(picture), picture),
			last_login_at = UTC_TIMESTAMP(),
			updated_at = UTC_TIMESTAMP()`,
		newID, providerID, email, name, picture)
	if err != nil {
		return "", err
	}
	var id string
	err = s.db.GetContext(ctx, &id, `SELECT id FROM users WHERE email=? LIMIT 1`, email)
	return id, notFound(err)
}

func (s *Store) TouchLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=UTC_TIMESTAMP() WHERE id=?`, userID)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=?, updated_at=UTC_TIMESTAMP() WHERE id=?`, hash, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) UpdateProfile(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name=?, updated_at=UTC_TIMESTAMP() WHERE id=?`, name, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) UpdatePicture(ctx context.Context, userID, picture string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET picture=?, updated_at=UTC_TIMESTAMP() WHERE id=?`, picture, userID)
	return err
}

func (s *Store) UpdatePlan(ctx context.Context, userID string, plan model.Plan, settings model.PlanSettings) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET plan=?, plan_settings=?, updated_at=UTC_TIMESTAMP() WHERE id=?`,
		plan, settings, userID)
	return err
}

func (s *Store) SaveLoginSession(ctx context.Context, sid, userID, ip, userAgent string) error {
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_sessions (id, user_id, ip, user_agent, created_at) VALUES (?,?,?,?,?)`,
		sid, userID, ip, userAgent, time.Now().UTC())
	return err
}

func (s *Store) UserRole(ctx context.Context, userID string) (model.Role, error) {
	var role sql.NullString
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id=?`, userID)
	if err != nil {
		return "", notFound(err)
	}
	return model.Role(role.String), nil
}
