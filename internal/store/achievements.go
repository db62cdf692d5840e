package store

import (
	"context"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

func (s *Store) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	out := []model.Achievement{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, description, criteria_type, threshold FROM achievements ORDER BY criteria_type, threshold`)
	return out, err
}

// LockedAchievements lists achievements the user has not unlocked yet.
func (s *Store) LockedAchievements(ctx context.Context, userID string) ([]model.Achievement, error) {
	out := []model.Achievement{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT a.id, a.name, a.description, a.criteria_type, a.threshold
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		WHERE ua.achievement_id IS NULL`, userID)
	return out, err
}

// InsertUserAchievement records an unlock. A second unlock of the same pair
// is ignored and reported as not inserted.
func (s *Store) InsertUserAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO user_achievements (user_id, achievement_id, unlocked_at) VALUES (?,?,?)`,
		userID, achievementID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListUserAchievements(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	out := []model.UserAchievement{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT ua.user_id, ua.achievement_id, a.name, ua.unlocked_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.unlocked_at DESC`, userID)
	return out, err
}
