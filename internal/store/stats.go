package store

import (
	"context"

	"github.com/emandor/pbe_journey/internal/model"
)

func (s *Store) CompletedSessionTotals(ctx context.Context, userID string) ([]model.CompletedTotals, error) {
	return completedTotals(ctx, s.db, userID)
}

func (s *Store) UpsertUserStats(ctx context.Context, st model.UserStats) error {
	return upsertStats(ctx, s.db, st)
}

// GetUserStats returns the stored row, or zero stats at level 1 for a user
// who has never completed a quiz.
func (s *Store) GetUserStats(ctx context.Context, userID string) (model.UserStats, error) {
	var st model.UserStats
	err := s.db.GetContext(ctx, &st, `
		SELECT user_id, total_xp, current_level, current_streak, longest_streak, last_quiz_date, updated_at
		FROM user_stats WHERE user_id=?`, userID)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return model.UserStats{UserID: userID, CurrentLevel: 1}, nil
		}
		return model.UserStats{}, err
	}
	return st, nil
}

// AllUserStats is used to rebuild leaderboards.
func (s *Store) AllUserStats(ctx context.Context) ([]model.UserStats, error) {
	out := []model.UserStats{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id, total_xp, current_level, current_streak, longest_streak, last_quiz_date, updated_at
		FROM user_stats`)
	return out, err
}
