package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/emandor/pbe_journey/internal/model"
)

const (
	LeaderboardXPKey     = "leaderboard:xp"
	LeaderboardStreakKey = "leaderboard:streak"
)

type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int64  `json:"rank"`
}

// Leaderboard keeps XP and longest-streak rankings in sorted sets. Scores are
// overwritten from recomputed stats, so replaying an update is harmless.
type Leaderboard struct {
	client redis.Cmdable
}

func NewLeaderboard(client redis.Cmdable) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Record(ctx context.Context, st model.UserStats) error {
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, LeaderboardXPKey, redis.Z{Score: float64(st.TotalXP), Member: st.UserID})
		p.ZAdd(ctx, LeaderboardStreakKey, redis.Z{Score: float64(st.LongestStreak), Member: st.UserID})
		return nil
	})
	return err
}

// Rebuild replaces both boards with the given rows.
func (l *Leaderboard) Rebuild(ctx context.Context, all []model.UserStats) error {
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, LeaderboardXPKey, LeaderboardStreakKey)
		for _, st := range all {
			p.ZAdd(ctx, LeaderboardXPKey, redis.Z{Score: float64(st.TotalXP), Member: st.UserID})
			p.ZAdd(ctx, LeaderboardStreakKey, redis.Z{Score: float64(st.LongestStreak), Member: st.UserID})
		}
		return nil
	})
	return err
}

func (l *Leaderboard) TopByXP(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	return l.top(ctx, LeaderboardXPKey, limit)
}

func (l *Leaderboard) TopByStreak(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	return l.top(ctx, LeaderboardStreakKey, limit)
}

func (l *Leaderboard) top(ctx context.Context, key string, limit int64) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := l.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(results))
	for i, r := range results {
		member, _ := r.Member.(string)
		entries = append(entries, LeaderboardEntry{
			UserID: member,
			Score:  int64(r.Score),
			Rank:   int64(i) + 1,
		})
	}
	return entries, nil
}

// Rank returns the 1-based XP rank of a user, or 0 when unranked.
func (l *Leaderboard) Rank(ctx context.Context, userID string) (int64, error) {
	r, err := l.client.ZRevRank(ctx, LeaderboardXPKey, userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return r + 1, nil
}
