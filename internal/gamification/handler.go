package gamification

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/cache"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Reader interface {
	GetUserStats(ctx context.Context, userID string) (model.UserStats, error)
	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]model.UserAchievement, error)
	AllUserStats(ctx context.Context) ([]model.UserStats, error)
}

type Board interface {
	Leaderboard
	TopByXP(ctx context.Context, limit int64) ([]cache.LeaderboardEntry, error)
	TopByStreak(ctx context.Context, limit int64) ([]cache.LeaderboardEntry, error)
	Rank(ctx context.Context, userID string) (int64, error)
	Rebuild(ctx context.Context, all []model.UserStats) error
}

type Handler struct {
	updater *Updater
	reader  Reader
	board   Board
}

func NewHandler(updater *Updater, reader Reader, board Board) *Handler {
	return &Handler{updater: updater, reader: reader, board: board}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/stats/me", h.MyStats)
	r.Get("/achievements", h.Achievements)
	r.Get("/leaderboard/xp", h.TopXP)
	r.Get("/leaderboard/streak", h.TopStreak)
}

// RegisterAdmin mounts maintenance routes; r must already require the admin role.
func (h *Handler) RegisterAdmin(r fiber.Router) {
	r.Post("/users/:id/recompute-stats", h.Recompute)
	r.Post("/leaderboard/rebuild", h.RebuildBoard)
}

type statsResponse struct {
	model.UserStats
	Rank       int64 `json:"rank"`
	XPPerLevel int   `json:"xp_per_level"`
}

func (h *Handler) MyStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid := httpx.UserID(c)
	st, err := h.reader.GetUserStats(ctx, uid)
	if err != nil {
		return apperr.MustSucceed("load stats", err)
	}
	log := telemetry.Ctx(ctx, "gamification").With().Str("user_id", uid).Logger()
	rank := apperr.BestEffort(log, "rank_lookup_failed", int64(0), func() (int64, error) { return h.board.Rank(ctx, uid) })
	return c.JSON(statsResponse{UserStats: st.AsOf(h.updater.now()), Rank: rank, XPPerLevel: XPPerLevel})
}

type achievementView struct {
	model.Achievement
	Unlocked   bool   `json:"unlocked"`
	UnlockedAt *int64 `json:"unlocked_at"`
}

func (h *Handler) Achievements(c *fiber.Ctx) error {
	ctx := c.UserContext()
	all, err := h.reader.ListAchievements(ctx)
	if err != nil {
		return apperr.MustSucceed("list achievements", err)
	}
	mine, err := h.reader.ListUserAchievements(ctx, httpx.UserID(c))
	if err != nil {
		return apperr.MustSucceed("list user achievements", err)
	}
	unlocked := make(map[string]int64, len(mine))
	for _, ua := range mine {
		unlocked[ua.AchievementID] = ua.UnlockedAt.Unix()
	}
	out := make([]achievementView, 0, len(all))
	for _, a := range all {
		v := achievementView{Achievement: a}
		if at, ok := unlocked[a.ID]; ok {
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		out = append(out, v)
	}
	return c.JSON(out)
}

func limitQuery(c *fiber.Ctx) (int64, error) {
	n := c.QueryInt("limit", 10)
	if n < 1 || n > 100 {
		return 0, apperr.Validation("limit must be between 1 and 100")
	}
	return int64(n), nil
}

func (h *Handler) TopXP(c *fiber.Ctx) error {
	n, err := limitQuery(c)
	if err != nil {
		return err
	}
	list, err := h.board.TopByXP(c.UserContext(), n)
	if err != nil {
		return apperr.Remote("leaderboard unavailable", err)
	}
	return c.JSON(list)
}

func (h *Handler) TopStreak(c *fiber.Ctx) error {
	n, err := limitQuery(c)
	if err != nil {
		return err
	}
	list, err := h.board.TopByStreak(c.UserContext(), n)
	if err != nil {
		return apperr.Remote("leaderboard unavailable", err)
	}
	return c.JSON(list)
}

// Recompute rebuilds one user's stats from their sessions and re-runs
// achievement evaluation. Safe to repeat.
func (h *Handler) Recompute(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	st, err := h.updater.RecomputeStats(ctx, id)
	if err != nil {
		return apperr.MustSucceed("recompute stats", err)
	}
	unlocked, err := h.updater.EvaluateAchievements(ctx, id, st)
	if err != nil {
		return apperr.MustSucceed("evaluate achievements", err)
	}
	log := telemetry.Component("gamification")
	log.Info().Str("user_id", id).Str("by_user_id", httpx.UserID(c)).Int("total_xp", st.TotalXP).Msg("stats_recomputed")
	return c.JSON(fiber.Map{"stats": st, "new_achievements": unlocked})
}

func (h *Handler) RebuildBoard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	all, err := h.reader.AllUserStats(ctx)
	if err != nil {
		return apperr.MustSucceed("load stats", err)
	}
	if err := h.board.Rebuild(ctx, all); err != nil {
		return apperr.Remote("leaderboard unavailable", err)
	}
	return c.JSON(fiber.Map{"users": len(all)})
}
