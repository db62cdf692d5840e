package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/cache"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/middleware"
	"github.com/emandor/pbe_journey/internal/model"
)

type fakeReader struct {
	stats    map[string]model.UserStats
	all      []model.Achievement
	unlocked []model.UserAchievement
}

func (f *fakeReader) GetUserStats(_ context.Context, userID string) (model.UserStats, error) {
	if st, ok := f.stats[userID]; ok {
		return st, nil
	}
	return model.UserStats{UserID: userID, CurrentLevel: 1}, nil
}

func (f *fakeReader) ListAchievements(context.Context) ([]model.Achievement, error) { return f.all, nil }

func (f *fakeReader) ListUserAchievements(context.Context, string) ([]model.UserAchievement, error) {
	return f.unlocked, nil
}

func (f *fakeReader) AllUserStats(context.Context) ([]model.UserStats, error) {
	out := make([]model.UserStats, 0, len(f.stats))
	for _, st := range f.stats {
		out = append(out, st)
	}
	return out, nil
}

type memBoard struct {
	xp      map[string]int64
	rankErr error
}

func (b *memBoard) Record(_ context.Context, st model.UserStats) error {
	b.xp[st.UserID] = int64(st.TotalXP)
	return nil
}

func (b *memBoard) TopByXP(_ context.Context, limit int64) ([]cache.LeaderboardEntry, error) {
	var out []cache.LeaderboardEntry
	for id, s := range b.xp {
		out = append(out, cache.LeaderboardEntry{UserID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = int64(i) + 1
	}
	return out, nil
}

func (b *memBoard) TopByStreak(context.Context, int64) ([]cache.LeaderboardEntry, error) {
	return nil, errors.New("redis down")
}

func (b *memBoard) Rank(context.Context, string) (int64, error) { return 2, b.rankErr }

func (b *memBoard) Rebuild(_ context.Context, all []model.UserStats) error {
	b.xp = map[string]int64{}
	for _, st := range all {
		b.xp[st.UserID] = int64(st.TotalXP)
	}
	return nil
}

func newHandlerApp(h *Handler, uid string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(httpx.UserIDKey, uid)
		return c.Next()
	})
	h.Register(app)
	h.RegisterAdmin(app.Group("/admin"))
	return app
}

func TestLeaderboardEndpoints(t *testing.T) {
	board := &memBoard{xp: map[string]int64{"a": 900, "b": 1500, "c": 100}}
	h := NewHandler(NewUpdater(newFakeStore()), &fakeReader{}, board)
	app := newHandlerApp(h, "a")

	resp, err := app.Test(httptest.NewRequest("GET", "/leaderboard/xp?limit=2", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var top []cache.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "b" || top[1].Rank != 2 {
		t.Fatalf("top = %+v", top)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/leaderboard/xp?limit=0", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("limit=0 status = %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/leaderboard/streak", nil))
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("board failure status = %d", resp.StatusCode)
	}
}

func TestMyStatsSurvivesRankFailure(t *testing.T) {
	reader := &fakeReader{stats: map[string]model.UserStats{"a": {UserID: "a", TotalXP: 700, CurrentLevel: 2}}}
	board := &memBoard{xp: map[string]int64{}, rankErr: errors.New("timeout")}
	app := newHandlerApp(NewHandler(NewUpdater(newFakeStore()), reader, board), "a")

	resp, err := app.Test(httptest.NewRequest("GET", "/stats/me", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalXP != 700 || got.Rank != 0 || got.XPPerLevel != 500 {
		t.Fatalf("stats = %+v", got)
	}
}

func TestMyStatsAgesStaleStreak(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	st := BuildStats("a", []model.CompletedTotals{
		{SessionID: "s1", TotalPoints: 10, CompletedAt: day(8).Add(9 * time.Hour)},
		{SessionID: "s2", TotalPoints: 10, CompletedAt: day(9).Add(9 * time.Hour)},
		{SessionID: "s3", TotalPoints: 10, CompletedAt: day(10).Add(9 * time.Hour)},
	}, day(10).Add(12*time.Hour))
	if st.CurrentStreak != 3 {
		t.Fatalf("stored current streak = %d, want 3", st.CurrentStreak)
	}
	reader := &fakeReader{stats: map[string]model.UserStats{"a": st}}
	board := &memBoard{xp: map[string]int64{}}

	for _, tc := range []struct {
		now  time.Time
		want int
	}{
		{day(11).Add(23 * time.Hour), 3},
		{day(12), 0},
		{day(20), 0},
	} {
		h := NewHandler(NewUpdater(newFakeStore(), WithClock(fixedClock(tc.now))), reader, board)
		resp, err := newHandlerApp(h, "a").Test(httptest.NewRequest("GET", "/stats/me", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		var got statsResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.CurrentStreak != tc.want || got.LongestStreak != 3 {
			t.Fatalf("at %s streaks = %d/%d, want %d/3", tc.now.Format("01-02"), got.CurrentStreak, got.LongestStreak, tc.want)
		}
	}
}

func TestAchievementsMarksUnlocked(t *testing.T) {
	reader := &fakeReader{
		all: []model.Achievement{{ID: "first"}, {ID: "ten"}},
		unlocked: []model.UserAchievement{
			{AchievementID: "first", UnlockedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		},
	}
	app := newHandlerApp(NewHandler(NewUpdater(newFakeStore()), reader, &memBoard{xp: map[string]int64{}}), "a")

	resp, err := app.Test(httptest.NewRequest("GET", "/achievements", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var got []achievementView
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || !got[0].Unlocked || got[1].Unlocked || got[1].UnlockedAt != nil {
		t.Fatalf("achievements = %+v", got)
	}
}

func TestAdminRecomputeAndRebuild(t *testing.T) {
	const uid = "9b2c7f1e-3a4d-4e5f-8a6b-7c8d9e0f1a2b"
	st := newFakeStore()
	st.addCompleted("s1", uid, 120, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC))
	board := &memBoard{xp: map[string]int64{}}
	up := NewUpdater(st, WithLeaderboard(board))
	reader := &fakeReader{stats: map[string]model.UserStats{uid: {UserID: uid, TotalXP: 120}, "x": {UserID: "x", TotalXP: 5}}}
	app := newHandlerApp(NewHandler(up, reader, board), "admin")

	resp, err := app.Test(httptest.NewRequest("POST", "/admin/users/"+uid+"/recompute-stats", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("recompute status = %d", resp.StatusCode)
	}
	if st.stats[uid].TotalXP != 120 || board.xp[uid] != 120 {
		t.Fatalf("stats = %+v board = %v", st.stats[uid], board.xp)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/admin/leaderboard/rebuild", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || len(board.xp) != 2 {
		t.Fatalf("rebuild status = %d board = %v", resp.StatusCode, board.xp)
	}
}
