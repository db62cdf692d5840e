package gamification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Store interface {
	CompletedSessionTotals(ctx context.Context, userID string) ([]model.CompletedTotals, error)
	UpsertUserStats(ctx context.Context, st model.UserStats) error
	LockedAchievements(ctx context.Context, userID string) ([]model.Achievement, error)
	InsertUserAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
	GetAssignment(ctx context.Context, id string) (model.StudyAssignment, error)
	CompleteAssignment(ctx context.Context, assignmentID, sessionID string) error
	SetSessionBonusXP(ctx context.Context, sessionID string, bonus int) error
}

type Notifier interface {
	AchievementUnlocked(userID string, a model.Achievement)
	StatsUpdated(userID string, st model.UserStats)
}

type Leaderboard interface {
	Record(ctx context.Context, st model.UserStats) error
}

type Updater struct {
	store  Store
	notify Notifier
	board  Leaderboard
	now    func() time.Time
}

type Option func(*Updater)

func WithNotifier(n Notifier) Option       { return func(u *Updater) { u.notify = n } }
func WithLeaderboard(b Leaderboard) Option { return func(u *Updater) { u.board = b } }
func WithClock(now func() time.Time) Option {
	return func(u *Updater) { u.now = now }
}

func NewUpdater(store Store, opts ...Option) *Updater {
	u := &Updater{store: store, now: time.Now}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Outcome summarises the derived effects of one completion.
type Outcome struct {
	BonusXP           int                 `json:"bonus_xp"`
	AssignmentLinked  bool                `json:"assignment_linked"`
	Stats             *model.UserStats    `json:"stats,omitempty"`
	NewAchievements   []model.Achievement `json:"new_achievements"`
	StatsRecalculated bool                `json:"stats_recalculated"`
}

// ApplyCompletion runs the steps that follow a session being written as
// completed: bonus XP for an on-time assignment, linking the assignment,
// stats recomputation and achievement evaluation. Every step is best effort;
// a failure is logged and the remaining steps still run.
func (u *Updater) ApplyCompletion(ctx context.Context, s model.QuizSession) Outcome {
	log := telemetry.Ctx(ctx, "gamification").With().
		Str("user_id", s.UserID).
		Str("session_id", s.ID).
		Logger()

	out := Outcome{NewAchievements: []model.Achievement{}}
	completedAt := u.now()
	if s.CompletedAt.Valid {
		completedAt = s.CompletedAt.Time
	}

	if s.StudyAssignmentID.Valid {
		out.AssignmentLinked, out.BonusXP = u.linkAssignment(ctx, log, s, completedAt)
	}

	st, err := u.RecomputeStats(ctx, s.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("stats_recompute_failed")
		return out
	}
	out.Stats = &st
	out.StatsRecalculated = true

	out.NewAchievements = apperr.BestEffort(log, "achievement_evaluation_failed", []model.Achievement{},
		func() ([]model.Achievement, error) { return u.EvaluateAchievements(ctx, s.UserID, st) })

	log.Info().
		Int("bonus_xp", out.BonusXP).
		Int("total_xp", st.TotalXP).
		Int("level", st.CurrentLevel).
		Int("new_achievements", len(out.NewAchievements)).
		Msg("completion_applied")
	return out
}

// linkAssignment claims the session's assignment and, only when this session
// holds the link, awards and saves the on-time bonus. An assignment can pay
// its bonus once. A bonus that could not be saved is reported as 0 so the
// outcome agrees with the recomputed total.
func (u *Updater) linkAssignment(ctx context.Context, log zerolog.Logger, s model.QuizSession, completedAt time.Time) (linked bool, bonus int) {
	assignmentID := s.StudyAssignmentID.String
	alog := log.With().Str("assignment_id", assignmentID).Logger()

	if err := u.store.CompleteAssignment(ctx, assignmentID, s.ID); err != nil {
		alog.Warn().Err(err).Msg("assignment_not_linked")
		return false, 0
	}
	a, err := u.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		alog.Warn().Err(err).Msg("assignment_lookup_failed")
		return true, 0
	}
	bonus = BonusXP(a.Date, completedAt)
	if !apperr.BestEffortDo(alog, "bonus_xp_save_failed", func() error {
		return u.store.SetSessionBonusXP(ctx, s.ID, bonus)
	}) {
		return true, 0
	}
	return true, bonus
}

// RecomputeStats rebuilds the user's stats from every completed session and
// upserts the row.
func (u *Updater) RecomputeStats(ctx context.Context, userID string) (model.UserStats, error) {
	totals, err := u.store.CompletedSessionTotals(ctx, userID)
	if err != nil {
		return model.UserStats{}, err
	}
	st := BuildStats(userID, totals, u.now())
	if err := u.store.UpsertUserStats(ctx, st); err != nil {
		return model.UserStats{}, err
	}
	u.Publish(ctx, st)
	return st, nil
}

// Publish pushes freshly written stats to the leaderboard and to any
// connected clients.
func (u *Updater) Publish(ctx context.Context, st model.UserStats) {
	log := telemetry.Component("gamification").With().Str("user_id", st.UserID).Logger()
	if u.board != nil {
		apperr.BestEffortDo(log, "leaderboard_update_failed", func() error { return u.board.Record(ctx, st) })
	}
	if u.notify != nil {
		u.notify.StatsUpdated(st.UserID, st)
	}
}

// EvaluateAchievements unlocks every not-yet-unlocked achievement whose
// criteria st now meets. Inserts are idempotent; only rows actually inserted
// are returned and announced.
func (u *Updater) EvaluateAchievements(ctx context.Context, userID string, st model.UserStats) ([]model.Achievement, error) {
	log := telemetry.Component("gamification").With().Str("user_id", userID).Logger()

	locked, err := u.store.LockedAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return []model.Achievement{}, nil
	}

	totals, err := u.store.CompletedSessionTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := Progress{CompletedQuizzes: len(totals), TotalXP: st.TotalXP, LongestStreak: st.LongestStreak}

	unlocked := []model.Achievement{}
	now := u.now().UTC()
	for _, a := range locked {
		met, known := Meets(a, p)
		if !known {
			log.Warn().Str("achievement_id", a.ID).Str("criteria_type", string(a.CriteriaType)).Msg("unknown_criteria_skipped")
			continue
		}
		if !met {
			continue
		}
		inserted, err := u.store.InsertUserAchievement(ctx, userID, a.ID, now)
		if err != nil {
			log.Warn().Err(err).Str("achievement_id", a.ID).Msg("achievement_insert_failed")
			continue
		}
		if !inserted {
			continue
		}
		unlocked = append(unlocked, a)
		log.Info().Str("achievement_id", a.ID).Str("name", a.Name).Msg("achievement_unlocked")
		if u.notify != nil {
			u.notify.AchievementUnlocked(userID, a)
		}
	}
	return unlocked, nil
}
