package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	CompletedSessionsInScope(ctx context.Context, sc store.Scope) ([]model.QuizSession, error)
	AttemptLogsInScope(ctx context.Context, sc store.Scope) ([]model.AttemptLog, error)
}

type Service struct {
	store Store
}

func NewService(st Store) *Service {
	return &Service{store: st}
}

type Dashboard struct {
	Summary    Summary `json:"summary"`
	ByChapter  []Group `json:"by_chapter"`
	ByDay      []Group `json:"by_day"`
	ByQuestion []Group `json:"by_question"`
}

// Range is an inclusive day range; zero ends are open.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) scope(sc store.Scope) (store.Scope, error) {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return sc, apperr.Validation("to must not be before from")
	}
	sc.From = r.From
	if !r.To.IsZero() {
		sc.To = r.To.AddDate(0, 0, 1)
	}
	return sc, nil
}

func (s *Service) User(ctx context.Context, userID string, r Range) (Dashboard, error) {
	sc, err := r.scope(store.Scope{UserID: userID})
	if err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, sc)
}

// Team reports on every member of the caller's team. Only owners and admins
// on a plan with team analytics may read it.
func (s *Service) Team(ctx context.Context, userID string, r Range) (Dashboard, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Dashboard{}, apperr.MustSucceed("load user", err)
	}
	teamID, role, ok := u.Team()
	if !ok {
		return Dashboard{}, apperr.Validation("you are not in a team")
	}
	if !role.CanManage() {
		return Dashboard{}, apperr.Forbidden("only team owners and admins can view team analytics")
	}
	if !plan.For(u).Feature(plan.FeatureTeamAnalytics) {
		return Dashboard{}, apperr.Forbidden("your plan does not include team analytics")
	}
	sc, err := r.scope(store.Scope{TeamID: teamID})
	if err != nil {
		return Dashboard{}, err
	}
	return s.dashboard(ctx, sc)
}

func (s *Service) dashboard(ctx context.Context, sc store.Scope) (Dashboard, error) {
	var (
		sessions []model.QuizSession
		logs     []model.AttemptLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.store.CompletedSessionsInScope(gctx, sc)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.store.AttemptLogsInScope(gctx, sc)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, apperr.MustSucceed("load analytics", err)
	}

	d := Dashboard{
		Summary:    Summarize(sessions, logs),
		ByChapter:  ByChapter(logs),
		ByDay:      ByDay(logs),
		ByQuestion: ByQuestion(logs),
	}

	log := telemetry.Component("analytics")
	log.Debug().
		Str("user_id", sc.UserID).
		Str("team_id", sc.TeamID).
		Int("sessions", len(sessions)).
		Int("attempts", len(logs)).
		Msg("dashboard_built")
	return d, nil
}
