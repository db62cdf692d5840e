package analytics

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/store"
)

func day(d, h int) time.Time { return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC) }

func attempt(q, book string, ch int, correct bool, earned, possible, secs int, at time.Time) model.AttemptLog {
	return model.AttemptLog{
		QuestionID:     q,
		Book:           book,
		Chapter:        ch,
		Correct:        correct,
		PointsEarned:   earned,
		PointsPossible: possible,
		TimeSpent:      secs,
		CreatedAt:      at,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var sample = []model.AttemptLog{
	attempt("q1", "Genesis", 1, true, 10, 10, 10, day(10, 9)),
	attempt("q2", "Genesis", 1, false, 0, 10, 20, day(10, 9)),
	attempt("q3", "Genesis", 2, true, 10, 10, 6, day(11, 23)),
	attempt("q1", "Genesis", 1, true, 5, 10, 30, day(11, 23)),
	attempt("q4", "Exodus", 3, false, 2, 20, 40, day(12, 0)),
}

func TestByChapter(t *testing.T) {
	groups := ByChapter(sample)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	want := []struct {
		key      string
		total    int
		accuracy float64
		avgTime  float64
		eff      float64
	}{
		{"Exodus 3", 1, 0, 40, 0.1},
		{"Genesis 1", 3, 2.0 / 3, 20, 15.0 / 30},
		{"Genesis 2", 1, 1, 6, 1},
	}
	for i, w := range want {
		g := groups[i]
		if g.Key != w.key || g.Total != w.total || !approx(g.Accuracy, w.accuracy) ||
			!approx(g.AverageTime, w.avgTime) || !approx(g.PointsEfficiency, w.eff) {
			t.Fatalf("group %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestByDayUsesUTCAndTiesSortByKey(t *testing.T) {
	groups := ByDay(sample)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	// 2024-01-12 has accuracy 0, 01-10 has 0.5, 01-11 has 1.
	keys := []string{groups[0].Day, groups[1].Day, groups[2].Day}
	want := []string{"2024-01-12", "2024-01-10", "2024-01-11"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("day order = %v, want %v", keys, want)
		}
	}

	tied := ByQuestion([]model.AttemptLog{
		attempt("b", "Ruth", 1, true, 1, 1, 1, day(1, 0)),
		attempt("a", "Ruth", 1, true, 1, 1, 1, day(1, 0)),
	})
	if tied[0].Key != "a" || tied[1].Key != "b" {
		t.Fatalf("tie order = %s, %s", tied[0].Key, tied[1].Key)
	}
}

func TestEmptyInput(t *testing.T) {
	if g := ByChapter(nil); len(g) != 0 {
		t.Fatalf("groups = %+v", g)
	}
	s := Summarize(nil, nil)
	if s.Accuracy != 0 || s.ActiveDays != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestSummarize(t *testing.T) {
	sessions := []model.QuizSession{
		{ID: "s1", TotalPoints: 20, TotalTimeSpent: 30, CompletedAt: sql.NullTime{Time: day(10, 9), Valid: true}},
		{ID: "s2", TotalPoints: 15, TotalTimeSpent: 36, CompletedAt: sql.NullTime{Time: day(11, 23), Valid: true}},
		{ID: "s3", TotalPoints: 2, TotalTimeSpent: 40, CompletedAt: sql.NullTime{Time: day(11, 8), Valid: true}},
	}
	s := Summarize(sessions, sample)
	if s.Sessions != 3 || s.Attempts != 5 || s.Correct != 3 || s.TotalPoints != 37 || s.ActiveDays != 2 {
		t.Fatalf("summary = %+v", s)
	}
	if !approx(s.Accuracy, 0.6) {
		t.Fatalf("accuracy = %v", s.Accuracy)
	}
}

type fakeStore struct {
	users  map[string]model.User
	scopes []store.Scope
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CompletedSessionsInScope(_ context.Context, sc store.Scope) ([]model.QuizSession, error) {
	f.scopes = append(f.scopes, sc)
	return []model.QuizSession{{ID: "s1", TotalPoints: 20}}, nil
}

func (f *fakeStore) AttemptLogsInScope(_ context.Context, sc store.Scope) ([]model.AttemptLog, error) {
	return sample, nil
}

func member(plan model.Plan, role model.TeamRole) model.User {
	return model.User{
		Plan:     plan,
		TeamID:   sql.NullString{String: "team-1", Valid: true},
		TeamRole: sql.NullString{String: string(role), Valid: true},
	}
}

func TestTeamDashboardAccess(t *testing.T) {
	st := &fakeStore{users: map[string]model.User{
		"owner-ent":  member(model.PlanEnterprise, model.TeamRoleOwner),
		"owner-pro":  member(model.PlanPro, model.TeamRoleOwner),
		"member-ent": member(model.PlanEnterprise, model.TeamRoleMember),
		"solo":       {Plan: model.PlanEnterprise},
	}}
	svc := NewService(st)
	ctx := context.Background()

	cases := map[string]apperr.Kind{
		"owner-pro":  apperr.KindForbidden,
		"member-ent": apperr.KindForbidden,
		"solo":       apperr.KindValidation,
	}
	for uid, kind := range cases {
		if _, err := svc.Team(ctx, uid, Range{}); !apperr.Is(err, kind) {
			t.Fatalf("%s: err = %v, want kind %v", uid, err, kind)
		}
	}

	d, err := svc.Team(ctx, "owner-ent", Range{})
	if err != nil {
		t.Fatalf("team dashboard: %v", err)
	}
	if d.Summary.Attempts != 5 || len(d.ByChapter) != 3 {
		t.Fatalf("dashboard = %+v", d)
	}
	if got := st.scopes[len(st.scopes)-1]; got.TeamID != "team-1" || got.UserID != "" {
		t.Fatalf("scope = %+v", got)
	}
}

func TestUserRangeIsInclusive(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.User(ctx, "u1", Range{From: day(10, 0), To: day(12, 0)}); err != nil {
		t.Fatalf("user dashboard: %v", err)
	}
	sc := st.scopes[0]
	if !sc.From.Equal(day(10, 0)) || !sc.To.Equal(day(13, 0)) {
		t.Fatalf("scope = %+v", sc)
	}

	if _, err := svc.User(ctx, "u1", Range{From: day(12, 0), To: day(10, 0)}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("reversed range: err = %v", err)
	}
}
