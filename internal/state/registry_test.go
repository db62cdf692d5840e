package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emandor/pbe_journey/internal/model"
)

type fakeLoader struct {
	calls    []string
	user     model.User
	ids      []string
	tiers    []model.Tier
	sessions []model.QuizSession
	err      error
}

func (f *fakeLoader) GetUserByID(_ context.Context, id string) (model.User, error) {
	f.calls = append(f.calls, "user")
	if f.err != nil {
		return model.User{}, f.err
	}
	u := f.user
	u.ID = id
	return u, nil
}

func (f *fakeLoader) HiddenQuestionIDs(_ context.Context, tiers []model.Tier) ([]string, error) {
	f.calls = append(f.calls, "questions")
	f.tiers = tiers
	return f.ids, nil
}

func (f *fakeLoader) ListSessionsByUser(_ context.Context, _ string) ([]model.QuizSession, error) {
	f.calls = append(f.calls, "sessions")
	return f.sessions, nil
}

func TestLoadOrderAndClear(t *testing.T) {
	now := time.Now()
	l := &fakeLoader{
		user: model.User{Plan: model.PlanPro},
		ids:  []string{"q1", "q2"},
		sessions: []model.QuizSession{
			{ID: "old", UserID: "u1", CreatedAt: now.Add(-time.Hour)},
			{ID: "new", UserID: "u1", CreatedAt: now},
		},
	}
	r := NewRegistry(l)
	if err := r.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"user", "questions", "sessions"}
	for i, c := range want {
		if l.calls[i] != c {
			t.Fatalf("load order = %v, want %v", l.calls, want)
		}
	}
	if len(l.tiers) != 2 {
		t.Fatalf("pro plan should request two tiers, got %v", l.tiers)
	}

	got, ok := r.Sessions("u1")
	if !ok || len(got) != 2 || got[0].ID != "new" {
		t.Fatalf("Sessions = %+v, %v", got, ok)
	}
	if !r.HidesQuestion("u1", "q2") {
		t.Fatalf("q2 should be hidden after load")
	}
	if r.HidesQuestion("u1", "added-after-login") {
		t.Fatalf("a question unknown at load must not be hidden")
	}

	r.Clear("u1")
	if _, ok := r.Sessions("u1"); ok {
		t.Fatalf("state survived Clear")
	}
	if r.HidesQuestion("u1", "q2") {
		t.Fatalf("question cache survived Clear")
	}
}

func TestUpsertAndRemove(t *testing.T) {
	r := NewRegistry(&fakeLoader{})
	r.Upsert(model.QuizSession{ID: "s1", UserID: "ghost"})
	if _, ok := r.Sessions("ghost"); ok {
		t.Fatalf("Upsert must not load unknown users")
	}

	_ = r.Load(context.Background(), "u1")
	r.Upsert(model.QuizSession{ID: "s1", UserID: "u1", Status: model.SessionActive})
	r.Upsert(model.QuizSession{ID: "s1", UserID: "u1", Status: model.SessionCompleted})
	got, _ := r.Sessions("u1")
	if len(got) != 1 || got[0].Status != model.SessionCompleted {
		t.Fatalf("Sessions after upsert = %+v", got)
	}
	r.Remove("u1", "s1")
	got, _ = r.Sessions("u1")
	if len(got) != 0 {
		t.Fatalf("Sessions after remove = %+v", got)
	}
}

func TestLoadFailureLeavesNoState(t *testing.T) {
	r := NewRegistry(&fakeLoader{err: errors.New("db down")})
	if err := r.Load(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := r.Sessions("u1"); ok {
		t.Fatalf("failed load must not register the user")
	}
}
