// Package state holds per-user working state between login and logout.
//
// Load initialises a user in a fixed order: account, then the question ids
// the account's plan cannot see, then the user's quiz sessions. Clear drops
// everything derived for that user.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
)

type Loader interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	HiddenQuestionIDs(ctx context.Context, tiers []model.Tier) ([]string, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]model.QuizSession, error)
}

type UserState struct {
	User      model.User
	HiddenIDs map[string]struct{}
	Sessions  map[string]model.QuizSession
}

type Registry struct {
	loader Loader

	mu    sync.RWMutex
	users map[string]*UserState
}

func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader, users: map[string]*UserState{}}
}

func (r *Registry) Load(ctx context.Context, userID string) error {
	u, err := r.loader.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("state: load user: %w", err)
	}
	ids, err := r.loader.HiddenQuestionIDs(ctx, plan.For(u).Tiers())
	if err != nil {
		return fmt.Errorf("state: load questions: %w", err)
	}
	sessions, err := r.loader.ListSessionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("state: load sessions: %w", err)
	}

	st := &UserState{
		User:      u,
		HiddenIDs: make(map[string]struct{}, len(ids)),
		Sessions:  make(map[string]model.QuizSession, len(sessions)),
	}
	for _, id := range ids {
		st.HiddenIDs[id] = struct{}{}
	}
	for _, s := range sessions {
		st.Sessions[s.ID] = s
	}

	r.mu.Lock()
	r.users[userID] = st
	r.mu.Unlock()
	return nil
}

func (r *Registry) Clear(userID string) {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}

// Sessions returns the cached sessions newest first. ok is false when the
// user has not been loaded.
func (r *Registry) Sessions(userID string) (out []model.QuizSession, ok bool) {
	r.mu.RLock()
	st, ok := r.users[userID]
	if ok {
		out = make([]model.QuizSession, 0, len(st.Sessions))
		for _, s := range st.Sessions {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, true
}

// HidesQuestion reports whether the question was outside a loaded user's
// plan at login. Questions added since then are not hidden here; the caller
// decides those from the database.
func (r *Registry) HidesQuestion(userID, questionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.users[userID]
	if !ok {
		return false
	}
	_, hidden := st.HiddenIDs[questionID]
	return hidden
}

// Upsert refreshes one session for a loaded user; unloaded users are ignored.
func (r *Registry) Upsert(s model.QuizSession) {
	r.mu.Lock()
	if st, ok := r.users[s.UserID]; ok {
		st.Sessions[s.ID] = s
	}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID, sessionID string) {
	r.mu.Lock()
	if st, ok := r.users[userID]; ok {
		delete(st.Sessions, sessionID)
	}
	r.mu.Unlock()
}
