// Package team manages teams and their membership roles.
package team

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserStats(ctx context.Context, userID string) (model.UserStats, error)
	CreateTeam(ctx context.Context, t model.Team) error
	GetTeam(ctx context.Context, id string) (model.Team, error)
	AddTeamMember(ctx context.Context, teamID, userID string, role model.TeamRole) error
	SetTeamRole(ctx context.Context, teamID, userID string, role model.TeamRole) error
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	ListTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	ListTeamAssignments(ctx context.Context, teamID string, on time.Time) ([]model.StudyAssignment, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(st Store) *Service {
	return &Service{store: st, now: time.Now}
}

// membership is the caller's team and role.
type membership struct {
	user   model.User
	teamID string
	role   model.TeamRole
}

func (s *Service) member(ctx context.Context, userID string) (membership, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return membership{}, apperr.NotFound("user not found")
		}
		return membership{}, apperr.MustSucceed("load user", err)
	}
	teamID, role, ok := u.Team()
	if !ok {
		return membership{}, apperr.Validation("you are not in a team")
	}
	return membership{user: u, teamID: teamID, role: role}, nil
}

func (s *Service) Create(ctx context.Context, userID, name string) (model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, apperr.Validation("name is required")
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return model.Team{}, apperr.MustSucceed("load user", err)
	}
	if !plan.For(u).Feature(plan.FeatureTeams) {
		return model.Team{}, apperr.Forbidden("your plan does not include teams")
	}
	t := model.Team{ID: uuid.NewString(), Name: name, OwnerID: userID, CreatedAt: s.now().UTC()}
	if err := s.store.CreateTeam(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Team{}, apperr.Validation("you already belong to a team")
		}
		return model.Team{}, apperr.MustSucceed("create team", err)
	}
	log := telemetry.Component("team")
	log.Info().Str("team_id", t.ID).Str("owner_id", userID).Msg("team_created")
	return t, nil
}

func (s *Service) Get(ctx context.Context, userID string) (model.Team, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return model.Team{}, err
	}
	t, err := s.store.GetTeam(ctx, m.teamID)
	if err != nil {
		return model.Team{}, apperr.MustSucceed("load team", err)
	}
	return t, nil
}

// AddMember puts the user with email into the caller's team. Owners and
// admins may add members; only the owner may add another admin.
func (s *Service) AddMember(ctx context.Context, userID, email string, role model.TeamRole) (model.TeamMember, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return model.TeamMember{}, err
	}
	if !m.role.CanManage() {
		return model.TeamMember{}, apperr.Forbidden("only team owners and admins can add members")
	}
	if role == "" {
		role = model.TeamRoleMember
	}
	switch role {
	case model.TeamRoleMember:
	case model.TeamRoleAdmin:
		if m.role != model.TeamRoleOwner {
			return model.TeamMember{}, apperr.Forbidden("only the team owner can add admins")
		}
	default:
		return model.TeamMember{}, apperr.Validation("role must be admin or member")
	}

	target, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.TeamMember{}, apperr.NotFound("no user with that email")
		}
		return model.TeamMember{}, apperr.MustSucceed("load user", err)
	}
	if err := s.store.AddTeamMember(ctx, m.teamID, target.ID, role); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.TeamMember{}, apperr.Validation("user already belongs to a team")
		}
		return model.TeamMember{}, apperr.MustSucceed("add member", err)
	}

	log := telemetry.Component("team")
	log.Info().Str("team_id", m.teamID).Str("user_id", target.ID).Str("role", string(role)).Msg("member_added")
	return model.TeamMember{
		UserID:   target.ID,
		Email:    target.Email,
		Name:     target.Name,
		Picture:  target.Picture,
		TeamRole: role,
		Stats:    s.statsOrZero(ctx, target.ID),
	}, nil
}

// SetRole changes a member between admin and member. Owner only.
func (s *Service) SetRole(ctx context.Context, userID, memberID string, role model.TeamRole) error {
	m, err := s.member(ctx, userID)
	if err != nil {
		return err
	}
	if m.role != model.TeamRoleOwner {
		return apperr.Forbidden("only the team owner can change roles")
	}
	if role != model.TeamRoleAdmin && role != model.TeamRoleMember {
		return apperr.Validation("role must be admin or member")
	}
	if memberID == userID {
		return apperr.Validation("the owner's role cannot be changed")
	}
	if err := s.store.SetTeamRole(ctx, m.teamID, memberID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("member not found")
		}
		return apperr.MustSucceed("set role", err)
	}
	return nil
}

// Remove takes a member out of the team. Managers may remove others and any
// non-owner may remove themselves. The owner can never be removed.
func (s *Service) Remove(ctx context.Context, userID, memberID string) error {
	m, err := s.member(ctx, userID)
	if err != nil {
		return err
	}
	if memberID != userID && !m.role.CanManage() {
		return apperr.Forbidden("only team owners and admins can remove members")
	}
	t, err := s.store.GetTeam(ctx, m.teamID)
	if err != nil {
		return apperr.MustSucceed("load team", err)
	}
	if memberID == t.OwnerID {
		return apperr.Validation("the team owner cannot be removed")
	}
	if err := s.store.RemoveTeamMember(ctx, m.teamID, memberID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("member not found")
		}
		return apperr.MustSucceed("remove member", err)
	}
	log := telemetry.Component("team")
	log.Info().Str("team_id", m.teamID).Str("user_id", memberID).Str("by_user_id", userID).Msg("member_removed")
	return nil
}

// Members lists the caller's team with each member's stats. A stats read
// failure shows that member with zero stats rather than failing the list.
func (s *Service) Members(ctx context.Context, userID string) ([]model.TeamMember, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListTeamMembers(ctx, m.teamID)
	if err != nil {
		return nil, apperr.MustSucceed("list members", err)
	}
	for i := range members {
		members[i].Stats = s.statsOrZero(ctx, members[i].UserID)
	}
	return members, nil
}

func (s *Service) statsOrZero(ctx context.Context, userID string) model.UserStats {
	log := telemetry.Ctx(ctx, "team").With().Str("user_id", userID).Logger()
	st := apperr.BestEffort(log, "member_stats_failed", model.UserStats{UserID: userID, CurrentLevel: 1},
		func() (model.UserStats, error) { return s.store.GetUserStats(ctx, userID) })
	return st.AsOf(s.now())
}

// Assignments lists the team's study assignments for one day. Managers only.
func (s *Service) Assignments(ctx context.Context, userID string, on time.Time) ([]model.StudyAssignment, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !m.role.CanManage() {
		return nil, apperr.Forbidden("only team owners and admins can view the team schedule")
	}
	if !plan.For(m.user).Feature(plan.FeatureStudySchedule) {
		return nil, apperr.Forbidden("your plan does not include study schedules")
	}
	if on.IsZero() {
		on = s.now().UTC()
	}
	out, err := s.store.ListTeamAssignments(ctx, m.teamID, on)
	return out, apperr.MustSucceed("list team assignments", err)
}
