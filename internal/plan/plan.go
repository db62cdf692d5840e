package plan

import (
	"errors"

	"github.com/emandor/pbe_journey/internal/model"
)

var ErrTierLocked = errors.New("question tier not included in plan")

// Access answers tier and feature questions for one user's plan.
type Access struct {
	Plan     model.Plan
	Settings model.PlanSettings
}

func For(u model.User) Access {
	return Access{Plan: u.Plan, Settings: u.PlanSettings}
}

// Tiers lists the question tiers the plan can read. Explicit tier_access
// settings replace the plan default.
func (a Access) Tiers() []model.Tier {
	if len(a.Settings.TierAccess) > 0 {
		return a.Settings.TierAccess
	}
	return DefaultTiers(a.Plan)
}

func (a Access) CanAccess(t model.Tier) bool {
	for _, x := range a.Tiers() {
		if x == t {
			return true
		}
	}
	return false
}

// CheckQuestions returns ErrTierLocked if any question is outside the plan.
func (a Access) CheckQuestions(qs []model.Question) error {
	for _, q := range qs {
		if !a.CanAccess(q.Tier) {
			return ErrTierLocked
		}
	}
	return nil
}

func (a Access) Feature(name string) bool {
	if v, ok := a.Settings.Features[name]; ok {
		return v
	}
	return DefaultSettings(a.Plan).Features[name]
}

func DefaultTiers(p model.Plan) []model.Tier {
	switch p {
	case model.PlanEnterprise:
		return []model.Tier{model.TierFree, model.TierPro, model.TierEnterprise}
	case model.PlanPro:
		return []model.Tier{model.TierFree, model.TierPro}
	}
	return []model.Tier{model.TierFree}
}

const (
	FeatureTeams         = "teams"
	FeatureTeamAnalytics = "team_analytics"
	FeatureStudySchedule = "study_schedule"
)

func DefaultSettings(p model.Plan) model.PlanSettings {
	s := model.PlanSettings{
		Features: map[string]bool{
			FeatureTeams:         false,
			FeatureTeamAnalytics: false,
			FeatureStudySchedule: false,
		},
		TierAccess: DefaultTiers(p),
	}
	switch p {
	case model.PlanEnterprise:
		s.Features[FeatureTeams] = true
		s.Features[FeatureTeamAnalytics] = true
		s.Features[FeatureStudySchedule] = true
	case model.PlanPro:
		s.Features[FeatureTeams] = true
		s.Features[FeatureStudySchedule] = true
	}
	return s
}

func Valid(p model.Plan) bool {
	switch p {
	case model.PlanFree, model.PlanPro, model.PlanEnterprise:
		return true
	}
	return false
}
