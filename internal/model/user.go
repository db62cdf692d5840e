package model

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type TeamRole string

const (
	TeamRoleOwner  TeamRole = "owner"
	TeamRoleAdmin  TeamRole = "admin"
	TeamRoleMember TeamRole = "member"
)

// CanManage reports whether the role may manage members and review sessions.
func (r TeamRole) CanManage() bool { return r == TeamRoleOwner || r == TeamRoleAdmin }

type User struct {
	ID           string         `db:"id" json:"id"`
	Provider     string         `db:"provider" json:"provider"`
	ProviderID   sql.NullString `db:"provider_id" json:"-"`
	Email        string         `db:"email" json:"email"`
	PasswordHash sql.NullString `db:"password_hash" json:"-"`
	Name         string         `db:"name" json:"name"`
	Picture      string         `db:"picture" json:"picture"`
	Role         Role           `db:"role" json:"role"`
	TeamID       sql.NullString `db:"team_id" json:"-"`
	TeamRole     sql.NullString `db:"team_role" json:"-"`
	Plan         Plan           `db:"plan" json:"plan"`
	PlanSettings PlanSettings   `db:"plan_settings" json:"plan_settings"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	LastLoginAt  sql.NullTime   `db:"last_login_at" json:"-"`
}

// Team returns the team membership, if any.
func (u User) Team() (teamID string, role TeamRole, ok bool) {
	if !u.TeamID.Valid {
		return "", "", false
	}
	return u.TeamID.String, TeamRole(u.TeamRole.String), true
}

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

type PlanSettings struct {
	Features   map[string]bool `json:"features,omitempty"`
	TierAccess []Tier          `json:"tier_access,omitempty"`
}

func (p *PlanSettings) Scan(src any) error { return scanJSON(src, p) }

func (p PlanSettings) Value() (driver.Value, error) { return valueJSON(p) }

type Team struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	UserID   string    `db:"id" json:"user_id"`
	Email    string    `db:"email" json:"email"`
	Name     string    `db:"name" json:"name"`
	Picture  string    `db:"picture" json:"picture"`
	TeamRole TeamRole  `db:"team_role" json:"team_role"`
	Stats    UserStats `db:"-" json:"stats"`
}
