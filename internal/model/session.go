package model

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalApproved, ApprovalPending, ApprovalRejected:
		return true
	}
	return false
}

type QuestionResult struct {
	QuestionID     string `json:"question_id"`
	PointsEarned   int    `json:"points_earned"`
	PointsPossible int    `json:"points_possible"`
	TimeSpent      int    `json:"time_spent"`
	Correct        bool   `json:"correct"`
}

type QuestionIDs []string

func (q *QuestionIDs) Scan(src any) error { return scanJSON(src, q) }

func (q QuestionIDs) Value() (driver.Value, error) {
	if q == nil {
		q = QuestionIDs{}
	}
	return valueJSON([]string(q))
}

type Results []QuestionResult

func (r *Results) Scan(src any) error { return scanJSON(src, r) }

func (r Results) Value() (driver.Value, error) {
	if r == nil {
		r = Results{}
	}
	return valueJSON([]QuestionResult(r))
}

// TotalPoints and TotalTime are reductions over the full list; session
// totals are always derived from them rather than accumulated.
func (r Results) TotalPoints() int {
	n := 0
	for _, x := range r {
		n += x.PointsEarned
	}
	return n
}

func (r Results) TotalTime() int {
	n := 0
	for _, x := range r {
		n += x.TimeSpent
	}
	return n
}

type QuizSession struct {
	ID                   string         `db:"id" json:"id"`
	UserID               string         `db:"user_id" json:"user_id"`
	TeamID               sql.NullString `db:"team_id" json:"-"`
	StudyAssignmentID    sql.NullString `db:"study_assignment_id" json:"-"`
	QuestionIDs          QuestionIDs    `db:"question_ids" json:"question_ids"`
	Results              Results        `db:"results" json:"results"`
	CurrentQuestionIndex int            `db:"current_question_index" json:"current_question_index"`
	Status               SessionStatus  `db:"status" json:"status"`
	TotalPoints          int            `db:"total_points" json:"total_points"`
	TotalPossiblePoints  int            `db:"total_possible_points" json:"total_possible_points"`
	TotalTimeAllowance   int            `db:"total_time_allowance_seconds" json:"total_time_allowance_seconds"`
	TotalTimeSpent       int            `db:"total_actual_time_spent_seconds" json:"total_actual_time_spent_seconds"`
	BonusXP              sql.NullInt64  `db:"bonus_xp" json:"-"`
	ApprovalStatus       sql.NullString `db:"approval_status" json:"-"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	CompletedAt          sql.NullTime   `db:"completed_at" json:"-"`
}

func (s QuizSession) Completed() bool { return s.Status == SessionCompleted }

// SessionView is the JSON shape of a session with nullable columns flattened.
type SessionView struct {
	QuizSession
	TeamID            *string    `json:"team_id"`
	StudyAssignmentID *string    `json:"study_assignment_id"`
	BonusXP           *int64     `json:"bonus_xp"`
	ApprovalStatus    *string    `json:"approval_status"`
	CompletedAt       *time.Time `json:"completed_at"`
}

func (s QuizSession) View() SessionView {
	v := SessionView{QuizSession: s}
	if s.TeamID.Valid {
		v.TeamID = &s.TeamID.String
	}
	if s.StudyAssignmentID.Valid {
		v.StudyAssignmentID = &s.StudyAssignmentID.String
	}
	if s.BonusXP.Valid {
		v.BonusXP = &s.BonusXP.Int64
	}
	if s.ApprovalStatus.Valid {
		v.ApprovalStatus = &s.ApprovalStatus.String
	}
	if s.CompletedAt.Valid {
		v.CompletedAt = &s.CompletedAt.Time
	}
	return v
}

type AttemptLog struct {
	SessionID      string    `db:"session_id" json:"session_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	QuestionID     string    `db:"question_id" json:"question_id"`
	Book           string    `db:"book" json:"book"`
	Chapter        int       `db:"chapter" json:"chapter"`
	Correct        bool      `db:"correct" json:"correct"`
	PointsEarned   int       `db:"points_earned" json:"points_earned"`
	PointsPossible int       `db:"points_possible" json:"points_possible"`
	TimeSpent      int       `db:"time_spent" json:"time_spent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
