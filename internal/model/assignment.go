package model

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

type StudyItem struct {
	Book     string `json:"book"`
	Chapters []int  `json:"chapters"`
	Verses   string `json:"verses,omitempty"`
}

type StudyItems []StudyItem

func (s *StudyItems) Scan(src any) error { return scanJSON(src, s) }

func (s StudyItems) Value() (driver.Value, error) {
	if s == nil {
		s = StudyItems{}
	}
	return valueJSON([]StudyItem(s))
}

type StudyAssignment struct {
	ID            string         `db:"id" json:"id"`
	Date          time.Time      `db:"date" json:"date"`
	TeamID        string         `db:"team_id" json:"team_id"`
	UserID        string         `db:"user_id" json:"user_id"`
	StudyItems    StudyItems     `db:"study_items" json:"study_items"`
	Completed     bool           `db:"completed" json:"completed"`
	QuizSessionID sql.NullString `db:"quiz_session_id" json:"-"`
}
