package model

import "database/sql"

type Question struct {
	ID                   string        `db:"id" json:"id"`
	Book                 string        `db:"book" json:"book"`
	Chapter              int           `db:"chapter" json:"chapter"`
	Verse                sql.NullInt64 `db:"verse" json:"-"`
	Text                 string        `db:"text" json:"text"`
	Answer               string        `db:"answer" json:"answer"`
	Points               int           `db:"points" json:"points"`
	TimeAllowanceSeconds int           `db:"time_allowance_seconds" json:"time_allowance_seconds"`
	Tier                 Tier          `db:"tier" json:"tier"`
}
