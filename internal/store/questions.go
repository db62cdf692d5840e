package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/emandor/pbe_journey/internal/model"
)

const questionColumns = `id, book, chapter, verse, text, answer, points, time_allowance_seconds, tier`

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+questionColumns+` FROM questions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []model.Question
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListQuestions returns questions in the given tiers, optionally narrowed to
// one book and chapter (chapter 0 means any).
func (s *Store) ListQuestions(ctx context.Context, tiers []model.Tier, book string, chapter int) ([]model.Question, error) {
	if len(tiers) == 0 {
		return []model.Question{}, nil
	}
	query := `SELECT ` + questionColumns + ` FROM questions WHERE tier IN (?)`
	args := []any{tiers}
	if book != "" {
		query += ` AND book = ?`
		args = append(args, book)
	}
	if chapter > 0 {
		query += ` AND chapter = ?`
		args = append(args, chapter)
	}
	query += ` ORDER BY book, chapter, verse, id`
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Question
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), inArgs...); err != nil {
		return nil, err
	}
	return out, nil
}

// HiddenQuestionIDs returns the ids of questions whose tier is outside tiers.
func (s *Store) HiddenQuestionIDs(ctx context.Context, tiers []model.Tier) ([]string, error) {
	var ids []string
	if len(tiers) == 0 {
		err := s.db.SelectContext(ctx, &ids, `SELECT id FROM questions`)
		return ids, err
	}
	q, args, err := sqlx.In(`SELECT id FROM questions WHERE tier NOT IN (?)`, tiers)
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return ids, nil
}
