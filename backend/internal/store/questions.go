package store

import (
	apperrors "smart-employee/backend/pkg/errors"
)

// Question is one logic-test item in the generated question bank
type Question struct {
	ID        int64  `db:"id" json:"id"`
	Text      string `db:"text" json:"text"`
	Options   string `db:"options" json:"options"` // JSON array of {text, score}
	Dimension string `db:"dimension" json:"dimension"`
}

// CountQuestions returns the number of stored questions
func (s *Store) CountQuestions() (int, error) {
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM questions`); err != nil {
		return 0, apperrors.NewStoreQueryFailed("count questions", err)
	}
	return count, nil
}

// ReplaceQuestions swaps the whole question bank for a freshly generated set
func (s *Store) ReplaceQuestions(questions []Question) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return apperrors.NewStoreQueryFailed("replace questions", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM questions`); err != nil {
		return apperrors.NewStoreQueryFailed("replace questions", err)
	}
	for _, q := range questions {
		_, err := tx.Exec(
			`INSERT INTO questions (id, text, options, dimension) VALUES (?, ?, ?, ?)`,
			q.ID, q.Text, q.Options, q.Dimension,
		)
		if err != nil {
			return apperrors.NewStoreQueryFailed("replace questions", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreQueryFailed("replace questions", err)
	}
	return nil
}

// ListQuestions returns the question bank in id order
func (s *Store) ListQuestions() ([]Question, error) {
	questions := []Question{}
	if err := s.db.Select(&questions, `SELECT * FROM questions ORDER BY id`); err != nil {
		return nil, apperrors.NewStoreQueryFailed("list questions", err)
	}
	return questions, nil
}
