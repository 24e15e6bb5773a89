package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pavelanni/academy/internal/model"
)

const questionColumns = `id, exam_id, position, question_type, text, max_score, is_true, rubric`

// CreateQuestion inserts a question and its options in one transaction.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var pos int
		if err := tx.GetContext(ctx, &pos,
			tx.Rebind(`SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE exam_id = ?`), q.ExamID); err != nil {
			return err
		}
		if q.Position > 0 {
			pos = q.Position
		}
		var err error
		id, err = insert(ctx, tx,
			`INSERT INTO questions (exam_id, position, question_type, text, max_score, is_true, rubric)
			 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			q.ExamID, pos, q.Type, q.Text, q.MaxScore, q.IsTrue, q.Rubric)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return insertOptions(ctx, tx, id, q.Options)
	})
	return id, err
}

// UpdateQuestion rewrites a question and replaces its options atomically.
func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE questions SET text = ?, max_score = ?, is_true = ?, rubric = ? WHERE id = ?`),
			q.Text, q.MaxScore, q.IsTrue, q.Rubric, q.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`DELETE FROM answer_options WHERE question_id = ?`), q.ID); err != nil {
			return err
		}
		return insertOptions(ctx, tx, q.ID, q.Options)
	})
}

func insertOptions(ctx context.Context, tx *sqlx.Tx, questionID int64, opts []model.AnswerOption) error {
	for _, o := range opts {
		if _, err := insert(ctx, tx,
			`INSERT INTO answer_options (question_id, text, is_correct) VALUES (?, ?, ?) RETURNING id`,
			questionID, o.Text, o.IsCorrect); err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}
	return nil
}

// DeleteQuestion removes a question and, by cascade, its options and answers.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	_, err := s.exec(ctx, `DELETE FROM questions WHERE id = ?`, id)
	return err
}

// GetQuestion returns a question with its options, or nil.
func (s *Store) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q, err := getOrNil[model.Question](ctx, s, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	if err != nil || q == nil {
		return q, err
	}
	if err := s.selectx(ctx, &q.Options,
		`SELECT id, question_id, text, is_correct FROM answer_options WHERE question_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	return q, nil
}

// ListExamQuestions returns the questions of an exam in order, with options.
func (s *Store) ListExamQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	var questions []model.Question
	if err := s.selectx(ctx, &questions,
		`SELECT `+questionColumns+` FROM questions WHERE exam_id = ? ORDER BY position, id`, examID); err != nil {
		return nil, err
	}
	var opts []model.AnswerOption
	if err := s.selectx(ctx, &opts,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM answer_options o JOIN questions q ON q.id = o.question_id
		 WHERE q.exam_id = ? ORDER BY o.id`, examID); err != nil {
		return nil, err
	}
	byQuestion := make(map[int64][]model.AnswerOption)
	for _, o := range opts {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
	}
	return questions, nil
}
