package store

import (
	"context"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const attemptColumns = `id, enrollment_id, exam_id, started_at, completed_at, score,
	instructor_feedback, is_finalized, is_graded`

// CreateAttempt starts a new attempt. The unique (enrollment, exam) key
// makes a concurrent second start fail instead of duplicating.
func (s *Store) CreateAttempt(ctx context.Context, enrollmentID, examID int64, startedAt time.Time) (*model.Attempt, error) {
	id, err := insert(ctx, s.db,
		`INSERT INTO attempts (enrollment_id, exam_id, started_at) VALUES (?, ?, ?) RETURNING id`,
		enrollmentID, examID, startedAt.UTC())
	if err != nil {
		return nil, err
	}
	return s.GetAttempt(ctx, id)
}

// GetAttempt returns an attempt by ID, or nil.
func (s *Store) GetAttempt(ctx context.Context, id int64) (*model.Attempt, error) {
	return getOrNil[model.Attempt](ctx, s, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
}

// FindAttempt returns the attempt of an enrollment at an exam, or nil.
func (s *Store) FindAttempt(ctx context.Context, enrollmentID, examID int64) (*model.Attempt, error) {
	return getOrNil[model.Attempt](ctx, s,
		`SELECT `+attemptColumns+` FROM attempts WHERE enrollment_id = ? AND exam_id = ?`,
		enrollmentID, examID)
}

// ListEnrollmentAttempts returns every attempt of one enrollment.
func (s *Store) ListEnrollmentAttempts(ctx context.Context, enrollmentID int64) ([]model.Attempt, error) {
	var out []model.Attempt
	err := s.selectx(ctx, &out,
		`SELECT `+attemptColumns+` FROM attempts WHERE enrollment_id = ? ORDER BY id`, enrollmentID)
	return out, err
}

// ListExamAttempts returns the attempts of an exam with student names.
func (s *Store) ListExamAttempts(ctx context.Context, examID int64) ([]model.AttemptSummary, error) {
	var out []model.AttemptSummary
	err := s.selectx(ctx, &out,
		`SELECT a.id, a.enrollment_id, a.exam_id, a.started_at, a.completed_at, a.score,
		        a.instructor_feedback, a.is_finalized, a.is_graded,
		        u.id AS student_id,
		        CASE WHEN u.display_name = '' THEN u.username ELSE u.display_name END AS student_name
		 FROM attempts a
		 JOIN enrollments e ON e.id = a.enrollment_id
		 JOIN users u ON u.id = e.student_id
		 WHERE a.exam_id = ?
		 ORDER BY a.completed_at, a.id`, examID)
	return out, err
}

// RecomputeAttemptScore sets the running score to the sum of awarded
// answer scores. Ungraded answers do not contribute.
func (s *Store) RecomputeAttemptScore(ctx context.Context, attemptID int64) error {
	_, err := s.exec(ctx,
		`UPDATE attempts SET score =
		   (SELECT COALESCE(SUM(awarded_score), 0) FROM answers WHERE attempt_id = ? AND awarded_score IS NOT NULL)
		 WHERE id = ? AND is_finalized = ?`, attemptID, attemptID, false)
	return err
}

// FinalizeAttempt submits an attempt. It reports false when the attempt was
// already finalized.
func (s *Store) FinalizeAttempt(ctx context.Context, attemptID int64, at time.Time) (bool, error) {
	return s.execAffected(ctx,
		`UPDATE attempts SET is_finalized = ?, completed_at = ?,
		   score = (SELECT COALESCE(SUM(awarded_score), 0) FROM answers WHERE attempt_id = ? AND awarded_score IS NOT NULL)
		 WHERE id = ? AND is_finalized = ?`, true, at.UTC(), attemptID, attemptID, false)
}

// SaveAttemptGrade records the instructor's total score and feedback.
// Setting graded on an attempt that is not finalized is a no-op for the flag.
func (s *Store) SaveAttemptGrade(ctx context.Context, attemptID int64, score float64, feedback string, graded bool) error {
	_, err := s.exec(ctx,
		`UPDATE attempts SET score = ?, instructor_feedback = ?,
		   is_graded = CASE WHEN is_finalized THEN ? ELSE is_graded END
		 WHERE id = ?`, score, feedback, graded, attemptID)
	return err
}

const answerColumns = `id, attempt_id, question_id, selected_option_id, bool_answer, essay_text,
	uploaded_file, is_correct, awarded_score, feedback, suggested_score, suggested_feedback`

// ListAttemptAnswers returns the stored answers of an attempt.
func (s *Store) ListAttemptAnswers(ctx context.Context, attemptID int64) ([]model.Answer, error) {
	var out []model.Answer
	err := s.selectx(ctx, &out,
		`SELECT `+answerColumns+` FROM answers WHERE attempt_id = ? ORDER BY question_id`, attemptID)
	return out, err
}

// ListExamAnswers returns the answers of every graded attempt of an exam.
func (s *Store) ListExamAnswers(ctx context.Context, examID int64) ([]model.Answer, error) {
	var out []model.Answer
	err := s.selectx(ctx, &out,
		`SELECT a.id, a.attempt_id, a.question_id, a.selected_option_id, a.bool_answer, a.essay_text,
		        a.uploaded_file, a.is_correct, a.awarded_score, a.feedback, a.suggested_score, a.suggested_feedback
		 FROM answers a JOIN attempts t ON t.id = a.attempt_id
		 WHERE t.exam_id = ? AND t.is_graded = ?`, examID, true)
	return out, err
}

// GetAnswer returns an answer by ID, or nil.
func (s *Store) GetAnswer(ctx context.Context, id int64) (*model.Answer, error) {
	return getOrNil[model.Answer](ctx, s, `SELECT `+answerColumns+` FROM answers WHERE id = ?`, id)
}

// UpsertAnswer stores a student's answer, one per (attempt, question).
// An empty UploadedFile keeps the file already on record.
func (s *Store) UpsertAnswer(ctx context.Context, a model.Answer) error {
	_, err := s.exec(ctx,
		`INSERT INTO answers (attempt_id, question_id, selected_option_id, bool_answer, essay_text,
		                      uploaded_file, is_correct, awarded_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		   selected_option_id = excluded.selected_option_id,
		   bool_answer = excluded.bool_answer,
		   essay_text = excluded.essay_text,
		   uploaded_file = CASE WHEN excluded.uploaded_file = '' THEN answers.uploaded_file ELSE excluded.uploaded_file END,
		   is_correct = excluded.is_correct,
		   awarded_score = excluded.awarded_score,
		   suggested_score = NULL,
		   suggested_feedback = ''`,
		a.AttemptID, a.QuestionID, a.SelectedOptionID, a.BoolAnswer, a.EssayText,
		a.UploadedFile, a.IsCorrect, a.AwardedScore)
	return err
}

// SaveAnswerGrade records an instructor's score and feedback for one answer.
func (s *Store) SaveAnswerGrade(ctx context.Context, answerID int64, score float64, feedback string) error {
	_, err := s.exec(ctx,
		`UPDATE answers SET awarded_score = ?, feedback = ? WHERE id = ?`, score, feedback, answerID)
	return err
}

// SaveAnswerSuggestion stores an advisory score and feedback for an answer.
func (s *Store) SaveAnswerSuggestion(ctx context.Context, answerID int64, score float64, feedback string) error {
	_, err := s.exec(ctx,
		`UPDATE answers SET suggested_score = ?, suggested_feedback = ? WHERE id = ?`, score, feedback, answerID)
	return err
}

// GetAttemptView loads an attempt with its exam, student, questions and answers.
func (s *Store) GetAttemptView(ctx context.Context, attemptID int64) (*model.AttemptView, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil || a == nil {
		return nil, err
	}
	exam, err := s.GetExam(ctx, a.ExamID)
	if err != nil || exam == nil {
		return nil, err
	}
	enr, err := s.GetEnrollment(ctx, a.EnrollmentID)
	if err != nil || enr == nil {
		return nil, err
	}
	student, err := s.GetUserByID(ctx, enr.StudentID)
	if err != nil || student == nil {
		return nil, err
	}
	questions, err := s.ListExamQuestions(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.ListAttemptAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	v := &model.AttemptView{
		Attempt:   *a,
		Exam:      *exam,
		Student:   *student,
		Questions: questions,
		Answers:   make(map[int64]model.Answer, len(answers)),
	}
	for _, ans := range answers {
		v.Answers[ans.QuestionID] = ans
	}
	return v, nil
}
