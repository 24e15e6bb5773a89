// Package exam runs the exam lifecycle: authoring questions, taking an
// attempt, and grading it.
package exam

import (
	"context"
	"errors"
	"time"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotEnrolled      = errors.New("not enrolled in this course")
	ErrWindowClosed     = errors.New("exam is not available at this time")
	ErrAlreadyFinalized = errors.New("exam already completed")
	ErrNotFinalized     = errors.New("attempt has not been submitted")
	ErrInvalidAnswer    = errors.New("invalid answer")
)

// Store is the persistence the exam service needs.
type Store interface {
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	ListCourseExams(ctx context.Context, courseID, yearID int64) ([]model.Exam, error)
	FindEnrollment(ctx context.Context, studentID, courseID, yearID int64) (*model.Enrollment, error)

	CreateAttempt(ctx context.Context, enrollmentID, examID int64, startedAt time.Time) (*model.Attempt, error)
	GetAttempt(ctx context.Context, id int64) (*model.Attempt, error)
	FindAttempt(ctx context.Context, enrollmentID, examID int64) (*model.Attempt, error)
	FinalizeAttempt(ctx context.Context, attemptID int64, at time.Time) (bool, error)
	RecomputeAttemptScore(ctx context.Context, attemptID int64) error
	SaveAttemptGrade(ctx context.Context, attemptID int64, score float64, feedback string, graded bool) error
	GetAttemptView(ctx context.Context, attemptID int64) (*model.AttemptView, error)

	ListExamQuestions(ctx context.Context, examID int64) ([]model.Question, error)
	GetQuestion(ctx context.Context, id int64) (*model.Question, error)
	CreateQuestion(ctx context.Context, q model.Question) (int64, error)
	UpdateQuestion(ctx context.Context, q model.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	ListAttemptAnswers(ctx context.Context, attemptID int64) ([]model.Answer, error)
	UpsertAnswer(ctx context.Context, a model.Answer) error
	SaveAnswerGrade(ctx context.Context, answerID int64, score float64, feedback string) error
	SaveAnswerSuggestion(ctx context.Context, answerID int64, score float64, feedback string) error

	ExamGradingCounts(ctx context.Context, examID int64) (finalized, graded int, err error)
	SetExamGraded(ctx context.Context, examID int64, graded bool) (bool, error)
}

// Service implements the exam operations on top of a Store.
type Service struct {
	store  Store
	grader *grading.Engine
	blobs  blob.Store
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService builds a Service. blobs may be nil when file uploads are not
// accepted.
func NewService(store Store, grader *grading.Engine, blobs blob.Store, opts ...Option) *Service {
	s := &Service{store: store, grader: grader, blobs: blobs, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReconcileExamGraded recomputes the exam's graded flag: true iff at least
// one attempt is finalized and every finalized attempt is graded. It
// reports true only when this call moved the flag from false to true.
func (s *Service) ReconcileExamGraded(ctx context.Context, examID int64) (bool, error) {
	finalized, graded, err := s.store.ExamGradingCounts(ctx, examID)
	if err != nil {
		return false, err
	}
	all := finalized > 0 && graded == finalized
	changed, err := s.store.SetExamGraded(ctx, examID, all)
	if err != nil {
		return false, err
	}
	return all && changed, nil
}
