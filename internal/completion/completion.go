// Package completion decides when an enrollment has completed its course
// and issues the certificate.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/scoring"
)

// ErrNotFound is returned when the enrollment or completion does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence the engine needs.
type Store interface {
	GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error)
	ListEnrollmentAttempts(ctx context.Context, enrollmentID int64) ([]model.Attempt, error)
	ListCourseExams(ctx context.Context, courseID, yearID int64) ([]model.Exam, error)
	GetCompletion(ctx context.Context, id int64) (*model.Completion, error)
	GetOrCreateCompletion(ctx context.Context, enrollmentID int64, serial string, at time.Time) (*model.Completion, bool, error)
	IssueCertificate(ctx context.Context, completionID int64) (bool, error)
	DeleteCompletion(ctx context.Context, id int64) error
}

// Decision is the outcome of evaluating one enrollment.
type Decision struct {
	Average        float64
	PassedFinal    bool
	Completed      bool
	Completion     *model.Completion
	NewlyCompleted bool
}

// Engine evaluates completion criteria.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine returns an Engine backed by store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Evaluation is the pure part of the completion rule. Only graded
// attempts count.
func Evaluation(attempts []model.Attempt, exams []model.Exam) (average float64, passedFinal bool) {
	byID := make(map[int64]model.Exam, len(exams))
	for _, e := range exams {
		byID[e.ID] = e
	}
	var percents []float64
	for _, a := range attempts {
		if !a.IsGraded {
			continue
		}
		e, ok := byID[a.ExamID]
		if !ok {
			continue
		}
		percents = append(percents, scoring.Percentage(a.ScoreValue(), e.TotalScore))
		if e.IsFinal && scoring.Passed(a.ScoreValue(), e.TotalScore, e.PassingScore) {
			passedFinal = true
		}
	}
	return scoring.Average(percents), passedFinal
}

// Evaluate applies the completion rule to an enrollment: the average
// percentage over graded attempts must reach the default pass percent and
// some final exam must be passed. On success a completion is created if
// missing and its certificate issued. Repeated calls are idempotent and a
// certificate is never revoked here.
func (e *Engine) Evaluate(ctx context.Context, enrollmentID int64) (*Decision, error) {
	enr, err := e.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enr == nil {
		return nil, ErrNotFound
	}
	attempts, err := e.store.ListEnrollmentAttempts(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	exams, err := e.store.ListCourseExams(ctx, enr.CourseID, enr.AcademicYearID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	d := &Decision{}
	d.Average, d.PassedFinal = Evaluation(attempts, exams)
	if d.Average < scoring.DefaultPassPercent || !d.PassedFinal {
		return d, nil
	}
	d.Completed = true
	d.Completion, d.NewlyCompleted, err = e.issue(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if d.NewlyCompleted {
		slog.Info("course completed", "enrollment_id", enrollmentID, "average", d.Average, "completion_id", d.Completion.ID)
	}
	return d, nil
}

// issue creates the completion if needed and sets its certificate flag.
// newly reports whether the certificate went from not issued to issued.
func (e *Engine) issue(ctx context.Context, enrollmentID int64) (*model.Completion, bool, error) {
	c, _, err := e.store.GetOrCreateCompletion(ctx, enrollmentID, NewSerial(), e.now())
	if err != nil {
		return nil, false, fmt.Errorf("get or create completion: %w", err)
	}
	newly, err := e.store.IssueCertificate(ctx, c.ID)
	if err != nil {
		return nil, false, fmt.Errorf("issue certificate: %w", err)
	}
	c.CertificateIssued = true
	return c, newly, nil
}

// MarkCompleted is the administrator override: it completes an enrollment
// regardless of scores.
func (e *Engine) MarkCompleted(ctx context.Context, enrollmentID int64) (*model.Completion, bool, error) {
	enr, err := e.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, false, fmt.Errorf("get enrollment: %w", err)
	}
	if enr == nil {
		return nil, false, ErrNotFound
	}
	c, newly, err := e.issue(ctx, enrollmentID)
	if err != nil {
		return nil, false, err
	}
	slog.Info("completion marked by admin", "enrollment_id", enrollmentID, "completion_id", c.ID, "new", newly)
	return c, newly, nil
}

// Revoke deletes a completion record and returns what was removed.
func (e *Engine) Revoke(ctx context.Context, completionID int64) (*model.Completion, error) {
	c, err := e.store.GetCompletion(ctx, completionID)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if err := e.store.DeleteCompletion(ctx, completionID); err != nil {
		return nil, fmt.Errorf("delete completion: %w", err)
	}
	slog.Info("completion revoked", "completion_id", completionID, "enrollment_id", c.EnrollmentID)
	return c, nil
}

// NewSerial returns a certificate serial number.
func NewSerial() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
