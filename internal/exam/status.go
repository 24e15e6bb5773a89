package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

// StatusOf derives what a student sees for an exam given their attempt
// (nil when never started).
func StatusOf(e *model.Exam, a *model.Attempt, now time.Time) model.ExamStatus {
	switch {
	case a != nil && a.IsFinalized && a.IsGraded:
		return model.ExamResultsAvailable
	case a != nil && a.IsFinalized:
		return model.ExamPendingResults
	case now.Before(e.StartTime):
		return model.ExamNotAvailableYet
	case !now.Before(e.EndTime):
		return model.ExamExpired
	case a != nil:
		return model.ExamInProgress
	default:
		return model.ExamActive
	}
}

// ListForStudent returns the active exams of an enrollment's course year
// with the student's status for each.
func (s *Service) ListForStudent(ctx context.Context, enr *model.Enrollment) ([]model.ExamListItem, error) {
	exams, err := s.store.ListCourseExams(ctx, enr.CourseID, enr.AcademicYearID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	now := s.now()
	var out []model.ExamListItem
	for _, e := range exams {
		if !e.IsActive {
			continue
		}
		a, err := s.store.FindAttempt(ctx, enr.ID, e.ID)
		if err != nil {
			return nil, fmt.Errorf("find attempt: %w", err)
		}
		out = append(out, model.ExamListItem{Exam: e, Attempt: a, Status: StatusOf(&e, a, now)})
	}
	return out, nil
}

// Results returns a finalized attempt for display to its student.
func (s *Service) Results(ctx context.Context, attemptID int64) (*model.AttemptView, error) {
	v, err := s.store.GetAttemptView(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	if !v.Attempt.IsFinalized {
		return nil, ErrNotFinalized
	}
	return v, nil
}
