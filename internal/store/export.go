package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/scoring"
)

// ExportCourse builds an export document for one course and academic year.
func (s *Store) ExportCourse(ctx context.Context, courseID, yearID int64) (*model.CourseExport, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %d not found", courseID)
	}
	exams, err := s.ListCourseExams(ctx, courseID, yearID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	out := &model.CourseExport{ExportedAt: time.Now().UTC(), Course: *course}
	for _, e := range exams {
		questions, err := s.ListExamQuestions(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("list questions of exam %d: %w", e.ID, err)
		}
		attempts, err := s.ListExamAttempts(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("list attempts of exam %d: %w", e.ID, err)
		}
		ee := model.ExamExport{Exam: e, Questions: questions}
		for _, a := range attempts {
			if !a.IsFinalized {
				continue
			}
			ee.Attempts = append(ee.Attempts, model.AttemptExport{
				Student:     a.StudentName,
				Score:       a.Score,
				Percent:     scoring.Percentage(a.ScoreValue(), e.TotalScore),
				Passed:      a.IsGraded && scoring.Passed(a.ScoreValue(), e.TotalScore, e.PassingScore),
				IsGraded:    a.IsGraded,
				CompletedAt: a.CompletedAt,
				Feedback:    a.InstructorFeedback,
			})
		}
		out.Exams = append(out.Exams, ee)
	}

	out.Completions, err = s.ListCourseCompletions(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return out, nil
}
