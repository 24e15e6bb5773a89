package exam

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/scoring"
)

// Warning is a non-blocking message produced while grading. MsgID is an
// i18n message ID and Data its template data.
type Warning struct {
	MsgID string
	Data  map[string]any
}

// GradeInput is the instructor's grading form for one attempt. Scores and
// Feedback are keyed by answer ID; answers absent from Scores keep their
// current score. An empty TotalScore means "sum of answer scores".
type GradeInput struct {
	AttemptID          int64
	Scores             map[int64]string
	Feedback           map[int64]string
	TotalScore         string
	InstructorFeedback string
	Finalize           bool
}

// GradeResult carries the refreshed attempt and any warnings.
type GradeResult struct {
	View       *model.AttemptView
	Warnings   []Warning
	ExamGraded bool
}

func parseScore(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Grade applies per-answer scores, the attempt total and feedback. Scores
// above their maximum are clamped with a warning. Finalize marks the
// attempt graded; a graded attempt stays graded.
func (s *Service) Grade(ctx context.Context, in GradeInput) (*GradeResult, error) {
	view, err := s.store.GetAttemptView(ctx, in.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if view == nil {
		return nil, ErrNotFound
	}
	if !view.Attempt.IsFinalized {
		return nil, ErrNotFinalized
	}

	res := &GradeResult{}
	var sum float64
	for _, q := range view.Questions {
		ans, ok := view.Answers[q.ID]
		if !ok {
			continue
		}
		raw, present := in.Scores[ans.ID]
		if !present {
			if ans.AwardedScore != nil {
				sum += *ans.AwardedScore
			}
			continue
		}
		v, valid := parseScore(raw)
		if !valid {
			res.Warnings = append(res.Warnings, Warning{
				MsgID: "GradeInvalidScore",
				Data:  map[string]any{"Question": q.Position},
			})
		}
		v, clamped := scoring.Clamp(v, q.MaxScore)
		if clamped {
			res.Warnings = append(res.Warnings, Warning{
				MsgID: "GradeScoreClamped",
				Data:  map[string]any{"Question": q.Position, "Max": q.MaxScore},
			})
		}
		feedback, ok := in.Feedback[ans.ID]
		if !ok {
			feedback = ans.Feedback
		}
		if err := s.store.SaveAnswerGrade(ctx, ans.ID, v, strings.TrimSpace(feedback)); err != nil {
			return nil, fmt.Errorf("save answer grade: %w", err)
		}
		sum += v
	}

	total := sum
	if strings.TrimSpace(in.TotalScore) != "" {
		v, valid := parseScore(in.TotalScore)
		if !valid {
			res.Warnings = append(res.Warnings, Warning{MsgID: "GradeInvalidTotal"})
		}
		total = v
	}
	total, clamped := scoring.Clamp(total, view.Exam.TotalScore)
	if clamped {
		res.Warnings = append(res.Warnings, Warning{
			MsgID: "GradeTotalClamped",
			Data:  map[string]any{"Max": view.Exam.TotalScore},
		})
	}

	graded := in.Finalize || view.Attempt.IsGraded
	if err := s.store.SaveAttemptGrade(ctx, view.Attempt.ID, total, strings.TrimSpace(in.InstructorFeedback), graded); err != nil {
		return nil, fmt.Errorf("save attempt grade: %w", err)
	}
	slog.Info("attempt graded", "attempt_id", view.Attempt.ID, "score", total, "final", graded, "warnings", len(res.Warnings))

	if res.ExamGraded, err = s.ReconcileExamGraded(ctx, view.Exam.ID); err != nil {
		return nil, fmt.Errorf("reconcile exam: %w", err)
	}
	if res.View, err = s.store.GetAttemptView(ctx, view.Attempt.ID); err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	return res, nil
}
