package exam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/scoring"
)

// Suggester proposes a score and feedback for an essay answer.
type Suggester interface {
	Suggest(ctx context.Context, q model.Question, a model.Answer) (score float64, feedback string, err error)
}

// Suggest asks sg for an advisory score on every answered essay of a
// submitted attempt and stores it next to the answer. Awarded scores are
// never touched. A failing answer is logged and skipped; the number of
// stored suggestions is returned.
func (s *Service) Suggest(ctx context.Context, attemptID int64, sg Suggester) (int, error) {
	view, err := s.store.GetAttemptView(ctx, attemptID)
	if err != nil {
		return 0, fmt.Errorf("get attempt: %w", err)
	}
	if view == nil {
		return 0, ErrNotFound
	}
	if !view.Attempt.IsFinalized {
		return 0, ErrNotFinalized
	}

	stored := 0
	for _, q := range view.Questions {
		if q.Type != model.QuestionEssay {
			continue
		}
		ans, ok := view.Answers[q.ID]
		if !ok || (ans.EssayText == nil && ans.UploadedFile == "") {
			continue
		}
		score, feedback, err := sg.Suggest(ctx, q, ans)
		if err != nil {
			slog.Warn("essay suggestion failed", "attempt_id", attemptID, "question_id", q.ID, "error", err)
			continue
		}
		score, _ = scoring.Clamp(score, q.MaxScore)
		if err := s.store.SaveAnswerSuggestion(ctx, ans.ID, score, feedback); err != nil {
			return stored, fmt.Errorf("save suggestion: %w", err)
		}
		stored++
	}
	return stored, nil
}
