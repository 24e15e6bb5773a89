package completion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store/storetest"
)

func fp(f float64) *float64 { return &f }

func TestEvaluation(t *testing.T) {
	quiz := model.Exam{ID: 1, TotalScore: 20}
	final := model.Exam{ID: 2, TotalScore: 100, IsFinal: true}
	strictFinal := model.Exam{ID: 3, TotalScore: 100, IsFinal: true, PassingScore: fp(70)}
	empty := model.Exam{ID: 4, TotalScore: 0}
	exams := []model.Exam{quiz, final, strictFinal, empty}

	graded := func(examID int64, score float64) model.Attempt {
		return model.Attempt{ExamID: examID, Score: fp(score), IsFinalized: true, IsGraded: true}
	}

	tests := []struct {
		name       string
		attempts   []model.Attempt
		wantAvg    float64
		wantPassed bool
	}{
		{"no attempts", nil, 0, false},
		{"quiz only", []model.Attempt{graded(1, 15)}, 75, false},
		{"final at threshold", []model.Attempt{graded(2, 50)}, 50, true},
		{"final below threshold", []model.Attempt{graded(2, 49.5)}, 49.5, false},
		{"explicit passing missed", []model.Attempt{graded(3, 65)}, 65, false},
		{"explicit passing met", []model.Attempt{graded(3, 70)}, 70, true},
		{"zero total counts as zero", []model.Attempt{graded(2, 80), graded(4, 5)}, 40, true},
		{"ungraded ignored", []model.Attempt{graded(2, 80), {ExamID: 1, Score: fp(0), IsFinalized: true}}, 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, passed := completion.Evaluation(tt.attempts, exams)
			if avg != tt.wantAvg || passed != tt.wantPassed {
				t.Errorf("Evaluation = (%v, %v), want (%v, %v)", avg, passed, tt.wantAvg, tt.wantPassed)
			}
		})
	}
}

func TestEvaluateIssuesOnce(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	quiz := f.Exam("Quiz", 20)
	final := f.Exam("Final", 100, storetest.Final())
	_, enr := f.Student("alice")
	f.GradedAttempt(enr, quiz.ID, 10)
	f.GradedAttempt(enr, final.ID, 60)

	e := completion.NewEngine(f.Store)
	d, err := e.Evaluate(ctx, enr)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Completed || !d.NewlyCompleted || d.Average != 55 {
		t.Fatalf("decision = %+v, want newly completed with average 55", d)
	}
	if !d.Completion.CertificateIssued || d.Completion.Serial == "" {
		t.Errorf("completion = %+v", d.Completion)
	}

	d2, err := e.Evaluate(ctx, enr)
	if err != nil {
		t.Fatalf("Evaluate again: %v", err)
	}
	if !d2.Completed || d2.NewlyCompleted || d2.Completion.ID != d.Completion.ID {
		t.Errorf("second decision = %+v, want same completion, not new", d2)
	}
}

func TestCertificateSurvivesLowerScores(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	quiz := f.Exam("Quiz", 100)
	final := f.Exam("Final", 100, storetest.Final())
	_, enr := f.Student("dave")
	qa := f.GradedAttempt(enr, quiz.ID, 80)
	fa := f.GradedAttempt(enr, final.ID, 70)

	e := completion.NewEngine(f.Store)
	d, err := e.Evaluate(ctx, enr)
	if err != nil || !d.NewlyCompleted {
		t.Fatalf("Evaluate = %+v, %v, want newly completed", d, err)
	}

	for _, a := range []model.Attempt{qa, fa} {
		if err := f.Store.SaveAttemptGrade(ctx, a.ID, 10, "regraded", true); err != nil {
			t.Fatalf("SaveAttemptGrade: %v", err)
		}
	}
	d, err = e.Evaluate(ctx, enr)
	if err != nil {
		t.Fatalf("Evaluate after regrade: %v", err)
	}
	if d.Completed || d.Average != 10 {
		t.Errorf("decision = %+v, want not completed with average 10", d)
	}
	c, err := f.Store.GetEnrollmentCompletion(ctx, enr)
	if err != nil || c == nil || !c.CertificateIssued {
		t.Errorf("completion = %+v (%v), want certificate still issued", c, err)
	}
}

func TestEvaluateBelowAverage(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	quiz := f.Exam("Quiz", 100)
	final := f.Exam("Final", 100, storetest.Final(), storetest.PassingScore(40))
	_, enr := f.Student("bob")
	f.GradedAttempt(enr, quiz.ID, 10)
	f.GradedAttempt(enr, final.ID, 45)

	d, err := completion.NewEngine(f.Store).Evaluate(ctx, enr)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Completed || !d.PassedFinal || d.Average != 27.5 {
		t.Errorf("decision = %+v, want passed final but not completed", d)
	}
	c, _ := f.Store.GetEnrollmentCompletion(ctx, enr)
	if c != nil {
		t.Error("no completion should exist")
	}
}

func TestMarkAndRevoke(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	_, enr := f.Student("carol")
	e := completion.NewEngine(f.Store)

	c, newly, err := e.MarkCompleted(ctx, enr)
	if err != nil || !newly || !c.CertificateIssued {
		t.Fatalf("MarkCompleted = %+v, %v, %v", c, newly, err)
	}
	_, newly, _ = e.MarkCompleted(ctx, enr)
	if newly {
		t.Error("second mark should not be new")
	}

	removed, err := e.Revoke(ctx, c.ID)
	if err != nil || removed.EnrollmentID != enr {
		t.Fatalf("Revoke = %+v, %v", removed, err)
	}
	if _, err := e.Revoke(ctx, c.ID); !errors.Is(err, completion.ErrNotFound) {
		t.Errorf("second revoke err = %v, want ErrNotFound", err)
	}
	if _, _, err := e.MarkCompleted(ctx, 9999); !errors.Is(err, completion.ErrNotFound) {
		t.Errorf("unknown enrollment err = %v, want ErrNotFound", err)
	}
}
