package exam_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store/storetest"
)

type mixedExam struct {
	f               *storetest.Fixture
	svc             *exam.Service
	exam            model.Exam
	mcq, tf, essay  model.Question
	correctOptionID int64
	wrongOptionID   int64
}

func newMixedExam(t *testing.T, opts ...exam.Option) *mixedExam {
	t.Helper()
	f := storetest.NewFixture(t)
	m := &mixedExam{f: f}
	m.exam = f.Exam("Midterm", 16)
	m.mcq = f.Question(model.Question{
		ExamID: m.exam.ID, Type: model.QuestionMCQ, Text: "Pick Go's mascot", MaxScore: 4,
		Options: []model.AnswerOption{{Text: "Gopher", IsCorrect: true}, {Text: "Crab"}},
	})
	m.correctOptionID = m.mcq.Options[0].ID
	m.wrongOptionID = m.mcq.Options[1].ID
	m.tf = f.Question(model.Question{ExamID: m.exam.ID, Type: model.QuestionTF, Text: "Go is compiled", MaxScore: 2, IsTrue: true})
	m.essay = f.Question(model.Question{ExamID: m.exam.ID, Type: model.QuestionEssay, Text: "Explain channels", MaxScore: 10})
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	m.svc = exam.NewService(f.Store, grading.NewEngine(), blobs, opts...)
	return m
}

func (m *mixedExam) act(t *testing.T, student int64, cur exam.Cursor, action exam.Action, values map[int64]string) *exam.Result {
	t.Helper()
	res, err := m.svc.Act(context.Background(), exam.Input{
		StudentID: student, ExamID: m.exam.ID, Action: action, Cursor: cur, Values: values,
	})
	if err != nil {
		t.Fatalf("Act(%s): %v", action, err)
	}
	return res
}

// takeAll answers every question (correct MCQ, the given TF value and an
// essay) and submits.
func (m *mixedExam) takeAll(t *testing.T, student int64, tf string) model.Attempt {
	t.Helper()
	sess, err := m.svc.Open(context.Background(), student, m.exam.ID, exam.Cursor{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cur := sess.Cursor
	cur = m.act(t, student, cur, exam.ActionNext, map[int64]string{m.mcq.ID: strconv.FormatInt(m.correctOptionID, 10)}).Session.Cursor
	cur = m.act(t, student, cur, exam.ActionNext, map[int64]string{m.tf.ID: tf}).Session.Cursor
	res := m.act(t, student, cur, exam.ActionSubmit, map[int64]string{m.essay.ID: "Channels pass values between goroutines."})
	if !res.Submitted {
		t.Fatal("expected attempt to be submitted")
	}
	return res.Session.Attempt
}

func TestTakeAndSubmit(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("alice")
	ctx := context.Background()

	sess, err := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{AttemptID: 999, Index: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !sess.Created || sess.Cursor.Index != 1 || sess.Current().ID != m.mcq.ID {
		t.Fatalf("new attempt should start at question 1: %+v", sess.Cursor)
	}

	attempt := m.takeAll(t, student, "True")
	if !attempt.IsFinalized || attempt.IsGraded || attempt.CompletedAt == nil {
		t.Fatalf("attempt = %+v, want finalized and ungraded", attempt)
	}
	if attempt.Score == nil || *attempt.Score != 6 {
		t.Errorf("Score = %v, want 6 (MCQ 4 + TF 2, essay ungraded)", attempt.Score)
	}

	answers, _ := m.f.Store.ListAttemptAnswers(ctx, attempt.ID)
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	for _, a := range answers {
		if a.QuestionID == m.essay.ID && (a.AwardedScore != nil || a.IsCorrect) {
			t.Errorf("essay answer should be ungraded: %+v", a)
		}
	}

	if _, err := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{}); !errors.Is(err, exam.ErrAlreadyFinalized) {
		t.Errorf("reopen err = %v, want ErrAlreadyFinalized", err)
	}
}

func TestNavigationBounds(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("bob")
	sess, _ := m.svc.Open(context.Background(), student, m.exam.ID, exam.Cursor{})

	res := m.act(t, student, sess.Cursor, exam.ActionPrev, nil)
	if res.Session.Cursor.Index != 1 {
		t.Errorf("prev at first question: index = %d, want 1", res.Session.Cursor.Index)
	}
	cur := exam.Cursor{AttemptID: sess.Attempt.ID, Index: 3}
	res = m.act(t, student, cur, exam.ActionNext, nil)
	if res.Session.Cursor.Index != 3 {
		t.Errorf("next at last question: index = %d, want 3", res.Session.Cursor.Index)
	}
	cur.Index = 42
	res = m.act(t, student, cur, exam.ActionSave, nil)
	if res.Session.Cursor.Index != 3 || !res.Saved {
		t.Errorf("out-of-range cursor should clamp: %+v", res.Session.Cursor)
	}
	if res.Session.Attempt.IsFinalized {
		t.Error("save must not finalize")
	}
}

func TestAnswerOnlyForCurrentQuestion(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("carol")
	sess, _ := m.svc.Open(context.Background(), student, m.exam.ID, exam.Cursor{})

	// TF value is posted while the cursor is on the MCQ.
	m.act(t, student, sess.Cursor, exam.ActionSave, map[int64]string{m.tf.ID: "True"})
	answers, _ := m.f.Store.ListAttemptAnswers(context.Background(), sess.Attempt.ID)
	if len(answers) != 0 {
		t.Errorf("expected no stored answers, got %+v", answers)
	}
}

func TestChangedAnswerRescores(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("dan")
	sess, _ := m.svc.Open(context.Background(), student, m.exam.ID, exam.Cursor{})

	res := m.act(t, student, sess.Cursor, exam.ActionSave, map[int64]string{m.mcq.ID: strconv.FormatInt(m.correctOptionID, 10)})
	if *res.Session.Attempt.Score != 4 {
		t.Fatalf("Score = %v, want 4", *res.Session.Attempt.Score)
	}
	res = m.act(t, student, sess.Cursor, exam.ActionSave, map[int64]string{m.mcq.ID: strconv.FormatInt(m.wrongOptionID, 10)})
	if *res.Session.Attempt.Score != 0 {
		t.Errorf("Score = %v, want 0 after switching to wrong option", *res.Session.Attempt.Score)
	}
	// Missing selection leaves the stored answer alone.
	res = m.act(t, student, sess.Cursor, exam.ActionSave, map[int64]string{})
	if res.Session.Answers[m.mcq.ID].SelectedOptionID == nil || *res.Session.Answers[m.mcq.ID].SelectedOptionID != m.wrongOptionID {
		t.Errorf("missing selection should keep previous answer")
	}
}

func TestBlankEssayIsNoOp(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("erin")
	ctx := context.Background()
	sess, _ := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{})
	cur := exam.Cursor{AttemptID: sess.Attempt.ID, Index: 3}

	m.act(t, student, cur, exam.ActionSave, map[int64]string{m.essay.ID: "   "})
	answers, _ := m.f.Store.ListAttemptAnswers(ctx, sess.Attempt.ID)
	if len(answers) != 0 {
		t.Fatalf("blank essay created an answer: %+v", answers)
	}

	_, err := m.svc.Act(ctx, exam.Input{
		StudentID: student, ExamID: m.exam.ID, Action: exam.ActionSave, Cursor: cur,
		Files: map[int64]exam.Upload{m.essay.ID: {Filename: "essay.txt", Body: strings.NewReader("draft")}},
	})
	if err != nil {
		t.Fatalf("Act with file: %v", err)
	}
	answers, _ = m.f.Store.ListAttemptAnswers(ctx, sess.Attempt.ID)
	if len(answers) != 1 || answers[0].UploadedFile == "" {
		t.Fatalf("file-only essay not stored: %+v", answers)
	}
}

func TestWindowEnforcedOnWrites(t *testing.T) {
	now := time.Now()
	clock := now
	m := newMixedExam(t, exam.WithClock(func() time.Time { return clock }))
	student, _ := m.f.Student("frank")
	ctx := context.Background()

	sess, err := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	clock = now.Add(2 * time.Hour)
	_, err = m.svc.Act(ctx, exam.Input{StudentID: student, ExamID: m.exam.ID, Action: exam.ActionSubmit, Cursor: sess.Cursor})
	if !errors.Is(err, exam.ErrWindowClosed) {
		t.Errorf("submit after end err = %v, want ErrWindowClosed", err)
	}
	clock = now.Add(-2 * time.Hour)
	if _, err := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{}); !errors.Is(err, exam.ErrWindowClosed) {
		t.Errorf("open before start err = %v, want ErrWindowClosed", err)
	}
}

func TestNotEnrolled(t *testing.T) {
	m := newMixedExam(t)
	if _, err := m.svc.Open(context.Background(), m.f.Instructor, m.exam.ID, exam.Cursor{}); !errors.Is(err, exam.ErrNotEnrolled) {
		t.Errorf("err = %v, want ErrNotEnrolled", err)
	}
	if _, err := m.svc.Open(context.Background(), m.f.Instructor, 9999, exam.Cursor{}); !errors.Is(err, exam.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEmptyExamSubmit(t *testing.T) {
	f := storetest.NewFixture(t)
	e := f.Exam("Empty", 10)
	student, _ := f.Student("gina")
	svc := exam.NewService(f.Store, grading.NewEngine(), nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, student, e.ID, exam.Cursor{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.Cursor.Index != 0 || sess.Current() != nil {
		t.Fatalf("empty exam cursor = %+v", sess.Cursor)
	}
	res, err := svc.Act(ctx, exam.Input{StudentID: student, ExamID: e.ID, Action: exam.ActionNext, Cursor: sess.Cursor})
	if err != nil || res.Session.Cursor.Index != 0 {
		t.Fatalf("navigation on empty exam = %+v, %v", res, err)
	}
	res, err = svc.Act(ctx, exam.Input{StudentID: student, ExamID: e.ID, Action: exam.ActionSubmit, Cursor: sess.Cursor})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Session.Attempt.IsFinalized || res.Session.Attempt.ScoreValue() != 0 {
		t.Errorf("attempt = %+v, want finalized with score 0", res.Session.Attempt)
	}
}

func TestGradeClampsAndFinalizes(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("hank")
	ctx := context.Background()
	attempt := m.takeAll(t, student, "True")

	view, _ := m.f.Store.GetAttemptView(ctx, attempt.ID)
	essayAnswer := view.Answers[m.essay.ID]

	res, err := m.svc.Grade(ctx, exam.GradeInput{
		AttemptID: attempt.ID,
		Scores:    map[int64]string{essayAnswer.ID: "15"},
		Feedback:  map[int64]string{essayAnswer.ID: "Thorough."},
		Finalize:  true,
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].MsgID != "GradeScoreClamped" {
		t.Fatalf("warnings = %+v, want one clamp warning", res.Warnings)
	}
	got := res.View.Answers[m.essay.ID]
	if got.AwardedScore == nil || *got.AwardedScore != 10 || got.Feedback != "Thorough." {
		t.Errorf("essay answer = %+v, want score 10", got)
	}
	if !res.View.Attempt.IsGraded || *res.View.Attempt.Score != 16 {
		t.Errorf("attempt = %+v, want graded with 16", res.View.Attempt)
	}
	if !res.ExamGraded {
		t.Error("single graded attempt should flip the exam to graded")
	}
}

func TestGradeTotalOverride(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("ivy")
	ctx := context.Background()
	attempt := m.takeAll(t, student, "False")

	res, err := m.svc.Grade(ctx, exam.GradeInput{AttemptID: attempt.ID, TotalScore: "99", InstructorFeedback: "ok"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if *res.View.Attempt.Score != 16 || res.View.Attempt.IsGraded {
		t.Errorf("attempt = %+v, want score clamped to 16 and not graded", res.View.Attempt)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].MsgID != "GradeTotalClamped" {
		t.Errorf("warnings = %+v", res.Warnings)
	}

	res, _ = m.svc.Grade(ctx, exam.GradeInput{AttemptID: attempt.ID, TotalScore: "abc"})
	if *res.View.Attempt.Score != 0 || len(res.Warnings) != 1 || res.Warnings[0].MsgID != "GradeInvalidTotal" {
		t.Errorf("invalid total: score = %v, warnings = %+v", *res.View.Attempt.Score, res.Warnings)
	}
}

func TestGradeRequiresFinalized(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("jack")
	sess, _ := m.svc.Open(context.Background(), student, m.exam.ID, exam.Cursor{})
	_, err := m.svc.Grade(context.Background(), exam.GradeInput{AttemptID: sess.Attempt.ID, Finalize: true})
	if !errors.Is(err, exam.ErrNotFinalized) {
		t.Errorf("err = %v, want ErrNotFinalized", err)
	}
}

func TestExamGradedFiresOncePerCrossing(t *testing.T) {
	m := newMixedExam(t)
	s1, _ := m.f.Student("kim")
	s2, _ := m.f.Student("lee")
	ctx := context.Background()
	a1 := m.takeAll(t, s1, "True")
	a2 := m.takeAll(t, s2, "True")

	res, _ := m.svc.Grade(ctx, exam.GradeInput{AttemptID: a1.ID, Finalize: true})
	if res.ExamGraded {
		t.Fatal("exam must not be graded while another attempt is pending")
	}
	res, _ = m.svc.Grade(ctx, exam.GradeInput{AttemptID: a2.ID, Finalize: true})
	if !res.ExamGraded {
		t.Fatal("grading the last attempt should fire")
	}
	res, _ = m.svc.Grade(ctx, exam.GradeInput{AttemptID: a2.ID, Finalize: true, InstructorFeedback: "again"})
	if res.ExamGraded {
		t.Error("re-grading must not fire again")
	}
	e, _ := m.f.Store.GetExam(ctx, m.exam.ID)
	if !e.IsGraded {
		t.Error("exam flag should be set")
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	m := newMixedExam(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      exam.QuestionInput
		wantIDs []string
	}{
		{
			name:    "no options",
			in:      exam.QuestionInput{Type: model.QuestionMCQ, Text: "Q", MaxScore: 1},
			wantIDs: []string{"QuestionNoOptions"},
		},
		{
			name: "all deleted",
			in: exam.QuestionInput{Type: model.QuestionMCQ, Text: "Q", MaxScore: 1,
				Options: []exam.OptionInput{{Text: "a", IsCorrect: true, Delete: true}}},
			wantIDs: []string{"QuestionNoOptions"},
		},
		{
			name: "single option",
			in: exam.QuestionInput{Type: model.QuestionMCQ, Text: "Q", MaxScore: 1,
				Options: []exam.OptionInput{{Text: "a", IsCorrect: true}, {Text: "b", Delete: true}}},
			wantIDs: []string{"QuestionTooFewOptions"},
		},
		{
			name: "two correct",
			in: exam.QuestionInput{Type: model.QuestionMCQ, Text: "Q", MaxScore: 1,
				Options: []exam.OptionInput{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}},
			wantIDs: []string{"QuestionOneCorrect"},
		},
		{
			name: "none correct and blank",
			in: exam.QuestionInput{Type: model.QuestionMCQ, Text: "Q", MaxScore: 1,
				Options: []exam.OptionInput{{Text: " "}, {Text: "b"}}},
			wantIDs: []string{"QuestionBlankOption", "QuestionOneCorrect"},
		},
		{
			name:    "blank text",
			in:      exam.QuestionInput{Type: model.QuestionEssay, Text: "  ", MaxScore: 5},
			wantIDs: []string{"QuestionBlankText"},
		},
		{
			name:    "negative max score",
			in:      exam.QuestionInput{Type: model.QuestionTF, Text: "Q", MaxScore: -1},
			wantIDs: []string{"QuestionBadMaxScore"},
		},
		{
			name:    "unknown type",
			in:      exam.QuestionInput{Type: "MATCH", Text: "Q", MaxScore: 1},
			wantIDs: []string{"QuestionUnknownType"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := m.f.Store.ListExamQuestions(ctx, m.exam.ID)
			_, err := m.svc.CreateQuestion(ctx, m.exam.ID, tt.in)
			var ve *exam.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if strings.Join(ve.MsgIDs, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("MsgIDs = %v, want %v", ve.MsgIDs, tt.wantIDs)
			}
			after, _ := m.f.Store.ListExamQuestions(ctx, m.exam.ID)
			if len(after) != len(before) {
				t.Error("invalid question must not be stored")
			}
		})
	}

	id, err := m.svc.CreateQuestion(ctx, m.exam.ID, exam.QuestionInput{
		Type: model.QuestionMCQ, Text: "Valid", MaxScore: 2,
		Options: []exam.OptionInput{{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c", Delete: true}},
	})
	if err != nil {
		t.Fatalf("CreateQuestion valid: %v", err)
	}
	q, _ := m.f.Store.GetQuestion(ctx, id)
	if len(q.Options) != 2 || !q.Options[1].IsCorrect {
		t.Errorf("stored options = %+v", q.Options)
	}

	if _, err := m.svc.CreateQuestion(ctx, m.exam.ID, exam.QuestionInput{
		Type: model.QuestionTF, Text: "Bonus", MaxScore: 0, IsTrue: true,
	}); err != nil {
		t.Errorf("zero-point question rejected: %v", err)
	}

	err = m.svc.UpdateQuestion(ctx, id, exam.QuestionInput{Type: model.QuestionTF, Text: "x", MaxScore: 1})
	var ve *exam.ValidationError
	if !errors.As(err, &ve) || ve.MsgIDs[0] != "QuestionTypeMismatch" {
		t.Errorf("type change err = %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := &model.Exam{StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}
	later := &model.Exam{StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)}
	past := &model.Exam{StartTime: now.Add(-2 * time.Hour), EndTime: now}

	tests := []struct {
		name string
		exam *model.Exam
		a    *model.Attempt
		want model.ExamStatus
	}{
		{"not yet", later, nil, model.ExamNotAvailableYet},
		{"active", e, nil, model.ExamActive},
		{"in progress", e, &model.Attempt{}, model.ExamInProgress},
		{"pending", e, &model.Attempt{IsFinalized: true}, model.ExamPendingResults},
		{"results", past, &model.Attempt{IsFinalized: true, IsGraded: true}, model.ExamResultsAvailable},
		{"expired at end", past, nil, model.ExamExpired},
		{"expired unfinished", past, &model.Attempt{}, model.ExamExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exam.StatusOf(tt.exam, tt.a, now); got != tt.want {
				t.Errorf("StatusOf = %q, want %q", got, tt.want)
			}
		})
	}
}

type fixedSuggester struct {
	score float64
	calls int
}

func (f *fixedSuggester) Suggest(_ context.Context, q model.Question, _ model.Answer) (float64, string, error) {
	f.calls++
	return f.score, "looks fine", nil
}

func TestSuggestIsAdvisory(t *testing.T) {
	m := newMixedExam(t)
	student, _ := m.f.Student("alice")
	ctx := context.Background()

	sess, err := m.svc.Open(ctx, student, m.exam.ID, exam.Cursor{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.svc.Suggest(ctx, sess.Attempt.ID, &fixedSuggester{}); !errors.Is(err, exam.ErrNotFinalized) {
		t.Fatalf("Suggest before submit = %v, want ErrNotFinalized", err)
	}

	a := m.takeAll(t, student, "True")
	sg := &fixedSuggester{score: 99}
	n, err := m.svc.Suggest(ctx, a.ID, sg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || sg.calls != 1 {
		t.Fatalf("stored %d suggestions with %d calls, want 1 and 1", n, sg.calls)
	}

	answers, err := m.f.Store.ListAttemptAnswers(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, ans := range answers {
		if ans.QuestionID != m.essay.ID {
			continue
		}
		if ans.SuggestedScore == nil || *ans.SuggestedScore != 10 {
			t.Errorf("suggested score = %v, want clamped 10", ans.SuggestedScore)
		}
		if ans.AwardedScore != nil {
			t.Errorf("awarded score = %v, want untouched nil", *ans.AwardedScore)
		}
	}
}
