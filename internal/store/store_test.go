package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store/storetest"
)

func TestUserCRUD(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(ctx, model.User{
		Username: "alice", DisplayName: "Alice", PasswordHash: "hash",
		Role: model.UserRoleStudent, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleStudent || !u.Active {
		t.Fatalf("unexpected user: %+v", u)
	}

	missing, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	if err := s.ToggleUserActive(ctx, id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(ctx, id)
	if u.Active {
		t.Error("expected user to be inactive after toggle")
	}
}

func TestAuthSession(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()

	token, err := f.Store.CreateAuthSession(ctx, f.Instructor)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	sess, err := f.Store.GetAuthSession(ctx, token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession: %v, %v", sess, err)
	}
	if sess.UserID != f.Instructor {
		t.Errorf("UserID = %d, want %d", sess.UserID, f.Instructor)
	}
	if err := f.Store.DeleteAuthSession(ctx, token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, _ = f.Store.GetAuthSession(ctx, token)
	if sess != nil {
		t.Error("expected session to be gone after delete")
	}
}

func TestQuestionWithOptions(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	exam := f.Exam("Midterm", 10)

	q := f.Question(model.Question{
		ExamID: exam.ID, Type: model.QuestionMCQ, Text: "Capital of France?", MaxScore: 2,
		Options: []model.AnswerOption{{Text: "Paris", IsCorrect: true}, {Text: "Rome"}},
	})
	if q.Position != 1 {
		t.Errorf("Position = %d, want 1", q.Position)
	}
	if len(q.Options) != 2 || !q.Options[0].IsCorrect {
		t.Fatalf("options = %+v", q.Options)
	}
	f.Question(model.Question{ExamID: exam.ID, Type: model.QuestionTF, Text: "Go has generics", MaxScore: 1, IsTrue: true})

	list, err := f.Store.ListExamQuestions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListExamQuestions: %v", err)
	}
	if len(list) != 2 || list[1].Position != 2 || len(list[0].Options) != 2 || len(list[1].Options) != 0 {
		t.Fatalf("unexpected questions: %+v", list)
	}

	q.Text = "Capital of Italy?"
	q.Options = []model.AnswerOption{{Text: "Rome", IsCorrect: true}, {Text: "Paris"}, {Text: "Milan"}}
	if err := f.Store.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	got, _ := f.Store.GetQuestion(ctx, q.ID)
	if got.Text != "Capital of Italy?" || len(got.Options) != 3 || got.Options[0].Text != "Rome" {
		t.Errorf("after update: %+v", got)
	}

	if err := f.Store.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	got, _ = f.Store.GetQuestion(ctx, q.ID)
	if got != nil {
		t.Error("expected question to be deleted")
	}
}

func TestAnswerUpsertAndScore(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	exam := f.Exam("Quiz", 10)
	_, enr := f.Student("bob")
	q1 := f.Question(model.Question{ExamID: exam.ID, Type: model.QuestionTF, Text: "a", MaxScore: 3, IsTrue: true})
	q2 := f.Question(model.Question{ExamID: exam.ID, Type: model.QuestionEssay, Text: "b", MaxScore: 7})

	a, err := f.Store.CreateAttempt(ctx, enr, exam.ID, time.Now())
	if err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}
	if _, err := f.Store.CreateAttempt(ctx, enr, exam.ID, time.Now()); err == nil {
		t.Error("expected duplicate attempt to fail")
	}

	score := 3.0
	yes := true
	if err := f.Store.UpsertAnswer(ctx, model.Answer{AttemptID: a.ID, QuestionID: q1.ID, BoolAnswer: &yes, IsCorrect: true, AwardedScore: &score}); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}
	text := "first"
	if err := f.Store.UpsertAnswer(ctx, model.Answer{AttemptID: a.ID, QuestionID: q2.ID, EssayText: &text, UploadedFile: "f1.pdf"}); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}
	text2 := "second"
	if err := f.Store.UpsertAnswer(ctx, model.Answer{AttemptID: a.ID, QuestionID: q2.ID, EssayText: &text2}); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}

	answers, err := f.Store.ListAttemptAnswers(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListAttemptAnswers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	essay := answers[1]
	if *essay.EssayText != "second" || essay.UploadedFile != "f1.pdf" || essay.AwardedScore != nil {
		t.Errorf("essay answer = %+v", essay)
	}

	if err := f.Store.RecomputeAttemptScore(ctx, a.ID); err != nil {
		t.Fatalf("RecomputeAttemptScore: %v", err)
	}
	got, _ := f.Store.GetAttempt(ctx, a.ID)
	if got.Score == nil || *got.Score != 3 {
		t.Errorf("Score = %v, want 3", got.Score)
	}

	ok, err := f.Store.FinalizeAttempt(ctx, a.ID, time.Now())
	if err != nil || !ok {
		t.Fatalf("FinalizeAttempt = %v, %v", ok, err)
	}
	ok, _ = f.Store.FinalizeAttempt(ctx, a.ID, time.Now())
	if ok {
		t.Error("second finalize should report no change")
	}
}

func TestExamGradedTransition(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	exam := f.Exam("Quiz", 10)
	_, enr := f.Student("carol")
	f.GradedAttempt(enr, exam.ID, 7)

	finalized, graded, err := f.Store.ExamGradingCounts(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ExamGradingCounts: %v", err)
	}
	if finalized != 1 || graded != 1 {
		t.Errorf("counts = %d/%d, want 1/1", finalized, graded)
	}

	changed, err := f.Store.SetExamGraded(ctx, exam.ID, true)
	if err != nil || !changed {
		t.Fatalf("SetExamGraded first = %v, %v", changed, err)
	}
	changed, _ = f.Store.SetExamGraded(ctx, exam.ID, true)
	if changed {
		t.Error("SetExamGraded second call should not change")
	}
}

func TestCompletionGetOrCreate(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	_, enr := f.Student("dave")

	c, created, err := f.Store.GetOrCreateCompletion(ctx, enr, "S-1", time.Now())
	if err != nil || !created || c == nil {
		t.Fatalf("first GetOrCreateCompletion = %v, %v, %v", c, created, err)
	}
	c2, created, err := f.Store.GetOrCreateCompletion(ctx, enr, "S-2", time.Now())
	if err != nil || created || c2.ID != c.ID || c2.Serial != "S-1" {
		t.Fatalf("second GetOrCreateCompletion = %+v, %v, %v", c2, created, err)
	}

	changed, _ := f.Store.IssueCertificate(ctx, c.ID)
	if !changed {
		t.Error("expected certificate issue to change flag")
	}
	changed, _ = f.Store.IssueCertificate(ctx, c.ID)
	if changed {
		t.Error("expected second issue to be a no-op")
	}

	if err := f.Store.DeleteCompletion(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCompletion: %v", err)
	}
	gone, _ := f.Store.GetCompletion(ctx, c.ID)
	if gone != nil {
		t.Error("expected completion to be deleted")
	}
}

func TestNotifications(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	uid, _ := f.Student("erin")

	first, _ := f.Store.CreateNotification(ctx, uid, "one", "/a")
	f.Store.CreateNotification(ctx, uid, "two", "/b")

	if err := f.Store.MarkNotificationRead(ctx, first, uid); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	list, err := f.Store.ListNotifications(ctx, uid, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 2 || list[0].Message != "two" || list[0].IsRead || !list[1].IsRead {
		t.Fatalf("unexpected order: %+v", list)
	}

	n, _ := f.Store.UnreadNotificationCount(ctx, uid)
	if n != 1 {
		t.Errorf("unread = %d, want 1", n)
	}
	if err := f.Store.MarkAllNotificationsRead(ctx, uid); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	n, _ = f.Store.UnreadNotificationCount(ctx, uid)
	if n != 0 {
		t.Errorf("unread after mark all = %d, want 0", n)
	}

	other, _ := f.Store.GetNotification(ctx, first, f.Instructor)
	if other != nil {
		t.Error("notification must not be visible to another user")
	}
}

func TestMetadataAndImportHash(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	v, err := s.GetMetadata(ctx, "missing")
	if err != nil || v != "" {
		t.Fatalf("GetMetadata missing = %q, %v", v, err)
	}
	if err := s.SetImportedFileHash(ctx, "course.json", "abc"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash(ctx, "course.json", "def"); err != nil {
		t.Fatalf("SetImportedFileHash overwrite: %v", err)
	}
	h, _ := s.GetImportedFileHash(ctx, "course.json")
	if h != "def" {
		t.Errorf("hash = %q, want def", h)
	}
}

func TestModuleContents(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()

	mid, err := f.Store.CreateModule(ctx, model.Module{CourseID: f.CourseID, Position: 1, Title: "Intro"})
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	f.Store.CreateContent(ctx, model.ContentItem{ModuleID: mid, Position: 2, Kind: model.ContentVideo, Title: "Talk", URL: "https://example.com/v"})
	f.Store.CreateContent(ctx, model.ContentItem{ModuleID: mid, Position: 1, Kind: model.ContentText, Title: "Read me", Body: "hello"})

	items, err := f.Store.ListModuleContents(ctx, mid)
	if err != nil {
		t.Fatalf("ListModuleContents: %v", err)
	}
	if len(items) != 2 || items[0].Kind != model.ContentText || items[1].Kind != model.ContentVideo {
		t.Fatalf("unexpected contents: %+v", items)
	}
}

func TestExportCourse(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	exam := f.Exam("Final", 100, storetest.Final())
	_, enr := f.Student("frank")
	f.GradedAttempt(enr, exam.ID, 80)

	exp, err := f.Store.ExportCourse(ctx, f.CourseID, f.YearID)
	if err != nil {
		t.Fatalf("ExportCourse: %v", err)
	}
	if len(exp.Exams) != 1 || len(exp.Exams[0].Attempts) != 1 {
		t.Fatalf("unexpected export: %+v", exp)
	}
	row := exp.Exams[0].Attempts[0]
	if row.Percent != 80 || !row.Passed || row.Student != "frank" {
		t.Errorf("attempt row = %+v", row)
	}
}
