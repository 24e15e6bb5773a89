// Package storetest builds in-memory stores seeded with a small course for
// use in tests across packages.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store"
)

// New opens an in-memory sqlite store closed at test cleanup.
func New(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("storetest.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Fixture is a course with one instructor, one academic year and helpers
// to add students and exams.
type Fixture struct {
	T          *testing.T
	Store      *store.Store
	CourseID   int64
	YearID     int64
	Instructor int64
}

// NewFixture seeds a store with a course owned by an instructor.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	s := New(t)
	ctx := context.Background()
	f := &Fixture{T: t, Store: s}
	var err error
	if f.Instructor, err = s.CreateUser(ctx, model.User{
		Username: "prof", DisplayName: "Prof. Smith", Email: "prof@example.com",
		PasswordHash: "x", Role: model.UserRoleInstructor, Active: true,
	}); err != nil {
		t.Fatalf("create instructor: %v", err)
	}
	if f.CourseID, err = s.CreateCourse(ctx, model.Course{Slug: "go-101", Title: "Go 101"}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	if err := s.AddCourseOwner(ctx, f.CourseID, f.Instructor); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if f.YearID, err = s.EnsureAcademicYear(ctx, "2025-2026", true); err != nil {
		t.Fatalf("create year: %v", err)
	}
	return f
}

// Student creates an enrolled student and returns the user and enrollment IDs.
func (f *Fixture) Student(username string) (userID, enrollmentID int64) {
	f.T.Helper()
	ctx := context.Background()
	userID, err := f.Store.CreateUser(ctx, model.User{
		Username: username, DisplayName: username, Email: username + "@example.com",
		PasswordHash: "x", Role: model.UserRoleStudent, Active: true,
	})
	if err != nil {
		f.T.Fatalf("create student: %v", err)
	}
	enrollmentID, err = f.Store.Enroll(ctx, userID, f.CourseID, f.YearID)
	if err != nil {
		f.T.Fatalf("enroll: %v", err)
	}
	return userID, enrollmentID
}

// ExamOption tweaks an exam before it is stored.
type ExamOption func(*model.Exam)

// Final marks the exam as the course's final exam.
func Final() ExamOption { return func(e *model.Exam) { e.IsFinal = true } }

// PassingScore sets an explicit passing score.
func PassingScore(v float64) ExamOption { return func(e *model.Exam) { e.PassingScore = &v } }

// Window sets the availability window.
func Window(start, end time.Time) ExamOption {
	return func(e *model.Exam) { e.StartTime, e.EndTime = start, end }
}

// Exam stores an exam open from an hour ago to an hour from now.
func (f *Fixture) Exam(title string, total float64, opts ...ExamOption) model.Exam {
	f.T.Helper()
	now := time.Now()
	e := model.Exam{
		CourseID: f.CourseID, AcademicYearID: f.YearID, Title: title,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
		TotalScore: total, IsActive: true,
	}
	for _, o := range opts {
		o(&e)
	}
	id, err := f.Store.CreateExam(context.Background(), e)
	if err != nil {
		f.T.Fatalf("create exam: %v", err)
	}
	e.ID = id
	return e
}

// Question stores a question on an exam and returns it with option IDs.
func (f *Fixture) Question(q model.Question) model.Question {
	f.T.Helper()
	ctx := context.Background()
	id, err := f.Store.CreateQuestion(ctx, q)
	if err != nil {
		f.T.Fatalf("create question: %v", err)
	}
	stored, err := f.Store.GetQuestion(ctx, id)
	if err != nil || stored == nil {
		f.T.Fatalf("get question: %v", err)
	}
	return *stored
}

// GradedAttempt stores a finalized, graded attempt with the given score.
func (f *Fixture) GradedAttempt(enrollmentID, examID int64, score float64) model.Attempt {
	f.T.Helper()
	ctx := context.Background()
	a, err := f.Store.CreateAttempt(ctx, enrollmentID, examID, time.Now())
	if err != nil {
		f.T.Fatalf("create attempt: %v", err)
	}
	if _, err := f.Store.FinalizeAttempt(ctx, a.ID, time.Now()); err != nil {
		f.T.Fatalf("finalize attempt: %v", err)
	}
	if err := f.Store.SaveAttemptGrade(ctx, a.ID, score, "", true); err != nil {
		f.T.Fatalf("grade attempt: %v", err)
	}
	got, err := f.Store.GetAttempt(ctx, a.ID)
	if err != nil {
		f.T.Fatalf("get attempt: %v", err)
	}
	return *got
}
