// Package importer loads course bundles from JSON documents.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/academy/internal/model"
)

// ErrDuplicate is returned when the same document was already imported
// under the same name.
var ErrDuplicate = errors.New("file already imported")

// ErrChanged is returned when a document with the same name but different
// contents was imported before. Re-importing would duplicate exams.
var ErrChanged = errors.New("file changed since last import")

// Store is the persistence the importer writes to.
type Store interface {
	GetImportedFileHash(ctx context.Context, name string) (string, error)
	SetImportedFileHash(ctx context.Context, name, hash string) error
	GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error)
	CreateCourse(ctx context.Context, c model.Course) (int64, error)
	AddCourseOwner(ctx context.Context, courseID, userID int64) error
	EnsureAcademicYear(ctx context.Context, name string, current bool) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	Enroll(ctx context.Context, studentID, courseID, yearID int64) (int64, error)
	CreateModule(ctx context.Context, m model.Module) (int64, error)
	CreateContent(ctx context.Context, c model.ContentItem) (int64, error)
	CreateExam(ctx context.Context, e model.Exam) (int64, error)
	CreateQuestion(ctx context.Context, q model.Question) (int64, error)
}

// Result counts what an import created.
type Result struct {
	CourseID  int64
	YearID    int64
	Enrolled  int
	Modules   int
	Exams     int
	Questions int
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Import parses data as a model.ImportFile and stores its contents. name
// identifies the document for duplicate detection.
func Import(ctx context.Context, s Store, name string, data []byte) (*Result, error) {
	hash := Checksum(data)
	stored, err := s.GetImportedFileHash(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check import status: %w", err)
	}
	switch {
	case stored == hash:
		return nil, ErrDuplicate
	case stored != "":
		return nil, ErrChanged
	}

	var f model.ImportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := validate(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	res, err := load(ctx, s, &f)
	if err != nil {
		return nil, err
	}
	if err := s.SetImportedFileHash(ctx, name, hash); err != nil {
		return nil, fmt.Errorf("record import: %w", err)
	}
	slog.Info("imported course bundle", "name", name, "course_id", res.CourseID,
		"exams", res.Exams, "questions", res.Questions, "enrolled", res.Enrolled)
	return res, nil
}

func validate(f *model.ImportFile) error {
	if strings.TrimSpace(f.Course.Slug) == "" || strings.TrimSpace(f.Course.Title) == "" {
		return errors.New("course slug and title are required")
	}
	if strings.TrimSpace(f.AcademicYear) == "" {
		return errors.New("academic_year is required")
	}
	for i, e := range f.Exams {
		if !e.EndTime.After(e.StartTime) {
			return fmt.Errorf("exam %d (%q): end_time must be after start_time", i+1, e.Title)
		}
		for j, q := range e.Questions {
			if !q.Type.Valid() {
				return fmt.Errorf("exam %q question %d: unknown type %q", e.Title, j+1, q.Type)
			}
			if q.MaxScore < 0 {
				return fmt.Errorf("exam %q question %d: max_score must not be negative", e.Title, j+1)
			}
			if q.Type == model.QuestionMCQ && len(q.Options) < 2 {
				return fmt.Errorf("exam %q question %d: at least two options required", e.Title, j+1)
			}
			if q.Type == model.QuestionMCQ && correctCount(q.Options) != 1 {
				return fmt.Errorf("exam %q question %d: exactly one correct option required", e.Title, j+1)
			}
		}
	}
	return nil
}

func correctCount(opts []model.AnswerOption) int {
	n := 0
	for _, o := range opts {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

func load(ctx context.Context, s Store, f *model.ImportFile) (*Result, error) {
	res := &Result{}
	course, err := s.GetCourseBySlug(ctx, f.Course.Slug)
	if err != nil {
		return nil, fmt.Errorf("look up course: %w", err)
	}
	if course != nil {
		res.CourseID = course.ID
	} else if res.CourseID, err = s.CreateCourse(ctx, f.Course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	if res.YearID, err = s.EnsureAcademicYear(ctx, f.AcademicYear, true); err != nil {
		return nil, fmt.Errorf("ensure academic year: %w", err)
	}

	for _, name := range f.Owners {
		u, err := s.GetUserByUsername(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("look up owner %s: %w", name, err)
		}
		if u == nil {
			slog.Warn("import: unknown owner, skipping", "username", name)
			continue
		}
		if err := s.AddCourseOwner(ctx, res.CourseID, u.ID); err != nil {
			return nil, fmt.Errorf("add owner %s: %w", name, err)
		}
	}
	for _, name := range f.Students {
		u, err := s.GetUserByUsername(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("look up student %s: %w", name, err)
		}
		if u == nil {
			slog.Warn("import: unknown student, skipping", "username", name)
			continue
		}
		if _, err := s.Enroll(ctx, u.ID, res.CourseID, res.YearID); err != nil {
			return nil, fmt.Errorf("enroll %s: %w", name, err)
		}
		res.Enrolled++
	}

	for i, m := range f.Modules {
		m.Module.CourseID = res.CourseID
		if m.Module.Position == 0 {
			m.Module.Position = i + 1
		}
		id, err := s.CreateModule(ctx, m.Module)
		if err != nil {
			return nil, fmt.Errorf("create module %q: %w", m.Title, err)
		}
		for j, c := range m.Contents {
			c.ModuleID = id
			if c.Position == 0 {
				c.Position = j + 1
			}
			if _, err := s.CreateContent(ctx, c); err != nil {
				return nil, fmt.Errorf("create content %q: %w", c.Title, err)
			}
		}
		res.Modules++
	}

	for _, e := range f.Exams {
		e.Exam.CourseID = res.CourseID
		e.Exam.AcademicYearID = res.YearID
		if e.Exam.TotalScore <= 0 {
			for _, q := range e.Questions {
				e.Exam.TotalScore += q.MaxScore
			}
		}
		examID, err := s.CreateExam(ctx, e.Exam)
		if err != nil {
			return nil, fmt.Errorf("create exam %q: %w", e.Title, err)
		}
		for _, q := range e.Questions {
			q.ExamID = examID
			if q.Type != model.QuestionMCQ {
				q.Options = nil
			}
			if _, err := s.CreateQuestion(ctx, q); err != nil {
				return nil, fmt.Errorf("create question in %q: %w", e.Title, err)
			}
			res.Questions++
		}
		res.Exams++
	}
	return res, nil
}
