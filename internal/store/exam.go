package store

import (
	"context"

	"github.com/pavelanni/academy/internal/model"
)

const examColumns = `id, course_id, academic_year_id, title, description, start_time, end_time,
	total_score, passing_score, is_final, is_active, is_graded`

// CreateExam inserts an exam.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (int64, error) {
	return insert(ctx, s.db,
		`INSERT INTO exams (course_id, academic_year_id, title, description, start_time, end_time,
		                    total_score, passing_score, is_final, is_active, is_graded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.CourseID, e.AcademicYearID, e.Title, e.Description, e.StartTime.UTC(), e.EndTime.UTC(),
		e.TotalScore, e.PassingScore, e.IsFinal, e.IsActive, false,
	)
}

// GetExam returns an exam by ID, or nil.
func (s *Store) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	return getOrNil[model.Exam](ctx, s, `SELECT `+examColumns+` FROM exams WHERE id = ?`, id)
}

// ListCourseExams returns the exams of a course in one academic year, or
// in every year when yearID is 0, ordered by start time.
func (s *Store) ListCourseExams(ctx context.Context, courseID, yearID int64) ([]model.Exam, error) {
	q := `SELECT ` + examColumns + ` FROM exams WHERE course_id = ?`
	args := []any{courseID}
	if yearID != 0 {
		q += ` AND academic_year_id = ?`
		args = append(args, yearID)
	}
	var exams []model.Exam
	err := s.selectx(ctx, &exams, q+` ORDER BY start_time, id`, args...)
	return exams, err
}

// ExamGradingCounts returns how many attempts of an exam are finalized and
// how many of those are graded.
func (s *Store) ExamGradingCounts(ctx context.Context, examID int64) (finalized, graded int, err error) {
	var row struct {
		Finalized int `db:"finalized"`
		Graded    int `db:"graded"`
	}
	err = s.get(ctx, &row,
		`SELECT COUNT(*) AS finalized,
		        COALESCE(SUM(CASE WHEN is_graded THEN 1 ELSE 0 END), 0) AS graded
		 FROM attempts WHERE exam_id = ? AND is_finalized = ?`, examID, true)
	return row.Finalized, row.Graded, err
}

// SetExamGraded moves the exam's graded flag to graded. It reports whether
// the stored value actually changed, so concurrent callers see at most one
// transition.
func (s *Store) SetExamGraded(ctx context.Context, examID int64, graded bool) (bool, error) {
	return s.execAffected(ctx,
		`UPDATE exams SET is_graded = ? WHERE id = ? AND is_graded = ?`, graded, examID, !graded)
}
