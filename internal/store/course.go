package store

import (
	"context"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

// CreateCourse inserts a course.
func (s *Store) CreateCourse(ctx context.Context, c model.Course) (int64, error) {
	return insert(ctx, s.db,
		`INSERT INTO courses (slug, title, overview, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		c.Slug, c.Title, c.Overview, time.Now().UTC(),
	)
}

// GetCourse returns a course by ID, or nil.
func (s *Store) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	return getOrNil[model.Course](ctx, s,
		`SELECT id, slug, title, overview, created_at FROM courses WHERE id = ?`, id)
}

// GetCourseBySlug returns a course by slug, or nil.
func (s *Store) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	return getOrNil[model.Course](ctx, s,
		`SELECT id, slug, title, overview, created_at FROM courses WHERE slug = ?`, slug)
}

// ListCourses returns all courses ordered by title.
func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := s.selectx(ctx, &courses, `SELECT id, slug, title, overview, created_at FROM courses ORDER BY title`)
	return courses, err
}

// AddCourseOwner grants an instructor ownership of a course.
func (s *Store) AddCourseOwner(ctx context.Context, courseID, userID int64) error {
	_, err := s.exec(ctx,
		`INSERT INTO course_owners (course_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		courseID, userID)
	return err
}

// IsCourseOwner reports whether userID owns courseID.
func (s *Store) IsCourseOwner(ctx context.Context, courseID, userID int64) (bool, error) {
	var n int
	err := s.get(ctx, &n,
		`SELECT COUNT(*) FROM course_owners WHERE course_id = ? AND user_id = ?`, courseID, userID)
	return n > 0, err
}

// ListOwnedCourses returns the courses owned by an instructor.
func (s *Store) ListOwnedCourses(ctx context.Context, userID int64) ([]model.Course, error) {
	var courses []model.Course
	err := s.selectx(ctx, &courses,
		`SELECT c.id, c.slug, c.title, c.overview, c.created_at
		 FROM courses c JOIN course_owners o ON o.course_id = c.id
		 WHERE o.user_id = ? ORDER BY c.title`, userID)
	return courses, err
}

// EnsureAcademicYear returns the ID of the named academic year, creating it
// if needed.
func (s *Store) EnsureAcademicYear(ctx context.Context, name string, current bool) (int64, error) {
	y, err := getOrNil[model.AcademicYear](ctx, s,
		`SELECT id, name, is_current FROM academic_years WHERE name = ?`, name)
	if err != nil {
		return 0, err
	}
	if y != nil {
		return y.ID, nil
	}
	return insert(ctx, s.db,
		`INSERT INTO academic_years (name, is_current) VALUES (?, ?) RETURNING id`, name, current)
}

// ListAcademicYears returns every academic year, newest name first.
func (s *Store) ListAcademicYears(ctx context.Context) ([]model.AcademicYear, error) {
	var years []model.AcademicYear
	err := s.selectx(ctx, &years, `SELECT id, name, is_current FROM academic_years ORDER BY name DESC`)
	return years, err
}

// CurrentAcademicYear returns the year flagged as current, or nil.
func (s *Store) CurrentAcademicYear(ctx context.Context) (*model.AcademicYear, error) {
	return getOrNil[model.AcademicYear](ctx, s,
		`SELECT id, name, is_current FROM academic_years WHERE is_current = ? ORDER BY id DESC LIMIT 1`, true)
}

// GetAcademicYear returns a year by ID, or nil.
func (s *Store) GetAcademicYear(ctx context.Context, id int64) (*model.AcademicYear, error) {
	return getOrNil[model.AcademicYear](ctx, s,
		`SELECT id, name, is_current FROM academic_years WHERE id = ?`, id)
}

// Enroll registers a student in a course for an academic year. Enrolling
// twice returns the existing enrollment.
func (s *Store) Enroll(ctx context.Context, studentID, courseID, yearID int64) (int64, error) {
	e, err := s.FindEnrollment(ctx, studentID, courseID, yearID)
	if err != nil {
		return 0, err
	}
	if e != nil {
		return e.ID, nil
	}
	return insert(ctx, s.db,
		`INSERT INTO enrollments (student_id, course_id, academic_year_id, enrolled_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		studentID, courseID, yearID, time.Now().UTC())
}

const enrollmentColumns = `id, student_id, course_id, academic_year_id, enrolled_at`

// GetEnrollment returns an enrollment by ID, or nil.
func (s *Store) GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error) {
	return getOrNil[model.Enrollment](ctx, s,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)
}

// FindEnrollment returns the enrollment of a student in a course year, or nil.
func (s *Store) FindEnrollment(ctx context.Context, studentID, courseID, yearID int64) (*model.Enrollment, error) {
	return getOrNil[model.Enrollment](ctx, s,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE student_id = ? AND course_id = ? AND academic_year_id = ?`,
		studentID, courseID, yearID)
}

// ListStudentEnrollments returns every enrollment of a student.
func (s *Store) ListStudentEnrollments(ctx context.Context, studentID int64) ([]model.Enrollment, error) {
	var out []model.Enrollment
	err := s.selectx(ctx, &out,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = ? ORDER BY enrolled_at DESC`, studentID)
	return out, err
}

// EnrolledStudent is an enrollment joined with its student.
type EnrolledStudent struct {
	model.Enrollment
	StudentName string `db:"student_name"`
	Email       string `db:"email"`
}

// ListCourseEnrollments returns the enrollments of a course in one year,
// or in every year when yearID is 0.
func (s *Store) ListCourseEnrollments(ctx context.Context, courseID, yearID int64) ([]EnrolledStudent, error) {
	q := `SELECT e.id, e.student_id, e.course_id, e.academic_year_id, e.enrolled_at,
	             CASE WHEN u.display_name = '' THEN u.username ELSE u.display_name END AS student_name,
	             u.email
	      FROM enrollments e JOIN users u ON u.id = e.student_id
	      WHERE e.course_id = ?`
	args := []any{courseID}
	if yearID != 0 {
		q += ` AND e.academic_year_id = ?`
		args = append(args, yearID)
	}
	var out []EnrolledStudent
	err := s.selectx(ctx, &out, q+` ORDER BY student_name, e.id`, args...)
	return out, err
}
