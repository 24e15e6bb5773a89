package store

import (
	"context"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const completionColumns = `id, enrollment_id, serial, completed_at, certificate_issued`

// GetCompletion returns a completion by ID, or nil.
func (s *Store) GetCompletion(ctx context.Context, id int64) (*model.Completion, error) {
	return getOrNil[model.Completion](ctx, s,
		`SELECT `+completionColumns+` FROM completions WHERE id = ?`, id)
}

// GetEnrollmentCompletion returns the completion of an enrollment, or nil.
func (s *Store) GetEnrollmentCompletion(ctx context.Context, enrollmentID int64) (*model.Completion, error) {
	return getOrNil[model.Completion](ctx, s,
		`SELECT `+completionColumns+` FROM completions WHERE enrollment_id = ?`, enrollmentID)
}

// GetOrCreateCompletion returns the enrollment's completion, inserting one
// if none exists. created reports whether this call inserted it.
func (s *Store) GetOrCreateCompletion(ctx context.Context, enrollmentID int64, serial string, at time.Time) (*model.Completion, bool, error) {
	created, err := s.execAffected(ctx,
		`INSERT INTO completions (enrollment_id, serial, completed_at, certificate_issued)
		 VALUES (?, ?, ?, ?) ON CONFLICT (enrollment_id) DO NOTHING`,
		enrollmentID, serial, at.UTC(), false)
	if err != nil {
		return nil, false, err
	}
	c, err := s.GetEnrollmentCompletion(ctx, enrollmentID)
	return c, created, err
}

// IssueCertificate flags the certificate as issued. It reports whether
// the flag changed; issuance is never reversed.
func (s *Store) IssueCertificate(ctx context.Context, completionID int64) (bool, error) {
	return s.execAffected(ctx,
		`UPDATE completions SET certificate_issued = ? WHERE id = ? AND certificate_issued = ?`,
		true, completionID, false)
}

// DeleteCompletion removes a completion record.
func (s *Store) DeleteCompletion(ctx context.Context, id int64) error {
	_, err := s.exec(ctx, `DELETE FROM completions WHERE id = ?`, id)
	return err
}

// ListCourseCompletions returns the completions of a course with students.
func (s *Store) ListCourseCompletions(ctx context.Context, courseID int64) ([]model.CompletionRow, error) {
	var out []model.CompletionRow
	err := s.selectx(ctx, &out,
		`SELECT c.id, c.enrollment_id, c.serial, c.completed_at, c.certificate_issued,
		        u.id AS student_id,
		        CASE WHEN u.display_name = '' THEN u.username ELSE u.display_name END AS student_name,
		        e.course_id
		 FROM completions c
		 JOIN enrollments e ON e.id = c.enrollment_id
		 JOIN users u ON u.id = e.student_id
		 WHERE e.course_id = ?
		 ORDER BY c.completed_at`, courseID)
	return out, err
}
