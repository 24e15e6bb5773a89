// Package notify records in-app notifications and sends the matching
// emails when exams are graded and courses completed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"time"

	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/mail"
	"github.com/pavelanni/academy/internal/model"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListExamAttempts(ctx context.Context, examID int64) ([]model.AttemptSummary, error)
	CreateNotification(ctx context.Context, userID int64, message, link string) (int64, error)
}

// Completer evaluates course completion for an enrollment.
type Completer interface {
	Evaluate(ctx context.Context, enrollmentID int64) (*completion.Decision, error)
}

// Dispatcher fans grading and completion events out to notifications and
// email. Email delivery is best effort: failures are logged and never
// undo the notification.
type Dispatcher struct {
	store       Store
	completer   Completer
	mailer      mail.Sender
	links       Links
	mailTimeout time.Duration
}

// NewDispatcher returns a Dispatcher. completer may be nil to skip
// completion checks.
func NewDispatcher(store Store, completer Completer, mailer mail.Sender, links Links) *Dispatcher {
	if mailer == nil {
		mailer = mail.NopSender{}
	}
	return &Dispatcher{store: store, completer: completer, mailer: mailer, links: links, mailTimeout: 10 * time.Second}
}

// Summary counts what ExamGraded produced.
type Summary struct {
	Graded    int
	Completed int
}

// ExamGraded notifies every student with a graded, finalized attempt on
// the exam and then evaluates their course completion. For each student
// the grading notification is created before any completion notification.
func (d *Dispatcher) ExamGraded(ctx context.Context, examID int64) (Summary, error) {
	var sum Summary
	exam, err := d.store.GetExam(ctx, examID)
	if err != nil {
		return sum, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return sum, fmt.Errorf("exam %d not found", examID)
	}
	course, err := d.store.GetCourse(ctx, exam.CourseID)
	if err != nil || course == nil {
		return sum, fmt.Errorf("get course %d: %w", exam.CourseID, err)
	}
	attempts, err := d.store.ListExamAttempts(ctx, examID)
	if err != nil {
		return sum, fmt.Errorf("list attempts: %w", err)
	}

	for _, a := range attempts {
		if !a.IsFinalized || !a.IsGraded {
			continue
		}
		student, err := d.store.GetUserByID(ctx, a.StudentID)
		if err != nil || student == nil {
			slog.Error("graded attempt without student", "attempt_id", a.ID, "error", err)
			continue
		}
		msg := i18n.Td(ctx, "NotifyExamGraded", map[string]any{"Exam": exam.Title, "Course": course.Title})
		link := d.links.Absolute(ResultsPath(course.ID, exam.ID, a.ID))
		if err := d.notify(ctx, student, msg, link, i18n.T(ctx, "EmailExamGradedSubject"), i18n.T(ctx, "ViewResults")); err != nil {
			return sum, err
		}
		sum.Graded++

		if d.completer == nil {
			continue
		}
		dec, err := d.completer.Evaluate(ctx, a.EnrollmentID)
		if err != nil {
			return sum, fmt.Errorf("evaluate completion of enrollment %d: %w", a.EnrollmentID, err)
		}
		if dec.NewlyCompleted {
			if err := d.CourseCompleted(ctx, student, course, dec.Completion); err != nil {
				return sum, err
			}
			sum.Completed++
		}
	}
	slog.Info("exam graded notifications sent", "exam_id", examID, "graded", sum.Graded, "completed", sum.Completed)
	return sum, nil
}

// CourseCompleted congratulates a student on completing a course.
func (d *Dispatcher) CourseCompleted(ctx context.Context, student *model.User, course *model.Course, c *model.Completion) error {
	msg := i18n.Td(ctx, "NotifyCourseCompleted", map[string]any{"Course": course.Title})
	link := d.links.Absolute(CertificatePath(c.ID))
	return d.notify(ctx, student, msg, link, i18n.T(ctx, "EmailCourseCompletedSubject"), i18n.T(ctx, "ViewCertificate"))
}

// CompletionRevoked tells a student their completion was withdrawn.
func (d *Dispatcher) CompletionRevoked(ctx context.Context, student *model.User, course *model.Course) error {
	msg := i18n.Td(ctx, "NotifyCompletionRevoked", map[string]any{"Course": course.Title})
	link := d.links.Absolute(CoursePath(course.ID))
	return d.notify(ctx, student, msg, link, i18n.T(ctx, "EmailCompletionRevokedSubject"), i18n.T(ctx, "ViewCourse"))
}

func (d *Dispatcher) notify(ctx context.Context, u *model.User, message, link, subject, linkText string) error {
	if _, err := d.store.CreateNotification(ctx, u.ID, message, link); err != nil {
		return fmt.Errorf("create notification for user %d: %w", u.ID, err)
	}
	if u.Email == "" {
		return nil
	}
	msg := mail.Message{
		To:      []netmail.Address{{Name: u.Name(), Address: u.Email}},
		Subject: subject,
		Text:    message + "\n\n" + link,
		HTML:    renderHTML(ctx, emailBody(subject, message, linkText, link)),
	}
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.mailTimeout)
	defer cancel()
	if err := d.mailer.Send(mctx, msg); err != nil {
		slog.Warn("email delivery failed", "user_id", u.ID, "subject", subject, "error", err)
	}
	return nil
}
