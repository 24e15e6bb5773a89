package exam

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/model"
)

// Action is a navigation or submission command posted from the take page.
type Action string

const (
	ActionNext   Action = "next"
	ActionPrev   Action = "prev"
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
)

// ParseAction maps a form value to an Action. Unknown values save.
func ParseAction(v string) Action {
	switch Action(v) {
	case ActionNext, ActionPrev, ActionSubmit:
		return Action(v)
	}
	return ActionSave
}

// Cursor is the 1-based question position of a student within an attempt.
// Index is 0 only when the exam has no questions.
type Cursor struct {
	AttemptID int64
	Index     int
}

func (c Cursor) normalize(attemptID int64, n int) Cursor {
	if c.AttemptID != attemptID {
		c = Cursor{AttemptID: attemptID, Index: 1}
	}
	switch {
	case n == 0:
		c.Index = 0
	case c.Index < 1:
		c.Index = 1
	case c.Index > n:
		c.Index = n
	}
	return c
}

// Session is an in-progress attempt loaded for display or update.
type Session struct {
	Exam      model.Exam
	Attempt   model.Attempt
	Questions []model.Question
	Answers   map[int64]model.Answer
	Cursor    Cursor
	Created   bool
}

// Current returns the question under the cursor, or nil for an empty exam.
func (s *Session) Current() *model.Question {
	if s.Cursor.Index < 1 || s.Cursor.Index > len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Cursor.Index-1]
}

// HasPrev reports whether a previous question exists.
func (s *Session) HasPrev() bool { return s.Cursor.Index > 1 }

// HasNext reports whether a next question exists.
func (s *Session) HasNext() bool { return s.Cursor.Index < len(s.Questions) }

// Open loads the student's attempt at an exam, creating it on first entry.
// The exam window is checked on every call, so a session that outlives
// the window can no longer be read or written.
func (s *Service) Open(ctx context.Context, studentID, examID int64, cur Cursor) (*Session, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrNotFound
	}
	if !exam.IsActive || !exam.WindowOpen(s.now()) {
		return nil, ErrWindowClosed
	}
	enr, err := s.store.FindEnrollment(ctx, studentID, exam.CourseID, exam.AcademicYearID)
	if err != nil {
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	if enr == nil {
		return nil, ErrNotEnrolled
	}

	sess := &Session{Exam: *exam}
	attempt, err := s.store.FindAttempt(ctx, enr.ID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if attempt == nil {
		attempt, err = s.store.CreateAttempt(ctx, enr.ID, exam.ID, s.now())
		if err != nil {
			// Lost a race with a concurrent first entry.
			attempt, _ = s.store.FindAttempt(ctx, enr.ID, exam.ID)
			if attempt == nil {
				return nil, fmt.Errorf("create attempt: %w", err)
			}
		} else {
			sess.Created = true
			slog.Info("attempt started", "attempt_id", attempt.ID, "exam_id", exam.ID, "student_id", studentID)
		}
	}
	if attempt.IsFinalized {
		return nil, ErrAlreadyFinalized
	}
	sess.Attempt = *attempt

	if sess.Questions, err = s.store.ListExamQuestions(ctx, exam.ID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.store.ListAttemptAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	sess.Answers = make(map[int64]model.Answer, len(answers))
	for _, a := range answers {
		sess.Answers[a.QuestionID] = a
	}
	if sess.Created {
		cur = Cursor{}
	}
	sess.Cursor = cur.normalize(attempt.ID, len(sess.Questions))
	return sess, nil
}

// Upload is a file posted with an essay answer.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Input is one POST from the take page. Values and Files are keyed by
// question ID.
type Input struct {
	StudentID int64
	ExamID    int64
	Action    Action
	Cursor    Cursor
	Values    map[int64]string
	Files     map[int64]Upload
}

// Result is the outcome of Act.
type Result struct {
	Session    *Session
	Saved      bool
	Submitted  bool
	ExamGraded bool
}

// Act saves the answer for the question under the cursor and then applies
// the action: move, explicit save, or submit.
func (s *Service) Act(ctx context.Context, in Input) (*Result, error) {
	sess, err := s.Open(ctx, in.StudentID, in.ExamID, in.Cursor)
	if err != nil {
		return nil, err
	}
	if q := sess.Current(); q != nil {
		if err := s.saveAnswer(ctx, sess, q, in); err != nil {
			return nil, err
		}
	}
	if err := s.store.RecomputeAttemptScore(ctx, sess.Attempt.ID); err != nil {
		return nil, fmt.Errorf("recompute score: %w", err)
	}

	res := &Result{Session: sess}
	switch in.Action {
	case ActionNext:
		if sess.HasNext() {
			sess.Cursor.Index++
		}
	case ActionPrev:
		if sess.HasPrev() {
			sess.Cursor.Index--
		}
	case ActionSubmit:
		ok, err := s.store.FinalizeAttempt(ctx, sess.Attempt.ID, s.now())
		if err != nil {
			return nil, fmt.Errorf("finalize attempt: %w", err)
		}
		if !ok {
			return nil, ErrAlreadyFinalized
		}
		res.Submitted = true
		slog.Info("attempt submitted", "attempt_id", sess.Attempt.ID, "exam_id", sess.Exam.ID)
		if res.ExamGraded, err = s.ReconcileExamGraded(ctx, sess.Exam.ID); err != nil {
			return nil, fmt.Errorf("reconcile exam: %w", err)
		}
	default:
		res.Saved = true
	}

	attempt, err := s.store.GetAttempt(ctx, sess.Attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	sess.Attempt = *attempt
	return res, nil
}

func (s *Service) saveAnswer(ctx context.Context, sess *Session, q *model.Question, in Input) error {
	sub := grading.Submission{Value: in.Values[q.ID]}
	if up, ok := in.Files[q.ID]; ok && q.Type == model.QuestionEssay && up.Body != nil && s.blobs != nil {
		key, err := s.blobs.Put(blob.AnswerKey(sess.Attempt.ID, q.ID, up.Filename), up.Body)
		if err != nil {
			return fmt.Errorf("store upload: %w", err)
		}
		sub.FileKey = key
	}
	out, err := s.grader.Grade(*q, sub)
	if err != nil {
		slog.Warn("rejected answer", "attempt_id", sess.Attempt.ID, "question_id", q.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	if out.Skip {
		return nil
	}
	ans, ok := sess.Answers[q.ID]
	if !ok {
		ans = model.Answer{AttemptID: sess.Attempt.ID, QuestionID: q.ID}
	}
	out.Apply(&ans)
	if err := s.store.UpsertAnswer(ctx, ans); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	sess.Answers[q.ID] = ans
	return nil
}
