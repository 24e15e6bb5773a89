package model

import "time"

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	QuestionMCQ   QuestionType = "MCQ"
	QuestionTF    QuestionType = "TF"
	QuestionEssay QuestionType = "ESSAY"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionTF, QuestionEssay:
		return true
	}
	return false
}

// Exam is a timed assessment attached to a course and academic year.
// The availability window is the half-open interval [StartTime, EndTime).
type Exam struct {
	ID             int64     `db:"id" json:"id"`
	CourseID       int64     `db:"course_id" json:"course_id"`
	AcademicYearID int64     `db:"academic_year_id" json:"academic_year_id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	TotalScore     float64   `db:"total_score" json:"total_score"`
	PassingScore   *float64  `db:"passing_score" json:"passing_score,omitempty"`
	IsFinal        bool      `db:"is_final" json:"is_final"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	IsGraded       bool      `db:"is_graded" json:"is_graded"`
}

// WindowOpen reports whether now falls inside the availability window.
func (e *Exam) WindowOpen(now time.Time) bool {
	return !now.Before(e.StartTime) && now.Before(e.EndTime)
}

// Question is a single exam item. Options is populated for MCQ only.
type Question struct {
	ID       int64          `db:"id" json:"id"`
	ExamID   int64          `db:"exam_id" json:"exam_id"`
	Position int            `db:"position" json:"position"`
	Type     QuestionType   `db:"question_type" json:"question_type"`
	Text     string         `db:"text" json:"text"`
	MaxScore float64        `db:"max_score" json:"max_score"`
	IsTrue   bool           `db:"is_true" json:"is_true"`
	Rubric   string         `db:"rubric" json:"rubric,omitempty"`
	Options  []AnswerOption `db:"-" json:"options,omitempty"`
}

// Option returns the option with the given ID, or nil.
func (q *Question) Option(id int64) *AnswerOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// AnswerOption is one choice of a multiple-choice question.
type AnswerOption struct {
	ID         int64  `db:"id" json:"id"`
	QuestionID int64  `db:"question_id" json:"question_id"`
	Text       string `db:"text" json:"text"`
	IsCorrect  bool   `db:"is_correct" json:"is_correct"`
}

// AttemptState is the lifecycle position of an attempt.
type AttemptState string

const (
	AttemptInProgress        AttemptState = "in_progress"
	AttemptFinalizedUngraded AttemptState = "finalized_ungraded"
	AttemptFinalizedGraded   AttemptState = "finalized_graded"
)

// Attempt is one student's sitting of one exam.
type Attempt struct {
	ID                 int64      `db:"id" json:"id"`
	EnrollmentID       int64      `db:"enrollment_id" json:"enrollment_id"`
	ExamID             int64      `db:"exam_id" json:"exam_id"`
	StartedAt          time.Time  `db:"started_at" json:"started_at"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Score              *float64   `db:"score" json:"score,omitempty"`
	InstructorFeedback string     `db:"instructor_feedback" json:"instructor_feedback"`
	IsFinalized        bool       `db:"is_finalized" json:"is_finalized"`
	IsGraded           bool       `db:"is_graded" json:"is_graded"`
}

// State derives the lifecycle state from the attempt flags.
func (a *Attempt) State() AttemptState {
	switch {
	case a.IsFinalized && a.IsGraded:
		return AttemptFinalizedGraded
	case a.IsFinalized:
		return AttemptFinalizedUngraded
	default:
		return AttemptInProgress
	}
}

// ScoreValue returns the score, treating a missing score as zero.
func (a *Attempt) ScoreValue() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// Answer is a student's response to one question within an attempt.
type Answer struct {
	ID                int64    `db:"id" json:"id"`
	AttemptID         int64    `db:"attempt_id" json:"attempt_id"`
	QuestionID        int64    `db:"question_id" json:"question_id"`
	SelectedOptionID  *int64   `db:"selected_option_id" json:"selected_option_id,omitempty"`
	BoolAnswer        *bool    `db:"bool_answer" json:"bool_answer,omitempty"`
	EssayText         *string  `db:"essay_text" json:"essay_text,omitempty"`
	UploadedFile      string   `db:"uploaded_file" json:"uploaded_file,omitempty"`
	IsCorrect         bool     `db:"is_correct" json:"is_correct"`
	AwardedScore      *float64 `db:"awarded_score" json:"awarded_score,omitempty"`
	Feedback          string   `db:"feedback" json:"feedback"`
	SuggestedScore    *float64 `db:"suggested_score" json:"suggested_score,omitempty"`
	SuggestedFeedback string   `db:"suggested_feedback" json:"suggested_feedback,omitempty"`
}

// AttemptView is an attempt joined with its exam, student and answers.
type AttemptView struct {
	Attempt   Attempt
	Exam      Exam
	Student   User
	Questions []Question
	Answers   map[int64]Answer // keyed by question ID
}

// AttemptSummary is a row of the grading console.
type AttemptSummary struct {
	Attempt
	StudentID   int64  `db:"student_id"`
	StudentName string `db:"student_name"`
}

// ExamStatus is the student-facing availability of an exam.
type ExamStatus string

const (
	ExamNotAvailableYet  ExamStatus = "not_available_yet"
	ExamInProgress       ExamStatus = "in_progress"
	ExamActive           ExamStatus = "active"
	ExamResultsAvailable ExamStatus = "results_available"
	ExamPendingResults   ExamStatus = "pending_results"
	ExamExpired          ExamStatus = "expired"
)

// ExamListItem pairs an exam with the viewing student's status.
type ExamListItem struct {
	Exam    Exam
	Status  ExamStatus
	Attempt *Attempt
}
