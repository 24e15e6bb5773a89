// Package analytics computes read-only exam and course reports from graded
// attempts.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/scoring"
	"github.com/pavelanni/academy/internal/store"
)

// BucketCount is the number of attempts in one score range.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuestionStat summarizes the answers given to one question.
type QuestionStat struct {
	QuestionID   int64              `json:"question_id"`
	Position     int                `json:"position"`
	Text         string             `json:"text"`
	Type         model.QuestionType `json:"type"`
	Answers      int                `json:"answers"`
	AverageScore float64            `json:"average_score"`
	MaxScore     float64            `json:"max_score"`
	Percent      float64            `json:"percent"`
}

// ExamReport is the analytics of one exam over its graded attempts.
type ExamReport struct {
	ExamID         int64          `json:"exam_id"`
	Title          string         `json:"title"`
	TotalScore     float64        `json:"total_score"`
	PassingScore   *float64       `json:"passing_score,omitempty"`
	Graded         int            `json:"graded"`
	AverageScore   float64        `json:"average_score"`
	AveragePercent float64        `json:"average_percent"`
	MaxScore       float64        `json:"max_score"`
	MinScore       float64        `json:"min_score"`
	PassRate       float64        `json:"pass_rate"`
	Distribution   []BucketCount  `json:"distribution"`
	Questions      []QuestionStat `json:"questions"`
}

func distribution(buckets []scoring.Bucket, percents []float64) []BucketCount {
	out := make([]BucketCount, len(buckets))
	idx := make(map[string]int, len(buckets))
	for i, b := range buckets {
		out[i].Label = b.Label
		idx[b.Label] = i
	}
	for _, p := range percents {
		out[idx[scoring.BucketOf(buckets, p)]].Count++
	}
	return out
}

// BuildExamReport computes an ExamReport. Attempts that are not graded are
// ignored, as are answers that do not belong to a graded attempt.
func BuildExamReport(exam model.Exam, attempts []model.Attempt, questions []model.Question, answers []model.Answer) ExamReport {
	r := ExamReport{
		ExamID:       exam.ID,
		Title:        exam.Title,
		TotalScore:   exam.TotalScore,
		PassingScore: exam.PassingScore,
	}
	graded := make(map[int64]bool)
	var scores, percents []float64
	passed := 0
	for _, a := range attempts {
		if !a.IsGraded {
			continue
		}
		graded[a.ID] = true
		s := a.ScoreValue()
		scores = append(scores, s)
		percents = append(percents, scoring.Percentage(s, exam.TotalScore))
		if scoring.Passed(s, exam.TotalScore, exam.PassingScore) {
			passed++
		}
	}
	r.Graded = len(scores)
	r.Distribution = distribution(scoring.ExamBuckets, percents)
	if r.Graded > 0 {
		r.AverageScore = scoring.Average(scores)
		r.AveragePercent = scoring.Percentage(r.AverageScore, exam.TotalScore)
		r.MaxScore, r.MinScore = scores[0], scores[0]
		for _, s := range scores[1:] {
			r.MaxScore = max(r.MaxScore, s)
			r.MinScore = min(r.MinScore, s)
		}
		r.PassRate = float64(passed) / float64(r.Graded) * 100
	}

	byQuestion := make(map[int64][]float64)
	for _, a := range answers {
		if !graded[a.AttemptID] {
			continue
		}
		v := 0.0
		if a.AwardedScore != nil {
			v = *a.AwardedScore
		}
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], v)
	}
	for _, q := range questions {
		vals, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		avg := scoring.Average(vals)
		r.Questions = append(r.Questions, QuestionStat{
			QuestionID:   q.ID,
			Position:     q.Position,
			Text:         q.Text,
			Type:         q.Type,
			Answers:      len(vals),
			AverageScore: avg,
			MaxScore:     q.MaxScore,
			Percent:      scoring.Percentage(avg, q.MaxScore),
		})
	}
	sort.SliceStable(r.Questions, func(i, j int) bool { return r.Questions[i].Percent < r.Questions[j].Percent })
	return r
}

// StudentStatus is a student's standing in a course.
type StudentStatus string

const (
	StatusCompleted  StudentStatus = "completed"
	StatusFailed     StudentStatus = "failed"
	StatusInProgress StudentStatus = "in_progress"
)

// StudentRow is one student's line in the course report.
type StudentRow struct {
	EnrollmentID   int64         `json:"enrollment_id"`
	StudentID      int64         `json:"student_id"`
	Name           string        `json:"name"`
	ExamsTaken     int           `json:"exams_taken"`
	AveragePercent float64       `json:"average_percent"`
	Status         StudentStatus `json:"status"`
	CompletionID   *int64        `json:"completion_id,omitempty"`
}

// ExamSummary is one exam's line in the course report.
type ExamSummary struct {
	ExamID         int64   `json:"exam_id"`
	Title          string  `json:"title"`
	IsFinal        bool    `json:"is_final"`
	Graded         int     `json:"graded"`
	AveragePercent float64 `json:"average_percent"`
	PassRate       float64 `json:"pass_rate"`
}

// CourseReport is the analytics of one course in one academic year.
type CourseReport struct {
	CourseID       int64         `json:"course_id"`
	AcademicYearID int64         `json:"academic_year_id"`
	Enrollments    int           `json:"enrollments"`
	Completions    int           `json:"completions"`
	CompletionRate float64       `json:"completion_rate"`
	AveragePercent float64       `json:"average_percent"`
	Students       []StudentRow  `json:"students"`
	Exams          []ExamSummary `json:"exams"`
	Distribution   []BucketCount `json:"distribution"`
}

// EnrollmentData is the input for one enrolled student.
type EnrollmentData struct {
	EnrollmentID int64
	StudentID    int64
	Name         string
	Attempts     []model.Attempt
	Completion   *model.Completion
}

// StudentStanding classifies a student: completed when a completion
// exists, failed when a graded final exam was failed or the average is
// below the pass percent, otherwise in progress.
func StudentStanding(attempts []model.Attempt, exams map[int64]model.Exam, completed bool) (StudentStatus, float64, int) {
	var percents []float64
	failedFinal := false
	for _, a := range attempts {
		e, ok := exams[a.ExamID]
		if !ok || !a.IsGraded {
			continue
		}
		percents = append(percents, scoring.Percentage(a.ScoreValue(), e.TotalScore))
		if e.IsFinal && !scoring.Passed(a.ScoreValue(), e.TotalScore, e.PassingScore) {
			failedFinal = true
		}
	}
	avg := scoring.Average(percents)
	switch {
	case completed:
		return StatusCompleted, avg, len(percents)
	case len(percents) == 0:
		return StatusInProgress, avg, 0
	case failedFinal || avg < scoring.DefaultPassPercent:
		return StatusFailed, avg, len(percents)
	default:
		return StatusInProgress, avg, len(percents)
	}
}

// BuildCourseReport computes a CourseReport.
func BuildCourseReport(courseID, yearID int64, exams []model.Exam, enrollments []EnrollmentData) CourseReport {
	r := CourseReport{CourseID: courseID, AcademicYearID: yearID, Enrollments: len(enrollments)}
	byID := make(map[int64]model.Exam, len(exams))
	for _, e := range exams {
		byID[e.ID] = e
	}

	var allPercents []float64
	examPercents := make(map[int64][]float64)
	examPassed := make(map[int64]int)
	for _, en := range enrollments {
		status, avg, taken := StudentStanding(en.Attempts, byID, en.Completion != nil)
		row := StudentRow{
			EnrollmentID:   en.EnrollmentID,
			StudentID:      en.StudentID,
			Name:           en.Name,
			ExamsTaken:     taken,
			AveragePercent: avg,
			Status:         status,
		}
		if en.Completion != nil {
			r.Completions++
			id := en.Completion.ID
			row.CompletionID = &id
		}
		r.Students = append(r.Students, row)

		for _, a := range en.Attempts {
			e, ok := byID[a.ExamID]
			if !ok || !a.IsGraded {
				continue
			}
			p := scoring.Percentage(a.ScoreValue(), e.TotalScore)
			allPercents = append(allPercents, p)
			examPercents[e.ID] = append(examPercents[e.ID], p)
			if scoring.Passed(a.ScoreValue(), e.TotalScore, e.PassingScore) {
				examPassed[e.ID]++
			}
		}
	}
	if r.Enrollments > 0 {
		r.CompletionRate = float64(r.Completions) / float64(r.Enrollments) * 100
	}
	r.AveragePercent = scoring.Average(allPercents)
	r.Distribution = distribution(scoring.CourseBuckets, allPercents)

	for _, e := range exams {
		ps := examPercents[e.ID]
		s := ExamSummary{ExamID: e.ID, Title: e.Title, IsFinal: e.IsFinal, Graded: len(ps)}
		if len(ps) > 0 {
			s.AveragePercent = scoring.Average(ps)
			s.PassRate = float64(examPassed[e.ID]) / float64(len(ps)) * 100
		}
		r.Exams = append(r.Exams, s)
	}
	return r
}

// Store is the persistence the report loaders need.
type Store interface {
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	ListExamAttempts(ctx context.Context, examID int64) ([]model.AttemptSummary, error)
	ListExamQuestions(ctx context.Context, examID int64) ([]model.Question, error)
	ListExamAnswers(ctx context.Context, examID int64) ([]model.Answer, error)
	ListCourseExams(ctx context.Context, courseID, yearID int64) ([]model.Exam, error)
	ListCourseEnrollments(ctx context.Context, courseID, yearID int64) ([]store.EnrolledStudent, error)
	ListEnrollmentAttempts(ctx context.Context, enrollmentID int64) ([]model.Attempt, error)
	GetEnrollmentCompletion(ctx context.Context, enrollmentID int64) (*model.Completion, error)
}

// ExamReportFor loads and computes the report of an exam.
func ExamReportFor(ctx context.Context, s Store, examID int64) (*ExamReport, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil || exam == nil {
		return nil, err
	}
	summaries, err := s.ListExamAttempts(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]model.Attempt, len(summaries))
	for i, a := range summaries {
		attempts[i] = a.Attempt
	}
	questions, err := s.ListExamQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.ListExamAnswers(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	r := BuildExamReport(*exam, attempts, questions, answers)
	return &r, nil
}

// CourseReportFor loads and computes the report of a course year.
func CourseReportFor(ctx context.Context, s Store, courseID, yearID int64) (*CourseReport, error) {
	exams, err := s.ListCourseExams(ctx, courseID, yearID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	enrolled, err := s.ListCourseEnrollments(ctx, courseID, yearID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	data := make([]EnrollmentData, 0, len(enrolled))
	for _, en := range enrolled {
		attempts, err := s.ListEnrollmentAttempts(ctx, en.ID)
		if err != nil {
			return nil, fmt.Errorf("list attempts of enrollment %d: %w", en.ID, err)
		}
		c, err := s.GetEnrollmentCompletion(ctx, en.ID)
		if err != nil {
			return nil, fmt.Errorf("get completion of enrollment %d: %w", en.ID, err)
		}
		data = append(data, EnrollmentData{
			EnrollmentID: en.ID,
			StudentID:    en.StudentID,
			Name:         en.StudentName,
			Attempts:     attempts,
			Completion:   c,
		})
	}
	r := BuildCourseReport(courseID, yearID, exams, data)
	return &r, nil
}
