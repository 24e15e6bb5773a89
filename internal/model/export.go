package model

import "time"

// CourseExport is the JSON document produced by the export command.
type CourseExport struct {
	ExportedAt  time.Time       `json:"exported_at"`
	Course      Course          `json:"course"`
	Exams       []ExamExport    `json:"exams"`
	Completions []CompletionRow `json:"completions"`
}

// ExamExport holds an exam with its questions and attempt results.
type ExamExport struct {
	Exam      Exam            `json:"exam"`
	Questions []Question      `json:"questions"`
	Attempts  []AttemptExport `json:"attempts"`
}

// AttemptExport is a flattened attempt record.
type AttemptExport struct {
	Student     string     `json:"student"`
	Score       *float64   `json:"score,omitempty"`
	Percent     float64    `json:"percent"`
	Passed      bool       `json:"passed"`
	IsGraded    bool       `json:"is_graded"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
}

// CompletionRow is a completion joined with its student.
type CompletionRow struct {
	Completion
	StudentID   int64  `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student"`
	CourseID    int64  `db:"course_id" json:"course_id"`
}

// ImportFile is the JSON layout accepted by the import command.
type ImportFile struct {
	Course       Course         `json:"course"`
	AcademicYear string         `json:"academic_year"`
	Owners       []string       `json:"owners"`
	Students     []string       `json:"students"`
	Modules      []ImportModule `json:"modules"`
	Exams        []ImportExam   `json:"exams"`
}

// ImportModule is a module with its content items.
type ImportModule struct {
	Module
	Contents []ContentItem `json:"contents"`
}

// ImportExam is an exam with its questions.
type ImportExam struct {
	Exam
	Questions []Question `json:"questions"`
}
