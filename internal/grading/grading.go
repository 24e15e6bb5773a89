// Package grading turns a submitted form value into the stored shape of an
// answer, scoring objective questions immediately and leaving essays for
// manual review.
package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/academy/internal/model"
)

// Submission is the raw input for one question taken from the exam form.
// FileKey is the blob key of a file uploaded with this request, if any.
type Submission struct {
	Value   string
	FileKey string
}

// Outcome is the graded answer. When Skip is true the stored answer
// must be left untouched.
type Outcome struct {
	Skip             bool
	SelectedOptionID *int64
	BoolAnswer       *bool
	EssayText        *string
	FileKey          string
	IsCorrect        bool
	AwardedScore     *float64
	NeedsManual      bool
}

// Apply writes the outcome onto an answer record. A blank FileKey keeps
// the previously uploaded file.
func (o Outcome) Apply(a *model.Answer) {
	a.SelectedOptionID = o.SelectedOptionID
	a.BoolAnswer = o.BoolAnswer
	a.EssayText = o.EssayText
	if o.FileKey != "" {
		a.UploadedFile = o.FileKey
	}
	a.IsCorrect = o.IsCorrect
	a.AwardedScore = o.AwardedScore
}

// Strategy grades one question type.
type Strategy interface {
	Grade(q model.Question, sub Submission) (Outcome, error)
}

// Engine routes by question type to the matching Strategy.
type Engine struct {
	strategies map[model.QuestionType]Strategy
}

// NewEngine installs the built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[model.QuestionType]Strategy{
			model.QuestionMCQ:   mcqStrategy{},
			model.QuestionTF:    trueFalseStrategy{},
			model.QuestionEssay: essayStrategy{},
		},
	}
}

// Grade grades sub against q.
func (e *Engine) Grade(q model.Question, sub Submission) (Outcome, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("no grading strategy for question type %q", q.Type)
	}
	return s.Grade(q, sub)
}

func award(correct bool, max float64) *float64 {
	v := 0.0
	if correct {
		v = max
	}
	return &v
}

type mcqStrategy struct{}

func (mcqStrategy) Grade(q model.Question, sub Submission) (Outcome, error) {
	raw := strings.TrimSpace(sub.Value)
	if raw == "" {
		return Outcome{Skip: true}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Outcome{Skip: true}, nil
	}
	opt := q.Option(id)
	if opt == nil {
		return Outcome{}, fmt.Errorf("option %d does not belong to question %d", id, q.ID)
	}
	return Outcome{
		SelectedOptionID: &opt.ID,
		IsCorrect:        opt.IsCorrect,
		AwardedScore:     award(opt.IsCorrect, q.MaxScore),
	}, nil
}

// trueFalseStrategy treats only the literal "True" as a true answer.
type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q model.Question, sub Submission) (Outcome, error) {
	if sub.Value == "" {
		return Outcome{Skip: true}, nil
	}
	b := sub.Value == "True"
	correct := b == q.IsTrue
	return Outcome{
		BoolAnswer:   &b,
		IsCorrect:    correct,
		AwardedScore: award(correct, q.MaxScore),
	}, nil
}

type essayStrategy struct{}

func (essayStrategy) Grade(_ model.Question, sub Submission) (Outcome, error) {
	text := strings.TrimSpace(sub.Value)
	if text == "" && sub.FileKey == "" {
		return Outcome{Skip: true}, nil
	}
	return Outcome{
		EssayText:   &text,
		FileKey:     sub.FileKey,
		NeedsManual: true,
	}, nil
}
