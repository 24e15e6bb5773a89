package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pavelanni/academy/internal/model"
)

// Custom validation tags. Each doubles as the i18n message ID shown to
// the author.
const (
	tagNoOptions    = "QuestionNoOptions"
	tagFewOptions   = "QuestionTooFewOptions"
	tagBlankOption  = "QuestionBlankOption"
	tagOneCorrect   = "QuestionOneCorrect"
	tagNotBlank     = "notblank"
	msgBlankText    = "QuestionBlankText"
	msgBadMaxScore  = "QuestionBadMaxScore"
	msgUnknownType  = "QuestionUnknownType"
	msgTypeMismatch = "QuestionTypeMismatch"
)

// OptionInput is one row of the option formset. Deleted rows are ignored.
type OptionInput struct {
	Text      string
	IsCorrect bool
	Delete    bool
}

// QuestionInput is an authored question before it is stored.
type QuestionInput struct {
	Type     model.QuestionType `validate:"required"`
	Text     string             `validate:"notblank"`
	MaxScore float64            `validate:"gte=0"`
	IsTrue   bool
	Rubric   string
	Options  []OptionInput
}

// ValidationError lists the i18n message IDs of every failed rule.
type ValidationError struct {
	MsgIDs []string
}

func (e *ValidationError) Error() string {
	return "invalid question: " + strings.Join(e.MsgIDs, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation(tagNotBlank, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterStructValidation(questionStructValidation, QuestionInput{})
	return v
}

// questionStructValidation enforces the option rules of multiple-choice
// questions: at least two kept options, none blank, exactly one correct.
func questionStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(QuestionInput)
	if !ok || in.Type != model.QuestionMCQ {
		return
	}
	kept, correct := 0, 0
	for _, o := range in.Options {
		if o.Delete {
			continue
		}
		kept++
		if strings.TrimSpace(o.Text) == "" {
			sl.ReportError(in.Options, "options", "Options", tagBlankOption, "")
		}
		if o.IsCorrect {
			correct++
		}
	}
	if kept == 0 {
		sl.ReportError(in.Options, "options", "Options", tagNoOptions, "")
		return
	}
	if kept < 2 {
		sl.ReportError(in.Options, "options", "Options", tagFewOptions, "")
	}
	if correct != 1 {
		sl.ReportError(in.Options, "options", "Options", tagOneCorrect, "")
	}
}

func validateQuestion(in QuestionInput) error {
	if !in.Type.Valid() {
		return &ValidationError{MsgIDs: []string{msgUnknownType}}
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	seen := map[string]bool{}
	ve := &ValidationError{}
	for _, fe := range verrs {
		id := fe.Tag()
		switch fe.Field() {
		case "Text":
			id = msgBlankText
		case "MaxScore":
			id = msgBadMaxScore
		}
		if !seen[id] {
			seen[id] = true
			ve.MsgIDs = append(ve.MsgIDs, id)
		}
	}
	return ve
}

func (in QuestionInput) toModel(examID int64) model.Question {
	q := model.Question{
		ExamID:   examID,
		Type:     in.Type,
		Text:     strings.TrimSpace(in.Text),
		MaxScore: in.MaxScore,
		Rubric:   strings.TrimSpace(in.Rubric),
	}
	switch in.Type {
	case model.QuestionTF:
		q.IsTrue = in.IsTrue
	case model.QuestionMCQ:
		for _, o := range in.Options {
			if o.Delete {
				continue
			}
			q.Options = append(q.Options, model.AnswerOption{Text: strings.TrimSpace(o.Text), IsCorrect: o.IsCorrect})
		}
	}
	return q
}

// CreateQuestion validates and stores a question with its options. Nothing
// is stored when validation fails.
func (s *Service) CreateQuestion(ctx context.Context, examID int64, in QuestionInput) (int64, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return 0, ErrNotFound
	}
	if err := validateQuestion(in); err != nil {
		return 0, err
	}
	return s.store.CreateQuestion(ctx, in.toModel(examID))
}

// UpdateQuestion validates and rewrites a question. The question type
// cannot change.
func (s *Service) UpdateQuestion(ctx context.Context, questionID int64, in QuestionInput) error {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return ErrNotFound
	}
	if in.Type != q.Type {
		return &ValidationError{MsgIDs: []string{msgTypeMismatch}}
	}
	if err := validateQuestion(in); err != nil {
		return err
	}
	updated := in.toModel(q.ExamID)
	updated.ID = q.ID
	return s.store.UpdateQuestion(ctx, updated)
}

// DeleteQuestion removes a question.
func (s *Service) DeleteQuestion(ctx context.Context, questionID int64) error {
	return s.store.DeleteQuestion(ctx, questionID)
}
