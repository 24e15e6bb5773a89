package views

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// QuestionsPath is the authoring page of an exam.
func QuestionsPath(courseID, examID int64) string {
	return fmt.Sprintf("/manage/courses/%d/exams/%d/questions", courseID, examID)
}

// AttemptsPath is the grading console of an exam.
func AttemptsPath(courseID, examID int64) string {
	return fmt.Sprintf("/manage/courses/%d/exams/%d/attempts", courseID, examID)
}

// GradePath is the grading form of an attempt.
func GradePath(attemptID int64) string {
	return fmt.Sprintf("/manage/attempts/%d/grade", attemptID)
}

// ManageCoursePage lists a course's exams with links to authoring, grading
// and analytics.
func ManageCoursePage(course model.Course, exams []model.Exam) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			b.raw(`<p><a href="`, attr(ctx, fmt.Sprintf("/manage/courses/%d/analytics", course.ID)), `">`, t(ctx, "CourseAnalytics"), `</a></p>`)
			if len(exams) == 0 {
				b.raw(`<p>`, t(ctx, "NoExams"), `</p>`)
				return nil
			}
			b.raw(`<table><thead><tr><th>`, t(ctx, "Exam"), `</th><th>`, t(ctx, "Window"), `</th><th></th></tr></thead><tbody>`)
			for _, e := range exams {
				b.raw(`<tr><td>`)
				b.text(e.Title)
				if e.IsFinal {
					b.raw(` <small>(`, t(ctx, "FinalExam"), `)</small>`)
				}
				b.raw(`</td><td>`)
				b.text(e.StartTime.Format("2006-01-02 15:04") + " - " + e.EndTime.Format("2006-01-02 15:04"))
				b.raw(`</td><td>`)
				b.raw(`<a href="`, attr(ctx, QuestionsPath(course.ID, e.ID)), `">`, t(ctx, "Questions"), `</a> `)
				b.raw(`<a href="`, attr(ctx, AttemptsPath(course.ID, e.ID)), `">`, t(ctx, "Grading"), `</a> `)
				b.raw(`<a href="`, attr(ctx, fmt.Sprintf("/manage/courses/%d/exams/%d/analytics", course.ID, e.ID)), `">`, t(ctx, "Analytics"), `</a>`)
				b.raw(`</td></tr>`)
			}
			b.raw(`</tbody></table>`)
			return nil
		})
		return render(ctx, b, Layout(course.Title, body))
	})
}

// GradingConsolePage lists the attempts of an exam filtered by grading state.
func GradingConsolePage(course model.Course, e model.Exam, rows []model.AttemptSummary, filter string, allGraded bool) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			base := AttemptsPath(course.ID, e.ID)
			b.raw(`<p>`)
			for _, f := range []string{"all", "graded", "ungraded"} {
				if f == filter {
					b.raw(`<strong>`, t(ctx, "Filter_"+f), `</strong> `)
					continue
				}
				b.raw(`<a href="`, attr(ctx, base+"?status="+f), `">`, t(ctx, "Filter_"+f), `</a> `)
			}
			b.raw(`</p>`)
			if allGraded {
				b.raw(`<p class="ok">`, t(ctx, "AllAttemptsGraded"), `</p>`)
			}
			b.raw(`<table><thead><tr><th>`, t(ctx, "Student"), `</th><th>`, t(ctx, "Score"), `</th><th>`, t(ctx, "State"), `</th><th></th></tr></thead><tbody>`)
			for _, a := range rows {
				b.raw(`<tr><td>`)
				b.text(a.StudentName)
				b.raw(`</td><td>`, optNum(a.Score), ` / `, num(e.TotalScore), `</td><td>`, t(ctx, "State_"+string(a.State())), `</td><td>`)
				if a.IsFinalized {
					b.raw(`<a href="`, attr(ctx, GradePath(a.ID)), `">`, t(ctx, "Grade"), `</a>`)
				}
				b.raw(`</td></tr>`)
			}
			b.raw(`</tbody></table>`)
			return nil
		})
		return render(ctx, b, Layout(e.Title, body))
	})
}

// GradePage is the grading form of one submitted attempt.
func GradePage(courseID int64, v *model.AttemptView, warnings []string, canSuggest bool) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			for _, w := range warnings {
				b.raw(`<div class="warning">`)
				b.text(w)
				b.raw(`</div>`)
			}
			b.raw(`<p>`)
			b.text(v.Student.Name())
			b.raw(` <a href="`, attr(ctx, AttemptsPath(courseID, v.Exam.ID)), `">`, t(ctx, "BackToAttempts"), `</a></p>`)
			if canSuggest {
				b.raw(postButton(ctx, fmt.Sprintf("/manage/attempts/%d/suggest", v.Attempt.ID), i18n.T(ctx, "SuggestScores"), ""))
			}
			b.raw(`<form method="post" action="`, attr(ctx, GradePath(v.Attempt.ID)), `">`, csrfField(ctx), `<ol>`)
			for _, q := range v.Questions {
				a, ok := v.Answers[q.ID]
				b.raw(`<li><p>`)
				b.text(q.Text)
				b.raw(`</p>`)
				if !ok {
					b.raw(`<p><em>`, t(ctx, "NotAnswered"), `</em></p></li>`)
					continue
				}
				b.raw(`<p>`, answerText(ctx, q, a), `</p>`)
				if a.UploadedFile != "" {
					b.raw(`<p><a href="`, attr(ctx, fmt.Sprintf("/manage/attempts/%d/answers/%d/file", v.Attempt.ID, a.ID)), `">`, t(ctx, "Download"), `</a></p>`)
				}
				if a.SuggestedScore != nil {
					b.raw(`<p class="suggestion">`, t(ctx, "Suggested"), `: `, num(*a.SuggestedScore), ` `)
					b.text(a.SuggestedFeedback)
					b.raw(`</p>`)
				}
				b.rawf(`<label>%s <input name="score_%d" value="%s" size="5"> / %s</label>`, t(ctx, "Score"), a.ID, templ.EscapeString(optScoreInput(a.AwardedScore)), num(q.MaxScore))
				b.rawf(`<label>%s <textarea name="feedback_%d" rows="2">`, t(ctx, "Feedback"), a.ID)
				b.text(a.Feedback)
				b.raw(`</textarea></label></li>`)
			}
			b.raw(`</ol><label>`, t(ctx, "TotalScore"), ` <input name="total_score" value="`, templ.EscapeString(optScoreInput(v.Attempt.Score)), `" size="6"> / `, num(v.Exam.TotalScore), `</label>`)
			b.raw(`<label>`, t(ctx, "InstructorFeedback"), ` <textarea name="instructor_feedback" rows="3">`)
			b.text(v.Attempt.InstructorFeedback)
			b.raw(`</textarea></label>`)
			checked := ""
			if v.Attempt.IsGraded {
				checked = " checked"
			}
			b.raw(`<label><input type="checkbox" name="finalize" value="1"`, checked, `> `, t(ctx, "MarkGraded"), `</label>`)
			b.raw(`<button type="submit">`, t(ctx, "Save"), `</button></form>`)
			return nil
		})
		return render(ctx, b, Layout(v.Exam.Title, body))
	})
}

func optScoreInput(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

// QuestionForm is the editable state of the authoring form.
type QuestionForm struct {
	Type     model.QuestionType
	Text     string
	MaxScore string
	IsTrue   bool
	Rubric   string
	Options  []model.AnswerOption
}

// extraOptionRows is how many blank option rows the form offers.
const extraOptionRows = 2

func questionForm(ctx context.Context, b *buf, action string, f QuestionForm) {
	b.raw(`<form method="post" action="`, attr(ctx, action), `">`, csrfField(ctx))
	b.raw(`<label>`, t(ctx, "QuestionType"), ` <select name="question_type">`)
	for _, qt := range []model.QuestionType{model.QuestionMCQ, model.QuestionTF, model.QuestionEssay} {
		sel := ""
		if qt == f.Type {
			sel = " selected"
		}
		b.raw(`<option value="`, string(qt), `"`, sel, `>`, t(ctx, "QuestionType_"+string(qt)), `</option>`)
	}
	b.raw(`</select></label><label>`, t(ctx, "QuestionText"), ` <textarea name="text" rows="3">`)
	b.text(f.Text)
	b.raw(`</textarea></label><label>`, t(ctx, "MaxScore"), ` <input name="max_score" value="`, templ.EscapeString(f.MaxScore), `" size="5"></label>`)
	checked := ""
	if f.IsTrue {
		checked = " checked"
	}
	b.raw(`<label><input type="checkbox" name="is_true" value="1"`, checked, `> `, t(ctx, "StatementIsTrue"), `</label>`)
	b.raw(`<label>`, t(ctx, "Rubric"), ` <textarea name="rubric" rows="2">`)
	b.text(f.Rubric)
	b.raw(`</textarea></label><fieldset><legend>`, t(ctx, "Options"), `</legend>`)
	rows := append(append([]model.AnswerOption(nil), f.Options...), make([]model.AnswerOption, extraOptionRows)...)
	for i, o := range rows {
		correct := ""
		if o.IsCorrect {
			correct = " checked"
		}
		b.rawf(`<div><input name="option_text_%d" value="%s"> <label><input type="checkbox" name="option_correct_%d" value="1"%s> %s</label>`,
			i, templ.EscapeString(o.Text), i, correct, t(ctx, "Correct"))
		if i < len(f.Options) {
			b.rawf(` <label><input type="checkbox" name="option_delete_%d" value="1"> %s</label>`, i, t(ctx, "Delete"))
		}
		b.raw(`</div>`)
	}
	b.raw(`</fieldset><button type="submit">`, t(ctx, "Save"), `</button></form>`)
}

func errorList(b *buf, errs []string) {
	if len(errs) == 0 {
		return
	}
	b.raw(`<ul class="errors">`)
	for _, e := range errs {
		b.raw(`<li>`)
		b.text(e)
		b.raw(`</li>`)
	}
	b.raw(`</ul>`)
}

// QuestionsPage lists an exam's questions with a form to add one.
func QuestionsPage(courseID int64, e model.Exam, questions []model.Question, form QuestionForm, errs []string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			var sum float64
			b.raw(`<ol>`)
			for _, q := range questions {
				sum += q.MaxScore
				b.raw(`<li>`)
				b.text(q.Text)
				b.raw(` <small>`, t(ctx, "QuestionType_"+string(q.Type)), `, `, num(q.MaxScore), `</small> `)
				b.raw(`<a href="`, attr(ctx, fmt.Sprintf("/manage/questions/%d/edit", q.ID)), `">`, t(ctx, "Edit"), `</a> `)
				b.raw(postButton(ctx, fmt.Sprintf("/manage/questions/%d/delete", q.ID), i18n.T(ctx, "Delete"), "link"))
				b.raw(`</li>`)
			}
			b.raw(`</ol><p>`)
			b.text(i18n.Td(ctx, "QuestionScoreSum", map[string]any{"Sum": num(sum), "Total": num(e.TotalScore)}))
			b.raw(`</p><h2>`, t(ctx, "AddQuestion"), `</h2>`)
			errorList(b, errs)
			questionForm(ctx, b, QuestionsPath(courseID, e.ID), form)
			return nil
		})
		return render(ctx, b, Layout(e.Title, body))
	})
}

// QuestionEditPage edits one question.
func QuestionEditPage(q model.Question, form QuestionForm, errs []string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			errorList(b, errs)
			questionForm(ctx, b, fmt.Sprintf("/manage/questions/%d/edit", q.ID), form)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "EditQuestion"), body))
	})
}
