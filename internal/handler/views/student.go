package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
	"github.com/pavelanni/academy/internal/scoring"
)

// CourseEntry is one enrolled course on the home page.
type CourseEntry struct {
	Course     model.Course
	Year       string
	Completion *model.Completion
}

// HomePage lists the student's enrollments and the courses the user manages.
func HomePage(enrolled []CourseEntry, managed []model.Course, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			if len(enrolled) > 0 {
				b.raw(`<h2>`, t(ctx, "MyCourses"), `</h2><ul>`)
				for _, e := range enrolled {
					b.raw(`<li><a href="`, attr(ctx, notify.CoursePath(e.Course.ID)), `">`)
					b.text(e.Course.Title)
					b.raw(`</a> <small>`)
					b.text(e.Year)
					b.raw(`</small>`)
					if e.Completion != nil && e.Completion.CertificateIssued {
						b.raw(` <a href="`, attr(ctx, notify.CertificatePath(e.Completion.ID)), `">`, t(ctx, "ViewCertificate"), `</a>`)
					}
					b.raw(`</li>`)
				}
				b.raw(`</ul>`)
			}
			if len(managed) > 0 {
				b.raw(`<h2>`, t(ctx, "ManagedCourses"), `</h2><ul>`)
				for _, c := range managed {
					b.raw(`<li>`)
					b.text(c.Title)
					b.raw(` <a href="`, attr(ctx, fmt.Sprintf("/manage/courses/%d", c.ID)), `">`, t(ctx, "ManageExams"), `</a>`)
					b.raw(` <a href="`, attr(ctx, fmt.Sprintf("/manage/courses/%d/analytics", c.ID)), `">`, t(ctx, "Analytics"), `</a></li>`)
				}
				b.raw(`</ul>`)
			}
			if len(enrolled) == 0 && len(managed) == 0 {
				b.raw(`<p>`, t(ctx, "NoCourses"), `</p>`)
			}
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "AppTitle"), body))
	})
}

func statusLabel(ctx context.Context, s model.ExamStatus) string {
	switch s {
	case model.ExamNotAvailableYet:
		return t(ctx, "StatusNotAvailableYet")
	case model.ExamInProgress:
		return t(ctx, "StatusInProgress")
	case model.ExamActive:
		return t(ctx, "StatusActive")
	case model.ExamResultsAvailable:
		return t(ctx, "StatusResultsAvailable")
	case model.ExamPendingResults:
		return t(ctx, "StatusPendingResults")
	default:
		return t(ctx, "StatusExpired")
	}
}

// ExamListPage shows a course's exams with the student's status for each,
// followed by the course modules.
func ExamListPage(course model.Course, items []model.ExamListItem, modules []model.Module, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			b.raw(`<h2>`, t(ctx, "Exams"), `</h2>`)
			if len(items) == 0 {
				b.raw(`<p>`, t(ctx, "NoExams"), `</p>`)
			}
			b.raw(`<table><tbody>`)
			for _, it := range items {
				b.raw(`<tr><td>`)
				b.text(it.Exam.Title)
				b.raw(`</td><td>`, statusLabel(ctx, it.Status), `</td><td>`)
				switch it.Status {
				case model.ExamActive:
					b.raw(`<a href="`, attr(ctx, takePath(course.ID, it.Exam.ID)), `">`, t(ctx, "StartExam"), `</a>`)
				case model.ExamInProgress:
					b.raw(`<a href="`, attr(ctx, takePath(course.ID, it.Exam.ID)), `">`, t(ctx, "ResumeExam"), `</a>`)
				case model.ExamResultsAvailable:
					b.raw(`<a href="`, attr(ctx, notify.ResultsPath(course.ID, it.Exam.ID, it.Attempt.ID)), `">`, t(ctx, "ViewResults"), `</a>`)
				}
				b.raw(`</td></tr>`)
			}
			b.raw(`</tbody></table>`)
			if len(modules) > 0 {
				b.raw(`<h2>`, t(ctx, "Modules"), `</h2><ol>`)
				for _, m := range modules {
					b.raw(`<li><a href="`, attr(ctx, fmt.Sprintf("/courses/%d/modules/%d", course.ID, m.ID)), `">`)
					b.text(m.Title)
					b.raw(`</a></li>`)
				}
				b.raw(`</ol>`)
			}
			return nil
		})
		return render(ctx, b, Layout(course.Title, body))
	})
}

func takePath(courseID, examID int64) string {
	return fmt.Sprintf("/courses/%d/exams/%d/take", courseID, examID)
}

func fieldName(prefix string, id int64) string { return prefix + strconv.FormatInt(id, 10) }

// TakePage renders the question under the cursor with navigation buttons.
func TakePage(courseID int64, sess *exam.Session, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			b.raw(`<p>`)
			b.text(i18n.Td(ctx, "QuestionProgress", map[string]any{"Index": sess.Cursor.Index, "Total": len(sess.Questions)}))
			b.raw(`</p><form method="post" enctype="multipart/form-data" action="`, attr(ctx, takePath(courseID, sess.Exam.ID)), `">`, csrfField(ctx))
			if q := sess.Current(); q != nil {
				ans, answered := sess.Answers[q.ID]
				b.raw(`<fieldset><legend>`)
				b.text(q.Text)
				b.raw(` <small>(`, num(q.MaxScore), `)</small></legend>`)
				name := fieldName("answer_", q.ID)
				switch q.Type {
				case model.QuestionMCQ:
					for _, o := range q.Options {
						checked := ""
						if answered && ans.SelectedOptionID != nil && *ans.SelectedOptionID == o.ID {
							checked = " checked"
						}
						b.rawf(`<label><input type="radio" name="%s" value="%d"%s> `, name, o.ID, checked)
						b.text(o.Text)
						b.raw(`</label>`)
					}
				case model.QuestionTF:
					for _, v := range []bool{true, false} {
						checked := ""
						if answered && ans.BoolAnswer != nil && *ans.BoolAnswer == v {
							checked = " checked"
						}
						label, value := "True", "True"
						if !v {
							label, value = "False", "False"
						}
						b.rawf(`<label><input type="radio" name="%s" value="%s"%s> %s</label>`, name, value, checked, t(ctx, label))
					}
				case model.QuestionEssay:
					b.raw(`<textarea name="`, name, `" rows="10">`)
					if answered && ans.EssayText != nil {
						b.text(*ans.EssayText)
					}
					b.raw(`</textarea>`)
					if answered && ans.UploadedFile != "" {
						b.raw(`<p>`, t(ctx, "FileAttached"), `</p>`)
					}
					b.raw(`<input type="file" name="`, fieldName("file_", q.ID), `">`)
				}
				b.raw(`</fieldset>`)
			}
			if sess.HasPrev() {
				b.raw(`<button name="action" value="prev">`, t(ctx, "Previous"), `</button> `)
			}
			b.raw(`<button name="action" value="save">`, t(ctx, "Save"), `</button> `)
			if sess.HasNext() {
				b.raw(`<button name="action" value="next">`, t(ctx, "Next"), `</button> `)
			}
			b.raw(`<button name="action" value="submit" class="primary">`, t(ctx, "SubmitExam"), `</button></form>`)
			return nil
		})
		return render(ctx, b, Layout(sess.Exam.Title, body))
	})
}

func answerText(ctx context.Context, q model.Question, a model.Answer) string {
	switch q.Type {
	case model.QuestionMCQ:
		if a.SelectedOptionID != nil {
			if o := q.Option(*a.SelectedOptionID); o != nil {
				return templ.EscapeString(o.Text)
			}
		}
	case model.QuestionTF:
		if a.BoolAnswer != nil {
			if *a.BoolAnswer {
				return t(ctx, "True")
			}
			return t(ctx, "False")
		}
	case model.QuestionEssay:
		if a.EssayText != nil {
			return templ.EscapeString(*a.EssayText)
		}
	}
	return ""
}

// ResultsPage shows a finalized attempt to its student.
func ResultsPage(v *model.AttemptView) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			score := v.Attempt.ScoreValue()
			b.raw(`<p class="score">`)
			b.text(i18n.Td(ctx, "ScoreSummary", map[string]any{
				"Score":   num(score),
				"Total":   num(v.Exam.TotalScore),
				"Percent": pct(scoring.Percentage(score, v.Exam.TotalScore)),
			}))
			b.raw(`</p>`)
			if !v.Attempt.IsGraded {
				b.raw(`<p>`, t(ctx, "StatusPendingResults"), `</p>`)
			}
			if v.Attempt.InstructorFeedback != "" {
				b.raw(`<blockquote>`)
				b.text(v.Attempt.InstructorFeedback)
				b.raw(`</blockquote>`)
			}
			b.raw(`<ol>`)
			for _, q := range v.Questions {
				a := v.Answers[q.ID]
				b.raw(`<li><p>`)
				b.text(q.Text)
				b.raw(`</p><p>`, answerText(ctx, q, a), `</p><p>`, optNum(a.AwardedScore), ` / `, num(q.MaxScore), `</p>`)
				if a.Feedback != "" {
					b.raw(`<p class="feedback">`)
					b.text(a.Feedback)
					b.raw(`</p>`)
				}
				b.raw(`</li>`)
			}
			b.raw(`</ol>`)
			return nil
		})
		return render(ctx, b, Layout(v.Exam.Title, body))
	})
}

// CertificatePage renders the certificate of a completion.
func CertificatePage(c model.Completion, course model.Course, student model.User) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			b.raw(`<section class="certificate"><p>`)
			b.text(i18n.Td(ctx, "CertificateText", map[string]any{"Student": student.Name(), "Course": course.Title}))
			b.raw(`</p><p>`)
			b.text(c.CompletedAt.Format("2006-01-02"))
			b.raw(`</p><p><small>`, t(ctx, "Serial"), `: `)
			b.text(c.Serial)
			b.raw(`</small></p></section>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "Certificate"), body))
	})
}
