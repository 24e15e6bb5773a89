package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/analytics"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

func distributionTable(ctx context.Context, b *buf, d []analytics.BucketCount) {
	b.raw(`<table class="distribution"><thead><tr><th>`, t(ctx, "Range"), `</th><th>`, t(ctx, "Count"), `</th></tr></thead><tbody>`)
	for _, c := range d {
		b.raw(`<tr><td>`)
		b.text(c.Label)
		b.raw(`</td><td>`, strconv.Itoa(c.Count), `</td></tr>`)
	}
	b.raw(`</tbody></table>`)
}

// ExamAnalyticsPage renders an exam report.
func ExamAnalyticsPage(r *analytics.ExamReport) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			b.raw(`<dl>`)
			b.raw(`<dt>`, t(ctx, "GradedAttempts"), `</dt><dd>`, strconv.Itoa(r.Graded), `</dd>`)
			b.raw(`<dt>`, t(ctx, "AverageScore"), `</dt><dd>`, num(r.AverageScore), ` (`, pct(r.AveragePercent), `)</dd>`)
			b.raw(`<dt>`, t(ctx, "HighestScore"), `</dt><dd>`, num(r.MaxScore), `</dd>`)
			b.raw(`<dt>`, t(ctx, "LowestScore"), `</dt><dd>`, num(r.MinScore), `</dd>`)
			b.raw(`<dt>`, t(ctx, "PassRate"), `</dt><dd>`, pct(r.PassRate), `</dd></dl>`)
			distributionTable(ctx, b, r.Distribution)
			b.raw(`<h2>`, t(ctx, "QuestionDifficulty"), `</h2><table><tbody>`)
			for _, q := range r.Questions {
				b.raw(`<tr><td>`, strconv.Itoa(q.Position), `</td><td>`)
				b.text(q.Text)
				b.raw(`</td><td>`, num(q.AverageScore), ` / `, num(q.MaxScore), `</td><td>`, pct(q.Percent), `</td></tr>`)
			}
			b.raw(`</tbody></table>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "Analytics")+": "+r.Title, body))
	})
}

func studentStatus(ctx context.Context, s analytics.StudentStatus) string {
	return t(ctx, "Student_"+string(s))
}

// CourseAnalyticsPage renders a course report. years feeds the academic
// year selector; admin adds the completion override buttons.
func CourseAnalyticsPage(course model.Course, years []model.AcademicYear, r *analytics.CourseReport, admin bool, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			base := fmt.Sprintf("/manage/courses/%d/analytics", course.ID)
			b.raw(`<form method="get" action="`, attr(ctx, base), `"><select name="year">`)
			b.raw(`<option value="all">`, t(ctx, "AllYears"), `</option>`)
			for _, y := range years {
				sel := ""
				if y.ID == r.AcademicYearID {
					sel = " selected"
				}
				b.rawf(`<option value="%d"%s>`, y.ID, sel)
				b.text(y.Name)
				b.raw(`</option>`)
			}
			b.raw(`</select> <button type="submit">`, t(ctx, "Show"), `</button></form>`)

			b.raw(`<dl><dt>`, t(ctx, "Enrollments"), `</dt><dd>`, strconv.Itoa(r.Enrollments), `</dd>`)
			b.raw(`<dt>`, t(ctx, "CompletionRate"), `</dt><dd>`, pct(r.CompletionRate), `</dd>`)
			b.raw(`<dt>`, t(ctx, "AverageScore"), `</dt><dd>`, pct(r.AveragePercent), `</dd></dl>`)
			distributionTable(ctx, b, r.Distribution)

			b.raw(`<h2>`, t(ctx, "Exams"), `</h2><table><tbody>`)
			for _, e := range r.Exams {
				b.raw(`<tr><td>`)
				b.text(e.Title)
				b.raw(`</td><td>`, strconv.Itoa(e.Graded), `</td><td>`, pct(e.AveragePercent), `</td><td>`, pct(e.PassRate), `</td></tr>`)
			}
			b.raw(`</tbody></table>`)

			b.raw(`<h2>`, t(ctx, "Students"), `</h2><table><tbody>`)
			for _, s := range r.Students {
				b.raw(`<tr><td>`)
				b.text(s.Name)
				b.raw(`</td><td>`, strconv.Itoa(s.ExamsTaken), `</td><td>`, pct(s.AveragePercent), `</td><td>`, studentStatus(ctx, s.Status), `</td><td>`)
				if admin {
					if s.CompletionID != nil {
						b.raw(postButton(ctx, fmt.Sprintf("/admin/completions/%d/revoke", *s.CompletionID), i18n.T(ctx, "RevokeCompletion"), "link"))
					} else {
						b.raw(postButton(ctx, fmt.Sprintf("/admin/enrollments/%d/complete", s.EnrollmentID), i18n.T(ctx, "MarkCompleted"), "link"))
					}
				}
				b.raw(`</td></tr>`)
			}
			b.raw(`</tbody></table>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "CourseAnalytics")+": "+course.Title, body))
	})
}
