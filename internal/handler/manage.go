package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pavelanni/academy/internal/analytics"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/handler/views"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

func (h *Handler) handleManageCourse(w http.ResponseWriter, r *http.Request) {
	course := courseFromContext(r.Context())
	exams, err := h.store.ListCourseExams(r.Context(), course.ID, 0)
	if err != nil {
		serverError(w, r, "failed to list exams", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.ManageCoursePage(*course, exams))
}

// gradingFilter normalizes the ?status= filter of the grading console.
func gradingFilter(v string) string {
	switch v {
	case "graded", "ungraded":
		return v
	}
	return "all"
}

func (h *Handler) handleGradingConsole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, e, ok := h.courseExam(w, r)
	if !ok {
		return
	}
	attempts, err := h.store.ListExamAttempts(ctx, e.ID)
	if err != nil {
		serverError(w, r, "failed to list attempts", err)
		return
	}
	filter := gradingFilter(r.URL.Query().Get("status"))
	var rows []model.AttemptSummary
	for _, a := range attempts {
		switch {
		case filter == "graded" && a.State() != model.AttemptFinalizedGraded:
		case filter == "ungraded" && a.State() != model.AttemptFinalizedUngraded:
		default:
			rows = append(rows, a)
		}
	}
	finalized, graded, err := h.store.ExamGradingCounts(ctx, e.ID)
	if err != nil {
		serverError(w, r, "failed to count attempts", err)
		return
	}
	allGraded := finalized > 0 && finalized == graded
	renderPage(w, r, http.StatusOK, views.GradingConsolePage(*course, *e, rows, filter, allGraded))
}

// managedAttempt loads {attemptID} and checks the user manages its course.
func (h *Handler) managedAttempt(w http.ResponseWriter, r *http.Request) (*model.AttemptView, bool) {
	ctx := r.Context()
	id, ok := idParam(r, "attemptID")
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	v, err := h.store.GetAttemptView(ctx, id)
	if err != nil {
		serverError(w, r, "failed to load attempt", err)
		return nil, false
	}
	if v == nil {
		http.NotFound(w, r)
		return nil, false
	}
	allowed, err := h.canManage(ctx, model.UserFromContext(ctx), v.Exam.CourseID)
	if err != nil {
		serverError(w, r, "failed to check course ownership", err)
		return nil, false
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return v, true
}

func (h *Handler) handleGradePage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.managedAttempt(w, r)
	if !ok {
		return
	}
	if !v.Attempt.IsFinalized {
		http.Error(w, "attempt is still in progress", http.StatusConflict)
		return
	}
	var warnings []string
	if msg := h.popFlash(w, r); msg != "" {
		warnings = append(warnings, msg)
	}
	renderPage(w, r, http.StatusOK, views.GradePage(v.Exam.CourseID, v, warnings, h.suggester != nil))
}

// gradeInput reads score_<answerID> and feedback_<answerID> fields. Fields
// absent from the form leave the stored value alone.
func gradeInput(r *http.Request, attemptID int64) exam.GradeInput {
	in := exam.GradeInput{
		AttemptID:          attemptID,
		Scores:             make(map[int64]string),
		Feedback:           make(map[int64]string),
		TotalScore:         r.PostForm.Get("total_score"),
		InstructorFeedback: r.PostForm.Get("instructor_feedback"),
		Finalize:           r.PostForm.Get("finalize") != "",
	}
	for key, vs := range r.PostForm {
		if len(vs) == 0 {
			continue
		}
		if id, ok := fieldID(key, "score_"); ok && strings.TrimSpace(vs[0]) != "" {
			in.Scores[id] = vs[0]
		}
		if id, ok := fieldID(key, "feedback_"); ok {
			in.Feedback[id] = vs[0]
		}
	}
	return in
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, ok := h.managedAttempt(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	res, err := h.exams.Grade(ctx, gradeInput(r, v.Attempt.ID))
	switch {
	case errors.Is(err, exam.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, exam.ErrNotFinalized):
		http.Error(w, "attempt is still in progress", http.StatusConflict)
		return
	case err != nil:
		serverError(w, r, "failed to grade attempt", err)
		return
	}
	if res.ExamGraded {
		h.dispatchExamGraded(ctx, v.Exam.ID)
	}
	if len(res.Warnings) > 0 {
		warnings := make([]string, 0, len(res.Warnings))
		for _, wn := range res.Warnings {
			warnings = append(warnings, appI18n.Td(ctx, wn.MsgID, wn.Data))
		}
		renderPage(w, r, http.StatusOK, views.GradePage(v.Exam.CourseID, res.View, warnings, h.suggester != nil))
		return
	}
	h.redirect(w, r, views.AttemptsPath(v.Exam.CourseID, v.Exam.ID))
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		http.NotFound(w, r)
		return
	}
	v, ok := h.managedAttempt(w, r)
	if !ok {
		return
	}
	n, err := h.exams.Suggest(r.Context(), v.Attempt.ID, h.suggester)
	if errors.Is(err, exam.ErrNotFinalized) {
		http.Error(w, "attempt is still in progress", http.StatusConflict)
		return
	}
	if err != nil {
		serverError(w, r, "failed to suggest scores", err)
		return
	}
	slog.Info("scores suggested", "attempt_id", v.Attempt.ID, "answers", n)
	h.redirect(w, r, views.GradePath(v.Attempt.ID))
}

func (h *Handler) handleAnswerFile(w http.ResponseWriter, r *http.Request) {
	v, ok := h.managedAttempt(w, r)
	if !ok {
		return
	}
	answerID, ok := idParam(r, "answerID")
	if !ok || h.blobs == nil {
		http.NotFound(w, r)
		return
	}
	for _, a := range v.Answers {
		if a.ID == answerID && a.UploadedFile != "" {
			h.serveBlob(w, r, a.UploadedFile)
			return
		}
	}
	http.NotFound(w, r)
}

// questionInput parses the authoring form. Option rows that are blank and
// not marked correct are treated as unused.
func questionInput(r *http.Request) (exam.QuestionInput, views.QuestionForm) {
	f := r.PostForm
	form := views.QuestionForm{
		Type:     model.QuestionType(f.Get("question_type")),
		Text:     f.Get("text"),
		MaxScore: strings.TrimSpace(f.Get("max_score")),
		IsTrue:   f.Get("is_true") != "",
		Rubric:   f.Get("rubric"),
	}
	in := exam.QuestionInput{
		Type:   form.Type,
		Text:   form.Text,
		IsTrue: form.IsTrue,
		Rubric: form.Rubric,
	}
	in.MaxScore = -1
	if v, err := strconv.ParseFloat(form.MaxScore, 64); err == nil {
		in.MaxScore = v
	}
	for i := 0; f.Has(fmt.Sprintf("option_text_%d", i)); i++ {
		text := f.Get(fmt.Sprintf("option_text_%d", i))
		correct := f.Get(fmt.Sprintf("option_correct_%d", i)) != ""
		del := f.Get(fmt.Sprintf("option_delete_%d", i)) != ""
		if strings.TrimSpace(text) == "" && !correct {
			continue
		}
		in.Options = append(in.Options, exam.OptionInput{Text: text, IsCorrect: correct, Delete: del})
		if !del {
			form.Options = append(form.Options, model.AnswerOption{Text: text, IsCorrect: correct})
		}
	}
	return in, form
}

func formFromQuestion(q model.Question) views.QuestionForm {
	return views.QuestionForm{
		Type:     q.Type,
		Text:     q.Text,
		MaxScore: strconv.FormatFloat(q.MaxScore, 'f', -1, 64),
		IsTrue:   q.IsTrue,
		Rubric:   q.Rubric,
		Options:  q.Options,
	}
}

// validationMessages translates a question validation error, or reports
// false for any other error.
func validationMessages(ctx context.Context, err error) ([]string, bool) {
	var ve *exam.ValidationError
	if !errors.As(err, &ve) {
		return nil, false
	}
	msgs := make([]string, 0, len(ve.MsgIDs))
	for _, id := range ve.MsgIDs {
		msgs = append(msgs, appI18n.T(ctx, id))
	}
	return msgs, true
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	course, e, ok := h.courseExam(w, r)
	if !ok {
		return
	}
	h.renderQuestions(w, r, http.StatusOK, course.ID, e, views.QuestionForm{Type: model.QuestionMCQ}, nil)
}

func (h *Handler) renderQuestions(w http.ResponseWriter, r *http.Request, status int, courseID int64, e *model.Exam, form views.QuestionForm, errs []string) {
	questions, err := h.store.ListExamQuestions(r.Context(), e.ID)
	if err != nil {
		serverError(w, r, "failed to list questions", err)
		return
	}
	renderPage(w, r, status, views.QuestionsPage(courseID, *e, questions, form, errs))
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, e, ok := h.courseExam(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in, form := questionInput(r)
	id, err := h.exams.CreateQuestion(ctx, e.ID, in)
	if msgs, ok := validationMessages(ctx, err); ok {
		h.renderQuestions(w, r, http.StatusUnprocessableEntity, course.ID, e, form, msgs)
		return
	}
	if err != nil {
		serverError(w, r, "failed to create question", err)
		return
	}
	slog.Info("question created", "exam_id", e.ID, "question_id", id)
	h.redirect(w, r, views.QuestionsPath(course.ID, e.ID))
}

// managedQuestion loads {questionID} with its exam and checks the user
// manages the course.
func (h *Handler) managedQuestion(w http.ResponseWriter, r *http.Request) (*model.Question, *model.Exam, bool) {
	ctx := r.Context()
	id, ok := idParam(r, "questionID")
	if !ok {
		http.NotFound(w, r)
		return nil, nil, false
	}
	q, err := h.store.GetQuestion(ctx, id)
	if err != nil {
		serverError(w, r, "failed to get question", err)
		return nil, nil, false
	}
	if q == nil {
		http.NotFound(w, r)
		return nil, nil, false
	}
	e, err := h.store.GetExam(ctx, q.ExamID)
	if err != nil || e == nil {
		serverError(w, r, "failed to get exam", err)
		return nil, nil, false
	}
	allowed, err := h.canManage(ctx, model.UserFromContext(ctx), e.CourseID)
	if err != nil {
		serverError(w, r, "failed to check course ownership", err)
		return nil, nil, false
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, nil, false
	}
	return q, e, true
}

func (h *Handler) handleEditQuestionPage(w http.ResponseWriter, r *http.Request) {
	q, _, ok := h.managedQuestion(w, r)
	if !ok {
		return
	}
	renderPage(w, r, http.StatusOK, views.QuestionEditPage(*q, formFromQuestion(*q), nil))
}

func (h *Handler) handleEditQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, e, ok := h.managedQuestion(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in, form := questionInput(r)
	err := h.exams.UpdateQuestion(ctx, q.ID, in)
	if msgs, ok := validationMessages(ctx, err); ok {
		renderPage(w, r, http.StatusUnprocessableEntity, views.QuestionEditPage(*q, form, msgs))
		return
	}
	if err != nil {
		serverError(w, r, "failed to update question", err)
		return
	}
	h.redirect(w, r, views.QuestionsPath(e.CourseID, e.ID))
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	q, e, ok := h.managedQuestion(w, r)
	if !ok {
		return
	}
	if err := h.exams.DeleteQuestion(r.Context(), q.ID); err != nil && !errors.Is(err, exam.ErrNotFound) {
		serverError(w, r, "failed to delete question", err)
		return
	}
	h.redirect(w, r, views.QuestionsPath(e.CourseID, e.ID))
}

func (h *Handler) handleExamAnalytics(w http.ResponseWriter, r *http.Request) {
	_, e, ok := h.courseExam(w, r)
	if !ok {
		return
	}
	rep, err := analytics.ExamReportFor(r.Context(), h.store, e.ID)
	if err != nil {
		serverError(w, r, "failed to build exam report", err)
		return
	}
	if rep == nil {
		http.NotFound(w, r)
		return
	}
	renderPage(w, r, http.StatusOK, views.ExamAnalyticsPage(rep))
}

// reportYear resolves the ?year= parameter: "all" is every year, an ID
// selects one, and no value means the current year.
func (h *Handler) reportYear(ctx context.Context, v string) (int64, error) {
	switch v {
	case "all":
		return 0, nil
	case "":
		y, err := h.store.CurrentAcademicYear(ctx)
		if err != nil || y == nil {
			return 0, err
		}
		return y.ID, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return id, nil
}

func (h *Handler) handleCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course := courseFromContext(ctx)
	yearID, err := h.reportYear(ctx, r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rep, err := analytics.CourseReportFor(ctx, h.store, course.ID, yearID)
	if err != nil {
		serverError(w, r, "failed to build course report", err)
		return
	}
	years, err := h.store.ListAcademicYears(ctx)
	if err != nil {
		serverError(w, r, "failed to list years", err)
		return
	}
	admin := model.UserFromContext(ctx).IsAdmin()
	renderPage(w, r, http.StatusOK, views.CourseAnalyticsPage(*course, years, rep, admin, h.popFlash(w, r)))
}
