package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/cursor"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/handler/views"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
)

// maxUploadSize caps any form POST body, essay attachments included.
// formMemory is only the point where multipart file parts spill to disk.
const (
	maxUploadSize = 20 << 20
	formMemory    = 8 << 20
)

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)

	enrollments, err := h.store.ListStudentEnrollments(ctx, user.ID)
	if err != nil {
		serverError(w, r, "failed to list enrollments", err)
		return
	}
	var entries []views.CourseEntry
	for _, e := range enrollments {
		course, err := h.store.GetCourse(ctx, e.CourseID)
		if err != nil || course == nil {
			serverError(w, r, "failed to get course", err)
			return
		}
		entry := views.CourseEntry{Course: *course}
		if y, err := h.store.GetAcademicYear(ctx, e.AcademicYearID); err == nil && y != nil {
			entry.Year = y.Name
		}
		if entry.Completion, err = h.store.GetEnrollmentCompletion(ctx, e.ID); err != nil {
			serverError(w, r, "failed to get completion", err)
			return
		}
		entries = append(entries, entry)
	}

	var managed []model.Course
	switch user.Role {
	case model.UserRoleAdmin:
		managed, err = h.store.ListCourses(ctx)
	case model.UserRoleInstructor:
		managed, err = h.store.ListOwnedCourses(ctx, user.ID)
	}
	if err != nil {
		serverError(w, r, "failed to list managed courses", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.HomePage(entries, managed, h.popFlash(w, r)))
}

// studentEnrollment returns the user's enrollment in a course, preferring
// the current academic year and otherwise the most recent one.
func (h *Handler) studentEnrollment(ctx context.Context, userID, courseID int64) (*model.Enrollment, error) {
	if y, err := h.store.CurrentAcademicYear(ctx); err != nil {
		return nil, err
	} else if y != nil {
		e, err := h.store.FindEnrollment(ctx, userID, courseID, y.ID)
		if err != nil || e != nil {
			return e, err
		}
	}
	all, err := h.store.ListStudentEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.CourseID == courseID {
			return &e, nil
		}
	}
	return nil, nil
}

func (h *Handler) handleExamList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	courseID, ok := idParam(r, "courseID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	course, err := h.store.GetCourse(ctx, courseID)
	if err != nil {
		serverError(w, r, "failed to get course", err)
		return
	}
	if course == nil {
		http.NotFound(w, r)
		return
	}
	enr, err := h.studentEnrollment(ctx, user.ID, courseID)
	if err != nil {
		serverError(w, r, "failed to find enrollment", err)
		return
	}
	if enr == nil {
		if ok, _ := h.canManage(ctx, user, courseID); ok {
			h.redirect(w, r, fmt.Sprintf("/manage/courses/%d", courseID))
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	items, err := h.exams.ListForStudent(ctx, enr)
	if err != nil {
		serverError(w, r, "failed to list exams", err)
		return
	}
	modules, err := h.store.ListCourseModules(ctx, courseID)
	if err != nil {
		serverError(w, r, "failed to list modules", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.ExamListPage(*course, items, modules, h.popFlash(w, r)))
}

func (h *Handler) readCursor(r *http.Request, userID, examID int64) exam.Cursor {
	c, err := r.Cookie(cursor.CookieName(examID))
	if err != nil || c.Value == "" {
		return exam.Cursor{}
	}
	cur, err := h.cursors.Decode(c.Value, userID, examID)
	if err != nil {
		slog.Debug("ignoring cursor cookie", "exam_id", examID, "error", err)
		return exam.Cursor{}
	}
	return cur
}

func (h *Handler) writeCursor(w http.ResponseWriter, userID, examID int64, cur exam.Cursor) {
	token, err := h.cursors.Encode(userID, examID, cur)
	if err != nil {
		slog.Error("failed to encode cursor", "exam_id", examID, "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cursor.CookieName(examID),
		Value:    token,
		Path:     h.cookiePath(),
		MaxAge:   int(h.cursors.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCursor(w http.ResponseWriter, examID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     cursor.CookieName(examID),
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

// takeTarget parses the course and exam of a take URL and checks the exam
// belongs to the course.
func (h *Handler) takeTarget(w http.ResponseWriter, r *http.Request) (courseID, examID int64, ok bool) {
	courseID, ok1 := idParam(r, "courseID")
	examID, ok2 := idParam(r, "examID")
	if !ok1 || !ok2 {
		http.NotFound(w, r)
		return 0, 0, false
	}
	e, err := h.store.GetExam(r.Context(), examID)
	if err != nil {
		serverError(w, r, "failed to get exam", err)
		return 0, 0, false
	}
	if e == nil || e.CourseID != courseID {
		h.setFlash(w, "ExamNoLongerExists")
		h.redirect(w, r, "/")
		return 0, 0, false
	}
	return courseID, examID, true
}

// takeError maps exam lifecycle errors to redirects with a flash message.
func (h *Handler) takeError(w http.ResponseWriter, r *http.Request, courseID int64, err error) {
	switch {
	case errors.Is(err, exam.ErrNotFound):
		h.setFlash(w, "ExamNoLongerExists")
		h.redirect(w, r, "/")
	case errors.Is(err, exam.ErrWindowClosed):
		h.setFlash(w, "ExamNotAvailable")
		h.redirect(w, r, notify.CoursePath(courseID))
	case errors.Is(err, exam.ErrAlreadyFinalized):
		h.setFlash(w, "ExamAlreadyCompleted")
		h.redirect(w, r, notify.CoursePath(courseID))
	case errors.Is(err, exam.ErrNotEnrolled):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		serverError(w, r, "exam action failed", err)
	}
}

func (h *Handler) handleTakePage(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	courseID, examID, ok := h.takeTarget(w, r)
	if !ok {
		return
	}
	sess, err := h.exams.Open(r.Context(), user.ID, examID, h.readCursor(r, user.ID, examID))
	if err != nil {
		h.takeError(w, r, courseID, err)
		return
	}
	h.writeCursor(w, user.ID, examID, sess.Cursor)
	renderPage(w, r, http.StatusOK, views.TakePage(courseID, sess, h.popFlash(w, r)))
}

// takeInput collects answer_<questionID> values and file_<questionID>
// uploads from a multipart POST. The returned closer releases the files.
func takeInput(r *http.Request) (map[int64]string, map[int64]exam.Upload, func(), error) {
	if err := r.ParseMultipartForm(formMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, func() {}, err
	}
	values := make(map[int64]string)
	for key, vs := range r.PostForm {
		if id, ok := fieldID(key, "answer_"); ok && len(vs) > 0 {
			values[id] = vs[0]
		}
	}
	files := make(map[int64]exam.Upload)
	var open []io.Closer
	closeAll := func() {
		for _, c := range open {
			c.Close()
		}
	}
	if r.MultipartForm != nil {
		for key, headers := range r.MultipartForm.File {
			id, ok := fieldID(key, "file_")
			if !ok || len(headers) == 0 || headers[0].Size == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				closeAll()
				return nil, nil, func() {}, err
			}
			open = append(open, f)
			files[id] = exam.Upload{Filename: headers[0].Filename, Body: f}
		}
	}
	return values, files, closeAll, nil
}

func fieldID(key, prefix string) (int64, bool) {
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
	return id, err == nil
}

func (h *Handler) handleTake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	courseID, examID, ok := h.takeTarget(w, r)
	if !ok {
		return
	}
	values, files, closeFiles, err := takeInput(r)
	defer closeFiles()
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	res, err := h.exams.Act(ctx, exam.Input{
		StudentID: user.ID,
		ExamID:    examID,
		Action:    exam.ParseAction(r.FormValue("action")),
		Cursor:    h.readCursor(r, user.ID, examID),
		Values:    values,
		Files:     files,
	})
	if errors.Is(err, exam.ErrInvalidAnswer) {
		h.renderRejectedAnswer(w, r, courseID, examID)
		return
	}
	if err != nil {
		h.takeError(w, r, courseID, err)
		return
	}

	switch {
	case res.Submitted:
		h.clearCursor(w, examID)
		if res.ExamGraded {
			h.dispatchExamGraded(ctx, examID)
		}
		h.setFlash(w, "ExamSubmitted")
		h.redirect(w, r, notify.CoursePath(courseID))
	case res.Saved:
		h.writeCursor(w, user.ID, examID, res.Session.Cursor)
		h.setFlash(w, "SaveReminder")
		h.redirect(w, r, notify.CoursePath(courseID))
	default:
		h.writeCursor(w, user.ID, examID, res.Session.Cursor)
		h.redirect(w, r, fmt.Sprintf("/courses/%d/exams/%d/take", courseID, examID))
	}
}

// renderRejectedAnswer shows the current question again with a warning.
// The cursor is left where it was.
func (h *Handler) renderRejectedAnswer(w http.ResponseWriter, r *http.Request, courseID, examID int64) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	sess, err := h.exams.Open(ctx, user.ID, examID, h.readCursor(r, user.ID, examID))
	if err != nil {
		h.takeError(w, r, courseID, err)
		return
	}
	renderPage(w, r, http.StatusUnprocessableEntity, views.TakePage(courseID, sess, appI18n.T(ctx, "AnswerRejected")))
}

// canView reports whether the user may see an attempt: its student, or a
// manager of its course.
func (h *Handler) canView(ctx context.Context, u *model.User, v *model.AttemptView) (bool, error) {
	if v.Student.ID == u.ID {
		return true, nil
	}
	return h.canManage(ctx, u, v.Exam.CourseID)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID, ok1 := idParam(r, "courseID")
	examID, ok2 := idParam(r, "examID")
	attemptID, ok3 := idParam(r, "attemptID")
	if !ok1 || !ok2 || !ok3 {
		http.NotFound(w, r)
		return
	}
	v, err := h.exams.Results(ctx, attemptID)
	if errors.Is(err, exam.ErrNotFound) || (err == nil && (v.Exam.ID != examID || v.Exam.CourseID != courseID)) {
		http.NotFound(w, r)
		return
	}
	if errors.Is(err, exam.ErrNotFinalized) {
		h.redirect(w, r, fmt.Sprintf("/courses/%d/exams/%d/take", courseID, examID))
		return
	}
	if err != nil {
		serverError(w, r, "failed to load results", err)
		return
	}
	allowed, err := h.canView(ctx, model.UserFromContext(ctx), v)
	if err != nil {
		serverError(w, r, "failed to check access", err)
		return
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	renderPage(w, r, http.StatusOK, views.ResultsPage(v))
}

func (h *Handler) handleCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	id, ok := idParam(r, "completionID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := h.store.GetCompletion(ctx, id)
	if err != nil {
		serverError(w, r, "failed to get completion", err)
		return
	}
	if c == nil || !c.CertificateIssued {
		http.NotFound(w, r)
		return
	}
	enr, err := h.store.GetEnrollment(ctx, c.EnrollmentID)
	if err != nil || enr == nil {
		serverError(w, r, "failed to get enrollment", err)
		return
	}
	if enr.StudentID != user.ID {
		if ok, err := h.canManage(ctx, user, enr.CourseID); err != nil || !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	course, err := h.store.GetCourse(ctx, enr.CourseID)
	if err != nil || course == nil {
		serverError(w, r, "failed to get course", err)
		return
	}
	student, err := h.store.GetUserByID(ctx, enr.StudentID)
	if err != nil || student == nil {
		serverError(w, r, "failed to get student", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.CertificatePage(*c, *course, *student))
}

func (h *Handler) handleModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	courseID, ok1 := idParam(r, "courseID")
	moduleID, ok2 := idParam(r, "moduleID")
	if !ok1 || !ok2 {
		http.NotFound(w, r)
		return
	}
	m, err := h.store.GetModule(ctx, moduleID)
	if err != nil {
		serverError(w, r, "failed to get module", err)
		return
	}
	if m == nil || m.CourseID != courseID {
		http.NotFound(w, r)
		return
	}
	enr, err := h.studentEnrollment(ctx, user.ID, courseID)
	if err != nil {
		serverError(w, r, "failed to find enrollment", err)
		return
	}
	if enr == nil {
		if ok, err := h.canManage(ctx, user, courseID); err != nil || !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	course, err := h.store.GetCourse(ctx, courseID)
	if err != nil || course == nil {
		serverError(w, r, "failed to get course", err)
		return
	}
	items, err := h.store.ListModuleContents(ctx, moduleID)
	if err != nil {
		serverError(w, r, "failed to list contents", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.ModulePage(*course, *m, items))
}

// contentPrefix is the blob namespace of course files. Exam answers live
// elsewhere and are only served through the grading routes.
const contentPrefix = "content/"

func (h *Handler) handleContentFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if h.blobs == nil || !strings.HasPrefix(key, contentPrefix) {
		http.NotFound(w, r)
		return
	}
	h.serveBlob(w, r, key)
}

func (h *Handler) serveBlob(w http.ResponseWriter, r *http.Request, key string) {
	rc, err := h.blobs.Get(key)
	if errors.Is(err, blob.ErrInvalidKey) || errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, "failed to open file", err)
		return
	}
	defer rc.Close()
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("failed to stream file", "key", key, "error", err)
	}
}
