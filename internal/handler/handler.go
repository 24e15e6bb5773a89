// Package handler serves the academy's HTML pages and JSON API.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/cursor"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/handler/views"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
	"github.com/pavelanni/academy/internal/store"
)

// Deps are the services the handlers call into. Suggester and Blobs may be
// nil.
type Deps struct {
	Store      *store.Store
	Exams      *exam.Service
	Completion *completion.Engine
	Notifier   *notify.Dispatcher
	Cursors    *cursor.Codec
	Blobs      blob.Store
	Suggester  exam.Suggester
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	exams      *exam.Service
	completion *completion.Engine
	notifier   *notify.Dispatcher
	cursors    *cursor.Codec
	blobs      blob.Store
	suggester  exam.Suggester
	config     model.AppConfig
}

// New creates a new Handler.
func New(d Deps, cfg model.AppConfig) (*Handler, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("handler: store is required")
	case d.Exams == nil:
		return nil, errors.New("handler: exam service is required")
	case d.Completion == nil:
		return nil, errors.New("handler: completion engine is required")
	case d.Notifier == nil:
		return nil, errors.New("handler: notifier is required")
	case d.Cursors == nil:
		return nil, errors.New("handler: cursor codec is required")
	}
	return &Handler{
		store:      d.Store,
		exams:      d.Exams,
		completion: d.Completion,
		notifier:   d.Notifier,
		cursors:    d.Cursors,
		blobs:      d.Blobs,
		suggester:  d.Suggester,
		config:     cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(appI18n.Middleware())

	r.Route("/api", h.apiRoutes)

	r.Group(func(r chi.Router) {
		r.Use(limitBody(maxUploadSize))
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Post("/lang", h.handleSetLang)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Use(h.unreadMiddleware)

			r.Get("/", h.handleHome)
			r.Post("/logout", h.handleLogout)

			r.Get("/courses/{courseID}/exams", h.handleExamList)
			r.Get("/courses/{courseID}/exams/{examID}/take", h.handleTakePage)
			r.Post("/courses/{courseID}/exams/{examID}/take", h.handleTake)
			r.Get("/courses/{courseID}/exams/{examID}/results/{attemptID}", h.handleResults)
			r.Get("/courses/{courseID}/modules/{moduleID}", h.handleModule)
			r.Get("/certificates/{completionID}", h.handleCertificate)
			r.Get("/files/*", h.handleContentFile)

			r.Get("/notifications", h.handleNotifications)
			r.Post("/notifications/read-all", h.handleMarkAllRead)
			r.Post("/notifications/{notificationID}/read", h.handleMarkRead)

			r.Route("/manage", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleInstructor, model.UserRoleAdmin))
				r.Route("/courses/{courseID}", func(r chi.Router) {
					r.Use(h.requireCourseManager)
					r.Get("/", h.handleManageCourse)
					r.Get("/analytics", h.handleCourseAnalytics)
					r.Get("/exams/{examID}/attempts", h.handleGradingConsole)
					r.Get("/exams/{examID}/questions", h.handleQuestions)
					r.Post("/exams/{examID}/questions", h.handleCreateQuestion)
					r.Get("/exams/{examID}/analytics", h.handleExamAnalytics)
				})
				r.Get("/attempts/{attemptID}/grade", h.handleGradePage)
				r.Post("/attempts/{attemptID}/grade", h.handleGrade)
				r.Post("/attempts/{attemptID}/suggest", h.handleSuggest)
				r.Get("/attempts/{attemptID}/answers/{answerID}/file", h.handleAnswerFile)
				r.Get("/questions/{questionID}/edit", h.handleEditQuestionPage)
				r.Post("/questions/{questionID}/edit", h.handleEditQuestion)
				r.Post("/questions/{questionID}/delete", h.handleDeleteQuestion)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(model.UserRoleAdmin))
				r.Get("/users", h.handleAdminUsersPage)
				r.Post("/users", h.handleCreateUser)
				r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
				r.Get("/import", h.handleImportPage)
				r.Post("/import", h.handleImport)
				r.Post("/enrollments/{enrollmentID}/complete", h.handleMarkCompleted)
				r.Post("/completions/{completionID}/revoke", h.handleRevokeCompletion)
			})
		})
	})
}

// BasePathMiddleware stores the configured mount path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, p string) {
	http.Redirect(w, r, h.path(p), http.StatusSeeOther)
}

func (h *Handler) unreadMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		user := model.UserFromContext(r.Context())
		n, err := h.store.UnreadNotificationCount(r.Context(), user.ID)
		if err != nil {
			slog.Warn("failed to count notifications", "user_id", user.ID, "error", err)
		}
		next.ServeHTTP(w, r.WithContext(views.WithUnread(r.Context(), n)))
	})
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
	}
}

func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

const flashCookieName = "flash"

// setFlash stores an i18n message ID to show on the next page.
func (h *Handler) setFlash(w http.ResponseWriter, msgID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msgID),
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the translated pending message and clears it.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	id, err := url.QueryUnescape(c.Value)
	if err != nil || strings.TrimSpace(id) == "" {
		return ""
	}
	return appI18n.T(r.Context(), id)
}

type courseCtxKey struct{}

func courseFromContext(ctx context.Context) *model.Course {
	c, _ := ctx.Value(courseCtxKey{}).(*model.Course)
	return c
}

// canManage reports whether the user may manage a course: admins always,
// instructors only for courses they own.
func (h *Handler) canManage(ctx context.Context, u *model.User, courseID int64) (bool, error) {
	switch {
	case u == nil:
		return false, nil
	case u.IsAdmin():
		return true, nil
	case u.Role != model.UserRoleInstructor:
		return false, nil
	}
	return h.store.IsCourseOwner(ctx, courseID, u.ID)
}

// requireCourseManager loads the {courseID} course and rejects users who
// may not manage it.
func (h *Handler) requireCourseManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(r, "courseID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		course, err := h.store.GetCourse(r.Context(), courseID)
		if err != nil {
			serverError(w, r, "failed to get course", err)
			return
		}
		if course == nil {
			http.NotFound(w, r)
			return
		}
		allowed, err := h.canManage(r.Context(), model.UserFromContext(r.Context()), course.ID)
		if err != nil {
			serverError(w, r, "failed to check course ownership", err)
			return
		}
		if !allowed {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), courseCtxKey{}, course)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// courseExam loads {examID} and checks it belongs to the context course.
func (h *Handler) courseExam(w http.ResponseWriter, r *http.Request) (*model.Course, *model.Exam, bool) {
	course := courseFromContext(r.Context())
	examID, ok := idParam(r, "examID")
	if !ok || course == nil {
		http.NotFound(w, r)
		return nil, nil, false
	}
	e, err := h.store.GetExam(r.Context(), examID)
	if err != nil {
		serverError(w, r, "failed to get exam", err)
		return nil, nil, false
	}
	if e == nil || e.CourseID != course.ID {
		http.NotFound(w, r)
		return nil, nil, false
	}
	return course, e, true
}

// dispatchExamGraded sends the grading and completion notifications after
// an exam became fully graded. Failures are logged; the grade is kept.
func (h *Handler) dispatchExamGraded(ctx context.Context, examID int64) {
	if _, err := h.notifier.ExamGraded(ctx, examID); err != nil {
		slog.Error("exam graded notifications failed", "exam_id", examID, "error", err)
	}
}
