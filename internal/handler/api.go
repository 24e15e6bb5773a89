package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pavelanni/academy/internal/analytics"
	"github.com/pavelanni/academy/internal/model"
)

// apiRoutes registers the read-only JSON API. It shares the session cookie
// with the HTML pages and answers 401 instead of redirecting to the login.
func (h *Handler) apiRoutes(r chi.Router) {
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(h.requireAPIAuth)
	r.Get("/notifications", h.apiNotifications)
	r.Get("/courses/{courseID}/analytics", h.apiCourseAnalytics)
	r.Get("/courses/{courseID}/exams/{examID}/analytics", h.apiExamAnalytics)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.authenticate(r)
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

type notificationFeed struct {
	Unread int                  `json:"unread"`
	Items  []model.Notification `json:"items"`
}

func (h *Handler) apiNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	unread, err := h.store.UnreadNotificationCount(ctx, user.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	items, err := h.store.ListNotifications(ctx, user.ID, notificationPageSize)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationFeed{Unread: unread, Items: items})
}

// apiCourse resolves {courseID} for a user allowed to manage it, writing
// the error response otherwise.
func (h *Handler) apiCourse(ctx context.Context, w http.ResponseWriter, r *http.Request) (*model.Course, bool) {
	courseID, ok := idParam(r, "courseID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	course, err := h.store.GetCourse(ctx, courseID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if course == nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	allowed, err := h.canManage(ctx, model.UserFromContext(ctx), course.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if !allowed {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return course, true
}

func (h *Handler) apiCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, ok := h.apiCourse(ctx, w, r)
	if !ok {
		return
	}
	yearID, err := h.reportYear(ctx, r.URL.Query().Get("year"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := analytics.CourseReportFor(ctx, h.store, course.ID, yearID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) apiExamAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, ok := h.apiCourse(ctx, w, r)
	if !ok {
		return
	}
	examID, ok := idParam(r, "examID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	e, err := h.store.GetExam(ctx, examID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if e == nil || e.CourseID != course.ID {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	rep, err := analytics.ExamReportFor(ctx, h.store, e.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
