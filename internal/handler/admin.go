package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/handler/views"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/importer"
	"github.com/pavelanni/academy/internal/model"
)

const maxImportSize = 10 << 20

var validate = validator.New()

func (h *Handler) handleAdminUsersPage(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		serverError(w, r, "failed to list users", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.AdminUsersPage(users, h.popFlash(w, r)))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	role := model.UserRole(r.FormValue("role"))

	if username == "" || password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}
	switch role {
	case model.UserRoleStudent, model.UserRoleInstructor, model.UserRoleAdmin:
	case "":
		role = model.UserRoleStudent
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	if err := validate.Var(email, "omitempty,email"); err != nil {
		http.Error(w, "invalid email address", http.StatusBadRequest)
		return
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, r, "failed to hash password", err)
		return
	}
	id, err := h.store.CreateUser(r.Context(), model.User{
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		serverError(w, r, "failed to create user", err)
		return
	}
	slog.Info("user created", "id", id, "username", username, "role", role)
	h.redirect(w, r, "/admin/users")
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	if id == model.UserFromContext(r.Context()).ID {
		http.Error(w, "cannot deactivate yourself", http.StatusBadRequest)
		return
	}
	if err := h.store.ToggleUserActive(r.Context(), id); err != nil {
		serverError(w, r, "failed to toggle user active", err)
		return
	}
	h.redirect(w, r, "/admin/users")
}

func (h *Handler) handleImportPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, views.AdminImportPage(h.popFlash(w, r), false))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	file, header, err := r.FormFile("bundle")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if header.Size > maxImportSize {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		serverError(w, r, "failed to read upload", err)
		return
	}

	res, err := importer.Import(ctx, h.store, header.Filename, data)
	switch {
	case errors.Is(err, importer.ErrDuplicate):
		renderPage(w, r, http.StatusOK, views.AdminImportPage(appI18n.T(ctx, "UploadDuplicate"), true))
		return
	case errors.Is(err, importer.ErrChanged):
		renderPage(w, r, http.StatusConflict, views.AdminImportPage(appI18n.T(ctx, "UploadChanged"), true))
		return
	case err != nil:
		slog.Warn("course import failed", "filename", header.Filename, "error", err)
		renderPage(w, r, http.StatusBadRequest, views.AdminImportPage(err.Error(), true))
		return
	}
	msg := appI18n.Td(ctx, "UploadSuccess", map[string]any{"Exams": res.Exams, "Questions": res.Questions})
	renderPage(w, r, http.StatusOK, views.AdminImportPage(msg, false))
}

// handleMarkCompleted is the administrator override completing an
// enrollment regardless of scores.
func (h *Handler) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := idParam(r, "enrollmentID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, newly, err := h.completion.MarkCompleted(ctx, id)
	if errors.Is(err, completion.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, "failed to mark completion", err)
		return
	}
	student, course, err := h.enrollmentParties(r, c.EnrollmentID)
	if err != nil {
		serverError(w, r, "failed to load enrollment", err)
		return
	}
	if newly {
		if err := h.notifier.CourseCompleted(ctx, student, course, c); err != nil {
			slog.Error("completion notification failed", "completion_id", c.ID, "error", err)
		}
		h.setFlash(w, "CompletionMarked")
	} else {
		h.setFlash(w, "CompletionAlreadyExists")
	}
	h.redirect(w, r, fmt.Sprintf("/manage/courses/%d/analytics", course.ID))
}

func (h *Handler) handleRevokeCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := idParam(r, "completionID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := h.completion.Revoke(ctx, id)
	if errors.Is(err, completion.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, "failed to revoke completion", err)
		return
	}
	student, course, err := h.enrollmentParties(r, c.EnrollmentID)
	if err != nil {
		serverError(w, r, "failed to load enrollment", err)
		return
	}
	if err := h.notifier.CompletionRevoked(ctx, student, course); err != nil {
		slog.Error("revocation notification failed", "enrollment_id", c.EnrollmentID, "error", err)
	}
	h.setFlash(w, "CompletionRevokedFlash")
	h.redirect(w, r, fmt.Sprintf("/manage/courses/%d/analytics", course.ID))
}

// enrollmentParties loads the student and course of an enrollment.
func (h *Handler) enrollmentParties(r *http.Request, enrollmentID int64) (*model.User, *model.Course, error) {
	ctx := r.Context()
	enr, err := h.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	if enr == nil {
		return nil, nil, fmt.Errorf("enrollment %d not found", enrollmentID)
	}
	student, err := h.store.GetUserByID(ctx, enr.StudentID)
	if err != nil {
		return nil, nil, err
	}
	course, err := h.store.GetCourse(ctx, enr.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if student == nil || course == nil {
		return nil, nil, fmt.Errorf("enrollment %d has dangling references", enrollmentID)
	}
	return student, course, nil
}
