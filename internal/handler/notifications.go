package handler

import (
	"net/http"

	"github.com/pavelanni/academy/internal/handler/views"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
)

const notificationPageSize = 50

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	list, err := h.store.ListNotifications(ctx, user.ID, notificationPageSize)
	if err != nil {
		serverError(w, r, "failed to list notifications", err)
		return
	}
	renderPage(w, r, http.StatusOK, views.NotificationsPage(list, h.popFlash(w, r)))
}

// handleMarkRead marks one notification read and follows its link. Links
// to results of an exam that no longer exists fall back to the feed.
func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	id, ok := idParam(r, "notificationID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	n, err := h.store.GetNotification(ctx, id, user.ID)
	if err != nil {
		serverError(w, r, "failed to get notification", err)
		return
	}
	if n == nil {
		http.NotFound(w, r)
		return
	}
	if err := h.store.MarkNotificationRead(ctx, id, user.ID); err != nil {
		serverError(w, r, "failed to mark notification read", err)
		return
	}
	if n.Link == "" {
		h.redirect(w, r, "/notifications")
		return
	}
	if examID, ok := notify.ParseResultsLink(n.Link); ok {
		e, err := h.store.GetExam(ctx, examID)
		if err != nil {
			serverError(w, r, "failed to get exam", err)
			return
		}
		if e == nil {
			h.setFlash(w, "ExamNoLongerExists")
			h.redirect(w, r, "/notifications")
			return
		}
	}
	if completionID, ok := notify.ParseCertificateLink(n.Link); ok {
		c, err := h.store.GetCompletion(ctx, completionID)
		if err != nil {
			serverError(w, r, "failed to get completion", err)
			return
		}
		if c == nil || !c.CertificateIssued {
			h.setFlash(w, "CertificateNoLongerExists")
			h.redirect(w, r, "/notifications")
			return
		}
	}
	// Links are stored already mounted, possibly with a host.
	http.Redirect(w, r, n.Link, http.StatusSeeOther)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if err := h.store.MarkAllNotificationsRead(r.Context(), user.ID); err != nil {
		serverError(w, r, "failed to mark notifications read", err)
		return
	}
	h.redirect(w, r, "/notifications")
}
