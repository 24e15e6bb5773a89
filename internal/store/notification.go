package store

import (
	"context"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const notificationColumns = `id, user_id, message, link, is_read, created_at`

// CreateNotification stores an unread notification for a user.
func (s *Store) CreateNotification(ctx context.Context, userID int64, message, link string) (int64, error) {
	return insert(ctx, s.db,
		`INSERT INTO notifications (user_id, message, link, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		userID, message, link, false, time.Now().UTC())
}

// ListNotifications returns a user's notifications, unread first, then
// newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.Notification
	err := s.selectx(ctx, &out,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? ORDER BY is_read, created_at DESC, id DESC LIMIT ?`, userID, limit)
	return out, err
}

// UnreadNotificationCount returns how many notifications a user has not read.
func (s *Store) UnreadNotificationCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.get(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false)
	return n, err
}

// GetNotification returns a notification owned by userID, or nil.
func (s *Store) GetNotification(ctx context.Context, id, userID int64) (*model.Notification, error) {
	return getOrNil[model.Notification](ctx, s,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	_, err := s.exec(ctx,
		`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	return err
}

// MarkAllNotificationsRead marks every notification of the user as read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	_, err := s.exec(ctx,
		`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
	return err
}
