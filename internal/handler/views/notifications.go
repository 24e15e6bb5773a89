package views

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// NotificationsPage lists a user's notifications, unread first.
func NotificationsPage(list []model.Notification, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			if len(list) == 0 {
				b.raw(`<p>`, t(ctx, "NoNotifications"), `</p>`)
				return nil
			}
			b.raw(postButton(ctx, "/notifications/read-all", i18n.T(ctx, "MarkAllRead"), "link"), `<ul class="notifications">`)
			for _, n := range list {
				class := "read"
				if !n.IsRead {
					class = "unread"
				}
				b.raw(`<li class="`, class, `"><span>`)
				b.text(n.Message)
				b.raw(`</span> <small>`)
				b.text(n.CreatedAt.Format("2006-01-02 15:04"))
				b.raw(`</small> `, postButton(ctx, fmt.Sprintf("/notifications/%d/read", n.ID), i18n.T(ctx, "Open"), "link"), `</li>`)
			}
			b.raw(`</ul>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "Notifications"), body))
	})
}
