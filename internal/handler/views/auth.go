package views

import (
	"context"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/i18n"
)

// LoginPage renders the sign-in form with an optional error.
func LoginPage(errMsg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, errMsg)
			b.raw(`<form method="post" action="`, attr(ctx, "/login"), `">`, csrfField(ctx))
			b.raw(`<label>`, t(ctx, "Username"), ` <input name="username" autocomplete="username" required></label>`)
			b.raw(`<label>`, t(ctx, "Password"), ` <input type="password" name="password" autocomplete="current-password" required></label>`)
			b.raw(`<button type="submit">`, t(ctx, "Login"), `</button></form>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "Login"), body))
	})
}
