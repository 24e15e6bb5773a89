// Package views renders the HTML pages of the academy.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// buf accumulates markup. text escapes, raw does not.
type buf struct {
	strings.Builder
}

func (b *buf) raw(parts ...string) {
	for _, p := range parts {
		b.WriteString(p)
	}
}

func (b *buf) text(s string) { b.WriteString(templ.EscapeString(s)) }

func (b *buf) rawf(format string, args ...any) { fmt.Fprintf(b, format, args...) }

// component wraps a render function producing markup into a buf.
func component(fn func(ctx context.Context, b *buf) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b buf
		if err := fn(ctx, &b); err != nil {
			return err
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func render(ctx context.Context, b *buf, c templ.Component) error {
	return c.Render(ctx, b)
}

type unreadCtxKey struct{}

// WithUnread stores the user's unread notification count for the layout.
func WithUnread(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, unreadCtxKey{}, n)
}

func unreadFrom(ctx context.Context) int {
	n, _ := ctx.Value(unreadCtxKey{}).(int)
	return n
}

// Path prefixes p with the request's mount path.
func Path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func attr(ctx context.Context, p string) string {
	return templ.EscapeString(Path(ctx, p))
}

func t(ctx context.Context, id string) string { return templ.EscapeString(i18n.T(ctx, id)) }

func csrfField(ctx context.Context) string {
	return `<input type="hidden" name="csrf_token" value="` + templ.EscapeString(model.CSRFTokenFromContext(ctx)) + `">`
}

// postButton renders a one-button form posting to p.
func postButton(ctx context.Context, p, label, class string) string {
	return `<form method="post" action="` + attr(ctx, p) + `" class="inline">` + csrfField(ctx) +
		`<button type="submit" class="` + class + `">` + templ.EscapeString(label) + `</button></form>`
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }

func optNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

// Flash renders a one-line message box, or nothing for an empty message.
func flash(b *buf, msg string) {
	if msg != "" {
		b.raw(`<div class="flash">`)
		b.text(msg)
		b.raw(`</div>`)
	}
}

// Layout wraps page content with the document shell and navigation.
func Layout(title string, content templ.Component) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		b.raw(`<!doctype html><html lang="`, templ.EscapeString(i18n.Lang(ctx)), `"><head><meta charset="utf-8">`)
		b.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		b.text(title)
		b.raw(` - `, t(ctx, "AppTitle"), `</title></head><body><header><nav>`)
		b.raw(`<a href="`, attr(ctx, "/"), `"><strong>`, t(ctx, "AppTitle"), `</strong></a>`)
		if u := model.UserFromContext(ctx); u != nil {
			b.raw(` <a href="`, attr(ctx, "/notifications"), `">`)
			b.text(i18n.Tp(ctx, "UnreadNotifications", unreadFrom(ctx)))
			b.raw(`</a>`)
			if u.IsAdmin() {
				b.raw(` <a href="`, attr(ctx, "/admin/users"), `">`, t(ctx, "Admin"), `</a>`)
			}
			b.raw(` <span class="user">`)
			b.text(u.Name())
			b.raw(`</span> `, postButton(ctx, "/logout", i18n.T(ctx, "Logout"), "link"))
		}
		b.raw(`</nav></header><main><h1>`)
		b.text(title)
		b.raw(`</h1>`)
		if err := render(ctx, b, content); err != nil {
			return err
		}
		b.raw(`</main></body></html>`)
		return nil
	})
}
