package views

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
)

// FilePath is where uploaded course files are served from.
func FilePath(key string) string { return "/files/" + key }

// safeURL drops anything that is not an http(s) link.
func safeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return templ.EscapeString(u.String())
}

// RenderContent renders one content item according to its kind.
func RenderContent(item model.ContentItem) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		b.raw(`<article class="content content-`, templ.EscapeString(string(item.Kind)), `"><h3>`)
		b.text(item.Title)
		b.raw(`</h3>`)
		switch item.Kind {
		case model.ContentText:
			b.raw(`<div class="text">`)
			b.text(item.Body)
			b.raw(`</div>`)
		case model.ContentVideo:
			if src := safeURL(item.URL); src != "" {
				b.raw(`<video controls preload="metadata" src="`, src, `"></video><p><a href="`, src, `">`, t(ctx, "OpenVideo"), `</a></p>`)
			}
		case model.ContentImage:
			if item.FileKey != "" {
				b.raw(`<img src="`, attr(ctx, FilePath(item.FileKey)), `" alt="`, templ.EscapeString(item.Title), `">`)
			} else if src := safeURL(item.URL); src != "" {
				b.raw(`<img src="`, src, `" alt="`, templ.EscapeString(item.Title), `">`)
			}
		case model.ContentFile:
			if item.FileKey != "" {
				b.raw(`<a href="`, attr(ctx, FilePath(item.FileKey)), `" download>`, t(ctx, "Download"), `</a>`)
			}
		case model.ContentExercise:
			b.raw(`<div class="exercise"><p><strong>`, t(ctx, "Exercise"), `</strong></p>`)
			b.text(item.Body)
			b.raw(`</div>`)
		}
		b.raw(`</article>`)
		return nil
	})
}

// ModulePage renders a module's content items in order.
func ModulePage(course model.Course, m model.Module, items []model.ContentItem) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			b.raw(`<p><a href="`, attr(ctx, notify.CoursePath(course.ID)), `">`)
			b.text(course.Title)
			b.raw(`</a></p>`)
			if m.Description != "" {
				b.raw(`<p>`)
				b.text(m.Description)
				b.raw(`</p>`)
			}
			for _, it := range items {
				if err := render(ctx, b, RenderContent(it)); err != nil {
					return err
				}
			}
			return nil
		})
		return render(ctx, b, Layout(m.Title, body))
	})
}
