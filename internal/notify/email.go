package notify

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

// emailBody renders a minimal HTML email with a message and one link.
func emailBody(heading, message, linkText, href string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<!doctype html><html><body style="font-family:sans-serif">`+
				`<h2>`+templ.EscapeString(heading)+`</h2>`+
				`<p>`+templ.EscapeString(message)+`</p>`+
				`<p><a href="`+templ.EscapeString(href)+`">`+templ.EscapeString(linkText)+`</a></p>`+
				`</body></html>`)
		return err
	})
}

func renderHTML(ctx context.Context, c templ.Component) string {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return ""
	}
	return buf.String()
}
