package views

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// AdminUsersPage lists users with a create form.
func AdminUsersPage(users []model.User, msg string) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			flash(b, msg)
			b.raw(`<table><tbody>`)
			for _, u := range users {
				b.raw(`<tr><td>`)
				b.text(u.Username)
				b.raw(`</td><td>`)
				b.text(u.Name())
				b.raw(`</td><td>`, t(ctx, "Role_"+string(u.Role)), `</td><td>`)
				label := "Deactivate"
				if !u.Active {
					label = "Activate"
				}
				b.raw(postButton(ctx, fmt.Sprintf("/admin/users/%d/toggle", u.ID), i18n.T(ctx, label), "link"))
				b.raw(`</td></tr>`)
			}
			b.raw(`</tbody></table><p><a href="`, attr(ctx, "/admin/import"), `">`, t(ctx, "ImportCourse"), `</a></p>`)
			b.raw(`<h2>`, t(ctx, "CreateUser"), `</h2>`)
			b.raw(`<form method="post" action="`, attr(ctx, "/admin/users"), `">`, csrfField(ctx))
			b.raw(`<label>`, t(ctx, "Username"), ` <input name="username" required></label>`)
			b.raw(`<label>`, t(ctx, "DisplayName"), ` <input name="display_name"></label>`)
			b.raw(`<label>`, t(ctx, "Email"), ` <input type="email" name="email"></label>`)
			b.raw(`<label>`, t(ctx, "Password"), ` <input type="password" name="password" required></label>`)
			b.raw(`<label>`, t(ctx, "Role"), ` <select name="role">`)
			for _, r := range []model.UserRole{model.UserRoleStudent, model.UserRoleInstructor, model.UserRoleAdmin} {
				b.raw(`<option value="`, string(r), `">`, t(ctx, "Role_"+string(r)), `</option>`)
			}
			b.raw(`</select></label><button type="submit">`, t(ctx, "CreateUser"), `</button></form>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "Users"), body))
	})
}

// AdminImportPage uploads a course bundle. isErr styles msg as a failure.
func AdminImportPage(msg string, isErr bool) templ.Component {
	return component(func(ctx context.Context, b *buf) error {
		body := component(func(ctx context.Context, b *buf) error {
			if isErr && msg != "" {
				b.raw(`<div class="error">`)
				b.text(msg)
				b.raw(`</div>`)
			} else {
				flash(b, msg)
			}
			b.raw(`<p>`, t(ctx, "ImportHelp"), `</p>`)
			b.raw(`<form method="post" enctype="multipart/form-data" action="`, attr(ctx, "/admin/import"), `">`, csrfField(ctx))
			b.raw(`<input type="file" name="bundle" accept=".json,application/json" required>`)
			b.raw(`<button type="submit">`, t(ctx, "Import"), `</button></form>`)
			return nil
		})
		return render(ctx, b, Layout(i18n.T(ctx, "ImportCourse"), body))
	})
}
