package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// LangCookie overrides Accept-Language when present.
const LangCookie = "lang"

// Middleware picks the best loaded language for each request from the
// lang cookie or Accept-Language header and stores its localizer in the
// request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLang(r.Context(), Negotiate(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Negotiate returns the language tag to use for r.
func Negotiate(r *http.Request) string {
	var prefs []string
	if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
		prefs = append(prefs, c.Value)
	}
	prefs = append(prefs, r.Header.Get("Accept-Language"))
	tag, _ := language.MatchStrings(matcher, prefs...)
	base, _ := tag.Base()
	return base.String()
}
