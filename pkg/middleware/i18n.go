package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/pkg/intl"
)

// Application is the part of the application the localizer needs.
type Application interface {
	Bundle() *i18n.Bundle
	GetSupportedLanguages() []string
}

// localeResolver picks a supported locale for a request.
type localeResolver struct {
	fallback  language.Tag
	supported []language.Tag
	matcher   language.Matcher
}

func newLocaleResolver(codes []string, fallback language.Tag) localeResolver {
	langs := intl.GetSupportedLanguages(codes)
	res := localeResolver{fallback: fallback, supported: make([]language.Tag, len(langs))}
	for i, l := range langs {
		res.supported[i] = l.Tag
	}
	if len(res.supported) > 0 {
		res.matcher = language.NewMatcher(res.supported)
	}
	return res
}

// candidates lists the request's preferences: ?lang= first, then
// Accept-Language in quality order.
func candidates(r *http.Request) []language.Tag {
	var tags []language.Tag
	if v := r.URL.Query().Get("lang"); v != "" {
		if tag, err := language.Parse(v); err == nil {
			// An explicit choice is not blended with the header.
			return []language.Tag{tag}
		}
	}
	if accepted, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil {
		tags = append(tags, accepted...)
	}
	return tags
}

func (l localeResolver) resolve(r *http.Request) language.Tag {
	if l.matcher == nil {
		return l.fallback
	}
	prefs := candidates(r)
	if len(prefs) == 0 {
		prefs = []language.Tag{l.fallback}
	}
	_, idx, conf := l.matcher.Match(prefs...)
	if conf == language.No {
		return l.fallback
	}
	return l.supported[idx]
}

// ProvideLocalizer stores the request locale and a localizer for it in the
// request context.
func ProvideLocalizer(app Application, defaultLocale language.Tag) mux.MiddlewareFunc {
	bundle := app.Bundle()
	resolver := newLocaleResolver(app.GetSupportedLanguages(), defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolver.resolve(r)
			ctx := intl.WithLocalizer(r.Context(), i18n.NewLocalizer(bundle, locale.String()))
			ctx = intl.WithLocale(ctx, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
