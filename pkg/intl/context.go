package intl

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var ErrNoLocalizer = errors.New("localizer not found")

type contextKey string

const (
	localizerKey contextKey = "localizer"
	localeKey    contextKey = "locale"
)

func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey, l)
}

func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	l, ok := ctx.Value(localizerKey).(*i18n.Localizer)
	return l, ok && l != nil
}

func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey, tag)
}

// UseLocale returns the request locale, or fallback when none was set.
func UseLocale(ctx context.Context, fallback language.Tag) language.Tag {
	if tag, ok := ctx.Value(localeKey).(language.Tag); ok {
		return tag
	}
	return fallback
}

// Localize translates id, returning fallback when the message is missing.
func Localize(l *i18n.Localizer, id, fallback string) string {
	if l == nil {
		return fallback
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}

// NewBundle returns a bundle with JSON message files registered and
// English as the fallback language.
func NewBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	return bundle
}
