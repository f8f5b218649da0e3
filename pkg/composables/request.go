package composables

import (
	"context"
	"net/http"

	"github.com/go-playground/form"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgcascade/pkg/logging"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request-id"
)

var decoder = form.NewDecoder()

// WithLogger returns a new context carrying the request-scoped logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// UseLogger returns the request-scoped logger, or a discarding one when the
// request did not pass through the logging middleware.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logging.Nop()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// UseRequestID returns the id assigned by the logging middleware.
func UseRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// UseQuery decodes the URL query into v using `form` struct tags.
func UseQuery[T comparable](v T, r *http.Request) (T, error) {
	return v, decoder.Decode(v, r.URL.Query())
}

// GetLastQueryParam returns the last occurrence of a query parameter.
// Forms that include their own values in the URL repeat keys, and the last
// one is the current state.
//
//	URL: /org/api/selection?site=HQ&site=Branch
//	GetLastQueryParam(r, "site") returns "Branch"
func GetLastQueryParam(r *http.Request, key string) string {
	values := r.URL.Query()[key]
	if len(values) > 0 {
		return values[len(values)-1]
	}
	return ""
}
