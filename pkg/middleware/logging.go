package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/orgcascade/pkg/composables"
	"github.com/iota-uz/orgcascade/pkg/httpapi"
	"github.com/iota-uz/orgcascade/pkg/routing"
)

type LoggerOptions struct {
	// RequestIDHeader is read for an incoming request id; a fresh uuid is
	// used when it is absent.
	RequestIDHeader string
	// Routes answers recovered panics on API routes with a JSON error
	// envelope.
	Routes  *routing.Classifier
	Repanic bool
}

func DefaultLoggerOptions() LoggerOptions {
	rules, err := routing.LoadAllowlist("", "server")
	if err != nil {
		rules = nil
	}
	return LoggerOptions{
		RequestIDHeader: "X-Request-ID",
		Routes:          routing.NewClassifier(rules),
	}
}

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Status returns the HTTP status code
func (w *responseCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	if !w.statusWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func getRequestID(r *http.Request, header string) string {
	if header != "" && len(r.Header.Get(header)) > 0 {
		return r.Header.Get(header)
	}
	return uuid.New().String()
}

var tracer = otel.Tracer("orgcascade-middleware")

func isAPIPath(path string, routes *routing.Classifier) bool {
	if routes == nil {
		return false
	}
	return routes.ClassifyPath(path).IsAPI()
}

// WithLogger logs the start and end of every request with a request id,
// opens a trace span for it and turns handler panics into 500 responses.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				requestID := getRequestID(r, opts.RequestIDHeader)

				fields := logrus.Fields{
					"request-id": requestID,
					"path":       r.RequestURI,
					"method":     r.Method,
				}
				if opts.Routes != nil {
					fields["route-class"] = string(opts.Routes.ClassifyRequest(r))
				}
				fieldsLogger := logger.WithFields(fields)
				fieldsLogger.WithFields(logrus.Fields{
					"host":       r.Host,
					"ip":         r.RemoteAddr,
					"user-agent": r.UserAgent(),
				}).Info("request started")

				propagator := propagation.TraceContext{}
				ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
				ctx, span := tracer.Start(
					ctx,
					"http.request",
					trace.WithAttributes(
						attribute.String("http.method", r.Method),
						attribute.String("http.route", r.URL.Path),
						attribute.String("http.request_id", requestID),
					),
				)
				defer span.End()

				if spanContext := span.SpanContext(); spanContext.HasTraceID() {
					w.Header().Set("X-Trace-Id", spanContext.TraceID().String())
					fieldsLogger = fieldsLogger.WithField("trace-id", spanContext.TraceID().String())
				}
				w.Header().Set("X-Request-Id", requestID)

				ctx = composables.WithLogger(ctx, fieldsLogger)
				ctx = composables.WithRequestID(ctx, requestID)

				wrappedWriter := &responseCaptureWriter{ResponseWriter: w}

				defer func() {
					recovered := recover()
					if recovered == nil {
						return
					}
					fieldsLogger.WithFields(logrus.Fields{
						"panic":    recovered,
						"stack":    string(debug.Stack()),
						"duration": time.Since(start),
					}).Error("panic recovered in request handler")

					if !wrappedWriter.statusWritten {
						if isAPIPath(r.URL.Path, opts.Routes) {
							_ = httpapi.WriteAPIError(wrappedWriter, requestID,
								httpapi.NewError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error"))
						} else {
							http.Error(wrappedWriter, "Internal Server Error", http.StatusInternalServerError)
						}
					}
					if opts.Repanic {
						panic(recovered)
					}
				}()

				next.ServeHTTP(wrappedWriter, r.WithContext(ctx))

				statusCode := wrappedWriter.Status()
				duration := time.Since(start)
				fieldsLogger.WithFields(logrus.Fields{
					"duration":     duration,
					"completed":    true,
					"status-code":  statusCode,
					"status-class": statusCode / 100,
				}).Info("request completed")

				span.SetAttributes(
					attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
					attribute.Int("http.status_code", statusCode),
				)
			},
		)
	}
}
