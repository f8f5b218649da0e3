package controllers

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orgAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Org cascade API requests by endpoint and status class.",
	}, []string{"endpoint", "result"})

	orgAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "org",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Org cascade API latency by endpoint and status class.",
		// /hierarchy and /selection may wait for the first source load.
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
	}, []string{"endpoint", "result"})

	orgAPIInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "org",
		Subsystem: "api",
		Name:      "in_flight",
		Help:      "Org cascade API requests currently being served.",
	}, []string{"endpoint"})
)

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.written {
		return
	}
	w.status = status
	w.written = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// instrumentAPI records count, latency and concurrency for one endpoint.
// endpoint is a fixed label, never the raw path or query.
func (c *OrgAPIController) instrumentAPI(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	inFlight := orgAPIInFlight.WithLabelValues(endpoint)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inFlight.Inc()
		defer inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		result := statusClass(rec.status)
		orgAPIRequests.WithLabelValues(endpoint, result).Inc()
		orgAPILatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}
