package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgcascade/modules/org/domain/events"
	"github.com/iota-uz/orgcascade/pkg/application"
)

var orgSelectionDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "org",
	Subsystem: "selection",
	Name:      "degraded_total",
	Help:      "Total number of selections narrowed to a valid prefix, by mode and trigger.",
}, []string{"mode", "trigger"})

type SelectionEventsHandler struct {
	log *logrus.Entry
}

func RegisterSelectionEventHandlers(app application.Application) *SelectionEventsHandler {
	handler := &SelectionEventsHandler{
		log: app.Logger().WithField("component", "org-selection-events"),
	}
	app.EventPublisher().Subscribe(handler.onSelectionChangedV1)
	return handler
}

func (h *SelectionEventsHandler) onSelectionChangedV1(ev events.SelectionChangedV1) {
	if h == nil || !ev.Degraded {
		return
	}
	orgSelectionDegraded.WithLabelValues(ev.Mode, ev.Trigger).Inc()
	h.log.WithFields(logrus.Fields{
		"event_id":  ev.EventID.String(),
		"mode":      ev.Mode,
		"trigger":   ev.Trigger,
		"requested": ev.Requested,
		"current":   ev.Current,
	}).Debug("org selection degraded")
}
