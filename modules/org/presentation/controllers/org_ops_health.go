package controllers

import (
	"net/http"
	"time"

	"github.com/iota-uz/orgcascade/modules/org/services"
)

type orgHealthStatus string

const (
	orgHealthStatusHealthy  orgHealthStatus = "healthy"
	orgHealthStatusDegraded orgHealthStatus = "degraded"
	orgHealthStatusDown     orgHealthStatus = "down"
)

type orgHealthResponse struct {
	Status    orgHealthStatus `json:"status"`
	Timestamp string          `json:"timestamp"`
	Checks    map[string]any  `json:"checks"`
}

type orgComponentHealth struct {
	Status  orgHealthStatus `json:"status"`
	Error   string          `json:"error,omitempty"`
	Details map[string]any  `json:"details,omitempty"`
}

// GetOpsHealth reports the hierarchy store state. It never triggers a load.
func (c *OrgAPIController) GetOpsHealth(w http.ResponseWriter, r *http.Request) {
	response := c.performOrgOpsHealthChecks()

	status := http.StatusOK
	if response.Status == orgHealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (c *OrgAPIController) performOrgOpsHealthChecks() orgHealthResponse {
	checks := make(map[string]any)
	overall := orgHealthStatusHealthy

	store := c.checkHierarchyStore()
	checks["hierarchy"] = store
	overall = mergeOrgHealthStatus(overall, store.Status)

	checks["events"] = orgComponentHealth{
		Status: orgHealthStatusHealthy,
		Details: map[string]any{
			"subscribers": c.app.EventPublisher().SubscribersCount(),
		},
	}

	return orgHealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

func mergeOrgHealthStatus(current, next orgHealthStatus) orgHealthStatus {
	if next == orgHealthStatusDown {
		return orgHealthStatusDown
	}
	if next == orgHealthStatusDegraded && current == orgHealthStatusHealthy {
		return orgHealthStatusDegraded
	}
	return current
}

func (c *OrgAPIController) checkHierarchyStore() orgComponentHealth {
	state := c.store.State()
	details := map[string]any{
		"state": state.String(),
	}
	switch state {
	case services.StateReady:
		details["sites"] = len(c.store.Sites())
		return orgComponentHealth{Status: orgHealthStatusHealthy, Details: details}
	case services.StateFailed:
		health := orgComponentHealth{Status: orgHealthStatusDown, Details: details}
		if err := c.store.Err(); err != nil {
			health.Error = err.Error()
		}
		return health
	default:
		// Nothing has asked for the hierarchy yet, or the load is in flight.
		return orgComponentHealth{Status: orgHealthStatusDegraded, Details: details}
	}
}
