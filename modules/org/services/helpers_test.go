package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

// stubSource returns a fixed result. When release is set, Load blocks until
// it is closed.
type stubSource struct {
	name    string
	h       *hierarchy.Hierarchy
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (s *stubSource) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubSource) Load(ctx context.Context) (*hierarchy.Hierarchy, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.h, s.err
}

func fixtureHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := NormalizeStrict([]byte(fixtureDoc))
	require.NoError(t, err)
	return h
}

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
