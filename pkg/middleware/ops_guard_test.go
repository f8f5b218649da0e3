package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgcascade/pkg/configuration"
	"github.com/iota-uz/orgcascade/pkg/routing"
)

func guarded(t *testing.T, opts configuration.OpsGuardOptions) http.Handler {
	t.Helper()
	rules, err := routing.LoadAllowlist("", "server")
	require.NoError(t, err)
	return OpsGuard(opts, routing.NewClassifier(rules))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestOpsGuard(t *testing.T) {
	opts := configuration.OpsGuardOptions{
		Enabled:       true,
		CIDRs:         "10.0.0.0/8, 192.168.1.0/24",
		Token:         "s3cret",
		BasicAuthUser: "ops",
		BasicAuthPass: "pass",
		RealIPHeader:  "X-Forwarded-For",
	}
	h := guarded(t, opts)

	cases := []struct {
		name   string
		path   string
		setup  func(r *http.Request)
		status int
	}{
		{"non-ops route passes", "/org/api/selection", func(r *http.Request) {}, http.StatusNoContent},
		{"anonymous ops is hidden", "/debug/prometheus", func(r *http.Request) {}, http.StatusNotFound},
		{"cidr", "/org/api/ops/health", func(r *http.Request) { r.RemoteAddr = "10.1.2.3:5555" }, http.StatusNoContent},
		{"forwarded ip", "/org/api/ops/health", func(r *http.Request) { r.Header.Set("X-Forwarded-For", "192.168.1.7, 8.8.8.8") }, http.StatusNoContent},
		{"ops token", "/debug/prometheus", func(r *http.Request) { r.Header.Set("X-Ops-Token", "s3cret") }, http.StatusNoContent},
		{"bearer token", "/debug/prometheus", func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }, http.StatusNoContent},
		{"wrong token", "/debug/prometheus", func(r *http.Request) { r.Header.Set("X-Ops-Token", "nope") }, http.StatusNotFound},
		{"basic auth", "/debug/prometheus", func(r *http.Request) { r.SetBasicAuth("ops", "pass") }, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.RemoteAddr = "203.0.113.9:1234"
			tc.setup(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestOpsGuard_Disabled(t *testing.T) {
	h := guarded(t, configuration.OpsGuardOptions{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestParseCIDRs(t *testing.T) {
	got := parseCIDRs("10.0.0.0/8; bogus\n192.168.1.5/24")
	require.Len(t, got, 2)
	require.Equal(t, "192.168.1.0/24", got[1].String())
	require.Empty(t, parseCIDRs("  "))
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::ffff:10.0.0.1]:80"
	addr, ok := clientAddr(req, "")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", addr.String())

	req.Header.Set("X-Real-IP", "not-an-ip")
	_, ok = clientAddr(req, "X-Real-IP")
	require.False(t, ok)
}
