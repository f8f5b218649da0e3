package routing

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowlist_LoadsAndHasCriticalRules(t *testing.T) {
	serverRules, err := LoadAllowlist("", "server")
	require.NoError(t, err)

	_, err = LoadAllowlist("", "superadmin")
	require.Error(t, err)

	requireAllowlistRule(t, serverRules, "/org/api", RouteClassInternalAPI)
	requireAllowlistRule(t, serverRules, "/org/api/ops", RouteClassOps)
	requireAllowlistRule(t, serverRules, "/debug/prometheus", RouteClassOps)
}

func TestAllowlist_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nentrypoints:\n  server:\n    - prefix: /v2/api\n      class: public_api\n"), 0o644))

	rules, err := LoadAllowlist(path, "")
	require.NoError(t, err)
	require.Equal(t, []AllowlistRule{{Prefix: "/v2/api", Class: RouteClassPublicAPI}}, rules)

	_, err = LoadAllowlist(filepath.Join(t.TempDir(), "missing.yaml"), "server")
	require.ErrorIs(t, err, ErrAllowlistNotFound)
}

func TestAllowlist_Invalid(t *testing.T) {
	cases := map[string]string{
		"version":    "version: 2\nentrypoints: {}\n",
		"entrypoint": "version: 1\nentrypoints:\n  other: []\n",
		"prefix":     "version: 1\nentrypoints:\n  server:\n    - prefix: org\n      class: ops\n",
		"class":      "version: 1\nentrypoints:\n  server:\n    - prefix: /org\n      class: webhook\n",
		"yaml":       "version: [\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAllowlist([]byte(raw), "server")
			require.Error(t, err)
		})
	}
}

func TestClassifier(t *testing.T) {
	rules, err := LoadAllowlist("", "server")
	require.NoError(t, err)
	c := NewClassifier(rules)

	require.Equal(t, RouteClassOps, c.ClassifyPath("/org/api/ops/health"))
	require.Equal(t, RouteClassInternalAPI, c.ClassifyPath("/org/api/selection"))
	require.Equal(t, RouteClassInternalAPI, c.ClassifyPath("/hr/api/people"))
	require.Equal(t, RouteClassPublicAPI, c.ClassifyPath("/api/v1/org"))
	require.Equal(t, RouteClassUI, c.ClassifyPath("/org/apis"))
	require.Equal(t, RouteClassUI, c.ClassifyPath("/"))
	require.True(t, c.ClassifyPath("/org/api").IsAPI())
	require.False(t, RouteClassUI.IsAPI())
}

func TestClassifier_Conventions(t *testing.T) {
	var nilClassifier *Classifier
	require.Equal(t, RouteClassOps, nilClassifier.ClassifyPath("/debug/pprof"))
	require.Equal(t, RouteClassInternalAPI, nilClassifier.ClassifyPath("/org/api/hierarchy"))

	c := NewClassifier([]AllowlistRule{
		{Prefix: " /org/api/ops/ ", Class: RouteClassOps},
		{Prefix: "/org/api/ops", Class: RouteClassUI},
		{Prefix: "", Class: RouteClassPublicAPI},
	})
	rule, ok := c.Lookup("/org/api/ops/health")
	require.True(t, ok)
	require.Equal(t, "/org/api/ops", rule.Prefix)
	require.Equal(t, RouteClassOps, rule.Class)

	_, ok = c.Lookup("/org/api/opsx")
	require.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/org/api/ops?x=1", nil)
	require.Equal(t, RouteClassOps, c.ClassifyRequest(req))
}

func TestHasPathPrefixOnBoundary(t *testing.T) {
	cases := []struct {
		path, prefix string
		want         bool
	}{
		{"/org/api", "/org/api", true},
		{"/org/api/x", "/org/api", true},
		{"/org/apis", "/org/api", false},
		{"/org/api/x", "/org/", true},
		{"/anything", "/", true},
		{"/x", "", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HasPathPrefixOnBoundary(tc.path, tc.prefix), "%s on %s", tc.path, tc.prefix)
	}
}

func requireAllowlistRule(t *testing.T, rules []AllowlistRule, prefix string, class RouteClass) {
	t.Helper()

	for _, rule := range rules {
		if rule.Prefix == prefix && rule.Class == class {
			return
		}
	}
	t.Fatalf("allowlist missing rule: %q -> %q", prefix, class)
}
