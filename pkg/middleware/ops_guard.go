package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/orgcascade/pkg/composables"
	"github.com/iota-uz/orgcascade/pkg/configuration"
	"github.com/iota-uz/orgcascade/pkg/routing"
)

const opsTokenHeader = "X-Ops-Token"

// opsCheck is one way a caller may prove ops access.
type opsCheck func(r *http.Request) bool

// OpsGuard hides ops-class routes (health, metrics) from callers that pass
// none of the configured checks: source CIDR, shared token or basic auth.
// Hidden routes answer 404 so their existence is not revealed.
func OpsGuard(opts configuration.OpsGuardOptions, routes *routing.Classifier) mux.MiddlewareFunc {
	checks := opsChecks(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Enabled || routes.ClassifyRequest(r) != routing.RouteClassOps || passesAny(checks, r) {
				next.ServeHTTP(w, r)
				return
			}
			composables.UseLogger(r.Context()).WithField("remote", r.RemoteAddr).Debug("ops route hidden from caller")
			http.NotFound(w, r)
		})
	}
}

func passesAny(checks []opsCheck, r *http.Request) bool {
	for _, check := range checks {
		if check(r) {
			return true
		}
	}
	return false
}

func opsChecks(opts configuration.OpsGuardOptions) []opsCheck {
	var checks []opsCheck
	if prefixes := parseCIDRs(opts.CIDRs); len(prefixes) > 0 {
		header := opts.RealIPHeader
		checks = append(checks, func(r *http.Request) bool {
			addr, ok := clientAddr(r, header)
			if !ok {
				return false
			}
			for _, p := range prefixes {
				if p.Contains(addr) {
					return true
				}
			}
			return false
		})
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		checks = append(checks, func(r *http.Request) bool {
			return secureEqual(presentedToken(r), token)
		})
	}
	if opts.BasicAuthUser != "" || opts.BasicAuthPass != "" {
		checks = append(checks, func(r *http.Request) bool {
			u, p, ok := r.BasicAuth()
			return ok && secureEqual(u, opts.BasicAuthUser) && secureEqual(p, opts.BasicAuthPass)
		})
	}
	return checks
}

func secureEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// parseCIDRs accepts prefixes separated by commas, semicolons or whitespace.
// Unparseable entries are skipped.
func parseCIDRs(raw string) []netip.Prefix {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]netip.Prefix, 0, len(fields))
	for _, f := range fields {
		if p, err := netip.ParsePrefix(f); err == nil {
			out = append(out, p.Masked())
		}
	}
	return out
}

func presentedToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(opsTokenHeader)); t != "" {
		return t
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "bearer "
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return ""
}

// clientAddr prefers the first entry of header (X-Forwarded-For style) over
// the connection's remote address.
func clientAddr(r *http.Request, header string) (netip.Addr, bool) {
	raw := r.RemoteAddr
	if header != "" {
		if v := r.Header.Get(header); strings.TrimSpace(v) != "" {
			raw, _, _ = strings.Cut(v, ",")
		}
	}
	raw = strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
