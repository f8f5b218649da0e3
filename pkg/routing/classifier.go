package routing

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// moduleAPIPattern matches module-scoped API roots such as /org/api.
var moduleAPIPattern = regexp.MustCompile(`^/[^/]+/api(?:/|$)`)

const (
	publicAPIPrefix = "/api/v1"
	debugPrefix     = "/debug"
)

// Classifier resolves request paths to route classes. Allowlist rules are
// tried longest prefix first; unmatched paths fall back to the path
// conventions (/api/v1, /debug, /<module>/api).
type Classifier struct {
	rules []AllowlistRule
}

func NewClassifier(rules []AllowlistRule) *Classifier {
	seen := make(map[string]struct{}, len(rules))
	kept := make([]AllowlistRule, 0, len(rules))
	for _, rule := range rules {
		rule.Prefix = normalizePrefix(rule.Prefix)
		if rule.Prefix == "" {
			continue
		}
		if _, dup := seen[rule.Prefix]; dup {
			continue
		}
		seen[rule.Prefix] = struct{}{}
		kept = append(kept, rule)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return len(kept[i].Prefix) > len(kept[j].Prefix)
	})
	return &Classifier{rules: kept}
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if len(prefix) > 1 {
		prefix = strings.TrimRight(prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
	}
	return prefix
}

// Lookup returns the allowlist rule covering path, if any.
func (c *Classifier) Lookup(path string) (AllowlistRule, bool) {
	if c == nil {
		return AllowlistRule{}, false
	}
	for _, rule := range c.rules {
		if HasPathPrefixOnBoundary(path, rule.Prefix) {
			return rule, true
		}
	}
	return AllowlistRule{}, false
}

func (c *Classifier) ClassifyPath(path string) RouteClass {
	if rule, ok := c.Lookup(path); ok {
		return rule.Class
	}
	switch {
	case HasPathPrefixOnBoundary(path, publicAPIPrefix):
		return RouteClassPublicAPI
	case HasPathPrefixOnBoundary(path, debugPrefix):
		return RouteClassOps
	case moduleAPIPattern.MatchString(path):
		return RouteClassInternalAPI
	default:
		return RouteClassUI
	}
}

func (c *Classifier) ClassifyRequest(r *http.Request) RouteClass {
	return c.ClassifyPath(r.URL.Path)
}

// HasPathPrefixOnBoundary reports whether path is prefix or lies below it;
// /org/apis is not below /org/api.
func HasPathPrefixOnBoundary(path, prefix string) bool {
	switch {
	case prefix == "":
		return false
	case prefix == "/":
		return strings.HasPrefix(path, "/")
	case !strings.HasPrefix(path, prefix):
		return false
	case len(path) == len(prefix), strings.HasSuffix(prefix, "/"):
		return true
	default:
		return path[len(prefix)] == '/'
	}
}
