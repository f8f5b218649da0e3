package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RouteClass string

const (
	RouteClassUI          RouteClass = "ui"
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassPublicAPI   RouteClass = "public_api"
	RouteClassOps         RouteClass = "ops"
)

func (c RouteClass) Valid() bool {
	switch c {
	case RouteClassUI, RouteClassInternalAPI, RouteClassPublicAPI, RouteClassOps:
		return true
	}
	return false
}

// IsAPI reports whether the class answers with JSON envelopes.
func (c RouteClass) IsAPI() bool {
	return c == RouteClassInternalAPI || c == RouteClassPublicAPI || c == RouteClassOps
}

var ErrAllowlistNotFound = errors.New("routing allowlist not found")

//go:embed allowlist.yaml
var defaultAllowlist []byte

type AllowlistRule struct {
	Prefix string     `yaml:"prefix"`
	Class  RouteClass `yaml:"class"`
}

type allowlistFile struct {
	Version     int                        `yaml:"version"`
	Entrypoints map[string][]AllowlistRule `yaml:"entrypoints"`
}

// LoadAllowlist reads the rules of entrypoint from path, or from the
// built-in allowlist when path is empty.
func LoadAllowlist(path, entrypoint string) ([]AllowlistRule, error) {
	raw := defaultAllowlist
	if strings.TrimSpace(path) != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrAllowlistNotFound, path)
			}
			return nil, err
		}
	}
	return ParseAllowlist(raw, entrypoint)
}

func ParseAllowlist(raw []byte, entrypoint string) ([]AllowlistRule, error) {
	var file allowlistFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}

	if file.Version != 1 {
		return nil, fmt.Errorf("unsupported allowlist version: %d", file.Version)
	}

	if strings.TrimSpace(entrypoint) == "" {
		entrypoint = "server"
	}
	rules, ok := file.Entrypoints[entrypoint]
	if !ok {
		return nil, fmt.Errorf("entrypoint %q not found in allowlist", entrypoint)
	}

	for i := range rules {
		rules[i].Prefix = strings.TrimSpace(rules[i].Prefix)
		if err := rules[i].validate(); err != nil {
			return nil, fmt.Errorf("allowlist %s rule[%d]: %w", entrypoint, i, err)
		}
	}
	return rules, nil
}

func (r AllowlistRule) validate() error {
	switch {
	case r.Prefix == "":
		return errors.New("empty prefix")
	case !strings.HasPrefix(r.Prefix, "/"):
		return fmt.Errorf("prefix must start with '/': %q", r.Prefix)
	case !r.Class.Valid():
		return fmt.Errorf("unknown class: %q", r.Class)
	}
	return nil
}
