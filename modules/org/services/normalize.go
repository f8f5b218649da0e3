package services

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

var ErrInvalidJSON = errors.New("org document is not valid JSON")

var (
	nameKeys          = []string{"nombre", "name"}
	siteListKeys      = []string{"sedes"}
	departmentKeys    = []string{"dependencias", "dependencies"}
	subdepartmentKeys = []string{"subdependencias", "subdependencies"}
)

// Normalize converts an org document in either supported shape into the
// canonical hierarchy. It never fails: anything it cannot read is treated as
// empty.
//
// Shape A: {"<site>": {"<department>": ["<sub>", ...]}} is taken as is, with
// every entry kept and non-string entries coerced to their display text.
// Shape B: {"sedes": [{"nombre": "...", "dependencias": [{"nombre": "...", "subdependencias": [...]}]}]}
func Normalize(raw []byte) *hierarchy.Hierarchy {
	if !gjson.ValidBytes(raw) {
		return hierarchy.New()
	}
	return normalizeResult(gjson.ParseBytes(raw))
}

// NormalizeStrict is Normalize that reports undecodable input instead of
// silently returning an empty hierarchy. Shape problems are still tolerated.
func NormalizeStrict(raw []byte) (*hierarchy.Hierarchy, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return normalizeResult(gjson.ParseBytes(raw)), nil
}

func normalizeResult(doc gjson.Result) *hierarchy.Hierarchy {
	if doc.IsObject() && !doc.Get(siteListKeys[0]).Exists() {
		return normalizeSiteMap(doc)
	}
	return normalizeSiteList(doc)
}

func normalizeSiteMap(doc gjson.Result) *hierarchy.Hierarchy {
	h := hierarchy.New()
	doc.ForEach(func(key, site gjson.Result) bool {
		name := key.String()
		h.SetSite(name)
		if !site.IsObject() {
			return true
		}
		site.ForEach(func(key, subs gjson.Result) bool {
			h.SetDepartment(name, key.String(), displayTexts(subs))
			return true
		})
		return true
	})
	return h
}

func normalizeSiteList(doc gjson.Result) *hierarchy.Hierarchy {
	h := hierarchy.New()
	if !doc.IsObject() {
		return h
	}
	for _, site := range firstArray(doc, siteListKeys) {
		name := nameOf(site)
		if name == "" {
			continue
		}
		h.SetSite(name)
		for _, dep := range firstArray(site, departmentKeys) {
			depName := nameOf(dep)
			if depName == "" {
				continue
			}
			h.SetDepartment(name, depName, subdepartmentNames(firstArrayResult(dep, subdepartmentKeys)))
		}
	}
	return h
}

// displayTexts keeps every entry of a shape A list.
func displayTexts(list gjson.Result) []string {
	out := []string{}
	if !list.IsArray() {
		return out
	}
	for _, item := range list.Array() {
		out = append(out, displayText(item))
	}
	return out
}

// displayText renders a value the way a select option shows it. Objects use
// their name field when they have one.
func displayText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number, gjson.True, gjson.False:
		return v.Raw
	case gjson.Null:
		return ""
	}
	if name := nameOf(v); name != "" {
		return name
	}
	return v.Raw
}

// subdepartmentNames reads a shape B list: objects reduce to their name and
// falsy results are dropped.
func subdepartmentNames(list gjson.Result) []string {
	out := []string{}
	if !list.IsArray() {
		return out
	}
	for _, item := range list.Array() {
		var text string
		if item.IsObject() {
			text = nameOf(item)
		} else {
			text = scalarText(item)
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// nameOf returns the first non-empty scalar name field of obj.
func nameOf(obj gjson.Result) string {
	if !obj.IsObject() {
		return ""
	}
	for _, k := range nameKeys {
		if text := scalarText(obj.Get(k)); text != "" {
			return text
		}
	}
	return ""
}

// scalarText is the display text of a scalar value; falsy values give "".
func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
		return v.String()
	case gjson.True:
		return "true"
	default:
		return ""
	}
}

func firstArrayResult(obj gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(k); v.IsArray() {
			return v
		}
	}
	return gjson.Result{}
}

func firstArray(obj gjson.Result, keys []string) []gjson.Result {
	v := firstArrayResult(obj, keys)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}
