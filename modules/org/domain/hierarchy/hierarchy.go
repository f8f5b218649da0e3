// Package hierarchy holds the canonical three-level organization tree
// (site → department → sub-department) and the selection triple bound to it.
package hierarchy

import (
	"bytes"
	"encoding/json"
)

type Level string

const (
	LevelSite          Level = "site"
	LevelDepartment    Level = "department"
	LevelSubdepartment Level = "subdepartment"
)

func ParseLevel(v string) (Level, bool) {
	switch Level(v) {
	case LevelSite, LevelDepartment, LevelSubdepartment:
		return Level(v), true
	default:
		return "", false
	}
}

type Department struct {
	Name           string
	Subdepartments []string
}

type Site struct {
	Name        string
	Departments []Department

	deptIndex map[string]int
}

// Hierarchy is the canonical organization tree. Site and department order is
// the order in which they were added; sub-department order is display order.
//
// The Set*/Ensure* mutators exist for construction by normalizers and
// sources. Once handed to a store the value is treated as read-only.
type Hierarchy struct {
	sites     []Site
	siteIndex map[string]int
}

func New() *Hierarchy {
	return &Hierarchy{siteIndex: map[string]int{}}
}

// EnsureSite adds site if it is missing. Existing departments are kept.
func (h *Hierarchy) EnsureSite(name string) {
	if _, ok := h.siteIndex[name]; ok {
		return
	}
	h.siteIndex[name] = len(h.sites)
	h.sites = append(h.sites, Site{Name: name, deptIndex: map[string]int{}})
}

// SetSite adds site, or clears the departments of an existing one while
// keeping its position.
func (h *Hierarchy) SetSite(name string) {
	if i, ok := h.siteIndex[name]; ok {
		h.sites[i].Departments = nil
		h.sites[i].deptIndex = map[string]int{}
		return
	}
	h.EnsureSite(name)
}

// SetDepartment replaces (or appends) the sub-department list of dep under site.
func (h *Hierarchy) SetDepartment(site, dep string, subs []string) {
	h.EnsureSite(site)
	s := &h.sites[h.siteIndex[site]]
	cp := append([]string{}, subs...)
	if i, ok := s.deptIndex[dep]; ok {
		s.Departments[i].Subdepartments = cp
		return
	}
	s.deptIndex[dep] = len(s.Departments)
	s.Departments = append(s.Departments, Department{Name: dep, Subdepartments: cp})
}

func (h *Hierarchy) Len() int {
	if h == nil {
		return 0
	}
	return len(h.sites)
}

func (h *Hierarchy) site(name string) (*Site, bool) {
	if h == nil {
		return nil, false
	}
	i, ok := h.siteIndex[name]
	if !ok {
		return nil, false
	}
	return &h.sites[i], true
}

func (h *Hierarchy) department(site, dep string) (*Department, bool) {
	s, ok := h.site(site)
	if !ok {
		return nil, false
	}
	i, ok := s.deptIndex[dep]
	if !ok {
		return nil, false
	}
	return &s.Departments[i], true
}

func (h *Hierarchy) SiteNames() []string {
	if h == nil {
		return []string{}
	}
	out := make([]string, 0, len(h.sites))
	for _, s := range h.sites {
		out = append(out, s.Name)
	}
	return out
}

func (h *Hierarchy) DepartmentNames(site string) []string {
	s, ok := h.site(site)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(s.Departments))
	for _, d := range s.Departments {
		out = append(out, d.Name)
	}
	return out
}

func (h *Hierarchy) Subdepartments(site, dep string) []string {
	d, ok := h.department(site, dep)
	if !ok {
		return []string{}
	}
	return append([]string{}, d.Subdepartments...)
}

func (h *Hierarchy) HasSite(site string) bool {
	_, ok := h.site(site)
	return ok
}

func (h *Hierarchy) HasDepartment(site, dep string) bool {
	_, ok := h.department(site, dep)
	return ok
}

func (h *Hierarchy) HasSubdepartment(site, dep, sub string) bool {
	d, ok := h.department(site, dep)
	if !ok {
		return false
	}
	for _, s := range d.Subdepartments {
		if s == sub {
			return true
		}
	}
	return false
}

// Narrow returns the longest prefix of sel that is valid against h.
func (h *Hierarchy) Narrow(sel Selection) Selection {
	if sel.Site == "" || !h.HasSite(sel.Site) {
		return Selection{}
	}
	if sel.Department == "" || !h.HasDepartment(sel.Site, sel.Department) {
		return Selection{Site: sel.Site}
	}
	if sel.Subdepartment == "" || !h.HasSubdepartment(sel.Site, sel.Department, sel.Subdepartment) {
		return Selection{Site: sel.Site, Department: sel.Department}
	}
	return sel
}

// MarshalJSON writes the tree in its object form
// ({"site": {"department": ["sub", ...]}}), keeping insertion order.
func (h *Hierarchy) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range h.sitesOrNil() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, d := range s.Departments {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, d.Name); err != nil {
				return nil, err
			}
			subs := d.Subdepartments
			if subs == nil {
				subs = []string{}
			}
			b, err := json.Marshal(subs)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Hierarchy) sitesOrNil() []Site {
	if h == nil {
		return nil
	}
	return h.sites
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}
