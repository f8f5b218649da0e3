package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/domain/events"
	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/pkg/eventbus"
	"github.com/iota-uz/orgcascade/pkg/intl"
	"github.com/iota-uz/orgcascade/pkg/logging"
)

var (
	ErrHierarchyLoading   = errors.New("org hierarchy is still loading")
	ErrHierarchyNotLoaded = errors.New("org hierarchy has not been loaded")
	ErrNoStore            = errors.New("cascade requires a hierarchy store")
	ErrInvalidSlots       = errors.New("cascade requires site, department and subdepartment slots")
)

const (
	ModeEdit   = "edit"
	ModeFilter = "filter"
)

const (
	opInit             = "init"
	opSetSite          = "set_site"
	opSetDepartment    = "set_department"
	opSetSubdepartment = "set_subdepartment"
	opSetTriple        = "set_triple"
	opReset            = "reset"

	outcomeApplied  = "applied"
	outcomeDegraded = "degraded"
	outcomeRejected = "rejected"
)

// HierarchyProvider is the part of the hierarchy store a cascade reads.
type HierarchyProvider interface {
	Ensure(ctx context.Context) error
	State() StoreState
	Hierarchy() *hierarchy.Hierarchy
}

type Placeholders struct {
	SelectSite            string `json:"select_site"`
	NoSites               string `json:"no_sites"`
	SelectSiteFirst       string `json:"select_site_first"`
	SelectDepartment      string `json:"select_department"`
	NoDepartments         string `json:"no_departments"`
	SelectDepartmentFirst string `json:"select_department_first"`
	SelectSubdepartment   string `json:"select_subdepartment"`
	NoSubdepartments      string `json:"no_subdepartments"`
}

// MatchAllPlaceholders labels every empty choice with the same match-all text.
func MatchAllPlaceholders(label string) Placeholders {
	return Placeholders{
		SelectSite:            label,
		NoSites:               label,
		SelectSiteFirst:       label,
		SelectDepartment:      label,
		NoDepartments:         label,
		SelectDepartmentFirst: label,
		SelectSubdepartment:   label,
		NoSubdepartments:      label,
	}
}

// CascadeConfig is the policy difference between the edit form and the
// filter panel.
type CascadeConfig struct {
	// SortOptions orders every option list with a collator for Locale.
	SortOptions bool
	// MatchAll makes an unselected level mean "no constraint" instead of
	// "not chosen yet".
	MatchAll     bool
	Placeholders Placeholders
	Locale       language.Tag
}

// EditMode keeps hierarchy order. Only Init and Reset ask for the level
// above first; selecting no site (or no department) shows the "no
// departments" (or "no sub-departments") placeholder, as the form always has.
func EditMode() CascadeConfig {
	return CascadeConfig{
		Placeholders: Placeholders{
			SelectSite:            "Select site",
			NoSites:               "No sites",
			SelectSiteFirst:       "Select site first",
			SelectDepartment:      "Select department",
			NoDepartments:         "No departments",
			SelectDepartmentFirst: "Select department first",
			SelectSubdepartment:   "Select sub-department",
			NoSubdepartments:      "No sub-departments",
		},
		Locale: language.English,
	}
}

func FilterMode(locale language.Tag) CascadeConfig {
	return CascadeConfig{
		SortOptions:  true,
		MatchAll:     true,
		Placeholders: MatchAllPlaceholders("All"),
		Locale:       locale,
	}
}

func (c CascadeConfig) mode() string {
	if c.MatchAll {
		return ModeFilter
	}
	return ModeEdit
}

type ControllerOptions struct {
	Store  HierarchyProvider
	Slots  Slots
	Config CascadeConfig
	// Bus receives events.SelectionChangedV1 after every trigger. Optional.
	Bus    eventbus.EventBus
	Logger *logrus.Entry
}

// Controller keeps the three slots of one widget group consistent with the
// hierarchy: a selected department always belongs to the selected site and a
// selected sub-department to the selected department. Values that are not in
// the hierarchy are dropped to unselected, together with everything below.
//
// A Controller belongs to a single widget group and is not safe for
// concurrent use.
type Controller struct {
	store  HierarchyProvider
	slots  Slots
	cfg    CascadeConfig
	bus    eventbus.EventBus
	log    *logrus.Entry
	sorter *intl.Sorter

	sitesReady bool
}

func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if !opts.Slots.valid() {
		return nil, ErrInvalidSlots
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	c := &Controller{
		store: opts.Store,
		slots: opts.Slots,
		cfg:   opts.Config,
		bus:   opts.Bus,
		log:   log.WithFields(logrus.Fields{"component": "org-cascade", "mode": opts.Config.mode()}),
	}
	if c.cfg.SortOptions {
		c.sorter = intl.NewSorter(c.cfg.Locale)
	}
	return c, nil
}

func (c *Controller) Config() CascadeConfig {
	return c.cfg
}

// Selection is the current visible triple.
func (c *Controller) Selection() hierarchy.Selection {
	return hierarchy.Selection{
		Site:          c.slots.Site.Value(),
		Department:    c.slots.Department.Value(),
		Subdepartment: c.slots.Subdepartment.Value(),
	}
}

// hierarchy returns the hierarchy operations run against. A failed store
// yields nil, which every query treats as empty.
func (c *Controller) hierarchy(op string) (*hierarchy.Hierarchy, error) {
	switch c.store.State() {
	case StateLoading:
		recordCascade(op, outcomeRejected)
		return nil, ErrHierarchyLoading
	case StateUninitialized:
		recordCascade(op, outcomeRejected)
		return nil, ErrHierarchyNotLoaded
	default:
		return c.store.Hierarchy(), nil
	}
}

// Init fills the site options and clears both lower levels.
func (c *Controller) Init() error {
	h, err := c.hierarchy(opInit)
	if err != nil {
		return err
	}
	prev := c.Selection()
	c.populateSites(h)
	c.clearDepartments()
	c.clearSubdepartments()
	c.finish(opInit, hierarchy.Selection{}, prev)
	return nil
}

// SetSite selects site and repopulates the department options for it.
func (c *Controller) SetSite(site string) error {
	h, err := c.hierarchy(opSetSite)
	if err != nil {
		return err
	}
	prev := c.Selection()
	c.ensureSites(h)
	c.selectSite(h, site)
	c.refreshDepartments(h, "", "")
	c.finish(opSetSite, hierarchy.Selection{Site: site}, prev)
	return nil
}

// SetDepartment selects dep under the current site and repopulates the
// sub-department options for it.
func (c *Controller) SetDepartment(dep string) error {
	h, err := c.hierarchy(opSetDepartment)
	if err != nil {
		return err
	}
	prev := c.Selection()
	c.selectDepartment(h, dep)
	c.refreshSubdepartments(h, "")
	c.finish(opSetDepartment, hierarchy.Selection{Site: prev.Site, Department: dep}, prev)
	return nil
}

func (c *Controller) SetSubdepartment(sub string) error {
	h, err := c.hierarchy(opSetSubdepartment)
	if err != nil {
		return err
	}
	prev := c.Selection()
	c.selectSubdepartment(h, sub)
	c.finish(opSetSubdepartment, hierarchy.Selection{
		Site:          prev.Site,
		Department:    prev.Department,
		Subdepartment: sub,
	}, prev)
	return nil
}

// SetTriple reproduces want as closely as the hierarchy allows. The
// department is kept only if it belongs to the site, and the sub-department
// only if the department was kept and it belongs to that department.
func (c *Controller) SetTriple(want hierarchy.Selection) error {
	h, err := c.hierarchy(opSetTriple)
	if err != nil {
		return err
	}
	prev := c.Selection()
	c.ensureSites(h)
	c.selectSite(h, want.Site)
	c.refreshDepartments(h, want.Department, want.Subdepartment)
	c.finish(opSetTriple, want, prev)
	return nil
}

// Reset unselects the site and returns both lower levels to their
// "choose the level above first" state. It does not need the hierarchy.
func (c *Controller) Reset() {
	prev := c.Selection()
	c.slots.Site.SetValue("")
	c.clearDepartments()
	c.clearSubdepartments()
	c.finish(opReset, hierarchy.Selection{}, prev)
}

func (c *Controller) ensureSites(h *hierarchy.Hierarchy) {
	if !c.sitesReady {
		c.populateSites(h)
	}
}

func (c *Controller) populateSites(h *hierarchy.Hierarchy) {
	sites := c.sorted(h.SiteNames())
	placeholder := c.cfg.Placeholders.SelectSite
	if len(sites) == 0 {
		placeholder = c.cfg.Placeholders.NoSites
	}
	fill(c.slots.Site, placeholder, sites)
	c.sitesReady = true
}

func (c *Controller) selectSite(h *hierarchy.Hierarchy, site string) {
	if site == "" || !h.HasSite(site) {
		site = ""
	}
	c.slots.Site.SetValue(site)
}

func (c *Controller) selectDepartment(h *hierarchy.Hierarchy, dep string) {
	site := c.slots.Site.Value()
	if site == "" || dep == "" || !h.HasDepartment(site, dep) {
		dep = ""
	}
	c.slots.Department.SetValue(dep)
}

func (c *Controller) selectSubdepartment(h *hierarchy.Hierarchy, sub string) {
	site, dep := c.slots.Site.Value(), c.slots.Department.Value()
	if site == "" || dep == "" || sub == "" || !h.HasSubdepartment(site, dep, sub) {
		sub = ""
	}
	c.slots.Subdepartment.SetValue(sub)
}

// refreshDepartments repopulates departments for the selected site, clears
// sub-departments and then tries to keep keepDep and keepSub. An unselected
// site has no departments.
func (c *Controller) refreshDepartments(h *hierarchy.Hierarchy, keepDep, keepSub string) {
	site := c.slots.Site.Value()
	deps := []string{}
	if site != "" {
		deps = c.sorted(h.DepartmentNames(site))
	}
	placeholder := c.cfg.Placeholders.SelectDepartment
	if len(deps) == 0 {
		placeholder = c.cfg.Placeholders.NoDepartments
	}
	fill(c.slots.Department, placeholder, deps)
	c.clearSubdepartments()

	if site == "" || keepDep == "" || !h.HasDepartment(site, keepDep) {
		return
	}
	c.slots.Department.SetValue(keepDep)
	c.refreshSubdepartments(h, keepSub)
}

func (c *Controller) refreshSubdepartments(h *hierarchy.Hierarchy, keepSub string) {
	site, dep := c.slots.Site.Value(), c.slots.Department.Value()
	subs := []string{}
	if site != "" && dep != "" {
		subs = c.sorted(h.Subdepartments(site, dep))
	}
	placeholder := c.cfg.Placeholders.SelectSubdepartment
	if len(subs) == 0 {
		placeholder = c.cfg.Placeholders.NoSubdepartments
	}
	fill(c.slots.Subdepartment, placeholder, subs)

	if site != "" && dep != "" && keepSub != "" && h.HasSubdepartment(site, dep, keepSub) {
		c.slots.Subdepartment.SetValue(keepSub)
	}
}

func (c *Controller) clearDepartments() {
	fill(c.slots.Department, c.cfg.Placeholders.SelectSiteFirst, nil)
}

func (c *Controller) clearSubdepartments() {
	fill(c.slots.Subdepartment, c.cfg.Placeholders.SelectDepartmentFirst, nil)
}

// fill replaces the options of s and unselects it.
func fill(s Slot, placeholder string, options []string) {
	s.SetOptions(placeholder, options)
	s.SetValue("")
}

func (c *Controller) sorted(values []string) []string {
	if c.sorter == nil {
		return values
	}
	return c.sorter.Sorted(values)
}

func (c *Controller) finish(op string, requested, prev hierarchy.Selection) {
	current := c.Selection()
	outcome := outcomeApplied
	if requested != current {
		outcome = outcomeDegraded
		entry := c.log.WithFields(logrus.Fields{
			"op":        op,
			"requested": requested,
			"selection": current,
		})
		// An unselected level is a valid filter, so narrowing is expected there.
		if c.cfg.MatchAll {
			entry.Debug("org selection narrowed")
		} else {
			entry.Warn("org selection narrowed")
		}
	}
	recordCascade(op, outcome)
	if c.bus != nil {
		c.bus.Publish(events.NewSelectionChangedV1(c.cfg.mode(), op, requested, prev, current))
	}
}
