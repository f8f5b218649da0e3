package controllers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
	"github.com/iota-uz/orgcascade/pkg/composables"
	"github.com/iota-uz/orgcascade/pkg/httpapi"
	"github.com/iota-uz/orgcascade/pkg/intl"
)

var validate = validator.New()

type OrgAPIController struct {
	app       application.Application
	store     *services.HierarchyStore
	locale    language.Tag
	apiPrefix string
}

// NewOrgAPIController serves the hierarchy held by the registered
// HierarchyStore. locale orders filter-mode options.
func NewOrgAPIController(app application.Application, locale language.Tag) application.Controller {
	return &OrgAPIController{
		app:       app,
		store:     app.Service(services.HierarchyStore{}).(*services.HierarchyStore),
		locale:    locale,
		apiPrefix: "/org/api",
	}
}

func (c *OrgAPIController) Key() string {
	return c.apiPrefix
}

func (c *OrgAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/hierarchy", c.instrumentAPI("org.hierarchy.get", c.GetHierarchy)).Methods(http.MethodGet)
	api.HandleFunc("/selection", c.instrumentAPI("org.selection.get", c.GetSelection)).Methods(http.MethodGet)
	api.HandleFunc("/ops/health", c.instrumentAPI("org.ops.health", c.GetOpsHealth)).Methods(http.MethodGet)
}

func (c *OrgAPIController) GetHierarchy(w http.ResponseWriter, r *http.Request) {
	requestID, _ := composables.UseRequestID(r.Context())
	l, _ := intl.UseLocalizer(r.Context())

	if err := c.store.Ensure(r.Context()); err != nil {
		if r.Context().Err() != nil {
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Warn("org hierarchy unavailable")
		writeAPIError(w, requestID, httpapi.NewError(
			http.StatusServiceUnavailable,
			"ORG_HIERARCHY_UNAVAILABLE",
			intl.Localize(l, "Org.Errors.HierarchyUnavailable", "org hierarchy is unavailable"),
		))
		return
	}
	writeJSON(w, http.StatusOK, c.store.Hierarchy())
}

type selectionQuery struct {
	Mode          string `form:"mode" validate:"omitempty,oneof=edit filter"`
	Site          string `form:"site" validate:"max=512"`
	Department    string `form:"department" validate:"max=512"`
	Subdepartment string `form:"subdepartment" validate:"max=512"`
	Lang          string `form:"lang" validate:"omitempty,bcp47_language_tag"`
}

func (q *selectionQuery) selection() hierarchy.Selection {
	return hierarchy.Selection{
		Site:          q.Site,
		Department:    q.Department,
		Subdepartment: q.Subdepartment,
	}
}

type selectionResponse struct {
	Mode          string              `json:"mode"`
	Selection     hierarchy.Selection `json:"selection"`
	Site          services.SlotView   `json:"site"`
	Department    services.SlotView   `json:"department"`
	Subdepartment services.SlotView   `json:"subdepartment"`
}

// GetSelection runs one widget group through the cascade: edit mode binds
// the given triple, filter mode applies it as defaults.
func (c *OrgAPIController) GetSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := composables.UseRequestID(ctx)
	l, _ := intl.UseLocalizer(ctx)
	log := composables.UseLogger(ctx)

	q, err := composables.UseQuery(&selectionQuery{}, r)
	if err == nil {
		err = validate.Struct(q)
	}
	if err != nil {
		log.WithError(err).Debug("org selection query rejected")
		writeAPIError(w, requestID, httpapi.NewError(
			http.StatusBadRequest,
			"ORG_INVALID_QUERY",
			intl.Localize(l, "Org.Errors.InvalidQuery", "invalid selection query"),
		).WithMeta("detail", err.Error()))
		return
	}
	if q.Mode == "" {
		q.Mode = services.ModeEdit
	}

	group := services.NewSelectGroup()
	opts := services.ControllerOptions{
		Store:  c.store,
		Slots:  group.Slots(),
		Bus:    c.app.EventPublisher(),
		Logger: log,
	}

	var selection hierarchy.Selection
	switch q.Mode {
	case services.ModeFilter:
		selection, err = c.applyDefaults(ctx, opts, l, q.selection())
	default:
		selection, err = c.bind(ctx, opts, l, q.selection())
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Error("org selection failed")
		writeAPIError(w, requestID, httpapi.NewError(http.StatusInternalServerError, "ORG_INTERNAL", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, selectionResponse{
		Mode:          q.Mode,
		Selection:     selection,
		Site:          group.Site.View(),
		Department:    group.Department.View(),
		Subdepartment: group.Subdepartment.View(),
	})
}

func (c *OrgAPIController) bind(ctx context.Context, opts services.ControllerOptions, l *i18n.Localizer, known hierarchy.Selection) (hierarchy.Selection, error) {
	opts.Config = services.EditMode()
	opts.Config.Placeholders = localizePlaceholders(l, opts.Config.Placeholders)
	binder, err := services.NewBinder(opts)
	if err != nil {
		return hierarchy.Selection{}, err
	}
	return binder.Bind(ctx, known)
}

func (c *OrgAPIController) applyDefaults(ctx context.Context, opts services.ControllerOptions, l *i18n.Localizer, defaults hierarchy.Selection) (hierarchy.Selection, error) {
	opts.Config = services.FilterMode(c.locale)
	opts.Config.Placeholders = services.MatchAllPlaceholders(intl.Localize(l, "Org.Placeholders.All", "All"))
	applier, err := services.NewDefaultApplier(opts)
	if err != nil {
		return hierarchy.Selection{}, err
	}
	return applier.ApplyDefaults(ctx, defaults)
}

func localizePlaceholders(l *i18n.Localizer, p services.Placeholders) services.Placeholders {
	return services.Placeholders{
		SelectSite:            intl.Localize(l, "Org.Placeholders.SelectSite", p.SelectSite),
		NoSites:               intl.Localize(l, "Org.Placeholders.NoSites", p.NoSites),
		SelectSiteFirst:       intl.Localize(l, "Org.Placeholders.SelectSiteFirst", p.SelectSiteFirst),
		SelectDepartment:      intl.Localize(l, "Org.Placeholders.SelectDepartment", p.SelectDepartment),
		NoDepartments:         intl.Localize(l, "Org.Placeholders.NoDepartments", p.NoDepartments),
		SelectDepartmentFirst: intl.Localize(l, "Org.Placeholders.SelectDepartmentFirst", p.SelectDepartmentFirst),
		SelectSubdepartment:   intl.Localize(l, "Org.Placeholders.SelectSubdepartment", p.SelectSubdepartment),
		NoSubdepartments:      intl.Localize(l, "Org.Placeholders.NoSubdepartments", p.NoSubdepartments),
	}
}

func writeAPIError(w http.ResponseWriter, requestID string, e *httpapi.Error) {
	if err := httpapi.WriteAPIError(w, requestID, e); err != nil {
		logrus.WithError(err).Debug("failed to write org api error")
	}
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
