package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
	"github.com/iota-uz/orgcascade/pkg/httpapi"
	"github.com/iota-uz/orgcascade/pkg/middleware"
)

const orgDoc = `{
	"Zona Sur": {"Tesorería": ["Pagos", "Cobros"], "Archivo": []},
	"Área Norte": {"Jurídica": ["Contratos"]},
	"Bogotá": {}
}`

const spanishMessages = `{
	"Org": {
		"Placeholders": {
			"SelectSite": "Seleccione sede",
			"SelectSiteFirst": "Seleccione sede primero",
			"SelectDepartment": "Seleccione dependencia",
			"NoDepartments": "Sin dependencias",
			"SelectDepartmentFirst": "Seleccione dependencia primero",
			"SelectSubdepartment": "Seleccione subdependencia",
			"NoSubdepartments": "Sin subdependencias",
			"All": "Todas"
		},
		"Errors": {
			"InvalidQuery": "consulta de selección inválida"
		}
	}
}`

type failingSource struct{}

func (failingSource) Name() string { return "test" }

func (failingSource) Load(context.Context) (*hierarchy.Hierarchy, error) {
	return nil, errors.New("upstream unavailable")
}

func newTestRouter(t *testing.T, store *services.HierarchyStore) *mux.Router {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(&strings.Builder{})

	app := application.New(&application.ApplicationOptions{Logger: logger})
	app.Bundle().MustParseMessageFileBytes([]byte(spanishMessages), "es.json")
	app.RegisterServices(store)

	r := mux.NewRouter()
	r.Use(
		middleware.WithLogger(logger, middleware.DefaultLoggerOptions()),
		middleware.ProvideLocalizer(app, language.English),
	)
	NewOrgAPIController(app, language.Spanish).Register(r)
	return r
}

func readyStore() *services.HierarchyStore {
	return services.NewStaticStore(services.Normalize([]byte(orgDoc)))
}

func failedStore(t *testing.T) *services.HierarchyStore {
	t.Helper()
	store, err := services.NewHierarchyStore(failingSource{}, nil)
	require.NoError(t, err)
	return store
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeSelection(t *testing.T, rr *httptest.ResponseRecorder) selectionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp selectionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestOrgAPIController_GetHierarchy(t *testing.T) {
	rr := get(newTestRouter(t, readyStore()), "/org/api/hierarchy")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	require.JSONEq(t, orgDoc, rr.Body.String())

	body := rr.Body.String()
	require.Less(t, strings.Index(body, "Zona Sur"), strings.Index(body, "Área Norte"))
	require.Less(t, strings.Index(body, "Pagos"), strings.Index(body, "Cobros"))
}

func TestOrgAPIController_GetHierarchy_Unavailable(t *testing.T) {
	rr := get(newTestRouter(t, failedStore(t)), "/org/api/hierarchy")

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "ORG_HIERARCHY_UNAVAILABLE", env.Code)
	require.NotEmpty(t, env.Meta["request_id"])
}

func TestOrgAPIController_GetSelection_Edit(t *testing.T) {
	r := newTestRouter(t, readyStore())

	resp := decodeSelection(t, get(r, "/org/api/selection?site=Zona+Sur&department=Tesorer%C3%ADa&subdepartment=Cobros"))

	require.Equal(t, "edit", resp.Mode)
	require.Equal(t, hierarchy.Selection{Site: "Zona Sur", Department: "Tesorería", Subdepartment: "Cobros"}, resp.Selection)
	require.Equal(t, []string{"Zona Sur", "Área Norte", "Bogotá"}, resp.Site.Options)
	require.Equal(t, []string{"Tesorería", "Archivo"}, resp.Department.Options)
	require.Equal(t, []string{"Pagos", "Cobros"}, resp.Subdepartment.Options)
	require.Equal(t, "Select site", resp.Site.Placeholder)
	require.Equal(t, "Cobros", resp.Subdepartment.Value)
}

func TestOrgAPIController_GetSelection_EditDegradesStaleValues(t *testing.T) {
	r := newTestRouter(t, readyStore())

	resp := decodeSelection(t, get(r, "/org/api/selection?mode=edit&site=Zona+Sur&department=Gone&subdepartment=Pagos&lang=es"))

	require.Equal(t, hierarchy.Selection{Site: "Zona Sur"}, resp.Selection)
	require.Equal(t, "Seleccione dependencia", resp.Department.Placeholder)
	require.Equal(t, "Seleccione dependencia primero", resp.Subdepartment.Placeholder)
	require.Empty(t, resp.Subdepartment.Options)
}

func TestOrgAPIController_GetSelection_EditWithoutSite(t *testing.T) {
	r := newTestRouter(t, readyStore())

	resp := decodeSelection(t, get(r, "/org/api/selection?lang=es"))

	require.True(t, resp.Selection.IsZero())
	require.Equal(t, "Seleccione sede", resp.Site.Placeholder)
	require.Equal(t, "Sin dependencias", resp.Department.Placeholder)
	require.Equal(t, "Sin subdependencias", resp.Subdepartment.Placeholder)
	require.NotNil(t, resp.Department.Options)
	require.Empty(t, resp.Department.Options)
}

func TestOrgAPIController_GetSelection_Filter(t *testing.T) {
	r := newTestRouter(t, readyStore())

	resp := decodeSelection(t, get(r, "/org/api/selection?mode=filter&site=Zona+Sur&lang=es"))

	require.Equal(t, "filter", resp.Mode)
	require.Equal(t, hierarchy.Selection{Site: "Zona Sur"}, resp.Selection)
	require.Equal(t, []string{"Área Norte", "Bogotá", "Zona Sur"}, resp.Site.Options)
	require.Equal(t, []string{"Archivo", "Tesorería"}, resp.Department.Options)
	require.Equal(t, "Todas", resp.Site.Placeholder)
	require.Equal(t, "Todas", resp.Department.Placeholder)
	require.Equal(t, "Todas", resp.Subdepartment.Placeholder)
}

func TestOrgAPIController_GetSelection_FailedStoreIsEmpty(t *testing.T) {
	r := newTestRouter(t, failedStore(t))

	resp := decodeSelection(t, get(r, "/org/api/selection?site=Zona+Sur"))

	require.True(t, resp.Selection.IsZero())
	require.Empty(t, resp.Site.Options)
	require.Equal(t, "No sites", resp.Site.Placeholder)
}

func TestOrgAPIController_GetSelection_InvalidQuery(t *testing.T) {
	r := newTestRouter(t, readyStore())

	cases := []string{
		"/org/api/selection?mode=browse",
		"/org/api/selection?site=" + strings.Repeat("x", 600),
	}
	for _, target := range cases {
		rr := get(r, target)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		var env httpapi.ErrorEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		require.Equal(t, "ORG_INVALID_QUERY", env.Code)
		require.NotEmpty(t, env.Meta["detail"])
	}

	rr := get(r, "/org/api/selection?mode=browse&lang=es")
	require.Contains(t, rr.Body.String(), "consulta de selección inválida")
}

func TestOrgAPIController_GetOpsHealth(t *testing.T) {
	store := readyStore()
	rr := get(newTestRouter(t, store), "/org/api/ops/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status  string         `json:"status"`
			Details map[string]any `json:"details"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "ready", resp.Checks["hierarchy"].Details["state"])
	require.InDelta(t, 3, resp.Checks["hierarchy"].Details["sites"], 0)

	failed := failedStore(t)
	r := newTestRouter(t, failed)
	require.Equal(t, http.StatusOK, get(r, "/org/api/ops/health").Code, "uninitialized is degraded, not down")

	_ = get(r, "/org/api/hierarchy")
	rr = get(r, "/org/api/ops/health")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "upstream unavailable")
}
