package org

import (
	"embed"

	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/handlers"
	"github.com/iota-uz/orgcascade/modules/org/presentation/controllers"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
)

//go:embed presentation/locales/*.json
var localeFiles embed.FS

type ModuleOptions struct {
	Store *services.HierarchyStore
	// Locale orders filter-mode options. Defaults to Spanish.
	Locale language.Tag
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	if m.options == nil || m.options.Store == nil {
		return services.ErrNoStore
	}
	locale := m.options.Locale
	if locale == language.Und {
		locale = language.Spanish
	}

	app.RegisterLocaleFiles(&localeFiles)
	app.RegisterServices(m.options.Store)
	handlers.RegisterSelectionEventHandlers(app)

	app.RegisterControllers(
		controllers.NewOrgAPIController(app, locale),
	)

	return nil
}

func (m *Module) Name() string {
	return "org"
}
