package org

import (
	"testing"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
	"github.com/iota-uz/orgcascade/pkg/intl"
)

func TestModule_RegistersLocales(t *testing.T) {
	app := application.New(&application.ApplicationOptions{})
	m := NewModule(&ModuleOptions{Store: services.NewStaticStore(hierarchy.New())})
	require.Equal(t, "org", m.Name())
	require.NoError(t, m.Register(app))

	es := i18n.NewLocalizer(app.Bundle(), "es")
	require.Equal(t, "Todas", intl.Localize(es, "Org.Placeholders.All", ""))
	require.Equal(t, "Seleccione sede primero", intl.Localize(es, "Org.Placeholders.SelectSiteFirst", ""))

	en := i18n.NewLocalizer(app.Bundle(), "en")
	require.Equal(t, "Select sub-department", intl.Localize(en, "Org.Placeholders.SelectSubdepartment", ""))
}

func TestModule_RequiresStore(t *testing.T) {
	app := application.New(&application.ApplicationOptions{})
	require.ErrorIs(t, NewModule(&ModuleOptions{}).Register(app), services.ErrNoStore)
}
