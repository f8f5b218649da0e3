package modules

import (
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
	"github.com/iota-uz/orgcascade/pkg/configuration"
	"github.com/iota-uz/orgcascade/pkg/intl"
)

// BuiltInModules returns the modules every server registers, backed by store.
func BuiltInModules(conf *configuration.Configuration, store *services.HierarchyStore) []application.Module {
	return []application.Module{
		org.NewModule(&org.ModuleOptions{
			Store:  store,
			Locale: intl.ParseLocale(conf.Org.Locale, language.Spanish),
		}),
	}
}

func Load(app application.Application, modules ...application.Module) error {
	for _, module := range modules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
