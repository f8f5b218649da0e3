package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/intl"
)

type selectionFlags struct {
	site          string
	department    string
	subdepartment string
}

func (f *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", "", "Site to select")
	cmd.Flags().StringVar(&f.department, "department", "", "Department to select")
	cmd.Flags().StringVar(&f.subdepartment, "subdepartment", "", "Sub-department to select")
}

func (f *selectionFlags) selection() hierarchy.Selection {
	return hierarchy.Selection{Site: f.site, Department: f.department, Subdepartment: f.subdepartment}
}

type optionsResult struct {
	Mode          string              `json:"mode"`
	Requested     hierarchy.Selection `json:"requested"`
	Selection     hierarchy.Selection `json:"selection"`
	Site          services.SlotView   `json:"site"`
	Department    services.SlotView   `json:"department"`
	Subdepartment services.SlotView   `json:"subdepartment"`
}

func newOptionsCmd(global *globalOptions) *cobra.Command {
	var (
		src    sourceFlags
		sel    selectionFlags
		mode   string
		locale string
	)
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the cascade state (values, placeholders, option lists) for a selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != services.ModeEdit && mode != services.ModeFilter {
				return withCode(exitUsage, fmt.Errorf("invalid --mode %q: want edit or filter", mode))
			}
			log, err := global.logger(cmd)
			if err != nil {
				return err
			}
			store, err := src.load(cmd.Context(), log)
			if err != nil {
				return err
			}

			group := services.NewSelectGroup()
			opts := services.ControllerOptions{Store: store, Slots: group.Slots(), Logger: log}
			requested := sel.selection()
			var got hierarchy.Selection
			if mode == services.ModeFilter {
				opts.Config = services.FilterMode(intl.ParseLocale(locale, language.Spanish))
				applier, err := services.NewDefaultApplier(opts)
				if err != nil {
					return err
				}
				got, err = applier.ApplyDefaults(cmd.Context(), requested)
				if err != nil {
					return withCode(exitSource, err)
				}
			} else {
				binder, err := services.NewBinder(opts)
				if err != nil {
					return err
				}
				got, err = binder.Bind(cmd.Context(), requested)
				if err != nil {
					return withCode(exitSource, err)
				}
			}

			return writeJSONLine(cmd.OutOrStdout(), optionsResult{
				Mode:          mode,
				Requested:     requested,
				Selection:     got,
				Site:          group.Site.View(),
				Department:    group.Department.View(),
				Subdepartment: group.Subdepartment.View(),
			})
		},
	}
	src.bind(cmd)
	sel.bind(cmd)
	cmd.Flags().StringVar(&mode, "mode", services.ModeEdit, "Cascade mode: edit or filter")
	cmd.Flags().StringVar(&locale, "locale", "es", "Collation locale for filter mode")
	return cmd
}
