package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/intl"
)

type filterOptions struct {
	src     sourceFlags
	sel     selectionFlags
	users   string
	query   string
	status  string
	countBy string
	top     int
	locale  string
}

type countResult struct {
	Level     hierarchy.Level      `json:"level"`
	Selection hierarchy.Selection  `json:"selection"`
	Series    services.CountSeries `json:"series"`
}

func newFilterCmd(global *globalOptions) *cobra.Command {
	var opts filterOptions
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter the network user registry by text and org selection",
		Long: "Filter the network user registry by text and org selection.\n" +
			"The selection is first narrowed against the hierarchy the way the filter panel does;\n" +
			"an empty level matches every user. Prints one JSON line per user, or a count series with --count-by.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var level hierarchy.Level
			if opts.countBy != "" {
				var ok bool
				if level, ok = hierarchy.ParseLevel(strings.TrimSpace(opts.countBy)); !ok {
					return withCode(exitUsage, fmt.Errorf("invalid --count-by %q: want site, department or subdepartment", opts.countBy))
				}
			}
			log, err := global.logger(cmd)
			if err != nil {
				return err
			}
			users, err := readUsers(opts.users)
			if err != nil {
				return err
			}
			store, err := opts.src.load(cmd.Context(), log)
			if err != nil {
				return err
			}

			applier, err := services.NewDefaultApplier(services.ControllerOptions{
				Store:  store,
				Slots:  services.NewSelectGroup().Slots(),
				Config: services.FilterMode(intl.ParseLocale(opts.locale, language.Spanish)),
				Logger: log,
			})
			if err != nil {
				return err
			}
			if _, err := applier.ApplyDefaults(cmd.Context(), opts.sel.selection()); err != nil {
				return withCode(exitSource, err)
			}
			f := applier.Filter(opts.query)
			f.Status = strings.TrimSpace(opts.status)
			matched := services.FilterUsers(users, f)
			log.WithField("matched", len(matched)).WithField("total", len(users)).Info("filtered")

			out := cmd.OutOrStdout()
			if level != "" {
				return writeJSONLine(out, countResult{
					Level:     level,
					Selection: f.Selection,
					Series:    services.CountByLevel(matched, level, opts.top),
				})
			}
			for _, u := range matched {
				if err := writeJSONLine(out, u); err != nil {
					return err
				}
			}
			return nil
		},
	}
	opts.src.bind(cmd)
	opts.sel.bind(cmd)
	cmd.Flags().StringVar(&opts.users, "users", "", "User registry CSV (required)")
	cmd.Flags().StringVar(&opts.query, "q", "", "Free text matched against username, name and department")
	cmd.Flags().StringVar(&opts.status, "status", "", "Only users with this status")
	cmd.Flags().StringVar(&opts.countBy, "count-by", "", "Print counts per site, department or subdepartment instead of users")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Keep only the N largest counts (0 keeps all)")
	cmd.Flags().StringVar(&opts.locale, "locale", "es", "Collation locale")
	_ = cmd.MarkFlagRequired("users")
	return cmd
}
