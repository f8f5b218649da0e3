package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/modules/org/services"
)

type normalizeOptions struct {
	input  string
	output string
	strict bool
}

func newNormalizeCmd(global *globalOptions) *cobra.Command {
	var opts normalizeOptions
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite an org document (site map or sedes list) as the canonical site map",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := global.logger(cmd)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(opts.input)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("read %s: %w", opts.input, err))
			}
			var h *hierarchy.Hierarchy
			if opts.strict {
				h, err = services.NormalizeStrict(raw)
				if err != nil {
					return withCode(exitValidation, errors.Wrap(err, opts.input))
				}
			} else {
				h = services.Normalize(raw)
			}
			log.WithField("sites", h.Len()).Info("normalized")
			return writeHierarchy(cmd, h, opts.output)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "JSON document to normalize (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Write the result here instead of stdout")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on malformed JSON instead of producing an empty hierarchy")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newImportXLSXCmd(global *globalOptions) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "import-xlsx",
		Short: "Build the canonical site map from a SEDE/DIRECCION/SUBDIRECCION workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := global.logger(cmd)
			if err != nil {
				return err
			}
			src, err := services.NewXLSXSource(input)
			if err != nil {
				return withCode(exitUsage, err)
			}
			h, err := src.Load(cmd.Context())
			if err != nil {
				return withCode(exitValidation, err)
			}
			log.WithField("sites", h.Len()).Info("imported")
			return writeHierarchy(cmd, h, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Workbook to import (required)")
	cmd.Flags().StringVar(&output, "output", "", "Write the result here instead of stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func writeHierarchy(cmd *cobra.Command, h *hierarchy.Hierarchy, output string) error {
	if strings.TrimSpace(output) != "" {
		return writeJSONFile(output, h)
	}
	return writeJSONLine(cmd.OutOrStdout(), h)
}
