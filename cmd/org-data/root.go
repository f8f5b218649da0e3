package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgcascade/modules/org/services"
)

type globalOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	var global globalOptions
	cmd := &cobra.Command{
		Use:           "org-data",
		Short:         "Org hierarchy tool: normalize documents and run the site/department cascade offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(newNormalizeCmd(&global))
	cmd.AddCommand(newImportXLSXCmd(&global))
	cmd.AddCommand(newOptionsCmd(&global))
	cmd.AddCommand(newFilterCmd(&global))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(exitCode(err))
	}
}

func (g *globalOptions) logger(cmd *cobra.Command) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(g.logLevel))
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("invalid --log-level: %w", err))
	}
	l := logrus.New()
	l.SetOutput(cmd.ErrOrStderr())
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l.WithField("cmd", cmd.Name()), nil
}

// sourceFlags name where the hierarchy comes from: a JSON or XLSX file, or
// a URL serving the document.
type sourceFlags struct {
	input   string
	url     string
	timeout time.Duration
}

func (f *sourceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "Hierarchy document (.json in either shape, or .xlsx)")
	cmd.Flags().StringVar(&f.url, "url", "", "URL serving the hierarchy document")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "Fetch timeout for --url")
}

func (f *sourceFlags) source() (services.Source, error) {
	input, rawURL := strings.TrimSpace(f.input), strings.TrimSpace(f.url)
	switch {
	case input != "" && rawURL != "":
		return nil, withCode(exitUsage, fmt.Errorf("--input and --url are mutually exclusive"))
	case input != "" && isXLSX(input):
		src, err := services.NewXLSXSource(input)
		return src, withCode(exitUsage, err)
	case input != "":
		src, err := services.NewFileSource(input)
		return src, withCode(exitUsage, err)
	case rawURL != "":
		src, err := services.NewHTTPSource(rawURL, f.timeout)
		return src, withCode(exitUsage, err)
	default:
		return nil, withCode(exitUsage, fmt.Errorf("one of --input or --url is required"))
	}
}

// load runs the source through a hierarchy store. Unlike the server, a
// failed load is fatal here.
func (f *sourceFlags) load(ctx context.Context, log *logrus.Entry) (*services.HierarchyStore, error) {
	src, err := f.source()
	if err != nil {
		return nil, err
	}
	store, err := services.NewHierarchyStore(src, log)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	if err := store.Ensure(ctx); err != nil {
		return nil, withCode(exitSource, err)
	}
	return store, nil
}
