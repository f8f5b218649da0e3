package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

// awaitHierarchy waits for the store. Load failures are logged and
// swallowed: the cascade then runs against an empty hierarchy. Only the
// caller's own cancellation is returned.
func awaitHierarchy(ctx context.Context, store HierarchyProvider, log *logrus.Entry) error {
	err := store.Ensure(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	log.WithError(err).Warn("org hierarchy unavailable; continuing with an empty hierarchy")
	return nil
}

// Binder reproduces a stored record's org triple on the edit form.
type Binder struct {
	cascade *Controller
}

// NewBinder returns a Binder in edit mode: options keep hierarchy order. A
// zero Config means EditMode().
func NewBinder(opts ControllerOptions) (*Binder, error) {
	if opts.Config == (CascadeConfig{}) {
		opts.Config = EditMode()
	}
	opts.Config.MatchAll = false
	opts.Config.SortOptions = false
	c, err := NewController(opts)
	if err != nil {
		return nil, err
	}
	return &Binder{cascade: c}, nil
}

func (b *Binder) Controller() *Controller {
	return b.cascade
}

// Bind waits for the hierarchy and selects known, or the longest prefix of it
// that is still valid.
func (b *Binder) Bind(ctx context.Context, known hierarchy.Selection) (hierarchy.Selection, error) {
	if err := awaitHierarchy(ctx, b.cascade.store, b.cascade.log); err != nil {
		return hierarchy.Selection{}, err
	}
	if !b.cascade.sitesReady {
		if err := b.cascade.Init(); err != nil {
			return hierarchy.Selection{}, err
		}
	}
	if err := b.cascade.SetTriple(known); err != nil {
		return hierarchy.Selection{}, err
	}
	return b.cascade.Selection(), nil
}

// Reset clears the form for a new record.
func (b *Binder) Reset() {
	b.cascade.Reset()
}

// DefaultApplier seeds the filter panel from query parameters. An empty
// level matches everything at and below it.
type DefaultApplier struct {
	cascade *Controller
}

// NewDefaultApplier returns a DefaultApplier: options sorted for
// Config.Locale, every placeholder the match-all choice. Empty placeholders
// default to "All".
func NewDefaultApplier(opts ControllerOptions) (*DefaultApplier, error) {
	if opts.Config.Placeholders == (Placeholders{}) {
		opts.Config.Placeholders = MatchAllPlaceholders("All")
	}
	opts.Config.MatchAll = true
	opts.Config.SortOptions = true
	c, err := NewController(opts)
	if err != nil {
		return nil, err
	}
	return &DefaultApplier{cascade: c}, nil
}

func (a *DefaultApplier) Controller() *Controller {
	return a.cascade
}

// ApplyDefaults waits for the hierarchy, fills every level with sorted
// options and applies the defaults that are valid.
func (a *DefaultApplier) ApplyDefaults(ctx context.Context, defaults hierarchy.Selection) (hierarchy.Selection, error) {
	if err := awaitHierarchy(ctx, a.cascade.store, a.cascade.log); err != nil {
		return hierarchy.Selection{}, err
	}
	if err := a.cascade.Init(); err != nil {
		return hierarchy.Selection{}, err
	}
	if err := a.cascade.SetTriple(defaults); err != nil {
		return hierarchy.Selection{}, err
	}
	return a.cascade.Selection(), nil
}

// Filter is the user filter for the current selection.
func (a *DefaultApplier) Filter(query string) UserFilter {
	return UserFilter{Query: query, Selection: a.cascade.Selection()}
}
