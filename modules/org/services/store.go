package services

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/pkg/logging"
)

type StoreState int

const (
	StateUninitialized StoreState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s StoreState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var tracer = otel.Tracer("orgcascade-org-services")

// HierarchyStore owns the hierarchy for its lifetime. It loads the hierarchy
// at most once, on the first Ensure, and never mutates it afterwards. A failed
// load leaves the store empty and failed; it is not retried.
type HierarchyStore struct {
	source Source
	log    *logrus.Entry

	mu        sync.RWMutex
	state     StoreState
	hierarchy *hierarchy.Hierarchy
	err       error
	done      chan struct{}
}

func NewHierarchyStore(source Source, log *logrus.Entry) (*HierarchyStore, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HierarchyStore{
		source: source,
		log:    log.WithField("component", "org-hierarchy-store"),
	}, nil
}

// NewStaticStore returns a ready store over h.
func NewStaticStore(h *hierarchy.Hierarchy) *HierarchyStore {
	if h == nil {
		h = hierarchy.New()
	}
	done := make(chan struct{})
	close(done)
	return &HierarchyStore{
		log:       logging.Nop(),
		state:     StateReady,
		hierarchy: h,
		done:      done,
	}
}

func (s *HierarchyStore) State() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is the load error of a failed store.
func (s *HierarchyStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Ensure loads the hierarchy if nobody has yet and waits for the load to
// finish. Callers arriving while a load is in flight wait for the same load.
// The load itself is detached from ctx: giving up waiting does not cancel it.
func (s *HierarchyStore) Ensure(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateUninitialized {
		s.state = StateLoading
		s.done = make(chan struct{})
		go s.load(context.WithoutCancel(ctx))
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Err()
}

func (s *HierarchyStore) load(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "org.hierarchy.load")
	defer span.End()
	span.SetAttributes(attribute.String("org.source", s.source.Name()))

	h, err := s.source.Load(ctx)
	if err == nil && h == nil {
		err = errors.New("source returned no hierarchy")
	}

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.err = err
		s.hierarchy = nil
	} else {
		s.state = StateReady
		s.hierarchy = h
	}
	done := s.done
	s.mu.Unlock()

	recordHierarchyLoad(s.source.Name(), err, h.Len())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.WithError(err).WithField("source", s.source.Name()).Error("org hierarchy load failed")
	} else {
		span.SetAttributes(attribute.Int("org.sites", h.Len()))
		s.log.WithField("sites", h.Len()).Info("org hierarchy loaded")
	}
	close(done)
}

// Hierarchy returns the loaded hierarchy, or nil unless ready.
func (s *HierarchyStore) Hierarchy() *hierarchy.Hierarchy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil
	}
	return s.hierarchy
}

// Sites lists site names in load order. Empty unless ready.
func (s *HierarchyStore) Sites() []string {
	return s.Hierarchy().SiteNames()
}

func (s *HierarchyStore) Departments(site string) []string {
	return s.Hierarchy().DepartmentNames(site)
}

func (s *HierarchyStore) Subdepartments(site, department string) []string {
	return s.Hierarchy().Subdepartments(site, department)
}
