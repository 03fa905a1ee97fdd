package feature

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrDuplicateFeature = errors.New("feature already registered")
	ErrEmptyFeature     = errors.New("feature has no requirements")
)

// Installer reports whether a named function of a hookable module is usable.
type Installer interface {
	Name() string
	Installed(name string) bool
}

type Requirement interface {
	Satisfied() bool
	String() string
}

// Feature is enabled exactly when all its requirements hold.
type Feature struct {
	Name     string
	Requires []Requirement
}

type hookRequirement struct {
	m  Installer
	fn string
}

type funcRequirement struct {
	desc string
	fn   func() bool
}

func Hook(m Installer, fn string) Requirement {
	return hookRequirement{m, fn}
}

func Func(desc string, fn func() bool) Requirement {
	return funcRequirement{desc, fn}
}

func (r hookRequirement) Satisfied() bool {
	return r.m.Installed(r.fn)
}

func (r hookRequirement) String() string {
	return r.m.Name() + "." + r.fn
}

func (r funcRequirement) Satisfied() bool {
	return r.fn()
}

func (r funcRequirement) String() string {
	return r.desc
}

type entry struct {
	Feature
	enabled atomic.Bool
}

type Registry struct {
	log *zap.Logger

	mu       sync.Mutex
	features []*entry
	byName   sync.Map
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log.Named("features")}
}

func (r *Registry) Register(f Feature) error {
	if len(f.Requires) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFeature, f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &entry{Feature: f}
	if _, loaded := r.byName.LoadOrStore(f.Name, e); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateFeature, f.Name)
	}
	r.features = append(r.features, e)
	return nil
}

// Refresh recomputes every feature from its requirements and reports whether any changed.
func (r *Registry) Refresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed bool
	for _, e := range r.features {
		enabled := true
		for _, req := range e.Requires {
			if !req.Satisfied() {
				enabled = false
				r.log.Debug("requirement missing", zap.String("feature", e.Name), zap.Stringer("requirement", req))
				break
			}
		}
		if e.enabled.Swap(enabled) == enabled {
			continue
		}
		changed = true
		if enabled {
			r.log.Info("feature enabled", zap.String("feature", e.Name))
		} else {
			r.log.Warn("feature disabled", zap.String("feature", e.Name))
		}
	}
	return changed
}

// IsEnabled reads the value cached by the last Refresh.
func (r *Registry) IsEnabled(name string) bool {
	v, ok := r.byName.Load(name)
	return ok && v.(*entry).enabled.Load()
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.features))
	for i, e := range r.features {
		names[i] = e.Name
	}
	return names
}

func (r *Registry) Report() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.features))
	for i, e := range r.features {
		lines[i] = mark(e.enabled.Load()) + " " + e.Name
	}
	return lines
}

func (r *Registry) Log() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("Features:")
	for _, e := range r.features {
		if enabled := e.enabled.Load(); enabled {
			r.log.Info(mark(enabled) + " " + e.Name)
		} else {
			r.log.Warn(mark(enabled) + " " + e.Name)
		}
	}
}

func mark(enabled bool) string {
	if enabled {
		return "✔"
	}
	return "❌"
}
