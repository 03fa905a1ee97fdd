package watcher

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/module"
	"go.uber.org/zap"
)

var ErrNoTarget = errors.New("no hookable module is loaded")

type Features interface {
	Refresh() bool
	Log()
}

type Option func(*Watcher)

// WithTargets adds modules that follow loads and unloads of their preferred files.
func WithTargets(targets ...hookable.Hookable) Option {
	return func(w *Watcher) {
		w.targets = append(w.targets, targets...)
	}
}

// WithInterceptors adds modules that hook the load/unload entry points themselves.
// They are hooked once at attach and never re-targeted.
func WithInterceptors(interceptors ...hookable.Hookable) Option {
	return func(w *Watcher) {
		w.interceptors = append(w.interceptors, interceptors...)
	}
}

// WithEngine hands the detour engine to the watcher so detach can tear it down.
func WithEngine(engine hook.Engine) Option {
	return func(w *Watcher) {
		w.engine = engine
	}
}

// Watcher moves hookable modules between loaded module instances.
type Watcher struct {
	loader   module.Loader
	features Features
	log      *zap.Logger
	engine   hook.Engine

	mu           sync.RWMutex
	targets      []hookable.Hookable
	interceptors []hookable.Hookable
	detached     bool
}

func New(loader module.Loader, features Features, log *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		loader:   loader,
		features: features,
		log:      log.Named("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnProcessAttach hooks the interceptors and picks the initial module for every target.
func (w *Watcher) OnProcessAttach() error {
	infos, err := module.Loaded(w.loader)
	if err != nil {
		return fmt.Errorf("enumerate modules: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var hooked bool
	for _, h := range w.interceptors {
		if info, ok := h.PickBest(infos); ok {
			w.hook(h, info)
			hooked = true
		} else {
			w.log.Warn("interceptor module not loaded", zap.String("hookable", h.Name()))
		}
	}
	for _, h := range w.targets {
		if info, ok := h.PickBest(infos); ok {
			w.hook(h, info)
			hooked = true
		} else {
			w.log.Debug("no module loaded yet", zap.String("hookable", h.Name()))
		}
	}
	if !hooked {
		return ErrNoTarget
	}
	w.refresh()
	return nil
}

// OnModuleLoaded re-targets every hookable that prefers the new module over its current one.
func (w *Watcher) OnModuleLoaded(h module.Handle) {
	info, err := w.loader.Query(h)
	if err != nil {
		w.log.Debug("loaded module cannot be queried", zap.Uintptr("handle", uintptr(h)), zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return
	}
	var changed bool
	for _, t := range w.targets {
		if !t.ShouldAdopt(info) {
			continue
		}
		if current, ok := t.Info(); ok {
			w.log.Info("replacing hooked module", zap.String("hookable", t.Name()), zap.Stringer("old", current), zap.Stringer("new", info))
			w.unhook(t)
		}
		w.hook(t, info)
		changed = true
	}
	if changed {
		w.refresh()
	}
}

// OnModuleUnloaded unhooks every target hooked into the module behind h.
func (w *Watcher) OnModuleUnloaded(h module.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return
	}
	var changed bool
	for _, t := range w.targets {
		if info, ok := t.Info(); ok && info.Handle == h {
			w.unhook(t)
			changed = true
		}
	}
	if changed {
		w.refresh()
	}
}

// OnProcessDetach unhooks everything, interceptors last, and uninitializes the engine.
func (w *Watcher) OnProcessDetach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return
	}
	w.detached = true
	for _, t := range w.targets {
		w.unhook(t)
	}
	for _, t := range w.interceptors {
		w.unhook(t)
	}
	if w.engine != nil {
		if err := w.engine.Uninitialize(); err != nil {
			w.log.Warn("uninitialize hook engine", zap.Error(err))
		}
	}
}

// Hooked lists the targets and interceptors currently hooked, by name.
func (w *Watcher) Hooked() map[string]module.Info {
	w.mu.RLock()
	defer w.mu.RUnlock()
	hooked := make(map[string]module.Info)
	for _, list := range [][]hookable.Hookable{w.interceptors, w.targets} {
		for _, h := range list {
			if info, ok := h.Info(); ok {
				hooked[h.Name()] = info
			}
		}
	}
	return hooked
}

func (w *Watcher) hook(h hookable.Hookable, info module.Info) {
	if err := h.Hook(info); err != nil {
		w.log.Warn("hooked with errors", zap.String("hookable", h.Name()), zap.Stringer("module", info), zap.Error(err))
	}
}

func (w *Watcher) unhook(h hookable.Hookable) {
	if _, ok := h.Info(); !ok {
		return
	}
	if err := h.Unhook(); err != nil {
		w.log.Warn("unhooked with errors", zap.String("hookable", h.Name()), zap.Error(err))
	}
}

func (w *Watcher) refresh() {
	w.features.Refresh()
	w.features.Log()
}
