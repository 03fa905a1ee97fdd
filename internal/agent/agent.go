// Package agent assembles the detour engine, the hookable modules and the watcher into
// the process-wide instance that the DLL entry points drive.
package agent

import (
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/internal/detour"
	"github.com/wnxd/microhook/internal/hooks"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/watcher"
	"go.uber.org/zap"
)

type Agent struct {
	Hooks   *hooks.Set
	Engine  *detour.Engine
	Watcher *watcher.Watcher
	log     *zap.Logger
}

func New(prim hook.Primitive, inv hook.Invoker, loader module.Loader, log *zap.Logger) (*Agent, error) {
	eng := detour.New(prim, log)
	set, err := hooks.New(hookable.Env{Engine: eng, Invoker: inv, Loader: loader, Log: log})
	if err != nil {
		return nil, err
	}
	w := watcher.New(loader, set.Features, log,
		watcher.WithInterceptors(set.Interceptors()...),
		watcher.WithTargets(set.Targets()...),
		watcher.WithEngine(eng),
	)
	set.Kernel32.Notify(w)
	return &Agent{Hooks: set, Engine: eng, Watcher: w, log: log}, nil
}

// Attach hooks every module that is already loaded. The watcher logs the resulting features.
func (a *Agent) Attach() error {
	a.log.Info("attaching")
	return a.Watcher.OnProcessAttach()
}

func (a *Agent) Detach() {
	a.Watcher.OnProcessDetach()
	a.log.Info("detached")
}
