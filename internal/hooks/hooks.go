package hooks

import (
	"github.com/wnxd/microhook/feature"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/internal/hooks/engine"
	"github.com/wnxd/microhook/internal/hooks/kernel32"
	"github.com/wnxd/microhook/internal/hooks/server"
	"github.com/wnxd/microhook/module"
)

// Set is every hookable module of the agent plus the features derived from them.
type Set struct {
	Engine   *engine.Engine
	Server   *server.Server
	Kernel32 *kernel32.Kernel32
	Features *feature.Registry
}

func New(env hookable.Env) (*Set, error) {
	reg := feature.NewRegistry(env.Log)
	s := &Set{
		Engine:   engine.New(env, reg),
		Server:   server.New(env, reg),
		Kernel32: kernel32.New(env),
		Features: reg,
	}
	features := []feature.Feature{
		{Name: engine.FeatureAutopause, Requires: []feature.Requirement{
			feature.Hook(s.Engine, engine.Cbuf_AddText),
			feature.Hook(s.Engine, engine.Host_Spawn_f),
			feature.Hook(s.Engine, engine.Host_UnPause_f),
		}},
		{Name: engine.FeatureConsoleCommands, Requires: []feature.Requirement{
			feature.Func("engine ICVar and ConCommand vtable", s.Engine.HasConsole),
		}},
		{Name: server.FeatureAutojump, Requires: []feature.Requirement{
			feature.Hook(s.Server, server.CheckJumpButton),
			feature.Hook(s.Server, server.FinishGravity),
		}},
	}
	for _, f := range features {
		if err := reg.Register(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Targets are re-targeted on module loads, in the order they are offered new modules.
func (s *Set) Targets() []hookable.Hookable {
	return []hookable.Hookable{s.Server, s.Engine}
}

func (s *Set) Interceptors() []hookable.Hookable {
	return []hookable.Hookable{s.Kernel32}
}

// Resolvers lists every module for offline signature checks.
func (s *Set) Resolvers() []Resolver {
	return []Resolver{s.Engine, s.Server, s.Kernel32}
}

type Resolver interface {
	Name() string
	PickBest(candidates []module.Info) (module.Info, bool)
	Resolve(in module.Inspector) hookable.Resolved
	Entries() []hookable.Entry
}
