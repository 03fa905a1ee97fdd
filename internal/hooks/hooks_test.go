package hooks

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hook/hooktest"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/internal/detour"
	"github.com/wnxd/microhook/internal/hooks/engine"
	"github.com/wnxd/microhook/internal/hooks/kernel32"
	"github.com/wnxd/microhook/internal/hooks/server"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/module/moduletest"
	"github.com/wnxd/microhook/watcher"
	"go.uber.org/zap"
)

const (
	kernelBase = 0x70000000
	engineBase = 0x20000000
	serverBase = 0x30000000
)

func entryCode(t *testing.T, r Resolver, name string) []byte {
	t.Helper()
	for _, e := range r.Entries() {
		if e.Name != name {
			continue
		}
		sig, ok := e.Locate.(hookable.Signature)
		require.True(t, ok, name)
		b := make([]byte, len(sig))
		for i, c := range sig {
			if c.Significant {
				b[i] = c.Value
			}
		}
		return b
	}
	t.Fatalf("no entry %s", name)
	return nil
}

type agent struct {
	set     *Set
	images  *module.Images
	inv     *hooktest.Invoker
	prim    *hooktest.Primitive
	watcher *watcher.Watcher
	server  *module.Image
}

func newAgent(t *testing.T) *agent {
	t.Helper()
	a := &agent{images: module.NewImages(1)}
	a.prim = hooktest.NewPrimitive()
	a.inv = hooktest.NewInvoker(a.prim)
	log := zap.NewNop()
	eng := detour.New(a.prim, log)
	set, err := New(hookable.Env{Engine: eng, Invoker: a.inv, Loader: a.images, Log: log})
	require.NoError(t, err)
	a.set = set

	k32 := moduletest.New(`C:\Windows\SysWOW64\KERNEL32.DLL`, kernelBase, 0x2000).
		Export(kernel32.LoadLibraryA, 0x1000).
		Export(kernel32.FreeLibrary, 0x1040).
		Image()
	a.images.Load(k32)
	a.inv.Bind(kernelBase+0x1000, func(args ...uintptr) uintptr {
		a.images.Load(a.server)
		return serverBase
	})
	a.inv.Bind(kernelBase+0x1040, func(args ...uintptr) uintptr {
		if img := a.images.GetModule(module.Handle(args[0])); img != nil {
			a.images.Unload(img)
			return 1
		}
		return 0
	})

	a.images.Load(moduletest.New(`C:\game\bin\engine.dll`, engineBase, 0x3000).
		Code(0x1000, entryCode(t, set.Engine, engine.Cbuf_AddText)).
		Code(0x1100, entryCode(t, set.Engine, engine.Host_Spawn_f)).
		Code(0x1200, entryCode(t, set.Engine, engine.Host_UnPause_f)).
		Image())
	a.server = moduletest.New(`C:\game\hl1\bin\server.dll`, serverBase, 0x3000).
		Code(0x1000, entryCode(t, set.Server, server.CheckJumpButton)).
		Code(0x1100, entryCode(t, set.Server, server.FinishGravity)).
		Image()

	a.watcher = watcher.New(a.images, set.Features, log,
		watcher.WithInterceptors(set.Interceptors()...),
		watcher.WithTargets(set.Targets()...),
		watcher.WithEngine(eng),
	)
	set.Kernel32.Notify(a.watcher)
	return a
}

func (a *agent) call(t *testing.T, c hook.Calling, addr uintptr, args ...uintptr) uintptr {
	t.Helper()
	rv, err := a.inv.Call(hook.NewFunction(c, addr), args...)
	require.NoError(t, err)
	return rv
}

func TestFeatureNames(t *testing.T) {
	a := newAgent(t)
	require.Equal(t, []string{"autopause", "console commands", "autojump"}, a.set.Features.Names())
	require.Len(t, a.set.Resolvers(), 3)
}

func TestAgentLifecycle(t *testing.T) {
	a := newAgent(t)
	require.NoError(t, a.watcher.OnProcessAttach())

	reg := a.set.Features
	require.True(t, reg.IsEnabled(engine.FeatureAutopause))
	require.False(t, reg.IsEnabled(engine.FeatureConsoleCommands))
	require.False(t, reg.IsEnabled(server.FeatureAutojump))
	require.Equal(t, []string{"✔ autopause", "❌ console commands", "❌ autojump"}, reg.Report())
	require.True(t, a.set.Kernel32.Installed(kernel32.LoadLibraryA))
	require.False(t, a.set.Kernel32.Installed(kernel32.LoadLibraryW))

	// the game loads server.dll through the hooked LoadLibraryA
	require.Equal(t, uintptr(serverBase), a.call(t, hook.Calling_Stdcall, kernelBase+0x1000, 0))
	require.True(t, reg.IsEnabled(server.FeatureAutojump))
	info, ok := a.set.Server.Info()
	require.True(t, ok)
	want, err := a.images.Query(a.server.Info().Handle)
	require.NoError(t, err)
	require.Equal(t, want, info)
	require.True(t, a.prim.Enabled(serverBase+0x1000))

	require.Equal(t, uintptr(1), a.call(t, hook.Calling_Stdcall, kernelBase+0x1040, serverBase))
	require.False(t, reg.IsEnabled(server.FeatureAutojump))
	require.True(t, reg.IsEnabled(engine.FeatureAutopause))
	_, ok = a.set.Server.Info()
	require.False(t, ok)

	a.watcher.OnProcessDetach()
	require.Zero(t, a.prim.Installed())
	require.False(t, a.set.Engine.Installed(engine.Host_Spawn_f))
}
