package server

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hook/hooktest"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/internal/detour"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/module/moduletest"
	"go.uber.org/zap"
)

const (
	base       = 0x30000000
	rvaJump    = 0x1000
	rvaGravity = 0x1100
	rvaThis    = 0x2000
	rvaMv      = 0x2100
)

type features map[string]bool

func (f features) IsEnabled(name string) bool {
	return f[name]
}

func code(sig hookable.Signature) []byte {
	b := make([]byte, len(sig))
	for i, c := range sig {
		if c.Significant {
			b[i] = c.Value
		} else {
			b[i] = 0xCC
		}
	}
	return b
}

type fixture struct {
	inv      *hooktest.Invoker
	images   *module.Images
	server   *Server
	features features
	buttons  []byte
	jumps    int
	gravity  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{features: features{}}
	prim := hooktest.NewPrimitive()
	f.inv = hooktest.NewInvoker(prim)

	mem := moduletest.New(`C:\game\hl1\bin\server.dll`, base, 0x3000).
		Code(rvaJump, code(sigCheckJumpButton)).
		Code(rvaGravity, code(sigFinishGravity)).
		Bytes()
	module.PutPtr(mem[rvaThis+offMv:], base+rvaMv)
	f.buttons = mem[rvaMv+offOldButtons : rvaMv+offOldButtons+4]
	img := module.NewImage(`C:\game\hl1\bin\server.dll`, base, mem)
	f.images = module.NewImages(1, img)

	f.inv.Bind(base+rvaJump, func(args ...uintptr) uintptr {
		require.Equal(t, uintptr(base+rvaThis), args[0])
		old := binary.LittleEndian.Uint32(f.buttons)
		if old&inJump == 0 {
			f.jumps++
			f.callGravity(t)
			binary.LittleEndian.PutUint32(f.buttons, old|inJump)
		}
		return 0
	})
	f.inv.Bind(base+rvaGravity, func(args ...uintptr) uintptr {
		f.gravity++
		return 0
	})

	log := zap.NewNop()
	f.server = New(hookable.Env{
		Engine:  detour.New(prim, log),
		Invoker: f.inv,
		Loader:  f.images,
		Log:     log,
	}, f.features)
	require.NoError(t, f.server.Hook(img.Info()))
	require.True(t, f.server.Installed(CheckJumpButton))
	require.True(t, f.server.Installed(FinishGravity))
	return f
}

func (f *fixture) callGravity(t *testing.T) {
	_, err := f.inv.Call(hook.NewFunction(hook.Calling_Fastcall, base+rvaGravity), base+rvaThis)
	require.NoError(t, err)
}

// tick runs one movement tick with the jump key held.
func (f *fixture) tick(t *testing.T) {
	binary.LittleEndian.PutUint32(f.buttons, inJump)
	_, err := f.inv.Call(hook.NewFunction(hook.Calling_Fastcall, base+rvaJump), base+rvaThis)
	require.NoError(t, err)
	f.server.View(func(s *State) { require.False(t, s.InsideJumpCheck) })
}

func TestAutojumpHeld(t *testing.T) {
	f := newFixture(t)
	f.features[FeatureAutojump] = true

	f.tick(t)
	require.Equal(t, 1, f.jumps)
	f.server.View(func(s *State) { require.True(t, s.JumpedLastTick) })
	require.Equal(t, uint32(inJump), binary.LittleEndian.Uint32(f.buttons))

	f.tick(t)
	require.Equal(t, 1, f.jumps)
	f.server.View(func(s *State) { require.False(t, s.JumpedLastTick) })
	require.Equal(t, uint32(inJump), binary.LittleEndian.Uint32(f.buttons))

	f.tick(t)
	f.tick(t)
	require.Equal(t, 2, f.jumps)
	require.Equal(t, 2, f.gravity)
}

func TestAutojumpDisabled(t *testing.T) {
	f := newFixture(t)
	for range 4 {
		f.tick(t)
	}
	require.Zero(t, f.jumps)
	f.server.View(func(s *State) { require.Equal(t, State{}, *s) })
}

func TestGravityOutsideJumpCheck(t *testing.T) {
	f := newFixture(t)
	f.features[FeatureAutojump] = true
	f.callGravity(t)
	require.Equal(t, 1, f.gravity)
	f.server.View(func(s *State) { require.False(t, s.JumpedLastTick) })
}

func TestUnhookResetsJumpState(t *testing.T) {
	f := newFixture(t)
	f.features[FeatureAutojump] = true
	f.tick(t)
	f.server.View(func(s *State) { require.True(t, s.JumpedLastTick) })

	require.NoError(t, f.server.Unhook())
	f.server.View(func(s *State) { require.Equal(t, State{}, *s) })
	f.tick(t)
	require.Equal(t, 1, f.jumps)
}
