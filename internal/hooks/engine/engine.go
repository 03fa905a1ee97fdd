package engine

import (
	"runtime"
	"sync"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/pattern"
	"go.uber.org/zap"
)

const (
	Name = "engine"

	Cbuf_AddText          = "Cbuf_AddText"
	Host_Spawn_f          = "Host_Spawn_f"
	Host_UnPause_f        = "Host_UnPause_f"
	ConCommand_ConCommand = "ConCommand::ConCommand"
	CreateInterface       = "CreateInterface"

	FeatureAutopause       = "autopause"
	FeatureConsoleCommands = "console commands"

	cvarInterfaceVersion = "VEngineCvar001"
	// offset of the "mov dword ptr [esi], vtable" inside the ConCommand::ConCommand match
	vtableInsnOffset = 33
)

var Names = hookable.NameFilter{"engine.dll"}

var (
	sigCbufAddText   = hookable.Sig("8B 54 24 04 83 C9 FF 57 33 C0 8B FA F2 AE 8B 3D ?? ?? ?? ?? A1 ?? ?? ?? ?? F7 D1 49 03 CF 3B C8")
	sigHostSpawn     = hookable.Sig("A1 ?? ?? ?? ?? 53 BB 01 00 00 00 3B C3 56 75 11 68 ?? ?? ?? ?? FF 15 ?? ?? ?? ?? 83 C4 04 5E 5B")
	sigHostUnPause   = hookable.Sig("A0 ?? ?? ?? ?? 84 C0 74 59 8B 0D ?? ?? ?? ?? B8 01 00 00 00 3B C8 75 0A 50 E8")
	sigConCommandCtr = hookable.Sig("8B 44 24 08 33 D2 56 8B F1 89 46 18 8B 44 24 18 3B C2 88 56 08 89 56 0C 89 56 10 89 56 14 89 56 04 C7 06")
)

// Features is the part of the feature registry the engine detours consult.
type Features interface {
	IsEnabled(name string) bool
	Refresh() bool
	Log()
}

// State is shared by the engine detours and reset on unhook.
type State struct {
	NextUnpauseIsBad bool
	Initialized      bool
	ICVar            uintptr
	ConCommandVTable uintptr
}

type Engine struct {
	*hookable.Module[State]
	features Features

	mu       sync.Mutex
	commands map[string]*command
}

func New(env hookable.Env, features Features) *Engine {
	e := &Engine{
		features: features,
		commands: make(map[string]*command),
	}
	e.Module = hookable.New(env, Name, Names, []hookable.Entry{
		{Name: Cbuf_AddText, Locate: sigCbufAddText, Calling: hook.Calling_Cdecl},
		{Name: Host_Spawn_f, Locate: sigHostSpawn, Calling: hook.Calling_Cdecl, Detour: e.hostSpawn},
		{Name: Host_UnPause_f, Locate: sigHostUnPause, Calling: hook.Calling_Cdecl, Detour: e.hostUnPause},
		{Name: ConCommand_ConCommand, Locate: sigConCommandCtr, Calling: hook.Calling_Thiscall},
		{Name: CreateInterface, Locate: hookable.Export("CreateInterface"), Calling: hook.Calling_Cdecl},
	}, hookable.OnHook(e.resolveVTable))
	return e
}

func (e *Engine) resolveVTable(in module.Inspector, r hookable.Resolved, s *State) {
	addr, ok := r.Addrs[ConCommand_ConCommand]
	if !ok {
		return
	}
	code, ok := in.Read(addr+vtableInsnOffset, 6)
	if !ok {
		return
	}
	vtable, err := pattern.Operand(code, 32)
	if err != nil {
		e.Logger().Warn("ConCommand vtable not recovered", zap.Error(err))
		return
	}
	s.ConCommandVTable = uintptr(vtable)
	e.Logger().Debug("ConCommand vtable", zap.Uintptr("addr", s.ConCommandVTable))
}

func (e *Engine) hostSpawn() uintptr {
	e.initialize()
	if _, err := e.Call(Host_Spawn_f); err != nil {
		e.Logger().Error("call Host_Spawn_f", zap.Error(err))
	}
	if e.features.IsEnabled(FeatureAutopause) {
		e.Update(func(s *State) { s.NextUnpauseIsBad = true })
	}
	return 0
}

func (e *Engine) hostUnPause() uintptr {
	e.Logger().Debug("entering Host_UnPause_f")
	if e.features.IsEnabled(FeatureAutopause) {
		var bad bool
		e.Update(func(s *State) {
			bad = s.NextUnpauseIsBad
			s.NextUnpauseIsBad = false
		})
		if bad {
			if err := e.AddText("setpause\n"); err != nil {
				e.Logger().Error("queue setpause", zap.Error(err))
			}
		}
	}
	if _, err := e.Call(Host_UnPause_f); err != nil {
		e.Logger().Error("call Host_UnPause_f", zap.Error(err))
	}
	e.Logger().Debug("leaving Host_UnPause_f")
	return 0
}

// initialize runs once per hooked engine, on the first spawn.
// TODO: move to a per-frame hook once Host_Frame has a signature.
func (e *Engine) initialize() {
	var first bool
	e.Update(func(s *State) {
		first = !s.Initialized
		s.Initialized = true
	})
	if !first {
		return
	}
	icvar := e.createInterface(cvarInterfaceVersion)
	e.Update(func(s *State) { s.ICVar = icvar })
	e.features.Refresh()
	e.features.Log()
	if e.features.IsEnabled(FeatureConsoleCommands) {
		if err := e.RegisterCommand(Command{Name: "hello", Run: func() {
			if err := e.AddText("echo hello\n"); err != nil {
				e.Logger().Error("hello", zap.Error(err))
			}
		}}); err != nil {
			e.Logger().Warn("register console command", zap.String("command", "hello"), zap.Error(err))
		}
	}
}

func (e *Engine) createInterface(name string) uintptr {
	b := cstring(name)
	p, err := e.Call(CreateInterface, addrOf(b), 0)
	runtime.KeepAlive(b)
	if err != nil {
		e.Logger().Warn("CreateInterface", zap.String("name", name), zap.Error(err))
		return 0
	}
	if p == 0 {
		e.Logger().Warn("interface not available", zap.String("name", name))
	}
	return p
}

// AddText appends text to the engine command buffer.
func (e *Engine) AddText(text string) error {
	b := cstring(text)
	_, err := e.Call(Cbuf_AddText, addrOf(b))
	runtime.KeepAlive(b)
	return err
}

// HasConsole reports whether console commands can be registered.
func (e *Engine) HasConsole() bool {
	var ok bool
	e.View(func(s *State) { ok = s.ICVar != 0 && s.ConCommandVTable != 0 })
	return ok
}
