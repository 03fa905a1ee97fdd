package engine

import (
	"errors"
	"unsafe"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/module"
	"go.uber.org/zap"
)

var ErrConsoleUnavailable = errors.New("console commands unavailable")

type Command struct {
	Name string
	Help string
	Run  func()
}

// conCommand mirrors the engine's ConCommand object; it must stay addressable while
// the engine holds on to it.
type conCommand struct {
	vtable                uintptr
	next                  uintptr
	registered            bool
	name                  uintptr
	helpString            uintptr
	flags                 int32
	callback              uintptr
	completionCallback    uintptr
	hasCompletionCallback bool
}

type command struct {
	native     conCommand
	name, help []byte
	callback   hook.Function
	completion hook.Function
}

// RegisterCommand adds a console command through ICVar::RegisterConCommandBase.
// Commands are kept for the lifetime of the process.
func (e *Engine) RegisterCommand(cmd Command) error {
	var icvar, vtable uintptr
	e.View(func(s *State) { icvar, vtable = s.ICVar, s.ConCommandVTable })
	if icvar == 0 || vtable == 0 {
		return ErrConsoleUnavailable
	}
	c, err := e.command(cmd)
	if err != nil {
		return err
	}
	register, err := e.icvarMethod(icvar, 0)
	if err != nil {
		return err
	}
	c.native = conCommand{
		vtable:             vtable,
		name:               addrOf(c.name),
		helpString:         addrOf(c.help),
		callback:           c.callback.Addr(),
		completionCallback: c.completion.Addr(),
	}
	_, err = e.Env().Invoker.Call(register, icvar, uintptr(unsafe.Pointer(&c.native)))
	if err != nil {
		return err
	}
	e.Logger().Info("console command registered", zap.String("command", cmd.Name))
	return nil
}

func (e *Engine) command(cmd Command) (*command, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.commands[cmd.Name]; ok {
		return c, nil
	}
	inv := e.Env().Invoker
	run := cmd.Run
	callback, err := inv.Callback(hook.Calling_Cdecl, func() uintptr {
		run()
		return 0
	})
	if err != nil {
		return nil, err
	}
	completion, err := inv.Callback(hook.Calling_Cdecl, func(partial, commands uintptr) uintptr {
		return 0
	})
	if err != nil {
		return nil, err
	}
	c := &command{
		name:       cstring(cmd.Name),
		help:       cstring(cmd.Help),
		callback:   callback,
		completion: completion,
	}
	e.commands[cmd.Name] = c
	return c, nil
}

// icvarMethod reads slot i of the ICVar vtable.
func (e *Engine) icvarMethod(icvar uintptr, i int) (hook.Function, error) {
	loader := e.Env().Loader
	vtable, err := module.ReadPtr(loader, icvar)
	if err != nil {
		return hook.Function{}, err
	}
	fn, err := module.ReadPtr(loader, vtable+uintptr(i*module.PtrSize))
	if err != nil {
		return hook.Function{}, err
	}
	return hook.NewFunction(hook.Calling_Thiscall, fn), nil
}

func cstring(s string) []byte {
	return append([]byte(s), 0)
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
