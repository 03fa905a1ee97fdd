package kernel32

import (
	"sync/atomic"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/module"
	"go.uber.org/zap"
)

const (
	Name = "kernel32"

	LoadLibraryA   = "LoadLibraryA"
	LoadLibraryW   = "LoadLibraryW"
	LoadLibraryExA = "LoadLibraryExA"
	LoadLibraryExW = "LoadLibraryExW"
	FreeLibrary    = "FreeLibrary"

	loadLibraryAsDatafile          = 0x00000002
	loadLibraryAsImageResource     = 0x00000020
	loadLibraryAsDatafileExclusive = 0x00000040
	notExecutable                  = loadLibraryAsDatafile | loadLibraryAsImageResource | loadLibraryAsDatafileExclusive
)

// Windows reports the system copy as KERNEL32.DLL.
var Names = hookable.NameFilter{"KERNEL32.DLL", "kernel32.dll"}

// Notifier receives module load and unload events.
type Notifier interface {
	OnModuleLoaded(h module.Handle)
	OnModuleUnloaded(h module.Handle)
}

type Kernel32 struct {
	*hookable.Module[struct{}]
	notifier atomic.Pointer[Notifier]
}

func New(env hookable.Env) *Kernel32 {
	k := new(Kernel32)
	k.Module = hookable.New[struct{}](env, Name, Names, []hookable.Entry{
		{Name: LoadLibraryA, Locate: hookable.Export(LoadLibraryA), Calling: hook.Calling_Stdcall, Detour: k.loadLibraryA},
		{Name: LoadLibraryW, Locate: hookable.Export(LoadLibraryW), Calling: hook.Calling_Stdcall, Detour: k.loadLibraryW},
		{Name: LoadLibraryExA, Locate: hookable.Export(LoadLibraryExA), Calling: hook.Calling_Stdcall, Detour: k.loadLibraryExA},
		{Name: LoadLibraryExW, Locate: hookable.Export(LoadLibraryExW), Calling: hook.Calling_Stdcall, Detour: k.loadLibraryExW},
		{Name: FreeLibrary, Locate: hookable.Export(FreeLibrary), Calling: hook.Calling_Stdcall, Detour: k.freeLibrary},
	})
	return k
}

// Notify sets where load and unload events go. Events before the first call are dropped.
func (k *Kernel32) Notify(n Notifier) {
	k.notifier.Store(&n)
}

func (k *Kernel32) loaded(fn string, rv uintptr) {
	k.Logger().Debug(fn, zap.Uintptr("module", rv))
	if rv == 0 {
		return
	}
	if n := k.notifier.Load(); n != nil {
		(*n).OnModuleLoaded(module.Handle(rv))
	}
}

func (k *Kernel32) call(fn string, args ...uintptr) uintptr {
	rv, err := k.Call(fn, args...)
	if err != nil {
		k.Logger().Error("call "+fn, zap.Error(err))
	}
	return rv
}

func (k *Kernel32) loadLibraryA(fileName uintptr) uintptr {
	rv := k.call(LoadLibraryA, fileName)
	k.loaded(LoadLibraryA, rv)
	return rv
}

func (k *Kernel32) loadLibraryW(fileName uintptr) uintptr {
	rv := k.call(LoadLibraryW, fileName)
	k.loaded(LoadLibraryW, rv)
	return rv
}

func (k *Kernel32) loadLibraryExA(fileName, file, flags uintptr) uintptr {
	rv := k.call(LoadLibraryExA, fileName, file, flags)
	if flags&notExecutable == 0 {
		k.loaded(LoadLibraryExA, rv)
	}
	return rv
}

func (k *Kernel32) loadLibraryExW(fileName, file, flags uintptr) uintptr {
	rv := k.call(LoadLibraryExW, fileName, file, flags)
	if flags&notExecutable == 0 {
		k.loaded(LoadLibraryExW, rv)
	}
	return rv
}

func (k *Kernel32) freeLibrary(h uintptr) uintptr {
	if n := k.notifier.Load(); n != nil {
		(*n).OnModuleUnloaded(module.Handle(h))
	}
	rv := k.call(FreeLibrary, h)
	k.Logger().Debug(FreeLibrary, zap.Uintptr("module", h), zap.Uintptr("result", rv))
	return rv
}
