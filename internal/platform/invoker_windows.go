package platform

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/wnxd/microhook/hook"
	"golang.org/x/sys/windows"
)

// Invoker calls native functions and wraps Go functions as native callbacks.
// On 386 only cdecl and stdcall are available; on amd64 every convention is the same.
type Invoker struct{}

var _ hook.Invoker = Invoker{}

func NewInvoker() Invoker {
	return Invoker{}
}

func supported(c hook.Calling) bool {
	if runtime.GOARCH != "386" {
		return true
	}
	switch c {
	case hook.Calling_Default, hook.Calling_Cdecl, hook.Calling_Stdcall:
		return true
	}
	return false
}

func (Invoker) Call(fn hook.Function, args ...uintptr) (uintptr, error) {
	if fn.IsDefault() {
		return 0, hook.ErrUnavailable
	}
	if !supported(fn.Calling()) {
		return 0, hook.ErrCallingUnsupported
	}
	r, _, _ := syscall.SyscallN(fn.Addr(), args...)
	return r, nil
}

func (Invoker) Callback(c hook.Calling, fn any) (f hook.Function, err error) {
	if !supported(c) {
		return hook.Function{}, hook.ErrCallingUnsupported
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native callback: %v", r)
		}
	}()
	var addr uintptr
	if c == hook.Calling_Cdecl {
		addr = windows.NewCallbackCDecl(fn)
	} else {
		addr = windows.NewCallback(fn)
	}
	return hook.NewFunction(c, addr), nil
}
