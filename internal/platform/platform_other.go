//go:build !windows

package platform

import (
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/module"
)

type Loader struct{}

var _ module.Loader = Loader{}

func NewLoader() Loader {
	return Loader{}
}

func (Loader) Modules() ([]module.Handle, error) {
	return nil, ErrUnsupported
}

func (Loader) Lookup(string) (module.Handle, error) {
	return 0, ErrUnsupported
}

func (Loader) Query(module.Handle) (module.Info, error) {
	return module.Info{}, ErrUnsupported
}

func (Loader) Memory(uintptr, uintptr) ([]byte, error) {
	return nil, ErrUnsupported
}

func (Loader) Export(module.Handle, string) (uintptr, error) {
	return 0, ErrUnsupported
}

type MinHook struct{}

var _ hook.Primitive = MinHook{}

func NewMinHook(string) MinHook {
	return MinHook{}
}

func (MinHook) Initialize() error                            { return ErrUnsupported }
func (MinHook) Uninitialize() error                          { return ErrUnsupported }
func (MinHook) CreateHook(uintptr, uintptr) (uintptr, error) { return 0, ErrUnsupported }
func (MinHook) RemoveHook(uintptr) error                     { return ErrUnsupported }
func (MinHook) QueueEnableHook(uintptr) error                { return ErrUnsupported }
func (MinHook) QueueDisableHook(uintptr) error               { return ErrUnsupported }
func (MinHook) ApplyQueued() error                           { return ErrUnsupported }

type Invoker struct{}

var _ hook.Invoker = Invoker{}

func NewInvoker() Invoker {
	return Invoker{}
}

func (Invoker) Call(fn hook.Function, _ ...uintptr) (uintptr, error) {
	if fn.IsDefault() {
		return 0, hook.ErrUnavailable
	}
	return 0, ErrUnsupported
}

func (Invoker) Callback(hook.Calling, any) (hook.Function, error) {
	return hook.Function{}, ErrUnsupported
}

func MessageBox(string) error {
	return ErrUnsupported
}

func OpenConsole() error {
	return ErrUnsupported
}
