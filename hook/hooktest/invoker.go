package hooktest

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wnxd/microhook/hook"
)

const callbackBase = 0x7F000000

type Native = func(args ...uintptr) uintptr

// Invoker runs Go callbacks and test-bound natives in place of machine code.
// Calls are routed through Prim so enabled hooks reach their detours.
type Invoker struct {
	Prim        *Primitive
	Unsupported map[hook.Calling]bool

	mu        sync.Mutex
	next      uintptr
	callbacks map[uintptr]reflect.Value
	natives   map[uintptr]Native
}

var _ hook.Invoker = (*Invoker)(nil)

func NewInvoker(prim *Primitive) *Invoker {
	return &Invoker{
		Prim:        prim,
		Unsupported: make(map[hook.Calling]bool),
		next:        callbackBase,
		callbacks:   make(map[uintptr]reflect.Value),
		natives:     make(map[uintptr]Native),
	}
}

// Bind places a native implementation at addr.
func (inv *Invoker) Bind(addr uintptr, fn Native) {
	inv.mu.Lock()
	inv.natives[addr] = fn
	inv.mu.Unlock()
}

func (inv *Invoker) Callback(c hook.Calling, fn any) (hook.Function, error) {
	if inv.Unsupported[c] {
		return hook.Function{}, hook.ErrCallingUnsupported
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return hook.Function{}, fmt.Errorf("callback is %T, not a function", fn)
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.next += 0x10
	inv.callbacks[inv.next] = v
	return hook.NewFunction(c, inv.next), nil
}

func (inv *Invoker) Call(fn hook.Function, args ...uintptr) (uintptr, error) {
	if fn.IsDefault() {
		return 0, hook.ErrUnavailable
	}
	if inv.Unsupported[fn.Calling()] {
		return 0, hook.ErrCallingUnsupported
	}
	addr := fn.Addr()
	if inv.Prim != nil {
		var bypass bool
		if addr, bypass = inv.Prim.Route(addr); bypass {
			return inv.native(addr, args)
		}
	}
	inv.mu.Lock()
	cb, ok := inv.callbacks[addr]
	inv.mu.Unlock()
	if ok {
		return invoke(cb, args), nil
	}
	return inv.native(addr, args)
}

func (inv *Invoker) native(addr uintptr, args []uintptr) (uintptr, error) {
	inv.mu.Lock()
	fn, ok := inv.natives[addr]
	inv.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("no native function at %#x", addr)
	}
	return fn(args...), nil
}

func invoke(fn reflect.Value, args []uintptr) uintptr {
	typ := fn.Type()
	in := make([]reflect.Value, typ.NumIn())
	for i := range in {
		var arg uintptr
		if i < len(args) {
			arg = args[i]
		}
		in[i] = reflect.ValueOf(arg).Convert(typ.In(i))
	}
	out := fn.Call(in)
	if len(out) == 0 {
		return 0
	}
	switch r := out[0]; r.Kind() {
	case reflect.Bool:
		if r.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uintptr(r.Int())
	default:
		return uintptr(r.Uint())
	}
}
