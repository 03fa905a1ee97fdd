package hook

import "fmt"

type Calling int

const (
	Calling_Default Calling = iota
	Calling_Cdecl
	Calling_Stdcall
	Calling_Fastcall
	Calling_Thiscall
)

func (c Calling) String() string {
	switch c {
	case Calling_Default:
		return "default"
	case Calling_Cdecl:
		return "cdecl"
	case Calling_Stdcall:
		return "stdcall"
	case Calling_Fastcall:
		return "fastcall"
	case Calling_Thiscall:
		return "thiscall"
	}
	return fmt.Sprintf("calling(%d)", int(c))
}

// Function is a native function pointer tagged with its calling convention.
// The zero value is the inert default: it points nowhere and must not be called.
type Function struct {
	calling Calling
	addr    uintptr
	set     bool
}

func NewFunction(c Calling, addr uintptr) Function {
	return Function{calling: c, addr: addr, set: addr != 0}
}

func (fn Function) IsDefault() bool {
	return !fn.set
}

func (fn Function) Addr() uintptr {
	return fn.addr
}

func (fn Function) Calling() Calling {
	return fn.calling
}

func (fn Function) String() string {
	if !fn.set {
		return "<default>"
	}
	return fmt.Sprintf("%s@%#x", fn.calling, fn.addr)
}
