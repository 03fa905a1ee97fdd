package hookable

import (
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/pattern"
)

// Locator finds one function inside a module.
type Locator interface {
	Locate(in module.Inspector) (uintptr, bool)
	String() string
}

type Signature pattern.Signature

type Export string

type LocatorFunc func(in module.Inspector) (uintptr, bool)

// Sig parses a signature for an entry table. It panics on malformed text.
func Sig(s string) Signature {
	return Signature(pattern.MustParse(s))
}

func (s Signature) Locate(in module.Inspector) (uintptr, bool) {
	return in.Find(pattern.Signature(s))
}

func (s Signature) String() string {
	return "signature " + pattern.Signature(s).String()
}

func (name Export) Locate(in module.Inspector) (uintptr, bool) {
	return in.Export(string(name))
}

func (name Export) String() string {
	return "export " + string(name)
}

func (fn LocatorFunc) Locate(in module.Inspector) (uintptr, bool) {
	return fn(in)
}

func (fn LocatorFunc) String() string {
	return "custom"
}
