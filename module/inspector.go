package module

import (
	"github.com/wnxd/microhook/pattern"
)

// Inspector searches inside one loaded module.
type Inspector struct {
	Info
	loader Loader
}

// Open snapshots the module behind h. It reports false when the module is not loaded
// or cannot be queried.
func Open(l Loader, h Handle) (Inspector, bool) {
	info, err := l.Query(h)
	if err != nil {
		return Inspector{}, false
	}
	return Inspector{info, l}, true
}

func OpenName(l Loader, name string) (Inspector, bool) {
	h, err := l.Lookup(name)
	if err != nil {
		return Inspector{}, false
	}
	return Open(l, h)
}

// Inspect wraps an already captured snapshot.
func Inspect(l Loader, info Info) Inspector {
	return Inspector{info, l}
}

// Loaded snapshots every module the loader reports, in enumeration order.
func Loaded(l Loader) ([]Info, error) {
	handles, err := l.Modules()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(handles))
	for _, h := range handles {
		if info, err := l.Query(h); err == nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (in Inspector) Loader() Loader {
	return in.loader
}

func (in Inspector) Find(sig pattern.Signature) (uintptr, bool) {
	if sig.Len() == 0 || uintptr(sig.Len()) > in.Size {
		return 0, false
	}
	mem, err := in.loader.Memory(in.Base, in.Size)
	if err != nil {
		return 0, false
	}
	return pattern.FindAt(in.Base, mem, sig)
}

func (in Inspector) Export(name string) (uintptr, bool) {
	addr, err := in.loader.Export(in.Handle, name)
	if err != nil || addr == 0 {
		return 0, false
	}
	return addr, true
}

// Read returns n bytes at addr when the whole range lies inside the module.
func (in Inspector) Read(addr uintptr, n int) ([]byte, bool) {
	if n < 0 || !in.Contains(addr) || uintptr(n) > in.Size-(addr-in.Base) {
		return nil, false
	}
	mem, err := in.loader.Memory(addr, uintptr(n))
	if err != nil {
		return nil, false
	}
	return mem, true
}
