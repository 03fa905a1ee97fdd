package module

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrAddressInvalid = errors.New("address invalid")
)

type Handle uintptr

// Info is an immutable snapshot of a loaded module. A reloaded module gets a new Info.
type Info struct {
	Handle  Handle
	Base    uintptr
	Size    uintptr
	Process uint32
	Path    string
}

// Loader is the OS side of module discovery.
type Loader interface {
	// Modules lists loaded modules in the order the OS enumerates them.
	Modules() ([]Handle, error)
	Lookup(name string) (Handle, error)
	Query(h Handle) (Info, error)
	Memory(addr, size uintptr) ([]byte, error)
	Export(h Handle, name string) (uintptr, error)
}

// Name is the file name component of the module path.
func (info Info) Name() string {
	if i := strings.LastIndexAny(info.Path, `\/`); i >= 0 {
		return info.Path[i+1:]
	}
	return info.Path
}

func (info Info) Contains(addr uintptr) bool {
	return addr >= info.Base && addr-info.Base < info.Size
}

func (info Info) String() string {
	return fmt.Sprintf("%s [%#x, %#x)", info.Name(), info.Base, info.Base+info.Size)
}

func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
