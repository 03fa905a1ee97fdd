package platform

import (
	"unsafe"

	"github.com/wnxd/microhook/module"
	"golang.org/x/sys/windows"
)

// Loader queries the modules of the current process.
type Loader struct {
	process windows.Handle
	pid     uint32
}

var _ module.Loader = (*Loader)(nil)

func NewLoader() *Loader {
	return &Loader{
		process: windows.CurrentProcess(),
		pid:     windows.GetCurrentProcessId(),
	}
}

func (l *Loader) Modules() ([]module.Handle, error) {
	modules := make([]windows.Handle, 256)
	for {
		var needed uint32
		size := uint32(len(modules)) * uint32(unsafe.Sizeof(modules[0]))
		if err := windows.EnumProcessModules(l.process, &modules[0], size, &needed); err != nil {
			return nil, err
		}
		if needed <= size {
			count := needed / uint32(unsafe.Sizeof(modules[0]))
			handles := make([]module.Handle, count)
			for i := range handles {
				handles[i] = module.Handle(modules[i])
			}
			return handles, nil
		}
		modules = make([]windows.Handle, needed/uint32(unsafe.Sizeof(modules[0]))+16)
	}
}

func (l *Loader) Lookup(name string) (module.Handle, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	if err = windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, p, &h); err != nil {
		return 0, module.ErrModuleNotFound
	}
	return module.Handle(h), nil
}

func (l *Loader) Query(h module.Handle) (module.Info, error) {
	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(l.process, windows.Handle(h), &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return module.Info{}, module.ErrModuleNotFound
	}
	name := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetModuleFileName(windows.Handle(h), &name[0], uint32(len(name)))
	if err != nil {
		return module.Info{}, module.ErrModuleNotFound
	}
	return module.Info{
		Handle:  h,
		Base:    mi.BaseOfDll,
		Size:    uintptr(mi.SizeOfImage),
		Process: l.pid,
		Path:    windows.UTF16ToString(name[:n]),
	}, nil
}

// Memory exposes committed, accessible process memory in place.
func (l *Loader) Memory(addr, size uintptr) ([]byte, error) {
	if addr == 0 || size == 0 {
		return nil, module.ErrAddressInvalid
	}
	for p, end := addr, addr+size; p < end; {
		var mbi windows.MemoryBasicInformation
		if err := windows.VirtualQuery(p, &mbi, unsafe.Sizeof(mbi)); err != nil {
			return nil, module.ErrAddressInvalid
		}
		if mbi.State != windows.MEM_COMMIT || mbi.Protect&(windows.PAGE_NOACCESS|windows.PAGE_GUARD) != 0 {
			return nil, module.ErrAddressInvalid
		}
		p = mbi.BaseAddress + mbi.RegionSize
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (l *Loader) Export(h module.Handle, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(h), name)
	if err != nil {
		return 0, module.ErrSymbolNotFound
	}
	return addr, nil
}
