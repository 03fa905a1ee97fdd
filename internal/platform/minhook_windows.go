package platform

import (
	"runtime"
	"unsafe"

	"github.com/wnxd/microhook/hook"
	"golang.org/x/sys/windows"
)

// MinHook calls the exports of a MinHook DLL.
type MinHook struct {
	dll          *windows.LazyDLL
	initialize   *windows.LazyProc
	uninitialize *windows.LazyProc
	createHook   *windows.LazyProc
	removeHook   *windows.LazyProc
	queueEnable  *windows.LazyProc
	queueDisable *windows.LazyProc
	applyQueued  *windows.LazyProc
}

var _ hook.Primitive = (*MinHook)(nil)

// NewMinHook loads MinHook from path, or the build matching the process architecture.
func NewMinHook(path string) *MinHook {
	if path == "" {
		path = "MinHook.x64.dll"
		if runtime.GOARCH == "386" {
			path = "MinHook.x86.dll"
		}
	}
	dll := windows.NewLazyDLL(path)
	return &MinHook{
		dll:          dll,
		initialize:   dll.NewProc("MH_Initialize"),
		uninitialize: dll.NewProc("MH_Uninitialize"),
		createHook:   dll.NewProc("MH_CreateHook"),
		removeHook:   dll.NewProc("MH_RemoveHook"),
		queueEnable:  dll.NewProc("MH_QueueEnableHook"),
		queueDisable: dll.NewProc("MH_QueueDisableHook"),
		applyQueued:  dll.NewProc("MH_ApplyQueued"),
	}
}

func (mh *MinHook) call(proc *windows.LazyProc, args ...uintptr) error {
	if err := proc.Find(); err != nil {
		return err
	}
	r, _, _ := proc.Call(args...)
	return hook.Status(int32(r)).Err()
}

func (mh *MinHook) Initialize() error {
	if err := mh.dll.Load(); err != nil {
		return err
	}
	return mh.call(mh.initialize)
}

func (mh *MinHook) Uninitialize() error {
	return mh.call(mh.uninitialize)
}

func (mh *MinHook) CreateHook(target, detour uintptr) (uintptr, error) {
	var original uintptr
	if err := mh.call(mh.createHook, target, detour, uintptr(unsafe.Pointer(&original))); err != nil {
		return 0, err
	}
	return original, nil
}

func (mh *MinHook) RemoveHook(target uintptr) error {
	return mh.call(mh.removeHook, target)
}

func (mh *MinHook) QueueEnableHook(target uintptr) error {
	return mh.call(mh.queueEnable, target)
}

func (mh *MinHook) QueueDisableHook(target uintptr) error {
	return mh.call(mh.queueDisable, target)
}

func (mh *MinHook) ApplyQueued() error {
	return mh.call(mh.applyQueued)
}
