package module

import (
	"encoding/binary"
	"unsafe"
)

const PtrSize = int(unsafe.Sizeof(uintptr(0)))

// ReadPtr reads a native pointer at addr.
func ReadPtr(l Loader, addr uintptr) (uintptr, error) {
	b, err := l.Memory(addr, uintptr(PtrSize))
	if err != nil {
		return 0, err
	}
	if PtrSize == 8 {
		return uintptr(binary.LittleEndian.Uint64(b)), nil
	}
	return uintptr(binary.LittleEndian.Uint32(b)), nil
}

// PutPtr encodes a native pointer into b.
func PutPtr(b []byte, v uintptr) {
	if PtrSize == 8 {
		binary.LittleEndian.PutUint64(b, uint64(v))
	} else {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}
