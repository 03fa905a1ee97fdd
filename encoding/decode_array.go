package encoding

import (
	"unsafe"

	"github.com/modern-go/reflect2"
)

func decodeArray(typ reflect2.ArrayType) (handler, int) {
	count := typ.Len()
	unmarshal, elemSize := decode(typ.Elem())
	return func(b []byte, ptr unsafe.Pointer) {
		for i := 0; i < count; i++ {
			unmarshal(b[i*elemSize:], typ.UnsafeGetIndex(ptr, i))
		}
	}, count * elemSize
}
