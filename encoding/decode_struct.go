package encoding

import (
	"unsafe"

	"github.com/modern-go/reflect2"
)

type structData struct {
	handler
	field  reflect2.StructField
	offset int
}

func decodeStruct(typ reflect2.StructType) (handler, int) {
	count := typ.NumField()
	fields := make([]*structData, 0, count)
	var size int
	for i := 0; i < count; i++ {
		field := typ.Field(i)
		if field.Tag().Get("encoding") == "ignore" {
			continue
		}
		unmarshal, fieldSize := decode(field.Type())
		fields = append(fields, &structData{unmarshal, field, size})
		size += fieldSize
	}
	return func(b []byte, ptr unsafe.Pointer) {
		for _, data := range fields {
			data.handler(b[data.offset:], data.field.UnsafeGet(ptr))
		}
	}, size
}
