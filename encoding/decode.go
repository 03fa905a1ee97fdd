package encoding

import (
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

var ErrNotPointer = errors.New("decode target is not a pointer")

var decodeProcess sync.Map

// Decode reads a little-endian, packed image of *val from r at off.
// Supported field kinds are fixed-size integers, floats, bools, arrays and nested structs.
func Decode(r io.ReaderAt, off int64, val any) error {
	typ, ok := ptrType(val)
	if !ok {
		return ErrNotPointer
	}
	ptr := reflect2.PtrOf(val)
	if ptr == nil {
		return ErrNotPointer
	}
	data := getUnmarshalData(typ.Elem())
	buf := make([]byte, data.size)
	if _, err := r.ReadAt(buf, off); err != nil {
		return err
	}
	data.handler(buf, ptr)
	return nil
}

// DecodeSize is the number of bytes Decode consumes for the type pointed to by val.
func DecodeSize(val any) int {
	typ, ok := ptrType(val)
	if !ok {
		return 0
	}
	return getUnmarshalData(typ.Elem()).size
}

func ptrType(val any) (reflect2.PtrType, bool) {
	typ := reflect2.TypeOf(val)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, false
	}
	return typ.(reflect2.PtrType), true
}

func getUnmarshalData(typ reflect2.Type) *handlerData {
	key := typ.RType()
	if v, ok := decodeProcess.Load(key); ok {
		return v.(*handlerData)
	}
	unmarshal, size := decode(typ)
	data := &handlerData{unmarshal, size}
	decodeProcess.Store(key, data)
	return data
}

func decode(typ reflect2.Type) (handler, int) {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return func(b []byte, ptr unsafe.Pointer) {
			*(*uint8)(ptr) = b[0]
		}, 1
	case reflect.Int16, reflect.Uint16:
		return func(b []byte, ptr unsafe.Pointer) {
			*(*uint16)(ptr) = binary.LittleEndian.Uint16(b)
		}, 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return func(b []byte, ptr unsafe.Pointer) {
			*(*uint32)(ptr) = binary.LittleEndian.Uint32(b)
		}, 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return func(b []byte, ptr unsafe.Pointer) {
			*(*uint64)(ptr) = binary.LittleEndian.Uint64(b)
		}, 8
	case reflect.Array:
		return decodeArray(typ.(reflect2.ArrayType))
	case reflect.Struct:
		return decodeStruct(typ.(reflect2.StructType))
	}
	panic("Unsupported Type")
}
