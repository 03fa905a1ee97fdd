package encoding

import "unsafe"

type handler func(b []byte, ptr unsafe.Pointer)

type handlerData struct {
	handler handler
	size    int
}
