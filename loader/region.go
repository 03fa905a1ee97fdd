package loader

import (
	"bytes"
	"fmt"
	"io"
)

// Region is one piece of the file copied into the image: Size bytes reserved at RVA Addr,
// the first Length of which come from the file.
type Region struct {
	Name       string
	Addr, Size uint64
	Length     uint64
	io.ReaderAt
}

func newRegion(name string, addr, size uint64, data []byte, off, length uint64) Region {
	if size != 0 {
		length = min(length, size)
	} else {
		size = length
	}
	off = min(off, uint64(len(data)))
	length = min(length, uint64(len(data))-off)
	return Region{
		Name:     name,
		Addr:     addr,
		Size:     size,
		Length:   length,
		ReaderAt: bytes.NewReader(data[off : off+length]),
	}
}

func (r Region) String() string {
	return fmt.Sprintf("%s [%#x, %#x)", r.Name, r.Addr, r.Addr+r.Size)
}
