package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/wnxd/microhook/encoding"
	"github.com/wnxd/microhook/module"
)

var ErrUnsupportedRelocation = errors.New("unsupported relocation type")

const (
	relBasedAbsolute = 0
	relBasedHighLow  = 3
	relBasedDir64    = 10
)

// Relocation is an absolute address of Size bytes stored at RVA Addr.
type Relocation struct {
	Addr, Size uint32
}

type imageBaseRelocation struct {
	VirtualAddress uint32
	SizeOfBlock    uint32
}

// ParseRelocations reads the base relocation directory of an image laid out by RVA.
func ParseRelocations(mem []byte) ([]Relocation, error) {
	r := bytes.NewReader(mem)
	rva, size, err := module.DataDirectory(r, module.DirectoryBaseReloc)
	if err != nil {
		return nil, err
	}
	var relocs []Relocation
	for off, end := int64(rva), int64(rva)+int64(size); off < end; {
		var block imageBaseRelocation
		if err := encoding.Decode(r, off, &block); err != nil {
			return nil, module.ErrBadImage
		}
		if block.SizeOfBlock < 8 {
			break
		}
		n := (block.SizeOfBlock - 8) / 2
		entries := make([]uint16, n)
		for i := range entries {
			if err := encoding.Decode(r, off+8+int64(i)*2, &entries[i]); err != nil {
				return nil, module.ErrBadImage
			}
		}
		for _, e := range entries {
			addr := block.VirtualAddress + uint32(e&0xFFF)
			switch e >> 12 {
			case relBasedAbsolute:
			case relBasedHighLow:
				relocs = append(relocs, Relocation{Addr: addr, Size: 4})
			case relBasedDir64:
				relocs = append(relocs, Relocation{Addr: addr, Size: 8})
			default:
				return nil, fmt.Errorf("%w: %d at %#x", ErrUnsupportedRelocation, e>>12, addr)
			}
		}
		off += int64(block.SizeOfBlock)
	}
	return relocs, nil
}

// Relocate adds delta to every address in relocs.
func Relocate(mem []byte, relocs []Relocation, delta uint64) error {
	le := binary.LittleEndian
	for _, r := range relocs {
		if uint64(r.Addr)+uint64(r.Size) > uint64(len(mem)) {
			return fmt.Errorf("%w: relocation at %#x", ErrLayout, r.Addr)
		}
		switch r.Size {
		case 4:
			le.PutUint32(mem[r.Addr:], le.Uint32(mem[r.Addr:])+uint32(delta))
		case 8:
			le.PutUint64(mem[r.Addr:], le.Uint64(mem[r.Addr:])+delta)
		}
	}
	return nil
}
