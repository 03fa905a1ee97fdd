// Package moduletest builds synthetic PE images for tests.
package moduletest

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/wnxd/microhook/module"
)

const (
	exportDirRVA = 0x200
	// CodeRVA is the first RVA free for code.
	CodeRVA = 0x800
)

type Builder struct {
	path     string
	base     uintptr
	size     int
	exports  map[string]uint32
	forwards map[string]string
	code     map[uint32][]byte
	relocs   []uint32
}

func New(path string, base uintptr, size int) *Builder {
	return &Builder{
		path:     path,
		base:     base,
		size:     max(size, CodeRVA+0x100),
		exports:  make(map[string]uint32),
		forwards: make(map[string]string),
		code:     make(map[uint32][]byte),
	}
}

func (b *Builder) Export(name string, rva uint32) *Builder {
	b.exports[name] = rva
	return b
}

// Forward adds an export forwarded to another module, e.g. "NTDLL.RtlAllocateHeap".
func (b *Builder) Forward(name, target string) *Builder {
	b.forwards[name] = target
	return b
}

// Reloc marks 32-bit absolute addresses at the given RVAs for base relocation.
func (b *Builder) Reloc(rvas ...uint32) *Builder {
	b.relocs = append(b.relocs, rvas...)
	return b
}

func (b *Builder) Code(rva uint32, code []byte) *Builder {
	b.code[rva] = code
	return b
}

func (b *Builder) Bytes() []byte {
	mem := make([]byte, b.size)
	le := binary.LittleEndian

	const lfanew = 0x40
	le.PutUint16(mem[0:], 0x5A4D)
	le.PutUint32(mem[0x3C:], lfanew)
	le.PutUint32(mem[lfanew:], 0x4550)
	le.PutUint16(mem[lfanew+4:], 0x14C)
	le.PutUint16(mem[lfanew+20:], 0xE0)
	opt := lfanew + 24
	le.PutUint16(mem[opt:], 0x10B)

	names := make([]string, 0, len(b.exports)+len(b.forwards))
	for name := range b.exports {
		names = append(names, name)
	}
	for name := range b.forwards {
		names = append(names, name)
	}
	slices.Sort(names)

	n := uint32(len(names))
	funcs := uint32(exportDirRVA + 40)
	nameTable := funcs + 4*n
	ordinals := nameTable + 4*n
	str := ordinals + 2*n
	putString := func(s string) uint32 {
		rva := str
		copy(mem[rva:], s)
		str += uint32(len(s)) + 1
		return rva
	}
	for i, name := range names {
		rva, ok := b.exports[name]
		if !ok {
			rva = putString(b.forwards[name])
		}
		le.PutUint32(mem[funcs+4*uint32(i):], rva)
		le.PutUint32(mem[nameTable+4*uint32(i):], putString(name))
		le.PutUint16(mem[ordinals+2*uint32(i):], uint16(i))
	}
	if str > CodeRVA {
		panic(fmt.Sprintf("moduletest: export directory overflows into code (%#x)", str))
	}

	dir := mem[exportDirRVA:]
	le.PutUint32(dir[16:], 1)
	le.PutUint32(dir[20:], n)
	le.PutUint32(dir[24:], n)
	le.PutUint32(dir[28:], funcs)
	le.PutUint32(dir[32:], nameTable)
	le.PutUint32(dir[36:], ordinals)
	le.PutUint32(mem[opt+96:], exportDirRVA)
	le.PutUint32(mem[opt+100:], str-exportDirRVA)

	if len(b.relocs) > 0 {
		start := module.Align(str, 4)
		end := b.putRelocs(mem[start:])
		if start+end > CodeRVA {
			panic(fmt.Sprintf("moduletest: relocations overflow into code (%#x)", start+end))
		}
		le.PutUint32(mem[opt+96+8*module.DirectoryBaseReloc:], start)
		le.PutUint32(mem[opt+100+8*module.DirectoryBaseReloc:], end)
	}

	for rva, code := range b.code {
		copy(mem[rva:], code)
	}
	return mem
}

// putRelocs writes one base relocation block per page and returns the bytes written.
func (b *Builder) putRelocs(dst []byte) uint32 {
	le := binary.LittleEndian
	rvas := slices.Sorted(slices.Values(b.relocs))
	var off uint32
	for len(rvas) > 0 {
		page := rvas[0] &^ 0xFFF
		n := 0
		for n < len(rvas) && rvas[n]&^0xFFF == page {
			n++
		}
		size := module.Align(8+2*uint32(n), 4)
		le.PutUint32(dst[off:], page)
		le.PutUint32(dst[off+4:], size)
		for i, rva := range rvas[:n] {
			le.PutUint16(dst[off+8+2*uint32(i):], 3<<12|uint16(rva&0xFFF))
		}
		off += size
		rvas = rvas[n:]
	}
	return off
}

func (b *Builder) Image() *module.Image {
	return module.NewImage(b.path, b.base, b.Bytes())
}
