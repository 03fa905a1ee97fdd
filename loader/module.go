// Package loader maps PE files from disk into the layout the Windows loader gives them,
// so their code can be scanned without loading them into a process.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	"github.com/saferwall/pe"
	"github.com/wnxd/microhook/module"
)

var (
	ErrUnknownHeader = errors.New("unknown optional header")
	ErrLayout        = errors.New("section outside image")
)

type Module interface {
	io.Closer
	Name() string
	ImageBase() uint64
	ImageSize() uint64
	Regions() []Region
}

type peModule struct {
	path    string
	file    *os.File
	data    mmap.MMap
	base    uint64
	size    uint64
	regions []Region
}

// Open maps the file at path read-only and parses its headers and section table.
func Open(path string) (Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	m := &peModule{path: path, file: f, data: data}
	if err = m.parse(); err != nil {
		m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (m *peModule) parse() error {
	file, err := pe.NewBytes(m.data, &pe.Options{Fast: true})
	if err != nil {
		return err
	}
	if err = file.Parse(); err != nil {
		return err
	}
	var headers uint64
	switch oh := file.NtHeader.OptionalHeader.(type) {
	case pe.ImageOptionalHeader32:
		m.base, m.size, headers = uint64(oh.ImageBase), uint64(oh.SizeOfImage), uint64(oh.SizeOfHeaders)
	case pe.ImageOptionalHeader64:
		m.base, m.size, headers = oh.ImageBase, uint64(oh.SizeOfImage), uint64(oh.SizeOfHeaders)
	default:
		return ErrUnknownHeader
	}
	m.regions = append(m.regions, newRegion("headers", 0, headers, m.data, 0, headers))
	for _, s := range file.Sections {
		h := s.Header
		m.regions = append(m.regions, newRegion(s.String(), uint64(h.VirtualAddress), uint64(h.VirtualSize),
			m.data, uint64(h.PointerToRawData), uint64(h.SizeOfRawData)))
	}
	return nil
}

func (m *peModule) Name() string {
	return filepath.Base(m.path)
}

func (m *peModule) ImageBase() uint64 {
	return m.base
}

func (m *peModule) ImageSize() uint64 {
	return m.size
}

func (m *peModule) Regions() []Region {
	return m.regions
}

func (m *peModule) Close() error {
	return errors.Join(m.data.Unmap(), m.file.Close())
}

// Map lays m out at base, or at its preferred base when base is 0, and applies its
// base relocations.
func Map(m Module, base uintptr) (*module.Image, error) {
	mem := make([]byte, module.Align(m.ImageSize(), 0x1000))
	for _, r := range m.Regions() {
		if r.Addr+r.Length > uint64(len(mem)) {
			return nil, fmt.Errorf("%w: %s", ErrLayout, r)
		}
		if _, err := r.ReadAt(mem[r.Addr:r.Addr+r.Length], 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%s: %w", r, err)
		}
	}
	if base == 0 {
		base = uintptr(m.ImageBase())
	}
	if delta := uint64(base) - m.ImageBase(); delta != 0 {
		relocs, err := ParseRelocations(mem)
		if err != nil {
			return nil, err
		}
		if err = Relocate(mem, relocs, delta); err != nil {
			return nil, err
		}
	}
	return module.NewImage(m.Name(), base, mem), nil
}
