package module

import (
	"bytes"
	"slices"
	"strings"
	"sync"
)

// Image is a module laid out in memory by RVA, backed by a byte slice.
type Image struct {
	path string
	base uintptr
	mem  []byte

	once    sync.Once
	exports map[string]uint32
	err     error
}

func NewImage(path string, base uintptr, mem []byte) *Image {
	return &Image{path: path, base: base, mem: mem}
}

func (img *Image) Info() Info {
	return Info{
		Handle: Handle(img.base),
		Base:   img.base,
		Size:   uintptr(len(img.mem)),
		Path:   img.path,
	}
}

func (img *Image) Bytes() []byte {
	return img.mem
}

// Exports lazily parses the export directory of the image.
func (img *Image) Exports() (map[string]uint32, error) {
	img.once.Do(func() {
		img.exports, img.err = ParseExports(bytes.NewReader(img.mem))
	})
	return img.exports, img.err
}

// Images is a Loader over a set of in-memory images.
type Images struct {
	mu      sync.Mutex
	process uint32
	loaded  []*Image
}

func NewImages(process uint32, images ...*Image) *Images {
	mm := &Images{process: process}
	for _, img := range images {
		mm.Load(img)
	}
	return mm
}

func (mm *Images) Load(img *Image) {
	mm.mu.Lock()
	if !slices.Contains(mm.loaded, img) {
		mm.loaded = append(mm.loaded, img)
	}
	mm.mu.Unlock()
}

func (mm *Images) Unload(img *Image) {
	mm.mu.Lock()
	mm.loaded = slices.DeleteFunc(mm.loaded, func(m *Image) bool { return m == img })
	mm.mu.Unlock()
}

func (mm *Images) FindModule(name string) (*Image, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, img := range mm.loaded {
		if strings.EqualFold(img.Info().Name(), name) {
			return img, nil
		}
	}
	return nil, ErrModuleNotFound
}

func (mm *Images) FindModuleByAddr(addr uintptr) (*Image, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, img := range mm.loaded {
		if img.Info().Contains(addr) {
			return img, nil
		}
	}
	return nil, ErrModuleNotFound
}

func (mm *Images) GetModule(h Handle) *Image {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, img := range mm.loaded {
		if img.Info().Handle == h {
			return img
		}
	}
	return nil
}

func (mm *Images) Modules() ([]Handle, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	handles := make([]Handle, len(mm.loaded))
	for i, img := range mm.loaded {
		handles[i] = img.Info().Handle
	}
	return handles, nil
}

func (mm *Images) Lookup(name string) (Handle, error) {
	img, err := mm.FindModule(name)
	if err != nil {
		return 0, err
	}
	return img.Info().Handle, nil
}

func (mm *Images) Query(h Handle) (Info, error) {
	img := mm.GetModule(h)
	if img == nil {
		return Info{}, ErrModuleNotFound
	}
	info := img.Info()
	info.Process = mm.process
	return info, nil
}

func (mm *Images) Memory(addr, size uintptr) ([]byte, error) {
	img, err := mm.FindModuleByAddr(addr)
	if err != nil {
		return nil, ErrAddressInvalid
	}
	off := addr - img.base
	if size > uintptr(len(img.mem))-off {
		return nil, ErrAddressInvalid
	}
	return img.mem[off : off+size : off+size], nil
}

func (mm *Images) Export(h Handle, name string) (uintptr, error) {
	img := mm.GetModule(h)
	if img == nil {
		return 0, ErrModuleNotFound
	}
	exports, err := img.Exports()
	if err != nil {
		return 0, err
	}
	rva, ok := exports[name]
	if !ok {
		return 0, ErrSymbolNotFound
	}
	return img.base + uintptr(rva), nil
}
