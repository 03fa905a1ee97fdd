package loader

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/module/moduletest"
)

type fakeModule struct {
	base, size uint64
	regions    []Region
}

func (m *fakeModule) Close() error      { return nil }
func (m *fakeModule) Name() string      { return "server.dll" }
func (m *fakeModule) ImageBase() uint64 { return m.base }
func (m *fakeModule) ImageSize() uint64 { return m.size }
func (m *fakeModule) Regions() []Region { return m.regions }

// fileOf splits a laid-out image into a headers region and one section stored at rawOff.
func fileOf(mem []byte, rawOff uint64) *fakeModule {
	file := make([]byte, rawOff+uint64(len(mem))-0x800)
	copy(file, mem[:0x800])
	copy(file[rawOff:], mem[0x800:])
	return &fakeModule{
		base: 0x10000000,
		size: uint64(len(mem)),
		regions: []Region{
			newRegion("headers", 0, 0x800, file, 0, 0x800),
			newRegion(".text", 0x800, uint64(len(mem))-0x800, file, rawOff, uint64(len(mem))-0x800),
		},
	}
}

func TestRegion(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	r := newRegion(".data", 0x1000, 2, data, 2, 4)
	require.Equal(t, uint64(2), r.Length)
	buf := make([]byte, 2)
	_, err := r.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4}, buf)
	require.Equal(t, ".data [0x1000, 0x1002)", r.String())

	r = newRegion(".bss", 0x2000, 0, data, 4, 0x100)
	require.Equal(t, uint64(2), r.Length)
	require.Equal(t, uint64(0x100), r.Size)
}

func TestParseRelocations(t *testing.T) {
	mem := moduletest.New("server.dll", 0x10000000, 0x3000).Reloc(0x1004, 0x2010, 0x1000).Bytes()
	relocs, err := ParseRelocations(mem)
	require.NoError(t, err)
	require.Equal(t, []Relocation{{0x1000, 4}, {0x1004, 4}, {0x2010, 4}}, relocs)

	relocs, err = ParseRelocations(moduletest.New("server.dll", 0x10000000, 0x1000).Bytes())
	require.NoError(t, err)
	require.Empty(t, relocs)

	_, err = ParseRelocations(make([]byte, 0x100))
	require.ErrorIs(t, err, module.ErrBadImage)
}

func TestRelocate(t *testing.T) {
	mem := make([]byte, 16)
	binary.LittleEndian.PutUint32(mem[0:], 0x10001234)
	binary.LittleEndian.PutUint64(mem[8:], 0x180001000)
	require.NoError(t, Relocate(mem, []Relocation{{0, 4}, {8, 8}}, 0x100000))
	require.Equal(t, uint32(0x10101234), binary.LittleEndian.Uint32(mem[0:]))
	require.Equal(t, uint64(0x180101000), binary.LittleEndian.Uint64(mem[8:]))

	require.ErrorIs(t, Relocate(mem, []Relocation{{14, 4}}, 1), ErrLayout)
}

func TestMap(t *testing.T) {
	mem := moduletest.New("server.dll", 0x10000000, 0x2000).
		Code(0x1000, []byte{0xA1, 0x00, 0x10, 0x00, 0x10}). // mov eax, [0x10001000]
		Reloc(0x1001).
		Bytes()
	m := fileOf(mem, 0xA00)

	img, err := Map(m, 0)
	require.NoError(t, err)
	require.Equal(t, uintptr(0x10000000), img.Info().Base)
	require.Equal(t, "server.dll", img.Info().Name())
	require.Equal(t, mem, img.Bytes())

	img, err = Map(m, 0x20000000)
	require.NoError(t, err)
	require.Equal(t, []byte{0xA1, 0x00, 0x10, 0x00, 0x20}, img.Bytes()[0x1000:0x1005])
	exports, err := img.Exports()
	require.NoError(t, err)
	require.Empty(t, exports)

	m.regions = append(m.regions, Region{Name: ".bad", Addr: 0x1F00, Size: 0x200, Length: 0x200})
	_, err = Map(m, 0)
	require.ErrorIs(t, err, ErrLayout)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.dll"))
	require.Error(t, err)
}
