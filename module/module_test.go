package module_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/module/moduletest"
	"github.com/wnxd/microhook/pattern"
)

func TestInfoName(t *testing.T) {
	require.Equal(t, "engine.dll", module.Info{Path: `C:\game\bin\engine.dll`}.Name())
	require.Equal(t, "server.dll", module.Info{Path: "/tmp/bin/server.dll"}.Name())
	require.Equal(t, "plain.dll", module.Info{Path: "plain.dll"}.Name())

	info := module.Info{Base: 0x1000, Size: 0x100}
	require.True(t, info.Contains(0x1000))
	require.True(t, info.Contains(0x10FF))
	require.False(t, info.Contains(0x1100))
	require.False(t, info.Contains(0xFFF))
}

func TestAlign(t *testing.T) {
	require.Equal(t, 0x2000, module.Align(0x1001, 0x1000))
	require.Equal(t, uint32(0x1000), module.Align[uint32](0x1000, 0x1000))
}

func TestParseExports(t *testing.T) {
	mem := moduletest.New("kernel32.dll", 0x10000000, 0).
		Export("LoadLibraryA", 0x900).
		Export("FreeLibrary", 0xA00).
		Forward("HeapAlloc", "NTDLL.RtlAllocateHeap").
		Bytes()

	exports, err := module.ParseExports(bytes.NewReader(mem))
	require.NoError(t, err)
	require.Equal(t, map[string]uint32{"LoadLibraryA": 0x900, "FreeLibrary": 0xA00}, exports)

	_, err = module.ParseExports(bytes.NewReader(make([]byte, 0x100)))
	require.ErrorIs(t, err, module.ErrBadImage)
}

func TestImagesLoader(t *testing.T) {
	engine := moduletest.New(`C:\game\bin\engine.dll`, 0x20000000, 0x2000).
		Export("CreateInterface", 0x1000).
		Code(0x1800, []byte{0x8B, 0x54, 0x24, 0x04}).
		Image()
	server := moduletest.New(`C:\game\bin\server.dll`, 0x30000000, 0).Image()
	images := module.NewImages(42, engine, server)
	images.Load(engine)

	handles, err := images.Modules()
	require.NoError(t, err)
	require.Equal(t, []module.Handle{0x20000000, 0x30000000}, handles)

	h, err := images.Lookup("ENGINE.DLL")
	require.NoError(t, err)
	info, err := images.Query(h)
	require.NoError(t, err)
	require.Equal(t, uint32(42), info.Process)
	require.Equal(t, uintptr(0x2000), info.Size)

	addr, err := images.Export(h, "CreateInterface")
	require.NoError(t, err)
	require.Equal(t, uintptr(0x20001000), addr)
	_, err = images.Export(h, "Missing")
	require.ErrorIs(t, err, module.ErrSymbolNotFound)

	mem, err := images.Memory(0x20001800, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x8B, 0x54, 0x24, 0x04}, mem)
	_, err = images.Memory(0x20001FFF, 2)
	require.ErrorIs(t, err, module.ErrAddressInvalid)
	_, err = images.Memory(0x40000000, 1)
	require.ErrorIs(t, err, module.ErrAddressInvalid)

	images.Unload(engine)
	_, err = images.Lookup("engine.dll")
	require.ErrorIs(t, err, module.ErrModuleNotFound)
	_, err = images.Query(h)
	require.ErrorIs(t, err, module.ErrModuleNotFound)
}

func TestInspector(t *testing.T) {
	img := moduletest.New("engine.dll", 0x20000000, 0x2000).
		Export("CreateInterface", 0x1000).
		Code(0x1800, []byte{0x8B, 0x54, 0x24, 0x04, 0x83, 0xC9, 0xFF}).
		Image()
	images := module.NewImages(1, img)

	_, ok := module.OpenName(images, "server.dll")
	require.False(t, ok)
	_, ok = module.Open(images, 0x1234)
	require.False(t, ok)

	in, ok := module.OpenName(images, "engine.dll")
	require.True(t, ok)
	require.Equal(t, "engine.dll", in.Name())

	addr, ok := in.Find(pattern.MustParse("8B 54 ?? 04 83"))
	require.True(t, ok)
	require.Equal(t, uintptr(0x20001800), addr)
	_, ok = in.Find(pattern.MustParse("8B 54 ?? 05"))
	require.False(t, ok)
	_, ok = in.Find(make(pattern.Signature, 0x2001))
	require.False(t, ok)

	addr, ok = in.Export("CreateInterface")
	require.True(t, ok)
	require.Equal(t, uintptr(0x20001000), addr)
	_, ok = in.Export("Nope")
	require.False(t, ok)

	code, ok := in.Read(0x20001804, 3)
	require.True(t, ok)
	require.Equal(t, []byte{0x83, 0xC9, 0xFF}, code)
	_, ok = in.Read(0x20001FFE, 4)
	require.False(t, ok)
	_, ok = in.Read(0x1000, 1)
	require.False(t, ok)

	infos, err := module.Loaded(images)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, in.Info, infos[0])
}

func TestReadPtr(t *testing.T) {
	mem := make([]byte, 0x1000)
	module.PutPtr(mem[0x10:], 0x12345678)
	images := module.NewImages(1, module.NewImage("data.bin", 0x40000000, mem))

	v, err := module.ReadPtr(images, 0x40000010)
	require.NoError(t, err)
	require.Equal(t, uintptr(0x12345678), v)
	_, err = module.ReadPtr(images, 0x40000FFE)
	require.ErrorIs(t, err, module.ErrAddressInvalid)
}
