package module

import (
	"bytes"
	"errors"
	"io"

	"github.com/wnxd/microhook/encoding"
)

var ErrBadImage = errors.New("bad PE image")

const (
	imageDosSignature = 0x5A4D
	imageNtSignature  = 0x00004550
	imageNtOptional32 = 0x10B
	imageNtOptional64 = 0x20B
	maxExportName     = 512
)

type imageDosHeader struct {
	Magic    uint16
	Reserved [29]uint16
	Lfanew   uint32
}

type imageFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type imageNtHeaders struct {
	Signature  uint32
	FileHeader imageFileHeader
	Magic      uint16
}

type imageDataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

type imageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

const (
	DirectoryExport    = 0
	DirectoryBaseReloc = 5
)

// DataDirectory reads entry index of the optional header data directory of a PE image.
func DataDirectory(r io.ReaderAt, index int) (rva, size uint32, err error) {
	var dos imageDosHeader
	if err := encoding.Decode(r, 0, &dos); err != nil || dos.Magic != imageDosSignature {
		return 0, 0, ErrBadImage
	}
	var nt imageNtHeaders
	if err := encoding.Decode(r, int64(dos.Lfanew), &nt); err != nil || nt.Signature != imageNtSignature {
		return 0, 0, ErrBadImage
	}
	opt := int64(dos.Lfanew) + 24
	var dirOff int64
	switch nt.Magic {
	case imageNtOptional32:
		dirOff = opt + 96
	case imageNtOptional64:
		dirOff = opt + 112
	default:
		return 0, 0, ErrBadImage
	}
	var dir imageDataDirectory
	if err := encoding.Decode(r, dirOff+int64(index)*8, &dir); err != nil {
		return 0, 0, ErrBadImage
	}
	return dir.VirtualAddress, dir.Size, nil
}

// ParseExports walks the export directory of a PE image laid out by RVA and returns
// the RVA of every named export. Forwarded exports are left out.
func ParseExports(r io.ReaderAt) (map[string]uint32, error) {
	dirRVA, dirSize, err := DataDirectory(r, DirectoryExport)
	if err != nil {
		return nil, err
	}
	dir := imageDataDirectory{VirtualAddress: dirRVA, Size: dirSize}
	exports := make(map[string]uint32)
	if dir.VirtualAddress == 0 {
		return exports, nil
	}
	var exp imageExportDirectory
	if err := encoding.Decode(r, int64(dir.VirtualAddress), &exp); err != nil {
		return nil, ErrBadImage
	}
	for i := uint32(0); i < exp.NumberOfNames; i++ {
		var nameRVA uint32
		var ordinal uint16
		if err := encoding.Decode(r, int64(exp.AddressOfNames)+int64(i)*4, &nameRVA); err != nil {
			return nil, ErrBadImage
		}
		if err := encoding.Decode(r, int64(exp.AddressOfNameOrdinals)+int64(i)*2, &ordinal); err != nil {
			return nil, ErrBadImage
		}
		if uint32(ordinal) >= exp.NumberOfFunctions {
			continue
		}
		var rva uint32
		if err := encoding.Decode(r, int64(exp.AddressOfFunctions)+int64(ordinal)*4, &rva); err != nil {
			return nil, ErrBadImage
		}
		if rva == 0 || rva >= dir.VirtualAddress && rva < dir.VirtualAddress+dir.Size {
			continue
		}
		name, err := readCString(r, int64(nameRVA))
		if err != nil {
			return nil, ErrBadImage
		}
		exports[name] = rva
	}
	return exports, nil
}

func readCString(r io.ReaderAt, off int64) (string, error) {
	var data []byte
	var buf [0x20]byte
	for len(data) < maxExportName {
		n, err := r.ReadAt(buf[:], off)
		if i := bytes.IndexByte(buf[:n], 0); i != -1 {
			return string(append(data, buf[:i]...)), nil
		}
		if err != nil {
			return "", err
		}
		data = append(data, buf[:n]...)
		off += int64(n)
	}
	return string(data), nil
}
