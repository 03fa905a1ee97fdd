package encoding

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type header struct {
	Magic    uint16
	Flags    uint8
	Count    uint32
	Reserved [2]uint16
	Inner    struct {
		A int8
		B uint64
	}
	Cached int `encoding:"ignore"`
}

func TestDecodeStruct(t *testing.T) {
	raw := []byte{
		0xFF, // leading garbage, decoded from offset 1
		0x4D, 0x5A,
		0x07,
		0x78, 0x56, 0x34, 0x12,
		0x01, 0x00, 0x02, 0x00,
		0xFE,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	var h header
	h.Cached = 99
	require.Equal(t, len(raw)-1, DecodeSize(&h))
	require.NoError(t, Decode(bytes.NewReader(raw), 1, &h))

	require.Equal(t, uint16(0x5A4D), h.Magic)
	require.Equal(t, uint8(7), h.Flags)
	require.Equal(t, uint32(0x12345678), h.Count)
	require.Equal(t, [2]uint16{1, 2}, h.Reserved)
	require.Equal(t, int8(-2), h.Inner.A)
	require.Equal(t, uint64(0x0102030405060708), h.Inner.B)
	require.Equal(t, 99, h.Cached)
}

func TestDecodeShortRead(t *testing.T) {
	var v struct{ A, B uint32 }
	err := Decode(bytes.NewReader([]byte{1, 2, 3, 4, 5}), 0, &v)
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeNotPointer(t *testing.T) {
	var v uint32
	require.ErrorIs(t, Decode(bytes.NewReader(make([]byte, 4)), 0, v), ErrNotPointer)
	require.ErrorIs(t, Decode(bytes.NewReader(make([]byte, 4)), 0, (*uint32)(nil)), ErrNotPointer)
	require.ErrorIs(t, Decode(bytes.NewReader(make([]byte, 4)), 0, nil), ErrNotPointer)
	require.ErrorIs(t, Decode(bytes.NewReader(make([]byte, 64)), 0, header{}), ErrNotPointer)
	require.Equal(t, 0, DecodeSize(v))
	require.Equal(t, 0, DecodeSize(header{}))
	require.Equal(t, 0, DecodeSize(nil))
}
