package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunction(t *testing.T) {
	var fn Function
	require.True(t, fn.IsDefault())
	require.Equal(t, "<default>", fn.String())

	require.True(t, NewFunction(Calling_Cdecl, 0).IsDefault())

	fn = NewFunction(Calling_Stdcall, 0x1000)
	require.False(t, fn.IsDefault())
	require.Equal(t, uintptr(0x1000), fn.Addr())
	require.Equal(t, Calling_Stdcall, fn.Calling())
	require.Equal(t, "stdcall@0x1000", fn.String())
}

func TestStatus(t *testing.T) {
	require.NoError(t, Status_OK.Err())
	require.Equal(t, Status(3), Status_AlreadyCreated)
	require.Equal(t, Status(12), Status_FunctionNotFound)
	require.Equal(t, Status(-1), Status_Unknown)
	require.ErrorIs(t, Status_AlreadyCreated.Err(), Status_AlreadyCreated)
	require.Equal(t, "unknown error", Status(99).Error())
}

func TestErrors(t *testing.T) {
	err := error(&InitError{Err: Status_MemoryAlloc})
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, err, Status_MemoryAlloc)

	err = &OpError{Op: "create", Target: 0x1000, Err: Status_UnsupportedFunction}
	require.Equal(t, "create hook at 0x1000: target cannot be hooked", err.Error())
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, Status_UnsupportedFunction, opErr.Err)

	require.ErrorIs(t, &CommitError{Err: Status_NotCreated}, Status_NotCreated)
}
