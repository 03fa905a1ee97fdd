//go:build !windows

package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnxd/microhook/hook"
)

func TestUnsupported(t *testing.T) {
	_, err := NewLoader().Modules()
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, NewMinHook("").Initialize(), ErrUnsupported)

	_, err = NewInvoker().Call(hook.Function{})
	require.ErrorIs(t, err, hook.ErrUnavailable)
	_, err = NewInvoker().Call(hook.NewFunction(hook.Calling_Cdecl, 0x1000))
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, MessageBox("x"), ErrUnsupported)
}
