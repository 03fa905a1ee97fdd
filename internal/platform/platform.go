// Package platform binds the agent to the operating system: module enumeration,
// the MinHook primitive, native calls and user-visible dialogs.
package platform

import "errors"

var ErrUnsupported = errors.New("platform unsupported")

const Caption = "HL:S OOE Autopause"
