package server

import (
	"encoding/binary"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/module"
	"go.uber.org/zap"
)

const (
	Name = "server"

	CheckJumpButton = "CHL1GameMovement::CheckJumpButton"
	FinishGravity   = "CGameMovement::FinishGravity"

	FeatureAutojump = "autojump"

	offMv         = 4
	offOldButtons = 40
	inJump        = 1 << 1
)

var Names = hookable.NameFilter{"server.dll"}

var (
	sigCheckJumpButton = hookable.Sig("83 EC 14 53 56 8B F1 57 8B 7E 08 85 FF 74 12 8B 07 8B CF FF 90 60 01 00 00 84 C0 74 04 8B CF EB")
	sigFinishGravity   = hookable.Sig("8B 51 08 D9 82 B0 0B 00 00 D8 1D ?? ?? ?? ?? DF E0 F6 C4 44 7A 4D D9 82 08 02 00 00 D8 1D")
)

type Features interface {
	IsEnabled(name string) bool
}

// State links the two movement detours: FinishGravity running inside CheckJumpButton
// means the player jumped this tick.
type State struct {
	InsideJumpCheck bool
	JumpedLastTick  bool
}

type Server struct {
	*hookable.Module[State]
	features Features
}

func New(env hookable.Env, features Features) *Server {
	s := &Server{features: features}
	s.Module = hookable.New[State](env, Name, Names, []hookable.Entry{
		{Name: CheckJumpButton, Locate: sigCheckJumpButton, Calling: hook.Calling_Fastcall, Detour: s.checkJumpButton},
		{Name: FinishGravity, Locate: sigFinishGravity, Calling: hook.Calling_Fastcall, Detour: s.finishGravity},
	})
	return s
}

// oldButtons returns the mv->m_nOldButtons field of the movement object this.
func (s *Server) oldButtons(this uintptr) []byte {
	loader := s.Env().Loader
	mv, err := module.ReadPtr(loader, this+offMv)
	if err != nil || mv == 0 {
		s.Logger().Debug("movement data unreadable", zap.Uintptr("this", this), zap.Error(err))
		return nil
	}
	b, err := loader.Memory(mv+offOldButtons, 4)
	if err != nil {
		return nil
	}
	return b
}

func (s *Server) checkJumpButton(this uintptr) uintptr {
	autojump := s.features.IsEnabled(FeatureAutojump)
	var buttons []byte
	var orig uint32
	if autojump {
		if buttons = s.oldButtons(this); buttons != nil {
			orig = binary.LittleEndian.Uint32(buttons)
		}
	}
	s.Update(func(st *State) {
		if autojump {
			// a jump last tick makes this the release tick
			if buttons != nil && !st.JumpedLastTick {
				binary.LittleEndian.PutUint32(buttons, orig&^inJump)
			}
			st.JumpedLastTick = false
		}
		st.InsideJumpCheck = true
	})

	if _, err := s.Call(CheckJumpButton, this); err != nil {
		s.Logger().Error("call CheckJumpButton", zap.Error(err))
	}

	var jumped bool
	s.Update(func(st *State) {
		st.InsideJumpCheck = false
		jumped = st.JumpedLastTick
	})
	if autojump && buttons != nil && !jumped {
		binary.LittleEndian.PutUint32(buttons, orig)
	}
	return 0
}

func (s *Server) finishGravity(this uintptr) uintptr {
	if s.features.IsEnabled(FeatureAutojump) {
		s.Update(func(st *State) {
			if st.InsideJumpCheck {
				st.JumpedLastTick = true
			}
		})
	}
	if _, err := s.Call(FinishGravity, this); err != nil {
		s.Logger().Error("call FinishGravity", zap.Error(err))
	}
	return 0
}
