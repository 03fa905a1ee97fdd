package hookable

type State int

const (
	State_Unhooked State = iota
	State_Hooking
	State_Hooked
	State_Unhooking
)

func (s State) String() string {
	switch s {
	case State_Unhooked:
		return "unhooked"
	case State_Hooking:
		return "hooking"
	case State_Hooked:
		return "hooked"
	case State_Unhooking:
		return "unhooking"
	}
	return "unknown"
}
