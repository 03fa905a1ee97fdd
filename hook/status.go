package hook

// Status is the result code of the low-level hook primitive.
type Status int

const (
	Status_Unknown Status = iota - 1
	Status_OK
	Status_AlreadyInitialized
	Status_NotInitialized
	Status_AlreadyCreated
	Status_NotCreated
	Status_Enabled
	Status_Disabled
	Status_NotExecutable
	Status_UnsupportedFunction
	Status_MemoryAlloc
	Status_MemoryProtect
	Status_ModuleNotFound
	Status_FunctionNotFound
)

// Err maps Status_OK to nil.
func (s Status) Err() error {
	if s == Status_OK {
		return nil
	}
	return s
}

func (s Status) Error() string {
	switch s {
	case Status_OK:
		return "ok"
	case Status_AlreadyInitialized:
		return "already initialized"
	case Status_NotInitialized:
		return "not initialized"
	case Status_AlreadyCreated:
		return "hook already created"
	case Status_NotCreated:
		return "hook not created"
	case Status_Enabled:
		return "hook already enabled"
	case Status_Disabled:
		return "hook not enabled"
	case Status_NotExecutable:
		return "target not executable"
	case Status_UnsupportedFunction:
		return "target cannot be hooked"
	case Status_MemoryAlloc:
		return "memory allocation failed"
	case Status_MemoryProtect:
		return "memory protection change failed"
	case Status_ModuleNotFound:
		return "module not found"
	case Status_FunctionNotFound:
		return "function not found"
	}
	return "unknown error"
}
