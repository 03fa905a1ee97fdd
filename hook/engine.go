package hook

// Primitive is the low-level inline hook installer. Every method returns nil or a Status.
type Primitive interface {
	Initialize() error
	Uninitialize() error
	CreateHook(target, detour uintptr) (uintptr, error)
	RemoveHook(target uintptr) error
	QueueEnableHook(target uintptr) error
	QueueDisableHook(target uintptr) error
	ApplyQueued() error
}

// Engine installs detours and remembers which target each trampoline belongs to.
type Engine interface {
	CreateHook(target uintptr, detour Function, trampoline *Function) error
	QueueEnable(target uintptr) error
	QueueDisable(trampoline Function) error
	ApplyQueued() error
	RemoveHook(trampoline Function) error
	Uninitialize() error
}

// Invoker bridges native calling conventions.
type Invoker interface {
	Call(fn Function, args ...uintptr) (uintptr, error)
	Callback(c Calling, fn any) (Function, error)
}
