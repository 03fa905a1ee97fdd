package detour

import (
	"sync"
	"sync/atomic"

	"github.com/wnxd/microhook/hook"
	"go.uber.org/zap"
)

// Engine is the process-wide hook.Engine over a hook.Primitive. The primitive is
// initialized lazily on first use and the outcome is kept for the lifetime of the engine.
type Engine struct {
	prim hook.Primitive
	log  *zap.Logger

	once    sync.Once
	initErr error
	ready   atomic.Bool

	mu          sync.RWMutex
	trampolines map[uintptr]uintptr
}

var _ hook.Engine = (*Engine)(nil)

func New(prim hook.Primitive, log *zap.Logger) *Engine {
	return &Engine{
		prim:        prim,
		log:         log.Named("detour"),
		trampolines: make(map[uintptr]uintptr),
	}
}

func (e *Engine) init() error {
	e.once.Do(func() {
		if err := e.prim.Initialize(); err != nil {
			e.initErr = &hook.InitError{Err: err}
			e.log.Error("hook engine initialization failed", zap.Error(err))
			return
		}
		e.ready.Store(true)
		e.log.Debug("hook engine initialized")
	})
	return e.initErr
}

// Initialized forces initialization and reports its cached result.
func (e *Engine) Initialized() error {
	return e.init()
}

func (e *Engine) CreateHook(target uintptr, detour hook.Function, trampoline *hook.Function) error {
	if err := e.init(); err != nil {
		return err
	}
	if detour.IsDefault() {
		return &hook.OpError{Op: "create", Target: target, Err: hook.ErrUnavailable}
	}
	tramp, err := e.prim.CreateHook(target, detour.Addr())
	if err != nil {
		return &hook.OpError{Op: "create", Target: target, Err: err}
	}
	e.mu.Lock()
	e.trampolines[tramp] = target
	e.mu.Unlock()
	*trampoline = hook.NewFunction(detour.Calling(), tramp)
	return nil
}

func (e *Engine) QueueEnable(target uintptr) error {
	if err := e.init(); err != nil {
		return err
	}
	if err := e.prim.QueueEnableHook(target); err != nil {
		return &hook.OpError{Op: "enable", Target: target, Err: err}
	}
	return nil
}

// QueueDisable queues the hook that produced trampoline for disabling.
// A default trampoline was never hooked and there is nothing to disable.
func (e *Engine) QueueDisable(trampoline hook.Function) error {
	if err := e.init(); err != nil {
		return err
	}
	if trampoline.IsDefault() {
		return nil
	}
	target, ok := e.Target(trampoline)
	if !ok {
		return hook.ErrHookNotFound
	}
	if err := e.prim.QueueDisableHook(target); err != nil {
		return &hook.OpError{Op: "disable", Target: target, Err: err}
	}
	return nil
}

func (e *Engine) ApplyQueued() error {
	if err := e.init(); err != nil {
		return err
	}
	if err := e.prim.ApplyQueued(); err != nil {
		return &hook.CommitError{Err: err}
	}
	return nil
}

func (e *Engine) RemoveHook(trampoline hook.Function) error {
	if err := e.init(); err != nil {
		return err
	}
	if trampoline.IsDefault() {
		return nil
	}
	e.mu.Lock()
	target, ok := e.trampolines[trampoline.Addr()]
	delete(e.trampolines, trampoline.Addr())
	e.mu.Unlock()
	if !ok {
		return hook.ErrHookNotFound
	}
	if err := e.prim.RemoveHook(target); err != nil {
		return &hook.OpError{Op: "remove", Target: target, Err: err}
	}
	return nil
}

// Uninitialize tears the primitive down. It does nothing unless initialization succeeded.
func (e *Engine) Uninitialize() error {
	if !e.ready.Swap(false) {
		return nil
	}
	e.mu.Lock()
	clear(e.trampolines)
	e.mu.Unlock()
	return e.prim.Uninitialize()
}

func (e *Engine) Target(trampoline hook.Function) (uintptr, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	target, ok := e.trampolines[trampoline.Addr()]
	return target, ok
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.trampolines)
}
