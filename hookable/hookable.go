package hookable

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"unsafe"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/module"
	"github.com/wnxd/microhook/pattern"
	"go.uber.org/zap"
)

var (
	ErrBusy          = errors.New("module is being hooked or unhooked")
	ErrAlreadyHooked = errors.New("module already hooked")
	ErrUnknownEntry  = errors.New("unknown hook entry")
)

const codeMode = int(unsafe.Sizeof(uintptr(0))) * 8

type Env struct {
	Engine  hook.Engine
	Invoker hook.Invoker
	Loader  module.Loader
	Log     *zap.Logger
}

// Hookable is what the watcher drives.
type Hookable interface {
	Name() string
	Hook(info module.Info) error
	Unhook() error
	Info() (module.Info, bool)
	ShouldAdopt(candidate module.Info) bool
	PickBest(candidates []module.Info) (module.Info, bool)
}

// Entry describes one function of a module. A nil Detour only captures the address.
type Entry struct {
	Name    string
	Locate  Locator
	Calling hook.Calling
	Detour  any
}

// Resolved holds the addresses found in one module. Missing names were not found.
type Resolved struct {
	Info  module.Info
	Addrs map[string]uintptr
}

type Option[S any] func(*Module[S])

// OnHook runs extra resolution while hooking. The state it fills in is published together
// with the trampolines.
func OnHook[S any](fn func(in module.Inspector, r Resolved, s *S)) Option[S] {
	return func(m *Module[S]) {
		m.onHook = fn
	}
}

// Module is the generic hook lifecycle for one kind of loaded module, with detour state S.
type Module[S any] struct {
	name    string
	env     Env
	log     *zap.Logger
	filter  NameFilter
	entries []Entry
	byName  map[string]int
	onHook  func(in module.Inspector, r Resolved, s *S)
	detours []hook.Function

	mu     sync.RWMutex
	slots  []hook.Function
	state  S
	status State
	info   module.Info
	index  int
}

var _ Hookable = (*Module[struct{}])(nil)

func New[S any](env Env, name string, filter NameFilter, entries []Entry, opts ...Option[S]) *Module[S] {
	m := &Module[S]{
		name:    name,
		env:     env,
		log:     env.Log.Named(name),
		filter:  filter,
		entries: entries,
		byName:  make(map[string]int, len(entries)),
		detours: make([]hook.Function, len(entries)),
		slots:   make([]hook.Function, len(entries)),
		index:   -1,
	}
	for i, e := range entries {
		m.byName[e.Name] = i
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module[S]) Name() string {
	return m.name
}

func (m *Module[S]) Env() Env {
	return m.env
}

func (m *Module[S]) Logger() *zap.Logger {
	return m.log
}

func (m *Module[S]) Entries() []Entry {
	return m.entries
}

// Resolve locates every entry in the module without touching it.
func (m *Module[S]) Resolve(in module.Inspector) Resolved {
	r := Resolved{Info: in.Info, Addrs: make(map[string]uintptr, len(m.entries))}
	for _, e := range m.entries {
		addr, ok := e.Locate.Locate(in)
		if !ok {
			m.log.Warn("function not found", zap.String("function", e.Name), zap.Stringer("locator", e.Locate), zap.Stringer("module", in.Info))
			continue
		}
		r.Addrs[e.Name] = addr
		fields := []zap.Field{zap.String("function", e.Name), zap.String("addr", fmt.Sprintf("%#x", addr))}
		if code, ok := in.Read(addr, min(16, int(in.Base+in.Size-addr))); ok {
			if n := pattern.InstructionLen(code, codeMode); n > 0 {
				fields = append(fields, zap.Int("first_insn", n))
			}
		}
		m.log.Debug("function found", fields...)
	}
	return r
}

func (m *Module[S]) detour(i int) (hook.Function, error) {
	if !m.detours[i].IsDefault() {
		return m.detours[i], nil
	}
	e := m.entries[i]
	fn, err := m.env.Invoker.Callback(e.Calling, e.Detour)
	if err != nil {
		return hook.Function{}, err
	}
	m.detours[i] = fn
	return fn, nil
}

// Hook installs every resolvable detour into the module described by info and commits
// them together. Functions that cannot be found or hooked are skipped.
func (m *Module[S]) Hook(info module.Info) error {
	m.mu.Lock()
	switch m.status {
	case State_Unhooked:
		m.status = State_Hooking
	case State_Hooked:
		m.mu.Unlock()
		return ErrAlreadyHooked
	default:
		m.mu.Unlock()
		return ErrBusy
	}
	m.mu.Unlock()

	m.log.Info("hooking", zap.Stringer("module", info))
	in := module.Inspect(m.env.Loader, info)
	resolved := m.Resolve(in)

	var errs []error
	slots := make([]hook.Function, len(m.entries))
	targets := make(map[int]uintptr)
	for i, e := range m.entries {
		addr, ok := resolved.Addrs[e.Name]
		if !ok {
			continue
		}
		if e.Detour == nil {
			slots[i] = hook.NewFunction(e.Calling, addr)
			continue
		}
		detour, err := m.detour(i)
		if err != nil {
			m.log.Warn("detour unavailable", zap.String("function", e.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			continue
		}
		if err = m.env.Engine.CreateHook(addr, detour, &slots[i]); err != nil {
			m.log.Error("create hook failed", zap.String("function", e.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			if errors.Is(err, hook.ErrNotInitialized) {
				break
			}
			continue
		}
		targets[i] = addr
	}

	var st S
	if m.onHook != nil {
		m.onHook(in, resolved, &st)
	}
	m.mu.Lock()
	m.slots = slots
	m.state = st
	m.mu.Unlock()

	for i, e := range m.entries {
		addr, ok := targets[i]
		if !ok {
			continue
		}
		if err := m.env.Engine.QueueEnable(addr); err != nil {
			m.log.Error("enable hook failed", zap.String("function", e.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			m.mu.Lock()
			tramp := m.slots[i]
			m.slots[i] = hook.Function{}
			m.mu.Unlock()
			if err = m.env.Engine.RemoveHook(tramp); err != nil {
				m.log.Error("remove hook failed", zap.String("function", e.Name), zap.Error(err))
			}
			delete(targets, i)
		}
	}
	if len(targets) > 0 {
		if err := m.env.Engine.ApplyQueued(); err != nil {
			m.log.Error("commit failed, hooks may be partially enabled", zap.Error(err))
			errs = append(errs, err)
		}
	}

	index, ok := m.filter.Index(info.Name())
	if !ok {
		index = -1
	}
	m.mu.Lock()
	m.info = info
	m.index = index
	m.status = State_Hooked
	m.mu.Unlock()
	m.log.Info("hooked", zap.Stringer("module", info), zap.Int("detours", len(targets)))
	return errors.Join(errs...)
}

// Unhook disables and removes every installed detour, then resets the module to its
// initial state. Detours already running may still finish on the old trampolines.
func (m *Module[S]) Unhook() error {
	m.mu.Lock()
	switch m.status {
	case State_Hooked:
		m.status = State_Unhooking
	case State_Unhooked:
		m.mu.Unlock()
		return nil
	default:
		m.mu.Unlock()
		return ErrBusy
	}
	slots := slices.Clone(m.slots)
	info := m.info
	m.mu.Unlock()

	m.log.Info("unhooking", zap.Stringer("module", info))
	var errs []error
	var installed []int
	for i, e := range m.entries {
		if e.Detour == nil || slots[i].IsDefault() {
			continue
		}
		if err := m.env.Engine.QueueDisable(slots[i]); err != nil {
			m.log.Error("disable hook failed", zap.String("function", e.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
		installed = append(installed, i)
	}
	if len(installed) > 0 {
		if err := m.env.Engine.ApplyQueued(); err != nil {
			m.log.Error("commit failed, hooks may be partially disabled", zap.Error(err))
			errs = append(errs, err)
		}
	}

	var zero S
	m.mu.Lock()
	m.slots = make([]hook.Function, len(m.entries))
	m.state = zero
	m.mu.Unlock()

	for _, i := range installed {
		if err := m.env.Engine.RemoveHook(slots[i]); err != nil {
			m.log.Error("remove hook failed", zap.String("function", m.entries[i].Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", m.entries[i].Name, err))
		}
	}

	m.mu.Lock()
	m.info = module.Info{}
	m.index = -1
	m.status = State_Unhooked
	m.mu.Unlock()
	m.log.Info("unhooked", zap.Stringer("module", info))
	return errors.Join(errs...)
}

func (m *Module[S]) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Module[S]) Info() (module.Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info, m.status == State_Hooked
}

func (m *Module[S]) NameIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

func (m *Module[S]) ShouldAdopt(candidate module.Info) bool {
	return m.filter.ShouldAdopt(m.NameIndex(), candidate)
}

func (m *Module[S]) PickBest(candidates []module.Info) (module.Info, bool) {
	return m.filter.PickBest(candidates)
}

// Original returns the trampoline, or the captured address for resolve-only entries.
func (m *Module[S]) Original(name string) hook.Function {
	i, ok := m.byName[name]
	if !ok {
		return hook.Function{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[i]
}

func (m *Module[S]) Installed(name string) bool {
	return !m.Original(name).IsDefault()
}

// Call invokes the original of name. No lock is held during the call.
func (m *Module[S]) Call(name string, args ...uintptr) (uintptr, error) {
	if _, ok := m.byName[name]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntry, name)
	}
	return m.env.Invoker.Call(m.Original(name), args...)
}

// Update runs fn with exclusive access to the detour state.
func (m *Module[S]) Update(fn func(s *S)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

// View runs fn with shared access to the detour state. fn must not modify it.
func (m *Module[S]) View(fn func(s *S)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&m.state)
}
