// Package hooktest provides in-memory stand-ins for the native hook primitive and
// calling-convention bridge.
package hooktest

import (
	"sync"

	"github.com/wnxd/microhook/hook"
)

const trampolineBase = 0x7E000000

type entry struct {
	target     uintptr
	detour     uintptr
	trampoline uintptr
	enabled    bool
	pending    *bool
}

// Primitive mimics the MinHook status semantics without patching memory.
type Primitive struct {
	mu sync.Mutex

	InitErr   error
	CommitErr error
	CreateErr map[uintptr]error
	EnableErr map[uintptr]error

	initialized bool
	inits       int
	commits     int
	next        uintptr
	hooks       map[uintptr]*entry
}

var _ hook.Primitive = (*Primitive)(nil)

func NewPrimitive() *Primitive {
	return &Primitive{
		CreateErr: make(map[uintptr]error),
		EnableErr: make(map[uintptr]error),
		next:      trampolineBase,
		hooks:     make(map[uintptr]*entry),
	}
}

func (p *Primitive) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	if p.InitErr != nil {
		return p.InitErr
	}
	if p.initialized {
		return hook.Status_AlreadyInitialized
	}
	p.initialized = true
	return nil
}

func (p *Primitive) Uninitialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return hook.Status_NotInitialized
	}
	p.initialized = false
	clear(p.hooks)
	return nil
}

func (p *Primitive) CreateHook(target, detour uintptr) (uintptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return 0, hook.Status_NotInitialized
	}
	if err := p.CreateErr[target]; err != nil {
		return 0, err
	}
	if _, ok := p.hooks[target]; ok {
		return 0, hook.Status_AlreadyCreated
	}
	p.next += 0x10
	p.hooks[target] = &entry{target: target, detour: detour, trampoline: p.next}
	return p.next, nil
}

func (p *Primitive) RemoveHook(target uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.hooks[target]; !ok {
		return hook.Status_NotCreated
	}
	delete(p.hooks, target)
	return nil
}

func (p *Primitive) QueueEnableHook(target uintptr) error {
	return p.queue(target, true)
}

func (p *Primitive) QueueDisableHook(target uintptr) error {
	return p.queue(target, false)
}

func (p *Primitive) queue(target uintptr, enable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enable {
		if err := p.EnableErr[target]; err != nil {
			return err
		}
	}
	e, ok := p.hooks[target]
	if !ok {
		return hook.Status_NotCreated
	}
	e.pending = &enable
	return nil
}

func (p *Primitive) ApplyQueued() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commits++
	if p.CommitErr != nil {
		return p.CommitErr
	}
	for _, e := range p.hooks {
		if e.pending != nil {
			e.enabled = *e.pending
			e.pending = nil
		}
	}
	return nil
}

func (p *Primitive) Inits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

func (p *Primitive) Commits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commits
}

// Installed counts created hooks, enabled or not.
func (p *Primitive) Installed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hooks)
}

func (p *Primitive) Enabled(target uintptr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.hooks[target]
	return ok && e.enabled
}

// Route resolves where a call to addr lands: an enabled hook redirects its target to the
// detour, a trampoline leads to the unhooked target.
func (p *Primitive) Route(addr uintptr) (uintptr, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.hooks[addr]; ok && e.enabled {
		return e.detour, false
	}
	for _, e := range p.hooks {
		if e.trampoline == addr {
			return e.target, true
		}
	}
	return addr, false
}
