// plic_driver.go - Kernel-side PLIC gateway (the shared controller handle)

/*
 _   _    _    ____ _____   _____ _   _  ____ ___ _   _ _____
| | | |  / \  |  _ \_   _| | ____| \ | |/ ___|_ _| \ | | ____|
| |_| | / _ \ | |_) || |   |  _| |  \| | |  _ | ||  \| |  _|
|  _  |/ ___ \|  _ < | |   | |___| |\  | |_| || || |\  | |___
|_| |_/_/   \_\_| \_\|_|   |_____|_| \_|\____|___|_| \_|_____|

(c) 2025 - 2026 The HartEngine Authors
https://github.com/hartengine/HartEngine
License: GPLv3 or later
*/

package main

// PLIC register map, relative to the controller base. Priority is one
// word per source; enable bits are one word per 32 sources with a
// per-context stride; threshold and claim/complete share a per-context
// block.
const (
	PLIC_PRIORITY_BASE  uint64 = 0x000000
	PLIC_PENDING_BASE   uint64 = 0x001000
	PLIC_ENABLE_BASE    uint64 = 0x002000
	PLIC_ENABLE_STRIDE  uint64 = 0x80
	PLIC_CONTEXT_BASE   uint64 = 0x200000
	PLIC_CONTEXT_STRIDE uint64 = 0x1000
)

// PlicHandle is the single shared handle to the external interrupt
// controller. It is constructed exactly once at boot from the fixed
// physical base translated through PHYS_VIRT_OFFSET, and every
// operation serializes on a SpinNoIrq so a trap taken while the lock
// is held on the same hart cannot recurse into the controller.
//
// Claim and Complete each hold the lock only for their own register
// access. The handler invocation between them runs unlocked, so a
// handler may itself register or unregister IRQs without deadlocking.
type PlicHandle struct {
	bus  Bus32
	base uint64
	lock *SpinNoIrq
}

// NewPlicHandle constructs the controller handle at the given virtual
// base address. local provides the interrupt deferral for the internal
// lock; nil is acceptable for isolated tests.
func NewPlicHandle(bus Bus32, base uint64, local LocalIrqControl) *PlicHandle {
	return &PlicHandle{
		bus:  bus,
		base: base,
		lock: NewSpinNoIrq(local),
	}
}

// Register accessors. Callers must hold the lock; these do raw bus
// traffic only.

func (p *PlicHandle) priorityReg(irq int) uint64 {
	return p.base + PLIC_PRIORITY_BASE + uint64(irq)*4
}

func (p *PlicHandle) enableReg(irq, context int) uint64 {
	return p.base + PLIC_ENABLE_BASE + uint64(context)*PLIC_ENABLE_STRIDE + uint64(irq/32)*4
}

func (p *PlicHandle) thresholdReg(context int) uint64 {
	return p.base + PLIC_CONTEXT_BASE + uint64(context)*PLIC_CONTEXT_STRIDE
}

func (p *PlicHandle) claimReg(context int) uint64 {
	return p.thresholdReg(context) + 4
}

// SetPriority sets a source's priority level.
func (p *PlicHandle) SetPriority(irq int, level uint32) {
	guard := p.lock.Lock()
	defer guard.Unlock()
	p.bus.Write32(p.priorityReg(irq), level)
}

// EnableWithPriority enables a source for the given context and sets
// the fixed non-zero priority. A zero-priority line is masked at the
// controller regardless of the enable bit, so the two writes belong to
// one critical section.
func (p *PlicHandle) EnableWithPriority(irq, context int) {
	guard := p.lock.Lock()
	defer guard.Unlock()
	p.bus.Write32(p.priorityReg(irq), PLIC_ENABLE_PRIORITY)
	reg := p.enableReg(irq, context)
	p.bus.Write32(reg, p.bus.Read32(reg)|1<<(uint(irq)%32))
}

// Disable clears a source's enable bit for the given context. The
// priority is left as is; the enable bit alone masks the line for this
// context.
func (p *PlicHandle) Disable(irq, context int) {
	guard := p.lock.Lock()
	defer guard.Unlock()
	reg := p.enableReg(irq, context)
	p.bus.Write32(reg, p.bus.Read32(reg)&^(1<<(uint(irq)%32)))
}

// Claim asks the controller for the next pending line for the given
// context. Returns 0 on a spurious wake (nothing pending); callers
// treat that as non-fatal and stop processing.
func (p *PlicHandle) Claim(context int) int {
	guard := p.lock.Lock()
	defer guard.Unlock()
	return int(p.bus.Read32(p.claimReg(context)))
}

// Complete acknowledges service of a claimed line. Must be called
// exactly once per successful Claim, with the same irq and context,
// after the handler has run. Skipping it leaves the controller
// believing the line is still being serviced and starves the line.
func (p *PlicHandle) Complete(context, irq int) {
	guard := p.lock.Lock()
	defer guard.Unlock()
	p.bus.Write32(p.claimReg(context), uint32(irq))
}

// InitByContext makes a context eligible to receive interrupts by
// zeroing its priority threshold. Called once per hart from
// InitPercpu.
func (p *PlicHandle) InitByContext(context int) {
	guard := p.lock.Lock()
	defer guard.Unlock()
	p.bus.Write32(p.thresholdReg(context), 0)
}
