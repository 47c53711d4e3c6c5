// irq_lock.go - Interrupt-deferring spin lock for the shared controller handle

package main

import (
	"runtime"
	"sync/atomic"
)

// LocalIrqControl masks interrupt delivery on the hart executing the
// caller. The dispatch layer never caches the executing hart across
// calls; implementations must resolve it fresh each time.
type LocalIrqControl interface {
	// LocalIrqSave disables local interrupt delivery and returns the
	// previous enable state.
	LocalIrqSave() bool

	// LocalIrqRestore restores a state previously returned by
	// LocalIrqSave.
	LocalIrqRestore(enabled bool)
}

// SpinNoIrq is the mutual-exclusion primitive guarding the shared PLIC
// handle. Acquisition disables local interrupt delivery for the
// holder, so an interrupt taken on the same hart cannot re-enter the
// critical section and deadlock on its own lock. Critical sections are
// bounded register accesses; handler execution never runs under this
// lock (see InterruptCore.Handle).
type SpinNoIrq struct {
	locked atomic.Bool
	local  LocalIrqControl
}

// NewSpinNoIrq returns a lock that defers interrupts through the given
// control. A nil control yields a plain spin lock (isolated unit tests
// that construct no harts).
func NewSpinNoIrq(local LocalIrqControl) *SpinNoIrq {
	return &SpinNoIrq{local: local}
}

// IrqGuard is the critical-section token. Every exit path of a guarded
// section must call Unlock exactly once; the guard restores the saved
// interrupt state even when the section returns early.
type IrqGuard struct {
	lock       *SpinNoIrq
	wasEnabled bool
}

// Lock disables local interrupt delivery, then spins until the lock is
// acquired. Local interrupts go off before the spin so a trap taken
// mid-acquisition cannot recurse into a claim on the same hart.
func (l *SpinNoIrq) Lock() IrqGuard {
	wasEnabled := false
	if l.local != nil {
		wasEnabled = l.local.LocalIrqSave()
	}
	for !l.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return IrqGuard{lock: l, wasEnabled: wasEnabled}
}

// Unlock releases the lock and restores the interrupt state saved at
// acquisition.
func (g IrqGuard) Unlock() {
	g.lock.locked.Store(false)
	if g.lock.local != nil {
		g.lock.local.LocalIrqRestore(g.wasEnabled)
	}
}
