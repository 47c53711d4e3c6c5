// hart.go - Per-hart interrupt state and controller-context addressing

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

import "sync/atomic"

// CpuIdSource supplies the logical id of the hart currently executing
// the caller. Boot/percpu enumeration owns this knowledge; the
// dispatch layer consults it fresh on every use and never caches the
// result across calls, since the caller may migrate between harts.
type CpuIdSource interface {
	ThisCpuId() int
}

// Hart models the supervisor-visible interrupt state of one hardware
// thread: the sie class-enable bits, the sip pending bits, and the
// sstatus.SIE master delivery switch. All fields are atomics because
// device models assert pending lines from other goroutines while the
// hart's own trap path reads them.
type Hart struct {
	id int

	sie atomic.Uint32 // class enables (SIE_SSIE | SIE_STIE | SIE_SEIE)
	sip atomic.Uint32 // pending lines, driven by CLINT and PLIC
	// sstatus.SIE - master local delivery enable. Off while a trap is
	// being serviced and while a SpinNoIrq guard is held.
	localEnable atomic.Bool
}

// NewHart returns a hart with all interrupt classes disabled and local
// delivery on, matching the state trap-return leaves behind at boot.
func NewHart(id int) *Hart {
	h := &Hart{id: id}
	h.localEnable.Store(true)
	return h
}

// Id returns the hart's logical id.
func (h *Hart) Id() int { return h.id }

// supervisorContext derives the PLIC context index for a hart's
// supervisor mode. Context 0 belongs to hart 0's machine mode, which
// the controller reserves for non-supervisor use, so hart ids are
// offset by one before doubling: distinct harts always map to
// distinct, non-zero contexts.
func supervisorContext(hartID int) int {
	return 2 * (hartID + 1)
}

// SetSie sets the given sie class bits.
func (h *Hart) SetSie(bits uint32) {
	for {
		old := h.sie.Load()
		if h.sie.CompareAndSwap(old, old|bits) {
			return
		}
	}
}

// ClearSie clears the given sie class bits.
func (h *Hart) ClearSie(bits uint32) {
	for {
		old := h.sie.Load()
		if h.sie.CompareAndSwap(old, old&^bits) {
			return
		}
	}
}

// SieEnabled reports whether all of the given class bits are enabled.
func (h *Hart) SieEnabled(bits uint32) bool {
	return h.sie.Load()&bits == bits
}

// SetPending asserts or deasserts a sip pending bit. Device models
// (CLINT for software/timer, PLIC for external) are the only callers.
func (h *Hart) SetPending(bit uint32, asserted bool) {
	for {
		old := h.sip.Load()
		next := old | bit
		if !asserted {
			next = old &^ bit
		}
		if h.sip.CompareAndSwap(old, next) {
			return
		}
	}
}

// LocalIrqSave disables local delivery and returns the previous state.
func (h *Hart) LocalIrqSave() bool {
	return h.localEnable.Swap(false)
}

// LocalIrqRestore restores a state returned by LocalIrqSave.
func (h *Hart) LocalIrqRestore(enabled bool) {
	h.localEnable.Store(enabled)
}

// LocalIrqEnabled reports whether the hart currently accepts delivery.
func (h *Hart) LocalIrqEnabled() bool {
	return h.localEnable.Load()
}

// PendingCause returns the scause word for the highest priority
// pending-and-enabled interrupt class, or 0 if nothing is deliverable.
// External outranks software outranks timer, matching the hardware's
// fixed class ordering.
func (h *Hart) PendingCause() uint64 {
	pending := h.sip.Load() & h.sie.Load()
	switch {
	case pending&SIE_SEIE != 0:
		return CAUSE_S_EXT
	case pending&SIE_SSIE != 0:
		return CAUSE_S_SOFT
	case pending&SIE_STIE != 0:
		return CAUSE_S_TIMER
	}
	return 0
}
