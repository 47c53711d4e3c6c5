// handler_table.go - Fixed-capacity device IRQ handler table

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

// HandlerTable maps device IRQ numbers to handlers. Capacity is fixed
// at MAX_IRQ_COUNT and every entry is an independent atomic cell, so
// register, unregister and dispatch are safe from any hart without a
// lock. A register on hart A is visible to a subsequent dispatch on
// hart B once the register call has returned and a synchronizing event
// (in practice the PLIC enable that follows registration) has occurred.
type HandlerTable struct {
	handlers [MAX_IRQ_COUNT]atomic.Pointer[IrqHandler]
}

// NewHandlerTable returns an empty table. Tables are process-lifetime
// objects: initialized empty at boot, populated lazily, never torn
// down during normal operation.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{}
}

// Register installs a handler for the given device IRQ. It fails if
// the IRQ is out of range or already mapped; on failure nothing
// changes and the previously installed handler (if any) remains the
// one dispatched.
func (t *HandlerTable) Register(irq int, handler IrqHandler) bool {
	if irq <= 0 || irq >= MAX_IRQ_COUNT || handler == nil {
		return false
	}
	return t.handlers[irq].CompareAndSwap(nil, &handler)
}

// Unregister removes and returns the handler mapped to the given IRQ,
// or nil if the IRQ is unmapped or out of range. Unregistering an
// unmapped IRQ is a no-op.
func (t *HandlerTable) Unregister(irq int) IrqHandler {
	if irq <= 0 || irq >= MAX_IRQ_COUNT {
		return nil
	}
	prev := t.handlers[irq].Swap(nil)
	if prev == nil {
		return nil
	}
	return *prev
}

// Handle invokes the handler mapped to the given IRQ and reports
// whether one ran. An unmapped IRQ is a benign spurious condition, not
// an error: the caller simply gets false.
func (t *HandlerTable) Handle(irq int) bool {
	if irq <= 0 || irq >= MAX_IRQ_COUNT {
		return false
	}
	h := t.handlers[irq].Load()
	if h == nil {
		return false
	}
	(*h)()
	return true
}

// Registered reports whether the given IRQ currently has a handler.
func (t *HandlerTable) Registered(irq int) bool {
	if irq <= 0 || irq >= MAX_IRQ_COUNT {
		return false
	}
	return t.handlers[irq].Load() != nil
}
