// handler_slot.go - Single-slot handler registries for timer and IPI interrupts

package main

import "sync/atomic"

// IrqHandler is an opaque no-argument callback installed by a kernel
// subsystem. The registration contract requires a handler to remain
// valid for the lifetime of the process: the dispatch layer references
// it but never copies, owns or frees it.
type IrqHandler func()

// HandlerSlot holds at most one installed IrqHandler. Timer and IPI
// interrupts are per-hart but conceptually singular sources - the
// kernel installs exactly one dispatcher for each, which demultiplexes
// internally if it needs to. A full table would be over-general here,
// so the slot is a single lock-free atomic cell.
type HandlerSlot struct {
	h atomic.Pointer[IrqHandler]
}

// Install sets the slot if it is currently empty. Returns false (with
// no side effect) if a handler is already installed.
func (s *HandlerSlot) Install(handler IrqHandler) bool {
	if handler == nil {
		return false
	}
	return s.h.CompareAndSwap(nil, &handler)
}

// Remove empties the slot unconditionally and returns whatever was
// installed, or nil if the slot was already empty.
func (s *HandlerSlot) Remove() IrqHandler {
	prev := s.h.Swap(nil)
	if prev == nil {
		return nil
	}
	return *prev
}

// InvokeIfPresent calls the installed handler, if any, and reports
// whether one was called. A load that observes an empty slot (racing a
// concurrent Remove) simply skips invocation; a load that observes a
// handler may call it safely because handlers are never reclaimed
// while the kernel runs.
func (s *HandlerSlot) InvokeIfPresent() bool {
	h := s.h.Load()
	if h == nil {
		return false
	}
	(*h)()
	return true
}

// Installed reports whether the slot currently holds a handler.
func (s *HandlerSlot) Installed() bool {
	return s.h.Load() != nil
}
