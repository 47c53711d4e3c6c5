// plic_device.go - Emulated platform-level interrupt controller

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

/*
plic_device.go - PLIC device model

Register-accurate model of the controller the gateway driver talks to:
per-source priority, pending bits, per-context enable bits, and the
per-context threshold + claim/complete block. Claim hands out the
highest-priority pending-and-enabled source above the context's
threshold and clears its pending bit; complete re-arms the source.

Beyond the hardware behavior the model keeps protocol bookkeeping the
real silicon does not expose: the outstanding claim per context and a
violation counter (claim while a claim is outstanding, complete of a
source that was not the outstanding claim). Tests use these to assert
the claim/complete discipline of the dispatch layer.
*/

package main

import (
	"sync"
	"sync/atomic"
)

// PlicDevice is the emulated controller. One instance is shared by all
// harts; the mutex orders concurrent register traffic the same way the
// real controller's bus port would.
type PlicDevice struct {
	mu          sync.Mutex
	numContexts int

	priority  [MAX_IRQ_COUNT]uint32
	pending   [MAX_IRQ_COUNT / 32]uint32
	enable    [][MAX_IRQ_COUNT / 32]uint32
	threshold []uint32

	// Outstanding claim per context (0 = none) and protocol violation
	// count. Bookkeeping only - the hardware would not notice.
	claimed    []int
	violations atomic.Int64

	// onLevel is invoked with the context index whenever that
	// context's external line level changes. The machine wires this to
	// the corresponding hart's SEIP bit.
	onLevel func(context int, asserted bool)
}

// NewPlicDevice builds a controller with enough contexts for numHarts
// harts (each hart owns machine and supervisor contexts; only the
// supervisor ones are used by this platform).
func NewPlicDevice(numHarts int, onLevel func(context int, asserted bool)) *PlicDevice {
	numContexts := supervisorContext(numHarts-1) + 1
	return &PlicDevice{
		numContexts: numContexts,
		enable:      make([][MAX_IRQ_COUNT / 32]uint32, numContexts),
		threshold:   makeThresholds(numContexts),
		claimed:     make([]int, numContexts),
		onLevel:     onLevel,
	}
}

// Contexts start fully masked: a context that was never initialized
// (threshold left at max) receives nothing, which is how the real
// controller behaves before init_by_context runs.
func makeThresholds(n int) []uint32 {
	t := make([]uint32, n)
	for i := range t {
		t[i] = ^uint32(0)
	}
	return t
}

// HandleRead decodes a read of the controller's register file. Wired
// into the machine bus as the region's onRead callback.
func (p *PlicDevice) HandleRead(offset uint64) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case offset < PLIC_PENDING_BASE:
		source := offset / 4
		if source < MAX_IRQ_COUNT {
			return p.priority[source]
		}

	case offset < PLIC_ENABLE_BASE:
		word := (offset - PLIC_PENDING_BASE) / 4
		if word < uint64(len(p.pending)) {
			return p.pending[word]
		}

	case offset < PLIC_CONTEXT_BASE:
		rel := offset - PLIC_ENABLE_BASE
		context := int(rel / PLIC_ENABLE_STRIDE)
		word := (rel % PLIC_ENABLE_STRIDE) / 4
		if context < p.numContexts && word < uint64(len(p.enable[0])) {
			return p.enable[context][word]
		}

	default:
		rel := offset - PLIC_CONTEXT_BASE
		context := int(rel / PLIC_CONTEXT_STRIDE)
		if context < p.numContexts {
			switch rel % PLIC_CONTEXT_STRIDE {
			case 0:
				return p.threshold[context]
			case 4:
				return p.claimLocked(context)
			}
		}
	}
	return 0
}

// HandleWrite decodes a write to the controller's register file. Wired
// into the machine bus as the region's onWrite callback.
func (p *PlicDevice) HandleWrite(offset uint64, value uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case offset < PLIC_PENDING_BASE:
		// Source 0 is reserved; priority capped at 3 bits.
		source := offset / 4
		if source > 0 && source < MAX_IRQ_COUNT {
			p.priority[source] = value & 7
		}

	case offset < PLIC_CONTEXT_BASE && offset >= PLIC_ENABLE_BASE:
		rel := offset - PLIC_ENABLE_BASE
		context := int(rel / PLIC_ENABLE_STRIDE)
		word := (rel % PLIC_ENABLE_STRIDE) / 4
		if context < p.numContexts && word < uint64(len(p.enable[0])) {
			p.enable[context][word] = value
		}

	default:
		rel := offset - PLIC_CONTEXT_BASE
		context := int(rel / PLIC_CONTEXT_STRIDE)
		if context < p.numContexts {
			switch rel % PLIC_CONTEXT_STRIDE {
			case 0:
				p.threshold[context] = value
			case 4:
				p.completeLocked(context, int(value))
			}
		}
	}

	p.updateLevelsLocked()
}

// SetPending asserts or deasserts a device interrupt line. Device
// models (UART) and test drivers are the callers.
func (p *PlicDevice) SetPending(source int, pending bool) {
	if source <= 0 || source >= MAX_IRQ_COUNT {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	word, bit := source/32, uint(source)%32
	if pending {
		p.pending[word] |= 1 << bit
	} else {
		p.pending[word] &^= 1 << bit
	}
	p.updateLevelsLocked()
}

// claimLocked hands out the best pending source for a context and
// clears its pending bit. Returns 0 when nothing qualifies (the
// spurious-claim case the dispatch layer must tolerate).
func (p *PlicDevice) claimLocked(context int) uint32 {
	if p.claimed[context] != 0 {
		// Second claim before the first was completed.
		p.violations.Add(1)
		warnf("PLIC context %d claimed IRQ %d again before completing IRQ %d",
			context, p.bestSourceLocked(context), p.claimed[context])
	}

	source := p.bestSourceLocked(context)
	if source != 0 {
		word, bit := source/32, uint(source)%32
		p.pending[word] &^= 1 << bit
		p.claimed[context] = source
	}
	p.updateLevelsLocked()
	return uint32(source)
}

// completeLocked re-arms a source for future signaling. Completing a
// source that is not the context's outstanding claim (wrong IRQ, or a
// second complete) is recorded as a protocol violation.
func (p *PlicDevice) completeLocked(context, source int) {
	if source <= 0 || source >= MAX_IRQ_COUNT {
		return
	}
	if p.claimed[context] != source {
		p.violations.Add(1)
		warnf("PLIC context %d completed IRQ %d but outstanding claim is %d",
			context, source, p.claimed[context])
		return
	}
	p.claimed[context] = 0
}

// bestSourceLocked finds the highest-priority pending-and-enabled
// source above the context's threshold, 0 if none.
func (p *PlicDevice) bestSourceLocked(context int) int {
	var bestSource int
	var bestPriority uint32
	for source := 1; source < MAX_IRQ_COUNT; source++ {
		word, bit := source/32, uint(source)%32
		if p.pending[word]&(1<<bit) == 0 {
			continue
		}
		if p.enable[context][word]&(1<<bit) == 0 {
			continue
		}
		prio := p.priority[source]
		if prio == 0 || prio <= p.threshold[context] {
			continue
		}
		if prio > bestPriority {
			bestPriority = prio
			bestSource = source
		}
	}
	return bestSource
}

// updateLevelsLocked recomputes every context's external line level
// and notifies the machine. The callback only flips an atomic pending
// bit on a hart, so holding the mutex across it is safe.
func (p *PlicDevice) updateLevelsLocked() {
	if p.onLevel == nil {
		return
	}
	for context := 0; context < p.numContexts; context++ {
		p.onLevel(context, p.bestSourceLocked(context) != 0)
	}
}

// Test and tooling hooks.

// OutstandingClaim returns the source a context has claimed but not
// yet completed, 0 if none.
func (p *PlicDevice) OutstandingClaim(context int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if context < 0 || context >= p.numContexts {
		return 0
	}
	return p.claimed[context]
}

// ProtocolViolations returns the number of claim/complete protocol
// breaches observed since construction or the last reset.
func (p *PlicDevice) ProtocolViolations() int64 {
	return p.violations.Load()
}

// Enabled reports whether a source's enable bit is set for a context.
func (p *PlicDevice) Enabled(source, context int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if source <= 0 || source >= MAX_IRQ_COUNT || context < 0 || context >= p.numContexts {
		return false
	}
	return p.enable[context][source/32]&(1<<(uint(source)%32)) != 0
}

// Priority returns a source's current priority level.
func (p *PlicDevice) Priority(source int) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if source <= 0 || source >= MAX_IRQ_COUNT {
		return 0
	}
	return p.priority[source]
}

// Threshold returns a context's priority threshold.
func (p *PlicDevice) Threshold(context int) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if context < 0 || context >= p.numContexts {
		return 0
	}
	return p.threshold[context]
}
