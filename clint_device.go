// clint_device.go - Emulated core-local interruptor (software + timer pending)

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

import "sync"

// CLINT register offsets. One msip word per hart, one mtimecmp
// doubleword per hart, one shared mtime counter.
const (
	CLINT_MSIP_BASE     uint64 = 0x0000
	CLINT_MTIMECMP_BASE uint64 = 0x4000
	CLINT_MTIME         uint64 = 0xBFF8
)

// ClintDevice models the core-local interruptor: per-hart software
// interrupt pending bits (set by the firmware's IPI sends) and the
// timer compare registers. Time is a deterministic counter advanced by
// the machine's step loop rather than the wall clock, so tests control
// exactly when timers fire.
type ClintDevice struct {
	mu       sync.Mutex
	msip     []uint32
	mtimecmp []uint64
	mtime    uint64

	// Level callbacks into the harts' sip bits.
	onSoft  func(hart int, asserted bool)
	onTimer func(hart int, asserted bool)
}

// NewClintDevice builds a CLINT for numHarts harts. Compare registers
// start at the maximum value so no timer fires before the kernel arms
// one.
func NewClintDevice(numHarts int, onSoft, onTimer func(hart int, asserted bool)) *ClintDevice {
	c := &ClintDevice{
		msip:     make([]uint32, numHarts),
		mtimecmp: make([]uint64, numHarts),
		onSoft:   onSoft,
		onTimer:  onTimer,
	}
	for i := range c.mtimecmp {
		c.mtimecmp[i] = ^uint64(0)
	}
	return c
}

// HandleRead decodes CLINT register reads (low word only; the bus is
// 32-bit and nothing in this fabric reads the high halves).
func (c *ClintDevice) HandleRead(offset uint64) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset >= CLINT_MSIP_BASE && offset < CLINT_MSIP_BASE+uint64(len(c.msip))*4:
		return c.msip[(offset-CLINT_MSIP_BASE)/4]
	case offset >= CLINT_MTIMECMP_BASE && offset < CLINT_MTIMECMP_BASE+uint64(len(c.mtimecmp))*8:
		return uint32(c.mtimecmp[(offset-CLINT_MTIMECMP_BASE)/8])
	case offset == CLINT_MTIME:
		return uint32(c.mtime)
	}
	return 0
}

// HandleWrite decodes CLINT register writes.
func (c *ClintDevice) HandleWrite(offset uint64, value uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset >= CLINT_MSIP_BASE && offset < CLINT_MSIP_BASE+uint64(len(c.msip))*4:
		hart := int((offset - CLINT_MSIP_BASE) / 4)
		c.msip[hart] = value & 1
		if c.onSoft != nil {
			c.onSoft(hart, value&1 != 0)
		}
	}
}

// SetSoftPending asserts or clears a hart's software interrupt. The
// firmware's IPI path lands here; the receiving hart's handler clears
// it again via ClearSoftPending.
func (c *ClintDevice) SetSoftPending(hart int, pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hart < 0 || hart >= len(c.msip) {
		return
	}
	if pending {
		c.msip[hart] = 1
	} else {
		c.msip[hart] = 0
	}
	if c.onSoft != nil {
		c.onSoft(hart, pending)
	}
}

// SetTimecmp arms a hart's timer and clears its timer pending state if
// the new compare value lies in the future.
func (c *ClintDevice) SetTimecmp(hart int, when uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hart < 0 || hart >= len(c.mtimecmp) {
		return
	}
	c.mtimecmp[hart] = when
	if c.onTimer != nil {
		c.onTimer(hart, c.mtime >= when)
	}
}

// AdvanceTime moves the deterministic clock forward and raises timer
// levels on every hart whose compare value has been reached.
func (c *ClintDevice) AdvanceTime(delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mtime += delta
	if c.onTimer == nil {
		return
	}
	for hart, cmp := range c.mtimecmp {
		if c.mtime >= cmp {
			c.onTimer(hart, true)
		}
	}
}

// Mtime returns the current deterministic time.
func (c *ClintDevice) Mtime() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mtime
}
