// machine_bus.go - Physical memory bus for the HartEngine virt machine

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
machine_bus.go - Machine Bus for HartEngine

This module implements the physical memory bus that backs the emulated
virt-style board. It provides 32-bit little-endian access to a block of
main RAM at RAM_PADDR and routes accesses inside registered I/O regions
to device callbacks (PLIC, CLINT, UART).

Two details matter to the interrupt fabric:

    Kernel-side device handles are constructed from virtual addresses
    (PHYS_VIRT_OFFSET + physical base). The bus windows such addresses
    back down to physical before lookup, so a single mapping serves
    both address spaces.

    I/O mappings are sealed once the machine starts stepping. Mapping
    a region after execution has begun is a wiring bug, and the bus
    panics on it rather than racing the region table.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// DEFAULT_RAM_SIZE is the main memory block at RAM_PADDR.
	DEFAULT_RAM_SIZE = 16 * 1024 * 1024

	BUS_PAGE_SIZE uint64 = 0x1000
	BUS_PAGE_MASK uint64 = ^(BUS_PAGE_SIZE - 1)
)

// Bus32 is the access interface device drivers see: 32-bit reads and
// writes against physical or PHYS_VIRT_OFFSET-translated addresses.
type Bus32 interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, value uint32)
}

// IORegion is a memory-mapped device window. Callbacks receive the
// offset relative to the region start, which is what register decoders
// want to switch on.
type IORegion struct {
	start   uint64
	end     uint64
	onRead  func(offset uint64) uint32
	onWrite func(offset uint64, value uint32)
}

// MachineBus implements Bus32 for the emulated board: a contiguous RAM
// block plus a page-indexed table of I/O regions. The region table is
// immutable after sealing, so reads of it are lock-free; RAM access is
// guarded by a read/write mutex.
type MachineBus struct {
	mu      sync.RWMutex
	memory  []byte
	mapping map[uint64][]IORegion
	sealed  atomic.Bool
}

// NewMachineBus allocates the RAM block and an empty I/O mapping.
func NewMachineBus() *MachineBus {
	return &MachineBus{
		memory:  make([]byte, DEFAULT_RAM_SIZE),
		mapping: make(map[uint64][]IORegion),
	}
}

// translate windows a kernel virtual address back to physical. The
// offset is a single static constant, so this is a subtraction, not a
// page walk.
func (bus *MachineBus) translate(addr uint64) uint64 {
	if addr >= PHYS_VIRT_OFFSET {
		return addr - PHYS_VIRT_OFFSET
	}
	return addr
}

// MapIO registers a device window covering [start, end] in physical
// address space. Must be called during machine construction; mapping
// after SealMappings panics.
func (bus *MachineBus) MapIO(start, end uint64, onRead func(offset uint64) uint32, onWrite func(offset uint64, value uint32)) {
	if bus.sealed.Load() {
		panic(fmt.Sprintf("MapIO called after execution started (mapping range 0x%08X-0x%08X)", start, end))
	}
	region := IORegion{start: start, end: end, onRead: onRead, onWrite: onWrite}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	for page := start & BUS_PAGE_MASK; page <= end&BUS_PAGE_MASK; page += BUS_PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
	}
}

// SealMappings prevents further MapIO calls. Called when the machine
// starts stepping so the region table stays stable under concurrent
// access.
func (bus *MachineBus) SealMappings() {
	bus.sealed.CompareAndSwap(false, true)
}

func (bus *MachineBus) findRegion(addr uint64) *IORegion {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if regions, exists := bus.mapping[addr&BUS_PAGE_MASK]; exists {
		for i := range regions {
			if addr >= regions[i].start && addr <= regions[i].end {
				return &regions[i]
			}
		}
	}
	return nil
}

func (bus *MachineBus) Read32(addr uint64) uint32 {
	addr = bus.translate(addr)

	if region := bus.findRegion(addr); region != nil {
		if region.onRead != nil {
			return region.onRead(addr - region.start)
		}
		return 0
	}

	if addr >= RAM_PADDR && addr+4 <= RAM_PADDR+uint64(len(bus.memory)) {
		off := addr - RAM_PADDR
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return binary.LittleEndian.Uint32(bus.memory[off : off+4])
	}

	warnf("Read32 from unmapped address 0x%08X", addr)
	return 0
}

func (bus *MachineBus) Write32(addr uint64, value uint32) {
	addr = bus.translate(addr)

	if region := bus.findRegion(addr); region != nil {
		if region.onWrite != nil {
			region.onWrite(addr-region.start, value)
		}
		return
	}

	if addr >= RAM_PADDR && addr+4 <= RAM_PADDR+uint64(len(bus.memory)) {
		off := addr - RAM_PADDR
		bus.mu.Lock()
		defer bus.mu.Unlock()
		binary.LittleEndian.PutUint32(bus.memory[off:off+4], value)
		return
	}

	warnf("Write32 to unmapped address 0x%08X", addr)
}

// GetMemory returns a direct reference to the RAM block for loaders
// and inspection tooling.
func (bus *MachineBus) GetMemory() []byte {
	return bus.memory
}

// Reset clears main RAM. I/O mappings survive a reset; devices reset
// themselves (see component_reset.go).
func (bus *MachineBus) Reset() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i := range bus.memory {
		bus.memory[i] = 0
	}
}
