// riscv_constants.go - Master platform constants for the HartEngine virt machine

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
riscv_constants.go - Master Platform Constant Reference

This file provides a centralized reference for the HartEngine platform:
the scause encoding the dispatch layer classifies, the supervisor
interrupt-enable/pending bits the harts model, and the physical memory
map of the emulated virt-style board. Individual device models define
their own detailed register offsets in their *_device.go files.

MEMORY MAP OVERVIEW
===================

Physical Range            Size    Device          Constants
---------------------------------------------------------------------
0x02000000-0x0200FFFF     64KB    CLINT           clint_device.go
0x0C000000-0x0FFFFFFF     64MB    PLIC            plic_driver.go
0x10000000-0x10000FFF     4KB     UART0           uart_device.go
0x80000000-...            RAM     Main memory     machine_bus.go

Kernel-side drivers address devices through PHYS_VIRT_OFFSET; the
machine bus windows those accesses back down to physical addresses.

SCAUSE ENCODING
===============

The top bit of the scause word distinguishes CPU-side interrupts from
device-side IRQ numbers. CPU-side sub-kinds recognized by this platform
are supervisor software (1), supervisor timer (5) and supervisor
external (9); the external code is a sentinel meaning "ask the PLIC for
the real device IRQ number". A word with the top bit clear IS a device
IRQ number, already resolved by the PLIC.
*/

package main

// `Interrupt` bit in scause (RV64).
const CAUSE_INTERRUPT_BIT uint64 = 1 << 63

const (
	// Supervisor software interrupt in scause.
	CAUSE_S_SOFT = CAUSE_INTERRUPT_BIT + 1

	// Supervisor timer interrupt in scause.
	CAUSE_S_TIMER = CAUSE_INTERRUPT_BIT + 5

	// Supervisor external interrupt in scause.
	CAUSE_S_EXT = CAUSE_INTERRUPT_BIT + 9
)

// The maximum number of device IRQ lines. IRQ 0 is reserved by the PLIC
// as "no interrupt", so valid device IRQ numbers are [1, MAX_IRQ_COUNT).
const MAX_IRQ_COUNT = 1024

// Supervisor interrupt-enable (sie) / interrupt-pending (sip) bits.
const (
	SIE_SSIE uint32 = 1 << 1 // supervisor software
	SIE_STIE uint32 = 1 << 5 // supervisor timer
	SIE_SEIE uint32 = 1 << 9 // supervisor external
)

// Physical device addresses (QEMU virt board layout).
const (
	CLINT_PADDR uint64 = 0x02000000
	PLIC_PADDR  uint64 = 0x0C000000
	UART0_PADDR uint64 = 0x10000000
	RAM_PADDR   uint64 = 0x80000000
)

// Device IRQ numbers on the virt board.
const (
	UART0_IRQ = 10
)

// PHYS_VIRT_OFFSET is the static physical-to-virtual translation the
// kernel side applies when constructing device handles at boot. The
// machine bus undoes it on access (see MachineBus.translate).
const PHYS_VIRT_OFFSET uint64 = 0xFFFF_FFC0_0000_0000

// Priority written by the gateway when a device line is enabled. A
// zero-priority line is masked at the PLIC regardless of the enable
// bit, so enabling always sets this fixed non-zero level.
const PLIC_ENABLE_PRIORITY uint32 = 6
