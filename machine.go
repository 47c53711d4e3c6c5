// machine.go - Multi-hart virt machine harness tying the fabric together

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
machine.go - Machine harness

The Machine owns the board: N harts, the physical bus with the PLIC,
CLINT and UART mapped at their virt addresses, the emulated firmware,
and one InterruptCore. It steps harts cooperatively - one hart at a
time - which is what lets it implement CpuIdSource honestly: the hart
"currently executing" is exactly the hart currently being stepped.

Interrupt delivery is level-driven: device models assert sip bits on
the harts through their callbacks, and StepHart takes the trap for the
highest pending-and-enabled class, exactly one per step.
*/

package main

import (
	"fmt"
	"sync/atomic"
)

// MachineConfig selects the board shape.
type MachineConfig struct {
	Harts int // number of harts, default 1
}

// Machine is the assembled board.
type Machine struct {
	Bus      *MachineBus
	Plic     *PlicDevice
	Clint    *ClintDevice
	Uart     *UartDevice
	Firmware Firmware
	Core     *InterruptCore

	harts   []*Hart
	running atomic.Int64
}

// NewMachine wires the board: devices constructed, mapped onto the
// bus, and the dispatch core connected to the PLIC through a handle at
// the PHYS_VIRT_OFFSET-translated base, exactly once.
func NewMachine(config MachineConfig) *Machine {
	numHarts := config.Harts
	if numHarts <= 0 {
		numHarts = 1
	}

	m := &Machine{Bus: NewMachineBus()}
	for i := 0; i < numHarts; i++ {
		m.harts = append(m.harts, NewHart(i))
	}

	m.Plic = NewPlicDevice(numHarts, m.onPlicLevel)
	m.Clint = NewClintDevice(numHarts,
		func(hart int, asserted bool) { m.harts[hart].SetPending(SIE_SSIE, asserted) },
		func(hart int, asserted bool) { m.harts[hart].SetPending(SIE_STIE, asserted) },
	)
	m.Uart = NewUartDevice(m.Plic)

	m.Bus.MapIO(PLIC_PADDR, PLIC_PADDR+0x03FFFFFF, m.Plic.HandleRead, m.Plic.HandleWrite)
	m.Bus.MapIO(CLINT_PADDR, CLINT_PADDR+0xFFFF, m.Clint.HandleRead, m.Clint.HandleWrite)
	m.Bus.MapIO(UART0_PADDR, UART0_PADDR+0xFFF, m.Uart.HandleRead, m.Uart.HandleWrite)

	m.Firmware = NewSbiFirmware(m.Clint, numHarts)

	plicHandle := NewPlicHandle(m.Bus, PHYS_VIRT_OFFSET+PLIC_PADDR, m)
	m.Core = NewInterruptCore(m.harts, plicHandle, m.Firmware, m)
	return m
}

// onPlicLevel routes a context's external line level to the owning
// hart's SEIP bit. Odd contexts (and context 0) belong to machine
// mode, which this platform leaves unused.
func (m *Machine) onPlicLevel(context int, asserted bool) {
	if context < 2 || context%2 != 0 {
		return
	}
	hart := context/2 - 1
	if hart < len(m.harts) {
		m.harts[hart].SetPending(SIE_SEIE, asserted)
	}
}

// ThisCpuId implements CpuIdSource: the hart currently being stepped.
func (m *Machine) ThisCpuId() int {
	return int(m.running.Load())
}

// LocalIrqSave implements LocalIrqControl for the executing hart.
func (m *Machine) LocalIrqSave() bool {
	return m.CurrentHart().LocalIrqSave()
}

// LocalIrqRestore implements LocalIrqControl for the executing hart.
func (m *Machine) LocalIrqRestore(enabled bool) {
	m.CurrentHart().LocalIrqRestore(enabled)
}

// CurrentHart returns the hart currently being stepped.
func (m *Machine) CurrentHart() *Hart {
	return m.harts[m.running.Load()]
}

// Hart returns a hart by logical id.
func (m *Machine) Hart(id int) *Hart {
	return m.harts[id]
}

// NumHarts returns the board's hart count.
func (m *Machine) NumHarts() int {
	return len(m.harts)
}

// Boot seals the bus mappings and runs per-hart interrupt init on
// every hart, the way each hart's boot path would.
func (m *Machine) Boot() {
	m.Bus.SealMappings()
	for id := range m.harts {
		m.running.Store(int64(id))
		m.Core.InitPercpu()
	}
	m.running.Store(0)
}

// StepHart delivers at most one pending interrupt on the given hart
// through the trap path. Reports whether a trap was taken.
func (m *Machine) StepHart(id int) bool {
	if id < 0 || id >= len(m.harts) {
		return false
	}
	m.running.Store(int64(id))
	h := m.harts[id]

	if !h.LocalIrqEnabled() {
		return false
	}
	cause := h.PendingCause()
	if cause == 0 {
		return false
	}
	irq, external := m.trapEntry(h, cause)
	if external {
		tracef("hart %d serviced device IRQ %d", id, irq)
	}
	return true
}

// Step advances the deterministic clock and gives every hart one
// delivery opportunity. Returns the number of traps taken.
func (m *Machine) Step(quantum uint64) int {
	m.Clint.AdvanceTime(quantum)
	taken := 0
	for id := range m.harts {
		if m.StepHart(id) {
			taken++
		}
	}
	return taken
}

// Run steps the machine the given number of times.
func (m *Machine) Run(steps int, quantum uint64) int {
	taken := 0
	for i := 0; i < steps; i++ {
		taken += m.Step(quantum)
	}
	return taken
}

// RaiseIrq asserts a device interrupt line at the controller, as a
// peripheral would. Tooling entry point.
func (m *Machine) RaiseIrq(irq int) error {
	if irq <= 0 || irq >= MAX_IRQ_COUNT {
		return fmt.Errorf("IRQ %d out of range [1, %d)", irq, MAX_IRQ_COUNT)
	}
	m.Plic.SetPending(irq, true)
	return nil
}
