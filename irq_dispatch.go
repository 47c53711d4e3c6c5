// irq_dispatch.go - Supervisor interrupt dispatch core (the platform-interrupt contract)

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
irq_dispatch.go - Interrupt dispatch core

This module answers the three questions of trap time: what kind of
interrupt fired, who handles it, and how the controller is
acknowledged so the event does not re-fire forever. Registration flows
down from kernel subsystems into the two singleton slots (timer, IPI)
or the device handler table; dispatch flows up from trap entry through
the cause classifier into slot invocation or the PLIC
claim/dispatch/complete sequence.

The irq argument accepted by SetEnable, Register and Unregister lives
in the same encoding as scause: a word with the top bit set names a
CPU-side interrupt class, a word with the top bit clear is a device
IRQ number as handed out by the PLIC. Registering against CAUSE_S_EXT
itself is a misuse - the sentinel only means "ask the PLIC" - and is
refused with a diagnostic rather than partially registered.
*/

package main

// IpiTargetKind selects the fan-out shape of an IPI send.
type IpiTargetKind int

const (
	// IpiCurrent signals one specific hart (self-signaling designs).
	IpiCurrent IpiTargetKind = iota

	// IpiOther signals one specific other hart.
	IpiOther

	// IpiAllExceptCurrent signals every hart in [0, CpuNum) except
	// CpuId.
	IpiAllExceptCurrent
)

// IpiTarget is the logical destination of an inter-processor
// interrupt. The IPI itself carries no payload; the receiving hart's
// IPI slot handler decides what work arrival means.
type IpiTarget struct {
	Kind   IpiTargetKind
	CpuId  int
	CpuNum int // total hart count, used by IpiAllExceptCurrent only
}

// InterruptCore is the dispatch layer shared by all harts: two
// lock-free singleton slots, the device handler table, the gateway to
// the shared PLIC, and the firmware used for IPI sends. All state is
// process-lifetime; nothing is torn down during normal operation.
type InterruptCore struct {
	timerSlot HandlerSlot
	ipiSlot   HandlerSlot
	table     *HandlerTable

	plic     *PlicHandle
	firmware Firmware
	percpu   CpuIdSource
	harts    []*Hart
}

// NewInterruptCore wires the dispatch layer to its collaborators. The
// slots and the table start empty; subsystems populate them lazily
// after boot.
func NewInterruptCore(harts []*Hart, plic *PlicHandle, firmware Firmware, percpu CpuIdSource) *InterruptCore {
	return &InterruptCore{
		table:    NewHandlerTable(),
		plic:     plic,
		firmware: firmware,
		percpu:   percpu,
		harts:    harts,
	}
}

// thisHart resolves the executing hart. Resolved fresh on every use -
// the result is never cached across calls, since the caller may have
// migrated.
func (c *InterruptCore) thisHart() *Hart {
	return c.harts[c.percpu.ThisCpuId()]
}

// thisContext derives the PLIC context of the executing hart.
func (c *InterruptCore) thisContext() int {
	return supervisorContext(c.percpu.ThisCpuId())
}

// InitPercpu enables the three supervisor interrupt classes in the
// executing hart's sie and makes its PLIC context eligible to receive
// external interrupts. Called once per hart during boot.
func (c *InterruptCore) InitPercpu() {
	c.thisHart().SetSie(SIE_SSIE | SIE_STIE | SIE_SEIE)
	c.plic.InitByContext(c.thisContext())
}

// SetEnable enables or disables the given IRQ. For the timer class
// this toggles STIE on the executing hart; the software and external
// sentinel classes have nothing to toggle here. For a device IRQ it
// drives the PLIC: enabling also sets the fixed non-zero priority so
// the line is actually eligible to signal.
func (c *InterruptCore) SetEnable(irq uint64, enabled bool) {
	switch ClassifyCause(irq) {
	case CauseTimer:
		if enabled {
			c.thisHart().SetSie(SIE_STIE)
		} else {
			c.thisHart().ClearSie(SIE_STIE)
		}
	case CauseIPI, CauseExternal:
		// Nothing to do: SSIE/SEIE stay under InitPercpu's control.
	case CauseDevice:
		n := int(irq)
		if n <= 0 || n >= MAX_IRQ_COUNT {
			return
		}
		if enabled {
			c.plic.EnableWithPriority(n, c.thisContext())
		} else {
			c.plic.Disable(n, c.thisContext())
		}
	}
}

// Register installs a handler for the given IRQ and, for device IRQs,
// enables the line on success: a registered-but-disabled line would
// silently never fire. Returns false, with no state change, when the
// slot or table entry is already occupied, the IRQ is out of range,
// or the caller tried to register against the external sentinel.
func (c *InterruptCore) Register(irq uint64, handler IrqHandler) bool {
	switch ClassifyCause(irq) {
	case CauseTimer:
		return c.timerSlot.Install(handler)
	case CauseIPI:
		return c.ipiSlot.Install(handler)
	case CauseExternal:
		warnf("external IRQ handlers must target the device IRQ resolved by the PLIC, not scause")
		return false
	default:
		n := int(irq)
		if !c.table.Register(n, handler) {
			warnf("register handler for external IRQ %d failed", n)
			return false
		}
		c.SetEnable(irq, true)
		return true
	}
}

// Unregister removes the handler for the given IRQ, disabling a
// device line whose handler was removed. Returns the handler that was
// installed, or nil. Callers must treat removal and disable as one
// logical step: no dispatch can race a removed handler once this
// returns.
func (c *InterruptCore) Unregister(irq uint64) IrqHandler {
	switch ClassifyCause(irq) {
	case CauseTimer:
		return c.timerSlot.Remove()
	case CauseIPI:
		return c.ipiSlot.Remove()
	case CauseExternal:
		warnf("external IRQ handlers must target the device IRQ resolved by the PLIC, not scause")
		return nil
	default:
		handler := c.table.Unregister(int(irq))
		if handler != nil {
			c.SetEnable(irq, false)
		}
		return handler
	}
}

// Handle dispatches one trap cause. It returns the concrete device
// IRQ number that was serviced, for tracing, and false for a CPU-side
// interrupt (whose identity is the cause itself) or a spurious
// external event.
//
// For the external class the claim and the complete each take the
// controller lock individually; the handler runs between them with no
// lock held, so it may register, unregister or take other locks
// without risking self-deadlock on this hart.
func (c *InterruptCore) Handle(cause uint64) (int, bool) {
	switch ClassifyCause(cause) {
	case CauseTimer:
		tracef("IRQ: timer")
		c.timerSlot.InvokeIfPresent()
		return 0, false

	case CauseIPI:
		tracef("IRQ: IPI")
		c.ipiSlot.InvokeIfPresent()
		return 0, false

	case CauseExternal:
		context := c.thisContext()
		irq := c.plic.Claim(context)
		if irq == 0 {
			tracef("spurious external IRQ")
			return 0, false
		}
		tracef("IRQ: external %d", irq)
		c.table.Handle(irq)
		c.plic.Complete(context, irq)
		return irq, true

	default:
		// A resolved device IRQ number reaches this layer through the
		// external interrupt, never as a raw trap cause.
		panic("device-side IRQ delivered as a trap cause")
	}
}

// SendIpi translates a logical target into firmware hart-mask sends.
// Fire-and-forget: a failed send is logged and, for multi-target
// fan-out, does not prevent attempting the remaining harts.
func (c *InterruptCore) SendIpi(target IpiTarget) {
	switch target.Kind {
	case IpiCurrent, IpiOther:
		if err := c.firmware.SendIpi(HartMaskFromMaskBase(1<<uint(target.CpuId), 0)); err != nil {
			warnf("send_ipi failed: %v", err)
		}
	case IpiAllExceptCurrent:
		for i := 0; i < target.CpuNum; i++ {
			if i == target.CpuId {
				continue
			}
			if err := c.firmware.SendIpi(HartMaskFromMaskBase(1<<uint(i), 0)); err != nil {
				warnf("send_ipi_all_others failed: %v", err)
			}
		}
	}
}

// Table exposes the device handler table for tooling and tests.
func (c *InterruptCore) Table() *HandlerTable {
	return c.table
}

// TimerInstalled reports whether a timer dispatcher is installed.
func (c *InterruptCore) TimerInstalled() bool { return c.timerSlot.Installed() }

// IpiInstalled reports whether an IPI dispatcher is installed.
func (c *InterruptCore) IpiInstalled() bool { return c.ipiSlot.Installed() }
