// component_reset.go - Reset() methods for all hardware components (hard reset support)

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

// PlicDevice.Reset restores the controller to power-on state: no
// priorities, no pending or enabled sources, all contexts masked, no
// outstanding claims. The violation counter is cleared too.
func (p *PlicDevice) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.priority {
		p.priority[i] = 0
	}
	for i := range p.pending {
		p.pending[i] = 0
	}
	for context := range p.enable {
		for word := range p.enable[context] {
			p.enable[context][word] = 0
		}
		p.threshold[context] = ^uint32(0)
		p.claimed[context] = 0
	}
	p.violations.Store(0)
	p.updateLevelsLocked()
}

// ClintDevice.Reset clears software pending bits, disarms every timer
// and rewinds the deterministic clock to zero.
func (c *ClintDevice) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mtime = 0
	for hart := range c.msip {
		c.msip[hart] = 0
		c.mtimecmp[hart] = ^uint64(0)
		if c.onSoft != nil {
			c.onSoft(hart, false)
		}
		if c.onTimer != nil {
			c.onTimer(hart, false)
		}
	}
}

// UartDevice.Reset drops both FIFOs and deasserts the interrupt line.
func (u *UartDevice) Reset() {
	u.mu.Lock()
	u.rx = nil
	u.out = nil
	u.mu.Unlock()
	if u.plic != nil {
		u.plic.SetPending(UART0_IRQ, false)
	}
}

// Hart.Reset clears enable and pending state and re-enables local
// delivery, matching the constructor.
func (h *Hart) Reset() {
	h.sie.Store(0)
	h.sip.Store(0)
	h.localEnable.Store(true)
}

// Machine.Reset performs a hard reset: devices and harts back to
// power-on state, then per-hart interrupt init re-run the way Boot
// does. Bus mappings stay sealed; RAM is wiped.
func (m *Machine) Reset() {
	m.Uart.Reset()
	m.Clint.Reset()
	m.Plic.Reset()
	m.Bus.Reset()
	for _, h := range m.harts {
		h.Reset()
	}
	for id := range m.harts {
		m.running.Store(int64(id))
		m.Core.InitPercpu()
	}
	m.running.Store(0)
}
