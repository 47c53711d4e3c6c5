// uart_device.go - Minimal UART device model (the fabric's demo IRQ source)

package main

import "sync"

// UART register offsets (reg-shift 2: one 32-bit word per register).
const (
	UART_RBR uint64 = 0x00 // read: receive buffer
	UART_THR uint64 = 0x00 // write: transmit holding
	UART_LSR uint64 = 0x14 // line status

	UART_LSR_DATA_READY uint32 = 1 << 0
	UART_LSR_THR_EMPTY  uint32 = 1 << 5
)

// UartDevice is a deliberately small serial model: a receive FIFO that
// asserts the UART's PLIC line while non-empty, and a transmit path
// that accumulates into a drainable buffer. It exists to give the
// device handler table a real customer; it is not a faithful 16550.
type UartDevice struct {
	mu   sync.Mutex
	rx   []byte
	out  []byte
	plic *PlicDevice
}

// NewUartDevice wires the UART's interrupt line to the given PLIC.
func NewUartDevice(plic *PlicDevice) *UartDevice {
	return &UartDevice{plic: plic}
}

// HandleRead decodes UART register reads. Reading RBR pops the FIFO
// and drops the interrupt line when the FIFO drains.
func (u *UartDevice) HandleRead(offset uint64) uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch offset {
	case UART_RBR:
		if len(u.rx) == 0 {
			return 0
		}
		b := u.rx[0]
		u.rx = u.rx[1:]
		if len(u.rx) == 0 {
			u.plic.SetPending(UART0_IRQ, false)
		}
		return uint32(b)
	case UART_LSR:
		status := UART_LSR_THR_EMPTY
		if len(u.rx) > 0 {
			status |= UART_LSR_DATA_READY
		}
		return status
	}
	return 0
}

// HandleWrite decodes UART register writes.
func (u *UartDevice) HandleWrite(offset uint64, value uint32) {
	if offset == UART_THR {
		u.mu.Lock()
		u.out = append(u.out, byte(value))
		u.mu.Unlock()
	}
}

// RouteHostKey feeds one byte of host input into the receive FIFO and
// asserts the interrupt line. The terminal host and the scenario
// driver are the callers.
func (u *UartDevice) RouteHostKey(b byte) {
	u.mu.Lock()
	u.rx = append(u.rx, b)
	u.mu.Unlock()
	u.plic.SetPending(UART0_IRQ, true)
}

// DrainOutput returns and clears everything written to the transmit
// register since the last drain.
func (u *UartDevice) DrainOutput() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := string(u.out)
	u.out = u.out[:0]
	return out
}
