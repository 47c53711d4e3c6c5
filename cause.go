// cause.go - Trap-cause classification for the supervisor dispatch layer

package main

import "fmt"

// CauseKind is the class of a raw scause word. The classifier produces
// exactly one kind per word; all routing in the dispatch layer switches
// on it rather than re-deriving bit patterns inline.
type CauseKind int

const (
	// CauseTimer is the supervisor timer interrupt.
	CauseTimer CauseKind = iota

	// CauseIPI is the supervisor software interrupt, used for
	// inter-processor notification.
	CauseIPI

	// CauseExternal is the sentinel meaning "a device line fired;
	// claim the PLIC for the real IRQ number".
	CauseExternal

	// CauseDevice means the word itself is a resolved device IRQ
	// number (top bit clear). Range validation happens downstream in
	// the handler table and the gateway, not here.
	CauseDevice
)

func (k CauseKind) String() string {
	switch k {
	case CauseTimer:
		return "timer"
	case CauseIPI:
		return "ipi"
	case CauseExternal:
		return "external"
	case CauseDevice:
		return "device"
	}
	return fmt.Sprintf("CauseKind(%d)", int(k))
}

// ClassifyCause maps a raw scause word to its class. A CPU-side word
// (top bit set) with a sub-kind other than software, timer or external
// means the trap-cause decoding contract with the hardware has been
// violated; there is nothing sensible to recover to, so it panics.
func ClassifyCause(cause uint64) CauseKind {
	switch cause {
	case CAUSE_S_TIMER:
		return CauseTimer
	case CAUSE_S_SOFT:
		return CauseIPI
	case CAUSE_S_EXT:
		return CauseExternal
	default:
		if cause&CAUSE_INTERRUPT_BIT == 0 {
			return CauseDevice
		}
		panic(fmt.Sprintf("unknown IRQ cause: 0x%016X", cause))
	}
}
