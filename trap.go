// trap.go - Trap entry path (cause read, dispatch, delivery re-enable)

package main

// trapEntry is the machine's stand-in for the assembly trap vector: it
// disables local delivery for the duration of the dispatch, acquits
// the class-level pending state where the hardware expects the kernel
// to (software interrupts are acknowledged by clearing msip before the
// handler runs, the way a real trap path clears SSIP), and restores
// delivery on every exit path.
//
// Register save/restore and the mode switch live outside this layer;
// only the cause word crosses the boundary.
func (m *Machine) trapEntry(h *Hart, cause uint64) (irq int, external bool) {
	enabled := h.LocalIrqSave()
	defer h.LocalIrqRestore(enabled)

	if cause == CAUSE_S_SOFT {
		m.Clint.SetSoftPending(h.Id(), false)
	}
	return m.Core.Handle(cause)
}
