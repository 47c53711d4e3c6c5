package main

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
)

// TestIpi_AllExceptCurrent verifies the broadcast fan-out: with four
// harts and hart 1 as sender, exactly harts 0, 2 and 3 take the IPI
// trap and run the slot handler.
func TestIpi_AllExceptCurrent(t *testing.T) {
	m := bootedMachine(t, 4)
	var received [4]atomic.Int32

	if !m.Core.Register(CAUSE_S_SOFT, func() {
		received[m.ThisCpuId()].Add(1)
	}) {
		t.Fatal("IPI slot Register failed")
	}

	m.Core.SendIpi(IpiTarget{Kind: IpiAllExceptCurrent, CpuId: 1, CpuNum: 4})

	for hart := 0; hart < 4; hart++ {
		m.StepHart(hart)
	}
	for hart := 0; hart < 4; hart++ {
		want := int32(1)
		if hart == 1 {
			want = 0
		}
		if received[hart].Load() != want {
			t.Fatalf("hart %d received %d IPIs, expected %d",
				hart, received[hart].Load(), want)
		}
	}

	// Trap entry cleared the software pending bits; nothing re-fires.
	for hart := 0; hart < 4; hart++ {
		if m.StepHart(hart) {
			t.Fatalf("hart %d re-trapped on an acknowledged IPI", hart)
		}
	}
}

// TestIpi_SingleTarget verifies the one-hart target shapes.
func TestIpi_SingleTarget(t *testing.T) {
	m := bootedMachine(t, 2)
	var received [2]atomic.Int32
	m.Core.Register(CAUSE_S_SOFT, func() {
		received[m.ThisCpuId()].Add(1)
	})

	m.Core.SendIpi(IpiTarget{Kind: IpiOther, CpuId: 1})
	m.StepHart(0)
	m.StepHart(1)

	if received[0].Load() != 0 || received[1].Load() != 1 {
		t.Fatalf("received %d/%d, expected 0/1",
			received[0].Load(), received[1].Load())
	}
}

// failingFirmware refuses every call after recording it.
type failingFirmware struct {
	sends atomic.Int32
}

func (f *failingFirmware) SendIpi(mask HartMask) error {
	f.sends.Add(1)
	return &FirmwareError{Call: "send_ipi", Details: "injected failure"}
}

func (f *failingFirmware) SetTimer(hart int, when uint64) error {
	return &FirmwareError{Call: "set_timer", Details: "injected failure"}
}

// TestIpi_BroadcastContinuesPastFailure verifies the fire-and-forget
// contract: a failed per-hart send is logged and the remaining targets
// are still attempted.
func TestIpi_BroadcastContinuesPastFailure(t *testing.T) {
	var diag bytes.Buffer
	prev := SetDiagnosticSink(&diag)
	defer SetDiagnosticSink(prev)

	harts := []*Hart{NewHart(0), NewHart(1), NewHart(2), NewHart(3)}
	fw := &failingFirmware{}
	core := NewInterruptCore(harts, nil, fw, staticCpu(0))

	core.SendIpi(IpiTarget{Kind: IpiAllExceptCurrent, CpuId: 0, CpuNum: 4})

	if fw.sends.Load() != 3 {
		t.Fatalf("firmware saw %d sends, expected all 3 targets attempted", fw.sends.Load())
	}
	if !strings.Contains(diag.String(), "send_ipi_all_others failed") {
		t.Fatalf("expected a per-send warning, got %q", diag.String())
	}
}

// staticCpu is a fixed-hart CpuIdSource for core tests without a
// machine.
type staticCpu int

func (s staticCpu) ThisCpuId() int { return int(s) }
