// firmware.go - SBI firmware call layer (IPI sends and timer arming)

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

import "fmt"

// HartMask selects target harts for a firmware call the way the SBI
// ABI does: a bit mask relative to a base hart id.
type HartMask struct {
	Mask uint64
	Base uint64
}

// HartMaskFromMaskBase mirrors the firmware ABI constructor.
func HartMaskFromMaskBase(mask, base uint64) HartMask {
	return HartMask{Mask: mask, Base: base}
}

// Firmware is the supervisor's view of the machine-mode firmware: send
// an inter-processor interrupt to a mask of harts, or arm the current
// hart's timer. The encoding of the underlying calls is opaque to the
// dispatch layer.
type Firmware interface {
	SendIpi(mask HartMask) error
	SetTimer(hart int, when uint64) error
}

// FirmwareError carries the failing call and its context, mirroring
// the error shape used elsewhere in the engine.
type FirmwareError struct {
	Call    string // which firmware call failed
	Details string // additional context
}

func (e *FirmwareError) Error() string {
	return fmt.Sprintf("firmware %s failed: %s", e.Call, e.Details)
}

// SbiFirmware is the emulated firmware implementation: IPI sends turn
// into CLINT software-pending bits on the target harts, timer arming
// into mtimecmp writes.
type SbiFirmware struct {
	clint    *ClintDevice
	numHarts int
}

// NewSbiFirmware wires the emulated firmware to the machine's CLINT.
func NewSbiFirmware(clint *ClintDevice, numHarts int) *SbiFirmware {
	return &SbiFirmware{clint: clint, numHarts: numHarts}
}

// SendIpi pends a software interrupt on every hart selected by the
// mask. A mask bit referring to a hart the platform does not have
// fails the whole call without touching any hart, matching firmware
// parameter validation.
func (f *SbiFirmware) SendIpi(mask HartMask) error {
	for bit := 0; bit < 64; bit++ {
		if mask.Mask&(1<<uint(bit)) == 0 {
			continue
		}
		if hart := int(mask.Base) + bit; hart >= f.numHarts {
			return &FirmwareError{
				Call:    "send_ipi",
				Details: fmt.Sprintf("hart %d out of range (have %d harts)", hart, f.numHarts),
			}
		}
	}
	for bit := 0; bit < 64; bit++ {
		if mask.Mask&(1<<uint(bit)) != 0 {
			f.clint.SetSoftPending(int(mask.Base)+bit, true)
		}
	}
	return nil
}

// SetTimer arms a hart's timer compare register.
func (f *SbiFirmware) SetTimer(hart int, when uint64) error {
	if hart < 0 || hart >= f.numHarts {
		return &FirmwareError{
			Call:    "set_timer",
			Details: fmt.Sprintf("hart %d out of range (have %d harts)", hart, f.numHarts),
		}
	}
	f.clint.SetTimecmp(hart, when)
	return nil
}
