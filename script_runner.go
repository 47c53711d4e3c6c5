// script_runner.go - Lua scenario scripting for driving a machine under test

package main

import (
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// ScriptRunner embeds a Lua interpreter wired to one Machine. Scripts
// raise interrupt lines, step the clock and assert on what fired,
// which makes regression scenarios plain text instead of Go code.
//
// Exposed globals:
//
//	raise(irq)              assert device line irq at the controller
//	step([quantum])         advance time and step every hart; returns traps taken
//	register(irq)           install a counting handler for irq; true on success
//	unregister(irq)         remove the handler for irq; true if one was installed
//	fired(irq)              times the counting handler for irq has run
//	send_ipi(mask, base)    firmware IPI to the given hart mask
//	output()                drain and return UART transmit bytes as a string
//	harts()                 number of harts on the board
//	fail(msg)               abort the script with an error
type ScriptRunner struct {
	machine *Machine
	state   *lua.LState
	counts  [MAX_IRQ_COUNT]atomic.Uint64
}

// NewScriptRunner builds a runner bound to the given machine. Close it
// when done.
func NewScriptRunner(machine *Machine) *ScriptRunner {
	r := &ScriptRunner{
		machine: machine,
		state:   lua.NewState(),
	}
	r.installAPI()
	return r
}

// Close releases the interpreter.
func (r *ScriptRunner) Close() {
	r.state.Close()
}

// Fired reports how many times the counting handler for irq has run.
func (r *ScriptRunner) Fired(irq int) uint64 {
	if irq <= 0 || irq >= MAX_IRQ_COUNT {
		return 0
	}
	return r.counts[irq].Load()
}

// RunFile executes a scenario file.
func (r *ScriptRunner) RunFile(path string) error {
	if err := r.state.DoFile(path); err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}
	return nil
}

// RunString executes inline scenario source.
func (r *ScriptRunner) RunString(source string) error {
	if err := r.state.DoString(source); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	return nil
}

func (r *ScriptRunner) installAPI() {
	L := r.state

	L.SetGlobal("raise", L.NewFunction(func(L *lua.LState) int {
		irq := L.CheckInt(1)
		if err := r.machine.RaiseIrq(irq); err != nil {
			L.RaiseError("raise: %v", err)
		}
		return 0
	}))

	L.SetGlobal("step", L.NewFunction(func(L *lua.LState) int {
		quantum := uint64(L.OptInt64(1, 1))
		L.Push(lua.LNumber(r.machine.Step(quantum)))
		return 1
	}))

	L.SetGlobal("register", L.NewFunction(func(L *lua.LState) int {
		irq := L.CheckInt(1)
		ok := false
		if irq > 0 && irq < MAX_IRQ_COUNT {
			ok = r.machine.Core.Register(uint64(irq), func() {
				r.counts[irq].Add(1)
			})
		}
		L.Push(lua.LBool(ok))
		return 1
	}))

	L.SetGlobal("unregister", L.NewFunction(func(L *lua.LState) int {
		irq := L.CheckInt(1)
		removed := r.machine.Core.Unregister(uint64(irq)) != nil
		L.Push(lua.LBool(removed))
		return 1
	}))

	L.SetGlobal("fired", L.NewFunction(func(L *lua.LState) int {
		irq := L.CheckInt(1)
		L.Push(lua.LNumber(r.Fired(irq)))
		return 1
	}))

	L.SetGlobal("send_ipi", L.NewFunction(func(L *lua.LState) int {
		mask := uint64(L.CheckInt64(1))
		base := uint64(L.OptInt64(2, 0))
		if err := r.machine.Firmware.SendIpi(HartMaskFromMaskBase(mask, base)); err != nil {
			L.RaiseError("send_ipi: %v", err)
		}
		return 0
	}))

	L.SetGlobal("output", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(r.machine.Uart.DrainOutput()))
		return 1
	}))

	L.SetGlobal("harts", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(r.machine.NumHarts()))
		return 1
	}))

	L.SetGlobal("fail", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s", L.CheckString(1))
		return 0
	}))
}
