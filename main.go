// main.go - Main entry point for the HartEngine interrupt fabric

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

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m _   _    _    ____ _____   _____ _   _  ____ ___ _   _ _____\033[0m")
	fmt.Println("\033[38;2;255;80;147m| | | |  / \\  |  _ \\_   _| | ____| \\ | |/ ___|_ _| \\ | | ____|\033[0m")
	fmt.Println("\033[38;2;255;140;147m| |_| | / _ \\ | |_) || |   |  _| |  \\| | |  _ | ||  \\| |  _|\033[0m")
	fmt.Println("\033[38;2;255;200;147m|  _  |/ ___ \\|  _ < | |   | |___| |\\  | |_| || || |\\  | |___\033[0m")
	fmt.Println("\033[38;2;255;255;147m|_| |_/_/   \\_\\_| \\_\\|_|   |_____|_| \\_|\\____|___|_| \\_|_____|\033[0m")
	fmt.Println("\nA multi-hart RISC-V supervisor interrupt fabric with an emulated virt board.")
	fmt.Println("(c) 2025 - 2026 The HartEngine Authors")
	fmt.Println("https://github.com/hartengine/HartEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()

	var (
		numHarts    int
		scriptPath  string
		interactive bool
		steps       int
		quantum     int64
		trace       bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&numHarts, "harts", 1, "Number of harts on the board")
	flagSet.StringVar(&scriptPath, "script", "", "Lua scenario file to run")
	flagSet.BoolVar(&interactive, "interactive", false, "Attach stdin to the UART console")
	flagSet.IntVar(&steps, "steps", 1000, "Machine steps to run outside interactive mode")
	flagSet.Int64Var(&quantum, "quantum", 10, "Clock ticks advanced per step")
	flagSet.BoolVar(&trace, "trace", false, "Print dispatch trace output")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./hart_engine [-harts N] [-script scenario.lua] [-interactive] [-steps N] [-quantum N] [-trace]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		flagSet.Usage()
		os.Exit(1)
	}

	SetTraceEnabled(trace)

	machine := NewMachine(MachineConfig{Harts: numHarts})
	machine.Boot()

	// Baseline handlers so a bare run shows the fabric working: the
	// timer reprograms itself one quantum ahead, and the UART handler
	// echoes received bytes back through the transmitter.
	machine.Core.Register(CAUSE_S_TIMER, func() {
		h := machine.CurrentHart()
		next := machine.Clint.Mtime() + uint64(quantum)
		if err := machine.Firmware.SetTimer(h.Id(), next); err != nil {
			fmt.Printf("set_timer: %v\n", err)
		}
	})
	machine.Core.Register(CAUSE_S_SOFT, func() {
		tracef("hart %d received IPI", machine.ThisCpuId())
	})
	machine.Core.Register(uint64(UART0_IRQ), func() {
		base := PHYS_VIRT_OFFSET + UART0_PADDR
		for machine.Bus.Read32(base+UART_LSR)&UART_LSR_DATA_READY != 0 {
			b := machine.Bus.Read32(base + UART_RBR)
			machine.Bus.Write32(base+UART_THR, b)
		}
	})
	if err := machine.Firmware.SetTimer(0, uint64(quantum)); err != nil {
		fmt.Printf("set_timer: %v\n", err)
		os.Exit(1)
	}

	if scriptPath != "" {
		runner := NewScriptRunner(machine)
		defer runner.Close()
		if err := runner.RunFile(scriptPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(machine.Uart.DrainOutput())
		return
	}

	if interactive {
		runInteractive(machine, uint64(quantum))
		return
	}

	taken := machine.Run(steps, uint64(quantum))
	fmt.Printf("%d steps, %d traps taken\n", steps, taken)
}

// runInteractive attaches the host terminal to the UART and steps the
// machine until Ctrl-C arrives on the console.
func runInteractive(machine *Machine, quantum uint64) {
	host := NewTerminalHost(machine.Uart)
	host.Start()
	defer host.Stop()

	fmt.Println("Interactive console attached. Ctrl-C exits.")
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		machine.Step(quantum)
		host.PrintOutput()
		select {
		case <-host.Interrupted():
			fmt.Println("\nExiting.")
			return
		default:
		}
	}
}
