// Package monitor implements a line oriented debugger for the emulator.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	ErrCommandUnknown = errors.New(f("unknown command"))
	ErrArgument       = errors.New(f("invalid argument"))
	ErrHalted         = errors.New(f("cpu halted"))
)

// Commands lists the monitor commands, for completion and help.
var Commands = []string{
	"break", "delete", "help", "list", "mem", "quit", "regs", "reset", "run", "step",
}

// Monitor drives an emulator from text commands.
type Monitor struct {
	Emu *emulator.Emulator
	Out io.Writer

	Breakpoints []byte
}

// NewMonitor creates a monitor, resetting the emulator.
func NewMonitor(emu *emulator.Emulator, out io.Writer) (mon *Monitor, err error) {
	mon = &Monitor{
		Emu: emu,
		Out: out,
	}

	err = emu.Reset()
	return
}

// parseByte parses an address or count, in any Go integer syntax.
func parseByte(word string) (value byte, err error) {
	v, err := strconv.ParseUint(word, 0, 8)
	if err != nil {
		err = errors.Join(ErrArgument, err)
		return
	}
	value = byte(v)
	return
}

// Exec runs a single command line. quit is set by the quit command.
func (mon *Monitor) Exec(line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	cmd, args := strings.ToLower(words[0]), words[1:]

	switch cmd {
	case "quit", "q":
		quit = true
	case "help", "?":
		fmt.Fprintln(mon.Out, strings.Join(Commands, " "))
	case "regs", "r":
		fmt.Fprint(mon.Out, mon.Emu.Cpu.String())
	case "reset":
		err = mon.Emu.Reset()
	case "step", "s":
		count := byte(1)
		if len(args) > 0 {
			count, err = parseByte(args[0])
			if err != nil {
				return
			}
		}
		err = mon.step(int(count))
	case "run", "c":
		err = mon.run()
	case "break", "b":
		if len(args) != 1 {
			err = ErrArgument
			return
		}
		var address byte
		address, err = parseByte(args[0])
		if err != nil {
			return
		}
		if !slices.Contains(mon.Breakpoints, address) {
			mon.Breakpoints = append(mon.Breakpoints, address)
			slices.Sort(mon.Breakpoints)
		}
	case "delete", "d":
		if len(args) != 1 {
			err = ErrArgument
			return
		}
		var address byte
		address, err = parseByte(args[0])
		if err != nil {
			return
		}
		mon.Breakpoints = slices.DeleteFunc(mon.Breakpoints, func(b byte) bool { return b == address })
	case "mem", "m":
		err = mon.dump(args)
	case "list", "l":
		fmt.Fprint(mon.Out, cpu.Disassemble(mon.Emu.Cpu.Memory[:]).String())
	default:
		err = ErrCommandUnknown
	}

	return
}

// show prints the instruction about to execute.
func (mon *Monitor) show() {
	c := mon.Emu.Cpu
	in, err := c.Fetch()
	if err != nil {
		return
	}
	fmt.Fprintf(mon.Out, "%02X: %v\n", c.Pc, in)
}

// halted reports a completed program.
func (mon *Monitor) halted() {
	fmt.Fprintln(mon.Out, f("halted after %d ticks", mon.Emu.Ticks()))
}

func (mon *Monitor) step(count int) (err error) {
	if !mon.Emu.Cpu.Running {
		err = ErrHalted
		return
	}

	for range count {
		var done bool
		done, err = mon.Emu.Tick()
		if err != nil {
			return
		}
		if done {
			mon.halted()
			return
		}
	}

	mon.show()
	return
}

// run ticks until halt, fault, or a breakpoint. The instruction at the
// starting pc always executes, so run can resume from a breakpoint.
func (mon *Monitor) run() (err error) {
	if !mon.Emu.Cpu.Running {
		err = ErrHalted
		return
	}

	for first := true; ; first = false {
		if !first && slices.Contains(mon.Breakpoints, mon.Emu.Cpu.Pc) {
			fmt.Fprintf(mon.Out, "break at %02X\n", mon.Emu.Cpu.Pc)
			mon.show()
			return
		}

		var done bool
		done, err = mon.Emu.Tick()
		if err != nil {
			return
		}
		if done {
			mon.halted()
			return
		}
	}
}

// dump prints memory as rows of 16 bytes.
func (mon *Monitor) dump(args []string) (err error) {
	if len(args) < 1 || len(args) > 2 {
		err = ErrArgument
		return
	}

	start, err := parseByte(args[0])
	if err != nil {
		return
	}

	length := 16
	if len(args) == 2 {
		var n byte
		n, err = parseByte(args[1])
		if err != nil {
			return
		}
		length = int(n)
	}

	mem := mon.Emu.Cpu.Memory[:]
	end := min(int(start)+length, len(mem))
	for row := int(start); row < end; row += 16 {
		fmt.Fprintf(mon.Out, "%02X:", row)
		for address := row; address < min(row+16, end); address++ {
			fmt.Fprintf(mon.Out, " %02X", mem[address])
		}
		fmt.Fprintln(mon.Out)
	}

	return
}
