package cpu

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strings"
)

const (
	MEMORY_SIZE    = 256  // Bytes of addressable memory.
	REGISTER_COUNT = 8    // General purpose registers.
	REGISTER_SP    = 7    // Register used as the stack pointer.
	STACK_TOP      = 0xF4 // Initial stack pointer.
)

// Flags register bits, as 00000LGE.
const (
	FL_EQUAL   = byte(0b001)
	FL_GREATER = byte(0b010)
	FL_LESS    = byte(0b100)
	FL_MASK    = FL_EQUAL | FL_GREATER | FL_LESS
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%v", MEMORY_SIZE),
	"STACK_TOP":   fmt.Sprintf("0x%x", STACK_TOP),
	"SP":          fmt.Sprintf("R%d", REGISTER_SP),
}

// Cpu is the simulation context for an LS-8 processor.
type Cpu struct {
	Verbose bool      // Set to enable verbose logging.
	Output  io.Writer // Sink for PRN; nil discards.

	Memory   [MEMORY_SIZE]byte    // Main memory.
	Register [REGISTER_COUNT]byte // Register bank; R7 is the stack pointer.
	Pc       byte                 // Program counter.
	Fl       byte                 // Flags register.
	Running  bool                 // Cleared by HLT.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new CPU in its power-on state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears memory, registers and flags.
// - Sets the stack pointer to STACK_TOP.
// - Sets the program counter to 0.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Register[REGISTER_SP] = STACK_TOP
	cpu.Pc = 0
	cpu.Fl = 0
	cpu.Running = false
	cpu.Ticks = 0
}

// Read returns the byte at address.
func (cpu *Cpu) Read(address int) (value byte, err error) {
	if address < 0 || address >= len(cpu.Memory) {
		err = ErrOutOfBounds(address)
		return
	}

	value = cpu.Memory[address]
	return
}

// Write stores value at address.
func (cpu *Cpu) Write(address int, value byte) (err error) {
	if address < 0 || address >= len(cpu.Memory) {
		err = ErrOutOfBounds(address)
		return
	}

	cpu.Memory[address] = value
	return
}

// Load copies a program image into memory starting at address 0.
// Nothing is written if the image does not fit.
func (cpu *Cpu) Load(data []byte) (err error) {
	if len(data) > len(cpu.Memory) {
		err = ErrOutOfBounds(len(data) - 1)
		return
	}

	for address, value := range data {
		err = cpu.Write(address, value)
		if err != nil {
			return
		}
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(data))
	}

	return
}

// Fetch reads the instruction window at the program counter.
// The operand bytes are always read; address arithmetic wraps at 8 bits.
func (cpu *Cpu) Fetch() (in Instruction, err error) {
	var ir, a, b byte

	ir, err = cpu.Read(int(cpu.Pc))
	if err != nil {
		return
	}
	a, err = cpu.Read(int(cpu.Pc + 1))
	if err != nil {
		return
	}
	b, err = cpu.Read(int(cpu.Pc + 2))
	if err != nil {
		return
	}

	in = Instruction{Opcode: Opcode(ir), A: a, B: b}
	return
}

// Execute dispatches a single instruction to its handler.
func (cpu *Cpu) Execute(op Opcode, a, b byte) (err error) {
	handler, ok := handlerMap[op]
	if !ok {
		err = ErrOpcode{Opcode: op, Pc: cpu.Pc}
		return
	}

	err = handler(cpu, a, b)
	if err != nil {
		err = errors.Join(errors.New(Instruction{Opcode: op, A: a, B: b}.String()), err)
		return
	}

	cpu.Ticks++
	return
}

// Step executes a single fetch-decode-execute cycle.
func (cpu *Cpu) Step() (err error) {
	in, err := cpu.Fetch()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("%v %v", cpu.Trace(), in)
	}

	err = cpu.Execute(in.Opcode, in.A, in.B)
	return
}

// Run executes instructions until HLT, or until an instruction fails.
func (cpu *Cpu) Run() (err error) {
	cpu.Running = true

	for cpu.Running {
		err = cpu.Step()
		if err != nil {
			return
		}
	}

	return
}

// Trace returns a single line dump of pc, the instruction window and registers.
func (cpu *Cpu) Trace() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "TRACE: %02X %02X | %02X %02X %02X |",
		cpu.Pc,
		cpu.Fl,
		cpu.Memory[cpu.Pc],
		cpu.Memory[cpu.Pc+1],
		cpu.Memory[cpu.Pc+2],
	)

	for _, reg := range cpu.Register {
		fmt.Fprintf(&sb, " %02X", reg)
	}

	return sb.String()
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "fl", "sp",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%02X", cpu.Pc)
		case "fl":
			var flags []string
			if cpu.Fl&FL_LESS != 0 {
				flags = append(flags, "L")
			}
			if cpu.Fl&FL_GREATER != 0 {
				flags = append(flags, "G")
			}
			if cpu.Fl&FL_EQUAL != 0 {
				flags = append(flags, "E")
			}
			strval = fmt.Sprintf("%03b %v", cpu.Fl, strings.Join(flags, ""))
		case "sp":
			sp := cpu.Register[REGISTER_SP]
			strval = fmt.Sprintf("%02X", sp)
			if sp < STACK_TOP {
				strval += fmt.Sprintf(" [%02X]", cpu.Memory[sp])
			}
		default:
			val := cpu.Register[reg[1]-'0']
			strval = fmt.Sprintf("%02X %3d", val, val)
		}
		text += fmt.Sprintf("% 3s: %v\n", reg, strval)
	}

	return
}
