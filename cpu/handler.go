package cpu

import (
	"fmt"
	"io"
)

// Handler executes one instruction against the CPU.
// a and b are the two bytes following the opcode; handlers that take fewer
// operands ignore the rest. A handler either completes the instruction,
// advancing or assigning the program counter, or returns an error having
// changed nothing.
type Handler func(cpu *Cpu, a, b byte) error

// handlerMap is the dispatch table. It is never modified after init.
var handlerMap = map[Opcode]Handler{
	OP_HLT:  handleHLT,
	OP_LDI:  handleLDI,
	OP_PRN:  handlePRN,
	OP_PUSH: handlePUSH,
	OP_POP:  handlePOP,
	OP_CALL: handleCALL,
	OP_RET:  handleRET,
	OP_ADD:  aluHandler(func(x, y byte) byte { return x + y }),
	OP_MUL:  aluHandler(func(x, y byte) byte { return x * y }),
	OP_MOD:  handleMOD,
	OP_AND:  aluHandler(func(x, y byte) byte { return x & y }),
	OP_OR:   aluHandler(func(x, y byte) byte { return x | y }),
	OP_XOR:  aluHandler(func(x, y byte) byte { return x ^ y }),
	OP_NOT:  handleNOT,
	OP_SHL:  aluHandler(func(x, y byte) byte { return x << y }),
	OP_SHR:  aluHandler(func(x, y byte) byte { return x >> y }),
	OP_CMP:  handleCMP,
	OP_JMP:  jumpHandler(func(fl byte) bool { return true }),
	OP_JEQ:  jumpHandler(func(fl byte) bool { return fl&FL_EQUAL != 0 }),
	OP_JNE:  jumpHandler(func(fl byte) bool { return fl&FL_EQUAL == 0 }),
	OP_JGT:  jumpHandler(func(fl byte) bool { return fl&FL_GREATER != 0 }),
	OP_JLT:  jumpHandler(func(fl byte) bool { return fl&FL_LESS != 0 }),
	OP_JGE:  jumpHandler(func(fl byte) bool { return fl&(FL_EQUAL|FL_GREATER) != 0 }),
	OP_JLE:  jumpHandler(func(fl byte) bool { return fl&(FL_EQUAL|FL_LESS) != 0 }),
}

// Handlers returns the opcodes that have a handler.
func Handlers() (ops []Opcode) {
	for op := range handlerMap {
		ops = append(ops, op)
	}
	return
}

// checkRegister validates register operands.
func checkRegister(regs ...byte) (err error) {
	for _, reg := range regs {
		if reg >= REGISTER_COUNT {
			err = ErrRegister(reg)
			return
		}
	}
	return
}

// advance moves the program counter past the current instruction.
func (cpu *Cpu) advance(op Opcode) {
	cpu.Pc += byte(op.Size())
}

func handleHLT(cpu *Cpu, a, b byte) (err error) {
	cpu.Running = false
	cpu.advance(OP_HLT)
	return
}

func handleLDI(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	cpu.Register[a] = b
	cpu.advance(OP_LDI)
	return
}

func handlePRN(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	out := cpu.Output
	if out == nil {
		out = io.Discard
	}

	_, err = fmt.Fprintf(out, "%d\n", cpu.Register[a])
	if err != nil {
		return
	}

	cpu.advance(OP_PRN)
	return
}

func handlePUSH(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	err = cpu.Push(cpu.Register[a])
	if err != nil {
		return
	}

	cpu.advance(OP_PUSH)
	return
}

func handlePOP(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	// Read first: POP R7 must end with the popped value, not sp+1.
	value, err := cpu.Peek()
	if err != nil {
		return
	}
	cpu.Register[REGISTER_SP]++
	cpu.Register[a] = value

	cpu.advance(OP_POP)
	return
}

func handleCALL(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	target := cpu.Register[a]
	err = cpu.Push(cpu.Pc + byte(OP_CALL.Size()))
	if err != nil {
		return
	}

	cpu.Pc = target
	return
}

func handleRET(cpu *Cpu, a, b byte) (err error) {
	pc, err := cpu.Pop()
	if err != nil {
		return
	}

	cpu.Pc = pc
	return
}

// aluHandler builds a two register handler storing op(reg[a], reg[b]) into reg[a].
// Byte arithmetic wraps modulo 256; shifts of 8 or more yield 0.
func aluHandler(op func(x, y byte) byte) Handler {
	return func(cpu *Cpu, a, b byte) (err error) {
		err = checkRegister(a, b)
		if err != nil {
			return
		}

		cpu.Register[a] = op(cpu.Register[a], cpu.Register[b])
		cpu.Pc += 3
		return
	}
}

func handleMOD(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a, b)
	if err != nil {
		return
	}

	if cpu.Register[b] == 0 {
		err = ErrDivideByZero{A: a, B: b}
		return
	}

	cpu.Register[a] %= cpu.Register[b]
	cpu.advance(OP_MOD)
	return
}

func handleNOT(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a)
	if err != nil {
		return
	}

	cpu.Register[a] = ^cpu.Register[a]
	cpu.advance(OP_NOT)
	return
}

func handleCMP(cpu *Cpu, a, b byte) (err error) {
	err = checkRegister(a, b)
	if err != nil {
		return
	}

	x, y := cpu.Register[a], cpu.Register[b]

	cpu.Fl &^= FL_MASK
	switch {
	case x == y:
		cpu.Fl |= FL_EQUAL
	case x > y:
		cpu.Fl |= FL_GREATER
	default:
		cpu.Fl |= FL_LESS
	}

	cpu.advance(OP_CMP)
	return
}

// jumpHandler builds a jump to reg[a], taken when taken(fl) holds.
func jumpHandler(taken func(fl byte) bool) Handler {
	return func(cpu *Cpu, a, b byte) (err error) {
		err = checkRegister(a)
		if err != nil {
			return
		}

		if taken(cpu.Fl) {
			cpu.Pc = cpu.Register[a]
			return
		}

		cpu.Pc += 2
		return
	}
}
