package cpu

// The stack lives in main memory and grows toward address 0.
// R7 holds the address of the most recently pushed byte.

// Push decrements the stack pointer, then stores value at it.
func (cpu *Cpu) Push(value byte) (err error) {
	sp := cpu.Register[REGISTER_SP] - 1

	err = cpu.Write(int(sp), value)
	if err != nil {
		return
	}

	cpu.Register[REGISTER_SP] = sp
	return
}

// Pop reads the byte at the stack pointer, then increments it.
func (cpu *Cpu) Pop() (value byte, err error) {
	value, err = cpu.Peek()
	if err != nil {
		return
	}

	cpu.Register[REGISTER_SP]++
	return
}

// Peek reads the byte at the stack pointer without moving it.
func (cpu *Cpu) Peek() (value byte, err error) {
	return cpu.Read(int(cpu.Register[REGISTER_SP]))
}

// Depth returns the number of bytes pushed below STACK_TOP.
// A stack pointer above STACK_TOP reports zero.
func (cpu *Cpu) Depth() int {
	sp := cpu.Register[REGISTER_SP]
	if sp >= STACK_TOP {
		return 0
	}
	return STACK_TOP - int(sp)
}
