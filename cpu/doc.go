// Package cpu implements the LS-8 processor and its assembler.
//
// The CPU has 256 bytes of memory, eight 8-bit registers (R7 doubles as the
// stack pointer), a program counter and a flags register holding the outcome
// of the last CMP. Instructions are one to three bytes long; the opcode's top
// two bits give the operand count.
//
// The assembler turns LS-8 assembly text into a Program, which can be saved
// in the line oriented binary text format and loaded back with ReadBinary.
package cpu
