package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the 8-bit instruction byte.
//
// The encoding is AABCDDDD:
//   - AA: number of operand bytes (0-2)
//   - B: the instruction is handled by the ALU
//   - C: the instruction sets the program counter directly
//   - DDDD: instruction identifier
type Opcode byte

const (
	OP_HLT  = Opcode(0b00000001) // HLT
	OP_RET  = Opcode(0b00010001) // RET
	OP_PUSH = Opcode(0b01000101) // PUSH
	OP_POP  = Opcode(0b01000110) // POP
	OP_PRN  = Opcode(0b01000111) // PRN
	OP_CALL = Opcode(0b01010000) // CALL
	OP_JMP  = Opcode(0b01010100) // JMP
	OP_JEQ  = Opcode(0b01010101) // JEQ
	OP_JNE  = Opcode(0b01010110) // JNE
	OP_JGT  = Opcode(0b01010111) // JGT
	OP_JLT  = Opcode(0b01011000) // JLT
	OP_JLE  = Opcode(0b01011001) // JLE
	OP_JGE  = Opcode(0b01011010) // JGE
	OP_NOT  = Opcode(0b01101001) // NOT
	OP_LDI  = Opcode(0b10000010) // LDI
	OP_ADD  = Opcode(0b10100000) // ADD
	OP_MUL  = Opcode(0b10100010) // MUL
	OP_MOD  = Opcode(0b10100100) // MOD
	OP_CMP  = Opcode(0b10100111) // CMP
	OP_AND  = Opcode(0b10101000) // AND
	OP_OR   = Opcode(0b10101010) // OR
	OP_XOR  = Opcode(0b10101011) // XOR
	OP_SHL  = Opcode(0b10101100) // SHL
	OP_SHR  = Opcode(0b10101101) // SHR
)

// mnemonicMap maps each supported opcode to its assembler mnemonic.
var mnemonicMap = map[Opcode]string{
	OP_HLT:  "HLT",
	OP_RET:  "RET",
	OP_PUSH: "PUSH",
	OP_POP:  "POP",
	OP_PRN:  "PRN",
	OP_CALL: "CALL",
	OP_JMP:  "JMP",
	OP_JEQ:  "JEQ",
	OP_JNE:  "JNE",
	OP_JGT:  "JGT",
	OP_JLT:  "JLT",
	OP_JLE:  "JLE",
	OP_JGE:  "JGE",
	OP_NOT:  "NOT",
	OP_LDI:  "LDI",
	OP_ADD:  "ADD",
	OP_MUL:  "MUL",
	OP_MOD:  "MOD",
	OP_CMP:  "CMP",
	OP_AND:  "AND",
	OP_OR:   "OR",
	OP_XOR:  "XOR",
	OP_SHL:  "SHL",
	OP_SHR:  "SHR",
}

// opcodeMap is the reverse of mnemonicMap.
var opcodeMap = func() map[string]Opcode {
	m := make(map[string]Opcode, len(mnemonicMap))
	for op, name := range mnemonicMap {
		m[name] = op
	}
	return m
}()

// LookupOpcode returns the opcode for a mnemonic, ignoring case.
func LookupOpcode(mnemonic string) (op Opcode, ok bool) {
	op, ok = opcodeMap[strings.ToUpper(mnemonic)]
	return
}

// Operands returns the number of operand bytes following the opcode.
func (op Opcode) Operands() int {
	return int(op>>6) & 0x3
}

// Size returns the total instruction length in bytes.
func (op Opcode) Size() int {
	return 1 + op.Operands()
}

// Alu returns true if the instruction is an ALU operation.
func (op Opcode) Alu() bool {
	return (op>>5)&1 != 0
}

// SetsPc returns true if the instruction may assign the program counter.
func (op Opcode) SetsPc() bool {
	return (op>>4)&1 != 0
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := mnemonicMap[op]
	return ok
}

// String returns the mnemonic, or a hex literal for unknown opcodes.
func (op Opcode) String() string {
	name, ok := mnemonicMap[op]
	if !ok {
		return fmt.Sprintf("0x%02X", byte(op))
	}
	return name
}

// Instruction is a decoded instruction: opcode plus its operand window.
type Instruction struct {
	Opcode Opcode
	A      byte
	B      byte
}

// String returns the assembly language representation of the instruction.
// LDI's second operand is an immediate; all other operands are registers.
func (in Instruction) String() string {
	switch in.Opcode.Operands() {
	case 0:
		return in.Opcode.String()
	case 1:
		return fmt.Sprintf("%v R%d", in.Opcode, in.A)
	}

	if in.Opcode == OP_LDI {
		return fmt.Sprintf("%v R%d,%d", in.Opcode, in.A, in.B)
	}

	return fmt.Sprintf("%v R%d,R%d", in.Opcode, in.A, in.B)
}

// Bytes returns the encoded instruction, trimmed to its size.
func (in Instruction) Bytes() []byte {
	return []byte{byte(in.Opcode), in.A, in.B}[:in.Opcode.Size()]
}
