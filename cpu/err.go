package cpu

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrBinarySyntax       = errors.New(f("binary literal invalid"))
)

// ErrOpcode is returned when the fetched instruction byte has no handler.
type ErrOpcode struct {
	Opcode Opcode
	Pc     byte
}

func (eo ErrOpcode) Error() string {
	return f("unknown opcode 0b%08b at pc 0x%02x", byte(eo.Opcode), eo.Pc)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrOutOfBounds is returned for a memory access outside of memory.
type ErrOutOfBounds int

func (eb ErrOutOfBounds) Error() string {
	return f("address 0x%x out of bounds", int(eb))
}

func (eb ErrOutOfBounds) Is(err error) (ok bool) {
	_, ok = err.(ErrOutOfBounds)
	return
}

// ErrDivideByZero is returned by MOD when the divisor register is zero.
type ErrDivideByZero struct {
	A byte
	B byte
}

func (ed ErrDivideByZero) Error() string {
	return f("divide by zero: R%d %% R%d", ed.A, ed.B)
}

func (ed ErrDivideByZero) Is(err error) (ok bool) {
	_, ok = err.(ErrDivideByZero)
	return
}

// ErrRegister is returned when an operand names a register outside R0-R7.
type ErrRegister byte

func (er ErrRegister) Error() string {
	return f("register index %d invalid", byte(er))
}

func (er ErrRegister) Is(err error) (ok bool) {
	_, ok = err.(ErrRegister)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
