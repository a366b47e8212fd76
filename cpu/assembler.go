// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"STACK_TOP": fmt.Sprintf("%#x", STACK_TOP),
	"SP":        fmt.Sprintf("R%d", REGISTER_SP),
}

var (
	reLabel     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reCharacter = regexp.MustCompile(`'\\?[^']'`)
	reParen     = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Assembler is a single pass assembler for LS-8 programs.
//
// Syntax, one statement per line:
//
//	; comment
//	LABEL:  MNEMONIC [operand[,operand]]
//	.equ NAME VALUE
//	DB value[,value...]
//	DS text
//
// Register operands are R0 to R7. Immediates are numbers, character
// literals, labels, equates, or $(expr) evaluated at assembly time.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the byte value of a numeric word.
// Negative values are stored in two's complement.
func (asm *Assembler) valueOf(word string) (value byte, err error) {
	v64, err := strconv.ParseInt(word, 0, 16)
	if err != nil || v64 < -0x80 || v64 > 0xff {
		err = ErrParseNumber(word)
		return
	}

	value = byte(v64)
	return
}

// registerOf returns the register index of an Rn word.
func (asm *Assembler) registerOf(word string) (reg byte, err error) {
	if len(word) != 2 || (word[0] != 'R' && word[0] != 'r') || word[1] < '0' || word[1] > '7' {
		err = ErrRegisterInvalid
		return
	}

	reg = word[1] - '0'
	return
}

// immediateOf returns the value of an immediate, or the label to link
// when the word names a label.
func (asm *Assembler) immediateOf(word string) (value byte, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	if reLabel.MatchString(word) {
		err = nil
		label = word
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value byte, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v byte
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(v))
	}
	err = nil
	for key, address := range asm.Label {
		pred[key] = starlark.MakeInt(address)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = byte(st_int64)
	return
}

// expandLine does character literal and $(...) substitution.
func (asm *Assembler) expandLine(line string) (expanded string, err error) {
	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "0":
				str = "\x00"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	expanded = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})

	return
}

// currentAddress gets the address of the next emitted byte.
func (asm *Assembler) currentAddress() int {
	if len(asm.Lines) == 0 {
		return 0
	}

	last := asm.Lines[len(asm.Lines)-1]

	return last.Address + len(last.Bytes)
}

// parseLine parses a single line of source.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Labels
	for {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.HasSuffix(fields[0], ":") {
			break
		}
		label := strings.TrimSuffix(fields[0], ":")
		if !reLabel.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.currentAddress()
		line = strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	}

	if len(line) == 0 {
		return
	}

	// DS text
	first := strings.Fields(line)[0]
	if strings.ToUpper(first) == "DS" {
		text := strings.TrimSpace(strings.TrimPrefix(line, first))
		if len(text) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		asm.emit(lineno, []string{first, text}, []byte(text), "")
		return
	}

	line, err = asm.expandLine(line)
	if err != nil {
		return
	}

	words := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(words) == 0 {
		err = ErrInstructionInvalid
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	}

	initial_words := slices.Clone(words)
	for n, word := range words[1:] {
		equate, ok := asm.Equate[word]
		if ok {
			words[1+n] = equate
		}
	}

	err = asm.parseWords(lineno, initial_words, words)
	return
}

// parseWords assembles a DB directive or an instruction.
func (asm *Assembler) parseWords(lineno int, initial_words, words []string) (err error) {
	mnemonic := strings.ToUpper(words[0])
	args := words[1:]

	if mnemonic == "DB" {
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		var data []byte
		var label string
		for n, arg := range args {
			var value byte
			value, label, err = asm.immediateOf(arg)
			if err != nil {
				return
			}
			if len(label) != 0 && n != len(args)-1 {
				// Only the final byte of a line can be linked.
				err = ErrParseNumber(arg)
				return
			}
			data = append(data, value)
		}
		asm.emit(lineno, initial_words, data, label)
		return
	}

	op, ok := LookupOpcode(mnemonic)
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	switch {
	case len(args) < op.Operands():
		err = ErrOpcodeValueMissing
		return
	case len(args) > op.Operands():
		err = ErrOpcodeExtraArgs
		return
	}

	in := Instruction{Opcode: op}
	var label string
	if len(args) > 0 {
		in.A, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
	}
	if len(args) > 1 {
		if op == OP_LDI {
			in.B, label, err = asm.immediateOf(args[1])
		} else {
			in.B, err = asm.registerOf(args[1])
		}
		if err != nil {
			return
		}
	}

	asm.emit(lineno, initial_words, in.Bytes(), label)
	return
}

// emit appends a line of generated bytes at the current address.
func (asm *Assembler) emit(lineno int, words []string, data []byte, label string) {
	line := Line{
		LineNo:    lineno,
		Address:   asm.currentAddress(),
		Words:     words,
		Bytes:     data,
		LinkLabel: label,
	}

	if asm.Verbose {
		log.Printf("asm: %02x: % x %v", line.Address, line.Bytes, line.Words)
	}

	asm.Lines = append(asm.Lines, line)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Lines = asm.Lines[:0]
	asm.Label = make(map[string]int)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment, _, _ := strings.Cut(text, ";")
		line = strings.TrimSpace(text_comment)

		err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if asm.currentAddress() > MEMORY_SIZE {
		err = ErrOutOfBounds(asm.currentAddress() - 1)
		return
	}

	// Final linking of labels.
	for n := range asm.Lines {
		op := &asm.Lines[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		address, ok := asm.Label[op.LinkLabel]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(op.LinkLabel)
			return
		}
		op.Bytes[len(op.Bytes)-1] = byte(address)
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}
