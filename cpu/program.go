package cpu

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Line represents a line of assembled code with its source location and
// generated bytes.
type Line struct {
	LineNo    int
	Address   int
	Words     []string
	Bytes     []byte
	LinkLabel string // Label whose address is patched into the last byte.
}

type Program struct {
	Lines []Line
}

type Debug struct {
	*Line
	Index int
}

// Debug finds the line holding address, and the byte offset within it.
// A zero Debug is returned when no line covers the address.
func (prog *Program) Debug(address byte) (dbg Debug) {
	for n, line := range prog.Lines {
		if int(address) >= line.Address && int(address) < line.Address+len(line.Bytes) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(address) - line.Address,
			}
			break
		}
	}

	return
}

// Binary returns the memory image of the program, starting at address 0.
func (prog *Program) Binary() (bins []byte) {
	for address, value := range prog.Bytes() {
		for len(bins) < address {
			bins = append(bins, 0)
		}
		bins = append(bins, value)
	}

	return
}

// Bytes iterates over the program bytes and their addresses.
func (prog *Program) Bytes() iter.Seq2[int, byte] {
	return func(yield func(address int, value byte) bool) {
		for _, line := range prog.Lines {
			for n, value := range line.Bytes {
				if !yield(line.Address+n, value) {
					return
				}
			}
		}
	}
}

// WriteTo writes the program in the binary text format, one byte per line,
// with the source words of each line as a trailing comment.
func (prog *Program) WriteTo(w io.Writer) (n int64, err error) {
	bw := bufio.NewWriter(w)

	var count int
	for _, line := range prog.Lines {
		for i, value := range line.Bytes {
			if i == 0 && len(line.Words) > 0 {
				count, err = fmt.Fprintf(bw, "%08b # %v\n", value, strings.Join(line.Words, " "))
			} else {
				count, err = fmt.Fprintf(bw, "%08b\n", value)
			}
			n += int64(count)
			if err != nil {
				return
			}
		}
	}

	err = bw.Flush()
	return
}

// ReadBinary loads the binary text format.
//
// Each line starting with '0' or '1' holds one byte, as the 8 character
// binary literal at the start of the line; the rest of the line is ignored.
// All other lines are ignored.
func ReadBinary(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var text string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: text, Err: err}
		}
	}()

	prog = &Program{}
	address := 0

	for scanner.Scan() {
		text = scanner.Text()
		lineno++

		if len(text) == 0 || (text[0] != '0' && text[0] != '1') {
			continue
		}

		if len(text) < 8 {
			err = ErrBinarySyntax
			return
		}

		var value uint64
		value, err = strconv.ParseUint(text[:8], 2, 8)
		if err != nil {
			err = ErrBinarySyntax
			return
		}

		if address >= MEMORY_SIZE {
			err = ErrOutOfBounds(address)
			return
		}

		var words []string
		_, comment, ok := strings.Cut(text[8:], "#")
		if ok {
			words = strings.Fields(comment)
		}

		prog.Lines = append(prog.Lines, Line{
			LineNo:  lineno,
			Address: address,
			Words:   words,
			Bytes:   []byte{byte(value)},
		})
		address++
	}

	err = scanner.Err()
	return
}

// Disassemble decodes a memory image into a listing.
// Bytes that are not a valid opcode are emitted as DB data lines, as are
// instructions truncated by the end of the image.
func Disassemble(data []byte) (prog *Program) {
	prog = &Program{}

	for address := 0; address < len(data); {
		op := Opcode(data[address])
		size := op.Size()

		if !op.Valid() || address+size > len(data) {
			prog.Lines = append(prog.Lines, Line{
				Address: address,
				Words:   []string{"DB", fmt.Sprintf("0x%02X", data[address])},
				Bytes:   []byte{data[address]},
			})
			address++
			continue
		}

		in := Instruction{Opcode: op}
		if size > 1 {
			in.A = data[address+1]
		}
		if size > 2 {
			in.B = data[address+2]
		}

		prog.Lines = append(prog.Lines, Line{
			Address: address,
			Words:   strings.Fields(in.String()),
			Bytes:   in.Bytes(),
		})
		address += size
	}

	return
}

// String returns a listing of the program: address, bytes and source words.
func (prog *Program) String() string {
	var sb strings.Builder

	for _, line := range prog.Lines {
		hex := make([]string, len(line.Bytes))
		for n, value := range line.Bytes {
			hex[n] = fmt.Sprintf("%02X", value)
		}
		fmt.Fprintf(&sb, "%02X: %-8s  %v\n", line.Address, strings.Join(hex, " "), strings.Join(line.Words, " "))
	}

	return sb.String()
}
