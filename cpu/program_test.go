package cpu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const print8 = `# print8.ls8: Print the number 8 on the screen

10000010 # LDI R0,8
00000000
00001000
01000111 # PRN R0
00000000
00000001 # HLT
`

func TestReadBinary(t *testing.T) {
	assert := assert.New(t)

	prog, err := ReadBinary(strings.NewReader(print8))
	assert.NoError(err)
	assert.Equal([]byte{0x82, 0x00, 0x08, 0x47, 0x00, 0x01}, prog.Binary())

	assert.Equal(3, prog.Lines[0].LineNo)
	assert.Equal([]string{"LDI", "R0,8"}, prog.Lines[0].Words)
	assert.Equal(5, prog.Lines[5].Address)
	assert.Nil(prog.Lines[1].Words)

	cpu, output := newLoaded(t, prog.Binary())
	assert.NoError(cpu.Run())
	assert.Equal("8\n", output.String())
}

func TestReadBinary_Errors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		input  string
		lineno int
		err    error
	}){
		{"short", "# comment\n0101\n", 2, ErrBinarySyntax},
		{"digit", "00000000\n10000002 # bad\n", 2, ErrBinarySyntax},
		{"big", strings.Repeat("00000000\n", MEMORY_SIZE+1), MEMORY_SIZE + 1, ErrOutOfBounds(0)},
	}

	for _, entry := range table {
		_, err := ReadBinary(strings.NewReader(entry.input))
		assert.ErrorIs(err, entry.err, entry.name)

		var es ErrSyntax
		assert.ErrorAs(err, &es, entry.name)
		assert.Equal(entry.lineno, es.LineNo, entry.name)
	}
}

func TestReadBinary_Ignored(t *testing.T) {
	assert := assert.New(t)

	prog, err := ReadBinary(strings.NewReader("\n# only comments\n  00000001 indented\nx\n"))
	assert.NoError(err)
	assert.Empty(prog.Binary())
}

func TestWriteTo(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader("LDI R0,8\nPRN R0\nHLT\n"))
	assert.NoError(err)

	out := &bytes.Buffer{}
	n, err := prog.WriteTo(out)
	assert.NoError(err)
	assert.Equal(int64(out.Len()), n)
	assert.Equal("10000010 # LDI R0 8\n00000000\n00001000\n01000111 # PRN R0\n00000000\n00000001 # HLT\n", out.String())

	again, err := ReadBinary(out)
	assert.NoError(err)
	assert.Equal(prog.Binary(), again.Binary())
}

func TestDebug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader("; header\nLDI R0,8\n\nPRN R0\nHLT\n"))
	assert.NoError(err)

	table := []struct {
		address byte
		lineno  int
		index   int
	}{
		{0, 2, 0},
		{2, 2, 2},
		{3, 4, 0},
		{4, 4, 1},
		{5, 5, 0},
	}

	for _, entry := range table {
		dbg := prog.Debug(entry.address)
		assert.NotNil(dbg.Line)
		assert.Equal(entry.lineno, dbg.LineNo)
		assert.Equal(entry.index, dbg.Index)
	}

	assert.Nil(prog.Debug(6).Line)
}

func TestDisassemble(t *testing.T) {
	assert := assert.New(t)

	image := []byte{
		byte(OP_LDI), 0, 8,
		byte(OP_ADD), 0, 1,
		byte(OP_PUSH), 2,
		byte(OP_RET),
		0xff,
		byte(OP_LDI), 1,
	}

	prog := Disassemble(image)
	assert.Equal(image, prog.Binary())

	var listing []string
	for _, line := range prog.Lines {
		listing = append(listing, strings.Join(line.Words, " "))
	}
	assert.Equal([]string{
		"LDI R0,8",
		"ADD R0,R1",
		"PUSH R2",
		"RET",
		"DB 0xFF",
		"DB 0x82",
		"HLT",
	}, listing)

	assert.Equal("00: 82 00 08  LDI R0,8\n", strings.SplitAfter(prog.String(), "\n")[0])
}
