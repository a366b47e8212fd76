package cpu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// assemble builds a memory image from assembly source lines.
func assemble(t *testing.T, program ...string) []byte {
	t.Helper()

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}

	return prog.Binary()
}

// newLoaded returns a CPU with the image loaded and output captured.
func newLoaded(t *testing.T, image []byte) (cpu *Cpu, output *bytes.Buffer) {
	t.Helper()

	output = &bytes.Buffer{}
	cpu = NewCpu()
	cpu.Output = output
	if err := cpu.Load(image); err != nil {
		t.Fatalf("%v", err)
	}

	return
}

func TestNewCpu(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()

	assert.Equal([MEMORY_SIZE]byte{}, cpu.Memory)
	assert.Equal([REGISTER_COUNT]byte{0, 0, 0, 0, 0, 0, 0, 0xF4}, cpu.Register)
	assert.Equal(byte(0), cpu.Pc)
	assert.Equal(byte(0), cpu.Fl)
	assert.False(cpu.Running)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Memory[0x10] = 0xaa
	cpu.Register[3] = 5
	cpu.Register[REGISTER_SP] = 0x80
	cpu.Pc = 0x22
	cpu.Fl = FL_LESS
	cpu.Running = true
	cpu.Ticks = 10

	cpu.Reset()

	assert.Equal(NewCpu(), cpu)
}

func TestReadWrite(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()

	assert.NoError(cpu.Write(0, 0x12))
	assert.NoError(cpu.Write(MEMORY_SIZE-1, 0x34))

	value, err := cpu.Read(0)
	assert.NoError(err)
	assert.Equal(byte(0x12), value)

	value, err = cpu.Read(MEMORY_SIZE - 1)
	assert.NoError(err)
	assert.Equal(byte(0x34), value)

	table := []int{-1, MEMORY_SIZE, MEMORY_SIZE + 100}
	for _, address := range table {
		_, err = cpu.Read(address)
		assert.Equal(ErrOutOfBounds(address), err)
		err = cpu.Write(address, 1)
		assert.Equal(ErrOutOfBounds(address), err)
	}
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	assert.NoError(cpu.Load([]byte{1, 2, 3}))
	assert.Equal([]byte{1, 2, 3, 0}, cpu.Memory[:4])

	cpu = NewCpu()
	assert.NoError(cpu.Load(make([]byte, MEMORY_SIZE)))

	cpu = NewCpu()
	big := bytes.Repeat([]byte{0xee}, MEMORY_SIZE+1)
	err := cpu.Load(big)
	assert.ErrorIs(err, ErrOutOfBounds(0))
	assert.Equal([MEMORY_SIZE]byte{}, cpu.Memory)
}

func TestFetchWraps(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Memory[0xFF] = byte(OP_LDI)
	cpu.Memory[0x00] = 2
	cpu.Memory[0x01] = 0x99
	cpu.Pc = 0xFF

	in, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(Instruction{Opcode: OP_LDI, A: 2, B: 0x99}, in)

	assert.NoError(cpu.Step())
	assert.Equal(byte(0x99), cpu.Register[2])
	assert.Equal(byte(0x02), cpu.Pc)
}

func TestRunMultiply(t *testing.T) {
	assert := assert.New(t)

	image := []byte{
		byte(OP_LDI), 0, 8,
		byte(OP_LDI), 1, 9,
		byte(OP_MUL), 0, 1,
		byte(OP_PRN), 0,
		byte(OP_HLT),
	}

	cpu, output := newLoaded(t, image)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal("72\n", output.String())
	assert.False(cpu.Running)
	assert.Equal(byte(len(image)), cpu.Pc)
	assert.Equal(5, cpu.Ticks)
}

func TestRunHalt(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newLoaded(t, []byte{byte(OP_HLT)})

	assert.NoError(cpu.Run())
	assert.False(cpu.Running)
	assert.Equal(byte(1), cpu.Pc)
}

func TestRunUnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newLoaded(t, []byte{
		byte(OP_LDI), 0, 1,
		0b11111111, 0, 0,
	})

	err := cpu.Run()
	assert.ErrorIs(err, ErrOpcode{})

	var eo ErrOpcode
	assert.ErrorAs(err, &eo)
	assert.Equal(Opcode(0xFF), eo.Opcode)
	assert.Equal(byte(3), eo.Pc)
	assert.Equal(byte(3), cpu.Pc)
	assert.Equal(byte(1), cpu.Register[0])
	assert.True(cpu.Running)
}

func TestRunDivideByZero(t *testing.T) {
	assert := assert.New(t)

	image := assemble(t,
		"LDI R0,17",
		"LDI R1,0",
		"MOD R0,R1", // address 6
		"HLT",
	)

	cpu, _ := newLoaded(t, image)

	err := cpu.Run()
	var ed ErrDivideByZero
	assert.ErrorAs(err, &ed)
	assert.Equal(ErrDivideByZero{A: 0, B: 1}, ed)
	assert.Equal(byte(17), cpu.Register[0])
	assert.Equal(byte(6), cpu.Pc)
}

func TestTrace(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newLoaded(t, []byte{byte(OP_LDI), 0, 8})

	assert.Equal("TRACE: 00 00 | 82 00 08 | 00 00 00 00 00 00 00 F4", cpu.Trace())
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[2] = 0x2a
	cpu.Fl = FL_GREATER

	text := cpu.String()
	assert.Contains(text, " pc: 00\n")
	assert.Contains(text, " fl: 010 G\n")
	assert.Contains(text, " r2: 2A  42\n")
	assert.Contains(text, " r7: F4 244\n")
}

func TestVerbose(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newLoaded(t, []byte{byte(OP_HLT)})
	cpu.Verbose = true

	assert.NoError(cpu.Run())
}
