// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/translate"
)

// loadProgram reads a program from path. Files ending in .asm are
// assembled, anything else is read as the binary text format.
func loadProgram(path string, verbose bool) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	if strings.EqualFold(filepath.Ext(path), ".asm") {
		asm := &cpu.Assembler{Verbose: verbose}
		for equ, value := range emulator.NewEmulator(nil).Defines() {
			asm.Predefine(equ, value)
		}
		prog, err = asm.Parse(inf)
	} else {
		prog, err = cpu.ReadBinary(inf)
	}

	return
}

// createOutput opens the named output; "-" is stdout.
func createOutput(path string) (out io.WriteCloser, err error) {
	if path == "-" {
		out = nopCloser{os.Stdout}
		return
	}

	out, err = os.Create(path)
	return
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func main() {
	log.SetFlags(0)
	log.SetPrefix("ls8: ")

	var verbose bool
	var output string
	var lang string

	rootCmd := &cobra.Command{
		Use:   "ls8",
		Short: "LS-8 emulator and assembler",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(lang) == 0 {
				return nil
			}
			return translate.SetLanguage(lang)
		},
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose mode")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Message language (BCP 47 tag)")

	runCmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a .ls8 or .asm program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(args[0], verbose)
			if err != nil {
				return
			}

			out, err := createOutput(output)
			if err != nil {
				return
			}
			defer out.Close()

			emu := emulator.NewEmulator(out)
			emu.Program = prog
			emu.Verbose = verbose

			err = emu.Reset()
			if err != nil {
				return
			}

			err = emu.Run()
			return
		},
	}
	runCmd.Flags().StringVarP(&output, "output", "o", "-", "PRN output")

	asmCmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble a program to the .ls8 binary text format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(args[0], verbose)
			if err != nil {
				return
			}

			out, err := createOutput(output)
			if err != nil {
				return
			}
			defer out.Close()

			_, err = prog.WriteTo(out)
			return
		},
	}
	asmCmd.Flags().StringVarP(&output, "output", "o", "-", "Binary output")

	disasmCmd := &cobra.Command{
		Use:   "disasm FILE",
		Short: "List a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(args[0], verbose)
			if err != nil {
				return
			}

			_, err = io.WriteString(cmd.OutOrStdout(), cpu.Disassemble(prog.Binary()).String())
			return
		},
	}

	debugCmd := &cobra.Command{
		Use:   "debug FILE",
		Short: "Debug a program in the interactive monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(args[0], verbose)
			if err != nil {
				return
			}

			return debug(prog, verbose)
		},
	}

	rootCmd.AddCommand(runCmd, asmCmd, disasmCmd, debugCmd)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
