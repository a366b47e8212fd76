package main

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/chzyer/readline"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/monitor"
)

// debug runs the interactive monitor on the terminal.
func debug(prog *cpu.Program, verbose bool) (err error) {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range monitor.Commands {
		items = append(items, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ls8> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return
	}
	defer rl.Close()

	emu := emulator.NewEmulator(rl.Stdout())
	emu.Program = prog
	emu.Verbose = verbose

	mon, err := monitor.NewMonitor(emu, rl.Stdout())
	if err != nil {
		return
	}

	log.SetOutput(rl.Stderr())
	defer log.SetOutput(os.Stderr)

	for {
		var line string
		line, err = rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		var quit bool
		quit, err = mon.Exec(line)
		if err != nil {
			log.Print(err)
			err = nil
		}
		if quit {
			return
		}
	}
}
