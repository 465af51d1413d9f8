// Package runcmd wires together a compiler.Program, a configured vm.Thread
// and internal/hostlib into the run/disassemble commands cmd/calyx exposes,
// the way the teacher's internal/maincmd wires parser/resolver/scanner
// phases into its own subcommands.
package runcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/calyx/internal/config"
	"github.com/mna/calyx/internal/hostlib"
	"github.com/mna/calyx/lang/compiler"
	"github.com/mna/calyx/vm"
	"github.com/mna/mainer"
)

// Run loads the assembler-text bytecode image at path (compiler.Program
// has no stable on-disk binary container, see DESIGN.md -- only its
// textual Asm/Dasm form round-trips through a file), assembles it, and
// runs it to completion on a freshly bootstrapped Thread with hostlib's
// method bags and I/O natives installed, and cfg's limits applied.
func Run(ctx context.Context, stdio mainer.Stdio, cfg config.Config, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	prog, err := compiler.Asm(string(src))
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	t := vm.NewThread(stdio.Stdout, stdio.Stderr)
	hostlib.Install(t)
	t.MaxSteps = cfg.MaxSteps
	t.MaxCallDepth = cfg.MaxCallDepth

	if err := t.Run(prog); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}

// Dasm disassembles the bytecode image at path back to its assembler text
// form and prints it to stdio.Stdout, the symmetric operation to Run's
// Asm step -- used to inspect what a hand-written or generated Program
// actually contains.
func Dasm(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	prog, err := compiler.Asm(string(src))
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	out, err := compiler.Dasm(prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprint(stdio.Stdout, out)
	return nil
}
