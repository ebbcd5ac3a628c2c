package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/sysy-lang/sysyc/internal/analysis"
	"github.com/sysy-lang/sysyc/internal/asm"
	"github.com/sysy-lang/sysyc/internal/errors"
	"github.com/sysy-lang/sysyc/internal/ir"
	"github.com/sysy-lang/sysyc/internal/regalloc"
	"github.com/sysy-lang/sysyc/internal/sema"
	"github.com/sysy-lang/sysyc/grammar"
)

func main() {
	koopaIn := flag.String("koopa", "", "compile input to Koopa-style IR text")
	riscvIn := flag.String("riscv", "", "compile input to RISC-V assembly")
	out := flag.String("o", "", "output file (required)")
	flag.Parse()

	var input, mode string
	switch {
	case *koopaIn != "":
		input, mode = *koopaIn, "koopa"
	case *riscvIn != "":
		input, mode = *riscvIn, "riscv"
	default:
		fmt.Fprintln(os.Stderr, "Usage: sysyc -koopa input.c -o out.koopa | sysyc -riscv input.c -o out.s")
		os.Exit(1)
	}
	if *out == "" {
		fmt.Fprintln(os.Stderr, color.RedString("missing required -o output path"))
		os.Exit(1)
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("failed to read %s: %s", input, err))
		os.Exit(1)
	}

	cu, err := grammar.Parse(input, string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("syntax error: %s", err))
		os.Exit(1)
	}

	result, diags := sema.Analyze(cu)
	if reportErrors(input, string(source), diags) {
		os.Exit(1)
	}

	prog := ir.Build(cu, result)
	ir.Optimize(prog)

	var rendered string
	switch mode {
	case "koopa":
		rendered = ir.Print(prog)
	case "riscv":
		rendered = compileToAsm(prog)
	}

	if err := os.WriteFile(*out, []byte(rendered), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("failed to write %s: %s", *out, err))
		os.Exit(1)
	}

	color.Green("✅ wrote %s", *out)
}

// compileToAsm runs live-range analysis and register allocation over
// every defined function, lowers the program to pseudo-instructions,
// cleans it up with the peephole pass, and renders the result as text.
func compileToAsm(prog *ir.Program) string {
	ranges := analysis.AnalyzeProgram(prog)
	allocs := make(map[*ir.Function]*regalloc.Result, len(ranges))
	for f, lr := range ranges {
		allocs[f] = regalloc.Allocate(f, lr)
	}

	program := asm.EmitProgram(prog, ranges, allocs)
	asm.Peephole(program)
	return asm.Write(program)
}

// reportErrors prints every diagnostic and reports whether any of them
// is severe enough (errors.Error) to abort compilation.
func reportErrors(filename, source string, diags []errors.CompilerError) bool {
	if len(diags) == 0 {
		return false
	}
	reporter := errors.NewErrorReporter(filename, source)
	fatal := false
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, reporter.FormatError(d))
		if d.Level == errors.Error {
			fatal = true
		}
	}
	return fatal
}
