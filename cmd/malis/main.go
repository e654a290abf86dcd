// Command malis runs the interpreter: with no arguments it starts a REPL,
// with one argument it executes the named source file.
//
// Grounded on the teacher's cmd/jsgo/main.go (flag-based entry point,
// hadError/hadRuntimeError exit-code bookkeeping) and other Lox-family
// drivers in the retrieval pack (bufio.Scanner "> " prompt loop,
// resetting error state per line) and original_source/src/lib.rs's
// interactive() function.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/mihaimaganu17/malis/ast"
	"github.com/mihaimaganu17/malis/builtins"
	"github.com/mihaimaganu17/malis/diagnostics"
	"github.com/mihaimaganu17/malis/interpreter"
	"github.com/mihaimaganu17/malis/parser"
	"github.com/mihaimaganu17/malis/resolver"
)

func main() {
	flag.Parse()
	args := flag.Args()

	switch len(args) {
	case 0:
		runPrompt()
	case 1:
		runFile(args[0])
	default:
		fmt.Fprintln(os.Stderr, "usage: malis [script]")
		os.Exit(64)
	}
}

func runFile(path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "malis: %s\n", err)
		os.Exit(1)
	}

	interp := interpreter.New(os.Stdout)
	builtins.RegisterAll(interp.Globals())

	switch run(interp, string(source), os.Stdout) {
	case exitCompileError:
		os.Exit(65)
	case exitRuntimeError:
		os.Exit(70)
	}
}

func runPrompt() {
	interp := interpreter.New(os.Stdout)
	builtins.RegisterAll(interp.Globals())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		run(interp, scanner.Text(), os.Stdout)
	}
}

type exitStatus int

const (
	exitOK exitStatus = iota
	exitCompileError
	exitRuntimeError
)

// run lexes, parses, resolves and interprets one chunk of source against
// a live interpreter, so top-level bindings persist across REPL lines.
// It halts the pipeline on the first stage that reports a diagnostic,
// except that the resolver's diagnostics are all collected before the
// pipeline halts.
func run(interp *interpreter.Interpreter, source string, out *os.File) exitStatus {
	reporter := diagnostics.New()

	p := parser.New(source, reporter)
	stmts := p.Parse()
	if reporter.HadError() {
		reportAll(reporter)
		return exitCompileError
	}

	res := resolver.New(reporter)
	sideTable := res.Resolve(stmts)
	if reporter.HadError() {
		reportAll(reporter)
		return exitCompileError
	}
	interp.SetSideTable(sideTable)

	if echoed, ok := soleExpression(stmts); ok {
		val, err := interp.EvalTopLevel(echoed)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitRuntimeError
		}
		fmt.Fprintln(out, val.String())
		return exitOK
	}

	if err := interp.Interpret(stmts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}
	return exitOK
}

// soleExpression reports whether a parsed chunk is exactly one bare
// expression statement, the REPL convenience Lox-family consoles offer:
// typing `1 + 2` prints `3` without requiring an explicit `print`.
func soleExpression(stmts []ast.Stmt) (ast.Expr, bool) {
	if len(stmts) != 1 {
		return nil, false
	}
	e, ok := stmts[0].(*ast.ExpressionStmt)
	if !ok {
		return nil, false
	}
	return e.Expr, true
}

func reportAll(reporter *diagnostics.Reporter) {
	for _, d := range reporter.Diagnostics() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}
