// Command bsontool inspects and produces BSON document streams.
//
//	bsontool decode [-c] [--canonical] [-x] [file]
//	bsontool encode [--yaml] [-x] [file]
//	bsontool validate [--digest] [-x] [file]
//	bsontool cbor [-x] [file]
//	bsontool fmt [-i N] [file]
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// env holds the process streams so commands can run against buffers in
// tests.
type env struct {
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	stdoutTerminal bool
	stderrTerminal bool
}

func (e *env) logger(verbose bool) *slog.Logger {
	return newLogger(e.stderr, e.stderrTerminal, verbose)
}

func main() {
	e := &env{
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		stdoutTerminal: term.IsTerminal(int(os.Stdout.Fd())),
		stderrTerminal: term.IsTerminal(int(os.Stderr.Fd())),
	}
	if err := rootCommand(e).Execute(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand(e *env) *Command {
	return &Command{
		Name:    "bsontool",
		Summary: "Inspect and produce BSON documents",
		Description: `Tools for working with BSON document streams from the command line.

Every command reads from the optional trailing file argument, or from
stdin when it is omitted. For the commands that read BSON, --hex means
the input is hex text rather than raw bytes; whitespace in it is ignored.`,
		Subcommands: []*Command{
			decodeCommand(e),
			encodeCommand(e),
			validateCommand(e),
			cborCommand(e),
			fmtCommand(e),
		},
	}
}

// newFlagSet returns a flag set carrying the flags every command shares.
func newFlagSet(name string, hexInput, verbose *bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.BoolVarP(hexInput, "hex", "x", false, "treat input as hex text")
	fs.BoolVarP(verbose, "verbose", "v", false, "log progress to stderr")
	return fs
}
