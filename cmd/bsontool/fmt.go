package main

import (
	bson "github.com/KimNorgaard/go-bson"
	"github.com/spf13/pflag"
)

func fmtCommand(e *env) *Command {
	var (
		indent  int
		verbose bool
	)

	return &Command{
		Name:    "fmt",
		Summary: "Reformat Extended JSON",
		Description: `Read Extended JSON, check it, and write it back in a uniform layout.
Comments and trailing commas are removed and numbers are written in
their shortest form. Key order and type wrappers are kept as written.

The input is one document or an array of documents, as for encode.`,
		Usage: "bsontool fmt [-i N] [file]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("fmt", pflag.ContinueOnError)
			fs.IntVarP(&indent, "indent", "i", 2, "spaces per indentation level, 0 for one line")
			fs.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
			return fs
		},
		Run: func(args []string) error {
			data, err := readInput(args, e.stdin, false)
			if err != nil {
				return err
			}
			out, err := bson.FormatExtJSON(data, bson.Indent(indent))
			if err != nil {
				return err
			}
			e.logger(verbose).Debug("formatted input", "in", len(data), "out", len(out))
			return writeOutput(e.stdout, append(out, '\n'), false)
		},
	}
}
