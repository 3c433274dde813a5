package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/spf13/pflag"
)

func decodeCommand(e *env) *Command {
	var (
		compact   bool
		canonical bool
		hexInput  bool
		verbose   bool
	)

	return &Command{
		Name:    "decode",
		Summary: "Convert a BSON document stream to Extended JSON",
		Description: `Read a sequence of BSON documents and write each one as Extended JSON,
one document per line.

Output is relaxed Extended JSON unless --canonical is given. When stdout
is a terminal each document is pretty-printed; -c forces compact output.`,
		Usage: "bsontool decode [-c] [--canonical] [-x] [file]",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("decode", &hexInput, &verbose)
			fs.BoolVarP(&compact, "compact", "c", false, "compact output (no indentation)")
			fs.BoolVar(&canonical, "canonical", false, "canonical Extended JSON (keeps every numeric type)")
			return fs
		},
		Run: func(args []string) error {
			data, err := readInput(args, e.stdin, hexInput)
			if err != nil {
				return err
			}
			var opts []bson.Option
			if canonical {
				opts = append(opts, bson.Canonical())
			}
			if !compact && e.stdoutTerminal {
				opts = append(opts, bson.Indent(2))
			}
			return decodeStream(data, e.stdout, e.logger(verbose), opts...)
		},
	}
}

// decodeStream writes every document in data to w as Extended JSON.
func decodeStream(data []byte, w io.Writer, logger *slog.Logger, opts ...bson.Option) error {
	dec := bson.NewDecoder(bytes.NewReader(data), opts...)
	for n := 0; ; n++ {
		doc, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			logger.Debug("decoded stream", "documents", n, "bytes", len(data))
			return nil
		}
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		out, err := bson.MarshalExtJSON(doc, opts...)
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		out = append(out, '\n')
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
}
