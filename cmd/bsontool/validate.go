package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"
)

func validateCommand(e *env) *Command {
	var (
		digest   bool
		hexInput bool
		verbose  bool
	)

	return &Command{
		Name:    "validate",
		Summary: "Check that input is a well-formed BSON document stream",
		Description: `Decode every document in the input with strict checks, including
duplicate keys, and print a summary. The first malformed document stops
validation with an error naming its index and byte offset.

With --digest, also print a BLAKE3-256 digest of each document's bytes,
which identifies documents independently of their position.`,
		Usage: "bsontool validate [--digest] [-x] [file]",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("validate", &hexInput, &verbose)
			fs.BoolVar(&digest, "digest", false, "print a BLAKE3 digest per document")
			return fs
		},
		Run: func(args []string) error {
			data, err := readInput(args, e.stdin, hexInput)
			if err != nil {
				return err
			}
			return validateStream(data, e.stdout, digest, e.logger(verbose))
		},
	}
}

// validateStream strictly decodes every document in data and reports to w.
func validateStream(data []byte, w io.Writer, digest bool, logger *slog.Logger) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input: expected BSON data")
	}

	rest := data
	count := 0
	for len(rest) > 0 {
		offset := len(data) - len(rest)
		doc, next, err := bson.UnmarshalFirst(rest, bson.StrictKeys())
		if err != nil {
			return fmt.Errorf("document %d at offset %d: %w", count, offset, err)
		}
		raw := rest[:len(rest)-len(next)]
		if digest {
			sum := blake3.Sum256(raw)
			if _, err := fmt.Fprintf(w, "%s  document %d (%d bytes, %d keys)\n", hex.EncodeToString(sum[:]), count, len(raw), doc.Len()); err != nil {
				return fmt.Errorf("writing digest: %w", err)
			}
		}
		logger.Debug("validated document", "index", count, "offset", offset, "bytes", len(raw))
		rest = next
		count++
	}

	if _, err := fmt.Fprintf(w, "valid: %d documents, %d bytes\n", count, len(data)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
