package main

import (
	"bytes"
	"fmt"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/spf13/pflag"
)

func encodeCommand(e *env) *Command {
	var (
		yamlInput bool
		hexOutput bool
		verbose   bool
	)

	return &Command{
		Name:    "encode",
		Summary: "Convert Extended JSON or YAML to BSON",
		Description: `Read Extended JSON (comments and trailing commas allowed) and write
the BSON encoding. The input is one document or an array of documents;
an array produces a stream with one BSON document per element.

With --yaml the input is YAML. Mapping order is kept, and Extended JSON
wrappers such as {$oid: ...} are recognized the same way.

With -x the output is hex text instead of raw bytes.`,
		Usage: "bsontool encode [--yaml] [-x] [file]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			fs.BoolVar(&yamlInput, "yaml", false, "read YAML instead of Extended JSON")
			fs.BoolVarP(&hexOutput, "hex", "x", false, "write hex text instead of raw bytes")
			fs.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
			return fs
		},
		Run: func(args []string) error {
			data, err := readInput(args, e.stdin, false)
			if err != nil {
				return err
			}
			out, err := encodeDocuments(data, yamlInput)
			if err != nil {
				return err
			}
			e.logger(verbose).Debug("encoded stream", "bytes", len(out), "yaml", yamlInput)
			return writeOutput(e.stdout, out, hexOutput)
		},
	}
}

// encodeDocuments parses data and returns the concatenated BSON encoding
// of the documents it holds.
func encodeDocuments(data []byte, yamlInput bool) ([]byte, error) {
	var (
		docs []*bson.Document
		err  error
	)
	if yamlInput {
		docs, err = yamlDocuments(data)
	} else {
		docs, err = bson.UnmarshalExtJSONSeq(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	var buf bytes.Buffer
	enc := bson.NewEncoder(&buf)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
