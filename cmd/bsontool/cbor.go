package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"
)

// cborRegexTag is the IANA tag for a regular expression.
const cborRegexTag = 35

// toolEncMode encodes with RFC 8949 Core Deterministic Encoding. Date-times
// keep their tag so they remain distinguishable from plain strings.
var toolEncMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	opts.TimeTag = cbor.EncTagRequired
	var err error
	toolEncMode, err = opts.EncMode()
	if err != nil {
		panic("bsontool: cbor encoder initialization failed: " + err.Error())
	}
}

func cborCommand(e *env) *Command {
	var (
		hexInput bool
		verbose  bool
	)

	return &Command{
		Name:    "cbor",
		Summary: "Convert a BSON document stream to CBOR",
		Description: `Read a sequence of BSON documents and write each one as a CBOR item
using Core Deterministic Encoding, producing a CBOR sequence.

Deterministic encoding sorts map keys, so document key order is not
kept. Date-times become tagged RFC 3339 strings and regular expressions
without options use tag 35. BSON types with no CBOR counterpart are
written as their canonical Extended JSON wrapper maps, for example
{"$oid": "..."}.`,
		Usage: "bsontool cbor [-x] [file]",
		Flags: func() *pflag.FlagSet {
			return newFlagSet("cbor", &hexInput, &verbose)
		},
		Run: func(args []string) error {
			data, err := readInput(args, e.stdin, hexInput)
			if err != nil {
				return err
			}
			return convertToCBOR(data, e.stdout, e.logger(verbose))
		},
	}
}

// convertToCBOR writes one CBOR item to w for each document in data.
func convertToCBOR(data []byte, w io.Writer, logger *slog.Logger) error {
	dec := bson.NewDecoder(bytes.NewReader(data))
	for n := 0; ; n++ {
		doc, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			logger.Debug("converted stream", "documents", n)
			return nil
		}
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		out, err := toolEncMode.Marshal(cborValue(doc))
		if err != nil {
			return fmt.Errorf("document %d: encode CBOR: %w", n, err)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
}

// cborValue maps v to the Go value the CBOR encoder should write.
func cborValue(v bson.Value) any {
	switch v := v.(type) {
	case *bson.Document:
		m := make(map[string]any, v.Len())
		for _, e := range v.Elements() {
			m[e.Key] = cborValue(e.Value)
		}
		return m
	case *bson.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = cborValue(v.Index(i))
		}
		return out
	case bson.Double:
		return float64(v)
	case bson.String:
		return v.String()
	case bson.Binary:
		if v.Subtype() == bson.BinaryGeneric {
			return v.Data()
		}
		return map[string]any{"$binary": map[string]any{
			"bytes":   v.Data(),
			"subType": fmt.Sprintf("%02x", v.Subtype()),
		}}
	case bson.ObjectID:
		return map[string]any{"$oid": v.Hex()}
	case bson.Boolean:
		return bool(v)
	case bson.DateTime:
		return v.Time()
	case bson.Null:
		return nil
	case bson.Regex:
		if v.Options() == "" {
			return cbor.Tag{Number: cborRegexTag, Content: v.Pattern()}
		}
		return map[string]any{"$regularExpression": map[string]any{
			"pattern": v.Pattern(),
			"options": v.Options(),
		}}
	case bson.DBRef:
		return map[string]any{"$dbPointer": map[string]any{
			"$ref": v.Namespace(),
			"$id":  map[string]any{"$oid": v.ID().Hex()},
		}}
	case bson.Code:
		return map[string]any{"$code": v.String()}
	case bson.Symbol:
		return map[string]any{"$symbol": v.String()}
	case bson.CodeWithScope:
		return map[string]any{"$code": v.Code(), "$scope": cborValue(v.Scope())}
	case bson.Int32:
		return int64(v)
	case bson.Timestamp:
		return map[string]any{"$timestamp": map[string]any{"t": v.T, "i": v.I}}
	case bson.Int64:
		return int64(v)
	case bson.MinKey:
		return map[string]any{"$minKey": 1}
	case bson.MaxKey:
		return map[string]any{"$maxKey": 1}
	}
	return nil
}
