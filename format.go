package bson

import (
	"bytes"

	"github.com/KimNorgaard/go-bson/internal/formatter"
)

const defaultFormatIndent = 2

// FormatExtJSON rewrites Extended JSON text in a uniform layout. Comments
// and trailing commas are dropped, numbers are written in their shortest
// form, and keys and wrappers are kept as written. The input may be one
// document or an array of documents and must be valid in the same way as
// for UnmarshalExtJSONSeq.
//
// Output is indented by two spaces per level; Indent changes that and
// Indent(0) gives single-line output.
func FormatExtJSON(src []byte, opts ...Option) ([]byte, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	root, err := parseExtJSON(src, o)
	if err != nil {
		return nil, err
	}
	r := &extReader{}
	if _, err := r.documents(root); err != nil {
		return nil, err
	}

	indent := defaultFormatIndent
	if o.indentSet {
		indent = o.indent
	}
	var buf bytes.Buffer
	if err := formatter.New(&buf, indent).Format(root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
