package bson

import (
	"fmt"
	"strconv"
)

// A ConstructionError reports a value that cannot be represented in BSON,
// detected when the value is built rather than when it is encoded.
type ConstructionError struct {
	What string // the kind of value being built, e.g. "string" or "key"
	Msg  string
}

func (e *ConstructionError) Error() string {
	return "bson: invalid " + e.What + ": " + e.Msg
}

func constructionErrorf(what, format string, args ...any) *ConstructionError {
	return &ConstructionError{What: what, Msg: fmt.Sprintf(format, args...)}
}

// An EncodeError is returned when a document cannot be encoded because
// one of its length fields would overflow the format's limits.
type EncodeError struct {
	Size  int
	Limit int
}

func (e *EncodeError) Error() string {
	return "bson: encoded size " + strconv.Itoa(e.Size) + " exceeds limit of " + strconv.Itoa(e.Limit) + " bytes"
}

// Reason classifies a decoding failure. Reason values implement error, so
// a *DecodeError can be matched with errors.Is(err, bson.TruncatedInput).
type Reason int

const (
	TruncatedInput Reason = iota + 1
	MalformedString
	UnknownTypeTag
	TrailingData
	InvalidEncoding
	LengthMismatch
	InvalidValue
	DepthExceeded
	DuplicateKey
	DocumentTooLarge
)

var reasonNames = [...]string{
	TruncatedInput:   "truncated input",
	MalformedString:  "malformed string",
	UnknownTypeTag:   "unknown type tag",
	TrailingData:     "trailing data",
	InvalidEncoding:  "invalid encoding",
	LengthMismatch:   "length mismatch",
	InvalidValue:     "invalid value",
	DepthExceeded:    "max depth exceeded",
	DuplicateKey:     "duplicate key",
	DocumentTooLarge: "document too large",
}

func (r Reason) String() string {
	if r > 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "Reason(" + strconv.Itoa(int(r)) + ")"
}

func (r Reason) Error() string { return "bson: " + r.String() }

// A DecodeError describes why a byte sequence is not a valid encoding.
// Offset is relative to the start of the buffer handed to the decoder.
type DecodeError struct {
	Reason Reason
	Offset int
	Key    string // key of the element being decoded, if known
	Msg    string
}

func (e *DecodeError) Error() string {
	s := "bson: " + e.Reason.String() + " at offset " + strconv.Itoa(e.Offset)
	if e.Key != "" {
		s += " (key " + strconv.Quote(e.Key) + ")"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *DecodeError) Unwrap() error { return e.Reason }
