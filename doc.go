/*
Package bson encodes and decodes BSON, the length-prefixed binary document
format used by MongoDB. The API mirrors the standard `encoding/json`
package: Marshal and Unmarshal work on whole buffers, and Encoder and
Decoder work on streams of concatenated documents.

Values are drawn from a closed set of types that implement Value: Double,
String, *Document, *Array, Binary, ObjectID, Boolean, DateTime, Null,
Regex, DBRef, Code, Symbol, CodeWithScope, Int32, Timestamp, Int64, MinKey
and MaxKey. There is no reflection; callers map their own data onto these
types explicitly. Constructors such as NewString and NewRegex validate their
input, so every value that can be built can also be encoded.

1. Building and Encoding Documents

A Document keeps its keys in insertion order, and that order is the order
written to the wire.

	doc := bson.MustDocument(
		bson.E("name", bson.MustString("ada")),
		bson.E("born", bson.Int32(1815)),
		bson.E("tags", bson.MustArray(bson.MustString("math"))),
	)

	data, err := bson.Marshal(doc)
	if err != nil {
		// handle error
	}

Marshal only fails when the document would exceed the format's length
limits or the size set with MaxDocumentSize.

2. Decoding

Unmarshal checks every length, terminator and tag against the buffer
bounds. Failures are reported as *DecodeError, whose Reason can be matched
with errors.Is:

	doc, err := bson.Unmarshal(data)
	if errors.Is(err, bson.TruncatedInput) {
		// the buffer ended early
	}

Options such as MaxDepth, StrictKeys and AllowTrailingData tune what the
decoder accepts.

Decoded documents are read-only at every level. Clone returns a copy that
can be changed, and a nested Document or Array belongs to a single parent.

3. Extended JSON

MarshalExtJSON and UnmarshalExtJSON convert documents to and from MongoDB
Extended JSON v2, in relaxed or canonical form. The parser accepts comments
and trailing commas, and reports errors with line and column.

	out, err := bson.MarshalExtJSON(doc, bson.Canonical(), bson.Indent(2))
*/
package bson
