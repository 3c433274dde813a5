package bson

// Marshal returns the BSON encoding of doc. A nil doc encodes as the empty
// document. The only possible error is an *EncodeError for a document
// whose size exceeds the format's length ceiling or MaxDocumentSize.
func Marshal(doc *Document, opts ...Option) ([]byte, error) {
	return Append(nil, doc, opts...)
}

// Append appends the BSON encoding of doc to dst and returns the extended
// buffer. On error dst is returned unchanged in length.
func Append(dst []byte, doc *Document, opts ...Option) ([]byte, error) {
	o, err := newOptions(opts)
	if err != nil {
		return dst, err
	}
	out, err := encodeDocument(dst, doc, o)
	if err != nil {
		return dst, err
	}
	return out, nil
}

// Unmarshal parses the BSON-encoded document in data. The document must
// occupy all of data unless AllowTrailingData is given. Failures are
// reported as *DecodeError.
func Unmarshal(data []byte, opts ...Option) (*Document, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	doc, n, err := decodeFirst(data, o)
	if err != nil {
		return nil, err
	}
	if n != len(data) && !o.allowTrailing {
		return nil, &DecodeError{Reason: TrailingData, Offset: n, Msg: "bytes remain after the document"}
	}
	return doc, nil
}

// UnmarshalFirst parses the first document in data and returns it along
// with the bytes that follow it. Use it to walk a concatenated sequence of
// documents held in memory.
func UnmarshalFirst(data []byte, opts ...Option) (*Document, []byte, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	doc, n, err := decodeFirst(data, o)
	if err != nil {
		return nil, nil, err
	}
	return doc, data[n:], nil
}

func decodeFirst(data []byte, o *options) (*Document, int, error) {
	ds := &decodeState{opts: o}
	c := &cursor{buf: data, end: len(data)}
	doc, err := ds.decodeDocument(c)
	if err != nil {
		return nil, 0, err
	}
	return doc, c.pos, nil
}
