package bson

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Decoder reads and decodes a sequence of BSON documents from an input
// stream.
type Decoder struct {
	r      io.Reader
	opts   []Option
	offset int
}

// NewDecoder returns a new decoder that reads from r.
//
// Each call to Decode reads exactly one document: its length prefix and
// then the rest of its bytes. Functional options such as MaxDepth and
// MaxDocumentSize configure the decoding process.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{r: r, opts: opts}
}

// Decode reads the next document from the stream. It returns io.EOF when
// the stream ends cleanly between documents. Offsets in a returned
// *DecodeError are relative to the start of the stream.
func (d *Decoder) Decode() (*Document, error) {
	if d.r == nil {
		return nil, fmt.Errorf("bson: Decode(nil reader)")
	}
	o, err := newOptions(d.opts)
	if err != nil {
		return nil, err
	}

	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Reason: TruncatedInput, Offset: d.offset, Msg: "stream ended inside a length prefix"}
		}
		return nil, fmt.Errorf("bson: reading document: %w", err)
	}
	n := int(int32(binary.LittleEndian.Uint32(header[:])))
	if n < 5 {
		return nil, &DecodeError{Reason: LengthMismatch, Offset: d.offset, Msg: fmt.Sprintf("declared document length %d", n)}
	}
	if limit := o.decodeLimit(); n > limit {
		return nil, &DecodeError{Reason: DocumentTooLarge, Offset: d.offset, Msg: fmt.Sprintf("declared length %d exceeds %d", n, limit)}
	}

	buf := make([]byte, n)
	copy(buf, header[:])
	if _, err := io.ReadFull(d.r, buf[4:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &DecodeError{Reason: TruncatedInput, Offset: d.offset, Msg: fmt.Sprintf("stream ended inside a %d byte document", n)}
		}
		return nil, fmt.Errorf("bson: reading document: %w", err)
	}

	ds := &decodeState{opts: o}
	c := &cursor{buf: buf, end: n}
	doc, err := ds.decodeDocument(c)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Offset += d.offset
		}
		return nil, err
	}
	d.offset += n
	return doc, nil
}

type decodeState struct {
	opts  *options
	depth int
}

// cursor reads forward through buf[pos:end]. Nested containers get a
// cursor over the same buffer with a tighter end, so a corrupt length can
// never make a reader cross into its parent's or siblings' bytes.
type cursor struct {
	buf []byte
	pos int
	end int
}

func (c *cursor) remaining() int {
	return c.end - c.pos
}

func (c *cursor) fail(reason Reason, offset int, format string, args ...any) *DecodeError {
	return &DecodeError{Reason: reason, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (c *cursor) need(n int, what string) error {
	if n < 0 || n > c.remaining() {
		return c.fail(TruncatedInput, c.pos, "%s needs %d bytes, %d remain", what, n, c.remaining())
	}
	return nil
}

func (c *cursor) readByte() (byte, error) {
	if err := c.need(1, "byte"); err != nil {
		return 0, err
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) readInt32() (int32, error) {
	if err := c.need(4, "int32"); err != nil {
		return 0, err
	}
	n := int32(binary.LittleEndian.Uint32(c.buf[c.pos:]))
	c.pos += 4
	return n, nil
}

func (c *cursor) readUint64() (uint64, error) {
	if err := c.need(8, "64-bit value"); err != nil {
		return 0, err
	}
	u := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return u, nil
}

func (c *cursor) readBytes(n int, what string) ([]byte, error) {
	if err := c.need(n, what); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readObjectID() (ObjectID, error) {
	var id ObjectID
	b, err := c.readBytes(len(id), "object id")
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// readCString reads NUL-terminated UTF-8 text.
func (c *cursor) readCString() (string, error) {
	start := c.pos
	i := bytes.IndexByte(c.buf[c.pos:c.end], 0)
	if i < 0 {
		return "", c.fail(MalformedString, start, "cstring has no terminator")
	}
	b := c.buf[start : start+i]
	if !utf8.Valid(b) {
		return "", c.fail(InvalidEncoding, start, "cstring is not valid UTF-8")
	}
	c.pos += i + 1
	return string(b), nil
}

// readString reads a length-prefixed string. The declared length counts
// the terminator, which must be the only NUL in the payload.
func (c *cursor) readString() (string, error) {
	start := c.pos
	n, err := c.readInt32()
	if err != nil {
		return "", err
	}
	if n < 1 {
		return "", c.fail(MalformedString, start, "declared string length %d", n)
	}
	b, err := c.readBytes(int(n), "string")
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", c.fail(MalformedString, start, "string of declared length %d has no terminator", n)
	}
	if i := bytes.IndexByte(b[:n-1], 0); i >= 0 {
		return "", c.fail(MalformedString, start, "terminator at byte %d, declared at byte %d", i, n-1)
	}
	if !utf8.Valid(b[:n-1]) {
		return "", c.fail(InvalidEncoding, start+4, "string is not valid UTF-8")
	}
	return string(b[:n-1]), nil
}

// container checks the length prefix at the cursor and returns a cursor
// over the elements, which excludes the trailing NUL. The parent cursor
// is advanced past the whole container.
func (ds *decodeState) container(c *cursor, what string) (*cursor, error) {
	start := c.pos
	if err := c.need(4, what+" length"); err != nil {
		return nil, err
	}
	n := int(int32(binary.LittleEndian.Uint32(c.buf[start:])))
	if n < 5 {
		return nil, c.fail(LengthMismatch, start, "declared %s length %d is below the minimum of 5", what, n)
	}
	if n > c.remaining() {
		return nil, c.fail(TruncatedInput, start, "declared %s length %d, %d bytes remain", what, n, c.remaining())
	}
	if c.buf[start+n-1] != 0 {
		return nil, c.fail(LengthMismatch, start+n-1, "%s does not end with a NUL byte", what)
	}
	if ds.depth >= ds.opts.maxDepth {
		return nil, c.fail(DepthExceeded, start, "nesting exceeds %d levels", ds.opts.maxDepth)
	}
	c.pos = start + n
	return &cursor{buf: c.buf, pos: start + 4, end: start + n - 1}, nil
}

// elements decodes every element of a container body, passing each key
// and value to add in order.
func (ds *decodeState) elements(body *cursor, add func(key string, v Value, offset int) error) error {
	ds.depth++
	defer func() { ds.depth-- }()

	for body.pos < body.end {
		offset := body.pos
		t := Type(body.buf[body.pos])
		if t == 0 {
			return body.fail(LengthMismatch, offset, "terminator found %d bytes before the declared end", body.end-offset)
		}
		entry := registry[t]
		if entry == nil {
			return body.fail(UnknownTypeTag, offset, "tag 0x%02x", byte(t))
		}
		body.pos++
		key, err := body.readCString()
		if err != nil {
			return err
		}
		v, err := entry.decode(ds, body)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) && de.Key == "" {
				de.Key = key
			}
			return err
		}
		if err := add(key, v, offset); err != nil {
			return err
		}
	}
	return nil
}

func (ds *decodeState) decodeDocument(c *cursor) (*Document, error) {
	body, err := ds.container(c, "document")
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	err = ds.elements(body, func(key string, v Value, offset int) error {
		if doc.set(key, v) && ds.opts.strictKeys {
			return &DecodeError{Reason: DuplicateKey, Offset: offset, Key: key}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc.frozen = true
	return doc, nil
}

// decodeArray ignores element keys; values keep their wire order.
func (ds *decodeState) decodeArray(c *cursor) (*Array, error) {
	body, err := ds.container(c, "array")
	if err != nil {
		return nil, err
	}
	arr := &Array{}
	err = ds.elements(body, func(_ string, v Value, _ int) error {
		arr.add(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	arr.frozen = true
	return arr, nil
}

func decodeBoolean(_ *decodeState, c *cursor) (Value, error) {
	offset := c.pos
	b, err := c.readByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return Boolean(false), nil
	case 1:
		return Boolean(true), nil
	}
	return nil, c.fail(InvalidValue, offset, "boolean byte 0x%02x", b)
}

func decodeBinary(_ *decodeState, c *cursor) (Value, error) {
	start := c.pos
	n, err := c.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, c.fail(InvalidValue, start, "negative binary length %d", n)
	}
	subtype, err := c.readByte()
	if err != nil {
		return nil, err
	}
	data, err := c.readBytes(int(n), "binary")
	if err != nil {
		return nil, err
	}
	if subtype == BinaryOld {
		if n < 4 {
			return nil, c.fail(LengthMismatch, start, "old binary of length %d has no inner length", n)
		}
		inner := int32(binary.LittleEndian.Uint32(data))
		if inner != n-4 {
			return nil, c.fail(LengthMismatch, start+5, "old binary inner length %d, want %d", inner, n-4)
		}
		data = data[4:]
	}
	return NewBinary(subtype, data), nil
}
