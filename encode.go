package bson

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Encoder writes a sequence of BSON documents to an output stream.
type Encoder struct {
	w    io.Writer
	opts []Option
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{w: w, opts: opts}
}

// Encode writes the BSON encoding of doc to the stream.
func (e *Encoder) Encode(doc *Document) error {
	b, err := Marshal(doc, e.opts...)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("bson: writing document: %w", err)
	}
	return nil
}

// encodeState carries the container lengths computed by the sizing pass.
// sizes holds one entry per document, array and code-with-scope scope in
// pre-order; the emitting pass consumes them in the same order.
type encodeState struct {
	sizes []int
	next  int
	limit int
}

func (es *encodeState) checkLimit(n int) error {
	if n > es.limit {
		return &EncodeError{Size: n, Limit: es.limit}
	}
	return nil
}

func (es *encodeState) sizeValue(v Value) (int, error) {
	e := registry[v.Type()]
	if e == nil {
		return 0, fmt.Errorf("bson: no encoding for %s", v.Type())
	}
	return e.size(es, v)
}

// sizeElements returns the length of a document of n elements whose key
// lengths and values are given by key and value. It reserves the pre-order slot before visiting
// children so that nested lengths land after their parent's.
func (es *encodeState) sizeElements(n int, key func(i int) int, value func(i int) Value) (int, error) {
	slot := len(es.sizes)
	es.sizes = append(es.sizes, 0)
	total := 4 + 1
	for i := range n {
		size, err := es.sizeValue(value(i))
		if err != nil {
			return 0, err
		}
		total += 1 + key(i) + 1 + size
		if err := es.checkLimit(total); err != nil {
			return 0, err
		}
	}
	es.sizes[slot] = total
	return total, nil
}

func (es *encodeState) sizeDocument(d *Document) (int, error) {
	return es.sizeElements(d.Len(),
		func(i int) int { return len(d.elems[i].Key) },
		func(i int) Value { return d.elems[i].Value })
}

func (es *encodeState) sizeArray(a *Array) (int, error) {
	return es.sizeElements(a.Len(),
		func(i int) int { return decimalLen(i) },
		func(i int) Value { return a.values[i] })
}

func (es *encodeState) takeSize() int {
	n := es.sizes[es.next]
	es.next++
	return n
}

func (es *encodeState) appendValue(dst []byte, v Value) []byte {
	return registry[v.Type()].append(es, dst, v)
}

func (es *encodeState) appendDocument(dst []byte, d *Document) []byte {
	dst = appendInt32(dst, int32(es.takeSize()))
	for _, e := range d.elems {
		dst = append(dst, byte(e.Value.Type()))
		dst = appendCString(dst, e.Key)
		dst = es.appendValue(dst, e.Value)
	}
	return append(dst, 0)
}

func (es *encodeState) appendArray(dst []byte, a *Array) []byte {
	dst = appendInt32(dst, int32(es.takeSize()))
	for i, v := range a.values {
		dst = append(dst, byte(v.Type()))
		dst = strconv.AppendInt(dst, int64(i), 10)
		dst = append(dst, 0)
		dst = es.appendValue(dst, v)
	}
	return append(dst, 0)
}

// encodeDocument runs both passes over d and appends the result to dst.
func encodeDocument(dst []byte, d *Document, o *options) ([]byte, error) {
	if d == nil {
		d = &Document{}
	}
	es := &encodeState{limit: o.encodeLimit()}
	n, err := es.sizeDocument(d)
	if err != nil {
		return nil, err
	}
	if cap(dst)-len(dst) < n {
		grown := make([]byte, len(dst), len(dst)+n)
		copy(grown, dst)
		dst = grown
	}
	return es.appendDocument(dst, d), nil
}

func appendInt32(dst []byte, n int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(n))
}

func stringSize(s string) int {
	return 4 + len(s) + 1
}

func appendString(dst []byte, s string) []byte {
	dst = appendInt32(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0)
}

func appendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0)
}

// decimalLen returns len(strconv.Itoa(i)) for i >= 0.
func decimalLen(i int) int {
	n := 1
	for i >= 10 {
		i /= 10
		n++
	}
	return n
}

func sizeBinary(es *encodeState, v Value) (int, error) {
	b := v.(Binary)
	n := 4 + 1 + len(b.data)
	if b.subtype == BinaryOld {
		n += 4
	}
	return n, es.checkLimit(n)
}

func appendBinary(_ *encodeState, dst []byte, v Value) []byte {
	b := v.(Binary)
	if b.subtype == BinaryOld {
		dst = appendInt32(dst, int32(len(b.data)+4))
		dst = append(dst, b.subtype)
		dst = appendInt32(dst, int32(len(b.data)))
		return append(dst, b.data...)
	}
	dst = appendInt32(dst, int32(len(b.data)))
	dst = append(dst, b.subtype)
	return append(dst, b.data...)
}
