package bson

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is the one-byte tag that precedes every element on the wire.
type Type byte

const (
	TypeDouble        Type = 0x01
	TypeString        Type = 0x02
	TypeDocument      Type = 0x03
	TypeArray         Type = 0x04
	TypeBinary        Type = 0x05
	TypeObjectID      Type = 0x07
	TypeBoolean       Type = 0x08
	TypeDateTime      Type = 0x09
	TypeNull          Type = 0x0A
	TypeRegex         Type = 0x0B
	TypeDBRef         Type = 0x0C
	TypeCode          Type = 0x0D
	TypeSymbol        Type = 0x0E
	TypeCodeWithScope Type = 0x0F
	TypeInt32         Type = 0x10
	TypeTimestamp     Type = 0x11
	TypeInt64         Type = 0x12
	TypeMaxKey        Type = 0x7F
	TypeMinKey        Type = 0xFF
)

// A typeEntry holds the wire rules for one tag. size returns the payload
// length in bytes, append writes the payload, and decode reads it from a
// cursor positioned just after the element key.
type typeEntry struct {
	name   string
	size   func(es *encodeState, v Value) (int, error)
	append func(es *encodeState, dst []byte, v Value) []byte
	decode func(ds *decodeState, c *cursor) (Value, error)
}

// registry is indexed by tag. It is filled once by init and only read
// afterwards.
var registry [256]*typeEntry

func register(t Type, e *typeEntry) {
	if registry[t] != nil {
		panic(fmt.Sprintf("bson: tag 0x%02x registered twice", byte(t)))
	}
	registry[t] = e
}

func fixedSize(n int) func(*encodeState, Value) (int, error) {
	return func(*encodeState, Value) (int, error) { return n, nil }
}

func init() {
	register(TypeDouble, &typeEntry{
		name: "double",
		size: fixedSize(8),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			return binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(v.(Double))))
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			u, err := c.readUint64()
			return Double(math.Float64frombits(u)), err
		},
	})
	register(TypeString, &typeEntry{
		name: "string",
		size: func(_ *encodeState, v Value) (int, error) { return stringSize(v.(String).s), nil },
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			return appendString(dst, v.(String).s)
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			s, err := c.readString()
			return String{s: s}, err
		},
	})
	register(TypeDocument, &typeEntry{
		name: "document",
		size: func(es *encodeState, v Value) (int, error) { return es.sizeDocument(v.(*Document)) },
		append: func(es *encodeState, dst []byte, v Value) []byte {
			return es.appendDocument(dst, v.(*Document))
		},
		decode: func(ds *decodeState, c *cursor) (Value, error) { return ds.decodeDocument(c) },
	})
	register(TypeArray, &typeEntry{
		name: "array",
		size: func(es *encodeState, v Value) (int, error) { return es.sizeArray(v.(*Array)) },
		append: func(es *encodeState, dst []byte, v Value) []byte {
			return es.appendArray(dst, v.(*Array))
		},
		decode: func(ds *decodeState, c *cursor) (Value, error) { return ds.decodeArray(c) },
	})
	register(TypeBinary, &typeEntry{
		name:   "binary",
		size:   sizeBinary,
		append: appendBinary,
		decode: decodeBinary,
	})
	register(TypeObjectID, &typeEntry{
		name: "objectId",
		size: fixedSize(12),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			id := v.(ObjectID)
			return append(dst, id[:]...)
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) { return c.readObjectID() },
	})
	register(TypeBoolean, &typeEntry{
		name: "bool",
		size: fixedSize(1),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			if v.(Boolean) {
				return append(dst, 1)
			}
			return append(dst, 0)
		},
		decode: decodeBoolean,
	})
	register(TypeDateTime, &typeEntry{
		name: "date",
		size: fixedSize(8),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			return binary.LittleEndian.AppendUint64(dst, uint64(v.(DateTime)))
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			u, err := c.readUint64()
			return DateTime(int64(u)), err
		},
	})
	register(TypeNull, &typeEntry{
		name:   "null",
		size:   fixedSize(0),
		append: func(_ *encodeState, dst []byte, _ Value) []byte { return dst },
		decode: func(*decodeState, *cursor) (Value, error) { return Null{}, nil },
	})
	register(TypeRegex, &typeEntry{
		name:   "regex",
		size:   sizeRegex,
		append: appendRegex,
		decode: decodeRegex,
	})
	register(TypeDBRef, &typeEntry{
		name:   "dbPointer",
		size:   sizeDBRef,
		append: appendDBRef,
		decode: decodeDBRef,
	})
	register(TypeCode, &typeEntry{
		name:   "javascript",
		size:   sizeCode,
		append: appendCode,
		decode: decodeCode,
	})
	register(TypeSymbol, &typeEntry{
		name:   "symbol",
		size:   sizeSymbol,
		append: appendSymbol,
		decode: decodeSymbol,
	})
	register(TypeCodeWithScope, &typeEntry{
		name:   "javascriptWithScope",
		size:   sizeCodeWithScope,
		append: appendCodeWithScope,
		decode: decodeCodeWithScope,
	})
	register(TypeInt32, &typeEntry{
		name: "int",
		size: fixedSize(4),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			return binary.LittleEndian.AppendUint32(dst, uint32(v.(Int32)))
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			n, err := c.readInt32()
			return Int32(n), err
		},
	})
	register(TypeTimestamp, &typeEntry{
		name: "timestamp",
		size: fixedSize(8),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			ts := v.(Timestamp)
			return binary.LittleEndian.AppendUint64(dst, uint64(ts.T)<<32|uint64(ts.I))
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			u, err := c.readUint64()
			return Timestamp{T: uint32(u >> 32), I: uint32(u)}, err
		},
	})
	register(TypeInt64, &typeEntry{
		name: "long",
		size: fixedSize(8),
		append: func(_ *encodeState, dst []byte, v Value) []byte {
			return binary.LittleEndian.AppendUint64(dst, uint64(v.(Int64)))
		},
		decode: func(_ *decodeState, c *cursor) (Value, error) {
			u, err := c.readUint64()
			return Int64(int64(u)), err
		},
	})
	register(TypeMaxKey, &typeEntry{
		name:   "maxKey",
		size:   fixedSize(0),
		append: func(_ *encodeState, dst []byte, _ Value) []byte { return dst },
		decode: func(*decodeState, *cursor) (Value, error) { return MaxKey{}, nil },
	})
	register(TypeMinKey, &typeEntry{
		name:   "minKey",
		size:   fixedSize(0),
		append: func(_ *encodeState, dst []byte, _ Value) []byte { return dst },
		decode: func(*decodeState, *cursor) (Value, error) { return MinKey{}, nil },
	})
}

// String returns the name of the type as used by the server's $type
// operator, or Type(0xNN) for unregistered tags.
func (t Type) String() string {
	if e := registry[t]; e != nil {
		return e.name
	}
	return fmt.Sprintf("Type(0x%02x)", byte(t))
}

// Valid reports whether t is a registered tag.
func (t Type) Valid() bool {
	return registry[t] != nil
}
