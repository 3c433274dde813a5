package bson

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Value is a single BSON value. The set of implementations is closed: only
// the types declared in this package satisfy it.
type Value interface {
	// Type returns the wire tag of the value.
	Type() Type
	isValue()
}

// Double is an IEEE-754 binary64 floating point number.
type Double float64

// Int32 is a signed 32-bit integer.
type Int32 int32

// Int64 is a signed 64-bit integer.
type Int64 int64

// Boolean is true or false.
type Boolean bool

// DateTime is a UTC instant in milliseconds since the Unix epoch.
type DateTime int64

// DateTimeFromTime returns the DateTime for t, truncated to milliseconds.
func DateTimeFromTime(t time.Time) DateTime {
	return DateTime(t.UnixMilli())
}

// Time returns d as a UTC time.Time.
func (d DateTime) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

// Timestamp is the internal replication timestamp type: a seconds value
// and an ordinal within that second.
type Timestamp struct {
	T uint32
	I uint32
}

// Null is the null value.
type Null struct{}

// MinKey compares lower than every other value.
type MinKey struct{}

// MaxKey compares higher than every other value.
type MaxKey struct{}

// String is a UTF-8 string. It cannot contain NUL bytes.
type String struct {
	s string
}

// NewString returns s as a String. It fails if s is not valid UTF-8 or
// contains a NUL byte.
func NewString(s string) (String, error) {
	if err := checkText("string", s); err != nil {
		return String{}, err
	}
	return String{s: s}, nil
}

// MustString is like NewString but panics on invalid input.
func MustString(s string) String {
	v, err := NewString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (s String) String() string { return s.s }

// Binary subtypes.
const (
	BinaryGeneric     byte = 0x00
	BinaryFunction    byte = 0x01
	BinaryOld         byte = 0x02
	BinaryUUIDOld     byte = 0x03
	BinaryUUID        byte = 0x04
	BinaryMD5         byte = 0x05
	BinaryUserDefined byte = 0x80
)

// Binary is an opaque byte blob with a subtype.
type Binary struct {
	subtype byte
	data    []byte
}

// NewBinary returns a Binary holding a copy of data.
func NewBinary(subtype byte, data []byte) Binary {
	return Binary{subtype: subtype, data: append([]byte(nil), data...)}
}

// Subtype returns the binary subtype.
func (b Binary) Subtype() byte { return b.subtype }

// Data returns a copy of the binary payload.
func (b Binary) Data() []byte { return append([]byte(nil), b.data...) }

// Len returns the payload length in bytes.
func (b Binary) Len() int { return len(b.data) }

func (Double) Type() Type    { return TypeDouble }
func (String) Type() Type    { return TypeString }
func (Binary) Type() Type    { return TypeBinary }
func (Boolean) Type() Type   { return TypeBoolean }
func (DateTime) Type() Type  { return TypeDateTime }
func (Null) Type() Type      { return TypeNull }
func (Int32) Type() Type     { return TypeInt32 }
func (Timestamp) Type() Type { return TypeTimestamp }
func (Int64) Type() Type     { return TypeInt64 }
func (MinKey) Type() Type    { return TypeMinKey }
func (MaxKey) Type() Type    { return TypeMaxKey }

func (Double) isValue()    {}
func (String) isValue()    {}
func (Binary) isValue()    {}
func (Boolean) isValue()   {}
func (DateTime) isValue()  {}
func (Null) isValue()      {}
func (Int32) isValue()     {}
func (Timestamp) isValue() {}
func (Int64) isValue()     {}
func (MinKey) isValue()    {}
func (MaxKey) isValue()    {}

// checkText validates text that is written with a NUL terminator.
func checkText(what, s string) error {
	if !utf8.ValidString(s) {
		return constructionErrorf(what, "%q is not valid UTF-8", s)
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		return constructionErrorf(what, "%q contains a NUL byte at index %d", s, i)
	}
	return nil
}
