package ast

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KimNorgaard/go-bson/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// TokenLiteral returns the literal value of the token associated with the node.
	TokenLiteral() string
	// String returns the compact JSON text of the node.
	String() string
}

// Expression is a node that represents a JSON value.
type Expression interface {
	Node
	expressionNode()
}

// Document is the root node of a JSON text.
type Document struct {
	Value Expression
}

// TokenLiteral returns the literal value of the token associated with the node.
func (d *Document) TokenLiteral() string {
	if d.Value != nil {
		return d.Value.TokenLiteral()
	}
	return ""
}

// String returns the compact JSON text of the node.
func (d *Document) String() string {
	if d.Value != nil {
		return d.Value.String()
	}
	return ""
}

// BooleanLiteral represents a boolean literal.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BooleanLiteral) String() string       { return strconv.FormatBool(b.Value) }

// IntegerLiteral represents an integer literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return strconv.FormatInt(il.Value, 10) }

// FloatLiteral represents a float literal. Its text always carries a
// fraction or an exponent so it reads back as a float.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return FormatFloat(fl.Value) }

// FormatFloat renders a finite f as a JSON number that keeps a fraction or
// an exponent.
func FormatFloat(f float64) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return Quote(sl.Value) }

// NullLiteral represents a null literal.
type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

// ArrayLiteral represents an array literal.
type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	var out strings.Builder
	out.WriteByte('[')
	for i, el := range al.Elements {
		if i > 0 {
			out.WriteByte(',')
		}
		out.WriteString(el.String())
	}
	out.WriteByte(']')
	return out.String()
}

// ObjectLiteral represents an object literal. Pairs keep their source
// order.
type ObjectLiteral struct {
	Token token.Token // the '{' token
	Pairs []*Pair
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) String() string {
	var out strings.Builder
	out.WriteByte('{')
	for i, p := range ol.Pairs {
		if i > 0 {
			out.WriteByte(',')
		}
		out.WriteString(p.String())
	}
	out.WriteByte('}')
	return out.String()
}

// Get returns the value of the first pair with key, or nil.
func (ol *ObjectLiteral) Get(key string) Expression {
	for _, p := range ol.Pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Pair represents a key-value pair in an object literal.
type Pair struct {
	Token token.Token // the key's token
	Key   string
	Value Expression
}

func (p *Pair) TokenLiteral() string { return p.Token.Literal }
func (p *Pair) String() string {
	return Quote(p.Key) + ":" + p.Value.String()
}

const hex = "0123456789abcdef"

// Quote returns s as a JSON string literal. Control characters are
// escaped; everything else, including non-ASCII text, is written as is.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteString(`�`)
			} else {
				b.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
		i++
	}
	b.WriteByte('"')
	return b.String()
}
