package bson

import (
	"bytes"
	"math"
)

// Equal reports whether a and b are the same value: the same variant with
// the same payload, and for documents the same keys in the same order.
// Doubles compare by bit pattern, so NaN equals itself.
func Equal(a, b Value) bool {
	return compare(a, b, true)
}

// equivalent is Equal without key order for documents.
func equivalent(a, b Value) bool {
	return compare(a, b, false)
}

func compare(a, b Value, ordered bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case Double:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Double)))
	case Binary:
		y := b.(Binary)
		return x.subtype == y.subtype && bytes.Equal(x.data, y.data)
	case *Document:
		y := b.(*Document)
		if !ordered {
			return x.Equivalent(y)
		}
		if x.Len() != y.Len() {
			return false
		}
		for i, e := range x.elems {
			if e.Key != y.elems[i].Key || !compare(e.Value, y.elems[i].Value, ordered) {
				return false
			}
		}
		return true
	case *Array:
		y := b.(*Array)
		if x.Len() != y.Len() {
			return false
		}
		for i, v := range x.values {
			if !compare(v, y.values[i], ordered) {
				return false
			}
		}
		return true
	case CodeWithScope:
		y := b.(CodeWithScope)
		return x.code == y.code && compare(x.scope, y.scope, ordered)
	default:
		// The remaining variants are comparable structs and scalars.
		return a == b
	}
}
