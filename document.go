package bson

import (
	"strconv"
	"strings"
)

// An Element is a single key/value pair of a Document.
type Element struct {
	Key   string
	Value Value
}

// E is shorthand for Element{Key: key, Value: v}.
func E(key string, v Value) Element {
	return Element{Key: key, Value: v}
}

// Document is an ordered mapping of unique string keys to values. The
// order in which keys are first set is the order in which they are
// encoded.
//
// A Document is built with NewDocument and Set. A nested Document or Array
// belongs to exactly one parent; inserting it a second time fails. Documents
// returned by the decoders are read-only: Set fails on them and on every
// container nested inside. Clone gives a modifiable copy. A Document must
// not be modified while it is being encoded.
type Document struct {
	elems  []Element
	index  map[string]int
	owned  bool
	frozen bool
}

func (*Document) Type() Type { return TypeDocument }
func (*Document) isValue()   {}

// NewDocument returns a document holding elems in order. A repeated key
// keeps its first position and takes the later value.
func NewDocument(elems ...Element) (*Document, error) {
	d := &Document{}
	for _, e := range elems {
		if err := d.Set(e.Key, e.Value); err != nil {
			for _, added := range d.elems {
				adopt(added.Value, false)
			}
			return nil, err
		}
	}
	return d, nil
}

// MustDocument is like NewDocument but panics on invalid input.
func MustDocument(elems ...Element) *Document {
	d, err := NewDocument(elems...)
	if err != nil {
		panic(err)
	}
	return d
}

// Set binds key to v. If key is already present its value is replaced in
// place and the key keeps its original position; otherwise the element is
// appended.
func (d *Document) Set(key string, v Value) error {
	if d.frozen {
		return errReadOnly("document")
	}
	if err := checkText("key", key); err != nil {
		return err
	}
	if old, ok := d.Get(key); ok && sameContainer(old, v) {
		return nil
	}
	if err := checkChild(d, v); err != nil {
		return err
	}
	d.set(key, v)
	return nil
}

// set stores an element without validation and takes ownership of a
// container value. The decoders use it for values they have already
// checked.
func (d *Document) set(key string, v Value) (replaced bool) {
	adopt(v, true)
	if i, ok := d.index[key]; ok {
		adopt(d.elems[i].Value, false)
		d.elems[i].Value = v
		return true
	}
	if d.index == nil {
		d.index = make(map[string]int)
	}
	d.index[key] = len(d.elems)
	d.elems = append(d.elems, Element{Key: key, Value: v})
	return false
}

// Get returns the value bound to key.
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.elems[i].Value, true
}

// Lookup follows path through nested documents and arrays. Array
// elements are addressed by their decimal index.
func (d *Document) Lookup(path ...string) (Value, bool) {
	var cur Value = d
	for _, key := range path {
		switch c := cur.(type) {
		case *Document:
			v, ok := c.Get(key)
			if !ok {
				return nil, false
			}
			cur = v
		case *Array:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= c.Len() {
				return nil, false
			}
			cur = c.values[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Len returns the number of elements in d.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.elems)
}

// Keys returns the keys of d in order.
func (d *Document) Keys() []string {
	keys := make([]string, d.Len())
	for i := range keys {
		keys[i] = d.elems[i].Key
	}
	return keys
}

// Elements returns a copy of the elements of d in order.
func (d *Document) Elements() []Element {
	if d == nil {
		return nil
	}
	return append([]Element(nil), d.elems...)
}

// Equivalent reports whether d and other hold the same keys bound to
// equivalent values, ignoring key order at every level.
func (d *Document) Equivalent(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for _, e := range d.elems {
		ov, ok := other.Get(e.Key)
		if !ok || !equivalent(e.Value, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of d that is modifiable and has no parent.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{elems: make([]Element, len(d.elems)), index: make(map[string]int, len(d.elems))}
	for i, e := range d.elems {
		c.elems[i] = Element{Key: e.Key, Value: cloneValue(e.Value)}
		c.index[e.Key] = i
	}
	return c
}

// ReadOnly reports whether d came from a decoder and rejects changes.
func (d *Document) ReadOnly() bool {
	return d != nil && d.frozen
}

func (d *Document) String() string {
	b, err := MarshalExtJSON(d)
	if err != nil {
		return "<invalid document: " + err.Error() + ">"
	}
	return string(b)
}

// Array is an ordered sequence of values. It is encoded as a document
// keyed "0", "1", and so on.
type Array struct {
	values []Value
	owned  bool
	frozen bool
}

func (*Array) Type() Type { return TypeArray }
func (*Array) isValue()   {}

// NewArray returns an array holding values in order.
func NewArray(values ...Value) (*Array, error) {
	a := &Array{values: make([]Value, 0, len(values))}
	for _, v := range values {
		if err := a.Append(v); err != nil {
			for _, added := range a.values {
				adopt(added, false)
			}
			return nil, err
		}
	}
	return a, nil
}

// MustArray is like NewArray but panics on invalid input.
func MustArray(values ...Value) *Array {
	a, err := NewArray(values...)
	if err != nil {
		panic(err)
	}
	return a
}

// Append adds v to the end of a.
func (a *Array) Append(v Value) error {
	if a.frozen {
		return errReadOnly("array")
	}
	if err := checkChild(a, v); err != nil {
		return err
	}
	a.add(v)
	return nil
}

// add appends v without validation and takes ownership of a container
// value.
func (a *Array) add(v Value) {
	adopt(v, true)
	a.values = append(a.values, v)
}

// Len returns the number of values in a.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

// Index returns the i'th value. It panics if i is out of range.
func (a *Array) Index(i int) Value {
	return a.values[i]
}

// Values returns a copy of the values of a.
func (a *Array) Values() []Value {
	if a == nil {
		return nil
	}
	return append([]Value(nil), a.values...)
}

// Clone returns a deep copy of a that is modifiable and has no parent.
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	c := &Array{values: make([]Value, len(a.values))}
	for i, v := range a.values {
		c.values[i] = cloneValue(v)
	}
	return c
}

// ReadOnly reports whether a came from a decoder and rejects changes.
func (a *Array) ReadOnly() bool {
	return a != nil && a.frozen
}

func cloneValue(v Value) Value {
	switch c := v.(type) {
	case *Document:
		return c.Clone()
	case *Array:
		return c.Clone()
	}
	return v
}

// adopt marks a container value as having a parent, or releases it.
func adopt(v Value, owned bool) {
	switch c := v.(type) {
	case *Document:
		c.owned = owned
	case *Array:
		c.owned = owned
	}
}

func sameContainer(a, b Value) bool {
	switch x := a.(type) {
	case *Document:
		y, ok := b.(*Document)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		return ok && x == y
	}
	return false
}

func errReadOnly(what string) error {
	return constructionErrorf(what, "decoded %ss are read-only, use Clone to modify", what)
}

// checkChild rejects nil values, containers that already have a parent,
// and insertions that would make parent reachable from itself.
func checkChild(parent, v Value) error {
	switch c := v.(type) {
	case nil:
		return constructionErrorf("value", "nil is not a value, use Null{}")
	case *Document:
		if c == nil {
			return constructionErrorf("value", "nil *Document")
		}
		if c.owned {
			return constructionErrorf("value", "document already belongs to another container, use Clone")
		}
	case *Array:
		if c == nil {
			return constructionErrorf("value", "nil *Array")
		}
		if c.owned {
			return constructionErrorf("value", "array already belongs to another container, use Clone")
		}
	case CodeWithScope:
		if c.scope == nil {
			return constructionErrorf("value", "code with scope has no scope")
		}
		return nil
	default:
		return nil
	}
	if reaches(v, parent) {
		return constructionErrorf("value", "inserting a %s would create a cycle", v.Type())
	}
	return nil
}

// reaches reports whether target is v or nested anywhere inside it.
func reaches(v, target Value) bool {
	switch c := v.(type) {
	case *Document:
		if t, ok := target.(*Document); ok && t == c {
			return true
		}
		for _, e := range c.elems {
			if reaches(e.Value, target) {
				return true
			}
		}
	case *Array:
		if t, ok := target.(*Array); ok && t == c {
			return true
		}
		for _, e := range c.values {
			if reaches(e, target) {
				return true
			}
		}
	}
	return false
}

// freeze makes v and every container nested in it read-only.
func freeze(v Value) {
	switch c := v.(type) {
	case *Document:
		c.frozen = true
		for _, e := range c.elems {
			freeze(e.Value)
		}
	case *Array:
		c.frozen = true
		for _, e := range c.values {
			freeze(e)
		}
	}
}

// keyPath joins a key path for error messages.
func keyPath(path []string) string {
	return strings.Join(path, ".")
}
