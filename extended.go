package bson

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// RegexOptions lists the option characters accepted by NewRegex.
const RegexOptions = "ilmsux"

// Regex is a regular expression: a pattern and a string of option
// characters.
type Regex struct {
	pattern string
	options string
}

// NewRegex returns a Regex. Options must be drawn from RegexOptions; they
// are deduplicated and sorted.
func NewRegex(pattern, options string) (Regex, error) {
	if err := checkText("regex pattern", pattern); err != nil {
		return Regex{}, err
	}
	opts := []byte(options)
	for _, c := range opts {
		if !strings.ContainsRune(RegexOptions, rune(c)) {
			return Regex{}, constructionErrorf("regex options", "unsupported option %q in %q", c, options)
		}
	}
	slices.Sort(opts)
	return Regex{pattern: pattern, options: string(slices.Compact(opts))}, nil
}

// MustRegex is like NewRegex but panics on invalid input.
func MustRegex(pattern, options string) Regex {
	r, err := NewRegex(pattern, options)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the regular expression source.
func (r Regex) Pattern() string { return r.pattern }

// Options returns the option characters. For a decoded Regex these are
// exactly the bytes found on the wire.
func (r Regex) Options() string { return r.options }

func (r Regex) String() string { return "/" + r.pattern + "/" + r.options }

// Symbol is a symbolic name. It carries text like String but decodes to its
// own type.
type Symbol struct {
	s string
}

// NewSymbol returns s as a Symbol.
func NewSymbol(s string) (Symbol, error) {
	if err := checkText("symbol", s); err != nil {
		return Symbol{}, err
	}
	return Symbol{s: s}, nil
}

// MustSymbol is like NewSymbol but panics on invalid input.
func MustSymbol(s string) Symbol {
	v, err := NewSymbol(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (s Symbol) String() string { return s.s }

// Code is JavaScript source without a scope.
type Code struct {
	code string
}

// NewCode returns code as a Code value.
func NewCode(code string) (Code, error) {
	if err := checkText("code", code); err != nil {
		return Code{}, err
	}
	return Code{code: code}, nil
}

// MustCode is like NewCode but panics on invalid input.
func MustCode(code string) Code {
	c, err := NewCode(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Code) String() string { return c.code }

// CodeWithScope is JavaScript source paired with a document of variable
// bindings. An empty scope is distinct from Code, which has none.
type CodeWithScope struct {
	code  string
	scope *Document
}

// NewCodeWithScope returns code bound to a read-only copy of scope. The
// scope must not be nil; later changes to it do not affect the result.
func NewCodeWithScope(code string, scope *Document) (CodeWithScope, error) {
	if err := checkText("code", code); err != nil {
		return CodeWithScope{}, err
	}
	if scope == nil {
		return CodeWithScope{}, constructionErrorf("code with scope", "scope is nil")
	}
	scope = scope.Clone()
	freeze(scope)
	return newCodeWithScope(code, scope), nil
}

// newCodeWithScope takes ownership of an already read-only scope.
func newCodeWithScope(code string, scope *Document) CodeWithScope {
	adopt(scope, true)
	return CodeWithScope{code: code, scope: scope}
}

// MustCodeWithScope is like NewCodeWithScope but panics on invalid input.
func MustCodeWithScope(code string, scope *Document) CodeWithScope {
	c, err := NewCodeWithScope(code, scope)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the JavaScript source.
func (c CodeWithScope) Code() string { return c.code }

// Scope returns the scope document. It is read-only.
func (c CodeWithScope) Scope() *Document { return c.scope }

// DBRef references a document by namespace and ObjectID.
type DBRef struct {
	namespace string
	id        ObjectID
}

// NewDBRef returns a reference to the document with id in namespace.
func NewDBRef(namespace string, id ObjectID) (DBRef, error) {
	if err := checkText("dbref namespace", namespace); err != nil {
		return DBRef{}, err
	}
	return DBRef{namespace: namespace, id: id}, nil
}

// MustDBRef is like NewDBRef but panics on invalid input.
func MustDBRef(namespace string, id ObjectID) DBRef {
	r, err := NewDBRef(namespace, id)
	if err != nil {
		panic(err)
	}
	return r
}

// Namespace returns the namespace the reference points into.
func (r DBRef) Namespace() string { return r.namespace }

// ID returns the ObjectID of the referenced document.
func (r DBRef) ID() ObjectID { return r.id }

func (r DBRef) String() string { return "DBRef(" + strconv.Quote(r.namespace) + ", " + r.id.Hex() + ")" }

func (Regex) Type() Type         { return TypeRegex }
func (Symbol) Type() Type        { return TypeSymbol }
func (Code) Type() Type          { return TypeCode }
func (CodeWithScope) Type() Type { return TypeCodeWithScope }
func (DBRef) Type() Type         { return TypeDBRef }

func (Regex) isValue()         {}
func (Symbol) isValue()        {}
func (Code) isValue()          {}
func (CodeWithScope) isValue() {}
func (DBRef) isValue()         {}

// ErrUnresolvedRef is returned by Resolve when a Resolver has no document
// for a reference.
var ErrUnresolvedRef = errors.New("bson: unresolved reference")

// A Resolver looks up the document a DBRef points to.
type Resolver interface {
	ResolveRef(namespace string, id ObjectID) (*Document, error)
}

// Resolve returns the document r points to according to res.
func (r DBRef) Resolve(res Resolver) (*Document, error) {
	doc, err := res.ResolveRef(r.namespace, r.id)
	if err != nil {
		return nil, fmt.Errorf("bson: resolving %s: %w", r, err)
	}
	return doc, nil
}

// MapResolver is an in-memory Resolver keyed by namespace and ObjectID.
type MapResolver map[string]map[ObjectID]*Document

// Add registers doc under namespace and id.
func (m MapResolver) Add(namespace string, id ObjectID, doc *Document) {
	if m[namespace] == nil {
		m[namespace] = make(map[ObjectID]*Document)
	}
	m[namespace][id] = doc
}

// ResolveRef implements Resolver.
func (m MapResolver) ResolveRef(namespace string, id ObjectID) (*Document, error) {
	if doc, ok := m[namespace][id]; ok {
		return doc, nil
	}
	return nil, ErrUnresolvedRef
}

// A RefSite is a DBRef found in a document together with the key path
// leading to it.
type RefSite struct {
	Path []string
	Ref  DBRef
}

func (s RefSite) String() string { return keyPath(s.Path) + ": " + s.Ref.String() }

// Refs returns every DBRef in d, including those nested in documents and
// arrays, in encoding order.
func (d *Document) Refs() []RefSite {
	var sites []RefSite
	var walk func(v Value, path []string)
	walk = func(v Value, path []string) {
		switch c := v.(type) {
		case DBRef:
			sites = append(sites, RefSite{Path: slices.Clone(path), Ref: c})
		case *Document:
			for _, e := range c.elems {
				walk(e.Value, append(path, e.Key))
			}
		case *Array:
			for i, e := range c.values {
				walk(e, append(path, strconv.Itoa(i)))
			}
		}
	}
	walk(d, nil)
	return sites
}

// Wire adapters for the extended types. The registry binds them to their
// tags.

func sizeRegex(_ *encodeState, v Value) (int, error) {
	r := v.(Regex)
	return len(r.pattern) + 1 + len(r.options) + 1, nil
}

func appendRegex(_ *encodeState, dst []byte, v Value) []byte {
	r := v.(Regex)
	dst = appendCString(dst, r.pattern)
	return appendCString(dst, r.options)
}

// decodeRegex keeps the options exactly as found, including characters
// NewRegex would reject and any ordering.
func decodeRegex(_ *decodeState, c *cursor) (Value, error) {
	pattern, err := c.readCString()
	if err != nil {
		return nil, err
	}
	options, err := c.readCString()
	if err != nil {
		return nil, err
	}
	return Regex{pattern: pattern, options: options}, nil
}

func sizeSymbol(_ *encodeState, v Value) (int, error) {
	return stringSize(v.(Symbol).s), nil
}

func appendSymbol(_ *encodeState, dst []byte, v Value) []byte {
	return appendString(dst, v.(Symbol).s)
}

func decodeSymbol(_ *decodeState, c *cursor) (Value, error) {
	s, err := c.readString()
	if err != nil {
		return nil, err
	}
	return Symbol{s: s}, nil
}

func sizeCode(_ *encodeState, v Value) (int, error) {
	return stringSize(v.(Code).code), nil
}

func appendCode(_ *encodeState, dst []byte, v Value) []byte {
	return appendString(dst, v.(Code).code)
}

func decodeCode(_ *decodeState, c *cursor) (Value, error) {
	s, err := c.readString()
	if err != nil {
		return nil, err
	}
	return Code{code: s}, nil
}

// A code-with-scope payload is int32 total | string code | document scope,
// where total counts itself.
func sizeCodeWithScope(es *encodeState, v Value) (int, error) {
	cws := v.(CodeWithScope)
	scope, err := es.sizeDocument(cws.scope)
	if err != nil {
		return 0, err
	}
	n := 4 + stringSize(cws.code) + scope
	return n, es.checkLimit(n)
}

func appendCodeWithScope(es *encodeState, dst []byte, v Value) []byte {
	cws := v.(CodeWithScope)
	total := 4 + stringSize(cws.code) + es.sizes[es.next]
	dst = appendInt32(dst, int32(total))
	dst = appendString(dst, cws.code)
	return es.appendDocument(dst, cws.scope)
}

func decodeCodeWithScope(ds *decodeState, c *cursor) (Value, error) {
	start := c.pos
	total, err := c.readInt32()
	if err != nil {
		return nil, err
	}
	const minTotal = 4 + 5 + 5
	if total < minTotal {
		return nil, c.fail(LengthMismatch, start, "code with scope length %d is below the minimum of %d", total, minTotal)
	}
	if err := c.need(int(total)-4, "code with scope"); err != nil {
		return nil, err
	}
	body := &cursor{buf: c.buf, pos: c.pos, end: start + int(total)}
	code, err := body.readString()
	if err != nil {
		return nil, err
	}
	scope, err := ds.decodeDocument(body)
	if err != nil {
		return nil, err
	}
	if body.pos != body.end {
		return nil, c.fail(LengthMismatch, start, "code with scope declares %d bytes but uses %d", total, body.pos-start)
	}
	c.pos = body.end
	return newCodeWithScope(code, scope), nil
}

func sizeDBRef(_ *encodeState, v Value) (int, error) {
	return len(v.(DBRef).namespace) + 1 + 12, nil
}

func appendDBRef(_ *encodeState, dst []byte, v Value) []byte {
	r := v.(DBRef)
	dst = appendCString(dst, r.namespace)
	return append(dst, r.id[:]...)
}

func decodeDBRef(_ *decodeState, c *cursor) (Value, error) {
	ns, err := c.readCString()
	if err != nil {
		return nil, err
	}
	id, err := c.readObjectID()
	if err != nil {
		return nil, err
	}
	return DBRef{namespace: ns, id: id}, nil
}
