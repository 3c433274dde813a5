package bson

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KimNorgaard/go-bson/internal/ast"
	"github.com/KimNorgaard/go-bson/internal/formatter"
	"github.com/KimNorgaard/go-bson/internal/lexer"
	"github.com/KimNorgaard/go-bson/internal/parser"
	"github.com/KimNorgaard/go-bson/internal/token"
	"github.com/tidwall/jsonc"
)

// MarshalExtJSON returns doc rendered as MongoDB Extended JSON v2. The
// output is relaxed unless Canonical is given, and compact unless Indent
// is given. Key order is preserved.
//
// A document whose first key is a type wrapper name such as "$oid" or
// "$date" would read back as that type, so it is rejected with an error.
// The one exception is "$regex" bound to a non-string, which reads back as
// a plain document.
func MarshalExtJSON(doc *Document, opts ...Option) ([]byte, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = &Document{}
	}
	w := &extWriter{canonical: o.canonical}
	node, err := w.value(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := formatter.New(&buf, o.indent).Format(node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalExtJSON parses an Extended JSON document in either mode. Comments
// and trailing commas are accepted. Type wrappers such as {"$oid": ...}
// become the matching Value; objects whose keys start with '$' but are not
// a known wrapper stay plain documents. Plain integers become Int32 when
// they fit and Int64 otherwise; other numbers become Double.
//
// Syntax errors and malformed wrappers are reported as ParseErrors. Nesting
// deeper than MaxDepth also matches DepthExceeded under errors.Is.
func UnmarshalExtJSON(data []byte, opts ...Option) (*Document, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	root, err := parseExtJSON(data, o)
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*ast.ObjectLiteral)
	if !ok {
		return nil, parseErrorAt(tokenOf(root), "top-level value must be an object")
	}
	r := &extReader{}
	return r.document(obj)
}

// UnmarshalExtJSONSeq is like UnmarshalExtJSON but also accepts a
// top-level array of documents, returned in order. A single object yields
// one document.
func UnmarshalExtJSONSeq(data []byte, opts ...Option) ([]*Document, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	root, err := parseExtJSON(data, o)
	if err != nil {
		return nil, err
	}
	r := &extReader{}
	return r.documents(root)
}

func parseExtJSON(data []byte, o *options) (ast.Expression, error) {
	p := parser.New(lexer.New(bytes.NewReader(jsonc.ToJSON(data))), o.maxDepth)
	root := p.Parse()
	if err := p.Err(); err != nil {
		if parser.IsDepthError(err) {
			return nil, fmt.Errorf("%w: %w", DepthExceeded, err)
		}
		return nil, err
	}
	return root.Value, nil
}

// ParseError is a syntax or content error in Extended JSON input, with its
// line and column.
type ParseError = parser.Error

// ParseErrors lists every ParseError found in one input.
type ParseErrors = parser.Errors

func parseErrorAt(tok token.Token, format string, args ...any) error {
	return ParseErrors{{Message: fmt.Sprintf(format, args...), Line: tok.Line, Column: tok.Column}}
}

type extWriter struct {
	canonical bool
}

func str(s string) *ast.StringLiteral { return &ast.StringLiteral{Value: s} }

func object(pairs ...*ast.Pair) *ast.ObjectLiteral {
	return &ast.ObjectLiteral{Pairs: pairs}
}

func pair(key string, v ast.Expression) *ast.Pair {
	return &ast.Pair{Key: key, Value: v}
}

func wrap(key string, v ast.Expression) *ast.ObjectLiteral {
	return object(pair(key, v))
}

const (
	minRelaxedDate = 0               // 1970-01-01T00:00:00Z
	maxRelaxedDate = 253402300799999 // 9999-12-31T23:59:59.999Z
	isoDateLayout  = "2006-01-02T15:04:05.999Z07:00"
)

func (w *extWriter) value(v Value) (ast.Expression, error) {
	switch v := v.(type) {
	case *Document:
		if len(v.elems) > 0 && readsAsWrapper(v.elems[0]) {
			return nil, fmt.Errorf("bson: cannot write document as Extended JSON: first key %q is a type wrapper", v.elems[0].Key)
		}
		obj := object()
		for _, e := range v.elems {
			ev, err := w.value(e.Value)
			if err != nil {
				return nil, err
			}
			obj.Pairs = append(obj.Pairs, pair(e.Key, ev))
		}
		return obj, nil
	case *Array:
		arr := &ast.ArrayLiteral{Elements: []ast.Expression{}}
		for _, e := range v.values {
			ev, err := w.value(e)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, ev)
		}
		return arr, nil
	case Double:
		f := float64(v)
		if !w.canonical && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return &ast.FloatLiteral{Value: f}, nil
		}
		return wrap("$numberDouble", str(formatDouble(f))), nil
	case String:
		return str(v.s), nil
	case Binary:
		return wrap("$binary", object(
			pair("base64", str(base64.StdEncoding.EncodeToString(v.data))),
			pair("subType", str(fmt.Sprintf("%02x", v.subtype))),
		)), nil
	case ObjectID:
		return wrap("$oid", str(v.Hex())), nil
	case Boolean:
		return &ast.BooleanLiteral{Value: bool(v)}, nil
	case DateTime:
		if !w.canonical && v >= minRelaxedDate && v <= maxRelaxedDate {
			return wrap("$date", str(v.Time().Format(isoDateLayout))), nil
		}
		return wrap("$date", wrap("$numberLong", str(strconv.FormatInt(int64(v), 10)))), nil
	case Null:
		return &ast.NullLiteral{}, nil
	case Regex:
		return wrap("$regularExpression", object(
			pair("pattern", str(v.pattern)),
			pair("options", str(v.options)),
		)), nil
	case DBRef:
		return wrap("$dbPointer", object(
			pair("$ref", str(v.namespace)),
			pair("$id", wrap("$oid", str(v.id.Hex()))),
		)), nil
	case Code:
		return wrap("$code", str(v.code)), nil
	case Symbol:
		return wrap("$symbol", str(v.s)), nil
	case CodeWithScope:
		scope, err := w.value(v.scope)
		if err != nil {
			return nil, err
		}
		return object(pair("$code", str(v.code)), pair("$scope", scope)), nil
	case Int32:
		if w.canonical {
			return wrap("$numberInt", str(strconv.FormatInt(int64(v), 10))), nil
		}
		return &ast.IntegerLiteral{Value: int64(v)}, nil
	case Timestamp:
		return wrap("$timestamp", object(
			pair("t", &ast.IntegerLiteral{Value: int64(v.T)}),
			pair("i", &ast.IntegerLiteral{Value: int64(v.I)}),
		)), nil
	case Int64:
		if w.canonical {
			return wrap("$numberLong", str(strconv.FormatInt(int64(v), 10))), nil
		}
		return &ast.IntegerLiteral{Value: int64(v)}, nil
	case MinKey:
		return wrap("$minKey", &ast.IntegerLiteral{Value: 1}), nil
	case MaxKey:
		return wrap("$maxKey", &ast.IntegerLiteral{Value: 1}), nil
	}
	return nil, fmt.Errorf("bson: no Extended JSON form for %T", v)
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return ast.FormatFloat(f)
}

type extReader struct{}

func tokenOf(e ast.Expression) token.Token {
	switch e := e.(type) {
	case *ast.ObjectLiteral:
		return e.Token
	case *ast.ArrayLiteral:
		return e.Token
	case *ast.StringLiteral:
		return e.Token
	case *ast.IntegerLiteral:
		return e.Token
	case *ast.FloatLiteral:
		return e.Token
	case *ast.BooleanLiteral:
		return e.Token
	case *ast.NullLiteral:
		return e.Token
	}
	return token.Token{}
}

// documents reads a single object or an array of objects.
func (r *extReader) documents(root ast.Expression) ([]*Document, error) {
	switch root := root.(type) {
	case *ast.ObjectLiteral:
		doc, err := r.document(root)
		if err != nil {
			return nil, err
		}
		return []*Document{doc}, nil
	case *ast.ArrayLiteral:
		docs := make([]*Document, 0, len(root.Elements))
		for _, el := range root.Elements {
			obj, ok := el.(*ast.ObjectLiteral)
			if !ok {
				return nil, parseErrorAt(tokenOf(el), "array element must be an object")
			}
			doc, err := r.document(obj)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}
	return nil, parseErrorAt(tokenOf(root), "top-level value must be an object or an array of objects")
}

func (r *extReader) document(obj *ast.ObjectLiteral) (*Document, error) {
	doc := &Document{}
	for _, p := range obj.Pairs {
		if err := checkText("key", p.Key); err != nil {
			return nil, parseErrorAt(p.Token, "%s", err)
		}
		v, err := r.value(p.Value)
		if err != nil {
			return nil, err
		}
		doc.set(p.Key, v)
	}
	doc.frozen = true
	return doc, nil
}

func (r *extReader) value(e ast.Expression) (Value, error) {
	switch e := e.(type) {
	case *ast.ObjectLiteral:
		if v, ok, err := r.wrapper(e); ok || err != nil {
			return v, err
		}
		return r.document(e)
	case *ast.ArrayLiteral:
		arr := &Array{values: make([]Value, 0, len(e.Elements))}
		for _, el := range e.Elements {
			v, err := r.value(el)
			if err != nil {
				return nil, err
			}
			arr.add(v)
		}
		arr.frozen = true
		return arr, nil
	case *ast.StringLiteral:
		if err := checkText("string", e.Value); err != nil {
			return nil, parseErrorAt(e.Token, "%s", err)
		}
		return String{s: e.Value}, nil
	case *ast.IntegerLiteral:
		if e.Value >= math.MinInt32 && e.Value <= math.MaxInt32 {
			return Int32(e.Value), nil
		}
		return Int64(e.Value), nil
	case *ast.FloatLiteral:
		return Double(e.Value), nil
	case *ast.BooleanLiteral:
		return Boolean(e.Value), nil
	case *ast.NullLiteral:
		return Null{}, nil
	}
	return nil, fmt.Errorf("bson: unexpected JSON node %T", e)
}

// wrapper interprets obj as a type wrapper when its first key names one.
// ok is false for ordinary documents.
// wrapperKeys are the first keys that make an object a type wrapper.
var wrapperKeys = map[string]bool{
	"$oid": true, "$symbol": true, "$numberInt": true, "$numberLong": true,
	"$numberDouble": true, "$numberDecimal": true, "$undefined": true,
	"$binary": true, "$uuid": true, "$code": true, "$timestamp": true,
	"$regularExpression": true, "$regex": true, "$dbPointer": true,
	"$date": true, "$minKey": true, "$maxKey": true,
}

// readsAsWrapper reports whether a document starting with e would be read
// back as a type wrapper instead of a document.
func readsAsWrapper(e Element) bool {
	if !wrapperKeys[e.Key] {
		return false
	}
	if e.Key == "$regex" {
		_, isString := e.Value.(String)
		return isString
	}
	return true
}

func (r *extReader) wrapper(obj *ast.ObjectLiteral) (v Value, ok bool, err error) {
	if len(obj.Pairs) == 0 || !wrapperKeys[obj.Pairs[0].Key] {
		return nil, false, nil
	}
	first := obj.Pairs[0]
	switch first.Key {
	case "$oid":
		v, err = r.single(obj, func(e ast.Expression) (Value, error) { return r.objectID(e) })
	case "$symbol":
		v, err = r.single(obj, func(e ast.Expression) (Value, error) {
			s, err := r.text(e, "$symbol")
			return Symbol{s: s}, err
		})
	case "$numberInt":
		v, err = r.single(obj, func(e ast.Expression) (Value, error) {
			s, err := r.text(e, "$numberInt")
			if err != nil {
				return nil, err
			}
			n, perr := strconv.ParseInt(s, 10, 32)
			if perr != nil {
				return nil, parseErrorAt(tokenOf(e), "invalid $numberInt %q", s)
			}
			return Int32(n), nil
		})
	case "$numberLong":
		v, err = r.single(obj, func(e ast.Expression) (Value, error) {
			n, err := r.numberLong(e)
			return Int64(n), err
		})
	case "$numberDouble":
		v, err = r.single(obj, r.numberDouble)
	case "$numberDecimal", "$undefined":
		return nil, true, parseErrorAt(first.Token, "%s is not supported", first.Key)
	case "$binary":
		v, err = r.binary(obj)
	case "$uuid":
		v, err = r.single(obj, r.uuid)
	case "$code":
		v, err = r.code(obj)
	case "$timestamp":
		v, err = r.single(obj, r.timestamp)
	case "$regularExpression":
		v, err = r.single(obj, r.regularExpression)
	case "$regex":
		if _, isString := first.Value.(*ast.StringLiteral); !isString {
			// A query operator, not a legacy regex.
			return nil, false, nil
		}
		v, err = r.legacyRegex(obj)
	case "$dbPointer":
		v, err = r.single(obj, r.dbPointer)
	case "$date":
		v, err = r.single(obj, r.date)
	case "$minKey", "$maxKey":
		v, err = r.single(obj, func(e ast.Expression) (Value, error) {
			if n, isInt := e.(*ast.IntegerLiteral); !isInt || n.Value != 1 {
				return nil, parseErrorAt(tokenOf(e), "%s must be 1", first.Key)
			}
			if first.Key == "$minKey" {
				return MinKey{}, nil
			}
			return MaxKey{}, nil
		})
	default:
		return nil, false, nil
	}
	return v, true, err
}

// single checks that obj has exactly one pair and converts its value.
func (r *extReader) single(obj *ast.ObjectLiteral, conv func(ast.Expression) (Value, error)) (Value, error) {
	if len(obj.Pairs) != 1 {
		extra := obj.Pairs[1]
		return nil, parseErrorAt(extra.Token, "unexpected key %q in %s wrapper", extra.Key, obj.Pairs[0].Key)
	}
	return conv(obj.Pairs[0].Value)
}

// fields returns the values of an object that must have exactly the given
// keys, in any order.
func (r *extReader) fields(e ast.Expression, what string, keys ...string) ([]ast.Expression, error) {
	obj, ok := e.(*ast.ObjectLiteral)
	if !ok {
		return nil, parseErrorAt(tokenOf(e), "%s must be an object", what)
	}
	out := make([]ast.Expression, len(keys))
	for _, p := range obj.Pairs {
		i := indexOf(keys, p.Key)
		if i < 0 {
			return nil, parseErrorAt(p.Token, "unexpected key %q in %s", p.Key, what)
		}
		out[i] = p.Value
	}
	for i, v := range out {
		if v == nil {
			return nil, parseErrorAt(obj.Token, "%s is missing %q", what, keys[i])
		}
	}
	return out, nil
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (r *extReader) text(e ast.Expression, what string) (string, error) {
	s, ok := e.(*ast.StringLiteral)
	if !ok {
		return "", parseErrorAt(tokenOf(e), "%s must be a string", what)
	}
	if err := checkText(what, s.Value); err != nil {
		return "", parseErrorAt(s.Token, "%s", err)
	}
	return s.Value, nil
}

func (r *extReader) objectID(e ast.Expression) (ObjectID, error) {
	s, err := r.text(e, "$oid")
	if err != nil {
		return ObjectID{}, err
	}
	id, err := ObjectIDFromHex(s)
	if err != nil {
		return ObjectID{}, parseErrorAt(tokenOf(e), "%s", err)
	}
	return id, nil
}

func (r *extReader) numberLong(e ast.Expression) (int64, error) {
	s, err := r.text(e, "$numberLong")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, parseErrorAt(tokenOf(e), "invalid $numberLong %q", s)
	}
	return n, nil
}

func (r *extReader) numberDouble(e ast.Expression) (Value, error) {
	s, err := r.text(e, "$numberDouble")
	if err != nil {
		return nil, err
	}
	switch s {
	case "NaN":
		return Double(math.NaN()), nil
	case "Infinity":
		return Double(math.Inf(1)), nil
	case "-Infinity":
		return Double(math.Inf(-1)), nil
	}
	if _, ok := lexer.ParseAsNumber(s); !ok {
		return nil, parseErrorAt(tokenOf(e), "invalid $numberDouble %q", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, parseErrorAt(tokenOf(e), "invalid $numberDouble %q", s)
	}
	return Double(f), nil
}

func (r *extReader) binary(obj *ast.ObjectLiteral) (Value, error) {
	first := obj.Pairs[0]
	if _, legacy := first.Value.(*ast.StringLiteral); legacy {
		// {"$binary": "<base64>", "$type": "<hex>"}
		vals, err := r.fields(obj, "legacy $binary", "$binary", "$type")
		if err != nil {
			return nil, err
		}
		return r.binaryParts(vals[0], vals[1])
	}
	return r.single(obj, func(e ast.Expression) (Value, error) {
		vals, err := r.fields(e, "$binary", "base64", "subType")
		if err != nil {
			return nil, err
		}
		return r.binaryParts(vals[0], vals[1])
	})
}

func (r *extReader) binaryParts(b64, sub ast.Expression) (Value, error) {
	s, err := r.text(b64, "base64")
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, parseErrorAt(tokenOf(b64), "invalid base64 payload: %s", err)
	}
	st, err := r.text(sub, "subType")
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(st, 16, 8)
	if err != nil || len(st) > 2 {
		return nil, parseErrorAt(tokenOf(sub), "invalid subType %q", st)
	}
	return NewBinary(byte(n), data), nil
}

func (r *extReader) uuid(e ast.Expression) (Value, error) {
	s, err := r.text(e, "$uuid")
	if err != nil {
		return nil, err
	}
	var data []byte
	if len(s) == 36 && s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-' {
		data, err = hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	}
	if len(data) != 16 || err != nil {
		return nil, parseErrorAt(tokenOf(e), "invalid $uuid %q", s)
	}
	return NewBinary(BinaryUUID, data), nil
}

func (r *extReader) code(obj *ast.ObjectLiteral) (Value, error) {
	if len(obj.Pairs) == 1 {
		s, err := r.text(obj.Pairs[0].Value, "$code")
		if err != nil {
			return nil, err
		}
		return Code{code: s}, nil
	}
	vals, err := r.fields(obj, "$code wrapper", "$code", "$scope")
	if err != nil {
		return nil, err
	}
	s, err := r.text(vals[0], "$code")
	if err != nil {
		return nil, err
	}
	scopeObj, ok := vals[1].(*ast.ObjectLiteral)
	if !ok {
		return nil, parseErrorAt(tokenOf(vals[1]), "$scope must be an object")
	}
	scope, err := r.document(scopeObj)
	if err != nil {
		return nil, err
	}
	return newCodeWithScope(s, scope), nil
}

func (r *extReader) timestamp(e ast.Expression) (Value, error) {
	vals, err := r.fields(e, "$timestamp", "t", "i")
	if err != nil {
		return nil, err
	}
	var parts [2]uint32
	for i, v := range vals {
		n, ok := v.(*ast.IntegerLiteral)
		if !ok || n.Value < 0 || n.Value > math.MaxUint32 {
			return nil, parseErrorAt(tokenOf(v), "$timestamp fields must be unsigned 32-bit integers")
		}
		parts[i] = uint32(n.Value)
	}
	return Timestamp{T: parts[0], I: parts[1]}, nil
}

func (r *extReader) regularExpression(e ast.Expression) (Value, error) {
	vals, err := r.fields(e, "$regularExpression", "pattern", "options")
	if err != nil {
		return nil, err
	}
	return r.regex(vals[0], vals[1])
}

func (r *extReader) legacyRegex(obj *ast.ObjectLiteral) (Value, error) {
	if len(obj.Pairs) == 1 {
		return r.regex(obj.Pairs[0].Value, str(""))
	}
	vals, err := r.fields(obj, "$regex wrapper", "$regex", "$options")
	if err != nil {
		return nil, err
	}
	return r.regex(vals[0], vals[1])
}

func (r *extReader) regex(pattern, options ast.Expression) (Value, error) {
	p, err := r.text(pattern, "pattern")
	if err != nil {
		return nil, err
	}
	o, err := r.text(options, "options")
	if err != nil {
		return nil, err
	}
	// Options are kept as written, as the binary decoder does.
	return Regex{pattern: p, options: o}, nil
}

func (r *extReader) dbPointer(e ast.Expression) (Value, error) {
	vals, err := r.fields(e, "$dbPointer", "$ref", "$id")
	if err != nil {
		return nil, err
	}
	ns, err := r.text(vals[0], "$ref")
	if err != nil {
		return nil, err
	}
	idVals, err := r.fields(vals[1], "$id", "$oid")
	if err != nil {
		return nil, err
	}
	id, err := r.objectID(idVals[0])
	if err != nil {
		return nil, err
	}
	return DBRef{namespace: ns, id: id}, nil
}

func (r *extReader) date(e ast.Expression) (Value, error) {
	switch d := e.(type) {
	case *ast.StringLiteral:
		t, err := time.Parse(time.RFC3339Nano, d.Value)
		if err != nil {
			return nil, parseErrorAt(d.Token, "invalid $date %q", d.Value)
		}
		return DateTime(t.UnixMilli()), nil
	case *ast.IntegerLiteral:
		return DateTime(d.Value), nil
	case *ast.ObjectLiteral:
		vals, err := r.fields(d, "$date", "$numberLong")
		if err != nil {
			return nil, err
		}
		n, err := r.numberLong(vals[0])
		if err != nil {
			return nil, err
		}
		return DateTime(n), nil
	}
	return nil, parseErrorAt(tokenOf(e), "$date must be a string, an integer or a $numberLong")
}
