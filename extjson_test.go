package bson_test

import (
	"math"
	"testing"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/stretchr/testify/require"
)

func sampleExtDocument() *bson.Document {
	return bson.MustDocument(
		bson.E("d", bson.Double(1)),
		bson.E("i", bson.Int32(5)),
		bson.E("l", bson.Int64(5)),
		bson.E("date", bson.DateTime(1700000000123)),
		bson.E("old", bson.DateTime(-1)),
		bson.E("nan", bson.Double(math.NaN())),
		bson.E("bin", bson.NewBinary(bson.BinaryUUID, []byte{0xff})),
		bson.E("re", bson.MustRegex("a", "i")),
	)
}

func TestMarshalExtJSONRelaxed(t *testing.T) {
	out, err := bson.MarshalExtJSON(sampleExtDocument())
	require.NoError(t, err)
	require.Equal(t,
		`{"d":1.0,"i":5,"l":5,`+
			`"date":{"$date":"2023-11-14T22:13:20.123Z"},`+
			`"old":{"$date":{"$numberLong":"-1"}},`+
			`"nan":{"$numberDouble":"NaN"},`+
			`"bin":{"$binary":{"base64":"/w==","subType":"04"}},`+
			`"re":{"$regularExpression":{"pattern":"a","options":"i"}}}`,
		string(out))
}

func TestMarshalExtJSONCanonical(t *testing.T) {
	out, err := bson.MarshalExtJSON(sampleExtDocument(), bson.Canonical())
	require.NoError(t, err)
	require.Equal(t,
		`{"d":{"$numberDouble":"1.0"},"i":{"$numberInt":"5"},"l":{"$numberLong":"5"},`+
			`"date":{"$date":{"$numberLong":"1700000000123"}},`+
			`"old":{"$date":{"$numberLong":"-1"}},`+
			`"nan":{"$numberDouble":"NaN"},`+
			`"bin":{"$binary":{"base64":"/w==","subType":"04"}},`+
			`"re":{"$regularExpression":{"pattern":"a","options":"i"}}}`,
		string(out))
}

func TestMarshalExtJSONIndent(t *testing.T) {
	doc := bson.MustDocument(
		bson.E("a", bson.Int32(1)),
		bson.E("b", bson.MustArray(bson.Boolean(true), bson.Null{})),
		bson.E("c", bson.MustDocument()),
	)
	out, err := bson.MarshalExtJSON(doc, bson.Indent(2))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true,\n    null\n  ],\n  \"c\": {}\n}", string(out))
}

func TestMarshalExtJSONOtherTypes(t *testing.T) {
	doc := bson.MustDocument(
		bson.E("inf", bson.Double(math.Inf(-1))),
		bson.E("big", bson.Double(1e21)),
		bson.E("ts", bson.Timestamp{T: 4294967295, I: 1}),
		bson.E("sym", bson.MustSymbol("s")),
		bson.E("code", bson.MustCode(`a("b")`)),
		bson.E("scope", bson.MustCodeWithScope("x", bson.MustDocument(bson.E("x", bson.Int64(1))))),
		bson.E("ptr", bson.MustDBRef("db.c", bson.ObjectID{0xab})),
		bson.E("lo", bson.MinKey{}),
		bson.E("hi", bson.MaxKey{}),
		bson.E("future", bson.DateTime(253402300800000)),
		bson.E("epoch", bson.DateTime(0)),
	)
	out, err := bson.MarshalExtJSON(doc)
	require.NoError(t, err)
	require.Equal(t,
		`{"inf":{"$numberDouble":"-Infinity"},"big":1e+21,`+
			`"ts":{"$timestamp":{"t":4294967295,"i":1}},`+
			`"sym":{"$symbol":"s"},"code":{"$code":"a(\"b\")"},`+
			`"scope":{"$code":"x","$scope":{"x":1}},`+
			`"ptr":{"$dbPointer":{"$ref":"db.c","$id":{"$oid":"ab0000000000000000000000"}}},`+
			`"lo":{"$minKey":1},"hi":{"$maxKey":1},`+
			`"future":{"$date":{"$numberLong":"253402300800000"}},`+
			`"epoch":{"$date":"1970-01-01T00:00:00Z"}}`,
		string(out))
}

func TestMarshalExtJSONNil(t *testing.T) {
	out, err := bson.MarshalExtJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(out))
}

func TestMarshalExtJSONRejectsWrapperShapedDocuments(t *testing.T) {
	for _, key := range []string{"$oid", "$date", "$numberLong", "$regex"} {
		doc := bson.MustDocument(bson.E("a", bson.MustDocument(
			bson.E(key, bson.MustString("zz")),
			bson.E("b", bson.Int32(1)),
		)))
		_, err := bson.MarshalExtJSON(doc)
		require.EqualError(t, err, `bson: cannot write document as Extended JSON: first key "`+key+`" is a type wrapper`)
	}

	// A wrapper key later in the document, an unknown $-key, and a $regex
	// query operator all read back as plain documents.
	doc := bson.MustDocument(
		bson.E("later", bson.MustDocument(bson.E("x", bson.Int32(1)), bson.E("$oid", bson.MustString("zz")))),
		bson.E("unknown", bson.MustDocument(bson.E("$foo", bson.Int32(1)))),
		bson.E("query", bson.MustDocument(bson.E("$regex", bson.MustDocument(bson.E("$in", bson.MustArray(bson.Int32(1))))))),
	)
	for _, opts := range [][]bson.Option{{bson.Canonical()}, nil} {
		text, err := bson.MarshalExtJSON(doc, opts...)
		require.NoError(t, err)
		back, err := bson.UnmarshalExtJSON(text)
		require.NoError(t, err)
		require.True(t, bson.Equal(doc, back), "got %s", back)
	}
}

func TestExtJSONRoundTripCanonical(t *testing.T) {
	doc := everyType(t)
	text, err := bson.MarshalExtJSON(doc, bson.Canonical())
	require.NoError(t, err)

	back, err := bson.UnmarshalExtJSON(text)
	require.NoError(t, err)
	require.True(t, bson.Equal(doc, back), "got %s", back)
}

func TestExtJSONKeepsDecodedRegexOptions(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		options string
	}{
		{name: "unsorted", input: "0d000000" + "0b7200" + "6100" + "786900" + "00", options: "xi"},
		{name: "non-standard", input: "0c000000" + "0b7200" + "6100" + "6700" + "00", options: "g"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := bson.Unmarshal(mustHex(t, tc.input))
			require.NoError(t, err)

			for _, opts := range [][]bson.Option{{bson.Canonical()}, nil} {
				text, err := bson.MarshalExtJSON(doc, opts...)
				require.NoError(t, err)
				back, err := bson.UnmarshalExtJSON(text)
				require.NoError(t, err)
				require.True(t, bson.Equal(doc, back), "got %s", back)

				v, _ := back.Get("r")
				require.Equal(t, tc.options, v.(bson.Regex).Options())
			}
		})
	}
}

func TestUnmarshalExtJSONRelaxed(t *testing.T) {
	src := `{
		// comments and trailing commas are fine
		"small": 7,
		"large": 8589934592,
		"float": 2.5,
		"exp": 1e3,
		"s": "text",
		"list": [true, false, null,],
		"query": {"$regex": {"$in": [1]}},
		"unknown": {"$foo": 1},
		"legacy": {"$regex": "^a", "$options": "mi"},
		"oldbin": {"$binary": "AQ==", "$type": "80"},
		"uuid": {"$uuid": "00112233-4455-6677-8899-aabbccddeeff"},
		"iso": {"$date": "2024-01-02T03:04:05.678+01:00"},
		"ms": {"$date": 12},
	}`
	doc, err := bson.UnmarshalExtJSON([]byte(src))
	require.NoError(t, err)

	get := func(path ...string) bson.Value {
		t.Helper()
		v, ok := doc.Lookup(path...)
		require.True(t, ok, "%v", path)
		return v
	}
	require.Equal(t, bson.Int32(7), get("small"))
	require.Equal(t, bson.Int64(8589934592), get("large"))
	require.Equal(t, bson.Double(2.5), get("float"))
	require.Equal(t, bson.Double(1000), get("exp"))
	require.Equal(t, bson.MustString("text"), get("s"))
	require.Equal(t, []bson.Value{bson.Boolean(true), bson.Boolean(false), bson.Null{}}, get("list").(*bson.Array).Values())
	require.IsType(t, &bson.Document{}, get("query"))
	require.Equal(t, bson.Int32(1), get("query", "$regex", "$in", "0"))
	require.Equal(t, bson.Int32(1), get("unknown", "$foo"))
	legacy := get("legacy").(bson.Regex)
	require.Equal(t, "^a", legacy.Pattern())
	require.Equal(t, "mi", legacy.Options())
	require.Equal(t, bson.NewBinary(bson.BinaryUserDefined, []byte{1}), get("oldbin"))
	require.Equal(t, bson.NewBinary(bson.BinaryUUID, []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}), get("uuid"))
	require.Equal(t, bson.DateTime(1704161045678), get("iso"))
	require.Equal(t, bson.DateTime(12), get("ms"))
}

func TestUnmarshalExtJSONSeq(t *testing.T) {
	docs, err := bson.UnmarshalExtJSONSeq([]byte(`[{"a": 1}, {"b": {"$numberLong": "2"}}]`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, []string{"a"}, docs[0].Keys())
	v, _ := docs[1].Get("b")
	require.Equal(t, bson.Int64(2), v)

	docs, err = bson.UnmarshalExtJSONSeq([]byte(`{"only": true}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = bson.UnmarshalExtJSONSeq([]byte(`[{"a": 1}, 2]`))
	require.ErrorContains(t, err, "array element must be an object")

	_, err = bson.UnmarshalExtJSONSeq([]byte(`"text"`))
	require.ErrorContains(t, err, "top-level value must be an object or an array of objects")
}

func TestUnmarshalExtJSONErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		msg   string
	}{
		{name: "not an object", input: `[1]`, msg: "top-level value must be an object"},
		{name: "syntax", input: `{"a" 1}`, msg: "expected ':' after key, got number 1"},
		{name: "bad numberInt", input: `{"a": {"$numberInt": "x"}}`, msg: `invalid $numberInt "x"`},
		{name: "numberInt overflow", input: `{"a": {"$numberInt": "2147483648"}}`, msg: `invalid $numberInt "2147483648"`},
		{name: "bad numberLong", input: `{"a": {"$numberLong": "1.5"}}`, msg: `invalid $numberLong "1.5"`},
		{name: "bad numberDouble", input: `{"a": {"$numberDouble": "one"}}`, msg: `invalid $numberDouble "one"`},
		{name: "numberInt not a string", input: `{"a": {"$numberInt": 1}}`, msg: "$numberInt must be a string"},
		{name: "extra key", input: `{"a": {"$oid": "507f1f77bcf86cd799439011", "x": 1}}`, msg: `unexpected key "x" in $oid wrapper`},
		{name: "bad oid", input: `{"a": {"$oid": "123"}}`, msg: "hex form must be 24 characters, got 3"},
		{name: "binary missing subType", input: `{"a": {"$binary": {"base64": ""}}}`, msg: `$binary is missing "subType"`},
		{name: "bad base64", input: `{"a": {"$binary": {"base64": "!!", "subType": "00"}}}`, msg: "invalid base64 payload"},
		{name: "bad subType", input: `{"a": {"$binary": {"base64": "", "subType": "100"}}}`, msg: `invalid subType "100"`},
		{name: "bad uuid", input: `{"a": {"$uuid": "0011"}}`, msg: `invalid $uuid "0011"`},
		{name: "NUL in regex options", input: `{"a": {"$regularExpression": {"pattern": "a", "options": "i\u0000"}}}`, msg: "contains a NUL byte"},
		{name: "timestamp range", input: `{"a": {"$timestamp": {"t": -1, "i": 0}}}`, msg: "$timestamp fields must be unsigned 32-bit integers"},
		{name: "minKey value", input: `{"a": {"$minKey": 0}}`, msg: "$minKey must be 1"},
		{name: "bad date", input: `{"a": {"$date": "yesterday"}}`, msg: `invalid $date "yesterday"`},
		{name: "date type", input: `{"a": {"$date": true}}`, msg: "$date must be a string, an integer or a $numberLong"},
		{name: "decimal", input: `{"a": {"$numberDecimal": "1"}}`, msg: "$numberDecimal is not supported"},
		{name: "scope type", input: `{"a": {"$code": "x", "$scope": 1}}`, msg: "$scope must be an object"},
		{name: "NUL in key", input: `{"a\u0000": 1}`, msg: "contains a NUL byte"},
		{name: "NUL in string", input: `{"a": "\u0000"}`, msg: "contains a NUL byte"},
		{name: "duplicate key", input: `{"a": 1, "a": 2}`, msg: "duplicate key in object: a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := bson.UnmarshalExtJSON([]byte(tc.input))
			require.Nil(t, doc)
			require.ErrorContains(t, err, tc.msg)

			var perrs bson.ParseErrors
			require.ErrorAs(t, err, &perrs)
			require.NotEmpty(t, perrs)
			require.Positive(t, perrs[0].Line)
		})
	}
}

func TestUnmarshalExtJSONErrorPosition(t *testing.T) {
	src := "{\n  \"a\": 1,\n  \"b\": {\"$oid\": \"nope\"}\n}"
	_, err := bson.UnmarshalExtJSON([]byte(src))

	var perrs bson.ParseErrors
	require.ErrorAs(t, err, &perrs)
	require.Equal(t, 3, perrs[0].Line)
	require.Equal(t, 17, perrs[0].Column)
}

func TestUnmarshalExtJSONDepth(t *testing.T) {
	_, err := bson.UnmarshalExtJSON([]byte(`{"a":{"b":{"c":{}}}}`), bson.MaxDepth(3))
	require.ErrorIs(t, err, bson.DepthExceeded)

	var perrs bson.ParseErrors
	require.ErrorAs(t, err, &perrs)

	_, err = bson.UnmarshalExtJSON([]byte(`{"a":{"b":{"c":{}}}}`), bson.MaxDepth(4))
	require.NoError(t, err)
}
