package bson_test

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/KimNorgaard/go-bson/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestMarshalBytes(t *testing.T) {
	id := bson.ObjectID{0x50, 0x7f, 0x1f, 0x77, 0xbc, 0xf8, 0x6c, 0xd7, 0x99, 0x43, 0x90, 0x11}

	testCases := []struct {
		name string
		doc  *bson.Document
		want string
	}{
		{
			name: "empty document",
			doc:  bson.MustDocument(),
			want: "0500000000",
		},
		{
			name: "string",
			doc:  bson.MustDocument(bson.E("hello", bson.MustString("world"))),
			want: helloWorld,
		},
		{
			name: "int32 and double",
			doc:  bson.MustDocument(bson.E("i", bson.Int32(-1)), bson.E("d", bson.Double(1.5))),
			want: "17000000" + "106900" + "ffffffff" + "016400" + "000000000000f83f" + "00",
		},
		{
			name: "int64 and datetime",
			doc:  bson.MustDocument(bson.E("l", bson.Int64(1)), bson.E("t", bson.DateTime(-1))),
			want: "1b000000" + "126c00" + "0100000000000000" + "097400" + "ffffffffffffffff" + "00",
		},
		{
			name: "boolean null and keys",
			doc: bson.MustDocument(
				bson.E("t", bson.Boolean(true)),
				bson.E("n", bson.Null{}),
				bson.E("lo", bson.MinKey{}),
				bson.E("hi", bson.MaxKey{}),
			),
			want: "14000000" + "08740001" + "0a6e00" + "ff6c6f00" + "7f686900" + "00",
		},
		{
			name: "object id",
			doc:  bson.MustDocument(bson.E("_id", id)),
			want: "16000000" + "075f696400" + "507f1f77bcf86cd799439011" + "00",
		},
		{
			name: "timestamp stores increment first",
			doc:  bson.MustDocument(bson.E("ts", bson.Timestamp{T: 1, I: 2})),
			want: "11000000" + "11747300" + "02000000" + "01000000" + "00",
		},
		{
			name: "array keys",
			doc:  bson.MustDocument(bson.E("a", bson.MustArray(bson.Boolean(false), bson.Null{}))),
			want: "14000000" + "046100" + "0c000000" + "08300000" + "0a3100" + "00" + "00",
		},
		{
			name: "generic binary",
			doc:  bson.MustDocument(bson.E("b", bson.NewBinary(bson.BinaryGeneric, []byte{1, 2}))),
			want: "0f000000" + "056200" + "02000000" + "00" + "0102" + "00",
		},
		{
			name: "old binary repeats length",
			doc:  bson.MustDocument(bson.E("b", bson.NewBinary(bson.BinaryOld, []byte{0xde, 0xad, 0xbe, 0xef}))),
			want: "15000000" + "056200" + "08000000" + "02" + "04000000" + "deadbeef" + "00",
		},
		{
			name: "code with empty scope",
			doc:  bson.MustDocument(bson.E("c", bson.MustCodeWithScope("f", bson.MustDocument()))),
			want: "17000000" + "0f6300" + "0f000000" + "0200000066" + "00" + "0500000000" + "00",
		},
		{
			name: "code",
			doc:  bson.MustDocument(bson.E("c", bson.MustCode("f"))),
			want: "0e000000" + "0d6300" + "0200000066" + "00" + "00",
		},
		{
			name: "symbol",
			doc:  bson.MustDocument(bson.E("s", bson.MustSymbol("hi"))),
			want: "0f000000" + "0e7300" + "03000000686900" + "00",
		},
		{
			name: "regex",
			doc:  bson.MustDocument(bson.E("r", bson.MustRegex("a", "xi"))),
			want: "0d000000" + "0b7200" + "6100" + "697800" + "00",
		},
		{
			name: "dbpointer",
			doc:  bson.MustDocument(bson.E("p", bson.MustDBRef("db.c", id))),
			want: "19000000" + "0c7000" + "64622e6300" + "507f1f77bcf86cd799439011" + "00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := bson.Marshal(tc.doc)
			require.NoError(t, err)
			require.Equal(t, tc.want, hex.EncodeToString(b))
		})
	}
}

func TestMarshalNestedLengths(t *testing.T) {
	// Sibling containers after a nested one must get their own lengths.
	doc := bson.MustDocument(
		bson.E("a", bson.MustDocument(bson.E("x", bson.MustArray(bson.Int32(1))))),
		bson.E("b", bson.MustArray(bson.MustDocument(), bson.MustString("s"))),
		bson.E("c", bson.MustCodeWithScope("f", bson.MustDocument(bson.E("y", bson.MustDocument())))),
	)
	b, err := bson.Marshal(doc)
	require.NoError(t, err)

	out, err := bson.Unmarshal(b)
	require.NoError(t, err)
	require.True(t, bson.Equal(doc, out))
}

func TestMarshalArrayIndexKeys(t *testing.T) {
	values := make([]bson.Value, 12)
	for i := range values {
		values[i] = bson.Null{}
	}
	b, err := bson.Marshal(bson.MustDocument(bson.E("a", bson.MustArray(values...))))
	require.NoError(t, err)
	require.True(t, bytes.Contains(b, []byte("\x0a11\x00")))

	doc, err := bson.Unmarshal(b)
	require.NoError(t, err)
	v, _ := doc.Get("a")
	require.Equal(t, 12, v.(*bson.Array).Len())
}

func TestMarshalSizeLimit(t *testing.T) {
	doc := bson.MustDocument(bson.E("s", bson.MustString(strings.Repeat("x", 100))))

	_, err := bson.Marshal(doc, bson.MaxDocumentSize(64))
	var ee *bson.EncodeError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 64, ee.Limit)
	require.Greater(t, ee.Size, 64)
	require.EqualError(t, err, "bson: encoded size "+strconv.Itoa(ee.Size)+" exceeds limit of 64 bytes")

	prefix := []byte{1, 2, 3}
	out, err := bson.Append(prefix, doc, bson.MaxDocumentSize(64))
	require.Error(t, err)
	require.Equal(t, prefix, out)

	var buf bytes.Buffer
	require.Error(t, bson.NewEncoder(&buf, bson.MaxDocumentSize(64)).Encode(doc))
	require.Zero(t, buf.Len())

	_, err = bson.Marshal(doc, bson.MaxDocumentSize(200))
	require.NoError(t, err)
}

func loadBenchmarkDocument(b *testing.B) (*bson.Document, []byte) {
	b.Helper()
	src, err := testutil.ReadTestData("large.json")
	require.NoError(b, err)
	doc, err := bson.UnmarshalExtJSON(src)
	require.NoError(b, err)
	encoded, err := bson.Marshal(doc)
	require.NoError(b, err)
	return doc, encoded
}

func BenchmarkEncode(b *testing.B) {
	doc, encoded := loadBenchmarkDocument(b)
	b.ReportAllocs()
	b.SetBytes(int64(len(encoded)))

	var buf bytes.Buffer
	enc := bson.NewEncoder(&buf)

	b.ResetTimer()

	for b.Loop() {
		if err := enc.Encode(doc); err != nil {
			b.Fatalf("Encode failed during benchmark: %v", err)
		}
		buf.Reset()
	}
}

func BenchmarkDecode(b *testing.B) {
	_, encoded := loadBenchmarkDocument(b)
	b.ReportAllocs()
	b.SetBytes(int64(len(encoded)))

	b.ResetTimer()

	for b.Loop() {
		if _, err := bson.Unmarshal(encoded); err != nil {
			b.Fatalf("Unmarshal failed during benchmark: %v", err)
		}
	}
}

func BenchmarkMarshalExtJSON(b *testing.B) {
	doc, _ := loadBenchmarkDocument(b)
	b.ReportAllocs()

	b.ResetTimer()

	for b.Loop() {
		if _, err := bson.MarshalExtJSON(doc); err != nil {
			b.Fatalf("MarshalExtJSON failed during benchmark: %v", err)
		}
	}
}
