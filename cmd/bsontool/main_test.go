package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

type testEnv struct {
	env
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestEnv(stdin string) *testEnv {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testEnv{
		env:    env{stdin: strings.NewReader(stdin), stdout: out, stderr: errOut},
		out:    out,
		errOut: errOut,
	}
}

func (te *testEnv) run(args ...string) error {
	return rootCommand(&te.env).Execute(args, te.errOut)
}

func sampleStream(t *testing.T) []byte {
	t.Helper()
	first := bson.MustDocument(
		bson.E("name", bson.MustString("ada")),
		bson.E("n", bson.Int32(7)),
		bson.E("pi", bson.Double(3.5)),
	)
	second := bson.MustDocument(
		bson.E("big", bson.Int64(1<<40)),
		bson.E("tags", bson.MustArray(bson.MustString("x"), bson.Boolean(true))),
	)
	var buf bytes.Buffer
	enc := bson.NewEncoder(&buf)
	require.NoError(t, enc.Encode(first))
	require.NoError(t, enc.Encode(second))
	return buf.Bytes()
}

func TestDecodeCommand(t *testing.T) {
	te := newTestEnv(hex.EncodeToString(sampleStream(t)))
	require.NoError(t, te.run("decode", "-x"))
	require.Equal(t,
		`{"name":"ada","n":7,"pi":3.5}`+"\n"+
			`{"big":1099511627776,"tags":["x",true]}`+"\n",
		te.out.String())
}

func TestDecodeCommandCanonical(t *testing.T) {
	te := newTestEnv(string(sampleStream(t)))
	require.NoError(t, te.run("decode", "--canonical"))
	lines := strings.Split(strings.TrimSpace(te.out.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, `{"name":"ada","n":{"$numberInt":"7"},"pi":{"$numberDouble":"3.5"}}`, lines[0])
}

func TestDecodeCommandPrettyOnTerminal(t *testing.T) {
	stream := sampleStream(t)

	te := newTestEnv(string(stream))
	te.stdoutTerminal = true
	require.NoError(t, te.run("decode"))
	require.True(t, strings.HasPrefix(te.out.String(), "{\n  \"name\": \"ada\",\n"))

	te = newTestEnv(string(stream))
	te.stdoutTerminal = true
	require.NoError(t, te.run("decode", "-c"))
	require.True(t, strings.HasPrefix(te.out.String(), `{"name":"ada",`))
}

func TestDecodeCommandReportsBadDocument(t *testing.T) {
	stream := sampleStream(t)
	te := newTestEnv(string(stream[:len(stream)-3]))
	err := te.run("decode")
	require.ErrorIs(t, err, bson.TruncatedInput)
	require.ErrorContains(t, err, "document 1")
	// The first document was still written.
	require.Equal(t, `{"name":"ada","n":7,"pi":3.5}`+"\n", te.out.String())
}

func TestDecodeCommandFileArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bson")
	require.NoError(t, os.WriteFile(path, sampleStream(t), 0o644))

	te := newTestEnv("")
	require.NoError(t, te.run("decode", path))
	require.Equal(t, 2, strings.Count(te.out.String(), "\n"))
}

func TestEncodeCommand(t *testing.T) {
	input := `[
		// first
		{"name": "ada", "n": 7, "pi": 3.5},
		{"big": 1099511627776, "tags": ["x", true],},
	]`
	te := newTestEnv(input)
	require.NoError(t, te.run("encode"))
	require.Equal(t, sampleStream(t), te.out.Bytes())
}

func TestEncodeCommandHexOutput(t *testing.T) {
	te := newTestEnv(`{"hello": "world"}`)
	require.NoError(t, te.run("encode", "-x"))
	require.Equal(t, "160000000268656c6c6f0006000000776f726c640000\n", te.out.String())
}

func TestEncodeCommandYAML(t *testing.T) {
	input := `
zeta: 1
alpha:
  - two
  - 3.5
id:
  $oid: 507f1f77bcf86cd799439011
when: 2024-01-02T03:04:05.678Z
none: null
`
	te := newTestEnv(input)
	require.NoError(t, te.run("encode", "--yaml"))

	doc, err := bson.Unmarshal(te.out.Bytes())
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha", "id", "when", "none"}, doc.Keys())

	id, _ := doc.Get("id")
	require.Equal(t, "507f1f77bcf86cd799439011", id.(bson.ObjectID).Hex())
	when, _ := doc.Get("when")
	require.Equal(t, bson.DateTime(1704164645678), when)
	zeta, _ := doc.Get("zeta")
	require.Equal(t, bson.Int32(1), zeta)
	none, _ := doc.Get("none")
	require.Equal(t, bson.Null{}, none)
}

func TestEncodeCommandRejectsBadInput(t *testing.T) {
	te := newTestEnv(`{"a": {"$numberInt": "x"}}`)
	err := te.run("encode")
	require.ErrorContains(t, err, `invalid $numberInt "x"`)
	require.Empty(t, te.out.Bytes())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	input := `{"id":{"$oid":"507f1f77bcf86cd799439011"},"re":{"$regularExpression":{"pattern":"^a","options":"i"}},"ts":{"$timestamp":{"t":1,"i":2}},"d":{"$date":{"$numberLong":"-1"}}}`

	te := newTestEnv(input)
	require.NoError(t, te.run("encode"))
	encoded := te.out.String()

	te = newTestEnv(encoded)
	require.NoError(t, te.run("decode", "--canonical"))
	require.Equal(t, input+"\n", te.out.String())
}

func TestValidateCommand(t *testing.T) {
	stream := sampleStream(t)
	te := newTestEnv(string(stream))
	require.NoError(t, te.run("validate"))
	require.Equal(t, "valid: 2 documents, "+strconv.Itoa(len(stream))+" bytes\n", te.out.String())
}

func TestValidateCommandDigest(t *testing.T) {
	doc, err := bson.Marshal(bson.MustDocument(bson.E("a", bson.Int32(1))))
	require.NoError(t, err)
	sum := blake3.Sum256(doc)

	te := newTestEnv(string(doc))
	require.NoError(t, te.run("validate", "--digest"))
	require.Equal(t,
		hex.EncodeToString(sum[:])+"  document 0 (12 bytes, 1 keys)\n"+
			"valid: 1 documents, 12 bytes\n",
		te.out.String())
}

func TestValidateCommandRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	dup := "13000000" + "1061000100000010610002000000" + "00"
	te := newTestEnv(dup)
	err := te.run("validate", "-x")
	require.ErrorIs(t, err, bson.DuplicateKey)
	require.ErrorContains(t, err, "document 0 at offset 0")
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestValidateReportsWriteErrors(t *testing.T) {
	stream := sampleStream(t)
	logger := newLogger(io.Discard, false, false)
	broken := errors.New("disk full")

	err := validateStream(stream, failingWriter{broken}, false, logger)
	require.ErrorIs(t, err, broken)
	require.ErrorContains(t, err, "writing summary")

	err = validateStream(stream, failingWriter{broken}, true, logger)
	require.ErrorIs(t, err, broken)
	require.ErrorContains(t, err, "writing digest")
}

func TestValidateCommandEmptyInput(t *testing.T) {
	te := newTestEnv("")
	require.EqualError(t, te.run("validate"), "empty input: expected BSON data")
}

func TestCBORCommand(t *testing.T) {
	doc := bson.MustDocument(
		bson.E("b", bson.Int32(7)),
		bson.E("a", bson.MustString("x")),
		bson.E("re", bson.MustRegex("a+", "")),
		bson.E("id", bson.ObjectID{1, 2, 3}),
	)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	te := newTestEnv(string(raw))
	require.NoError(t, te.run("cbor"))

	var got map[string]any
	require.NoError(t, cbor.Unmarshal(te.out.Bytes(), &got))
	require.Equal(t, uint64(7), got["b"])
	require.Equal(t, "x", got["a"])
	require.Equal(t, cbor.Tag{Number: cborRegexTag, Content: "a+"}, got["re"])
	require.Equal(t, map[any]any{"$oid": "010203000000000000000000"}, got["id"])

	// Deterministic: the same input always gives the same bytes.
	again := newTestEnv(string(raw))
	require.NoError(t, again.run("cbor"))
	require.Equal(t, te.out.Bytes(), again.out.Bytes())
}

func TestFmtCommand(t *testing.T) {
	te := newTestEnv(`{"a": 1, /* note */ "b": [true,],}`)
	require.NoError(t, te.run("fmt"))
	require.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}\n", te.out.String())

	te = newTestEnv(`{"a": 1}`)
	require.NoError(t, te.run("fmt", "-i", "0"))
	require.Equal(t, `{"a":1}`+"\n", te.out.String())

	te = newTestEnv(`{"a": {"$numberInt": "x"}}`)
	require.ErrorContains(t, te.run("fmt"), `invalid $numberInt "x"`)
}

func TestDecodeHexInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "lowercase hex", input: "0500000000", want: []byte{5, 0, 0, 0, 0}},
		{name: "uppercase hex", input: "0A0B", want: []byte{0x0a, 0x0b}},
		{name: "hex with whitespace", input: "05 00\n00\t00 00\n", want: []byte{5, 0, 0, 0, 0}},
		{name: "invalid hex", input: "not hex data", wantErr: true},
		{name: "empty after whitespace", input: "   \n\t  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeHexInput([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReadInputTooManyArguments(t *testing.T) {
	_, err := readInput([]string{"a", "b"}, strings.NewReader(""), false)
	require.EqualError(t, err, "expected at most one input file, got 2 arguments")
}

func TestCommandDispatch(t *testing.T) {
	te := newTestEnv("")
	require.NoError(t, te.run("--help"))
	require.Contains(t, te.errOut.String(), "Commands:")
	require.Contains(t, te.errOut.String(), "validate")

	te = newTestEnv("")
	require.NoError(t, te.run("decode", "--help"))
	require.Contains(t, te.errOut.String(), "--canonical")

	te = newTestEnv("")
	require.EqualError(t, te.run(), "subcommand required")

	te = newTestEnv("")
	require.ErrorContains(t, te.run("frobnicate"), `unknown command "frobnicate"`)

	te = newTestEnv("")
	require.ErrorContains(t, te.run("decode", "--nope"), "unknown flag: --nope")
}

func TestVerboseLogging(t *testing.T) {
	te := newTestEnv(string(sampleStream(t)))
	require.NoError(t, te.run("validate", "-v"))
	require.Contains(t, te.errOut.String(), `"msg":"validated document"`)

	te = newTestEnv(string(sampleStream(t)))
	require.NoError(t, te.run("validate"))
	require.Empty(t, te.errOut.String())
}

func TestLoggerDiscardsBelowWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, true, false)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
