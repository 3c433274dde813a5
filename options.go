package bson

import "fmt"

const (
	defaultMaxDepth        = 1000
	defaultMaxDocumentSize = 16 * 1024 * 1024
	maxInt32               = 1<<31 - 1
)

// An Option configures Marshal, Unmarshal, the stream Encoder and Decoder,
// and the Extended JSON functions. Options that do not apply to an
// operation are ignored by it.
type Option func(*options) error

type options struct {
	maxDepth        int
	maxDocumentSize int
	allowTrailing   bool
	strictKeys      bool
	canonical       bool
	indent          int
	indentSet       bool
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		maxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *options) decodeLimit() int {
	if o.maxDocumentSize == 0 {
		return defaultMaxDocumentSize
	}
	return o.maxDocumentSize
}

func (o *options) encodeLimit() int {
	if o.maxDocumentSize == 0 {
		return maxInt32
	}
	return o.maxDocumentSize
}

// MaxDepth sets the maximum nesting depth of documents, arrays and scopes
// accepted by the decoder. The default is 1000.
//
// The depth n must be a positive integer.
func MaxDepth(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("bson: max depth must be a positive integer")
		}
		o.maxDepth = n
		return nil
	}
}

// MaxDocumentSize bounds the size of a single document. It applies to the
// declared length of documents read by a stream Decoder, where the default
// is 16 MiB, and to documents produced by Marshal, Append and an Encoder,
// which otherwise accept anything up to the int32 length ceiling.
func MaxDocumentSize(n int) Option {
	return func(o *options) error {
		if n < 5 || n > maxInt32 {
			return fmt.Errorf("bson: max document size must be between 5 and %d", maxInt32)
		}
		o.maxDocumentSize = n
		return nil
	}
}

// AllowTrailingData makes Unmarshal ignore bytes that follow the root
// document instead of failing with TrailingData.
func AllowTrailingData() Option {
	return func(o *options) error {
		o.allowTrailing = true
		return nil
	}
}

// StrictKeys makes the decoder reject documents that repeat a key.
// Without it a repeated key keeps its first position and takes the last
// value, the same as Document.Set.
func StrictKeys() Option {
	return func(o *options) error {
		o.strictKeys = true
		return nil
	}
}

// Canonical selects canonical Extended JSON output, which preserves every
// numeric type. The default is relaxed mode.
func Canonical() Option {
	return func(o *options) error {
		o.canonical = true
		return nil
	}
}

// Indent sets the number of spaces used to indent Extended JSON output.
// Zero produces compact single-line output, which is the default for
// MarshalExtJSON. FormatExtJSON indents by two spaces unless told otherwise.
func Indent(spaces int) Option {
	return func(o *options) error {
		if spaces < 0 {
			return fmt.Errorf("bson: indent spaces cannot be negative")
		}
		o.indent = spaces
		o.indentSet = true
		return nil
	}
}
