package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/KimNorgaard/go-bson/internal/ast"
)

// Formatter writes a JSON AST to an output stream.
type Formatter struct {
	w      io.Writer
	indent string
	depth  int
}

// New returns a new formatter that writes to w. With indentSpaces of zero
// or less the output is compact; otherwise each element goes on its own
// line, indented by that many spaces per level.
func New(w io.Writer, indentSpaces int) *Formatter {
	var indentStr string
	if indentSpaces > 0 {
		indentStr = strings.Repeat(" ", indentSpaces)
	}
	return &Formatter{w: w, indent: indentStr}
}

// Format writes the JSON text of the AST node to the writer.
func (f *Formatter) Format(node ast.Node) error {
	return f.writeNode(node)
}

func (f *Formatter) write(s string) error {
	_, err := io.WriteString(f.w, s)
	return err
}

func (f *Formatter) writeIndent() error {
	if f.indent == "" {
		return nil
	}
	if err := f.write("\n"); err != nil {
		return err
	}
	for i := 0; i < f.depth; i++ {
		if err := f.write(f.indent); err != nil {
			return err
		}
	}
	return nil
}

// writeContainer writes n items between open and close, one per line when
// indenting.
func (f *Formatter) writeContainer(open, close string, n int, item func(i int) error) error {
	if err := f.write(open); err != nil {
		return err
	}
	if n > 0 {
		f.depth++
		for i := range n {
			if i > 0 {
				if err := f.write(","); err != nil {
					return err
				}
			}
			if err := f.writeIndent(); err != nil {
				return err
			}
			if err := item(i); err != nil {
				return err
			}
		}
		f.depth--
		if err := f.writeIndent(); err != nil {
			return err
		}
	}
	return f.write(close)
}

func (f *Formatter) writeNode(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Document:
		if n.Value == nil {
			return nil
		}
		return f.writeNode(n.Value)

	case *ast.ObjectLiteral:
		sep := ":"
		if f.indent != "" {
			sep = ": "
		}
		return f.writeContainer("{", "}", len(n.Pairs), func(i int) error {
			pair := n.Pairs[i]
			if err := f.write(ast.Quote(pair.Key) + sep); err != nil {
				return err
			}
			return f.writeNode(pair.Value)
		})

	case *ast.ArrayLiteral:
		return f.writeContainer("[", "]", len(n.Elements), func(i int) error {
			return f.writeNode(n.Elements[i])
		})

	case *ast.StringLiteral, *ast.IntegerLiteral, *ast.FloatLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
		return f.write(n.String())

	default:
		return fmt.Errorf("bson: unsupported node type for formatting: %T", n)
	}
}
