package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	bson "github.com/KimNorgaard/go-bson"
	"github.com/KimNorgaard/go-bson/internal/ast"
	"gopkg.in/yaml.v3"
)

const maxYAMLDepth = 1000

// yamlDocuments converts YAML to documents by way of Extended JSON, so
// wrappers like {$oid: ...} work in both formats. yaml.Node is used
// rather than a map so that mapping order survives.
func yamlDocuments(data []byte) ([]*bson.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("empty YAML input")
	}
	expr, err := yamlToAST(&root, 0)
	if err != nil {
		return nil, err
	}
	return bson.UnmarshalExtJSONSeq([]byte(expr.String()))
}

func yamlToAST(n *yaml.Node, depth int) (ast.Expression, error) {
	if depth > maxYAMLDepth {
		return nil, fmt.Errorf("line %d: YAML nesting exceeds %d levels", n.Line, maxYAMLDepth)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("empty YAML document")
		}
		return yamlToAST(n.Content[0], depth)
	case yaml.AliasNode:
		return yamlToAST(n.Alias, depth+1)
	case yaml.MappingNode:
		obj := &ast.ObjectLiteral{Pairs: []*ast.Pair{}}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := yamlToAST(value, depth+1)
			if err != nil {
				return nil, err
			}
			obj.Pairs = append(obj.Pairs, &ast.Pair{Key: key.Value, Value: v})
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := &ast.ArrayLiteral{Elements: []ast.Expression{}}
		for _, item := range n.Content {
			v, err := yamlToAST(item, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (ast.Expression, error) {
	switch n.ShortTag() {
	case "!!null":
		return &ast.NullLiteral{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return &ast.BooleanLiteral{Value: b}, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return &ast.IntegerLiteral{Value: i}, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			// JSON has no literal for these.
			return wrapper("$numberDouble", &ast.StringLiteral{Value: nonFinite(f)}), nil
		}
		return &ast.FloatLiteral{Value: f}, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return wrapper("$date", &ast.StringLiteral{Value: t.UTC().Format(time.RFC3339Nano)}), nil
	case "!!binary":
		b64 := strings.Join(strings.Fields(n.Value), "")
		return wrapper("$binary", &ast.ObjectLiteral{Pairs: []*ast.Pair{
			{Key: "base64", Value: &ast.StringLiteral{Value: b64}},
			{Key: "subType", Value: &ast.StringLiteral{Value: "00"}},
		}}), nil
	}
	return &ast.StringLiteral{Value: n.Value}, nil
}

func wrapper(key string, v ast.Expression) *ast.ObjectLiteral {
	return &ast.ObjectLiteral{Pairs: []*ast.Pair{{Key: key, Value: v}}}
}

func nonFinite(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f > 0:
		return "Infinity"
	}
	return "-Infinity"
}
