package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/KimNorgaard/go-bson/internal/ast"
	"github.com/KimNorgaard/go-bson/internal/lexer"
	"github.com/KimNorgaard/go-bson/internal/token"
)

// DefaultMaxDepth bounds container nesting when New is given no limit.
const DefaultMaxDepth = 1000

// Error is a syntax error at a position in the source.
type Error struct {
	Message string
	Line    int
	Column  int

	depth bool
}

func (e Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Errors is the list of syntax errors found in one parse.
type Errors []Error

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

type prefixParseFn func() ast.Expression

// Parser holds the state of the parser.
type Parser struct {
	l      *lexer.Lexer
	errors Errors

	curToken  token.Token
	peekToken token.Token

	depth    int
	maxDepth int

	prefixParseFns map[token.Type]prefixParseFn
}

// New creates a new parser. Containers nested deeper than maxDepth are
// rejected; a non-positive maxDepth selects DefaultMaxDepth.
func New(l *lexer.Lexer, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &Parser{l: l, maxDepth: maxDepth}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.LBRACK, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseObjectLiteral)
	p.registerPrefix(token.ILLEGAL, p.parseIllegal)

	// Read two tokens, so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns the errors encountered during parsing.
func (p *Parser) Errors() Errors {
	return p.errors
}

// Err returns the errors as a single error, or nil if there were none.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return p.errors
}

// Parse parses one JSON text and returns the root AST node.
func (p *Parser) Parse() *ast.Document {
	document := &ast.Document{}

	if p.curTokenIs(token.EOF) {
		p.errorf(p.curToken, "empty input")
		return document
	}

	document.Value = p.parseExpression()

	if len(p.errors) == 0 && !p.curTokenIs(token.EOF) {
		p.errorf(p.curToken, "unexpected %s after main value", describe(p.curToken))
	}

	return document
}

// IsDepthError reports whether err records a nesting limit violation.
func IsDepthError(err error) bool {
	var errs Errors
	if !errors.As(err, &errs) {
		return false
	}
	for _, e := range errs {
		if e.depth {
			return true
		}
	}
	return false
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, Error{Message: fmt.Sprintf(format, args...), Line: tok.Line, Column: tok.Column})
}

func (p *Parser) parseExpression() ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(p.curToken, "unexpected %s, expected a value", describe(p.curToken))
		return nil
	}
	return prefix()
}

// The contract for all parse functions is that they are entered with p.curToken
// being the first token of the construct, and they must return with p.curToken
// pointing to the token *after* the construct. A nil result means an error
// was recorded and parsing stops.

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		// Out of int64 range: keep it as a float.
		return p.parseFloatLiteral()
	}
	lit := &ast.IntegerLiteral{Token: p.curToken, Value: value}
	p.nextToken()
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "number %s is out of range", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	p.nextToken()
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	expr := &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return expr
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	expr := &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
	p.nextToken()
	return expr
}

func (p *Parser) parseNullLiteral() ast.Expression {
	expr := &ast.NullLiteral{Token: p.curToken}
	p.nextToken()
	return expr
}

func (p *Parser) parseIllegal() ast.Expression {
	p.errorf(p.curToken, "%s", p.curToken.Literal)
	return nil
}

func (p *Parser) enter() bool {
	if p.depth >= p.maxDepth {
		p.errors = append(p.errors, Error{
			Message: fmt.Sprintf("nesting exceeds %d levels", p.maxDepth),
			Line:    p.curToken.Line,
			Column:  p.curToken.Column,
			depth:   true,
		})
		return false
	}
	p.depth++
	return true
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	array := &ast.ArrayLiteral{Token: p.curToken, Elements: []ast.Expression{}}
	p.nextToken() // Consume '['

	if p.curTokenIs(token.RBRACK) {
		p.nextToken()
		return array
	}
	for {
		el := p.parseExpression()
		if el == nil {
			return nil
		}
		array.Elements = append(array.Elements, el)

		switch p.curToken.Type {
		case token.COMMA:
			p.nextToken()
		case token.RBRACK:
			p.nextToken()
			return array
		default:
			p.errorf(p.curToken, "unexpected %s in array, expected ',' or ']'", describe(p.curToken))
			return nil
		}
	}
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	obj := &ast.ObjectLiteral{Token: p.curToken, Pairs: []*ast.Pair{}}
	keys := make(map[string]bool)
	p.nextToken() // Consume '{'

	if p.curTokenIs(token.RBRACE) {
		p.nextToken()
		return obj
	}
	for {
		pair := p.parseKeyValuePair()
		if pair == nil {
			return nil
		}
		if keys[pair.Key] {
			p.errorf(pair.Token, "duplicate key in object: %s", pair.Key)
		}
		keys[pair.Key] = true
		obj.Pairs = append(obj.Pairs, pair)

		switch p.curToken.Type {
		case token.COMMA:
			p.nextToken()
		case token.RBRACE:
			p.nextToken()
			return obj
		default:
			p.errorf(p.curToken, "unexpected %s in object, expected ',' or '}'", describe(p.curToken))
			return nil
		}
	}
}

func (p *Parser) parseKeyValuePair() *ast.Pair {
	if !p.curTokenIs(token.STRING) {
		if p.curTokenIs(token.ILLEGAL) {
			p.errorf(p.curToken, "%s", p.curToken.Literal)
		} else {
			p.errorf(p.curToken, "invalid token for object key: %s", describe(p.curToken))
		}
		return nil
	}
	pair := &ast.Pair{Token: p.curToken, Key: p.curToken.Literal}
	p.nextToken()

	if !p.curTokenIs(token.COLON) {
		p.errorf(p.curToken, "expected ':' after key, got %s", describe(p.curToken))
		return nil
	}
	p.nextToken() // Consume ':'

	pair.Value = p.parseExpression()
	if pair.Value == nil {
		return nil
	}
	return pair
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.STRING:
		return "string " + strconv.Quote(tok.Literal)
	case token.INT, token.FLOAT:
		return "number " + tok.Literal
	case token.TRUE, token.FALSE, token.NULL:
		return tok.Literal
	case token.ILLEGAL:
		return tok.Literal
	}
	return "'" + tok.Literal + "'"
}
