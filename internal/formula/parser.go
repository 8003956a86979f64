// Package formula implements the restricted arithmetic expression engine
// used by formula-sourced schema columns.
//
// The grammar covers + - * /, parentheses, decimal literals and bare
// identifiers resolved against a caller-supplied context. There are no
// function calls, attribute lookups, or any other escape hatch.
package formula

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodeIdentifier
	nodeBinary
)

// node is one vertex of the parsed expression tree.
type node struct {
	kind  nodeKind
	value decimal.Decimal // literal
	name  string          // identifier
	op    byte            // binary: one of + - * /
	left  *node
	right *node
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdentifier
	tokenOperator
	tokenLeftParen
	tokenRightParen
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	tokens []token
	pos    int
}

// parse converts an expression string into a tree, or fails with a
// description of the first offending token.
func parse(expression string) (*node, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
	return root, nil
}

func tokenize(expression string) ([]token, error) {
	var tokens []token
	runes := []rune(expression)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokenLeftParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokenRightParen, ")", i})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{tokenOperator, string(r), i})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			if strings.Count(text, ".") > 1 {
				return nil, fmt.Errorf("malformed number %q at position %d", text, start)
			}
			tokens = append(tokens, token{tokenNumber, text, start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{tokenIdentifier, string(runes[start:i]), start})
		default:
			return nil, fmt.Errorf("unsupported character %q at position %d", string(r), i)
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(runes)})
	return tokens, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// parseExpression handles + and - (lowest precedence).
func (p *parser) parseExpression() (*node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tok.text[0], left: left, right: right}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (*node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &node{kind: nodeBinary, op: tok.text[0], left: left, right: right}
	}
}

// parseFactor handles literals, identifiers, unary minus, and parentheses.
func (p *parser) parseFactor() (*node, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q at position %d", tok.text, tok.pos)
		}
		return &node{kind: nodeLiteral, value: d}, nil
	case tokenIdentifier:
		return &node{kind: nodeIdentifier, name: tok.text}, nil
	case tokenOperator:
		// Unary minus/plus on the following factor.
		if tok.text == "-" || tok.text == "+" {
			operand, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			if tok.text == "+" {
				return operand, nil
			}
			zero := &node{kind: nodeLiteral, value: decimal.Zero}
			return &node{kind: nodeBinary, op: '-', left: zero, right: operand}, nil
		}
		return nil, fmt.Errorf("unexpected operator %q at position %d", tok.text, tok.pos)
	case tokenLeftParen:
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRightParen {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", closing.pos)
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected end of expression at position %d", tok.pos)
	}
}

// Identifiers returns the distinct identifier names referenced by an
// expression, or an error when the expression does not parse. Used to
// validate declared dependency lists.
func Identifiers(expression string) ([]string, error) {
	root, err := parse(expression)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	var walk func(*node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.kind == nodeIdentifier && !seen[n.name] {
			seen[n.name] = true
			names = append(names, n.name)
		}
		walk(n.left)
		walk(n.right)
	}
	walk(root)
	return names, nil
}
