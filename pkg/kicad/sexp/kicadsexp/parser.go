package kicadsexp

import (
	"errors"
	"fmt"
	"io"
)

// ErrSyntax is the error kind shared by every malformed-input failure.
var ErrSyntax = errors.New("s-expression syntax error")

// ParseError reports malformed input with its location.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Unwrap lets errors.Is(err, ErrSyntax) match.
func (e *ParseError) Unwrap() error { return ErrSyntax }

// Parser parses S-expressions from a lexer.
// Lists are built with an explicit stack, so nesting depth is bounded only
// by memory.
type Parser struct {
	lexer *Lexer
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// ParseAll parses all top-level S-expressions from the input
func (p *Parser) ParseAll() ([]Sexp, error) {
	var result []Sexp

	// open lists, innermost last, with the token that opened each
	var stack []*List
	var openers []Token

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenEOF:
			if len(stack) > 0 {
				open := openers[len(openers)-1]
				return nil, &ParseError{
					Line:   open.Line,
					Column: open.Column,
					Msg:    fmt.Sprintf("unexpected EOF: %d unclosed list(s)", len(stack)),
				}
			}
			return result, nil

		case TokenLeftParen:
			stack = append(stack, &List{})
			openers = append(openers, tok)
			continue

		case TokenRightParen:
			if len(stack) == 0 {
				return nil, &ParseError{Line: tok.Line, Column: tok.Column, Msg: "unexpected ')'"}
			}
			done := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			openers = openers[:len(openers)-1]
			if len(stack) == 0 {
				result = append(result, done)
			} else {
				stack[len(stack)-1].Append(done)
			}
			continue
		}

		var atom Sexp
		switch tok.Type {
		case TokenString:
			atom = String(tok.Value)
		case TokenSymbol:
			atom = atomFromText(tok.Value)
		default:
			return nil, &ParseError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("unexpected token %v", tok.Type)}
		}

		if len(stack) == 0 {
			result = append(result, atom)
		} else {
			stack[len(stack)-1].Append(atom)
		}
	}
}
