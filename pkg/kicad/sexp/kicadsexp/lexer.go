package kicadsexp

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	case TokenString:
		return "string"
	}
	return "unknown"
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// Lexer tokenizes S-expressions from an io.Reader
type Lexer struct {
	reader *bufio.Reader
	peeked *rune
	line   int
	column int
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(r),
		line:   1,
	}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	// Skip whitespace
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return Token{Type: TokenEOF, Line: l.line, Column: l.column}, nil
			}
			return Token{}, err
		}
		if !unicode.IsSpace(ch) {
			break
		}
		l.read()
	}

	ch, _ := l.peek()
	line, col := l.line, l.column+1

	switch ch {
	case '(':
		l.read()
		return Token{Type: TokenLeftParen, Value: "(", Line: line, Column: col}, nil

	case ')':
		l.read()
		return Token{Type: TokenRightParen, Value: ")", Line: line, Column: col}, nil

	case '"':
		return l.readString(line, col)

	default:
		return l.readSymbol(line, col)
	}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune, tracking line and column
func (l *Lexer) read() (rune, error) {
	var ch rune
	if l.peeked != nil {
		ch = *l.peeked
		l.peeked = nil
	} else {
		var err error
		ch, _, err = l.reader.ReadRune()
		if err != nil {
			return 0, err
		}
	}

	if ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	return ch, nil
}

// readString reads a quoted string, resolving backslash escapes
func (l *Lexer) readString(line, col int) (Token, error) {
	// Consume opening quote
	l.read()

	var b strings.Builder
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, &ParseError{Line: line, Column: col, Msg: "unterminated string"}
			}
			return Token{}, err
		}

		if ch == '"' {
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return Token{}, &ParseError{Line: line, Column: col, Msg: "unexpected EOF after backslash"}
			}
			switch next {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				// \\ and \" resolve to the character itself
				b.WriteRune(next)
			}
			continue
		}

		b.WriteRune(ch)
	}

	return Token{Type: TokenString, Value: b.String(), Line: line, Column: col}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol(line, col int) (Token, error) {
	var b strings.Builder

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		// Stop at delimiters
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		b.WriteRune(ch)
	}

	if b.Len() == 0 {
		return Token{}, &ParseError{Line: line, Column: col, Msg: "empty symbol"}
	}

	return Token{Type: TokenSymbol, Value: b.String(), Line: line, Column: col}, nil
}
