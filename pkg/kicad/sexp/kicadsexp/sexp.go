// Package kicadsexp provides a lossless S-expression reader and writer for
// KiCad files. Unlike general-purpose sexp libraries it keeps quoted strings,
// bare symbols and numbers apart, so a parsed file can be edited in place and
// written back in a form the host tool accepts.
package kicadsexp

import (
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Sexp represents an S-expression node.
// It is either an atom (Symbol, String, Number) or a *List.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// String returns the compact serialized form
	String() string
}

// Symbol is a bare (unquoted) atom such as a tag, yes/no flag or keyword.
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) String() string { return string(s) }

// String is a quoted atom. The value is stored unescaped.
type String string

func (s String) IsLeaf() bool   { return true }
func (s String) String() string { return quote(string(s)) }

// Number is a numeric atom. Raw keeps the literal text so that values
// read from a file are written back unchanged.
type Number struct {
	Value float64
	Raw   string
}

func (n Number) IsLeaf() bool   { return true }
func (n Number) String() string { return n.Raw }

// NewNumber builds a Number with the shortest decimal representation.
func NewNumber(v float64) Number {
	return Number{Value: v, Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// NewInt builds an integral Number.
func NewInt(v int) Number {
	return Number{Value: float64(v), Raw: strconv.Itoa(v)}
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// atomFromText classifies a bare token as Number or Symbol.
func atomFromText(text string) Sexp {
	if numberPattern.MatchString(text) {
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return Number{Value: v, Raw: text}
		}
	}
	return Symbol(text)
}

// List represents a parenthesized list of S-expressions.
// KiCad lists are tagged: the first element is a Symbol naming the node.
type List struct {
	elements []Sexp
}

// NewList creates a tagged list: (tag items...)
func NewList(tag string, items ...Sexp) *List {
	elements := make([]Sexp, 0, len(items)+1)
	elements = append(elements, Symbol(tag))
	elements = append(elements, items...)
	return &List{elements: elements}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) String() string {
	var b strings.Builder
	writeCompact(&b, l)
	return b.String()
}

// Tag returns the leading symbol of the list, or "" when the list is
// empty or starts with something other than a bare symbol.
func (l *List) Tag() string {
	if len(l.elements) == 0 {
		return ""
	}
	if sym, ok := l.elements[0].(Symbol); ok {
		return string(sym)
	}
	return ""
}

// Len returns the number of elements in the list, tag included
func (l *List) Len() int {
	return len(l.elements)
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Items returns the underlying elements. Callers must not retain the
// slice across mutations.
func (l *List) Items() []Sexp {
	return l.elements
}

// Set replaces the element at index.
func (l *List) Set(index int, item Sexp) {
	if index < 0 || index >= len(l.elements) {
		return
	}
	l.elements[index] = item
}

// Append adds items to the end of the list.
func (l *List) Append(items ...Sexp) {
	l.elements = append(l.elements, items...)
}

// Insert places item at index, shifting later elements right. An index
// past the end appends.
func (l *List) Insert(index int, item Sexp) {
	if index < 0 {
		index = 0
	}
	if index >= len(l.elements) {
		l.elements = append(l.elements, item)
		return
	}
	l.elements = append(l.elements, nil)
	copy(l.elements[index+1:], l.elements[index:])
	l.elements[index] = item
}

// Remove deletes the element at index.
func (l *List) Remove(index int) {
	if index < 0 || index >= len(l.elements) {
		return
	}
	l.elements = append(l.elements[:index], l.elements[index+1:]...)
}

// RemoveFunc deletes every element for which drop returns true and
// reports how many were removed.
func (l *List) RemoveFunc(drop func(Sexp) bool) int {
	kept := l.elements[:0]
	removed := 0
	for _, item := range l.elements {
		if drop(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	// clear the tail so dropped nodes can be collected
	for i := len(kept); i < len(l.elements); i++ {
		l.elements[i] = nil
	}
	l.elements = kept
	return removed
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	out := &List{elements: make([]Sexp, len(l.elements))}
	for i, item := range l.elements {
		if sub, ok := item.(*List); ok {
			out.elements[i] = sub.Clone()
		} else {
			out.elements[i] = item
		}
	}
	return out
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	parser := NewParser(r)
	return parser.ParseAll()
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
