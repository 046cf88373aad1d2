package kicadsexp

import (
	"io"
	"strings"
)

// Serialize renders an S-expression as text. With pretty set, the layout
// follows the one KiCad itself writes: a list holding only atoms stays on
// one line, every nested list starts on its own tab-indented line, and the
// closing parenthesis of a multi-line list sits on its own line.
func Serialize(s Sexp, pretty bool) string {
	var b strings.Builder
	if pretty {
		writePretty(&b, s, 0)
	} else {
		writeCompact(&b, s)
	}
	return b.String()
}

// Write serializes s to w.
func Write(w io.Writer, s Sexp, pretty bool) error {
	_, err := io.WriteString(w, Serialize(s, pretty))
	return err
}

func writeCompact(b *strings.Builder, s Sexp) {
	list, ok := s.(*List)
	if !ok {
		b.WriteString(s.String())
		return
	}
	b.WriteByte('(')
	for i, item := range list.elements {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeCompact(b, item)
	}
	b.WriteByte(')')
}

func writePretty(b *strings.Builder, s Sexp, depth int) {
	list, ok := s.(*List)
	if !ok {
		b.WriteString(s.String())
		return
	}
	if isFlat(list) {
		writeCompact(b, list)
		return
	}

	b.WriteByte('(')
	multiline := false
	for i, item := range list.elements {
		if _, isList := item.(*List); isList || multiline {
			b.WriteByte('\n')
			writeIndent(b, depth+1)
			writePretty(b, item, depth+1)
			multiline = true
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(item.String())
	}
	if multiline {
		b.WriteByte('\n')
		writeIndent(b, depth)
	}
	b.WriteByte(')')
}

func isFlat(l *List) bool {
	for _, item := range l.elements {
		if !item.IsLeaf() {
			return false
		}
	}
	return true
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte('\t')
	}
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}
