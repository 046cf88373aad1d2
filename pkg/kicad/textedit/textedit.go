// Package textedit removes top-level blocks from schematic text without
// building a syntax tree. It is the fallback deletion path for files the
// structural parser rejects: every line that is not dropped is copied
// through byte for byte.
//
// The scanner understands both layouts KiCad has used for a block opening:
//
//	(symbol (lib_id "Device:R") ...        inline
//
//	(
//	  symbol                               split over two lines
//
// and tracks delimiter balance with a quote-aware lexer so parentheses
// inside strings are not counted, including strings that span lines.
// Anything inside lib_symbols is copied verbatim.
//
// Only a block that never closes is an error. Imbalance at the root
// level, such as a missing final ')' or a stray extra one, is tolerated
// so that damaged files can still be edited.
package textedit

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// LineLexer tokenizes schematic text for the line scanner.
var LineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:[^"\\]|\\[\s\S])*"`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Atom", Pattern: `[^\s()"]+`},
})

var (
	tokString = LineLexer.Symbols()["String"]
	tokLParen = LineLexer.Symbols()["LParen"]
	tokRParen = LineLexer.Symbols()["RParen"]
	tokAtom   = LineLexer.Symbols()["Atom"]
)

const (
	tagRoot       = "kicad_sch"
	tagLibSymbols = "lib_symbols"
	tagSymbol     = "symbol"
)

// WiringTags are the constructs removed by DeleteWiring.
var WiringTags = []string{"wire", "junction", "label", "global_label", "hierarchical_label"}

var unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n", `\t`, "\t", `\r`, "\r")

type line struct {
	text   string
	tokens []lexer.Token // whitespace elided
}

// balance returns opens minus closes.
func balance(tokens []lexer.Token) int {
	n := 0
	for _, tok := range tokens {
		switch tok.Type {
		case tokLParen:
			n++
		case tokRParen:
			n--
		}
	}
	return n
}

// Block is a top-level construct found by the scanner.
type Block struct {
	Tag       string
	Reference string // symbol blocks only
	StartLine int    // 1-based
	EndLine   int
}

// scanner walks the lines of a document once, deciding per top-level
// block whether to keep it.
type scanner struct {
	lines []line
	out   strings.Builder
	depth int
	drop  func(Block) bool

	dropped []Block
}

func newScanner(text string, drop func(Block) bool) (*scanner, error) {
	raw := strings.SplitAfter(text, "\n")
	if len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	s := &scanner{lines: make([]line, len(raw)), drop: drop}
	starts := make([]int, len(raw))
	off := 0
	for i, r := range raw {
		s.lines[i].text = r
		starts[i] = off
		off += len(r)
	}

	// Lexed as a whole so strings may run across lines. Each token belongs
	// to the line it starts on, with its offset relative to that line.
	lex, err := LineLexer.LexString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kicadsexp.ErrSyntax, err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kicadsexp.ErrSyntax, err)
	}
	for _, tok := range all {
		switch tok.Type {
		case tokString, tokLParen, tokRParen, tokAtom:
		default:
			continue
		}
		i := tok.Pos.Line - 1
		if i < 0 || i >= len(s.lines) {
			continue
		}
		tok.Pos.Offset -= starts[i]
		s.lines[i].tokens = append(s.lines[i].tokens, tok)
	}
	return s, nil
}

// blockTag reports the tag of a block opening at line i, in either layout.
func (s *scanner) blockTag(i int) (string, bool) {
	toks := s.lines[i].tokens
	if len(toks) == 0 || toks[0].Type != tokLParen {
		return "", false
	}
	if len(toks) > 1 {
		if toks[1].Type == tokAtom {
			return toks[1].Value, true
		}
		return "", false
	}
	// lone "(": the tag is the first token of the next non-blank line
	for j := i + 1; j < len(s.lines); j++ {
		next := s.lines[j].tokens
		if len(next) == 0 {
			continue
		}
		if next[0].Type == tokAtom {
			return next[0].Value, true
		}
		return "", false
	}
	return "", false
}

func (s *scanner) run() error {
	inLib := false
	libDepth := 0
	libStart := 0

	for i := 0; i < len(s.lines); i++ {
		ln := s.lines[i]

		if !inLib && s.depth <= 1 {
			if tag, ok := s.blockTag(i); ok && (s.depth == 1 || tag != tagRoot) {
				if tag == tagLibSymbols {
					inLib = true
					libDepth = s.depth
					libStart = i
				} else {
					end, err := s.block(i, tag)
					if err != nil {
						return err
					}
					i = end
					continue
				}
			}
		}

		s.out.WriteString(ln.text)
		s.depth += balance(ln.tokens)
		if s.depth < 0 {
			// stray ')' at the root level
			s.depth = 0
		}
		if inLib && s.depth <= libDepth {
			inLib = false
		}
	}

	if inLib {
		return fmt.Errorf("%w: %s block starting at line %d is never closed", kicadsexp.ErrSyntax, tagLibSymbols, libStart+1)
	}
	return nil
}

// block consumes the block opening at line start and returns the index of
// the last line handled. A kept block is copied verbatim. When the
// closing delimiter is followed by more text on the same line, that tail
// replaces the line and is processed again by the caller.
func (s *scanner) block(start int, tag string) (int, error) {
	b := Block{Tag: tag, StartLine: start + 1}
	run := 0
	sawProperty := false
	wantRef := false

	for j := start; j < len(s.lines); j++ {
		for k, tok := range s.lines[j].tokens {
			switch tok.Type {
			case tokLParen:
				run++
			case tokRParen:
				run--
			case tokAtom:
				sawProperty = run == 2 && tok.Value == "property"
				continue
			case tokString:
				if wantRef {
					b.Reference = unquote(tok.Value)
					wantRef = false
				} else if sawProperty && b.Reference == "" && unquote(tok.Value) == "Reference" {
					wantRef = true
				}
				sawProperty = false
				continue
			}
			sawProperty = false
			if run != 0 {
				continue
			}

			b.EndLine = j + 1
			text := s.lines[j].text
			tail := text[tok.Pos.Offset+1:]
			drop := s.drop(b)
			if drop {
				s.dropped = append(s.dropped, b)
			}

			for m := start; m < j; m++ {
				if !drop {
					s.out.WriteString(s.lines[m].text)
				}
			}
			if strings.TrimSpace(tail) == "" {
				if !drop {
					s.out.WriteString(text)
				} else if strings.HasSuffix(text, "\n") && !s.atLineStart() {
					// the block followed a kept one on the same line
					s.out.WriteString("\n")
				}
				return j, nil
			}

			if !drop {
				s.out.WriteString(text[:tok.Pos.Offset+1])
			}
			s.lines[j] = line{text: tail, tokens: shift(s.lines[j].tokens[k+1:], tok.Pos.Offset+1)}
			return j - 1, nil
		}
	}

	return 0, fmt.Errorf("%w: %s block starting at line %d is never closed", kicadsexp.ErrSyntax, tag, start+1)
}

func (s *scanner) atLineStart() bool {
	out := s.out.String()
	return out == "" || out[len(out)-1] == '\n'
}

// shift rebases token offsets onto a line tail.
func shift(tokens []lexer.Token, by int) []lexer.Token {
	out := make([]lexer.Token, len(tokens))
	for i, tok := range tokens {
		tok.Pos.Offset -= by
		out[i] = tok
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return unescaper.Replace(s[1 : len(s)-1])
	}
	return s
}

// Filter copies text, dropping every top-level block outside lib_symbols
// for which drop returns true. It returns the dropped blocks in order.
// A block that never closes is an error wrapping kicadsexp.ErrSyntax.
func Filter(text string, drop func(Block) bool) (string, []Block, error) {
	s, err := newScanner(text, drop)
	if err != nil {
		return "", nil, err
	}
	if err := s.run(); err != nil {
		return "", nil, err
	}
	return s.out.String(), s.dropped, nil
}

// Scan lists the top-level blocks outside lib_symbols without changing
// anything.
func Scan(text string) ([]Block, error) {
	_, blocks, err := Filter(text, func(Block) bool { return true })
	return blocks, err
}

// DeleteInstances removes the placed symbols whose Reference is in refs.
// Library templates are never touched.
func DeleteInstances(text string, refs []string) (string, int, error) {
	want := make(map[string]bool, len(refs))
	for _, r := range refs {
		want[r] = true
	}
	out, dropped, err := Filter(text, func(b Block) bool {
		return b.Tag == tagSymbol && b.Reference != "" && want[b.Reference]
	})
	if err != nil {
		return "", 0, err
	}
	return out, len(dropped), nil
}

// DeleteWiring removes every wire, junction and label block.
func DeleteWiring(text string) (string, int, error) {
	tags := make(map[string]bool, len(WiringTags))
	for _, t := range WiringTags {
		tags[t] = true
	}
	out, dropped, err := Filter(text, func(b Block) bool { return tags[b.Tag] })
	if err != nil {
		return "", 0, err
	}
	return out, len(dropped), nil
}
