package kicadsexp

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAtomKinds(t *testing.T) {
	nodes, err := ParseString(`(property "Reference" R1 (at 100 -5.08 0) (hide yes) 1e3 .5)`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("Expected 1 top-level node, got %d", len(nodes))
	}

	list, ok := nodes[0].(*List)
	if !ok {
		t.Fatalf("Expected *List, got %T", nodes[0])
	}
	if list.Tag() != "property" {
		t.Errorf("Expected tag 'property', got '%s'", list.Tag())
	}
	if _, ok := list.Get(1).(String); !ok {
		t.Errorf("Expected quoted Reference to be String, got %T", list.Get(1))
	}
	if _, ok := list.Get(2).(Symbol); !ok {
		t.Errorf("Expected bare R1 to be Symbol, got %T", list.Get(2))
	}

	at := list.Get(3).(*List)
	y, ok := at.Get(2).(Number)
	if !ok {
		t.Fatalf("Expected -5.08 to be Number, got %T", at.Get(2))
	}
	if y.Value != -5.08 || y.Raw != "-5.08" {
		t.Errorf("Expected -5.08, got %v (%q)", y.Value, y.Raw)
	}

	if n, ok := list.Get(5).(Number); !ok || n.Value != 1000 {
		t.Errorf("Expected 1e3 to be Number 1000, got %#v", list.Get(5))
	}
	if n, ok := list.Get(6).(Number); !ok || n.Value != 0.5 {
		t.Errorf("Expected .5 to be Number 0.5, got %#v", list.Get(6))
	}
}

func TestParseBareTokensThatLookNumeric(t *testing.T) {
	// UUIDs and version-like tokens must stay symbols
	for _, text := range []string{"862335ee-c981-4fe1-9eb9-84db19301dd4", "1.2.3", "-", "+", "10k", "e5"} {
		nodes, err := ParseString(text)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", text, err)
		}
		if _, ok := nodes[0].(Symbol); !ok {
			t.Errorf("Expected %q to be Symbol, got %T", text, nodes[0])
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	nodes, err := ParseString(`(text "say \"hi\"\nC:\\lib\tend")`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	got := string(nodes[0].(*List).Get(1).(String))
	want := "say \"hi\"\nC:\\lib\tend"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
	}{
		{name: "unclosed list", input: "(kicad_sch\n  (version 1)", line: 1, column: 1},
		{name: "stray close", input: "(a)\n)", line: 2, column: 1},
		{name: "unterminated string", input: `(a "oops)`, line: 1, column: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Expected ErrSyntax, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}
			if perr.Line != tt.line || perr.Column != tt.column {
				t.Errorf("Expected position %d:%d, got %d:%d", tt.line, tt.column, perr.Line, perr.Column)
			}
		})
	}
}

func TestParseDeepNesting(t *testing.T) {
	const depth = 100000
	input := strings.Repeat("(a ", depth) + strings.Repeat(")", depth)

	nodes, err := ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse deep input: %v", err)
	}

	count := 0
	Walk(nodes[0], func(*List) bool {
		count++
		return true
	})
	if count != depth {
		t.Errorf("Expected %d lists, got %d", depth, count)
	}
}

// treeShape converts a tree to plain values so cmp can diff it.
func treeShape(s Sexp) any {
	switch v := s.(type) {
	case *List:
		out := make([]any, 0, v.Len())
		for _, item := range v.Items() {
			out = append(out, treeShape(item))
		}
		return out
	case Number:
		return v.Value
	case String:
		return "str:" + string(v)
	case Symbol:
		return "sym:" + string(v)
	}
	return nil
}

func TestRoundTrip(t *testing.T) {
	input := `(kicad_sch (version 20231120) (generator "eeschema")
		(uuid 862335ee-c981-4fe1-9eb9-84db19301dd4)
		(lib_symbols
			(symbol "Device:R" (pin_numbers hide)
				(property "Reference" "R" (at 2.032 0 90) (effects (font (size 1.27 1.27))))
				(symbol "R_1_1" (pin passive line (at 0 3.81 270) (length 1.27) (name "~" (effects (font (size 1.27 1.27)))) (number "1")))))
		(symbol (lib_id "Device:R") (at 100 50 0) (unit 1) (in_bom yes)
			(property "Value" "with \"quotes\" and \\ backslash" (at 0 0 0)))
		(wire (pts (xy 0 0) (xy 10 0)) (stroke (width 0) (type default)))
		()
		(sheet_instances (path "/" (page "1"))))`

	nodes, err := ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	original := nodes[0]

	for _, pretty := range []bool{false, true} {
		text := Serialize(original, pretty)
		again, err := ParseString(text)
		if err != nil {
			t.Fatalf("Failed to re-parse (pretty=%v): %v\n%s", pretty, err, text)
		}
		if len(again) != 1 {
			t.Fatalf("Expected 1 node after round trip, got %d", len(again))
		}
		if diff := cmp.Diff(treeShape(original), treeShape(again[0])); diff != "" {
			t.Errorf("Round trip mismatch (pretty=%v) (-want +got):\n%s", pretty, diff)
		}
		if !Equal(original, again[0]) {
			t.Errorf("Equal reported a difference after round trip (pretty=%v)", pretty)
		}
	}
}

func TestRoundTripBuiltTree(t *testing.T) {
	tree := NewList("symbol",
		NewList("lib_id", String("Device:C")),
		NewList("at", NewNumber(125.4), NewNumber(-0.1), NewInt(90)),
		NewList("property", String("Value"), String("line1\nline2\t\"q\"")),
		NewList("empty"),
	)

	again, err := ParseString(Serialize(tree, true))
	if err != nil {
		t.Fatalf("Failed to re-parse: %v", err)
	}
	if diff := cmp.Diff(treeShape(tree), treeShape(again[0])); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNumberRawPreserved(t *testing.T) {
	nodes, err := ParseString("(at 1.270 0 -0.0)")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := Serialize(nodes[0], false); got != "(at 1.270 0 -0.0)" {
		t.Errorf("Expected literal numbers to survive, got %s", got)
	}
}
