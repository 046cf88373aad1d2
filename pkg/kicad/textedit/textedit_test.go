package textedit

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

const basicFixture = "../../../testdata/basic.kicad_sch"

// legacyFixture uses the older split layout for some blocks, with the
// opening delimiter alone on its line and property keys and values on
// separate lines.
const legacyFixture = `(kicad_sch
  (version 20211014)
  (generator eeschema)
  (lib_symbols
    (symbol "Device:C"
      (property "Reference" "C" (id 0) (at 0 0 0))
    )
    (symbol "Device:R"
      (property "Reference" "R" (id 0) (at 0 0 0))
    )
  )
  (
    symbol
    (lib_id "Device:C")
    (at 10 10 0)
    (property
      "Reference"
      "C1"
      (id 0)
      (at 10 5 0)
    )
  )
  (symbol (lib_id "Device:R") (at 20 10 0)
    (property "Reference" "R1" (id 0) (at 20 5 0))
    (property "Value" "has (parens) inside" (id 1) (at 20 7 0))
  )
  (wire (pts (xy 0 0) (xy 10 0))
    (stroke (width 0) (type default))
    (uuid "00000000-0000-4000-8000-000000000001")
  )
  (junction (at 10 0) (diameter 0) (color 0 0 0 0) (uuid "00000000-0000-4000-8000-000000000002"))
  (global_label "SDA" (shape bidirectional) (at 5 5 0) (uuid "00000000-0000-4000-8000-000000000003"))
  (sheet_instances
    (path "/" (page "1"))
  )
)
`

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(basicFixture)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return string(data)
}

func references(t *testing.T, text string) []string {
	t.Helper()
	doc, err := schematic.ParseString(text)
	if err != nil {
		t.Fatalf("Output does not parse: %v\n%s", err, text)
	}
	var refs []string
	for _, inst := range doc.Instances() {
		refs = append(refs, inst.Reference())
	}
	return refs
}

func TestDeleteInstancesKeepsLibraryTemplate(t *testing.T) {
	text := readFixture(t)

	out, n, err := DeleteInstances(text, []string{"C1"})
	if err != nil {
		t.Fatalf("DeleteInstances failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	if got := strings.Join(references(t, out), ","); got != "R1,R2" {
		t.Errorf("Expected R1,R2 to remain, got %s", got)
	}

	doc, _ := schematic.ParseString(out)
	libs, err := doc.LibSymbols()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sym := range sexp.FindAllNodes(libs, "symbol") {
		if name, _ := sexp.GetString(sym, 1); name == "Device:C" {
			found = true
		}
	}
	if !found {
		t.Error("Library template Device:C was removed")
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Output invalid: %v", err)
	}
}

func TestDeleteInstancesPreservesOtherLines(t *testing.T) {
	text := readFixture(t)
	out, _, err := DeleteInstances(text, []string{"R2"})
	if err != nil {
		t.Fatal(err)
	}

	// R2 occupies lines 240-281 of the fixture; everything else is copied
	// through unchanged
	lines := strings.SplitAfter(text, "\n")
	want := strings.Join(lines[:239], "") + strings.Join(lines[281:], "")
	if out != want {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestDeleteInstancesUnknownReference(t *testing.T) {
	text := readFixture(t)
	out, n, err := DeleteInstances(text, []string{"U99"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || out != text {
		t.Errorf("Expected unchanged text, got %d deletions", n)
	}
}

func TestDeleteInstancesLegacyLayout(t *testing.T) {
	out, n, err := DeleteInstances(legacyFixture, []string{"C1", "R1"})
	if err != nil {
		t.Fatalf("DeleteInstances failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 deletions, got %d", n)
	}
	if refs := references(t, out); len(refs) != 0 {
		t.Errorf("Expected no instances left, got %v", refs)
	}
	if !strings.Contains(out, `(property "Reference" "C" (id 0) (at 0 0 0))`) ||
		!strings.Contains(out, `(property "Reference" "R" (id 0) (at 0 0 0))`) {
		t.Error("Library templates were modified")
	}
	if !strings.Contains(out, "(wire") {
		t.Error("Wire should be untouched by instance deletion")
	}
}

func TestScanReportsReferences(t *testing.T) {
	blocks, err := Scan(legacyFixture)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, b := range blocks {
		if b.Tag == "symbol" {
			got = append(got, b.Reference)
		}
	}
	if strings.Join(got, ",") != "C1,R1" {
		t.Errorf("Expected references C1,R1, got %v", got)
	}
	if blocks[0].Tag != "version" || blocks[0].StartLine != 2 {
		t.Errorf("Unexpected first block %+v", blocks[0])
	}
}

func TestDeleteWiring(t *testing.T) {
	out, n, err := DeleteWiring(legacyFixture)
	if err != nil {
		t.Fatalf("DeleteWiring failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 deletions, got %d", n)
	}
	for _, tag := range []string{"(wire", "(junction", "(global_label"} {
		if strings.Contains(out, tag) {
			t.Errorf("Expected %s removed", tag)
		}
	}
	if got := strings.Join(references(t, out), ","); got != "C1,R1" {
		t.Errorf("Instances changed: %s", got)
	}
}

func TestDeleteWiringFixture(t *testing.T) {
	out, n, err := DeleteWiring(readFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Expected junction, wire and label removed, got %d", n)
	}
	doc, err := schematic.ParseString(out)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := doc.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Wires)+len(sum.Junctions)+len(sum.Labels) != 0 {
		t.Errorf("Wiring left behind: %+v", sum)
	}
}

func TestTagMatchIsExact(t *testing.T) {
	text := "(kicad_sch\n  (wire_bus_thing (x 1))\n  (labels_extra \"a\")\n)\n"
	out, n, err := DeleteWiring(text)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || out != text {
		t.Errorf("Expected no match on longer tags, got %d deletions:\n%s", n, out)
	}
}

func TestClosingLineWithTrailingText(t *testing.T) {
	text := "(kicad_sch\n  (version 1)\n  (wire (pts (xy 0 0) (xy 1 0)) (uuid \"a\")))\n"
	out, n, err := DeleteWiring(text)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	if _, err := kicadsexp.ParseString(out); err != nil {
		t.Errorf("Root close lost with the wire: %v\n%s", err, out)
	}
}

func TestUnbalancedInputFails(t *testing.T) {
	cases := map[string]string{
		"truncated block":   "(kicad_sch\n  (symbol (lib_id \"Device:R\")\n    (property \"Reference\" \"R1\"\n",
		"truncated library": "(kicad_sch\n  (lib_symbols\n    (symbol \"Device:R\"\n",
		"bad string":        "(kicad_sch\n  (label \"oops)\n)\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DeleteInstances(text, []string{"R1"})
			if !errors.Is(err, kicadsexp.ErrSyntax) {
				t.Errorf("Expected ErrSyntax, got %v", err)
			}
			if !errors.Is(err, schematic.ErrParse) {
				t.Error("Expected the error to also match schematic.ErrParse")
			}
		})
	}
}

func TestRootImbalanceTolerated(t *testing.T) {
	text := readFixture(t)
	trimmed := strings.TrimSuffix(text, ")\n")
	cases := map[string]string{
		"missing root close": trimmed,
		"extra root close":   text + ")\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := kicadsexp.ParseString(in); err == nil {
				t.Fatal("Expected the structural parser to reject the input")
			}
			out, n, err := DeleteInstances(in, []string{"R2"})
			if err != nil {
				t.Fatalf("DeleteInstances failed: %v", err)
			}
			if n != 1 {
				t.Errorf("Expected 1 deletion, got %d", n)
			}
			if strings.Contains(out, `"R2"`) {
				t.Error("R2 still present")
			}
			if !strings.Contains(out, `"R1"`) || !strings.Contains(out, "(sheet_instances") {
				t.Error("Unrelated content lost")
			}
		})
	}
}

func TestMultiLineString(t *testing.T) {
	text := "(kicad_sch\n" +
		"  (text \"first line (\nsecond line\" (at 0 0 0))\n" +
		"  (symbol (lib_id \"Device:R\")\n" +
		"    (property \"Reference\" \"R1\" (at 0 0 0))\n" +
		"  )\n" +
		")\n"
	out, n, err := DeleteInstances(text, []string{"R1"})
	if err != nil {
		t.Fatalf("DeleteInstances failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	want := "(kicad_sch\n  (text \"first line (\nsecond line\" (at 0 0 0))\n)\n"
	if out != want {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestDroppedBlockAfterKeptOnSameLine(t *testing.T) {
	text := "(kicad_sch\n  (version 1) (wire (pts (xy 0 0) (xy 1 0)))\n  (sheet_instances)\n)\n"
	out, n, err := DeleteWiring(text)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	want := "(kicad_sch\n  (version 1)\n  (sheet_instances)\n)\n"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}
