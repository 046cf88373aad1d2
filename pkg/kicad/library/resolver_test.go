package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
)

const fixtureSymbols = "../../../testdata/symbols"

func newTestResolver(paths ...string) *Resolver {
	return NewResolver(Config{SearchPaths: paths}, nil)
}

func TestSplitLibID(t *testing.T) {
	tests := []struct {
		in      string
		lib     string
		name    string
		wantErr bool
	}{
		{in: "Device:R", lib: "Device", name: "R"},
		{in: "Connector:Conn_01x02:Alt", lib: "Connector", name: "Conn_01x02:Alt"},
		{in: "Device", wantErr: true},
		{in: ":R", wantErr: true},
		{in: "Device:", wantErr: true},
	}

	for _, tt := range tests {
		lib, name, err := SplitLibID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, schematic.ErrInvalidArgument) {
				t.Errorf("SplitLibID(%q): expected ErrInvalidArgument, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || lib != tt.lib || name != tt.name {
			t.Errorf("SplitLibID(%q) = %q, %q, %v", tt.in, lib, name, err)
		}
	}
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t.TempDir(), fixtureSymbols)

	def, err := r.Resolve("Device:C")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if name, _ := sexp.GetString(def.Node, 1); name != "Device:C" {
		t.Errorf("Expected definition re-tagged as Device:C, got %q", name)
	}
	if strings.Join(def.Pins, ",") != "1,2" {
		t.Errorf("Expected pins [1 2], got %v", def.Pins)
	}

	// the unit sub-symbols keep their short names
	if !strings.Contains(def.Node.String(), `(symbol "C_1_1"`) {
		t.Error("Expected unit symbol C_1_1 in definition")
	}
}

func TestResolveErrors(t *testing.T) {
	r := newTestResolver(fixtureSymbols)

	if _, err := r.Resolve("Missing:R"); !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("Expected ErrLibraryNotFound, got %v", err)
	}
	if _, err := r.Resolve("Device:NoSuchPart"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("Expected ErrSymbolNotFound, got %v", err)
	}

	// both are NotFound kinds
	_, err := r.Resolve("Missing:R")
	if !errors.Is(err, schematic.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResolveRejectsNonLibrary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Bad.kicad_sym"), []byte(`(kicad_sch (version 1))`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestResolver(dir).Resolve("Bad:X")
	if !errors.Is(err, schematic.ErrStructure) {
		t.Errorf("Expected ErrStructure, got %v", err)
	}
}

func TestResolveDerivedSymbol(t *testing.T) {
	dir := t.TempDir()
	lib := `(kicad_symbol_lib (version 20231120)
		(symbol "R_Base"
			(property "Reference" "R" (at 0 0 0))
			(property "Value" "R_Base" (at 0 0 0))
			(symbol "R_Base_1_1"
				(pin passive line (at 0 3.81 270) (length 1.27) (name "~") (number "1"))
				(pin passive line (at 0 -3.81 90) (length 1.27) (name "~") (number "2"))))
		(symbol "R_US"
			(extends "R_Base")
			(property "Value" "R_US" (at 0 0 0))
			(property "Datasheet" "https://example.com/r_us.pdf" (at 0 0 0))))`
	if err := os.WriteFile(filepath.Join(dir, "Mixed.kicad_sym"), []byte(lib), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := newTestResolver(dir).Resolve("Mixed:R_US")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	text := def.Node.String()
	if strings.Contains(text, "extends") {
		t.Error("Expected derived symbol to be flattened")
	}
	if !strings.Contains(text, `(property "Value" "R_US"`) {
		t.Error("Expected child Value to override the parent")
	}
	if !strings.Contains(text, `(property "Datasheet" "https://example.com/r_us.pdf"`) {
		t.Error("Expected child-only property to be added")
	}
	if !strings.Contains(text, `(symbol "R_US_1_1"`) {
		t.Errorf("Expected unit renamed to R_US_1_1, got %s", text)
	}
	if strings.Join(def.Pins, ",") != "1,2" {
		t.Errorf("Expected pins inherited from parent, got %v", def.Pins)
	}
}

func TestEnsureCachedIdempotent(t *testing.T) {
	doc := schematic.New(schematic.Metadata{})
	r := newTestResolver(fixtureSymbols)

	if !r.EnsureCached(doc, "Device:C") {
		t.Fatal("First EnsureCached failed")
	}
	after1 := doc.Serialize()

	if !r.EnsureCached(doc, "Device:C") {
		t.Fatal("Second EnsureCached failed")
	}
	after2 := doc.Serialize()

	if after1 != after2 {
		t.Error("Second EnsureCached mutated the document")
	}

	libs, _ := doc.LibSymbols()
	if got := len(sexp.FindAllNodes(libs, "symbol")); got != 1 {
		t.Errorf("Expected 1 cached definition, got %d", got)
	}
	if _, ok := Cached(doc, "Device:C"); !ok {
		t.Error("Cached did not find Device:C")
	}
}

func TestEnsureCachedFailureLeavesDocument(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewResolver(Config{SearchPaths: []string{fixtureSymbols}}, zap.New(core))

	doc := schematic.New(schematic.Metadata{})
	before := doc.Serialize()

	if r.EnsureCached(doc, "Device:DoesNotExist") {
		t.Fatal("Expected EnsureCached to report failure")
	}
	if doc.Serialize() != before {
		t.Error("Failed EnsureCached modified the document")
	}
	if logs.Len() != 1 {
		t.Errorf("Expected one warning, got %d", logs.Len())
	}

	noLibs, err := schematic.ParseString(`(kicad_sch (version 20231120))`)
	if err != nil {
		t.Fatal(err)
	}
	if r.EnsureCached(noLibs, "Device:R") {
		t.Error("Expected failure without lib_symbols")
	}
}

func TestPinNumbersDeduplicates(t *testing.T) {
	r := newTestResolver(fixtureSymbols)
	def, err := r.Resolve("power:GND")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(def.Pins) != 1 || def.Pins[0] != "1" {
		t.Errorf("Expected single pin 1, got %v", def.Pins)
	}
}

func TestLibraries(t *testing.T) {
	libs := newTestResolver(fixtureSymbols).Libraries()
	if strings.Join(libs, ",") != "Device,power" {
		t.Errorf("Expected [Device power], got %v", libs)
	}
}
