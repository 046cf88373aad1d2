package schematic

import (
	"errors"
	"strings"
	"testing"
)

func TestInstances(t *testing.T) {
	doc, err := Load(basicFixture)
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	insts := doc.Instances()
	if len(insts) != 3 {
		t.Fatalf("Expected 3 instances (templates excluded), got %d", len(insts))
	}

	r1 := insts[0]
	if r1.Reference() != "R1" || r1.Value() != "10k" || r1.LibID != "Device:R" {
		t.Errorf("Unexpected R1 %+v", r1)
	}
	if r1.Position.X != 101.6 || r1.Position.Y != 76.2 {
		t.Errorf("Unexpected position %+v", r1.Position)
	}
	if !r1.Flags.InBOM || !r1.Flags.OnBoard || r1.Flags.DNP || r1.Flags.ExcludeFromSim {
		t.Errorf("Unexpected flags %+v", r1.Flags)
	}

	names := r1.Properties.Names()
	want := []string{PropReference, PropValue, PropFootprint, PropDatasheet}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected property order %v, got %v", want, names)
	}
	fp, ok := r1.Properties.Get(PropFootprint)
	if !ok || !fp.Hidden {
		t.Errorf("Expected hidden footprint, got %+v", fp)
	}
	if len(r1.Pins) != 2 || r1.Pins[0].Number != "1" {
		t.Errorf("Unexpected pins %+v", r1.Pins)
	}
}

func TestFindInstance(t *testing.T) {
	doc, err := Load(basicFixture)
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	c1, err := doc.FindInstance("C1")
	if err != nil {
		t.Fatalf("FindInstance(C1) failed: %v", err)
	}
	if c1.LibID != "Device:C" {
		t.Errorf("Expected Device:C, got %s", c1.LibID)
	}

	if _, err := doc.FindInstance("U9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetProperty(t *testing.T) {
	doc, err := Load(basicFixture)
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}
	r2, err := doc.FindInstance("R2")
	if err != nil {
		t.Fatal(err)
	}

	if err := r2.SetProperty(PropValue, "22k"); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if err := r2.SetProperty(PropReference, "R20"); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if err := r2.SetProperty("MPN", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for absent property, got %v", err)
	}

	// re-read from the tree
	again, err := doc.FindInstance("R20")
	if err != nil {
		t.Fatalf("Renamed instance not found: %v", err)
	}
	if again.Value() != "22k" {
		t.Errorf("Expected value 22k, got %s", again.Value())
	}
	if !strings.Contains(again.Node().String(), `(reference "R20")`) {
		t.Error("Expected instances path reference to follow the rename")
	}
}

func TestRemoveInstances(t *testing.T) {
	doc, err := Load(basicFixture)
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	if n := doc.RemoveInstances([]string{"C1", "X9"}); n != 1 {
		t.Fatalf("Expected 1 removed, got %d", n)
	}

	if _, err := doc.FindInstance("C1"); !errors.Is(err, ErrNotFound) {
		t.Error("C1 still present")
	}
	if len(doc.Instances()) != 2 {
		t.Errorf("Expected R1 and R2 to remain, got %d", len(doc.Instances()))
	}

	sum, err := doc.Summary()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range sum.LibSymbols {
		if id == "Device:C" {
			found = true
		}
	}
	if !found {
		t.Error("Library template Device:C must survive instance deletion")
	}
}

func TestRemoveWiring(t *testing.T) {
	doc, err := Load(basicFixture)
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	if n := doc.RemoveWiring(); n != 3 {
		t.Errorf("Expected wire, junction and label removed (3), got %d", n)
	}
	sum, err := doc.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Wires)+len(sum.Junctions)+len(sum.Labels) != 0 {
		t.Errorf("Wiring left behind: %+v", sum)
	}
	if len(sum.Symbols) != 3 {
		t.Errorf("Expected symbols untouched, got %d", len(sum.Symbols))
	}
}
