package schematic

import (
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type UUID = sexp.UUID

// Summary is a read-only overview of a schematic, used by listing and
// info commands.
type Summary struct {
	Version        int
	Generator      string
	GeneratorVer   string
	UUID           UUID
	Paper          string
	TitleBlock     TitleBlock
	LibSymbols     []string // cached library ids
	Symbols        []SymbolInfo
	Wires          []Wire
	Junctions      []Junction
	Labels         []Label
	SheetInstances []SheetInstance
}

// TitleBlock contains schematic title block information
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
	Comments [4]string // comment 1 to 4
}

// CommentLines returns the comments up to the last one that is set.
func (tb TitleBlock) CommentLines() []string {
	n := len(tb.Comments)
	for n > 0 && tb.Comments[n-1] == "" {
		n--
	}
	if n == 0 {
		return nil
	}
	return append([]string(nil), tb.Comments[:n]...)
}

// SymbolInfo describes a placed symbol.
type SymbolInfo struct {
	Reference string
	Value     string
	LibID     string
	Footprint string
	Position  PositionAngle
	Pins      int
	UUID      UUID
}

// Wire represents a wire connection
type Wire struct {
	Points []Position  // Wire points (at least 2)
	Stroke sexp.Stroke // Wire stroke style
	UUID   UUID        // Wire UUID
}

// Junction represents a wire junction
type Junction struct {
	Position Position
	Diameter float64
	UUID     UUID
}

// LabelKind selects between the three label constructs.
type LabelKind string

const (
	LabelLocal        LabelKind = "label"
	LabelGlobal       LabelKind = "global_label"
	LabelHierarchical LabelKind = "hierarchical_label"
)

// Label represents a local, global or hierarchical label
type Label struct {
	Kind     LabelKind
	Text     string
	Shape    string // global and hierarchical labels only
	Position Position
	Angle    Angle
	UUID     UUID
}

// SheetInstance represents a sheet instance path
type SheetInstance struct {
	Path string // Instance path
	Page string // Page number
}

// References returns all reference designators in document order
func (s *Summary) References() []string {
	refs := make([]string, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		if sym.Reference != "" {
			refs = append(refs, sym.Reference)
		}
	}
	return refs
}

// LabelNames returns all distinct label texts (local + global + hierarchical)
func (s *Summary) LabelNames() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, l := range s.Labels {
		if !seen[l.Text] {
			seen[l.Text] = true
			labels = append(labels, l.Text)
		}
	}
	return labels
}

// BoundingBox calculates the extent of all anchored items in the schematic
func (s *Summary) BoundingBox() sexp.BoundingBox {
	bbox := sexp.NewBoundingBox()
	for _, wire := range s.Wires {
		for _, pt := range wire.Points {
			bbox.Expand(pt)
		}
	}
	for _, sym := range s.Symbols {
		bbox.Expand(sym.Position.Position)
	}
	for _, label := range s.Labels {
		bbox.Expand(label.Position)
	}
	for _, junc := range s.Junctions {
		bbox.Expand(junc.Position)
	}
	return bbox
}
