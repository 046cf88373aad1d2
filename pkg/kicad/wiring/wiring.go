// Package wiring inserts the graphical connection primitives of a
// schematic: wires, junctions and net labels. Nodes are built in the
// layout KiCad's schematic editor writes and are placed at the document's
// canonical insertion point.
package wiring

import (
	"fmt"
	"math"
	"strings"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Label shapes accepted on global and hierarchical labels.
const (
	ShapeInput         = "input"
	ShapeOutput        = "output"
	ShapeBidirectional = "bidirectional"
	ShapeTriState      = "tri_state"
	ShapePassive       = "passive"
)

// DefaultShape is used when a global or hierarchical label has none.
const DefaultShape = ShapeBidirectional

var shapes = map[string]bool{
	ShapeInput:         true,
	ShapeOutput:        true,
	ShapeBidirectional: true,
	ShapeTriState:      true,
	ShapePassive:       true,
}

// ParseLabelKind accepts "local", "global" and "hierarchical" as well as
// the node tags themselves. The empty string means a local label.
func ParseLabelKind(s string) (schematic.LabelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local", string(schematic.LabelLocal):
		return schematic.LabelLocal, nil
	case "global", string(schematic.LabelGlobal):
		return schematic.LabelGlobal, nil
	case "hierarchical", "hier", string(schematic.LabelHierarchical):
		return schematic.LabelHierarchical, nil
	}
	return "", fmt.Errorf("%w: unknown label type %q (want local, global or hierarchical)", schematic.ErrInvalidArgument, s)
}

func checkPoint(what string, p sexp.Position) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("%w: %s (%v, %v) is not a finite coordinate", schematic.ErrInvalidArgument, what, p.X, p.Y)
	}
	return nil
}

// WireNode builds (wire (pts (xy ..) (xy ..)) (stroke ..) (uuid ..)).
func WireNode(start, end sexp.Position, id string) *kicadsexp.List {
	return kicadsexp.NewList("wire",
		kicadsexp.NewList("pts",
			sexp.XY(start.X, start.Y),
			sexp.XY(end.X, end.Y),
		),
		sexp.DefaultStroke(),
		sexp.UUIDNode(id),
	)
}

// AddWire inserts a two-point wire from start to end.
func AddWire(doc *schematic.Document, start, end sexp.Position) (*kicadsexp.List, error) {
	if err := checkPoint("start", start); err != nil {
		return nil, err
	}
	if err := checkPoint("end", end); err != nil {
		return nil, err
	}
	node := WireNode(start, end, doc.NewUUID())
	doc.InsertBeforeSheetInstances(node)
	return node, nil
}

// JunctionNode builds (junction (at X Y) (diameter 0) (color 0 0 0 0) (uuid ..)).
func JunctionNode(at sexp.Position, id string) *kicadsexp.List {
	return kicadsexp.NewList("junction",
		kicadsexp.NewList("at", sexp.Coord(at.X), sexp.Coord(at.Y)),
		kicadsexp.NewList("diameter", kicadsexp.NewInt(0)),
		kicadsexp.NewList("color",
			kicadsexp.NewInt(0), kicadsexp.NewInt(0), kicadsexp.NewInt(0), kicadsexp.NewInt(0)),
		sexp.UUIDNode(id),
	)
}

// AddJunction inserts a junction dot at the given point.
func AddJunction(doc *schematic.Document, at sexp.Position) (*kicadsexp.List, error) {
	if err := checkPoint("junction", at); err != nil {
		return nil, err
	}
	node := JunctionNode(at, doc.NewUUID())
	doc.InsertBeforeSheetInstances(node)
	return node, nil
}

// LabelParams describe a label to insert.
type LabelParams struct {
	Text     string
	Kind     schematic.LabelKind // "" means local
	Position sexp.Position
	Rotation float64
	Shape    string // global and hierarchical only; "" means DefaultShape
}

// LabelNode builds a label node. Local labels have no shape.
func LabelNode(p LabelParams, id string) (*kicadsexp.List, error) {
	kind := p.Kind
	if kind == "" {
		kind = schematic.LabelLocal
	}
	if _, err := ParseLabelKind(string(kind)); err != nil {
		return nil, err
	}
	if p.Text == "" {
		return nil, fmt.Errorf("%w: label text is required", schematic.ErrInvalidArgument)
	}

	node := kicadsexp.NewList(string(kind), kicadsexp.String(p.Text))
	if kind != schematic.LabelLocal {
		shape := p.Shape
		if shape == "" {
			shape = DefaultShape
		}
		if !shapes[shape] {
			return nil, fmt.Errorf("%w: unknown label shape %q", schematic.ErrInvalidArgument, shape)
		}
		node.Append(kicadsexp.NewList("shape", kicadsexp.Symbol(shape)))
	}
	node.Append(
		sexp.At(p.Position.X, p.Position.Y, p.Rotation),
		sexp.YesNo("fields_autoplaced", true),
		sexp.EffectsNode([]string{"left", "bottom"}, false),
		sexp.UUIDNode(id),
	)
	return node, nil
}

// AddLabel inserts a net label.
func AddLabel(doc *schematic.Document, p LabelParams) (*kicadsexp.List, error) {
	if err := checkPoint("label", p.Position); err != nil {
		return nil, err
	}
	node, err := LabelNode(p, doc.NewUUID())
	if err != nil {
		return nil, err
	}
	doc.InsertBeforeSheetInstances(node)
	return node, nil
}
