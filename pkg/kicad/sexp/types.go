// Package sexp provides shared node helpers for KiCad schematic and symbol
// library files: typed extraction from parsed nodes and builders for the
// nodes the editor writes back.
package sexp

import "math"

// Default geometry used by KiCad's schematic editor (millimetres).
const (
	DefaultFontSize = 1.27
	GridPitch       = 2.54
)

// Position represents a 2D coordinate in schematic space.
// Schematic files store millimetres directly, Y grows downwards.
type Position struct {
	X float64
	Y float64
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions
type Size struct {
	Width  float64 // Width in mm
	Height float64 // Height in mm
}

// Color represents RGBA color
type Color struct {
	R, G, B, A float64 // Color components (0.0-1.0)
}

// Stroke defines line appearance
type Stroke struct {
	Width float64 // Line width in mm, 0 means the editor default
	Type  string  // default, solid, dash, dot...
	Color Color
}

// BoundingBox represents a rectangular boundary
type BoundingBox struct {
	Min Position // Minimum (top-left) corner
	Max Position // Maximum (bottom-right) corner
}

// NewBoundingBox creates an empty bounding box that any Expand call will
// replace.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: math.Inf(1), Y: math.Inf(1)},
		Max: Position{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// IsEmpty reports whether nothing has been added to the box.
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand grows the box to include pos.
func (bb *BoundingBox) Expand(pos Position) {
	bb.Min.X = math.Min(bb.Min.X, pos.X)
	bb.Min.Y = math.Min(bb.Min.Y, pos.Y)
	bb.Max.X = math.Max(bb.Max.X, pos.X)
	bb.Max.Y = math.Max(bb.Max.Y, pos.Y)
}

func (bb BoundingBox) Width() float64 {
	if bb.IsEmpty() {
		return 0
	}
	return bb.Max.X - bb.Min.X
}

func (bb BoundingBox) Height() float64 {
	if bb.IsEmpty() {
		return 0
	}
	return bb.Max.Y - bb.Min.Y
}

// UUID represents a unique identifier (used in KiCad v6+ files)
type UUID string

// Effects represents text effects (font, justification, visibility)
type Effects struct {
	Font    Font
	Justify Justify
	Hide    bool
}

// Font represents font properties
type Font struct {
	Size   Size
	Bold   bool
	Italic bool
}

// Justify represents text justification
type Justify struct {
	Horizontal string // left, center, right
	Vertical   string // top, center, bottom
	Mirror     bool
}

// Property represents a key-value property attached to a symbol.
type Property struct {
	Key      string
	Value    string
	Position PositionAngle
	Effects  Effects
}
