package placement

import (
	"fmt"
	"math"
	"strings"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
)

// GridWindow is the number of cells searched along each axis.
const GridWindow = 20

// Layout defaults (mm)
const (
	DefaultGridSize         = 50.8
	DefaultRelativeDistance = 25.4
	DefaultGroupSpacing     = 25.4
	DefaultGroupColumns     = 5
	DefaultGroupStart       = 100.0
)

type cell struct{ col, row int }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// GridNextFree returns the first cell, scanning row-major from
// (originCol, originRow) through a GridWindow×GridWindow window, that no
// placed symbol occupies. A symbol occupies the cell its anchor rounds to
// (halves round to even). When the whole window is taken the origin cell
// is returned with free set to false.
func GridNextFree(doc *schematic.Document, originCol, originRow int, cellSize float64) (pos sexp.Position, free bool, err error) {
	if cellSize <= 0 || !finite(cellSize) {
		return sexp.Position{}, false, fmt.Errorf("%w: grid size must be positive, got %v", schematic.ErrInvalidArgument, cellSize)
	}

	occupied := make(map[cell]bool)
	for _, inst := range doc.Instances() {
		occupied[cell{
			col: int(math.RoundToEven(inst.Position.X / cellSize)),
			row: int(math.RoundToEven(inst.Position.Y / cellSize)),
		}] = true
	}

	for row := originRow; row < originRow+GridWindow; row++ {
		for col := originCol; col < originCol+GridWindow; col++ {
			if !occupied[cell{col: col, row: row}] {
				return sexp.Position{X: float64(col) * cellSize, Y: float64(row) * cellSize}, true, nil
			}
		}
	}

	return sexp.Position{X: float64(originCol) * cellSize, Y: float64(originRow) * cellSize}, false, nil
}

// Direction names a compass offset from an anchor symbol.
type Direction string

const (
	Right      Direction = "right"
	Left       Direction = "left"
	Below      Direction = "below"
	Above      Direction = "above"
	BelowRight Direction = "below-right"
	BelowLeft  Direction = "below-left"
	AboveRight Direction = "above-right"
	AboveLeft  Direction = "above-left"
)

// Unit vectors in schematic space (Y grows downwards). Diagonals are not
// normalised: both axes move by the full distance.
var directionVectors = map[Direction][2]float64{
	Right:      {1, 0},
	Left:       {-1, 0},
	Below:      {0, 1},
	Above:      {0, -1},
	BelowRight: {1, 1},
	BelowLeft:  {-1, 1},
	AboveRight: {1, -1},
	AboveLeft:  {-1, -1},
}

// Directions lists the accepted direction names.
func Directions() []string {
	return []string{
		string(Right), string(Left), string(Below), string(Above),
		string(BelowRight), string(BelowLeft), string(AboveRight), string(AboveLeft),
	}
}

// ParseDirection accepts the direction names case-insensitively, with
// "_" allowed in place of "-".
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := directionVectors[d]; !ok {
		return "", fmt.Errorf("%w: unknown direction %q (want one of %s)",
			schematic.ErrInvalidArgument, s, strings.Join(Directions(), ", "))
	}
	return d, nil
}

// Offset returns the position distance away from from in direction d.
func Offset(from sexp.Position, d Direction, distance float64) (sexp.Position, error) {
	v, ok := directionVectors[d]
	if !ok {
		return sexp.Position{}, fmt.Errorf("%w: unknown direction %q", schematic.ErrInvalidArgument, d)
	}
	if !finite(distance) {
		return sexp.Position{}, fmt.Errorf("%w: distance %v is not finite", schematic.ErrInvalidArgument, distance)
	}
	return sexp.Position{X: from.X + v[0]*distance, Y: from.Y + v[1]*distance}, nil
}

// RelativePosition returns the position distance away from the symbol
// anchorRef in direction d.
func RelativePosition(doc *schematic.Document, anchorRef string, d Direction, distance float64) (sexp.Position, error) {
	anchor, err := doc.FindInstance(anchorRef)
	if err != nil {
		return sexp.Position{}, fmt.Errorf("anchor: %w", err)
	}
	return Offset(anchor.Position.Position, d, distance)
}

// GroupLayout assigns count positions row-major on a grid starting at
// start: index i goes to column i mod columns, row i div columns. The
// document is not consulted.
func GroupLayout(count int, start sexp.Position, spacing float64, columns int) ([]sexp.Position, error) {
	if columns < 1 {
		return nil, fmt.Errorf("%w: columns must be at least 1, got %d", schematic.ErrInvalidArgument, columns)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative component count %d", schematic.ErrInvalidArgument, count)
	}
	if !finite(spacing) || !finite(start.X) || !finite(start.Y) {
		return nil, fmt.Errorf("%w: group start (%v, %v) spacing %v is not finite",
			schematic.ErrInvalidArgument, start.X, start.Y, spacing)
	}

	out := make([]sexp.Position, count)
	for i := range out {
		col := i % columns
		row := i / columns
		out[i] = sexp.Position{
			X: start.X + float64(col)*spacing,
			Y: start.Y + float64(row)*spacing,
		}
	}
	return out, nil
}
