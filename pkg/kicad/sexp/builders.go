package sexp

import (
	"math"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Node builders for the constructs the editor writes. They produce the
// same shapes KiCad's own schematic editor emits.

// Coord builds a coordinate number. KiCad keeps 1e-4 mm resolution, so
// arithmetic noise such as 44.919999999999995 is rounded away.
func Coord(v float64) kicadsexp.Number {
	return kicadsexp.NewNumber(math.Round(v*1e4) / 1e4)
}

// At builds (at X Y ROT).
func At(x, y, rotation float64) *kicadsexp.List {
	return kicadsexp.NewList("at", Coord(x), Coord(y), Coord(rotation))
}

// XY builds (xy X Y).
func XY(x, y float64) *kicadsexp.List {
	return kicadsexp.NewList("xy", Coord(x), Coord(y))
}

// YesNo builds (key yes) or (key no).
func YesNo(key string, v bool) *kicadsexp.List {
	if v {
		return kicadsexp.NewList(key, kicadsexp.Symbol("yes"))
	}
	return kicadsexp.NewList(key, kicadsexp.Symbol("no"))
}

// UUIDNode builds (uuid "id").
func UUIDNode(id string) *kicadsexp.List {
	return kicadsexp.NewList("uuid", kicadsexp.String(id))
}

// FontNode builds (font (size S S)).
func FontNode(size float64) *kicadsexp.List {
	return kicadsexp.NewList("font",
		kicadsexp.NewList("size", kicadsexp.NewNumber(size), kicadsexp.NewNumber(size)))
}

// EffectsNode builds (effects (font ...) [(justify ...)] [(hide yes)]).
func EffectsNode(justify []string, hide bool) *kicadsexp.List {
	effects := kicadsexp.NewList("effects", FontNode(DefaultFontSize))
	if len(justify) > 0 {
		j := kicadsexp.NewList("justify")
		for _, side := range justify {
			j.Append(kicadsexp.Symbol(side))
		}
		effects.Append(j)
	}
	if hide {
		effects.Append(YesNo("hide", true))
	}
	return effects
}

// PropertyNode builds a symbol field:
// (property "key" "value" (at X Y ROT) (effects ...)).
func PropertyNode(key, value string, at PositionAngle, justify []string, hide bool) *kicadsexp.List {
	return kicadsexp.NewList("property",
		kicadsexp.String(key),
		kicadsexp.String(value),
		At(at.X, at.Y, float64(at.Angle)),
		EffectsNode(justify, hide),
	)
}

// DefaultStroke builds (stroke (width 0) (type default)).
func DefaultStroke() *kicadsexp.List {
	return kicadsexp.NewList("stroke",
		kicadsexp.NewList("width", kicadsexp.NewInt(0)),
		kicadsexp.NewList("type", kicadsexp.Symbol("default")),
	)
}
