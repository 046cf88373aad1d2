package editor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/wiring"
)

// AddWireRequest draws a wire between two points.
type AddWireRequest struct {
	Target
	StartX, StartY float64
	EndX, EndY     float64
}

// AddWire draws a wire segment.
func (e *Editor) AddWire(req AddWireRequest) (*Result, error) {
	start := sexp.Position{X: req.StartX, Y: req.StartY}
	end := sexp.Position{X: req.EndX, Y: req.EndY}
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		_, err := wiring.AddWire(doc, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("added wire",
		zap.String("file", path),
		zap.Float64s("from", []float64{start.X, start.Y}),
		zap.Float64s("to", []float64{end.X, end.Y}))
	return ok(fmt.Sprintf("Added wire from (%g, %g) to (%g, %g)", start.X, start.Y, end.X, end.Y), path), nil
}

// AddJunctionRequest places a junction dot.
type AddJunctionRequest struct {
	Target
	X, Y float64
}

// AddJunction places a junction dot.
func (e *Editor) AddJunction(req AddJunctionRequest) (*Result, error) {
	at := sexp.Position{X: req.X, Y: req.Y}
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		_, err := wiring.AddJunction(doc, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("added junction", zap.String("file", path))
	res := ok(fmt.Sprintf("Added junction at (%g, %g)", at.X, at.Y), path)
	res.Position = &Position{X: at.X, Y: at.Y}
	return res, nil
}

// AddLabelRequest places a net label.
type AddLabelRequest struct {
	Target
	Text      string
	X, Y      float64
	Rotation  float64
	LabelType string // local, global or hierarchical; "" means local
	Shape     string
}

// AddLabel places a net label.
func (e *Editor) AddLabel(req AddLabelRequest) (*Result, error) {
	kind, err := wiring.ParseLabelKind(req.LabelType)
	if err != nil {
		return nil, err
	}
	params := wiring.LabelParams{
		Text:     req.Text,
		Kind:     kind,
		Position: sexp.Position{X: req.X, Y: req.Y},
		Rotation: req.Rotation,
		Shape:    req.Shape,
	}
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		_, err := wiring.AddLabel(doc, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("added label",
		zap.String("file", path),
		zap.String("text", req.Text),
		zap.String("kind", string(kind)))
	res := ok(fmt.Sprintf("Added %s '%s' at (%g, %g)", kind, req.Text, req.X, req.Y), path)
	res.LabelType = string(kind)
	res.Position = &Position{X: req.X, Y: req.Y, Rotation: req.Rotation}
	return res, nil
}
