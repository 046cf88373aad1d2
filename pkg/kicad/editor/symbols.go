package editor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/placement"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Component is a symbol to place, without its position.
type Component struct {
	LibID     string  `yaml:"lib_id" json:"lib_id"`
	Reference string  `yaml:"reference" json:"reference"`
	Value     string  `yaml:"value" json:"value"`
	Rotation  float64 `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Unit      int     `yaml:"unit,omitempty" json:"unit,omitempty"`
	Footprint string  `yaml:"footprint,omitempty" json:"footprint,omitempty"`
	Datasheet string  `yaml:"datasheet,omitempty" json:"datasheet,omitempty"`
}

func (c Component) check() error {
	switch {
	case c.LibID == "":
		return fmt.Errorf("%w: lib_id is required", schematic.ErrInvalidArgument)
	case c.Reference == "":
		return fmt.Errorf("%w: reference is required", schematic.ErrInvalidArgument)
	case c.Value == "":
		return fmt.Errorf("%w: value is required for %s", schematic.ErrInvalidArgument, c.Reference)
	}
	return nil
}

func (c Component) params(at sexp.Position) placement.Params {
	return placement.Params{
		LibID:     c.LibID,
		Reference: c.Reference,
		Value:     c.Value,
		Position:  at,
		Rotation:  c.Rotation,
		Unit:      c.Unit,
		Footprint: c.Footprint,
		Datasheet: c.Datasheet,
	}
}

func (e *Editor) placed(c Component, at sexp.Position, path string) *Result {
	e.logger.Info("added symbol",
		zap.String("file", path),
		zap.String("reference", c.Reference),
		zap.String("lib_id", c.LibID))
	res := ok(fmt.Sprintf("Added %s (%s) at (%g, %g)", c.Reference, c.LibID, at.X, at.Y), path)
	res.Reference = c.Reference
	res.LibID = c.LibID
	res.Position = &Position{X: at.X, Y: at.Y, Rotation: c.Rotation}
	return res
}

// AddSymbolRequest places a symbol at exact coordinates.
type AddSymbolRequest struct {
	Target
	Component
	X, Y float64
}

// AddSymbol places a symbol at exact coordinates.
func (e *Editor) AddSymbol(req AddSymbolRequest) (*Result, error) {
	if err := req.Component.check(); err != nil {
		return nil, err
	}
	at := sexp.Position{X: req.X, Y: req.Y}
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		_, err := e.placer.Place(doc, req.Component.params(at))
		return err
	})
	if err != nil {
		return nil, err
	}
	return e.placed(req.Component, at, path), nil
}

// AddSymbolAutoRequest places a symbol in the first free grid cell.
type AddSymbolAutoRequest struct {
	Target
	Component
	GridX, GridY int
	GridSize     float64 // 0 means the layout default
}

// AddSymbolAuto places a symbol in the first free grid cell scanning from
// (GridX, GridY). When the search window is full the symbol lands on the
// origin cell.
func (e *Editor) AddSymbolAuto(req AddSymbolAutoRequest) (*Result, error) {
	if err := req.Component.check(); err != nil {
		return nil, err
	}
	size := req.GridSize
	if size == 0 {
		size = e.layout.GridSize
	}

	var at sexp.Position
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		pos, free, err := placement.GridNextFree(doc, req.GridX, req.GridY, size)
		if err != nil {
			return err
		}
		if !free {
			e.logger.Warn("grid search window full, placing on origin cell",
				zap.String("file", req.FilePath),
				zap.String("reference", req.Reference),
				zap.Int("grid_x", req.GridX),
				zap.Int("grid_y", req.GridY))
		}
		at = pos
		_, err = e.placer.Place(doc, req.Component.params(at))
		return err
	})
	if err != nil {
		return nil, err
	}
	res := e.placed(req.Component, at, path)
	res.Message = fmt.Sprintf("Added %s (%s) with auto positioning", req.Reference, req.LibID)
	return res, nil
}

// AddSymbolRelativeRequest places a symbol next to an existing one.
type AddSymbolRelativeRequest struct {
	Target
	Component
	AnchorRef string
	Direction string  // "" means right
	Distance  float64 // 0 means the layout default
}

// AddSymbolRelative places a symbol Distance away from AnchorRef.
func (e *Editor) AddSymbolRelative(req AddSymbolRelativeRequest) (*Result, error) {
	if err := req.Component.check(); err != nil {
		return nil, err
	}
	if req.AnchorRef == "" {
		return nil, fmt.Errorf("%w: anchor_ref is required", schematic.ErrInvalidArgument)
	}
	dir := placement.Right
	if req.Direction != "" {
		d, err := placement.ParseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		dir = d
	}
	distance := req.Distance
	if distance == 0 {
		distance = e.layout.RelativeDistance
	}

	var at sexp.Position
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		pos, err := placement.RelativePosition(doc, req.AnchorRef, dir, distance)
		if err != nil {
			return err
		}
		at = pos
		_, err = e.placer.Place(doc, req.Component.params(at))
		return err
	})
	if err != nil {
		return nil, err
	}
	res := e.placed(req.Component, at, path)
	res.Message = fmt.Sprintf("Added %s (%s) %s of %s", req.Reference, req.LibID, dir, req.AnchorRef)
	res.RelativeTo = req.AnchorRef
	res.Direction = string(dir)
	return res, nil
}

// AddSymbolGroupRequest places several symbols on a grid.
type AddSymbolGroupRequest struct {
	Target
	Components     []Component
	StartX, StartY float64
	Spacing        float64 // 0 means the layout default
	Columns        int     // 0 means the layout default
}

// AddSymbolGroup lays out Components row-major from (StartX, StartY). All
// nodes are built before any is inserted, so one bad component fails the
// whole group.
func (e *Editor) AddSymbolGroup(req AddSymbolGroupRequest) (*Result, error) {
	if len(req.Components) == 0 {
		return nil, fmt.Errorf("%w: components are required", schematic.ErrInvalidArgument)
	}
	for _, c := range req.Components {
		if err := c.check(); err != nil {
			return nil, err
		}
	}
	spacing := req.Spacing
	if spacing == 0 {
		spacing = e.layout.GroupSpacing
	}
	columns := req.Columns
	if columns == 0 {
		columns = e.layout.GroupColumns
	}
	positions, err := placement.GroupLayout(len(req.Components), sexp.Position{X: req.StartX, Y: req.StartY}, spacing, columns)
	if err != nil {
		return nil, err
	}

	refs := make([]string, len(req.Components))
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		project := placement.ResolveProjectUUID(doc)
		nodes := make([]*kicadsexp.List, 0, len(req.Components))
		for i, c := range req.Components {
			params := c.params(positions[i])
			params.ProjectUUID = project
			node, err := e.placer.CreateInstance(doc, params)
			if err != nil {
				return fmt.Errorf("component %d (%s): %w", i, c.Reference, err)
			}
			nodes = append(nodes, node)
			refs[i] = c.Reference
		}
		doc.InsertBeforeSheetInstances(nodes...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("added symbol group",
		zap.String("file", path),
		zap.Strings("references", refs))
	res := ok(fmt.Sprintf("Added %d components in group", len(refs)), path)
	res.Count = len(refs)
	res.References = refs
	return res, nil
}

// ListSymbols lists the placed symbols of a schematic.
func (e *Editor) ListSymbols(path string) (*Result, error) {
	doc, err := e.load(path)
	if err != nil {
		return nil, err
	}
	insts := doc.Instances()
	entries := make([]SymbolEntry, 0, len(insts))
	for _, inst := range insts {
		entries = append(entries, SymbolEntry{
			Reference: inst.Reference(),
			Value:     inst.Value(),
			LibID:     inst.LibID,
			Footprint: inst.Properties.Value(schematic.PropFootprint),
			Position:  positionOf(inst),
		})
	}
	res := ok(fmt.Sprintf("Found %d symbols", len(entries)), path)
	res.Count = len(entries)
	res.Symbols = entries
	return res, nil
}

func positionOf(inst *schematic.Instance) Position {
	return Position{X: inst.Position.X, Y: inst.Position.Y, Rotation: float64(inst.Position.Angle)}
}

// SymbolProperties returns every property of one symbol.
func (e *Editor) SymbolProperties(path, reference string) (*Result, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", schematic.ErrInvalidArgument)
	}
	doc, err := e.load(path)
	if err != nil {
		return nil, err
	}
	inst, err := doc.FindInstance(reference)
	if err != nil {
		return nil, err
	}
	pos := positionOf(inst)
	res := ok(fmt.Sprintf("Found %s", reference), path)
	res.Reference = reference
	res.LibID = inst.LibID
	res.Properties = inst.Properties.Map()
	res.Position = &pos
	return res, nil
}

// UpdatePropertyRequest changes one property of a placed symbol.
type UpdatePropertyRequest struct {
	Target
	Reference string
	Property  string
	Value     string
}

// UpdateProperty sets an existing property. Renaming the Reference
// property also renames the symbol's instance path entries.
func (e *Editor) UpdateProperty(req UpdatePropertyRequest) (*Result, error) {
	switch {
	case req.Reference == "":
		return nil, fmt.Errorf("%w: reference is required", schematic.ErrInvalidArgument)
	case req.Property == "":
		return nil, fmt.Errorf("%w: property name is required", schematic.ErrInvalidArgument)
	}
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		inst, err := doc.FindInstance(req.Reference)
		if err != nil {
			return err
		}
		return inst.SetProperty(req.Property, req.Value)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("updated symbol property",
		zap.String("file", path),
		zap.String("reference", req.Reference),
		zap.String("property", req.Property))
	res := ok(fmt.Sprintf("Updated %s of %s to %q", req.Property, req.Reference, req.Value), path)
	res.Reference = req.Reference
	return res, nil
}
