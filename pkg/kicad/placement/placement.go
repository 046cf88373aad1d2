// Package placement builds placed-symbol nodes and computes where they go.
package placement

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/library"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Field offsets above the anchor, in mm.
const (
	ReferenceOffsetY = -5.08
	ValueOffsetY     = -2.54
)

// DefaultDatasheet is what KiCad writes for "no datasheet".
const DefaultDatasheet = "~"

// Flags are the per-instance yes/no switches written on a new symbol.
type Flags struct {
	ExcludeFromSim   bool
	InBOM            bool
	OnBoard          bool
	DNP              bool
	FieldsAutoplaced bool
}

// DefaultFlags matches a symbol freshly placed in the schematic editor.
func DefaultFlags() Flags {
	return Flags{InBOM: true, OnBoard: true, FieldsAutoplaced: true}
}

// Params describe one symbol to place.
type Params struct {
	LibID     string
	Reference string
	Value     string
	Position  sexp.Position
	Rotation  float64
	Unit      int    // 0 means 1
	Footprint string
	Datasheet string // "" means "~"
	Flags     *Flags // nil means DefaultFlags()

	// ProjectUUID overrides discovery, so a batch shares one value even
	// when the document had none to begin with.
	ProjectUUID string
}

// Cacher copies a library definition into a document's lib_symbols.
type Cacher interface {
	EnsureCached(doc *schematic.Document, libID string) bool
}

// Placer builds symbol instances.
type Placer struct {
	libs   Cacher
	logger *zap.Logger
}

// NewPlacer creates a placer. libs may be nil, in which case instances
// are created from whatever is already cached in the document.
func NewPlacer(libs Cacher, logger *zap.Logger) *Placer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Placer{libs: libs, logger: logger}
}

// projectPathPattern matches the project uuid in an instance path
// such as (path "/0a1b2c3d-...").
var projectPathPattern = regexp.MustCompile(`/([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)

// ProjectUUID returns the project uuid recorded in the first placed
// symbol whose (instances ...) block carries one. The first match wins
// even if later symbols disagree.
func ProjectUUID(doc *schematic.Document) (string, bool) {
	for _, sym := range sexp.FindAllNodes(doc.Root(), schematic.TagSymbol) {
		instances, ok := sexp.FindNode(sym, "instances")
		if !ok {
			continue
		}
		if m := projectPathPattern.FindStringSubmatch(instances.String()); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ResolveProjectUUID returns the document's project uuid or a fresh one.
func ResolveProjectUUID(doc *schematic.Document) string {
	if id, ok := ProjectUUID(doc); ok {
		return id
	}
	return doc.NewUUID()
}

// CreateInstance builds a complete symbol node for p without inserting
// it. The library definition is cached first; when that fails the
// instance is still built, without pins.
func (p *Placer) CreateInstance(doc *schematic.Document, params Params) (*kicadsexp.List, error) {
	if _, _, err := library.SplitLibID(params.LibID); err != nil {
		return nil, err
	}
	if params.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", schematic.ErrInvalidArgument)
	}
	if !finite(params.Position.X) || !finite(params.Position.Y) || !finite(params.Rotation) {
		return nil, fmt.Errorf("%w: %s at (%v, %v) rotation %v is not finite",
			schematic.ErrInvalidArgument, params.Reference, params.Position.X, params.Position.Y, params.Rotation)
	}

	if p.libs != nil && !p.libs.EnsureCached(doc, params.LibID) {
		p.logger.Warn("could not cache library symbol, placing without pins",
			zap.String("lib_id", params.LibID),
			zap.String("reference", params.Reference))
	}

	projectUUID := params.ProjectUUID
	if projectUUID == "" {
		projectUUID = ResolveProjectUUID(doc)
	}

	var pins []string
	if def, ok := library.Cached(doc, params.LibID); ok {
		pins = library.PinNumbers(def)
	}

	unit := params.Unit
	if unit <= 0 {
		unit = 1
	}
	flags := DefaultFlags()
	if params.Flags != nil {
		flags = *params.Flags
	}
	datasheet := params.Datasheet
	if datasheet == "" {
		datasheet = DefaultDatasheet
	}

	x, y := params.Position.X, params.Position.Y
	at := func(dy float64) sexp.PositionAngle {
		return sexp.PositionAngle{Position: sexp.Position{X: x, Y: y + dy}}
	}

	var footprintJustify []string
	if params.Footprint != "" {
		footprintJustify = []string{"bottom"}
	}

	node := kicadsexp.NewList(schematic.TagSymbol,
		kicadsexp.NewList("lib_id", kicadsexp.String(params.LibID)),
		sexp.At(x, y, params.Rotation),
		kicadsexp.NewList("unit", kicadsexp.NewInt(unit)),
		sexp.YesNo("exclude_from_sim", flags.ExcludeFromSim),
		sexp.YesNo("in_bom", flags.InBOM),
		sexp.YesNo("on_board", flags.OnBoard),
		sexp.YesNo("dnp", flags.DNP),
		sexp.YesNo("fields_autoplaced", flags.FieldsAutoplaced),
		sexp.UUIDNode(doc.NewUUID()),
		sexp.PropertyNode(schematic.PropReference, params.Reference, at(ReferenceOffsetY), nil, false),
		sexp.PropertyNode(schematic.PropValue, params.Value, at(ValueOffsetY), nil, false),
		sexp.PropertyNode(schematic.PropFootprint, params.Footprint, at(0), footprintJustify, true),
		sexp.PropertyNode(schematic.PropDatasheet, datasheet, at(0), nil, true),
	)

	for _, num := range pins {
		node.Append(kicadsexp.NewList("pin", kicadsexp.String(num), sexp.UUIDNode(doc.NewUUID())))
	}

	node.Append(kicadsexp.NewList("instances",
		kicadsexp.NewList("project", kicadsexp.String(""),
			kicadsexp.NewList("path", kicadsexp.String("/"+projectUUID),
				kicadsexp.NewList("reference", kicadsexp.String(params.Reference)),
				kicadsexp.NewList("unit", kicadsexp.NewInt(unit)),
			),
		),
	))

	return node, nil
}

// Place builds the instance and inserts it at the canonical position.
func (p *Placer) Place(doc *schematic.Document, params Params) (*kicadsexp.List, error) {
	node, err := p.CreateInstance(doc, params)
	if err != nil {
		return nil, err
	}
	doc.InsertBeforeSheetInstances(node)
	p.logger.Info("placed symbol",
		zap.String("file", doc.Path()),
		zap.String("reference", params.Reference),
		zap.String("lib_id", params.LibID),
		zap.Float64("x", params.Position.X),
		zap.Float64("y", params.Position.Y))
	return node, nil
}
