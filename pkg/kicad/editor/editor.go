// Package editor implements the request-level schematic operations. Every
// operation loads the file, applies its edit in memory and only then saves
// atomically, so a failed request never touches the file on disk.
package editor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/export"
	"github.com/OpenTraceLab/schedit/pkg/kicad/library"
	"github.com/OpenTraceLab/schedit/pkg/kicad/placement"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

// Error kinds reported in Result.ErrorKind.
const (
	KindParse           = "parse_error"
	KindNotFound        = "not_found"
	KindStructural      = "structural"
	KindIO              = "io"
	KindInvalidArgument = "invalid_argument"
	KindInternal        = "internal"
)

// KindOf classifies err into one of the error kinds.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, schematic.ErrParse):
		return KindParse
	case errors.Is(err, schematic.ErrNotFound):
		return KindNotFound
	case errors.Is(err, schematic.ErrStructure):
		return KindStructural
	case errors.Is(err, schematic.ErrIO):
		return KindIO
	case errors.Is(err, schematic.ErrInvalidArgument):
		return KindInvalidArgument
	}
	return KindInternal
}

// Layout holds the placement defaults applied when a request leaves a
// value unset.
type Layout struct {
	GridSize         float64
	RelativeDistance float64
	GroupSpacing     float64
	GroupColumns     int
	GroupStartX      float64
	GroupStartY      float64
}

// DefaultLayout returns the stock placement defaults.
func DefaultLayout() Layout {
	return Layout{
		GridSize:         placement.DefaultGridSize,
		RelativeDistance: placement.DefaultRelativeDistance,
		GroupSpacing:     placement.DefaultGroupSpacing,
		GroupColumns:     placement.DefaultGroupColumns,
		GroupStartX:      placement.DefaultGroupStart,
		GroupStartY:      placement.DefaultGroupStart,
	}
}

// Options configure an Editor.
type Options struct {
	Library  library.Config
	Layout   Layout
	KiCadCLI string
}

// Editor runs schematic operations.
type Editor struct {
	libs     *library.Resolver
	placer   *placement.Placer
	exporter *export.Exporter
	deleters []DeletionStrategy
	layout   Layout
	logger   *zap.Logger
}

// New creates an editor. A zero Layout selects DefaultLayout.
func New(opts Options, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	layout := opts.Layout
	if layout == (Layout{}) {
		layout = DefaultLayout()
	}
	libs := library.NewResolver(opts.Library, logger.Named("library"))
	return &Editor{
		libs:     libs,
		placer:   placement.NewPlacer(libs, logger.Named("placement")),
		exporter: export.NewExporter(opts.KiCadCLI, logger.Named("export")),
		deleters: []DeletionStrategy{TreeStrategy{}, TextStrategy{}},
		layout:   layout,
		logger:   logger,
	}
}

// Layout returns the defaults in effect.
func (e *Editor) Layout() Layout {
	return e.layout
}

// Target names the file an operation reads and, when OutputPath is empty,
// writes back.
type Target struct {
	FilePath   string
	OutputPath string
}

func (t Target) output() string {
	if t.OutputPath != "" {
		return t.OutputPath
	}
	return t.FilePath
}

func (t Target) check() error {
	if t.FilePath == "" {
		return fmt.Errorf("%w: file_path is required", schematic.ErrInvalidArgument)
	}
	return nil
}

// edit runs one load, mutate, validate and save cycle and returns the path
// written.
func (e *Editor) edit(t Target, mutate func(doc *schematic.Document) error) (string, error) {
	if err := t.check(); err != nil {
		return "", err
	}
	doc, err := schematic.Load(t.FilePath)
	if err != nil {
		return "", err
	}
	if err := mutate(doc); err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", fmt.Errorf("edit left %s invalid: %w", t.FilePath, err)
	}
	out := t.output()
	if err := doc.Save(out); err != nil {
		return "", err
	}
	return out, nil
}

// load reads a schematic for a read-only operation.
func (e *Editor) load(path string) (*schematic.Document, error) {
	if err := (Target{FilePath: path}).check(); err != nil {
		return nil, err
	}
	return schematic.Load(path)
}
