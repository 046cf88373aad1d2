package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/export"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

// CreateSchematicRequest creates an empty schematic file.
type CreateSchematicRequest struct {
	ProjectName string
	Dir         string // "" means the current directory
	Metadata    schematic.Metadata
	Overwrite   bool
}

// CreateSchematic writes <Dir>/<ProjectName>.kicad_sch holding an empty
// schematic. An existing file is only replaced when Overwrite is set.
func (e *Editor) CreateSchematic(req CreateSchematicRequest) (*Result, error) {
	name := strings.TrimSuffix(req.ProjectName, ".kicad_sch")
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", schematic.ErrInvalidArgument)
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: project name %q must not contain a path separator", schematic.ErrInvalidArgument, name)
	}
	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name+".kicad_sch")

	if !req.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s already exists", schematic.ErrInvalidArgument, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", schematic.ErrIO, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", schematic.ErrIO, dir, err)
	}

	meta := req.Metadata
	if meta.Title == "" {
		meta.Title = name
	}
	if err := schematic.New(meta).Save(path); err != nil {
		return nil, err
	}
	e.logger.Info("created schematic", zap.String("file", path))
	return ok(fmt.Sprintf("Created schematic %s", name), path), nil
}

// Info loads a schematic and returns its summary.
func (e *Editor) Info(path string) (*schematic.Summary, error) {
	doc, err := e.load(path)
	if err != nil {
		return nil, err
	}
	return doc.Summary()
}

// ListLibraries lists the symbol libraries found on the search paths.
func (e *Editor) ListLibraries() *Result {
	libs := e.libs.Libraries()
	res := ok(fmt.Sprintf("Found %d libraries", len(libs)), "")
	res.Count = len(libs)
	res.Libraries = libs
	return res
}

// ExportRequest converts a schematic with kicad-cli.
type ExportRequest struct {
	FilePath   string
	Format     string
	OutputPath string // "" means next to the schematic
}

// Export converts a schematic to another format.
func (e *Editor) Export(ctx context.Context, req ExportRequest) (*Result, error) {
	if err := (Target{FilePath: req.FilePath}).check(); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	out, err := e.exporter.Export(ctx, req.FilePath, format, req.OutputPath)
	if err != nil {
		return nil, err
	}
	res := ok(fmt.Sprintf("Exported %s to %s", format, out), req.FilePath)
	res.Format = string(format)
	res.OutputPath = out
	return res, nil
}
