// Package export converts schematics to other formats by running KiCad's
// command line tool out of process.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

// DefaultCLI is the tool looked up on PATH when none is configured.
const DefaultCLI = "kicad-cli"

// DefaultTimeout bounds one export run.
const DefaultTimeout = 2 * time.Minute

// Format is an export target.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatSVG     Format = "svg"
	FormatNetlist Format = "netlist"
	FormatBOM     Format = "bom"
)

// extensions used when no output path is given. SVG export writes one file
// per sheet into a directory.
var extensions = map[Format]string{
	FormatPDF:     ".pdf",
	FormatSVG:     "",
	FormatNetlist: ".net",
	FormatBOM:     ".csv",
}

// Formats lists the supported formats.
func Formats() []string {
	return []string{string(FormatPDF), string(FormatSVG), string(FormatNetlist), string(FormatBOM)}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := extensions[f]; !ok {
		return "", fmt.Errorf("%w: unsupported export format %q (want one of %s)",
			schematic.ErrInvalidArgument, s, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// DefaultOutput derives an output path next to the schematic.
func DefaultOutput(schPath string, f Format) string {
	base := strings.TrimSuffix(schPath, filepath.Ext(schPath))
	if f == FormatSVG {
		return base + "-svg"
	}
	return base + extensions[f]
}

// Runner executes a command and returns its captured output.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Exporter runs kicad-cli.
type Exporter struct {
	CLI     string
	Timeout time.Duration
	Run     Runner
	logger  *zap.Logger
}

// NewExporter creates an exporter for the given tool path.
func NewExporter(cli string, logger *zap.Logger) *Exporter {
	if cli == "" {
		cli = DefaultCLI
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{CLI: cli, Timeout: DefaultTimeout, Run: ExecRunner, logger: logger}
}

// Args returns the kicad-cli arguments for one export.
func Args(f Format, schPath, outPath string) []string {
	return []string{"sch", "export", string(f), "--output", outPath, schPath}
}

// Export converts schPath to format f. An empty outPath selects
// DefaultOutput. The output path is returned.
func (e *Exporter) Export(ctx context.Context, schPath string, f Format, outPath string) (string, error) {
	if _, ok := extensions[f]; !ok {
		return "", fmt.Errorf("%w: unsupported export format %q", schematic.ErrInvalidArgument, f)
	}
	if _, err := os.Stat(schPath); err != nil {
		return "", fmt.Errorf("%w: %s: %w", schematic.ErrNotFound, schPath, err)
	}
	if outPath == "" {
		outPath = DefaultOutput(schPath, f)
	}
	if f == FormatSVG {
		if err := os.MkdirAll(outPath, 0o755); err != nil {
			return "", fmt.Errorf("%w: failed to create output directory: %w", schematic.ErrIO, err)
		}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := Args(f, schPath, outPath)
	e.logger.Debug("running export", zap.String("cli", e.CLI), zap.Strings("args", args))

	_, stderr, err := e.Run(ctx, e.CLI, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s %s failed: %s", schematic.ErrIO, e.CLI, f, msg)
	}

	e.logger.Info("exported schematic",
		zap.String("file", schPath),
		zap.String("format", string(f)),
		zap.String("output", outPath))
	return outPath, nil
}
