package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

type call struct {
	name string
	args []string
}

func fakeRunner(calls *[]call, stderr string, err error) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return nil, []byte(stderr), err
	}
}

func writeSchematic(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.kicad_sch")
	if err := os.WriteFile(path, []byte("(kicad_sch (version 20231120))\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportBuildsCommand(t *testing.T) {
	sch := writeSchematic(t)
	var calls []call
	e := NewExporter("/opt/kicad/bin/kicad-cli", nil)
	e.Run = fakeRunner(&calls, "", nil)

	out, err := e.Export(context.Background(), sch, FormatPDF, "")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if want := strings.TrimSuffix(sch, ".kicad_sch") + ".pdf"; out != want {
		t.Errorf("Expected output %s, got %s", want, out)
	}
	if len(calls) != 1 {
		t.Fatalf("Expected one run, got %d", len(calls))
	}
	if calls[0].name != "/opt/kicad/bin/kicad-cli" {
		t.Errorf("Unexpected tool %s", calls[0].name)
	}
	want := "sch export pdf --output " + out + " " + sch
	if got := strings.Join(calls[0].args, " "); got != want {
		t.Errorf("Expected args %q, got %q", want, got)
	}
}

func TestExportSVGCreatesDirectory(t *testing.T) {
	sch := writeSchematic(t)
	var calls []call
	e := NewExporter("", nil)
	e.Run = fakeRunner(&calls, "", nil)

	out, err := e.Export(context.Background(), sch, FormatSVG, "")
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Errorf("Expected output directory %s", out)
	}
	if calls[0].name != DefaultCLI {
		t.Errorf("Expected default tool, got %s", calls[0].name)
	}
}

func TestExportFailureCarriesStderr(t *testing.T) {
	sch := writeSchematic(t)
	var calls []call
	e := NewExporter("", nil)
	e.Run = fakeRunner(&calls, "Failed to load schematic\n", errors.New("exit status 1"))

	_, err := e.Export(context.Background(), sch, FormatNetlist, "")
	if !errors.Is(err, schematic.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "Failed to load schematic") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestExportErrors(t *testing.T) {
	e := NewExporter("", nil)
	e.Run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		t.Fatal("runner must not be called")
		return nil, nil, nil
	}

	if _, err := e.Export(context.Background(), "/does/not/exist.kicad_sch", FormatPDF, ""); !errors.Is(err, schematic.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := e.Export(context.Background(), writeSchematic(t), Format("gerber"), ""); !errors.Is(err, schematic.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" BOM "); err != nil || f != FormatBOM {
		t.Errorf("ParseFormat: %v %v", f, err)
	}
	if _, err := ParseFormat("step"); !errors.Is(err, schematic.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}
