// Package schematic wraps a parsed KiCad schematic (.kicad_sch) for in-place
// editing. The tree is kept lossless: nodes the package does not understand
// are carried through untouched and written back on Save.
package schematic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// Header written into new schematics (KiCad 8 format).
const (
	DefaultVersion          = 20231120
	DefaultGenerator        = "eeschema"
	DefaultGeneratorVersion = "8.0"
)

// Section tags
const (
	TagRoot           = "kicad_sch"
	TagLibSymbols     = "lib_symbols"
	TagSheetInstances = "sheet_instances"
	TagSymbol         = "symbol"
)

// Sections KiCad may legitimately write after sheet_instances.
var trailingSections = map[string]bool{
	"symbol_instances": true, // KiCad 6
	"embedded_fonts":   true, // KiCad 9
}

// Document is a schematic loaded for editing.
type Document struct {
	root *kicadsexp.List
	path string

	// ids handed out by NewUUID, which may not be in the tree yet
	issued map[string]bool
}

// Load reads and parses a schematic file.
func Load(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: schematic file %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to open file: %w", ErrIO, err)
	}
	defer file.Close()

	doc, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.path = path
	return doc, nil
}

// Parse reads a schematic from r.
func Parse(r io.Reader) (*Document, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		if errors.Is(err, kicadsexp.ErrSyntax) {
			return nil, fmt.Errorf("failed to parse s-expression: %w", err)
		}
		return nil, fmt.Errorf("%w: failed to read schematic: %w", ErrIO, err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("%w: empty file or no valid s-expressions found", ErrStructure)
	}

	root, ok := sexps[0].(*kicadsexp.List)
	if !ok || root.Tag() != TagRoot {
		return nil, fmt.Errorf("%w: not a KiCad schematic file: expected '%s', got %s", ErrStructure, TagRoot, sexps[0])
	}

	return &Document{root: root}, nil
}

// ParseString parses a schematic held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Metadata fills the title block of a new schematic.
type Metadata struct {
	Title    string
	Date     string
	Revision string
	Company  string
	Paper    string
}

// New creates an empty schematic with a lib_symbols section and the
// root sheet instance.
func New(meta Metadata) *Document {
	paper := meta.Paper
	if paper == "" {
		paper = "A4"
	}

	root := kicadsexp.NewList(TagRoot,
		kicadsexp.NewList("version", kicadsexp.NewInt(DefaultVersion)),
		kicadsexp.NewList("generator", kicadsexp.String(DefaultGenerator)),
		kicadsexp.NewList("generator_version", kicadsexp.String(DefaultGeneratorVersion)),
		sexp.UUIDNode(uuid.NewString()),
		kicadsexp.NewList("paper", kicadsexp.String(paper)),
	)

	tb := kicadsexp.NewList("title_block")
	for _, field := range []struct{ tag, value string }{
		{"title", meta.Title},
		{"date", meta.Date},
		{"rev", meta.Revision},
		{"company", meta.Company},
	} {
		if field.value != "" {
			tb.Append(kicadsexp.NewList(field.tag, kicadsexp.String(field.value)))
		}
	}
	if tb.Len() > 1 {
		root.Append(tb)
	}

	root.Append(
		kicadsexp.NewList(TagLibSymbols),
		kicadsexp.NewList(TagSheetInstances,
			kicadsexp.NewList("path", kicadsexp.String("/"),
				kicadsexp.NewList("page", kicadsexp.String("1")))),
	)

	return &Document{root: root}
}

// Root returns the kicad_sch node.
func (d *Document) Root() *kicadsexp.List {
	return d.root
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

// LocateSection returns the first top-level node tagged tag.
func (d *Document) LocateSection(tag string) (*kicadsexp.List, bool) {
	return sexp.FindNode(d.root, tag)
}

// LibSymbols returns the library definitions section.
func (d *Document) LibSymbols() (*kicadsexp.List, error) {
	libs, ok := d.LocateSection(TagLibSymbols)
	if !ok {
		return nil, fmt.Errorf("%w: schematic has no %s section", ErrStructure, TagLibSymbols)
	}
	return libs, nil
}

// InsertBeforeSheetInstances adds nodes to the document. It is the only
// place content is added: KiCad expects graphical and annotation items
// before the terminal sheet_instances section. Without that section the
// nodes are appended.
func (d *Document) InsertBeforeSheetInstances(nodes ...*kicadsexp.List) {
	index := d.sheetInstancesIndex()
	for _, node := range nodes {
		if index < 0 {
			d.root.Append(node)
			continue
		}
		d.root.Insert(index, node)
		index++
	}
}

func (d *Document) sheetInstancesIndex() int {
	for i, item := range d.root.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Tag() == TagSheetInstances {
			return i
		}
	}
	return -1
}

// newID is swapped out in tests.
var newID = uuid.NewString

// NewUUID returns a fresh identifier that does not collide with any uuid
// already present in the document or returned by an earlier call, so
// nodes built in a batch before insertion stay distinct.
func (d *Document) NewUUID() string {
	used := d.uuids()
	if d.issued == nil {
		d.issued = make(map[string]bool)
	}
	for {
		id := newID()
		if !used[id] && !d.issued[id] {
			d.issued[id] = true
			return id
		}
	}
}

func (d *Document) uuids() map[string]bool {
	used := make(map[string]bool)
	kicadsexp.Walk(d.root, func(l *kicadsexp.List) bool {
		if l.Tag() == "uuid" {
			if id, err := sexp.GetUUID(l); err == nil {
				used[string(id)] = true
			}
			return false
		}
		return true
	})
	return used
}

// Validate checks the structural rules KiCad relies on: a kicad_sch root,
// exactly one lib_symbols section, a supported version and sheet_instances
// as the last section.
func (d *Document) Validate() error {
	if d.root.Tag() != TagRoot {
		return fmt.Errorf("%w: root tag is %q", ErrStructure, d.root.Tag())
	}

	if n := len(sexp.FindAllNodes(d.root, TagLibSymbols)); n != 1 {
		return fmt.Errorf("%w: expected exactly one %s section, found %d", ErrStructure, TagLibSymbols, n)
	}

	if versionNode, ok := d.LocateSection("version"); ok {
		ver, err := sexp.GetInt(versionNode, 1)
		if err != nil {
			return fmt.Errorf("%w: failed to parse version: %w", ErrStructure, err)
		}
		if ver < MinSupportedVersion {
			return fmt.Errorf("%w: unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ErrStructure, ver, MinSupportedVersion)
		}
	}

	index := d.sheetInstancesIndex()
	if index < 0 {
		return nil
	}
	for _, item := range d.root.Items()[index+1:] {
		sub, ok := item.(*kicadsexp.List)
		if !ok || !trailingSections[sub.Tag()] {
			return fmt.Errorf("%w: %s is not the last section (found %s after it)", ErrStructure, TagSheetInstances, item)
		}
	}
	return nil
}

// Serialize renders the document in KiCad's own layout.
func (d *Document) Serialize() string {
	return kicadsexp.Serialize(d.root, true) + "\n"
}

// Save writes the document to path atomically (see WriteFile).
func (d *Document) Save(path string) error {
	if err := WriteFile(path, d.Serialize()); err != nil {
		return err
	}
	d.path = path
	return nil
}

// WriteFile writes text to path. The text goes to a temporary file in the
// same directory which is then renamed over the target, so a failed write
// never leaves a truncated schematic behind. An existing file keeps its
// permissions.
func WriteFile(path, text string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := io.WriteString(tmp, text); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("%w: failed to set permissions on %s: %w", ErrIO, path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", ErrIO, path, err)
	}
	return nil
}
