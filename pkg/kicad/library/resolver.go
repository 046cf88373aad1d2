// Package library resolves "Library:Symbol" ids against KiCad symbol
// library files (.kicad_sym) and caches the definitions into a schematic's
// lib_symbols section.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// FileExtension of KiCad symbol libraries
const FileExtension = ".kicad_sym"

// TagLibrary is the root tag of a symbol library file.
const TagLibrary = "kicad_symbol_lib"

var (
	// ErrLibraryNotFound means no search path holds <Library>.kicad_sym.
	ErrLibraryNotFound = fmt.Errorf("library %w", schematic.ErrNotFound)

	// ErrSymbolNotFound means the library has no symbol of that name.
	ErrSymbolNotFound = fmt.Errorf("symbol %w", schematic.ErrNotFound)
)

// Config lists where library files live. Directories are searched in
// order; the first one holding the library wins.
type Config struct {
	SearchPaths []string
}

// SymbolDefinition is a resolved library symbol ready to be cached into a
// schematic: its name is already the full library id.
type SymbolDefinition struct {
	LibID string
	Node  *kicadsexp.List
	Pins  []string
}

// Resolver loads symbol definitions from library files.
type Resolver struct {
	paths  []string
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		paths:  append([]string(nil), cfg.SearchPaths...),
		logger: logger,
	}
}

// SearchPaths returns the configured directories.
func (r *Resolver) SearchPaths() []string {
	return append([]string(nil), r.paths...)
}

// SplitLibID splits "Library:Symbol". The symbol part may itself contain
// colons; only the first one separates.
func SplitLibID(libID string) (lib, name string, err error) {
	lib, name, ok := strings.Cut(libID, ":")
	if !ok || lib == "" || name == "" {
		return "", "", fmt.Errorf("%w: library id %q is not of the form Library:Symbol", schematic.ErrInvalidArgument, libID)
	}
	return lib, name, nil
}

// LibraryPath returns the file backing the named library.
func (r *Resolver) LibraryPath(lib string) (string, error) {
	for _, dir := range r.paths {
		path := filepath.Join(dir, lib+FileExtension)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s%s not found in %v", ErrLibraryNotFound, lib, FileExtension, r.paths)
}

// Libraries lists the library names available on the search paths.
func (r *Resolver) Libraries() []string {
	seen := make(map[string]bool)
	var names []string
	for _, dir := range r.paths {
		matches, _ := filepath.Glob(filepath.Join(dir, "*"+FileExtension))
		for _, m := range matches {
			name := strings.TrimSuffix(filepath.Base(m), FileExtension)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Resolve loads the definition of libID from disk. The returned node is a
// private copy named libID, with derived symbols flattened onto their
// parent.
func (r *Resolver) Resolve(libID string) (*SymbolDefinition, error) {
	lib, name, err := SplitLibID(libID)
	if err != nil {
		return nil, err
	}

	path, err := r.LibraryPath(lib)
	if err != nil {
		return nil, err
	}

	root, err := loadLibrary(path)
	if err != nil {
		return nil, err
	}

	node, err := flatten(root, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	node.Set(1, kicadsexp.String(libID))

	r.logger.Debug("resolved library symbol",
		zap.String("lib_id", libID),
		zap.String("file", path))

	return &SymbolDefinition{
		LibID: libID,
		Node:  node,
		Pins:  PinNumbers(node),
	}, nil
}

func loadLibrary(path string) (*kicadsexp.List, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to open library: %w", schematic.ErrIO, err)
	}
	defer file.Close()

	sexps, err := kicadsexp.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse library %s: %w", path, err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("%w: empty library file %s", schematic.ErrStructure, path)
	}
	root, ok := sexps[0].(*kicadsexp.List)
	if !ok || root.Tag() != TagLibrary {
		return nil, fmt.Errorf("%w: %s is not a KiCad symbol library", schematic.ErrStructure, path)
	}
	return root, nil
}

// findSymbol returns the top-level symbol declared as name.
func findSymbol(root *kicadsexp.List, name string) (*kicadsexp.List, bool) {
	for _, sym := range sexp.FindAllNodes(root, schematic.TagSymbol) {
		if declared, err := sexp.GetString(sym, 1); err == nil && declared == name {
			return sym, true
		}
	}
	return nil, false
}

// flatten returns a copy of the named symbol. A symbol declared with
// (extends "Parent") only carries overridden fields in the library, while
// a schematic cache needs the full drawing, so the parent is copied and
// the child's fields are laid over it.
func flatten(root *kicadsexp.List, name string) (*kicadsexp.List, error) {
	sym, ok := findSymbol(root, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSymbolNotFound, name)
	}

	extends, ok := sexp.FindNode(sym, "extends")
	if !ok {
		return sym.Clone(), nil
	}

	// parents are at most a few levels deep; guard against cycles anyway
	chain := []*kicadsexp.List{sym}
	seen := map[string]bool{name: true}
	for ok {
		parentName, err := sexp.GetString(extends, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed extends in %q", schematic.ErrStructure, name)
		}
		if seen[parentName] {
			return nil, fmt.Errorf("%w: extends cycle at %q", schematic.ErrStructure, parentName)
		}
		seen[parentName] = true

		parent, found := findSymbol(root, parentName)
		if !found {
			return nil, fmt.Errorf("%w: parent %q of %q", ErrSymbolNotFound, parentName, name)
		}
		chain = append(chain, parent)
		extends, ok = sexp.FindNode(parent, "extends")
	}

	base := chain[len(chain)-1]
	baseName, _ := sexp.GetString(base, 1)
	out := base.Clone()
	for i := len(chain) - 2; i >= 0; i-- {
		overlayProperties(out, chain[i])
	}
	renameUnits(out, baseName, name)
	return out, nil
}

func overlayProperties(dst, src *kicadsexp.List) {
	for _, prop := range sexp.FindAllNodes(src, "property") {
		key, err := sexp.GetString(prop, 1)
		if err != nil {
			continue
		}
		replaced := false
		for i, item := range dst.Items() {
			existing, ok := item.(*kicadsexp.List)
			if !ok || existing.Tag() != "property" {
				continue
			}
			if k, _ := sexp.GetString(existing, 1); k == key {
				dst.Set(i, prop.Clone())
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Append(prop.Clone())
		}
	}
}

// renameUnits renames unit sub-symbols "Parent_1_1" to "Child_1_1".
func renameUnits(node *kicadsexp.List, from, to string) {
	for _, unit := range sexp.FindAllNodes(node, schematic.TagSymbol) {
		unitName, err := sexp.GetString(unit, 1)
		if err != nil || !strings.HasPrefix(unitName, from+"_") {
			continue
		}
		unit.Set(1, kicadsexp.String(to+strings.TrimPrefix(unitName, from)))
	}
}

// PinNumbers collects the pin numbers declared anywhere inside a symbol
// definition, in document order and without duplicates (multi-unit and
// De Morgan variants repeat pins).
func PinNumbers(def *kicadsexp.List) []string {
	var pins []string
	seen := make(map[string]bool)
	kicadsexp.Walk(def, func(l *kicadsexp.List) bool {
		if l.Tag() != "pin" {
			return true
		}
		if numNode, ok := sexp.FindNode(l, "number"); ok {
			if num, err := sexp.GetString(numNode, 1); err == nil && !seen[num] {
				seen[num] = true
				pins = append(pins, num)
			}
		}
		return false
	})
	return pins
}

// Cached returns the definition of libID held in the document's
// lib_symbols section.
func Cached(doc *schematic.Document, libID string) (*kicadsexp.List, bool) {
	libs, err := doc.LibSymbols()
	if err != nil {
		return nil, false
	}
	return findSymbol(libs, libID)
}

// EnsureCached makes sure the document's lib_symbols section holds libID.
// It is idempotent. Failures are logged and reported as false with the
// document left unmodified, so callers can carry on without pin data.
func (r *Resolver) EnsureCached(doc *schematic.Document, libID string) bool {
	libs, err := doc.LibSymbols()
	if err != nil {
		r.logger.Warn("cannot cache library symbol", zap.String("lib_id", libID), zap.Error(err))
		return false
	}

	if _, ok := findSymbol(libs, libID); ok {
		return true
	}

	def, err := r.Resolve(libID)
	if err != nil {
		r.logger.Warn("library symbol not resolved, continuing without pins",
			zap.String("lib_id", libID), zap.Error(err))
		return false
	}

	libs.Append(def.Node)
	r.logger.Info("cached library symbol", zap.String("lib_id", libID), zap.Int("pins", len(def.Pins)))
	return true
}
