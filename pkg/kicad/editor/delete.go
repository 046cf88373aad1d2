package editor

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/textedit"
)

// DeletionStrategy removes elements from schematic text. Strategies are
// interchangeable; the editor tries them in order and moves to the next
// one only when a strategy cannot parse the file.
type DeletionStrategy interface {
	Name() string
	DeleteInstances(text string, refs []string) (string, int, error)
	DeleteWiring(text string) (string, int, error)
}

// TreeStrategy edits the parsed document. Files it rewrites come out in
// KiCad's canonical layout.
type TreeStrategy struct{}

func (TreeStrategy) Name() string { return "tree" }

func (TreeStrategy) DeleteInstances(text string, refs []string) (string, int, error) {
	return treeEdit(text, func(doc *schematic.Document) int { return doc.RemoveInstances(refs) })
}

func (TreeStrategy) DeleteWiring(text string) (string, int, error) {
	return treeEdit(text, (*schematic.Document).RemoveWiring)
}

func treeEdit(text string, remove func(*schematic.Document) int) (string, int, error) {
	doc, err := schematic.ParseString(text)
	if err != nil {
		return "", 0, err
	}
	n := remove(doc)
	if n == 0 {
		return text, 0, nil
	}
	return doc.Serialize(), n, nil
}

// TextStrategy edits the raw lines without parsing; untouched lines keep
// their exact bytes.
type TextStrategy struct{}

func (TextStrategy) Name() string { return "text" }

func (TextStrategy) DeleteInstances(text string, refs []string) (string, int, error) {
	return textedit.DeleteInstances(text, refs)
}

func (TextStrategy) DeleteWiring(text string) (string, int, error) {
	return textedit.DeleteWiring(text)
}

// deleteWith reads the target, runs op through the strategies and writes
// the result. It returns the path written, the number of removed blocks
// and the strategy that succeeded. check, when set, may reject the
// outcome before anything is written.
func (e *Editor) deleteWith(t Target, op func(DeletionStrategy, string) (string, int, error), check func(n int) error) (string, int, string, error) {
	if err := t.check(); err != nil {
		return "", 0, "", err
	}
	data, err := os.ReadFile(t.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, "", fmt.Errorf("%w: schematic file %s", schematic.ErrNotFound, t.FilePath)
		}
		return "", 0, "", fmt.Errorf("%w: failed to read %s: %w", schematic.ErrIO, t.FilePath, err)
	}
	text := string(data)

	for i, s := range e.deleters {
		out, n, err := op(s, text)
		if err != nil {
			if errors.Is(err, schematic.ErrParse) && i < len(e.deleters)-1 {
				e.logger.Warn("deletion strategy could not parse file, falling back",
					zap.String("file", t.FilePath),
					zap.String("strategy", s.Name()),
					zap.Error(err))
				continue
			}
			return "", 0, "", fmt.Errorf("%s: %w", t.FilePath, err)
		}
		if check != nil {
			if err := check(n); err != nil {
				return "", 0, "", err
			}
		}

		path := t.output()
		if n > 0 || path != t.FilePath {
			if err := schematic.WriteFile(path, out); err != nil {
				return "", 0, "", err
			}
		}
		return path, n, s.Name(), nil
	}
	return "", 0, "", fmt.Errorf("%w: no deletion strategy configured", schematic.ErrStructure)
}

// DeleteSymbolsRequest removes placed symbols by reference.
type DeleteSymbolsRequest struct {
	Target
	References []string
}

// DeleteSymbols removes every placed symbol whose Reference is listed.
// Deleting a single reference that does not exist is a NotFound error;
// with several references the count of removed symbols is reported.
func (e *Editor) DeleteSymbols(req DeleteSymbolsRequest) (*Result, error) {
	if len(req.References) == 0 {
		return nil, fmt.Errorf("%w: at least one reference is required", schematic.ErrInvalidArgument)
	}
	single := len(req.References) == 1

	var check func(int) error
	if single {
		check = func(n int) error {
			if n == 0 {
				return fmt.Errorf("%w: symbol %s in %s", schematic.ErrNotFound, req.References[0], req.FilePath)
			}
			return nil
		}
	}

	path, n, strategy, err := e.deleteWith(req.Target, func(s DeletionStrategy, text string) (string, int, error) {
		return s.DeleteInstances(text, req.References)
	}, check)
	if err != nil {
		return nil, err
	}

	e.logger.Info("deleted symbols",
		zap.String("file", path),
		zap.Strings("references", req.References),
		zap.Int("deleted", n),
		zap.String("strategy", strategy))

	msg := fmt.Sprintf("Deleted %d symbols", n)
	if single {
		msg = fmt.Sprintf("Deleted symbol %s", req.References[0])
	}
	res := ok(msg, path)
	res.DeletedCount = &n
	res.References = req.References
	res.Strategy = strategy
	if single {
		res.Reference = req.References[0]
	}
	return res, nil
}

// DeleteWiring removes every wire, junction and label.
func (e *Editor) DeleteWiring(t Target) (*Result, error) {
	path, n, strategy, err := e.deleteWith(t, DeletionStrategy.DeleteWiring, nil)
	if err != nil {
		return nil, err
	}
	e.logger.Info("deleted wiring",
		zap.String("file", path),
		zap.Int("deleted", n),
		zap.String("strategy", strategy))
	res := ok("Deleted all wires, junctions, and labels", path)
	res.DeletedCount = &n
	res.Strategy = strategy
	return res, nil
}
