package schematic

import (
	"errors"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Error kinds. Every error returned by the kicad packages wraps one of
// these, so callers branch with errors.Is.
var (
	// ErrParse reports malformed S-expression text.
	ErrParse = kicadsexp.ErrSyntax

	// ErrNotFound reports a missing file, library, symbol, anchor or
	// reference.
	ErrNotFound = errors.New("not found")

	// ErrStructure reports a document that violates the schematic layout
	// rules, e.g. a missing lib_symbols section.
	ErrStructure = errors.New("structural invariant violation")

	// ErrIO reports a read or write failure.
	ErrIO = errors.New("i/o error")

	// ErrInvalidArgument reports malformed caller parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)
