package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
)

// report prints the outcome of an editor operation. With --json the
// Result is printed even on failure so scripts always get a document.
func report(w io.Writer, res *editor.Result, err error) error {
	if err != nil {
		if jsonOutput {
			if perr := printJSON(w, editor.Failure(err)); perr != nil {
				return perr
			}
		}
		return err
	}
	if jsonOutput {
		return printJSON(w, res)
	}
	printResult(w, res)
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printResult(w io.Writer, res *editor.Result) {
	fmt.Fprintln(w, res.Message)
	if res.FilePath != "" && res.Symbols == nil && res.Properties == nil {
		fmt.Fprintf(w, "  File: %s\n", res.FilePath)
	}
	if res.Strategy != "" {
		fmt.Fprintf(w, "  Strategy: %s\n", res.Strategy)
	}

	for _, s := range res.Symbols {
		fmt.Fprintf(w, "  %-8s %-12s %-20s (%.2f, %.2f)\n", s.Reference, s.Value, s.LibID, s.Position.X, s.Position.Y)
	}

	if len(res.Properties) > 0 {
		names := make([]string, 0, len(res.Properties))
		for k := range res.Properties {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(w, "  %s: %s\n", k, res.Properties[k])
		}
	}

	if len(res.Libraries) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(res.Libraries, ", "))
	}

	if d := res.Details; d != nil {
		fmt.Fprintf(w, "  Vin: %gV  Vout: %gV (calculated %gV)\n", d.InputVoltage, d.OutputVoltage, d.CalculatedOutput)
		fmt.Fprintf(w, "  R_upper: %gk  R_lower: %gk\n", d.RUpper, d.RLower)
	}
}
