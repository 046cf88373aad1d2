package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
	"github.com/OpenTraceLab/schedit/pkg/kicad/export"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

var (
	newDir       string
	newMeta      schematic.Metadata
	newOverwrite bool

	exportFormat string
	exportOutput string
)

var newCmd = &cobra.Command{
	Use:   "new <project_name>",
	Short: "Create an empty schematic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.CreateSchematic(editor.CreateSchematicRequest{
			ProjectName: args[0],
			Dir:         newDir,
			Metadata:    newMeta,
			Overwrite:   newOverwrite,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [component]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

var listCmd = &cobra.Command{
	Use:   "list <schematic_file>",
	Short: "List placed symbols",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.ListSymbols(args[0])
		return report(cmd.OutOrStdout(), res, err)
	},
}

var libsCmd = &cobra.Command{
	Use:   "libs",
	Short: "List symbol libraries on the search paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(cmd.OutOrStdout(), ed.ListLibraries(), nil)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <schematic_file>",
	Short: "Export a schematic with kicad-cli",
	Long: fmt.Sprintf(`Export a schematic with kicad-cli.

Formats: %s. The output defaults to a file next to the schematic.`, strings.Join(export.Formats(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.Export(cmd.Context(), editor.ExportRequest{
			FilePath:   args[0],
			Format:     exportFormat,
			OutputPath: exportOutput,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

func init() {
	rootCmd.AddCommand(newCmd, infoCmd, listCmd, libsCmd, exportCmd)

	newCmd.Flags().StringVar(&newDir, "dir", ".", "directory to create the schematic in")
	newCmd.Flags().StringVar(&newMeta.Title, "title", "", "title block title (default: project name)")
	newCmd.Flags().StringVar(&newMeta.Date, "date", "", "title block date")
	newCmd.Flags().StringVar(&newMeta.Revision, "rev", "", "title block revision")
	newCmd.Flags().StringVar(&newMeta.Company, "company", "", "title block company")
	newCmd.Flags().StringVar(&newMeta.Paper, "paper", "", "paper size (default A4)")
	newCmd.Flags().BoolVarP(&newOverwrite, "force", "f", false, "overwrite an existing file")

	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatPDF), "output format")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path")
}

func runInfo(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	filename := args[0]

	if len(args) >= 2 {
		// Show details for specific component
		res, err := ed.SymbolProperties(filename, args[1])
		if err != nil || jsonOutput {
			return report(w, res, err)
		}
		showComponentDetails(w, res)
		return nil
	}

	sum, err := ed.Info(filename)
	if err != nil {
		return report(w, nil, err)
	}
	if jsonOutput {
		return printJSON(w, sum)
	}
	showSchemSummary(w, sum, filename)
	return nil
}

func showSchemSummary(w io.Writer, sum *schematic.Summary, filename string) {
	fmt.Fprintf(w, "Schematic: %s\n", filename)
	fmt.Fprintf(w, "Version: %d\n", sum.Version)
	fmt.Fprintf(w, "Generator: %s", sum.Generator)
	if sum.GeneratorVer != "" {
		fmt.Fprintf(w, " v%s", sum.GeneratorVer)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Paper: %s\n", sum.Paper)
	fmt.Fprintln(w)

	// Title block
	tb := sum.TitleBlock
	comments := tb.CommentLines()
	if tb.Title != "" || tb.Revision != "" || len(comments) > 0 {
		fmt.Fprintln(w, "Title Block:")
		if tb.Title != "" {
			fmt.Fprintf(w, "  Title: %s\n", tb.Title)
		}
		if tb.Date != "" {
			fmt.Fprintf(w, "  Date: %s\n", tb.Date)
		}
		if tb.Revision != "" {
			fmt.Fprintf(w, "  Revision: %s\n", tb.Revision)
		}
		if tb.Company != "" {
			fmt.Fprintf(w, "  Company: %s\n", tb.Company)
		}
		for i, c := range comments {
			if c != "" {
				fmt.Fprintf(w, "  Comment %d: %s\n", i+1, c)
			}
		}
		fmt.Fprintln(w)
	}

	// Statistics
	var local, global, hier int
	for _, l := range sum.Labels {
		switch l.Kind {
		case schematic.LabelGlobal:
			global++
		case schematic.LabelHierarchical:
			hier++
		default:
			local++
		}
	}
	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintf(w, "  Components: %d\n", len(sum.Symbols))
	fmt.Fprintf(w, "  Library symbols: %d\n", len(sum.LibSymbols))
	fmt.Fprintf(w, "  Wires: %d\n", len(sum.Wires))
	fmt.Fprintf(w, "  Junctions: %d\n", len(sum.Junctions))
	fmt.Fprintf(w, "  Labels: %d\n", local)
	fmt.Fprintf(w, "  Global labels: %d\n", global)
	fmt.Fprintf(w, "  Hierarchical labels: %d\n", hier)
	if bbox := sum.BoundingBox(); !bbox.IsEmpty() {
		fmt.Fprintf(w, "  Extent: (%.2f, %.2f) to (%.2f, %.2f), %.2f x %.2f mm\n",
			bbox.Min.X, bbox.Min.Y, bbox.Max.X, bbox.Max.Y, bbox.Width(), bbox.Height())
	}
	fmt.Fprintln(w)

	// Component list
	if refs := sum.References(); len(refs) > 0 {
		fmt.Fprintln(w, "Components:")

		// Group by reference prefix
		byPrefix := make(map[string][]string)
		for _, ref := range refs {
			prefix := getRefPrefix(ref)
			byPrefix[prefix] = append(byPrefix[prefix], ref)
		}

		var prefixes []string
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			refs := byPrefix[prefix]
			sort.Strings(refs)
			fmt.Fprintf(w, "  %s: %s\n", prefix, strings.Join(refs, ", "))
		}
		fmt.Fprintln(w)
	}

	// Labels
	if labels := sum.LabelNames(); len(labels) > 0 {
		fmt.Fprintln(w, "Net Labels:")
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
}

func showComponentDetails(w io.Writer, res *editor.Result) {
	fmt.Fprintf(w, "Component: %s\n", res.Reference)
	fmt.Fprintf(w, "Library: %s\n", res.LibID)
	if p := res.Position; p != nil {
		fmt.Fprintf(w, "Position: (%.2f, %.2f)\n", p.X, p.Y)
		if p.Rotation != 0 {
			fmt.Fprintf(w, "Rotation: %.1f°\n", p.Rotation)
		}
	}
	fmt.Fprintln(w)

	if len(res.Properties) > 0 {
		fmt.Fprintln(w, "Properties:")
		names := make([]string, 0, len(res.Properties))
		for k := range res.Properties {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(w, "  %s: %s\n", k, res.Properties[k])
		}
	}
}

func getRefPrefix(ref string) string {
	// Extract prefix (letters before numbers)
	for i, c := range ref {
		if c >= '0' && c <= '9' {
			return ref[:i]
		}
	}
	return ref
}
