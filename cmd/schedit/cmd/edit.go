package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
	"github.com/OpenTraceLab/schedit/pkg/kicad/placement"
	"github.com/OpenTraceLab/schedit/pkg/kicad/wiring"
)

var (
	// shared by every editing command
	outputPath string
	component  editor.Component

	addX, addY float64

	autoGridX, autoGridY int
	autoGridSize         float64

	relAnchor    string
	relDirection string
	relDistance  float64

	groupStartX, groupStartY float64
	groupSpacing             float64
	groupColumns             int

	labelType     string
	labelShape    string
	labelRotation float64

	circuitParams map[string]string
)

var addCmd = &cobra.Command{
	Use:   "add <schematic_file>",
	Short: "Place a symbol at exact coordinates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.AddSymbol(editor.AddSymbolRequest{
			Target:    target(args[0]),
			Component: component,
			X:         addX,
			Y:         addY,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var addAutoCmd = &cobra.Command{
	Use:   "add-auto <schematic_file>",
	Short: "Place a symbol in the first free grid cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.AddSymbolAuto(editor.AddSymbolAutoRequest{
			Target:    target(args[0]),
			Component: component,
			GridX:     autoGridX,
			GridY:     autoGridY,
			GridSize:  autoGridSize,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var addRelativeCmd = &cobra.Command{
	Use:   "add-relative <schematic_file>",
	Short: "Place a symbol next to an existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.AddSymbolRelative(editor.AddSymbolRelativeRequest{
			Target:    target(args[0]),
			Component: component,
			AnchorRef: relAnchor,
			Direction: relDirection,
			Distance:  relDistance,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var addGroupCmd = &cobra.Command{
	Use:   "add-group <schematic_file> <components.yaml>",
	Short: "Place several symbols on a grid",
	Long: `Place several symbols on a grid, row by row.

The YAML file holds either a list of components or a mapping with a
"components" key:

  components:
    - lib_id: Device:R
      reference: R1
      value: 10k
    - lib_id: Device:C
      reference: C1
      value: 100n
      footprint: Capacitor_SMD:C_0603_1608Metric

Either every component is added or the schematic is left untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := loadComponents(args[1])
		if err != nil {
			return err
		}
		layout := ed.Layout()
		startX, startY := layout.GroupStartX, layout.GroupStartY
		if cmd.Flags().Changed("start-x") {
			startX = groupStartX
		}
		if cmd.Flags().Changed("start-y") {
			startY = groupStartY
		}
		res, err := ed.AddSymbolGroup(editor.AddSymbolGroupRequest{
			Target:     target(args[0]),
			Components: comps,
			StartX:     startX,
			StartY:     startY,
			Spacing:    groupSpacing,
			Columns:    groupColumns,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <schematic_file> <reference>...",
	Short: "Delete placed symbols",
	Long: `Delete placed symbols by reference. Library definitions in lib_symbols
are kept. Deleting a single missing reference is an error.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.DeleteSymbols(editor.DeleteSymbolsRequest{
			Target:     target(args[0]),
			References: args[1:],
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var deleteWiringCmd = &cobra.Command{
	Use:   "delete-wiring <schematic_file>",
	Short: "Delete every wire, junction and label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.DeleteWiring(target(args[0]))
		return report(cmd.OutOrStdout(), res, err)
	},
}

var wireCmd = &cobra.Command{
	Use:   "wire <schematic_file> <x1> <y1> <x2> <y2>",
	Short: "Draw a wire segment",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		res, err := ed.AddWire(editor.AddWireRequest{
			Target: target(args[0]),
			StartX: pts[0], StartY: pts[1],
			EndX: pts[2], EndY: pts[3],
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var junctionCmd = &cobra.Command{
	Use:   "junction <schematic_file> <x> <y>",
	Short: "Place a junction dot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		res, err := ed.AddJunction(editor.AddJunctionRequest{Target: target(args[0]), X: pts[0], Y: pts[1]})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <schematic_file> <text> <x> <y>",
	Short: "Place a net label",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parseFloats(args[2:])
		if err != nil {
			return err
		}
		res, err := ed.AddLabel(editor.AddLabelRequest{
			Target:    target(args[0]),
			Text:      args[1],
			X:         pts[0],
			Y:         pts[1],
			Rotation:  labelRotation,
			LabelType: labelType,
			Shape:     labelShape,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var setPropertyCmd = &cobra.Command{
	Use:   "set-property <schematic_file> <reference> <property> <value>",
	Short: "Change a property of a placed symbol",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ed.UpdateProperty(editor.UpdatePropertyRequest{
			Target:    target(args[0]),
			Reference: args[1],
			Property:  args[2],
			Value:     args[3],
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

var circuitCmd = &cobra.Command{
	Use:   "circuit <schematic_file> <circuit_type>",
	Short: "Build a predefined circuit",
	Long: `Build a predefined circuit. Supported: voltage_divider.

Voltage divider parameters (--param name=value):
  input_voltage (5), output_voltage (3), r_upper in kOhm (10),
  r_lower in kOhm (computed from the voltages when omitted),
  position_x (120), position_y (80)`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(circuitParams)
		if err != nil {
			return err
		}
		res, err := ed.CreateCircuit(editor.CreateCircuitRequest{
			Target:      target(args[0]),
			CircuitType: args[1],
			Parameters:  params,
		})
		return report(cmd.OutOrStdout(), res, err)
	},
}

func init() {
	editing := []*cobra.Command{
		addCmd, addAutoCmd, addRelativeCmd, addGroupCmd,
		deleteCmd, deleteWiringCmd,
		wireCmd, junctionCmd, labelCmd,
		setPropertyCmd, circuitCmd,
	}
	rootCmd.AddCommand(editing...)
	for _, c := range editing {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "write the result here instead of in place")
	}

	for _, c := range []*cobra.Command{addCmd, addAutoCmd, addRelativeCmd} {
		addComponentFlags(c)
	}
	addCmd.Flags().Float64Var(&addX, "x", 0, "x position (mm)")
	addCmd.Flags().Float64Var(&addY, "y", 0, "y position (mm)")

	addAutoCmd.Flags().IntVar(&autoGridX, "grid-x", 0, "grid column to start from")
	addAutoCmd.Flags().IntVar(&autoGridY, "grid-y", 0, "grid row to start from")
	addAutoCmd.Flags().Float64Var(&autoGridSize, "grid-size", 0, "grid cell size in mm (default from config)")

	addRelativeCmd.Flags().StringVar(&relAnchor, "anchor", "", "reference of the anchor symbol")
	addRelativeCmd.Flags().StringVar(&relDirection, "direction", string(placement.Right), "one of "+strings.Join(placement.Directions(), ", "))
	addRelativeCmd.Flags().Float64Var(&relDistance, "distance", 0, "distance from the anchor in mm (default from config)")
	_ = addRelativeCmd.MarkFlagRequired("anchor")

	addGroupCmd.Flags().Float64Var(&groupStartX, "start-x", placement.DefaultGroupStart, "x of the first component (mm)")
	addGroupCmd.Flags().Float64Var(&groupStartY, "start-y", placement.DefaultGroupStart, "y of the first component (mm)")
	addGroupCmd.Flags().Float64Var(&groupSpacing, "spacing", 0, "distance between components in mm (default from config)")
	addGroupCmd.Flags().IntVar(&groupColumns, "columns", 0, "components per row (default from config)")

	labelCmd.Flags().StringVar(&labelType, "type", "label", "label, global or hierarchical")
	labelCmd.Flags().StringVar(&labelShape, "shape", wiring.DefaultShape, "shape of global and hierarchical labels")
	labelCmd.Flags().Float64Var(&labelRotation, "rotation", 0, "text rotation in degrees")

	circuitCmd.Flags().StringToStringVar(&circuitParams, "param", nil, "circuit parameter as name=value (repeatable)")
}

func addComponentFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&component.LibID, "lib", "", "library id, e.g. Device:R")
	f.StringVar(&component.Reference, "ref", "", "reference designator")
	f.StringVar(&component.Value, "value", "", "component value")
	f.Float64Var(&component.Rotation, "rotation", 0, "rotation in degrees")
	f.IntVar(&component.Unit, "unit", 0, "symbol unit (default 1)")
	f.StringVar(&component.Footprint, "footprint", "", "footprint")
	f.StringVar(&component.Datasheet, "datasheet", "", "datasheet URL")
	_ = c.MarkFlagRequired("lib")
	_ = c.MarkFlagRequired("ref")
	_ = c.MarkFlagRequired("value")
}

func target(path string) editor.Target {
	return editor.Target{FilePath: path, OutputPath: outputPath}
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for k, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// loadComponents reads a group file: a YAML list of components, or a
// mapping whose "components" key holds that list.
func loadComponents(path string) ([]editor.Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read components file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s: no components", path)
	}

	var comps []editor.Component
	switch root := doc.Content[0]; root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&comps)
	case yaml.MappingNode:
		var file struct {
			Components []editor.Component `yaml:"components"`
		}
		err = root.Decode(&file)
		comps = file.Components
	default:
		return nil, fmt.Errorf("%s: expected a list of components", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("%s: no components", path)
	}
	return comps, nil
}
