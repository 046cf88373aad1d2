package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
)

// Arguments structs

type FileArgs struct {
	FilePath string `json:"file_path" jsonschema:"path to the .kicad_sch file"`
}

type OutputArgs struct {
	FilePath   string `json:"file_path" jsonschema:"path to the .kicad_sch file"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"where to write the result; defaults to file_path"`
}

func (a OutputArgs) target() editor.Target {
	return editor.Target{FilePath: a.FilePath, OutputPath: a.OutputPath}
}

type ComponentArgs struct {
	LibID     string  `json:"lib_id" jsonschema:"library id such as Device:R"`
	Reference string  `json:"reference" jsonschema:"reference designator such as R1"`
	Value     string  `json:"value" jsonschema:"component value such as 10k"`
	Rotation  float64 `json:"rotation,omitempty" jsonschema:"rotation in degrees"`
	Unit      int     `json:"unit,omitempty" jsonschema:"symbol unit, default 1"`
	Footprint string  `json:"footprint,omitempty"`
	Datasheet string  `json:"datasheet,omitempty"`
}

func (a ComponentArgs) component() editor.Component {
	return editor.Component{
		LibID:     a.LibID,
		Reference: a.Reference,
		Value:     a.Value,
		Rotation:  a.Rotation,
		Unit:      a.Unit,
		Footprint: a.Footprint,
		Datasheet: a.Datasheet,
	}
}

type CreateSchematicArgs struct {
	ProjectName string `json:"project_name" jsonschema:"file name without the .kicad_sch extension"`
	Path        string `json:"path,omitempty" jsonschema:"directory to create the file in"`
	Title       string `json:"title,omitempty"`
	Date        string `json:"date,omitempty"`
	Revision    string `json:"revision,omitempty"`
	Company     string `json:"company,omitempty"`
	Overwrite   bool   `json:"overwrite,omitempty" jsonschema:"replace an existing file"`
}

type SymbolPropertiesArgs struct {
	FilePath  string `json:"file_path"`
	Reference string `json:"reference"`
}

type UpdatePropertyArgs struct {
	OutputArgs
	Reference string `json:"reference"`
	Property  string `json:"property" jsonschema:"property name such as Value or Footprint"`
	Value     string `json:"value"`
}

type AddSymbolArgs struct {
	OutputArgs
	ComponentArgs
	X float64 `json:"x" jsonschema:"x position in mm"`
	Y float64 `json:"y" jsonschema:"y position in mm"`
}

type AddSymbolAutoArgs struct {
	OutputArgs
	ComponentArgs
	GridX    int     `json:"grid_x,omitempty" jsonschema:"grid column to start searching from"`
	GridY    int     `json:"grid_y,omitempty" jsonschema:"grid row to start searching from"`
	GridSize float64 `json:"grid_size,omitempty" jsonschema:"cell size in mm"`
}

type AddSymbolRelativeArgs struct {
	OutputArgs
	ComponentArgs
	AnchorRef string  `json:"anchor_ref" jsonschema:"reference of the symbol to place next to"`
	Direction string  `json:"direction,omitempty" jsonschema:"right, left, above, below or a diagonal such as above-right"`
	Distance  float64 `json:"distance,omitempty" jsonschema:"distance from the anchor in mm"`
}

type AddSymbolGroupArgs struct {
	OutputArgs
	Components []editor.Component `json:"components"`
	StartX     *float64           `json:"start_x,omitempty"`
	StartY     *float64           `json:"start_y,omitempty"`
	Spacing    float64            `json:"spacing,omitempty"`
	Columns    int                `json:"columns,omitempty"`
}

type DeleteSymbolArgs struct {
	OutputArgs
	Reference string `json:"reference"`
}

type DeleteSymbolsArgs struct {
	OutputArgs
	References []string `json:"references"`
}

type AddWireArgs struct {
	OutputArgs
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
}

type AddJunctionArgs struct {
	OutputArgs
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type AddLabelArgs struct {
	OutputArgs
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation,omitempty"`
	LabelType string  `json:"label_type,omitempty" jsonschema:"label, global_label or hierarchical_label"`
	Shape     string  `json:"shape,omitempty" jsonschema:"input, output, bidirectional, tri_state or passive"`
}

type CreateCircuitArgs struct {
	OutputArgs
	CircuitType string             `json:"circuit_type" jsonschema:"circuit to build; only voltage_divider is supported"`
	Parameters  map[string]float64 `json:"parameters,omitempty" jsonschema:"input_voltage, output_voltage, r_upper, r_lower (kOhm), position_x, position_y"`
}

type ExportArgs struct {
	FilePath   string `json:"file_path"`
	Format     string `json:"format,omitempty" jsonschema:"pdf, svg, netlist or bom; default pdf"`
	OutputPath string `json:"output_path,omitempty"`
}

type ListLibrariesArgs struct{}

// SchematicInfo is the reply of load_schematic.
type SchematicInfo struct {
	Success   bool     `json:"success"`
	FilePath  string   `json:"file_path"`
	Version   int      `json:"version"`
	Generator string   `json:"generator"`
	Paper     string   `json:"paper"`
	Title     string   `json:"title,omitempty"`
	Revision  string   `json:"revision,omitempty"`
	Comments  []string `json:"comments,omitempty"`
	Extent    *Extent  `json:"extent,omitempty"`
	Symbols   int      `json:"symbols"`
	Wires     int      `json:"wires"`
	Junctions int      `json:"junctions"`
	Labels    []string `json:"labels,omitempty"`
	Libraries []string `json:"lib_symbols,omitempty"`
}

// Extent is the box around every anchored item, in mm.
type Extent struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func infoOf(path string, sum *schematic.Summary) SchematicInfo {
	var extent *Extent
	if bbox := sum.BoundingBox(); !bbox.IsEmpty() {
		extent = &Extent{
			MinX: bbox.Min.X, MinY: bbox.Min.Y,
			MaxX: bbox.Max.X, MaxY: bbox.Max.Y,
			Width: bbox.Width(), Height: bbox.Height(),
		}
	}
	return SchematicInfo{
		Success:   true,
		FilePath:  path,
		Version:   sum.Version,
		Generator: sum.Generator,
		Paper:     sum.Paper,
		Title:     sum.TitleBlock.Title,
		Revision:  sum.TitleBlock.Revision,
		Comments:  sum.TitleBlock.CommentLines(),
		Extent:    extent,
		Symbols:   len(sum.Symbols),
		Wires:     len(sum.Wires),
		Junctions: len(sum.Junctions),
		Labels:    sum.LabelNames(),
		Libraries: sum.LibSymbols,
	}
}

func (s *Server) registerTools() {
	ed := s.editor

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_schematic",
		Description: "Creates an empty KiCad schematic file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CreateSchematicArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.CreateSchematic(editor.CreateSchematicRequest{
			ProjectName: args.ProjectName,
			Dir:         args.Path,
			Metadata: schematic.Metadata{
				Title:    args.Title,
				Date:     args.Date,
				Revision: args.Revision,
				Company:  args.Company,
			},
			Overwrite: args.Overwrite,
		})
		return s.reply("create_schematic", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "load_schematic",
		Description: "Loads a schematic and returns its header and element counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
		sum, err := ed.Info(args.FilePath)
		if err != nil {
			return s.reply("load_schematic", nil, err)
		}
		return s.encode(infoOf(args.FilePath, sum), false)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_all_symbols",
		Description: "Lists every placed symbol with its reference, value, library id and position",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FileArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.ListSymbols(args.FilePath)
		return s.reply("get_all_symbols", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_symbol_properties",
		Description: "Returns every property of one placed symbol",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SymbolPropertiesArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.SymbolProperties(args.FilePath, args.Reference)
		return s.reply("get_symbol_properties", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_symbol_property",
		Description: "Changes an existing property of a placed symbol",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args UpdatePropertyArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.UpdateProperty(editor.UpdatePropertyRequest{
			Target:    args.target(),
			Reference: args.Reference,
			Property:  args.Property,
			Value:     args.Value,
		})
		return s.reply("update_symbol_property", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_symbol",
		Description: "Places a library symbol at exact coordinates, caching its definition and creating pin entries",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddSymbolArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddSymbol(editor.AddSymbolRequest{
			Target:    args.target(),
			Component: args.component(),
			X:         args.X,
			Y:         args.Y,
		})
		return s.reply("add_symbol", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_symbol_auto",
		Description: "Places a library symbol in the first free grid cell",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddSymbolAutoArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddSymbolAuto(editor.AddSymbolAutoRequest{
			Target:    args.target(),
			Component: args.component(),
			GridX:     args.GridX,
			GridY:     args.GridY,
			GridSize:  args.GridSize,
		})
		return s.reply("add_symbol_auto", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_symbol_relative",
		Description: "Places a library symbol next to an existing one",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddSymbolRelativeArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddSymbolRelative(editor.AddSymbolRelativeRequest{
			Target:    args.target(),
			Component: args.component(),
			AnchorRef: args.AnchorRef,
			Direction: args.Direction,
			Distance:  args.Distance,
		})
		return s.reply("add_symbol_relative", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_symbol_group",
		Description: "Places several symbols on a grid; either all are added or none",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddSymbolGroupArgs) (*mcp.CallToolResult, any, error) {
		layout := ed.Layout()
		startX, startY := layout.GroupStartX, layout.GroupStartY
		if args.StartX != nil {
			startX = *args.StartX
		}
		if args.StartY != nil {
			startY = *args.StartY
		}
		res, err := ed.AddSymbolGroup(editor.AddSymbolGroupRequest{
			Target:     args.target(),
			Components: args.Components,
			StartX:     startX,
			StartY:     startY,
			Spacing:    args.Spacing,
			Columns:    args.Columns,
		})
		return s.reply("add_symbol_group", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_symbol",
		Description: "Deletes one placed symbol; its library definition is kept",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DeleteSymbolArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.DeleteSymbols(editor.DeleteSymbolsRequest{
			Target:     args.target(),
			References: []string{args.Reference},
		})
		return s.reply("delete_symbol", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_symbols",
		Description: "Deletes several placed symbols and reports how many were removed",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DeleteSymbolsArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.DeleteSymbols(editor.DeleteSymbolsRequest{
			Target:     args.target(),
			References: args.References,
		})
		return s.reply("delete_symbols", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_all_wires",
		Description: "Deletes every wire, junction and label",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args OutputArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.DeleteWiring(args.target())
		return s.reply("delete_all_wires", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_wire",
		Description: "Draws a wire segment between two points",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddWireArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddWire(editor.AddWireRequest{
			Target: args.target(),
			StartX: args.StartX, StartY: args.StartY,
			EndX: args.EndX, EndY: args.EndY,
		})
		return s.reply("add_wire", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_junction",
		Description: "Places a junction dot",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddJunctionArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddJunction(editor.AddJunctionRequest{Target: args.target(), X: args.X, Y: args.Y})
		return s.reply("add_junction", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_label",
		Description: "Places a local, global or hierarchical net label",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AddLabelArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.AddLabel(editor.AddLabelRequest{
			Target:    args.target(),
			Text:      args.Text,
			X:         args.X,
			Y:         args.Y,
			Rotation:  args.Rotation,
			LabelType: args.LabelType,
			Shape:     args.Shape,
		})
		return s.reply("add_label", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_circuit",
		Description: "Builds a predefined circuit such as a voltage divider",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CreateCircuitArgs) (*mcp.CallToolResult, any, error) {
		res, err := ed.CreateCircuit(editor.CreateCircuitRequest{
			Target:      args.target(),
			CircuitType: args.CircuitType,
			Parameters:  args.Parameters,
		})
		return s.reply("create_circuit", res, err)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_schematic_libraries",
		Description: "Lists the symbol libraries found on the search paths",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListLibrariesArgs) (*mcp.CallToolResult, any, error) {
		return s.reply("list_schematic_libraries", ed.ListLibraries(), nil)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_schematic",
		Description: "Exports a schematic to pdf, svg, netlist or bom with kicad-cli",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExportArgs) (*mcp.CallToolResult, any, error) {
		format := args.Format
		if format == "" {
			format = "pdf"
		}
		res, err := ed.Export(ctx, editor.ExportRequest{
			FilePath:   args.FilePath,
			Format:     format,
			OutputPath: args.OutputPath,
		})
		return s.reply("export_schematic", res, err)
	})
}
