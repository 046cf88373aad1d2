package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
	"github.com/OpenTraceLab/schedit/pkg/kicad/library"
)

const (
	basicFixture   = "../../testdata/basic.kicad_sch"
	fixtureSymbols = "../../testdata/symbols"
)

// connect starts a server over in-memory transports and returns a client
// session bound to it.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	abs, err := filepath.Abs(fixtureSymbols)
	require.NoError(t, err)
	ed := editor.New(editor.Options{Library: library.Config{SearchPaths: []string{abs}}}, nil)
	srv := New(ed, "test", nil)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func copyFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(basicFixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "basic.kicad_sch")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// call invokes a tool and decodes the JSON text reply into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "reply is not text")
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
	return res
}

func TestListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"create_schematic", "load_schematic", "get_all_symbols", "get_symbol_properties",
		"update_symbol_property", "add_symbol", "add_symbol_auto", "add_symbol_relative",
		"add_symbol_group", "delete_symbol", "delete_symbols", "delete_all_wires",
		"add_wire", "add_junction", "add_label", "create_circuit",
		"list_schematic_libraries", "export_schematic",
	} {
		assert.Contains(t, names, want)
	}
}

func TestAddSymbolTool(t *testing.T) {
	cs := connect(t)
	path := copyFixture(t)

	var res editor.Result
	reply := call(t, cs, "add_symbol", map[string]any{
		"file_path": path,
		"lib_id":    "Device:R",
		"reference": "R5",
		"value":     "220",
		"x":         50.8,
		"y":         25.4,
	}, &res)
	assert.False(t, reply.IsError)
	assert.True(t, res.Success)
	assert.Equal(t, "R5", res.Reference)
	assert.Equal(t, path, res.FilePath)

	var list editor.Result
	call(t, cs, "get_all_symbols", map[string]any{"file_path": path}, &list)
	assert.Equal(t, 4, list.Count)
}

func TestFailureSetsIsError(t *testing.T) {
	cs := connect(t)
	path := copyFixture(t)

	var res editor.Result
	reply := call(t, cs, "delete_symbol", map[string]any{"file_path": path, "reference": "U99"}, &res)
	assert.True(t, reply.IsError)
	assert.False(t, res.Success)
	assert.Equal(t, editor.KindNotFound, res.ErrorKind)
}

func TestDeleteSymbolsTool(t *testing.T) {
	cs := connect(t)
	path := copyFixture(t)

	var res editor.Result
	call(t, cs, "delete_symbols", map[string]any{"file_path": path, "references": []string{"R1", "C1", "Q3"}}, &res)
	assert.True(t, res.Success)
	require.NotNil(t, res.DeletedCount)
	assert.Equal(t, 2, *res.DeletedCount)
}

func TestGroupToolUsesLayoutStart(t *testing.T) {
	cs := connect(t)
	path := copyFixture(t)

	var res editor.Result
	call(t, cs, "add_symbol_group", map[string]any{
		"file_path": path,
		"components": []map[string]any{
			{"lib_id": "Device:C", "reference": "C10", "value": "1u"},
			{"lib_id": "Device:C", "reference": "C11", "value": "1u"},
		},
	}, &res)
	require.True(t, res.Success, res.Message)

	var props editor.Result
	call(t, cs, "get_symbol_properties", map[string]any{"file_path": path, "reference": "C11"}, &props)
	require.NotNil(t, props.Position)
	assert.InDelta(t, 125.4, props.Position.X, 1e-9)
	assert.InDelta(t, 100, props.Position.Y, 1e-9)
}

func TestLoadSchematicTool(t *testing.T) {
	cs := connect(t)

	var info SchematicInfo
	call(t, cs, "load_schematic", map[string]any{"file_path": basicFixture}, &info)
	assert.True(t, info.Success)
	assert.Equal(t, 3, info.Symbols)
	assert.Equal(t, "eeschema", info.Generator)
	assert.Contains(t, info.Labels, "VIN")
	require.NotNil(t, info.Extent)
	assert.InDelta(t, 101.6, info.Extent.MinX, 1e-9)
	assert.InDelta(t, 152.4, info.Extent.MaxX, 1e-9)
	assert.InDelta(t, 50.8, info.Extent.Width, 1e-9)
	assert.Empty(t, info.Comments)
}

func TestCreateCircuitTool(t *testing.T) {
	cs := connect(t)
	path := copyFixture(t)

	var res editor.Result
	call(t, cs, "create_circuit", map[string]any{
		"file_path":    path,
		"circuit_type": "voltage_divider",
		"parameters":   map[string]float64{"input_voltage": 12, "output_voltage": 3.3},
	}, &res)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Details)
	assert.Equal(t, 3.8, res.Details.RLower)
	assert.Len(t, res.Steps, 11)
}

func TestListLibrariesTool(t *testing.T) {
	cs := connect(t)
	var res editor.Result
	call(t, cs, "list_schematic_libraries", map[string]any{}, &res)
	assert.Equal(t, []string{"Device", "power"}, res.Libraries)
}
