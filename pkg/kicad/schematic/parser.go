package schematic

import (
	"fmt"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Summary reads the header, placed symbols, wiring and labels of the
// document into plain structs.
func (d *Document) Summary() (*Summary, error) {
	root := d.root
	sum := &Summary{}

	if err := parseHeader(root, sum); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if uuidNode, found := sexp.FindNode(root, "uuid"); found {
		sum.UUID, _ = sexp.GetUUID(uuidNode)
	}
	if paperNode, found := sexp.FindNode(root, "paper"); found {
		sum.Paper, _ = sexp.GetString(paperNode, 1)
	}
	if titleBlockNode, found := sexp.FindNode(root, "title_block"); found {
		sum.TitleBlock = parseTitleBlock(titleBlockNode)
	}

	if libSymbolsNode, found := sexp.FindNode(root, TagLibSymbols); found {
		for _, ls := range sexp.FindAllNodes(libSymbolsNode, TagSymbol) {
			if name, err := sexp.GetString(ls, 1); err == nil {
				sum.LibSymbols = append(sum.LibSymbols, name)
			}
		}
	}

	for _, inst := range d.Instances() {
		sum.Symbols = append(sum.Symbols, SymbolInfo{
			Reference: inst.Reference(),
			Value:     inst.Value(),
			LibID:     inst.LibID,
			Footprint: inst.Properties.Value(PropFootprint),
			Position:  inst.Position,
			Pins:      len(inst.Pins),
			UUID:      inst.UUID,
		})
	}

	sum.Wires = parseWires(root)
	sum.Junctions = parseJunctions(root)
	for _, kind := range []LabelKind{LabelLocal, LabelGlobal, LabelHierarchical} {
		sum.Labels = append(sum.Labels, parseLabels(root, kind)...)
	}

	if instancesNode, found := sexp.FindNode(root, TagSheetInstances); found {
		sum.SheetInstances = parseSheetInstances(instancesNode)
	}

	return sum, nil
}

// parseHeader extracts version and generator information
func parseHeader(root *kicadsexp.List, sum *Summary) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return fmt.Errorf("%w: missing required 'version' field", ErrStructure)
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("%w: failed to parse version: %w", ErrStructure, err)
	}
	sum.Version = ver

	if genNode, found := sexp.FindNode(root, "generator"); found {
		sum.Generator, _ = sexp.GetString(genNode, 1)
	}
	if genVerNode, found := sexp.FindNode(root, "generator_version"); found {
		sum.GeneratorVer, _ = sexp.GetString(genVerNode, 1)
	}

	return nil
}

// parseTitleBlock extracts title block information
func parseTitleBlock(node *kicadsexp.List) TitleBlock {
	tb := TitleBlock{}

	if titleNode, found := sexp.FindNode(node, "title"); found {
		tb.Title, _ = sexp.GetString(titleNode, 1)
	}
	if dateNode, found := sexp.FindNode(node, "date"); found {
		tb.Date, _ = sexp.GetString(dateNode, 1)
	}
	if revNode, found := sexp.FindNode(node, "rev"); found {
		tb.Revision, _ = sexp.GetString(revNode, 1)
	}
	if companyNode, found := sexp.FindNode(node, "company"); found {
		tb.Company, _ = sexp.GetString(companyNode, 1)
	}
	for _, cn := range sexp.FindAllNodes(node, "comment") {
		num, _ := sexp.GetInt(cn, 1)
		text, _ := sexp.GetString(cn, 2)
		if num >= 1 && num <= len(tb.Comments) {
			tb.Comments[num-1] = text
		}
	}

	return tb
}

// parseWires parses wire connections
func parseWires(root *kicadsexp.List) []Wire {
	wireNodes := sexp.FindAllNodes(root, "wire")
	wires := make([]Wire, 0, len(wireNodes))

	for _, wn := range wireNodes {
		wire := Wire{}

		if ptsNode, found := sexp.FindNode(wn, "pts"); found {
			for _, xy := range sexp.FindAllNodes(ptsNode, "xy") {
				pos, _ := sexp.GetPositionXY(xy)
				wire.Points = append(wire.Points, pos)
			}
		}
		if strokeNode, found := sexp.FindNode(wn, "stroke"); found {
			wire.Stroke, _ = sexp.GetStroke(strokeNode)
		}
		if uuidNode, found := sexp.FindNode(wn, "uuid"); found {
			wire.UUID, _ = sexp.GetUUID(uuidNode)
		}

		wires = append(wires, wire)
	}

	return wires
}

// parseJunctions parses wire junctions
func parseJunctions(root *kicadsexp.List) []Junction {
	juncNodes := sexp.FindAllNodes(root, "junction")
	junctions := make([]Junction, 0, len(juncNodes))

	for _, jn := range juncNodes {
		junc := Junction{}

		if atNode, found := sexp.FindNode(jn, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			junc.Position = pos.Position
		}
		if diamNode, found := sexp.FindNode(jn, "diameter"); found {
			junc.Diameter, _ = sexp.GetFloat(diamNode, 1)
		}
		if uuidNode, found := sexp.FindNode(jn, "uuid"); found {
			junc.UUID, _ = sexp.GetUUID(uuidNode)
		}

		junctions = append(junctions, junc)
	}

	return junctions
}

// parseLabels parses labels of one kind
func parseLabels(root *kicadsexp.List, kind LabelKind) []Label {
	labelNodes := sexp.FindAllNodes(root, string(kind))
	labels := make([]Label, 0, len(labelNodes))

	for _, ln := range labelNodes {
		label := Label{Kind: kind}
		label.Text, _ = sexp.GetString(ln, 1)

		if shapeNode, found := sexp.FindNode(ln, "shape"); found {
			label.Shape, _ = sexp.GetString(shapeNode, 1)
		}
		if atNode, found := sexp.FindNode(ln, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			label.Position = pos.Position
			label.Angle = pos.Angle
		}
		if uuidNode, found := sexp.FindNode(ln, "uuid"); found {
			label.UUID, _ = sexp.GetUUID(uuidNode)
		}

		labels = append(labels, label)
	}

	return labels
}

// parseSheetInstances parses sheet instance paths
func parseSheetInstances(node *kicadsexp.List) []SheetInstance {
	pathNodes := sexp.FindAllNodes(node, "path")
	instances := make([]SheetInstance, 0, len(pathNodes))

	for _, pn := range pathNodes {
		inst := SheetInstance{}
		inst.Path, _ = sexp.GetString(pn, 1)

		if pageNode, found := sexp.FindNode(pn, "page"); found {
			inst.Page, _ = sexp.GetString(pageNode, 1)
		}

		instances = append(instances, inst)
	}

	return instances
}
