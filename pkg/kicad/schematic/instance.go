package schematic

import (
	"fmt"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// Standard symbol fields
const (
	PropReference = "Reference"
	PropValue     = "Value"
	PropFootprint = "Footprint"
	PropDatasheet = "Datasheet"
)

// Property is one field of a placed symbol.
type Property struct {
	Name     string
	Value    string
	Position sexp.PositionAngle
	Hidden   bool

	node *kicadsexp.List
}

// PropertySet keeps a symbol's fields in file order.
type PropertySet struct {
	order  []string
	byName map[string]*Property
}

func newPropertySet() PropertySet {
	return PropertySet{byName: make(map[string]*Property)}
}

func (ps *PropertySet) add(p *Property) {
	if _, dup := ps.byName[p.Name]; dup {
		return
	}
	ps.order = append(ps.order, p.Name)
	ps.byName[p.Name] = p
}

// Get returns the named property.
func (ps PropertySet) Get(name string) (Property, bool) {
	p, ok := ps.byName[name]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// Value returns the named property's value, or "" when absent.
func (ps PropertySet) Value(name string) string {
	if p, ok := ps.byName[name]; ok {
		return p.Value
	}
	return ""
}

// Names returns the property names in file order.
func (ps PropertySet) Names() []string {
	return append([]string(nil), ps.order...)
}

// Map returns name → value.
func (ps PropertySet) Map() map[string]string {
	out := make(map[string]string, len(ps.order))
	for _, name := range ps.order {
		out[name] = ps.byName[name].Value
	}
	return out
}

func (ps PropertySet) Len() int { return len(ps.order) }

// Flags are the per-instance yes/no switches.
type Flags struct {
	ExcludeFromSim bool
	InBOM          bool
	OnBoard        bool
	DNP            bool
}

// Pin is a pin entry of a placed symbol.
type Pin struct {
	Number string
	UUID   sexp.UUID
}

// Instance is a typed view of a placed symbol node. Reads are snapshots;
// writes go through methods so the underlying node stays in sync.
type Instance struct {
	LibID      string
	UUID       sexp.UUID
	Position   sexp.PositionAngle
	Unit       int
	Flags      Flags
	Properties PropertySet
	Pins       []Pin

	node *kicadsexp.List
}

// Reference returns the Reference field.
func (i *Instance) Reference() string {
	return i.Properties.Value(PropReference)
}

// Value returns the Value field.
func (i *Instance) Value() string {
	return i.Properties.Value(PropValue)
}

// Node returns the underlying symbol node.
func (i *Instance) Node() *kicadsexp.List {
	return i.node
}

// SetProperty changes an existing field. Renaming the Reference also
// updates the reference recorded under (instances ...).
func (i *Instance) SetProperty(name, value string) error {
	p, ok := i.Properties.byName[name]
	if !ok {
		return fmt.Errorf("%w: property %q on %s", ErrNotFound, name, i.Reference())
	}

	if p.node.Len() > 2 {
		p.node.Set(2, kicadsexp.String(value))
	} else {
		p.node.Append(kicadsexp.String(value))
	}
	p.Value = value

	if name == PropReference {
		kicadsexp.Walk(i.node, func(l *kicadsexp.List) bool {
			if l.Tag() == "reference" && l.Len() > 1 {
				l.Set(1, kicadsexp.String(value))
			}
			return true
		})
	}
	return nil
}

// ParseInstance builds the typed view of a symbol node.
func ParseInstance(node *kicadsexp.List) (*Instance, error) {
	if node == nil || node.Tag() != TagSymbol {
		return nil, fmt.Errorf("%w: expected (symbol ...) node", ErrStructure)
	}
	libIDNode, ok := sexp.FindNode(node, "lib_id")
	if !ok {
		return nil, fmt.Errorf("%w: symbol has no lib_id", ErrStructure)
	}

	inst := &Instance{
		Unit:       1,
		Properties: newPropertySet(),
		node:       node,
	}
	inst.LibID, _ = sexp.GetString(libIDNode, 1)

	if atNode, ok := sexp.FindNode(node, "at"); ok {
		inst.Position, _ = sexp.GetPosition(atNode)
	}
	if unitNode, ok := sexp.FindNode(node, "unit"); ok {
		if unit, err := sexp.GetInt(unitNode, 1); err == nil {
			inst.Unit = unit
		}
	}
	if uuidNode, ok := sexp.FindNode(node, "uuid"); ok {
		inst.UUID, _ = sexp.GetUUID(uuidNode)
	}

	inst.Flags = Flags{
		ExcludeFromSim: sexp.GetFlag(node, "exclude_from_sim", false),
		InBOM:          sexp.GetFlag(node, "in_bom", true),
		OnBoard:        sexp.GetFlag(node, "on_board", true),
		DNP:            sexp.GetFlag(node, "dnp", false),
	}

	for _, pn := range sexp.FindAllNodes(node, "property") {
		prop, err := sexp.GetProperty(pn)
		if err != nil {
			continue
		}
		inst.Properties.add(&Property{
			Name:     prop.Key,
			Value:    prop.Value,
			Position: prop.Position,
			Hidden:   prop.Effects.Hide,
			node:     pn,
		})
	}

	for _, pn := range sexp.FindAllNodes(node, "pin") {
		pin := Pin{}
		pin.Number, _ = sexp.GetString(pn, 1)
		if uuidNode, ok := sexp.FindNode(pn, "uuid"); ok {
			pin.UUID, _ = sexp.GetUUID(uuidNode)
		}
		inst.Pins = append(inst.Pins, pin)
	}

	return inst, nil
}

// Instances returns every placed symbol in document order. Library
// templates inside lib_symbols are not included.
func (d *Document) Instances() []*Instance {
	var out []*Instance
	for _, node := range sexp.FindAllNodes(d.root, TagSymbol) {
		inst, err := ParseInstance(node)
		if err != nil {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// FindInstance returns the first instance whose Reference is ref.
func (d *Document) FindInstance(ref string) (*Instance, error) {
	for _, inst := range d.Instances() {
		if inst.Reference() == ref {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("%w: symbol with reference %q", ErrNotFound, ref)
}

// RemoveInstances deletes every placed symbol whose Reference is in refs
// and reports how many were removed. Templates in lib_symbols are never
// touched because they are not top-level nodes.
func (d *Document) RemoveInstances(refs []string) int {
	wanted := make(map[string]bool, len(refs))
	for _, ref := range refs {
		wanted[ref] = true
	}

	return d.root.RemoveFunc(func(item kicadsexp.Sexp) bool {
		node, ok := item.(*kicadsexp.List)
		if !ok || node.Tag() != TagSymbol {
			return false
		}
		inst, err := ParseInstance(node)
		if err != nil {
			return false
		}
		return wanted[inst.Reference()]
	})
}

// Wiring node tags removed by RemoveWiring.
var WiringTags = []string{"wire", "junction", "label", "global_label", "hierarchical_label"}

// RemoveWiring deletes every wire, junction and label and reports how many
// nodes were removed.
func (d *Document) RemoveWiring() int {
	drop := make(map[string]bool, len(WiringTags))
	for _, tag := range WiringTags {
		drop[tag] = true
	}
	return d.root.RemoveFunc(func(item kicadsexp.Sexp) bool {
		node, ok := item.(*kicadsexp.List)
		return ok && drop[node.Tag()]
	})
}
