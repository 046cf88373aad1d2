package editor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/placement"
	"github.com/OpenTraceLab/schedit/pkg/kicad/schematic"
	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp"
	"github.com/OpenTraceLab/schedit/pkg/kicad/wiring"
)

// CircuitVoltageDivider is the only generated circuit so far.
const CircuitVoltageDivider = "voltage_divider"

// CircuitTypes lists the circuits CreateCircuit can build.
func CircuitTypes() []string {
	return []string{CircuitVoltageDivider}
}

// Voltage divider parameter names and defaults. Resistances are in kΩ.
const (
	ParamInputVoltage  = "input_voltage"
	ParamOutputVoltage = "output_voltage"
	ParamPositionX     = "position_x"
	ParamPositionY     = "position_y"
	ParamRUpper        = "r_upper"
	ParamRLower        = "r_lower"
)

var dividerDefaults = map[string]float64{
	ParamInputVoltage:  5,
	ParamOutputVoltage: 3,
	ParamPositionX:     120,
	ParamPositionY:     80,
	ParamRUpper:        10,
}

const dividerFootprint = "Resistor_SMD:R_0603_1608Metric"

// CreateCircuitRequest builds a predefined circuit.
type CreateCircuitRequest struct {
	Target
	CircuitType string
	Parameters  map[string]float64
}

// CreateCircuit builds a predefined circuit into the schematic. Either
// every part is added or the file is left untouched.
func (e *Editor) CreateCircuit(req CreateCircuitRequest) (*Result, error) {
	switch req.CircuitType {
	case CircuitVoltageDivider:
		return e.voltageDivider(req)
	case "":
		return nil, fmt.Errorf("%w: circuit_type is required", schematic.ErrInvalidArgument)
	}
	return nil, fmt.Errorf("%w: unknown circuit type %q (supported: %s)",
		schematic.ErrInvalidArgument, req.CircuitType, strings.Join(CircuitTypes(), ", "))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// divider holds the resolved parameters of a voltage divider.
type divider struct {
	vin, vout    float64
	x, y         float64
	rUpper, rLow float64
}

func resolveDivider(params map[string]float64) (divider, error) {
	var unknown []string
	for k := range params {
		if _, ok := dividerDefaults[k]; !ok && k != ParamRLower {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return divider{}, fmt.Errorf("%w: unknown voltage divider parameters %s", schematic.ErrInvalidArgument, strings.Join(unknown, ", "))
	}

	get := func(k string) float64 {
		if v, ok := params[k]; ok {
			return v
		}
		return dividerDefaults[k]
	}
	d := divider{
		vin:    get(ParamInputVoltage),
		vout:   get(ParamOutputVoltage),
		x:      get(ParamPositionX),
		y:      get(ParamPositionY),
		rUpper: get(ParamRUpper),
	}
	if d.rUpper <= 0 {
		return divider{}, fmt.Errorf("%w: r_upper must be positive", schematic.ErrInvalidArgument)
	}

	if rl, ok := params[ParamRLower]; ok {
		if rl <= 0 {
			return divider{}, fmt.Errorf("%w: r_lower must be positive", schematic.ErrInvalidArgument)
		}
		d.rLow = rl
	} else {
		if d.vout <= 0 || d.vout >= d.vin {
			return divider{}, fmt.Errorf("%w: output voltage must lie between 0 and the input voltage (got %g V from %g V)",
				schematic.ErrInvalidArgument, d.vout, d.vin)
		}
		d.rLow = d.vout * d.rUpper / (d.vin - d.vout)
	}
	return d, nil
}

func (e *Editor) voltageDivider(req CreateCircuitRequest) (*Result, error) {
	d, err := resolveDivider(req.Parameters)
	if err != nil {
		return nil, err
	}

	x, y := d.x, d.y
	tag := fmt.Sprintf("%d_%d", int(x), int(y))
	parts := []struct {
		name string
		p    placement.Params
	}{
		{"VCC power symbol", placement.Params{
			LibID: "power:+5V", Reference: "#PWR_VCC_" + tag, Value: "+" + formatNumber(d.vin) + "V",
			Position: sexp.Position{X: x, Y: y - 20},
		}},
		{fmt.Sprintf("Upper resistor (%sk)", formatNumber(d.rUpper)), placement.Params{
			LibID: "Device:R", Reference: "R_upper_" + tag, Value: formatNumber(d.rUpper) + "k",
			Position: sexp.Position{X: x, Y: y}, Rotation: 90, Footprint: dividerFootprint,
		}},
		{fmt.Sprintf("Lower resistor (%.1fk)", d.rLow), placement.Params{
			LibID: "Device:R", Reference: "R_lower_" + tag, Value: fmt.Sprintf("%.1fk", d.rLow),
			Position: sexp.Position{X: x, Y: y + 20}, Rotation: 90, Footprint: dividerFootprint,
		}},
		{"GND power symbol", placement.Params{
			LibID: "power:GND", Reference: "#PWR_GND_" + tag, Value: "GND",
			Position: sexp.Position{X: x, Y: y + 40},
		}},
	}
	wires := []struct {
		name       string
		start, end sexp.Position
	}{
		{"Wire VCC→R_upper", sexp.Position{X: x, Y: y - 20}, sexp.Position{X: x, Y: y - 5}},
		{"Wire R_upper→R_lower", sexp.Position{X: x, Y: y + 5}, sexp.Position{X: x, Y: y + 15}},
		{"Wire R_lower→GND", sexp.Position{X: x, Y: y + 25}, sexp.Position{X: x, Y: y + 40}},
		{"Output tap wire", sexp.Position{X: x, Y: y + 5}, sexp.Position{X: x + 15, Y: y + 10}},
	}
	labels := []struct {
		name string
		p    wiring.LabelParams
	}{
		{"VCC label", wiring.LabelParams{Text: "VCC", Position: sexp.Position{X: x + 5, Y: y - 20}}},
		{"VOUT label", wiring.LabelParams{Text: "VOUT", Position: sexp.Position{X: x + 20, Y: y + 10}}},
		{"GND label", wiring.LabelParams{Text: "GND", Position: sexp.Position{X: x + 5, Y: y + 40}}},
	}

	var steps []Step
	path, err := e.edit(req.Target, func(doc *schematic.Document) error {
		project := placement.ResolveProjectUUID(doc)
		for _, part := range parts {
			part.p.ProjectUUID = project
			if _, err := e.placer.Place(doc, part.p); err != nil {
				return fmt.Errorf("%s: %w", part.name, err)
			}
			steps = append(steps, Step{Component: part.name, Success: true})
		}
		for _, w := range wires {
			if _, err := wiring.AddWire(doc, w.start, w.end); err != nil {
				return fmt.Errorf("%s: %w", w.name, err)
			}
			steps = append(steps, Step{Component: w.name, Success: true})
		}
		for _, l := range labels {
			if _, err := wiring.AddLabel(doc, l.p); err != nil {
				return fmt.Errorf("%s: %w", l.name, err)
			}
			steps = append(steps, Step{Component: l.name, Success: true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("created circuit",
		zap.String("file", path),
		zap.String("circuit", CircuitVoltageDivider),
		zap.Float64("r_upper", d.rUpper),
		zap.Float64("r_lower", d.rLow))

	res := ok(fmt.Sprintf("Created %s circuit successfully", CircuitVoltageDivider), path)
	res.CircuitType = CircuitVoltageDivider
	res.Details = &CircuitDetails{
		InputVoltage:     d.vin,
		OutputVoltage:    d.vout,
		CalculatedOutput: math.Round(d.vin*d.rLow/(d.rUpper+d.rLow)*100) / 100,
		RUpper:           d.rUpper,
		RLower:           math.Round(d.rLow*10) / 10,
		Position:         Position{X: x, Y: y},
	}
	res.Steps = steps
	return res, nil
}
