package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/schedit/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// FindNode searches the direct children of l for a list tagged key.
// Example: FindNode(symbol, "at") finds (at 100 50 0)
func FindNode(l *kicadsexp.List, key string) (*kicadsexp.List, bool) {
	if l == nil {
		return nil, false
	}
	for _, item := range l.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Tag() == key {
			return sub, true
		}
	}
	return nil, false
}

// FindAllNodes finds all direct children tagged key
func FindAllNodes(l *kicadsexp.List, key string) []*kicadsexp.List {
	var results []*kicadsexp.List
	if l == nil {
		return results
	}
	for _, item := range l.Items() {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Tag() == key {
			results = append(results, sub)
		}
	}
	return results
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((justify left bottom)) returns [left, bottom]
func GetListItems(l *kicadsexp.List) []kicadsexp.Sexp {
	if l == nil || l.Len() <= 1 {
		return []kicadsexp.Sexp{}
	}
	return l.Items()[1:]
}

// Typed value extraction helpers

// GetString extracts the text of the atom at index. Quoted strings, bare
// symbols and numbers (as written) are all accepted.
// Index 0 is the key, 1 is first value, etc.
func GetString(l *kicadsexp.List, index int) (string, error) {
	if l == nil {
		return "", fmt.Errorf("expected list, got nil")
	}
	if index < 0 || index >= l.Len() {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, l.Len())
	}

	switch v := l.Get(index).(type) {
	case kicadsexp.String:
		return string(v), nil
	case kicadsexp.Symbol:
		return string(v), nil
	case kicadsexp.Number:
		return v.Raw, nil
	default:
		return "", fmt.Errorf("expected atom at index %d, got %T", index, v)
	}
}

// GetQuotedString extracts a value that must be a quoted string.
func GetQuotedString(l *kicadsexp.List, index int) (string, error) {
	if l == nil {
		return "", fmt.Errorf("expected list, got nil")
	}
	s, ok := l.Get(index).(kicadsexp.String)
	if !ok {
		return "", fmt.Errorf("expected quoted string at index %d, got %T", index, l.Get(index))
	}
	return string(s), nil
}

// GetFloat extracts a float64 value at the given index
func GetFloat(l *kicadsexp.List, index int) (float64, error) {
	if l != nil {
		if n, ok := l.Get(index).(kicadsexp.Number); ok {
			return n.Value, nil
		}
	}

	str, err := GetString(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(l *kicadsexp.List, index int) (int, error) {
	str, err := GetString(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// Domain-specific extraction helpers

// GetPosition extracts a PositionAngle from an (at X Y [angle]) node.
// Schematic files store millimetres and degrees directly.
func GetPosition(l *kicadsexp.List) (PositionAngle, error) {
	if l == nil || l.Tag() != "at" {
		return PositionAngle{}, fmt.Errorf("expected (at X Y [angle]) list")
	}

	x, err := GetFloat(l, 1)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}
	y, err := GetFloat(l, 2)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}

	result := PositionAngle{Position: Position{X: x, Y: y}}
	// angle is optional
	if angle, err := GetFloat(l, 3); err == nil {
		result.Angle = Angle(angle)
	}
	return result, nil
}

// GetPositionXY extracts just X,Y coordinates from (keyword X Y) nodes
// such as (xy X Y) or (start X Y).
func GetPositionXY(l *kicadsexp.List) (Position, error) {
	x, err := GetFloat(l, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}
	y, err := GetFloat(l, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}
	return Position{X: x, Y: y}, nil
}

// GetStroke extracts stroke properties from (stroke ...) node
// Format: (stroke (width W) (type default|solid|dash|dot) [(color R G B A)])
func GetStroke(l *kicadsexp.List) (Stroke, error) {
	stroke := Stroke{Type: "default"}
	if l == nil {
		return stroke, fmt.Errorf("expected (stroke ...) list")
	}

	if widthNode, ok := FindNode(l, "width"); ok {
		if width, err := GetFloat(widthNode, 1); err == nil {
			stroke.Width = width
		}
	}
	if typeNode, ok := FindNode(l, "type"); ok {
		if strokeType, err := GetString(typeNode, 1); err == nil {
			stroke.Type = strokeType
		}
	}
	if colorNode, ok := FindNode(l, "color"); ok {
		if color, err := GetColor(colorNode); err == nil {
			stroke.Color = color
		}
	}
	return stroke, nil
}

// GetColor extracts RGBA color from (color R G B [A]) node.
// RGB are 0-255 in the file, alpha is already 0-1.
func GetColor(l *kicadsexp.List) (Color, error) {
	color := Color{A: 1.0}

	r, err := GetFloat(l, 1)
	if err != nil {
		return color, fmt.Errorf("failed to parse R: %w", err)
	}
	g, err := GetFloat(l, 2)
	if err != nil {
		return color, fmt.Errorf("failed to parse G: %w", err)
	}
	b, err := GetFloat(l, 3)
	if err != nil {
		return color, fmt.Errorf("failed to parse B: %w", err)
	}

	color.R = r / 255.0
	color.G = g / 255.0
	color.B = b / 255.0
	if a, err := GetFloat(l, 4); err == nil {
		color.A = a
	}
	return color, nil
}

// HasSymbol checks if a list directly contains a specific bare symbol
func HasSymbol(l *kicadsexp.List, symbol string) bool {
	if l == nil {
		return false
	}
	for _, item := range l.Items() {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// GetFlag reads a (key yes|no) child. KiCad 7 files sometimes write the
// bare form (key) or a lone symbol, both of which count as yes. A missing
// flag yields def.
func GetFlag(l *kicadsexp.List, key string, def bool) bool {
	if node, ok := FindNode(l, key); ok {
		if node.Len() == 1 {
			return true
		}
		v, _ := GetString(node, 1)
		return v == "yes"
	}
	if HasSymbol(l, key) {
		return true
	}
	return def
}

// GetUUID extracts a UUID from a (uuid ...) node. Both the quoted form
// written by KiCad 8 and the bare form of older files are accepted.
func GetUUID(l *kicadsexp.List) (UUID, error) {
	if l == nil || l.Tag() != "uuid" {
		return "", fmt.Errorf("expected 'uuid' node")
	}
	id, err := GetString(l, 1)
	if err != nil {
		return "", err
	}
	return UUID(id), nil
}

// GetEffects extracts text effects from an (effects ...) node
func GetEffects(l *kicadsexp.List) (Effects, error) {
	effects := Effects{}
	if l == nil {
		return effects, fmt.Errorf("expected (effects ...) list")
	}

	if fontNode, ok := FindNode(l, "font"); ok {
		effects.Font = GetFont(fontNode)
	}
	if justifyNode, ok := FindNode(l, "justify"); ok {
		effects.Justify = GetJustify(justifyNode)
	} else {
		effects.Justify = Justify{Horizontal: "center", Vertical: "center"}
	}
	effects.Hide = GetFlag(l, "hide", false)
	return effects, nil
}

// GetFont extracts font properties from a (font ...) node
func GetFont(l *kicadsexp.List) Font {
	font := Font{}
	if sizeNode, ok := FindNode(l, "size"); ok {
		w, _ := GetFloat(sizeNode, 1)
		h, _ := GetFloat(sizeNode, 2)
		font.Size = Size{Width: w, Height: h}
	}
	font.Bold = GetFlag(l, "bold", false)
	font.Italic = GetFlag(l, "italic", false)
	return font
}

// GetJustify extracts justification from a (justify ...) node
func GetJustify(l *kicadsexp.List) Justify {
	justify := Justify{
		Horizontal: "center",
		Vertical:   "center",
	}
	for _, item := range GetListItems(l) {
		sym, ok := item.(kicadsexp.Symbol)
		if !ok {
			continue
		}
		switch string(sym) {
		case "left", "right":
			justify.Horizontal = string(sym)
		case "top", "bottom":
			justify.Vertical = string(sym)
		case "mirror":
			justify.Mirror = true
		}
	}
	return justify
}

// GetProperty extracts a property from a (property "key" "value" ...) node
func GetProperty(l *kicadsexp.List) (Property, error) {
	prop := Property{}
	if l == nil || l.Tag() != "property" {
		return prop, fmt.Errorf("expected (property ...) list")
	}

	key, err := GetString(l, 1)
	if err != nil {
		return prop, fmt.Errorf("failed to parse property key: %w", err)
	}
	prop.Key = key

	// value can be missing in hand-edited files
	prop.Value, _ = GetString(l, 2)

	if atNode, ok := FindNode(l, "at"); ok {
		if pos, err := GetPosition(atNode); err == nil {
			prop.Position = pos
		}
	}
	if effectsNode, ok := FindNode(l, "effects"); ok {
		if effects, err := GetEffects(effectsNode); err == nil {
			prop.Effects = effects
		}
	}
	return prop, nil
}
