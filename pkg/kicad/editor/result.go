package editor

// Position is a placed location in mm and degrees.
type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// SymbolEntry is one row of a symbol listing.
type SymbolEntry struct {
	Reference string   `json:"reference"`
	Value     string   `json:"value"`
	LibID     string   `json:"lib_id"`
	Footprint string   `json:"footprint"`
	Position  Position `json:"position"`
}

// Step records one part of a composite operation.
type Step struct {
	Component string `json:"component"`
	Success   bool   `json:"success"`
}

// CircuitDetails describe a generated circuit.
type CircuitDetails struct {
	InputVoltage     float64  `json:"input_voltage"`
	OutputVoltage    float64  `json:"output_voltage"`
	CalculatedOutput float64  `json:"calculated_output"`
	RUpper           float64  `json:"r_upper"`
	RLower           float64  `json:"r_lower"`
	Position         Position `json:"position"`
}

// Result is the structured reply of every operation. Fields not relevant
// to an operation are left empty and omitted from JSON.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	FilePath  string `json:"file_path,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	Reference    string    `json:"reference,omitempty"`
	LibID        string    `json:"lib_id,omitempty"`
	Position     *Position `json:"position,omitempty"`
	RelativeTo   string    `json:"relative_to,omitempty"`
	Direction    string    `json:"direction,omitempty"`
	LabelType    string    `json:"label_type,omitempty"`
	Count        int       `json:"count,omitempty"`
	DeletedCount *int      `json:"deleted_count,omitempty"`
	References   []string  `json:"references,omitempty"`
	Strategy     string    `json:"strategy,omitempty"`

	Symbols    []SymbolEntry     `json:"symbols,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Libraries  []string          `json:"libraries,omitempty"`

	CircuitType string          `json:"circuit_type,omitempty"`
	Details     *CircuitDetails `json:"details,omitempty"`
	Steps       []Step          `json:"results,omitempty"`

	Format     string `json:"format,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

// Failure converts an error into a failed Result.
func Failure(err error) *Result {
	return &Result{
		Success:   false,
		Message:   err.Error(),
		ErrorKind: KindOf(err),
	}
}

func ok(message, path string) *Result {
	return &Result{Success: true, Message: message, FilePath: path}
}
