// Package servicedef loads service declarations (identity and per-procedure
// documentation) from YAML or JSON files.
package servicedef

// ProcedureDoc is optional documentation attached to a registered procedure.
type ProcedureDoc struct {
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Help    string `json:"help,omitempty" yaml:"help,omitempty"`
}

// Definition is the root of a service declaration file.
type Definition struct {
	Name     string `json:"name" yaml:"name"`
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Help     string `json:"help,omitempty" yaml:"help,omitempty"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// Procedures maps procedure names to documentation overriding what the
	// code registers.
	Procedures map[string]ProcedureDoc `json:"procedures,omitempty" yaml:"procedures,omitempty"`
}
