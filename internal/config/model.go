package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration, including all stage manifests and the pipeline.
type Model struct {
	Stages map[string]*StageDefinition
	Kinds  []*KindDefinition
	Grid   *Grid
}

// NewModel returns an empty model ready to be filled by a loader.
func NewModel() *Model {
	return &Model{
		Stages: make(map[string]*StageDefinition),
		Grid:   &Grid{},
	}
}

// Grid represents the user's pipeline declaration. Slices keep declaration
// order, which the graph builder uses as its tie-break.
type Grid struct {
	Variables []*Variable
	Steps     []*Step
	Outputs   []*Output
}

// Variable is a pipeline-level input.
type Variable struct {
	Name        string
	Kind        string
	Description string
	Default     *cty.Value
	Optional    bool
}

// Step is the format-agnostic representation of a `step` block: one call of
// a stage with its port bindings.
type Step struct {
	StageType string
	Name      string
	Arguments []*Argument
	DependsOn []string
}

// Address returns the step's identifier.
func (s *Step) Address() nodeid.Address {
	return nodeid.New(s.StageType, s.Name)
}

// Argument binds one input port of a step. A step may carry two arguments
// for the same port; the graph builder rejects that as a duplicate binding.
type Argument struct {
	Port   string
	Source binding.Source
	Range  hcl.Range
}

// Output is one external output of the pipeline.
type Output struct {
	Name        string
	Description string
	Source      binding.Source
	// FileName, when set, relocates a file-like artifact under this fixed
	// name when outputs are materialized.
	FileName string
}

// KindDefinition declares a custom data kind, either derived from an
// existing kind or carried by an explicit type.
type KindDefinition struct {
	Name string
	Base string
	// Type is cty.NilType when the kind is derived from Base.
	Type cty.Type
}

// --- Stage Manifest Models ---

// StageDefinition is the format-agnostic representation of a stage manifest.
type StageDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      []*InputDefinition
	Outputs     []*OutputDefinition
}

// Input returns the input definition called name.
func (d *StageDefinition) Input(name string) (*InputDefinition, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return nil, false
}

// Output returns the output definition called name.
func (d *StageDefinition) Output(name string) (*OutputDefinition, bool) {
	for _, out := range d.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return nil, false
}

// PortKind returns the kind of the input or output port called name.
func (d *StageDefinition) PortKind(dir kind.Direction, name string) (kind.Kind, bool) {
	if dir == kind.Out {
		if out, ok := d.Output(name); ok {
			return kind.Kind(out.Kind), true
		}
		return "", false
	}
	if in, ok := d.Input(name); ok {
		return kind.Kind(in.Kind), true
	}
	return "", false
}

// Lifecycle maps a stage's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input port of a stage.
type InputDefinition struct {
	Name        string
	Kind        string
	Description string
	// Default is supplied by the engine when the port is left unresolved.
	Default *cty.Value
	// Optional ports left unresolved reach the handler as value.Unresolved,
	// and the handler picks its own default.
	Optional bool
}

// Defaultable reports whether the port may be left unresolved.
func (d *InputDefinition) Defaultable() bool {
	return d.Default != nil || d.Optional
}

// OutputDefinition defines a single output port of a stage.
type OutputDefinition struct {
	Name        string
	Kind        string
	Description string
}
