package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Kinds     []*kindBlock     `hcl:"kind,block"`
	Stages    []*stageBlock    `hcl:"stage,block"`
	Variables []*variableBlock `hcl:"variable,block"`
	Steps     []*stepBlock     `hcl:"step,block"`
	Outputs   []*outputBlock   `hcl:"output,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// --- Pipeline Structures ---

// argsBlock holds the content of an 'arguments' block within a step.
type argsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// stepBlock is one call of a stage. A step may carry several arguments
// blocks; their attributes are bound in order.
type stepBlock struct {
	StageType string       `hcl:"stage_type,label"`
	Name      string       `hcl:"name,label"`
	Arguments []*argsBlock `hcl:"arguments,block"`
	DependsOn []string     `hcl:"depends_on,optional"`
}

// variableBlock declares a pipeline-level input.
type variableBlock struct {
	Name        string         `hcl:"name,label"`
	Kind        string         `hcl:"kind"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    *bool          `hcl:"optional,optional"`
}

// outputBlock declares one external pipeline output.
type outputBlock struct {
	Name        string         `hcl:"name,label"`
	Value       hcl.Expression `hcl:"value"`
	FileName    string         `hcl:"file_name,optional"`
	Description string         `hcl:"description,optional"`
}

// --- Stage Manifest Structures ---

// kindBlock declares a custom data kind.
type kindBlock struct {
	Name string         `hcl:"name,label"`
	Base string         `hcl:"base,optional"`
	Type hcl.Expression `hcl:"type,optional"`
}

// lifecycleBlock maps a stage's lifecycle event to a registered Go handler.
type lifecycleBlock struct {
	OnRun string `hcl:"on_run"`
}

// inputBlock declares one input port of a stage.
type inputBlock struct {
	Name        string         `hcl:"name,label"`
	Kind        string         `hcl:"kind"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    *bool          `hcl:"optional,optional"`
}

// portBlock declares one output port of a stage.
type portBlock struct {
	Name        string `hcl:"name,label"`
	Kind        string `hcl:"kind"`
	Description string `hcl:"description,optional"`
}

// stageBlock represents the manifest of a stage.
type stageBlock struct {
	Type        string          `hcl:"type,label"`
	Description string          `hcl:"description,optional"`
	Lifecycle   *lifecycleBlock `hcl:"lifecycle,block"`
	Inputs      []*inputBlock   `hcl:"input,block"`
	Outputs     []*portBlock    `hcl:"output,block"`
}
