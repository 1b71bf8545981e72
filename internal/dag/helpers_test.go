package dag

import (
	"context"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// fixture assembles a model and registry for graph construction tests.
type fixture struct {
	model *config.Model
	reg   *registry.Registry
	kinds *kind.Registry
}

func newFixture() *fixture {
	f := &fixture{
		model: config.NewModel(),
		reg:   registry.New(),
		kinds: kind.NewRegistry(),
	}
	noop := registry.HandlerFunc(func(context.Context, *registry.Request) (map[string]cty.Value, error) {
		return map[string]cty.Value{}, nil
	})
	f.reg.RegisterHandler("noop", noop)

	// relay: in(string) -> out(string)
	f.stage(&config.StageDefinition{
		Type:    "relay",
		Inputs:  []*config.InputDefinition{{Name: "in", Kind: "string"}},
		Outputs: []*config.OutputDefinition{{Name: "out", Kind: "string"}},
	})
	// join: left(string), right(string) -> out(string)
	f.stage(&config.StageDefinition{
		Type: "join",
		Inputs: []*config.InputDefinition{
			{Name: "left", Kind: "string"},
			{Name: "right", Kind: "string"},
		},
		Outputs: []*config.OutputDefinition{{Name: "out", Kind: "string"}},
	})
	// count: n(int) with an engine default -> total(int)
	def := cty.NumberIntVal(3)
	f.stage(&config.StageDefinition{
		Type: "count",
		Inputs: []*config.InputDefinition{
			{Name: "n", Kind: "int", Default: &def},
			{Name: "label", Kind: "string", Optional: true},
		},
		Outputs: []*config.OutputDefinition{{Name: "total", Kind: "int"}},
	})
	return f
}

func (f *fixture) stage(def *config.StageDefinition) {
	def.Lifecycle = &config.Lifecycle{OnRun: "noop"}
	f.model.Stages[def.Type] = def
	f.reg.DefinitionRegistry[def.Type] = def
}

func (f *fixture) step(stageType, name string, args ...*config.Argument) *config.Step {
	s := &config.Step{StageType: stageType, Name: name, Arguments: args}
	f.model.Grid.Steps = append(f.model.Grid.Steps, s)
	return s
}

func (f *fixture) variable(name, k string) *config.Variable {
	v := &config.Variable{Name: name, Kind: k}
	f.model.Grid.Variables = append(f.model.Grid.Variables, v)
	return v
}

func (f *fixture) build(t *testing.T, provided map[string]cty.Value) (*ExecutionGraph, error) {
	t.Helper()
	return Build(context.Background(), f.model, f.reg, f.kinds, provided)
}

func ref(stageType, name, port string) binding.Source {
	return binding.FromStageOutput{Ref: nodeid.PortRef{Step: nodeid.New(stageType, name), Port: port}}
}

func arg(port string, src binding.Source) *config.Argument {
	return &config.Argument{Port: port, Source: src}
}

func lit(s string) binding.Source {
	return binding.Literal{Value: cty.StringVal(s)}
}
