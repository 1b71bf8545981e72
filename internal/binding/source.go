package binding

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Source is the origin of a value bound to an input port.
type Source interface {
	fmt.Stringer
	source()
}

// FromStageOutput binds a port to an output port of another step. It is the
// only kind of source that creates a dependency edge.
type FromStageOutput struct {
	Ref nodeid.PortRef
}

// FromPipelineInput binds a port to a pipeline-level input variable.
type FromPipelineInput struct {
	Name string
}

// Literal binds a port to a constant value.
type Literal struct {
	Value cty.Value
}

// Unresolved leaves a port deliberately unset so the stage uses its default.
type Unresolved struct{}

func (FromStageOutput) source()   {}
func (FromPipelineInput) source() {}
func (Literal) source()           {}
func (Unresolved) source()        {}

func (s FromStageOutput) String() string   { return s.Ref.String() }
func (s FromPipelineInput) String() string { return "var." + s.Name }
func (s Literal) String() string           { return fmt.Sprintf("literal(%s)", s.Value.GoString()) }
func (Unresolved) String() string          { return "null" }

// FromTraversal interprets an absolute traversal as a reference source.
// Accepted forms are `step.<type>.<name>.output.<port>` and `var.<name>`.
func FromTraversal(tr hcl.Traversal) (Source, error) {
	names := make([]string, 0, len(tr))
	for i, t := range tr {
		switch s := t.(type) {
		case hcl.TraverseRoot:
			names = append(names, s.Name)
		case hcl.TraverseAttr:
			names = append(names, s.Name)
		default:
			return nil, fmt.Errorf("unsupported traversal step %d in reference; indexes are not allowed", i)
		}
	}

	switch tr.RootName() {
	case "step":
		if len(names) != 5 || names[3] != "output" {
			return nil, fmt.Errorf("invalid step reference: expected format 'step.<type>.<name>.output.<port>'")
		}
		return FromStageOutput{Ref: nodeid.PortRef{
			Step: nodeid.New(names[1], names[2]),
			Port: names[4],
		}}, nil
	case "var":
		if len(names) != 2 {
			return nil, fmt.Errorf("invalid variable reference: expected format 'var.<name>'")
		}
		return FromPipelineInput{Name: names[1]}, nil
	default:
		return nil, fmt.Errorf("unknown reference root %q: only 'step' and 'var' may be referenced", tr.RootName())
	}
}

// ParseReference parses a reference written as text, e.g. in YAML.
func ParseReference(ref string) (Source, error) {
	tr, diags := hclsyntax.ParseTraversalAbs([]byte(ref), "", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid reference %q: %w", ref, diags)
	}
	src, err := FromTraversal(tr)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return src, nil
}

// FromExpression classifies an HCL expression as a Source. A bare reference
// becomes FromStageOutput or FromPipelineInput, `null` becomes Unresolved,
// and any other expression must be a constant.
func FromExpression(expr hcl.Expression) (Source, error) {
	// The keywords null, true and false also read as single-name
	// traversals, so constants are classified before references.
	if len(expr.Variables()) == 0 {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.IsNull() {
			return Unresolved{}, nil
		}
		return Literal{Value: val}, nil
	}

	if tr, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		return FromTraversal(tr)
	}
	return nil, fmt.Errorf("expression at %s must be a single reference, a constant, or null", expr.Range())
}
