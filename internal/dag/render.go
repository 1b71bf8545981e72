package dag

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Render writes the graph back out as HCL, with steps in execution order and
// every input port bound explicitly. Pipeline inputs are written with their
// resolved values as defaults. Dependencies, whether they came from data
// references or depends_on, are listed in depends_on. Together with the stage
// manifests, the result loads back into an equivalent graph.
func (g *ExecutionGraph) Render() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.AppendUnstructuredTokens(comment("Resolved execution plan. Blocks appear in execution order."))
	body.AppendNewline()

	names := make([]string, 0, len(g.InputKinds))
	for name := range g.InputKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vb := body.AppendNewBlock("variable", []string{name}).Body()
		vb.SetAttributeValue("kind", cty.StringVal(string(g.InputKinds[name])))
		if v, ok := g.Inputs[name]; ok && !v.IsUnresolved() {
			vb.SetAttributeValue("default", v.Cty())
		} else {
			vb.SetAttributeValue("optional", cty.True)
		}
		body.AppendNewline()
	}

	for pos, idx := range g.Order {
		s := g.Stages[idx]
		body.AppendUnstructuredTokens(comment(fmt.Sprintf("%d/%d", pos+1, len(g.Order))))
		blk := body.AppendNewBlock("step", []string{s.Addr.StageType, s.Addr.Name})
		sb := blk.Body()

		if len(s.Bindings) > 0 {
			args := sb.AppendNewBlock("arguments", nil).Body()
			for _, bnd := range s.Bindings {
				setSource(args, bnd.Target.Port, bnd.Source)
			}
		}
		if len(s.Deps) > 0 {
			deps := make([]cty.Value, len(s.Deps))
			for i, d := range s.Deps {
				deps[i] = cty.StringVal(g.Stages[d].Addr.String())
			}
			sb.SetAttributeValue("depends_on", cty.ListVal(deps))
		}
		body.AppendNewline()
	}

	for _, o := range g.Outputs {
		blk := body.AppendNewBlock("output", []string{o.Name})
		setSource(blk.Body(), "value", o.Source)
		if o.FileName != "" {
			blk.Body().SetAttributeValue("file_name", cty.StringVal(o.FileName))
		}
		body.AppendNewline()
	}

	return f.Bytes()
}

func setSource(body *hclwrite.Body, name string, src binding.Source) {
	switch s := src.(type) {
	case binding.FromStageOutput:
		body.SetAttributeTraversal(name, stepTraversal(s.Ref))
	case binding.FromPipelineInput:
		body.SetAttributeTraversal(name, hcl.Traversal{
			hcl.TraverseRoot{Name: "var"},
			hcl.TraverseAttr{Name: s.Name},
		})
	case binding.Literal:
		body.SetAttributeValue(name, s.Value)
	default:
		body.SetAttributeValue(name, cty.NullVal(cty.DynamicPseudoType))
	}
}

func stepTraversal(ref nodeid.PortRef) hcl.Traversal {
	return hcl.Traversal{
		hcl.TraverseRoot{Name: "step"},
		hcl.TraverseAttr{Name: ref.Step.StageType},
		hcl.TraverseAttr{Name: ref.Step.Name},
		hcl.TraverseAttr{Name: "output"},
		hcl.TraverseAttr{Name: ref.Port},
	}
}

func comment(text string) hclwrite.Tokens {
	return hclwrite.Tokens{
		{Type: hclsyntax.TokenComment, Bytes: []byte("# " + text + "\n")},
	}
}
