package binding

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestFromExpression(t *testing.T) {
	testCases := []struct {
		name      string
		expr      string
		expected  Source
		expectErr string
	}{
		{
			name: "step output reference",
			expr: "step.aggregate.main.output.matrix_h5",
			expected: FromStageOutput{Ref: nodeid.PortRef{
				Step: nodeid.New("aggregate", "main"),
				Port: "matrix_h5",
			}},
		},
		{
			name:     "pipeline input reference",
			expr:     "var.sample_id",
			expected: FromPipelineInput{Name: "sample_id"},
		},
		{
			name:     "null is unresolved",
			expr:     "null",
			expected: Unresolved{},
		},
		{
			name:     "string literal",
			expr:     `"mapped"`,
			expected: Literal{Value: cty.StringVal("mapped")},
		},
		{
			name:     "bool literal",
			expr:     "true",
			expected: Literal{Value: cty.True},
		},
		{
			name:     "false literal",
			expr:     "false",
			expected: Literal{Value: cty.False},
		},
		{
			name:     "number literal",
			expr:     "3",
			expected: Literal{Value: cty.NumberIntVal(3)},
		},
		{
			name:     "constant list",
			expr:     `["a", "b"]`,
			expected: Literal{Value: cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})},
		},
		{
			name:      "interpolated reference",
			expr:      `"${var.sample_id}-x"`,
			expectErr: "single reference",
		},
		{
			name:      "unknown root",
			expr:      "local.x",
			expectErr: "unknown reference root",
		},
		{
			name:      "step reference without output segment",
			expr:      "step.aggregate.main.matrix",
			expectErr: "invalid step reference",
		},
		{
			name:      "indexed reference",
			expr:      "step.aggregate.main.output.files[0]",
			expectErr: "indexes are not allowed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := FromExpression(parseExpr(t, tc.expr))
			if tc.expectErr != "" {
				require.ErrorContains(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, src)
		})
	}
}

func TestParseReference(t *testing.T) {
	src, err := ParseReference("step.parse_csv.manifest.output.libraries")
	require.NoError(t, err)
	assert.Equal(t, "step.parse_csv.manifest.output.libraries", src.String())

	_, err = ParseReference("not a reference")
	require.Error(t, err)
}
