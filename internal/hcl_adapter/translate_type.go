package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts an HCL type expression such as `list(string)`
// into its cty.Type. The dynamic `any` type is rejected: a kind must be
// concrete so that values can be checked against it.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	ty, diags := typeexpr.Type(expr)
	if diags.HasErrors() {
		return cty.NilType, fmt.Errorf("invalid type expression: %w", diags)
	}
	ctxlog.FromContext(ctx).Debug("Parsed type expression.", "type", ty.FriendlyName())
	return ty, nil
}
