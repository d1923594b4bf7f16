package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/passes"
)

// newEvalContext returns the variables and functions available to settings files.
func newEvalContext() *hcl.EvalContext {
	defaults := make([]cty.Value, 0, len(passes.DefaultNames()))
	for _, name := range passes.DefaultNames() {
		defaults = append(defaults, cty.StringVal(name))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"default_passes": cty.ListVal(defaults),
		},
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
		},
	}
}

// isExprDefined reports whether expr came from the file rather than being
// the placeholder gohcl installs for an omitted optional attribute. Such
// placeholders have a zero-width source range.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checked settings attribute.", "attribute", attrName, "range", r.String(), "defined", defined)
	return defined
}

// stringList evaluates expr as a list of strings.
func stringList(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%s: must be a list of strings: %w", expr.Range(), err)
	}
	var out []string
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
