package floorfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// newEvalContext exposes the environment as the "env" object.
func newEvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && validIdentifier(k) {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// evalAny evaluates an optional expression to a Go value: string, float64,
// bool, []any, map[string]any or nil.
func evalAny(expr hcl.Expression, ctx *hcl.EvalContext) (any, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// evalDuration accepts a duration string ("250ms") or a number of milliseconds.
func evalDuration(expr hcl.Expression, ctx *hcl.EvalContext) (time.Duration, error) {
	if expr == nil {
		return 0, nil
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return 0, diags
	}
	if v.IsNull() {
		return 0, nil
	}
	sv, err := convert.Convert(v, cty.String)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %s to a duration: %w", v.Type().FriendlyName(), err)
	}
	s := sv.AsString()
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
