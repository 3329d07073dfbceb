package registry

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// Factory builds a T from a module's input. NewInput returns a pointer to a
// struct tagged for gohcl, holding any defaults; a floor file block's own
// attributes are decoded into it before Build is called.
type Factory[T any] struct {
	NewInput func() any
	Build    func(input any) (T, error)
}

// NewFactory pairs build with its input type. defaults may be nil, in which
// case the input starts as the zero value.
func NewFactory[I, T any](defaults func() *I, build func(input *I) (T, error)) *Factory[T] {
	if defaults == nil {
		defaults = func() *I { return new(I) }
	}
	return &Factory[T]{
		NewInput: func() any { return defaults() },
		Build: func(input any) (T, error) {
			return build(input.(*I))
		},
	}
}

// Decode decodes body into a fresh input and builds from it. A nil body
// builds from the defaults alone.
func (f *Factory[T]) Decode(body hcl.Body, ctx *hcl.EvalContext) (T, error) {
	input := f.NewInput()
	if body != nil {
		if diags := gohcl.DecodeBody(body, ctx, input); diags.HasErrors() {
			var zero T
			return zero, diags
		}
	}
	return f.Build(input)
}

// DecodeParameter decodes a function parameter into target, a pointer to a
// struct tagged for mapstructure. Fields absent from the parameter keep their
// values, so target may carry defaults. Duration fields accept strings such
// as "250ms".
func DecodeParameter(parameter, target any) error {
	if parameter == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(parameter); err != nil {
		return fmt.Errorf("invalid parameter: %w", err)
	}
	return nil
}
