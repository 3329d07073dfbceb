// Package fail provides function bodies for exercising escalation: "fail"
// returns an error and "log_error" handles one.
package fail

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// ErrFailed is wrapped by every error returned from Fail.
var ErrFailed = errors.New("function failed")

// Fail returns an error built from the parameter: a string, or an object with
// a "message" property.
func Fail(fc *kernel.FunctionContext) (any, error) {
	message := "failure requested"
	switch p := fc.Parameter().(type) {
	case string:
		message = p
	case map[string]any:
		in := struct {
			Message string `mapstructure:"message"`
		}{Message: message}
		if err := registry.DecodeParameter(p, &in); err != nil {
			return nil, err
		}
		message = in.Message
	}
	return nil, fmt.Errorf("%w: %s", ErrFailed, message)
}

// LogError is an escalation handler. It logs the escalated error it receives
// as parameter and completes normally, which marks the failure handled.
func LogError(fc *kernel.FunctionContext) (any, error) {
	err, _ := fc.Parameter().(error)
	fc.Logger().Warn("Escalation handled.", "error", err)
	return nil, nil
}

// Register registers the function bodies.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("fail", Fail)
	r.RegisterFunction("log_error", LogError)
}
