package print

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Print logs its parameter and passes it on unchanged, so it can sit anywhere
// in a Next chain.
func Print(fc *kernel.FunctionContext) (any, error) {
	logger := fc.Logger()
	param := fc.Parameter()

	if m, ok := param.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, m[k]))
		}
		logger.Info("Printing parameter", "value", strings.Join(pairs, " "))
		return param, nil
	}
	if param == nil {
		logger.Info("Printing parameter", "value", "(null)")
		return nil, nil
	}
	logger.Info("Printing parameter", "value", param)
	return param, nil
}

// Register registers the function body.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("print", Print)
}
