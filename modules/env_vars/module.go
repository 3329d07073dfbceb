// Package env_vars provides a managed-object source exposing the process
// environment as a map[string]string.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Source reads the environment when a scope first needs it.
type Source struct {
	// Prefix keeps only variables starting with it, stripped of it.
	Prefix string
}

// Source implements kernel.SyncSource.
func (s *Source) Source(ctx context.Context) (any, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if s.Prefix != "" {
			if !strings.HasPrefix(k, s.Prefix) {
				continue
			}
			k = strings.TrimPrefix(k, s.Prefix)
		}
		envMap[k] = v
	}
	return envMap, nil
}

// Input defines the arguments of an env_vars managed object.
type Input struct {
	Prefix string `hcl:"prefix,optional"`
}

// NewSource builds a source from its input.
func NewSource(input *Input) (kernel.Source, error) {
	return &Source{Prefix: input.Prefix}, nil
}

// Register registers the source.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSource("env_vars", registry.NewFactory(nil, NewSource))
}
