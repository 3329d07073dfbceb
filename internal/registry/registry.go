package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/team"
)

// Module is the interface that all modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// SourceFactory builds a managed-object source from a managed_object block.
type SourceFactory = *Factory[kernel.Source]

// GovernanceFactory builds the per-thread governor constructor from a
// governance block.
type GovernanceFactory = *Factory[func() kernel.Governor]

// AdministratorFactory builds an administrator duty from an administrator
// block.
type AdministratorFactory = *Factory[func(ctx context.Context, extensions []any) error]

// Registry holds everything modules contribute for a single application instance.
type Registry struct {
	functions      map[string]kernel.FunctionBody
	sources        map[string]SourceFactory
	governance     map[string]GovernanceFactory
	administrators map[string]AdministratorFactory
	matchers       map[string]kernel.Matcher
	teams          map[string]team.Source
}

// New creates a registry holding the built-in matchers and team kinds, then
// registers every module.
func New(modules ...Module) *Registry {
	r := &Registry{
		functions:      make(map[string]kernel.FunctionBody),
		sources:        make(map[string]SourceFactory),
		governance:     make(map[string]GovernanceFactory),
		administrators: make(map[string]AdministratorFactory),
		matchers:       make(map[string]kernel.Matcher),
		teams:          make(map[string]team.Source),
	}
	for name, m := range builtinMatchers() {
		r.RegisterMatcher(name, m)
	}
	for kind, src := range team.Builtins() {
		r.RegisterTeam(kind, src)
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// builtinMatchers are available to every floor file.
func builtinMatchers() map[string]kernel.Matcher {
	return map[string]kernel.Matcher{
		"any":     kernel.MatchAny,
		"source":  kernel.MatchAs[*kernel.SourceError](),
		"timeout": matchTimeout,
		"panic":   kernel.MatchAs[*kernel.PanicError](),
	}
}

func matchTimeout(err error) bool {
	var src *kernel.SourceTimeoutError
	var join *kernel.JoinTimeoutError
	return errors.As(err, &src) || errors.As(err, &join)
}

// ErrNotRegistered is returned by lookups for unknown names.
var ErrNotRegistered = errors.New("not registered")

func lookup[T any](m map[string]T, kind, name string) (T, error) {
	v, ok := m[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s '%s': %w (known: %v)", kind, name, ErrNotRegistered, keys(m))
	}
	return v, nil
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Function returns the named function body.
func (r *Registry) Function(name string) (kernel.FunctionBody, error) {
	return lookup(r.functions, "function body", name)
}

// Source returns the named source factory.
func (r *Registry) Source(name string) (SourceFactory, error) {
	return lookup(r.sources, "managed object source", name)
}

// Governance returns the named governance factory.
func (r *Registry) Governance(name string) (GovernanceFactory, error) {
	return lookup(r.governance, "governance", name)
}

// Administrator returns the named administrator factory.
func (r *Registry) Administrator(name string) (AdministratorFactory, error) {
	return lookup(r.administrators, "administrator", name)
}

// Matcher returns the named escalation matcher.
func (r *Registry) Matcher(name string) (kernel.Matcher, error) {
	return lookup(r.matchers, "matcher", name)
}

// Team returns the team source for a kind.
func (r *Registry) Team(kind string) (team.Source, error) {
	return lookup(r.teams, "team kind", kind)
}

// FunctionNames lists the registered function bodies.
func (r *Registry) FunctionNames() []string {
	return keys(r.functions)
}
