package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/team"
)

// RegisterFunction registers a Go function body under name.
func (r *Registry) RegisterFunction(name string, body kernel.FunctionBody) {
	if _, exists := r.functions[name]; exists {
		panic(fmt.Sprintf("function body with name '%s' already registered", name))
	}
	slog.Debug("Registering function body.", "name", name)
	r.functions[name] = body
}

// RegisterSource registers a managed-object source factory.
func (r *Registry) RegisterSource(name string, factory SourceFactory) {
	if _, exists := r.sources[name]; exists {
		panic(fmt.Sprintf("managed object source with name '%s' already registered", name))
	}
	slog.Debug("Registering managed object source.", "name", name)
	r.sources[name] = factory
}

// RegisterGovernance registers a governance factory.
func (r *Registry) RegisterGovernance(name string, factory GovernanceFactory) {
	if _, exists := r.governance[name]; exists {
		panic(fmt.Sprintf("governance with name '%s' already registered", name))
	}
	slog.Debug("Registering governance.", "name", name)
	r.governance[name] = factory
}

// RegisterAdministrator registers an administrator factory.
func (r *Registry) RegisterAdministrator(name string, factory AdministratorFactory) {
	if _, exists := r.administrators[name]; exists {
		panic(fmt.Sprintf("administrator with name '%s' already registered", name))
	}
	slog.Debug("Registering administrator.", "name", name)
	r.administrators[name] = factory
}

// RegisterMatcher registers an escalation matcher.
func (r *Registry) RegisterMatcher(name string, m kernel.Matcher) {
	if _, exists := r.matchers[name]; exists {
		panic(fmt.Sprintf("matcher with name '%s' already registered", name))
	}
	slog.Debug("Registering matcher.", "name", name)
	r.matchers[name] = m
}

// RegisterTeam registers a team source for a kind.
func (r *Registry) RegisterTeam(kind string, src team.Source) {
	if _, exists := r.teams[kind]; exists {
		panic(fmt.Sprintf("team kind '%s' already registered", kind))
	}
	slog.Debug("Registering team kind.", "kind", kind)
	r.teams[kind] = src
}
