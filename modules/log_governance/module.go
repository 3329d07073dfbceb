// Package log_governance provides a governance that logs what it governs and
// how its activity ends, and an administrator that logs the extensions it is
// handed. Both are useful for tracing the lifecycle of a floor.
package log_governance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// ErrEnforce is returned by Enforce when the governance is configured to fail.
var ErrEnforce = errors.New("log governance configured to fail on enforce")

// Governor logs each call. It is created per thread.
type Governor struct {
	Label       string
	FailEnforce bool

	mu       sync.Mutex
	governed []any
}

// Govern implements kernel.Governor.
func (g *Governor) Govern(ctx context.Context, extension any) error {
	g.mu.Lock()
	g.governed = append(g.governed, extension)
	n := len(g.governed)
	g.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Governing managed object.", "governance", g.Label, "extension", fmt.Sprint(extension), "count", n)
	return nil
}

// Enforce implements kernel.Governor.
func (g *Governor) Enforce(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Enforcing governance.", "governance", g.Label, "governed", g.Governed())
	if g.FailEnforce {
		return ErrEnforce
	}
	return nil
}

// Disregard implements kernel.Governor.
func (g *Governor) Disregard(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Disregarding governance.", "governance", g.Label, "governed", g.Governed())
	return nil
}

// Governed returns the number of objects governed so far.
func (g *Governor) Governed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.governed)
}

// GovernanceInput defines the arguments of a log_governance block.
type GovernanceInput struct {
	Label       string `hcl:"label,optional"`
	FailEnforce bool   `hcl:"fail_enforce,optional"`
}

// AdministratorInput defines the arguments of a log_administrator block.
type AdministratorInput struct {
	Label string `hcl:"label,optional"`
}

// NewGovernance builds the governor constructor.
func NewGovernance(input *GovernanceInput) (func() kernel.Governor, error) {
	label, fail := input.Label, input.FailEnforce
	return func() kernel.Governor {
		return &Governor{Label: label, FailEnforce: fail}
	}, nil
}

// NewAdministrator builds a duty logging the extensions it receives.
func NewAdministrator(input *AdministratorInput) (func(context.Context, []any) error, error) {
	label := input.Label
	return func(ctx context.Context, extensions []any) error {
		ctxlog.FromContext(ctx).Info("Administering managed objects.", "administrator", label, "extensions", fmt.Sprint(extensions))
		return nil
	}, nil
}

// GovernanceFactory decodes and builds the governance.
func GovernanceFactory() registry.GovernanceFactory {
	return registry.NewFactory(func() *GovernanceInput { return &GovernanceInput{Label: "log"} }, NewGovernance)
}

// AdministratorFactory decodes and builds the administrator.
func AdministratorFactory() registry.AdministratorFactory {
	return registry.NewFactory(func() *AdministratorInput { return &AdministratorInput{Label: "log"} }, NewAdministrator)
}

// Register registers the governance and administrator factories.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterGovernance("log_governance", GovernanceFactory())
	r.RegisterAdministrator("log_administrator", AdministratorFactory())
}
