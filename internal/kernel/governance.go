package kernel

import (
	"context"
	"fmt"
)

// governanceContainer is one active governance on a thread. It is created when
// a function first activates the governance index and discarded once enforced
// or disregarded. Guarded by the thread lock.
type governanceContainer struct {
	index    int
	meta     *Governance
	governor Governor
	governed map[*moContainer]struct{}
}

func newGovernanceContainer(index int, meta *Governance) *governanceContainer {
	return &governanceContainer{
		index:    index,
		meta:     meta,
		governor: meta.Factory(),
		governed: make(map[*moContainer]struct{}),
	}
}

// govern registers the extension of c once per container.
func (g *governanceContainer) govern(ctx context.Context, c *moContainer, extension any) error {
	if _, ok := g.governed[c]; ok {
		return nil
	}
	g.governed[c] = struct{}{}
	if err := g.governor.Govern(ctx, extension); err != nil {
		return fmt.Errorf("governance '%s' failed to govern '%s': %w", g.meta.Name, c.meta.Name, err)
	}
	return nil
}

// deactivate runs enforce or disregard per policy.
func (g *governanceContainer) deactivate(ctx context.Context, policy GovernancePolicy) error {
	if policy == GovernanceDisregard {
		if err := g.governor.Disregard(ctx); err != nil {
			return fmt.Errorf("governance '%s' failed to disregard: %w", g.meta.Name, err)
		}
		return nil
	}
	if err := g.governor.Enforce(ctx); err != nil {
		return fmt.Errorf("governance '%s' failed to enforce: %w", g.meta.Name, err)
	}
	return nil
}

// administratorContainer runs an administrator's duty for one thread.
type administratorContainer struct {
	index int
	meta  *Administrator
}

func (a *administratorContainer) administer(ctx context.Context, extensions []any) error {
	if err := a.meta.Duty(ctx, extensions); err != nil {
		return fmt.Errorf("administrator '%s' duty failed: %w", a.meta.Name, err)
	}
	return nil
}
