package floorfile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/fsutil"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// DefaultOfficeName is used when no office block names the office.
const DefaultOfficeName = "office"

// TeamSpec describes a team to build before the office is created.
type TeamSpec struct {
	Name string
	Kind string
	Size int
}

// Invocation is a process to invoke once the office has started.
type Invocation struct {
	Function  string
	Parameter any
	Delay     time.Duration
}

// Floor is the result of loading floor files.
type Floor struct {
	Office      *kernel.OfficeMetaData
	Teams       []TeamSpec
	Invocations []Invocation
	Files       []string
}

// Loader turns floor files into kernel meta-data, resolving Go code by name.
type Loader struct {
	registry *registry.Registry
}

// NewLoader creates a loader resolving names against reg.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{registry: reg}
}

// Load parses every .hcl file under paths and merges their blocks into one floor.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Floor, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Floor loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no floor files found in %v", paths)
	}
	logger.Debug("Discovered floor files.", "count", len(files))

	parser := hclparse.NewParser()
	var merged fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := decodeInto(&merged, hclFile, file); err != nil {
			return nil, err
		}
	}

	floor, err := l.translate(ctx, &merged)
	if err != nil {
		return nil, err
	}
	floor.Files = files
	return floor, nil
}

// Parse loads a single floor file held in memory.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*Floor, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var root fileRoot
	if err := decodeInto(&root, hclFile, filename); err != nil {
		return nil, err
	}
	floor, err := l.translate(ctx, &root)
	if err != nil {
		return nil, err
	}
	floor.Files = []string{filename}
	return floor, nil
}

func decodeInto(merged *fileRoot, file *hcl.File, name string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, newEvalContext(), &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}
	merged.Offices = append(merged.Offices, root.Offices...)
	merged.Teams = append(merged.Teams, root.Teams...)
	merged.ManagedObjects = append(merged.ManagedObjects, root.ManagedObjects...)
	merged.Governance = append(merged.Governance, root.Governance...)
	merged.Administrators = append(merged.Administrators, root.Administrators...)
	merged.Functions = append(merged.Functions, root.Functions...)
	merged.Escalations = append(merged.Escalations, root.Escalations...)
	merged.Invocations = append(merged.Invocations, root.Invocations...)
	return nil
}

// translate resolves every block. Errors are collected so that one run reports
// every problem in the floor.
func (l *Loader) translate(ctx context.Context, root *fileRoot) (*Floor, error) {
	evalCtx := newEvalContext()
	meta := &kernel.OfficeMetaData{Name: DefaultOfficeName}
	floor := &Floor{Office: meta}
	var errs []error

	if len(root.Offices) > 1 {
		errs = append(errs, fmt.Errorf("at most one office block is allowed, found %d", len(root.Offices)))
	}
	if len(root.Offices) > 0 {
		errs = append(errs, translateOffice(root.Offices[0], meta, evalCtx)...)
	}

	teams := make(map[string]struct{})
	for _, b := range root.Teams {
		if _, dup := teams[b.Name]; dup {
			errs = append(errs, fmt.Errorf("team '%s' is declared twice", b.Name))
			continue
		}
		teams[b.Name] = struct{}{}
		if _, err := l.registry.Team(b.Kind); err != nil {
			errs = append(errs, fmt.Errorf("team '%s': %w", b.Name, err))
			continue
		}
		floor.Teams = append(floor.Teams, TeamSpec{Name: b.Name, Kind: b.Kind, Size: b.Size})
	}

	moIndex := make(map[string]int)
	for _, b := range root.ManagedObjects {
		mo, err := l.translateManagedObject(b, evalCtx)
		if err != nil {
			errs = append(errs, fmt.Errorf("managed_object '%s': %w", b.Name, err))
			continue
		}
		if _, dup := moIndex[b.Name]; dup {
			errs = append(errs, fmt.Errorf("managed_object '%s' is declared twice", b.Name))
			continue
		}
		moIndex[b.Name] = len(meta.ManagedObjects)
		meta.ManagedObjects = append(meta.ManagedObjects, mo)
	}

	govIndex := make(map[string]int)
	for _, b := range root.Governance {
		factory, err := l.registry.Governance(b.Factory)
		if err == nil {
			var ctor func() kernel.Governor
			if ctor, err = factory.Decode(b.Props, evalCtx); err == nil {
				govIndex[b.Name] = len(meta.Governance)
				meta.Governance = append(meta.Governance, &kernel.Governance{Name: b.Name, Extension: b.Extension, Factory: ctor})
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("governance '%s': %w", b.Name, err))
		}
	}

	adminIndex := make(map[string]int)
	for _, b := range root.Administrators {
		factory, err := l.registry.Administrator(b.Factory)
		if err == nil {
			var duty func(context.Context, []any) error
			if duty, err = factory.Decode(b.Props, evalCtx); err == nil {
				adminIndex[b.Name] = len(meta.Administrators)
				meta.Administrators = append(meta.Administrators, &kernel.Administrator{Name: b.Name, Extension: b.Extension, Duty: duty})
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("administrator '%s': %w", b.Name, err))
		}
	}

	for _, b := range root.Functions {
		fn, ferrs := l.translateFunction(b, moIndex, govIndex, adminIndex)
		errs = append(errs, ferrs...)
		if fn != nil {
			meta.Functions = append(meta.Functions, fn)
		}
	}

	if err := detectNextCycles(meta.Functions); err != nil {
		errs = append(errs, err)
	}

	proc, perrs := l.translateEscalations("office", root.Escalations)
	meta.Escalations = proc
	errs = append(errs, perrs...)

	for _, b := range root.Invocations {
		param, err := evalAny(b.Parameter, evalCtx)
		if err != nil {
			errs = append(errs, fmt.Errorf("invoke '%s' parameter: %w", b.Function, err))
			continue
		}
		delay, err := evalDuration(b.Delay, evalCtx)
		if err != nil {
			errs = append(errs, fmt.Errorf("invoke '%s' delay: %w", b.Function, err))
			continue
		}
		floor.Invocations = append(floor.Invocations, Invocation{Function: b.Function, Parameter: param, Delay: delay})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Floor loading complete.",
		"office", meta.Name,
		"teams", len(floor.Teams),
		"functions", len(meta.Functions),
		"managed_objects", len(meta.ManagedObjects),
		"invocations", len(floor.Invocations),
	)
	return floor, nil
}

func translateOffice(b *officeBlock, meta *kernel.OfficeMetaData, evalCtx *hcl.EvalContext) []error {
	var errs []error
	if b.Name != "" {
		meta.Name = b.Name
	}
	meta.DefaultTeam = b.DefaultTeam
	policy, err := ParsePolicy(b.GovernancePolicy)
	if err != nil {
		errs = append(errs, fmt.Errorf("office: %w", err))
	}
	meta.GovernancePolicy = policy
	interval, err := evalDuration(b.AssetCheckInterval, evalCtx)
	if err != nil {
		errs = append(errs, fmt.Errorf("office asset_check_interval: %w", err))
	}
	meta.CheckInterval = interval
	return errs
}

func (l *Loader) translateManagedObject(b *managedObjectBlock, evalCtx *hcl.EvalContext) (*kernel.ManagedObject, error) {
	scope, err := ParseScope(b.Scope)
	if err != nil {
		return nil, err
	}
	timeout, err := evalDuration(b.Timeout, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	mo := &kernel.ManagedObject{Name: b.Name, Scope: scope, Timeout: timeout}
	if b.Source == "" {
		// Input slot, filled from the object passed with the invocation.
		return mo, nil
	}
	factory, err := l.registry.Source(b.Source)
	if err != nil {
		return nil, err
	}
	if mo.Source, err = factory.Decode(b.Props, evalCtx); err != nil {
		return nil, fmt.Errorf("source '%s': %w", b.Source, err)
	}
	return mo, nil
}

func (l *Loader) translateFunction(b *functionBlock, mos, govs, admins map[string]int) (*kernel.Function, []error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("function '%s': "+format, append([]any{b.Name}, args...)...))
	}

	fn := &kernel.Function{Name: b.Name, Team: b.Team, Next: b.Next}
	if b.Body != "" {
		body, err := l.registry.Function(b.Body)
		if err != nil {
			fail("%w", err)
		}
		fn.Body = body
	}
	policy, err := ParsePolicy(b.ThreadPolicy)
	if err != nil {
		fail("%w", err)
	}
	fn.ThreadPolicy = policy

	resolve := func(kind string, names []string, index map[string]int) []int {
		var out []int
		for _, name := range names {
			i, ok := index[name]
			if !ok {
				fail("unknown %s '%s'", kind, name)
				continue
			}
			out = append(out, i)
		}
		return out
	}
	fn.ManagedObjects = resolve("managed_object", b.ManagedObjects, mos)
	fn.Governance = resolve("governance", b.Governance, govs)
	fn.Administrators = resolve("administrator", b.Administrators, admins)

	proc, perrs := l.translateEscalations("function '"+b.Name+"'", b.Escalations)
	fn.Escalations = proc
	errs = append(errs, perrs...)
	return fn, errs
}

func (l *Loader) translateEscalations(owner string, blocks []*escalationBlock) (kernel.EscalationProcedure, []error) {
	var proc kernel.EscalationProcedure
	var errs []error
	for _, b := range blocks {
		m, err := l.registry.Matcher(b.Match)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s escalation: %w", owner, err))
			continue
		}
		proc = append(proc, kernel.Escalation{Match: m, Handler: b.Handler})
	}
	return proc, errs
}

// ParsePolicy reads a governance policy name. Empty means inherit.
func ParsePolicy(s string) (kernel.GovernancePolicy, error) {
	switch s {
	case "", "inherit":
		return kernel.GovernanceInherit, nil
	case "enforce":
		return kernel.GovernanceEnforce, nil
	case "disregard":
		return kernel.GovernanceDisregard, nil
	}
	return kernel.GovernanceInherit, fmt.Errorf("unknown governance policy '%s'", s)
}

// ParseScope reads a managed object scope. Empty means function scope.
func ParseScope(s string) (kernel.Scope, error) {
	switch s {
	case "", "function":
		return kernel.ScopeFunction, nil
	case "thread":
		return kernel.ScopeThread, nil
	case "process":
		return kernel.ScopeProcess, nil
	}
	return kernel.ScopeFunction, fmt.Errorf("unknown scope '%s'", s)
}
