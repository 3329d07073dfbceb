package floorfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/stretchr/testify/require"
)

type staticInput struct {
	Value string `hcl:"value,optional"`
}

type staticSource struct{ value string }

func (s *staticSource) Source(context.Context) (any, error) { return s.value, nil }

type nopGovernor struct{}

func (nopGovernor) Govern(context.Context, any) error { return nil }
func (nopGovernor) Enforce(context.Context) error     { return nil }
func (nopGovernor) Disregard(context.Context) error   { return nil }

type testModule struct{}

func (testModule) Register(r *registry.Registry) {
	r.RegisterFunction("echo", func(fc *kernel.FunctionContext) (any, error) { return fc.Parameter(), nil })
	r.RegisterSource("static", registry.NewFactory(nil, func(in *staticInput) (kernel.Source, error) {
		return &staticSource{value: in.Value}, nil
	}))
	r.RegisterGovernance("nop", registry.NewFactory(nil, func(*struct{}) (func() kernel.Governor, error) {
		return func() kernel.Governor { return nopGovernor{} }, nil
	}))
	r.RegisterAdministrator("audit", registry.NewFactory(nil, func(*struct{}) (func(context.Context, []any) error, error) {
		return func(context.Context, []any) error { return nil }, nil
	}))
}

func newTestLoader() *Loader {
	return NewLoader(registry.New(testModule{}))
}

const fullFloor = `
office {
  name                 = "shop"
  governance_policy    = "disregard"
  asset_check_interval = "50ms"
  default_team         = "workers"
}

team "workers" {
  kind = "pool"
  size = 4
}

managed_object "greeting" {
  source  = "static"
  scope   = "process"
  timeout = 1500
  value   = "hello"
}

managed_object "request" {}

governance "tx" {
  factory   = "nop"
  extension = "tx"
}

administrator "audit" {
  factory   = "audit"
  extension = "audit"
}

function "greet" {
  body            = "echo"
  next            = "done"
  managed_objects = ["greeting", "request"]
  governance      = ["tx"]
  administrators  = ["audit"]
  thread_policy   = "enforce"

  escalation {
    match   = "source"
    handler = "done"
  }
}

function "done" {}

escalation {
  match   = "any"
  handler = "done"
}

invoke "greet" {
  parameter = { name = "world", count = 2, ratio = 0.5, tags = ["a", true] }
  delay     = "10ms"
}
`

func TestParse_FullFloor(t *testing.T) {
	// Arrange
	loader := newTestLoader()

	// Act
	floor, err := loader.Parse(context.Background(), "floor.hcl", []byte(fullFloor))

	// Assert
	require.NoError(t, err)
	meta := floor.Office
	require.Equal(t, "shop", meta.Name)
	require.Equal(t, "workers", meta.DefaultTeam)
	require.Equal(t, kernel.GovernanceDisregard, meta.GovernancePolicy)
	require.Equal(t, 50*time.Millisecond, meta.CheckInterval)
	require.Equal(t, []TeamSpec{{Name: "workers", Kind: "pool", Size: 4}}, floor.Teams)

	require.Len(t, meta.ManagedObjects, 2)
	greeting := meta.ManagedObjects[0]
	require.Equal(t, kernel.ScopeProcess, greeting.Scope)
	require.Equal(t, 1500*time.Millisecond, greeting.Timeout)
	require.Equal(t, &staticSource{value: "hello"}, greeting.Source)
	require.Nil(t, meta.ManagedObjects[1].Source, "a managed object without a source is an input slot")

	require.Len(t, meta.Functions, 2)
	greet := meta.Functions[0]
	require.NotNil(t, greet.Body)
	require.Equal(t, "done", greet.Next)
	require.Equal(t, []int{0, 1}, greet.ManagedObjects)
	require.Equal(t, []int{0}, greet.Governance)
	require.Equal(t, []int{0}, greet.Administrators)
	require.Equal(t, kernel.GovernanceEnforce, greet.ThreadPolicy)
	require.Len(t, greet.Escalations, 1)
	require.Equal(t, "done", greet.Escalations[0].Handler)
	require.Nil(t, meta.Functions[1].Body)
	require.Len(t, meta.Escalations, 1)

	want := []Invocation{{
		Function: "greet",
		Parameter: map[string]any{
			"name":  "world",
			"count": 2.0,
			"ratio": 0.5,
			"tags":  []any{"a", true},
		},
		Delay: 10 * time.Millisecond,
	}}
	if diff := cmp.Diff(want, floor.Invocations); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_BuildsRunnableOffice(t *testing.T) {
	// Arrange
	floor, err := newTestLoader().Parse(context.Background(), "floor.hcl", []byte(`
function "greet" { body = "echo" }
invoke "greet" { parameter = "hi" }
`))
	require.NoError(t, err)

	// Act
	office, err := kernel.NewOffice(floor.Office, nil)

	// Assert
	require.NoError(t, err)
	require.Equal(t, DefaultOfficeName, office.Name())
	require.Equal(t, []Invocation{{Function: "greet", Parameter: "hi"}}, floor.Invocations)
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	// Arrange
	src := `
team "t" { kind = "galaxy" }
managed_object "m" { source = "missing" }
function "f" {
  body            = "nope"
  managed_objects = ["ghost"]
  escalation {
    match   = "whatever"
    handler = "f"
  }
}
`

	// Act
	_, err := newTestLoader().Parse(context.Background(), "bad.hcl", []byte(src))

	// Assert
	require.ErrorIs(t, err, registry.ErrNotRegistered)
	for _, part := range []string{
		"team 't'",
		"managed_object 'm'",
		"function body 'nope'",
		"unknown managed_object 'ghost'",
		"matcher 'whatever'",
	} {
		require.ErrorContains(t, err, part)
	}
}

func TestParse_InvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"bad policy", `office { governance_policy = "sometimes" }`, "unknown governance policy 'sometimes'"},
		{"bad scope", `managed_object "m" { scope = "galaxy" }`, "unknown scope 'galaxy'"},
		{"unknown source attribute", "managed_object \"m\" {\n  source = \"static\"\n  colour = \"red\"\n}", "Unsupported argument"},
		{"wrong source attribute type", "managed_object \"m\" {\n  source = \"static\"\n  value  = [\"a\"]\n}", "Unsuitable value type"},
		{"bad delay", `invoke "f" { delay = "soon" }`, "invoke 'f' delay"},
		{"executor team", `team "t" { kind = "executor" }`, "team 't': team kind 'executor'"},
		{"two offices", "office {}\noffice {}", "at most one office block"},
		{"syntax", `function "f" {`, "failed to parse HCL file"},
		{"next cycle", "function \"a\" { next = \"b\" }\nfunction \"b\" { next = \"a\" }", "next chain cycle detected involving function 'a'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestLoader().Parse(context.Background(), "bad.hcl", []byte(tc.src))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestParse_ReadsEnvironment(t *testing.T) {
	// Arrange
	t.Setenv("OFFICEGRID_TEST_GREETING", "from-env")

	// Act
	floor, err := newTestLoader().Parse(context.Background(), "env.hcl", []byte(`
invoke "greet" { parameter = env.OFFICEGRID_TEST_GREETING }
`))

	// Assert
	require.NoError(t, err)
	require.Equal(t, "from-env", floor.Invocations[0].Parameter)
}

func TestLoad_MergesDirectory(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "functions.hcl"), []byte(`function "greet" { body = "echo" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoke.hcl"), []byte(`invoke "greet" {}`), 0o644))

	// Act
	floor, err := newTestLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	require.Len(t, floor.Files, 2)
	require.Len(t, floor.Office.Functions, 1)
	require.Equal(t, []Invocation{{Function: "greet"}}, floor.Invocations)
}

func TestLoad_NoFiles(t *testing.T) {
	_, err := newTestLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "no floor files found")
}
