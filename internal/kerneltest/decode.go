package kerneltest

import (
	"testing"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Decode parses src as the attributes of a floor file block and builds
// through factory, the way the floor loader does.
func Decode[T any](t testing.TB, factory *registry.Factory[T], src string) (T, error) {
	t.Helper()
	f, diags := hclparse.NewParser().ParseHCL([]byte(src), "block.hcl")
	if diags.HasErrors() {
		t.Fatalf("invalid block source: %s", diags.Error())
	}
	return factory.Decode(f.Body, nil)
}
