package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/officegrid/internal/config"
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/specialistvlad/officegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest writes floor into a temporary floor file and builds an app
// over it with debug logging captured in the returned buffer. Without
// modules, every core module is registered.
func SetupAppTest(t *testing.T, floor string, settings *config.Settings, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "floor.hcl")
	require.NoError(t, os.WriteFile(path, []byte(floor), 0o600))

	if settings == nil {
		settings = config.Default()
	}
	settings.LogLevel = "debug"

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := NewApp(logBuffer, settings, []string{path}, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("OFFICEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, logBuffer
}
