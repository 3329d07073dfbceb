package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/officegrid/internal/config"
	"github.com/specialistvlad/officegrid/internal/tracing"
	"github.com/specialistvlad/officegrid/modules/fail"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const shopFloor = `
office {
  name                 = "shop"
  asset_check_interval = "20ms"
  default_team         = "workers"
}

team "workers" {
  kind = "pool"
}

managed_object "env" {
  source = "env_vars"
  scope  = "process"
  prefix = "OGAPP_"
}

governance "tx" {
  factory   = "log_governance"
  extension = "tx"
}

function "greet" {
  body            = "print"
  managed_objects = ["env"]
  next            = "echo"
}

function "echo" {
  body = "print"
}

function "broken" {
  body = "fail"
}

function "guarded" {
  body = "fail"
  escalation {
    match   = "any"
    handler = "recover"
  }
}

function "recover" {
  body = "log_error"
}

invoke "greet" {
  parameter = { name = "world" }
}

invoke "guarded" {
  parameter = "handled locally"
  delay     = "10ms"
}

invoke "broken" {
  parameter = "nobody catches this"
}
`

func TestRun_InvokesFloor(t *testing.T) {
	// Arrange
	t.Setenv("OGAPP_MODE", "test")
	a, logs := SetupAppTest(t, shopFloor, nil)

	// Act
	summary, err := a.Run(context.Background())

	// Assert
	require.NoError(t, err)
	require.Equal(t, "shop", summary.Office)
	require.Len(t, summary.Results, 3)
	require.NoError(t, summary.Results[0].Err)
	require.NoError(t, summary.Results[1].Err)
	require.Equal(t, 10*time.Millisecond, summary.Results[1].Delay)
	require.ErrorIs(t, summary.Results[2].Err, fail.ErrFailed)
	require.Equal(t, 1, summary.Failed())

	out := logs.String()
	require.Contains(t, out, `value="name=world"`)
	require.Contains(t, out, "Escalation handled.")
	require.Contains(t, out, "Office stopped.")
}

func TestRun_UnknownInvokedFunction(t *testing.T) {
	// Arrange
	a, _ := SetupAppTest(t, `
function "known" {}
invoke "unknown" {}
`, nil)

	// Act
	summary, err := a.Run(context.Background())

	// Assert
	require.NoError(t, err)
	require.ErrorContains(t, summary.Results[0].Err, "unknown function")
}

func TestRun_WithoutInvocationsServesUntilCancelled(t *testing.T) {
	// Arrange
	a, logs := SetupAppTest(t, `
managed_object "tick" {
  source   = "ticker"
  function = "on_tick"
  interval = "5ms"
}

function "on_tick" {
  body            = "print"
  managed_objects = ["tick"]
}
`, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	go func() {
		defer cancel()
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) && !strings.Contains(logs.String(), "Printing parameter") {
			time.Sleep(5 * time.Millisecond)
		}
	}()
	summary, err := a.Run(ctx)

	// Assert
	require.NoError(t, err)
	require.Empty(t, summary.Results)
	require.Contains(t, logs.String(), "serving until interrupted")
	require.Contains(t, logs.String(), "Printing parameter")
}

func TestRoutes(t *testing.T) {
	// Arrange
	a, _ := SetupAppTest(t, `
function "noop" {}
invoke "noop" {}
`, nil)
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	server := httptest.NewServer(a.routes())
	defer server.Close()

	testCases := []struct {
		path string
		want string
	}{
		{"/health", "OK"},
		{"/metrics", `officegrid_process_completed_total{outcome="success"} 1`},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			// Act
			resp, err := http.Get(server.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			// Assert
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, string(body), tc.want)
		})
	}
}

func TestNewApp_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		floor    string
		settings *config.Settings
		want     string
	}{
		{"invalid settings", `function "f" {}`, &config.Settings{LogLevel: "loud"}, "invalid log_level"},
		{"unknown body", `function "f" { body = "nope" }`, config.Default(), "failed to load floor"},
		{"bad team", "team \"t\" {\n  kind = \"pool\"\n  size = -1\n}", config.Default(), "pool size must be at least 1"},
		{"broken reference", `function "f" { next = "ghost" }`, config.Default(), "failed to build office"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "floor.hcl")
			require.NoError(t, os.WriteFile(path, []byte(tc.floor), 0o600))

			_, err := NewApp(io.Discard, tc.settings, []string{path})

			require.ErrorContains(t, err, tc.want)
		})
	}
}

// shutdownProcessor counts provider shutdowns reaching its span processor.
type shutdownProcessor struct {
	*tracetest.SpanRecorder
	calls int
}

func (p *shutdownProcessor) Shutdown(context.Context) error {
	p.calls++
	return nil
}

func TestNewApp_ShutsDownTracingOnError(t *testing.T) {
	testCases := []struct {
		name  string
		floor string
	}{
		{"team fails to build", "team \"t\" {\n  kind = \"pool\"\n  size = -1\n}"},
		{"office fails to build", `function "f" { next = "ghost" }`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			proc := &shutdownProcessor{SpanRecorder: tracetest.NewSpanRecorder()}
			original := newTracingProvider
			newTracingProvider = func(context.Context, tracing.Config) (*tracing.Provider, error) {
				return tracing.NewProviderWithOptions("test", sdktrace.WithSpanProcessor(proc)), nil
			}
			t.Cleanup(func() { newTracingProvider = original })
			path := filepath.Join(t.TempDir(), "floor.hcl")
			require.NoError(t, os.WriteFile(path, []byte(tc.floor), 0o600))

			// --- Act ---
			_, err := NewApp(io.Discard, config.Default(), []string{path})

			// --- Assert ---
			require.Error(t, err)
			require.Equal(t, 1, proc.calls)
		})
	}
}

func TestNewLogger(t *testing.T) {
	// Arrange
	var buf bytes.Buffer

	// Act
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	// Assert
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
