package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/officegrid/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidFloor(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		function "greet" {
			body = "print"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600), "failed to set up test file")
	var out, errOut bytes.Buffer

	// --- Act ---
	err := run(context.Background(), &out, &errOut, []string{"run", filePath})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, err.Error(), "failed to parse HCL file")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var out, errOut bytes.Buffer

	// --- Act ---
	err := run(context.Background(), &out, &errOut, []string{"--help"})

	// --- Assert ---
	require.NoError(t, err, "help should exit cleanly")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var out, errOut bytes.Buffer

	// --- Act ---
	err := run(context.Background(), &out, &errOut, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}
