package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_Defaults(t *testing.T) {
	// Act
	s, err := Load(viper.New(), "")

	// Assert
	require.NoError(t, err)
	require.Equal(t, Default(), s)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	// Arrange
	t.Setenv("OFFICEGRID_LOG_LEVEL", "DEBUG")
	t.Setenv("OFFICEGRID_CHECK_INTERVAL", "25ms")
	t.Setenv("OFFICEGRID_TEAM_SIZE", "3")

	// Act
	s, err := Load(viper.New(), "")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "debug", s.LogLevel)
	require.Equal(t, 25*time.Millisecond, s.CheckInterval)
	require.Equal(t, 3, s.TeamSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "officegrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_format: json\ninvoke_timeout: 2s\nhealthcheck_port: 9090\n"), 0o600))

	// Act
	s, err := Load(viper.New(), path)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "json", s.LogFormat)
	require.Equal(t, 2*time.Second, s.InvokeTimeout)
	require.Equal(t, 9090, s.HealthcheckPort)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}

func TestValidate_ReportsEveryField(t *testing.T) {
	// Arrange
	s := &Settings{LogLevel: "loud", LogFormat: "xml", TeamSize: 0, HealthcheckPort: -1}

	// Act
	err := s.Validate()

	// Assert
	for _, part := range []string{"log_level", "log_format", "team_size", "check_interval", "invoke_timeout", "healthcheck_port"} {
		require.ErrorContains(t, err, part)
	}
}
