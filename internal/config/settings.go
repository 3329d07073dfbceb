package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OFFICEGRID"

// Settings are the process-level settings.
type Settings struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format"`
	// TeamSize is used for pool teams declared without a size.
	TeamSize int `mapstructure:"team_size"`
	// CheckInterval is used when the floor does not set asset_check_interval.
	CheckInterval time.Duration `mapstructure:"check_interval"`
	// InvokeTimeout bounds each invocation run from the floor file.
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
	// HealthcheckPort serves /health and /metrics. 0 disables the server.
	HealthcheckPort int `mapstructure:"healthcheck_port"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		LogLevel:      "info",
		LogFormat:     "text",
		TeamSize:      10,
		CheckInterval: 100 * time.Millisecond,
		InvokeTimeout: 30 * time.Second,
		ServiceName:   "officegrid",
	}
}

// SetDefaults registers the defaults on v so that environment variables are
// picked up for every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("team_size", d.TeamSize)
	v.SetDefault("check_interval", d.CheckInterval)
	v.SetDefault("invoke_timeout", d.InvokeTimeout)
	v.SetDefault("healthcheck_port", d.HealthcheckPort)
	v.SetDefault("otlp_endpoint", d.OTLPEndpoint)
	v.SetDefault("service_name", d.ServiceName)
}

// Load reads settings from v, the environment and, when configFile is not
// empty, from that file. Flags must already be bound to v.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.LogLevel = strings.ToLower(s.LogLevel)
	s.LogFormat = strings.ToLower(s.LogFormat)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every invalid field.
func (s *Settings) Validate() error {
	var errs []error
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level '%s': must be 'debug', 'info', 'warn', or 'error'", s.LogLevel))
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log_format '%s': must be 'text' or 'json'", s.LogFormat))
	}
	if s.TeamSize < 1 {
		errs = append(errs, fmt.Errorf("invalid team_size %d: must be at least 1", s.TeamSize))
	}
	if s.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("invalid check_interval %s: must be positive", s.CheckInterval))
	}
	if s.InvokeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid invoke_timeout %s: must be positive", s.InvokeTimeout))
	}
	if s.HealthcheckPort < 0 || s.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck_port %d", s.HealthcheckPort))
	}
	return errors.Join(errs...)
}
