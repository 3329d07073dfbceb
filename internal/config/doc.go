// Package config holds the process-level settings of the officegrid binary:
// logging, default team sizing, asset checking, invoke timeouts and the
// healthcheck/metrics listener. Settings are read through viper from an
// optional config file, OFFICEGRID_* environment variables and bound flags.
//
// What the office runs is described by floor files (see package floorfile),
// not by these settings.
package config
