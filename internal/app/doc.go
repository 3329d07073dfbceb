// Package app contains the core application logic. It builds an office from
// settings and floor files, runs the floor's invocations and serves the
// healthcheck and metrics endpoints, decoupled from any specific entrypoint
// like a CLI or server.
package app
