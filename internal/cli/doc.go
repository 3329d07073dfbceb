// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags, environment and config files into config.Settings and
// hands them to the app.
package cli
