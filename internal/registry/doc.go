// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the string identifiers used in floor
// files (e.g., body = "print") and the compiled Go values behind them:
// function bodies, managed-object source factories, governance factories,
// escalation matchers and team sources. Modules contribute entries through
// their Register method; the floor file loader resolves names against the
// registry when it builds the office meta-data.
//
// Factories declare their input as a struct tagged for gohcl, the way a
// module declares what a block may say; the loader decodes the block into it.
// Function bodies decode their parameters into mapstructure-tagged structs
// with DecodeParameter.
package registry
