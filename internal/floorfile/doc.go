// Package floorfile loads an office from HCL floor files.
//
// A floor file declares teams, managed objects, governance, administrators,
// functions, escalations and the invocations to run once the office starts.
// Names of Go code (function bodies, sources, governance factories, matchers,
// team kinds) are resolved against a registry.Registry; the result is plain
// kernel meta-data, so the kernel never sees HCL.
//
// Attributes not known to a block (for example "prefix" on a managed_object)
// are decoded with gohcl into the input struct the block's factory declares.
// Every expression may read the process environment through the "env"
// variable.
package floorfile
