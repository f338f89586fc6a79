// Package model defines the domain types and value objects for the
// starsplit CLI.
//
// This package contains pure data structures with no external dependencies.
// The only entities are filesystem paths (Artifacts) derived from a single
// source FITS file by string manipulation. Nothing is persisted beyond the
// files the external tools write.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
