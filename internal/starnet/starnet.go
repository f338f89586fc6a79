// Package starnet runs the StarNet++ star-removal tool.
//
// StarNet++ takes exactly three positional arguments: the input 16-bit
// TIFF, the output TIFF path, and the tile stride. It is invoked either as
// a local child process (LocalRunner) or inside a container (DockerRunner).
//
// A non-zero exit status is reported in Result rather than as an error:
// StarNet++ is known to return non-zero after writing a valid output, so
// callers decide based on whether the output file exists.
package starnet

import (
	"context"
	"strconv"
)

// Invocation is one star-removal request.
type Invocation struct {
	// Input is the 16-bit TIFF to process.
	Input string

	// Output is the path StarNet++ writes the starless TIFF to.
	Output string

	// Stride is the tile stride.
	Stride int

	// Dir is the working directory StarNet++ runs in. Relative Input and
	// Output paths resolve against it.
	Dir string
}

// Args returns the command-line arguments in the order StarNet++ expects.
func (i Invocation) Args() []string {
	return []string{i.Input, i.Output, strconv.Itoa(i.Stride)}
}

// Result reports how the star-removal process ended.
type Result struct {
	// ExitCode is the tool's exit status.
	ExitCode int
}

// Runner executes a star-removal invocation and blocks until it finishes.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}
