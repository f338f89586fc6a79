// Package docker provides Docker Engine API wrappers used to run the
// star-removal tool inside a container.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - One-shot container runs: create with a bind-mounted working
//     directory, start, stream logs, wait for exit, remove
//   - Labels that mark containers created by starsplit, so leftovers
//     from interrupted runs can be found with "docker ps -a --filter"
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
