package docker

import (
	"context"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// RemoveStale force-removes stopped starsplit containers, which are left
// behind when a run is killed before its deferred removal. Running and
// created (not yet started) containers may belong to a concurrent run and
// are kept. Errors are logged
// only; a stale container never blocks a new run.
func RemoveStale(ctx context.Context, cli *Client, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	containers, err := cli.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: staleFilters(),
	})
	if err != nil {
		logger.Warn("failed to list stale containers", "error", err)
		return 0
	}

	removed := 0
	for _, c := range containers {
		// Older daemons ignore unknown filters; check the label again.
		if !IsManaged(c.Labels) {
			continue
		}
		if err := cli.inner.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			logger.Warn("failed to remove stale container", "id", shortID(c.ID), "error", err)
			continue
		}
		logger.Debug("removed stale container", "id", shortID(c.ID), "input", c.Labels[LabelInput])
		removed++
	}
	return removed
}

// staleFilters selects starsplit containers that have stopped. "created"
// is excluded: another run's container is in that state between create
// and start.
func staleFilters() filters.Args {
	return filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
		filters.Arg("status", "exited"),
		filters.Arg("status", "dead"),
	)
}
