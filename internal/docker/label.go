package docker

import (
	"path/filepath"
	"strings"
	"time"
)

// Label keys attached to every container starsplit creates. They let users
// find containers left behind by an interrupted run:
//
//	docker ps -a --filter label=starsplit.managed-by=starsplit
const (
	// LabelPrefix namespaces all starsplit labels.
	LabelPrefix = "starsplit."

	// LabelManagedBy marks containers created by this tool.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelInput records the input TIFF the container processes.
	LabelInput = LabelPrefix + "input"

	// LabelWorkDir records the host directory bind-mounted into the container.
	LabelWorkDir = LabelPrefix + "workdir"

	// LabelCreatedAt records the RFC3339 creation time.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "starsplit"

// BuildLabels returns the label set for a container processing input
// inside workDir.
func BuildLabels(input, workDir string, now time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelInput:     filepath.ToSlash(input),
		LabelWorkDir:   workDir,
		LabelCreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// IsManaged reports whether a label set belongs to a starsplit container.
func IsManaged(labels map[string]string) bool {
	return strings.TrimSpace(labels[LabelManagedBy]) == ManagedByValue
}
