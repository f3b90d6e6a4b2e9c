package repository

import "errors"

const (
	KeyProjects   = "projects"
	KeyWeeklyData = "weeklyData"
)

// ErrCorrupt wraps decode failures of a stored entry, as opposed to the
// backend being unreachable.
var ErrCorrupt = errors.New("stored value is corrupt")

func prefixed(prefix, key string) string {
	return prefix + key
}
