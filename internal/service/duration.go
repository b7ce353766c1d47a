package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/matter-service/internal/domain"
)

const (
	inProgressPrefix  = "In Progress: "
	durationFallback  = "N/A"
	durationDayCapped = "5d+"
	maxDisplayedDays  = 5

	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

var errNegativeDuration = errors.New("negative duration")

// formatDurationUnits is swapped in tests to exercise the recovery path.
var formatDurationUnits = formatUnits

type durationUnit struct {
	count  int64
	suffix string
}

// FormatDuration renders durationMs as its two largest nonzero units, e.g. "8h 30m".
// Day counts above five collapse to "5d+". Formatting never fails: invalid input
// yields "N/A".
func FormatDuration(durationMs int64, isInProgress bool) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = durationFallback
		}
	}()

	formatted, err := formatDurationUnits(durationMs)
	if err != nil {
		return durationFallback
	}
	if isInProgress {
		return inProgressPrefix + formatted
	}
	return formatted
}

func formatUnits(durationMs int64) (string, error) {
	if durationMs < 0 {
		return "", errNegativeDuration
	}

	// split on milliseconds; time.Duration overflows past roughly 292 years
	units := []durationUnit{
		{count: durationMs / msPerDay, suffix: "d"},
		{count: durationMs % msPerDay / msPerHour, suffix: "h"},
		{count: durationMs % msPerHour / msPerMinute, suffix: "m"},
		{count: durationMs % msPerMinute / msPerSecond, suffix: "s"},
	}

	picked := make([]durationUnit, 0, 2)
	for _, unit := range units {
		if unit.count == 0 {
			continue
		}
		picked = append(picked, unit)
		if len(picked) == 2 {
			break
		}
	}

	switch {
	case len(picked) == 0:
		return "0s", nil
	case picked[0].suffix == "d" && picked[0].count > maxDisplayedDays:
		return durationDayCapped, nil
	case len(picked) == 1:
		return fmt.Sprintf("%d%s", picked[0].count, picked[0].suffix), nil
	default:
		return fmt.Sprintf("%d%s %d%s", picked[0].count, picked[0].suffix, picked[1].count, picked[1].suffix), nil
	}
}

// ClassifySLA buckets a resolution time against the threshold. Zero means unresolved.
func ClassifySLA(resolutionTimeMs int64, threshold time.Duration) domain.SLAStatus {
	if resolutionTimeMs == 0 {
		return domain.SLAInProgress
	}
	if resolutionTimeMs <= threshold.Milliseconds() {
		return domain.SLAMet
	}
	return domain.SLABreached
}
