package lottery

import "fmt"

// ComputeTimeWindows partitions a day's configured tee-time range into an
// ordered sequence of contiguous windows.
//
// The range runs from the earliest to the latest block start time (minutes
// from midnight). Enough windows are created that none exceeds
// maxWindowDurationMinutes; the final window is clamped to the range end so
// the windows cover the range exactly with no gap or overlap.
//
// The function is pure and deterministic for identical input. Windows are
// recomputed on every scoring pass rather than persisted, so club admins can
// change block templates without invalidating history.
func ComputeTimeWindows(blockStarts []int, maxWindowDurationMinutes int) []TimeWindow {
	if len(blockStarts) == 0 || maxWindowDurationMinutes <= 0 {
		return []TimeWindow{}
	}

	start := blockStarts[0]
	end := blockStarts[0]
	for _, s := range blockStarts[1:] {
		if s < start {
			start = s
		}
		if s > end {
			end = s
		}
	}

	total := end - start
	if total <= 0 {
		// Single-block days have no span to partition
		return []TimeWindow{}
	}

	windowCount := ceilDiv(total, maxWindowDurationMinutes)
	duration := ceilDiv(total, windowCount)

	windows := make([]TimeWindow, 0, windowCount)
	for i := 0; i < windowCount; i++ {
		windowStart := start + i*duration
		windowEnd := windowStart + duration
		final := i == windowCount-1
		if final {
			// Absorb any rounding remainder so coverage is exact
			windowEnd = end
		}

		windows = append(windows, TimeWindow{
			Index:       i,
			StartMinute: windowStart,
			EndMinute:   windowEnd,
			Label:       fmt.Sprintf("%s-%s", minutesToClock(windowStart), minutesToClock(windowEnd)),
			Position:    windowPosition(i, windowCount),
			Final:       final,
		})
	}

	return windows
}

// windowPosition derives the position category purely from the index ratio
func windowPosition(index, windowCount int) WindowPosition {
	ratio := float64(index) / float64(windowCount)
	switch {
	case ratio < 0.25:
		return PositionEarly
	case ratio < 0.5:
		return PositionMidEarly
	case ratio < 0.75:
		return PositionMidLate
	default:
		return PositionLate
	}
}

// WindowContaining returns the index of the window containing the given block
// start time, or -1 if no window contains it
func WindowContaining(windows []TimeWindow, minute int) int {
	for _, w := range windows {
		if w.Contains(minute) {
			return w.Index
		}
	}
	return -1
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// minutesToClock formats a minutes-from-midnight offset as "15:04"
func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
