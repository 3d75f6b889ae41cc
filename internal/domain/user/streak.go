package user

import (
	"time"

	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK & LEVEL RULES
// ══════════════════════════════════════════════════════════════════════════════

// PointsPerLevel is the XP cost of one level.
const PointsPerLevel = 100

// NextStreak computes the streak transition for a practice on day today,
// given the stored last practice date and current streak. Comparison is by
// calendar date in loc; time-of-day never matters.
//
// Rules:
//   - no previous practice: streak becomes 1
//   - last practice is today: streak unchanged, last date unchanged
//   - last practice was yesterday: streak + 1
//   - anything else (gap of 2+ days, or a stored date in the future after
//     clock skew): streak resets to 1
//
// Returns the new streak and the date to store as last practice. Multiple
// sessions on one day count as a single streak day.
func NextStreak(today time.Time, last *time.Time, current int, loc *time.Location) (int, time.Time) {
	day := timeutil.StartOfDay(today, loc)

	if last == nil {
		return 1, day
	}
	if timeutil.SameDay(*last, today, loc) {
		return current, timeutil.StartOfDay(*last, loc)
	}
	if timeutil.IsYesterday(*last, today, loc) {
		return current + 1, day
	}
	return 1, day
}

// LevelForPoints maps a point total to a level. Level 1 starts at 0 points
// and every 100 points grants one level; there is no level cap.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// PointsToNextLevel returns how many points remain until the next level.
func PointsToNextLevel(points int) int {
	if points < 0 {
		points = 0
	}
	return PointsPerLevel - points%PointsPerLevel
}
