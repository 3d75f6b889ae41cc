package session

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// POINTS RULE
// ══════════════════════════════════════════════════════════════════════════════

// Streak multiplier thresholds. A longer streak makes every practiced minute
// worth more.
const (
	streakTier1Days = 3
	streakTier2Days = 7
	streakTier3Days = 30

	streakTier1Mult = 1.2
	streakTier2Mult = 1.5
	streakTier3Mult = 2.0
)

// FocusBonusThreshold is the minimum focus rating that earns the bonus.
const FocusBonusThreshold = 4

// focusBonusMult is the extra 20% for a highly focused session.
const focusBonusMult = 0.2

// StreakMultiplier returns the point multiplier for a streak length. The
// streak passed in must already include the session being scored.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak >= streakTier3Days:
		return streakTier3Mult
	case streak >= streakTier2Days:
		return streakTier2Mult
	case streak >= streakTier1Days:
		return streakTier1Mult
	default:
		return 1.0
	}
}

// CalculatePoints scores a session. Base points equal the duration in
// minutes; the streak multiplier and the focus bonus (+20% for focus >= 4)
// are applied multiplicatively and the result truncates toward zero.
//
// Example: 40 minutes, focus 5, streak 3 gives
// floor(40 * 1.2 * 1.2) = 57.
func CalculatePoints(durationMinutes int, focusRating *int, streak int) int {
	if durationMinutes <= 0 {
		return 0
	}

	points := float64(durationMinutes) * StreakMultiplier(streak)
	if focusRating != nil && *focusRating >= FocusBonusThreshold {
		points *= 1 + focusBonusMult
	}
	return int(math.Floor(points))
}

// ApplyPoints scores the session against the given streak and freezes the
// result on the entity. Returns the points earned.
func (s *PracticeSession) ApplyPoints(streak int) int {
	var focus *int
	if s.FocusRating != nil {
		v := s.FocusRating.Int()
		focus = &v
	}
	s.PointsEarned = CalculatePoints(s.DurationMinutes, focus, streak)
	return s.PointsEarned
}

// RecomputePointsDelta rescores the session with its current ratings under
// the given streak, returning the difference to apply to the user's total.
// Used when a focus rating changes after logging; the streak transition is
// never re-run for an edit.
func (s *PracticeSession) RecomputePointsDelta(streak int) int {
	old := s.PointsEarned
	return s.ApplyPoints(streak) - old
}
