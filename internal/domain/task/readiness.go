package task

// ══════════════════════════════════════════════════════════════════════════════
// READINESS FORMULA
// ══════════════════════════════════════════════════════════════════════════════

// ratingWeight converts one rating point into bonus minutes.
const ratingWeight = 2

// ratedSessionWeight is the extra minutes expected in the denominator per
// session that carried at least one rating.
const ratedSessionWeight = 30

// SessionRatings carries the self-assessment ratings of one session linked
// to the task. Nil fields were skipped by the user.
type SessionRatings struct {
	Focus    *int
	Progress *int
	Energy   *int
}

// rated reports whether the session carried at least one rating.
func (r SessionRatings) rated() bool {
	return r.Focus != nil || r.Progress != nil || r.Energy != nil
}

// sum adds up the present ratings, treating missing ones as zero.
func (r SessionRatings) sum() int {
	total := 0
	if r.Focus != nil {
		total += *r.Focus
	}
	if r.Progress != nil {
		total += *r.Progress
	}
	if r.Energy != nil {
		total += *r.Energy
	}
	return total
}

// CalculateReadiness estimates how performance-ready a task is, 0-100.
//
// Time practiced counts directly; every rating point across the task's
// sessions adds two bonus minutes; every rated session raises the bar by
// thirty expected minutes. A non-positive estimate always yields zero.
//
//	readiness = (practiced + 2*sum(ratings)) / (estimate + 30*ratedSessions) * 100
//
// The result clamps into [0, 100].
func CalculateReadiness(estimatedMinutes, totalTimePracticed int, sessions []SessionRatings) float64 {
	if estimatedMinutes <= 0 {
		return 0
	}

	ratingBonus := 0
	ratedCount := 0
	for _, s := range sessions {
		if !s.rated() {
			continue
		}
		ratingBonus += s.sum() * ratingWeight
		ratedCount++
	}

	numerator := float64(totalTimePracticed + ratingBonus)
	denominator := float64(estimatedMinutes + ratedSessionWeight*ratedCount)

	score := numerator / denominator * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rescore recomputes and caches the readiness for the task from its
// accumulated time and the ratings of its linked sessions. Returns the new
// score.
func (t *Task) Rescore(sessions []SessionRatings) float64 {
	t.ReadinessScore = CalculateReadiness(t.EstimatedMinutes, t.TotalTimePracticed, sessions)
	return t.ReadinessScore
}
