package ensemble

import (
	"sort"

	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// MemberTotals is the input to the leaderboard build: one member and their
// practiced minutes and points earned inside the week window.
type MemberTotals struct {
	UserID  string
	Name    string
	Section string
	Minutes int
	Points  int
}

// Entry is one ranked row of the leaderboard. Ranking is by minutes;
// points ride along for display.
type Entry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
	Minutes int    `json:"minutes"`
	Points  int    `json:"points"`
}

// Leaderboard is the ranked weekly standing of one ensemble.
type Leaderboard struct {
	EnsembleID string             `json:"ensemble_id"`
	Week       timeutil.WeekWindow `json:"week"`
	Entries    []Entry            `json:"entries"`
}

// BuildWeekly ranks the members of an ensemble by minutes practiced in the
// week, most first. Every member appears, including those with zero
// minutes. Ranks are 1-based and dense over positions, so ties keep their
// input order and still get distinct ranks; the sort is stable so equal
// totals preserve the order the members came in.
func BuildWeekly(ensembleID string, week timeutil.WeekWindow, members []MemberTotals) *Leaderboard {
	ranked := make([]MemberTotals, len(members))
	copy(ranked, members)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Minutes > ranked[j].Minutes
	})

	entries := make([]Entry, len(ranked))
	for i, m := range ranked {
		entries[i] = Entry{
			Rank:    i + 1,
			UserID:  m.UserID,
			Name:    m.Name,
			Section: m.Section,
			Minutes: m.Minutes,
			Points:  m.Points,
		}
	}

	return &Leaderboard{
		EnsembleID: ensembleID,
		Week:       week,
		Entries:    entries,
	}
}

// RankOf returns the rank of a user on the board, 0 when absent.
func (l *Leaderboard) RankOf(userID string) int {
	for _, e := range l.Entries {
		if e.UserID == userID {
			return e.Rank
		}
	}
	return 0
}
