package ensemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

func testWeek() timeutil.WeekWindow {
	return timeutil.CurrentWeek(time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC), time.UTC)
}

func TestBuildWeekly_RanksByMinutesDescending(t *testing.T) {
	members := []MemberTotals{
		{UserID: "a", Name: "Ana", Minutes: 0},
		{UserID: "b", Name: "Ben", Minutes: 45},
		{UserID: "c", Name: "Cleo", Minutes: 120},
	}

	board := BuildWeekly("ens-1", testWeek(), members)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, Entry{Rank: 1, UserID: "c", Name: "Cleo", Minutes: 120}, board.Entries[0])
	assert.Equal(t, Entry{Rank: 2, UserID: "b", Name: "Ben", Minutes: 45}, board.Entries[1])
	assert.Equal(t, Entry{Rank: 3, UserID: "a", Name: "Ana", Minutes: 0}, board.Entries[2])
}

func TestBuildWeekly_CarriesPointsWithoutAffectingRank(t *testing.T) {
	members := []MemberTotals{
		{UserID: "a", Name: "Ana", Minutes: 30, Points: 90},
		{UserID: "b", Name: "Ben", Minutes: 120, Points: 40},
	}

	board := BuildWeekly("ens-1", testWeek(), members)

	require.Len(t, board.Entries, 2)
	assert.Equal(t, "b", board.Entries[0].UserID, "ranking follows minutes even when points disagree")
	assert.Equal(t, 40, board.Entries[0].Points)
	assert.Equal(t, 90, board.Entries[1].Points)
}

func TestBuildWeekly_ZeroMinuteMembersIncluded(t *testing.T) {
	members := []MemberTotals{
		{UserID: "a", Name: "Ana", Minutes: 0},
		{UserID: "b", Name: "Ben", Minutes: 0},
	}

	board := BuildWeekly("ens-1", testWeek(), members)

	assert.Len(t, board.Entries, 2, "members without sessions still appear")
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 2, board.Entries[1].Rank)
}

func TestBuildWeekly_TiesKeepInputOrder(t *testing.T) {
	members := []MemberTotals{
		{UserID: "a", Name: "Ana", Minutes: 60},
		{UserID: "b", Name: "Ben", Minutes: 60},
		{UserID: "c", Name: "Cleo", Minutes: 90},
	}

	board := BuildWeekly("ens-1", testWeek(), members)

	assert.Equal(t, "c", board.Entries[0].UserID)
	assert.Equal(t, "a", board.Entries[1].UserID, "stable sort keeps tied members in input order")
	assert.Equal(t, "b", board.Entries[2].UserID)
}

func TestBuildWeekly_DoesNotMutateInput(t *testing.T) {
	members := []MemberTotals{
		{UserID: "a", Minutes: 10},
		{UserID: "b", Minutes: 20},
	}

	BuildWeekly("ens-1", testWeek(), members)

	assert.Equal(t, "a", members[0].UserID)
	assert.Equal(t, "b", members[1].UserID)
}

func TestBuildWeekly_EmptyEnsemble(t *testing.T) {
	board := BuildWeekly("ens-1", testWeek(), nil)
	assert.Empty(t, board.Entries)
}

func TestRankOf(t *testing.T) {
	board := BuildWeekly("ens-1", testWeek(), []MemberTotals{
		{UserID: "a", Minutes: 10},
		{UserID: "b", Minutes: 20},
	})

	assert.Equal(t, 1, board.RankOf("b"))
	assert.Equal(t, 2, board.RankOf("a"))
	assert.Equal(t, 0, board.RankOf("ghost"))
}

func TestNewEnsemble_Validation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		e, err := NewEnsemble("e1", "Brass Quintet", "", "user-1", "48273915")
		require.NoError(t, err)
		assert.Equal(t, "Brass Quintet", e.Name)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := NewEnsemble("e1", "  ", "", "user-1", "48273915")
		assert.Error(t, err)
	})

	t.Run("wrong code length", func(t *testing.T) {
		_, err := NewEnsemble("e1", "Brass Quintet", "", "user-1", "1234")
		assert.Error(t, err)
	})

	t.Run("non-digit code", func(t *testing.T) {
		_, err := NewEnsemble("e1", "Brass Quintet", "", "user-1", "4827391x")
		assert.Error(t, err)
	})
}
