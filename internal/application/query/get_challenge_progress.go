package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGE PROGRESS QUERY
// Per-member (and per-section, for section competitions) standing against a
// group challenge's goal.
// ══════════════════════════════════════════════════════════════════════════════

// GetChallengeProgressQuery contains the request parameters.
type GetChallengeProgressQuery struct {
	ChallengeID string
}

// MemberProgressDTO is one member's standing.
type MemberProgressDTO struct {
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Section   string  `json:"section,omitempty"`
	Minutes   int     `json:"minutes"`
	Percent   float64 `json:"percent"`
	Completed bool    `json:"completed"`
}

// SectionProgressDTO is one section's combined standing, used by section
// competitions.
type SectionProgressDTO struct {
	Section string `json:"section"`
	Minutes int    `json:"minutes"`
	Rank    int    `json:"rank"`
}

// ChallengeProgressDTO is the full progress payload.
type ChallengeProgressDTO struct {
	ChallengeID   string               `json:"challenge_id"`
	Title         string               `json:"title"`
	GoalType      string               `json:"goal_type"`
	TargetMinutes int                  `json:"target_minutes,omitempty"`
	Status        string               `json:"status"`
	Members       []MemberProgressDTO  `json:"members"`
	Sections      []SectionProgressDTO `json:"sections,omitempty"`
}

// GetChallengeProgressHandler handles the GetChallengeProgressQuery.
type GetChallengeProgressHandler struct {
	userRepo      user.Repository
	sessionRepo   session.Repository
	challengeRepo challenge.Repository
	loc           *time.Location
}

// NewGetChallengeProgressHandler creates a new GetChallengeProgressHandler.
func NewGetChallengeProgressHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	challengeRepo challenge.Repository,
	loc *time.Location,
) *GetChallengeProgressHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetChallengeProgressHandler{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		challengeRepo: challengeRepo,
		loc:           loc,
	}
}

// Handle assembles the progress report.
func (h *GetChallengeProgressHandler) Handle(ctx context.Context, q GetChallengeProgressQuery) (*ChallengeProgressDTO, error) {
	if q.ChallengeID == "" {
		return nil, errors.New("get_challenge_progress: challenge_id is required")
	}

	ch, err := h.challengeRepo.GetByID(ctx, q.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("get_challenge_progress: %w", err)
	}

	members, err := h.userRepo.ListByEnsemble(ctx, ch.EnsembleID)
	if err != nil {
		return nil, fmt.Errorf("get_challenge_progress: failed to list members: %w", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	from := timeutil.StartOfDay(ch.StartDate, h.loc)
	to := timeutil.EndOfDay(ch.EndDate, h.loc)
	sums, err := h.sessionRepo.SumBetween(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("get_challenge_progress: failed to sum minutes: %w", err)
	}

	completions, err := h.challengeRepo.ListCompletions(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("get_challenge_progress: failed to list completions: %w", err)
	}
	done := make(map[string]bool, len(completions))
	for _, c := range completions {
		done[c.UserID] = true
	}

	dto := &ChallengeProgressDTO{
		ChallengeID:   ch.ID,
		Title:         ch.Title,
		GoalType:      string(ch.GoalType),
		TargetMinutes: ch.TargetMinutes,
		Status:        string(ch.Status),
	}

	sectionMinutes := make(map[string]int)
	for _, m := range members {
		minutes := sums[m.ID].Minutes
		dto.Members = append(dto.Members, MemberProgressDTO{
			UserID:    m.ID,
			Name:      m.Name,
			Section:   m.Section,
			Minutes:   minutes,
			Percent:   progressPercent(ch, minutes),
			Completed: done[m.ID],
		})
		if m.Section != "" {
			sectionMinutes[m.Section] += minutes
		}
	}

	sort.SliceStable(dto.Members, func(i, j int) bool {
		return dto.Members[i].Minutes > dto.Members[j].Minutes
	})

	if ch.GoalType == challenge.GoalSectionCompetition {
		for section, minutes := range sectionMinutes {
			dto.Sections = append(dto.Sections, SectionProgressDTO{Section: section, Minutes: minutes})
		}
		sort.SliceStable(dto.Sections, func(i, j int) bool {
			return dto.Sections[i].Minutes > dto.Sections[j].Minutes
		})
		for i := range dto.Sections {
			dto.Sections[i].Rank = i + 1
		}
	}

	return dto, nil
}

func progressPercent(ch *challenge.Challenge, minutes int) float64 {
	switch ch.GoalType {
	case challenge.GoalAllMembersPractice:
		if minutes > 0 {
			return 100
		}
		return 0
	default:
		if ch.TargetMinutes <= 0 {
			return 0
		}
		p := float64(minutes) / float64(ch.TargetMinutes) * 100
		if p > 100 {
			return 100
		}
		return p
	}
}
