package config

import (
	"errors"
	"hash/fnv"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Feature flag names. Grouped by the surface they gate.
const (
	FeatureGamificationStreaks    = "gamification.streaks"
	FeatureGamificationBadges     = "gamification.badges"
	FeatureGamificationFocusBonus = "gamification.focus_bonus"

	FeatureLeaderboardWeekly   = "leaderboard.weekly"
	FeatureLeaderboardCaching  = "leaderboard.caching"
	FeatureLeaderboardSections = "leaderboard.sections"

	FeatureChallengesGroup   = "challenges.group"
	FeatureChallengesSection = "challenges.section"

	FeatureTeacherLinking = "teacher.linking"
	FeatureTeacherNotes   = "teacher.notes"
	FeatureTeacherSummary = "teacher.summary"

	FeatureNotifyStreakAtRisk = "notify.streak_at_risk"
	FeatureNotifyLevelUp      = "notify.level_up"

	FeatureExperimentalReadinessV2 = "experimental.readiness_v2"
	FeatureExperimentalAnalytics   = "experimental.analytics"
)

var (
	ErrFeatureNotFound       = errors.New("config: feature not found")
	ErrInvalidRolloutPercent = errors.New("config: rollout percent must be 0-100")
)

// defaultFeatures is the shipped flag set. The core gamification loop and
// the teacher surface are fully on; features still being proven out run at
// a partial rollout; experiments start dark.
var defaultFeatures = []Feature{
	{Name: FeatureGamificationStreaks, Description: "Track daily practice streaks", Enabled: true, RolloutPercent: 100},
	{Name: FeatureGamificationBadges, Description: "Grant badges for milestones", Enabled: true, RolloutPercent: 100},
	{Name: FeatureGamificationFocusBonus, Description: "Focus rating bonus on session points", Enabled: true, RolloutPercent: 100},

	{Name: FeatureLeaderboardWeekly, Description: "Weekly ensemble leaderboard", Enabled: true, RolloutPercent: 100},
	{Name: FeatureLeaderboardCaching, Description: "Cache built leaderboards in Redis", Enabled: true, RolloutPercent: 100},
	{Name: FeatureLeaderboardSections, Description: "Per-section leaderboard breakdown", Enabled: true, RolloutPercent: 50},

	{Name: FeatureChallengesGroup, Description: "Ensemble-wide group challenges", Enabled: true, RolloutPercent: 100},
	{Name: FeatureChallengesSection, Description: "Section-goal challenges", Enabled: true, RolloutPercent: 100},

	{Name: FeatureTeacherLinking, Description: "Link students to teachers by code", Enabled: true, RolloutPercent: 100},
	{Name: FeatureTeacherNotes, Description: "Teacher notes on student tasks", Enabled: true, RolloutPercent: 100},
	{Name: FeatureTeacherSummary, Description: "Student practice summaries for teachers", Enabled: true, RolloutPercent: 100},

	{Name: FeatureNotifyStreakAtRisk, Description: "Remind users whose streak ends today", Enabled: true, RolloutPercent: 100},
	{Name: FeatureNotifyLevelUp, Description: "Announce level-ups", Enabled: true, RolloutPercent: 50},

	{Name: FeatureExperimentalReadinessV2, Description: "Alternate task readiness formula", Enabled: false, RolloutPercent: 0},
	{Name: FeatureExperimentalAnalytics, Description: "Advanced analytics dashboard", Enabled: false, RolloutPercent: 0},
}

// Feature is a single toggle with optional gradual rollout, section
// targeting, and a time window.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent buckets accounts 0-100 by a stable hash of
	// feature name and user ID.
	RolloutPercent int

	// TargetSections limits the feature to instrument sections. Empty
	// means all sections.
	TargetSections []string

	// Optional activation window.
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext identifies the account a flag is evaluated for. A nil
// context evaluates global state only.
type FeatureContext struct {
	UserID    string
	Section   string
	IsTeacher bool
}

// FeatureFlags holds the flag set and per-user overrides.
type FeatureFlags struct {
	mu            sync.RWMutex
	features      map[string]*Feature
	userOverrides map[string]map[string]bool
}

// LoadFeatureFlags builds the default flag set and applies environment
// overrides of the form FEATURE_<NAME>=true|false|<percent>, with dots in
// the flag name becoming underscores. FEATURE_TEACHER_NOTES=false turns
// the teacher notes surface off; FEATURE_NOTIFY_LEVEL_UP=25 sets a 25%
// rollout.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature, len(defaultFeatures)),
		userOverrides: make(map[string]map[string]bool),
	}

	for i := range defaultFeatures {
		f := defaultFeatures[i]
		applyEnvOverride(&f)
		ff.features[f.Name] = &f
	}
	return ff
}

func applyEnvOverride(f *Feature) {
	key := "FEATURE_" + strings.ReplaceAll(strings.ToUpper(f.Name), ".", "_")
	raw := os.Getenv(key)
	if raw == "" {
		return
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		f.Enabled = b
		f.RolloutPercent = 0
		if b {
			f.RolloutPercent = 100
		}
		return
	}
	if p, err := strconv.Atoi(raw); err == nil && p >= 0 && p <= 100 {
		f.Enabled = p > 0
		f.RolloutPercent = p
	}
}

// IsEnabled evaluates a flag for the given context. Per-user overrides win
// over everything; teachers see every known feature; otherwise the flag's
// enabled state, time window, section targeting, and rollout bucket apply
// in that order.
func (ff *FeatureFlags) IsEnabled(name string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if enabled, ok := ff.userOverrides[ctx.UserID][name]; ok {
			return enabled
		}
	}

	f, ok := ff.features[name]
	if !ok {
		return false
	}
	if ctx != nil && ctx.IsTeacher {
		return true
	}
	return f.enabledFor(ctx, time.Now())
}

func (f *Feature) enabledFor(ctx *FeatureContext, now time.Time) bool {
	if !f.Enabled {
		return false
	}
	if f.EnabledFrom != nil && now.Before(*f.EnabledFrom) {
		return false
	}
	if f.EnabledUntil != nil && now.After(*f.EnabledUntil) {
		return false
	}

	if len(f.TargetSections) > 0 && ctx != nil && ctx.Section != "" {
		if !slices.Contains(f.TargetSections, ctx.Section) {
			return false
		}
	}

	if f.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return rolloutBucket(f.Name, ctx.UserID) < f.RolloutPercent
	}
	return f.RolloutPercent > 0
}

// rolloutBucket maps a user to a stable 0-99 bucket per feature, so the
// same account keeps the same answer as long as the percentage holds.
func rolloutBucket(featureName, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

// SetUserOverride pins a flag for one user regardless of rollout state.
func (ff *FeatureFlags) SetUserOverride(userID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][name] = enabled
}

// ClearUserOverrides removes all pinned flags for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent changes a flag's rollout live. Zero disables the flag,
// anything positive enables it at that percentage.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	f.RolloutPercent = percent
	f.Enabled = percent > 0
	return nil
}

// GetAllFeatures returns a copy of every flag, keyed by name.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]*Feature, len(ff.features))
	for name, f := range ff.features {
		cp := *f
		out[name] = &cp
	}
	return out
}
