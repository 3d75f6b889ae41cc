package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlagDefaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureGamificationStreaks, nil))
	assert.True(t, ff.IsEnabled(FeatureTeacherNotes, nil))
	assert.False(t, ff.IsEnabled(FeatureExperimentalReadinessV2, nil))
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlagEnvOverride(t *testing.T) {
	t.Setenv("FEATURE_TEACHER_NOTES", "false")
	t.Setenv("FEATURE_EXPERIMENTAL_READINESS_V2", "true")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureTeacherNotes, nil))
	assert.True(t, ff.IsEnabled(FeatureExperimentalReadinessV2, nil))
}

func TestFeatureFlagRolloutIsConsistent(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureLeaderboardSections, 50))

	ctx := &FeatureContext{UserID: "4f2c9a1e-0b5d-4c3a-9e8f-6d7a2b1c0e9d"}
	first := ff.IsEnabled(FeatureLeaderboardSections, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureLeaderboardSections, ctx), "bucket must not flap")
	}
}

func TestFeatureFlagTeacherSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyLevelUp, 0))

	teacher := &FeatureContext{UserID: "t1", IsTeacher: true}
	student := &FeatureContext{UserID: "s1"}
	assert.True(t, ff.IsEnabled(FeatureNotifyLevelUp, teacher))
	assert.False(t, ff.IsEnabled(FeatureNotifyLevelUp, student))
}

func TestFeatureFlagUserOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "u1"}

	ff.SetUserOverride("u1", FeatureExperimentalAnalytics, true)
	assert.True(t, ff.IsEnabled(FeatureExperimentalAnalytics, ctx))

	ff.ClearUserOverrides("u1")
	assert.False(t, ff.IsEnabled(FeatureExperimentalAnalytics, ctx))
}

func TestFeatureFlagTimeWindow(t *testing.T) {
	ff := LoadFeatureFlags()
	future := time.Now().Add(24 * time.Hour)

	features := ff.GetAllFeatures()
	require.Contains(t, features, FeatureChallengesGroup)

	ff.mu.Lock()
	ff.features[FeatureChallengesGroup].EnabledFrom = &future
	ff.mu.Unlock()

	assert.False(t, ff.IsEnabled(FeatureChallengesGroup, nil))
}
