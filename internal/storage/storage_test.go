package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { Close() })
}

func TestRunLifecycle(t *testing.T) {
	setupDB(t)

	require.NoError(t, BeginRun("run-1", 10, "1w"))

	id, active, err := ActiveRun()
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "run-1", id)

	require.NoError(t, SaveRunURNs("run-1", []string{"urn:a", "urn:b"}))
	require.NoError(t, FinishRun("run-1", "quota_met", "Collected 2 posts"))

	_, active, err = ActiveRun()
	require.NoError(t, err)
	assert.False(t, active)

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.False(t, run.Active)
	assert.Equal(t, 10, run.Quota)
	assert.Equal(t, "1w", run.AgeLimit)
	assert.Equal(t, []string{"urn:a", "urn:b"}, run.URNs)
	assert.Equal(t, "quota_met", run.Reason)
	assert.Equal(t, "Collected 2 posts", run.Message)
	assert.NotNil(t, run.FinishedAt)
}

func TestBeginRunSupersedesActiveRun(t *testing.T) {
	setupDB(t)

	require.NoError(t, BeginRun("run-1", 5, ""))
	require.NoError(t, BeginRun("run-2", 5, ""))

	id, active, err := ActiveRun()
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "run-2", id)

	old, err := GetRun("run-1")
	require.NoError(t, err)
	assert.False(t, old.Active)
	assert.Equal(t, "superseded", old.Reason)
}

func TestCancelRun(t *testing.T) {
	setupDB(t)

	require.NoError(t, BeginRun("run-1", 5, ""))
	require.NoError(t, CancelRun("run-1"))

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.False(t, run.Active)
	assert.Equal(t, "cancelled", run.Reason)
}

func TestFinishUnknownRun(t *testing.T) {
	setupDB(t)
	assert.Error(t, FinishRun("missing", "quota_met", ""))
}

func TestActiveRunWhenNone(t *testing.T) {
	setupDB(t)

	_, active, err := ActiveRun()
	require.NoError(t, err)
	assert.False(t, active)

	run, err := LatestRun()
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestPostsDedupeAndEngage(t *testing.T) {
	setupDB(t)

	require.NoError(t, SavePost("urn:1"))
	require.NoError(t, SavePost("urn:1"))

	exists, err := PostExists("urn:1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = PostExists("urn:2")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, MarkEngaged("urn:1"))
	require.NoError(t, RecordEngagement(Engagement{URN: "urn:1", Comment: "nice", Mode: "autopost"}))

	stats, err := GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["total_posts"])
	assert.Equal(t, 1, stats["engaged_posts"])
	assert.Equal(t, 1, stats["total_engagements"])
}

func TestDailyUsageCountsByKind(t *testing.T) {
	setupDB(t)

	require.NoError(t, RecordUsage("generation"))
	require.NoError(t, RecordUsage("generation"))
	require.NoError(t, RecordUsage("other"))

	n, err := DailyUsage("generation")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = DailyUsage("other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCommentSettingsDefaultsAndUpsert(t *testing.T) {
	setupDB(t)

	defaults := CommentSettings{Goal: "networking", Tone: "professional", Length: "medium", Autopost: "manual_review"}

	got, err := GetCommentSettings(defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, got, "no stored row falls back to defaults")

	saved := CommentSettings{Goal: "support", Tone: "friendly", Length: "short", Expertise: "sales", Autopost: "autopost"}
	require.NoError(t, SaveCommentSettings(saved))

	got, err = GetCommentSettings(defaults)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	saved.Tone = "enthusiastic"
	require.NoError(t, SaveCommentSettings(saved))

	got, err = GetCommentSettings(defaults)
	require.NoError(t, err)
	assert.Equal(t, "enthusiastic", got.Tone, "second save updates the single row")
}
