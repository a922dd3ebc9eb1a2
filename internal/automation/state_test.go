package automation

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentron/commentron/internal/storage"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	require.NoError(t, storage.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { storage.Close() })
	return NewStore(storage.CommentSettings{
		Goal: "networking", Tone: "professional", Length: "medium", Autopost: "manual_review",
	})
}

func getString(t *testing.T, s *Store, key string) string {
	t.Helper()
	raw, err := s.GetValue(context.Background(), key)
	require.NoError(t, err)
	var v string
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestStorePageStateFollowsActiveRun(t *testing.T) {
	s := setupStore(t)

	assert.Equal(t, "off", getString(t, s, KeyPageState))

	require.NoError(t, storage.BeginRun("run-1", 5, "1w"))
	assert.Equal(t, "on", getString(t, s, KeyPageState))

	require.NoError(t, storage.FinishRun("run-1", "quota_met", ""))
	assert.Equal(t, "off", getString(t, s, KeyPageState))
}

func TestStoreRunScopedKeys(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, storage.BeginRun("run-1", 7, "2w"))
	require.NoError(t, storage.SaveRunURNs("run-1", []string{"urn:a"}))
	require.NoError(t, storage.FinishRun("run-1", "end_of_page", "Collected 1 posts"))

	raw, err := s.GetValue(context.Background(), KeyQuota)
	require.NoError(t, err)
	assert.Equal(t, "7", string(raw))

	raw, err = s.GetValue(context.Background(), KeyPageURNs)
	require.NoError(t, err)
	assert.JSONEq(t, `["urn:a"]`, string(raw))

	assert.Equal(t, "Collected 1 posts", getString(t, s, KeyCompleteMessage))
	assert.Equal(t, "2w", getString(t, s, KeyPostAgeLimit))
}

func TestStoreSetPageStateOffCancelsRun(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, storage.BeginRun("run-1", 5, ""))

	require.NoError(t, s.SetValue(context.Background(), KeyPageState, json.RawMessage(`"off"`)))

	_, active, err := storage.ActiveRun()
	require.NoError(t, err)
	assert.False(t, active)

	run, err := storage.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", run.Reason)

	// Idempotent with no active run.
	require.NoError(t, s.SetValue(context.Background(), KeyPageState, json.RawMessage(`"off"`)))
}

func TestStoreSetPageStateOnRejected(t *testing.T) {
	s := setupStore(t)
	err := s.SetValue(context.Background(), KeyPageState, json.RawMessage(`"on"`))
	require.Error(t, err)
}

func TestStoreCommentSettingsRoundTrip(t *testing.T) {
	s := setupStore(t)

	raw, err := s.GetValue(context.Background(), KeyCommentSettings)
	require.NoError(t, err)
	var settings storage.CommentSettings
	require.NoError(t, json.Unmarshal(raw, &settings))
	assert.Equal(t, "networking", settings.Goal, "defaults until something is saved")

	update := `{"goal":"support","tone":"friendly","length":"short","expertise":"ops","autopost":"autopost"}`
	require.NoError(t, s.SetValue(context.Background(), KeyCommentSettings, json.RawMessage(update)))

	raw, err = s.GetValue(context.Background(), KeyCommentSettings)
	require.NoError(t, err)
	assert.JSONEq(t, update, string(raw))
}

func TestStoreUnknownKeys(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetValue(context.Background(), "bogus")
	assert.Error(t, err)

	err = s.SetValue(context.Background(), KeyQuota, json.RawMessage(`3`))
	assert.Error(t, err, "run-scoped keys are not writable from the page")
}

func TestStoreSaveURNsRegistersPosts(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, storage.BeginRun("run-1", 5, ""))

	require.NoError(t, s.SaveURNs("run-1", []string{"urn:x", "urn:y"}))

	for _, urn := range []string{"urn:x", "urn:y"} {
		exists, err := storage.PostExists(urn)
		require.NoError(t, err)
		assert.True(t, exists, "%s should be registered", urn)
	}
}
