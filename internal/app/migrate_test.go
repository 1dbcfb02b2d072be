package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/ground/internal/ports"
)

const legacyBlob = `{
  "id": "sess_old",
  "title": "Fix flaky login test",
  "mode": "bugfix",
  "createdAt": "2025-11-02T09:00:00Z",
  "updatedAt": "2025-11-03T15:30:00Z",
  "context": {"workspaceFolder": "/work/app", "activeFile": "/work/app/login.go"},
  "outline": {
    "definitionOfDone": "login test green 50 runs in a row",
    "constraints": "no retry wrappers",
    "verificationPlan": "stress loop in CI"
  },
  "evidence": [
    {"id": "ev_old1", "type": "testLog", "title": "CI failure", "ref": "testlog:paste:x",
     "whyIncluded": "shows the flake", "createdAt": "2025-11-02T10:00:00Z"}
  ],
  "provocations": [
    {"id": "prov_old1", "kind": "Test Gap", "title": "timing assumption",
     "body": "what if the token refresh races the assertion?", "createdAt": "2025-11-02T11:00:00Z"}
  ],
  "decisions": {
    "prov_old1": {"status": "accept", "reason": "added a clock stub", "decidedAt": "2025-11-03T15:00:00Z"}
  }
}`

func newLegacyStore(t *testing.T, legacy []byte) (*Store, *memStorage) {
	t.Helper()
	mem := &memStorage{legacy: legacy}
	store := New(mem, nil, WithClock(testClock()), WithIDGenerator(testIDs()))
	require.NoError(t, store.Load())
	return store, mem
}

func TestMigrateLegacySingleSession(t *testing.T) {
	store, mem := newLegacyStore(t, []byte(legacyBlob))

	sess, err := store.Session("sess_old")
	require.NoError(t, err)
	assert.Equal(t, "Fix flaky login test", sess.Title)
	assert.Equal(t, ports.ModeBugfix, sess.Mode)
	assert.Equal(t, "/work/app/login.go", sess.Context.ActiveFile)
	require.Len(t, sess.Evidence, 1)

	// decisions/status/reason become provocationResponses/decision/rationale.
	require.Contains(t, sess.ProvocationResponses, "prov_old1")
	resp := sess.ProvocationResponses["prov_old1"]
	assert.Equal(t, ports.DecisionAccept, resp.Decision)
	assert.Equal(t, "added a clock stub", resp.Rationale)
	assert.Equal(t, "2025-11-03T15:00:00Z", resp.RespondedAt.Format("2006-01-02T15:04:05Z07:00"))

	active, _ := store.ActiveSessionID()
	assert.Equal(t, "sess_old", active)

	// Gate is recomputed, never trusted from the blob.
	assert.True(t, sess.Gate.OutlineReady)
	assert.True(t, sess.Gate.ProvocationReady)
	assert.True(t, sess.Gate.CanExport)

	// Legacy slot is cleared and the new shape persisted.
	assert.Nil(t, mem.legacy)
	assert.NotNil(t, mem.blob)
}

func TestMigrationRunsOnce(t *testing.T) {
	_, mem := newLegacyStore(t, []byte(legacyBlob))

	// A later store sees the migrated state, not the legacy path.
	again := New(mem, nil)
	require.NoError(t, again.Load())
	sess, err := again.Session("sess_old")
	require.NoError(t, err)
	assert.Equal(t, "Fix flaky login test", sess.Title)
}

func TestMigrateLegacyUnknownModeAndMissingFields(t *testing.T) {
	store, _ := newLegacyStore(t, []byte(`{"mode": "experimental", "decisions": {"x": {"status": "shrug", "reason": "?"}}}`))

	metas, err := store.ListSessions(true)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, ports.ModeStandard, metas[0].Mode)
	assert.Equal(t, "Standard session", metas[0].Title)

	sess, _ := store.Session(metas[0].ID)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.CreatedAt.IsZero())
	// Unparseable decisions are dropped; so are responses to unknown cards.
	assert.Empty(t, sess.ProvocationResponses)
}

func TestMigrateMalformedLegacyDiscarded(t *testing.T) {
	store, mem := newLegacyStore(t, []byte(`{not json`))

	metas, err := store.ListSessions(true)
	require.NoError(t, err)
	assert.Empty(t, metas)
	assert.Nil(t, mem.legacy)
}

func TestNormalizeRepairsOrderAndActive(t *testing.T) {
	st := ports.NewState()
	st.SessionsByID["a"] = &ports.Session{ID: "a", Mode: ports.ModeStandard}
	st.SessionsByID["b"] = &ports.Session{ID: "b", Mode: ports.ModeStandard, Archived: true}
	st.SessionOrder = []string{"b", "ghost", "b"}
	st.ActiveSessionID = "b"

	normalizeState(st)

	assert.ElementsMatch(t, []string{"a", "b"}, st.SessionOrder)
	assert.Equal(t, "b", st.SessionOrder[0])
	// Archived active falls back to a live session.
	assert.Equal(t, "a", st.ActiveSessionID)
	assert.NotNil(t, st.SessionsByID["a"].Evidence)
	assert.NotNil(t, st.SessionsByID["a"].ProvocationResponses)
}

func TestNormalizeKeepsEmptyActive(t *testing.T) {
	st := ports.NewState()
	st.SessionsByID["a"] = &ports.Session{ID: "a", Mode: ports.ModeStandard}
	st.SessionOrder = []string{"a"}

	normalizeState(st)
	assert.Empty(t, st.ActiveSessionID)
}
