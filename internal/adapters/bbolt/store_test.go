package bbolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/ground/internal/ports"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ground.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func makeTestState() *ports.State {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	return &ports.State{
		ActiveSessionID: "sess_1",
		SessionsByID: map[string]*ports.Session{
			"sess_1": {
				ID:        "sess_1",
				Title:     "Bugfix · auth.go",
				Mode:      ports.ModeBugfix,
				CreatedAt: now,
				UpdatedAt: now,
				Context:   ports.SessionContext{WorkspaceFolder: "/work/app", ActiveFile: "/work/app/auth.go"},
				Outline:   ports.Outline{DefinitionOfDone: "login works", Constraints: "no schema change", VerificationPlan: "integration suite"},
				Evidence: []ports.EvidenceItem{
					{ID: "ev_1", Type: ports.EvidenceFile, Title: "auth.go", Ref: "/work/app/auth.go", WhyIncluded: "failing handler", CreatedAt: now, Source: ports.SourceUser},
				},
				Provocations: []ports.ProvocationCard{
					{ID: "prov_1", Kind: ports.KindSecurity, Title: "token leak", Body: "where do refresh tokens go?", Severity: ports.SeverityHigh, CreatedAt: now},
				},
				ProvocationResponses: map[string]ports.ProvocationResponse{
					"prov_1": {Decision: ports.DecisionAccept, Rationale: "added to plan", RespondedAt: now},
				},
			},
			"sess_2": {
				ID: "sess_2", Title: "Standard session", Mode: ports.ModeStandard,
				CreatedAt: now, UpdatedAt: now, Archived: true,
				ProvocationResponses: map[string]ports.ProvocationResponse{},
			},
		},
		SessionOrder: []string{"sess_1", "sess_2"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	want := makeTestState()
	require.NoError(t, store.SaveState(want))

	got, err := store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ActiveSessionID, got.ActiveSessionID)
	assert.Equal(t, want.SessionOrder, got.SessionOrder)
	assert.Equal(t, want.SessionsByID["sess_1"].Outline, got.SessionsByID["sess_1"].Outline)
	assert.Equal(t, want.SessionsByID["sess_1"].Evidence, got.SessionsByID["sess_1"].Evidence)
	assert.Equal(t, want.SessionsByID["sess_1"].ProvocationResponses, got.SessionsByID["sess_1"].ProvocationResponses)
	assert.True(t, got.SessionsByID["sess_2"].Archived)
}

func TestLoadStateFresh(t *testing.T) {
	store, _ := newTestStore(t)

	st, err := store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestSaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)

	first := makeTestState()
	require.NoError(t, store.SaveState(first))

	second := ports.NewState()
	require.NoError(t, store.SaveState(second))

	got, err := store.LoadState()
	require.NoError(t, err)
	assert.Empty(t, got.ActiveSessionID)
	assert.Empty(t, got.SessionOrder)
}

func TestSaveNilState(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.SaveState(nil))
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ground.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveState(makeTestState()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess_1", got.ActiveSessionID)
	assert.Len(t, got.SessionsByID, 2)
}

func TestLegacySlot(t *testing.T) {
	store, _ := newTestStore(t)

	raw, err := store.LoadLegacySession()
	require.NoError(t, err)
	assert.Nil(t, raw)

	blob := []byte(`{"id":"sess_old","mode":"standard"}`)
	require.NoError(t, store.SeedLegacySession(blob))

	raw, err = store.LoadLegacySession()
	require.NoError(t, err)
	assert.Equal(t, blob, raw)

	require.NoError(t, store.ClearLegacySession())
	raw, err = store.LoadLegacySession()
	require.NoError(t, err)
	assert.Nil(t, raw)

	// Idempotent on an already-empty slot.
	require.NoError(t, store.ClearLegacySession())
}
