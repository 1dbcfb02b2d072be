package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/ground/internal/ports"
)

func TestBuildEvidencePack(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateSession(ports.ModeBugfix, "A")

	in := PackInput{
		ActiveFile:    "/w/handler.go",
		SelectionRef:  "/w/handler.go:10:1-24:2",
		SelectionText: "func handle() {}",
		Diagnostics: []ports.Diagnostic{
			{URI: "/w/handler.go", Line: 9, Character: 0, Severity: "error", Message: "undefined: x", Source: "compiler"},
			{URI: "/w/other.go", Line: 1, Character: 0, Severity: "hint", Message: "could simplify"},
		},
	}

	n, err := store.BuildEvidencePack(in)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	sess, _ := store.ActiveSession()
	require.Len(t, sess.Evidence, 4)
	assert.Equal(t, ports.EvidenceFile, sess.Evidence[0].Type)
	assert.Equal(t, ports.SourceAuto, sess.Evidence[0].Source)
	assert.Equal(t, ports.EvidenceSelection, sess.Evidence[1].Type)
	// Diagnostics land most severe first.
	assert.Contains(t, sess.Evidence[2].Title, "Error: undefined: x")
	assert.Equal(t, "/w/handler.go:10:1", sess.Evidence[2].Ref)
	assert.Equal(t, "source: compiler", sess.Evidence[2].Snippet)
	assert.Contains(t, sess.Evidence[3].Title, "Hint:")
}

func TestBuildEvidencePackSkipsDuplicates(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateSession(ports.ModeBugfix, "A")

	in := PackInput{ActiveFile: "/w/handler.go"}
	n, err := store.BuildEvidencePack(in)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Rebuilding the same pack adds nothing.
	n, err = store.BuildEvidencePack(in)
	require.NoError(t, err)
	assert.Zero(t, n)

	sess, _ := store.ActiveSession()
	assert.Len(t, sess.Evidence, 1)
}

func TestBuildEvidencePackCapsDiagnostics(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateSession(ports.ModeBugfix, "A")

	var diags []ports.Diagnostic
	for i := 0; i < 20; i++ {
		diags = append(diags, ports.Diagnostic{
			URI: "/w/a.go", Line: i, Severity: "warning", Message: "w",
		})
	}
	n, err := store.BuildEvidencePack(PackInput{Diagnostics: diags})
	require.NoError(t, err)
	assert.Equal(t, packDiagnosticsMax, n)
}

func TestBuildEvidencePackTruncatesSelection(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateSession(ports.ModeBugfix, "A")

	n, err := store.BuildEvidencePack(PackInput{
		SelectionRef:  "/w/a.go:1:1-999:1",
		SelectionText: strings.Repeat("x", packSelectionMax+500),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sess, _ := store.ActiveSession()
	assert.Len(t, sess.Evidence[0].Snippet, packSelectionMax)
}

func TestBuildEvidencePackEmptyInput(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateSession(ports.ModeBugfix, "A")

	n, err := store.BuildEvidencePack(PackInput{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
