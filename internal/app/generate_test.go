package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/ground/internal/domain/extract"
	"github.com/corey/ground/internal/ports"
)

// fakeChat scripts model replies for generator tests.
type fakeChat struct {
	reply string
	err   error
	// last prompt sent, for assertions
	messages []ports.ChatMessage
}

func (f *fakeChat) HealthCheck(ctx context.Context) ports.Health {
	return ports.Health{OK: true}
}

func (f *fakeChat) ChatOnce(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeChat) ChatStream(ctx context.Context, messages []ports.ChatMessage, onDelta func(string)) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		onDelta(f.reply)
	}
	return f.reply, nil
}

const cardReply = "Here you go:\n```json\n" + `{
  "cards": [
    {"kind": "Security", "title": "token scope", "body": "does the token grant more than needed?", "severity": "high"},
    {"kind": "Made Up Kind", "title": "fallback", "body": "unknown kind should still land"}
  ]
}` + "\n```"

func TestGenerateProvocations(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)
	require.NoError(t, store.AddFileEvidence("/w/auth.go", "entry point"))

	chat := &fakeChat{reply: cardReply}
	gen := NewGenerator(store, chat, nil)

	cards, err := gen.GenerateProvocations(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, ports.KindSecurity, cards[0].Kind)
	assert.Equal(t, ports.SeverityHigh, cards[0].Severity)
	assert.Equal(t, ports.KindCounterexample, cards[1].Kind)

	// Committed to the active session, grounded on its evidence.
	sess, _ := store.ActiveSession()
	require.Len(t, sess.Provocations, 2)
	require.NotEmpty(t, sess.Evidence)
	assert.Contains(t, cards[0].BasedOnEvidenceIDs, sess.Evidence[0].ID)

	// The prompt carried the session outline.
	require.NotEmpty(t, chat.messages)
	prompt := chat.messages[len(chat.messages)-1].Content
	assert.Contains(t, prompt, "done")
}

func TestGenerateProvocationsStreamed(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)

	chat := &fakeChat{reply: cardReply}
	gen := NewGenerator(store, chat, nil)

	var streamed string
	cards, err := gen.GenerateProvocations(context.Background(), func(d string) { streamed += d })
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, cardReply, streamed)
}

func TestGenerateProvocationsReplacesAndPrunes(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)
	require.NoError(t, store.SetProvocations([]ports.ProvocationCard{card("old")}))
	require.NoError(t, store.UpsertProvocationResponse("old", "accept", "fine"))

	gen := NewGenerator(store, &fakeChat{reply: cardReply}, nil)
	_, err := gen.GenerateProvocations(context.Background(), nil)
	require.NoError(t, err)

	sess, _ := store.ActiveSession()
	assert.NotContains(t, sess.ProvocationResponses, "old")
	assert.False(t, sess.Gate.ProvocationReady)
}

func TestGenerateProvocationsMalformedOutput(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)

	gen := NewGenerator(store, &fakeChat{reply: "I cannot answer in JSON, sorry."}, nil)
	_, err := gen.GenerateProvocations(context.Background(), nil)
	assert.ErrorIs(t, err, extract.ErrMalformedModelOutput)

	// A failed generation leaves existing cards alone.
	sess, _ := store.ActiveSession()
	assert.Empty(t, sess.Provocations)
}

func TestGenerateProvocationsTransportError(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)

	boom := errors.New("connection refused")
	gen := NewGenerator(store, &fakeChat{err: boom}, nil)
	_, err := gen.GenerateProvocations(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateRequiresActiveSession(t *testing.T) {
	store, _ := newTestStore(t)
	gen := NewGenerator(store, &fakeChat{reply: cardReply}, nil)

	_, err := gen.GenerateProvocations(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, _, err = gen.GenerateInsights(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestGenerateMockProvocations(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)
	require.NoError(t, store.AddFileEvidence("/w/auth.go", "entry point"))

	gen := NewGenerator(store, nil, nil)
	cards, err := gen.GenerateMockProvocations()
	require.NoError(t, err)
	assert.Len(t, cards, 5)

	sess, _ := store.ActiveSession()
	assert.Len(t, sess.Provocations, 5)
}

const insightReply = `{
  "insights": [
    {"kind": "Risk", "title": "single point of failure", "body": "all writes funnel through one goroutine", "queries": ["worker pool"]}
  ],
  "suggestedRawEvidence": [
    {"action": "ingestTestLog", "title": "", "reason": ""}
  ]
}`

func TestGenerateInsights(t *testing.T) {
	store, _ := newTestStore(t)
	readySession(t, store)
	require.NoError(t, store.AddFileEvidence("/w/writer.go", "hot path"))

	gen := NewGenerator(store, &fakeChat{reply: insightReply}, nil)
	insights, suggestions, err := gen.GenerateInsights(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, ports.InsightRisk, insights[0].Kind)
	require.Len(t, suggestions, 1)
	assert.Equal(t, ports.ActionIngestTestLog, suggestions[0].Action)
	// Blank suggestion text gets usable defaults.
	assert.NotEmpty(t, suggestions[0].Title)
	assert.NotEmpty(t, suggestions[0].Reason)

	sess, _ := store.ActiveSession()
	assert.Len(t, sess.Insights, 1)
	assert.Len(t, sess.Suggestions, 1)
}
