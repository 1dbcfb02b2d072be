package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/corey/ground/internal/domain/extract"
	"github.com/corey/ground/internal/domain/provoke"
	"github.com/corey/ground/internal/ports"
)

// Generator drives AI provocation and insight generation: it prompts
// the chat client with the active session, parses the model's JSON
// reply leniently, and commits the validated cards to the store.
type Generator struct {
	store *Store
	chat  ports.ChatClient
	log   *zap.Logger
}

// NewGenerator wires a generator over the store and a chat client.
func NewGenerator(store *Store, chat ports.ChatClient, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{store: store, chat: chat, log: log}
}

func (g *Generator) activeSession() (*ports.Session, error) {
	sess, err := g.store.ActiveSession()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

func (g *Generator) complete(ctx context.Context, msgs []ports.ChatMessage, onDelta func(string)) (string, error) {
	if onDelta != nil {
		return g.chat.ChatStream(ctx, msgs, onDelta)
	}
	return g.chat.ChatOnce(ctx, msgs)
}

// GenerateProvocations asks the model to challenge the active session's
// plan and replaces its provocation cards with the parsed result.
// Responses to cards that no longer exist are pruned by the store. Pass
// onDelta to stream raw model output as it arrives; nil requests a
// single non-streaming completion.
func (g *Generator) GenerateProvocations(ctx context.Context, onDelta func(string)) ([]ports.ProvocationCard, error) {
	sess, err := g.activeSession()
	if err != nil {
		return nil, err
	}

	text, err := g.complete(ctx, provoke.CardPrompt(sess), onDelta)
	if err != nil {
		return nil, fmt.Errorf("generating provocations: %w", err)
	}
	raw, err := extract.JSONObject(text)
	if err != nil {
		return nil, err
	}
	cards, err := provoke.ParseCards(raw, provoke.GroundingEvidenceIDs(sess), g.store.now())
	if err != nil {
		return nil, err
	}
	if err := g.store.SetProvocations(cards); err != nil {
		return nil, err
	}
	g.log.Info("provocations generated",
		zap.String("session", sess.ID),
		zap.Int("cards", len(cards)))
	return cards, nil
}

// GenerateMockProvocations installs deterministic template cards for
// offline use. No model round trip.
func (g *Generator) GenerateMockProvocations() ([]ports.ProvocationCard, error) {
	sess, err := g.activeSession()
	if err != nil {
		return nil, err
	}
	cards := provoke.MockCards(sess, g.store.now())
	if err := g.store.SetProvocations(cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GenerateInsights asks the model to review the active session's
// evidence and replaces its insight cards and evidence suggestions
// with the parsed result.
func (g *Generator) GenerateInsights(ctx context.Context, onDelta func(string)) ([]ports.InsightCard, []ports.EvidenceSuggestion, error) {
	sess, err := g.activeSession()
	if err != nil {
		return nil, nil, err
	}

	text, err := g.complete(ctx, provoke.InsightPrompt(sess), onDelta)
	if err != nil {
		return nil, nil, fmt.Errorf("generating insights: %w", err)
	}
	raw, err := extract.JSONObject(text)
	if err != nil {
		return nil, nil, err
	}
	insights, suggestions, err := provoke.ParseInsights(raw, g.store.now())
	if err != nil {
		return nil, nil, err
	}
	if err := g.store.SetEvidenceInsights(insights, suggestions); err != nil {
		return nil, nil, err
	}
	g.log.Info("evidence insights generated",
		zap.String("session", sess.ID),
		zap.Int("insights", len(insights)),
		zap.Int("suggestions", len(suggestions)))
	return insights, suggestions, nil
}
