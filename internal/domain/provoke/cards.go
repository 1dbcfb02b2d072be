// Package provoke validates model-generated provocation cards and evidence
// insights against their closed schemas, and builds the prompts that request
// them. Enumerated fields fall back to a safe default on unrecognized input;
// required fields fail hard with the offending item's position.
package provoke

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corey/ground/internal/ports"
)

// Caps on how much model output is accepted per generation cycle.
const (
	maxCards          = 7
	maxInsights       = 12
	maxSuggestions    = 6
	maxQueriesPerCard = 6
	groundedEvidence  = 3
)

// SchemaError reports model JSON that parsed but violated the card schema.
// Pos is 1-based within the offending list.
type SchemaError struct {
	Item string // "card", "insight"
	Pos  int
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Pos == 0 {
		return fmt.Sprintf("%s: %s", e.Item, e.Msg)
	}
	return fmt.Sprintf("%s %d: %s", e.Item, e.Pos, e.Msg)
}

func normalizeKind(v any) ports.ProvocationKind {
	s, ok := v.(string)
	if !ok {
		return ports.KindCounterexample
	}
	switch ports.ProvocationKind(s) {
	case ports.KindCounterexample, ports.KindHiddenAssumption, ports.KindTradeOff,
		ports.KindSecurity, ports.KindPerformance, ports.KindTestGap:
		return ports.ProvocationKind(s)
	}
	return ports.KindCounterexample
}

func normalizeSeverity(v any) ports.Severity {
	s, ok := v.(string)
	if !ok {
		return ports.SeverityMed
	}
	switch ports.Severity(s) {
	case ports.SeverityLow, ports.SeverityMed, ports.SeverityHigh:
		return ports.Severity(s)
	}
	return ports.SeverityMed
}

func trimmedString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func itemList(raw map[string]any, key string) []map[string]any {
	list, _ := raw[key].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		} else {
			out = append(out, nil) // keep positions stable for error reporting
		}
	}
	return out
}

// ParseCards validates a model response against the card schema and returns
// provocation cards grounded in the given evidence ids (first three are
// recorded on every card, matching what the prompt exposed).
func ParseCards(raw map[string]any, evidenceIDs []string, now time.Time) ([]ports.ProvocationCard, error) {
	items := itemList(raw, "cards")
	if len(items) == 0 {
		return nil, &SchemaError{Item: "card", Msg: "no cards in model output"}
	}
	if len(items) > maxCards {
		items = items[:maxCards]
	}
	if len(evidenceIDs) > groundedEvidence {
		evidenceIDs = evidenceIDs[:groundedEvidence]
	}

	cards := make([]ports.ProvocationCard, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, &SchemaError{Item: "card", Pos: i + 1, Msg: "not an object"}
		}
		title := trimmedString(item, "title")
		body := trimmedString(item, "body")
		if title == "" || body == "" {
			return nil, &SchemaError{Item: "card", Pos: i + 1, Msg: "missing title/body"}
		}
		cards = append(cards, ports.ProvocationCard{
			ID:                 "prov_" + uuid.NewString(),
			Kind:               normalizeKind(item["kind"]),
			Title:              title,
			Body:               body,
			Severity:           normalizeSeverity(item["severity"]),
			BasedOnEvidenceIDs: append([]string(nil), evidenceIDs...),
			CreatedAt:          now,
		})
	}
	return cards, nil
}
