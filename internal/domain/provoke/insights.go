package provoke

import (
	"time"

	"github.com/google/uuid"

	"github.com/corey/ground/internal/ports"
)

func normalizeInsightKind(v any) ports.InsightKind {
	s, ok := v.(string)
	if !ok {
		return ports.InsightImplementation
	}
	switch ports.InsightKind(s) {
	case ports.InsightImplementation, ports.InsightRisk, ports.InsightTest,
		ports.InsightPerformance, ports.InsightSecurity, ports.InsightSearch:
		return ports.InsightKind(s)
	}
	return ports.InsightImplementation
}

func normalizeAction(v any) ports.SuggestionAction {
	s, ok := v.(string)
	if !ok {
		return ports.ActionAddDiagnostics
	}
	switch ports.SuggestionAction(s) {
	case ports.ActionAddActiveFile, ports.ActionAddSelection,
		ports.ActionAddDiagnostics, ports.ActionIngestTestLog:
		return ports.SuggestionAction(s)
	}
	return ports.ActionAddDiagnostics
}

func stringList(v any, max int) []string {
	list, _ := v.([]any)
	var out []string
	for _, it := range list {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
		if len(out) == max {
			break
		}
	}
	return out
}

// ParseInsights validates a model response against the insight schema.
// Insights require title and body; suggestions get defaults for blank
// fields since they are advisory, not gating.
func ParseInsights(raw map[string]any, now time.Time) ([]ports.InsightCard, []ports.EvidenceSuggestion, error) {
	items := itemList(raw, "insights")
	if len(items) == 0 {
		return nil, nil, &SchemaError{Item: "insight", Msg: "no insights in model output"}
	}
	if len(items) > maxInsights {
		items = items[:maxInsights]
	}

	insights := make([]ports.InsightCard, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, nil, &SchemaError{Item: "insight", Pos: i + 1, Msg: "not an object"}
		}
		title := trimmedString(item, "title")
		body := trimmedString(item, "body")
		if title == "" || body == "" {
			return nil, nil, &SchemaError{Item: "insight", Pos: i + 1, Msg: "missing title/body"}
		}
		insights = append(insights, ports.InsightCard{
			ID:        "ins_" + uuid.NewString(),
			Kind:      normalizeInsightKind(item["kind"]),
			Title:     title,
			Body:      body,
			Queries:   stringList(item["queries"], maxQueriesPerCard),
			CreatedAt: now,
		})
	}

	rawSugs := itemList(raw, "suggestedRawEvidence")
	if len(rawSugs) > maxSuggestions {
		rawSugs = rawSugs[:maxSuggestions]
	}
	suggestions := make([]ports.EvidenceSuggestion, 0, len(rawSugs))
	for _, item := range rawSugs {
		if item == nil {
			continue
		}
		title := trimmedString(item, "title")
		if title == "" {
			title = "Suggested raw evidence"
		}
		reason := trimmedString(item, "reason")
		if reason == "" {
			reason = "Additional context may be needed for higher confidence."
		}
		suggestions = append(suggestions, ports.EvidenceSuggestion{
			ID:        "sug_" + uuid.NewString(),
			Action:    normalizeAction(item["action"]),
			Title:     title,
			Reason:    reason,
			CreatedAt: now,
		})
	}

	return insights, suggestions, nil
}
