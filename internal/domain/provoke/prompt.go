package provoke

import (
	"fmt"
	"strings"

	"github.com/corey/ground/internal/ports"
)

const cardSystemPrompt = `You generate provocation cards for engineering review.
Return JSON only in this schema: {"cards":[{"kind":"Counterexample|Hidden Assumption|Trade-off|Security|Performance|Test Gap","title":"string","body":"string","severity":"low|med|high"}]}.
Constraints: exactly 5 cards, concise but specific, no markdown, no prose outside JSON.`

const insightSystemPrompt = `You are generating AI Evidence Insights for a coding session.
Return JSON only with schema: {"insights":[{"kind":"Implementation|Risk|Test|Performance|Security|Search","title":"string","body":"string","queries":["string"]}],"suggestedRawEvidence":[{"action":"addActiveFile|addSelection|addDiagnostics|ingestTestLog","title":"string","reason":"string"}]}.
Rules: 6-8 insights, concise and actionable, grounded in provided outline/evidence, include search queries when useful.`

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}

// CardPrompt builds the chat messages requesting provocation cards from a
// session's outline and a short evidence summary.
func CardPrompt(s *ports.Session) []ports.ChatMessage {
	var summary []string
	for i, item := range s.Evidence {
		if i == 5 {
			break
		}
		summary = append(summary, fmt.Sprintf("%d. [%s] %s :: %s", i+1, item.Type, item.Title, item.WhyIncluded))
	}

	lines := []string{
		"definitionOfDone: " + orEmpty(s.Outline.DefinitionOfDone),
		"constraints: " + orEmpty(s.Outline.Constraints),
		"verificationPlan: " + orEmpty(s.Outline.VerificationPlan),
	}
	if len(summary) > 0 {
		lines = append(lines, "evidence:\n"+strings.Join(summary, "\n"))
	} else {
		lines = append(lines, "evidence: (none)")
	}

	return []ports.ChatMessage{
		{Role: "system", Content: cardSystemPrompt},
		{Role: "user", Content: "Generate provocation cards from this session context:\n" + strings.Join(lines, "\n")},
	}
}

// InsightPrompt builds the chat messages requesting evidence insights. The
// evidence summary is wider than the card prompt's: insights are about the
// evidence itself, so refs and snippets are included.
func InsightPrompt(s *ports.Session) []ports.ChatMessage {
	var summary []string
	for i, item := range s.Evidence {
		if i == 15 {
			break
		}
		src := item.Source
		if src == "" {
			src = ports.SourceUser
		}
		line := fmt.Sprintf("%d. [%s/%s] %s | %s", i+1, item.Type, src, item.Title, item.Ref)
		if item.Snippet != "" {
			snip := item.Snippet
			if len(snip) > 200 {
				snip = snip[:200]
			}
			line += " | snippet: " + snip
		}
		summary = append(summary, line)
	}

	lines := []string{
		"definitionOfDone: " + orEmpty(s.Outline.DefinitionOfDone),
		"constraints: " + orEmpty(s.Outline.Constraints),
		"verificationPlan: " + orEmpty(s.Outline.VerificationPlan),
		fmt.Sprintf("rawEvidenceCount: %d", len(s.Evidence)),
	}
	if len(summary) > 0 {
		lines = append(lines, "rawEvidence:\n"+strings.Join(summary, "\n"))
	} else {
		lines = append(lines, "rawEvidence: (none)")
	}

	return []ports.ChatMessage{
		{Role: "system", Content: insightSystemPrompt},
		{Role: "user", Content: "Generate Evidence Insights from this session:\n" + strings.Join(lines, "\n")},
	}
}

// GroundingEvidenceIDs returns the evidence ids recorded on generated cards.
func GroundingEvidenceIDs(s *ports.Session) []string {
	ids := make([]string, 0, groundedEvidence)
	for i, item := range s.Evidence {
		if i == groundedEvidence {
			break
		}
		ids = append(ids, item.ID)
	}
	return ids
}
