package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/ground/internal/ports"
)

// ExportMarkdown renders the active session as a Markdown report. The
// gate must be clear: an unfinished outline or unanswered provocation
// cards refuse the export with ErrExportLocked.
func (s *Store) ExportMarkdown() (string, error) {
	sess, err := s.ActiveSession()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrNoActiveSession
	}
	if !sess.Gate.CanExport {
		return "", fmt.Errorf("%w: outline ready %v, provocations %d/%d",
			ErrExportLocked,
			sess.Gate.OutlineReady,
			sess.Gate.ProvocationRespondedCount,
			sess.Gate.ProvocationTotalCount)
	}
	return renderMarkdown(sess), nil
}

func writeSection(b *strings.Builder, heading, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "### %s\n\n%s\n\n", heading, strings.TrimSpace(body))
}

func renderMarkdown(sess *ports.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", sess.Title)
	fmt.Fprintf(&b, "- Mode: %s\n", sess.Mode.Label())
	fmt.Fprintf(&b, "- Created: %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Updated: %s\n\n", sess.UpdatedAt.Format(time.RFC3339))

	b.WriteString("## Outline\n\n")
	writeSection(&b, "Symptom", sess.Outline.Symptom)
	writeSection(&b, "Repro steps", sess.Outline.ReproSteps)
	writeSection(&b, "Definition of done", sess.Outline.DefinitionOfDone)
	writeSection(&b, "Constraints", sess.Outline.Constraints)
	writeSection(&b, "Strategy", sess.Outline.Strategy)
	writeSection(&b, "Verification plan", sess.Outline.VerificationPlan)

	if len(sess.Evidence) > 0 {
		b.WriteString("## Evidence\n\n")
		for _, e := range sess.Evidence {
			fmt.Fprintf(&b, "- **%s** (%s) `%s`\n  - Why: %s\n", e.Title, e.Type, e.Ref, e.WhyIncluded)
		}
		b.WriteString("\n")
	}

	if len(sess.Provocations) > 0 {
		b.WriteString("## Provocations\n\n")
		for _, card := range sess.Provocations {
			fmt.Fprintf(&b, "### [%s] %s\n\n%s\n\n", card.Kind, card.Title, card.Body)
			if resp, ok := sess.ProvocationResponses[card.ID]; ok {
				fmt.Fprintf(&b, "**Decision:** %s — %s\n\n", resp.Decision, resp.Rationale)
			}
		}
	}

	if len(sess.Insights) > 0 {
		b.WriteString("## Evidence insights\n\n")
		for _, ins := range sess.Insights {
			fmt.Fprintf(&b, "- **[%s] %s** — %s\n", ins.Kind, ins.Title, ins.Body)
			for _, q := range ins.Queries {
				fmt.Fprintf(&b, "  - search: `%s`\n", q)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
