package provoke

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corey/ground/internal/ports"
)

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

// MockCards produces template provocation cards from the session's own
// outline, for working offline or before the inference endpoint is up.
func MockCards(s *ports.Session, now time.Time) []ports.ProvocationCard {
	dod := orDefault(s.Outline.DefinitionOfDone, "the current plan")
	constraints := orDefault(s.Outline.Constraints, "stated constraints")
	verification := orDefault(s.Outline.VerificationPlan, "the verification plan")
	firstEvidence := "current evidence"
	if len(s.Evidence) > 0 {
		firstEvidence = s.Evidence[0].Title
	}
	var evidenceIDs []string
	for i, item := range s.Evidence {
		if i == 2 {
			break
		}
		evidenceIDs = append(evidenceIDs, item.ID)
	}

	card := func(kind ports.ProvocationKind, sev ports.Severity, title, body string) ports.ProvocationCard {
		return ports.ProvocationCard{
			ID:                 "prov_" + uuid.NewString(),
			Kind:               kind,
			Title:              title,
			Body:               body,
			Severity:           sev,
			BasedOnEvidenceIDs: append([]string(nil), evidenceIDs...),
			CreatedAt:          now,
		}
	}

	return []ports.ProvocationCard{
		card(ports.KindCounterexample, ports.SeverityHigh, "Counterexample for success criteria",
			fmt.Sprintf("What scenario would make %q appear successful while still violating user intent?", dod)),
		card(ports.KindHiddenAssumption, ports.SeverityMed, "Assumption audit",
			fmt.Sprintf("Which hidden assumption in %q could break when input or scale changes?", constraints)),
		card(ports.KindTradeOff, ports.SeverityMed, "Trade-off checkpoint",
			"If we optimize for this approach, what do we deliberately give up, and is that acceptable now?"),
		card(ports.KindTestGap, ports.SeverityHigh, "Test gap against verification",
			fmt.Sprintf("Which failure path is not covered by %q and should be tested first?", verification)),
		card(ports.KindSecurity, ports.SeverityHigh, "Security and misuse check",
			fmt.Sprintf("Could user-controlled input, secrets, or permissions around %q create an exploit path?", firstEvidence)),
	}
}
