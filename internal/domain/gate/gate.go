// Package gate computes session readiness. Compute is a total, pure
// function: no I/O, no mutation, re-run after every structural change to a
// session's outline, mode, provocations, or responses.
package gate

import (
	"strings"

	"github.com/corey/ground/internal/ports"
)

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// respondedTo reports whether the card has a valid response: a decision in
// the accept/hold/reject enumeration and a non-blank rationale.
func respondedTo(s *ports.Session, cardID string) bool {
	resp, ok := s.ProvocationResponses[cardID]
	if !ok {
		return false
	}
	if _, valid := ports.ParseDecision(string(resp.Decision)); !valid {
		return false
	}
	return hasText(resp.Rationale)
}

// Compute derives the gate status for a session.
//
// Rules:
//   - outlineReady requires definitionOfDone and verificationPlan; fast
//     mode waives constraints, every other mode requires it.
//   - provocationReady requires at least one card and a valid response to
//     every card. Zero cards is never ready: absence of friction is not
//     readiness.
//   - canGeneratePatch stays locked in this version.
//   - canExport requires both readiness flags.
func Compute(s *ports.Session) ports.GateStatus {
	outlineReady := hasText(s.Outline.DefinitionOfDone) && hasText(s.Outline.VerificationPlan)
	if s.Mode != ports.ModeFast {
		outlineReady = outlineReady && hasText(s.Outline.Constraints)
	}

	total := len(s.Provocations)
	responded := 0
	for _, card := range s.Provocations {
		if respondedTo(s, card.ID) {
			responded++
		}
	}
	provocationReady := total > 0 && responded == total

	return ports.GateStatus{
		OutlineReady:              outlineReady,
		ProvocationReady:          provocationReady,
		ProvocationRespondedCount: responded,
		ProvocationTotalCount:     total,
		CanGeneratePatch:          false,
		CanExport:                 outlineReady && provocationReady,
	}
}
