package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corey/ground/internal/ports"
)

const (
	packSelectionMax   = 4000
	packDiagnosticsMax = 8
)

// PackInput is everything an evidence pack can be built from: the
// caller's current file, selection, and collected diagnostics. Any
// field may be zero.
type PackInput struct {
	ActiveFile    string
	SelectionRef  string
	SelectionText string
	Diagnostics   []ports.Diagnostic
}

func packKey(item ports.EvidenceItem) string {
	return string(item.Type) + ":" + item.Ref
}

func sortedBySeverity(diags []ports.Diagnostic) []ports.Diagnostic {
	out := append([]ports.Diagnostic(nil), diags...)
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank(out[i].Severity) < severityRank(out[j].Severity)
	})
	return out
}

func titleSeverity(sev string) string {
	switch strings.ToLower(sev) {
	case "error":
		return "Error"
	case "warning":
		return "Warning"
	case "information", "info":
		return "Info"
	case "hint":
		return "Hint"
	default:
		return "Unknown"
	}
}

// BuildEvidencePack assembles a one-shot evidence bundle from the input
// and attaches it to the active session. Items whose type:ref pair is
// already present on the session are skipped, so rebuilding a pack
// never duplicates evidence. Returns how many new items were added.
func (s *Store) BuildEvidencePack(in PackInput) (int, error) {
	sess, err := s.ActiveSession()
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool)
	if sess != nil {
		for _, item := range sess.Evidence {
			existing[packKey(item)] = true
		}
	}

	var collected []ports.EvidenceItem
	add := func(item ports.EvidenceItem) {
		key := packKey(item)
		if existing[key] {
			return
		}
		existing[key] = true
		collected = append(collected, item)
	}

	if in.ActiveFile != "" {
		add(ports.EvidenceItem{
			Type:        ports.EvidenceFile,
			Title:       "Active file",
			Ref:         in.ActiveFile,
			WhyIncluded: "Currently edited file for this session.",
			Source:      ports.SourceAuto,
		})
	}
	if in.SelectionRef != "" && in.SelectionText != "" {
		snippet := in.SelectionText
		if len(snippet) > packSelectionMax {
			snippet = snippet[:packSelectionMax]
		}
		add(ports.EvidenceItem{
			Type:        ports.EvidenceSelection,
			Title:       "Active selection",
			Ref:         in.SelectionRef,
			Snippet:     snippet,
			WhyIncluded: "Selected code is likely tied to current implementation scope.",
			Source:      ports.SourceAuto,
		})
	}

	diags := sortedBySeverity(in.Diagnostics)
	if len(diags) > packDiagnosticsMax {
		diags = diags[:packDiagnosticsMax]
	}
	for _, d := range diags {
		var snippet string
		if d.Source != "" {
			snippet = "source: " + d.Source
		}
		add(ports.EvidenceItem{
			Type:        ports.EvidenceDiagnostic,
			Title:       fmt.Sprintf("%s: %s", titleSeverity(d.Severity), d.Message),
			Ref:         fmt.Sprintf("%s:%d:%d", d.URI, d.Line+1, d.Character+1),
			Snippet:     snippet,
			WhyIncluded: "Diagnostics provide concrete failure points and verification hints.",
			Source:      ports.SourceAuto,
		})
	}

	if len(collected) == 0 {
		return 0, nil
	}
	if err := s.AddEvidence(collected...); err != nil {
		return 0, err
	}
	return len(collected), nil
}
