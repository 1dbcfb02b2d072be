package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/ground/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

func checkmark(ok bool) string {
	if ok {
		return colorGreen + "✓" + colorReset
	}
	return colorGray + "·" + colorReset
}

// formatSessionList renders session metadata one line per session:
//
//	* sess_ab12  Bugfix · auth.go  bugfix  ev 3  prov 2/5  ✓ outline
func formatSessionList(metas []ports.SessionMeta, activeID string) string {
	if len(metas) == 0 {
		return colorGray + "no sessions" + colorReset + "\n"
	}
	var sb strings.Builder
	for _, m := range metas {
		marker := " "
		if m.ID == activeID {
			marker = colorBold + "*" + colorReset
		}
		sb.WriteString(fmt.Sprintf("%s %s%s%s  %s%s%s  %s%s%s  ev %d  prov %d/%d  %s outline",
			marker,
			colorGray, m.ID, colorReset,
			colorCyan, m.Title, colorReset,
			colorMagenta, m.Mode, colorReset,
			m.EvidenceCount,
			m.ProvocationResponded, m.ProvocationTotal,
			checkmark(m.OutlineReady)))
		if m.Archived {
			sb.WriteString("  " + colorYellow + "archived" + colorReset)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatGate(g ports.GateStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s outline ready\n", checkmark(g.OutlineReady)))
	sb.WriteString(fmt.Sprintf("  %s provocations answered (%d/%d)\n",
		checkmark(g.ProvocationReady), g.ProvocationRespondedCount, g.ProvocationTotalCount))
	sb.WriteString(fmt.Sprintf("  %s export unlocked\n", checkmark(g.CanExport)))
	return sb.String()
}

func formatSession(s *ports.Session) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s%s%s  %s%s%s  %s%s%s\n",
		colorBold, s.Title, colorReset,
		colorGray, s.ID, colorReset,
		colorMagenta, s.Mode, colorReset))
	sb.WriteString(fmt.Sprintf("%supdated %s%s\n\n", colorGray, s.UpdatedAt.Format(time.RFC3339), colorReset))

	sb.WriteString(colorBold + "Outline" + colorReset + "\n")
	outlineLine(&sb, "symptom", s.Outline.Symptom)
	outlineLine(&sb, "repro", s.Outline.ReproSteps)
	outlineLine(&sb, "done", s.Outline.DefinitionOfDone)
	outlineLine(&sb, "constraints", s.Outline.Constraints)
	outlineLine(&sb, "strategy", s.Outline.Strategy)
	outlineLine(&sb, "verify", s.Outline.VerificationPlan)

	sb.WriteString("\n" + colorBold + "Gate" + colorReset + "\n")
	sb.WriteString(formatGate(s.Gate))
	return sb.String()
}

func outlineLine(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(sb, "  %-12s %s(empty)%s\n", label, colorGray, colorReset)
		return
	}
	fmt.Fprintf(sb, "  %-12s %s\n", label, value)
}

func formatEvidence(items []ports.EvidenceItem) string {
	if len(items) == 0 {
		return colorGray + "no evidence" + colorReset + "\n"
	}
	var sb strings.Builder
	for _, e := range items {
		sb.WriteString(fmt.Sprintf("%s%s%s  [%s] %s%s%s\n",
			colorGray, e.ID, colorReset, e.Type, colorCyan, e.Title, colorReset))
		sb.WriteString(fmt.Sprintf("    %s%s%s\n", colorGray, e.Ref, colorReset))
		sb.WriteString(fmt.Sprintf("    why: %s\n", e.WhyIncluded))
	}
	return sb.String()
}

func formatCards(s *ports.Session) string {
	if len(s.Provocations) == 0 {
		return colorGray + "no provocation cards — run: ground provoke gen" + colorReset + "\n"
	}
	var sb strings.Builder
	for _, c := range s.Provocations {
		sb.WriteString(fmt.Sprintf("%s%s%s  %s[%s]%s %s%s%s  (%s)\n",
			colorGray, c.ID, colorReset,
			colorMagenta, c.Kind, colorReset,
			colorBold, c.Title, colorReset,
			c.Severity))
		sb.WriteString("    " + c.Body + "\n")
		if resp, ok := s.ProvocationResponses[c.ID]; ok {
			sb.WriteString(fmt.Sprintf("    %s%s%s: %s\n", colorGreen, resp.Decision, colorReset, resp.Rationale))
		} else {
			sb.WriteString("    " + colorYellow + "unanswered" + colorReset + "\n")
		}
	}
	return sb.String()
}

func formatInsights(s *ports.Session) string {
	if len(s.Insights) == 0 {
		return colorGray + "no insights — run: ground insight gen" + colorReset + "\n"
	}
	var sb strings.Builder
	for _, ins := range s.Insights {
		sb.WriteString(fmt.Sprintf("%s[%s]%s %s%s%s\n",
			colorMagenta, ins.Kind, colorReset, colorBold, ins.Title, colorReset))
		sb.WriteString("    " + ins.Body + "\n")
		for _, q := range ins.Queries {
			sb.WriteString(fmt.Sprintf("    %ssearch:%s %s\n", colorGray, colorReset, q))
		}
	}
	for _, sug := range s.Suggestions {
		sb.WriteString(fmt.Sprintf("%ssuggest%s [%s] %s — %s\n",
			colorYellow, colorReset, sug.Action, sug.Title, sug.Reason))
	}
	return sb.String()
}
