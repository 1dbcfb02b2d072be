package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corey/ground/internal/ports"
)

const (
	testLogSnippetMax  = 6000
	diagnosticEvidMax  = 10
	diagnosticTitleMax = 80
)

// OutlinePatch updates individual outline fields. Nil pointers leave
// the field untouched; a pointer to "" clears it.
type OutlinePatch struct {
	Symptom          *string
	ReproSteps       *string
	DefinitionOfDone *string
	Constraints      *string
	Strategy         *string
	VerificationPlan *string
}

// ContextPatch updates individual context fields.
type ContextPatch struct {
	WorkspaceFolder *string
	ActiveFile      *string
	Selection       *ports.Selection
}

// Update is a partial session mutation. Nil fields are untouched.
// Outline, Context, and Responses merge field-by-field / key-by-key;
// Evidence, Provocations, Insights, and Suggestions replace the whole
// collection when present.
type Update struct {
	Title    *string
	Mode     *ports.Mode
	Archived *bool

	Outline *OutlinePatch
	Context *ContextPatch

	Evidence     *[]ports.EvidenceItem
	Provocations *[]ports.ProvocationCard
	Responses    map[string]ports.ProvocationResponse

	Insights    *[]ports.InsightCard
	Suggestions *[]ports.EvidenceSuggestion
}

func applyOutline(dst *ports.Outline, p *OutlinePatch) {
	if p == nil {
		return
	}
	if p.Symptom != nil {
		dst.Symptom = *p.Symptom
	}
	if p.ReproSteps != nil {
		dst.ReproSteps = *p.ReproSteps
	}
	if p.DefinitionOfDone != nil {
		dst.DefinitionOfDone = *p.DefinitionOfDone
	}
	if p.Constraints != nil {
		dst.Constraints = *p.Constraints
	}
	if p.Strategy != nil {
		dst.Strategy = *p.Strategy
	}
	if p.VerificationPlan != nil {
		dst.VerificationPlan = *p.VerificationPlan
	}
}

func applyContext(dst *ports.SessionContext, p *ContextPatch) {
	if p == nil {
		return
	}
	if p.WorkspaceFolder != nil {
		dst.WorkspaceFolder = *p.WorkspaceFolder
	}
	if p.ActiveFile != nil {
		dst.ActiveFile = *p.ActiveFile
	}
	if p.Selection != nil {
		sel := *p.Selection
		dst.Selection = &sel
	}
}

func applyUpdate(sess *ports.Session, u Update) {
	if u.Title != nil && strings.TrimSpace(*u.Title) != "" {
		sess.Title = strings.TrimSpace(*u.Title)
	}
	if u.Mode != nil {
		if mode, ok := ports.ParseMode(string(*u.Mode)); ok {
			sess.Mode = mode
		}
	}
	if u.Archived != nil {
		sess.Archived = *u.Archived
	}
	applyOutline(&sess.Outline, u.Outline)
	applyContext(&sess.Context, u.Context)
	if u.Evidence != nil {
		sess.Evidence = append([]ports.EvidenceItem{}, (*u.Evidence)...)
	}
	if u.Provocations != nil {
		sess.Provocations = append([]ports.ProvocationCard{}, (*u.Provocations)...)
	}
	for cardID, resp := range u.Responses {
		sess.ProvocationResponses[cardID] = resp
	}
	if u.Insights != nil {
		sess.Insights = append([]ports.InsightCard{}, (*u.Insights)...)
	}
	if u.Suggestions != nil {
		sess.Suggestions = append([]ports.EvidenceSuggestion{}, (*u.Suggestions)...)
	}
}

// UpdateSession applies a partial update to the given session, bumping
// UpdatedAt and recomputing the gate.
func (s *Store) UpdateSession(id string, u Update) error {
	return s.mutate(func(st *ports.State) error {
		sess, ok := st.SessionsByID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		applyUpdate(sess, u)
		s.touch(st, id)
		return nil
	})
}

// UpdateActiveSession applies a partial update to the active session.
// With no active session, a standard-mode session is created implicitly
// and the update lands there.
func (s *Store) UpdateActiveSession(u Update) (string, error) {
	var id string
	err := s.mutate(func(st *ports.State) error {
		id = st.ActiveSessionID
		if id == "" {
			id = s.createImplicit(st)
		}
		applyUpdate(st.SessionsByID[id], u)
		s.touch(st, id)
		return nil
	})
	return id, err
}

// createImplicit inserts a fresh standard session and makes it active.
// Used when an operation needs an active session but none exists.
func (s *Store) createImplicit(st *ports.State) string {
	now := s.now()
	ctx := s.contextFn()
	id := s.newID("sess")
	st.SessionsByID[id] = &ports.Session{
		ID:                   id,
		Title:                sessionTitle("", ports.ModeStandard, ctx),
		Mode:                 ports.ModeStandard,
		CreatedAt:            now,
		UpdatedAt:            now,
		Context:              ctx,
		Evidence:             []ports.EvidenceItem{},
		Provocations:         []ports.ProvocationCard{},
		ProvocationResponses: map[string]ports.ProvocationResponse{},
	}
	st.SessionOrder = append([]string{id}, st.SessionOrder...)
	st.ActiveSessionID = id
	s.log.Debug("implicitly created session", zap.String("id", id))
	return id
}

// activeOrErr resolves the active session inside a mutation, without
// implicit creation.
func activeOrErr(st *ports.State) (*ports.Session, error) {
	if st.ActiveSessionID == "" {
		return nil, ErrNoActiveSession
	}
	return st.SessionsByID[st.ActiveSessionID], nil
}

// SetProvocations replaces the active session's provocation cards.
// Responses to cards that survive the swap (same id) are kept; the rest
// are pruned with the cards they answered.
func (s *Store) SetProvocations(cards []ports.ProvocationCard) error {
	return s.mutate(func(st *ports.State) error {
		sess, err := activeOrErr(st)
		if err != nil {
			return err
		}
		sess.Provocations = append([]ports.ProvocationCard{}, cards...)
		pruneResponses(sess)
		s.touch(st, sess.ID)
		return nil
	})
}

// UpsertProvocationResponse records the user's verdict on a card of the
// active session. The card must exist, the decision must parse, and the
// rationale must be non-blank.
func (s *Store) UpsertProvocationResponse(cardID, decision, rationale string) error {
	d, ok := ports.ParseDecision(decision)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if strings.TrimSpace(rationale) == "" {
		return ErrEmptyRationale
	}
	return s.mutate(func(st *ports.State) error {
		sess, err := activeOrErr(st)
		if err != nil {
			return err
		}
		if !hasCard(sess, cardID) {
			return fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
		}
		sess.ProvocationResponses[cardID] = ports.ProvocationResponse{
			Decision:    d,
			Rationale:   strings.TrimSpace(rationale),
			RespondedAt: s.now(),
		}
		s.touch(st, sess.ID)
		return nil
	})
}

func hasCard(sess *ports.Session, cardID string) bool {
	for _, c := range sess.Provocations {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

// AddEvidence appends evidence items to the active session, creating a
// session implicitly when none is active. Items get ids and timestamps
// here; WhyIncluded must be non-blank on every item.
func (s *Store) AddEvidence(items ...ports.EvidenceItem) error {
	for _, item := range items {
		if strings.TrimSpace(item.WhyIncluded) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyWhy, item.Title)
		}
	}
	return s.mutate(func(st *ports.State) error {
		id := st.ActiveSessionID
		if id == "" {
			id = s.createImplicit(st)
		}
		sess := st.SessionsByID[id]
		now := s.now()
		for _, item := range items {
			if item.ID == "" {
				item.ID = s.newID("ev")
			}
			if item.CreatedAt.IsZero() {
				item.CreatedAt = now
			}
			if item.Source == "" {
				item.Source = ports.SourceUser
			}
			sess.Evidence = append(sess.Evidence, item)
		}
		s.touch(st, id)
		return nil
	})
}

// RemoveEvidence deletes one evidence item from the active session by
// id. Unknown ids are a no-op.
func (s *Store) RemoveEvidence(evidenceID string) error {
	return s.mutate(func(st *ports.State) error {
		sess, err := activeOrErr(st)
		if err != nil {
			return err
		}
		kept := sess.Evidence[:0]
		for _, e := range sess.Evidence {
			if e.ID != evidenceID {
				kept = append(kept, e)
			}
		}
		sess.Evidence = kept
		s.touch(st, sess.ID)
		return nil
	})
}

// UpdateEvidenceWhy rewrites the inclusion reason on one evidence item.
func (s *Store) UpdateEvidenceWhy(evidenceID, why string) error {
	if strings.TrimSpace(why) == "" {
		return ErrEmptyWhy
	}
	return s.mutate(func(st *ports.State) error {
		sess, err := activeOrErr(st)
		if err != nil {
			return err
		}
		for i := range sess.Evidence {
			if sess.Evidence[i].ID == evidenceID {
				sess.Evidence[i].WhyIncluded = strings.TrimSpace(why)
				s.touch(st, sess.ID)
				return nil
			}
		}
		return fmt.Errorf("%w: evidence %s", ErrNotFound, evidenceID)
	})
}

// SetEvidenceInsights replaces the active session's AI insight cards
// and evidence suggestions wholesale.
func (s *Store) SetEvidenceInsights(insights []ports.InsightCard, suggestions []ports.EvidenceSuggestion) error {
	return s.mutate(func(st *ports.State) error {
		sess, err := activeOrErr(st)
		if err != nil {
			return err
		}
		sess.Insights = append([]ports.InsightCard{}, insights...)
		sess.Suggestions = append([]ports.EvidenceSuggestion{}, suggestions...)
		s.touch(st, sess.ID)
		return nil
	})
}

// IngestTestLog attaches pasted test output as testLog evidence. The
// snippet is truncated to keep the blob bounded; the ref encodes the
// paste time.
func (s *Store) IngestTestLog(content, why string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("test log is empty")
	}
	if strings.TrimSpace(why) == "" {
		why = "Pasted test output relevant to this session."
	}
	snippet := content
	if len(snippet) > testLogSnippetMax {
		snippet = snippet[:testLogSnippetMax]
	}
	item := ports.EvidenceItem{
		Type:        ports.EvidenceTestLog,
		Title:       "Test log (pasted)",
		Ref:         "testlog:paste:" + s.now().UTC().Format(time.RFC3339),
		Snippet:     snippet,
		WhyIncluded: strings.TrimSpace(why),
		Source:      ports.SourceUser,
	}
	return s.AddEvidence(item)
}

// severityRank orders diagnostics most severe first.
func severityRank(sev string) int {
	switch strings.ToLower(sev) {
	case "error":
		return 0
	case "warning":
		return 1
	case "information", "info":
		return 2
	case "hint":
		return 3
	default:
		return 4
	}
}

// AddDiagnosticsEvidence maps collected compiler/editor diagnostics
// into diagnostic evidence on the active session, most severe first,
// capped so one noisy build does not flood the evidence list.
func (s *Store) AddDiagnosticsEvidence(diags []ports.Diagnostic) (int, error) {
	if len(diags) == 0 {
		return 0, nil
	}
	sorted := sortedBySeverity(diags)
	if len(sorted) > diagnosticEvidMax {
		sorted = sorted[:diagnosticEvidMax]
	}

	items := make([]ports.EvidenceItem, 0, len(sorted))
	for _, d := range sorted {
		title := d.Message
		if len(title) > diagnosticTitleMax {
			title = title[:diagnosticTitleMax] + "…"
		}
		ref := fmt.Sprintf("%s:%d:%d", d.URI, d.Line+1, d.Character+1)
		why := "Diagnostic reported"
		if d.Source != "" {
			why = "Diagnostic reported by " + d.Source
		}
		items = append(items, ports.EvidenceItem{
			Type:        ports.EvidenceDiagnostic,
			Title:       fmt.Sprintf("[%s] %s", strings.ToLower(d.Severity), title),
			Ref:         ref,
			Snippet:     d.Message,
			WhyIncluded: why,
			Source:      ports.SourceAuto,
		})
	}
	if err := s.AddEvidence(items...); err != nil {
		return 0, err
	}
	return len(items), nil
}

// AddFileEvidence attaches a file reference as evidence on the active
// session.
func (s *Store) AddFileEvidence(path, why string) error {
	return s.AddEvidence(ports.EvidenceItem{
		Type:        ports.EvidenceFile,
		Title:       filepath.Base(path),
		Ref:         path,
		WhyIncluded: why,
		Source:      ports.SourceUser,
	})
}

// AddLinkEvidence attaches an external URL as evidence.
func (s *Store) AddLinkEvidence(url, title, why string) error {
	if strings.TrimSpace(title) == "" {
		title = url
	}
	return s.AddEvidence(ports.EvidenceItem{
		Type:        ports.EvidenceLink,
		Title:       title,
		Ref:         url,
		WhyIncluded: why,
		Source:      ports.SourceUser,
	})
}
