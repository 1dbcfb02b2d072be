package ports

import "time"

// =============================================================================
// Canonical Session Model
//
// A Session is one tracked unit of thinking work: the user's outline (what
// "done" means, constraints, how to verify), the raw evidence they collected,
// and the provocation cards challenging their plan. The gate derives from
// those three; it is never stored authoritatively, only cached.
// =============================================================================

// Mode classifies what kind of work a session tracks.
type Mode string

const (
	ModeBugfix   Mode = "bugfix"
	ModeFeature  Mode = "feature"
	ModeRefactor Mode = "refactor"
	ModeStandard Mode = "standard"
	ModeLearning Mode = "learning"
	ModeFast     Mode = "fast"
)

// Modes lists every valid mode. Older stores only knew learning, standard,
// and fast; those decode as a subset of this enumeration.
var Modes = []Mode{ModeBugfix, ModeFeature, ModeRefactor, ModeStandard, ModeLearning, ModeFast}

// ParseMode returns the mode matching s, or false if s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Label returns the human display label for a mode ("bugfix" → "Bugfix").
func (m Mode) Label() string {
	switch m {
	case ModeBugfix:
		return "Bugfix"
	case ModeFeature:
		return "Feature"
	case ModeRefactor:
		return "Refactor"
	case ModeStandard:
		return "Standard"
	case ModeLearning:
		return "Learning"
	case ModeFast:
		return "Fast"
	default:
		return string(m)
	}
}

// Outline is the user's stated plan for a session. DefinitionOfDone and
// VerificationPlan are required for readiness; Constraints is required in
// every mode except fast.
type Outline struct {
	Symptom          string `json:"symptom,omitempty"`
	ReproSteps       string `json:"reproSteps,omitempty"`
	DefinitionOfDone string `json:"definitionOfDone"`
	Constraints      string `json:"constraints"`
	Strategy         string `json:"strategy,omitempty"`
	VerificationPlan string `json:"verificationPlan"`
}

// EvidenceType classifies an evidence artifact.
type EvidenceType string

const (
	EvidenceFile       EvidenceType = "file"
	EvidenceSymbol     EvidenceType = "symbol"
	EvidenceSelection  EvidenceType = "selection"
	EvidenceDiagnostic EvidenceType = "diagnostic"
	EvidenceTestLog    EvidenceType = "testLog"
	EvidenceDiff       EvidenceType = "diff"
	EvidenceLink       EvidenceType = "link"
)

// EvidenceSource records who attached the evidence.
type EvidenceSource string

const (
	SourceUser EvidenceSource = "user"
	SourceAuto EvidenceSource = "auto"
	SourceAI   EvidenceSource = "ai"
)

// EvidenceItem is one concrete artifact attached to a session. WhyIncluded
// is mandatory at the boundary: unexplained evidence is not accepted.
type EvidenceItem struct {
	ID          string         `json:"id"`
	Type        EvidenceType   `json:"type"`
	Title       string         `json:"title"`
	Ref         string         `json:"ref"`
	Snippet     string         `json:"snippet,omitempty"`
	WhyIncluded string         `json:"whyIncluded"`
	CreatedAt   time.Time      `json:"createdAt"`
	Source      EvidenceSource `json:"source,omitempty"`
}

// ProvocationKind classifies what a card challenges.
type ProvocationKind string

const (
	KindCounterexample   ProvocationKind = "Counterexample"
	KindHiddenAssumption ProvocationKind = "Hidden Assumption"
	KindTradeOff         ProvocationKind = "Trade-off"
	KindSecurity         ProvocationKind = "Security"
	KindPerformance      ProvocationKind = "Performance"
	KindTestGap          ProvocationKind = "Test Gap"
)

// Severity grades how serious a provocation is.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityMed  Severity = "med"
	SeverityHigh Severity = "high"
)

// ProvocationCard is one generated challenge. Cards are immutable after
// creation; only responses attach to them.
type ProvocationCard struct {
	ID                 string          `json:"id"`
	Kind               ProvocationKind `json:"kind"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Severity           Severity        `json:"severity,omitempty"`
	BasedOnEvidenceIDs []string        `json:"basedOnEvidenceIds,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Decision is the user's verdict on a provocation card.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionHold   Decision = "hold"
	DecisionReject Decision = "reject"
)

// ParseDecision returns the decision matching s, or false for anything else.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionAccept, DecisionHold, DecisionReject:
		return Decision(s), true
	}
	return "", false
}

// ProvocationResponse records how the user answered a card. Rationale must
// be non-blank; the store rejects empty rationales outright.
type ProvocationResponse struct {
	Decision    Decision  `json:"decision"`
	Rationale   string    `json:"rationale"`
	RespondedAt time.Time `json:"respondedAt"`
}

// InsightKind classifies an AI evidence insight.
type InsightKind string

const (
	InsightImplementation InsightKind = "Implementation"
	InsightRisk           InsightKind = "Risk"
	InsightTest           InsightKind = "Test"
	InsightPerformance    InsightKind = "Performance"
	InsightSecurity       InsightKind = "Security"
	InsightSearch         InsightKind = "Search"
)

// InsightCard is an AI-generated observation about the collected evidence.
type InsightCard struct {
	ID        string      `json:"id"`
	Kind      InsightKind `json:"kind"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Queries   []string    `json:"queries,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SuggestionAction names the evidence-collection step a suggestion proposes.
type SuggestionAction string

const (
	ActionAddActiveFile  SuggestionAction = "addActiveFile"
	ActionAddSelection   SuggestionAction = "addSelection"
	ActionAddDiagnostics SuggestionAction = "addDiagnostics"
	ActionIngestTestLog  SuggestionAction = "ingestTestLog"
)

// EvidenceSuggestion is an AI proposal to gather more raw evidence.
type EvidenceSuggestion struct {
	ID        string           `json:"id"`
	Action    SuggestionAction `json:"action"`
	Title     string           `json:"title"`
	Reason    string           `json:"reason"`
	CreatedAt time.Time        `json:"createdAt"`
}

// GateStatus is the derived readiness state of a session. Every field is a
// pure function of the session's outline, mode, provocations, and responses.
type GateStatus struct {
	OutlineReady              bool `json:"outlineReady"`
	ProvocationReady          bool `json:"provocationReady"`
	ProvocationRespondedCount int  `json:"provocationRespondedCount"`
	ProvocationTotalCount     int  `json:"provocationTotalCount"`
	CanGeneratePatch          bool `json:"canGeneratePatch"`
	CanExport                 bool `json:"canExport"`
}

// Selection is a zero-based editor selection range.
type Selection struct {
	StartLine      int `json:"startLine"`
	StartCharacter int `json:"startCharacter"`
	EndLine        int `json:"endLine"`
	EndCharacter   int `json:"endCharacter"`
}

// SessionContext is a best-effort snapshot of editor state at session
// creation. Captured once, never recomputed.
type SessionContext struct {
	WorkspaceFolder string     `json:"workspaceFolder,omitempty"`
	ActiveFile      string     `json:"activeFile,omitempty"`
	Selection       *Selection `json:"selection,omitempty"`
}

// Diagnostic is a flattened editor/compiler diagnostic supplied by an
// external collector. The store maps these into diagnostic evidence.
type Diagnostic struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
}

// Session is the unit of work.
type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Mode  Mode   `json:"mode"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Archived bool `json:"archived,omitempty"`

	Context SessionContext `json:"context"`

	Outline              Outline                        `json:"outline"`
	Evidence             []EvidenceItem                 `json:"evidence"`
	Provocations         []ProvocationCard              `json:"provocations"`
	ProvocationResponses map[string]ProvocationResponse `json:"provocationResponses"`

	Insights    []InsightCard        `json:"insights,omitempty"`
	Suggestions []EvidenceSuggestion `json:"suggestions,omitempty"`

	Gate GateStatus `json:"gate"`
}

// Clone returns a deep copy. Callers of the store receive clones so the
// cached state can never be mutated from outside.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Context.Selection != nil {
		sel := *s.Context.Selection
		out.Context.Selection = &sel
	}
	out.Evidence = append([]EvidenceItem(nil), s.Evidence...)
	out.Provocations = make([]ProvocationCard, len(s.Provocations))
	for i, c := range s.Provocations {
		c.BasedOnEvidenceIDs = append([]string(nil), c.BasedOnEvidenceIDs...)
		out.Provocations[i] = c
	}
	out.ProvocationResponses = make(map[string]ProvocationResponse, len(s.ProvocationResponses))
	for k, v := range s.ProvocationResponses {
		out.ProvocationResponses[k] = v
	}
	out.Insights = make([]InsightCard, len(s.Insights))
	for i, ins := range s.Insights {
		ins.Queries = append([]string(nil), ins.Queries...)
		out.Insights[i] = ins
	}
	out.Suggestions = append([]EvidenceSuggestion(nil), s.Suggestions...)
	return &out
}

// SessionMeta is the lightweight listing view of a session.
type SessionMeta struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Mode                 Mode      `json:"mode"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	Archived             bool      `json:"archived,omitempty"`
	EvidenceCount        int       `json:"evidenceCount"`
	ProvocationTotal     int       `json:"provocationTotal"`
	ProvocationResponded int       `json:"provocationResponded"`
	OutlineReady         bool      `json:"outlineReady"`
	ProvocationReady     bool      `json:"provocationReady"`
}

// State is the full persisted shape: every session, the MRU order, and the
// active pointer. Invariants: SessionOrder holds exactly the keys of
// SessionsByID, each once; ActiveSessionID is empty or names a non-archived
// session present in the map.
type State struct {
	ActiveSessionID string              `json:"activeSessionId"`
	SessionsByID    map[string]*Session `json:"sessionsById"`
	SessionOrder    []string            `json:"sessionOrder"`
}

// NewState returns an empty repository state.
func NewState() *State {
	return &State{
		SessionsByID: make(map[string]*Session),
		SessionOrder: []string{},
	}
}

// Clone deep-copies the whole state.
func (st *State) Clone() *State {
	out := &State{
		ActiveSessionID: st.ActiveSessionID,
		SessionsByID:    make(map[string]*Session, len(st.SessionsByID)),
		SessionOrder:    append([]string(nil), st.SessionOrder...),
	}
	for id, sess := range st.SessionsByID {
		out.SessionsByID[id] = sess.Clone()
	}
	return out
}
