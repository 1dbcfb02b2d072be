package app

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/corey/ground/internal/domain/gate"
	"github.com/corey/ground/internal/ports"
)

// legacySession is the pre-multi-session blob: one flat session with a
// decisions map whose records used status/reason instead of
// decision/rationale.
type legacySession struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Mode         string                  `json:"mode"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
	Archived     bool                    `json:"archived"`
	Context      ports.SessionContext    `json:"context"`
	Outline      ports.Outline           `json:"outline"`
	Evidence     []ports.EvidenceItem    `json:"evidence"`
	Provocations []ports.ProvocationCard `json:"provocations"`
	Decisions    map[string]struct {
		Status    string    `json:"status"`
		Reason    string    `json:"reason"`
		DecidedAt time.Time `json:"decidedAt"`
	} `json:"decisions"`
}

// migrateLegacyLocked converts a legacy single-session blob into the
// multi-session shape: the old session becomes the sole, active entry.
// The new state is persisted before the legacy slot is cleared, so a
// crash between the two steps re-runs against an already-valid store.
// A malformed legacy blob is logged and discarded rather than blocking
// startup.
func (s *Store) migrateLegacyLocked() (*ports.State, error) {
	raw, err := s.storage.LoadLegacySession()
	if err != nil {
		return nil, fmt.Errorf("loading legacy session: %w", err)
	}
	if raw == nil {
		return ports.NewState(), nil
	}

	st := ports.NewState()
	sess, err := decodeLegacySession(raw, s.now, s.newID)
	if err != nil {
		s.log.Warn("discarding unreadable legacy session", zap.Error(err))
	} else {
		st.SessionsByID[sess.ID] = sess
		st.SessionOrder = []string{sess.ID}
		if !sess.Archived {
			st.ActiveSessionID = sess.ID
		}
		s.log.Info("migrated legacy session", zap.String("id", sess.ID))
	}
	normalizeState(st)
	if err := s.storage.SaveState(st); err != nil {
		return nil, fmt.Errorf("persisting migrated state: %w", err)
	}
	if err := s.storage.ClearLegacySession(); err != nil {
		return nil, fmt.Errorf("clearing legacy slot: %w", err)
	}
	return st, nil
}

func decodeLegacySession(raw []byte, now func() time.Time, newID func(string) string) (*ports.Session, error) {
	var legacy legacySession
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}

	mode, ok := ports.ParseMode(legacy.Mode)
	if !ok {
		mode = ports.ModeStandard
	}
	sess := &ports.Session{
		ID:           legacy.ID,
		Title:        legacy.Title,
		Mode:         mode,
		CreatedAt:    legacy.CreatedAt,
		UpdatedAt:    legacy.UpdatedAt,
		Archived:     legacy.Archived,
		Context:      legacy.Context,
		Outline:      legacy.Outline,
		Evidence:     legacy.Evidence,
		Provocations: legacy.Provocations,
	}
	if sess.ID == "" {
		sess.ID = newID("sess")
	}
	if sess.Title == "" {
		sess.Title = mode.Label() + " session"
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}

	sess.ProvocationResponses = make(map[string]ports.ProvocationResponse, len(legacy.Decisions))
	for cardID, d := range legacy.Decisions {
		decision, ok := ports.ParseDecision(d.Status)
		if !ok {
			continue
		}
		respondedAt := d.DecidedAt
		if respondedAt.IsZero() {
			respondedAt = sess.UpdatedAt
		}
		sess.ProvocationResponses[cardID] = ports.ProvocationResponse{
			Decision:    decision,
			Rationale:   d.Reason,
			RespondedAt: respondedAt,
		}
	}
	return sess, nil
}

// normalizeState repairs structural invariants after load or mutation:
// the order lists exactly the map's keys, the active pointer names a
// live non-archived session, responses never reference missing cards,
// and every cached gate is recomputed.
func normalizeState(st *ports.State) {
	if st.SessionsByID == nil {
		st.SessionsByID = make(map[string]*ports.Session)
	}

	seen := make(map[string]bool, len(st.SessionsByID))
	order := make([]string, 0, len(st.SessionsByID))
	for _, id := range st.SessionOrder {
		if _, ok := st.SessionsByID[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	// Sessions missing from the order are appended at the back so no
	// data silently disappears.
	for id := range st.SessionsByID {
		if !seen[id] {
			order = append(order, id)
		}
	}
	st.SessionOrder = order

	for _, sess := range st.SessionsByID {
		if sess.Evidence == nil {
			sess.Evidence = []ports.EvidenceItem{}
		}
		if sess.Provocations == nil {
			sess.Provocations = []ports.ProvocationCard{}
		}
		if sess.ProvocationResponses == nil {
			sess.ProvocationResponses = map[string]ports.ProvocationResponse{}
		}
		pruneResponses(sess)
		sess.Gate = gate.Compute(sess)
	}

	if st.ActiveSessionID != "" {
		if active, ok := st.SessionsByID[st.ActiveSessionID]; !ok || active.Archived {
			st.ActiveSessionID = nextActive(st, "")
		}
	}
}

// pruneResponses drops responses whose card no longer exists.
func pruneResponses(sess *ports.Session) {
	live := make(map[string]bool, len(sess.Provocations))
	for _, card := range sess.Provocations {
		live[card.ID] = true
	}
	for cardID := range sess.ProvocationResponses {
		if !live[cardID] {
			delete(sess.ProvocationResponses, cardID)
		}
	}
}
