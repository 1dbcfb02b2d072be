// Package app is the session repository: it owns the in-memory state,
// serializes every mutation, persists through the storage port, and
// notifies observers after each committed change. All reads hand out
// deep clones; the cached state never escapes.
package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corey/ground/internal/domain/gate"
	"github.com/corey/ground/internal/ports"
)

// ContextFunc captures the caller's editor/workspace context at session
// creation time. Best effort: a zero SessionContext is fine.
type ContextFunc func() ports.SessionContext

// Store is the multi-session repository. Every exported method is safe
// for concurrent use; mutations follow read-modify-persist-commit, so
// the in-memory state only advances after the save succeeds.
type Store struct {
	mu      sync.Mutex
	storage ports.Storage
	log     *zap.Logger

	contextFn ContextFunc
	now       func() time.Time
	newID     func(prefix string) string

	state  *ports.State
	loaded bool

	contentObservers []func(*ports.Session)
	listObservers    []func([]ports.SessionMeta)
}

// Option configures a Store.
type Option func(*Store)

// WithContextProvider supplies the editor-context snapshot used when a
// session is created.
func WithContextProvider(fn ContextFunc) Option {
	return func(s *Store) { s.contextFn = fn }
}

// WithClock overrides the time source. Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation. Tests use this for
// determinism.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a store over the given storage. Call Load before use, or
// let the first operation load lazily.
func New(storage ports.Storage, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		storage:   storage,
		log:       log,
		contextFn: func() ports.SessionContext { return ports.SessionContext{} },
		now:       time.Now,
		newID: func(prefix string) string {
			return prefix + "_" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads persisted state into memory, migrating a legacy
// single-session blob when present. Idempotent: loading twice observes
// the same state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *Store) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	st, err := s.storage.LoadState()
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if st == nil {
		st, err = s.migrateLegacyLocked()
		if err != nil {
			return err
		}
	}
	normalizeState(st)
	s.state = st
	s.loaded = true
	return nil
}

// mutate runs fn against a clone of the current state, persists the
// result, commits it, and notifies observers. fn sees a private clone:
// a failed save leaves the committed state untouched.
func (s *Store) mutate(fn func(st *ports.State) error) error {
	s.mu.Lock()
	if err := s.ensureLoadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.state.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	normalizeState(next)
	if err := s.storage.SaveState(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("saving session state: %w", err)
	}
	s.state = next
	content := s.activeCloneLocked()
	metas := s.metasLocked(true)
	s.mu.Unlock()

	s.emit(content, metas)
	return nil
}

func (s *Store) activeCloneLocked() *ports.Session {
	if s.state.ActiveSessionID == "" {
		return nil
	}
	return s.state.SessionsByID[s.state.ActiveSessionID].Clone()
}

// touch bumps a session's UpdatedAt and promotes it to the front of the
// MRU order.
func (s *Store) touch(st *ports.State, id string) {
	sess := st.SessionsByID[id]
	if sess == nil {
		return
	}
	sess.UpdatedAt = s.now()
	promote(st, id)
}

func promote(st *ports.State, id string) {
	order := make([]string, 0, len(st.SessionOrder))
	order = append(order, id)
	for _, other := range st.SessionOrder {
		if other != id {
			order = append(order, other)
		}
	}
	st.SessionOrder = order
}

// sessionTitle resolves the title for a new session: an explicit title
// wins, then "<Mode> · <active file basename>", then "<Mode> session".
func sessionTitle(explicit string, mode ports.Mode, ctx ports.SessionContext) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if ctx.ActiveFile != "" {
		return mode.Label() + " · " + filepath.Base(ctx.ActiveFile)
	}
	return mode.Label() + " session"
}

// CreateSession creates a new session, makes it active, and returns its
// id. The editor context is snapshotted once, at creation.
func (s *Store) CreateSession(mode ports.Mode, title string) (string, error) {
	if _, ok := ports.ParseMode(string(mode)); !ok {
		mode = ports.ModeStandard
	}
	var id string
	err := s.mutate(func(st *ports.State) error {
		now := s.now()
		ctx := s.contextFn()
		id = s.newID("sess")
		sess := &ports.Session{
			ID:                   id,
			Title:                sessionTitle(title, mode, ctx),
			Mode:                 mode,
			CreatedAt:            now,
			UpdatedAt:            now,
			Context:              ctx,
			Evidence:             []ports.EvidenceItem{},
			Provocations:         []ports.ProvocationCard{},
			ProvocationResponses: map[string]ports.ProvocationResponse{},
		}
		sess.Gate = gate.Compute(sess)
		st.SessionsByID[id] = sess
		st.SessionOrder = append([]string{id}, st.SessionOrder...)
		st.ActiveSessionID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Debug("session created", zap.String("id", id), zap.String("mode", string(mode)))
	return id, nil
}

// SetActiveSession switches the active pointer. The target must exist
// and must not be archived. Switching promotes the session in the MRU
// order and bumps its UpdatedAt.
func (s *Store) SetActiveSession(id string) error {
	return s.mutate(func(st *ports.State) error {
		sess, ok := st.SessionsByID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if sess.Archived {
			return fmt.Errorf("%w: %s", ErrArchivedSession, id)
		}
		st.ActiveSessionID = id
		s.touch(st, id)
		return nil
	})
}

// RenameSession sets a session's title. A blank title is a no-op rather
// than an error.
func (s *Store) RenameSession(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return s.mutate(func(st *ports.State) error {
		sess, ok := st.SessionsByID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		sess.Title = title
		s.touch(st, id)
		return nil
	})
}

// ArchiveSession marks a session archived. Archiving the active session
// moves the active pointer to the most recently used non-archived
// session, or clears it when none remain. Archived sessions keep their
// place in the order.
func (s *Store) ArchiveSession(id string) error {
	return s.mutate(func(st *ports.State) error {
		sess, ok := st.SessionsByID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		sess.Archived = true
		sess.UpdatedAt = s.now()
		if st.ActiveSessionID == id {
			st.ActiveSessionID = nextActive(st, id)
		}
		return nil
	})
}

// UnarchiveSession clears the archived flag so a session can be
// activated again.
func (s *Store) UnarchiveSession(id string) error {
	return s.mutate(func(st *ports.State) error {
		sess, ok := st.SessionsByID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		sess.Archived = false
		sess.UpdatedAt = s.now()
		return nil
	})
}

// DeleteSession removes a session permanently. Deleting the active
// session falls back like archiving does.
func (s *Store) DeleteSession(id string) error {
	return s.mutate(func(st *ports.State) error {
		if _, ok := st.SessionsByID[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		delete(st.SessionsByID, id)
		order := st.SessionOrder[:0]
		for _, other := range st.SessionOrder {
			if other != id {
				order = append(order, other)
			}
		}
		st.SessionOrder = order
		if st.ActiveSessionID == id {
			st.ActiveSessionID = nextActive(st, id)
		}
		return nil
	})
}

// nextActive picks the most recently used non-archived session other
// than excluded, or "" when none qualifies.
func nextActive(st *ports.State, excluded string) string {
	for _, id := range st.SessionOrder {
		if id == excluded {
			continue
		}
		if sess, ok := st.SessionsByID[id]; ok && !sess.Archived {
			return id
		}
	}
	return ""
}

// ActiveSession returns a clone of the active session, or nil when the
// store is empty.
func (s *Store) ActiveSession() (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return s.activeCloneLocked(), nil
}

// Session returns a clone of the session with the given id.
func (s *Store) Session(id string) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	sess, ok := s.state.SessionsByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.Clone(), nil
}

// ListSessions returns session metadata in MRU order. Archived sessions
// are omitted unless includeArchived is set.
func (s *Store) ListSessions(includeArchived bool) ([]ports.SessionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return s.metasLocked(includeArchived), nil
}

func (s *Store) metasLocked(includeArchived bool) []ports.SessionMeta {
	metas := make([]ports.SessionMeta, 0, len(s.state.SessionOrder))
	for _, id := range s.state.SessionOrder {
		sess, ok := s.state.SessionsByID[id]
		if !ok || (sess.Archived && !includeArchived) {
			continue
		}
		metas = append(metas, metaOf(sess))
	}
	return metas
}

func metaOf(sess *ports.Session) ports.SessionMeta {
	g := gate.Compute(sess)
	return ports.SessionMeta{
		ID:                   sess.ID,
		Title:                sess.Title,
		Mode:                 sess.Mode,
		CreatedAt:            sess.CreatedAt,
		UpdatedAt:            sess.UpdatedAt,
		Archived:             sess.Archived,
		EvidenceCount:        len(sess.Evidence),
		ProvocationTotal:     g.ProvocationTotalCount,
		ProvocationResponded: g.ProvocationRespondedCount,
		OutlineReady:         g.OutlineReady,
		ProvocationReady:     g.ProvocationReady,
	}
}

// ActiveSessionID returns the id of the active session, or "".
func (s *Store) ActiveSessionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return "", err
	}
	return s.state.ActiveSessionID, nil
}

// Close releases the underlying storage.
func (s *Store) Close() error {
	return s.storage.Close()
}
