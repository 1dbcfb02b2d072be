package app

import "github.com/corey/ground/internal/ports"

// OnActiveSessionChange registers an observer invoked after every
// committed mutation with a clone of the active session (nil when no
// session is active). Observers run outside the store lock; reentrant
// store calls from an observer are safe.
func (s *Store) OnActiveSessionChange(fn func(*ports.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentObservers = append(s.contentObservers, fn)
}

// OnSessionListChange registers an observer invoked after every
// committed mutation with the full MRU-ordered session listing,
// archived included.
func (s *Store) OnSessionListChange(fn func([]ports.SessionMeta)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listObservers = append(s.listObservers, fn)
}

func (s *Store) emit(content *ports.Session, metas []ports.SessionMeta) {
	s.mu.Lock()
	contentObs := append(([]func(*ports.Session))(nil), s.contentObservers...)
	listObs := append(([]func([]ports.SessionMeta))(nil), s.listObservers...)
	s.mu.Unlock()

	for _, fn := range contentObs {
		fn(content)
	}
	for _, fn := range listObs {
		fn(metas)
	}
}
