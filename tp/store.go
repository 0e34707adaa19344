package tp

// store is a bounded collection of active sessions. Lookups are O(n) by
// design -- n is small (maxSessions defaults to 4) and order is never
// observable.
type store struct {
	sessions []*Session
	max      int
}

func newStore(max int) *store {
	return &store{max: max}
}

func (s *store) find(source, destination ControlFunction) *Session {
	for _, sess := range s.sessions {
		if sess.matches(source, destination) {
			return sess
		}
	}
	return nil
}

func (s *store) hasSession(source, destination ControlFunction) bool {
	return s.find(source, destination) != nil
}

func (s *store) insert(sess *Session) error {
	if len(s.sessions) >= s.max {
		return ErrAtCapacity
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

// remove is idempotent: removing a session not present is a no-op.
func (s *store) remove(sess *Session) {
	for i, candidate := range s.sessions {
		if candidate == sess {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return
		}
	}
}

func (s *store) len() int {
	return len(s.sessions)
}

func (s *store) atCapacity() bool {
	return len(s.sessions) >= s.max
}

// all returns a snapshot slice safe to iterate while sessions are removed
// from the underlying store during iteration.
func (s *store) all() []*Session {
	out := make([]*Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}
