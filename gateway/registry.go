package gateway

import "sync"

// DefaultMaxSessions is the concurrent-session cap per principal.
const DefaultMaxSessions = 2

// SessionRegistry tracks which live sessions belong to which principal,
// so the gateway can refuse a login past the cap and find every session
// of a principal on complete logout. It is the contract point for an
// external session registry; this implementation is in-memory.
type SessionRegistry struct {
	mu        sync.Mutex
	max       int
	bySubject map[string]map[string]struct{}
}

func NewSessionRegistry(max int) *SessionRegistry {
	if max < 1 {
		max = DefaultMaxSessions
	}
	return &SessionRegistry{
		max:       max,
		bySubject: make(map[string]map[string]struct{}),
	}
}

// TryAdd registers a session for the subject unless the cap is reached.
// Check and insert are a single critical section so two racing logins
// cannot both slip under the cap.
func (r *SessionRegistry) TryAdd(subject, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.bySubject[subject]
	if len(sessions) >= r.max {
		return false
	}
	if sessions == nil {
		sessions = make(map[string]struct{})
		r.bySubject[subject] = sessions
	}
	sessions[sessionID] = struct{}{}
	return true
}

// Remove forgets one session of the subject.
func (r *SessionRegistry) Remove(subject, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.bySubject[subject]
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.bySubject, subject)
	}
}

// RemoveAll forgets every session of the subject and returns their ids so
// the caller can purge the session store.
func (r *SessionRegistry) RemoveAll(subject string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.bySubject[subject]
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	delete(r.bySubject, subject)
	return ids
}

// Sessions snapshots the registered session ids of the subject.
func (r *SessionRegistry) Sessions(subject string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.bySubject[subject]
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count reports the live sessions of the subject.
func (r *SessionRegistry) Count(subject string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySubject[subject])
}
