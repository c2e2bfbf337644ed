// Package session keeps per-user wizard progress in process memory.
package session

import (
	"sync"
	"time"
)

// State is where a user is inside a wizard plus the fields collected so far.
// An empty Name means no wizard is active.
type State struct {
	Name      string
	Fields    map[string]any
	ChannelID string
	UpdatedAt time.Time
}

// Field returns a collected value.
func (s State) Field(name string) (any, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

type Store interface {
	Get(userID string) (State, bool)
	Set(userID string, st State)
	Clear(userID string)
}

// Expired describes a wizard dropped by Expire.
type Expired struct {
	UserID string
	State  State
}

// MemoryStore is a mutex-guarded map keyed by external user id. State is lost
// on restart.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]State),
		now:    time.Now,
	}
}

func (s *MemoryStore) Get(userID string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	return clone(st), true
}

func (s *MemoryStore) Set(userID string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = clone(st)
	st.UpdatedAt = s.now()
	s.states[userID] = st
}

func (s *MemoryStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Expire removes and returns every state idle for at least ttl.
func (s *MemoryStore) Expire(ttl time.Duration) []Expired {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var out []Expired
	for userID, st := range s.states {
		if st.UpdatedAt.After(cutoff) {
			continue
		}
		out = append(out, Expired{UserID: userID, State: st})
		delete(s.states, userID)
	}
	return out
}

func clone(st State) State {
	fields := make(map[string]any, len(st.Fields))
	for k, v := range st.Fields {
		fields[k] = v
	}
	st.Fields = fields
	return st
}
