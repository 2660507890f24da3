// Package session holds per-user scratch state that lives only as long as the process.
package session

import (
	"strconv"
	"sync"

	"relaybot/internal/domain"
)

// Store keeps SessionState per user id
type Store struct {
	mu     sync.RWMutex
	states map[int64]domain.SessionState
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{states: make(map[int64]domain.SessionState)}
}

// Get returns a copy of the user's state, empty if none
func (s *Store) Get(userID int64) domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.SessionState, len(s.states[userID]))
	for k, v := range s.states[userID] {
		out[k] = v
	}
	return out
}

// Merge shallow-merges partial into the user's state, creating it if absent
func (s *Store) Merge(userID int64, partial domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		state = make(domain.SessionState, len(partial))
		s.states[userID] = state
	}
	for k, v := range partial {
		state[k] = v
	}
}

// Clear removes all state for the user
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Awaiting returns what the next free-text message from the user answers
func (s *Store) Awaiting(userID int64) domain.Awaiting {
	return s.Get(userID).Awaiting()
}

// SetAwaiting records the prompt the user is answering; AwaitingNothing drops the flag
func (s *Store) SetAwaiting(userID int64, awaiting domain.Awaiting) {
	if awaiting == domain.AwaitingNothing {
		s.mu.Lock()
		defer s.mu.Unlock()
		if state, ok := s.states[userID]; ok {
			delete(state, domain.SessionKeyAwaiting)
		}
		return
	}
	s.Merge(userID, domain.SessionState{domain.SessionKeyAwaiting: string(awaiting)})
}

// TrackMessage remembers the newest message id seen in the user's chat
func (s *Store) TrackMessage(userID int64, messageID int) {
	if messageID <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		state = make(domain.SessionState, 1)
		s.states[userID] = state
	}
	if last, err := strconv.Atoi(state[domain.SessionKeyLastMessageID]); err == nil && messageID <= last {
		return
	}
	state[domain.SessionKeyLastMessageID] = strconv.Itoa(messageID)
}

// LastMessageID returns the newest tracked message id, 0 if unknown
func (s *Store) LastMessageID(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, err := strconv.Atoi(s.states[userID][domain.SessionKeyLastMessageID])
	if err != nil {
		return 0
	}
	return id
}
