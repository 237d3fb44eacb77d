package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions, topics and feedback in process memory. It
// enforces the same active sort-order uniqueness as the Postgres schema and
// backs local runs (PULSE_STORE=memory) and tests.
type MemoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	sessions   map[string]Session
	topics     map[string]Topic
	responses  map[string]Response
	selections []Selection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		sessions:  make(map[string]Session),
		topics:    make(map[string]Topic),
		responses: make(map[string]Response),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("insert session %s: already exists", session.ID)
	}
	now := s.now()
	session.CreatedAt, session.UpdatedAt = now, now
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *MemoryStore) ReadActiveTopics(_ context.Context, sessionID string) ([]Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Topic, 0)
	for _, topic := range s.topics {
		if topic.SessionID == sessionID && topic.IsActive() {
			items = append(items, topic)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *MemoryStore) GetTopic(_ context.Context, sessionID, topicID string) (Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[topicID]
	if !ok || topic.SessionID != sessionID {
		return Topic{}, ErrNotFound
	}
	return topic, nil
}

func (s *MemoryStore) WriteTopic(_ context.Context, topic Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeTopicLocked(topic)
}

func (s *MemoryStore) writeTopicLocked(topic Topic) error {
	if topic.Lifecycle == "" {
		topic.Lifecycle = LifecycleActive
	}
	existing, exists := s.topics[topic.ID]
	if exists && existing.SessionID != topic.SessionID {
		return fmt.Errorf("write topic %s: %w", topic.ID, ErrSessionMismatch)
	}
	if topic.IsActive() {
		for id, other := range s.topics {
			if id != topic.ID && other.SessionID == topic.SessionID && other.IsActive() && other.SortOrder == topic.SortOrder {
				return fmt.Errorf("write topic %s: %w", topic.ID, ErrSortOrderConflict)
			}
		}
	}
	now := s.now()
	topic.UpdatedAt = now
	if exists {
		topic.CreatedAt = existing.CreatedAt
	} else {
		topic.CreatedAt = now
	}
	s.topics[topic.ID] = topic
	return nil
}

func (s *MemoryStore) ReadSelections(_ context.Context, sessionID string) ([]Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Selection, 0)
	for _, sel := range s.selections {
		if topic, ok := s.topics[sel.ThemeID]; ok && topic.SessionID == sessionID {
			items = append(items, sel)
		}
	}
	return items, nil
}

func (s *MemoryStore) InsertResponse(_ context.Context, response Response, selections []Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.responses[response.ID]; exists {
		return fmt.Errorf("insert response %s: already exists", response.ID)
	}
	for _, sel := range selections {
		topic, ok := s.topics[sel.ThemeID]
		if !ok || topic.SessionID != response.SessionID {
			return fmt.Errorf("insert selection for %s: %w", sel.ThemeID, ErrNotFound)
		}
	}
	response.CreatedAt = s.now()
	s.responses[response.ID] = response
	for _, sel := range selections {
		sel.ResponseID = response.ID
		s.selections = append(s.selections, sel)
	}
	return nil
}

func (s *MemoryStore) DeleteResponse(_ context.Context, sessionID, responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	response, ok := s.responses[responseID]
	if !ok || response.SessionID != sessionID {
		return ErrNotFound
	}
	delete(s.responses, responseID)
	kept := s.selections[:0]
	for _, sel := range s.selections {
		if sel.ResponseID != responseID {
			kept = append(kept, sel)
		}
	}
	s.selections = kept
	return nil
}

// DeleteSession removes the session with its topics, responses and
// selections.
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	for id, topic := range s.topics {
		if topic.SessionID == sessionID {
			delete(s.topics, id)
		}
	}
	for id, response := range s.responses {
		if response.SessionID == sessionID {
			delete(s.responses, id)
		}
	}
	kept := s.selections[:0]
	for _, sel := range s.selections {
		if _, ok := s.responses[sel.ResponseID]; ok {
			kept = append(kept, sel)
		}
	}
	s.selections = kept
	return nil
}

// WithinTx runs fn against a transaction view of the store. If fn fails,
// every topic written through that view is put back to its prior value;
// writes made outside the view, including other sessions', are untouched.
func (s *MemoryStore) WithinTx(_ context.Context, fn func(TopicStore) error) error {
	tx := &memoryTx{store: s, undo: make(map[string]*Topic)}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryTx records the prior value of each topic id it writes, nil for ids
// that did not exist.
type memoryTx struct {
	store *MemoryStore
	undo  map[string]*Topic
}

func (tx *memoryTx) ReadActiveTopics(ctx context.Context, sessionID string) ([]Topic, error) {
	return tx.store.ReadActiveTopics(ctx, sessionID)
}

func (tx *memoryTx) WriteTopic(_ context.Context, topic Topic) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	prior, existed := s.topics[topic.ID]
	if err := s.writeTopicLocked(topic); err != nil {
		return err
	}
	if _, logged := tx.undo[topic.ID]; !logged {
		if existed {
			tx.undo[topic.ID] = &prior
		} else {
			tx.undo[topic.ID] = nil
		}
	}
	return nil
}

func (tx *memoryTx) rollback() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, prior := range tx.undo {
		if prior == nil {
			delete(s.topics, id)
			continue
		}
		s.topics[id] = *prior
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
