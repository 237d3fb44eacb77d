package cache

import (
	"context"
	"sync"
	"time"

	"pulse/api/internal/interest"
	"pulse/api/internal/reconcile"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is the in-process fallback used when no redis is configured.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	interestTTL time.Duration
	draftTTL    time.Duration
	interest    map[string]entry[[]interest.Tally]
	drafts      map[string]entry[[]reconcile.Edit]
}

func NewMemory(interestTTL, draftTTL time.Duration) *Memory {
	return &Memory{
		now:         time.Now,
		interestTTL: interestTTL,
		draftTTL:    draftTTL,
		interest:    make(map[string]entry[[]interest.Tally]),
		drafts:      make(map[string]entry[[]reconcile.Edit]),
	}
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) live(expiresAt time.Time) bool {
	return expiresAt.IsZero() || m.now().Before(expiresAt)
}

func (m *Memory) GetInterest(_ context.Context, sessionID string) ([]interest.Tally, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.interest[sessionID]
	if !ok || !m.live(e.expiresAt) {
		delete(m.interest, sessionID)
		return nil, false, nil
	}
	return append([]interest.Tally(nil), e.value...), true, nil
}

func (m *Memory) SetInterest(_ context.Context, sessionID string, tallies []interest.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interest[sessionID] = entry[[]interest.Tally]{
		value:     append([]interest.Tally(nil), tallies...),
		expiresAt: m.expiry(m.interestTTL),
	}
	return nil
}

func (m *Memory) InvalidateInterest(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interest, sessionID)
	return nil
}

func (m *Memory) SaveDraft(_ context.Context, sessionID string, edits []reconcile.Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = entry[[]reconcile.Edit]{
		value:     append([]reconcile.Edit(nil), edits...),
		expiresAt: m.expiry(m.draftTTL),
	}
	return nil
}

func (m *Memory) LoadDraft(_ context.Context, sessionID string) ([]reconcile.Edit, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.drafts[sessionID]
	if !ok || !m.live(e.expiresAt) {
		delete(m.drafts, sessionID)
		return nil, false, nil
	}
	return append([]reconcile.Edit(nil), e.value...), true, nil
}

func (m *Memory) ClearDraft(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}
