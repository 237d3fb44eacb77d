package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pulse/api/internal/outline"
	"pulse/api/internal/store"
)

// Engine is a search backend that can also be indexed.
type Engine interface {
	Searcher
	Indexer
}

// Service is the facade that tries the primary engine first and falls back
// to the secondary searcher.
type Service struct {
	primary  Engine
	fallback Searcher
	logger   *zap.Logger

	mu       sync.Mutex
	queue    []indexJob
	draining bool
	inflight sync.WaitGroup
}

type indexJob struct {
	records     []TopicRecord
	archivedIDs []string
}

// NewService creates a search service. primary may be nil if Meilisearch is
// not configured; fallback may be nil when there is no database.
func NewService(primary Engine, fallback Searcher, logger *zap.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, logger: logger}
}

// Search tries the primary engine if healthy, otherwise falls back.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primary != nil && s.primary.Healthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("primary search failed, falling back", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("fallback search failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// SyncTopics queues an index update for a session's active topics and the
// removal of archived ones. Updates reach the engine one at a time in the
// order they were queued, so an older topic set never overwrites a newer one.
func (s *Service) SyncTopics(active []store.Topic, archivedIDs []string) {
	if s.primary == nil || !s.primary.Healthy() {
		return
	}
	job := indexJob{records: Records(active), archivedIDs: archivedIDs}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, job)
	if s.draining {
		return
	}
	s.draining = true
	s.inflight.Add(1)
	go s.drain()
}

func (s *Service) drain() {
	defer s.inflight.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.apply(job)
	}
}

func (s *Service) apply(job indexJob) {
	if err := s.primary.IndexTopics(job.records); err != nil {
		s.logger.Warn("index topics", zap.Int("count", len(job.records)), zap.Error(err))
	}
	if len(job.archivedIDs) == 0 {
		return
	}
	if err := s.primary.DeleteTopics(job.archivedIDs); err != nil {
		s.logger.Warn("delete topics from index", zap.Strings("ids", job.archivedIDs), zap.Error(err))
	}
}

// Reindex pushes every active topic into the primary engine.
func (s *Service) Reindex(topics []store.Topic) {
	if s.primary == nil || !s.primary.Healthy() || len(topics) == 0 {
		return
	}
	if err := s.primary.IndexTopics(Records(topics)); err != nil {
		s.logger.Warn("reindex topics", zap.Error(err))
	}
}

// Wait blocks until queued index writes have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Records converts active topics to index records.
func Records(topics []store.Topic) []TopicRecord {
	records := make([]TopicRecord, 0, len(topics))
	for _, topic := range topics {
		if !topic.IsActive() {
			continue
		}
		block := outline.Decode(topic.Text)
		records = append(records, TopicRecord{
			ID:        topic.ID,
			SessionID: topic.SessionID,
			Title:     block.Title,
			Subtopics: block.Subtopics,
			SortOrder: topic.SortOrder,
		})
	}
	return records
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
