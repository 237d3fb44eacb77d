// Package search finds topics by text across sessions. Meilisearch is the
// primary engine; Postgres full-text search covers for it when it is down.
package search

import "context"

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text      string
	SessionID string // empty = all sessions
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push topics into a search index.
type Indexer interface {
	IndexTopics(records []TopicRecord) error
	DeleteTopics(ids []string) error
	Healthy() bool
}

// TopicRecord is the data we index for an active topic.
type TopicRecord struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionId"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
	SortOrder int      `json:"sortOrder"`
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return defaultLimit
	}
	return q.Limit
}
