package store

import (
	"context"
	"errors"
	"time"
)

// Lifecycle is the state of a topic row. Topics are never hard-deleted;
// removal moves them to LifecycleArchived.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "ACTIVE"
	LifecycleArchived Lifecycle = "ARCHIVED"
)

// Choice is a participant's interest signal for one topic.
type Choice string

const (
	ChoiceMore Choice = "more"
	ChoiceLess Choice = "less"
)

// Valid reports whether c is one of the known choices.
func (c Choice) Valid() bool {
	return c == ChoiceMore || c == ChoiceLess
}

var (
	ErrNotFound          = errors.New("not found")
	ErrSortOrderConflict = errors.New("active sort order already taken")
	ErrSessionMismatch   = errors.New("topic belongs to another session")
)

// TopicStore is the narrow read/write surface topic reconciliation uses.
type TopicStore interface {
	ReadActiveTopics(ctx context.Context, sessionID string) ([]Topic, error)
	WriteTopic(ctx context.Context, topic Topic) error
}

type Session struct {
	ID               string
	Title            string
	Outline          string
	PresenterKeyHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Topic is a persisted topic row. ID is the only link to historical
// feedback and never changes once created.
type Topic struct {
	ID        string
	SessionID string
	Text      string
	SortOrder int
	Lifecycle Lifecycle
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the topic is part of the session's live set.
func (t Topic) IsActive() bool {
	return t.Lifecycle == LifecycleActive
}

type Response struct {
	ID          string
	SessionID   string
	Participant string
	CreatedAt   time.Time
}

// Selection is one participant choice. ThemeID may point at an archived topic.
type Selection struct {
	ResponseID string
	ThemeID    string
	Selection  Choice
}
