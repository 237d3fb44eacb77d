package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pulse/api/internal/interest"
	"pulse/api/internal/reconcile"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// persistenceError reports a failed reconcile write. The client retries the
// same edit; the store state converges either way.
func persistenceError(err error) *DomainError {
	details := map[string]any{"retry": true}
	var opErr *reconcile.OpError
	if errors.As(err, &opErr) {
		details["phase"] = string(opErr.Phase)
		if opErr.TopicID != "" {
			details["topicId"] = opErr.TopicID
		}
	}
	return &DomainError{
		Status:  http.StatusServiceUnavailable,
		Code:    "PERSISTENCE_FAILURE",
		Message: "Topics could not be saved, retry the edit",
		Details: details,
		Err:     err,
	}
}

func editError(err error) error {
	switch {
	case errors.Is(err, reconcile.ErrMissingID):
		return &DomainError{Status: http.StatusUnprocessableEntity, Code: "MISSING_ID", Message: err.Error(), Err: err}
	case errors.Is(err, reconcile.ErrDuplicateID):
		return &DomainError{Status: http.StatusUnprocessableEntity, Code: "DUPLICATE_TOPIC_ID", Message: err.Error(), Err: err}
	case errors.Is(err, reconcile.ErrEmptyTitle):
		return &DomainError{Status: http.StatusUnprocessableEntity, Code: "EMPTY_TITLE", Message: err.Error(), Err: err}
	case errors.Is(err, reconcile.ErrForeignTopic):
		details := map[string]any{}
		var opErr *reconcile.OpError
		if errors.As(err, &opErr) {
			details["topicId"] = opErr.TopicID
		}
		return &DomainError{Status: http.StatusUnprocessableEntity, Code: "TOPIC_NOT_IN_SESSION", Message: "Topic belongs to another session", Details: details, Err: err}
	}
	return err
}

// noCache is used when no cache is configured; every lookup misses.
type noCache struct{}

func (noCache) GetInterest(context.Context, string) ([]interest.Tally, bool, error) {
	return nil, false, nil
}
func (noCache) SetInterest(context.Context, string, []interest.Tally) error { return nil }
func (noCache) InvalidateInterest(context.Context, string) error            { return nil }
func (noCache) SaveDraft(context.Context, string, []reconcile.Edit) error   { return nil }
func (noCache) LoadDraft(context.Context, string) ([]reconcile.Edit, bool, error) {
	return nil, false, nil
}
func (noCache) ClearDraft(context.Context, string) error { return nil }
