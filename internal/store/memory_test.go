package store

import (
	"context"
	"errors"
	"testing"
)

func newSeededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		if err := s.CreateSession(ctx, Session{ID: id, Title: id}); err != nil {
			t.Fatalf("create session %s: %v", id, err)
		}
	}
	return s
}

func TestMemoryStoreEnforcesActiveSortOrder(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()

	if err := s.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0}); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := s.WriteTopic(ctx, Topic{ID: "b", SessionID: "s1", Text: "B", SortOrder: 0}); !errors.Is(err, ErrSortOrderConflict) {
		t.Fatalf("expected ErrSortOrderConflict, got %v", err)
	}
	if err := s.WriteTopic(ctx, Topic{ID: "b", SessionID: "s1", Text: "B", SortOrder: 0, Lifecycle: LifecycleArchived}); err != nil {
		t.Fatalf("archived rows may share an order: %v", err)
	}
	if err := s.WriteTopic(ctx, Topic{ID: "c", SessionID: "s2", Text: "C", SortOrder: 0}); err != nil {
		t.Fatalf("orders are scoped per session: %v", err)
	}
	if err := s.WriteTopic(ctx, Topic{ID: "a", SessionID: "s2", Text: "A", SortOrder: 5}); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("expected ErrSessionMismatch, got %v", err)
	}
}

func TestMemoryStoreReadActiveTopicsOrdered(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()
	for _, topic := range []Topic{
		{ID: "c", SessionID: "s1", Text: "C", SortOrder: 2},
		{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0},
		{ID: "x", SessionID: "s1", Text: "X", SortOrder: 1, Lifecycle: LifecycleArchived},
		{ID: "b", SessionID: "s1", Text: "B", SortOrder: -5},
	} {
		if err := s.WriteTopic(ctx, topic); err != nil {
			t.Fatalf("write %s: %v", topic.ID, err)
		}
	}
	active, err := s.ReadActiveTopics(ctx, "s1")
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	var ids []string
	for _, topic := range active {
		ids = append(ids, topic.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestMemoryStoreWithinTxRestoresTopicsOnError(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()
	if err := s.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0}); err != nil {
		t.Fatalf("write a: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx TopicStore) error {
		if err := tx.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A edited", SortOrder: -1000000}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	topic, err := s.GetTopic(ctx, "s1", "a")
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if topic.Text != "A" || topic.SortOrder != 0 {
		t.Fatalf("expected rollback, got %+v", topic)
	}
}

func TestMemoryStoreResponses(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()
	if err := s.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0}); err != nil {
		t.Fatalf("write a: %v", err)
	}

	err := s.InsertResponse(ctx, Response{ID: "r0", SessionID: "s2"}, []Selection{{ThemeID: "a", Selection: ChoiceMore}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-session selection to fail, got %v", err)
	}

	if err := s.InsertResponse(ctx, Response{ID: "r1", SessionID: "s1"}, []Selection{{ThemeID: "a", Selection: ChoiceLess}}); err != nil {
		t.Fatalf("insert response: %v", err)
	}
	selections, err := s.ReadSelections(ctx, "s1")
	if err != nil {
		t.Fatalf("read selections: %v", err)
	}
	if len(selections) != 1 || selections[0].ResponseID != "r1" || selections[0].Selection != ChoiceLess {
		t.Fatalf("unexpected selections: %+v", selections)
	}

	if err := s.DeleteResponse(ctx, "s2", "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other session, got %v", err)
	}
	if err := s.DeleteResponse(ctx, "s1", "r1"); err != nil {
		t.Fatalf("delete response: %v", err)
	}
	selections, _ = s.ReadSelections(ctx, "s1")
	if len(selections) != 0 {
		t.Fatalf("expected selections removed, got %+v", selections)
	}
}

func TestMemoryStoreWithinTxKeepsConcurrentWrites(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()
	if err := s.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0}); err != nil {
		t.Fatalf("write a: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx TopicStore) error {
		if err := tx.WriteTopic(ctx, Topic{ID: "a", SessionID: "s1", Text: "A", SortOrder: 3}); err != nil {
			return err
		}
		if err := tx.WriteTopic(ctx, Topic{ID: "n", SessionID: "s1", Text: "New", SortOrder: 0}); err != nil {
			return err
		}
		// Another session commits while this transaction is open.
		if err := s.WriteTopic(ctx, Topic{ID: "y1", SessionID: "s2", Text: "Y", SortOrder: 0}); err != nil {
			return err
		}
		if err := s.InsertResponse(ctx, Response{ID: "r1", SessionID: "s2"}, []Selection{{ThemeID: "y1", Selection: ChoiceMore}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.GetTopic(ctx, "s1", "n"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("topic inserted inside the failed transaction should be gone, got %v", err)
	}
	if topic, _ := s.GetTopic(ctx, "s1", "a"); topic.SortOrder != 0 {
		t.Fatalf("expected a restored to order 0, got %+v", topic)
	}
	other, err := s.ReadActiveTopics(ctx, "s2")
	if err != nil || len(other) != 1 || other[0].ID != "y1" {
		t.Fatalf("other session's committed write lost: %+v %v", other, err)
	}
	selections, _ := s.ReadSelections(ctx, "s2")
	if len(selections) != 1 {
		t.Fatalf("other session's feedback lost: %+v", selections)
	}
}

func TestMemoryStoreDeleteSession(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()
	for _, topic := range []Topic{
		{ID: "a", SessionID: "s1", Text: "A", SortOrder: 0},
		{ID: "b", SessionID: "s2", Text: "B", SortOrder: 0},
	} {
		if err := s.WriteTopic(ctx, topic); err != nil {
			t.Fatalf("write %s: %v", topic.ID, err)
		}
	}
	if err := s.InsertResponse(ctx, Response{ID: "r1", SessionID: "s1"}, []Selection{{ThemeID: "a", Selection: ChoiceMore}}); err != nil {
		t.Fatalf("insert r1: %v", err)
	}
	if err := s.InsertResponse(ctx, Response{ID: "r2", SessionID: "s2"}, []Selection{{ThemeID: "b", Selection: ChoiceLess}}); err != nil {
		t.Fatalf("insert r2: %v", err)
	}

	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.GetSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if _, err := s.GetTopic(ctx, "s1", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected topics gone, got %v", err)
	}
	if selections, _ := s.ReadSelections(ctx, "s2"); len(selections) != 1 {
		t.Fatalf("other session's selections should remain: %+v", selections)
	}
	if err := s.DeleteSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
