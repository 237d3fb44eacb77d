// Package reconcile applies a presenter's edited topic list to the persisted
// topic set of a session without breaking the link between topic ids and the
// feedback recorded against them.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"pulse/api/internal/outline"
	"pulse/api/internal/store"
)

// LargeOffset keeps parked sort orders clear of every final position.
const LargeOffset = 1_000_000

var (
	ErrDuplicateID = errors.New("edited topics contain a duplicate id")
	ErrEmptyTitle  = errors.New("edited topic has an empty title")
	ErrMissingID   = errors.New("edited topic has no id")

	// ErrForeignTopic means an edited id belongs to a different session.
	ErrForeignTopic = errors.New("edited topic belongs to another session")
)

// Edit is one entry of the edited list. An ID that is not among the active
// topics means "insert"; callers generate a fresh id for new topics.
type Edit struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
}

// Block returns the canonical block for the edit.
func (e Edit) Block() outline.Block {
	return outline.CanonicalBlock(e.Title, e.Subtopics)
}

// Phase names a step of the write sequence.
type Phase string

const (
	PhaseRead    Phase = "read"
	PhaseArchive Phase = "archive"
	PhasePark    Phase = "park"
	PhaseUpdate  Phase = "update"
	PhaseInsert  Phase = "insert"
)

// Op is one topic write.
type Op struct {
	Phase Phase
	Topic store.Topic
}

// Plan is the ordered set of writes that turns the previous active set into
// the edited one.
type Plan struct {
	SessionID string
	// Offset is the park offset actually used. It is LargeOffset unless a
	// previous interrupted run left rows parked further down.
	Offset    int
	Archive   []store.Topic
	Park      []store.Topic
	Update    []store.Topic
	Insert    []store.Topic
	Unchanged []string
}

// Summary counts a plan's operations.
type Summary struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Reordered int `json:"reordered"`
	Archived  int `json:"archived"`
	Unchanged int `json:"unchanged"`
}

func (p Plan) Summary() Summary {
	return Summary{
		Inserted:  len(p.Insert),
		Updated:   len(p.Update),
		Reordered: len(p.Park),
		Archived:  len(p.Archive),
		Unchanged: len(p.Unchanged),
	}
}

// Empty reports whether applying the plan would write nothing.
func (p Plan) Empty() bool {
	return len(p.Archive)+len(p.Park)+len(p.Update)+len(p.Insert) == 0
}

// Ops lists every write in the order Apply issues them.
func (p Plan) Ops() []Op {
	ops := make([]Op, 0, len(p.Archive)+len(p.Park)+len(p.Update)+len(p.Insert))
	for _, t := range p.Archive {
		ops = append(ops, Op{Phase: PhaseArchive, Topic: t})
	}
	for _, t := range p.Park {
		ops = append(ops, Op{Phase: PhasePark, Topic: t})
	}
	for _, t := range p.Update {
		ops = append(ops, Op{Phase: PhaseUpdate, Topic: t})
	}
	for _, t := range p.Insert {
		ops = append(ops, Op{Phase: PhaseInsert, Topic: t})
	}
	return ops
}

// Diff computes the plan for one session. previous is the session's current
// active set; edited is the full desired list in display order, and each
// entry's final sort order is its index. Diff performs no I/O.
func Diff(sessionID string, previous []store.Topic, edited []Edit) (Plan, error) {
	plan := Plan{SessionID: sessionID, Offset: parkOffset(previous)}

	seen := make(map[string]struct{}, len(edited))
	for i, edit := range edited {
		if strings.TrimSpace(edit.ID) == "" {
			return Plan{}, fmt.Errorf("position %d: %w", i, ErrMissingID)
		}
		if _, dup := seen[edit.ID]; dup {
			return Plan{}, fmt.Errorf("%s: %w", edit.ID, ErrDuplicateID)
		}
		seen[edit.ID] = struct{}{}
		if edit.Block().Title == "" {
			return Plan{}, fmt.Errorf("%s: %w", edit.ID, ErrEmptyTitle)
		}
	}

	current := make(map[string]store.Topic, len(previous))
	for _, topic := range previous {
		current[topic.ID] = topic
		if _, kept := seen[topic.ID]; !kept {
			archived := topic
			archived.Lifecycle = store.LifecycleArchived
			plan.Archive = append(plan.Archive, archived)
		}
	}

	for final, edit := range edited {
		block := edit.Block()
		existing, ok := current[edit.ID]
		if !ok {
			plan.Insert = append(plan.Insert, store.Topic{
				ID:        edit.ID,
				SessionID: sessionID,
				Text:      block.Text(),
				SortOrder: final,
				Lifecycle: store.LifecycleActive,
			})
			continue
		}

		moved := existing.SortOrder != final
		renamed := !sameBlock(outline.Decode(existing.Text), block)
		if !moved && !renamed {
			plan.Unchanged = append(plan.Unchanged, edit.ID)
			continue
		}
		if moved {
			parked := existing
			parked.SortOrder = -(final + plan.Offset)
			plan.Park = append(plan.Park, parked)
		}
		text := existing.Text
		if renamed {
			text = block.Text()
		}
		plan.Update = append(plan.Update, store.Topic{
			ID:        edit.ID,
			SessionID: sessionID,
			Text:      text,
			SortOrder: final,
			Lifecycle: store.LifecycleActive,
			CreatedAt: existing.CreatedAt,
		})
	}
	return plan, nil
}

// parkOffset returns LargeOffset, or a larger offset when an active row
// already sits at or below -LargeOffset, so parked values stay below every
// order currently held.
func parkOffset(previous []store.Topic) int {
	offset := LargeOffset
	for _, topic := range previous {
		if topic.SortOrder < 0 && -topic.SortOrder >= offset {
			offset = -topic.SortOrder + 1
		}
	}
	return offset
}

func sameBlock(a, b outline.Block) bool {
	if a.Title != b.Title || len(a.Subtopics) != len(b.Subtopics) {
		return false
	}
	for i := range a.Subtopics {
		if a.Subtopics[i] != b.Subtopics[i] {
			return false
		}
	}
	return true
}
