// Package interest turns recorded participant selections into per-topic
// interest numbers and the ranking shown to presenters.
package interest

import (
	"sort"

	"pulse/api/internal/outline"
	"pulse/api/internal/store"
)

// Tally is the interest aggregate of one topic.
type Tally struct {
	TopicID   string   `json:"topicId"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
	SortOrder int      `json:"sortOrder"`
	More      int      `json:"more"`
	Less      int      `json:"less"`
	Total     int      `json:"total"`
	Net       int      `json:"net"`
}

// Count returns the more/less counts recorded against one topic id. It works
// for archived ids too, since selections are never removed on archive.
func Count(topicID string, selections []store.Selection) (more, less int) {
	for _, sel := range selections {
		if sel.ThemeID != topicID {
			continue
		}
		switch sel.Selection {
		case store.ChoiceMore:
			more++
		case store.ChoiceLess:
			less++
		}
	}
	return more, less
}

// Compute aggregates selections for the active topics and returns them
// ranked. Selections pointing at topics outside the set are ignored.
func Compute(topics []store.Topic, selections []store.Selection) []Tally {
	index := make(map[string]int, len(topics))
	tallies := make([]Tally, 0, len(topics))
	for _, topic := range topics {
		if !topic.IsActive() {
			continue
		}
		block := outline.Decode(topic.Text)
		index[topic.ID] = len(tallies)
		tallies = append(tallies, Tally{
			TopicID:   topic.ID,
			Title:     block.Title,
			Subtopics: block.Subtopics,
			SortOrder: topic.SortOrder,
		})
	}

	for _, sel := range selections {
		i, ok := index[sel.ThemeID]
		if !ok {
			continue
		}
		switch sel.Selection {
		case store.ChoiceMore:
			tallies[i].More++
		case store.ChoiceLess:
			tallies[i].Less++
		}
	}
	for i := range tallies {
		tallies[i].Total = tallies[i].More + tallies[i].Less
		tallies[i].Net = tallies[i].More - tallies[i].Less
	}

	Rank(tallies)
	return tallies
}

// Rank sorts by net descending, then total descending, then sort order
// ascending. The id is a last resort for inputs whose sort orders collide.
func Rank(tallies []Tally) {
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.Net != b.Net {
			return a.Net > b.Net
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.TopicID < b.TopicID
	})
}

// GeneratorTopic is the per-topic priority signal handed to outline
// generation. Text is the decoded title, never the stored encoding.
type GeneratorTopic struct {
	Text string `json:"text"`
	More int    `json:"more"`
	Less int    `json:"less"`
	Net  int    `json:"net"`
}

// ForGenerator projects ranked tallies into the generator input, keeping
// their order.
func ForGenerator(tallies []Tally) []GeneratorTopic {
	out := make([]GeneratorTopic, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, GeneratorTopic{Text: t.Title, More: t.More, Less: t.Less, Net: t.Net})
	}
	return out
}
