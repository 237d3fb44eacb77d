// Package outline turns presenter outline text into topic blocks and
// converts blocks to and from the single-string form stored on a topic row.
package outline

import (
	"regexp"
	"strings"
)

// Block is a topic title with its ordered subtopics.
type Block struct {
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
}

// Text returns the encoded form of the block.
func (b Block) Text() string {
	return Encode(b.Title, b.Subtopics)
}

const subtopicMarker = "- "

var (
	bulletPrefix = regexp.MustCompile(`^(?:[-*+•·–—>]+|#{1,6})\s*`)
	numberPrefix = regexp.MustCompile(`^(?:\(?\d{1,3}[.)]|\(?[a-zA-Z]\)|[a-z]\.|[ivxlcIVXLC]{2,6}[.)])\s+`)
	// A capital letter and a period enumerates only when a capitalized word or
	// a digit follows: "B. Pricing" is item B, "C. elegans" is a name.
	letterPrefix = regexp.MustCompile(`^[A-Z]\.\s+[\p{Lu}\d]`)
	labelPrefix  = regexp.MustCompile(`(?i)^(?:topic|theme)\s*\d*\s*[:.\-]\s*`)
)

// Encode joins a title and its subtopics into one stored value: the title on
// the first line, then one "- " bulleted line per subtopic.
func Encode(title string, subtopics []string) string {
	var b strings.Builder
	b.WriteString(title)
	for _, sub := range subtopics {
		b.WriteString("\n")
		b.WriteString(subtopicMarker)
		b.WriteString(sub)
	}
	return b.String()
}

// Decode splits a stored value back into a block. It never fails: a legacy
// single-line value decodes to a title with no subtopics, and blank input
// decodes to an empty block.
func Decode(text string) Block {
	block := Block{Subtopics: []string{}}
	first := true
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		line = StripMarker(line)
		if line == "" {
			continue
		}
		if first {
			block.Title = line
			first = false
			continue
		}
		block.Subtopics = append(block.Subtopics, line)
	}
	return block
}

// Title returns only the decoded title of a stored value.
func Title(text string) string {
	return Decode(text).Title
}

// StripMarker trims whitespace and removes any leading bullet, numbering or
// "Topic:" label from a line.
func StripMarker(line string) string {
	line = strings.TrimSpace(line)
	for {
		next := line
		if loc := bulletPrefix.FindStringIndex(next); loc != nil && loc[1] > 0 {
			next = next[loc[1]:]
		}
		if loc := numberPrefix.FindStringIndex(next); loc != nil {
			next = next[loc[1]:]
		} else if letterPrefix.MatchString(next) {
			next = next[2:]
		}
		if loc := labelPrefix.FindStringIndex(next); loc != nil {
			next = next[loc[1]:]
		}
		next = strings.TrimSpace(next)
		if next == line {
			return line
		}
		line = next
	}
}

// Canonical strips markers and collapses internal whitespace so that the
// value survives an Encode/Decode round trip unchanged.
func Canonical(value string) string {
	value = strings.Join(strings.Fields(normalizeNewlines(value)), " ")
	return StripMarker(value)
}

// CanonicalBlock applies Canonical to the title and every subtopic, dropping
// subtopics that end up empty.
func CanonicalBlock(title string, subtopics []string) Block {
	block := Block{Title: Canonical(title), Subtopics: make([]string, 0, len(subtopics))}
	for _, sub := range subtopics {
		if sub = Canonical(sub); sub != "" {
			block.Subtopics = append(block.Subtopics, sub)
		}
	}
	return block
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}
