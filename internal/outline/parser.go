package outline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy is the complete set of knobs the parser consults. DefaultPolicy is
// the configuration the service runs with; tests exercise variants directly.
type Policy struct {
	MaxTopics         int
	MaxSubtopics      int
	MaxTopicLength    int
	ShortLineMaxChars int
	ShortLineMaxWords int
	HeaderMinWords    int
	HeaderKeywords    []string
	MergeFragments    bool
	FragmentMaxChars  int
	FallbackTopics    int
}

// DefaultPolicy returns the policy used when none is supplied.
func DefaultPolicy() Policy {
	return Policy{
		MaxTopics:         12,
		MaxSubtopics:      6,
		MaxTopicLength:    120,
		ShortLineMaxChars: 25,
		ShortLineMaxWords: 4,
		HeaderMinWords:    3,
		HeaderKeywords: []string{
			"introduction", "intro", "conclusion", "overview", "summary",
			"agenda", "q&a", "qa", "questions", "background", "next steps", "recap",
		},
		MergeFragments:   true,
		FragmentMaxChars: 20,
		FallbackTopics:   5,
	}
}

// line is one non-blank input line with the facts every rule needs.
type line struct {
	raw        string
	text       string
	indented   bool
	bulleted   bool
	numbered   bool
	colon      bool
	afterBlank bool
}

type cursor struct {
	policy  Policy
	current *Block
}

// attachRule decides whether a line belongs under the current block.
type attachRule struct {
	name  string
	match func(c cursor, l line) bool
}

// attachRules are evaluated in order; the first match attaches the line as a
// subtopic. A line matching none starts a new block.
var attachRules = []attachRule{
	{name: "indented", match: func(_ cursor, l line) bool { return l.indented }},
	{name: "bullet-prefix", match: func(_ cursor, l line) bool { return l.bulleted }},
	{name: "short-continuation", match: func(c cursor, l line) bool {
		if l.afterBlank || !c.policy.isShort(l.text) || c.policy.looksLikeHeader(l) {
			return false
		}
		// Two bare words in a row read as a wrapped title, not title plus
		// subtopic; the fragment pass joins them.
		if c.policy.MergeFragments && len(c.current.Subtopics) == 0 &&
			c.policy.isFragment(c.current.Title) && c.policy.isFragment(l.text) {
			return false
		}
		return true
	}},
}

var (
	sentenceSplit    = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
	trailingPunct    = ".,;:!?…"
	dedupeStrip      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	structuralMarker = regexp.MustCompile(`[:\-–—•*]`)
)

// Parse segments an outline with the default policy.
func Parse(text string) []Block {
	return DefaultPolicy().Parse(text)
}

// Parse segments free-form outline text into ordered topic blocks. It is
// deterministic and never fails; blank input yields no blocks.
func (p Policy) Parse(text string) []Block {
	blocks := make([]Block, 0)
	if strings.TrimSpace(text) == "" {
		return blocks
	}

	c := cursor{policy: p}
	afterBlank := true
	for _, raw := range strings.Split(normalizeNewlines(text), "\n") {
		if strings.TrimSpace(raw) == "" {
			afterBlank = true
			continue
		}
		l, ok := p.classify(raw, afterBlank)
		if !ok {
			continue
		}
		afterBlank = false

		if c.current != nil && p.attaches(c, l) {
			if len(c.current.Subtopics) < p.MaxSubtopics {
				c.current.Subtopics = append(c.current.Subtopics, l.text)
			}
			continue
		}
		blocks = append(blocks, Block{Title: l.text, Subtopics: []string{}})
		c.current = &blocks[len(blocks)-1]
	}

	if p.MergeFragments {
		blocks = p.mergeFragments(blocks)
	}
	blocks = p.dedupe(blocks)
	if len(blocks) == 0 {
		blocks = p.fallback(text)
	}
	return blocks
}

func (p Policy) attaches(c cursor, l line) bool {
	for _, rule := range attachRules {
		if rule.match(c, l) {
			return true
		}
	}
	return false
}

// classify normalizes a raw line. Lines that normalize to nothing or run past
// MaxTopicLength are dropped and do not count as separators.
func (p Policy) classify(raw string, afterBlank bool) (line, bool) {
	trimmed := strings.TrimSpace(raw)
	l := line{
		raw:        raw,
		indented:   raw[0] == ' ' || raw[0] == '\t',
		bulleted:   bulletPrefix.MatchString(trimmed) && !strings.HasPrefix(trimmed, "#"),
		numbered:   numberPrefix.MatchString(trimmed) || letterPrefix.MatchString(trimmed),
		afterBlank: afterBlank,
	}
	stripped := StripMarker(trimmed)
	l.colon = strings.HasSuffix(stripped, ":")
	l.text = strings.TrimSpace(strings.TrimRight(stripped, trailingPunct))
	l.text = strings.Join(strings.Fields(l.text), " ")
	if l.text == "" || utf8.RuneCountInString(l.text) > p.MaxTopicLength {
		return line{}, false
	}
	return l, true
}

func (p Policy) isShort(text string) bool {
	return utf8.RuneCountInString(text) <= p.ShortLineMaxChars && len(strings.Fields(text)) <= p.ShortLineMaxWords
}

// looksLikeHeader reports whether a line reads as a section heading: a known
// section keyword, a multi-word phrase, a trailing colon, or a numbered item.
func (p Policy) looksLikeHeader(l line) bool {
	if l.colon || l.numbered || p.isKeyword(l.text) {
		return true
	}
	return len(strings.Fields(l.text)) >= p.HeaderMinWords
}

func (p Policy) isKeyword(text string) bool {
	key := dedupeKey(text)
	for _, keyword := range p.HeaderKeywords {
		if key == dedupeKey(keyword) {
			return true
		}
	}
	return false
}

// isFragment reports whether a title is a single bare word: short, no
// structural delimiter and not a section keyword.
func (p Policy) isFragment(title string) bool {
	if len(strings.Fields(title)) != 1 || utf8.RuneCountInString(title) > p.FragmentMaxChars {
		return false
	}
	if structuralMarker.MatchString(title) {
		return false
	}
	return !p.isKeyword(title)
}

// mergeFragments joins runs of consecutive fragment blocks without subtopics
// into one block.
func (p Policy) mergeFragments(blocks []Block) []Block {
	merged := make([]Block, 0, len(blocks))
	runOpen := false
	for _, block := range blocks {
		fragment := len(block.Subtopics) == 0 && p.isFragment(block.Title)
		if fragment && runOpen {
			last := &merged[len(merged)-1]
			joined := last.Title + " " + block.Title
			if utf8.RuneCountInString(joined) <= p.MaxTopicLength {
				last.Title = joined
				continue
			}
		}
		merged = append(merged, block)
		runOpen = fragment
	}
	return merged
}

// dedupe keeps the first block per case- and punctuation-insensitive title
// and stops at MaxTopics.
func (p Policy) dedupe(blocks []Block) []Block {
	seen := make(map[string]struct{}, len(blocks))
	out := make([]Block, 0, len(blocks))
	for _, block := range blocks {
		if len(out) >= p.MaxTopics {
			break
		}
		key := dedupeKey(block.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, block)
	}
	return out
}

// fallback splits prose on sentence terminators when no line produced a
// usable block, truncating overlong sentences at a word boundary.
func (p Policy) fallback(text string) []Block {
	flat := strings.Join(strings.Fields(normalizeNewlines(text)), " ")
	out := make([]Block, 0)
	seen := map[string]struct{}{}
	for _, sentence := range sentenceSplit.Split(flat, -1) {
		if len(out) >= p.FallbackTopics || len(out) >= p.MaxTopics {
			break
		}
		title := strings.TrimSpace(strings.TrimRight(StripMarker(sentence), trailingPunct))
		title = truncateWords(title, p.MaxTopicLength)
		key := dedupeKey(title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Block{Title: title, Subtopics: []string{}})
	}
	return out
}

func truncateWords(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(b.String())+1+utf8.RuneCountInString(word) > limit {
			break
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(word)
	}
	if b.Len() == 0 {
		return string([]rune(text)[:limit])
	}
	return b.String()
}

func dedupeKey(text string) string {
	text = strings.ToLower(text)
	text = dedupeStrip.ReplaceAllString(text, "")
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
