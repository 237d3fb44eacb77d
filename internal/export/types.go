// Package export renders a session's interest report as HTML or PDF.
package export

import (
	"errors"
	"time"

	"pulse/api/internal/interest"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value onto a Format; empty means PDF.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Report is everything the report template shows.
type Report struct {
	SessionTitle string
	GeneratedAt  time.Time
	Responses    int
	// Topics are the active topics, ranked.
	Topics []interest.Tally
	// Retired are archived topics that still carry feedback.
	Retired []RetiredTopic
}

// RetiredTopic is an archived topic with the counts it collected while active.
type RetiredTopic struct {
	Title string
	More  int
	Less  int
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
