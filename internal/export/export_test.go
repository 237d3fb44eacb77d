package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pulse/api/internal/interest"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Q3 Review v1.2", "Q3-Review-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "session-report"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func sampleReport() Report {
	return Report{
		SessionTitle: "Quarterly <Review>",
		GeneratedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Responses:    7,
		Topics: []interest.Tally{
			{TopicID: "t1", Title: "Hiring plan", Subtopics: []string{"platform", "mobile"}, More: 5, Less: 1, Net: 4},
			{TopicID: "t2", Title: "Pricing", Subtopics: []string{}, More: 1, Less: 2, Net: -1},
		},
		Retired: []RetiredTopic{{Title: "Office move", More: 2}},
	}
}

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML(sampleReport())
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{"Hiring plan", "<li>platform</li>", "Pricing", "7 responses", "Retired topics", "Office move", "Mar 1, 2025"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Index(html, "Hiring plan") > strings.Index(html, "Pricing") {
		t.Error("topics should keep their ranked order")
	}
	if strings.Contains(html, "<Review>") || !strings.Contains(html, "&lt;Review&gt;") {
		t.Error("session title must be escaped")
	}
}

func TestRenderReportHTMLWithoutRetiredTopics(t *testing.T) {
	report := sampleReport()
	report.Retired = nil
	report.Topics = nil

	html, err := RenderReportHTML(report)
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}
	if strings.Contains(html, "Retired topics") {
		t.Error("retired section should be omitted")
	}
	if !strings.Contains(html, "No topics.") {
		t.Error("empty topic list should be stated")
	}
}

func TestServiceRender(t *testing.T) {
	svc := NewService(ChromeOptions{})
	svc.pdf = func(_ context.Context, html, title string) (*Result, error) {
		if !strings.Contains(html, "Hiring plan") {
			t.Errorf("pdf renderer got unexpected html")
		}
		return &Result{Data: []byte("%PDF"), Filename: sanitizeFilename(title) + ".pdf", MimeType: "application/pdf"}, nil
	}

	htmlResult, err := svc.Render(context.Background(), sampleReport(), FormatHTML)
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if htmlResult.Filename != "Quarterly-Review.html" || !strings.HasPrefix(htmlResult.MimeType, "text/html") {
		t.Fatalf("unexpected html result %+v", htmlResult)
	}

	pdfResult, err := svc.Render(context.Background(), sampleReport(), FormatPDF)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if pdfResult.MimeType != "application/pdf" || string(pdfResult.Data) != "%PDF" {
		t.Fatalf("unexpected pdf result %+v", pdfResult)
	}

	if _, err := svc.Render(context.Background(), sampleReport(), Format("docx")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
		err   bool
	}{
		{"", FormatPDF, false},
		{"pdf", FormatPDF, false},
		{"html", FormatHTML, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestChromeRendererMissingBinary(t *testing.T) {
	renderer := newChromeRenderer(ChromeOptions{ExecPath: "pulse-no-such-chrome"})
	if renderer.timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", renderer.timeout)
	}
	_, err := renderer.render(context.Background(), "<p>x</p>", "Report")
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestDataURL(t *testing.T) {
	got := dataURL("<p>a b</p>")
	if got != "data:text/html;charset=utf-8,%3Cp%3Ea%20b%3C%2Fp%3E" {
		t.Fatalf("dataURL = %q", got)
	}
}
