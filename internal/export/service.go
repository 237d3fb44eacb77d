package export

import (
	"context"
	"fmt"
)

type pdfFunc func(ctx context.Context, html, title string) (*Result, error)

// Service turns a Report into a downloadable file.
type Service struct {
	pdf pdfFunc
}

// NewService returns a Service that prints PDFs with headless Chrome.
func NewService(opts ChromeOptions) *Service {
	return &Service{pdf: newChromeRenderer(opts).render}
}

func (s *Service) Render(ctx context.Context, report Report, format Format) (*Result, error) {
	if format != FormatHTML && format != FormatPDF {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	html, err := RenderReportHTML(report)
	if err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	if format == FormatPDF {
		return s.pdf(ctx, html, report.SessionTitle)
	}
	return &Result{
		Data:     []byte(html),
		Filename: sanitizeFilename(report.SessionTitle) + ".html",
		MimeType: "text/html; charset=utf-8",
	}, nil
}
