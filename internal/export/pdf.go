package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

var chromeBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

const footerTemplate = `<div style="font-size:8px;width:100%;text-align:center;color:#888">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`

// ChromeOptions configures the headless Chrome PDF renderer.
type ChromeOptions struct {
	// ExecPath is the browser binary; empty searches PATH.
	ExecPath string
	Timeout  time.Duration
}

type chromeRenderer struct {
	execPath string
	timeout  time.Duration
}

func newChromeRenderer(opts ChromeOptions) *chromeRenderer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &chromeRenderer{execPath: opts.ExecPath, timeout: timeout}
}

func (r *chromeRenderer) locate() (string, bool) {
	if r.execPath != "" {
		path, err := exec.LookPath(r.execPath)
		return path, err == nil
	}
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// render prints html to a Letter-sized PDF with a page-number footer.
func (r *chromeRenderer) render(ctx context.Context, html, title string) (*Result, error) {
	binary, ok := r.locate()
	if !ok {
		return nil, fmt.Errorf("%w: no chrome binary found", ErrPDFDependencyMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(binary),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	printPDF := chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.5).
			WithPaperHeight(11).
			WithMarginTop(0.6).
			WithMarginBottom(0.8).
			WithMarginLeft(0.7).
			WithMarginRight(0.7).
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate("<span></span>").
			WithFooterTemplate(footerTemplate).
			Do(ctx)
		pdf = data
		return err
	})
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(dataURL(html)),
		chromedp.WaitReady("body"),
		printPDF,
	); err != nil {
		return nil, fmt.Errorf("print report pdf: %w", err)
	}

	return &Result{
		Data:     pdf,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

func dataURL(html string) string {
	return "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)
}

// percentEncodeForDataURL escapes every byte outside the unreserved set.
// Spaces become %20, never +.
func percentEncodeForDataURL(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// sanitizeFilename keeps ASCII letters, digits, '-' and '_', maps spaces to
// '-' and caps the result at 50 bytes.
func sanitizeFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case r == '-', r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return r
		default:
			return -1
		}
	}, title)
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		return "session-report"
	}
	return name
}
