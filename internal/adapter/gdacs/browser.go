package gdacs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
)

// ChromeBrowser fetches client-rendered pages with headless Chrome. Each
// FetchPage call allocates its own browser and tears it down on return, so a
// wedged page never leaks a Chrome process into the next cycle.
type ChromeBrowser struct {
	timeout  time.Duration
	headless bool
	execPath string
}

// NewChromeBrowser creates a browser fetcher. timeout bounds the whole
// navigate-and-render sequence of one call. execPath optionally pins the
// Chrome binary; empty means chromedp's lookup.
func NewChromeBrowser(timeout time.Duration, headless bool, execPath string) *ChromeBrowser {
	return &ChromeBrowser{
		timeout:  timeout,
		headless: headless,
		execPath: execPath,
	}
}

// FetchPage navigates to url, polls until the document body has rendered
// non-empty text, and returns that text. The wait is a readiness condition
// bounded by the configured timeout, never a fixed sleep.
func (b *ChromeBrowser) FetchPage(ctx context.Context, url string) ([]byte, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !b.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, b.timeout)
	defer cancelRun()

	var rendered bool
	var body string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Poll(
			`document.body !== null && document.body.innerText.trim().length > 0`,
			&rendered,
			chromedp.WithPollingInterval(250*time.Millisecond),
		),
		chromedp.Evaluate(`document.body.innerText`, &body),
	)
	if err != nil {
		reason := "browser automation failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout waiting for page content"
		}
		return nil, &domain.FetchError{Source: domain.SourceGeoJSON, Reason: reason, Err: err}
	}
	if strings.TrimSpace(body) == "" {
		return nil, &domain.FetchError{Source: domain.SourceGeoJSON, Reason: "page rendered empty"}
	}
	return []byte(body), nil
}
