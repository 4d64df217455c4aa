package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// BrowserFetcher renders pages in a headless browser before returning their HTML.
// Use it for sites that build their <head> with JavaScript.
type BrowserFetcher struct {
	log      logrus.FieldLogger
	timeout  time.Duration
	maxBytes int64
}

// NewBrowserFetcher creates a BrowserFetcher. Each fetch launches its own browser.
// A maxBytes of zero or less disables the rendered HTML size cap.
func NewBrowserFetcher(timeout time.Duration, maxBytes int64, logger logrus.FieldLogger) *BrowserFetcher {
	return &BrowserFetcher{
		log:      logger.WithField("component", "browser_fetcher"),
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// FetchPage navigates to target and returns the rendered HTML.
func (f *BrowserFetcher) FetchPage(ctx context.Context, target string) (body []byte, err error) {
	log := f.log.WithField("url", target)

	path, exists := launcher.LookPath()
	if !exists {
		return nil, errors.New("rod browser dependency not found")
	}
	l := launcher.New().Bin(path).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Error closing rod browser instance")
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	waitDocument()

	if err := page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("page load timed out: %w", pageCtx.Err())
		}
		return nil, fmt.Errorf("wait for page load: %w", err)
	}
	if status != http.StatusOK {
		return nil, &StatusError{URL: target, StatusCode: status}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read rendered html: %w", err)
	}
	if f.maxBytes > 0 && int64(len(html)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", target, ErrBodyTooLarge, f.maxBytes)
	}
	log.Debug("Rendered page fetched")
	return []byte(html), nil
}
