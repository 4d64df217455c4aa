package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const userAgent = "linkkeeper/0.1 (+metadata preview)"

// ErrBodyTooLarge is returned when a response exceeds the fetcher's size cap.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPFetcher fetches pages and images with a plain HTTP client.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher constructs an HTTPFetcher bounded by timeout.
// A maxBytes of zero or less disables the body size cap.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// NewHTTPFetcherWithClient wraps an existing client, e.g. one with a custom transport.
func NewHTTPFetcherWithClient(client *http.Client, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// FetchPage downloads the HTML at target and returns it as UTF-8.
// The source encoding comes from a BOM, the Content-Type charset or a
// <meta charset> in the document, in that order of precedence.
func (f *HTTPFetcher) FetchPage(ctx context.Context, target string) ([]byte, error) {
	data, contentType, err := f.get(ctx, target)
	if err != nil {
		return nil, err
	}
	return toUTF8(data, contentType), nil
}

// FetchImage downloads the image at target.
func (f *HTTPFetcher) FetchImage(ctx context.Context, target string) ([]byte, error) {
	data, _, err := f.get(ctx, target)
	return data, err
}

// toUTF8 transcodes an HTML body. Bodies that cannot be decoded are returned
// unchanged so the parser still gets a chance at them.
func toUTF8(data []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return data
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return decoded
}

func (f *HTTPFetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, "", &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%s: %w (limit %d bytes)", target, ErrBodyTooLarge, f.maxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
