package scraper

import (
	"context"
	"fmt"

	"linkkeeper/internal/domain"
)

// PageFetcher retrieves the HTML of a page.
// Any status other than 200 must be reported as a *StatusError.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// ImageFetcher downloads preview image bytes.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Metadata is the enrichment produced for a link at creation time.
type Metadata struct {
	Title       string
	Description string
	Type        domain.ContentType
	// Preview is nil unless an og:image was found and downloaded.
	Preview []byte
}

// EmptyMetadata is the result used when nothing could be extracted.
func EmptyMetadata() Metadata {
	return Metadata{Type: domain.ContentTypeWebsite}
}

// StatusError reports a response with a status other than 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
