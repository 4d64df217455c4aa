package scraper

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"linkkeeper/internal/observability"
)

// Pipeline fetches a page, extracts its metadata and downloads the preview image.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	pages   PageFetcher
	images  ImageFetcher
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewPipeline wires the fetchers together. metrics may be nil.
func NewPipeline(pages PageFetcher, images ImageFetcher, logger logrus.FieldLogger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		pages:   pages,
		images:  images,
		log:     logger.WithField("component", "scraper"),
		metrics: metrics,
	}
}

// Build extracts link metadata for pageURL. It never fails: when the page
// cannot be fetched or parsed it returns EmptyMetadata and false. A failed
// preview download only leaves Metadata.Preview nil.
func (p *Pipeline) Build(ctx context.Context, pageURL string) (md Metadata, ok bool) {
	log := p.log.WithField("url", pageURL)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Metadata extraction panicked")
			p.countPageFailure("panic")
			md, ok = EmptyMetadata(), false
		}
	}()

	start := time.Now()
	body, err := p.pages.FetchPage(ctx, pageURL)
	if p.metrics != nil {
		p.metrics.PageFetchLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		entry, reason := describeFailure(log, err)
		entry.Error("Failed to fetch page data")
		p.countPageFailure(reason)
		return EmptyMetadata(), false
	}

	fields, err := Extract(body)
	if err != nil {
		log.WithError(err).Error("Failed to parse page data")
		p.countPageFailure("parse")
		return EmptyMetadata(), false
	}

	md = Metadata{
		Title:       fields.Title,
		Description: fields.Description,
		Type:        Classify(fields.Type),
	}
	if fields.ImageURL != "" {
		md.Preview = p.fetchPreview(ctx, log, pageURL, fields.ImageURL)
	}

	if p.metrics != nil {
		p.metrics.Extractions.WithLabelValues(md.Type.String()).Inc()
	}
	return md, true
}

func (p *Pipeline) fetchPreview(ctx context.Context, log logrus.FieldLogger, pageURL, imageURL string) []byte {
	target := resolveReference(pageURL, imageURL)
	log = log.WithField("image_url", target)

	data, err := p.images.FetchImage(ctx, target)
	if err != nil {
		entry, reason := describeFailure(log, err)
		entry.Error("Failed to fetch preview image")
		if p.metrics != nil {
			p.metrics.ImageFetchFailures.WithLabelValues(reason).Inc()
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func (p *Pipeline) countPageFailure(reason string) {
	if p.metrics != nil {
		p.metrics.PageFetchFailures.WithLabelValues(reason).Inc()
	}
}

// describeFailure annotates log with the failure and returns a metrics reason.
func describeFailure(log logrus.FieldLogger, err error) (logrus.FieldLogger, string) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return log.WithField("status_code", statusErr.StatusCode), "status"
	}

	log = log.WithError(err)
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return log, "timeout"
	case errors.Is(err, ErrBodyTooLarge):
		return log, "too_large"
	default:
		return log, "transport"
	}
}

// resolveReference makes a relative og:image absolute against the page URL.
func resolveReference(pageURL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil || refURL.IsAbs() {
		return ref
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
