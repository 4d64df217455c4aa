package links

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkkeeper/internal/domain"
	"linkkeeper/internal/observability"
	"linkkeeper/internal/scraper"
	"linkkeeper/internal/storage"
)

type stubBuilder struct {
	mu    sync.Mutex
	calls []string
	md    scraper.Metadata
	ok    bool
}

func (b *stubBuilder) Build(_ context.Context, url string) (scraper.Metadata, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, url)
	if !b.ok {
		return scraper.EmptyMetadata(), false
	}
	return b.md, true
}

func newTestService(t *testing.T, builder *stubBuilder) (*Service, *observability.Metrics) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	repo, err := storage.NewBadgerRepository(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewService(repo, builder, logger, metrics)

	var n int
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, metrics
}

func TestService_CreateLinkEnriched(t *testing.T) {
	builder := &stubBuilder{ok: true, md: scraper.Metadata{
		Title:       "Example",
		Description: "An example page",
		Type:        domain.ContentTypeArticle,
		Preview:     []byte("jpeg"),
	}}
	svc, metrics := newTestService(t, builder)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, 7, "  https://example.com/post  ", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/post", link.URL)
	assert.Equal(t, "Example", link.Title)
	assert.Equal(t, "An example page", link.Description)
	assert.Equal(t, domain.ContentTypeArticle, link.Type)
	assert.True(t, link.HasPreview)
	assert.Equal(t, []string{"https://example.com/post"}, builder.calls)

	preview, err := svc.Preview(ctx, 7, link.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), preview)

	_, err = svc.Preview(ctx, 8, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LinksCreated.WithLabelValues("true")))
}

func TestService_CreateLinkWithoutMetadata(t *testing.T) {
	svc, metrics := newTestService(t, &stubBuilder{ok: false})

	link, err := svc.CreateLink(context.Background(), 7, "https://unreachable.invalid", nil)
	require.NoError(t, err, "extraction failure must not block creation")

	assert.Empty(t, link.Title)
	assert.Empty(t, link.Description)
	assert.Equal(t, domain.ContentTypeWebsite, link.Type)
	assert.False(t, link.HasPreview)

	_, err = svc.Preview(context.Background(), 7, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LinksCreated.WithLabelValues("false")))
}

func TestService_CreateLinkValidation(t *testing.T) {
	builder := &stubBuilder{ok: true}
	svc, _ := newTestService(t, builder)
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "example.com", "ftp://example.com", "https://", "::"} {
		_, err := svc.CreateLink(ctx, 1, raw, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, raw)
	}

	_, err := svc.CreateLink(ctx, 1, "https://example.com", nil)
	require.NoError(t, err)

	_, err = svc.CreateLink(ctx, 1, "https://example.com", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateURL)

	_, err = svc.CreateLink(ctx, 2, "https://example.com", nil)
	assert.NoError(t, err, "another user may save the same url")

	_, err = svc.CreateLink(ctx, 1, "https://example.com/other", []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrForeignCollection)

	assert.Len(t, builder.calls, 2, "rejected links are never fetched")
}

func TestService_ConcurrentCreateSameURL(t *testing.T) {
	svc, metrics := newTestService(t, &stubBuilder{ok: true, md: scraper.Metadata{Title: "Example"}})
	var n atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	ctx := context.Background()

	const requests = 8
	var wg sync.WaitGroup
	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateLink(ctx, 7, "https://example.com/post", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateURL)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LinksCreated.WithLabelValues("true")))
}

func TestService_UpdateDoesNotReExtract(t *testing.T) {
	builder := &stubBuilder{ok: true, md: scraper.Metadata{Title: "Original", Type: domain.ContentTypeMusic}}
	svc, _ := newTestService(t, builder)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, 1, "https://example.com/a", nil)
	require.NoError(t, err)

	newURL := "https://example.com/b"
	title := " Renamed "
	kind := domain.ContentTypeBook
	updated, err := svc.UpdateLink(ctx, 1, link.ID, LinkUpdate{URL: &newURL, Title: &title, Type: &kind})
	require.NoError(t, err)

	assert.Equal(t, newURL, updated.URL)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, domain.ContentTypeBook, updated.Type)
	assert.Len(t, builder.calls, 1)

	_, err = svc.UpdateLink(ctx, 2, link.ID, LinkUpdate{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bad := "not a url"
	_, err = svc.UpdateLink(ctx, 1, link.ID, LinkUpdate{URL: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestService_Collections(t *testing.T) {
	svc, _ := newTestService(t, &stubBuilder{ok: true})
	ctx := context.Background()

	_, err := svc.CreateCollection(ctx, 1, "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCollectionName)

	reading, err := svc.CreateCollection(ctx, 1, " Reading ", "things to read")
	require.NoError(t, err)
	assert.Equal(t, "Reading", reading.Name)

	foreign, err := svc.CreateCollection(ctx, 2, "Theirs", "")
	require.NoError(t, err)

	link, err := svc.CreateLink(ctx, 1, "https://example.com", []string{reading.ID, reading.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{reading.ID}, link.Collections)

	_, err = svc.AddToCollection(ctx, 1, foreign.ID, link.ID)
	assert.ErrorIs(t, err, domain.ErrForeignCollection)

	other, err := svc.CreateLink(ctx, 1, "https://example.org", nil)
	require.NoError(t, err)
	other, err = svc.AddToCollection(ctx, 1, reading.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{reading.ID}, other.Collections)

	page, err := svc.LinksInCollection(ctx, 1, reading.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	renamed, err := svc.RenameCollection(ctx, 1, reading.ID, "Later")
	require.NoError(t, err)
	assert.Equal(t, "Later", renamed.Name)

	require.NoError(t, svc.DeleteCollection(ctx, 1, reading.ID))
	stored, err := svc.GetLink(ctx, 1, link.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Collections)

	list, err := svc.ListCollections(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
}

func TestService_ListAndDelete(t *testing.T) {
	svc, _ := newTestService(t, &stubBuilder{ok: true})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateLink(ctx, 1, fmt.Sprintf("https://example.com/%d", i), nil)
		require.NoError(t, err)
	}

	page, err := svc.ListLinks(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Pages())
	assert.True(t, page.HasNext())

	require.NoError(t, svc.DeleteLink(ctx, 1, page.Items[0].ID))
	assert.ErrorIs(t, svc.DeleteLink(ctx, 1, page.Items[0].ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteLink(ctx, 2, page.Items[1].ID), domain.ErrNotFound)

	all, err := svc.ListLinks(ctx, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
}
