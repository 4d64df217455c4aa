package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linkkeeper/internal/domain"
	"linkkeeper/internal/observability"
	"linkkeeper/internal/scraper"
	"linkkeeper/internal/storage"
)

// MetadataBuilder produces link metadata for a URL. It must not fail;
// the bool reports whether anything was extracted.
type MetadataBuilder interface {
	Build(ctx context.Context, url string) (scraper.Metadata, bool)
}

// Service manages links and collections on behalf of their owners.
type Service struct {
	repo    storage.Repository
	meta    MetadataBuilder
	log     logrus.FieldLogger
	metrics *observability.Metrics

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. metrics may be nil.
func NewService(repo storage.Repository, meta MetadataBuilder, logger logrus.FieldLogger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:    repo,
		meta:    meta,
		log:     logger.WithField("component", "links"),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// CreateLink validates the URL, enriches it with page metadata and persists
// the new link. Metadata is only ever extracted here, never on update.
func (s *Service) CreateLink(ctx context.Context, userID int64, rawURL string, collectionIDs []string) (domain.Link, error) {
	linkURL, err := normalizeURL(rawURL)
	if err != nil {
		return domain.Link{}, err
	}

	if _, err := s.repo.FindLinkByURL(ctx, userID, linkURL); err == nil {
		return domain.Link{}, domain.ErrDuplicateURL
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Link{}, fmt.Errorf("check url: %w", err)
	}

	collections, err := s.ownedCollections(ctx, userID, collectionIDs)
	if err != nil {
		return domain.Link{}, err
	}

	md, enriched := s.meta.Build(ctx, linkURL)

	now := s.now()
	link := domain.Link{
		ID:          s.newID(),
		UserID:      userID,
		URL:         linkURL,
		Title:       md.Title,
		Description: md.Description,
		Type:        md.Type,
		HasPreview:  len(md.Preview) > 0,
		Collections: collections,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.SaveLink(ctx, link, md.Preview); err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			return domain.Link{}, err
		}
		return domain.Link{}, fmt.Errorf("save link: %w", err)
	}

	if s.metrics != nil {
		s.metrics.LinksCreated.WithLabelValues(strconv.FormatBool(enriched)).Inc()
	}
	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"link_id":  link.ID,
		"url":      link.URL,
		"type":     link.Type.String(),
		"enriched": enriched,
	}).Info("Link created")
	return link, nil
}

// GetLink returns a link owned by userID.
func (s *Service) GetLink(ctx context.Context, userID int64, linkID string) (domain.Link, error) {
	return s.repo.GetLink(ctx, userID, linkID)
}

// Preview returns the preview image of a link owned by userID.
func (s *Service) Preview(ctx context.Context, userID int64, linkID string) ([]byte, error) {
	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	if !link.HasPreview {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetPreview(ctx, link.ID)
}

// ListLinks returns one page of the user's links, newest first.
func (s *Service) ListLinks(ctx context.Context, userID int64, page, size int) (Page[domain.Link], error) {
	links, err := s.repo.GetLinksByUser(ctx, userID)
	if err != nil {
		return Page[domain.Link]{}, err
	}
	return Paginate(links, page, size), nil
}

// LinkUpdate lists the fields to change; nil fields are left untouched.
type LinkUpdate struct {
	URL         *string
	Title       *string
	Description *string
	Type        *domain.ContentType
	Collections *[]string
}

// UpdateLink applies an update. Page metadata is not fetched again, even if the URL changes.
func (s *Service) UpdateLink(ctx context.Context, userID int64, linkID string, upd LinkUpdate) (domain.Link, error) {
	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return domain.Link{}, err
	}

	if upd.URL != nil {
		linkURL, err := normalizeURL(*upd.URL)
		if err != nil {
			return domain.Link{}, err
		}
		link.URL = linkURL
	}
	if upd.Title != nil {
		link.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		link.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Type != nil {
		if !upd.Type.Valid() {
			return domain.Link{}, fmt.Errorf("invalid content type %d", *upd.Type)
		}
		link.Type = *upd.Type
	}
	if upd.Collections != nil {
		collections, err := s.ownedCollections(ctx, userID, *upd.Collections)
		if err != nil {
			return domain.Link{}, err
		}
		link.Collections = collections
	}
	link.UpdatedAt = s.now()

	if err := s.repo.SaveLink(ctx, link, nil); err != nil {
		return domain.Link{}, err
	}
	return link, nil
}

// DeleteLink removes a link owned by userID.
func (s *Service) DeleteLink(ctx context.Context, userID int64, linkID string) error {
	return s.repo.DeleteLink(ctx, userID, linkID)
}

// CreateCollection adds a new empty collection.
func (s *Service) CreateCollection(ctx context.Context, userID int64, name, description string) (domain.Collection, error) {
	name, err := domain.NormalizeCollectionName(name)
	if err != nil {
		return domain.Collection{}, err
	}

	now := s.now()
	collection := domain.Collection{
		ID:          s.newID(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.SaveCollection(ctx, collection); err != nil {
		return domain.Collection{}, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "collection_id": collection.ID}).Info("Collection created")
	return collection, nil
}

// GetCollection returns a collection owned by userID.
func (s *Service) GetCollection(ctx context.Context, userID int64, collectionID string) (domain.Collection, error) {
	return s.repo.GetCollection(ctx, userID, collectionID)
}

// ListCollections returns one page of the user's collections, newest first.
func (s *Service) ListCollections(ctx context.Context, userID int64, page, size int) (Page[domain.Collection], error) {
	collections, err := s.repo.GetCollectionsByUser(ctx, userID)
	if err != nil {
		return Page[domain.Collection]{}, err
	}
	return Paginate(collections, page, size), nil
}

// RenameCollection changes a collection's name.
func (s *Service) RenameCollection(ctx context.Context, userID int64, collectionID, name string) (domain.Collection, error) {
	name, err := domain.NormalizeCollectionName(name)
	if err != nil {
		return domain.Collection{}, err
	}
	collection, err := s.repo.GetCollection(ctx, userID, collectionID)
	if err != nil {
		return domain.Collection{}, err
	}
	collection.Name = name
	collection.UpdatedAt = s.now()
	if err := s.repo.SaveCollection(ctx, collection); err != nil {
		return domain.Collection{}, err
	}
	return collection, nil
}

// DeleteCollection removes a collection; its links stay but are detached.
func (s *Service) DeleteCollection(ctx context.Context, userID int64, collectionID string) error {
	return s.repo.DeleteCollection(ctx, userID, collectionID)
}

// AddToCollection attaches a link to a collection. Both must belong to userID.
func (s *Service) AddToCollection(ctx context.Context, userID int64, collectionID, linkID string) (domain.Link, error) {
	if _, err := s.repo.GetCollection(ctx, userID, collectionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Link{}, domain.ErrForeignCollection
		}
		return domain.Link{}, err
	}

	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link.InCollection(collectionID) {
		return link, nil
	}

	link.Collections = append(link.Collections, collectionID)
	link.UpdatedAt = s.now()
	if err := s.repo.SaveLink(ctx, link, nil); err != nil {
		return domain.Link{}, err
	}
	return link, nil
}

// LinksInCollection returns one page of the links attached to a collection.
func (s *Service) LinksInCollection(ctx context.Context, userID int64, collectionID string, page, size int) (Page[domain.Link], error) {
	if _, err := s.repo.GetCollection(ctx, userID, collectionID); err != nil {
		return Page[domain.Link]{}, err
	}

	links, err := s.repo.GetLinksByUser(ctx, userID)
	if err != nil {
		return Page[domain.Link]{}, err
	}
	var matched []domain.Link
	for _, link := range links {
		if link.InCollection(collectionID) {
			matched = append(matched, link)
		}
	}
	return Paginate(matched, page, size), nil
}

// ownedCollections checks that every ID names one of the user's collections
// and returns the IDs without duplicates.
func (s *Service) ownedCollections(ctx context.Context, userID int64, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, err := s.repo.GetCollection(ctx, userID, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrForeignCollection
			}
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// normalizeURL trims the input and requires an absolute http(s) URL.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
	}
	return raw, nil
}
