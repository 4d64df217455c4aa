package storage

import (
	"context"

	"linkkeeper/internal/domain"
)

// Repository defines the interface for data storage operations.
// Lookups scoped to a user return domain.ErrNotFound for records owned by
// someone else, so callers never learn about foreign records.
type Repository interface {
	// SaveLink creates or replaces a link. The URL must stay unique per user;
	// a clash with another link returns domain.ErrDuplicateURL. A non-nil
	// preview replaces the stored preview image.
	SaveLink(ctx context.Context, link domain.Link, preview []byte) error

	GetLink(ctx context.Context, userID int64, linkID string) (domain.Link, error)

	// FindLinkByURL looks a link up by its exact URL.
	FindLinkByURL(ctx context.Context, userID int64, linkURL string) (domain.Link, error)

	// GetLinksByUser retrieves all links saved by a user, newest first.
	GetLinksByUser(ctx context.Context, userID int64) ([]domain.Link, error)

	// DeleteLink removes a link together with its URL index and preview.
	DeleteLink(ctx context.Context, userID int64, linkID string) error

	GetPreview(ctx context.Context, linkID string) ([]byte, error)

	SaveCollection(ctx context.Context, collection domain.Collection) error
	GetCollection(ctx context.Context, userID int64, collectionID string) (domain.Collection, error)

	// GetCollectionsByUser retrieves all collections of a user, newest first.
	GetCollectionsByUser(ctx context.Context, userID int64) ([]domain.Collection, error)

	// DeleteCollection removes a collection and detaches it from the user's links.
	DeleteCollection(ctx context.Context, userID int64, collectionID string) error

	// Close gracefully shuts down the repository connection.
	Close() error
}
