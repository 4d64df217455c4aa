package domain

import "time"

// Link represents a saved bookmark and the metadata scraped for it.
type Link struct {
	// ID is the unique identifier assigned when the link is created.
	ID string `json:"id"`

	// UserID is the Telegram User ID of the user who owns the link.
	UserID int64 `json:"user_id"`

	// URL is the bookmarked address. Unique per user.
	URL string `json:"url"`

	// Title scraped from the website's <title> tag.
	Title string `json:"title"`

	// Description scraped from the website's meta description tag.
	Description string `json:"description"`

	// Type is derived from the og:type meta tag at creation.
	Type ContentType `json:"type"`

	// HasPreview is set when a preview image was downloaded and stored.
	HasPreview bool `json:"has_preview"`

	// Collections holds the IDs of the collections the link belongs to.
	Collections []string `json:"collections,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InCollection reports whether the link is attached to the collection.
func (l Link) InCollection(collectionID string) bool {
	for _, id := range l.Collections {
		if id == collectionID {
			return true
		}
	}
	return false
}
