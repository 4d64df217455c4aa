package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCollectionNameLength bounds Collection.Name in characters.
const MaxCollectionNameLength = 150

// Collection is a named, user-owned grouping of links.
type Collection struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeCollectionName trims the name and checks its length.
func NormalizeCollectionName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxCollectionNameLength {
		return "", ErrInvalidCollectionName
	}
	return name, nil
}
