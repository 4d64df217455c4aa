package domain

import "errors"

var (
	// ErrNotFound is returned for missing records and for records owned by another user.
	ErrNotFound = errors.New("not found")

	ErrInvalidURL            = errors.New("invalid url")
	ErrDuplicateURL          = errors.New("you already saved a link with this url")
	ErrForeignCollection     = errors.New("links can only be added to your own collections")
	ErrInvalidCollectionName = errors.New("collection name must be 1-150 characters")
)
