package domain

import "fmt"

// ContentType classifies what a saved link points at.
// The zero value is ContentTypeWebsite.
type ContentType uint8

const (
	ContentTypeWebsite ContentType = iota
	ContentTypeBook
	ContentTypeArticle
	ContentTypeMusic
	ContentTypeVideo
)

var contentTypeNames = [...]string{
	ContentTypeWebsite: "website",
	ContentTypeBook:    "book",
	ContentTypeArticle: "article",
	ContentTypeMusic:   "music",
	ContentTypeVideo:   "video",
}

// ContentTypes lists every valid ContentType in declaration order.
func ContentTypes() []ContentType {
	return []ContentType{
		ContentTypeWebsite,
		ContentTypeBook,
		ContentTypeArticle,
		ContentTypeMusic,
		ContentTypeVideo,
	}
}

func (t ContentType) String() string {
	if int(t) < len(contentTypeNames) {
		return contentTypeNames[t]
	}
	return fmt.Sprintf("ContentType(%d)", uint8(t))
}

// Valid reports whether t is one of the declared content types.
func (t ContentType) Valid() bool {
	return int(t) < len(contentTypeNames)
}

// ParseContentType returns the ContentType with the exact given name.
func ParseContentType(name string) (ContentType, bool) {
	for i, n := range contentTypeNames {
		if n == name {
			return ContentType(i), true
		}
	}
	return ContentTypeWebsite, false
}

// MarshalText encodes the type as its lowercase name.
func (t ContentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid content type %d", uint8(t))
	}
	return []byte(contentTypeNames[t]), nil
}

// UnmarshalText decodes a lowercase type name.
func (t *ContentType) UnmarshalText(text []byte) error {
	parsed, ok := ParseContentType(string(text))
	if !ok {
		return fmt.Errorf("unknown content type %q", text)
	}
	*t = parsed
	return nil
}
