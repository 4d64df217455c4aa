package scraper

import (
	"strings"

	"linkkeeper/internal/domain"
)

// Classify maps a raw og:type value to a ContentType.
//
// Any value containing "video" (case-sensitive) is a video, so "video.movie"
// and "movie-video-extra" both classify as video. Otherwise an exact type
// name is kept and everything else, including "", becomes website.
func Classify(raw string) domain.ContentType {
	if strings.Contains(raw, "video") {
		return domain.ContentTypeVideo
	}
	if t, ok := domain.ParseContentType(raw); ok {
		return t
	}
	return domain.ContentTypeWebsite
}
