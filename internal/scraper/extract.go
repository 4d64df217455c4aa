package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageFields holds the raw values pulled out of a page's HTML.
type PageFields struct {
	Title       string
	Description string
	ImageURL    string
	Type        string
}

// Extract parses HTML and reads the title, meta description, og:image and og:type.
// Missing tags or attributes yield empty strings.
func Extract(html []byte) (PageFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return PageFields{}, fmt.Errorf("parse document: %w", err)
	}

	return PageFields{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, `meta[name="description"]`),
		ImageURL:    metaContent(doc, `meta[property="og:image"]`),
		Type:        metaContent(doc, `meta[property="og:type"]`),
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}
