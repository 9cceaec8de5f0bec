package domain

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultTitle is used when the upstream record carries no title.
	DefaultTitle = "Untitled"

	// DefaultURL is a sentinel non-navigable value for records without a URL.
	DefaultURL = "#"

	// DefaultCategory is the bucket for records without a category.
	DefaultCategory = "Uncategorized"
)

// BookmarkRecord is the canonical, read-only mirror of one upstream record.
//
// Records are created by the upstream fetcher during a sync pass and are never
// mutated afterwards. A successful sync replaces the entire working set; there
// are no partial or merge updates.
type BookmarkRecord struct {
	// ─────────────────────────────
	// Identity (immutable, upstream-assigned)
	// ─────────────────────────────

	// ID is the opaque unique identifier assigned by the upstream store.
	ID string `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title falls back to DefaultTitle when absent upstream.
	Title string `json:"title"`

	// URL falls back to DefaultURL when absent upstream.
	URL string `json:"url"`

	// Description may be empty.
	Description string `json:"description"`

	// Category falls back to DefaultCategory when absent upstream.
	Category string `json:"category"`

	// Tags preserves upstream order for display. Order is irrelevant for
	// matching and duplicates carry no meaning.
	Tags []string `json:"tags"`

	// FaviconURL is derived deterministically from the URL's host.
	// Empty when the URL has no parsable host.
	FaviconURL string `json:"faviconUrl"`

	// ─────────────────────────────
	// Metadata (immutable, upstream-assigned)
	// ─────────────────────────────

	CreatedTime    time.Time `json:"createdTime"`
	LastEditedTime time.Time `json:"lastEditedTime"`
}

// HasTag reports whether the record carries the given tag.
func (b *BookmarkRecord) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FaviconFor derives a favicon URL from a bookmark URL's host.
// Returns "" when the URL has no parsable host (including the DefaultURL sentinel).
func FaviconFor(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=32", host)
}
