// Package query holds the client-side bookmark working set and computes
// filtered views over it.
//
// Tag filtering is conjunctive: a record matches only if it carries every
// active tag.
package query

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nsmith5/marksync/internal/cache"
	"github.com/nsmith5/marksync/internal/domain"
)

// AllCategories is the category filter value that matches every record.
const AllCategories = "all"

// DefaultViewTTL bounds how long a computed view is reused for an identical
// filter state.
const DefaultViewTTL = 30 * time.Second

// Group is one category bucket of a grouped view.
type Group struct {
	Category  string
	Bookmarks []domain.BookmarkRecord
}

// Engine owns the full in-memory bookmark set plus the active filter state,
// and caches computed views per filter state.
type Engine struct {
	mu         sync.RWMutex
	bookmarks  []domain.BookmarkRecord
	category   string
	tags       []string // ordered set of active tags
	searchText string
	views      *cache.Cache[[]domain.BookmarkRecord]
}

// NewEngine creates an engine with no bookmarks and the default filter state.
func NewEngine() *Engine {
	return &Engine{
		category: AllCategories,
		views:    cache.New[[]domain.BookmarkRecord](DefaultViewTTL, 64),
	}
}

// SetBookmarks replaces the working set wholesale and invalidates every
// cached view.
func (e *Engine) SetBookmarks(records []domain.BookmarkRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bookmarks = records
	e.views.Clear()
}

// SetCategory sets the active category filter. Empty means AllCategories.
func (e *Engine) SetCategory(category string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if category == "" {
		category = AllCategories
	}
	e.category = category
}

// ToggleTag adds the tag to the active set, or removes it if already active.
func (e *Engine) ToggleTag(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.tags {
		if t == tag {
			e.tags = append(e.tags[:i], e.tags[i+1:]...)
			return
		}
	}
	e.tags = append(e.tags, tag)
}

// ClearTags empties the active tag set.
func (e *Engine) ClearTags() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tags = nil
}

// SetSearchText sets the free-text filter. Matching is a case-insensitive
// substring test against title, description, url, category and tags.
func (e *Engine) SetSearchText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchText = strings.TrimSpace(text)
}

// FilterState returns the active (category, tags, searchText).
func (e *Engine) FilterState() (string, []string, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tags := make([]string, len(e.tags))
	copy(tags, e.tags)
	return e.category, tags, e.searchText
}

// FilteredView computes the records matching the active filter state.
// Identical filter states within the view TTL return the cached slice.
func (e *Engine) FilteredView() []domain.BookmarkRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	key := e.viewKeyLocked()
	if view, ok := e.views.Get(key); ok {
		return view
	}

	view := make([]domain.BookmarkRecord, 0, len(e.bookmarks))
	for _, b := range e.bookmarks {
		if e.matchesLocked(&b) {
			view = append(view, b)
		}
	}
	e.views.Set(key, view)
	return view
}

// GroupedView returns the filtered records bucketed by category, sorted
// alphabetically with the uncategorized bucket last. Intended for the
// all-categories mode.
func (e *Engine) GroupedView() []Group {
	view := e.FilteredView()

	buckets := make(map[string][]domain.BookmarkRecord)
	for _, b := range view {
		buckets[b.Category] = append(buckets[b.Category], b)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		// Uncategorized sorts last.
		if names[i] == domain.DefaultCategory {
			return false
		}
		if names[j] == domain.DefaultCategory {
			return true
		}
		return names[i] < names[j]
	})

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{Category: name, Bookmarks: buckets[name]})
	}
	return groups
}

// Categories returns the distinct categories present in the working set,
// sorted alphabetically with the uncategorized bucket last.
func (e *Engine) Categories() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, b := range e.bookmarks {
		if !seen[b.Category] {
			seen[b.Category] = true
			names = append(names, b.Category)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == domain.DefaultCategory {
			return false
		}
		if names[j] == domain.DefaultCategory {
			return true
		}
		return names[i] < names[j]
	})
	return names
}

// matchesLocked applies the filter conjunction to one record.
func (e *Engine) matchesLocked(b *domain.BookmarkRecord) bool {
	if e.category != AllCategories && b.Category != e.category {
		return false
	}

	// Every active tag must be present (AND semantics).
	for _, tag := range e.tags {
		if !b.HasTag(tag) {
			return false
		}
	}

	if e.searchText == "" {
		return true
	}
	needle := strings.ToLower(e.searchText)
	for _, hay := range []string{b.Title, b.Description, b.URL, b.Category} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// viewKeyLocked derives the cache key from the active filter state.
// Tags are sorted so the key is order-independent.
func (e *Engine) viewKeyLocked() string {
	tags := make([]string, len(e.tags))
	copy(tags, e.tags)
	sort.Strings(tags)
	return e.category + "|" + strings.Join(tags, ",") + "|" + strings.ToLower(e.searchText)
}
