package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsmith5/marksync/internal/domain"
)

func testRecords() []domain.BookmarkRecord {
	return []domain.BookmarkRecord{
		{ID: "1", Title: "Go Blog", URL: "https://go.dev/blog", Description: "Official Go news", Category: "Work", Tags: []string{"go"}},
		{ID: "2", Title: "HN", URL: "https://news.ycombinator.com", Description: "Tech news", Category: "Reading", Tags: []string{"go", "news"}},
		{ID: "3", Title: "Weather", URL: "https://weather.example", Description: "", Category: domain.DefaultCategory, Tags: []string{"news"}},
		{ID: "4", Title: "Design Doc", URL: "https://docs.example/design", Description: "Internal notes", Category: "Work", Tags: nil},
	}
}

func newEngineWith(records []domain.BookmarkRecord) *Engine {
	e := NewEngine()
	e.SetBookmarks(records)
	return e
}

func ids(records []domain.BookmarkRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestDefaultStateReturnsEverything(t *testing.T) {
	e := newEngineWith(testRecords())
	assert.Len(t, e.FilteredView(), 4)
}

func TestCategoryFilter(t *testing.T) {
	e := newEngineWith(testRecords())

	e.SetCategory("Work")
	assert.Equal(t, []string{"1", "4"}, ids(e.FilteredView()))

	// Back to "all" restores the full set.
	e.SetCategory(AllCategories)
	assert.Len(t, e.FilteredView(), 4)
}

func TestEmptyCategoryMeansAll(t *testing.T) {
	e := newEngineWith(testRecords())
	e.SetCategory("")
	assert.Len(t, e.FilteredView(), 4)
}

// Tag matching is conjunctive: with tags {go, news} active only records
// carrying both survive.
func TestTagFilterANDSemantics(t *testing.T) {
	e := newEngineWith(testRecords())

	e.ToggleTag("go")
	e.ToggleTag("news")

	assert.Equal(t, []string{"2"}, ids(e.FilteredView()))
}

func TestToggleTagTwiceRemovesIt(t *testing.T) {
	e := newEngineWith(testRecords())

	e.ToggleTag("go")
	assert.Equal(t, []string{"1", "2"}, ids(e.FilteredView()))

	e.ToggleTag("go")
	assert.Len(t, e.FilteredView(), 4)
}

func TestClearTags(t *testing.T) {
	e := newEngineWith(testRecords())
	e.ToggleTag("go")
	e.ToggleTag("news")

	e.ClearTags()
	assert.Len(t, e.FilteredView(), 4)
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	e := newEngineWith(testRecords())

	tests := []struct {
		search string
		want   []string
	}{
		{"go blog", []string{"1"}},          // title, case-insensitive
		{"ycombinator", []string{"2"}},      // url
		{"internal", []string{"4"}},         // description
		{"reading", []string{"2"}},          // category
		{"news", []string{"1", "2", "3"}},   // description + tag matches
		{"nonexistent", []string{}},
	}

	for _, tt := range tests {
		e.SetSearchText(tt.search)
		assert.Equal(t, tt.want, ids(e.FilteredView()), "search %q", tt.search)
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	e := newEngineWith(testRecords())

	e.SetCategory("Work")
	e.ToggleTag("go")
	e.SetSearchText("blog")

	assert.Equal(t, []string{"1"}, ids(e.FilteredView()))

	// A matching search with a non-matching category yields nothing.
	e.SetCategory("Reading")
	assert.Empty(t, e.FilteredView())
}

func TestGroupedViewSortsUncategorizedLast(t *testing.T) {
	e := newEngineWith(testRecords())

	groups := e.GroupedView()
	require.Len(t, groups, 3)

	assert.Equal(t, "Reading", groups[0].Category)
	assert.Equal(t, "Work", groups[1].Category)
	assert.Equal(t, domain.DefaultCategory, groups[2].Category)
	assert.Len(t, groups[1].Bookmarks, 2)
}

func TestCategories(t *testing.T) {
	e := newEngineWith(testRecords())
	assert.Equal(t, []string{"Reading", "Work", domain.DefaultCategory}, e.Categories())
}

func TestViewCacheReturnsSameSlice(t *testing.T) {
	e := newEngineWith(testRecords())
	e.SetCategory("Work")

	first := e.FilteredView()
	second := e.FilteredView()

	// Identical filter state within the TTL returns the cached slice.
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])
}

func TestViewCacheKeyIgnoresTagOrder(t *testing.T) {
	e := newEngineWith(testRecords())

	e.ToggleTag("go")
	e.ToggleTag("news")
	first := e.FilteredView()

	e.ClearTags()
	e.ToggleTag("news")
	e.ToggleTag("go")
	second := e.FilteredView()

	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])
}

func TestSetBookmarksInvalidatesViewCache(t *testing.T) {
	e := newEngineWith(testRecords())

	before := e.FilteredView()
	assert.Len(t, before, 4)

	e.SetBookmarks(testRecords()[:2])
	after := e.FilteredView()

	assert.Len(t, after, 2)
}
