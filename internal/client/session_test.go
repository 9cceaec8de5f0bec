package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsmith5/marksync/internal/domain"
)

func pageRecords(page, size int) []domain.BookmarkRecord {
	out := make([]domain.BookmarkRecord, size)
	for i := range out {
		n := (page-1)*size + i
		out[i] = domain.BookmarkRecord{
			ID:    "rec-" + strconv.Itoa(n),
			Title: "Bookmark " + strconv.Itoa(n),
			URL:   "https://example.com/" + strconv.Itoa(n),
		}
	}
	return out
}

// fakeBookmarkServer serves a fixed number of records in envelope form and
// counts requests per page.
func fakeBookmarkServer(t *testing.T, total int, hits map[int]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 || size < 1 {
			t.Errorf("bad pagination params: page=%q limit=%q", r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
		}
		hits[page]++

		start := (page - 1) * size
		end := start + size
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
		totalPages := (total + size - 1) / size

		json.NewEncoder(w).Encode(apiEnvelope{
			Success:     true,
			Data:        pageRecords(page, size)[:end-start],
			TotalCount:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			HasMore:     page < totalPages,
		})
	}))
}

func newTestSession(baseURL string, pageSize int) *Session {
	tr := NewTransport(nil, TransportOptions{MaxRetries: 0}, testLog())
	return NewSession(baseURL, tr, NewResponseCache(time.Minute, 10), pageSize, testLog())
}

func TestFetchPageCachesResponses(t *testing.T) {
	hits := map[int]int{}
	srv := fakeBookmarkServer(t, 5, hits)
	defer srv.Close()

	s := newTestSession(srv.URL, 5)

	first, err := s.FetchPage(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Len(t, first.Data, 5)

	second, err := s.FetchPage(context.Background(), 1, false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Data, second.Data)

	assert.Equal(t, 1, hits[1], "second fetch must come from the cache")
}

func TestFetchPageForceBypassesCache(t *testing.T) {
	hits := map[int]int{}
	srv := fakeBookmarkServer(t, 5, hits)
	defer srv.Close()

	s := newTestSession(srv.URL, 5)

	_, err := s.FetchPage(context.Background(), 1, false)
	require.NoError(t, err)

	result, err := s.FetchPage(context.Background(), 1, true)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, hits[1])
}

func TestRefreshWalksAllPages(t *testing.T) {
	hits := map[int]int{}
	srv := fakeBookmarkServer(t, 12, hits)
	defer srv.Close()

	s := newTestSession(srv.URL, 5)

	require.NoError(t, s.Refresh(context.Background(), false))

	assert.Equal(t, 1, hits[1])
	assert.Equal(t, 1, hits[2])
	assert.Equal(t, 1, hits[3])
	assert.Zero(t, hits[4])

	view := s.Engine().FilteredView()
	assert.Len(t, view, 12)
	assert.Equal(t, "rec-0", view[0].ID)
	assert.Equal(t, "rec-11", view[11].ID)
}

func TestRefreshForcesOnlyFirstPage(t *testing.T) {
	forced := map[int]bool{}
	hits := map[int]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		hits[page]++
		if r.URL.Query().Get("force_refresh") == "true" {
			forced[page] = true
		}

		total := 6
		start := (page - 1) * size
		end := start + size
		if end > total {
			end = total
		}
		totalPages := (total + size - 1) / size
		json.NewEncoder(w).Encode(apiEnvelope{
			Success:     true,
			Data:        pageRecords(page, end-start),
			TotalCount:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			HasMore:     page < totalPages,
		})
	}))
	defer srv.Close()

	s := newTestSession(srv.URL, 2)

	// Warm the response cache so the forced refresh has something to bypass.
	require.NoError(t, s.Refresh(context.Background(), false))
	require.NoError(t, s.Refresh(context.Background(), true))

	assert.True(t, forced[1], "first page must carry force_refresh")
	assert.False(t, forced[2], "page 2 must not re-trigger an upstream sync")
	assert.False(t, forced[3], "page 3 must not re-trigger an upstream sync")

	// The forced refresh bypassed the response cache for every page.
	for page := 1; page <= 3; page++ {
		assert.Equal(t, 2, hits[page], "page %d fetches", page)
	}

	assert.Len(t, s.Engine().FilteredView(), 6)
}

func TestFetchPageSurfacesEnvelopeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiEnvelope{
			Success: false,
			Error:   string(domain.KindSyncInProgress),
			Message: "A sync is already running, please retry shortly.",
		})
	}))
	defer srv.Close()

	s := newTestSession(srv.URL, 5)

	_, err := s.FetchPage(context.Background(), 1, false)
	require.Error(t, err)
	assert.Equal(t, domain.KindSyncInProgress, domain.KindOf(err))
	assert.True(t, domain.IsRetryable(err))
}

func TestRefreshStopsOnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(apiEnvelope{
			Success:     true,
			Data:        pageRecords(1, 5),
			TotalCount:  10,
			TotalPages:  2,
			CurrentPage: 1,
			HasMore:     true,
		})
	}))
	defer srv.Close()

	s := newTestSession(srv.URL, 5)
	s.Engine().SetBookmarks(pageRecords(1, 3))

	err := s.Refresh(context.Background(), false)
	require.Error(t, err)

	// The working set is untouched when a refresh fails mid-walk.
	assert.Len(t, s.Engine().FilteredView(), 3)
}

func TestClearCacheForcesNetworkFetch(t *testing.T) {
	hits := map[int]int{}
	srv := fakeBookmarkServer(t, 5, hits)
	defer srv.Close()

	s := newTestSession(srv.URL, 5)

	_, err := s.FetchPage(context.Background(), 1, false)
	require.NoError(t, err)

	s.ClearCache()

	result, err := s.FetchPage(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, hits[1])
}
