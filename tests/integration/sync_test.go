package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nsmith5/marksync/internal/client"
	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/httpserver/routes"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/syncer"
	"github.com/nsmith5/marksync/internal/upstream"
)

// upstreamPage builds one page of the record store's query response using a
// mix of English and localized property names.
func upstreamPage(hasMore bool, nextCursor string) map[string]any {
	return map[string]any{
		"results": []map[string]any{
			{
				"id":               "rec-1",
				"created_time":     "2025-01-10T09:00:00Z",
				"last_edited_time": "2025-02-01T10:00:00Z",
				"properties": map[string]any{
					"Name": map[string]any{
						"type":  "title",
						"title": []map[string]any{{"plain_text": "Team Wiki"}},
					},
					"URL": map[string]any{
						"type": "url",
						"url":  "https://wiki.example.com",
					},
					"Category": map[string]any{
						"type":   "select",
						"select": map[string]any{"name": "Work"},
					},
					"Tags": map[string]any{
						"type": "multi_select",
						"multi_select": []map[string]any{
							{"name": "docs"}, {"name": "internal"},
						},
					},
				},
			},
			{
				"id":               "rec-2",
				"created_time":     "2025-01-12T09:00:00Z",
				"last_edited_time": "2025-02-02T10:00:00Z",
				"properties": map[string]any{
					"标题": map[string]any{
						"type":  "title",
						"title": []map[string]any{{"plain_text": "新闻聚合"}},
					},
					"网址": map[string]any{
						"type": "url",
						"url":  "https://news.example.com",
					},
					"分类": map[string]any{
						"type":   "select",
						"select": map[string]any{"name": "Reading"},
					},
				},
			},
		},
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	}
}

func startFakeUpstream(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			StartCursor string `json:"start_cursor"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.StartCursor == "" {
			_ = json.NewEncoder(w).Encode(upstreamPage(true, "cursor-2"))
			return
		}
		_ = json.NewEncoder(w).Encode(upstreamPage(false, ""))
	}))
	return srv, &requests
}

func startAPI(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	log := logger.New("error", false)

	fetcher := upstream.NewFetcher(upstream.Config{
		BaseURL:   upstreamURL,
		Token:     "secret-token",
		StoreID:   "store-1",
		PageDelay: time.Millisecond,
	}, upstream.DefaultAliases(), nil, log)

	coordinator := syncer.New(fetcher, nil, syncer.Config{}, log)

	d := deps.Deps{
		Logger:      log,
		StartTime:   time.Now(),
		Coordinator: coordinator,
		SiteTitle:   "Integration",
	}

	r := chi.NewRouter()
	routes.RegisterAll(r, d)
	return httptest.NewServer(r)
}

func TestFullSyncFlow(t *testing.T) {
	upstreamSrv, upstreamRequests := startFakeUpstream(t)
	defer upstreamSrv.Close()

	api := startAPI(t, upstreamSrv.URL)
	defer api.Close()

	transport := client.NewTransport(nil, client.TransportOptions{MaxRetries: 1}, logger.New("error", false))
	session := client.NewSession(api.URL, transport, client.NewResponseCache(time.Minute, 10), 50, logger.New("error", false))

	if err := session.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Both upstream pages walked exactly once.
	if *upstreamRequests != 2 {
		t.Errorf("upstream requests = %d, want 2", *upstreamRequests)
	}

	engine := session.Engine()
	all := engine.FilteredView()
	if len(all) != 4 {
		t.Fatalf("working set size = %d, want 4", len(all))
	}

	// Localized and English property names normalize to the same shape.
	var sawLocalized bool
	for _, b := range all {
		if b.Title == "新闻聚合" {
			sawLocalized = true
			if b.Category != "Reading" {
				t.Errorf("localized record category = %q, want %q", b.Category, "Reading")
			}
		}
	}
	if !sawLocalized {
		t.Error("localized record missing from working set")
	}

	// Conjunctive tag filtering over the synced set.
	engine.ToggleTag("docs")
	engine.ToggleTag("internal")
	tagged := engine.FilteredView()
	if len(tagged) != 2 {
		t.Errorf("tagged view size = %d, want 2", len(tagged))
	}
	engine.ClearTags()

	// A second refresh is served by caches on both sides.
	if err := session.Refresh(context.Background(), false); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if *upstreamRequests != 2 {
		t.Errorf("upstream requests after cached refresh = %d, want 2", *upstreamRequests)
	}
}

func TestForcedRefreshSyncsUpstreamOnce(t *testing.T) {
	upstreamSrv, upstreamRequests := startFakeUpstream(t)
	defer upstreamSrv.Close()

	api := startAPI(t, upstreamSrv.URL)
	defer api.Close()

	transport := client.NewTransport(nil, client.TransportOptions{MaxRetries: 1}, logger.New("error", false))
	// Page size 2 against 4 records: the refresh walks several API pages.
	session := client.NewSession(api.URL, transport, client.NewResponseCache(time.Minute, 10), 2, logger.New("error", false))

	if err := session.Refresh(context.Background(), true); err != nil {
		t.Fatalf("forced Refresh failed: %v", err)
	}

	// One sync walks the two upstream pages exactly once; later API pages
	// are sliced from the fresh working set, not re-synced.
	if *upstreamRequests != 2 {
		t.Errorf("upstream requests = %d, want 2 (one full sync)", *upstreamRequests)
	}
	if got := len(session.Engine().FilteredView()); got != 4 {
		t.Errorf("working set size = %d, want 4", got)
	}
}

func TestCacheClearEndToEnd(t *testing.T) {
	upstreamSrv, upstreamRequests := startFakeUpstream(t)
	defer upstreamSrv.Close()

	api := startAPI(t, upstreamSrv.URL)
	defer api.Close()

	transport := client.NewTransport(nil, client.TransportOptions{MaxRetries: 1}, logger.New("error", false))
	session := client.NewSession(api.URL, transport, client.NewResponseCache(time.Minute, 10), 50, logger.New("error", false))

	if err := session.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	before := *upstreamRequests

	req, err := http.NewRequest(http.MethodPost, api.URL+"/api/cache/clear", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cache clear request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cache clear status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// force=true bypasses the client cache; the server cache was just
	// cleared, so the refresh must reach upstream again.
	if err := session.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh after clear failed: %v", err)
	}
	if *upstreamRequests != before+2 {
		t.Errorf("upstream requests = %d, want %d", *upstreamRequests, before+2)
	}
}

func TestHealthEndpoint(t *testing.T) {
	upstreamSrv, _ := startFakeUpstream(t)
	defer upstreamSrv.Close()

	api := startAPI(t, upstreamSrv.URL)
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	var health struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		CacheSize int    `json:"cacheSize"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if !health.Success {
		t.Error("Success = false, want true")
	}
	if health.Message != "ok" {
		t.Errorf("Message = %q, want %q", health.Message, "ok")
	}
}
