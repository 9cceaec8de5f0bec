package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nsmith5/marksync/internal/domain"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/query"
	"github.com/nsmith5/marksync/internal/utils"
)

// BookmarkPage is one decoded page of the server's bookmark listing.
type BookmarkPage struct {
	Data        []domain.BookmarkRecord
	TotalCount  int
	TotalPages  int
	CurrentPage int
	HasMore     bool
	FromCache   bool
}

// apiEnvelope mirrors the server's JSON response envelope.
type apiEnvelope struct {
	Success     bool                    `json:"success"`
	Data        []domain.BookmarkRecord `json:"data"`
	TotalCount  int                     `json:"totalCount"`
	TotalPages  int                     `json:"totalPages"`
	CurrentPage int                     `json:"currentPage"`
	HasMore     bool                    `json:"hasMore"`
	FromCache   bool                    `json:"fromCache"`
	Error       string                  `json:"error"`
	Message     string                  `json:"message"`
}

// Session composes the retrying transport, the response cache and the query
// engine into the client-side sync flow: fetch pages, replace the engine's
// working set.
type Session struct {
	transport *Transport
	cache     *ResponseCache
	engine    *query.Engine
	baseURL   string
	pageSize  int
	logger    logger.Logger
}

// NewSession creates a session against the given server base URL.
func NewSession(baseURL string, transport *Transport, respCache *ResponseCache, pageSize int, log logger.Logger) *Session {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Session{
		transport: transport,
		cache:     respCache,
		engine:    query.NewEngine(),
		baseURL:   baseURL,
		pageSize:  pageSize,
		logger:    log,
	}
}

// Engine exposes the query engine backing this session.
func (s *Session) Engine() *query.Engine {
	return s.engine
}

// FetchPage retrieves one page of bookmarks, serving from the response cache
// unless force is set.
func (s *Session) FetchPage(ctx context.Context, page int, force bool) (*BookmarkPage, error) {
	key := PageKey(page, s.pageSize)
	if !force {
		if cached, ok := s.cache.Get(key); ok {
			cached.FromCache = true
			return &cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/bookmarks?%s", s.baseURL, url.Values{
		"page":          {fmt.Sprintf("%d", page)},
		"limit":         {fmt.Sprintf("%d", s.pageSize)},
		"force_refresh": {fmt.Sprintf("%t", force)},
	}.Encode())

	resp, err := s.transport.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.WrapError(domain.KindNetworkFailure, "failed to decode bookmark page", err)
	}
	if !envelope.Success {
		// The server's envelope carries its own classification.
		e := domain.NewError(domain.Kind(envelope.Error), envelope.Message)
		return nil, e
	}

	result := BookmarkPage{
		Data:        envelope.Data,
		TotalCount:  envelope.TotalCount,
		TotalPages:  envelope.TotalPages,
		CurrentPage: envelope.CurrentPage,
		HasMore:     envelope.HasMore,
		FromCache:   envelope.FromCache,
	}
	s.cache.Set(key, result)
	return &result, nil
}

// Refresh pulls all pages to exhaustion and replaces the engine's working
// set. force bypasses both the response cache and the server's page cache.
//
// Only the first page carries force_refresh: that one request triggers the
// upstream sync, and the remaining pages are sliced from the now-fresh
// working set server-side. Forcing every page would run one full upstream
// fetch per page. The response cache is cleared up front so later pages are
// not served stale from this side either.
//
// There is no protection against an older, slower refresh overwriting a
// newer one; the engine reflects the most recently completed call.
func (s *Session) Refresh(ctx context.Context, force bool) error {
	if force {
		s.cache.Clear()
	}

	var all []domain.BookmarkRecord

	for page := 1; ; page++ {
		result, err := s.FetchPage(ctx, page, force && page == 1)
		if err != nil {
			return err
		}
		all = append(all, result.Data...)
		if !result.HasMore {
			break
		}
	}

	s.engine.SetBookmarks(all)
	s.logger.Info("bookmark working set refreshed",
		logger.Int("records", len(all)),
		logger.Bool("forced", force))
	return nil
}

// ClearCache drops every cached response.
func (s *Session) ClearCache() {
	s.cache.Clear()
}
