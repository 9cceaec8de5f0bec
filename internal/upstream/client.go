// Package upstream fetches and normalizes bookmark records from the external
// structured content store.
//
// The store exposes cursor pagination: each query returns up to one page of
// records plus an opaque continuation cursor. FetchAll walks the cursor chain
// to exhaustion, normalizes every record through the alias table, and
// classifies upstream failures into domain error kinds. It never retries;
// retry policy belongs to the caller.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nsmith5/marksync/internal/domain"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/utils"
)

const (
	// DefaultPageSize is the upstream's maximum page size.
	DefaultPageSize = 100

	// DefaultPageDelay spaces out page requests to respect upstream
	// throughput limits.
	DefaultPageDelay = 350 * time.Millisecond

	// DefaultMaxPages is a hard ceiling on the cursor chain. A misbehaving
	// upstream could return cursors forever; this bounds the walk.
	DefaultMaxPages = 50

	// DefaultAPIVersion is sent in the store's version header.
	DefaultAPIVersion = "2022-06-28"
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL    string        // ex: "https://api.notion.com"
	Token      string        // bearer credential
	StoreID    string        // target database/store identifier
	APIVersion string        // version header value
	PageSize   int           // records per page, capped upstream at 100
	PageDelay  time.Duration // pause between page requests
	MaxPages   int           // hard ceiling on pages per fetch
}

// Fetcher retrieves the complete record set from the upstream store.
type Fetcher struct {
	cfg     Config
	http    *http.Client
	aliases AliasTable
	logger  logger.Logger
}

// NewFetcher creates a fetcher. Zero config fields fall back to defaults.
func NewFetcher(cfg Config, aliases AliasTable, httpClient *http.Client, log logger.Logger) *Fetcher {
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = DefaultPageDelay
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		cfg:     cfg,
		http:    httpClient,
		aliases: aliases,
		logger:  log,
	}
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

// FetchAll walks the upstream cursor chain and returns the full normalized
// record set in upstream order.
func (f *Fetcher) FetchAll(ctx context.Context) ([]domain.BookmarkRecord, error) {
	var records []domain.BookmarkRecord
	cursor := ""

	for pageNum := 0; pageNum < f.cfg.MaxPages; pageNum++ {
		page, err := f.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for _, rec := range page.Results {
			records = append(records, normalize(rec, f.aliases))
		}

		f.logger.Debug("fetched upstream page",
			logger.Int("page", pageNum+1),
			logger.Int("records", len(page.Results)),
			logger.Bool("has_more", page.HasMore))

		if !page.HasMore || page.NextCursor == "" {
			return records, nil
		}
		cursor = page.NextCursor

		// Space out page requests.
		select {
		case <-time.After(f.cfg.PageDelay):
		case <-ctx.Done():
			return nil, domain.WrapError(domain.KindTimeout, "fetch canceled between pages", ctx.Err())
		}
	}

	f.logger.Warn("upstream cursor chain hit the page ceiling",
		logger.Int("max_pages", f.cfg.MaxPages),
		logger.Int("records", len(records)))
	return records, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, cursor string) (*recordPage, error) {
	body, err := json.Marshal(queryRequest{PageSize: f.cfg.PageSize, StartCursor: cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", f.cfg.BaseURL, f.cfg.StoreID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", f.cfg.APIVersion)

	resp, err := f.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.KindTimeout, "upstream query canceled", err)
		}
		return nil, domain.WrapError(domain.KindNetworkFailure, "upstream query failed", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		kind := domain.ClassifyUpstreamStatus(resp.StatusCode)
		e := domain.NewError(kind, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
		e.Status = resp.StatusCode
		return nil, e
	}

	var page recordPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, domain.WrapError(domain.KindUpstreamError, "failed to decode upstream page", err)
	}
	return &page, nil
}
