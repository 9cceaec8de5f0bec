package handlers

import (
	"net/http"
	"strconv"

	"github.com/nsmith5/marksync/internal/domain"
	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/utils"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type bookmarksResponse struct {
	Success      bool                    `json:"success"`
	Data         []domain.BookmarkRecord `json:"data"`
	Count        int                     `json:"count"`
	TotalCount   int                     `json:"totalCount"`
	TotalPages   int                     `json:"totalPages"`
	CurrentPage  int                     `json:"currentPage"`
	HasMore      bool                    `json:"hasMore"`
	FromCache    bool                    `json:"fromCache,omitempty"`
	ResponseTime string                  `json:"responseTime"`
}

// Bookmarks serves one page of the synchronized working set.
//
// Query parameters: page (1-based), limit, force_refresh and incremental.
// incremental is accepted for API compatibility but ignored: a sync always
// replaces the working set wholesale.
func Bookmarks(d deps.Deps) http.HandlerFunc {
	defaultSize := d.PageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := d.Now()

		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(r, "limit", defaultSize)
		if limit < 1 {
			limit = defaultSize
		}
		if limit > MaxPageSize {
			limit = MaxPageSize
		}

		forceRefresh := queryBool(r, "force_refresh")
		if queryBool(r, "incremental") {
			d.Logger.Debug("incremental sync requested, serving full replacement",
				logger.String("remote_ip", r.RemoteAddr))
		}

		identity := utils.ClientIP(r, d.TrustProxy)

		result, err := d.Coordinator.GetBookmarks(r.Context(), identity, page, limit, forceRefresh)
		if err != nil {
			d.Logger.Error("bookmark page request failed",
				logger.String("identity", identity),
				logger.Int("page", page),
				logger.Error(err))
			writeError(w, err, d.Now().Sub(start))
			return
		}

		writeJSON(w, http.StatusOK, bookmarksResponse{
			Success:      true,
			Data:         result.Data,
			Count:        len(result.Data),
			TotalCount:   result.TotalCount,
			TotalPages:   result.TotalPages,
			CurrentPage:  result.CurrentPage,
			HasMore:      result.HasMore,
			FromCache:    result.FromCache,
			ResponseTime: d.Now().Sub(start).String(),
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func queryBool(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
