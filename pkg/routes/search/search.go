// Package search serves the storefront read path: filter state in, pre-denormalized
// documents out.
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/filters"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/searchindex"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	maxQueryLen  = 256
)

type Searcher interface {
	Search(ctx context.Context, entityType models.EntityType, req searchindex.SearchRequest) (*searchindex.SearchResult, error)
}

// attributes limits each hit to what storefront listings render.
var attributes = map[models.EntityType][]string{
	models.EntityTypeProduct: {
		"id", "handle", "title", "subtitle", "thumbnail", "price", "category", "category_handles",
		"brand", "brand_id", "material", "diameter",
	},
	models.EntityTypeCategory: {
		"id", "name", "handle", "parent_category_id", "hierarchy_path", "hierarchy_handles", "product_count", "images",
	},
	models.EntityTypeBrand: {
		"id", "name", "handle", "description", "brand_logo", "product_count",
	},
}

type Response struct {
	Hits               []json.RawMessage `json:"hits"`
	EstimatedTotalHits int               `json:"estimated_total_hits"`
	Limit              int               `json:"limit"`
	Offset             int               `json:"offset"`
}

type Handler struct {
	searcher Searcher
	// filterable is the product index's filterableAttributes.
	filterable []string
	logger     ectologger.Logger
}

func NewHandler(searcher Searcher, filterable []string, logger ectologger.Logger) *Handler {
	return &Handler{
		searcher:   searcher,
		filterable: filterable,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	for _, t := range models.EntityTypes {
		g.GET("/store/"+t.DefaultIndex(), h.search(t))
	}
}

// GET /api/v1/store/{products,categories,brands}
func (h *Handler) search(entityType models.EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		limit, offset, err := paging(c)
		if err != nil {
			return err
		}

		query := truncate(strings.TrimSpace(c.QueryParam("q")), maxQueryLen)

		req := searchindex.SearchRequest{
			Query:                query,
			Limit:                limit,
			Offset:               offset,
			AttributesToRetrieve: attributes[entityType],
		}

		// filter dimensions only exist on product documents
		if entityType == models.EntityTypeProduct {
			compiled := filters.CompileFilterable(filters.SelectionFromQuery(c.QueryParams()), h.filterable)
			req.Filter = compiled.Filter
			req.Sort = compiled.Sort
		}

		result, err := h.searcher.Search(ctx, entityType, req)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"entity_type": entityType,
				"filter":      req.Filter,
			}).Error("Search failed")
			return httperror.NewHTTPError(http.StatusBadGateway, "search is unavailable")
		}

		return c.JSON(http.StatusOK, Response{
			Hits:               result.Hits,
			EstimatedTotalHits: result.EstimatedTotalHits,
			Limit:              limit,
			Offset:             offset,
		})
	}
}

func paging(c echo.Context) (int, int, error) {
	limit := DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(parsed, MaxLimit)
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, httperror.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		offset = parsed
	}
	return limit, offset, nil
}

// truncate cuts s to at most n bytes without splitting a rune. Invalid UTF-8 is
// replaced so the engine always receives a valid string.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
