// internal/utils/pagination.go
package utils

import (
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PaginationParams struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 || (max > 0 && n > max) {
		return def
	}
	return n
}

// GetPaginationParams reads ?page, ?limit and ?order. Chain reads come back
// oldest first, so the default order shows the newest entries first.
func GetPaginationParams(c *gin.Context) PaginationParams {
	order := c.Query("order")
	if order != "asc" {
		order = "desc"
	}
	return PaginationParams{
		Page:  queryInt(c, "page", 1, 0),
		Limit: queryInt(c, "limit", defaultPageSize, maxPageSize),
		Order: order,
	}
}

// Paginate returns the page of items selected by params. Items are expected
// in ascending order and are never modified.
func Paginate[T any](items []T, params PaginationParams) PaginationResult {
	if params.Limit < 1 {
		params.Limit = defaultPageSize
	}
	if params.Page < 1 {
		params.Page = 1
	}

	ordered := items
	if params.Order == "desc" {
		ordered = slices.Clone(items)
		slices.Reverse(ordered)
	}

	start := min((params.Page-1)*params.Limit, len(ordered))
	end := min(start+params.Limit, len(ordered))

	page := make([]T, end-start)
	copy(page, ordered[start:end])

	total := len(items)
	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      int64(total),
		TotalPages: (total + params.Limit - 1) / params.Limit,
		Data:       page,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
