package pagination

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params represents pagination query parameters.
type Params struct {
	Page  int
	Limit int
	Skip  int
}

// Metadata describes the page that was returned.
type Metadata struct {
	TotalItems  int64 `json:"totalItems"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Extract reads page and limit from the query string.
func Extract(c *gin.Context) Params {
	return Parse(c.Query("page"), c.Query("limit"))
}

// ExtractWithLimit is Extract with a per-endpoint default page size.
func ExtractWithLimit(c *gin.Context, defaultLimit int) Params {
	return ParseWithLimit(c.Query("page"), c.Query("limit"), defaultLimit)
}

// Parse normalises raw page/limit values. Invalid or non-positive values
// fall back to the defaults and limit is capped at MaxLimit.
func Parse(rawPage, rawLimit string) Params {
	return ParseWithLimit(rawPage, rawLimit, DefaultLimit)
}

// ParseWithLimit is Parse with defaultLimit used when limit is missing or invalid.
func ParseWithLimit(rawPage, rawLimit string, defaultLimit int) Params {
	page := parsePositiveInt(rawPage, DefaultPage)
	limit := parsePositiveInt(rawLimit, defaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit, Skip: (page - 1) * limit}
}

// MetadataFrom builds response metadata given totals.
func MetadataFrom(total int64, params Params) Metadata {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}

	return Metadata{
		TotalItems:  total,
		CurrentPage: params.Page,
		PageSize:    params.Limit,
		TotalPages:  totalPages,
		HasNextPage: params.Page < totalPages,
		HasPrevPage: params.Page > 1,
	}
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
