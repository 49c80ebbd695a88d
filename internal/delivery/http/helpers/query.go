package helpers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"schoolevents/internal/domain"
)

// List query defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// positiveInt returns the named query value when it is an integer >= 1, else fallback.
func positiveInt(q url.Values, name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(name)))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// ParsePagination reads page and page_size. Missing or invalid values fall back to the
// defaults and page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveInt(q, "page", DefaultPage),
		PageSize: min(positiveInt(q, "page_size", DefaultPageSize), MaxPageSize),
	}
}

// ParseEventQuery reads q, sort, order, page and page_size from the query string.
func ParseEventQuery(r *http.Request) domain.EventQuery {
	q := r.URL.Query()
	return domain.EventQuery{
		Search:   strings.TrimSpace(q.Get("q")),
		SortBy:   strings.ToLower(strings.TrimSpace(q.Get("sort"))),
		SortDesc: strings.EqualFold(strings.TrimSpace(q.Get("order")), "desc"),
		Page:     ParsePagination(r),
	}
}

// ParseRequestStatuses reads a comma separated status query parameter. Unknown values are
// reported in the returned error message.
func ParseRequestStatuses(r *http.Request) ([]domain.RequestStatus, string) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, ""
	}
	var out []domain.RequestStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.RequestStatus(strings.ToUpper(strings.TrimSpace(part)))
		if s == "" {
			continue
		}
		if !s.Valid() {
			return nil, "unknown status " + part
		}
		out = append(out, s)
	}
	return out, ""
}

// PaginationMeta is the pagination block of list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta computes TotalPages as ceil(total / pageSize), or 0 when pageSize is 0.
func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	meta := PaginationMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	return meta
}
