package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolevents/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathUUID(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{"valid", "0B6C8A52-8C8E-4C43-9A57-3A1F4AB0D0A1", true},
		{"missing", "", false},
		{"not a uuid", "event-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events/x", nil)
			req.SetPathValue("eventID", tt.value)
			rr := httptest.NewRecorder()
			id, ok := PathUUID(rr, req, "eventID")
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, "0b6c8a52-8c8e-4c43-9a57-3a1f4ab0d0a1", id)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PaginationParams
	}{
		{"", domain.PaginationParams{Page: 1, PageSize: 20}},
		{"page=3&page_size=5", domain.PaginationParams{Page: 3, PageSize: 5}},
		{"page=0&page_size=1000", domain.PaginationParams{Page: 1, PageSize: MaxPageSize}},
		{"page=abc&page_size=-1", domain.PaginationParams{Page: 1, PageSize: 20}},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/events?"+tt.query, nil)
		assert.Equal(t, tt.want, ParsePagination(req), tt.query)
	}
	assert.Equal(t, 3, NewPaginationMeta(1, 10, 21).TotalPages)
	assert.Equal(t, 0, NewPaginationMeta(1, 0, 21).TotalPages)
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events/hub/available?q=+fair+&sort=title&order=DESC&page=2", nil)
	q := ParseEventQuery(req)
	assert.Equal(t, "fair", q.Search)
	assert.Equal(t, "title", q.SortBy)
	assert.True(t, q.SortDesc)
	assert.Equal(t, 2, q.Page.Page)

	req = httptest.NewRequest(http.MethodGet, "/events/hub/my-requests?status=pending,%20approved", nil)
	statuses, msg := ParseRequestStatuses(req)
	assert.Empty(t, msg)
	assert.Equal(t, []domain.RequestStatus{domain.RequestPending, domain.RequestApproved}, statuses)

	req = httptest.NewRequest(http.MethodGet, "/events/hub/my-requests?status=lost", nil)
	_, msg = ParseRequestStatuses(req)
	assert.Equal(t, "unknown status lost", msg)
}
