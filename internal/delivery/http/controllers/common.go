package controllers

import (
	"net/http"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/delivery/http/middleware"
	"schoolevents/internal/domain"
)

// principal returns the authenticated caller, writing a 401 when the route was not wrapped by
// RequireAuth.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Principal{}, false
	}
	return p, true
}

// EventListResponse is the data payload for paginated event lists.
type EventListResponse struct {
	Items      []*domain.EventView    `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// EventListSuccessResponse is the success envelope for paginated event lists (200).
type EventListSuccessResponse struct {
	Data  EventListResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

func eventList(items []*domain.EventView, page domain.PaginationParams, total int) EventListResponse {
	if items == nil {
		items = []*domain.EventView{}
	}
	return EventListResponse{Items: items, Pagination: helpers.NewPaginationMeta(page.Page, page.PageSize, total)}
}

// RequestSuccessResponse is the success envelope for endpoints returning one participation request.
type RequestSuccessResponse struct {
	Data  *domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// BatchSuccessResponse is the success envelope for batch review endpoints (200).
type BatchSuccessResponse struct {
	Data  *domain.BatchResult `json:"data"`
	Error *helpers.APIError   `json:"error"`
}
