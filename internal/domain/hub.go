package domain

import "context"

// EventQuery is the search/sort/paging input of the student hub views.
type EventQuery struct {
	Search   string
	SortBy   string
	SortDesc bool
	Page     PaginationParams
}

// MyRequestItem pairs one of the student's requests with its event.
// swagger:model MyRequestItem
type MyRequestItem struct {
	Request *ParticipationRequest `json:"request"`
	Event   *EventView            `json:"event"`
}

// HubService is the eligibility filter and the student-facing read views built on it.
type HubService interface {
	// ListEligibleEvents returns events the student can request right now.
	ListEligibleEvents(ctx context.Context, p Principal, q EventQuery) ([]*EventView, int, error)
	// AvailableEvents returns upcoming approved events visible to the student's grade, whatever their fullness.
	AvailableEvents(ctx context.Context, p Principal, q EventQuery) ([]*EventView, int, error)
	PastEvents(ctx context.Context, p Principal, q EventQuery) ([]*EventView, int, error)
	MyRequests(ctx context.Context, p Principal, statuses []RequestStatus, page PaginationParams) ([]*MyRequestItem, int, error)
}
