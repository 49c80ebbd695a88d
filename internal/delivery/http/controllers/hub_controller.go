package controllers

import (
	"log/slog"
	"net/http"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/domain"
)

type HubController struct {
	Logger  *slog.Logger
	Service domain.HubService
}

func NewHubController(logger *slog.Logger, svc domain.HubService) *HubController {
	return &HubController{
		Logger:  logger,
		Service: svc,
	}
}

type hubQuery func(r *http.Request, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error)

func (c *HubController) listEvents(w http.ResponseWriter, r *http.Request, list hubQuery) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := helpers.ParseEventQuery(r)
	events, total, err := list(r, p, q)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, eventList(events, q.Page, total))
}

// EligibleEvents godoc
// @Summary Events the student can request
// @Description Approved upcoming events matching the student's grade whose registration is open and that are not full.
// @Tags hub
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in title and description"
// @Param sort query string false "date, title or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (grade not configured)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no student profile)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /student/eligible-events [get]
func (c *HubController) EligibleEvents(w http.ResponseWriter, r *http.Request) {
	c.listEvents(w, r, func(r *http.Request, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
		return c.Service.ListEligibleEvents(r.Context(), p, q)
	})
}

// AvailableEvents godoc
// @Summary Upcoming events for the student's grade
// @Description Approved upcoming events matching the student's grade, including full and closed ones with their enrollment status.
// @Tags hub
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in title and description"
// @Param sort query string false "date, title or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (grade not configured)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/hub/available [get]
func (c *HubController) AvailableEvents(w http.ResponseWriter, r *http.Request) {
	c.listEvents(w, r, func(r *http.Request, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
		return c.Service.AvailableEvents(r.Context(), p, q)
	})
}

// PastEvents godoc
// @Summary Events the student took part in
// @Description Events already held for which the student had an approved or enrolled request. Most recent first by default.
// @Tags hub
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in title and description"
// @Param sort query string false "date, title or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/hub/past [get]
func (c *HubController) PastEvents(w http.ResponseWriter, r *http.Request) {
	c.listEvents(w, r, func(r *http.Request, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
		return c.Service.PastEvents(r.Context(), p, q)
	})
}

// MyRequestsResponse is the data payload for GET /events/hub/my-requests.
type MyRequestsResponse struct {
	Items      []*domain.MyRequestItem `json:"items"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

// MyRequestsSuccessResponse is the success envelope for GET /events/hub/my-requests (200).
type MyRequestsSuccessResponse struct {
	Data  MyRequestsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// MyRequests godoc
// @Summary The student's participation requests
// @Description Lists the calling student's requests, newest first, each with its event.
// @Tags hub
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses (PENDING, APPROVED, REJECTED, ENROLLED, WITHDRAWN)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.MyRequestsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/hub/my-requests [get]
func (c *HubController) MyRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	statuses, msg := helpers.ParseRequestStatuses(r)
	if msg != "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, msg)
		return
	}
	page := helpers.ParsePagination(r)
	items, total, err := c.Service.MyRequests(r.Context(), p, statuses, page)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.MyRequestItem{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MyRequestsResponse{Items: items, Pagination: helpers.NewPaginationMeta(page.Page, page.PageSize, total)})
}
