package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	SchoolID                 string     `json:"school_id" validate:"omitempty,uuid"`
	Title                    string     `json:"title" validate:"required,max=200"`
	Description              string     `json:"description" validate:"max=5000"`
	Date                     time.Time  `json:"date" validate:"required"`
	RegistrationDeadline     *time.Time `json:"registration_deadline"`
	EligibleGrades           []string   `json:"eligible_grades" validate:"omitempty,max=20,dive,required,max=32"`
	MaxParticipants          *int       `json:"max_participants" validate:"omitempty,min=1"`
	MaxParticipantsPerSchool *int       `json:"max_participants_per_school" validate:"omitempty,min=1"`
	// Submit sends the event straight to platform review (PENDING) instead of DRAFT.
	Submit bool `json:"submit"`
}

// Validate implements Validator for rules spanning several fields.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" && c.Title != "" {
		errs = append(errs, "title is required")
	}
	if c.RegistrationDeadline != nil && c.RegistrationDeadline.After(c.Date) {
		errs = append(errs, "registration_deadline must not be after date")
	}
	if c.MaxParticipants != nil && c.MaxParticipantsPerSchool != nil && *c.MaxParticipantsPerSchool > *c.MaxParticipants {
		errs = append(errs, "max_participants_per_school must not exceed max_participants")
	}
	return errs
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventViewSuccessResponse is the success envelope for GET /events/{eventID} (200).
type EventViewSuccessResponse struct {
	Data  *domain.EventView `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event for the caller's school (super admins name the school). New events are DRAFT unless submit is true.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event := &domain.Event{
		SchoolID:                 req.SchoolID,
		Title:                    strings.TrimSpace(req.Title),
		Description:              req.Description,
		Date:                     req.Date,
		RegistrationDeadline:     req.RegistrationDeadline,
		EligibleGrades:           req.EligibleGrades,
		MaxParticipants:          req.MaxParticipants,
		MaxParticipantsPerSchool: req.MaxParticipantsPerSchool,
		Status:                   domain.EventStatusDraft,
	}
	if req.Submit {
		event.Status = domain.EventStatusPending
	}
	if err := c.Service.CreateEvent(r.Context(), p, event); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List the school's events
// @Description Staff list their own school's events in every status. Super admins see all schools and may filter by school_id.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param school_id query string false "School filter (super admin only)"
// @Param status query string false "Comma separated event statuses"
// @Param q query string false "Search in title and description"
// @Param sort query string false "date, title or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := helpers.ParseEventQuery(r)
	filter := domain.EventFilter{
		SchoolID: strings.TrimSpace(r.URL.Query().Get("school_id")),
		Search:   q.Search,
		SortBy:   q.SortBy,
		SortDesc: q.SortDesc,
		Page:     q.Page,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := domain.EventStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !s.Valid() {
				helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unknown status "+part)
				return
			}
			filter.Statuses = append(filter.Statuses, s)
		}
	}
	events, total, err := c.Service.ListSchoolEvents(r.Context(), p, filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, eventList(events, q.Page, total))
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its participant roster, enrolled count and enrollment status. Unapproved events are visible only to their school's staff.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventViewSuccessResponse "data contains the event view"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := c.Service.GetEvent(r.Context(), p, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title                         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description                   *string    `json:"description" validate:"omitempty,max=5000"`
	Date                          *time.Time `json:"date"`
	RegistrationDeadline          *time.Time `json:"registration_deadline"`
	ClearRegistrationDeadline     bool       `json:"clear_registration_deadline"`
	EligibleGrades                *[]string  `json:"eligible_grades" validate:"omitempty,max=20,dive,required,max=32"`
	MaxParticipants               *int       `json:"max_participants" validate:"omitempty,min=1"`
	ClearMaxParticipants          bool       `json:"clear_max_participants"`
	MaxParticipantsPerSchool      *int       `json:"max_participants_per_school" validate:"omitempty,min=1"`
	ClearMaxParticipantsPerSchool bool       `json:"clear_max_participants_per_school"`
}

// Validate implements Validator. Setting and clearing the same field is rejected.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.RegistrationDeadline != nil && u.ClearRegistrationDeadline {
		errs = append(errs, "registration_deadline and clear_registration_deadline are mutually exclusive")
	}
	if u.MaxParticipants != nil && u.ClearMaxParticipants {
		errs = append(errs, "max_participants and clear_max_participants are mutually exclusive")
	}
	if u.MaxParticipantsPerSchool != nil && u.ClearMaxParticipantsPerSchool {
		errs = append(errs, "max_participants_per_school and clear_max_participants_per_school are mutually exclusive")
	}
	return errs
}

func (u UpdateEventRequest) toDomain() domain.EventUpdate {
	update := domain.EventUpdate{
		Title:                    u.Title,
		Description:              u.Description,
		Date:                     u.Date,
		RegistrationDeadline:     u.RegistrationDeadline,
		ClearDeadline:            u.ClearRegistrationDeadline,
		MaxParticipants:          u.MaxParticipants,
		ClearMaxParticipants:     u.ClearMaxParticipants,
		MaxParticipantsPerSchool: u.MaxParticipantsPerSchool,
		ClearMaxPerSchool:        u.ClearMaxParticipantsPerSchool,
	}
	if u.EligibleGrades != nil {
		update.EligibleGrades = *u.EligibleGrades
		update.SetEligibleGrades = true
	}
	return update
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Updates descriptive fields, grades and caps. Only the owning school's admin or a super admin may update. A cap below the participants already admitted is rejected.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), p, eventID, req.toDomain())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEventStatusRequest is the request body for PATCH /events/{eventID}/status.
type UpdateEventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT PENDING APPROVED REJECTED"`
}

// UpdateEventStatus godoc
// @Summary Change event status
// @Description Owner admins submit (DRAFT to PENDING) or withdraw a submission; super admins approve or reject.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventStatusRequest true "Target status"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/status [patch]
func (c *EventController) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEventStatus(r.Context(), p, eventID, domain.EventStatus(req.Status))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEventResponse is the data payload for DELETE /events/{eventID}.
type DeleteEventResponse struct {
	Status string `json:"status"`
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event with all its participation requests and roster. Owner admin or super admin only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), p, eventID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}

// SchoolCapacityResponse is the data payload for GET /school/event-capacity.
type SchoolCapacityResponse struct {
	Items      []*domain.SchoolCapacityRow `json:"items"`
	Pagination helpers.PaginationMeta      `json:"pagination"`
}

// SchoolCapacitySuccessResponse is the success envelope for GET /school/event-capacity (200).
type SchoolCapacitySuccessResponse struct {
	Data  SchoolCapacityResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// SchoolCapacity godoc
// @Summary School capacity dashboard
// @Description Upcoming approved events with the caller school's enrolled, pending and remaining slots. Super admins see global figures.
// @Tags school
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.SchoolCapacitySuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /school/event-capacity [get]
func (c *EventController) SchoolCapacity(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page := helpers.ParsePagination(r)
	rows, total, err := c.Service.SchoolCapacity(r.Context(), p, page)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if rows == nil {
		rows = []*domain.SchoolCapacityRow{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SchoolCapacityResponse{Items: rows, Pagination: helpers.NewPaginationMeta(page.Page, page.PageSize, total)})
}
