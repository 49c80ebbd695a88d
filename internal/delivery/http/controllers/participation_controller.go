package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/domain"
)

type ParticipationController struct {
	Logger  *slog.Logger
	Service domain.ParticipationService
}

func NewParticipationController(logger *slog.Logger, svc domain.ParticipationService) *ParticipationController {
	return &ParticipationController{
		Logger:  logger,
		Service: svc,
	}
}

// writeRequest answers with one participation request or maps err.
func (c *ParticipationController) writeRequest(w http.ResponseWriter, r *http.Request, status int, req *domain.ParticipationRequest, err error) {
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, status, req)
}

// RequestParticipation godoc
// @Summary Request to participate
// @Description Creates a PENDING participation request for the calling student after eligibility, duplicate and capacity checks.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RequestSuccessResponse "data contains the created request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (closed, ineligible, full)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (active request exists)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participate [post]
func (c *ParticipationController) RequestParticipation(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	req, err := c.Service.RequestParticipation(r.Context(), p, eventID)
	c.writeRequest(w, r, http.StatusCreated, req, err)
}

// ParticipationStatusSuccessResponse is the success envelope for GET /events/{eventID}/participate (200).
type ParticipationStatusSuccessResponse struct {
	Data  *domain.ParticipationStatus `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// GetMyParticipation godoc
// @Summary Own participation status
// @Description Returns the calling student's latest request for the event together with the event view.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ParticipationStatusSuccessResponse "data contains event and request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participate [get]
func (c *ParticipationController) GetMyParticipation(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	status, err := c.Service.GetMyParticipation(r.Context(), p, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, status)
}

// CancelRequest godoc
// @Summary Cancel a pending request
// @Description Withdraws the calling student's PENDING request. Approved or enrolled participation must use /withdraw.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse "data contains the withdrawn request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not pending)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participate [delete]
func (c *ParticipationController) CancelRequest(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	req, err := c.Service.CancelRequest(r.Context(), p, eventID)
	c.writeRequest(w, r, http.StatusOK, req, err)
}

// Withdraw godoc
// @Summary Withdraw from an event
// @Description Withdraws the calling student's active request and frees their roster slot.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse "data contains the withdrawn request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/withdraw [delete]
func (c *ParticipationController) Withdraw(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	req, err := c.Service.Withdraw(r.Context(), p, eventID)
	c.writeRequest(w, r, http.StatusOK, req, err)
}

// ReviewRequestsRequest is the request body for PUT /events/{eventID}/approve.
type ReviewRequestsRequest struct {
	RequestIDs      []string `json:"request_ids" validate:"required,min=1,max=200,dive,uuid"`
	Action          string   `json:"action" validate:"required,oneof=approve reject"`
	RejectionReason string   `json:"rejection_reason" validate:"max=500"`
}

// ReviewRequests godoc
// @Summary Approve or reject requests
// @Description Processes each request independently in ledger order. Approval re-checks capacity; items that cannot be applied are reported in failed and never abort the batch.
// @Tags participation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ReviewRequestsRequest true "Request ids and decision"
// @Success 200 {object} controllers.BatchSuccessResponse "data contains approved, rejected and failed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/approve [put]
func (c *ParticipationController) ReviewRequests(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req ReviewRequestsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	result, err := c.Service.ReviewRequests(r.Context(), p, eventID, domain.BatchDecision{
		RequestIDs:      req.RequestIDs,
		Action:          domain.ReviewAction(req.Action),
		RejectionReason: strings.TrimSpace(req.RejectionReason),
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// PendingReviewSuccessResponse is the success envelope for GET /events/{eventID}/approve (200).
type PendingReviewSuccessResponse struct {
	Data  *domain.PendingReview `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListPendingRequests godoc
// @Summary Pending requests with capacity
// @Description Lists pending requests of the caller's school (all schools for super admins) with student details and the capacity summary.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.PendingReviewSuccessResponse "data contains event, requests and capacity"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/approve [get]
func (c *ParticipationController) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	review, err := c.Service.ListPendingRequests(r.Context(), p, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, review)
}

// RejectRequestsRequest is the request body for PUT /events/{eventID}/manage/reject.
type RejectRequestsRequest struct {
	RequestIDs []string `json:"request_ids" validate:"required,min=1,max=200,dive,uuid"`
	Reason     string   `json:"reason" validate:"max=500"`
}

// RejectRequests godoc
// @Summary Bulk reject requests
// @Description Rejects the given pending requests with one shared reason.
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RejectRequestsRequest true "Request ids and reason"
// @Success 200 {object} controllers.BatchSuccessResponse "data contains rejected and failed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/manage/reject [put]
func (c *ParticipationController) RejectRequests(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req RejectRequestsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	result, err := c.Service.RejectRequests(r.Context(), p, eventID, req.RequestIDs, strings.TrimSpace(req.Reason))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// AddStudentRequest is the request body for POST /events/{eventID}/manage/student/add.
type AddStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Force     bool   `json:"force"`
}

// AddStudent godoc
// @Summary Add a student manually
// @Description Staff enroll a student of their school directly as APPROVED. Capacity is enforced unless force is true.
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AddStudentRequest true "Student and force flag"
// @Success 201 {object} controllers.RequestSuccessResponse "data contains the created request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/manage/student/add [post]
func (c *ParticipationController) AddStudent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req AddStudentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	created, err := c.Service.AddStudent(r.Context(), p, eventID, req.StudentID, req.Force)
	c.writeRequest(w, r, http.StatusCreated, created, err)
}

// RemoveStudentResponse is the data payload for DELETE /events/{eventID}/manage/student/{studentID}.
type RemoveStudentResponse struct {
	Status  string                       `json:"status"`
	Request *domain.ParticipationRequest `json:"request"`
}

// RemoveStudent godoc
// @Summary Remove a student
// @Description Withdraws the student's active request and removes them from the roster. request is null when the student was only on the roster.
// @Tags manage
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param studentID path string true "Student ID (UUID)"
// @Param reason query string false "Reason recorded in the activity log"
// @Success 200 {object} helpers.APIResponse "data contains status and request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/manage/student/{studentID} [delete]
func (c *ParticipationController) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	studentID, ok := helpers.PathUUID(w, r, "studentID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	req, err := c.Service.RemoveStudent(r.Context(), p, eventID, studentID, reason)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RemoveStudentResponse{Status: "removed", Request: req})
}

// RosterRepairSuccessResponse is the success envelope for POST /events/{eventID}/roster/reconcile (200).
type RosterRepairSuccessResponse struct {
	Data  *domain.RosterRepair `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ReconcileRoster godoc
// @Summary Rebuild the roster from the ledger
// @Description Recomputes the participant roster from APPROVED and ENROLLED requests and reports the students added and removed.
// @Tags manage
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RosterRepairSuccessResponse "data contains added, removed and roster"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/roster/reconcile [post]
func (c *ParticipationController) ReconcileRoster(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	repair, err := c.Service.ReconcileRoster(r.Context(), p, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, repair)
}

// ConfirmEnrollment godoc
// @Summary Confirm enrollment
// @Description Moves an APPROVED request to ENROLLED. Callable by the owning student or staff of the request's school.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param requestID path string true "Participation request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse "data contains the enrolled request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participation-requests/{requestID}/enroll [post]
func (c *ParticipationController) ConfirmEnrollment(w http.ResponseWriter, r *http.Request) {
	requestID, ok := helpers.PathUUID(w, r, "requestID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	req, err := c.Service.ConfirmEnrollment(r.Context(), p, requestID)
	c.writeRequest(w, r, http.StatusOK, req, err)
}
