package domain

import (
	"context"
	"time"
)

// RequestStatus is the lifecycle state of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestEnrolled  RequestStatus = "ENROLLED"
	RequestWithdrawn RequestStatus = "WITHDRAWN"
)

// ActiveStatuses are the statuses that block a new request for the same (student, event) pair.
var ActiveStatuses = []RequestStatus{RequestPending, RequestApproved, RequestEnrolled}

// OccupyingStatuses are the statuses that hold a capacity slot.
var OccupyingStatuses = []RequestStatus{RequestApproved, RequestEnrolled}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestEnrolled, RequestWithdrawn:
		return true
	}
	return false
}

// IsActive reports whether s is PENDING, APPROVED or ENROLLED.
func (s RequestStatus) IsActive() bool {
	return s == RequestPending || s == RequestApproved || s == RequestEnrolled
}

// OccupiesSlot reports whether a request in s counts against capacity.
func (s RequestStatus) OccupiesSlot() bool {
	return s == RequestApproved || s == RequestEnrolled
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestApproved, RequestRejected, RequestWithdrawn},
	RequestApproved: {RequestEnrolled, RequestWithdrawn},
	RequestEnrolled: {RequestWithdrawn},
}

// CanTransitionTo reports whether the request state machine has an edge from s to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors lists the statuses from which next can be reached.
func Predecessors(next RequestStatus) []RequestStatus {
	var from []RequestStatus
	for _, s := range []RequestStatus{RequestPending, RequestApproved, RequestEnrolled} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// ParticipationRequest is a RequestLedger entry: a student's intent to join an event.
// swagger:model ParticipationRequest
type ParticipationRequest struct {
	ID                    string        `json:"id"`
	StudentID             string        `json:"student_id"`
	EventID               string        `json:"event_id"`
	SchoolID              string        `json:"school_id"`
	Status                RequestStatus `json:"status"`
	RequestedAt           time.Time     `json:"requested_at"`
	ApprovedAt            *time.Time    `json:"approved_at"`
	ApprovedBy            *string       `json:"approved_by"`
	RejectedAt            *time.Time    `json:"rejected_at"`
	RejectionReason       *string       `json:"rejection_reason"`
	EnrollmentConfirmedAt *time.Time    `json:"enrollment_confirmed_at"`
	StudentNotifiedAt     *time.Time    `json:"student_notified_at"`
	WithdrawnAt           *time.Time    `json:"withdrawn_at"`
	WithdrawnBy           *string       `json:"withdrawn_by"`
	ForceEnrolled         bool          `json:"force_enrolled"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// NewParticipationRequest returns a PENDING request. ID is set by the ledger on create.
func NewParticipationRequest(studentID, eventID, schoolID string, requestedAt time.Time) *ParticipationRequest {
	return &ParticipationRequest{
		StudentID:   studentID,
		EventID:     eventID,
		SchoolID:    schoolID,
		Status:      RequestPending,
		RequestedAt: requestedAt,
		UpdatedAt:   requestedAt,
	}
}

// TransitionMeta carries the audit fields stamped by a ledger transition.
type TransitionMeta struct {
	At     time.Time
	Actor  string
	Reason string
}

// Apply moves r to next, stamping the fields that belong to that edge.
// It returns ErrInvalidTransition when the edge is not in the state machine.
func (r *ParticipationRequest) Apply(next RequestStatus, meta TransitionMeta) error {
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	at := meta.At
	switch next {
	case RequestApproved:
		r.ApprovedAt = &at
		if meta.Actor != "" {
			actor := meta.Actor
			r.ApprovedBy = &actor
		}
	case RequestRejected:
		r.RejectedAt = &at
		if meta.Reason != "" {
			reason := meta.Reason
			r.RejectionReason = &reason
		}
	case RequestEnrolled:
		r.EnrollmentConfirmedAt = &at
	case RequestWithdrawn:
		r.WithdrawnAt = &at
		if meta.Actor != "" {
			actor := meta.Actor
			r.WithdrawnBy = &actor
		}
	}
	r.Status = next
	r.UpdatedAt = at
	return nil
}

// RequestLedger is the storage contract for participation requests.
type RequestLedger interface {
	// Create stores req; it fails with ErrDuplicateRequest when the pair already has an active request.
	Create(ctx context.Context, req *ParticipationRequest) error
	GetByID(ctx context.Context, id string) (*ParticipationRequest, error)
	FindActiveByPair(ctx context.Context, studentID, eventID string) (*ParticipationRequest, error)
	// FindLatestByPair returns the most recent request of the pair regardless of status.
	FindLatestByPair(ctx context.Context, studentID, eventID string) (*ParticipationRequest, error)
	// FindByEvent lists requests in ledger insertion order; no statuses means all.
	FindByEvent(ctx context.Context, eventID string, statuses ...RequestStatus) ([]*ParticipationRequest, error)
	ListByStudent(ctx context.Context, studentID string, statuses []RequestStatus, page PaginationParams) ([]*ParticipationRequest, int, error)
	// CountApproved counts APPROVED requests of the event, optionally for one school and excluding one request.
	CountApproved(ctx context.Context, eventID, schoolID, excludeID string) (int, error)
	CountByStatus(ctx context.Context, eventID, schoolID string, statuses ...RequestStatus) (int, error)
	// Transition applies one state-machine edge; ErrInvalidTransition when the current status does not allow it.
	Transition(ctx context.Context, id string, next RequestStatus, meta TransitionMeta) (*ParticipationRequest, error)
	MarkNotified(ctx context.Context, id string, at time.Time) error
}

// ReviewAction is the decision of a batch review.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// BatchDecision is the input of a batch approve/reject.
type BatchDecision struct {
	RequestIDs      []string
	Action          ReviewAction
	RejectionReason string
}

// BatchFailure reports why one item of a batch was not applied.
// swagger:model BatchFailure
type BatchFailure struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// BatchResult is the per-item outcome of a batch review.
// swagger:model BatchResult
type BatchResult struct {
	Approved []string       `json:"approved"`
	Rejected []string       `json:"rejected"`
	Failed   []BatchFailure `json:"failed"`
}

// NewBatchResult returns a result with empty, non-nil collections.
func NewBatchResult() *BatchResult {
	return &BatchResult{Approved: []string{}, Rejected: []string{}, Failed: []BatchFailure{}}
}

// CapacitySummary describes occupied and remaining slots of an event, globally and for one school.
// swagger:model CapacitySummary
type CapacitySummary struct {
	GlobalEnrolled  int    `json:"global_enrolled"`
	GlobalCap       *int   `json:"global_cap"`
	GlobalRemaining *int   `json:"global_remaining"`
	SchoolID        string `json:"school_id,omitempty"`
	SchoolEnrolled  int    `json:"school_enrolled"`
	SchoolPending   int    `json:"school_pending"`
	SchoolCap       *int   `json:"school_cap"`
	SchoolRemaining *int   `json:"school_remaining"`
}

// PendingRequestItem is a pending request together with the requesting student.
// swagger:model PendingRequestItem
type PendingRequestItem struct {
	Request *ParticipationRequest `json:"request"`
	Student *Student              `json:"student"`
}

// PendingReview is the staff view of pending requests for an event.
// swagger:model PendingReview
type PendingReview struct {
	Event    *EventView           `json:"event"`
	Requests []PendingRequestItem `json:"requests"`
	Capacity CapacitySummary      `json:"capacity"`
}

// ParticipationStatus is a student's own view of their participation in an event.
// swagger:model ParticipationStatus
type ParticipationStatus struct {
	Event   *EventView            `json:"event"`
	Request *ParticipationRequest `json:"request"`
}

// ParticipationService is the enrollment coordinator: every request transition and roster write.
type ParticipationService interface {
	RequestParticipation(ctx context.Context, p Principal, eventID string) (*ParticipationRequest, error)
	GetMyParticipation(ctx context.Context, p Principal, eventID string) (*ParticipationStatus, error)
	CancelRequest(ctx context.Context, p Principal, eventID string) (*ParticipationRequest, error)
	Withdraw(ctx context.Context, p Principal, eventID string) (*ParticipationRequest, error)
	ReviewRequests(ctx context.Context, p Principal, eventID string, decision BatchDecision) (*BatchResult, error)
	RejectRequests(ctx context.Context, p Principal, eventID string, requestIDs []string, reason string) (*BatchResult, error)
	ListPendingRequests(ctx context.Context, p Principal, eventID string) (*PendingReview, error)
	AddStudent(ctx context.Context, p Principal, eventID, studentID string, force bool) (*ParticipationRequest, error)
	RemoveStudent(ctx context.Context, p Principal, eventID, studentID, reason string) (*ParticipationRequest, error)
	ConfirmEnrollment(ctx context.Context, p Principal, requestID string) (*ParticipationRequest, error)
	ReconcileRoster(ctx context.Context, p Principal, eventID string) (*RosterRepair, error)
}
