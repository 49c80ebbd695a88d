package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/delivery/http/middleware"
	"schoolevents/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventUUID   = "3f1c2a64-5d0e-4c7b-9a51-2b7e8f0d1c11"
	studentUUID = "9d2e7b10-4a3c-4f5e-8b6a-1c0d2e3f4a5b"
	requestUUID = "6a7b8c9d-0e1f-4a2b-8c3d-4e5f6a7b8c9d"
)

var (
	studentPrincipal = domain.Principal{UserID: "user-s1", Role: domain.RoleStudent, SchoolID: "school-1"}
	teacherPrincipal = domain.Principal{UserID: "user-t1", Role: domain.RoleTeacher, SchoolID: "school-1"}
	adminPrincipal   = domain.Principal{UserID: "user-a1", Role: domain.RoleAdmin, SchoolID: "school-1"}
)

// newRequest builds a request with path values and, unless p is nil, an authenticated principal.
func newRequest(method, target, body string, p *domain.Principal, pathValues map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if p != nil {
		req = req.WithContext(middleware.SetPrincipal(req.Context(), *p))
	}
	return req
}

// decodeEnvelope decodes the response envelope and re-decodes data into dest when dest is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err           error
	lastPrincipal domain.Principal
	lastEventID   string
	lastCreate    *domain.Event
	lastFilter    domain.EventFilter
	lastUpdate    domain.EventUpdate
	lastStatus    domain.EventStatus
	lastPage      domain.PaginationParams
	view          *domain.EventView
	events        []*domain.EventView
	total         int
	updated       *domain.Event
	capacityRows  []*domain.SchoolCapacityRow
	deleteCalled  bool
}

func (f *fakeEventService) CreateEvent(ctx context.Context, p domain.Principal, event *domain.Event) error {
	f.lastPrincipal, f.lastCreate = p, event
	if f.err != nil {
		return f.err
	}
	event.ID = eventUUID
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, p domain.Principal, eventID string) (*domain.EventView, error) {
	f.lastPrincipal, f.lastEventID = p, eventID
	return f.view, f.err
}

func (f *fakeEventService) ListSchoolEvents(ctx context.Context, p domain.Principal, filter domain.EventFilter) ([]*domain.EventView, int, error) {
	f.lastPrincipal, f.lastFilter = p, filter
	return f.events, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, p domain.Principal, eventID string, update domain.EventUpdate) (*domain.Event, error) {
	f.lastPrincipal, f.lastEventID, f.lastUpdate = p, eventID, update
	return f.updated, f.err
}

func (f *fakeEventService) UpdateEventStatus(ctx context.Context, p domain.Principal, eventID string, status domain.EventStatus) (*domain.Event, error) {
	f.lastPrincipal, f.lastEventID, f.lastStatus = p, eventID, status
	return f.updated, f.err
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, p domain.Principal, eventID string) error {
	f.lastPrincipal, f.lastEventID, f.deleteCalled = p, eventID, true
	return f.err
}

func (f *fakeEventService) SchoolCapacity(ctx context.Context, p domain.Principal, page domain.PaginationParams) ([]*domain.SchoolCapacityRow, int, error) {
	f.lastPrincipal, f.lastPage = p, page
	return f.capacityRows, f.total, f.err
}

// fakeParticipationService implements domain.ParticipationService for handler tests.
type fakeParticipationService struct {
	err           error
	request       *domain.ParticipationRequest
	status        *domain.ParticipationStatus
	batch         *domain.BatchResult
	review        *domain.PendingReview
	repair        *domain.RosterRepair
	lastCall      string
	lastPrincipal domain.Principal
	lastEventID   string
	lastStudentID string
	lastRequestID string
	lastDecision  domain.BatchDecision
	lastIDs       []string
	lastReason    string
	lastForce     bool
}

func (f *fakeParticipationService) record(call string, p domain.Principal, eventID string) {
	f.lastCall, f.lastPrincipal, f.lastEventID = call, p, eventID
}

func (f *fakeParticipationService) RequestParticipation(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	f.record("request", p, eventID)
	return f.request, f.err
}

func (f *fakeParticipationService) GetMyParticipation(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationStatus, error) {
	f.record("status", p, eventID)
	return f.status, f.err
}

func (f *fakeParticipationService) CancelRequest(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	f.record("cancel", p, eventID)
	return f.request, f.err
}

func (f *fakeParticipationService) Withdraw(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	f.record("withdraw", p, eventID)
	return f.request, f.err
}

func (f *fakeParticipationService) ReviewRequests(ctx context.Context, p domain.Principal, eventID string, decision domain.BatchDecision) (*domain.BatchResult, error) {
	f.record("review", p, eventID)
	f.lastDecision = decision
	return f.batch, f.err
}

func (f *fakeParticipationService) RejectRequests(ctx context.Context, p domain.Principal, eventID string, requestIDs []string, reason string) (*domain.BatchResult, error) {
	f.record("reject", p, eventID)
	f.lastIDs, f.lastReason = requestIDs, reason
	return f.batch, f.err
}

func (f *fakeParticipationService) ListPendingRequests(ctx context.Context, p domain.Principal, eventID string) (*domain.PendingReview, error) {
	f.record("pending", p, eventID)
	return f.review, f.err
}

func (f *fakeParticipationService) AddStudent(ctx context.Context, p domain.Principal, eventID, studentID string, force bool) (*domain.ParticipationRequest, error) {
	f.record("add", p, eventID)
	f.lastStudentID, f.lastForce = studentID, force
	return f.request, f.err
}

func (f *fakeParticipationService) RemoveStudent(ctx context.Context, p domain.Principal, eventID, studentID, reason string) (*domain.ParticipationRequest, error) {
	f.record("remove", p, eventID)
	f.lastStudentID, f.lastReason = studentID, reason
	return f.request, f.err
}

func (f *fakeParticipationService) ConfirmEnrollment(ctx context.Context, p domain.Principal, requestID string) (*domain.ParticipationRequest, error) {
	f.record("enroll", p, "")
	f.lastRequestID = requestID
	return f.request, f.err
}

func (f *fakeParticipationService) ReconcileRoster(ctx context.Context, p domain.Principal, eventID string) (*domain.RosterRepair, error) {
	f.record("reconcile", p, eventID)
	return f.repair, f.err
}

// fakeHubService implements domain.HubService for handler tests.
type fakeHubService struct {
	err           error
	events        []*domain.EventView
	items         []*domain.MyRequestItem
	total         int
	lastCall      string
	lastQuery     domain.EventQuery
	lastStatuses  []domain.RequestStatus
	lastPage      domain.PaginationParams
	lastPrincipal domain.Principal
}

func (f *fakeHubService) ListEligibleEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	f.lastCall, f.lastPrincipal, f.lastQuery = "eligible", p, q
	return f.events, f.total, f.err
}

func (f *fakeHubService) AvailableEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	f.lastCall, f.lastPrincipal, f.lastQuery = "available", p, q
	return f.events, f.total, f.err
}

func (f *fakeHubService) PastEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	f.lastCall, f.lastPrincipal, f.lastQuery = "past", p, q
	return f.events, f.total, f.err
}

func (f *fakeHubService) MyRequests(ctx context.Context, p domain.Principal, statuses []domain.RequestStatus, page domain.PaginationParams) ([]*domain.MyRequestItem, int, error) {
	f.lastCall, f.lastPrincipal, f.lastStatuses, f.lastPage = "my-requests", p, statuses, page
	return f.items, f.total, f.err
}
