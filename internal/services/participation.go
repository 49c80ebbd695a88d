package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"schoolevents/internal/domain"
)

type participationService struct {
	eventRepo      domain.EventRepository
	studentRepo    domain.StudentRepository
	ledger         domain.RequestLedger
	txManager      domain.TxManager
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewParticipationService returns the enrollment coordinator. Every capacity check and roster write
// it performs runs inside txManager.WithEventLock.
func NewParticipationService(eventRepo domain.EventRepository,
	studentRepo domain.StudentRepository,
	ledger domain.RequestLedger,
	txManager domain.TxManager,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ParticipationService {
	return &participationService{
		eventRepo:      eventRepo,
		studentRepo:    studentRepo,
		ledger:         ledger,
		txManager:      txManager,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

var (
	errRequestNotFound = fmt.Errorf("participation request %w", domain.ErrNotFound)
	errStudentNotFound = fmt.Errorf("student %w", domain.ErrNotFound)
	errOtherSchool     = fmt.Errorf("%w: request belongs to another school", domain.ErrForbidden)
)

func invalidTransition(req *domain.ParticipationRequest, next domain.RequestStatus) error {
	return fmt.Errorf("%w: request is %s and cannot become %s", domain.ErrInvalidTransition, req.Status, next)
}

// isClientError reports whether err is safe to show to the caller as is.
func isClientError(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrDuplicateRequest) ||
		errors.Is(err, domain.ErrConflict)
}

func wrapErr(op string, err error) error {
	if err == nil || isClientError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func logActivity(ctx context.Context, tx domain.ParticipationTx, at time.Time, actor, action, eventID, requestID, details string) error {
	entry := &domain.ActivityEntry{
		ActorID:   actor,
		Action:    action,
		EventID:   eventID,
		RequestID: requestID,
		Details:   details,
		CreatedAt: at,
	}
	if err := tx.Activity().Log(ctx, entry); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func findActive(ctx context.Context, ledger domain.RequestLedger, studentID, eventID string) (*domain.ParticipationRequest, error) {
	req, err := ledger.FindActiveByPair(ctx, studentID, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return req, err
}

func (s *participationService) RequestParticipation(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var created *domain.ParticipationRequest
	err = s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		if err := CheckRequestable(event, student, now); err != nil {
			return err
		}
		active, err := findActive(ctx, tx.Requests(), student.ID, event.ID)
		if err != nil {
			return fmt.Errorf("find active request: %w", err)
		}
		if active != nil || event.HasParticipant(student.ID) {
			return domain.ErrDuplicateRequest
		}
		admission, err := CheckAdmission(ctx, tx.Requests(), event, student.SchoolID, "")
		if err != nil {
			return err
		}
		if err := admission.Err(); err != nil {
			return err
		}
		req := domain.NewParticipationRequest(student.ID, event.ID, student.SchoolID, now)
		if err := tx.Requests().Create(ctx, req); err != nil {
			return err
		}
		created = req
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityRequestCreated, event.ID, req.ID, "")
	})
	if err != nil {
		return nil, wrapErr("request participation", err)
	}
	return created, nil
}

func (s *participationService) GetMyParticipation(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, err
	}
	req, err := findActive(ctx, s.ledger, student.ID, eventID)
	if err != nil {
		return nil, fmt.Errorf("find active request: %w", err)
	}
	if req == nil {
		req, err = s.ledger.FindLatestByPair(ctx, student.ID, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, errRequestNotFound
			}
			return nil, fmt.Errorf("find latest request: %w", err)
		}
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.ParticipationStatus{Event: domain.NewEventView(event, s.now()), Request: req}, nil
}

func (s *participationService) CancelRequest(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	return s.selfWithdraw(ctx, p, eventID, true)
}

func (s *participationService) Withdraw(ctx context.Context, p domain.Principal, eventID string) (*domain.ParticipationRequest, error) {
	return s.selfWithdraw(ctx, p, eventID, false)
}

// selfWithdraw moves the caller's active request to WITHDRAWN. pendingOnly restricts it to
// requests that were never approved.
func (s *participationService) selfWithdraw(ctx context.Context, p domain.Principal, eventID string, pendingOnly bool) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var withdrawn *domain.ParticipationRequest
	err = s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		active, err := findActive(ctx, tx.Requests(), student.ID, event.ID)
		if err != nil {
			return fmt.Errorf("find active request: %w", err)
		}
		if active == nil {
			return errRequestNotFound
		}
		if pendingOnly && active.Status != domain.RequestPending {
			return invalidTransition(active, domain.RequestWithdrawn)
		}
		req, err := tx.Requests().Transition(ctx, active.ID, domain.RequestWithdrawn, domain.TransitionMeta{At: now, Actor: p.UserID})
		if err != nil {
			return err
		}
		if _, err := tx.Roster().Remove(ctx, event.ID, student.ID); err != nil {
			return fmt.Errorf("remove from roster: %w", err)
		}
		withdrawn = req
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityRequestWithdrawn, event.ID, req.ID, "self")
	})
	if err != nil {
		return nil, wrapErr("withdraw", err)
	}
	return withdrawn, nil
}

func (s *participationService) RejectRequests(ctx context.Context, p domain.Principal, eventID string, requestIDs []string, reason string) (*domain.BatchResult, error) {
	return s.ReviewRequests(ctx, p, eventID, domain.BatchDecision{
		RequestIDs:      requestIDs,
		Action:          domain.ReviewReject,
		RejectionReason: reason,
	})
}

// ReviewRequests applies one decision to many requests. Each item runs in its own event-locked
// transaction, in ledger insertion order, and a failing item never aborts the others.
func (s *participationService) ReviewRequests(ctx context.Context, p domain.Principal, eventID string, decision domain.BatchDecision) (*domain.BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !p.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if decision.Action != domain.ReviewApprove && decision.Action != domain.ReviewReject {
		return nil, domain.Invalid("action must be approve or reject")
	}
	if len(decision.RequestIDs) == 0 {
		return nil, domain.Invalid("request_ids must not be empty")
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	known, err := s.ledger.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}

	result := domain.NewBatchResult()
	wanted := make(map[string]bool, len(decision.RequestIDs))
	for _, id := range decision.RequestIDs {
		wanted[id] = true
	}
	ordered := make([]string, 0, len(wanted))
	for _, req := range known {
		if wanted[req.ID] {
			ordered = append(ordered, req.ID)
			delete(wanted, req.ID)
		}
	}
	seen := make(map[string]bool)
	for _, id := range decision.RequestIDs {
		if wanted[id] && !seen[id] {
			seen[id] = true
			result.Failed = append(result.Failed, domain.BatchFailure{RequestID: id, Reason: errRequestNotFound.Error()})
		}
	}

	for _, id := range ordered {
		req, changed, err := s.reviewOne(ctx, p, eventID, id, decision)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{RequestID: id, Reason: s.failureReason(ctx, id, err)})
			continue
		}
		if decision.Action == domain.ReviewApprove {
			result.Approved = append(result.Approved, id)
		} else {
			result.Rejected = append(result.Rejected, id)
		}
		if changed {
			s.notify(ctx, event, req)
		}
	}
	return result, nil
}

func (s *participationService) failureReason(ctx context.Context, requestID string, err error) string {
	if isClientError(err) {
		return err.Error()
	}
	s.logger.ErrorContext(ctx, "batch item failed", "request_id", requestID, "err", err)
	return "internal error"
}

// reviewOne applies decision to a single request. changed is false for an approve of an
// already-approved request.
func (s *participationService) reviewOne(ctx context.Context, p domain.Principal, eventID, requestID string, decision domain.BatchDecision) (*domain.ParticipationRequest, bool, error) {
	now := s.now()
	var out *domain.ParticipationRequest
	changed := false
	err := s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		req, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errRequestNotFound
			}
			return err
		}
		if req.EventID != event.ID {
			return errRequestNotFound
		}
		if !p.CanManageSchool(req.SchoolID) {
			return errOtherSchool
		}

		if decision.Action == domain.ReviewReject {
			if req.Status != domain.RequestPending {
				return invalidTransition(req, domain.RequestRejected)
			}
			out, err = tx.Requests().Transition(ctx, req.ID, domain.RequestRejected,
				domain.TransitionMeta{At: now, Actor: p.UserID, Reason: decision.RejectionReason})
			if err != nil {
				return err
			}
			changed = true
			return logActivity(ctx, tx, now, p.UserID, domain.ActivityRequestRejected, event.ID, req.ID, decision.RejectionReason)
		}

		if req.Status == domain.RequestApproved {
			out = req
			_, err = tx.Roster().Add(ctx, domain.RosterMember{EventID: event.ID, SchoolID: req.SchoolID, StudentID: req.StudentID, JoinedAt: now})
			return err
		}
		if req.Status != domain.RequestPending {
			return invalidTransition(req, domain.RequestApproved)
		}
		admission, err := CheckAdmission(ctx, tx.Requests(), event, req.SchoolID, req.ID)
		if err != nil {
			return err
		}
		if err := admission.Err(); err != nil {
			return err
		}
		out, err = tx.Requests().Transition(ctx, req.ID, domain.RequestApproved, domain.TransitionMeta{At: now, Actor: p.UserID})
		if err != nil {
			return err
		}
		if _, err := tx.Roster().Add(ctx, domain.RosterMember{EventID: event.ID, SchoolID: req.SchoolID, StudentID: req.StudentID, JoinedAt: now}); err != nil {
			return fmt.Errorf("add to roster: %w", err)
		}
		changed = true
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityRequestApproved, event.ID, req.ID, "")
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

func (s *participationService) ListPendingRequests(ctx context.Context, p domain.Principal, eventID string) (*domain.PendingReview, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !p.IsStaff() || (!p.IsSuperAdmin() && p.SchoolID == "") {
		return nil, domain.ErrForbidden
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	requests, err := s.ledger.FindByEvent(ctx, eventID, domain.RequestPending, domain.RequestApproved, domain.RequestEnrolled)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	schoolID := p.SchoolID
	if p.IsSuperAdmin() {
		schoolID = ""
	}
	pending := make([]*domain.ParticipationRequest, 0)
	studentIDs := make([]string, 0)
	for _, req := range requests {
		if req.Status != domain.RequestPending || (schoolID != "" && req.SchoolID != schoolID) {
			continue
		}
		pending = append(pending, req)
		studentIDs = append(studentIDs, req.StudentID)
	}
	students, err := s.studentRepo.ListByIDs(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	items := make([]domain.PendingRequestItem, 0, len(pending))
	for _, req := range pending {
		items = append(items, domain.PendingRequestItem{Request: req, Student: students[req.StudentID]})
	}
	return &domain.PendingReview{
		Event:    domain.NewEventView(event, s.now()),
		Requests: items,
		Capacity: Summary(event, requests, schoolID),
	}, nil
}

// managedStudent loads studentID and checks the caller may act for the student's school.
func (s *participationService) managedStudent(ctx context.Context, p domain.Principal, studentID string) (*domain.Student, error) {
	if !p.IsStaff() {
		return nil, domain.ErrForbidden
	}
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errStudentNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	if !p.CanManageSchool(student.SchoolID) {
		return nil, fmt.Errorf("%w: student belongs to another school", domain.ErrForbidden)
	}
	return student, nil
}

// AddStudent enrolls a student on staff initiative. The request is created APPROVED; force skips
// the capacity check and is recorded on the request.
func (s *participationService) AddStudent(ctx context.Context, p domain.Principal, eventID, studentID string, force bool) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := s.managedStudent(ctx, p, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var created *domain.ParticipationRequest
	var locked *domain.Event
	err = s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		locked = event
		if event.Status != domain.EventStatusApproved {
			return domain.ErrEventNotOpen
		}
		if !event.Date.After(now) {
			return domain.ErrEventEnded
		}
		active, err := findActive(ctx, tx.Requests(), student.ID, event.ID)
		if err != nil {
			return fmt.Errorf("find active request: %w", err)
		}
		if active != nil {
			return domain.ErrDuplicateRequest
		}
		if !force {
			admission, err := CheckAdmission(ctx, tx.Requests(), event, student.SchoolID, "")
			if err != nil {
				return err
			}
			if err := admission.Err(); err != nil {
				return err
			}
		}
		req := domain.NewParticipationRequest(student.ID, event.ID, student.SchoolID, now)
		if err := req.Apply(domain.RequestApproved, domain.TransitionMeta{At: now, Actor: p.UserID}); err != nil {
			return err
		}
		req.ForceEnrolled = force
		if err := tx.Requests().Create(ctx, req); err != nil {
			return err
		}
		if _, err := tx.Roster().Add(ctx, domain.RosterMember{EventID: event.ID, SchoolID: student.SchoolID, StudentID: student.ID, JoinedAt: now}); err != nil {
			return fmt.Errorf("add to roster: %w", err)
		}
		created = req
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityStudentAdded, event.ID, req.ID, fmt.Sprintf("force=%t", force))
	})
	if err != nil {
		return nil, wrapErr("add student", err)
	}
	s.notify(ctx, locked, created)
	return created, nil
}

// RemoveStudent withdraws the student's active request and takes them off the roster. The
// returned request is nil when the student was only on the roster.
func (s *participationService) RemoveStudent(ctx context.Context, p domain.Principal, eventID, studentID, reason string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := s.managedStudent(ctx, p, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var withdrawn *domain.ParticipationRequest
	var locked *domain.Event
	err = s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		locked = event
		active, err := findActive(ctx, tx.Requests(), student.ID, event.ID)
		if err != nil {
			return fmt.Errorf("find active request: %w", err)
		}
		if active == nil && !event.HasParticipant(student.ID) {
			return errRequestNotFound
		}
		requestID := ""
		if active != nil {
			withdrawn, err = tx.Requests().Transition(ctx, active.ID, domain.RequestWithdrawn,
				domain.TransitionMeta{At: now, Actor: p.UserID, Reason: reason})
			if err != nil {
				return err
			}
			requestID = withdrawn.ID
		}
		if _, err := tx.Roster().Remove(ctx, event.ID, student.ID); err != nil {
			return fmt.Errorf("remove from roster: %w", err)
		}
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityStudentRemoved, event.ID, requestID, reason)
	})
	if err != nil {
		return nil, wrapErr("remove student", err)
	}
	if withdrawn != nil {
		s.notify(ctx, locked, withdrawn)
	}
	return withdrawn, nil
}

// ConfirmEnrollment moves an APPROVED request to ENROLLED. Capacity is checked again unless the
// request was force-enrolled by staff.
func (s *participationService) ConfirmEnrollment(ctx context.Context, p domain.Principal, requestID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	req, err := s.ledger.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if p.IsStudent() {
		student, err := resolveStudent(ctx, s.studentRepo, p)
		if err != nil {
			return nil, err
		}
		if student.ID != req.StudentID {
			return nil, domain.ErrForbidden
		}
	} else if !p.CanManageSchool(req.SchoolID) {
		return nil, errOtherSchool
	}

	now := s.now()
	var enrolled *domain.ParticipationRequest
	var locked *domain.Event
	err = s.txManager.WithEventLock(ctx, req.EventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		locked = event
		current, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status != domain.RequestApproved {
			return invalidTransition(current, domain.RequestEnrolled)
		}
		if !current.ForceEnrolled {
			admission, err := CheckAdmission(ctx, tx.Requests(), event, current.SchoolID, current.ID)
			if err != nil {
				return err
			}
			if err := admission.Err(); err != nil {
				return err
			}
		}
		enrolled, err = tx.Requests().Transition(ctx, current.ID, domain.RequestEnrolled, domain.TransitionMeta{At: now, Actor: p.UserID})
		if err != nil {
			return err
		}
		if _, err := tx.Roster().Add(ctx, domain.RosterMember{EventID: event.ID, SchoolID: current.SchoolID, StudentID: current.StudentID, JoinedAt: now}); err != nil {
			return fmt.Errorf("add to roster: %w", err)
		}
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityRequestEnrolled, event.ID, current.ID, "")
	})
	if err != nil {
		return nil, wrapErr("confirm enrollment", err)
	}
	s.notify(ctx, locked, enrolled)
	return enrolled, nil
}

// ReconcileRoster rebuilds the roster from APPROVED and ENROLLED requests in approval order.
// Students already on the roster keep their join time.
func (s *participationService) ReconcileRoster(ctx context.Context, p domain.Principal, eventID string) (*domain.RosterRepair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !p.CanAdministerEvent(event) {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	var repair *domain.RosterRepair
	err = s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		current, err := tx.Roster().ListByEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list roster: %w", err)
		}
		requests, err := tx.Requests().FindByEvent(ctx, event.ID, domain.OccupyingStatuses...)
		if err != nil {
			return fmt.Errorf("list occupying requests: %w", err)
		}
		members, added, removed := reconcile(event.ID, current, requests)
		repair = &domain.RosterRepair{
			EventID: event.ID,
			Added:   added,
			Removed: removed,
			Roster:  domain.BuildRoster(members),
		}
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}
		if err := tx.Roster().Replace(ctx, event.ID, members); err != nil {
			return fmt.Errorf("replace roster: %w", err)
		}
		details := fmt.Sprintf("added=%d removed=%d", len(added), len(removed))
		return logActivity(ctx, tx, now, p.UserID, domain.ActivityRosterReconciled, event.ID, "", details)
	})
	if err != nil {
		return nil, wrapErr("reconcile roster", err)
	}
	return repair, nil
}

// reconcile computes the roster implied by requests and its difference from current.
func reconcile(eventID string, current []domain.RosterMember, requests []*domain.ParticipationRequest) (members []domain.RosterMember, added, removed []string) {
	joined := make(map[string]domain.RosterMember, len(current))
	for _, m := range current {
		joined[m.StudentID] = m
	}
	sorted := make([]*domain.ParticipationRequest, 0, len(requests))
	for _, req := range requests {
		if req.Status.OccupiesSlot() {
			sorted = append(sorted, req)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return approvalTime(sorted[i]).Before(approvalTime(sorted[j]))
	})

	members = make([]domain.RosterMember, 0, len(sorted))
	added = []string{}
	removed = []string{}
	kept := make(map[string]bool, len(sorted))
	for _, req := range sorted {
		if kept[req.StudentID] {
			continue
		}
		kept[req.StudentID] = true
		if m, ok := joined[req.StudentID]; ok && m.SchoolID == req.SchoolID {
			members = append(members, m)
			continue
		}
		added = append(added, req.StudentID)
		members = append(members, domain.RosterMember{
			EventID:   eventID,
			SchoolID:  req.SchoolID,
			StudentID: req.StudentID,
			JoinedAt:  approvalTime(req),
		})
	}
	for _, m := range current {
		if !kept[m.StudentID] {
			removed = append(removed, m.StudentID)
		}
	}
	return members, added, removed
}

func approvalTime(req *domain.ParticipationRequest) time.Time {
	if req.ApprovedAt != nil {
		return *req.ApprovedAt
	}
	return req.RequestedAt
}

// notify emails the student about req and stamps student_notified_at. It never fails the caller.
func (s *participationService) notify(ctx context.Context, event *domain.Event, req *domain.ParticipationRequest) {
	if req == nil || event == nil || s.emailService == nil {
		return
	}
	student, err := s.studentRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "request_id", req.ID, "err", err)
		return
	}
	data := &domain.ParticipationDecisionEmailData{
		Email:       student.Email,
		StudentName: student.Name,
		EventTitle:  event.Title,
		EventDate:   event.Date.Format("Monday, 2 January 2006 15:04"),
		Status:      req.Status,
	}
	if req.RejectionReason != nil {
		data.RejectionReason = *req.RejectionReason
	}
	if err := s.emailService.SendParticipationDecision(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "participation email failed", "request_id", req.ID, "err", err)
		return
	}
	if err := s.ledger.MarkNotified(ctx, req.ID, s.now()); err != nil {
		s.logger.WarnContext(ctx, "mark notified failed", "request_id", req.ID, "err", err)
	}
}
