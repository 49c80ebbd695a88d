package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolevents/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	ledger         domain.RequestLedger
	activityRepo   domain.ActivityRepository
	txManager      domain.TxManager
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(eventRepo domain.EventRepository,
	ledger domain.RequestLedger,
	activityRepo domain.ActivityRepository,
	txManager domain.TxManager,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		ledger:         ledger,
		activityRepo:   activityRepo,
		txManager:      txManager,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func validationError(errs []string) error {
	return domain.Invalid("%s", strings.Join(errs, "; "))
}

func (s *eventService) CreateEvent(ctx context.Context, p domain.Principal, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	switch {
	case p.Role == domain.RoleAdmin:
		if p.SchoolID == "" {
			return domain.ErrForbidden
		}
		event.SchoolID = p.SchoolID
	case p.IsSuperAdmin():
		if event.SchoolID == "" {
			return domain.Invalid("school_id is required")
		}
	default:
		return domain.ErrForbidden
	}
	if event.Status != domain.EventStatusPending {
		event.Status = domain.EventStatusDraft
	}
	if errs := event.Validate(); len(errs) > 0 {
		return validationError(errs)
	}
	now := s.now()
	event.CreatedBy = p.UserID
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.EligibleGrades == nil {
		event.EligibleGrades = []string{}
	}
	event.Participants = []domain.ParticipantEntry{}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.logActivity(ctx, p, domain.ActivityEventCreated, event.ID, string(event.Status))
	return nil
}

// logActivity records event-level changes made outside an event lock. Failures are not fatal.
func (s *eventService) logActivity(ctx context.Context, p domain.Principal, action, eventID, details string) {
	_ = s.activityRepo.Log(ctx, &domain.ActivityEntry{
		ActorID:   p.UserID,
		Action:    action,
		EventID:   eventID,
		Details:   details,
		CreatedAt: s.now(),
	})
}

// canView reports whether p may see e. Students and other schools only see approved events.
func canView(p domain.Principal, e *domain.Event) bool {
	if e.Status == domain.EventStatusApproved || p.IsSuperAdmin() {
		return true
	}
	return p.IsStaff() && p.SchoolID != "" && p.SchoolID == e.SchoolID
}

func (s *eventService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, p domain.Principal, eventID string) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canView(p, event) {
		return nil, domain.ErrNotFound
	}
	return domain.NewEventView(event, s.now()), nil
}

func (s *eventService) ListSchoolEvents(ctx context.Context, p domain.Principal, filter domain.EventFilter) ([]*domain.EventView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !p.IsStaff() {
		return nil, 0, domain.ErrForbidden
	}
	if !p.IsSuperAdmin() {
		if p.SchoolID == "" {
			return nil, 0, domain.ErrForbidden
		}
		filter.SchoolID = p.SchoolID
	}
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return views(events, s.now()), total, nil
}

// UpdateEvent applies update under the event lock so a cap can never drop below the slots
// already taken.
func (s *eventService) UpdateEvent(ctx context.Context, p domain.Principal, eventID string, update domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var updated *domain.Event
	err := s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		if !p.CanAdministerEvent(event) {
			return domain.ErrForbidden
		}
		update.Apply(event)
		if errs := event.Validate(); len(errs) > 0 {
			return validationError(errs)
		}
		requests, err := tx.Requests().FindByEvent(ctx, event.ID, domain.OccupyingStatuses...)
		if err != nil {
			return fmt.Errorf("list occupying requests: %w", err)
		}
		occ := countOccupied(event, requests, "")
		if event.MaxParticipants != nil && occ.total > *event.MaxParticipants {
			return domain.Invalid("max_participants cannot be lower than the %d participants already admitted", occ.total)
		}
		if event.MaxParticipantsPerSchool != nil {
			for schoolID, n := range occ.bySchool {
				if n > *event.MaxParticipantsPerSchool {
					return domain.Invalid("max_participants_per_school cannot be lower than the %d participants already admitted from school %s", n, schoolID)
				}
			}
		}
		event.UpdatedAt = s.now()
		if err := tx.Events().Update(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, wrapErr("update event", err)
	}
	return updated, nil
}

func (s *eventService) UpdateEventStatus(ctx context.Context, p domain.Principal, eventID string, status domain.EventStatus) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return nil, domain.Invalid("unknown event status %q", status)
	}
	var updated *domain.Event
	err := s.txManager.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error {
		if event.Status.RequiresPlatformReview(status) {
			if !p.IsSuperAdmin() {
				return domain.ErrForbidden
			}
		} else if !p.CanAdministerEvent(event) {
			return domain.ErrForbidden
		}
		if !event.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: event is %s and cannot become %s", domain.ErrInvalidTransition, event.Status, status)
		}
		if err := tx.Events().UpdateStatus(ctx, event.ID, status); err != nil {
			return err
		}
		details := fmt.Sprintf("%s->%s", event.Status, status)
		event.Status = status
		event.UpdatedAt = s.now()
		updated = event
		return logActivity(ctx, tx, event.UpdatedAt, p.UserID, domain.ActivityEventStatusChanged, event.ID, "", details)
	})
	if err != nil {
		return nil, wrapErr("update event status", err)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, p domain.Principal, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !p.CanAdministerEvent(event) {
		return domain.ErrForbidden
	}
	entry := &domain.ActivityEntry{
		ActorID:   p.UserID,
		Action:    domain.ActivityEventDeleted,
		EventID:   event.ID,
		Details:   event.Title,
		CreatedAt: s.now(),
	}
	if err := s.txManager.DeleteEvent(ctx, event.ID, entry); err != nil {
		return wrapErr("delete event", err)
	}
	return nil
}

// SchoolCapacity lists upcoming approved events with the caller school's occupied, pending and
// remaining slots. Super admins see global figures.
func (s *eventService) SchoolCapacity(ctx context.Context, p domain.Principal, page domain.PaginationParams) ([]*domain.SchoolCapacityRow, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !p.IsStaff() || (!p.IsSuperAdmin() && p.SchoolID == "") {
		return nil, 0, domain.ErrForbidden
	}
	schoolID := p.SchoolID
	if p.IsSuperAdmin() {
		schoolID = ""
	}
	now := s.now()
	events, total, err := s.eventRepo.List(ctx, domain.EventFilter{
		Statuses:    []domain.EventStatus{domain.EventStatusApproved},
		StartsAfter: &now,
		SortBy:      domain.EventSortDate,
		Page:        page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	rows := make([]*domain.SchoolCapacityRow, 0, len(events))
	for _, e := range events {
		requests, err := s.ledger.FindByEvent(ctx, e.ID, domain.RequestPending, domain.RequestApproved, domain.RequestEnrolled)
		if err != nil {
			return nil, 0, fmt.Errorf("list event requests: %w", err)
		}
		rows = append(rows, &domain.SchoolCapacityRow{
			Event:    domain.NewEventView(e, now),
			Capacity: Summary(e, requests, schoolID),
		})
	}
	return rows, total, nil
}
