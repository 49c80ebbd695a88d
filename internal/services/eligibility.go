package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolevents/internal/domain"
)

type hubService struct {
	eventRepo      domain.EventRepository
	studentRepo    domain.StudentRepository
	ledger         domain.RequestLedger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewHubService returns the eligibility filter and the student hub views.
func NewHubService(eventRepo domain.EventRepository,
	studentRepo domain.StudentRepository,
	ledger domain.RequestLedger,
	timeout time.Duration,
) domain.HubService {
	return &hubService{
		eventRepo:      eventRepo,
		studentRepo:    studentRepo,
		ledger:         ledger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// CheckRequestable reports why student may not request event at now, or nil.
func CheckRequestable(event *domain.Event, student *domain.Student, now time.Time) error {
	if event.Status != domain.EventStatusApproved {
		return domain.ErrEventNotOpen
	}
	if !event.Date.After(now) {
		return domain.ErrEventEnded
	}
	if event.RegistrationDeadline != nil && event.RegistrationDeadline.Before(now) {
		return domain.ErrRegistrationClosed
	}
	if strings.TrimSpace(student.Grade) == "" && len(event.EligibleGrades) > 0 {
		return domain.ErrGradeNotConfigured
	}
	if !event.GradeEligible(student.Grade) {
		return domain.ErrGradeIneligible
	}
	return nil
}

// resolveStudent maps the caller to their student profile.
func resolveStudent(ctx context.Context, repo domain.StudentRepository, p domain.Principal) (*domain.Student, error) {
	if !p.IsStudent() {
		return nil, domain.ErrForbidden
	}
	student, err := repo.GetByUserID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("student profile: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return student, nil
}

func (s *hubService) gradedStudent(ctx context.Context, p domain.Principal) (*domain.Student, error) {
	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(student.Grade) == "" {
		return nil, domain.ErrGradeNotConfigured
	}
	return student, nil
}

func queryFilter(q domain.EventQuery) domain.EventFilter {
	return domain.EventFilter{
		Search:   q.Search,
		SortBy:   q.SortBy,
		SortDesc: q.SortDesc,
		Page:     q.Page,
	}
}

func views(events []*domain.Event, now time.Time) []*domain.EventView {
	out := make([]*domain.EventView, 0, len(events))
	for _, e := range events {
		out = append(out, domain.NewEventView(e, now))
	}
	return out
}

func (s *hubService) ListEligibleEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := s.gradedStudent(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	filter := queryFilter(q)
	filter.Statuses = []domain.EventStatus{domain.EventStatusApproved}
	filter.Grade = student.Grade
	filter.StartsAfter = &now
	filter.RegistrationOpenAt = &now
	filter.NotFull = true
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list eligible events: %w", err)
	}
	return views(events, now), total, nil
}

func (s *hubService) AvailableEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := s.gradedStudent(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	filter := queryFilter(q)
	filter.Statuses = []domain.EventStatus{domain.EventStatusApproved}
	filter.Grade = student.Grade
	filter.StartsAfter = &now
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list available events: %w", err)
	}
	return views(events, now), total, nil
}

func (s *hubService) PastEvents(ctx context.Context, p domain.Principal, q domain.EventQuery) ([]*domain.EventView, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, 0, err
	}
	requests, _, err := s.ledger.ListByStudent(ctx, student.ID, domain.OccupyingStatuses, domain.PaginationParams{})
	if err != nil {
		return nil, 0, fmt.Errorf("list student requests: %w", err)
	}
	if len(requests) == 0 {
		return []*domain.EventView{}, 0, nil
	}
	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.EventID)
	}
	now := s.now()
	filter := queryFilter(q)
	filter.IDs = ids
	filter.StartsBefore = &now
	if filter.SortBy == "" {
		filter.SortDesc = true
	}
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list past events: %w", err)
	}
	return views(events, now), total, nil
}

func (s *hubService) MyRequests(ctx context.Context, p domain.Principal, statuses []domain.RequestStatus, page domain.PaginationParams) ([]*domain.MyRequestItem, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := resolveStudent(ctx, s.studentRepo, p)
	if err != nil {
		return nil, 0, err
	}
	requests, total, err := s.ledger.ListByStudent(ctx, student.ID, statuses, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list student requests: %w", err)
	}
	items := make([]*domain.MyRequestItem, 0, len(requests))
	if len(requests) == 0 {
		return items, total, nil
	}
	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.EventID)
	}
	events, _, err := s.eventRepo.List(ctx, domain.EventFilter{IDs: ids})
	if err != nil {
		return nil, 0, fmt.Errorf("list request events: %w", err)
	}
	now := s.now()
	byID := make(map[string]*domain.EventView, len(events))
	for _, e := range events {
		byID[e.ID] = domain.NewEventView(e, now)
	}
	for _, req := range requests {
		items = append(items, &domain.MyRequestItem{Request: req, Event: byID[req.EventID]})
	}
	return items, total, nil
}
