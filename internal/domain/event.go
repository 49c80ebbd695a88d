package domain

import (
	"context"
	"strings"
	"time"
)

// EventStatus is the review status of an event. Only APPROVED events are visible to students.
type EventStatus string

const (
	EventStatusDraft    EventStatus = "DRAFT"
	EventStatusPending  EventStatus = "PENDING"
	EventStatusApproved EventStatus = "APPROVED"
	EventStatusRejected EventStatus = "REJECTED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPending, EventStatusApproved, EventStatusRejected:
		return true
	}
	return false
}

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:    {EventStatusPending},
	EventStatusPending:  {EventStatusDraft, EventStatusApproved, EventStatusRejected},
	EventStatusRejected: {EventStatusPending},
}

// CanTransitionTo reports whether the event may move from s to next.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresPlatformReview reports whether moving to next is a review decision
// reserved to super admins.
func (s EventStatus) RequiresPlatformReview(next EventStatus) bool {
	return next == EventStatusApproved || next == EventStatusRejected
}

// Event is a school event with capacity-limited participation.
// swagger:model Event
type Event struct {
	ID                       string             `json:"id"`
	SchoolID                 string             `json:"school_id"`
	Title                    string             `json:"title"`
	Description              string             `json:"description"`
	Date                     time.Time          `json:"date"`
	RegistrationDeadline     *time.Time         `json:"registration_deadline"`
	EligibleGrades           []string           `json:"eligible_grades"`
	MaxParticipants          *int               `json:"max_participants"`
	MaxParticipantsPerSchool *int               `json:"max_participants_per_school"`
	Status                   EventStatus        `json:"status"`
	CreatedBy                string             `json:"created_by"`
	Participants             []ParticipantEntry `json:"participants"`
	CreatedAt                time.Time          `json:"created_at"`
	UpdatedAt                time.Time          `json:"updated_at"`
}

// NewEvent returns a DRAFT event. ID is typically set by the repository on create.
func NewEvent(schoolID, title, description string, date time.Time, createdBy string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		SchoolID:       schoolID,
		Title:          title,
		Description:    description,
		Date:           date,
		EligibleGrades: []string{},
		Status:         EventStatusDraft,
		CreatedBy:      createdBy,
		Participants:   []ParticipantEntry{},
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

// Validate checks the descriptive and capacity fields of an event.
func (e *Event) Validate() []string {
	var errs []string
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, "title is required")
	}
	if e.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if e.RegistrationDeadline != nil && !e.Date.IsZero() && e.RegistrationDeadline.After(e.Date) {
		errs = append(errs, "registration_deadline must not be after date")
	}
	if e.MaxParticipants != nil && *e.MaxParticipants < 1 {
		errs = append(errs, "max_participants must be at least 1")
	}
	if e.MaxParticipantsPerSchool != nil && *e.MaxParticipantsPerSchool < 1 {
		errs = append(errs, "max_participants_per_school must be at least 1")
	}
	if e.MaxParticipants != nil && e.MaxParticipantsPerSchool != nil && *e.MaxParticipantsPerSchool > *e.MaxParticipants {
		errs = append(errs, "max_participants_per_school must not exceed max_participants")
	}
	return errs
}

// GradeEligible reports whether a student in grade may take part. An empty set means unrestricted.
func (e *Event) GradeEligible(grade string) bool {
	if len(e.EligibleGrades) == 0 {
		return true
	}
	for _, g := range e.EligibleGrades {
		if strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(grade)) {
			return true
		}
	}
	return false
}

// EnrollmentStatus is the derived, student-facing availability of an event.
type EnrollmentStatus string

const (
	EnrollmentOpen    EnrollmentStatus = "OPEN"
	EnrollmentFilling EnrollmentStatus = "FILLING"
	EnrollmentFull    EnrollmentStatus = "FULL"
	EnrollmentClosed  EnrollmentStatus = "CLOSED"
	EnrollmentEnded   EnrollmentStatus = "ENDED"
)

// FillingThreshold is the share of max_participants above which an event is FILLING.
const FillingThreshold = 0.8

// EnrollmentStatusAt derives the enrollment status of e at now from its roster size.
func (e *Event) EnrollmentStatusAt(now time.Time) EnrollmentStatus {
	if e.Date.Before(now) {
		return EnrollmentEnded
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.Before(now) {
		return EnrollmentClosed
	}
	if e.MaxParticipants != nil {
		enrolled := e.EnrolledCount()
		if enrolled >= *e.MaxParticipants {
			return EnrollmentFull
		}
		if float64(enrolled) > FillingThreshold*float64(*e.MaxParticipants) {
			return EnrollmentFilling
		}
	}
	return EnrollmentOpen
}

// EventView is an event as presented to a student, with derived availability.
// swagger:model EventView
type EventView struct {
	Event            *Event           `json:"event"`
	EnrolledCount    int              `json:"enrolled_count"`
	SpotsLeft        *int             `json:"spots_left"`
	EnrollmentStatus EnrollmentStatus `json:"enrollment_status"`
}

// NewEventView builds the student-facing view of e at now.
func NewEventView(e *Event, now time.Time) *EventView {
	v := &EventView{
		Event:            e,
		EnrolledCount:    e.EnrolledCount(),
		EnrollmentStatus: e.EnrollmentStatusAt(now),
	}
	if e.MaxParticipants != nil {
		left := *e.MaxParticipants - v.EnrolledCount
		if left < 0 {
			left = 0
		}
		v.SpotsLeft = &left
	}
	return v
}

// Sortable event columns accepted by list queries.
const (
	EventSortDate      = "date"
	EventSortTitle     = "title"
	EventSortCreatedAt = "created_at"
)

// EventFilter narrows event list queries. Zero values mean "no restriction".
type EventFilter struct {
	SchoolID string
	Statuses []EventStatus
	IDs      []string
	// Grade keeps events whose eligible grade set is empty or contains Grade.
	Grade string
	// StartsAfter / StartsBefore bound the event date.
	StartsAfter  *time.Time
	StartsBefore *time.Time
	// RegistrationOpenAt keeps events without a deadline or with a deadline after it.
	RegistrationOpenAt *time.Time
	// NotFull keeps events whose roster is below max_participants.
	NotFull  bool
	Search   string
	SortBy   string
	SortDesc bool
	Page     PaginationParams
}

// EventUpdate holds optional changes to an event; nil fields are unchanged.
type EventUpdate struct {
	Title                    *string
	Description              *string
	Date                     *time.Time
	RegistrationDeadline     *time.Time
	ClearDeadline            bool
	EligibleGrades           []string
	SetEligibleGrades        bool
	MaxParticipants          *int
	ClearMaxParticipants     bool
	MaxParticipantsPerSchool *int
	ClearMaxPerSchool        bool
}

// Apply copies the set fields of u onto e.
func (u EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.ClearDeadline {
		e.RegistrationDeadline = nil
	} else if u.RegistrationDeadline != nil {
		e.RegistrationDeadline = u.RegistrationDeadline
	}
	if u.SetEligibleGrades {
		e.EligibleGrades = u.EligibleGrades
		if e.EligibleGrades == nil {
			e.EligibleGrades = []string{}
		}
	}
	if u.ClearMaxParticipants {
		e.MaxParticipants = nil
	} else if u.MaxParticipants != nil {
		e.MaxParticipants = u.MaxParticipants
	}
	if u.ClearMaxPerSchool {
		e.MaxParticipantsPerSchool = nil
	} else if u.MaxParticipantsPerSchool != nil {
		e.MaxParticipantsPerSchool = u.MaxParticipantsPerSchool
	}
}

// EventRepository defines the interface for event storage. Returned events carry their roster.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	Update(ctx context.Context, event *Event) error
	UpdateStatus(ctx context.Context, id string, status EventStatus) error
	Delete(ctx context.Context, id string) error
}

// SchoolCapacityRow is one line of the school capacity dashboard.
// swagger:model SchoolCapacityRow
type SchoolCapacityRow struct {
	Event    *EventView      `json:"event"`
	Capacity CapacitySummary `json:"capacity"`
}

// EventService defines event administration and the school capacity dashboard.
type EventService interface {
	CreateEvent(ctx context.Context, p Principal, event *Event) error
	GetEvent(ctx context.Context, p Principal, eventID string) (*EventView, error)
	ListSchoolEvents(ctx context.Context, p Principal, filter EventFilter) ([]*EventView, int, error)
	UpdateEvent(ctx context.Context, p Principal, eventID string, update EventUpdate) (*Event, error)
	UpdateEventStatus(ctx context.Context, p Principal, eventID string, status EventStatus) (*Event, error)
	DeleteEvent(ctx context.Context, p Principal, eventID string) error
	SchoolCapacity(ctx context.Context, p Principal, page PaginationParams) ([]*SchoolCapacityRow, int, error)
}
