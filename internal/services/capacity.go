package services

import (
	"context"
	"errors"
	"fmt"

	"schoolevents/internal/domain"
)

// Admission is the outcome of a capacity check for one prospective participant.
type Admission struct {
	Admissible bool
	Reasons    []string
}

// Err returns a *domain.CapacityError carrying the reasons, or nil when admissible.
func (a Admission) Err() error {
	if a.Admissible {
		return nil
	}
	return &domain.CapacityError{Reasons: a.Reasons}
}

// occupancy counts the distinct students holding a slot, globally and per school.
type occupancy struct {
	total    int
	bySchool map[string]int
}

// countOccupied unions the roster with APPROVED/ENROLLED requests so a student who is both on the
// roster and approved is counted once. excludeStudent, when set, is left out entirely.
func countOccupied(event *domain.Event, requests []*domain.ParticipationRequest, excludeStudent string) occupancy {
	seen := make(map[string]string)
	for _, entry := range event.Participants {
		for _, studentID := range entry.Students {
			seen[studentID] = entry.SchoolID
		}
	}
	for _, req := range requests {
		if !req.Status.OccupiesSlot() {
			continue
		}
		if _, ok := seen[req.StudentID]; !ok {
			seen[req.StudentID] = req.SchoolID
		}
	}
	occ := occupancy{bySchool: make(map[string]int)}
	for studentID, schoolID := range seen {
		if studentID == excludeStudent {
			continue
		}
		occ.total++
		occ.bySchool[schoolID]++
	}
	return occ
}

// evaluate applies the global and per-school caps of event to occ.
func evaluate(event *domain.Event, occ occupancy, schoolID string) Admission {
	a := Admission{Admissible: true}
	if event.MaxParticipants != nil && occ.total >= *event.MaxParticipants {
		a.Admissible = false
		a.Reasons = append(a.Reasons,
			fmt.Sprintf("This event has reached the maximum participant limit (%d)", *event.MaxParticipants))
	}
	if event.MaxParticipantsPerSchool != nil && occ.bySchool[schoolID] >= *event.MaxParticipantsPerSchool {
		a.Admissible = false
		a.Reasons = append(a.Reasons,
			fmt.Sprintf("This school has reached the maximum participant limit (%d) for this event", *event.MaxParticipantsPerSchool))
	}
	return a
}

// CheckAdmission decides whether one more student of schoolID fits in event. The request identified
// by excludeRequestID, if any, never counts against itself. Callers hold the event lock, so ledger
// must be bound to the same transaction.
func CheckAdmission(ctx context.Context, ledger domain.RequestLedger, event *domain.Event, schoolID, excludeRequestID string) (Admission, error) {
	if event.MaxParticipants == nil && event.MaxParticipantsPerSchool == nil {
		return Admission{Admissible: true}, nil
	}
	requests, err := ledger.FindByEvent(ctx, event.ID, domain.OccupyingStatuses...)
	if err != nil {
		return Admission{}, fmt.Errorf("list occupying requests: %w", err)
	}
	excludeStudent := ""
	if excludeRequestID != "" {
		for _, req := range requests {
			if req.ID == excludeRequestID {
				excludeStudent = req.StudentID
				break
			}
		}
		if excludeStudent == "" {
			req, err := ledger.GetByID(ctx, excludeRequestID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return Admission{}, fmt.Errorf("get excluded request: %w", err)
			}
			if req != nil && req.EventID == event.ID {
				excludeStudent = req.StudentID
			}
		}
	}
	return evaluate(event, countOccupied(event, requests, excludeStudent), schoolID), nil
}

// Summary reports occupied and remaining capacity of event for dashboards. requests should hold
// the event's PENDING, APPROVED and ENROLLED requests.
func Summary(event *domain.Event, requests []*domain.ParticipationRequest, schoolID string) domain.CapacitySummary {
	occ := countOccupied(event, requests, "")
	sum := domain.CapacitySummary{
		GlobalEnrolled: occ.total,
		GlobalCap:      event.MaxParticipants,
		SchoolID:       schoolID,
		SchoolEnrolled: occ.bySchool[schoolID],
		SchoolCap:      event.MaxParticipantsPerSchool,
	}
	for _, req := range requests {
		if req.Status == domain.RequestPending && (schoolID == "" || req.SchoolID == schoolID) {
			sum.SchoolPending++
		}
	}
	if schoolID == "" {
		sum.SchoolEnrolled = occ.total
	}
	sum.GlobalRemaining = remaining(event.MaxParticipants, sum.GlobalEnrolled)
	sum.SchoolRemaining = remaining(event.MaxParticipantsPerSchool, sum.SchoolEnrolled)
	if sum.GlobalRemaining != nil && sum.SchoolRemaining != nil && *sum.GlobalRemaining < *sum.SchoolRemaining {
		v := *sum.GlobalRemaining
		sum.SchoolRemaining = &v
	}
	return sum
}

func remaining(limit *int, used int) *int {
	if limit == nil {
		return nil
	}
	left := *limit - used
	if left < 0 {
		left = 0
	}
	return &left
}
