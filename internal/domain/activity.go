package domain

import (
	"context"
	"time"
)

// Activity actions recorded alongside ledger and event changes.
const (
	ActivityRequestCreated     = "request.created"
	ActivityRequestApproved    = "request.approved"
	ActivityRequestRejected    = "request.rejected"
	ActivityRequestEnrolled    = "request.enrolled"
	ActivityRequestWithdrawn   = "request.withdrawn"
	ActivityStudentAdded       = "student.added"
	ActivityStudentRemoved     = "student.removed"
	ActivityRosterReconciled   = "roster.reconciled"
	ActivityEventCreated       = "event.created"
	ActivityEventStatusChanged = "event.status_changed"
	ActivityEventDeleted       = "event.deleted"
)

// ActivityEntry is one audit record.
type ActivityEntry struct {
	ID        int64
	ActorID   string
	Action    string
	EventID   string
	RequestID string
	Details   string
	CreatedAt time.Time
}

// ActivityRepository appends audit records.
type ActivityRepository interface {
	Log(ctx context.Context, entry *ActivityEntry) error
}
