package domain

import "context"

// ParticipationTx is the set of stores bound to one event-locked transaction.
type ParticipationTx interface {
	Events() EventRepository
	Requests() RequestLedger
	Roster() RosterRepository
	Activity() ActivityRepository
}

// TxManager serializes work on one event.
type TxManager interface {
	// WithEventLock runs fn in a single transaction holding an exclusive lock on the event row.
	// event is the locked snapshot including its roster. fn's error rolls the transaction back.
	WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx ParticipationTx, event *Event) error) error
	// DeleteEvent removes the event with its requests and roster in one transaction.
	DeleteEvent(ctx context.Context, eventID string, entry *ActivityEntry) error
}
