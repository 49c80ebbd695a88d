package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schoolevents/internal/domain"
)

// lockTimeout bounds how long a transaction waits for another holder of the same event row.
const lockTimeout = "5s"

type txManager struct {
	DB *sql.DB
}

// NewTxManager returns a TxManager that serializes per-event work with SELECT ... FOR UPDATE.
func NewTxManager(db *sql.DB) domain.TxManager {
	return &txManager{
		DB: db,
	}
}

type participationTx struct {
	events   domain.EventRepository
	requests domain.RequestLedger
	roster   domain.RosterRepository
	activity domain.ActivityRepository
}

func newParticipationTx(q Querier) *participationTx {
	return &participationTx{
		events:   NewEventRepository(q),
		requests: NewParticipationRequestRepository(q),
		roster:   NewRosterRepository(q),
		activity: NewActivityRepository(q),
	}
}

func (t *participationTx) Events() domain.EventRepository      { return t.events }
func (t *participationTx) Requests() domain.RequestLedger      { return t.requests }
func (t *participationTx) Roster() domain.RosterRepository     { return t.roster }
func (t *participationTx) Activity() domain.ActivityRepository { return t.activity }

func (m *txManager) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", translateError(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `SET LOCAL lock_timeout = '`+lockTimeout+`'`); err != nil {
		return translateError(err)
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", translateError(err))
	}
	return nil
}

func lockEvent(ctx context.Context, tx *sql.Tx, eventID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1 FOR UPDATE`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translateError(err)
	}
	return event, nil
}

func (m *txManager) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error) error {
	return m.inTx(ctx, func(tx *sql.Tx) error {
		event, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		members, err := listRosterMembers(ctx, tx, `WHERE event_id = $1`, eventID)
		if err != nil {
			return translateError(err)
		}
		event.Participants = domain.BuildRoster(members)
		return fn(ctx, newParticipationTx(tx), event)
	})
}

func (m *txManager) DeleteEvent(ctx context.Context, eventID string, entry *domain.ActivityEntry) error {
	return m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM event_participants WHERE event_id = $1`,
			`DELETE FROM participation_requests WHERE event_id = $1`,
			`DELETE FROM events WHERE id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, eventID); err != nil {
				return translateError(err)
			}
		}
		if entry != nil {
			return NewActivityRepository(tx).Log(ctx, entry)
		}
		return nil
	})
}
