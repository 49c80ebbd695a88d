package postgres

import (
	"context"

	"schoolevents/internal/domain"
)

type rosterRepository struct {
	DB Querier
}

// NewRosterRepository returns the event_participants store. Writes are expected to run
// inside an event-locked transaction.
func NewRosterRepository(db Querier) domain.RosterRepository {
	return &rosterRepository{
		DB: db,
	}
}

func listRosterMembers(ctx context.Context, db Querier, where string, args ...any) ([]domain.RosterMember, error) {
	query := `
		SELECT event_id, school_id, student_id, joined_at
		FROM event_participants
		` + where + `
		ORDER BY joined_at, student_id
	`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]domain.RosterMember, 0)
	for rows.Next() {
		var m domain.RosterMember
		if err := rows.Scan(&m.EventID, &m.SchoolID, &m.StudentID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *rosterRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.RosterMember, error) {
	return listRosterMembers(ctx, r.DB, `WHERE event_id = $1`, eventID)
}

func (r *rosterRepository) Add(ctx context.Context, m domain.RosterMember) (bool, error) {
	query := `
		INSERT INTO event_participants (event_id, school_id, student_id, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, student_id) DO NOTHING
	`
	result, err := r.DB.ExecContext(ctx, query, m.EventID, m.SchoolID, m.StudentID, m.JoinedAt)
	if err != nil {
		return false, translateError(err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *rosterRepository) Remove(ctx context.Context, eventID, studentID string) (bool, error) {
	query := `DELETE FROM event_participants WHERE event_id = $1 AND student_id = $2`
	result, err := r.DB.ExecContext(ctx, query, eventID, studentID)
	if err != nil {
		return false, translateError(err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *rosterRepository) Replace(ctx context.Context, eventID string, members []domain.RosterMember) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM event_participants WHERE event_id = $1`, eventID); err != nil {
		return translateError(err)
	}
	for _, m := range members {
		if _, err := r.Add(ctx, domain.RosterMember{
			EventID:   eventID,
			SchoolID:  m.SchoolID,
			StudentID: m.StudentID,
			JoinedAt:  m.JoinedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}
