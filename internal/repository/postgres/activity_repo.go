package postgres

import (
	"context"

	"schoolevents/internal/domain"
)

type activityRepository struct {
	DB Querier
}

func NewActivityRepository(db Querier) domain.ActivityRepository {
	return &activityRepository{
		DB: db,
	}
}

func (r *activityRepository) Log(ctx context.Context, entry *domain.ActivityEntry) error {
	query := `
		INSERT INTO activity_logs (actor_id, action, event_id, request_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		entry.ActorID, entry.Action, nullString(entry.EventID), nullString(entry.RequestID), entry.Details, entry.CreatedAt,
	).Scan(&entry.ID)
	return translateError(err)
}
