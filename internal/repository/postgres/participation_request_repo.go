package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"schoolevents/internal/domain"
)

const requestColumns = `id, student_id, event_id, school_id, status, requested_at,
		approved_at, approved_by, rejected_at, rejection_reason, enrollment_confirmed_at,
		student_notified_at, withdrawn_at, withdrawn_by, force_enrolled, updated_at`

type participationRequestRepository struct {
	DB Querier
}

// NewParticipationRequestRepository returns the Postgres request ledger.
func NewParticipationRequestRepository(db Querier) domain.RequestLedger {
	return &participationRequestRepository{
		DB: db,
	}
}

func scanRequest(s scanner) (*domain.ParticipationRequest, error) {
	req := &domain.ParticipationRequest{}
	var status string
	var approvedAt, rejectedAt, enrolledAt, notifiedAt, withdrawnAt sql.NullTime
	var approvedBy, reason, withdrawnBy sql.NullString
	err := s.Scan(
		&req.ID, &req.StudentID, &req.EventID, &req.SchoolID, &status, &req.RequestedAt,
		&approvedAt, &approvedBy, &rejectedAt, &reason, &enrolledAt,
		&notifiedAt, &withdrawnAt, &withdrawnBy, &req.ForceEnrolled, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	req.ApprovedAt = timePtr(approvedAt)
	req.ApprovedBy = stringPtr(approvedBy)
	req.RejectedAt = timePtr(rejectedAt)
	req.RejectionReason = stringPtr(reason)
	req.EnrollmentConfirmedAt = timePtr(enrolledAt)
	req.StudentNotifiedAt = timePtr(notifiedAt)
	req.WithdrawnAt = timePtr(withdrawnAt)
	req.WithdrawnBy = stringPtr(withdrawnBy)
	return req, nil
}

func optString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func (r *participationRequestRepository) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	query := `
		INSERT INTO participation_requests (student_id, event_id, school_id, status, requested_at,
			approved_at, approved_by, force_enrolled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		req.StudentID, req.EventID, req.SchoolID, string(req.Status), req.RequestedAt,
		nullTime(req.ApprovedAt), optString(req.ApprovedBy), req.ForceEnrolled, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRequest
		}
		return translateError(err)
	}
	return nil
}

func (r *participationRequestRepository) getOne(ctx context.Context, where string, args ...any) (*domain.ParticipationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM participation_requests ` + where
	req, err := scanRequest(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translateError(err)
	}
	return req, nil
}

func (r *participationRequestRepository) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *participationRequestRepository) FindActiveByPair(ctx context.Context, studentID, eventID string) (*domain.ParticipationRequest, error) {
	return r.getOne(ctx, `WHERE student_id = $1 AND event_id = $2 AND status = ANY($3) LIMIT 1`,
		studentID, eventID, pq.Array(statusStrings(domain.ActiveStatuses)))
}

func (r *participationRequestRepository) FindLatestByPair(ctx context.Context, studentID, eventID string) (*domain.ParticipationRequest, error) {
	return r.getOne(ctx, `WHERE student_id = $1 AND event_id = $2 ORDER BY requested_at DESC, id DESC LIMIT 1`,
		studentID, eventID)
}

func (r *participationRequestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ParticipationRequest, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	out := make([]*domain.ParticipationRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *participationRequestRepository) FindByEvent(ctx context.Context, eventID string, statuses ...domain.RequestStatus) ([]*domain.ParticipationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM participation_requests WHERE event_id = $1`
	args := []any{eventID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY requested_at, id`
	return r.list(ctx, query, args...)
}

func (r *participationRequestRepository) ListByStudent(ctx context.Context, studentID string, statuses []domain.RequestStatus, page domain.PaginationParams) ([]*domain.ParticipationRequest, int, error) {
	where := ` WHERE student_id = $1`
	args := []any{studentID}
	if len(statuses) > 0 {
		where += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM participation_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, translateError(err)
	}
	query := `SELECT ` + requestColumns + ` FROM participation_requests` + where + ` ORDER BY requested_at DESC, id DESC`
	if limit := page.Limit(); limit > 0 {
		args = append(args, limit, page.Offset())
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	out, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *participationRequestRepository) CountApproved(ctx context.Context, eventID, schoolID, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM participation_requests WHERE event_id = $1 AND status = $2`
	args := []any{eventID, string(domain.RequestApproved)}
	if schoolID != "" {
		args = append(args, schoolID)
		query += fmt.Sprintf(` AND school_id = $%d`, len(args))
	}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(` AND id <> $%d`, len(args))
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

func (r *participationRequestRepository) CountByStatus(ctx context.Context, eventID, schoolID string, statuses ...domain.RequestStatus) (int, error) {
	query := `SELECT COUNT(*) FROM participation_requests WHERE event_id = $1`
	args := []any{eventID}
	if schoolID != "" {
		args = append(args, schoolID)
		query += fmt.Sprintf(` AND school_id = $%d`, len(args))
	}
	if len(statuses) > 0 {
		args = append(args, pq.Array(statusStrings(statuses)))
		query += fmt.Sprintf(` AND status = ANY($%d)`, len(args))
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// Transition moves a request along one state-machine edge with a single conditional update,
// so a concurrent transition of the same request can never be applied twice.
func (r *participationRequestRepository) Transition(ctx context.Context, id string, next domain.RequestStatus, meta domain.TransitionMeta) (*domain.ParticipationRequest, error) {
	from := domain.Predecessors(next)
	if len(from) == 0 {
		return nil, domain.ErrInvalidTransition
	}
	args := []any{string(next), meta.At}
	set := []string{"status = $1", "updated_at = $2"}
	stamp := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	switch next {
	case domain.RequestApproved:
		stamp("approved_at", meta.At)
		stamp("approved_by", nullString(meta.Actor))
	case domain.RequestRejected:
		stamp("rejected_at", meta.At)
		stamp("rejection_reason", nullString(meta.Reason))
	case domain.RequestEnrolled:
		stamp("enrollment_confirmed_at", meta.At)
	case domain.RequestWithdrawn:
		stamp("withdrawn_at", meta.At)
		stamp("withdrawn_by", nullString(meta.Actor))
	}
	args = append(args, id, pq.Array(statusStrings(from)))
	query := fmt.Sprintf(`
		UPDATE participation_requests SET %s
		WHERE id = $%d AND status = ANY($%d)
		RETURNING %s
	`, strings.Join(set, ", "), len(args)-1, len(args), requestColumns)

	req, err := scanRequest(r.DB.QueryRowContext(ctx, query, args...))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translateError(err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

func (r *participationRequestRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE participation_requests SET student_notified_at = $1 WHERE id = $2`
	result, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return translateError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
