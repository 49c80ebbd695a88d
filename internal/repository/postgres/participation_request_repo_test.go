package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"schoolevents/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var requestRowColumns = []string{
	"id", "student_id", "event_id", "school_id", "status", "requested_at",
	"approved_at", "approved_by", "rejected_at", "rejection_reason", "enrollment_confirmed_at",
	"student_notified_at", "withdrawn_at", "withdrawn_by", "force_enrolled", "updated_at",
}

func TestParticipationRequestRepository_Create(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO participation_requests`).
					WithArgs("stu-1", "ev-1", "school-1", "PENDING", at, nil, nil, false, at).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))
			},
			wantID: "req-1",
		},
		{
			name: "active duplicate",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO participation_requests`).
					WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
			},
			wantErr: domain.ErrDuplicateRequest,
		},
		{
			name: "lock timeout",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO participation_requests`).
					WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewParticipationRequestRepository(db)
			req := domain.NewParticipationRequest("stu-1", "ev-1", "school-1", at)
			err = repo.Create(ctx, req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, req.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestParticipationRequestRepository_Transition(t *testing.T) {
	ctx := context.Background()
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		next    domain.RequestStatus
		meta    domain.TransitionMeta
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		check   func(t *testing.T, got *domain.ParticipationRequest)
	}{
		{
			name: "approve pending",
			next: domain.RequestApproved,
			meta: domain.TransitionMeta{At: at, Actor: "teacher-1"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE participation_requests SET status = \$1, updated_at = \$2, approved_at = \$3, approved_by = \$4 WHERE id = \$5 AND status = ANY\(\$6\) RETURNING`).
					WithArgs("APPROVED", at, at, "teacher-1", "req-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(requestRowColumns).
						AddRow("req-1", "stu-1", "ev-1", "school-1", "APPROVED", requested,
							at, "teacher-1", nil, nil, nil, nil, nil, nil, false, at))
			},
			check: func(t *testing.T, got *domain.ParticipationRequest) {
				require.Equal(t, domain.RequestApproved, got.Status)
				require.NotNil(t, got.ApprovedAt)
				require.Equal(t, at, *got.ApprovedAt)
				require.Equal(t, "teacher-1", *got.ApprovedBy)
				require.Nil(t, got.RejectedAt)
			},
		},
		{
			name: "reject stamps reason",
			next: domain.RequestRejected,
			meta: domain.TransitionMeta{At: at, Reason: "Not eligible this term"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SET status = \$1, updated_at = \$2, rejected_at = \$3, rejection_reason = \$4`).
					WithArgs("REJECTED", at, at, "Not eligible this term", "req-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(requestRowColumns).
						AddRow("req-1", "stu-1", "ev-1", "school-1", "REJECTED", requested,
							nil, nil, at, "Not eligible this term", nil, nil, nil, nil, false, at))
			},
			check: func(t *testing.T, got *domain.ParticipationRequest) {
				require.Equal(t, domain.RequestRejected, got.Status)
				require.Equal(t, "Not eligible this term", *got.RejectionReason)
			},
		},
		{
			name: "status does not allow edge",
			next: domain.RequestEnrolled,
			meta: domain.TransitionMeta{At: at},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE participation_requests SET status = \$1, updated_at = \$2, enrollment_confirmed_at = \$3`).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(`SELECT id, student_id, event_id.+FROM participation_requests WHERE id = \$1`).
					WithArgs("req-1").
					WillReturnRows(sqlmock.NewRows(requestRowColumns).
						AddRow("req-1", "stu-1", "ev-1", "school-1", "PENDING", requested,
							nil, nil, nil, nil, nil, nil, nil, nil, false, requested))
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "unknown request",
			next: domain.RequestWithdrawn,
			meta: domain.TransitionMeta{At: at, Actor: "stu-user"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE participation_requests`).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(`FROM participation_requests WHERE id = \$1`).
					WithArgs("req-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "no edge leads to pending",
			next:    domain.RequestPending,
			meta:    domain.TransitionMeta{At: at},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewParticipationRequestRepository(db)
			got, err := repo.Transition(ctx, "req-1", tt.next, tt.meta)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestParticipationRequestRepository_CountApproved(t *testing.T) {
	tests := []struct {
		name      string
		schoolID  string
		excludeID string
		mock      func(mock sqlmock.Sqlmock)
		want      int
	}{
		{
			name: "whole event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM participation_requests WHERE event_id = \$1 AND status = \$2$`).
					WithArgs("ev-1", "APPROVED").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
			},
			want: 7,
		},
		{
			name:      "one school excluding a request",
			schoolID:  "school-1",
			excludeID: "req-9",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`AND school_id = \$3 AND id <> \$4`).
					WithArgs("ev-1", "APPROVED", "school-1", "req-9").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewParticipationRequestRepository(db)
			got, err := repo.CountApproved(context.Background(), "ev-1", tt.schoolID, tt.excludeID)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestParticipationRequestRepository_ListByStudent(t *testing.T) {
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM participation_requests WHERE student_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs("stu-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY requested_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("stu-1", sqlmock.AnyArg(), 2, 2).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).
			AddRow("req-3", "stu-1", "ev-3", "school-1", "PENDING", requested,
				nil, nil, nil, nil, nil, nil, nil, nil, false, requested))

	repo := NewParticipationRequestRepository(db)
	got, total, err := repo.ListByStudent(context.Background(), "stu-1",
		[]domain.RequestStatus{domain.RequestPending}, domain.PaginationParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, got, 1)
	require.Equal(t, "req-3", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRequestRepository_MarkNotified(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE participation_requests SET student_notified_at = \$1 WHERE id = \$2`).
		WithArgs(at, "req-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewParticipationRequestRepository(db)
	err = repo.MarkNotified(context.Background(), "req-missing", at)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
