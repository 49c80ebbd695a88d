package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"schoolevents/internal/domain"
)

type studentRepository struct {
	DB Querier
}

func NewStudentRepository(db Querier) domain.StudentRepository {
	return &studentRepository{
		DB: db,
	}
}

const studentColumns = `id, user_id, school_id, name, email, grade, created_at`

func scanStudent(s scanner) (*domain.Student, error) {
	st := &domain.Student{}
	var grade sql.NullString
	if err := s.Scan(&st.ID, &st.UserID, &st.SchoolID, &st.Name, &st.Email, &grade, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.Grade = grade.String
	return st, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	st, err := scanStudent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1`
	st, err := scanStudent(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

// ListByIDs returns the students found among ids keyed by id. Unknown ids are omitted.
func (r *studentRepository) ListByIDs(ctx context.Context, ids []string) (map[string]*domain.Student, error) {
	out := make(map[string]*domain.Student, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out[st.ID] = st
	}
	return out, rows.Err()
}
