package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"schoolevents/internal/domain"
)

const eventColumns = `e.id, e.school_id, e.title, e.description, e.date, e.registration_deadline,
		e.eligible_grades, e.max_participants, e.max_participants_per_school, e.status,
		e.created_by, e.created_at, e.updated_at`

var eventSortColumns = map[string]string{
	domain.EventSortDate:      "e.date",
	domain.EventSortTitle:     "e.title",
	domain.EventSortCreatedAt: "e.created_at",
}

type eventRepository struct {
	DB Querier
}

func NewEventRepository(db Querier) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(s scanner) (*domain.Event, error) {
	e := &domain.Event{}
	var deadline sql.NullTime
	var grades pq.StringArray
	var maxTotal, maxSchool sql.NullInt64
	var status string
	err := s.Scan(
		&e.ID, &e.SchoolID, &e.Title, &e.Description, &e.Date, &deadline,
		&grades, &maxTotal, &maxSchool, &status,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.RegistrationDeadline = timePtr(deadline)
	e.EligibleGrades = []string(grades)
	if e.EligibleGrades == nil {
		e.EligibleGrades = []string{}
	}
	e.MaxParticipants = intPtr(maxTotal)
	e.MaxParticipantsPerSchool = intPtr(maxSchool)
	e.Status = domain.EventStatus(status)
	e.Participants = []domain.ParticipantEntry{}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (school_id, title, description, date, registration_deadline, eligible_grades,
			max_participants, max_participants_per_school, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	grades := e.EligibleGrades
	if grades == nil {
		grades = []string{}
	}
	return r.DB.QueryRowContext(ctx, query,
		e.SchoolID, e.Title, e.Description, e.Date, nullTime(e.RegistrationDeadline), pq.Array(grades),
		nullInt(e.MaxParticipants), nullInt(e.MaxParticipantsPerSchool), string(e.Status), e.CreatedBy,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadRosters(ctx, []*domain.Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns one page of events matching filter and the total number of matches.
func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	where, args := eventWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM events e` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := eventSortColumns[filter.SortBy]
	if !ok {
		sortCol = "e.date"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM events e%s ORDER BY %s %s, e.id`, eventColumns, where, sortCol, dir)
	if limit := filter.Page.Limit(); limit > 0 {
		args = append(args, limit, filter.Page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadRosters(ctx, events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func eventWhere(f domain.EventFilter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.SchoolID != "" {
		clauses = append(clauses, "e.school_id = "+arg(f.SchoolID))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, "e.status = ANY("+arg(pq.Array(statuses))+")")
	}
	if len(f.IDs) > 0 {
		clauses = append(clauses, "e.id = ANY("+arg(pq.Array(f.IDs))+")")
	}
	if f.Grade != "" {
		p := arg(strings.TrimSpace(f.Grade))
		clauses = append(clauses, fmt.Sprintf(
			"(cardinality(e.eligible_grades) = 0 OR EXISTS (SELECT 1 FROM unnest(e.eligible_grades) g WHERE lower(trim(g)) = lower(%s)))", p))
	}
	if f.StartsAfter != nil {
		clauses = append(clauses, "e.date > "+arg(*f.StartsAfter))
	}
	if f.StartsBefore != nil {
		clauses = append(clauses, "e.date < "+arg(*f.StartsBefore))
	}
	if f.RegistrationOpenAt != nil {
		clauses = append(clauses, "(e.registration_deadline IS NULL OR e.registration_deadline > "+arg(*f.RegistrationOpenAt)+")")
	}
	if f.NotFull {
		clauses = append(clauses,
			"(e.max_participants IS NULL OR (SELECT COUNT(*) FROM event_participants ep WHERE ep.event_id = e.id) < e.max_participants)")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		clauses = append(clauses, fmt.Sprintf("(e.title ILIKE %s OR e.description ILIKE %s)", p, p))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// loadRosters attaches the roster of every event in one query.
func (r *eventRepository) loadRosters(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, len(events))
	byID := make(map[string]*domain.Event, len(events))
	for i, e := range events {
		ids[i] = e.ID
		byID[e.ID] = e
	}
	members, err := listRosterMembers(ctx, r.DB, `WHERE event_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return err
	}
	grouped := make(map[string][]domain.RosterMember)
	for _, m := range members {
		grouped[m.EventID] = append(grouped[m.EventID], m)
	}
	for id, ms := range grouped {
		if e, ok := byID[id]; ok {
			e.Participants = domain.BuildRoster(ms)
		}
	}
	return nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET title = $1, description = $2, date = $3, registration_deadline = $4,
			eligible_grades = $5, max_participants = $6, max_participants_per_school = $7, updated_at = $8
		WHERE id = $9
	`
	grades := e.EligibleGrades
	if grades == nil {
		grades = []string{}
	}
	result, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Description, e.Date, nullTime(e.RegistrationDeadline), pq.Array(grades),
		nullInt(e.MaxParticipants), nullInt(e.MaxParticipantsPerSchool), e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	query := `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.DB.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
