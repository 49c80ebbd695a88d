package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"schoolevents/internal/domain"
)

// memStore is an in-memory stand-in for the Postgres schema. WithEventLock serializes all
// transactions and rolls back on error, like the row lock and transaction it replaces.
type memStore struct {
	txLock sync.Mutex

	mu        sync.Mutex
	events    map[string]*domain.Event
	students  map[string]*domain.Student
	roster    []domain.RosterMember
	requests  []*domain.ParticipationRequest
	activity  []domain.ActivityEntry
	nextID    int
	failNotif error
}

type memSnapshot struct {
	events   map[string]*domain.Event
	roster   []domain.RosterMember
	requests []*domain.ParticipationRequest
	activity []domain.ActivityEntry
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[string]*domain.Event),
		students: make(map[string]*domain.Student),
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make(map[string]*domain.Event, len(s.events))
	for k, v := range s.events {
		events[k] = v
	}
	return memSnapshot{
		events:   events,
		roster:   append([]domain.RosterMember(nil), s.roster...),
		requests: append([]*domain.ParticipationRequest(nil), s.requests...),
		activity: append([]domain.ActivityEntry(nil), s.activity...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.events
	s.roster = snap.roster
	s.requests = snap.requests
	s.activity = snap.activity
}

// withRoster returns a copy of e carrying its current roster. Caller holds mu.
func (s *memStore) withRoster(e *domain.Event) *domain.Event {
	c := *e
	c.EligibleGrades = append([]string{}, e.EligibleGrades...)
	var members []domain.RosterMember
	for _, m := range s.roster {
		if m.EventID == e.ID {
			members = append(members, m)
		}
	}
	c.Participants = domain.BuildRoster(members)
	return &c
}

func (s *memStore) addEvent(e *domain.Event) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.id("ev")
	}
	c := *e
	c.Participants = nil
	s.events[e.ID] = &c
	for _, entry := range e.Participants {
		for _, studentID := range entry.Students {
			s.roster = append(s.roster, domain.RosterMember{EventID: e.ID, SchoolID: entry.SchoolID, StudentID: studentID, JoinedAt: entry.JoinedAt})
		}
	}
	return e
}

func (s *memStore) addStudent(st *domain.Student) *domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return st
}

func (s *memStore) event(id string) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRoster(s.events[id])
}

func (s *memStore) request(id string) *domain.ParticipationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			c := *r
			return &c
		}
	}
	return nil
}

func (s *memStore) activityActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.activity))
	for _, a := range s.activity {
		out = append(out, a.Action)
	}
	return out
}

// memEvents implements domain.EventRepository.
type memEvents struct{ s *memStore }

func (r memEvents) Create(ctx context.Context, e *domain.Event) error {
	r.s.addEvent(e)
	return nil
}

func (r memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.s.withRoster(e), nil
}

func (r memEvents) List(ctx context.Context, f domain.EventFilter) ([]*domain.Event, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, stored := range r.s.events {
		e := r.s.withRoster(stored)
		if f.SchoolID != "" && e.SchoolID != f.SchoolID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.Status) {
			continue
		}
		if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
			continue
		}
		if f.Grade != "" && !e.GradeEligible(f.Grade) {
			continue
		}
		if f.StartsAfter != nil && !e.Date.After(*f.StartsAfter) {
			continue
		}
		if f.StartsBefore != nil && !e.Date.Before(*f.StartsBefore) {
			continue
		}
		if f.RegistrationOpenAt != nil && e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(*f.RegistrationOpenAt) {
			continue
		}
		if f.NotFull && e.MaxParticipants != nil && e.EnrolledCount() >= *e.MaxParticipants {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Description), strings.ToLower(strings.TrimSpace(f.Search))) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortDesc {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	total := len(out)
	if limit := f.Page.Limit(); limit > 0 {
		start := f.Page.Offset()
		if start > len(out) {
			start = len(out)
		}
		end := start + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	if out == nil {
		out = []*domain.Event{}
	}
	return out, total, nil
}

func (r memEvents) Update(ctx context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *e
	c.Participants = nil
	r.s.events[e.ID] = &c
	return nil
}

func (r memEvents) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	c := *e
	c.Status = status
	r.s.events[id] = &c
	return nil
}

func (r memEvents) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

// memLedger implements domain.RequestLedger.
type memLedger struct{ s *memStore }

func (l memLedger) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.requests {
		if r.StudentID == req.StudentID && r.EventID == req.EventID && r.Status.IsActive() {
			return domain.ErrDuplicateRequest
		}
	}
	req.ID = l.s.id("req")
	c := *req
	l.s.requests = append(l.s.requests, &c)
	return nil
}

func (l memLedger) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.requests {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (l memLedger) FindActiveByPair(ctx context.Context, studentID, eventID string) (*domain.ParticipationRequest, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.requests {
		if r.StudentID == studentID && r.EventID == eventID && r.Status.IsActive() {
			c := *r
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (l memLedger) FindLatestByPair(ctx context.Context, studentID, eventID string) (*domain.ParticipationRequest, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for i := len(l.s.requests) - 1; i >= 0; i-- {
		r := l.s.requests[i]
		if r.StudentID == studentID && r.EventID == eventID {
			c := *r
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (l memLedger) FindByEvent(ctx context.Context, eventID string, statuses ...domain.RequestStatus) ([]*domain.ParticipationRequest, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := make([]*domain.ParticipationRequest, 0)
	for _, r := range l.s.requests {
		if r.EventID == eventID && (len(statuses) == 0 || containsStatus(statuses, r.Status)) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (l memLedger) ListByStudent(ctx context.Context, studentID string, statuses []domain.RequestStatus, page domain.PaginationParams) ([]*domain.ParticipationRequest, int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := make([]*domain.ParticipationRequest, 0)
	for i := len(l.s.requests) - 1; i >= 0; i-- {
		r := l.s.requests[i]
		if r.StudentID == studentID && (len(statuses) == 0 || containsStatus(statuses, r.Status)) {
			c := *r
			out = append(out, &c)
		}
	}
	total := len(out)
	if limit := page.Limit(); limit > 0 {
		start := page.Offset()
		if start > len(out) {
			start = len(out)
		}
		end := start + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (l memLedger) CountApproved(ctx context.Context, eventID, schoolID, excludeID string) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	n := 0
	for _, r := range l.s.requests {
		if r.EventID == eventID && r.Status == domain.RequestApproved && (schoolID == "" || r.SchoolID == schoolID) && r.ID != excludeID {
			n++
		}
	}
	return n, nil
}

func (l memLedger) CountByStatus(ctx context.Context, eventID, schoolID string, statuses ...domain.RequestStatus) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	n := 0
	for _, r := range l.s.requests {
		if r.EventID == eventID && (schoolID == "" || r.SchoolID == schoolID) && (len(statuses) == 0 || containsStatus(statuses, r.Status)) {
			n++
		}
	}
	return n, nil
}

func (l memLedger) Transition(ctx context.Context, id string, next domain.RequestStatus, meta domain.TransitionMeta) (*domain.ParticipationRequest, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for i, r := range l.s.requests {
		if r.ID != id {
			continue
		}
		c := *r
		if err := c.Apply(next, meta); err != nil {
			return nil, err
		}
		l.s.requests[i] = &c
		out := c
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (l memLedger) MarkNotified(ctx context.Context, id string, at time.Time) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.failNotif != nil {
		return l.s.failNotif
	}
	for i, r := range l.s.requests {
		if r.ID == id {
			c := *r
			c.StudentNotifiedAt = &at
			l.s.requests[i] = &c
			return nil
		}
	}
	return domain.ErrNotFound
}

// memRoster implements domain.RosterRepository.
type memRoster struct{ s *memStore }

func (r memRoster) ListByEvent(ctx context.Context, eventID string) ([]domain.RosterMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.RosterMember, 0)
	for _, m := range r.s.roster {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memRoster) Add(ctx context.Context, m domain.RosterMember) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roster {
		if existing.EventID == m.EventID && existing.StudentID == m.StudentID {
			return false, nil
		}
	}
	r.s.roster = append(r.s.roster, m)
	return true, nil
}

func (r memRoster) Remove(ctx context.Context, eventID, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, m := range r.s.roster {
		if m.EventID == eventID && m.StudentID == studentID {
			r.s.roster = append(r.s.roster[:i:i], r.s.roster[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r memRoster) Replace(ctx context.Context, eventID string, members []domain.RosterMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]domain.RosterMember, 0, len(r.s.roster))
	for _, m := range r.s.roster {
		if m.EventID != eventID {
			kept = append(kept, m)
		}
	}
	for _, m := range members {
		m.EventID = eventID
		kept = append(kept, m)
	}
	r.s.roster = kept
	return nil
}

// memActivity implements domain.ActivityRepository.
type memActivity struct{ s *memStore }

func (a memActivity) Log(ctx context.Context, entry *domain.ActivityEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	entry.ID = int64(len(a.s.activity) + 1)
	a.s.activity = append(a.s.activity, *entry)
	return nil
}

// memStudents implements domain.StudentRepository.
type memStudents struct{ s *memStore }

func (r memStudents) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.students[id]; ok {
		return st, nil
	}
	return nil, domain.ErrNotFound
}

func (r memStudents) GetByUserID(ctx context.Context, userID string) (*domain.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if st.UserID == userID {
			return st, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memStudents) ListByIDs(ctx context.Context, ids []string) (map[string]*domain.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*domain.Student)
	for _, id := range ids {
		if st, ok := r.s.students[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

// memTx implements domain.TxManager and domain.ParticipationTx.
type memTx struct{ s *memStore }

func (t memTx) Events() domain.EventRepository      { return memEvents{t.s} }
func (t memTx) Requests() domain.RequestLedger      { return memLedger{t.s} }
func (t memTx) Roster() domain.RosterRepository     { return memRoster{t.s} }
func (t memTx) Activity() domain.ActivityRepository { return memActivity{t.s} }

func (t memTx) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.ParticipationTx, event *domain.Event) error) error {
	t.s.txLock.Lock()
	defer t.s.txLock.Unlock()
	event, err := memEvents{t.s}.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	snap := t.s.snapshot()
	if err := fn(ctx, t, event); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

func (t memTx) DeleteEvent(ctx context.Context, eventID string, entry *domain.ActivityEntry) error {
	t.s.txLock.Lock()
	defer t.s.txLock.Unlock()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.events[eventID]; !ok {
		return domain.ErrNotFound
	}
	delete(t.s.events, eventID)
	var roster []domain.RosterMember
	for _, m := range t.s.roster {
		if m.EventID != eventID {
			roster = append(roster, m)
		}
	}
	t.s.roster = roster
	var requests []*domain.ParticipationRequest
	for _, r := range t.s.requests {
		if r.EventID != eventID {
			requests = append(requests, r)
		}
	}
	t.s.requests = requests
	if entry != nil {
		t.s.activity = append(t.s.activity, *entry)
	}
	return nil
}

// recordingEmail implements domain.EmailService.
type recordingEmail struct {
	mu   sync.Mutex
	sent []*domain.ParticipationDecisionEmailData
	err  error
}

func (e *recordingEmail) SendParticipationDecision(ctx context.Context, data *domain.ParticipationDecisionEmailData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, data)
	return nil
}

func (e *recordingEmail) statuses() []domain.RequestStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.RequestStatus, 0, len(e.sent))
	for _, d := range e.sent {
		out = append(out, d.Status)
	}
	return out
}

func containsStatus[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	return containsStatus(set, v)
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires the coordinator, hub and event services over one memStore with a fixed clock.
type fixture struct {
	store         *memStore
	email         *recordingEmail
	participation *participationService
	hub           *hubService
	events        *eventService
	now           time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	email := &recordingEmail{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	ps := NewParticipationService(memEvents{store}, memStudents{store}, memLedger{store}, memTx{store}, email, discardLogger(), 5*time.Second).(*participationService)
	ps.now = clock
	hs := NewHubService(memEvents{store}, memStudents{store}, memLedger{store}, 5*time.Second).(*hubService)
	hs.now = clock
	es := NewEventService(memEvents{store}, memLedger{store}, memActivity{store}, memTx{store}, 5*time.Second).(*eventService)
	es.now = clock
	return &fixture{store: store, email: email, participation: ps, hub: hs, events: es, now: now}
}

// advance moves the fixture clock forward by d.
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	clock := func() time.Time { return f.now }
	f.participation.now = clock
	f.hub.now = clock
	f.events.now = clock
}

func intp(n int) *int { return &n }

func (f *fixture) approvedEvent(schoolID string, maxTotal, maxSchool *int, grades ...string) *domain.Event {
	if grades == nil {
		grades = []string{}
	}
	return f.store.addEvent(&domain.Event{
		SchoolID:                 schoolID,
		Title:                    "Science Fair",
		Date:                     f.now.Add(30 * 24 * time.Hour),
		EligibleGrades:           grades,
		MaxParticipants:          maxTotal,
		MaxParticipantsPerSchool: maxSchool,
		Status:                   domain.EventStatusApproved,
		CreatedBy:                "admin-user",
		CreatedAt:                f.now,
		UpdatedAt:                f.now,
	})
}

func (f *fixture) student(id, schoolID, grade string) (*domain.Student, domain.Principal) {
	st := f.store.addStudent(&domain.Student{
		ID:       id,
		UserID:   "user-" + id,
		SchoolID: schoolID,
		Name:     "Student " + id,
		Email:    id + "@example.com",
		Grade:    grade,
	})
	return st, domain.Principal{UserID: st.UserID, Role: domain.RoleStudent, SchoolID: schoolID}
}

func teacher(schoolID string) domain.Principal {
	return domain.Principal{UserID: "teacher-" + schoolID, Role: domain.RoleTeacher, SchoolID: schoolID}
}

func admin(schoolID string) domain.Principal {
	return domain.Principal{UserID: "admin-" + schoolID, Role: domain.RoleAdmin, SchoolID: schoolID}
}

var superAdmin = domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin}
