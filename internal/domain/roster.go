package domain

import (
	"context"
	"sort"
	"time"
)

// ParticipantEntry is one school's slice of an event roster.
// swagger:model ParticipantEntry
type ParticipantEntry struct {
	SchoolID string    `json:"school_id"`
	Students []string  `json:"students"`
	JoinedAt time.Time `json:"joined_at"`
}

// RosterMember is the storage shape of a roster: one row per enrolled student.
type RosterMember struct {
	EventID   string
	SchoolID  string
	StudentID string
	JoinedAt  time.Time
}

// BuildRoster groups members into per-school entries ordered by first join time.
func BuildRoster(members []RosterMember) []ParticipantEntry {
	sorted := make([]RosterMember, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})
	entries := make([]ParticipantEntry, 0)
	index := make(map[string]int)
	for _, m := range sorted {
		i, ok := index[m.SchoolID]
		if !ok {
			index[m.SchoolID] = len(entries)
			entries = append(entries, ParticipantEntry{SchoolID: m.SchoolID, Students: []string{}, JoinedAt: m.JoinedAt})
			i = len(entries) - 1
		}
		entries[i].Students = append(entries[i].Students, m.StudentID)
	}
	return entries
}

// EnrolledCount is the number of students on the roster across all schools.
func (e *Event) EnrolledCount() int {
	n := 0
	for _, entry := range e.Participants {
		n += len(entry.Students)
	}
	return n
}

// SchoolCount is the number of students of schoolID on the roster.
func (e *Event) SchoolCount(schoolID string) int {
	for _, entry := range e.Participants {
		if entry.SchoolID == schoolID {
			return len(entry.Students)
		}
	}
	return 0
}

// HasParticipant reports whether studentID is on the roster.
func (e *Event) HasParticipant(studentID string) bool {
	_, ok := e.participantSchool(studentID)
	return ok
}

func (e *Event) participantSchool(studentID string) (string, bool) {
	for _, entry := range e.Participants {
		for _, s := range entry.Students {
			if s == studentID {
				return entry.SchoolID, true
			}
		}
	}
	return "", false
}

// AddParticipant appends studentID to the entry of schoolID, creating the entry if needed.
// It is idempotent: adding a student already on the roster changes nothing and returns false.
func (e *Event) AddParticipant(schoolID, studentID string, at time.Time) bool {
	if e.HasParticipant(studentID) {
		return false
	}
	for i := range e.Participants {
		if e.Participants[i].SchoolID == schoolID {
			e.Participants[i].Students = append(e.Participants[i].Students, studentID)
			return true
		}
	}
	e.Participants = append(e.Participants, ParticipantEntry{
		SchoolID: schoolID,
		Students: []string{studentID},
		JoinedAt: at,
	})
	return true
}

// RemoveParticipant removes studentID from the roster and prunes its school entry when it
// becomes empty. It returns false when the student was not on the roster.
func (e *Event) RemoveParticipant(studentID string) bool {
	for i := range e.Participants {
		students := e.Participants[i].Students
		for j, s := range students {
			if s != studentID {
				continue
			}
			e.Participants[i].Students = append(students[:j:j], students[j+1:]...)
			if len(e.Participants[i].Students) == 0 {
				e.Participants = append(e.Participants[:i:i], e.Participants[i+1:]...)
			}
			return true
		}
	}
	return false
}

// RosterRepository stores the denormalized roster. Only the enrollment coordinator writes it.
type RosterRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]RosterMember, error)
	// Add inserts the member; adding an existing student is a no-op reported as added=false.
	Add(ctx context.Context, member RosterMember) (added bool, err error)
	// Remove deletes the student's row; removed=false when the student was not on the roster.
	Remove(ctx context.Context, eventID, studentID string) (removed bool, err error)
	// Replace swaps the whole roster of eventID for members.
	Replace(ctx context.Context, eventID string, members []RosterMember) error
}

// RosterRepair reports what a roster reconciliation changed.
// swagger:model RosterRepair
type RosterRepair struct {
	EventID string             `json:"event_id"`
	Added   []string           `json:"added"`
	Removed []string           `json:"removed"`
	Roster  []ParticipantEntry `json:"roster"`
}
