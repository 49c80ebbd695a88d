package domain

import (
	"context"
	"time"
)

// Student is the read model of a student profile owned by the student-management subsystem.
// swagger:model Student
type Student struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentRepository reads student profiles.
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*Student, error)
	GetByUserID(ctx context.Context, userID string) (*Student, error)
	ListByIDs(ctx context.Context, ids []string) (map[string]*Student, error)
}
