package domain

import "time"

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller: identity-provider subject, role and school.
type Principal struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	SchoolID string `json:"school_id"`
}

func (p Principal) IsStudent() bool    { return p.Role == RoleStudent }
func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }

// IsStaff reports whether the caller may review and manage participation.
func (p Principal) IsStaff() bool {
	return p.Role == RoleTeacher || p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

// CanManageSchool reports whether the caller may act on records belonging to schoolID.
func (p Principal) CanManageSchool(schoolID string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return p.IsStaff() && p.SchoolID != "" && p.SchoolID == schoolID
}

// CanAdministerEvent reports whether the caller may change the event itself
// (details, status, deletion, roster repair).
func (p Principal) CanAdministerEvent(e *Event) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return p.Role == RoleAdmin && p.SchoolID != "" && p.SchoolID == e.SchoolID
}

// TokenVerifier validates a bearer token issued by the identity provider and returns its principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// TokenIssuer signs tokens for a principal. Used for local development and tests.
type TokenIssuer interface {
	Issue(p Principal, expiry time.Duration) (string, error)
}
