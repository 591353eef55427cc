package model

// Role is the caller's role as carried in the bearer token.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the actor may override ownership rules.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor created the resource or is an admin.
func (a Actor) Owns(creatorID int64) bool {
	return a.IsAdmin() || a.UserID == creatorID
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
