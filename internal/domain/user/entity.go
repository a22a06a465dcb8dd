package user

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"    // HR administrator - final attendance approval, policies, resets
	RoleManager  Role = "manager"  // Can approve leave/attendance
	RoleEmployee Role = "employee" // Regular employee
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User is the directory view of a person the engine accounts for.
type User struct {
	ID          string
	Name        string
	Email       string
	Role        Role
	JoiningDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the authenticated caller, resolved from the bearer token by the HTTP layer
// and passed explicitly into every service call.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin checks if the caller is an HR administrator
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IsManager checks if the caller is a manager or admin
func (i Identity) IsManager() bool {
	return i.Role == RoleManager || i.Role == RoleAdmin
}

// CanApprove checks if the caller can approve requests
func (i Identity) CanApprove() bool {
	return i.IsManager()
}

// CanActFor reports whether the caller may read another user's records.
func (i Identity) CanActFor(userID string) bool {
	return i.UserID == userID || i.IsManager()
}
