package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
)

type WorkLocation string

const (
	WorkLocationOnsite WorkLocation = "Onsite"
	WorkLocationRemote WorkLocation = "Remote"
)

type Status string

const (
	StatusPresent   Status = "Present"
	StatusHalfDay   Status = "Half-Day"
	StatusAbsent    Status = "Absent"
	StatusLeave     Status = "Leave"
	StatusExtraWork Status = "Extra-Work"
)

// ApprovalState is the single source of truth for the approval workflow.
// The public approval status and the manager/admin flags are derived from it.
type ApprovalState string

const (
	ApprovalPending         ApprovalState = "Pending"
	ApprovalManagerApproved ApprovalState = "Manager-Approved"
	ApprovalApproved        ApprovalState = "Approved"
	ApprovalRejected        ApprovalState = "Rejected"
	ApprovalAutoApproved    ApprovalState = "Auto-Approved"
)

// IsTerminal reports whether no further approval action is possible.
func (s ApprovalState) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected || s == ApprovalAutoApproved
}

// Decision is an approver's verdict.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

type Attendance struct {
	ID           string
	UserID       string
	Date         time.Time
	Timezone     string
	WorkLocation WorkLocation
	Latitude     *float64
	Longitude    *float64
	SiteID       *string
	ClockIn      time.Time
	ClockOut     *time.Time
	TasksDone    *string
	HoursWorked  *float64
	Status       Status

	ApprovalState           ApprovalState
	RequiresManagerApproval bool
	ManagerApprovedBy       *string
	ManagerComment          *string
	AdminApprovedBy         *string
	AdminComment            *string

	CreatedAt time.Time
	UpdatedAt time.Time

	// DTO / Join
	UserName *string
}

// IsOpen reports whether the record is still ClockedIn.
func (a Attendance) IsOpen() bool {
	return a.ClockOut == nil
}

// ApprovalStatus is the externally visible status. A record awaiting the admin
// after manager sign-off is still Pending.
func (a Attendance) ApprovalStatus() ApprovalState {
	if a.ApprovalState == ApprovalManagerApproved {
		return ApprovalPending
	}
	return a.ApprovalState
}

func (a Attendance) ManagerApproval() bool {
	if !a.RequiresManagerApproval {
		return false
	}
	return a.ApprovalState == ApprovalManagerApproved || a.ApprovalState == ApprovalApproved
}

func (a Attendance) AdminApproval() bool {
	return a.ApprovalState == ApprovalApproved
}

// RequiresManagerApprovalFor reports whether records owned by role go through a manager
// before the admin. Managers and admins only need admin sign-off.
func RequiresManagerApprovalFor(role user.Role) bool {
	return role == user.RoleEmployee
}

// NextApprovalState resolves the transition an approver may perform on a. It returns the state
// the record must currently be in and the state it moves to.
func NextApprovalState(a Attendance, approver user.Identity, decision Decision) (from, to ApprovalState, err error) {
	if a.IsOpen() {
		return "", "", ErrAttendanceStillOpen
	}
	if a.ApprovalState.IsTerminal() {
		return "", "", ErrAttendanceAlreadyProcessed
	}
	if approver.UserID == a.UserID {
		return "", "", ErrSelfApproval
	}

	switch approver.Role {
	case user.RoleManager:
		if !a.RequiresManagerApproval {
			return "", "", ErrAdminApprovalRequired
		}
		if a.ApprovalState != ApprovalPending {
			return "", "", ErrAttendanceAlreadyProcessed
		}
		if decision == DecisionRejected {
			return ApprovalPending, ApprovalRejected, nil
		}
		return ApprovalPending, ApprovalManagerApproved, nil

	case user.RoleAdmin:
		expected := ApprovalPending
		if a.RequiresManagerApproval {
			expected = ApprovalManagerApproved
		}
		if decision == DecisionRejected {
			// an admin may reject at either stage
			return a.ApprovalState, ApprovalRejected, nil
		}
		if a.ApprovalState != expected {
			return "", "", ErrManagerApprovalPending
		}
		return expected, ApprovalApproved, nil
	}

	return "", "", ErrUnauthorized
}

// HoursBetween returns elapsed hours rounded to two decimals.
func HoursBetween(clockIn, clockOut time.Time) float64 {
	hours := clockOut.Sub(clockIn).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Round(hours*100) / 100
}

// ComputeStatus derives the day status at clock-out. localClockIn must be in the
// user's timezone so that weekend detection uses their calendar.
func ComputeStatus(localClockIn time.Time, hoursWorked, halfDayHours float64) Status {
	switch localClockIn.Weekday() {
	case time.Saturday, time.Sunday:
		return StatusExtraWork
	}
	if hoursWorked < halfDayHours {
		return StatusHalfDay
	}
	return StatusPresent
}
