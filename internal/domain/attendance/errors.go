package attendance

import "errors"

// Attendance domain errors
var (
	// Clock-in / clock-out errors
	ErrAlreadyClockedIn = errors.New("you have already clocked in today")
	ErrLocationRequired = errors.New("location is required for onsite clock-in")
	ErrNoOpenAttendance = errors.New("no open attendance record to clock out")
	ErrInvalidTimezone  = errors.New("invalid timezone")

	// Approval errors
	ErrAttendanceStillOpen        = errors.New("attendance must be clocked out before approval")
	ErrAttendanceAlreadyProcessed = errors.New("attendance has already been processed at this stage")
	ErrManagerApprovalPending     = errors.New("manager approval is required before admin approval")
	ErrAdminApprovalRequired      = errors.New("only an admin can approve this attendance")
	ErrSelfApproval               = errors.New("you cannot approve your own attendance")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnauthorized       = errors.New("unauthorized to access this attendance record")
)
