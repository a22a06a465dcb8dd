package attendance

import (
	"context"
	"time"
)

// ApprovalChange is written together with an approval state transition.
type ApprovalChange struct {
	From       ApprovalState
	To         ApprovalState
	ApproverID string
	AsManager  bool
	Comment    *string
}

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Create inserts a new record. A second record for the same user and date yields ErrAlreadyClockedIn.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetByUserAndDate returns nil when the user has no record on date.
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*Attendance, error)

	// GetOpenSession returns the latest record without a clock-out, or ErrNoOpenAttendance.
	GetOpenSession(ctx context.Context, userID string) (Attendance, error)

	// CloseSession writes clock-out fields only while the record is still open.
	CloseSession(ctx context.Context, attendance Attendance) (Attendance, error)

	// TransitionApproval moves the record from change.From to change.To. It fails with
	// ErrAttendanceAlreadyProcessed when the record is no longer in change.From.
	TransitionApproval(ctx context.Context, id string, change ApprovalChange) (Attendance, error)

	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// AutoApprove moves every non-terminal, clocked-out record with clock_out before cutoff to Auto-Approved.
	AutoApprove(ctx context.Context, cutoff time.Time) (int64, error)
}
