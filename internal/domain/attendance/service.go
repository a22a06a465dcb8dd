package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// ClockIn opens today's record, gated by the geofence for onsite work
	ClockIn(ctx context.Context, actor user.Identity, req ClockInRequest) (AttendanceResponse, error)

	// ClockOut closes the caller's open record
	ClockOut(ctx context.Context, actor user.Identity, req ClockOutRequest) (AttendanceResponse, error)

	// Approve records a manager or admin decision
	Approve(ctx context.Context, actor user.Identity, req ApproveAttendanceRequest) (AttendanceResponse, error)

	GetAttendance(ctx context.Context, actor user.Identity, id string) (AttendanceResponse, error)
	GetMyAttendance(ctx context.Context, actor user.Identity, filter AttendanceFilter) (ListAttendanceResponse, error)
	ListAttendance(ctx context.Context, actor user.Identity, filter AttendanceFilter) (ListAttendanceResponse, error)

	// AutoApprove applies the time-driven Pending -> Auto-Approved transition
	AutoApprove(ctx context.Context, now time.Time) (int64, error)
}
