package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/geofence"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/service/file"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Identity
	case errors.Is(err, user.ErrUnauthenticated):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrAdminPrivilegeRequired),
		errors.Is(err, user.ErrManagerAccessRequired),
		errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")

	// Geofence
	case errors.Is(err, geofence.ErrGeofenceViolation):
		GeofenceViolation(w, err.Error())
	case errors.Is(err, geofence.ErrSiteNotFound), errors.Is(err, geofence.ErrInvalidSite):
		BadRequest(w, err.Error(), nil)

	// Attendance
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrNoOpenAttendance):
		NotFound(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrAttendanceStillOpen),
		errors.Is(err, attendance.ErrAttendanceAlreadyProcessed),
		errors.Is(err, attendance.ErrManagerApprovalPending):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrSelfApproval),
		errors.Is(err, attendance.ErrUnauthorized),
		errors.Is(err, attendance.ErrAdminApprovalRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrLocationRequired), errors.Is(err, attendance.ErrInvalidTimezone):
		BadRequest(w, err.Error(), nil)

	// Leave
	case errors.Is(err, leave.ErrLeaveRequestNotFound),
		errors.Is(err, leave.ErrLeavePolicyNotFound),
		errors.Is(err, leave.ErrLeaveProfileNotFound),
		errors.Is(err, leave.ErrLeaveBalanceNotFound),
		errors.Is(err, leave.ErrNoPolicyAssigned):
		NotFound(w, err.Error())
	case errors.Is(err, leave.ErrLeaveRequestAlreadyProcessed),
		errors.Is(err, leave.ErrOverlappingLeave),
		errors.Is(err, leave.ErrAlreadyReset):
		Conflict(w, err.Error())
	case errors.Is(err, leave.ErrInsufficientBalance),
		errors.Is(err, leave.ErrPolicyInUse),
		errors.Is(err, leave.ErrPolicyInactive),
		errors.Is(err, leave.ErrPolicyNotApplicable),
		errors.Is(err, leave.ErrDuplicateLeaveType),
		errors.Is(err, leave.ErrLeaveTypeNotInPolicy):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, leave.ErrSelfApproval), errors.Is(err, leave.ErrNotRequestOwner):
		Forbidden(w, err.Error())

	// Documents
	case errors.Is(err, file.ErrInvalidFileType),
		errors.Is(err, file.ErrFileTooLarge),
		errors.Is(err, storage.ErrInvalidPath):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, storage.ErrFileNotFound):
		NotFound(w, err.Error())

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
