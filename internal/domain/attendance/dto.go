package attendance

import (
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type ClockInRequest struct {
	WorkLocation string           `json:"workLocation" validate:"required,oneof=Onsite Remote"`
	Timezone     string           `json:"timezone" validate:"omitempty,timezone"`
	Location     *LocationRequest `json:"location" validate:"omitempty"`
	SiteID       string           `json:"siteId,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	err := validator.Struct(r)

	var errs validator.ValidationErrors
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = verrs
	}

	if WorkLocation(r.WorkLocation) == WorkLocationOnsite && r.Location == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "location is required for onsite clock-in",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ClockOutRequest struct {
	TasksDone string `json:"tasksDone" validate:"notblank"`
	Timezone  string `json:"timezone" validate:"omitempty,timezone"`
}

func (r *ClockOutRequest) Validate() error {
	return validator.Struct(r)
}

type ApproveAttendanceRequest struct {
	AttendanceID   string  `json:"attendanceId" validate:"required"`
	ApprovalStatus string  `json:"approvalStatus" validate:"required,oneof=Approved Rejected"`
	Comment        *string `json:"comment,omitempty"`
}

func (r *ApproveAttendanceRequest) Validate() error {
	return validator.Struct(r)
}

type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type AttendanceResponse struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	UserName        *string           `json:"userName,omitempty"`
	Date            string            `json:"date"`
	ClockIn         string            `json:"clockIn"`
	ClockOut        *string           `json:"clockOut,omitempty"`
	WorkLocation    string            `json:"workLocation"`
	Location        *LocationResponse `json:"location,omitempty"`
	SiteID          *string           `json:"siteId,omitempty"`
	TasksDone       *string           `json:"tasksDone,omitempty"`
	HoursWorked     *float64          `json:"hoursWorked,omitempty"`
	Status          string            `json:"status"`
	ApprovalStatus  string            `json:"approvalStatus"`
	ApprovalStage   string            `json:"approvalStage"`
	ManagerApproval bool              `json:"managerApproval"`
	AdminApproval   bool              `json:"adminApproval"`
	ManagerComment  *string           `json:"managerComment,omitempty"`
	AdminComment    *string           `json:"adminComment,omitempty"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
}

type AttendanceFilter struct {
	UserID         *string `json:"userId,omitempty" validate:"omitempty"`
	ApprovalStatus *string `json:"approvalStatus,omitempty" validate:"omitempty,oneof=Pending Manager-Approved Approved Rejected Auto-Approved"`
	StartDate      *string `json:"startDate,omitempty" validate:"omitempty,date"` // YYYY-MM-DD
	EndDate        *string `json:"endDate,omitempty" validate:"omitempty,date"`   // YYYY-MM-DD

	// Pagination
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (f *AttendanceFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	f.Page, f.Limit = validator.Paginate(f.Page, f.Limit)
	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"totalCount"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"totalPages"`
	Attendances []AttendanceResponse `json:"attendances"`
}
