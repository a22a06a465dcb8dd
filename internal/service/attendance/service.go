package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/geofence"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/utils"
)

// Options tunes the attendance rules.
type Options struct {
	HalfDayHours     float64
	AutoApproveAfter time.Duration // zero disables auto-approval
	DefaultTimezone  string
	Now              func() time.Time
}

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	geofence geofence.Validator
	opts     Options
}

func NewAttendanceService(repo attendance.AttendanceRepository, fence geofence.Validator, opts Options) attendance.AttendanceService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	return &AttendanceServiceImpl{
		AttendanceRepository: repo,
		geofence:             fence,
		opts:                 opts,
	}
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format(time.RFC3339)
	return &format
}

func (s *AttendanceServiceImpl) location(timezone string) (*time.Location, string, error) {
	if timezone == "" {
		timezone = s.opts.DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", attendance.ErrInvalidTimezone, timezone)
	}
	return loc, timezone, nil
}

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, actor user.Identity, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	loc, timezone, err := s.location(req.Timezone)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	nowUTC := s.opts.Now().UTC()
	nowLocal := nowUTC.In(loc)
	dateLocal := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, time.UTC)

	existing, err := s.AttendanceRepository.GetByUserAndDate(ctx, actor.UserID, dateLocal)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to check today's attendance: %w", err)
	}
	if existing != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedIn
	}

	record := attendance.Attendance{
		UserID:                  actor.UserID,
		Date:                    dateLocal,
		Timezone:                timezone,
		WorkLocation:            attendance.WorkLocation(req.WorkLocation),
		ClockIn:                 nowUTC,
		Status:                  attendance.StatusPresent,
		ApprovalState:           attendance.ApprovalPending,
		RequiresManagerApproval: attendance.RequiresManagerApprovalFor(actor.Role),
	}

	if req.Location != nil {
		record.Latitude = &req.Location.Latitude
		record.Longitude = &req.Location.Longitude
	}

	if record.WorkLocation == attendance.WorkLocationOnsite {
		point := utils.Point{Lat: req.Location.Latitude, Lng: req.Location.Longitude}
		if err := s.geofence.Check(point, req.SiteID); err != nil {
			slog.Info("clock-in rejected by geofence",
				"user_id", actor.UserID,
				"site_id", req.SiteID,
				"lat", point.Lat,
				"lng", point.Lng,
			)
			return attendance.AttendanceResponse{}, err
		}
		if req.SiteID != "" {
			record.SiteID = &req.SiteID
		}
	}

	created, err := s.AttendanceRepository.Create(ctx, record)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyClockedIn) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	slog.Info("clocked in",
		"attendance_id", created.ID,
		"user_id", actor.UserID,
		"work_location", created.WorkLocation,
		"date", dateLocal.Format("2006-01-02"),
	)

	return mapAttendanceToResponse(created), nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, actor user.Identity, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	open, err := s.AttendanceRepository.GetOpenSession(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoOpenAttendance) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get open attendance: %w", err)
	}

	timezone := open.Timezone
	if req.Timezone != "" {
		timezone = req.Timezone
	}
	loc, _, err := s.location(timezone)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	clockOut := s.opts.Now().UTC()
	hours := attendance.HoursBetween(open.ClockIn, clockOut)
	tasks := req.TasksDone

	open.ClockOut = &clockOut
	open.HoursWorked = &hours
	open.TasksDone = &tasks
	open.Status = attendance.ComputeStatus(open.ClockIn.In(loc), hours, s.opts.HalfDayHours)

	closed, err := s.AttendanceRepository.CloseSession(ctx, open)
	if err != nil {
		if errors.Is(err, attendance.ErrNoOpenAttendance) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to close attendance: %w", err)
	}

	slog.Info("clocked out",
		"attendance_id", closed.ID,
		"user_id", actor.UserID,
		"hours_worked", hours,
		"status", closed.Status,
	)

	return mapAttendanceToResponse(closed), nil
}

// Approve implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Approve(ctx context.Context, actor user.Identity, req attendance.ApproveAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !actor.CanApprove() {
		return attendance.AttendanceResponse{}, user.ErrManagerAccessRequired
	}

	record, err := s.AttendanceRepository.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	from, to, err := attendance.NextApprovalState(record, actor, attendance.Decision(req.ApprovalStatus))
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	updated, err := s.AttendanceRepository.TransitionApproval(ctx, record.ID, attendance.ApprovalChange{
		From:       from,
		To:         to,
		ApproverID: actor.UserID,
		AsManager:  actor.Role == user.RoleManager,
		Comment:    req.Comment,
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("attendance approval recorded",
		"attendance_id", updated.ID,
		"approver_id", actor.UserID,
		"approver_role", actor.Role,
		"from", from,
		"to", to,
	)

	return mapAttendanceToResponse(updated), nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, actor user.Identity, id string) (attendance.AttendanceResponse, error) {
	record, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !actor.CanActFor(record.UserID) {
		return attendance.AttendanceResponse{}, attendance.ErrUnauthorized
	}
	return mapAttendanceToResponse(record), nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, actor user.Identity, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	filter.UserID = &actor.UserID
	return s.list(ctx, filter)
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, actor user.Identity, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if !actor.IsManager() {
		return attendance.ListAttendanceResponse{}, user.ErrManagerAccessRequired
	}
	return s.list(ctx, filter)
}

func (s *AttendanceServiceImpl) list(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, mapAttendanceToResponse(r))
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
		Attendances: responses,
	}, nil
}

// AutoApprove implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AutoApprove(ctx context.Context, now time.Time) (int64, error) {
	if s.opts.AutoApproveAfter <= 0 {
		return 0, nil
	}

	cutoff := now.Add(-s.opts.AutoApproveAfter)
	count, err := s.AttendanceRepository.AutoApprove(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		slog.Info("attendance auto-approved", "count", count, "cutoff", cutoff.Format(time.RFC3339))
	}
	return count, nil
}

func mapAttendanceToResponse(a attendance.Attendance) attendance.AttendanceResponse {
	resp := attendance.AttendanceResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		UserName:        a.UserName,
		Date:            a.Date.Format("2006-01-02"),
		ClockIn:         a.ClockIn.Format(time.RFC3339),
		ClockOut:        timePtrToString(a.ClockOut),
		WorkLocation:    string(a.WorkLocation),
		SiteID:          a.SiteID,
		TasksDone:       a.TasksDone,
		HoursWorked:     a.HoursWorked,
		Status:          string(a.Status),
		ApprovalStatus:  string(a.ApprovalStatus()),
		ApprovalStage:   string(a.ApprovalState),
		ManagerApproval: a.ManagerApproval(),
		AdminApproval:   a.AdminApproval(),
		ManagerComment:  a.ManagerComment,
		AdminComment:    a.AdminComment,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.Format(time.RFC3339),
	}

	if a.Latitude != nil && a.Longitude != nil {
		resp.Location = &attendance.LocationResponse{
			Latitude:  *a.Latitude,
			Longitude: *a.Longitude,
		}
	}

	return resp
}
