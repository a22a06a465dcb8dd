package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
)

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	interval          time.Duration
	now               func() time.Time
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, interval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceService: attendanceService,
		interval:          interval,
		now:               time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_approve_attendances", j.interval, j.AutoApproveAttendances)
}

// AutoApproveAttendances moves stale, clocked-out records to Auto-Approved.
func (j *AttendanceJobs) AutoApproveAttendances(ctx context.Context) error {
	if _, err := j.attendanceService.AutoApprove(ctx, j.now()); err != nil {
		return fmt.Errorf("failed to auto-approve attendances: %w", err)
	}
	return nil
}
