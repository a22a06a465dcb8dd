package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
)

type LeaveJobs struct {
	leaveService leave.LeaveService
	interval     time.Duration
	now          func() time.Time
}

func NewLeaveJobs(leaveService leave.LeaveService, interval time.Duration) *LeaveJobs {
	return &LeaveJobs{
		leaveService: leaveService,
		interval:     interval,
		now:          time.Now,
	}
}

func (j *LeaveJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("scheduled_leave_balance_reset", j.interval, j.ResetLeaveBalances)
}

// ResetLeaveBalances runs the automated reset when its schedule has a new occurrence.
func (j *LeaveJobs) ResetLeaveBalances(ctx context.Context) error {
	resp, err := j.leaveService.RunScheduledReset(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to run scheduled leave reset: %w", err)
	}
	if resp == nil {
		slog.Debug("Cron: no leave balance reset due")
		return nil
	}

	if resp.Summary.FailedResets > 0 {
		slog.Warn("Cron: leave balance reset finished with failures",
			"history_id", resp.HistoryID,
			"failed", resp.Summary.FailedResets,
		)
	}
	return nil
}
