package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/validator"
	"github.com/teambition/rrule-go"
	"golang.org/x/sync/errgroup"
)

// ResetOptions configures the balance reset job.
type ResetOptions struct {
	Concurrency  int
	RRule        string // schedule of the automated run
	CarryForward bool   // carry-forward flag of the automated run
	Now          func() time.Time
}

// ResetService resets leave balances for a new accounting period. Every user is reset in
// its own transaction; one user's failure is recorded and never aborts the batch.
type ResetService struct {
	tx       database.Transactor
	profiles leave.LeaveProfileRepository
	policies leave.LeavePolicyRepository
	history  leave.LeaveResetHistoryRepository
	calc     *BalanceCalculator
	schedule *rrule.RRule
	opts     ResetOptions
}

func NewResetService(tx database.Transactor, profiles leave.LeaveProfileRepository, policies leave.LeavePolicyRepository, history leave.LeaveResetHistoryRepository, calc *BalanceCalculator, opts ResetOptions) (*ResetService, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &ResetService{
		tx:       tx,
		profiles: profiles,
		policies: policies,
		history:  history,
		calc:     calc,
		opts:     opts,
	}

	if opts.RRule != "" {
		schedule, err := parseSchedule(opts.RRule)
		if err != nil {
			return nil, err
		}
		s.schedule = schedule
	}
	return s, nil
}

// parseSchedule reads an RFC 5545 rule. Without DTSTART the rule is anchored at 2000-01-01 UTC.
func parseSchedule(rule string) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid leave reset rrule %q: %w", rule, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid leave reset rrule %q: %w", rule, err)
	}
	return r, nil
}

// Reset runs a manual reset requested by an admin.
func (s *ResetService) Reset(ctx context.Context, actor user.Identity, req leave.ResetBalancesRequest) (leave.ResetBalancesResponse, error) {
	if !actor.IsAdmin() {
		return leave.ResetBalancesResponse{}, user.ErrAdminPrivilegeRequired
	}
	if err := req.Validate(); err != nil {
		return leave.ResetBalancesResponse{}, err
	}

	resetDate := truncateDate(s.opts.Now())
	if req.ResetDate != "" {
		resetDate, _ = validator.IsValidDate(req.ResetDate)
	}

	performedBy := actor.UserID
	return s.run(ctx, &performedBy, req.UserIDs, req.CarryForward, resetDate)
}

// RunScheduled resets every profile for the latest schedule occurrence at or before now, unless an
// automated reset already covered it. It returns nil when there is nothing to do.
func (s *ResetService) RunScheduled(ctx context.Context, now time.Time) (*leave.ResetBalancesResponse, error) {
	if s.schedule == nil {
		return nil, nil
	}

	occurrence := s.schedule.Before(now, true)
	if occurrence.IsZero() {
		return nil, nil
	}
	resetDate := truncateDate(occurrence)

	latest, err := s.history.LatestAutomatedResetDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest automated reset: %w", err)
	}
	if latest != nil && !resetDate.After(truncateDate(*latest)) {
		return nil, nil
	}

	slog.Info("starting scheduled leave balance reset", "reset_date", resetDate.Format(validator.DateLayout))
	resp, err := s.run(ctx, nil, nil, s.opts.CarryForward, resetDate)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ResetService) run(ctx context.Context, performedBy *string, targets []string, carryForward bool, resetDate time.Time) (leave.ResetBalancesResponse, error) {
	userIDs, err := s.profiles.ListUserIDs(ctx, targets)
	if err != nil {
		return leave.ResetBalancesResponse{}, fmt.Errorf("failed to list leave profiles: %w", err)
	}

	policies, err := s.policies.List(ctx)
	if err != nil {
		return leave.ResetBalancesResponse{}, fmt.Errorf("failed to list leave policies: %w", err)
	}
	policyByID := make(map[string]leave.LeavePolicy, len(policies))
	for _, p := range policies {
		policyByID[p.ID] = p
	}

	results := make([]leave.ResetItemResult, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			results[i] = s.resetOne(gctx, userID, policyByID, carryForward, resetDate)
			return nil
		})
	}
	_ = g.Wait()

	// Explicit targets without a profile fail individually.
	if len(targets) > 0 {
		found := make(map[string]bool, len(userIDs))
		for _, id := range userIDs {
			found[id] = true
		}
		for _, id := range targets {
			if !found[id] {
				found[id] = true
				results = append(results, leave.ResetItemResult{
					UserID: id,
					Status: leave.ResetItemFailed,
					Error:  leave.ErrLeaveProfileNotFound.Error(),
				})
			}
		}
	}

	summary := leave.ResetSummary{TotalProfiles: len(results)}
	failures := []leave.ResetFailure{}
	for _, r := range results {
		switch r.Status {
		case leave.ResetItemSucceeded:
			summary.SuccessfulResets++
		case leave.ResetItemSkipped:
			summary.SkippedResets++
		case leave.ResetItemFailed:
			summary.FailedResets++
			failures = append(failures, leave.ResetFailure{UserID: r.UserID, Error: r.Error})
		}
	}

	history, err := s.history.Create(ctx, leave.LeaveResetHistory{
		PerformedBy:         performedBy,
		IsAutomated:         performedBy == nil,
		ResetDate:           resetDate,
		CarryForwardApplied: carryForward,
		Summary:             summary,
		TargetUsers:         targets,
		FailureDetails:      failures,
	})
	if err != nil {
		return leave.ResetBalancesResponse{}, fmt.Errorf("failed to record leave reset history: %w", err)
	}

	slog.Info("leave balance reset finished",
		"history_id", history.ID,
		"reset_date", resetDate.Format(validator.DateLayout),
		"automated", history.IsAutomated,
		"total", summary.TotalProfiles,
		"succeeded", summary.SuccessfulResets,
		"skipped", summary.SkippedResets,
		"failed", summary.FailedResets,
	)

	return leave.ResetBalancesResponse{
		HistoryID:           history.ID,
		TotalReset:          summary.SuccessfulResets,
		ResetDate:           resetDate.Format(validator.DateLayout),
		CarryForwardApplied: carryForward,
		Summary:             summary,
		Results:             results,
		FailureDetails:      failures,
	}, nil
}

func (s *ResetService) resetOne(ctx context.Context, userID string, policies map[string]leave.LeavePolicy, carryForward bool, resetDate time.Time) leave.ResetItemResult {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		profile, err := s.profiles.LockByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if profile.AlreadyResetFor(resetDate) {
			return leave.ErrAlreadyReset
		}
		if profile.LeavePolicyID == nil {
			return leave.ErrNoPolicyAssigned
		}
		policy, ok := policies[*profile.LeavePolicyID]
		if !ok {
			return leave.ErrLeavePolicyNotFound
		}

		balances := make([]leave.LeaveBalance, 0, len(profile.Balances))
		for _, b := range profile.Balances {
			rule, ok := policy.Rule(b.LeaveType)
			if !ok {
				return fmt.Errorf("%w: %s", leave.ErrLeaveTypeNotInPolicy, b.LeaveType)
			}
			balances = append(balances, leave.LeaveBalance{
				LeaveType: b.LeaveType,
				Balance:   s.calc.ResetBalance(rule, b, carryForward, profile.JoiningDate, resetDate),
				Used:      0,
			})
		}

		return s.profiles.ApplyReset(ctx, userID, balances, resetDate)
	})

	switch {
	case err == nil:
		return leave.ResetItemResult{UserID: userID, Status: leave.ResetItemSucceeded}
	case errors.Is(err, leave.ErrAlreadyReset):
		return leave.ResetItemResult{UserID: userID, Status: leave.ResetItemSkipped}
	default:
		slog.Warn("leave balance reset failed for user", "user_id", userID, "error", err)
		return leave.ResetItemResult{UserID: userID, Status: leave.ResetItemFailed, Error: err.Error()}
	}
}

func (s *ResetService) History(ctx context.Context, actor user.Identity, page, limit int) (leave.ListResetHistoryResponse, error) {
	if !actor.IsAdmin() {
		return leave.ListResetHistoryResponse{}, user.ErrAdminPrivilegeRequired
	}
	page, limit = validator.Paginate(page, limit)

	histories, total, err := s.history.List(ctx, page, limit)
	if err != nil {
		return leave.ListResetHistoryResponse{}, fmt.Errorf("failed to list leave reset history: %w", err)
	}

	responses := make([]leave.ResetHistoryResponse, 0, len(histories))
	for _, h := range histories {
		responses = append(responses, mapResetHistoryToResponse(h))
	}

	return leave.ListResetHistoryResponse{
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		Histories:  responses,
	}, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
