package leave

import (
	"context"
	"time"
)

// LeavePolicyRepository - interface for leave_policies table
type LeavePolicyRepository interface {
	Create(ctx context.Context, policy LeavePolicy) (LeavePolicy, error)
	GetByID(ctx context.Context, id string) (LeavePolicy, error)
	List(ctx context.Context) ([]LeavePolicy, error)
	Update(ctx context.Context, policy LeavePolicy) (LeavePolicy, error)

	// Delete removes the policy only while no profile references it, else ErrPolicyInUse.
	Delete(ctx context.Context, id string) error
}

// LeaveProfileRepository - interface for user_leave_profiles and user_leave_balances tables
type LeaveProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (UserLeaveProfile, error)

	// LockByUserID is GetByUserID holding a row lock for the enclosing transaction.
	LockByUserID(ctx context.Context, userID string) (UserLeaveProfile, error)

	// ListUserIDs returns the users that have a profile, restricted to userIDs when non-empty.
	ListUserIDs(ctx context.Context, userIDs []string) ([]string, error)

	// Assign upserts the profile and replaces its balance lines.
	Assign(ctx context.Context, profile UserLeaveProfile) error

	GetBalance(ctx context.Context, userID string, leaveType LeaveTypeCode) (LeaveBalance, error)

	// Deduct moves days from balance to used only if balance >= days, else ErrInsufficientBalance.
	Deduct(ctx context.Context, userID string, leaveType LeaveTypeCode, days float64) error

	// ApplyReset writes new balances and stamps resetDate unless the profile was already
	// reset on or after resetDate, in which case it returns ErrAlreadyReset.
	ApplyReset(ctx context.Context, userID string, balances []LeaveBalance, resetDate time.Time) error
}

// LeaveRequestRepository - interface for leave_requests table
type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	List(ctx context.Context, filter LeaveRequestFilter) ([]LeaveRequest, int64, error)

	// HasOverlap reports a Pending or Approved request of userID intersecting [start, end].
	HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error)

	// TransitionStatus applies change only while the request is in change.From,
	// else ErrLeaveRequestAlreadyProcessed.
	TransitionStatus(ctx context.Context, id string, change StatusChange) (LeaveRequest, error)
}

// LeaveResetHistoryRepository - interface for leave_reset_histories table
type LeaveResetHistoryRepository interface {
	Create(ctx context.Context, history LeaveResetHistory) (LeaveResetHistory, error)
	List(ctx context.Context, page, limit int) ([]LeaveResetHistory, int64, error)

	// LatestAutomatedResetDate returns nil when no automated reset has run.
	LatestAutomatedResetDate(ctx context.Context) (*time.Time, error)
}
