package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
)

type LeaveService interface {
	// Policy
	CreatePolicy(ctx context.Context, actor user.Identity, req CreatePolicyRequest) (LeavePolicyResponse, error)
	UpdatePolicy(ctx context.Context, actor user.Identity, req UpdatePolicyRequest) (LeavePolicyResponse, error)
	GetPolicy(ctx context.Context, actor user.Identity, id string) (LeavePolicyResponse, error)
	ListPolicies(ctx context.Context, actor user.Identity) ([]LeavePolicyResponse, error)
	DeletePolicy(ctx context.Context, actor user.Identity, id string) error
	AssignPolicy(ctx context.Context, actor user.Identity, req AssignPolicyRequest) (AssignPolicyResponse, error)

	// Ledger
	GetBalance(ctx context.Context, actor user.Identity, userID string, leaveType LeaveTypeCode) (LeaveBalanceResponse, error)
	GetUserBalances(ctx context.Context, actor user.Identity, userID string) (UserLeaveBalanceResponse, error)

	// Request
	SubmitLeaveRequest(ctx context.Context, actor user.Identity, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	ApproveLeaveRequest(ctx context.Context, actor user.Identity, req LeaveActionRequest) (LeaveRequestResponse, error)
	RejectLeaveRequest(ctx context.Context, actor user.Identity, req LeaveActionRequest) (LeaveRequestResponse, error)
	CancelLeaveRequest(ctx context.Context, actor user.Identity, req LeaveActionRequest) (LeaveRequestResponse, error)
	GetLeaveRequest(ctx context.Context, actor user.Identity, id string) (LeaveRequestResponse, error)
	ListMyLeaveRequests(ctx context.Context, actor user.Identity, filter LeaveRequestFilter) (ListLeaveRequestResponse, error)
	ListLeaveRequests(ctx context.Context, actor user.Identity, filter LeaveRequestFilter) (ListLeaveRequestResponse, error)

	// Reset
	ResetBalances(ctx context.Context, actor user.Identity, req ResetBalancesRequest) (ResetBalancesResponse, error)
	RunScheduledReset(ctx context.Context, now time.Time) (*ResetBalancesResponse, error)
	ListResetHistory(ctx context.Context, actor user.Identity, page, limit int) (ListResetHistoryResponse, error)
}
