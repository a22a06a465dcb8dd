package leave

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/validator"
)

type LeaveServiceImpl struct {
	profiles leave.LeaveProfileRepository
	policies leave.LeavePolicyRepository

	policyService  *PolicyService
	requestService *RequestService
	resetService   *ResetService
}

func NewLeaveService(
	profiles leave.LeaveProfileRepository,
	policies leave.LeavePolicyRepository,
	policyService *PolicyService,
	requestService *RequestService,
	resetService *ResetService,
) leave.LeaveService {
	return &LeaveServiceImpl{
		profiles:       profiles,
		policies:       policies,
		policyService:  policyService,
		requestService: requestService,
		resetService:   resetService,
	}
}

// CreatePolicy implements leave.LeaveService.
func (l *LeaveServiceImpl) CreatePolicy(ctx context.Context, actor user.Identity, req leave.CreatePolicyRequest) (leave.LeavePolicyResponse, error) {
	return l.policyService.Create(ctx, actor, req)
}

// UpdatePolicy implements leave.LeaveService.
func (l *LeaveServiceImpl) UpdatePolicy(ctx context.Context, actor user.Identity, req leave.UpdatePolicyRequest) (leave.LeavePolicyResponse, error) {
	return l.policyService.Update(ctx, actor, req)
}

// GetPolicy implements leave.LeaveService.
func (l *LeaveServiceImpl) GetPolicy(ctx context.Context, actor user.Identity, id string) (leave.LeavePolicyResponse, error) {
	return l.policyService.Get(ctx, actor, id)
}

// ListPolicies implements leave.LeaveService.
func (l *LeaveServiceImpl) ListPolicies(ctx context.Context, actor user.Identity) ([]leave.LeavePolicyResponse, error) {
	return l.policyService.List(ctx, actor)
}

// DeletePolicy implements leave.LeaveService.
func (l *LeaveServiceImpl) DeletePolicy(ctx context.Context, actor user.Identity, id string) error {
	return l.policyService.Delete(ctx, actor, id)
}

// AssignPolicy implements leave.LeaveService.
func (l *LeaveServiceImpl) AssignPolicy(ctx context.Context, actor user.Identity, req leave.AssignPolicyRequest) (leave.AssignPolicyResponse, error) {
	return l.policyService.Assign(ctx, actor, req)
}

// GetBalance implements leave.LeaveService.
func (l *LeaveServiceImpl) GetBalance(ctx context.Context, actor user.Identity, userID string, leaveType leave.LeaveTypeCode) (leave.LeaveBalanceResponse, error) {
	if !actor.CanActFor(userID) {
		return leave.LeaveBalanceResponse{}, user.ErrInsufficientPermissions
	}
	if !leaveType.Valid() {
		return leave.LeaveBalanceResponse{}, validator.ValidationErrors{{
			Field:   "leaveType",
			Message: "must be one of: Casual Sick Paid Half",
		}}
	}

	b, err := l.profiles.GetBalance(ctx, userID, leaveType)
	if err != nil {
		return leave.LeaveBalanceResponse{}, err
	}
	return mapBalanceToResponse(b), nil
}

// GetUserBalances implements leave.LeaveService.
func (l *LeaveServiceImpl) GetUserBalances(ctx context.Context, actor user.Identity, userID string) (leave.UserLeaveBalanceResponse, error) {
	if !actor.CanActFor(userID) {
		return leave.UserLeaveBalanceResponse{}, user.ErrInsufficientPermissions
	}

	profile, err := l.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return leave.UserLeaveBalanceResponse{}, err
	}

	resp := leave.UserLeaveBalanceResponse{
		UserID:        profile.UserID,
		JoiningDate:   profile.JoiningDate.Format(validator.DateLayout),
		LeaveBalances: make([]leave.LeaveBalanceResponse, 0, len(profile.Balances)),
	}
	for _, b := range profile.Balances {
		resp.LeaveBalances = append(resp.LeaveBalances, mapBalanceToResponse(b))
	}
	if profile.LastLeaveBalanceReset != nil {
		last := profile.LastLeaveBalanceReset.Format(validator.DateLayout)
		resp.LastLeaveBalanceReset = &last
	}

	if profile.LeavePolicyID != nil {
		policy, err := l.policies.GetByID(ctx, *profile.LeavePolicyID)
		if err != nil && !errors.Is(err, leave.ErrLeavePolicyNotFound) {
			return leave.UserLeaveBalanceResponse{}, err
		}
		if err == nil {
			p := mapPolicyToResponse(policy)
			resp.LeavePolicy = &p
		}
	}

	return resp, nil
}

// SubmitLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) SubmitLeaveRequest(ctx context.Context, actor user.Identity, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	return l.requestService.Submit(ctx, actor, req)
}

// ApproveLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) ApproveLeaveRequest(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	return l.requestService.Approve(ctx, actor, req)
}

// RejectLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) RejectLeaveRequest(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	return l.requestService.Reject(ctx, actor, req)
}

// CancelLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) CancelLeaveRequest(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	return l.requestService.Cancel(ctx, actor, req)
}

// GetLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) GetLeaveRequest(ctx context.Context, actor user.Identity, id string) (leave.LeaveRequestResponse, error) {
	return l.requestService.Get(ctx, actor, id)
}

// ListMyLeaveRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListMyLeaveRequests(ctx context.Context, actor user.Identity, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	return l.requestService.ListMine(ctx, actor, filter)
}

// ListLeaveRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListLeaveRequests(ctx context.Context, actor user.Identity, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	return l.requestService.List(ctx, actor, filter)
}

// ResetBalances implements leave.LeaveService.
func (l *LeaveServiceImpl) ResetBalances(ctx context.Context, actor user.Identity, req leave.ResetBalancesRequest) (leave.ResetBalancesResponse, error) {
	return l.resetService.Reset(ctx, actor, req)
}

// RunScheduledReset implements leave.LeaveService.
func (l *LeaveServiceImpl) RunScheduledReset(ctx context.Context, now time.Time) (*leave.ResetBalancesResponse, error) {
	return l.resetService.RunScheduled(ctx, now)
}

// ListResetHistory implements leave.LeaveService.
func (l *LeaveServiceImpl) ListResetHistory(ctx context.Context, actor user.Identity, page, limit int) (leave.ListResetHistoryResponse, error) {
	return l.resetService.History(ctx, actor, page, limit)
}

// ==================== MAPPERS ====================

func mapBalanceToResponse(b leave.LeaveBalance) leave.LeaveBalanceResponse {
	return leave.LeaveBalanceResponse{
		LeaveType: string(b.LeaveType),
		Balance:   b.Balance,
		Used:      b.Used,
	}
}

func mapPolicyToResponse(p leave.LeavePolicy) leave.LeavePolicyResponse {
	roles := make([]string, 0, len(p.ApplicableRoles))
	for _, r := range p.ApplicableRoles {
		roles = append(roles, string(r))
	}
	leaveTypes := p.LeaveTypes
	if leaveTypes == nil {
		leaveTypes = leave.LeaveTypeRules{}
	}

	return leave.LeavePolicyResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		LeaveTypes:      leaveTypes,
		ApplicableRoles: roles,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}

func mapLeaveRequestToResponse(r leave.LeaveRequest, documents []string) leave.LeaveRequestResponse {
	var actionedAt *string
	if r.ActionedAt != nil {
		s := r.ActionedAt.Format(time.RFC3339)
		actionedAt = &s
	}

	return leave.LeaveRequestResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		UserName:        r.UserName,
		LeaveType:       string(r.LeaveType),
		StartDate:       r.StartDate.Format(validator.DateLayout),
		EndDate:         r.EndDate.Format(validator.DateLayout),
		TotalDays:       r.TotalDays,
		Reason:          r.Reason,
		IsPaid:          r.IsPaid,
		UseLeaveBalance: r.UseLeaveBalance,
		Documents:       documents,
		Status:          string(r.Status),
		AppliedAt:       r.AppliedAt.Format(time.RFC3339),
		ApprovedBy:      r.ApprovedBy,
		ApprovalComment: r.ApprovalComment,
		ActionedAt:      actionedAt,
	}
}

func mapResetHistoryToResponse(h leave.LeaveResetHistory) leave.ResetHistoryResponse {
	targets := h.TargetUsers
	if targets == nil {
		targets = []string{}
	}
	failures := h.FailureDetails
	if failures == nil {
		failures = []leave.ResetFailure{}
	}

	return leave.ResetHistoryResponse{
		ID:                  h.ID,
		PerformedBy:         h.PerformedBy,
		IsAutomated:         h.IsAutomated,
		ResetDate:           h.ResetDate.Format(validator.DateLayout),
		CarryForwardApplied: h.CarryForwardApplied,
		Summary:             h.Summary,
		TargetUsers:         targets,
		FailureDetails:      failures,
		CreatedAt:           h.CreatedAt.Format(time.RFC3339),
	}
}
