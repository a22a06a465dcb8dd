package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
)

// PolicyService owns leave policies and their assignment to users.
type PolicyService struct {
	tx       database.Transactor
	policies leave.LeavePolicyRepository
	profiles leave.LeaveProfileRepository
	users    user.UserRepository
	calc     *BalanceCalculator
	now      func() time.Time
}

func NewPolicyService(tx database.Transactor, policies leave.LeavePolicyRepository, profiles leave.LeaveProfileRepository, users user.UserRepository, calc *BalanceCalculator, now func() time.Time) *PolicyService {
	if now == nil {
		now = time.Now
	}
	return &PolicyService{
		tx:       tx,
		policies: policies,
		profiles: profiles,
		users:    users,
		calc:     calc,
		now:      now,
	}
}

func policyFromRequest(req leave.CreatePolicyRequest) leave.LeavePolicy {
	rules := make(leave.LeaveTypeRules, 0, len(req.LeaveTypes))
	for _, lt := range req.LeaveTypes {
		rules = append(rules, leave.LeaveTypeRule{
			Type:            leave.LeaveTypeCode(lt.Type),
			DaysAllowed:     lt.DaysAllowed,
			CarryForward:    lt.CarryForward,
			MaxCarryForward: lt.MaxCarryForward,
			Paid:            lt.Paid,
			ProbationPeriod: lt.ProbationPeriod,
			Description:     lt.Description,
		})
	}

	roles := make([]user.Role, 0, len(req.ApplicableRoles))
	for _, r := range req.ApplicableRoles {
		roles = append(roles, user.Role(r))
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return leave.LeavePolicy{
		Name:            req.Name,
		Description:     req.Description,
		LeaveTypes:      rules,
		ApplicableRoles: roles,
		IsActive:        active,
	}
}

func (s *PolicyService) Create(ctx context.Context, actor user.Identity, req leave.CreatePolicyRequest) (leave.LeavePolicyResponse, error) {
	if !actor.IsAdmin() {
		return leave.LeavePolicyResponse{}, user.ErrAdminPrivilegeRequired
	}
	if err := req.Validate(); err != nil {
		return leave.LeavePolicyResponse{}, err
	}

	created, err := s.policies.Create(ctx, policyFromRequest(req))
	if err != nil {
		return leave.LeavePolicyResponse{}, fmt.Errorf("failed to create leave policy: %w", err)
	}

	slog.Info("leave policy created", "policy_id", created.ID, "name", created.Name, "by", actor.UserID)
	return mapPolicyToResponse(created), nil
}

func (s *PolicyService) Update(ctx context.Context, actor user.Identity, req leave.UpdatePolicyRequest) (leave.LeavePolicyResponse, error) {
	if !actor.IsAdmin() {
		return leave.LeavePolicyResponse{}, user.ErrAdminPrivilegeRequired
	}
	if err := req.Validate(); err != nil {
		return leave.LeavePolicyResponse{}, err
	}

	existing, err := s.policies.GetByID(ctx, req.ID)
	if err != nil {
		return leave.LeavePolicyResponse{}, err
	}

	policy := policyFromRequest(req.CreatePolicyRequest)
	policy.ID = existing.ID
	policy.CreatedAt = existing.CreatedAt
	if req.IsActive == nil {
		policy.IsActive = existing.IsActive
	}

	updated, err := s.policies.Update(ctx, policy)
	if err != nil {
		return leave.LeavePolicyResponse{}, err
	}

	slog.Info("leave policy updated", "policy_id", updated.ID, "by", actor.UserID)
	return mapPolicyToResponse(updated), nil
}

func (s *PolicyService) Get(ctx context.Context, actor user.Identity, id string) (leave.LeavePolicyResponse, error) {
	if !actor.IsAdmin() {
		return leave.LeavePolicyResponse{}, user.ErrAdminPrivilegeRequired
	}
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return leave.LeavePolicyResponse{}, err
	}
	return mapPolicyToResponse(policy), nil
}

func (s *PolicyService) List(ctx context.Context, actor user.Identity) ([]leave.LeavePolicyResponse, error) {
	if !actor.IsAdmin() {
		return nil, user.ErrAdminPrivilegeRequired
	}
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave policies: %w", err)
	}

	responses := make([]leave.LeavePolicyResponse, 0, len(policies))
	for _, p := range policies {
		responses = append(responses, mapPolicyToResponse(p))
	}
	return responses, nil
}

func (s *PolicyService) Delete(ctx context.Context, actor user.Identity, id string) error {
	if !actor.IsAdmin() {
		return user.ErrAdminPrivilegeRequired
	}
	if err := s.policies.Delete(ctx, id); err != nil {
		if errors.Is(err, leave.ErrPolicyInUse) || errors.Is(err, leave.ErrLeavePolicyNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete leave policy: %w", err)
	}

	slog.Info("leave policy deleted", "policy_id", id, "by", actor.UserID)
	return nil
}

// Assign points every user at the policy and re-initialises their ledger. Either all users are
// assigned or none.
func (s *PolicyService) Assign(ctx context.Context, actor user.Identity, req leave.AssignPolicyRequest) (leave.AssignPolicyResponse, error) {
	if !actor.IsAdmin() {
		return leave.AssignPolicyResponse{}, user.ErrAdminPrivilegeRequired
	}
	if err := req.Validate(); err != nil {
		return leave.AssignPolicyResponse{}, err
	}

	asOf := s.now()
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.policies.GetByID(ctx, req.PolicyID)
		if err != nil {
			return err
		}
		if !policy.IsActive {
			return leave.ErrPolicyInactive
		}

		users, err := s.users.GetByIDs(ctx, req.UserIDs)
		if err != nil {
			return fmt.Errorf("failed to load users: %w", err)
		}
		byID := make(map[string]user.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		for _, id := range req.UserIDs {
			u, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: %s", user.ErrUserNotFound, id)
			}
			if !policy.AppliesTo(u.Role) {
				return fmt.Errorf("%w: %s is %s", leave.ErrPolicyNotApplicable, u.ID, u.Role)
			}

			policyID := policy.ID
			profile := leave.UserLeaveProfile{
				UserID:        u.ID,
				JoiningDate:   u.JoiningDate,
				LeavePolicyID: &policyID,
				Balances:      s.calc.Balances(policy, u.JoiningDate, asOf),
			}
			if err := s.profiles.Assign(ctx, profile); err != nil {
				return fmt.Errorf("failed to assign policy to %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return leave.AssignPolicyResponse{}, err
	}

	slog.Info("leave policy assigned", "policy_id", req.PolicyID, "users", len(req.UserIDs), "by", actor.UserID)
	return leave.AssignPolicyResponse{
		PolicyID:      req.PolicyID,
		AssignedUsers: req.UserIDs,
	}, nil
}
