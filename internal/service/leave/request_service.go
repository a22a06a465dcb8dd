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
	"github.com/cmlabs-hris/hris-attendance-leave/internal/service/file"
)

// RequestService drives the leave request state machine. Approval and the ledger
// deduction it triggers commit together.
type RequestService struct {
	tx          database.Transactor
	requests    leave.LeaveRequestRepository
	profiles    leave.LeaveProfileRepository
	policies    leave.LeavePolicyRepository
	fileService file.FileService
	now         func() time.Time
}

func NewRequestService(tx database.Transactor, requests leave.LeaveRequestRepository, profiles leave.LeaveProfileRepository, policies leave.LeavePolicyRepository, fileService file.FileService, now func() time.Time) *RequestService {
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		tx:          tx,
		requests:    requests,
		profiles:    profiles,
		policies:    policies,
		fileService: fileService,
		now:         now,
	}
}

// ruleFor resolves the caller's policy rule for leaveType. A missing profile, policy or
// rule yields ok=false without an error.
func (r *RequestService) ruleFor(ctx context.Context, userID string, leaveType leave.LeaveTypeCode) (leave.LeaveTypeRule, bool, error) {
	profile, err := r.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, leave.ErrLeaveProfileNotFound) {
			return leave.LeaveTypeRule{}, false, nil
		}
		return leave.LeaveTypeRule{}, false, err
	}
	if profile.LeavePolicyID == nil {
		return leave.LeaveTypeRule{}, false, nil
	}

	policy, err := r.policies.GetByID(ctx, *profile.LeavePolicyID)
	if err != nil {
		if errors.Is(err, leave.ErrLeavePolicyNotFound) {
			return leave.LeaveTypeRule{}, false, nil
		}
		return leave.LeaveTypeRule{}, false, err
	}

	rule, ok := policy.Rule(leaveType)
	return rule, ok, nil
}

func (r *RequestService) Submit(ctx context.Context, actor user.Identity, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	startDate, endDate := req.Dates()
	leaveType := leave.LeaveTypeCode(req.LeaveType)
	totalDays := leave.TotalDays(startDate, endDate)

	rule, hasRule, err := r.ruleFor(ctx, actor.UserID, leaveType)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to resolve leave policy: %w", err)
	}

	if req.UseLeaveBalance {
		if !hasRule {
			return leave.LeaveRequestResponse{}, validator.ValidationErrors{{
				Field:   "useLeaveBalance",
				Message: leave.ErrLeaveTypeNotInPolicy.Error(),
			}}
		}

		// Advisory only: the authoritative check is the conditional deduct on approval.
		balance, err := r.profiles.GetBalance(ctx, actor.UserID, leaveType)
		if errors.Is(err, leave.ErrLeaveBalanceNotFound) {
			return leave.LeaveRequestResponse{}, validator.ValidationErrors{{
				Field:   "useLeaveBalance",
				Message: "no " + string(leaveType) + " balance has been assigned",
			}}
		}
		if err != nil {
			return leave.LeaveRequestResponse{}, err
		}
		if balance.Balance < totalDays {
			return leave.LeaveRequestResponse{}, leave.ErrInsufficientBalance
		}
	}

	for _, path := range req.Documents {
		owned, err := r.fileService.OwnsLeaveDocument(ctx, actor.UserID, path)
		if err != nil {
			return leave.LeaveRequestResponse{}, err
		}
		if !owned {
			return leave.LeaveRequestResponse{}, validator.ValidationErrors{{
				Field:   "documents",
				Message: "document " + path + " was not uploaded by you",
			}}
		}
	}

	overlap, err := r.requests.HasOverlap(ctx, actor.UserID, startDate, endDate)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to check overlapping leave requests: %w", err)
	}
	if overlap {
		return leave.LeaveRequestResponse{}, leave.ErrOverlappingLeave
	}

	documents := append([]string{}, req.Documents...)
	uploaded := make([]string, 0, len(req.Files))
	for _, fh := range req.Files {
		f, err := fh.Open()
		if err != nil {
			r.discard(ctx, uploaded)
			return leave.LeaveRequestResponse{}, fmt.Errorf("failed to open document %s: %w", fh.Filename, err)
		}
		path, err := r.fileService.UploadLeaveDocument(ctx, actor.UserID, f, fh.Filename, fh.Size)
		f.Close()
		if err != nil {
			r.discard(ctx, uploaded)
			return leave.LeaveRequestResponse{}, err
		}
		uploaded = append(uploaded, path)
	}
	documents = append(documents, uploaded...)

	created, err := r.requests.Create(ctx, leave.LeaveRequest{
		UserID:          actor.UserID,
		LeaveType:       leaveType,
		StartDate:       startDate,
		EndDate:         endDate,
		TotalDays:       totalDays,
		Reason:          req.Reason,
		IsPaid:          hasRule && rule.Paid,
		UseLeaveBalance: req.UseLeaveBalance,
		Documents:       documents,
		Status:          leave.LeaveRequestStatusPending,
		AppliedAt:       r.now().UTC(),
	})
	if err != nil {
		r.discard(ctx, uploaded)
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	slog.Info("leave request submitted",
		"request_id", created.ID,
		"user_id", actor.UserID,
		"leave_type", leaveType,
		"total_days", totalDays,
		"use_leave_balance", req.UseLeaveBalance,
	)

	return r.toResponse(ctx, created), nil
}

// discard removes documents uploaded for a submission that did not go through.
func (r *RequestService) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := r.fileService.DeleteFile(ctx, p); err != nil {
			slog.Warn("failed to remove orphaned leave document", "path", p, "error", err)
		}
	}
}

// decide loads the request and checks that actor may approve or reject it.
func (r *RequestService) decide(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequest, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequest{}, err
	}
	if !actor.CanApprove() {
		return leave.LeaveRequest{}, user.ErrManagerAccessRequired
	}

	request, err := r.requests.GetByID(ctx, req.RequestID)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	if request.UserID == actor.UserID {
		return leave.LeaveRequest{}, leave.ErrSelfApproval
	}
	if request.Status != leave.LeaveRequestStatusPending {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestAlreadyProcessed
	}
	return request, nil
}

func (r *RequestService) Approve(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	request, err := r.decide(ctx, actor, req)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	var approved leave.LeaveRequest
	err = r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		updated, err := r.requests.TransitionStatus(ctx, request.ID, leave.StatusChange{
			From:    leave.LeaveRequestStatusPending,
			To:      leave.LeaveRequestStatusApproved,
			ActorID: &actor.UserID,
			Comment: req.Comment,
		})
		if err != nil {
			return err
		}
		approved = updated

		if approved.UseLeaveBalance {
			return r.profiles.Deduct(ctx, approved.UserID, approved.LeaveType, approved.TotalDays)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, leave.ErrInsufficientBalance) {
			slog.Info("leave approval aborted", "request_id", request.ID, "reason", err)
		}
		return leave.LeaveRequestResponse{}, err
	}

	slog.Info("leave request approved",
		"request_id", approved.ID,
		"user_id", approved.UserID,
		"approver_id", actor.UserID,
		"deducted", approved.UseLeaveBalance,
	)
	return r.toResponse(ctx, approved), nil
}

func (r *RequestService) Reject(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	request, err := r.decide(ctx, actor, req)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	rejected, err := r.requests.TransitionStatus(ctx, request.ID, leave.StatusChange{
		From:    leave.LeaveRequestStatusPending,
		To:      leave.LeaveRequestStatusRejected,
		ActorID: &actor.UserID,
		Comment: req.Comment,
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	slog.Info("leave request rejected", "request_id", rejected.ID, "approver_id", actor.UserID)
	return r.toResponse(ctx, rejected), nil
}

// Cancel withdraws a pending request. Only the requester or an admin may cancel.
func (r *RequestService) Cancel(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	request, err := r.requests.GetByID(ctx, req.RequestID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if request.UserID != actor.UserID && !actor.IsAdmin() {
		return leave.LeaveRequestResponse{}, leave.ErrNotRequestOwner
	}

	cancelled, err := r.requests.TransitionStatus(ctx, request.ID, leave.StatusChange{
		From:    leave.LeaveRequestStatusPending,
		To:      leave.LeaveRequestStatusCancelled,
		Comment: req.Comment,
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	slog.Info("leave request cancelled", "request_id", cancelled.ID, "by", actor.UserID)
	return r.toResponse(ctx, cancelled), nil
}

func (r *RequestService) Get(ctx context.Context, actor user.Identity, id string) (leave.LeaveRequestResponse, error) {
	request, err := r.requests.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if !actor.CanActFor(request.UserID) {
		return leave.LeaveRequestResponse{}, user.ErrInsufficientPermissions
	}
	return r.toResponse(ctx, request), nil
}

func (r *RequestService) ListMine(ctx context.Context, actor user.Identity, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	filter.UserID = &actor.UserID
	return r.list(ctx, filter)
}

func (r *RequestService) List(ctx context.Context, actor user.Identity, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	if !actor.IsManager() {
		return leave.ListLeaveRequestResponse{}, user.ErrManagerAccessRequired
	}
	return r.list(ctx, filter)
}

func (r *RequestService) list(ctx context.Context, filter leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	if err := filter.Validate(); err != nil {
		return leave.ListLeaveRequestResponse{}, err
	}

	requests, total, err := r.requests.List(ctx, filter)
	if err != nil {
		return leave.ListLeaveRequestResponse{}, fmt.Errorf("failed to list leave requests: %w", err)
	}

	responses := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, r.toResponse(ctx, req))
	}

	return leave.ListLeaveRequestResponse{
		TotalCount:    total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    int(math.Ceil(float64(total) / float64(filter.Limit))),
		LeaveRequests: responses,
	}, nil
}

func (r *RequestService) toResponse(ctx context.Context, req leave.LeaveRequest) leave.LeaveRequestResponse {
	documents := make([]string, 0, len(req.Documents))
	for _, path := range req.Documents {
		url, err := r.fileService.GetFileURL(ctx, path, 0)
		if err != nil {
			url = path
		}
		documents = append(documents, url)
	}
	return mapLeaveRequestToResponse(req, documents)
}
