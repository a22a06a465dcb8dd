package leave

import (
	"mime/multipart"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/validator"
)

// ========================================
// POLICY DTOs
// ========================================

type LeaveTypeRuleRequest struct {
	Type            string  `json:"type" validate:"required,oneof=Casual Sick Paid Half"`
	DaysAllowed     float64 `json:"daysAllowed" validate:"gte=0"`
	CarryForward    bool    `json:"carryForward"`
	MaxCarryForward float64 `json:"maxCarryForward" validate:"gte=0"`
	Paid            bool    `json:"paid"`
	ProbationPeriod int     `json:"probationPeriod" validate:"gte=0"`
	Description     string  `json:"description,omitempty" validate:"max=500"`
}

type CreatePolicyRequest struct {
	Name            string                 `json:"name" validate:"notblank,max=255"`
	Description     *string                `json:"description,omitempty"`
	LeaveTypes      []LeaveTypeRuleRequest `json:"leaveTypes" validate:"required,min=1,dive"`
	ApplicableRoles []string               `json:"applicableRoles" validate:"omitempty,dive,oneof=employee manager"`
	IsActive        *bool                  `json:"active,omitempty"`
}

func (r *CreatePolicyRequest) Validate() error {
	return validatePolicyFields(r)
}

type UpdatePolicyRequest struct {
	ID string `json:"-"`
	CreatePolicyRequest
}

func (r *UpdatePolicyRequest) Validate() error {
	return validatePolicyFields(&r.CreatePolicyRequest)
}

func validatePolicyFields(r *CreatePolicyRequest) error {
	err := validator.Struct(r)

	var errs validator.ValidationErrors
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = verrs
	}

	seen := make(map[string]bool, len(r.LeaveTypes))
	for _, lt := range r.LeaveTypes {
		if seen[lt.Type] {
			errs = append(errs, validator.ValidationError{
				Field:   "leaveTypes",
				Message: ErrDuplicateLeaveType.Error() + ": " + lt.Type,
			})
		}
		seen[lt.Type] = true
	}

	if len(errs) > 0 {
		return errs
	}

	if len(r.ApplicableRoles) == 0 {
		r.ApplicableRoles = []string{"employee", "manager"}
	}
	return nil
}

type AssignPolicyRequest struct {
	PolicyID string   `json:"-"`
	UserIDs  []string `json:"userIds" validate:"required,min=1,dive,notblank"`
}

func (r *AssignPolicyRequest) Validate() error {
	return validator.Struct(r)
}

type LeavePolicyResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	LeaveTypes      []LeaveTypeRule `json:"leaveTypes"`
	ApplicableRoles []string        `json:"applicableRoles"`
	IsActive        bool            `json:"active"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type AssignPolicyResponse struct {
	PolicyID      string   `json:"policyId"`
	AssignedUsers []string `json:"assignedUsers"`
}

// ========================================
// LEDGER DTOs
// ========================================

type LeaveBalanceResponse struct {
	LeaveType string  `json:"leaveType"`
	Balance   float64 `json:"balance"`
	Used      float64 `json:"used"`
}

type UserLeaveBalanceResponse struct {
	UserID                string                 `json:"userId"`
	JoiningDate           string                 `json:"joiningDate"`
	LeaveBalances         []LeaveBalanceResponse `json:"leaveBalances"`
	LeavePolicy           *LeavePolicyResponse   `json:"leavePolicy"`
	LastLeaveBalanceReset *string                `json:"lastLeaveBalanceReset,omitempty"`
}

// ========================================
// REQUEST DTOs
// ========================================

type CreateLeaveRequestRequest struct {
	LeaveType       string   `json:"leaveType" validate:"required,oneof=Casual Sick Paid Half"`
	StartDate       string   `json:"startDate" validate:"required,date"`
	EndDate         string   `json:"endDate" validate:"required,date"`
	Reason          string   `json:"reason" validate:"notblank,max=1000"`
	UseLeaveBalance bool     `json:"useLeaveBalance"`
	Documents       []string `json:"documents,omitempty" validate:"omitempty,max=5,dive,notblank"`

	Files []*multipart.FileHeader `json:"-"`
}

func (r *CreateLeaveRequestRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}

	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	if end.Before(start) {
		return validator.ValidationErrors{{
			Field:   "endDate",
			Message: "endDate must be on or after startDate",
		}}
	}

	if len(r.Files)+len(r.Documents) > 5 {
		return validator.ValidationErrors{{
			Field:   "documents",
			Message: "at most 5 documents can be attached",
		}}
	}
	return nil
}

// Dates returns the parsed start and end date. Call after Validate.
func (r *CreateLeaveRequestRequest) Dates() (time.Time, time.Time) {
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	return start, end
}

type LeaveActionRequest struct {
	RequestID string  `json:"-"`
	Comment   *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

func (r *LeaveActionRequest) Validate() error {
	return validator.Struct(r)
}

type LeaveRequestFilter struct {
	UserID    *string `json:"userId,omitempty"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=Pending Approved Rejected Cancelled"`
	LeaveType *string `json:"leaveType,omitempty" validate:"omitempty,oneof=Casual Sick Paid Half"`

	// Pagination
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (f *LeaveRequestFilter) Validate() error {
	if err := validator.Struct(f); err != nil {
		return err
	}
	f.Page, f.Limit = validator.Paginate(f.Page, f.Limit)
	return nil
}

type LeaveRequestResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"userId"`
	UserName        *string  `json:"userName,omitempty"`
	LeaveType       string   `json:"leaveType"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	TotalDays       float64  `json:"totalDays"`
	Reason          string   `json:"reason"`
	IsPaid          bool     `json:"isPaid"`
	UseLeaveBalance bool     `json:"useLeaveBalance"`
	Documents       []string `json:"documents"`
	Status          string   `json:"status"`
	AppliedAt       string   `json:"appliedAt"`
	ApprovedBy      *string  `json:"approvedBy,omitempty"`
	ApprovalComment *string  `json:"approvalComment,omitempty"`
	ActionedAt      *string  `json:"actionedAt,omitempty"`
}

type ListLeaveRequestResponse struct {
	TotalCount    int64                  `json:"totalCount"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	TotalPages    int                    `json:"totalPages"`
	LeaveRequests []LeaveRequestResponse `json:"leaveRequests"`
}

// ========================================
// RESET DTOs
// ========================================

type ResetBalancesRequest struct {
	CarryForward bool     `json:"carryForward"`
	ResetDate    string   `json:"resetDate,omitempty" validate:"omitempty,date"`
	UserIDs      []string `json:"userIds,omitempty" validate:"omitempty,dive,notblank"`
}

func (r *ResetBalancesRequest) Validate() error {
	return validator.Struct(r)
}

type ResetItemStatus string

const (
	ResetItemSucceeded ResetItemStatus = "succeeded"
	ResetItemFailed    ResetItemStatus = "failed"
	ResetItemSkipped   ResetItemStatus = "skipped"
)

type ResetItemResult struct {
	UserID string          `json:"userId"`
	Status ResetItemStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

type ResetBalancesResponse struct {
	HistoryID           string            `json:"historyId"`
	TotalReset          int               `json:"totalReset"`
	ResetDate           string            `json:"resetDate"`
	CarryForwardApplied bool              `json:"carryForwardApplied"`
	Summary             ResetSummary      `json:"summary"`
	Results             []ResetItemResult `json:"results"`
	FailureDetails      []ResetFailure    `json:"failureDetails"`
}

type ResetHistoryResponse struct {
	ID                  string         `json:"id"`
	PerformedBy         *string        `json:"performedBy,omitempty"`
	IsAutomated         bool           `json:"isAutomated"`
	ResetDate           string         `json:"resetDate"`
	CarryForwardApplied bool           `json:"carryForwardApplied"`
	Summary             ResetSummary   `json:"summary"`
	TargetUsers         []string       `json:"targetUsers"`
	FailureDetails      []ResetFailure `json:"failureDetails"`
	CreatedAt           string         `json:"createdAt"`
}

type ListResetHistoryResponse struct {
	TotalCount int64                  `json:"totalCount"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"totalPages"`
	Histories  []ResetHistoryResponse `json:"histories"`
}
