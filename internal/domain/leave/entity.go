package leave

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
)

// LeaveTypeCode is the fixed set of leave categories a policy can grant.
type LeaveTypeCode string

const (
	LeaveTypeCasual LeaveTypeCode = "Casual"
	LeaveTypeSick   LeaveTypeCode = "Sick"
	LeaveTypePaid   LeaveTypeCode = "Paid"
	LeaveTypeHalf   LeaveTypeCode = "Half"
)

func (c LeaveTypeCode) Valid() bool {
	switch c {
	case LeaveTypeCasual, LeaveTypeSick, LeaveTypePaid, LeaveTypeHalf:
		return true
	}
	return false
}

// LeaveTypeRule is one leave type definition inside a policy.
type LeaveTypeRule struct {
	Type            LeaveTypeCode `json:"type"`
	DaysAllowed     float64       `json:"daysAllowed"`
	CarryForward    bool          `json:"carryForward"`
	MaxCarryForward float64       `json:"maxCarryForward"`
	Paid            bool          `json:"paid"`
	ProbationPeriod int           `json:"probationPeriod"` // months
	Description     string        `json:"description,omitempty"`
}

// LeaveTypeRules is stored as JSONB, in policy order.
type LeaveTypeRules []LeaveTypeRule

// Value implements driver.Valuer for database storage
func (r LeaveTypeRules) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for database retrieval
func (r *LeaveTypeRules) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LeaveTypeRules: invalid type")
	}

	return json.Unmarshal(bytes, r)
}

type LeavePolicy struct {
	ID              string
	Name            string
	Description     *string
	LeaveTypes      LeaveTypeRules
	ApplicableRoles []user.Role
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Rule returns the policy's definition of leaveType.
func (p LeavePolicy) Rule(leaveType LeaveTypeCode) (LeaveTypeRule, bool) {
	for _, rule := range p.LeaveTypes {
		if rule.Type == leaveType {
			return rule, true
		}
	}
	return LeaveTypeRule{}, false
}

// AppliesTo reports whether users with role may be assigned this policy.
func (p LeavePolicy) AppliesTo(role user.Role) bool {
	if role == user.RoleAdmin {
		return true
	}
	for _, r := range p.ApplicableRoles {
		if r == role {
			return true
		}
	}
	return false
}

// LeaveBalance is one ledger line of a profile.
type LeaveBalance struct {
	LeaveType LeaveTypeCode
	Balance   float64
	Used      float64
}

type UserLeaveProfile struct {
	UserID                string
	JoiningDate           time.Time
	LeavePolicyID         *string
	Balances              []LeaveBalance
	LastLeaveBalanceReset *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Balance returns the ledger line for leaveType.
func (p UserLeaveProfile) Balance(leaveType LeaveTypeCode) (LeaveBalance, bool) {
	for _, b := range p.Balances {
		if b.LeaveType == leaveType {
			return b, true
		}
	}
	return LeaveBalance{}, false
}

// AlreadyResetFor reports whether the profile was reset on or after resetDate.
func (p UserLeaveProfile) AlreadyResetFor(resetDate time.Time) bool {
	return p.LastLeaveBalanceReset != nil && !p.LastLeaveBalanceReset.Before(resetDate)
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending   LeaveRequestStatus = "Pending"
	LeaveRequestStatusApproved  LeaveRequestStatus = "Approved"
	LeaveRequestStatusRejected  LeaveRequestStatus = "Rejected"
	LeaveRequestStatusCancelled LeaveRequestStatus = "Cancelled"
)

type LeaveRequest struct {
	ID              string
	UserID          string
	LeaveType       LeaveTypeCode
	StartDate       time.Time
	EndDate         time.Time
	TotalDays       float64
	Reason          string
	IsPaid          bool
	UseLeaveBalance bool
	Documents       []string
	Status          LeaveRequestStatus
	AppliedAt       time.Time
	ApprovedBy      *string
	ApprovalComment *string
	ActionedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DTO / Join
	UserName *string
}

// StatusChange is a conditional status transition of a leave request.
type StatusChange struct {
	From    LeaveRequestStatus
	To      LeaveRequestStatus
	ActorID *string
	Comment *string
}

type ResetSummary struct {
	TotalProfiles    int `json:"totalProfiles"`
	SuccessfulResets int `json:"successfulResets"`
	FailedResets     int `json:"failedResets"`
	SkippedResets    int `json:"skippedResets"`
}

type ResetFailure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// LeaveResetHistory is the append-only audit record of one reset invocation.
type LeaveResetHistory struct {
	ID                  string
	PerformedBy         *string
	IsAutomated         bool
	ResetDate           time.Time
	CarryForwardApplied bool
	Summary             ResetSummary
	TargetUsers         []string
	FailureDetails      []ResetFailure
	CreatedAt           time.Time
}

// TotalDays is the inclusive calendar day count between start and end.
func TotalDays(start, end time.Time) float64 {
	return float64(int(end.Sub(start).Hours()/24) + 1)
}
