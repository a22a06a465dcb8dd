package leave

import "errors"

var (
	// Policy errors
	ErrLeavePolicyNotFound  = errors.New("leave policy not found")
	ErrPolicyInUse          = errors.New("leave policy is assigned to one or more users")
	ErrPolicyInactive       = errors.New("leave policy is not active")
	ErrPolicyNotApplicable  = errors.New("leave policy does not apply to the user's role")
	ErrDuplicateLeaveType   = errors.New("leave type is defined more than once")
	ErrLeaveTypeNotInPolicy = errors.New("leave type is not part of the assigned policy")

	// Ledger errors
	ErrLeaveProfileNotFound = errors.New("leave profile not found")
	ErrLeaveBalanceNotFound = errors.New("leave balance not found")
	ErrInsufficientBalance  = errors.New("insufficient leave balance")
	ErrNoPolicyAssigned     = errors.New("no leave policy assigned")
	ErrAlreadyReset         = errors.New("leave balance already reset for this date")

	// Request errors
	ErrLeaveRequestNotFound         = errors.New("leave request not found")
	ErrLeaveRequestAlreadyProcessed = errors.New("leave request already processed")
	ErrOverlappingLeave             = errors.New("leave request overlaps an existing request")
	ErrSelfApproval                 = errors.New("you cannot approve or reject your own leave request")
	ErrNotRequestOwner              = errors.New("only the requester or an admin can cancel this leave request")
)
