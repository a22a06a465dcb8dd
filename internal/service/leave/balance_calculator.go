package leave

import (
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
)

// ProbationMode decides the allowance of a leave type while its probation period is running.
type ProbationMode string

const (
	ProbationZero ProbationMode = "zero" // no allowance until probation ends
	ProbationFull ProbationMode = "full" // probation is ignored
)

type BalanceCalculator struct {
	probation ProbationMode
}

func NewBalanceCalculator(mode ProbationMode) *BalanceCalculator {
	if mode != ProbationFull {
		mode = ProbationZero
	}
	return &BalanceCalculator{probation: mode}
}

// InitialBalance is the balance granted when a policy is assigned.
func (c *BalanceCalculator) InitialBalance(rule leave.LeaveTypeRule, joiningDate, asOf time.Time) float64 {
	if c.inProbation(rule, joiningDate, asOf) {
		return 0
	}
	return rule.DaysAllowed
}

// ResetBalance is the balance a ledger line starts the new period with.
func (c *BalanceCalculator) ResetBalance(rule leave.LeaveTypeRule, current leave.LeaveBalance, carryForward bool, joiningDate, asOf time.Time) float64 {
	if c.inProbation(rule, joiningDate, asOf) {
		return 0
	}
	if !carryForward || !rule.CarryForward {
		return rule.DaysAllowed
	}
	carried := math.Min(math.Max(current.Balance, 0), rule.MaxCarryForward)
	return carried + rule.DaysAllowed
}

// Balances builds the ledger lines of a freshly assigned policy, in policy order.
func (c *BalanceCalculator) Balances(policy leave.LeavePolicy, joiningDate, asOf time.Time) []leave.LeaveBalance {
	balances := make([]leave.LeaveBalance, 0, len(policy.LeaveTypes))
	for _, rule := range policy.LeaveTypes {
		balances = append(balances, leave.LeaveBalance{
			LeaveType: rule.Type,
			Balance:   c.InitialBalance(rule, joiningDate, asOf),
		})
	}
	return balances
}

func (c *BalanceCalculator) inProbation(rule leave.LeaveTypeRule, joiningDate, asOf time.Time) bool {
	if c.probation == ProbationFull || rule.ProbationPeriod <= 0 {
		return false
	}
	return tenureMonths(joiningDate, asOf) < rule.ProbationPeriod
}

// tenureMonths counts whole months between joiningDate and asOf
func tenureMonths(joiningDate, asOf time.Time) int {
	years := asOf.Year() - joiningDate.Year()
	months := int(asOf.Month()) - int(joiningDate.Month())

	totalMonths := years*12 + months

	// Adjust if day hasn't passed yet
	if asOf.Day() < joiningDate.Day() {
		totalMonths--
	}

	if totalMonths < 0 {
		totalMonths = 0
	}

	return totalMonths
}
