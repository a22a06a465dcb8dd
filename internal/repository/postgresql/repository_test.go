package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_OneRecordPerDay(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)

	userID := insertUser(t, db, user.RoleEmployee, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	record := attendance.Attendance{
		UserID:                  userID,
		Date:                    day,
		Timezone:                "UTC",
		WorkLocation:            attendance.WorkLocationRemote,
		ClockIn:                 day.Add(9 * time.Hour),
		Status:                  attendance.StatusPresent,
		ApprovalState:           attendance.ApprovalPending,
		RequiresManagerApproval: true,
	}

	created, err := repo.Create(ctx, record)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, record)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)

	open, err := repo.GetOpenSession(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, open.ID)

	out := day.Add(17 * time.Hour)
	tasks := "reviewed pull requests"
	hours := 8.0
	open.ClockOut, open.TasksDone, open.HoursWorked = &out, &tasks, &hours

	_, err = repo.CloseSession(ctx, open)
	require.NoError(t, err)

	_, err = repo.CloseSession(ctx, open)
	assert.ErrorIs(t, err, attendance.ErrNoOpenAttendance)
}

func TestAttendanceRepository_TransitionApprovalIsConditional(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)

	userID := insertUser(t, db, user.RoleEmployee, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	managerID := insertUser(t, db, user.RoleManager, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	out := day.Add(17 * time.Hour)

	created, err := repo.Create(ctx, attendance.Attendance{
		UserID:                  userID,
		Date:                    day,
		Timezone:                "UTC",
		WorkLocation:            attendance.WorkLocationRemote,
		ClockIn:                 day.Add(9 * time.Hour),
		Status:                  attendance.StatusPresent,
		ApprovalState:           attendance.ApprovalPending,
		RequiresManagerApproval: true,
	})
	require.NoError(t, err)
	created.ClockOut = &out
	_, err = repo.CloseSession(ctx, created)
	require.NoError(t, err)

	change := attendance.ApprovalChange{
		From:       attendance.ApprovalPending,
		To:         attendance.ApprovalManagerApproved,
		ApproverID: managerID,
		AsManager:  true,
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.TransitionApproval(ctx, created.ID, change)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, attendance.ErrAttendanceAlreadyProcessed):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 3, conflicts)

	approved, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.ApprovalManagerApproved, approved.ApprovalState)
}

func TestLeaveProfileRepository_DeductAndReset(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	policies := postgresql.NewLeavePolicyRepository(db)
	profiles := postgresql.NewLeaveProfileRepository(db)

	joining := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	userID := insertUser(t, db, user.RoleEmployee, joining)

	policy, err := policies.Create(ctx, leave.LeavePolicy{
		Name: "Standard",
		LeaveTypes: leave.LeaveTypeRules{
			{Type: leave.LeaveTypeCasual, DaysAllowed: 10, CarryForward: true, MaxCarryForward: 5, Paid: true},
		},
		ApplicableRoles: []user.Role{user.RoleEmployee, user.RoleManager},
		IsActive:        true,
	})
	require.NoError(t, err)

	require.NoError(t, profiles.Assign(ctx, leave.UserLeaveProfile{
		UserID:        userID,
		JoiningDate:   joining,
		LeavePolicyID: &policy.ID,
		Balances:      []leave.LeaveBalance{{LeaveType: leave.LeaveTypeCasual, Balance: 3}},
	}))

	require.NoError(t, profiles.Deduct(ctx, userID, leave.LeaveTypeCasual, 2))
	assert.ErrorIs(t, profiles.Deduct(ctx, userID, leave.LeaveTypeCasual, 2), leave.ErrInsufficientBalance)
	assert.ErrorIs(t, profiles.Deduct(ctx, userID, leave.LeaveTypeSick, 1), leave.ErrLeaveBalanceNotFound)

	balance, err := profiles.GetBalance(ctx, userID, leave.LeaveTypeCasual)
	require.NoError(t, err)
	assert.Equal(t, 1.0, balance.Balance)
	assert.Equal(t, 2.0, balance.Used)

	resetDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reset := []leave.LeaveBalance{{LeaveType: leave.LeaveTypeCasual, Balance: 11}}
	require.NoError(t, profiles.ApplyReset(ctx, userID, reset, resetDate))
	assert.ErrorIs(t, profiles.ApplyReset(ctx, userID, reset, resetDate), leave.ErrAlreadyReset)

	profile, err := profiles.GetByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile.LastLeaveBalanceReset)
	assert.True(t, profile.LastLeaveBalanceReset.Equal(resetDate))

	b, ok := profile.Balance(leave.LeaveTypeCasual)
	require.True(t, ok)
	assert.Equal(t, 11.0, b.Balance)
	assert.Equal(t, 0.0, b.Used)

	assert.ErrorIs(t, policies.Delete(ctx, policy.ID), leave.ErrPolicyInUse)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)
	policies := postgresql.NewLeavePolicyRepository(db)

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := policies.Create(ctx, leave.LeavePolicy{Name: "Temp", IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := policies.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
