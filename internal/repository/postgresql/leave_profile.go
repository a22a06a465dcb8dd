package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveProfileRepositoryImpl struct {
	db *database.DB
}

func NewLeaveProfileRepository(db *database.DB) leave.LeaveProfileRepository {
	return &leaveProfileRepositoryImpl{db: db}
}

// GetByUserID implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) GetByUserID(ctx context.Context, userID string) (leave.UserLeaveProfile, error) {
	return r.getProfile(ctx, userID, false)
}

// LockByUserID implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) LockByUserID(ctx context.Context, userID string) (leave.UserLeaveProfile, error) {
	return r.getProfile(ctx, userID, true)
}

func (r *leaveProfileRepositoryImpl) getProfile(ctx context.Context, userID string, forUpdate bool) (leave.UserLeaveProfile, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id, joining_date, leave_policy_id, last_leave_balance_reset, created_at, updated_at
		FROM user_leave_profiles
		WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p leave.UserLeaveProfile
	err := q.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.JoiningDate,
		&p.LeavePolicyID,
		&p.LastLeaveBalanceReset,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return leave.UserLeaveProfile{}, leave.ErrLeaveProfileNotFound
		}
		return leave.UserLeaveProfile{}, fmt.Errorf("failed to get leave profile: %w", err)
	}

	balanceQuery := `
		SELECT leave_type, balance, used
		FROM user_leave_balances
		WHERE user_id = $1
		ORDER BY position ASC
	`

	rows, err := q.Query(ctx, balanceQuery, userID)
	if err != nil {
		return leave.UserLeaveProfile{}, fmt.Errorf("failed to get leave balances: %w", err)
	}

	p.Balances, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (leave.LeaveBalance, error) {
		var b leave.LeaveBalance
		err := row.Scan(&b.LeaveType, &b.Balance, &b.Used)
		return b, err
	})
	if err != nil {
		return leave.UserLeaveProfile{}, fmt.Errorf("failed to scan leave balances: %w", err)
	}

	return p, nil
}

// ListUserIDs implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) ListUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT user_id::text FROM user_leave_profiles`
	args := []interface{}{}
	if len(userIDs) > 0 {
		query += ` WHERE user_id::text = ANY($1)`
		args = append(args, userIDs)
	}
	query += ` ORDER BY user_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave profiles: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave profile ids: %w", err)
	}

	return ids, nil
}

// Assign implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) Assign(ctx context.Context, profile leave.UserLeaveProfile) error {
	q := GetQuerier(ctx, r.db)

	upsert := `
		INSERT INTO user_leave_profiles (user_id, joining_date, leave_policy_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET joining_date = EXCLUDED.joining_date,
		    leave_policy_id = EXCLUDED.leave_policy_id,
		    updated_at = NOW()
	`
	if _, err := q.Exec(ctx, upsert, profile.UserID, profile.JoiningDate, profile.LeavePolicyID); err != nil {
		if isForeignKeyViolation(err) {
			return leave.ErrLeavePolicyNotFound
		}
		return fmt.Errorf("failed to upsert leave profile: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM user_leave_balances WHERE user_id = $1`, profile.UserID); err != nil {
		return fmt.Errorf("failed to clear leave balances: %w", err)
	}

	return r.insertBalances(ctx, q, profile.UserID, profile.Balances)
}

func (r *leaveProfileRepositoryImpl) insertBalances(ctx context.Context, q database.Querier, userID string, balances []leave.LeaveBalance) error {
	query := `
		INSERT INTO user_leave_balances (user_id, leave_type, balance, used, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, b := range balances {
		if _, err := q.Exec(ctx, query, userID, b.LeaveType, b.Balance, b.Used, i); err != nil {
			return fmt.Errorf("failed to insert %s balance: %w", b.LeaveType, err)
		}
	}
	return nil
}

// GetBalance implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) GetBalance(ctx context.Context, userID string, leaveType leave.LeaveTypeCode) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT leave_type, balance, used
		FROM user_leave_balances
		WHERE user_id = $1 AND leave_type = $2
	`

	var b leave.LeaveBalance
	err := q.QueryRow(ctx, query, userID, leaveType).Scan(&b.LeaveType, &b.Balance, &b.Used)
	if err != nil {
		if isNotFound(err) {
			return leave.LeaveBalance{}, leave.ErrLeaveBalanceNotFound
		}
		return leave.LeaveBalance{}, fmt.Errorf("failed to get leave balance: %w", err)
	}

	return b, nil
}

// Deduct implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) Deduct(ctx context.Context, userID string, leaveType leave.LeaveTypeCode, days float64) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE user_leave_balances
		SET balance = balance - $1,
		    used = used + $1
		WHERE user_id = $2
		  AND leave_type = $3
		  AND (balance - $1) >= 0
	`

	result, err := q.Exec(ctx, query, days, userID, leaveType)
	if err != nil {
		return fmt.Errorf("failed to deduct leave balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetBalance(ctx, userID, leaveType); err != nil {
			return err
		}
		return leave.ErrInsufficientBalance
	}

	return nil
}

// ApplyReset implements leave.LeaveProfileRepository.
func (r *leaveProfileRepositoryImpl) ApplyReset(ctx context.Context, userID string, balances []leave.LeaveBalance, resetDate time.Time) error {
	q := GetQuerier(ctx, r.db)

	stamp := `
		UPDATE user_leave_profiles
		SET last_leave_balance_reset = $1, updated_at = NOW()
		WHERE user_id = $2
		  AND (last_leave_balance_reset IS NULL OR last_leave_balance_reset < $1)
	`

	result, err := q.Exec(ctx, stamp, resetDate, userID)
	if err != nil {
		return fmt.Errorf("failed to stamp leave reset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return leave.ErrAlreadyReset
	}

	update := `
		UPDATE user_leave_balances
		SET balance = $1, used = $2
		WHERE user_id = $3 AND leave_type = $4
	`
	for _, b := range balances {
		if _, err := q.Exec(ctx, update, b.Balance, b.Used, userID, b.LeaveType); err != nil {
			return fmt.Errorf("failed to reset %s balance: %w", b.LeaveType, err)
		}
	}

	return nil
}
