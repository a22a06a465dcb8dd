package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leavePolicyRepositoryImpl struct {
	db *database.DB
}

func NewLeavePolicyRepository(db *database.DB) leave.LeavePolicyRepository {
	return &leavePolicyRepositoryImpl{db: db}
}

const leavePolicyColumns = `id, name, description, leave_types, applicable_roles, is_active, created_at, updated_at`

func scanLeavePolicy(row pgx.Row) (leave.LeavePolicy, error) {
	var (
		p     leave.LeavePolicy
		roles []string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.LeaveTypes, &roles, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return leave.LeavePolicy{}, err
	}
	p.ApplicableRoles = make([]user.Role, 0, len(roles))
	for _, r := range roles {
		p.ApplicableRoles = append(p.ApplicableRoles, user.Role(r))
	}
	return p, nil
}

func rolesToStrings(roles []user.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// Create implements leave.LeavePolicyRepository.
func (r *leavePolicyRepositoryImpl) Create(ctx context.Context, policy leave.LeavePolicy) (leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_policies (name, description, leave_types, applicable_roles, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + leavePolicyColumns

	created, err := scanLeavePolicy(q.QueryRow(ctx, query,
		policy.Name,
		policy.Description,
		policy.LeaveTypes,
		rolesToStrings(policy.ApplicableRoles),
		policy.IsActive,
	))
	if err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("failed to create leave policy: %w", err)
	}

	return created, nil
}

// GetByID implements leave.LeavePolicyRepository.
func (r *leavePolicyRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leavePolicyColumns + ` FROM leave_policies WHERE id = $1`

	policy, err := scanLeavePolicy(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return leave.LeavePolicy{}, leave.ErrLeavePolicyNotFound
		}
		return leave.LeavePolicy{}, fmt.Errorf("failed to get leave policy: %w", err)
	}

	return policy, nil
}

// List implements leave.LeavePolicyRepository.
func (r *leavePolicyRepositoryImpl) List(ctx context.Context) ([]leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leavePolicyColumns + ` FROM leave_policies ORDER BY name ASC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave policies: %w", err)
	}

	policies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (leave.LeavePolicy, error) {
		return scanLeavePolicy(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave policies: %w", err)
	}

	return policies, nil
}

// Update implements leave.LeavePolicyRepository.
func (r *leavePolicyRepositoryImpl) Update(ctx context.Context, policy leave.LeavePolicy) (leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_policies
		SET name = $1, description = $2, leave_types = $3, applicable_roles = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING ` + leavePolicyColumns

	updated, err := scanLeavePolicy(q.QueryRow(ctx, query,
		policy.Name,
		policy.Description,
		policy.LeaveTypes,
		rolesToStrings(policy.ApplicableRoles),
		policy.IsActive,
		policy.ID,
	))
	if err != nil {
		if isNotFound(err) {
			return leave.LeavePolicy{}, leave.ErrLeavePolicyNotFound
		}
		return leave.LeavePolicy{}, fmt.Errorf("failed to update leave policy: %w", err)
	}

	return updated, nil
}

// Delete implements leave.LeavePolicyRepository.
func (r *leavePolicyRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		DELETE FROM leave_policies
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM user_leave_profiles WHERE leave_policy_id = $1)
	`

	result, err := q.Exec(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return leave.ErrPolicyInUse
		}
		if isNotFound(err) {
			return leave.ErrLeavePolicyNotFound
		}
		return fmt.Errorf("failed to delete leave policy: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return leave.ErrPolicyInUse
	}

	return nil
}
