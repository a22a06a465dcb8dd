package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveResetHistoryRepositoryImpl struct {
	db *database.DB
}

func NewLeaveResetHistoryRepository(db *database.DB) leave.LeaveResetHistoryRepository {
	return &leaveResetHistoryRepositoryImpl{db: db}
}

// Create implements leave.LeaveResetHistoryRepository.
func (r *leaveResetHistoryRepositoryImpl) Create(ctx context.Context, history leave.LeaveResetHistory) (leave.LeaveResetHistory, error) {
	q := GetQuerier(ctx, r.db)

	summary, err := json.Marshal(history.Summary)
	if err != nil {
		return leave.LeaveResetHistory{}, fmt.Errorf("failed to encode reset summary: %w", err)
	}

	failures := history.FailureDetails
	if failures == nil {
		failures = []leave.ResetFailure{}
	}
	failureDetails, err := json.Marshal(failures)
	if err != nil {
		return leave.LeaveResetHistory{}, fmt.Errorf("failed to encode reset failures: %w", err)
	}

	targets := history.TargetUsers
	if targets == nil {
		targets = []string{}
	}

	query := `
		INSERT INTO leave_reset_histories (
			performed_by, is_automated, reset_date, carry_forward_applied,
			summary, target_users, failure_details
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = q.QueryRow(ctx, query,
		history.PerformedBy,
		history.IsAutomated,
		history.ResetDate,
		history.CarryForwardApplied,
		summary,
		targets,
		failureDetails,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return leave.LeaveResetHistory{}, fmt.Errorf("failed to create reset history: %w", err)
	}

	history.TargetUsers = targets
	history.FailureDetails = failures
	return history, nil
}

// List implements leave.LeaveResetHistoryRepository.
func (r *leaveResetHistoryRepositoryImpl) List(ctx context.Context, page, limit int) ([]leave.LeaveResetHistory, int64, error) {
	q := GetQuerier(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM leave_reset_histories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reset histories: %w", err)
	}

	query := `
		SELECT id, performed_by, is_automated, reset_date, carry_forward_applied,
		       summary, target_users, failure_details, created_at
		FROM leave_reset_histories
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reset histories: %w", err)
	}

	histories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (leave.LeaveResetHistory, error) {
		var (
			h                 leave.LeaveResetHistory
			summary, failures []byte
		)
		err := row.Scan(&h.ID, &h.PerformedBy, &h.IsAutomated, &h.ResetDate, &h.CarryForwardApplied,
			&summary, &h.TargetUsers, &failures, &h.CreatedAt)
		if err != nil {
			return h, err
		}
		if err := json.Unmarshal(summary, &h.Summary); err != nil {
			return h, err
		}
		if err := json.Unmarshal(failures, &h.FailureDetails); err != nil {
			return h, err
		}
		return h, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan reset histories: %w", err)
	}

	return histories, total, nil
}

// LatestAutomatedResetDate implements leave.LeaveResetHistoryRepository.
func (r *leaveResetHistoryRepositoryImpl) LatestAutomatedResetDate(ctx context.Context) (*time.Time, error) {
	q := GetQuerier(ctx, r.db)

	var latest *time.Time
	err := q.QueryRow(ctx, `SELECT MAX(reset_date) FROM leave_reset_histories WHERE is_automated`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest automated reset: %w", err)
	}

	return latest, nil
}
