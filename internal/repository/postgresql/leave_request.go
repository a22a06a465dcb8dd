package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

const leaveRequestColumns = `
	lr.id, lr.user_id, lr.leave_type, lr.start_date, lr.end_date, lr.total_days,
	lr.reason, lr.is_paid, lr.use_leave_balance, lr.documents, lr.status,
	lr.applied_at, lr.approved_by, lr.approval_comment, lr.actioned_at,
	lr.created_at, lr.updated_at, u.name`

const leaveRequestFrom = `
	FROM leave_requests lr
	LEFT JOIN users u ON u.id = lr.user_id`

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var req leave.LeaveRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.LeaveType, &req.StartDate, &req.EndDate, &req.TotalDays,
		&req.Reason, &req.IsPaid, &req.UseLeaveBalance, &req.Documents, &req.Status,
		&req.AppliedAt, &req.ApprovedBy, &req.ApprovalComment, &req.ActionedAt,
		&req.CreatedAt, &req.UpdatedAt, &req.UserName,
	)
	return req, err
}

// Create implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	documents := request.Documents
	if documents == nil {
		documents = []string{}
	}

	query := `
		INSERT INTO leave_requests (
			user_id, leave_type, start_date, end_date, total_days, reason,
			is_paid, use_leave_balance, documents, status, applied_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		request.UserID,
		request.LeaveType,
		request.StartDate,
		request.EndDate,
		request.TotalDays,
		request.Reason,
		request.IsPaid,
		request.UseLeaveBalance,
		documents,
		request.Status,
		request.AppliedAt,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	request.Documents = documents
	return request, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveRequestColumns + leaveRequestFrom + ` WHERE lr.id = $1`

	req, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to get leave request: %w", err)
	}

	return req, nil
}

// List implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) List(ctx context.Context, filter leave.LeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND lr.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND lr.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.LeaveType != nil && *filter.LeaveType != "" {
		baseWhere += fmt.Sprintf(" AND lr.leave_type = $%d", argIdx)
		args = append(args, *filter.LeaveType)
		argIdx++
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM leave_requests lr WHERE ` + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leave requests: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY lr.applied_at DESC LIMIT $%d OFFSET $%d`,
		leaveRequestColumns, leaveRequestFrom, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leave requests: %w", err)
	}

	requests, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (leave.LeaveRequest, error) {
		return scanLeaveRequest(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan leave requests: %w", err)
	}

	return requests, total, nil
}

// HasOverlap implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM leave_requests
			WHERE user_id = $1
			  AND status IN ($2, $3)
			  AND start_date <= $5
			  AND end_date >= $4
		)
	`

	var exists bool
	err := q.QueryRow(ctx, query, userID,
		leave.LeaveRequestStatusPending, leave.LeaveRequestStatusApproved,
		start, end,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping leave: %w", err)
	}

	return exists, nil
}

// TransitionStatus implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) TransitionStatus(ctx context.Context, id string, change leave.StatusChange) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_requests
		SET status = $1,
		    approved_by = COALESCE($2, approved_by),
		    approval_comment = $3,
		    actioned_at = NOW(),
		    updated_at = NOW()
		WHERE id = $4
		  AND status = $5
	`

	result, err := q.Exec(ctx, query, change.To, change.ActorID, change.Comment, id, change.From)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("failed to update leave request status: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return leave.LeaveRequest{}, err
		}
		return leave.LeaveRequest{}, leave.ErrLeaveRequestAlreadyProcessed
	}

	return r.GetByID(ctx, id)
}
