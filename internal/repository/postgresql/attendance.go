package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	a.id, a.user_id, a.attendance_date, a.timezone, a.work_location,
	a.latitude, a.longitude, a.site_id,
	a.clock_in, a.clock_out, a.tasks_done, a.hours_worked, a.status,
	a.approval_state, a.requires_manager_approval,
	a.manager_approved_by, a.manager_comment, a.admin_approved_by, a.admin_comment,
	a.created_at, a.updated_at, u.name`

const attendanceFrom = `
	FROM attendances a
	LEFT JOIN users u ON u.id = a.user_id`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	err := row.Scan(
		&att.ID, &att.UserID, &att.Date, &att.Timezone, &att.WorkLocation,
		&att.Latitude, &att.Longitude, &att.SiteID,
		&att.ClockIn, &att.ClockOut, &att.TasksDone, &att.HoursWorked, &att.Status,
		&att.ApprovalState, &att.RequiresManagerApproval,
		&att.ManagerApprovedBy, &att.ManagerComment, &att.AdminApprovedBy, &att.AdminComment,
		&att.CreatedAt, &att.UpdatedAt, &att.UserName,
	)
	return att, err
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (
			user_id, attendance_date, timezone, work_location, latitude, longitude, site_id,
			clock_in, status, approval_state, requires_manager_approval
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.UserID,
		newAttendance.Date,
		newAttendance.Timezone,
		newAttendance.WorkLocation,
		newAttendance.Latitude,
		newAttendance.Longitude,
		newAttendance.SiteID,
		newAttendance.ClockIn,
		newAttendance.Status,
		newAttendance.ApprovalState,
		newAttendance.RequiresManagerApproval,
	).Scan(&newAttendance.ID, &newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + ` WHERE a.id = $1`

	att, err := scanAttendance(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}

	return att, nil
}

// GetByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.user_id = $1
		  AND a.attendance_date = $2
		LIMIT 1
	`

	att, err := scanAttendance(q.QueryRow(ctx, query, userID, date))
	if err != nil {
		if isNotFound(err) {
			return nil, nil // No existing attendance found
		}
		return nil, fmt.Errorf("failed to get attendance by user and date: %w", err)
	}

	return &att, nil
}

// GetOpenSession implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetOpenSession(ctx context.Context, userID string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + attendanceFrom + `
		WHERE a.user_id = $1
		  AND a.clock_out IS NULL
		ORDER BY a.clock_in DESC
		LIMIT 1
	`

	att, err := scanAttendance(q.QueryRow(ctx, query, userID))
	if err != nil {
		if isNotFound(err) {
			return attendance.Attendance{}, attendance.ErrNoOpenAttendance
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get open session: %w", err)
	}

	return att, nil
}

// CloseSession implements attendance.AttendanceRepository.
func (a *attendanceRepository) CloseSession(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET clock_out = $1, tasks_done = $2, hours_worked = $3, status = $4, updated_at = NOW()
		WHERE id = $5
		  AND clock_out IS NULL
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query, att.ClockOut, att.TasksDone, att.HoursWorked, att.Status, att.ID).Scan(&att.UpdatedAt)
	if err != nil {
		if isNotFound(err) {
			return attendance.Attendance{}, attendance.ErrNoOpenAttendance
		}
		return attendance.Attendance{}, fmt.Errorf("failed to close attendance: %w", err)
	}

	return att, nil
}

// TransitionApproval implements attendance.AttendanceRepository.
func (a *attendanceRepository) TransitionApproval(ctx context.Context, id string, change attendance.ApprovalChange) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	approverColumn, commentColumn := "admin_approved_by", "admin_comment"
	if change.AsManager {
		approverColumn, commentColumn = "manager_approved_by", "manager_comment"
	}

	query := fmt.Sprintf(`
		UPDATE attendances
		SET approval_state = $1, %s = $2, %s = $3, updated_at = NOW()
		WHERE id = $4
		  AND approval_state = $5
	`, approverColumn, commentColumn)

	cmdTag, err := q.Exec(ctx, query, change.To, change.ApproverID, change.Comment, id, change.From)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to update attendance approval: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return attendance.Attendance{}, attendance.ErrAttendanceAlreadyProcessed
	}

	return a.GetByID(ctx, id)
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND a.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.ApprovalStatus != nil && *filter.ApprovalStatus != "" {
		baseWhere += fmt.Sprintf(" AND a.approval_state = $%d", argIdx)
		args = append(args, *filter.ApprovalStatus)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.attendance_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.attendance_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	countQuery := `SELECT COUNT(*) FROM attendances a WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.attendance_date DESC, a.clock_in DESC LIMIT $%d OFFSET $%d`,
		attendanceColumns, attendanceFrom, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, total, nil
}

// AutoApprove implements attendance.AttendanceRepository.
func (a *attendanceRepository) AutoApprove(ctx context.Context, cutoff time.Time) (int64, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET approval_state = $1, updated_at = NOW()
		WHERE approval_state IN ($2, $3)
		  AND clock_out IS NOT NULL
		  AND clock_out < $4
	`

	cmdTag, err := q.Exec(ctx, query,
		attendance.ApprovalAutoApproved,
		attendance.ApprovalPending,
		attendance.ApprovalManagerApproved,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to auto-approve attendances: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
