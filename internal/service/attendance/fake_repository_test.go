package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
)

// memoryRepository mirrors the conditional-update semantics of the postgres repository.
type memoryRepository struct {
	mu      sync.Mutex
	seq     int
	records map[string]attendance.Attendance
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: map[string]attendance.Attendance{}}
}

func (m *memoryRepository) Create(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.UserID == a.UserID && r.Date.Equal(a.Date) {
			return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
		}
	}
	m.seq++
	a.ID = fmt.Sprintf("att-%d", m.seq)
	a.CreatedAt, a.UpdatedAt = a.ClockIn, a.ClockIn
	m.records[a.ID] = a
	return a, nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return r, nil
}

func (m *memoryRepository) GetByUserAndDate(_ context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.UserID == userID && r.Date.Equal(date) {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) GetOpenSession(_ context.Context, userID string) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *attendance.Attendance
	for _, r := range m.records {
		if r.UserID == userID && r.IsOpen() {
			if latest == nil || r.ClockIn.After(latest.ClockIn) {
				r := r
				latest = &r
			}
		}
	}
	if latest == nil {
		return attendance.Attendance{}, attendance.ErrNoOpenAttendance
	}
	return *latest, nil
}

func (m *memoryRepository) CloseSession(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[a.ID]
	if !ok || !current.IsOpen() {
		return attendance.Attendance{}, attendance.ErrNoOpenAttendance
	}
	current.ClockOut = a.ClockOut
	current.TasksDone = a.TasksDone
	current.HoursWorked = a.HoursWorked
	current.Status = a.Status
	m.records[a.ID] = current
	return current, nil
}

func (m *memoryRepository) TransitionApproval(_ context.Context, id string, change attendance.ApprovalChange) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	if current.ApprovalState != change.From {
		return attendance.Attendance{}, attendance.ErrAttendanceAlreadyProcessed
	}
	current.ApprovalState = change.To
	approver := change.ApproverID
	if change.AsManager {
		current.ManagerApprovedBy = &approver
		current.ManagerComment = change.Comment
	} else {
		current.AdminApprovedBy = &approver
		current.AdminComment = change.Comment
	}
	m.records[id] = current
	return current, nil
}

func (m *memoryRepository) List(_ context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []attendance.Attendance
	for _, r := range m.records {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.ApprovalStatus != nil && string(r.ApprovalState) != *filter.ApprovalStatus {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.After(out[j].ClockIn) })

	total := int64(len(out))
	start := (filter.Page - 1) * filter.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *memoryRepository) AutoApprove(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.records {
		if r.ApprovalState.IsTerminal() || r.ClockOut == nil || !r.ClockOut.Before(cutoff) {
			continue
		}
		r.ApprovalState = attendance.ApprovalAutoApproved
		m.records[id] = r
		n++
	}
	return n, nil
}

func (m *memoryRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
