package leave

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
)

// memStore backs every fake repository and mirrors the conditional updates of the
// postgres implementation.
type memStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]user.User
	policies  map[string]leave.LeavePolicy
	profiles  map[string]leave.UserLeaveProfile
	requests  map[string]leave.LeaveRequest
	histories []leave.LeaveResetHistory
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]user.User{},
		policies: map[string]leave.LeavePolicy{},
		profiles: map[string]leave.UserLeaveProfile{},
		requests: map[string]leave.LeaveRequest{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func copyProfile(p leave.UserLeaveProfile) leave.UserLeaveProfile {
	p.Balances = slices.Clone(p.Balances)
	return p
}

type memSnapshot struct {
	policies  map[string]leave.LeavePolicy
	profiles  map[string]leave.UserLeaveProfile
	requests  map[string]leave.LeaveRequest
	histories []leave.LeaveResetHistory
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		policies:  make(map[string]leave.LeavePolicy, len(s.policies)),
		profiles:  make(map[string]leave.UserLeaveProfile, len(s.profiles)),
		requests:  make(map[string]leave.LeaveRequest, len(s.requests)),
		histories: slices.Clone(s.histories),
	}
	for k, v := range s.policies {
		snap.policies[k] = v
	}
	for k, v := range s.profiles {
		snap.profiles[k] = copyProfile(v)
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = snap.policies
	s.profiles = snap.profiles
	s.requests = snap.requests
	s.histories = snap.histories
}

// memTransactor serialises transactions and restores the store when fn fails.
type memTransactor struct {
	mu    sync.Mutex
	store *memStore
}

func (t *memTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ---- users ----

type memUserRepository struct{ *memStore }

func (r memUserRepository) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r memUserRepository) GetByIDs(_ context.Context, ids []string) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []user.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ---- policies ----

type memPolicyRepository struct{ *memStore }

func (r memPolicyRepository) Create(_ context.Context, p leave.LeavePolicy) (leave.LeavePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID("policy")
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	r.policies[p.ID] = p
	return p, nil
}

func (r memPolicyRepository) GetByID(_ context.Context, id string) (leave.LeavePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[id]
	if !ok {
		return leave.LeavePolicy{}, leave.ErrLeavePolicyNotFound
	}
	return p, nil
}

func (r memPolicyRepository) List(_ context.Context) ([]leave.LeavePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]leave.LeavePolicy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memPolicyRepository) Update(_ context.Context, p leave.LeavePolicy) (leave.LeavePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[p.ID]; !ok {
		return leave.LeavePolicy{}, leave.ErrLeavePolicyNotFound
	}
	r.policies[p.ID] = p
	return p, nil
}

func (r memPolicyRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[id]; !ok {
		return leave.ErrLeavePolicyNotFound
	}
	for _, p := range r.profiles {
		if p.LeavePolicyID != nil && *p.LeavePolicyID == id {
			return leave.ErrPolicyInUse
		}
	}
	delete(r.policies, id)
	return nil
}

// ---- profiles ----

type memProfileRepository struct{ *memStore }

func (r memProfileRepository) GetByUserID(_ context.Context, userID string) (leave.UserLeaveProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return leave.UserLeaveProfile{}, leave.ErrLeaveProfileNotFound
	}
	return copyProfile(p), nil
}

func (r memProfileRepository) LockByUserID(ctx context.Context, userID string) (leave.UserLeaveProfile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r memProfileRepository) ListUserIDs(_ context.Context, userIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.profiles {
		if len(userIDs) == 0 || slices.Contains(userIDs, id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r memProfileRepository) Assign(_ context.Context, profile leave.UserLeaveProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.profiles[profile.UserID]; ok {
		profile.LastLeaveBalanceReset = existing.LastLeaveBalanceReset
	}
	r.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func (r memProfileRepository) GetBalance(_ context.Context, userID string, leaveType leave.LeaveTypeCode) (leave.LeaveBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return leave.LeaveBalance{}, leave.ErrLeaveBalanceNotFound
	}
	b, ok := p.Balance(leaveType)
	if !ok {
		return leave.LeaveBalance{}, leave.ErrLeaveBalanceNotFound
	}
	return b, nil
}

func (r memProfileRepository) Deduct(_ context.Context, userID string, leaveType leave.LeaveTypeCode, days float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return leave.ErrLeaveBalanceNotFound
	}
	for i, b := range p.Balances {
		if b.LeaveType != leaveType {
			continue
		}
		if b.Balance-days < 0 {
			return leave.ErrInsufficientBalance
		}
		p.Balances[i].Balance -= days
		p.Balances[i].Used += days
		return nil
	}
	return leave.ErrLeaveBalanceNotFound
}

func (r memProfileRepository) ApplyReset(_ context.Context, userID string, balances []leave.LeaveBalance, resetDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return leave.ErrLeaveProfileNotFound
	}
	if p.AlreadyResetFor(resetDate) {
		return leave.ErrAlreadyReset
	}
	for _, nb := range balances {
		for i := range p.Balances {
			if p.Balances[i].LeaveType == nb.LeaveType {
				p.Balances[i].Balance = nb.Balance
				p.Balances[i].Used = nb.Used
			}
		}
	}
	stamp := resetDate
	p.LastLeaveBalanceReset = &stamp
	r.profiles[userID] = p
	return nil
}

// ---- requests ----

type memRequestRepository struct{ *memStore }

func (r memRequestRepository) Create(_ context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = r.nextID("leave")
	req.CreatedAt, req.UpdatedAt = req.AppliedAt, req.AppliedAt
	r.requests[req.ID] = req
	return req, nil
}

func (r memRequestRepository) GetByID(_ context.Context, id string) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

func (r memRequestRepository) List(_ context.Context, filter leave.LeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []leave.LeaveRequest
	for _, req := range r.requests {
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && string(req.Status) != *filter.Status {
			continue
		}
		if filter.LeaveType != nil && string(req.LeaveType) != *filter.LeaveType {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := int64(len(out))
	start := min((filter.Page-1)*filter.Limit, len(out))
	end := min(start+filter.Limit, len(out))
	return out[start:end], total, nil
}

func (r memRequestRepository) HasOverlap(_ context.Context, userID string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.UserID != userID {
			continue
		}
		if req.Status != leave.LeaveRequestStatusPending && req.Status != leave.LeaveRequestStatusApproved {
			continue
		}
		if !req.StartDate.After(end) && !req.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r memRequestRepository) TransitionStatus(_ context.Context, id string, change leave.StatusChange) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	if req.Status != change.From {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestAlreadyProcessed
	}
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	req.Status = change.To
	if change.ActorID != nil {
		req.ApprovedBy = change.ActorID
	}
	req.ApprovalComment = change.Comment
	req.ActionedAt = &now
	r.requests[id] = req
	return req, nil
}

// ---- reset history ----

type memHistoryRepository struct{ *memStore }

func (r memHistoryRepository) Create(_ context.Context, h leave.LeaveResetHistory) (leave.LeaveResetHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = r.nextID("history")
	r.histories = append(r.histories, h)
	return h, nil
}

func (r memHistoryRepository) List(_ context.Context, page, limit int) ([]leave.LeaveResetHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.histories)
	slices.Reverse(out)
	total := int64(len(out))
	start := min((page-1)*limit, len(out))
	end := min(start+limit, len(out))
	return out[start:end], total, nil
}

func (r memHistoryRepository) LatestAutomatedResetDate(_ context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, h := range r.histories {
		if h.IsAutomated && (latest == nil || h.ResetDate.After(*latest)) {
			d := h.ResetDate
			latest = &d
		}
	}
	return latest, nil
}

// ---- files ----

type memFileService struct {
	mu      sync.Mutex
	uploads map[string]string
	deleted []string
}

func newMemFileService() *memFileService {
	return &memFileService{uploads: map[string]string{}}
}

func (f *memFileService) UploadLeaveDocument(_ context.Context, userID string, file io.Reader, filename string, _ int64) (string, error) {
	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("leave/%s/%d-%s", userID, len(f.uploads)+1, filename)
	f.uploads[path] = string(body)
	return path, nil
}

func (f *memFileService) OwnsLeaveDocument(_ context.Context, userID, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.uploads[path]
	return ok && strings.HasPrefix(path, "leave/"+userID+"/"), nil
}

func (f *memFileService) DeleteFile(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *memFileService) GetFileURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://files.test/" + path, nil
}
