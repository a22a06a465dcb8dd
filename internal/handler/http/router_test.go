package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/geofence"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttendanceService struct {
	attendance.AttendanceService

	clockInErr  error
	lastActor   user.Identity
	lastClockIn attendance.ClockInRequest
	lastApprove attendance.ApproveAttendanceRequest
}

func (s *stubAttendanceService) ClockIn(_ context.Context, actor user.Identity, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	s.lastActor, s.lastClockIn = actor, req
	if s.clockInErr != nil {
		return attendance.AttendanceResponse{}, s.clockInErr
	}
	return attendance.AttendanceResponse{ID: "att-1", UserID: actor.UserID, WorkLocation: req.WorkLocation}, nil
}

func (s *stubAttendanceService) Approve(_ context.Context, actor user.Identity, req attendance.ApproveAttendanceRequest) (attendance.AttendanceResponse, error) {
	s.lastActor, s.lastApprove = actor, req
	return attendance.AttendanceResponse{ID: req.AttendanceID, ApprovalStatus: req.ApprovalStatus}, nil
}

func (s *stubAttendanceService) ListAttendance(_ context.Context, actor user.Identity, _ attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	s.lastActor = actor
	return attendance.ListAttendanceResponse{Page: 1, Limit: 20}, nil
}

type stubLeaveService struct {
	leave.LeaveService

	lastActor  user.Identity
	lastSubmit leave.CreateLeaveRequestRequest
	lastAction leave.LeaveActionRequest
	lastReset  leave.ResetBalancesRequest
}

func (s *stubLeaveService) SubmitLeaveRequest(_ context.Context, actor user.Identity, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	s.lastActor, s.lastSubmit = actor, req
	return leave.LeaveRequestResponse{ID: "lr-1", UserID: actor.UserID, Status: string(leave.LeaveRequestStatusPending)}, nil
}

func (s *stubLeaveService) ApproveLeaveRequest(_ context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error) {
	s.lastActor, s.lastAction = actor, req
	return leave.LeaveRequestResponse{ID: req.RequestID, Status: string(leave.LeaveRequestStatusApproved)}, nil
}

func (s *stubLeaveService) ResetBalances(_ context.Context, actor user.Identity, req leave.ResetBalancesRequest) (leave.ResetBalancesResponse, error) {
	s.lastActor, s.lastReset = actor, req
	return leave.ResetBalancesResponse{TotalReset: 3}, nil
}

func (s *stubLeaveService) ListLeaveRequests(_ context.Context, actor user.Identity, _ leave.LeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	s.lastActor = actor
	return leave.ListLeaveRequestResponse{Page: 1, Limit: 20}, nil
}

type routerFixture struct {
	handler    http.Handler
	tokens     *jwt.JWTService
	attendance *stubAttendanceService
	leave      *stubLeaveService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixtureWith(t, RouterOptions{})
}

func newRouterFixtureWith(t *testing.T, opts RouterOptions) *routerFixture {
	t.Helper()

	tokens, err := jwt.NewJWTService("router-secret", "1h")
	require.NoError(t, err)

	f := &routerFixture{
		tokens:     tokens,
		attendance: &stubAttendanceService{},
		leave:      &stubLeaveService{},
	}
	f.handler = NewRouter(tokens, NewAttendanceHandler(f.attendance), NewLeaveHandler(f.leave), opts)
	return f
}

func (f *routerFixture) do(t *testing.T, role user.Role, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if role != "" {
		token, _, err := f.tokens.GenerateAccessToken("u-"+string(role), role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, "", http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ClockIn(t *testing.T) {
	f := newRouterFixture(t)
	body := map[string]interface{}{"workLocation": "Remote", "timezone": "Asia/Kolkata"}

	t.Run("requires a token", func(t *testing.T) {
		rec := f.do(t, "", http.MethodPost, "/api/attendance/clock-in", jsonBody(t, body), "application/json")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes the caller identity", func(t *testing.T) {
		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/attendance/clock-in", jsonBody(t, body), "application/json")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, user.Identity{UserID: "u-employee", Role: user.RoleEmployee}, f.attendance.lastActor)
		assert.Equal(t, "Asia/Kolkata", f.attendance.lastClockIn.Timezone)
	})

	t.Run("geofence violation is forbidden", func(t *testing.T) {
		f.attendance.clockInErr = geofence.ErrGeofenceViolation
		defer func() { f.attendance.clockInErr = nil }()

		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/attendance/clock-in", jsonBody(t, body), "application/json")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "GEOFENCE_VIOLATION", resp.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/attendance/clock-in", bytes.NewBufferString("{"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_ApproveAttendanceRequiresApprover(t *testing.T) {
	f := newRouterFixture(t)
	body := map[string]interface{}{"attendanceId": "att-9", "approvalStatus": "Approved"}

	rec := f.do(t, user.RoleEmployee, http.MethodPut, "/api/attendance/approve", jsonBody(t, body), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, user.RoleManager, http.MethodPut, "/api/attendance/approve", jsonBody(t, body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "att-9", f.attendance.lastApprove.AttendanceID)
}

func TestRouter_SubmitLeave(t *testing.T) {
	f := newRouterFixture(t)
	payload := map[string]interface{}{
		"leaveType":       "Casual",
		"startDate":       "2024-01-10",
		"endDate":         "2024-01-12",
		"reason":          "family event",
		"useLeaveBalance": true,
	}

	t.Run("json", func(t *testing.T) {
		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/leave/add", jsonBody(t, payload), "application/json")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, "Casual", f.leave.lastSubmit.LeaveType)
		assert.True(t, f.leave.lastSubmit.UseLeaveBalance)
		assert.Empty(t, f.leave.lastSubmit.Files)
	})

	t.Run("multipart with documents", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)

		data, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("data", string(data)))
		for _, name := range []string{"certificate.pdf", "ticket.png"} {
			part, err := mw.CreateFormFile("documents", name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())

		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/leave/add", body, mw.FormDataContentType())
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, f.leave.lastSubmit.Files, 2)
		assert.Equal(t, "certificate.pdf", f.leave.lastSubmit.Files[0].Filename)
		assert.Equal(t, "2024-01-12", f.leave.lastSubmit.EndDate)
	})

	t.Run("multipart without data field", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		require.NoError(t, mw.Close())

		rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/leave/add", body, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_LeaveActions(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, user.RoleEmployee, http.MethodPost, "/api/leave/lr-7/approve", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, user.RoleManager, http.MethodPost, "/api/leave/lr-7/approve",
		bytes.NewBufferString(`{"comment":"enjoy"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "lr-7", f.leave.lastAction.RequestID)
	require.NotNil(t, f.leave.lastAction.Comment)
	assert.Equal(t, "enjoy", *f.leave.lastAction.Comment)
	assert.Equal(t, user.RoleManager, f.leave.lastActor.Role)
}

func TestRouter_ResetIsAdminOnly(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"carryForward":true,"userIds":["emp-1"]}`

	rec := f.do(t, user.RoleManager, http.MethodPost, "/api/leave/balance/reset", bytes.NewBufferString(body), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, user.RoleAdmin, http.MethodPost, "/api/leave/balance/reset", bytes.NewBufferString(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.leave.lastReset.CarryForward)
	assert.Equal(t, []string{"emp-1"}, f.leave.lastReset.UserIDs)
	assert.True(t, strings.Contains(rec.Body.String(), `"totalReset":3`))
}

func TestRouter_ListsRequireViewAll(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/api/attendance/", "/api/leave/"} {
		t.Run(path, func(t *testing.T) {
			rec := f.do(t, user.RoleEmployee, http.MethodGet, path, nil, "")
			assert.Equal(t, http.StatusForbidden, rec.Code)

			rec = f.do(t, user.RoleManager, http.MethodGet, path, nil, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRouter_PolicyRequiresPolicyManage(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, user.RoleManager, http.MethodPost, "/api/leave/policy/",
		bytes.NewBufferString(`{"name":"Standard"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_UploadsAreOwnerChecked(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "leave", "u-employee"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leave", "u-employee", "cert.pdf"), []byte("%PDF-1.4"), 0o644))

	f := newRouterFixtureWith(t, RouterOptions{UploadsDir: dir})
	const own = "/uploads/leave/u-employee/cert.pdf"

	tests := []struct {
		name   string
		role   user.Role
		path   string
		status int
	}{
		{"anonymous", "", own, http.StatusUnauthorized},
		{"uploader", user.RoleEmployee, own, http.StatusOK},
		{"approver", user.RoleManager, own, http.StatusOK},
		{"another employee's folder", user.RoleEmployee, "/uploads/leave/u-other/cert.pdf", http.StatusForbidden},
		{"traversal out of own folder", user.RoleEmployee, "/uploads/leave/u-employee/../u-other/cert.pdf", http.StatusForbidden},
		{"directory listing", user.RoleEmployee, "/uploads/leave/", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.role, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "%PDF-1.4", rec.Body.String())
			}
		})
	}
}
