package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	// Requests
	CreateRequest(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	ListRequests(w http.ResponseWriter, r *http.Request)
	ApproveRequest(w http.ResponseWriter, r *http.Request)
	RejectRequest(w http.ResponseWriter, r *http.Request)
	CancelRequest(w http.ResponseWriter, r *http.Request)

	// Ledger
	GetBalance(w http.ResponseWriter, r *http.Request)
	ResetBalances(w http.ResponseWriter, r *http.Request)
	ListResetHistory(w http.ResponseWriter, r *http.Request)

	// Policies
	CreatePolicy(w http.ResponseWriter, r *http.Request)
	UpdatePolicy(w http.ResponseWriter, r *http.Request)
	GetPolicy(w http.ResponseWriter, r *http.Request)
	ListPolicies(w http.ResponseWriter, r *http.Request)
	DeletePolicy(w http.ResponseWriter, r *http.Request)
	AssignPolicy(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
	}
}

// CreateRequest accepts either a JSON body or a multipart form with the JSON
// payload in "data" and attachments under "documents".
func (l *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.CreateLeaveRequestRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			response.BadRequest(w, "Field 'data' is required", nil)
			return
		}
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
		req.Files = r.MultipartForm.File["documents"]
	} else if !decodeJSON(w, r, &req) {
		return
	}

	leaveRequest, err := l.leaveService.SubmitLeaveRequest(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request submitted successfully", leaveRequest)
}

// GetRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	leaveRequest, err := l.leaveService.GetLeaveRequest(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leaveRequest)
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	result, err := l.leaveService.ListMyLeaveRequests(r.Context(), actor, leaveRequestFilter(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.LeaveRequests, response.NewMeta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// ListRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	filter := leaveRequestFilter(r)
	filter.UserID = queryString(r, "userId")

	result, err := l.leaveService.ListLeaveRequests(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.LeaveRequests, response.NewMeta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// ApproveRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	l.act(w, r, l.leaveService.ApproveLeaveRequest, "Leave request approved successfully")
}

// RejectRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) RejectRequest(w http.ResponseWriter, r *http.Request) {
	l.act(w, r, l.leaveService.RejectLeaveRequest, "Leave request rejected successfully")
}

// CancelRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CancelRequest(w http.ResponseWriter, r *http.Request) {
	l.act(w, r, l.leaveService.CancelLeaveRequest, "Leave request cancelled successfully")
}

type leaveAction func(ctx context.Context, actor user.Identity, req leave.LeaveActionRequest) (leave.LeaveRequestResponse, error)

func (l *LeaveHandlerImpl) act(w http.ResponseWriter, r *http.Request, action leaveAction, message string) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.LeaveActionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.RequestID = chi.URLParam(r, "id")

	leaveRequest, err := action(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, leaveRequest)
}

// GetBalance returns every balance of a user, or one balance with ?leaveType=.
func (l *LeaveHandlerImpl) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userId")

	if leaveType := r.URL.Query().Get("leaveType"); leaveType != "" {
		balance, err := l.leaveService.GetBalance(r.Context(), actor, userID, leave.LeaveTypeCode(leaveType))
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Success(w, balance)
		return
	}

	balances, err := l.leaveService.GetUserBalances(r.Context(), actor, userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, balances)
}

// ResetBalances implements LeaveHandler.
func (l *LeaveHandlerImpl) ResetBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.ResetBalancesRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := l.leaveService.ResetBalances(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave balances reset", result)
}

// ListResetHistory implements LeaveHandler.
func (l *LeaveHandlerImpl) ListResetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	page, limit := pagination(r)
	result, err := l.leaveService.ListResetHistory(r.Context(), actor, page, limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Histories, response.NewMeta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// CreatePolicy implements LeaveHandler.
func (l *LeaveHandlerImpl) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.CreatePolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	policy, err := l.leaveService.CreatePolicy(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave policy created successfully", policy)
}

// UpdatePolicy implements LeaveHandler.
func (l *LeaveHandlerImpl) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.UpdatePolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	policy, err := l.leaveService.UpdatePolicy(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave policy updated successfully", policy)
}

// GetPolicy implements LeaveHandler.
func (l *LeaveHandlerImpl) GetPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	policy, err := l.leaveService.GetPolicy(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policy)
}

// ListPolicies implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPolicies(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	policies, err := l.leaveService.ListPolicies(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policies)
}

// DeletePolicy implements LeaveHandler.
func (l *LeaveHandlerImpl) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := l.leaveService.DeletePolicy(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave policy deleted successfully", nil)
}

// AssignPolicy implements LeaveHandler.
func (l *LeaveHandlerImpl) AssignPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req leave.AssignPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.PolicyID = chi.URLParam(r, "id")

	result, err := l.leaveService.AssignPolicy(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave policy assigned successfully", result)
}

func leaveRequestFilter(r *http.Request) leave.LeaveRequestFilter {
	filter := leave.LeaveRequestFilter{
		Status:    queryString(r, "status"),
		LeaveType: queryString(r, "leaveType"),
	}
	filter.Page, filter.Limit = pagination(r)
	return filter
}
