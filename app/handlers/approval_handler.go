// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/middleware"
	businessflow "github.com/dealdesk/deal-desk/business_flow"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ApprovalHandlerInterface defines the contract for approval handlers
type ApprovalHandlerInterface interface {
	ListPendingApprovals(c fiber.Ctx) error
	ReviewApproval(c fiber.Ctx) error
	GetApprovalStatus(c fiber.Ctx) error
	ListDepartments(c fiber.Ctx) error
}

// ApprovalHandler handles approval workflow HTTP requests
type ApprovalHandler struct {
	workflowFlow businessflow.ApprovalWorkflowFlow
	validator    *validator.Validate
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(workflowFlow businessflow.ApprovalWorkflowFlow) *ApprovalHandler {
	return &ApprovalHandler{
		workflowFlow: workflowFlow,
		validator:    validator.New(),
	}
}

func (h *ApprovalHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ApprovalHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListPendingApprovals returns the reviewer's pending work queue
func (h *ApprovalHandler) ListPendingApprovals(c fiber.Ctx) error {
	var req dto.ListPendingApprovalsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	reviewerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.ReviewerID = reviewerID

	result, err := h.workflowFlow.ListPendingApprovals(h.createRequestContext(c, "/api/v1/approvals/pending"), &req)
	if err != nil {
		return h.approvalError(c, err, "Failed to list pending approvals", "APPROVAL_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pending approvals retrieved successfully", result)
}

// ReviewApproval records a reviewer decision on one approval
func (h *ApprovalHandler) ReviewApproval(c fiber.Ctx) error {
	var req dto.ReviewApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	reviewerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	approvalID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || approvalID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid approval ID", "INVALID_APPROVAL_ID", nil)
	}

	req.ReviewerID = reviewerID
	req.ApprovalID = uint(approvalID)

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.workflowFlow.ReviewApproval(h.createRequestContext(c, "/api/v1/approvals/"+c.Params("id")+"/review"), &req, metadata)
	if err != nil {
		return h.approvalError(c, err, "Review failed", "REVIEW_FAILED")
	}

	middleware.RecordApprovalDecision(result.Decision)
	return h.SuccessResponse(c, fiber.StatusOK, "Review recorded successfully", result)
}

// GetApprovalStatus returns the workflow progress of a deal
func (h *ApprovalHandler) GetApprovalStatus(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	dealUUID := c.Params("uuid")
	if dealUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Deal UUID is required", "MISSING_DEAL_UUID", nil)
	}

	result, err := h.workflowFlow.GetApprovalStatus(h.createRequestContext(c, "/api/v1/deals/"+dealUUID+"/approval-status"), dealUUID, userID)
	if err != nil {
		return h.approvalError(c, err, "Failed to fetch approval status", "APPROVAL_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Approval status retrieved successfully", result)
}

// ListDepartments returns the active approval departments
func (h *ApprovalHandler) ListDepartments(c fiber.Ctx) error {
	result, err := h.workflowFlow.ListDepartments(h.createRequestContext(c, "/api/v1/approval-departments"))
	if err != nil {
		return h.approvalError(c, err, "Failed to list departments", "DEPARTMENT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Departments retrieved successfully", result)
}

// approvalError maps common approval business errors to HTTP responses
func (h *ApprovalHandler) approvalError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	switch {
	case businessflow.IsUserNotFound(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", dto.ErrorUserNotFound, nil)
	case businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", dto.ErrorAccountInactive, nil)
	case businessflow.IsDealNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
	case businessflow.IsDealAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: deal belongs to another seller", dto.ErrorDealAccessDenied, nil)
	case businessflow.IsApprovalNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Approval not found", dto.ErrorApprovalNotFound, nil)
	case businessflow.IsApprovalNotPending(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Approval has already been decided", dto.ErrorApprovalNotPending, nil)
	case businessflow.IsReviewNotAuthorized(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Not authorized to review this approval", dto.ErrorReviewNotAuthorized, nil)
	default:
		log.Println(fallbackMessage, err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
	}
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ApprovalHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
