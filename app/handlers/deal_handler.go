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

// DealHandlerInterface defines the contract for deal handlers
type DealHandlerInterface interface {
	CreateDeal(c fiber.Ctx) error
	GetDeal(c fiber.Ctx) error
	ListDeals(c fiber.Ctx) error
	UpdateDeal(c fiber.Ctx) error
	AddTier(c fiber.Ctx) error
	UpdateTier(c fiber.Ctx) error
	RemoveTier(c fiber.Ctx) error
	GetFinancialSummary(c fiber.Ctx) error
	ValidateDeal(c fiber.Ctx) error
	PreviewChain(c fiber.Ctx) error
	SubmitDeal(c fiber.Ctx) error
	CancelDeal(c fiber.Ctx) error
}

// DealHandler handles deal-related HTTP requests
type DealHandler struct {
	dealFlow  businessflow.DealFlow
	validator *validator.Validate
}

// NewDealHandler creates a new deal handler
func NewDealHandler(dealFlow businessflow.DealFlow) *DealHandler {
	return &DealHandler{
		dealFlow:  dealFlow,
		validator: validator.New(),
	}
}

func (h *DealHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DealHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateDeal creates a new draft deal for the authenticated seller
func (h *DealHandler) CreateDeal(c fiber.Ctx) error {
	var req dto.CreateDealRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.SellerID = sellerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.CreateDeal(h.createRequestContext(c, "/api/v1/deals"), &req, metadata)
	if err != nil {
		return h.dealError(c, err, "Deal creation failed", "DEAL_CREATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Deal created successfully", result)
}

// GetDeal returns one of the authenticated seller's deals
func (h *DealHandler) GetDeal(c fiber.Ctx) error {
	req, errResp := h.sellerDealRequest(c)
	if errResp != nil {
		return errResp
	}

	result, err := h.dealFlow.GetDeal(h.createRequestContext(c, "/api/v1/deals/"+req.UUID), req)
	if err != nil {
		return h.dealError(c, err, "Failed to fetch deal", "DEAL_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal retrieved successfully", result)
}

// ListDeals returns the authenticated seller's deals, paginated
func (h *DealHandler) ListDeals(c fiber.Ctx) error {
	var req dto.ListDealsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.SellerID = sellerID

	result, err := h.dealFlow.ListDeals(h.createRequestContext(c, "/api/v1/deals"), &req)
	if err != nil {
		return h.dealError(c, err, "Failed to list deals", "DEAL_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deals retrieved successfully", result)
}

// UpdateDeal updates the spec of an editable deal
func (h *DealHandler) UpdateDeal(c fiber.Ctx) error {
	var req dto.UpdateDealRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.SellerID = sellerID
	req.UUID = c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.UpdateDeal(h.createRequestContext(c, "/api/v1/deals/"+req.UUID), &req, metadata)
	if err != nil {
		return h.dealError(c, err, "Deal update failed", "DEAL_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal updated successfully", result)
}

// AddTier appends a tier to an editable deal
func (h *DealHandler) AddTier(c fiber.Ctx) error {
	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.AddTierRequest{
		UUID:     c.Params("uuid"),
		SellerID: sellerID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.AddTier(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/tiers"), req, metadata)
	if err != nil {
		return h.dealError(c, err, "Failed to add tier", "TIER_ADD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Tier added successfully", result)
}

// UpdateTier applies a partial update to one tier of an editable deal
func (h *DealHandler) UpdateTier(c fiber.Ctx) error {
	var req dto.UpdateTierRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tierNumber, err := strconv.Atoi(c.Params("tierNumber"))
	if err != nil || tierNumber < 1 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tier number", "INVALID_TIER_NUMBER", nil)
	}

	req.SellerID = sellerID
	req.UUID = c.Params("uuid")
	req.TierNumber = tierNumber

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.UpdateTier(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/tiers/"+c.Params("tierNumber")), &req, metadata)
	if err != nil {
		return h.dealError(c, err, "Failed to update tier", "TIER_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tier updated successfully", result)
}

// RemoveTier removes one tier from an editable deal and renumbers the rest
func (h *DealHandler) RemoveTier(c fiber.Ctx) error {
	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tierNumber, err := strconv.Atoi(c.Params("tierNumber"))
	if err != nil || tierNumber < 1 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tier number", "INVALID_TIER_NUMBER", nil)
	}

	req := &dto.RemoveTierRequest{
		UUID:       c.Params("uuid"),
		SellerID:   sellerID,
		TierNumber: tierNumber,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.RemoveTier(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/tiers/"+c.Params("tierNumber")), req, metadata)
	if err != nil {
		return h.dealError(c, err, "Failed to remove tier", "TIER_REMOVE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tier removed successfully", result)
}

// GetFinancialSummary returns the derived financial view of a deal
func (h *DealHandler) GetFinancialSummary(c fiber.Ctx) error {
	req, errResp := h.sellerDealRequest(c)
	if errResp != nil {
		return errResp
	}

	result, err := h.dealFlow.GetFinancialSummary(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/summary"), req)
	if err != nil {
		return h.dealError(c, err, "Failed to compute financial summary", "SUMMARY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Financial summary computed successfully", result)
}

// ValidateDeal returns the current tier model violations of a deal
func (h *DealHandler) ValidateDeal(c fiber.Ctx) error {
	req, errResp := h.sellerDealRequest(c)
	if errResp != nil {
		return errResp
	}

	result, err := h.dealFlow.ValidateDeal(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/validation"), req)
	if err != nil {
		return h.dealError(c, err, "Failed to validate deal", "DEAL_VALIDATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal validated successfully", result)
}

// PreviewChain shows which approval chain the deal would route to today
func (h *DealHandler) PreviewChain(c fiber.Ctx) error {
	req, errResp := h.sellerDealRequest(c)
	if errResp != nil {
		return errResp
	}

	result, err := h.dealFlow.PreviewChain(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/chain-preview"), req)
	if err != nil {
		if businessflow.IsInvalidDealAttributes(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Deal attributes are incomplete for routing", "INCOMPLETE_DEAL_ATTRIBUTES", nil)
		}
		return h.dealError(c, err, "Failed to preview approval chain", "CHAIN_PREVIEW_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Approval chain previewed successfully", result)
}

// SubmitDeal submits a deal for approval and freezes its approval chain
func (h *DealHandler) SubmitDeal(c fiber.Ctx) error {
	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.SubmitDealRequest{
		UUID:     c.Params("uuid"),
		SellerID: sellerID,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.SubmitDeal(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/submit"), req, metadata)
	if err != nil {
		middleware.RecordDealSubmission("failure")
		if businessflow.IsDealSpecIncomplete(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Deal type, sales channel and contract term are required before submission", "DEAL_SPEC_INCOMPLETE", nil)
		}
		if businessflow.IsDealModelInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Deal has validation violations", dto.ErrorDealInvalid, nil)
		}
		if businessflow.IsWorkflowAlreadyInitiated(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Approval workflow already initiated", dto.ErrorWorkflowInitiated, nil)
		}
		return h.dealError(c, err, "Deal submission failed", "DEAL_SUBMISSION_FAILED")
	}

	middleware.RecordDealSubmission("success")
	return h.SuccessResponse(c, fiber.StatusOK, "Deal submitted successfully", result)
}

// CancelDeal cancels a deal from any non-terminal status
func (h *DealHandler) CancelDeal(c fiber.Ctx) error {
	var req dto.CancelDealRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.SellerID = sellerID
	req.UUID = c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dealFlow.CancelDeal(h.createRequestContext(c, "/api/v1/deals/"+req.UUID+"/cancel"), &req, metadata)
	if err != nil {
		return h.dealError(c, err, "Deal cancellation failed", "DEAL_CANCELLATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal canceled successfully", result)
}

// sellerDealRequest builds the common UUID + seller request from the route
func (h *DealHandler) sellerDealRequest(c fiber.Ctx) (*dto.GetDealRequest, error) {
	sellerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return nil, h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	dealUUID := c.Params("uuid")
	if dealUUID == "" {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Deal UUID is required", "MISSING_DEAL_UUID", nil)
	}
	return &dto.GetDealRequest{UUID: dealUUID, SellerID: sellerID}, nil
}

// dealError maps common deal business errors to HTTP responses
func (h *DealHandler) dealError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	switch {
	case businessflow.IsUserNotFound(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", dto.ErrorUserNotFound, nil)
	case businessflow.IsAccountInactive(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is inactive", dto.ErrorAccountInactive, nil)
	case businessflow.IsDealNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
	case businessflow.IsDealAccessDenied(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: deal belongs to another seller", dto.ErrorDealAccessDenied, nil)
	case businessflow.IsDealNotEditable(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Deal is not editable in its current status", dto.ErrorDealNotEditable, nil)
	case businessflow.IsTierCapacityExceeded(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Tier capacity exceeded", dto.ErrorTierCapacity, nil)
	case businessflow.IsMinimumTiersViolation(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "At least one tier is required", dto.ErrorMinimumTiers, nil)
	case businessflow.IsTierNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tier not found", dto.ErrorTierNotFound, nil)
	case businessflow.IsInvalidStateChange(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Invalid deal status transition", dto.ErrorInvalidTransition, nil)
	default:
		log.Println(fallbackMessage, err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
	}
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *DealHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
