// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/middleware"
	businessflow "github.com/dealdesk/deal-desk/business_flow"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	ExportDeals(c fiber.Ctx) error
}

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	reportFlow businessflow.AdminDealReportFlow
	validator  *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reportFlow businessflow.AdminDealReportFlow) *AdminHandler {
	return &AdminHandler{
		reportFlow: reportFlow,
		validator:  validator.New(),
	}
}

func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// ExportDeals streams the deal portfolio workbook to the administrator
func (h *AdminHandler) ExportDeals(c fiber.Ctx) error {
	var req dto.ExportDealsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	filename, content, err := h.reportFlow.ExportDealsExcel(h.createRequestContext(c, "/api/v1/admin/deals/export"), adminID, &req, metadata)
	if err != nil {
		if businessflow.IsReviewNotAuthorized(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Deal reports are restricted to administrators", dto.ErrorAdminOnly, nil)
		}
		if errors.Is(err, businessflow.ErrStartDateAfterEndDate) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Start date cannot be after end date", dto.ErrorInvalidDateRange, nil)
		}

		log.Println("Deal report export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal report export failed", dto.ErrorReportGenerationFailed, nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	return c.Send(content)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
