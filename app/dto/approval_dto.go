package dto

import (
	"time"
)

// ReviewApprovalRequest represents a reviewer decision on one approval row
type ReviewApprovalRequest struct {
	ApprovalID uint    `json:"-"`
	ReviewerID uint    `json:"-"`
	Decision   string  `json:"decision" validate:"required,oneof=approved rejected revision_requested"`
	Comments   *string `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// ReviewApprovalResponse represents the outcome of a review
type ReviewApprovalResponse struct {
	Message    string `json:"message"`
	Decision   string `json:"decision"`
	DealStatus string `json:"deal_status"`
	ReviewedAt string `json:"reviewed_at"`
}

// ApprovalDTO is one approval row in responses
type ApprovalDTO struct {
	ID             uint       `json:"id"`
	UUID           string     `json:"uuid"`
	DealID         uint       `json:"deal_id"`
	DealUUID       string     `json:"deal_uuid,omitempty"`
	ApprovalStage  int        `json:"approval_stage"`
	DepartmentName string     `json:"department_name"`
	RequiredRole   string     `json:"required_role"`
	Status         string     `json:"status"`
	Comments       *string    `json:"comments,omitempty"`
	ReviewerName   *string    `json:"reviewer_name,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ApprovalStatusResponse reports a deal's workflow progress and its live
// approval rows
type ApprovalStatusResponse struct {
	DealStatus   string        `json:"deal_status"`
	Percentage   float64       `json:"percentage"`
	CurrentStage int           `json:"current_stage"`
	IsComplete   bool          `json:"is_complete"`
	TotalStages  int           `json:"total_stages"`
	Approvals    []ApprovalDTO `json:"approvals"`
}

// ListPendingApprovalsRequest represents the reviewer work-queue query
type ListPendingApprovalsRequest struct {
	ReviewerID uint    `json:"-"`
	Department *string `json:"department,omitempty" query:"department"`
	Page       int     `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListPendingApprovalsResponse represents a paginated pending approval listing
type ListPendingApprovalsResponse struct {
	Items      []ApprovalDTO `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalItems int64         `json:"total_items"`
	TotalPages int           `json:"total_pages"`
}

// DepartmentDTO is one approval department in responses
type DepartmentDTO struct {
	ID             uint     `json:"id"`
	UUID           string   `json:"uuid"`
	DepartmentName string   `json:"department_name"`
	DisplayName    string   `json:"display_name"`
	IncentiveTypes []string `json:"incentive_types"`
	IsActive       *bool    `json:"is_active"`
}

// ListDepartmentsResponse lists the active approval departments
type ListDepartmentsResponse struct {
	Departments []DepartmentDTO `json:"departments"`
}

// Common error codes for approval operations
const (
	ErrorApprovalNotFound     = "APPROVAL_NOT_FOUND"
	ErrorApprovalNotPending   = "APPROVAL_NOT_PENDING"
	ErrorReviewNotAuthorized  = "REVIEW_NOT_AUTHORIZED"
	ErrorWorkflowNotInitiated = "WORKFLOW_NOT_INITIATED"
	ErrorWorkflowInitiated    = "WORKFLOW_ALREADY_INITIATED"
)
