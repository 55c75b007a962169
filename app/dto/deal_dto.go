package dto

import (
	"time"

	"github.com/dealdesk/deal-desk/models"
)

// CreateDealRequest represents the request to create a new deal
type CreateDealRequest struct {
	SellerID            uint                   `json:"-"`
	Title               *string                `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	DealType            *string                `json:"deal_type,omitempty" validate:"omitempty,oneof=new_business renewal upsell"`
	SalesChannel        *string                `json:"sales_channel,omitempty" validate:"omitempty,oneof=advertiser agency"`
	HasNonStandardTerms *bool                  `json:"has_non_standard_terms,omitempty"`
	ContractTermMonths  *int                   `json:"contract_term_months,omitempty" validate:"omitempty,min=1,max=120"`
	AdvertiserBaseline  *models.ClientBaseline `json:"advertiser_baseline,omitempty"`
	AgencyBaseline      *models.ClientBaseline `json:"agency_baseline,omitempty"`
}

// CreateDealResponse represents the response to create a new deal
type CreateDealResponse struct {
	Message   string `json:"message"`
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	TierCount int    `json:"tier_count"`
	CreatedAt string `json:"created_at"`
}

// UpdateDealRequest represents the request to update an existing deal's spec
type UpdateDealRequest struct {
	UUID                string                 `json:"-"`
	SellerID            uint                   `json:"-"`
	Title               *string                `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	DealType            *string                `json:"deal_type,omitempty" validate:"omitempty,oneof=new_business renewal upsell"`
	SalesChannel        *string                `json:"sales_channel,omitempty" validate:"omitempty,oneof=advertiser agency"`
	HasNonStandardTerms *bool                  `json:"has_non_standard_terms,omitempty"`
	ContractTermMonths  *int                   `json:"contract_term_months,omitempty" validate:"omitempty,min=1,max=120"`
	AdvertiserBaseline  *models.ClientBaseline `json:"advertiser_baseline,omitempty"`
	AgencyBaseline      *models.ClientBaseline `json:"agency_baseline,omitempty"`
}

// UpdateDealResponse represents the response to update an existing deal
type UpdateDealResponse struct {
	Message string `json:"message"`
}

// GetDealRequest represents the request to fetch an existing deal
type GetDealRequest struct {
	UUID     string `json:"-"`
	SellerID uint   `json:"-"`
}

// GetDealResponse represents a deal in responses
type GetDealResponse struct {
	ID                  uint                   `json:"id"`
	UUID                string                 `json:"uuid"`
	Status              string                 `json:"status"`
	StatusDisplayName   string                 `json:"status_display_name"`
	Title               *string                `json:"title,omitempty"`
	DealType            *string                `json:"deal_type,omitempty"`
	SalesChannel        *string                `json:"sales_channel,omitempty"`
	HasNonStandardTerms *bool                  `json:"has_non_standard_terms,omitempty"`
	ContractTermMonths  *int                   `json:"contract_term_months,omitempty"`
	AdvertiserBaseline  *models.ClientBaseline `json:"advertiser_baseline,omitempty"`
	AgencyBaseline      *models.ClientBaseline `json:"agency_baseline,omitempty"`
	Tiers               []models.Tier          `json:"tiers"`
	Comment             *string                `json:"comment,omitempty"`
	LastStatusChange    time.Time              `json:"last_status_change"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           *time.Time             `json:"updated_at,omitempty"`
}

// ListDealsRequest represents filter criteria for listing deals
type ListDealsRequest struct {
	SellerID uint    `json:"-"`
	Status   *string `json:"status,omitempty" query:"status"`
	Title    *string `json:"title,omitempty" query:"title"`
	Page     int     `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListDealsResponse represents a paginated deal listing
type ListDealsResponse struct {
	Items      []GetDealResponse `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalItems int64             `json:"total_items"`
	TotalPages int               `json:"total_pages"`
}

// AddTierRequest represents the request to append a tier to a deal
type AddTierRequest struct {
	UUID     string `json:"-"`
	SellerID uint   `json:"-"`
}

// AddTierResponse returns the newly created tier
type AddTierResponse struct {
	Message string      `json:"message"`
	Tier    models.Tier `json:"tier"`
}

// UpdateTierRequest represents a partial update of one tier
type UpdateTierRequest struct {
	UUID              string              `json:"-"`
	SellerID          uint                `json:"-"`
	TierNumber        int                 `json:"-"`
	AnnualRevenue     *float64            `json:"annual_revenue,omitempty"`
	AnnualGrossMargin *float64            `json:"annual_gross_margin,omitempty"`
	Incentives        *[]models.Incentive `json:"incentives,omitempty"`
}

// UpdateTierResponse represents the response to a tier update
type UpdateTierResponse struct {
	Message string      `json:"message"`
	Tier    models.Tier `json:"tier"`
}

// RemoveTierRequest represents the request to remove a tier from a deal
type RemoveTierRequest struct {
	UUID       string `json:"-"`
	SellerID   uint   `json:"-"`
	TierNumber int    `json:"-"`
}

// RemoveTierResponse returns the renumbered tier list after removal
type RemoveTierResponse struct {
	Message string        `json:"message"`
	Tiers   []models.Tier `json:"tiers"`
}

// FinancialSummaryResponse carries the derived financial view of a deal
type FinancialSummaryResponse struct {
	Summary    models.DealFinancialSummary `json:"summary"`
	TierGrowth []models.TierGrowth         `json:"tier_growth,omitempty"`
	Currency   string                      `json:"currency"`
}

// ValidationResponse lists the current tier model violations of a deal
type ValidationResponse struct {
	Valid      bool                   `json:"valid"`
	Violations []models.TierViolation `json:"violations"`
}

// ChainPreviewResponse shows the approval chain the deal's current state
// would route to, without freezing anything.
type ChainPreviewResponse struct {
	Stages                   []ChainStageDTO `json:"stages"`
	TotalStages              int             `json:"total_stages"`
	EstimatedTurnaroundHours float64         `json:"estimated_turnaround_hours"`
	EstimatedCompletionAt    time.Time       `json:"estimated_completion_at"`
}

// ChainStageDTO is one step of a previewed or frozen approval chain
type ChainStageDTO struct {
	Stage              int     `json:"stage"`
	Department         string  `json:"department"`
	Role               string  `json:"role"`
	EstimatedTimeHours float64 `json:"estimated_time_hours"`
}

// SubmitDealRequest represents the request to submit a deal for approval
type SubmitDealRequest struct {
	UUID     string `json:"-"`
	SellerID uint   `json:"-"`
}

// SubmitDealResponse represents the response after a successful submission
type SubmitDealResponse struct {
	Message     string          `json:"message"`
	Status      string          `json:"status"`
	Chain       []ChainStageDTO `json:"chain"`
	TotalStages int             `json:"total_stages"`
	SubmittedAt string          `json:"submitted_at"`
}

// CancelDealRequest represents the request to cancel a deal
type CancelDealRequest struct {
	UUID     string  `json:"-"`
	SellerID uint    `json:"-"`
	Comment  *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// CancelDealResponse represents the response to a deal cancellation
type CancelDealResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Common error codes for deal operations
const (
	ErrorDealNotFound        = "DEAL_NOT_FOUND"
	ErrorDealAccessDenied    = "DEAL_ACCESS_DENIED"
	ErrorDealNotEditable     = "DEAL_NOT_EDITABLE"
	ErrorTierCapacity        = "TIER_CAPACITY_EXCEEDED"
	ErrorMinimumTiers        = "MINIMUM_TIERS_VIOLATION"
	ErrorTierNotFound        = "TIER_NOT_FOUND"
	ErrorDealInvalid         = "DEAL_VALIDATION_FAILED"
	ErrorInvalidTransition   = "INVALID_STATE_TRANSITION"
)
