// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"math"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// getUser loads a user by ID and checks the account is usable.
func getUser(ctx context.Context, userRepo repository.UserRepository, userID uint) (*models.User, error) {
	user, err := userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// getSellerDeal loads a deal by UUID and enforces seller ownership.
func getSellerDeal(ctx context.Context, dealRepo repository.DealRepository, uuid string, sellerID uint) (*models.Deal, error) {
	if uuid == "" {
		return nil, ErrDealUUIDRequired
	}
	deal, err := dealRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	if deal.SellerID != sellerID {
		return nil, ErrDealAccessDenied
	}
	return deal, nil
}

// writeAuditLog persists an audit entry; callers ignore the error so audit
// failures never fail the flow.
func writeAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, userID *uint, action, description string, success bool, errorMessage *string, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errorMessage,
		CreatedAt:    utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	return auditRepo.Save(ctx, entry)
}

// normalizePagination applies defaults and bounds to page/page_size inputs.
func normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

func totalPages(totalItems int64, pageSize int) int {
	if totalItems == 0 {
		return 0
	}
	return int(math.Ceil(float64(totalItems) / float64(pageSize)))
}

// ToUserInfo converts a user model to its response representation
func ToUserInfo(user models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:         user.ID,
		UUID:       user.UUID.String(),
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       user.Role,
		Department: user.Department,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

// ToDealResponse converts a deal model to its response representation
func ToDealResponse(deal models.Deal) dto.GetDealResponse {
	resp := dto.GetDealResponse{
		ID:                  deal.ID,
		UUID:                deal.UUID.String(),
		Status:              string(deal.Status),
		StatusDisplayName:   deal.GetStatusDisplayName(),
		Title:               deal.Spec.Title,
		HasNonStandardTerms: deal.Spec.HasNonStandardTerms,
		ContractTermMonths:  deal.Spec.ContractTermMonths,
		AdvertiserBaseline:  deal.Spec.AdvertiserBaseline,
		AgencyBaseline:      deal.Spec.AgencyBaseline,
		Tiers:               deal.Tiers,
		Comment:             deal.Comment,
		LastStatusChange:    deal.LastStatusChange,
		CreatedAt:           deal.CreatedAt,
		UpdatedAt:           deal.UpdatedAt,
	}
	if deal.Spec.DealType != nil {
		dealType := string(*deal.Spec.DealType)
		resp.DealType = &dealType
	}
	if deal.Spec.SalesChannel != nil {
		channel := string(*deal.Spec.SalesChannel)
		resp.SalesChannel = &channel
	}
	return resp
}

// ToApprovalDTO converts an approval model to its response representation
func ToApprovalDTO(approval models.Approval) dto.ApprovalDTO {
	item := dto.ApprovalDTO{
		ID:             approval.ID,
		UUID:           approval.UUID.String(),
		DealID:         approval.DealID,
		ApprovalStage:  approval.ApprovalStage,
		DepartmentName: approval.DepartmentName,
		RequiredRole:   approval.RequiredRole,
		Status:         string(approval.Status),
		Comments:       approval.Comments,
		ReviewedAt:     approval.ReviewedAt,
		DueDate:        approval.DueDate,
		CreatedAt:      approval.CreatedAt,
	}
	if approval.Deal != nil {
		item.DealUUID = approval.Deal.UUID.String()
	}
	if approval.Reviewer != nil {
		name := approval.Reviewer.FullName()
		item.ReviewerName = &name
	}
	return item
}

// ToChainStageDTOs converts chain stages to their response representation
func ToChainStageDTOs(stages []models.ChainStage) []dto.ChainStageDTO {
	out := make([]dto.ChainStageDTO, 0, len(stages))
	for _, s := range stages {
		out = append(out, dto.ChainStageDTO{
			Stage:              s.Stage,
			Department:         s.Department,
			Role:               s.Role,
			EstimatedTimeHours: s.EstimatedTime.Hours(),
		})
	}
	return out
}
