// Package businessflow contains the core business logic and use cases for deal intake workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"gorm.io/gorm"
)

// DealFlow handles the deal intake business logic
type DealFlow interface {
	CreateDeal(ctx context.Context, req *dto.CreateDealRequest, metadata *ClientMetadata) (*dto.CreateDealResponse, error)
	GetDeal(ctx context.Context, req *dto.GetDealRequest) (*dto.GetDealResponse, error)
	ListDeals(ctx context.Context, req *dto.ListDealsRequest) (*dto.ListDealsResponse, error)
	UpdateDeal(ctx context.Context, req *dto.UpdateDealRequest, metadata *ClientMetadata) (*dto.UpdateDealResponse, error)
	AddTier(ctx context.Context, req *dto.AddTierRequest, metadata *ClientMetadata) (*dto.AddTierResponse, error)
	UpdateTier(ctx context.Context, req *dto.UpdateTierRequest, metadata *ClientMetadata) (*dto.UpdateTierResponse, error)
	RemoveTier(ctx context.Context, req *dto.RemoveTierRequest, metadata *ClientMetadata) (*dto.RemoveTierResponse, error)
	GetFinancialSummary(ctx context.Context, req *dto.GetDealRequest) (*dto.FinancialSummaryResponse, error)
	ValidateDeal(ctx context.Context, req *dto.GetDealRequest) (*dto.ValidationResponse, error)
	PreviewChain(ctx context.Context, req *dto.GetDealRequest) (*dto.ChainPreviewResponse, error)
	SubmitDeal(ctx context.Context, req *dto.SubmitDealRequest, metadata *ClientMetadata) (*dto.SubmitDealResponse, error)
	CancelDeal(ctx context.Context, req *dto.CancelDealRequest, metadata *ClientMetadata) (*dto.CancelDealResponse, error)
}

// DealFlowImpl implements the deal business flow
type DealFlowImpl struct {
	dealRepo       repository.DealRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditLogRepository
	workflow       ApprovalWorkflowFlow
	approvalConfig config.ApprovalConfig
	db             *gorm.DB
}

// NewDealFlow creates a new deal flow instance
func NewDealFlow(
	dealRepo repository.DealRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	workflow ApprovalWorkflowFlow,
	approvalConfig config.ApprovalConfig,
	db *gorm.DB,
) DealFlow {
	return &DealFlowImpl{
		dealRepo:       dealRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		workflow:       workflow,
		approvalConfig: approvalConfig,
		db:             db,
	}
}

// CreateDeal creates a new draft deal seeded with the minimum tier structure
func (s *DealFlowImpl) CreateDeal(ctx context.Context, req *dto.CreateDealRequest, metadata *ClientMetadata) (*dto.CreateDealResponse, error) {
	seller, err := getUser(ctx, s.userRepo, req.SellerID)
	if err != nil {
		return nil, NewBusinessError("SELLER_LOOKUP_FAILED", "Failed to lookup seller", err)
	}

	var deal *models.Deal

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		spec := models.DealSpec{
			Title:               req.Title,
			HasNonStandardTerms: req.HasNonStandardTerms,
			ContractTermMonths:  req.ContractTermMonths,
			AdvertiserBaseline:  req.AdvertiserBaseline,
			AgencyBaseline:      req.AgencyBaseline,
		}
		if req.DealType != nil {
			dealType := models.DealType(*req.DealType)
			spec.DealType = &dealType
		}
		if req.SalesChannel != nil {
			channel := models.SalesChannel(*req.SalesChannel)
			spec.SalesChannel = &channel
		}

		tiers := models.TierList{}
		for len(tiers) < s.approvalConfig.MinTiers {
			if _, err := tiers.AddTier(s.approvalConfig.MaxTiers); err != nil {
				return err
			}
		}

		deal = &models.Deal{
			SellerID: seller.ID,
			Status:   models.DealStatusDraft,
			Spec:     spec,
			Tiers:    tiers,
		}
		return s.dealRepo.Save(txCtx, deal)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Deal creation failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, &seller.ID, models.AuditActionDealCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DEAL_CREATION_FAILED", "Deal creation failed", err)
	}

	msg := fmt.Sprintf("Deal created successfully: %s", deal.UUID.String())
	_ = writeAuditLog(ctx, s.auditRepo, &seller.ID, models.AuditActionDealCreated, msg, true, nil, metadata)

	return &dto.CreateDealResponse{
		Message:   "Deal created successfully",
		ID:        deal.ID,
		UUID:      deal.UUID.String(),
		Status:    string(deal.Status),
		TierCount: len(deal.Tiers),
		CreatedAt: deal.CreatedAt.Format(time.RFC3339),
	}, nil
}

// GetDeal returns one deal owned by the requesting seller
func (s *DealFlowImpl) GetDeal(ctx context.Context, req *dto.GetDealRequest) (*dto.GetDealResponse, error) {
	deal, err := getSellerDeal(ctx, s.dealRepo, req.UUID, req.SellerID)
	if err != nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", err)
	}

	resp := ToDealResponse(*deal)
	return &resp, nil
}

// ListDeals returns the seller's deals with pagination
func (s *DealFlowImpl) ListDeals(ctx context.Context, req *dto.ListDealsRequest) (*dto.ListDealsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("DEAL_LIST_VALIDATION_FAILED", "Deal list validation failed", err)
	}

	filter := models.DealFilter{SellerID: &req.SellerID, Title: req.Title}
	if req.Status != nil {
		status := models.DealStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("DEAL_LIST_VALIDATION_FAILED", "Deal list validation failed", ErrInvalidStateChange)
		}
		filter.Status = &status
	}

	total, err := s.dealRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DEAL_LIST_FAILED", "Failed to list deals", err)
	}

	deals, err := s.dealRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("DEAL_LIST_FAILED", "Failed to list deals", err)
	}

	items := make([]dto.GetDealResponse, 0, len(deals))
	for _, deal := range deals {
		items = append(items, ToDealResponse(*deal))
	}

	return &dto.ListDealsResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// UpdateDeal merges spec changes into an editable deal
func (s *DealFlowImpl) UpdateDeal(ctx context.Context, req *dto.UpdateDealRequest, metadata *ClientMetadata) (*dto.UpdateDealResponse, error) {
	if req.Title == nil && req.DealType == nil && req.SalesChannel == nil &&
		req.HasNonStandardTerms == nil && req.ContractTermMonths == nil &&
		req.AdvertiserBaseline == nil && req.AgencyBaseline == nil {
		return nil, NewBusinessError("DEAL_UPDATE_VALIDATION_FAILED", "Deal update validation failed", ErrDealUpdateRequired)
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.IsEditable() {
			return ErrDealNotEditable
		}

		if req.Title != nil {
			deal.Spec.Title = req.Title
		}
		if req.DealType != nil {
			dealType := models.DealType(*req.DealType)
			deal.Spec.DealType = &dealType
		}
		if req.SalesChannel != nil {
			channel := models.SalesChannel(*req.SalesChannel)
			deal.Spec.SalesChannel = &channel
		}
		if req.HasNonStandardTerms != nil {
			deal.Spec.HasNonStandardTerms = req.HasNonStandardTerms
		}
		if req.ContractTermMonths != nil {
			deal.Spec.ContractTermMonths = req.ContractTermMonths
		}
		if req.AdvertiserBaseline != nil {
			deal.Spec.AdvertiserBaseline = req.AdvertiserBaseline
		}
		if req.AgencyBaseline != nil {
			deal.Spec.AgencyBaseline = req.AgencyBaseline
		}

		return s.dealRepo.Update(txCtx, *deal)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Deal update failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DEAL_UPDATE_FAILED", "Deal update failed", err)
	}

	msg := fmt.Sprintf("Deal updated successfully: %s", req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealUpdated, msg, true, nil, metadata)

	return &dto.UpdateDealResponse{Message: "Deal updated successfully"}, nil
}

// AddTier appends a new tier to an editable deal
func (s *DealFlowImpl) AddTier(ctx context.Context, req *dto.AddTierRequest, metadata *ClientMetadata) (*dto.AddTierResponse, error) {
	var added models.Tier

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.IsEditable() {
			return ErrDealNotEditable
		}

		tier, err := deal.Tiers.AddTier(s.approvalConfig.MaxTiers)
		if err != nil {
			return err
		}
		added = *tier

		return s.dealRepo.Update(txCtx, *deal)
	})

	if err != nil {
		return nil, NewBusinessError("TIER_ADD_FAILED", "Failed to add tier", err)
	}

	msg := fmt.Sprintf("Tier %d added to deal %s", added.TierNumber, req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealUpdated, msg, true, nil, metadata)

	return &dto.AddTierResponse{
		Message: "Tier added successfully",
		Tier:    added,
	}, nil
}

// UpdateTier applies a partial update to one tier of an editable deal
func (s *DealFlowImpl) UpdateTier(ctx context.Context, req *dto.UpdateTierRequest, metadata *ClientMetadata) (*dto.UpdateTierResponse, error) {
	var updated models.Tier

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.IsEditable() {
			return ErrDealNotEditable
		}

		update := models.TierUpdate{
			AnnualRevenue:     req.AnnualRevenue,
			AnnualGrossMargin: req.AnnualGrossMargin,
			Incentives:        req.Incentives,
		}
		if err := deal.Tiers.UpdateTier(req.TierNumber, update); err != nil {
			return err
		}
		for _, tier := range deal.Tiers {
			if tier.TierNumber == req.TierNumber {
				updated = tier
			}
		}

		return s.dealRepo.Update(txCtx, *deal)
	})

	if err != nil {
		return nil, NewBusinessError("TIER_UPDATE_FAILED", "Failed to update tier", err)
	}

	msg := fmt.Sprintf("Tier %d updated on deal %s", req.TierNumber, req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealUpdated, msg, true, nil, metadata)

	return &dto.UpdateTierResponse{
		Message: "Tier updated successfully",
		Tier:    updated,
	}, nil
}

// RemoveTier removes a tier from an editable deal and renumbers the remainder
func (s *DealFlowImpl) RemoveTier(ctx context.Context, req *dto.RemoveTierRequest, metadata *ClientMetadata) (*dto.RemoveTierResponse, error) {
	var tiers models.TierList

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.IsEditable() {
			return ErrDealNotEditable
		}

		if err := deal.Tiers.RemoveTier(req.TierNumber, s.approvalConfig.MinTiers); err != nil {
			return err
		}
		tiers = deal.Tiers

		return s.dealRepo.Update(txCtx, *deal)
	})

	if err != nil {
		return nil, NewBusinessError("TIER_REMOVE_FAILED", "Failed to remove tier", err)
	}

	msg := fmt.Sprintf("Tier %d removed from deal %s", req.TierNumber, req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealUpdated, msg, true, nil, metadata)

	return &dto.RemoveTierResponse{
		Message: "Tier removed successfully",
		Tiers:   tiers,
	}, nil
}

// GetFinancialSummary recomputes the derived financial view of a deal
func (s *DealFlowImpl) GetFinancialSummary(ctx context.Context, req *dto.GetDealRequest) (*dto.FinancialSummaryResponse, error) {
	deal, err := getSellerDeal(ctx, s.dealRepo, req.UUID, req.SellerID)
	if err != nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", err)
	}

	contractTermMonths := 12
	if deal.Spec.ContractTermMonths != nil {
		contractTermMonths = *deal.Spec.ContractTermMonths
	}

	baseline := deal.Spec.BaselineForChannel()
	previousYearRevenue := 0.0
	if baseline != nil {
		previousYearRevenue = baseline.PreviousYearRevenue
	}

	summary := models.ComputeFinancialSummary(deal.Tiers, contractTermMonths, previousYearRevenue)

	resp := &dto.FinancialSummaryResponse{
		Summary:  summary,
		Currency: utils.USDCurrency,
	}
	if baseline != nil && len(baseline.TierBaselines) > 0 {
		resp.TierGrowth = models.ComputeTierGrowth(deal.Tiers, baseline)
	}
	return resp, nil
}

// ValidateDeal reports the deal's current tier model violations
func (s *DealFlowImpl) ValidateDeal(ctx context.Context, req *dto.GetDealRequest) (*dto.ValidationResponse, error) {
	deal, err := getSellerDeal(ctx, s.dealRepo, req.UUID, req.SellerID)
	if err != nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", err)
	}

	violations := deal.Tiers.Validate()
	return &dto.ValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	}, nil
}

// PreviewChain shows the approval chain the deal's current state would route
// to. Nothing is frozen; the authoritative evaluation happens at submission.
func (s *DealFlowImpl) PreviewChain(ctx context.Context, req *dto.GetDealRequest) (*dto.ChainPreviewResponse, error) {
	deal, err := getSellerDeal(ctx, s.dealRepo, req.UUID, req.SellerID)
	if err != nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", err)
	}

	chain, err := s.workflow.RouteDeal(deal)
	if err != nil {
		return nil, NewBusinessError("CHAIN_PREVIEW_FAILED", "Failed to preview approval chain", err)
	}

	turnaround := chain.EstimatedTurnaround()
	return &dto.ChainPreviewResponse{
		Stages:                   ToChainStageDTOs(chain.Stages),
		TotalStages:              chain.TotalStages(),
		EstimatedTurnaroundHours: turnaround.Hours(),
		EstimatedCompletionAt:    utils.UTCNowAdd(turnaround),
	}, nil
}

// SubmitDeal freezes the deal and initiates the approval workflow. Validation
// is the enforcement point: an invalid tier model or an incomplete spec
// blocks submission.
func (s *DealFlowImpl) SubmitDeal(ctx context.Context, req *dto.SubmitDealRequest, metadata *ClientMetadata) (*dto.SubmitDealResponse, error) {
	var chain models.ApprovalChain
	var submittedAt = utils.UTCNow()

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.Status.CanTransitionTo(models.DealStatusSubmitted) {
			return ErrInvalidStateChange
		}

		if deal.Spec.DealType == nil || deal.Spec.SalesChannel == nil || deal.Spec.ContractTermMonths == nil {
			return ErrDealSpecIncomplete
		}
		if len(deal.Tiers) < s.approvalConfig.MinTiers {
			return ErrDealModelInvalid
		}
		if violations := deal.Tiers.Validate(); len(violations) > 0 {
			return fmt.Errorf("%w: %d violation(s)", ErrDealModelInvalid, len(violations))
		}

		if err := s.dealRepo.UpdateStatus(txCtx, deal.ID, models.DealStatusSubmitted); err != nil {
			return err
		}
		deal.Status = models.DealStatusSubmitted

		chain, err = s.workflow.InitiateWorkflow(txCtx, deal)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Deal submission failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealSubmitted, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DEAL_SUBMISSION_FAILED", "Deal submission failed", err)
	}

	msg := fmt.Sprintf("Deal submitted successfully: %s", req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealSubmitted, msg, true, nil, metadata)

	return &dto.SubmitDealResponse{
		Message:     "Deal submitted successfully",
		Status:      string(models.DealStatusUnderReview),
		Chain:       ToChainStageDTOs(chain.Stages),
		TotalStages: chain.TotalStages(),
		SubmittedAt: submittedAt.Format(time.RFC3339),
	}, nil
}

// CancelDeal moves a deal to the terminal canceled status
func (s *DealFlowImpl) CancelDeal(ctx context.Context, req *dto.CancelDealRequest, metadata *ClientMetadata) (*dto.CancelDealResponse, error) {
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		deal, err := getSellerDeal(txCtx, s.dealRepo, req.UUID, req.SellerID)
		if err != nil {
			return err
		}
		if !deal.Status.CanTransitionTo(models.DealStatusCanceled) {
			return ErrInvalidStateChange
		}

		if req.Comment != nil {
			deal.Comment = req.Comment
			if err := s.dealRepo.Update(txCtx, *deal); err != nil {
				return err
			}
		}

		return s.dealRepo.UpdateStatus(txCtx, deal.ID, models.DealStatusCanceled)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Deal cancellation failed: %s", err.Error())
		_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealCanceled, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DEAL_CANCELLATION_FAILED", "Deal cancellation failed", err)
	}

	msg := fmt.Sprintf("Deal canceled: %s", req.UUID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.SellerID, models.AuditActionDealCanceled, msg, true, nil, metadata)

	return &dto.CancelDealResponse{
		Message: "Deal canceled successfully",
		Status:  string(models.DealStatusCanceled),
	}, nil
}
