// Package businessflow contains the core business logic and use cases for approval workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/services"
	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ApprovalWorkflowFlow handles approval routing and review business logic
type ApprovalWorkflowFlow interface {
	// RouteDeal evaluates the routing table against the deal's current
	// attributes without persisting anything.
	RouteDeal(deal *models.Deal) (models.ApprovalChain, error)
	// InitiateWorkflow freezes the matched chain into approval rows and moves
	// the deal under review. Prior rows from a revision cycle are superseded.
	InitiateWorkflow(ctx context.Context, deal *models.Deal) (models.ApprovalChain, error)
	ReviewApproval(ctx context.Context, req *dto.ReviewApprovalRequest, metadata *ClientMetadata) (*dto.ReviewApprovalResponse, error)
	GetApprovalStatus(ctx context.Context, dealUUID string, userID uint) (*dto.ApprovalStatusResponse, error)
	ListPendingApprovals(ctx context.Context, req *dto.ListPendingApprovalsRequest) (*dto.ListPendingApprovalsResponse, error)
	ListDepartments(ctx context.Context) (*dto.ListDepartmentsResponse, error)
}

// ApprovalWorkflowFlowImpl implements the approval workflow business flow
type ApprovalWorkflowFlowImpl struct {
	dealRepo       repository.DealRepository
	approvalRepo   repository.ApprovalRepository
	userRepo       repository.UserRepository
	departmentRepo repository.ApprovalDepartmentRepository
	auditRepo      repository.AuditLogRepository
	notifier       services.NotificationService
	ruleSet        models.RuleSet
	approvalConfig config.ApprovalConfig
	cacheConfig    *config.CacheConfig
	rc             *redis.Client
	db             *gorm.DB
}

// NewApprovalWorkflowFlow creates a new approval workflow flow instance
func NewApprovalWorkflowFlow(
	dealRepo repository.DealRepository,
	approvalRepo repository.ApprovalRepository,
	userRepo repository.UserRepository,
	departmentRepo repository.ApprovalDepartmentRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	ruleSet models.RuleSet,
	approvalConfig config.ApprovalConfig,
	cacheConfig *config.CacheConfig,
	rc *redis.Client,
	db *gorm.DB,
) ApprovalWorkflowFlow {
	return &ApprovalWorkflowFlowImpl{
		dealRepo:       dealRepo,
		approvalRepo:   approvalRepo,
		userRepo:       userRepo,
		departmentRepo: departmentRepo,
		auditRepo:      auditRepo,
		notifier:       notifier,
		ruleSet:        ruleSet,
		approvalConfig: approvalConfig,
		cacheConfig:    cacheConfig,
		rc:             rc,
		db:             db,
	}
}

// RouteDeal evaluates the ordered rule table against the deal's attributes
func (s *ApprovalWorkflowFlowImpl) RouteDeal(deal *models.Deal) (models.ApprovalChain, error) {
	return s.ruleSet.Match(deal.Attributes())
}

// InitiateWorkflow materializes the matched chain as approval rows. Calling
// it twice for the same submission fails; a resubmission after revision
// supersedes the old rows first.
func (s *ApprovalWorkflowFlowImpl) InitiateWorkflow(ctx context.Context, deal *models.Deal) (models.ApprovalChain, error) {
	chain, err := s.RouteDeal(deal)
	if err != nil {
		return models.ApprovalChain{}, err
	}

	live, err := s.approvalRepo.LiveByDealID(ctx, deal.ID)
	if err != nil {
		return models.ApprovalChain{}, err
	}
	for _, row := range live {
		if row.Status == models.ApprovalStatusPending {
			return models.ApprovalChain{}, ErrWorkflowAlreadyInitiated
		}
	}
	if len(live) > 0 {
		// Rows left over from a revision cycle; the fresh chain replaces them.
		if err := s.approvalRepo.SupersedeByDealID(ctx, deal.ID); err != nil {
			return models.ApprovalChain{}, err
		}
	}

	now := utils.UTCNow()
	approvals := make([]*models.Approval, 0, len(chain.Stages))
	for _, stage := range chain.Stages {
		lead := stageDeadline(chain, stage.Stage)
		if lead < s.approvalConfig.DueDateLead {
			lead = s.approvalConfig.DueDateLead
		}
		due := now.Add(lead)
		approvals = append(approvals, &models.Approval{
			DealID:         deal.ID,
			ApprovalStage:  stage.Stage,
			DepartmentName: stage.Department,
			RequiredRole:   stage.Role,
			Status:         models.ApprovalStatusPending,
			DueDate:        &due,
		})
	}
	if err := s.approvalRepo.SaveBatch(ctx, approvals); err != nil {
		return models.ApprovalChain{}, err
	}

	if err := s.dealRepo.UpdateStatus(ctx, deal.ID, models.DealStatusUnderReview); err != nil {
		return models.ApprovalChain{}, err
	}

	s.notifyAssignedDepartments(ctx, deal, chain)

	msg := fmt.Sprintf("Approval workflow initiated for deal %s with %d stage(s)", deal.UUID.String(), chain.TotalStages())
	_ = writeAuditLog(ctx, s.auditRepo, &deal.SellerID, models.AuditActionWorkflowInitiated, msg, true, nil, nil)

	return chain, nil
}

// stageDeadline is the cumulative estimate through the given stage number,
// counting only the slowest entry of each parallel stage.
func stageDeadline(chain models.ApprovalChain, throughStage int) time.Duration {
	maxPerStage := map[int]time.Duration{}
	for _, s := range chain.Stages {
		if s.EstimatedTime > maxPerStage[s.Stage] {
			maxPerStage[s.Stage] = s.EstimatedTime
		}
	}
	stages := make([]int, 0, len(maxPerStage))
	for n := range maxPerStage {
		stages = append(stages, n)
	}
	sort.Ints(stages)

	var total time.Duration
	for _, n := range stages {
		if n > throughStage {
			break
		}
		total += maxPerStage[n]
	}
	return total
}

func (s *ApprovalWorkflowFlowImpl) notifyAssignedDepartments(ctx context.Context, deal *models.Deal, chain models.ApprovalChain) {
	seen := map[string]bool{}
	for _, stage := range chain.Stages {
		if seen[stage.Department] {
			continue
		}
		seen[stage.Department] = true

		reviewers, err := s.userRepo.ListReviewersByDepartment(ctx, stage.Department)
		if err != nil {
			continue
		}
		subject := "Deal pending your review"
		body := fmt.Sprintf("Deal %s is waiting for %s approval.", deal.UUID.String(), stage.Department)
		for _, reviewer := range reviewers {
			_ = s.notifier.SendEmail(reviewer.Email, subject, body)
		}
	}
}

// ReviewApproval applies a reviewer decision to one approval row and advances
// the deal accordingly. A row can be decided at most once.
func (s *ApprovalWorkflowFlowImpl) ReviewApproval(ctx context.Context, req *dto.ReviewApprovalRequest, metadata *ClientMetadata) (*dto.ReviewApprovalResponse, error) {
	decision := models.ApprovalStatus(req.Decision)
	if !decision.IsDecision() {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", ErrInvalidDecision)
	}

	reviewer, err := getUser(ctx, s.userRepo, req.ReviewerID)
	if err != nil {
		return nil, NewBusinessError("REVIEWER_LOOKUP_FAILED", "Failed to lookup reviewer", err)
	}

	var deal *models.Deal
	var reviewedAt time.Time

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		approval, err := s.approvalRepo.ByID(txCtx, req.ApprovalID)
		if err != nil {
			return err
		}
		if approval == nil || approval.Superseded {
			return ErrApprovalNotFound
		}
		if approval.Status != models.ApprovalStatusPending {
			return ErrApprovalNotPending
		}
		if !approval.CanBeReviewedBy(reviewer) {
			return ErrReviewNotAuthorized
		}

		reviewedAt = utils.UTCNow()
		applied, err := s.approvalRepo.DecideIfPending(txCtx, approval.ID, decision, req.Comments, reviewer.ID, reviewedAt)
		if err != nil {
			return err
		}
		if !applied {
			return ErrApprovalNotPending
		}

		deal, err = s.dealRepo.ByID(txCtx, approval.DealID)
		if err != nil {
			return err
		}
		if deal == nil {
			return ErrDealNotFound
		}

		return s.advanceDeal(txCtx, deal, decision)
	})

	if err != nil {
		if IsReviewNotAuthorized(err) {
			errMsg := fmt.Sprintf("Unauthorized review attempt on approval %d by user %d", req.ApprovalID, req.ReviewerID)
			_ = writeAuditLog(ctx, s.auditRepo, &req.ReviewerID, models.AuditActionApprovalUnauthorized, errMsg, false, &errMsg, metadata)
		}
		return nil, NewBusinessError("REVIEW_FAILED", "Review failed", err)
	}

	action := auditActionForDecision(decision)
	msg := fmt.Sprintf("Approval %d decided as %s by user %d", req.ApprovalID, decision, req.ReviewerID)
	_ = writeAuditLog(ctx, s.auditRepo, &req.ReviewerID, action, msg, true, nil, metadata)

	s.notifySeller(ctx, deal, decision)

	return &dto.ReviewApprovalResponse{
		Message:    "Review recorded successfully",
		Decision:   string(decision),
		DealStatus: string(deal.Status),
		ReviewedAt: reviewedAt.Format(time.RFC3339),
	}, nil
}

// advanceDeal moves the deal's status according to the decision and the state
// of the remaining live rows. A single rejection or revision request settles
// the whole submission; approval completes it only when every row is approved.
func (s *ApprovalWorkflowFlowImpl) advanceDeal(ctx context.Context, deal *models.Deal, decision models.ApprovalStatus) error {
	var target models.DealStatus

	switch decision {
	case models.ApprovalStatusRejected:
		target = models.DealStatusLost
	case models.ApprovalStatusRevisionRequested:
		target = models.DealStatusRevisionRequested
	case models.ApprovalStatusApproved:
		live, err := s.approvalRepo.LiveByDealID(ctx, deal.ID)
		if err != nil {
			return err
		}
		progress := models.ComputeWorkflowProgress(live)
		if !progress.IsComplete {
			return nil
		}
		target = models.DealStatusApproved
	default:
		return ErrInvalidDecision
	}

	if !deal.Status.CanTransitionTo(target) {
		return ErrInvalidStateChange
	}
	if err := s.dealRepo.UpdateStatus(ctx, deal.ID, target); err != nil {
		return err
	}
	deal.Status = target

	// A rejection or revision request settles the whole submission; the
	// remaining pending rows must leave reviewer queues and can no longer
	// be decided. A resubmission after revision starts a fresh chain.
	if decision != models.ApprovalStatusApproved {
		return s.approvalRepo.SupersedePendingByDealID(ctx, deal.ID)
	}
	return nil
}

func auditActionForDecision(decision models.ApprovalStatus) string {
	switch decision {
	case models.ApprovalStatusApproved:
		return models.AuditActionApprovalApproved
	case models.ApprovalStatusRejected:
		return models.AuditActionApprovalRejected
	default:
		return models.AuditActionApprovalRevision
	}
}

func (s *ApprovalWorkflowFlowImpl) notifySeller(ctx context.Context, deal *models.Deal, decision models.ApprovalStatus) {
	if deal == nil {
		return
	}
	seller, err := s.userRepo.ByID(ctx, deal.SellerID)
	if err != nil || seller == nil {
		return
	}
	subject := fmt.Sprintf("Deal review update: %s", decision)
	body := fmt.Sprintf("Deal %s received a %s decision. Current status: %s.", deal.UUID.String(), decision, deal.Status)
	_ = s.notifier.SendEmail(seller.Email, subject, body)
}

// GetApprovalStatus returns the derived workflow progress and the live rows
// for a deal. Sellers see only their own deals; reviewers and admins see any.
func (s *ApprovalWorkflowFlowImpl) GetApprovalStatus(ctx context.Context, dealUUID string, userID uint) (*dto.ApprovalStatusResponse, error) {
	user, err := getUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}

	deal, err := s.dealRepo.ByUUID(ctx, dealUUID)
	if err != nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", err)
	}
	if deal == nil {
		return nil, NewBusinessError("DEAL_LOOKUP_FAILED", "Failed to lookup deal", ErrDealNotFound)
	}
	if user.Role == models.RoleSeller && deal.SellerID != user.ID {
		return nil, NewBusinessError("DEAL_ACCESS_DENIED", "Deal access denied", ErrDealAccessDenied)
	}

	live, err := s.approvalRepo.LiveByDealID(ctx, deal.ID)
	if err != nil {
		return nil, NewBusinessError("APPROVAL_STATUS_FAILED", "Failed to load approval status", err)
	}

	progress := models.ComputeWorkflowProgress(live)
	items := make([]dto.ApprovalDTO, 0, len(live))
	for _, approval := range live {
		items = append(items, ToApprovalDTO(*approval))
	}

	return &dto.ApprovalStatusResponse{
		DealStatus:   string(deal.Status),
		Percentage:   progress.Percentage,
		CurrentStage: progress.CurrentStage,
		IsComplete:   progress.IsComplete,
		TotalStages:  progress.TotalStages,
		Approvals:    items,
	}, nil
}

// ListPendingApprovals returns the reviewer's pending work queue
func (s *ApprovalWorkflowFlowImpl) ListPendingApprovals(ctx context.Context, req *dto.ListPendingApprovalsRequest) (*dto.ListPendingApprovalsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("APPROVAL_LIST_VALIDATION_FAILED", "Approval list validation failed", err)
	}

	reviewer, err := getUser(ctx, s.userRepo, req.ReviewerID)
	if err != nil {
		return nil, NewBusinessError("REVIEWER_LOOKUP_FAILED", "Failed to lookup reviewer", err)
	}

	// Admins may inspect any department's queue; reviewers see their own.
	department := ""
	switch {
	case reviewer.Role == models.RoleAdmin && req.Department != nil:
		department = *req.Department
	case reviewer.Department != nil:
		department = *reviewer.Department
	default:
		return nil, NewBusinessError("APPROVAL_LIST_VALIDATION_FAILED", "Approval list validation failed", ErrDepartmentNotFound)
	}

	status := models.ApprovalStatusPending
	superseded := false
	filter := models.ApprovalFilter{
		DepartmentName: &department,
		Status:         &status,
		Superseded:     &superseded,
	}

	total, err := s.approvalRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("APPROVAL_LIST_FAILED", "Failed to list pending approvals", err)
	}

	approvals, err := s.approvalRepo.PendingByDepartment(ctx, department, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("APPROVAL_LIST_FAILED", "Failed to list pending approvals", err)
	}

	items := make([]dto.ApprovalDTO, 0, len(approvals))
	for _, approval := range approvals {
		items = append(items, ToApprovalDTO(*approval))
	}

	return &dto.ListPendingApprovalsResponse{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// ListDepartments returns the active approval departments, served from the
// redis cache when available.
func (s *ApprovalWorkflowFlowImpl) ListDepartments(ctx context.Context) (*dto.ListDepartmentsResponse, error) {
	cacheKey := utils.DepartmentsCacheKey
	if s.cacheConfig != nil {
		cacheKey = s.cacheConfig.RedisPrefix + cacheKey
	}

	if s.rc != nil {
		if cached, err := s.rc.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var resp dto.ListDepartmentsResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	departments, err := s.departmentRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("DEPARTMENT_LIST_FAILED", "Failed to list departments", err)
	}

	items := make([]dto.DepartmentDTO, 0, len(departments))
	for _, department := range departments {
		items = append(items, dto.DepartmentDTO{
			ID:             department.ID,
			UUID:           department.UUID.String(),
			DepartmentName: department.DepartmentName,
			DisplayName:    department.DisplayName,
			IncentiveTypes: department.IncentiveTypes,
			IsActive:       department.IsActive,
		})
	}

	resp := &dto.ListDepartmentsResponse{Departments: items}

	if s.rc != nil {
		if payload, err := json.Marshal(resp); err == nil {
			_ = s.rc.Set(ctx, cacheKey, payload, utils.DepartmentsCacheTTL).Err()
		}
	}

	_ = writeAuditLog(ctx, s.auditRepo, nil, models.AuditActionDepartmentListFetched, "Approval departments fetched", true, nil, nil)

	return resp, nil
}
