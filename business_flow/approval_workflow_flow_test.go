package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes embed the repository interfaces so only the methods the
// workflow flow touches need implementations.

type memApprovalRepo struct {
	repository.ApprovalRepository
	rows   []*models.Approval
	nextID uint
}

func (m *memApprovalRepo) LiveByDealID(ctx context.Context, dealID uint) ([]*models.Approval, error) {
	var out []*models.Approval
	for _, row := range m.rows {
		if row.DealID == dealID && !row.Superseded {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memApprovalRepo) SaveBatch(ctx context.Context, entities []*models.Approval) error {
	for _, row := range entities {
		m.nextID++
		row.ID = m.nextID
		if row.UUID == uuid.Nil {
			row.UUID = uuid.New()
		}
		m.rows = append(m.rows, row)
	}
	return nil
}

func (m *memApprovalRepo) ByID(ctx context.Context, id uint) (*models.Approval, error) {
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (m *memApprovalRepo) DecideIfPending(ctx context.Context, id uint, decision models.ApprovalStatus, comments *string, reviewerID uint, reviewedAt time.Time) (bool, error) {
	for _, row := range m.rows {
		if row.ID != id {
			continue
		}
		if row.Status != models.ApprovalStatusPending {
			return false, nil
		}
		row.Status = decision
		row.Comments = comments
		row.ReviewedBy = &reviewerID
		row.ReviewedAt = &reviewedAt
		return true, nil
	}
	return false, nil
}

func (m *memApprovalRepo) SupersedeByDealID(ctx context.Context, dealID uint) error {
	for _, row := range m.rows {
		if row.DealID == dealID {
			row.Superseded = true
		}
	}
	return nil
}

func (m *memApprovalRepo) SupersedePendingByDealID(ctx context.Context, dealID uint) error {
	for _, row := range m.rows {
		if row.DealID == dealID && row.Status == models.ApprovalStatusPending {
			row.Superseded = true
		}
	}
	return nil
}

type memDealRepo struct {
	repository.DealRepository
	deals map[uint]*models.Deal
}

func (m *memDealRepo) ByID(ctx context.Context, id uint) (*models.Deal, error) {
	return m.deals[id], nil
}

func (m *memDealRepo) UpdateStatus(ctx context.Context, id uint, status models.DealStatus) error {
	deal := m.deals[id]
	deal.Status = status
	deal.LastStatusChange = utils.UTCNow()
	return nil
}

type memUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func (m *memUserRepo) ByID(ctx context.Context, id uint) (*models.User, error) {
	return m.users[id], nil
}

func (m *memUserRepo) ListReviewersByDepartment(ctx context.Context, department string) ([]*models.User, error) {
	return nil, nil
}

type memAuditRepo struct {
	repository.AuditLogRepository
}

func (m *memAuditRepo) Save(ctx context.Context, entry *models.AuditLog) error {
	return nil
}

type silentNotifier struct{}

func (silentNotifier) SendEmail(email, subject, message string) error { return nil }

type workflowHarness struct {
	flow      ApprovalWorkflowFlow
	approvals *memApprovalRepo
	deals     *memDealRepo
	deal      *models.Deal
}

// newWorkflowHarness wires the flow against in-memory repositories with a
// submitted deal owned by seller 1 and an active admin reviewer 2.
func newWorkflowHarness(t *testing.T, spec models.DealSpec, tiers models.TierList) *workflowHarness {
	t.Helper()

	deal := &models.Deal{
		ID:       10,
		UUID:     uuid.New(),
		SellerID: 1,
		Status:   models.DealStatusSubmitted,
		Spec:     spec,
		Tiers:    tiers,
	}

	approvals := &memApprovalRepo{}
	deals := &memDealRepo{deals: map[uint]*models.Deal{deal.ID: deal}}
	users := &memUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "seller@dealdesk.example.com", Role: models.RoleSeller, IsActive: utils.ToPtr(true)},
		2: {ID: 2, Email: "admin@dealdesk.example.com", Role: models.RoleAdmin, IsActive: utils.ToPtr(true)},
	}}

	flow := NewApprovalWorkflowFlow(
		deals,
		approvals,
		users,
		nil,
		&memAuditRepo{},
		silentNotifier{},
		models.DefaultRuleSet(),
		config.ApprovalConfig{},
		nil,
		nil,
		nil,
	)

	return &workflowHarness{flow: flow, approvals: approvals, deals: deals, deal: deal}
}

func highValueSpec(nonStandard bool) models.DealSpec {
	return models.DealSpec{
		DealType:            utils.ToPtr(models.DealTypeRenewal),
		SalesChannel:        utils.ToPtr(models.SalesChannelAdvertiser),
		HasNonStandardTerms: utils.ToPtr(nonStandard),
		ContractTermMonths:  utils.ToPtr(12),
	}
}

func highValueTiers() models.TierList {
	return models.TierList{{TierNumber: 1, AnnualRevenue: 2_000_000, AnnualGrossMargin: 0.4, Incentives: []models.Incentive{}}}
}

func (h *workflowHarness) review(t *testing.T, approvalID uint, decision models.ApprovalStatus) (*dto.ReviewApprovalResponse, error) {
	t.Helper()
	return h.flow.ReviewApproval(context.Background(), &dto.ReviewApprovalRequest{
		ApprovalID: approvalID,
		ReviewerID: 2,
		Decision:   string(decision),
	}, nil)
}

func TestInitiateWorkflow(t *testing.T) {
	t.Run("MaterializesChainAsPendingRows", func(t *testing.T) {
		h := newWorkflowHarness(t, highValueSpec(false), highValueTiers())

		chain, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
		require.NoError(t, err)
		require.Equal(t, 2, chain.TotalStages())

		live, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
		require.Len(t, live, 2)
		for _, row := range live {
			assert.Equal(t, models.ApprovalStatusPending, row.Status)
			assert.NotNil(t, row.DueDate)
		}
		assert.Equal(t, models.DealStatusUnderReview, h.deal.Status)
	})

	t.Run("SecondInitiationLeavesRowsUntouched", func(t *testing.T) {
		h := newWorkflowHarness(t, highValueSpec(false), highValueTiers())

		_, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
		require.NoError(t, err)
		before, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)

		_, err = h.flow.InitiateWorkflow(context.Background(), h.deal)
		assert.ErrorIs(t, err, ErrWorkflowAlreadyInitiated)

		after, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
		require.Len(t, after, len(before))
		for i := range after {
			assert.Equal(t, before[i].ID, after[i].ID)
			assert.Equal(t, models.ApprovalStatusPending, after[i].Status)
		}
	})
}

func TestReviewApprovalCompletesAtLastStage(t *testing.T) {
	h := newWorkflowHarness(t, highValueSpec(false), highValueTiers())

	_, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
	require.NoError(t, err)
	live, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
	require.Len(t, live, 2)

	resp, err := h.review(t, live[0].ID, models.ApprovalStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, string(models.DealStatusUnderReview), resp.DealStatus)

	resp, err = h.review(t, live[1].ID, models.ApprovalStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, string(models.DealStatusApproved), resp.DealStatus)
	assert.Equal(t, models.DealStatusApproved, h.deal.Status)
}

func TestReviewApprovalRejectionSettlesSubmission(t *testing.T) {
	h := newWorkflowHarness(t, highValueSpec(true), highValueTiers())

	_, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
	require.NoError(t, err)
	live, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
	require.Len(t, live, 3)
	leftover := live[1]

	_, err = h.review(t, live[0].ID, models.ApprovalStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusLost, h.deal.Status)

	// The undecided stages leave the live set so they disappear from
	// reviewer queues.
	remaining, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.ApprovalStatusRejected, remaining[0].Status)

	// Reviewing a leftover row of a settled submission must fail.
	_, err = h.review(t, leftover.ID, models.ApprovalStatusApproved)
	require.Error(t, err)
	assert.True(t, IsApprovalNotFound(err))
	assert.Equal(t, models.DealStatusLost, h.deal.Status)
}

func TestResubmitAfterRevisionRequest(t *testing.T) {
	h := newWorkflowHarness(t, highValueSpec(true), highValueTiers())

	_, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
	require.NoError(t, err)
	first, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
	require.Len(t, first, 3)

	_, err = h.review(t, first[0].ID, models.ApprovalStatusRevisionRequested)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusRevisionRequested, h.deal.Status)

	// Seller edits and resubmits; a fresh independent chain replaces the
	// archived one.
	h.deal.Status = models.DealStatusSubmitted

	chain, err := h.flow.InitiateWorkflow(context.Background(), h.deal)
	require.NoError(t, err)
	require.Equal(t, 3, chain.TotalStages())

	live, _ := h.approvals.LiveByDealID(context.Background(), h.deal.ID)
	require.Len(t, live, 3)
	for _, row := range live {
		assert.Equal(t, models.ApprovalStatusPending, row.Status)
	}
	assert.Equal(t, models.DealStatusUnderReview, h.deal.Status)

	// Every first-cycle row is archived, including the decided one.
	for _, row := range first {
		assert.True(t, row.Superseded)
	}
}
