package businessflow

import (
	"errors"
	"testing"
	"time"

	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePagination(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
		wantErr      error
	}{
		{"defaults applied", 0, 0, 1, 20, nil},
		{"explicit values kept", 3, 50, 3, 50, nil},
		{"max page size", 1, 100, 1, 100, nil},
		{"negative page", -1, 20, 0, 0, ErrInvalidPage},
		{"zero-like negative page size", 1, -5, 0, 0, ErrInvalidPageSize},
		{"page size over limit", 1, 101, 0, 0, ErrInvalidPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pageSize, err := normalizePagination(tt.page, tt.pageSize)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(1, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 5, totalPages(100, 20))
}

func TestBusinessError(t *testing.T) {
	t.Run("WrapsCause", func(t *testing.T) {
		err := NewBusinessError("DEAL_NOT_FOUND", "Deal not found", ErrDealNotFound)
		assert.Equal(t, "Deal not found: deal not found", err.Error())
		assert.True(t, IsDealNotFound(err))
		assert.True(t, errors.Is(err, ErrDealNotFound))
	})

	t.Run("NoCause", func(t *testing.T) {
		err := NewBusinessError("SOMETHING", "Something went wrong", nil)
		assert.Equal(t, "Something went wrong", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("FormattedMessage", func(t *testing.T) {
		err := NewBusinessErrorf("TIER_NOT_FOUND", "Tier %d not found", models.ErrTierNotFound, 4)
		assert.Equal(t, "Tier 4 not found: tier not found", err.Error())
		assert.True(t, IsTierNotFound(err))
	})

	t.Run("HelpersDistinguishCauses", func(t *testing.T) {
		err := NewBusinessError("NOT_PENDING", "Already decided", ErrApprovalNotPending)
		assert.True(t, IsApprovalNotPending(err))
		assert.False(t, IsApprovalNotFound(err))
		assert.False(t, IsReviewNotAuthorized(err))
	})
}

func TestToUserInfo(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	user := models.User{
		ID:         12,
		UUID:       uuid.New(),
		Email:      "reviewer@dealdesk.example.com",
		FirstName:  "Robin",
		LastName:   "Vega",
		Role:       models.RoleDepartmentReviewer,
		Department: utils.ToPtr(models.DepartmentLegal),
		IsActive:   utils.ToPtr(true),
		CreatedAt:  created,
	}

	info := ToUserInfo(user)
	assert.Equal(t, uint(12), info.ID)
	assert.Equal(t, user.UUID.String(), info.UUID)
	assert.Equal(t, "reviewer@dealdesk.example.com", info.Email)
	require.NotNil(t, info.Department)
	assert.Equal(t, models.DepartmentLegal, *info.Department)
	assert.Equal(t, created.Format(time.RFC3339), info.CreatedAt)
}

func TestToDealResponse(t *testing.T) {
	deal := models.Deal{
		ID:     4,
		UUID:   uuid.New(),
		Status: models.DealStatusUnderReview,
		Spec: models.DealSpec{
			Title:              utils.ToPtr("Acme renewal FY27"),
			DealType:           utils.ToPtr(models.DealTypeRenewal),
			SalesChannel:       utils.ToPtr(models.SalesChannelAdvertiser),
			ContractTermMonths: utils.ToPtr(12),
		},
		Tiers: models.TierList{{TierNumber: 1, AnnualRevenue: 80000}},
	}

	resp := ToDealResponse(deal)
	assert.Equal(t, deal.UUID.String(), resp.UUID)
	assert.Equal(t, "under_review", resp.Status)
	assert.Equal(t, "Under Review", resp.StatusDisplayName)
	require.NotNil(t, resp.DealType)
	assert.Equal(t, "renewal", *resp.DealType)
	require.NotNil(t, resp.SalesChannel)
	assert.Equal(t, "advertiser", *resp.SalesChannel)
	assert.Len(t, resp.Tiers, 1)

	t.Run("EmptySpecLeavesNilFields", func(t *testing.T) {
		bare := ToDealResponse(models.Deal{UUID: uuid.New(), Status: models.DealStatusDraft})
		assert.Nil(t, bare.DealType)
		assert.Nil(t, bare.SalesChannel)
		assert.Nil(t, bare.Title)
	})
}

func TestToApprovalDTO(t *testing.T) {
	reviewedAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	approval := models.Approval{
		ID:             9,
		UUID:           uuid.New(),
		DealID:         4,
		ApprovalStage:  2,
		DepartmentName: models.DepartmentFinance,
		RequiredRole:   models.RoleFinanceDirector,
		Status:         models.ApprovalStatusApproved,
		Comments:       utils.ToPtr("Margins check out"),
		ReviewedAt:     &reviewedAt,
		Deal:           &models.Deal{UUID: uuid.New()},
		Reviewer:       &models.User{FirstName: "Robin", LastName: "Vega"},
	}

	item := ToApprovalDTO(approval)
	assert.Equal(t, uint(9), item.ID)
	assert.Equal(t, approval.Deal.UUID.String(), item.DealUUID)
	assert.Equal(t, "approved", item.Status)
	require.NotNil(t, item.ReviewerName)
	assert.Equal(t, "Robin Vega", *item.ReviewerName)

	t.Run("WithoutRelations", func(t *testing.T) {
		item := ToApprovalDTO(models.Approval{UUID: uuid.New(), Status: models.ApprovalStatusPending})
		assert.Empty(t, item.DealUUID)
		assert.Nil(t, item.ReviewerName)
	})
}

func TestToChainStageDTOs(t *testing.T) {
	stages := []models.ChainStage{
		{Stage: 1, Department: models.DepartmentFinance, Role: models.RoleFinanceDirector, EstimatedTime: 48 * time.Hour},
		{Stage: 2, Department: models.DepartmentLegal, Role: models.RoleLegalCounsel, EstimatedTime: 72 * time.Hour},
	}

	out := ToChainStageDTOs(stages)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Stage)
	assert.Equal(t, models.DepartmentFinance, out[0].Department)
	assert.Equal(t, 48.0, out[0].EstimatedTimeHours)
	assert.Equal(t, 72.0, out[1].EstimatedTimeHours)

	assert.NotNil(t, ToChainStageDTOs(nil))
	assert.Empty(t, ToChainStageDTOs(nil))
}
