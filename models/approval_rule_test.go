package models

import (
	"testing"
	"time"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAttrs() DealAttributes {
	return DealAttributes{
		TotalValue:         100000,
		DealType:           DealTypeRenewal,
		SalesChannel:       SalesChannelAdvertiser,
		ContractTermMonths: 12,
	}
}

func TestDealAttributesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DealAttributes)
		wantErr bool
	}{
		{"valid", func(a *DealAttributes) {}, false},
		{"negative total value", func(a *DealAttributes) { a.TotalValue = -1 }, true},
		{"unknown deal type", func(a *DealAttributes) { a.DealType = "barter" }, true},
		{"unknown channel", func(a *DealAttributes) { a.SalesChannel = "reseller" }, true},
		{"zero contract term", func(a *DealAttributes) { a.ContractTermMonths = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := validAttrs()
			tt.mutate(&attrs)
			err := attrs.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDealAttributes)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleSetMatch(t *testing.T) {
	ruleSet := DefaultRuleSet()

	t.Run("NonStandardHighValueWinsOverLaterRules", func(t *testing.T) {
		attrs := validAttrs()
		attrs.TotalValue = 2_000_000
		attrs.HasNonStandardTerms = true

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 3, chain.TotalStages())
		assert.Equal(t, DepartmentFinance, chain.Stages[0].Department)
		assert.Equal(t, DepartmentLegal, chain.Stages[1].Department)
		assert.Equal(t, DepartmentExecutive, chain.Stages[2].Department)
		assert.Equal(t, RoleCRO, chain.Stages[2].Role)
	})

	t.Run("StandardHighValueSkipsLegal", func(t *testing.T) {
		attrs := validAttrs()
		attrs.TotalValue = 2_000_000

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 2, chain.TotalStages())
		assert.Equal(t, DepartmentFinance, chain.Stages[0].Department)
		assert.Equal(t, RoleVPSales, chain.Stages[1].Role)
	})

	t.Run("NonStandardTermsAtLowValue", func(t *testing.T) {
		attrs := validAttrs()
		attrs.TotalValue = 50_000
		attrs.HasNonStandardTerms = true

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 2, chain.TotalStages())
		assert.Equal(t, DepartmentLegal, chain.Stages[0].Department)
	})

	t.Run("LongTermContract", func(t *testing.T) {
		attrs := validAttrs()
		attrs.ContractTermMonths = 24

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 2, chain.TotalStages())
		assert.Equal(t, DepartmentFinance, chain.Stages[0].Department)
		assert.Equal(t, DepartmentLegal, chain.Stages[1].Department)
	})

	t.Run("AgencyMidValue", func(t *testing.T) {
		attrs := validAttrs()
		attrs.SalesChannel = SalesChannelAgency
		attrs.TotalValue = 300_000

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 2, chain.TotalStages())
		assert.Equal(t, DepartmentRevenueOps, chain.Stages[0].Department)
	})

	t.Run("NoMatchFallsBackToDefault", func(t *testing.T) {
		attrs := validAttrs()

		chain, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		require.Equal(t, 1, chain.TotalStages())
		assert.Equal(t, DepartmentRevenueOps, chain.Stages[0].Department)
	})

	t.Run("Deterministic", func(t *testing.T) {
		attrs := validAttrs()
		attrs.TotalValue = 1_500_000
		attrs.HasNonStandardTerms = true
		attrs.ContractTermMonths = 36

		first, err := ruleSet.Match(attrs)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := ruleSet.Match(attrs)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("InvalidAttributesRejected", func(t *testing.T) {
		attrs := validAttrs()
		attrs.DealType = ""

		_, err := ruleSet.Match(attrs)
		assert.ErrorIs(t, err, ErrInvalidDealAttributes)
	})
}

func TestApprovalRuleMatches(t *testing.T) {
	t.Run("EmptyRuleIsWildcard", func(t *testing.T) {
		rule := ApprovalRule{}
		assert.True(t, rule.Matches(validAttrs()))
	})

	t.Run("MaxTotalValueIsExclusive", func(t *testing.T) {
		rule := ApprovalRule{MaxTotalValue: utils.ToPtr(100000.0)}
		attrs := validAttrs()
		attrs.TotalValue = 100000
		assert.False(t, rule.Matches(attrs))

		attrs.TotalValue = 99999.99
		assert.True(t, rule.Matches(attrs))
	})

	t.Run("DealTypeList", func(t *testing.T) {
		rule := ApprovalRule{DealTypes: []DealType{DealTypeNewBusiness, DealTypeUpsell}}
		attrs := validAttrs()
		assert.False(t, rule.Matches(attrs))

		attrs.DealType = DealTypeUpsell
		assert.True(t, rule.Matches(attrs))
	})
}

func TestApprovalChainEstimatedTurnaround(t *testing.T) {
	day := 24 * time.Hour

	t.Run("SequentialStagesSum", func(t *testing.T) {
		chain := ApprovalChain{Stages: []ChainStage{
			{Stage: 1, Department: DepartmentFinance, EstimatedTime: 3 * day},
			{Stage: 2, Department: DepartmentLegal, EstimatedTime: 5 * day},
		}}
		assert.Equal(t, 8*day, chain.EstimatedTurnaround())
	})

	t.Run("ParallelEntriesCountSlowestOnly", func(t *testing.T) {
		chain := ApprovalChain{Stages: []ChainStage{
			{Stage: 1, Department: DepartmentFinance, EstimatedTime: 3 * day},
			{Stage: 1, Department: DepartmentLegal, EstimatedTime: 5 * day},
			{Stage: 2, Department: DepartmentExecutive, EstimatedTime: 2 * day},
		}}
		assert.Equal(t, 7*day, chain.EstimatedTurnaround())
		assert.Equal(t, 3, chain.TotalStages())
	})
}
