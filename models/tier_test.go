package models

import (
	"encoding/json"
	"testing"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierListAddTier(t *testing.T) {
	t.Run("AppendsContiguousNumbers", func(t *testing.T) {
		tiers := TierList{}

		first, err := tiers.AddTier(DefaultMaxTiers)
		require.NoError(t, err)
		assert.Equal(t, 1, first.TierNumber)
		assert.NotNil(t, first.Incentives)

		second, err := tiers.AddTier(DefaultMaxTiers)
		require.NoError(t, err)
		assert.Equal(t, 2, second.TierNumber)
		assert.Len(t, tiers, 2)
	})

	t.Run("FailsAtCapacity", func(t *testing.T) {
		tiers := TierList{}
		for i := 0; i < DefaultMaxTiers; i++ {
			_, err := tiers.AddTier(DefaultMaxTiers)
			require.NoError(t, err)
		}

		_, err := tiers.AddTier(DefaultMaxTiers)
		assert.ErrorIs(t, err, ErrTierCapacityExceeded)
		assert.Len(t, tiers, DefaultMaxTiers)
	})

	t.Run("ZeroMaxFallsBackToDefault", func(t *testing.T) {
		tiers := TierList{}
		_, err := tiers.AddTier(0)
		require.NoError(t, err)
	})
}

func TestTierListRemoveTier(t *testing.T) {
	newList := func(n int) TierList {
		tiers := TierList{}
		for i := 0; i < n; i++ {
			_, _ = tiers.AddTier(DefaultMaxTiers)
		}
		return tiers
	}

	t.Run("RenumbersRemainder", func(t *testing.T) {
		tiers := newList(3)
		tiers[0].AnnualRevenue = 100
		tiers[1].AnnualRevenue = 200
		tiers[2].AnnualRevenue = 300

		err := tiers.RemoveTier(2, DefaultMinTiers)
		require.NoError(t, err)

		require.Len(t, tiers, 2)
		assert.Equal(t, 1, tiers[0].TierNumber)
		assert.Equal(t, 100.0, tiers[0].AnnualRevenue)
		assert.Equal(t, 2, tiers[1].TierNumber)
		assert.Equal(t, 300.0, tiers[1].AnnualRevenue)
	})

	t.Run("FailsBelowMinimum", func(t *testing.T) {
		tiers := newList(1)
		err := tiers.RemoveTier(1, DefaultMinTiers)
		assert.ErrorIs(t, err, ErrMinimumTiersViolation)
		assert.Len(t, tiers, 1)
	})

	t.Run("FailsOnUnknownTier", func(t *testing.T) {
		tiers := newList(2)
		err := tiers.RemoveTier(5, DefaultMinTiers)
		assert.ErrorIs(t, err, ErrTierNotFound)
	})
}

func TestTierListUpdateTier(t *testing.T) {
	tiers := TierList{}
	_, _ = tiers.AddTier(DefaultMaxTiers)

	t.Run("PartialUpdateLeavesOtherFields", func(t *testing.T) {
		err := tiers.UpdateTier(1, TierUpdate{AnnualRevenue: utils.ToPtr(50000.0)})
		require.NoError(t, err)
		assert.Equal(t, 50000.0, tiers[0].AnnualRevenue)
		assert.Equal(t, 0.0, tiers[0].AnnualGrossMargin)

		err = tiers.UpdateTier(1, TierUpdate{AnnualGrossMargin: utils.ToPtr(0.4)})
		require.NoError(t, err)
		assert.Equal(t, 50000.0, tiers[0].AnnualRevenue)
		assert.Equal(t, 0.4, tiers[0].AnnualGrossMargin)
	})

	t.Run("IncentiveReplacementIsWholeList", func(t *testing.T) {
		incentives := []Incentive{
			{ID: "inc-1", Category: "discount", SubCategory: "volume", Option: "tiered", Value: 1000},
			{ID: "inc-2", Category: "rebate", SubCategory: "quarterly", Option: "cash", Value: 500},
		}
		err := tiers.UpdateTier(1, TierUpdate{Incentives: &incentives})
		require.NoError(t, err)
		assert.Len(t, tiers[0].Incentives, 2)

		replacement := []Incentive{
			{ID: "inc-3", Category: "discount", SubCategory: "upfront", Option: "flat", Value: 250},
		}
		err = tiers.UpdateTier(1, TierUpdate{Incentives: &replacement})
		require.NoError(t, err)
		require.Len(t, tiers[0].Incentives, 1)
		assert.Equal(t, "inc-3", tiers[0].Incentives[0].ID)
	})

	t.Run("UnknownTier", func(t *testing.T) {
		err := tiers.UpdateTier(9, TierUpdate{})
		assert.ErrorIs(t, err, ErrTierNotFound)
	})
}

func TestTierListValidate(t *testing.T) {
	t.Run("ValidModel", func(t *testing.T) {
		tiers := TierList{
			{TierNumber: 1, AnnualRevenue: 100000, AnnualGrossMargin: 0.35, Incentives: []Incentive{
				{ID: "i1", Category: "discount", SubCategory: "volume", Option: "tiered", Value: 5000},
			}},
			{TierNumber: 2, AnnualRevenue: 250000, AnnualGrossMargin: 0.4, Incentives: []Incentive{}},
		}
		assert.Empty(t, tiers.Validate())
	})

	t.Run("CollectsAllViolations", func(t *testing.T) {
		tiers := TierList{
			{TierNumber: 2, AnnualRevenue: -5, AnnualGrossMargin: 1.5, Incentives: []Incentive{
				{Category: "", SubCategory: "", Option: "", Value: -1},
			}},
		}
		violations := tiers.Validate()

		fields := make(map[string]bool)
		for _, v := range violations {
			fields[v.Field] = true
		}
		assert.True(t, fields["tier_number"])
		assert.True(t, fields["annual_revenue"])
		assert.True(t, fields["annual_gross_margin"])
		assert.True(t, fields["incentive.category"])
		assert.True(t, fields["incentive.sub_category"])
		assert.True(t, fields["incentive.option"])
		assert.True(t, fields["incentive.value"])
	})

	t.Run("MarginBoundsAreInclusive", func(t *testing.T) {
		tiers := TierList{
			{TierNumber: 1, AnnualRevenue: 0, AnnualGrossMargin: 0, Incentives: []Incentive{}},
			{TierNumber: 2, AnnualRevenue: 0, AnnualGrossMargin: 1, Incentives: []Incentive{}},
		}
		assert.Empty(t, tiers.Validate())
	})
}

func TestTierListTotals(t *testing.T) {
	tiers := TierList{
		{TierNumber: 1, AnnualRevenue: 100000, AnnualGrossMargin: 0.3, Incentives: []Incentive{
			{ID: "i1", Category: "discount", SubCategory: "volume", Option: "tiered", Value: 2000},
		}},
		{TierNumber: 2, AnnualRevenue: 50000, AnnualGrossMargin: 0.5, Incentives: []Incentive{
			{ID: "i2", Category: "rebate", SubCategory: "annual", Option: "cash", Value: 3000},
		}},
	}

	assert.Equal(t, 150000.0, tiers.TotalAnnualRevenue())
	assert.InDelta(t, 55000.0, tiers.TotalGrossProfit(), 1e-9)
	assert.Equal(t, 5000.0, tiers.TotalIncentiveValue())
	assert.InDelta(t, 55000.0/150000.0, tiers.AverageGrossMargin(), 1e-9)

	t.Run("ZeroRevenueAverageIsZero", func(t *testing.T) {
		empty := TierList{}
		assert.Equal(t, 0.0, empty.AverageGrossMargin())
	})
}

func TestTierUnmarshalJSON(t *testing.T) {
	t.Run("MissingIncentivesBecomesEmptyList", func(t *testing.T) {
		var tier Tier
		err := json.Unmarshal([]byte(`{"tier_number":1,"annual_revenue":1000,"annual_gross_margin":0.2}`), &tier)
		require.NoError(t, err)
		assert.NotNil(t, tier.Incentives)
		assert.Empty(t, tier.Incentives)
	})

	t.Run("MalformedIncentivesTolerated", func(t *testing.T) {
		var tier Tier
		err := json.Unmarshal([]byte(`{"tier_number":1,"incentives":"oops"}`), &tier)
		require.NoError(t, err)
		assert.Empty(t, tier.Incentives)
	})
}
