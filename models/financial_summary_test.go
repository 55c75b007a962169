package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryFixture() TierList {
	return TierList{
		{TierNumber: 1, AnnualRevenue: 100000, AnnualGrossMargin: 0.3, Incentives: []Incentive{
			{ID: "i1", Category: "discount", SubCategory: "volume", Option: "tiered", Value: 2000},
		}},
		{TierNumber: 2, AnnualRevenue: 50000, AnnualGrossMargin: 0.5, Incentives: []Incentive{
			{ID: "i2", Category: "rebate", SubCategory: "annual", Option: "cash", Value: 3000},
		}},
	}
}

func TestComputeFinancialSummary(t *testing.T) {
	t.Run("TwoTierDeal", func(t *testing.T) {
		summary := ComputeFinancialSummary(summaryFixture(), 12, 120000)

		assert.Equal(t, 150000.0, summary.TotalAnnualRevenue)
		assert.InDelta(t, 55000.0, summary.TotalGrossMargin, 1e-9)
		assert.InDelta(t, 55000.0/150000.0, summary.AverageGrossMarginPercent, 1e-9)
		assert.Equal(t, 5000.0, summary.TotalIncentiveValue)
		assert.InDelta(t, 5000.0/150000.0, summary.EffectiveDiscountRate, 1e-9)
		assert.InDelta(t, 12500.0, summary.MonthlyValue, 1e-9)
		assert.InDelta(t, 145000.0, summary.ProjectedNetValue, 1e-9)
		require.NotNil(t, summary.YearOverYearGrowth)
		assert.InDelta(t, 0.25, *summary.YearOverYearGrowth, 1e-9)
	})

	t.Run("IsPure", func(t *testing.T) {
		a := ComputeFinancialSummary(summaryFixture(), 12, 120000)
		b := ComputeFinancialSummary(summaryFixture(), 12, 120000)
		assert.Equal(t, a, b)
	})

	t.Run("MultiYearContract", func(t *testing.T) {
		summary := ComputeFinancialSummary(summaryFixture(), 24, 0)

		assert.InDelta(t, 6250.0, summary.MonthlyValue, 1e-9)
		assert.InDelta(t, 290000.0, summary.ProjectedNetValue, 1e-9)
	})

	t.Run("ZeroRevenueYieldsZeros", func(t *testing.T) {
		tiers := TierList{{TierNumber: 1, AnnualRevenue: 0, AnnualGrossMargin: 0, Incentives: []Incentive{}}}
		summary := ComputeFinancialSummary(tiers, 12, 0)

		assert.Equal(t, 0.0, summary.AverageGrossMarginPercent)
		assert.Equal(t, 0.0, summary.EffectiveDiscountRate)
		assert.Equal(t, 0.0, summary.MonthlyValue)
		assert.Nil(t, summary.YearOverYearGrowth)
	})

	t.Run("NoBaselineMeansNoGrowth", func(t *testing.T) {
		summary := ComputeFinancialSummary(summaryFixture(), 12, 0)
		assert.Nil(t, summary.YearOverYearGrowth)
	})

	t.Run("InvalidTermClampedToOneMonth", func(t *testing.T) {
		summary := ComputeFinancialSummary(summaryFixture(), 0, 0)
		assert.InDelta(t, 150000.0, summary.MonthlyValue, 1e-9)
	})
}

func TestComputeTierGrowth(t *testing.T) {
	baseline := &ClientBaseline{
		ClientName:          "Acme Media",
		PreviousYearRevenue: 120000,
		TierBaselines: []TierBaseline{
			{TierNumber: 1, PreviousYearRevenue: 80000, PreviousYearGrossProfit: 24000, PreviousYearAdjustedMargin: 22000},
		},
	}

	t.Run("MatchedTier", func(t *testing.T) {
		growth := ComputeTierGrowth(summaryFixture(), baseline)
		require.Len(t, growth, 2)

		first := growth[0]
		require.NotNil(t, first.RevenueGrowthRate)
		assert.InDelta(t, 0.25, *first.RevenueGrowthRate, 1e-9)
		require.NotNil(t, first.GrossProfitGrowthRate)
		assert.InDelta(t, 0.25, *first.GrossProfitGrowthRate, 1e-9)
		require.NotNil(t, first.AdjustedMarginGrowthRate)
		// 100000*0.3 - 2000 = 28000 against 22000
		assert.InDelta(t, 6000.0/22000.0, *first.AdjustedMarginGrowthRate, 1e-9)
	})

	t.Run("UnmatchedTierHasNilRates", func(t *testing.T) {
		growth := ComputeTierGrowth(summaryFixture(), baseline)
		second := growth[1]
		assert.Nil(t, second.RevenueGrowthRate)
		assert.Nil(t, second.GrossProfitGrowthRate)
		assert.Nil(t, second.AdjustedMarginGrowthRate)
	})

	t.Run("ZeroBaselineFigureIsNotApplicable", func(t *testing.T) {
		zeroBaseline := &ClientBaseline{
			TierBaselines: []TierBaseline{
				{TierNumber: 1, PreviousYearRevenue: 0, PreviousYearGrossProfit: 24000, PreviousYearAdjustedMargin: 0},
			},
		}
		growth := ComputeTierGrowth(summaryFixture(), zeroBaseline)
		assert.Nil(t, growth[0].RevenueGrowthRate)
		assert.NotNil(t, growth[0].GrossProfitGrowthRate)
		assert.Nil(t, growth[0].AdjustedMarginGrowthRate)
	})

	t.Run("NilBaseline", func(t *testing.T) {
		growth := ComputeTierGrowth(summaryFixture(), nil)
		require.Len(t, growth, 2)
		for _, g := range growth {
			assert.Nil(t, g.RevenueGrowthRate)
		}
	})
}
