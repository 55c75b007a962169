package models

// DealFinancialSummary is a derived view over a deal's tier list. It is never
// persisted; every read recomputes it from the current tiers and context.
type DealFinancialSummary struct {
	TotalAnnualRevenue        float64 `json:"total_annual_revenue"`
	TotalGrossMargin          float64 `json:"total_gross_margin"`
	AverageGrossMarginPercent float64 `json:"average_gross_margin_percent"`
	TotalIncentiveValue       float64 `json:"total_incentive_value"`
	EffectiveDiscountRate     float64 `json:"effective_discount_rate"`
	MonthlyValue              float64 `json:"monthly_value"`
	// YearOverYearGrowth is nil when no prior-year baseline exists.
	YearOverYearGrowth *float64 `json:"year_over_year_growth,omitempty"`
	ProjectedNetValue  float64  `json:"projected_net_value"`
}

// TierBaseline carries one tier's prior-year figures for growth calculations.
type TierBaseline struct {
	TierNumber                 int     `json:"tier_number"`
	PreviousYearRevenue        float64 `json:"previous_year_revenue"`
	PreviousYearGrossProfit    float64 `json:"previous_year_gross_profit"`
	PreviousYearAdjustedMargin float64 `json:"previous_year_adjusted_margin"`
}

// ClientBaseline holds one client's historical figures. A deal carries one
// baseline per sales channel; growth math must use the baseline of the
// channel the deal sells through, never the other channel's client.
type ClientBaseline struct {
	ClientName          string         `json:"client_name"`
	PreviousYearRevenue float64        `json:"previous_year_revenue"`
	PreviousYearMargin  *float64       `json:"previous_year_margin,omitempty"`
	TierBaselines       []TierBaseline `json:"tier_baselines,omitempty"`
}

// TierGrowth is the per-tier growth view against a prior-year baseline.
// Nil rates mean the baseline figure was zero or absent ("not applicable").
type TierGrowth struct {
	TierNumber               int      `json:"tier_number"`
	RevenueGrowthRate        *float64 `json:"revenue_growth_rate,omitempty"`
	GrossProfitGrowthRate    *float64 `json:"gross_profit_growth_rate,omitempty"`
	AdjustedMarginGrowthRate *float64 `json:"adjusted_margin_growth_rate,omitempty"`
}

// ComputeFinancialSummary derives the full financial view from a tier list,
// the contract term in months and the prior-year revenue baseline. It is a
// pure function: identical inputs always produce the identical summary, and
// zero-revenue edge cases yield zeros rather than NaN or Inf.
func ComputeFinancialSummary(tiers TierList, contractTermMonths int, previousYearRevenue float64) DealFinancialSummary {
	if contractTermMonths < 1 {
		contractTermMonths = 1
	}

	totalRevenue := tiers.TotalAnnualRevenue()
	totalGrossMargin := tiers.TotalGrossProfit()
	totalIncentives := tiers.TotalIncentiveValue()

	summary := DealFinancialSummary{
		TotalAnnualRevenue:  totalRevenue,
		TotalGrossMargin:    totalGrossMargin,
		TotalIncentiveValue: totalIncentives,
		MonthlyValue:        totalRevenue / float64(contractTermMonths),
		ProjectedNetValue:   (totalRevenue - totalIncentives) * (float64(contractTermMonths) / 12.0),
	}

	if totalRevenue > 0 {
		summary.AverageGrossMarginPercent = totalGrossMargin / totalRevenue
		summary.EffectiveDiscountRate = totalIncentives / totalRevenue
	}

	if previousYearRevenue > 0 {
		growth := totalRevenue/previousYearRevenue - 1
		summary.YearOverYearGrowth = &growth
	}

	return summary
}

// ComputeTierGrowth derives per-tier growth rates against the given client
// baseline. Tiers without a matching baseline entry, and baseline figures of
// zero, produce nil rates instead of numeric extremes.
func ComputeTierGrowth(tiers TierList, baseline *ClientBaseline) []TierGrowth {
	growth := make([]TierGrowth, 0, len(tiers))
	for i := range tiers {
		tier := &tiers[i]
		g := TierGrowth{TierNumber: tier.TierNumber}
		if base := baselineForTier(baseline, tier.TierNumber); base != nil {
			g.RevenueGrowthRate = growthRate(tier.AnnualRevenue, base.PreviousYearRevenue)
			g.GrossProfitGrowthRate = growthRate(tier.GrossProfit(), base.PreviousYearGrossProfit)
			adjustedMargin := tier.GrossProfit() - tier.TotalIncentiveValue()
			g.AdjustedMarginGrowthRate = growthRate(adjustedMargin, base.PreviousYearAdjustedMargin)
		}
		growth = append(growth, g)
	}
	return growth
}

func baselineForTier(baseline *ClientBaseline, tierNumber int) *TierBaseline {
	if baseline == nil {
		return nil
	}
	for i := range baseline.TierBaselines {
		if baseline.TierBaselines[i].TierNumber == tierNumber {
			return &baseline.TierBaselines[i]
		}
	}
	return nil
}

func growthRate(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	rate := current/previous - 1
	return &rate
}
