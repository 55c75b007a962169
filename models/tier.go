// Package models contains domain entities and business models for the deal desk
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Default tier-count bounds. Call sites may tighten MaxTiers via config.
const (
	DefaultMinTiers = 1
	DefaultMaxTiers = 6
)

// Incentive is a named discount/bonus/rebate attached to a tier.
type Incentive struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Option      string  `json:"option"`
	Value       float64 `json:"value"`
	Notes       *string `json:"notes,omitempty"`
}

// Tier is one revenue/margin/incentive bracket within a deal's structure.
// TierNumber is 1-based and contiguous across the deal's tier list.
type Tier struct {
	TierNumber        int         `json:"tier_number"`
	AnnualRevenue     float64     `json:"annual_revenue"`
	AnnualGrossMargin float64     `json:"annual_gross_margin"`
	Incentives        []Incentive `json:"incentives"`
}

// UnmarshalJSON coerces an absent or malformed incentives array to an empty
// list instead of failing. Legacy deal records predate the incentives field.
func (t *Tier) UnmarshalJSON(data []byte) error {
	type shadow struct {
		TierNumber        int             `json:"tier_number"`
		AnnualRevenue     float64         `json:"annual_revenue"`
		AnnualGrossMargin float64         `json:"annual_gross_margin"`
		Incentives        json.RawMessage `json:"incentives"`
	}
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.TierNumber = s.TierNumber
	t.AnnualRevenue = s.AnnualRevenue
	t.AnnualGrossMargin = s.AnnualGrossMargin
	t.Incentives = []Incentive{}
	if len(s.Incentives) > 0 {
		var incentives []Incentive
		if err := json.Unmarshal(s.Incentives, &incentives); err == nil && incentives != nil {
			t.Incentives = incentives
		}
	}
	return nil
}

// TotalIncentiveValue sums the incentive values attached to this tier.
func (t *Tier) TotalIncentiveValue() float64 {
	total := 0.0
	for _, inc := range t.Incentives {
		total += inc.Value
	}
	return total
}

// GrossProfit is the tier's revenue weighted by its margin.
func (t *Tier) GrossProfit() float64 {
	return t.AnnualRevenue * t.AnnualGrossMargin
}

// TierList is the ordered tier collection stored as jsonb on a deal.
type TierList []Tier

// Value implements the driver.Valuer interface for TierList
func (l TierList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for TierList
func (l *TierList) Scan(value any) error {
	if value == nil {
		*l = TierList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TierList", value)
	}

	return json.Unmarshal(bytes, l)
}

// TierViolation describes a single validation failure on a tier field.
type TierViolation struct {
	TierNumber int    `json:"tier_number"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// TierUpdate carries a partial update for a single tier. Nil fields are left
// untouched. Incentive replacement is whole-list.
type TierUpdate struct {
	AnnualRevenue     *float64     `json:"annual_revenue,omitempty"`
	AnnualGrossMargin *float64     `json:"annual_gross_margin,omitempty"`
	Incentives        *[]Incentive `json:"incentives,omitempty"`
}

// AddTier appends a tier with default revenue/margin and an empty incentive
// list. Fails when the list already holds maxTiers tiers.
func (l *TierList) AddTier(maxTiers int) (*Tier, error) {
	if maxTiers <= 0 {
		maxTiers = DefaultMaxTiers
	}
	if len(*l) >= maxTiers {
		return nil, ErrTierCapacityExceeded
	}
	tier := Tier{
		TierNumber: len(*l) + 1,
		Incentives: []Incentive{},
	}
	*l = append(*l, tier)
	return &(*l)[len(*l)-1], nil
}

// RemoveTier removes the named tier and renumbers the remainder contiguously
// starting at 1, preserving relative order. Fails when the list would drop
// below minTiers.
func (l *TierList) RemoveTier(tierNumber int, minTiers int) error {
	if minTiers <= 0 {
		minTiers = DefaultMinTiers
	}
	idx := l.indexOf(tierNumber)
	if idx < 0 {
		return ErrTierNotFound
	}
	if len(*l) <= minTiers {
		return ErrMinimumTiersViolation
	}
	*l = append((*l)[:idx], (*l)[idx+1:]...)
	for i := range *l {
		(*l)[i].TierNumber = i + 1
	}
	return nil
}

// UpdateTier merges the given partial update into the named tier. Updates are
// not validated here; validation is pull-based via Validate.
func (l *TierList) UpdateTier(tierNumber int, update TierUpdate) error {
	idx := l.indexOf(tierNumber)
	if idx < 0 {
		return ErrTierNotFound
	}
	tier := &(*l)[idx]
	if update.AnnualRevenue != nil {
		tier.AnnualRevenue = *update.AnnualRevenue
	}
	if update.AnnualGrossMargin != nil {
		tier.AnnualGrossMargin = *update.AnnualGrossMargin
	}
	if update.Incentives != nil {
		tier.Incentives = *update.Incentives
		if tier.Incentives == nil {
			tier.Incentives = []Incentive{}
		}
	}
	return nil
}

func (l TierList) indexOf(tierNumber int) int {
	for i := range l {
		if l[i].TierNumber == tierNumber {
			return i
		}
	}
	return -1
}

// Validate reports all invariant violations across the tier list. An empty
// result means the model is valid. Callers may hold an invalid in-memory
// model; submission is the enforcement point.
func (l TierList) Validate() []TierViolation {
	violations := []TierViolation{}
	for i, tier := range l {
		if tier.TierNumber != i+1 {
			violations = append(violations, TierViolation{
				TierNumber: tier.TierNumber,
				Field:      "tier_number",
				Message:    fmt.Sprintf("tier numbers must be contiguous starting at 1, expected %d", i+1),
			})
		}
		if tier.AnnualRevenue < 0 {
			violations = append(violations, TierViolation{
				TierNumber: tier.TierNumber,
				Field:      "annual_revenue",
				Message:    "annual revenue must not be negative",
			})
		}
		if tier.AnnualGrossMargin < 0 || tier.AnnualGrossMargin > 1 {
			violations = append(violations, TierViolation{
				TierNumber: tier.TierNumber,
				Field:      "annual_gross_margin",
				Message:    "annual gross margin must be between 0 and 1",
			})
		}
		for _, inc := range tier.Incentives {
			if inc.Category == "" {
				violations = append(violations, TierViolation{
					TierNumber: tier.TierNumber,
					Field:      "incentive.category",
					Message:    "incentive category is required",
				})
			}
			if inc.SubCategory == "" {
				violations = append(violations, TierViolation{
					TierNumber: tier.TierNumber,
					Field:      "incentive.sub_category",
					Message:    "incentive sub-category is required",
				})
			}
			if inc.Option == "" {
				violations = append(violations, TierViolation{
					TierNumber: tier.TierNumber,
					Field:      "incentive.option",
					Message:    "incentive option is required",
				})
			}
			if inc.Value < 0 {
				violations = append(violations, TierViolation{
					TierNumber: tier.TierNumber,
					Field:      "incentive.value",
					Message:    "incentive value must not be negative",
				})
			}
		}
	}
	return violations
}

// TotalAnnualRevenue sums annual revenue across all tiers.
func (l TierList) TotalAnnualRevenue() float64 {
	total := 0.0
	for i := range l {
		total += l[i].AnnualRevenue
	}
	return total
}

// TotalGrossProfit sums revenue-weighted margin across all tiers.
func (l TierList) TotalGrossProfit() float64 {
	total := 0.0
	for i := range l {
		total += l[i].GrossProfit()
	}
	return total
}

// TotalIncentiveValue sums every incentive value across all tiers.
func (l TierList) TotalIncentiveValue() float64 {
	total := 0.0
	for i := range l {
		total += l[i].TotalIncentiveValue()
	}
	return total
}

// AverageGrossMargin is total gross profit over total revenue, 0 when the
// list carries no revenue.
func (l TierList) AverageGrossMargin() float64 {
	revenue := l.TotalAnnualRevenue()
	if revenue == 0 {
		return 0
	}
	return l.TotalGrossProfit() / revenue
}
