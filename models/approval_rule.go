package models

import (
	"fmt"
	"time"

	"github.com/dealdesk/deal-desk/utils"
)

// DealAttributes is the routing input evaluated once per submission against
// the deal's final state.
type DealAttributes struct {
	TotalValue          float64      `json:"total_value"`
	DealType            DealType     `json:"deal_type"`
	SalesChannel        SalesChannel `json:"sales_channel"`
	HasNonStandardTerms bool         `json:"has_non_standard_terms"`
	ContractTermMonths  int          `json:"contract_term_months"`
}

// Validate rejects malformed routing input before any rule is consulted.
func (a DealAttributes) Validate() error {
	if a.TotalValue < 0 {
		return fmt.Errorf("%w: total value must not be negative", ErrInvalidDealAttributes)
	}
	if !a.DealType.Valid() {
		return fmt.Errorf("%w: unknown deal type %q", ErrInvalidDealAttributes, string(a.DealType))
	}
	if !a.SalesChannel.Valid() {
		return fmt.Errorf("%w: unknown sales channel %q", ErrInvalidDealAttributes, string(a.SalesChannel))
	}
	if a.ContractTermMonths < 1 {
		return fmt.Errorf("%w: contract term must be at least one month", ErrInvalidDealAttributes)
	}
	return nil
}

// ChainStage is one approval step of a chain. Stages sharing a Stage number
// run in parallel; distinct numbers run sequentially in ascending order.
type ChainStage struct {
	Stage         int           `json:"stage"`
	Department    string        `json:"department"`
	Role          string        `json:"role"`
	EstimatedTime time.Duration `json:"estimated_time"`
}

// ApprovalChain is the ordered sequence of stages a deal must pass.
type ApprovalChain struct {
	Stages []ChainStage `json:"stages"`
}

// TotalStages counts the stage rows (parallel entries count individually).
func (c ApprovalChain) TotalStages() int {
	return len(c.Stages)
}

// EstimatedTurnaround sums per-stage estimates. Entries sharing a stage
// number are parallel, so only the slowest entry of each stage counts.
func (c ApprovalChain) EstimatedTurnaround() time.Duration {
	maxPerStage := map[int]time.Duration{}
	for _, s := range c.Stages {
		if s.EstimatedTime > maxPerStage[s.Stage] {
			maxPerStage[s.Stage] = s.EstimatedTime
		}
	}
	var total time.Duration
	for _, d := range maxPerStage {
		total += d
	}
	return total
}

// ApprovalRule is one row of the routing decision table: a predicate over
// deal attributes plus the chain it produces. Nil/empty match fields are
// wildcards. Adding a rule is a data change, not a code change.
type ApprovalRule struct {
	Name string `json:"name"`

	MinTotalValue         *float64       `json:"min_total_value,omitempty"`
	MaxTotalValue         *float64       `json:"max_total_value,omitempty"`
	DealTypes             []DealType     `json:"deal_types,omitempty"`
	SalesChannels         []SalesChannel `json:"sales_channels,omitempty"`
	NonStandardTerms      *bool          `json:"non_standard_terms,omitempty"`
	MinContractTermMonths *int           `json:"min_contract_term_months,omitempty"`

	RequiredChain ApprovalChain `json:"required_chain"`
}

// Matches evaluates the rule's predicate against the given attributes.
func (r ApprovalRule) Matches(attrs DealAttributes) bool {
	if r.MinTotalValue != nil && attrs.TotalValue < *r.MinTotalValue {
		return false
	}
	if r.MaxTotalValue != nil && attrs.TotalValue >= *r.MaxTotalValue {
		return false
	}
	if len(r.DealTypes) > 0 && !containsDealType(r.DealTypes, attrs.DealType) {
		return false
	}
	if len(r.SalesChannels) > 0 && !containsChannel(r.SalesChannels, attrs.SalesChannel) {
		return false
	}
	if r.NonStandardTerms != nil && attrs.HasNonStandardTerms != *r.NonStandardTerms {
		return false
	}
	if r.MinContractTermMonths != nil && attrs.ContractTermMonths < *r.MinContractTermMonths {
		return false
	}
	return true
}

func containsDealType(types []DealType, t DealType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsChannel(channels []SalesChannel, c SalesChannel) bool {
	for _, v := range channels {
		if v == c {
			return true
		}
	}
	return false
}

// RuleSet is the ordered routing table. Rules must be authored from most
// specific to most general; the first match wins.
type RuleSet struct {
	Rules        []ApprovalRule `json:"rules"`
	DefaultChain ApprovalChain  `json:"default_chain"`
}

// Match deterministically selects the approval chain for the given
// attributes. No match falls back to the default chain; routing never
// blocks submission outright.
func (s RuleSet) Match(attrs DealAttributes) (ApprovalChain, error) {
	if err := attrs.Validate(); err != nil {
		return ApprovalChain{}, err
	}
	for _, rule := range s.Rules {
		if rule.Matches(attrs) {
			return rule.RequiredChain, nil
		}
	}
	return s.DefaultChain, nil
}

// Well-known departments and reviewer roles used by the default table.
const (
	DepartmentFinance    = "finance"
	DepartmentLegal      = "legal"
	DepartmentRevenueOps = "revenue_ops"
	DepartmentExecutive  = "executive"

	RoleFinanceDirector = "finance_director"
	RoleLegalCounsel    = "legal_counsel"
	RoleVPSales         = "vp_sales"
	RoleCRO             = "cro"
)

// DefaultRuleSet returns the compiled-in routing table with the stock
// thresholds.
func DefaultRuleSet() RuleSet {
	return RuleSetWithThresholds(1_000_000, 250_000, 24)
}

// RuleSetWithThresholds builds the routing table with deployment-tuned
// thresholds. The dispatch policy (ordered, first match wins, default
// fallback) and the chains themselves are fixed; only the cut-offs move.
func RuleSetWithThresholds(highValue, agencyMidValue float64, longTermMonths int) RuleSet {
	day := 24 * time.Hour
	return RuleSet{
		Rules: []ApprovalRule{
			{
				Name:             "non-standard high value",
				NonStandardTerms: utils.ToPtr(true),
				MinTotalValue:    utils.ToPtr(highValue),
				RequiredChain: ApprovalChain{Stages: []ChainStage{
					{Stage: 1, Department: DepartmentFinance, Role: RoleFinanceDirector, EstimatedTime: 3 * day},
					{Stage: 2, Department: DepartmentLegal, Role: RoleLegalCounsel, EstimatedTime: 5 * day},
					{Stage: 3, Department: DepartmentExecutive, Role: RoleCRO, EstimatedTime: 2 * day},
				}},
			},
			{
				Name:             "non-standard terms",
				NonStandardTerms: utils.ToPtr(true),
				RequiredChain: ApprovalChain{Stages: []ChainStage{
					{Stage: 1, Department: DepartmentLegal, Role: RoleLegalCounsel, EstimatedTime: 5 * day},
					{Stage: 2, Department: DepartmentFinance, Role: RoleFinanceDirector, EstimatedTime: 3 * day},
				}},
			},
			{
				Name:          "high value",
				MinTotalValue: utils.ToPtr(highValue),
				RequiredChain: ApprovalChain{Stages: []ChainStage{
					{Stage: 1, Department: DepartmentFinance, Role: RoleFinanceDirector, EstimatedTime: 3 * day},
					{Stage: 2, Department: DepartmentExecutive, Role: RoleVPSales, EstimatedTime: 2 * day},
				}},
			},
			{
				Name:                  "long term contract",
				MinContractTermMonths: utils.ToPtr(longTermMonths),
				RequiredChain: ApprovalChain{Stages: []ChainStage{
					{Stage: 1, Department: DepartmentFinance, Role: RoleFinanceDirector, EstimatedTime: 3 * day},
					{Stage: 2, Department: DepartmentLegal, Role: RoleLegalCounsel, EstimatedTime: 5 * day},
				}},
			},
			{
				Name:          "agency mid value",
				SalesChannels: []SalesChannel{SalesChannelAgency},
				MinTotalValue: utils.ToPtr(agencyMidValue),
				RequiredChain: ApprovalChain{Stages: []ChainStage{
					{Stage: 1, Department: DepartmentRevenueOps, Role: RoleDepartmentReviewer, EstimatedTime: 2 * day},
					{Stage: 2, Department: DepartmentFinance, Role: RoleFinanceDirector, EstimatedTime: 3 * day},
				}},
			},
		},
		DefaultChain: ApprovalChain{Stages: []ChainStage{
			{Stage: 1, Department: DepartmentRevenueOps, Role: RoleDepartmentReviewer, EstimatedTime: 2 * day},
		}},
	}
}

