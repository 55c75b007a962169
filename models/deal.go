package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealStatus represents the lifecycle status of a deal
type DealStatus string

const (
	DealStatusDraft             DealStatus = "draft"
	DealStatusScoping           DealStatus = "scoping"
	DealStatusSubmitted         DealStatus = "submitted"
	DealStatusUnderReview       DealStatus = "under_review"
	DealStatusApproved          DealStatus = "approved"
	DealStatusNegotiating       DealStatus = "negotiating"
	DealStatusRevisionRequested DealStatus = "revision_requested"
	DealStatusSigned            DealStatus = "signed"
	DealStatusLost              DealStatus = "lost"
	DealStatusCanceled          DealStatus = "canceled"
)

// String returns the string representation of the status
func (s DealStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DealStatus) Valid() bool {
	switch s {
	case DealStatusDraft, DealStatusScoping, DealStatusSubmitted,
		DealStatusUnderReview, DealStatusApproved, DealStatusNegotiating,
		DealStatusRevisionRequested, DealStatusSigned, DealStatusLost,
		DealStatusCanceled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DealStatus
func (s *DealStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DealStatus(v)
	case []byte:
		*s = DealStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DealStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DealStatus
func (s DealStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DealStatus: %s", s)
	}
	return string(s), nil
}

// CanTransitionTo checks if the deal can transition to the given status
func (s DealStatus) CanTransitionTo(newStatus DealStatus) bool {
	switch s {
	case DealStatusDraft:
		return newStatus == DealStatusScoping ||
			newStatus == DealStatusSubmitted ||
			newStatus == DealStatusCanceled
	case DealStatusScoping:
		return newStatus == DealStatusDraft ||
			newStatus == DealStatusSubmitted ||
			newStatus == DealStatusCanceled
	case DealStatusSubmitted:
		return newStatus == DealStatusUnderReview ||
			newStatus == DealStatusApproved ||
			newStatus == DealStatusRevisionRequested ||
			newStatus == DealStatusLost ||
			newStatus == DealStatusCanceled
	case DealStatusUnderReview:
		return newStatus == DealStatusApproved ||
			newStatus == DealStatusRevisionRequested ||
			newStatus == DealStatusLost ||
			newStatus == DealStatusCanceled
	case DealStatusApproved:
		return newStatus == DealStatusNegotiating ||
			newStatus == DealStatusSigned ||
			newStatus == DealStatusLost ||
			newStatus == DealStatusCanceled
	case DealStatusNegotiating:
		return newStatus == DealStatusSigned ||
			newStatus == DealStatusLost ||
			newStatus == DealStatusCanceled
	case DealStatusRevisionRequested:
		return newStatus == DealStatusSubmitted ||
			newStatus == DealStatusLost ||
			newStatus == DealStatusCanceled
	default:
		// signed, lost and canceled are terminal
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s DealStatus) IsTerminal() bool {
	return s == DealStatusSigned || s == DealStatusLost || s == DealStatusCanceled
}

// DealType classifies the commercial nature of a deal
type DealType string

const (
	DealTypeNewBusiness DealType = "new_business"
	DealTypeRenewal     DealType = "renewal"
	DealTypeUpsell      DealType = "upsell"
)

// Valid checks if the deal type is a known value
func (t DealType) Valid() bool {
	switch t {
	case DealTypeNewBusiness, DealTypeRenewal, DealTypeUpsell:
		return true
	default:
		return false
	}
}

// SalesChannel identifies which client relationship a deal sells through
type SalesChannel string

const (
	SalesChannelAdvertiser SalesChannel = "advertiser"
	SalesChannelAgency     SalesChannel = "agency"
)

// Valid checks if the sales channel is a known value
func (c SalesChannel) Valid() bool {
	switch c {
	case SalesChannelAdvertiser, SalesChannelAgency:
		return true
	default:
		return false
	}
}

// DealSpec represents the JSON specification for a deal
type DealSpec struct {
	Title *string `json:"title,omitempty"`

	// Commercial attributes driving approval routing
	DealType            *DealType     `json:"deal_type,omitempty"`
	SalesChannel        *SalesChannel `json:"sales_channel,omitempty"`
	HasNonStandardTerms *bool         `json:"has_non_standard_terms,omitempty"`
	ContractTermMonths  *int          `json:"contract_term_months,omitempty"`

	// One baseline per channel; growth math picks the one matching
	// SalesChannel.
	AdvertiserBaseline *ClientBaseline `json:"advertiser_baseline,omitempty"`
	AgencyBaseline     *ClientBaseline `json:"agency_baseline,omitempty"`
}

// Value implements the driver.Valuer interface for DealSpec
func (s DealSpec) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for DealSpec
func (s *DealSpec) Scan(value any) error {
	if value == nil {
		*s = DealSpec{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DealSpec", value)
	}

	return json.Unmarshal(bytes, s)
}

// BaselineForChannel resolves the historical baseline of the client the deal
// sells through. The wrong channel's client must never be consulted.
func (s *DealSpec) BaselineForChannel() *ClientBaseline {
	if s.SalesChannel == nil {
		return nil
	}
	switch *s.SalesChannel {
	case SalesChannelAdvertiser:
		return s.AdvertiserBaseline
	case SalesChannelAgency:
		return s.AgencyBaseline
	default:
		return nil
	}
}

// Deal represents a commercial deal proposal in the database
type Deal struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_deals_uuid" json:"uuid"`
	SellerID         uint       `gorm:"not null;index:idx_deals_seller_id" json:"seller_id"`
	Status           DealStatus `gorm:"type:deal_status;not null;default:'draft';index:idx_deals_status" json:"status"`
	Spec             DealSpec   `gorm:"type:jsonb;not null" json:"spec"`
	Tiers            TierList   `gorm:"type:jsonb;not null" json:"tiers"`
	Comment          *string    `gorm:"type:text" json:"comment,omitempty"`
	LastStatusChange time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"last_status_change"`
	CreatedAt        time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_deals_created_at" json:"created_at"`
	UpdatedAt        *time.Time `gorm:"index:idx_deals_updated_at" json:"updated_at,omitempty"`

	// Relations
	Seller    *User      `gorm:"foreignKey:SellerID;references:ID" json:"seller,omitempty"`
	Approvals []Approval `gorm:"foreignKey:DealID" json:"approvals,omitempty"`
}

// TableName returns the table name for the model
func (Deal) TableName() string {
	return "deals"
}

// BeforeCreate is called before creating a new record
func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DealStatusDraft
	}
	if d.Tiers == nil {
		d.Tiers = TierList{}
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = utils.UTCNow()
	}
	if d.LastStatusChange.IsZero() {
		d.LastStatusChange = d.CreatedAt
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (d *Deal) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	d.UpdatedAt = &now
	return nil
}

// IsEditable checks if the deal's tiers and attributes can still be edited
func (d *Deal) IsEditable() bool {
	return d.Status == DealStatusDraft ||
		d.Status == DealStatusScoping ||
		d.Status == DealStatusRevisionRequested
}

// Attributes assembles the routing input from the deal's final spec and the
// recomputed total revenue.
func (d *Deal) Attributes() DealAttributes {
	attrs := DealAttributes{
		TotalValue: d.Tiers.TotalAnnualRevenue(),
	}
	if d.Spec.DealType != nil {
		attrs.DealType = *d.Spec.DealType
	}
	if d.Spec.SalesChannel != nil {
		attrs.SalesChannel = *d.Spec.SalesChannel
	}
	if d.Spec.HasNonStandardTerms != nil {
		attrs.HasNonStandardTerms = *d.Spec.HasNonStandardTerms
	}
	if d.Spec.ContractTermMonths != nil {
		attrs.ContractTermMonths = *d.Spec.ContractTermMonths
	}
	return attrs
}

// DealFilter represents filter criteria for deals
type DealFilter struct {
	ID            *uint         `json:"id,omitempty"`
	UUID          *uuid.UUID    `json:"uuid,omitempty"`
	SellerID      *uint         `json:"seller_id,omitempty"`
	Status        *DealStatus   `json:"status,omitempty"`
	Title         *string       `json:"title,omitempty"`
	DealType      *DealType     `json:"deal_type,omitempty"`
	SalesChannel  *SalesChannel `json:"sales_channel,omitempty"`
	CreatedAfter  *time.Time    `json:"created_after,omitempty"`
	CreatedBefore *time.Time    `json:"created_before,omitempty"`
	UpdatedAfter  *time.Time    `json:"updated_after,omitempty"`
	UpdatedBefore *time.Time    `json:"updated_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (d *Deal) GetStatusDisplayName() string {
	switch d.Status {
	case DealStatusDraft:
		return "Draft"
	case DealStatusScoping:
		return "Scoping"
	case DealStatusSubmitted:
		return "Submitted"
	case DealStatusUnderReview:
		return "Under Review"
	case DealStatusApproved:
		return "Approved"
	case DealStatusNegotiating:
		return "Negotiating"
	case DealStatusRevisionRequested:
		return "Revision Requested"
	case DealStatusSigned:
		return "Signed"
	case DealStatusLost:
		return "Lost"
	case DealStatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}
