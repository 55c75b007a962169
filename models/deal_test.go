package models

import (
	"testing"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/stretchr/testify/assert"
)

func TestDealStatusCanTransitionTo(t *testing.T) {
	allowed := map[DealStatus][]DealStatus{
		DealStatusDraft:             {DealStatusScoping, DealStatusSubmitted, DealStatusCanceled},
		DealStatusScoping:           {DealStatusDraft, DealStatusSubmitted, DealStatusCanceled},
		DealStatusSubmitted:         {DealStatusUnderReview, DealStatusApproved, DealStatusRevisionRequested, DealStatusLost, DealStatusCanceled},
		DealStatusUnderReview:       {DealStatusApproved, DealStatusRevisionRequested, DealStatusLost, DealStatusCanceled},
		DealStatusApproved:          {DealStatusNegotiating, DealStatusSigned, DealStatusLost, DealStatusCanceled},
		DealStatusNegotiating:       {DealStatusSigned, DealStatusLost, DealStatusCanceled},
		DealStatusRevisionRequested: {DealStatusSubmitted, DealStatusLost, DealStatusCanceled},
		DealStatusSigned:            {},
		DealStatusLost:              {},
		DealStatusCanceled:          {},
	}

	all := []DealStatus{
		DealStatusDraft, DealStatusScoping, DealStatusSubmitted,
		DealStatusUnderReview, DealStatusApproved, DealStatusNegotiating,
		DealStatusRevisionRequested, DealStatusSigned, DealStatusLost,
		DealStatusCanceled,
	}

	for from, targets := range allowed {
		ok := make(map[DealStatus]bool, len(targets))
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to),
				"%s -> %s", from, to)
		}
	}
}

func TestDealStatusIsTerminal(t *testing.T) {
	assert.True(t, DealStatusSigned.IsTerminal())
	assert.True(t, DealStatusLost.IsTerminal())
	assert.True(t, DealStatusCanceled.IsTerminal())
	assert.False(t, DealStatusUnderReview.IsTerminal())
	assert.False(t, DealStatusDraft.IsTerminal())
}

func TestDealIsEditable(t *testing.T) {
	editable := map[DealStatus]bool{
		DealStatusDraft:             true,
		DealStatusScoping:           true,
		DealStatusRevisionRequested: true,
		DealStatusSubmitted:         false,
		DealStatusUnderReview:       false,
		DealStatusApproved:          false,
		DealStatusSigned:            false,
		DealStatusLost:              false,
		DealStatusCanceled:          false,
	}

	for status, want := range editable {
		deal := &Deal{Status: status}
		assert.Equal(t, want, deal.IsEditable(), status)
	}
}

func TestDealAttributes(t *testing.T) {
	t.Run("FromCompleteSpec", func(t *testing.T) {
		deal := &Deal{
			Spec: DealSpec{
				DealType:            utils.ToPtr(DealTypeUpsell),
				SalesChannel:        utils.ToPtr(SalesChannelAgency),
				HasNonStandardTerms: utils.ToPtr(true),
				ContractTermMonths:  utils.ToPtr(18),
			},
			Tiers: TierList{
				{TierNumber: 1, AnnualRevenue: 400000},
				{TierNumber: 2, AnnualRevenue: 100000},
			},
		}

		attrs := deal.Attributes()
		assert.Equal(t, 500000.0, attrs.TotalValue)
		assert.Equal(t, DealTypeUpsell, attrs.DealType)
		assert.Equal(t, SalesChannelAgency, attrs.SalesChannel)
		assert.True(t, attrs.HasNonStandardTerms)
		assert.Equal(t, 18, attrs.ContractTermMonths)
		assert.NoError(t, attrs.Validate())
	})

	t.Run("MissingSpecFieldsFailValidation", func(t *testing.T) {
		deal := &Deal{Tiers: TierList{{TierNumber: 1, AnnualRevenue: 1000}}}
		attrs := deal.Attributes()
		assert.ErrorIs(t, attrs.Validate(), ErrInvalidDealAttributes)
	})
}

func TestDealSpecBaselineForChannel(t *testing.T) {
	advertiser := &ClientBaseline{ClientName: "Acme Media", PreviousYearRevenue: 100000}
	agency := &ClientBaseline{ClientName: "BigBuy Agency", PreviousYearRevenue: 900000}

	spec := DealSpec{
		AdvertiserBaseline: advertiser,
		AgencyBaseline:     agency,
	}

	t.Run("NoChannelSelected", func(t *testing.T) {
		assert.Nil(t, spec.BaselineForChannel())
	})

	t.Run("AdvertiserChannel", func(t *testing.T) {
		spec.SalesChannel = utils.ToPtr(SalesChannelAdvertiser)
		assert.Equal(t, advertiser, spec.BaselineForChannel())
	})

	t.Run("AgencyChannel", func(t *testing.T) {
		spec.SalesChannel = utils.ToPtr(SalesChannelAgency)
		assert.Equal(t, agency, spec.BaselineForChannel())
	})

	t.Run("MissingBaselineForSelectedChannel", func(t *testing.T) {
		bare := DealSpec{SalesChannel: utils.ToPtr(SalesChannelAgency), AdvertiserBaseline: advertiser}
		assert.Nil(t, bare.BaselineForChannel())
	})
}

func TestDealGetStatusDisplayName(t *testing.T) {
	tests := []struct {
		status DealStatus
		want   string
	}{
		{DealStatusDraft, "Draft"},
		{DealStatusUnderReview, "Under Review"},
		{DealStatusRevisionRequested, "Revision Requested"},
		{DealStatusSigned, "Signed"},
		{DealStatus("mystery"), "Unknown"},
	}

	for _, tt := range tests {
		deal := &Deal{Status: tt.status}
		assert.Equal(t, tt.want, deal.GetStatusDisplayName())
	}
}
