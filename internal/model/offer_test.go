package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOffer_Headline(t *testing.T) {
	tests := []struct {
		name  string
		offer Offer
		want  string
	}{
		{"server text wins", Offer{DiscountText: "25% OFF", OfferType: OfferTypeFixed}, "25% OFF"},
		{"percentage", Offer{OfferType: OfferTypePercentage, DiscountPercentage: "20.00"}, "20% OFF"},
		{"fractional percentage", Offer{OfferType: OfferTypePercentage, DiscountPercentage: "12.50"}, "12.5% OFF"},
		{"percentage without amount", Offer{OfferType: OfferTypePercentage}, "DISCOUNT"},
		{"fixed", Offer{OfferType: OfferTypeFixed, DiscountAmount: "5.00"}, "$5 OFF"},
		{"bogo", Offer{OfferType: OfferTypeBOGO}, "Buy 1 Get 1 FREE"},
		{"combo", Offer{OfferType: OfferTypeCombo}, "Combo Deal"},
		{"special", Offer{OfferType: OfferTypeSpecial}, "Special Offer"},
		{"unknown", Offer{OfferType: "mystery"}, "OFFER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offer.Headline())
		})
	}
}

func TestOffer_ValidityLabelAndKey(t *testing.T) {
	assert.Equal(t, "No expiry", Offer{}.ValidityLabel())
	assert.Contains(t, Offer{ValidUntil: time.Date(2026, 7, 4, 12, 0, 0, 0, time.Local)}.ValidityLabel(), "Jul 4, 2026")
	assert.Equal(t, "42", Offer{ID: 42}.Key())
}

func TestActivationRecord_Remaining(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r := ActivationRecord{ExpiresAt: now.Add(90*time.Second + 700*time.Millisecond)}

	assert.Equal(t, 90, r.RemainingSeconds(now))
	assert.False(t, r.ExpiredAt(now))
	assert.True(t, r.ExpiredAt(r.ExpiresAt))
	assert.Equal(t, 0, r.RemainingSeconds(now.Add(time.Hour)))
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "02:00", FormatCountdown(120))
	assert.Equal(t, "00:59", FormatCountdown(59))
	assert.Equal(t, "00:00", FormatCountdown(0))
	assert.Equal(t, "00:00", FormatCountdown(-3))
	assert.Equal(t, "61:01", FormatCountdown(3661))
}
