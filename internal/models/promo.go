// internal/models/promo.go
package models

import "time"

// PromoKind describes what a promo code grants on redemption.
type PromoKind string

const (
	PromoTrial      PromoKind = "trial"
	PromoDiscount   PromoKind = "discount"
	PromoMembership PromoKind = "membership"
)

// PromoCode gates trial, discount and membership grants. Code is unique;
// duplicate creation is rejected by the store's uniqueness constraint.
type PromoCode struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	Kind           PromoKind  `json:"kind"`
	PercentOff     int        `json:"percentOff,omitempty"`
	TrialDays      int        `json:"trialDays,omitempty"`
	MaxRedemptions int        `json:"maxRedemptions"`
	RedeemedCount  int        `json:"redeemedCount"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// PromoRedemption records a single use of a promo code by a user.
type PromoRedemption struct {
	ID         string    `json:"id"`
	PromoID    string    `json:"promoId"`
	UserID     string    `json:"userId"`
	RedeemedAt time.Time `json:"redeemedAt"`
}
