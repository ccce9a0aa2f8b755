package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultMaxRedemptions is the redemption ceiling applied when an offer is created without one
	DefaultMaxRedemptions = 1000
	// DefaultTriggerRadius is the trigger radius in meters applied when none is given
	DefaultTriggerRadius = 20
)

// OfferStore is the subset of a store populated onto offers when they are read
type OfferStore struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Floor string             `json:"floor"`
}

// Offer represents a promotional offer bound to one store
type Offer struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title           string             `bson:"title" json:"title"` // e.g. "₹1 Bikaner Samosa"
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	StoreID         primitive.ObjectID `bson:"store" json:"storeId"`
	Store           *OfferStore        `bson:"-" json:"store,omitempty"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	DiscountAmount  float64            `bson:"discountAmount,omitempty" json:"discountAmount,omitempty"`
	MaxRedemptions  int                `bson:"maxRedemptions" json:"maxRedemptions"`
	RedemptionCount int                `bson:"redemptionCount" json:"redemptionCount"`
	TriggerRadius   float64            `bson:"triggerRadius" json:"triggerRadius"` // meters, informational
	RequiredFloor   string             `bson:"requiredFloor,omitempty" json:"requiredFloor,omitempty"`
	UnlockCode      string             `bson:"unlockCode,omitempty" json:"unlockCode,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FloorAllows reports whether a user on the given floor passes the offer's floor gate.
// Offers without a required floor accept any floor, including none.
func (o *Offer) FloorAllows(floor string) bool {
	if o.RequiredFloor == "" {
		return true
	}
	return o.RequiredFloor == floor
}

// Exhausted reports whether the redemption ceiling has been reached
func (o *Offer) Exhausted() bool {
	return o.MaxRedemptions > 0 && o.RedemptionCount >= o.MaxRedemptions
}

// ApplyDefaults fills the fields the catalogue defaults on creation
func (o *Offer) ApplyDefaults() {
	if o.MaxRedemptions == 0 {
		o.MaxRedemptions = DefaultMaxRedemptions
	}
	if o.TriggerRadius == 0 {
		o.TriggerRadius = DefaultTriggerRadius
	}
}

// CreateOfferRequest is the admin payload for a new offer.
// IsActive is a pointer so an omitted flag defaults to active.
type CreateOfferRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	StoreID        string  `json:"storeId" binding:"required"`
	IsActive       *bool   `json:"isActive"`
	DiscountAmount float64 `json:"discountAmount"`
	MaxRedemptions int     `json:"maxRedemptions" binding:"gte=0"`
	TriggerRadius  float64 `json:"triggerRadius" binding:"gte=0"`
	RequiredFloor  string  `json:"requiredFloor"`
	UnlockCode     string  `json:"unlockCode"`
}

// RedeemRequest is the body of POST /offers/redeem
type RedeemRequest struct {
	OfferID string `json:"offerId" binding:"required"`
}

// RedeemResponse is returned on a successful redemption
type RedeemResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	UnlockCode string `json:"unlockCode"`
}
