package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
)

// Redemption records one offer redeemed by a user
type Redemption struct {
	OfferID    primitive.ObjectID `bson:"offerId" json:"offerId"`
	RedeemedAt time.Time          `bson:"redeemedAt" json:"redeemedAt"`
}

// Visit records a store the user was detected near
type Visit struct {
	StoreID   primitive.ObjectID `bson:"storeId" json:"storeId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// User represents an app user
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // bcrypt hash
	Role           string             `bson:"role" json:"role"`
	Points         int                `bson:"points" json:"points"`
	RedeemedOffers []Redemption       `bson:"redeemedOffers" json:"redeemedOffers"`
	VisitHistory   []Visit            `bson:"visitHistory,omitempty" json:"visitHistory,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasRedeemed reports whether the user already holds a redemption for the offer
func (u *User) HasRedeemed(offerID primitive.ObjectID) bool {
	for _, r := range u.RedeemedOffers {
		if r.OfferID == offerID {
			return true
		}
	}
	return false
}
