package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType is the closed set of analytics event kinds
type EventType string

const (
	EventTypeAppOpen     EventType = "app_open"
	EventTypeQRScan      EventType = "qr_scan"
	EventTypeStoreVisit  EventType = "store_visit"
	EventTypeOfferUnlock EventType = "offer_unlock"
	EventTypeOfferRedeem EventType = "offer_redeem"
)

// EventTypes lists every valid event type
var EventTypes = []EventType{
	EventTypeAppOpen,
	EventTypeQRScan,
	EventTypeStoreVisit,
	EventTypeOfferUnlock,
	EventTypeOfferRedeem,
}

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AnalyticsEvent is an append-only analytics record
type AnalyticsEvent struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	EventType EventType              `bson:"eventType" json:"eventType"`
	UserID    *primitive.ObjectID    `bson:"userId,omitempty" json:"userId,omitempty"`
	MetaData  map[string]interface{} `bson:"metaData,omitempty" json:"metaData,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// NewAnalyticsEvent creates an event stamped with the current time
func NewAnalyticsEvent(eventType EventType, userID *primitive.ObjectID, metaData map[string]interface{}) *AnalyticsEvent {
	now := time.Now()
	return &AnalyticsEvent{
		EventType: eventType,
		UserID:    userID,
		MetaData:  metaData,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DashboardStats is the admin dashboard summary
type DashboardStats struct {
	TotalUsers       int64               `json:"totalUsers"`
	FootfallToday    int64               `json:"footfallToday"`
	TotalRedemptions int64               `json:"totalRedemptions"`
	EventsByType     map[EventType]int64 `json:"eventsByType"`
}

// QRScanRequest is the body of POST /qr/scan
type QRScanRequest struct {
	Source string `json:"source"` // e.g. "Entrance_Standee"
}
