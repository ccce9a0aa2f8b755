package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoJSONPointType is the only GeoJSON geometry stores carry.
const GeoJSONPointType = "Point"

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude] (WGS84).
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from latitude and longitude
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: GeoJSONPointType, Coordinates: []float64{lng, lat}}
}

// Lat returns the latitude, or 0 for a malformed point
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Lng returns the longitude, or 0 for a malformed point
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Validate checks the point is a [lng, lat] pair inside WGS84 bounds
func (p GeoPoint) Validate() error {
	if p.Type != GeoJSONPointType {
		return errors.New("location type must be Point")
	}
	if len(p.Coordinates) != 2 {
		return errors.New("location coordinates must be [longitude, latitude]")
	}
	if p.Lng() < -180 || p.Lng() > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	if p.Lat() < -90 || p.Lat() > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

// IndoorPosition is the local map coordinate used for rendering only.
// It has no relation to the geo position.
type IndoorPosition struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// MenuItem is a single entry of a food store's menu
type MenuItem struct {
	Name  string  `bson:"name" json:"name"`
	Price float64 `bson:"price" json:"price"`
	Image string  `bson:"image,omitempty" json:"image,omitempty"`
}

// Store represents a store in the mall directory
type Store struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name" binding:"required"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Category       string             `bson:"category" json:"category" binding:"required"`
	Floor          string             `bson:"floor" json:"floor" binding:"required"` // "Ground", "1st Floor", "Food Court", "P1"
	IconName       string             `bson:"iconName,omitempty" json:"iconName,omitempty"`
	Color          string             `bson:"color,omitempty" json:"color,omitempty"`
	Location       GeoPoint           `bson:"location" json:"location"`
	IndoorPosition IndoorPosition     `bson:"indoorPosition" json:"indoorPosition"`
	Menu           []MenuItem         `bson:"menu,omitempty" json:"menu,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NearbyStore is a store together with its distance from a query point
type NearbyStore struct {
	Store          `bson:",inline"`
	DistanceMeters float64 `bson:"distance" json:"distanceMeters"`
}
