package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is a latitude or longitude that decodes from a JSON number or a
// numeric string. The mobile client sends either.
type Coordinate struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Coordinate{}
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*c = Coordinate{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("coordinate %q is not a number", raw)
	}
	*c = Coordinate{Value: v, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// Coord is shorthand for a set coordinate
func Coord(v float64) Coordinate {
	return Coordinate{Value: v, Set: true}
}

// ProximitySample is one location reading posted by the client.
// It carries no timestamp and is never persisted.
type ProximitySample struct {
	Lat   Coordinate `json:"lat"`
	Lng   Coordinate `json:"lng"`
	Floor string     `json:"floor,omitempty"`
}

// ProximityResult is the outcome of a proximity check
type ProximityResult struct {
	DetectedFloor  string         `json:"detectedFloor"`
	NearbyStores   []string       `json:"nearbyStores"`
	UnlockedOffers []*Offer       `json:"unlockedOffers"`
	Stores         []*NearbyStore `json:"-"`
}

// EmptyProximityResult is the result returned when nothing is in range
func EmptyProximityResult(floor string) *ProximityResult {
	return &ProximityResult{
		DetectedFloor:  floor,
		NearbyStores:   []string{},
		UnlockedOffers: []*Offer{},
	}
}
