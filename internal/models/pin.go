// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package models

import (
	"strconv"

	"github.com/goccy/go-json"
)

// Pin is a submitted location-tagged event.
//
// Fields hold the submitted JSON value as is. Pins are not validated, so a
// coordinate sent as "10" reaches viewers and the feature layer as "10". A
// nil field was absent from the submission.
type Pin struct {
	Latitude  json.RawMessage `json:"latitude,omitempty"`
	Longitude json.RawMessage `json:"longitude,omitempty"`
	Username  json.RawMessage `json:"username,omitempty"`
	ImageURL  json.RawMessage `json:"imageUrl,omitempty"`
}

// PinPayload is the realtime channel shape of a pin.
type PinPayload struct {
	Lat      json.RawMessage `json:"lat,omitempty"`
	Lng      json.RawMessage `json:"lng,omitempty"`
	Username json.RawMessage `json:"username,omitempty"`
	ImageURL json.RawMessage `json:"imageUrl,omitempty"`
}

// PinRequest is the body accepted by POST /api/pins.
type PinRequest struct {
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
	Username  json.RawMessage `json:"username"`
	ImageURL  json.RawMessage `json:"imageUrl"`
}

// Pin normalizes a realtime payload.
func (p PinPayload) Pin() Pin {
	return Pin{Latitude: p.Lat, Longitude: p.Lng, Username: p.Username, ImageURL: p.ImageURL}
}

// Pin normalizes a request body.
func (r PinRequest) Pin() Pin {
	return Pin{Latitude: r.Latitude, Longitude: r.Longitude, Username: r.Username, ImageURL: r.ImageURL}
}

// Payload returns the realtime channel shape of p.
func (p Pin) Payload() PinPayload {
	return PinPayload{Lat: p.Latitude, Lng: p.Longitude, Username: p.Username, ImageURL: p.ImageURL}
}

// Float64 encodes v as a pin field.
func Float64(v float64) json.RawMessage {
	return json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
}

// String encodes v as a pin field.
func String(v string) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
