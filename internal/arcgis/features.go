// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package arcgis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// WKID4326 is the WGS84 spatial reference used for every pin geometry.
const WKID4326 = 4326

// maxResponseBytes bounds how much of an applyEdits response is read.
const maxResponseBytes = 4 << 20

// SpatialReference identifies a coordinate system by well-known ID.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// Geometry is a point feature geometry. X is longitude, Y is latitude; both
// are sent as submitted, and an absent coordinate is sent as null.
type Geometry struct {
	X                json.RawMessage  `json:"x"`
	Y                json.RawMessage  `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// Attributes are the feature attributes written for a pin.
type Attributes struct {
	Username  json.RawMessage `json:"username,omitempty"`
	ImageURL  json.RawMessage `json:"imageUrl,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Feature is a single entry of the applyEdits adds array.
type Feature struct {
	Geometry   Geometry   `json:"geometry"`
	Attributes Attributes `json:"attributes"`
}

// FeatureLayer submits edits to a hosted feature layer.
type FeatureLayer struct {
	url        string
	httpClient *http.Client
	breaker    *Breaker
}

// NewFeatureLayer returns a client for layerURL. A nil httpClient gets a
// default client; a nil breaker disables circuit breaking.
func NewFeatureLayer(layerURL string, httpClient *http.Client, breaker *Breaker) *FeatureLayer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &FeatureLayer{url: layerURL, httpClient: httpClient, breaker: breaker}
}

// ApplyEdits posts adds to the layer and returns the response body unchanged.
// Per-feature results inside a successful response are not inspected.
func (l *FeatureLayer) ApplyEdits(ctx context.Context, token string, adds []Feature) (json.RawMessage, error) {
	if l.url == "" {
		return nil, &EditError{Err: ErrNotConfigured}
	}
	if l.breaker == nil {
		return l.applyEdits(ctx, token, adds)
	}
	return l.breaker.Execute(func() (json.RawMessage, error) {
		return l.applyEdits(ctx, token, adds)
	})
}

func (l *FeatureLayer) applyEdits(ctx context.Context, token string, adds []Feature) (json.RawMessage, error) {
	encoded, err := json.Marshal(adds)
	if err != nil {
		return nil, &EditError{Err: fmt.Errorf("encode adds: %w", err)}
	}

	form := url.Values{}
	form.Set("f", "json")
	form.Set("adds", string(encoded))
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &EditError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &EditError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &EditError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EditError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}

	if !json.Valid(body) {
		return nil, &EditError{StatusCode: resp.StatusCode, Body: body, Err: errors.New("malformed JSON response")}
	}

	var envelope struct {
		Error *ServiceError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return nil, &EditError{StatusCode: resp.StatusCode, Body: body, Err: envelope.Error}
	}

	return json.RawMessage(bytes.TrimSpace(body)), nil
}
