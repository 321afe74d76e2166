// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestPinRequestNormalizesToPayload(t *testing.T) {
	var req PinRequest
	body := `{"latitude":10,"longitude":20,"username":"a","imageUrl":"u"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(req.Pin().Payload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"lat":10,"lng":20,"username":"a","imageUrl":"u"}`
	if string(out) != want {
		t.Errorf("payload = %s, want %s", out, want)
	}
}

func TestPinPayloadAbsentFieldsStayAbsent(t *testing.T) {
	var p PinPayload
	if err := json.Unmarshal([]byte(`{"username":"a"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pin := p.Pin()
	if pin.Latitude != nil || pin.Longitude != nil || pin.ImageURL != nil {
		t.Errorf("absent fields became present: %+v", pin)
	}

	out, err := json.Marshal(pin.Payload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"username":"a"}` {
		t.Errorf("payload = %s", out)
	}
}

func TestPinZeroCoordinatesAreKept(t *testing.T) {
	pin := Pin{Latitude: Float64(0), Longitude: Float64(0)}
	out, err := json.Marshal(pin.Payload())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"lat":0,"lng":0}` {
		t.Errorf("payload = %s", out)
	}
}

func TestPinPayloadKeepsSubmittedTypes(t *testing.T) {
	var p PinPayload
	if err := json.Unmarshal([]byte(`{"lat":"10","lng":null,"username":42}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pin := p.Pin()
	if string(pin.Latitude) != `"10"` || string(pin.Username) != "42" {
		t.Errorf("pin = %+v", pin)
	}
}

func TestPinHelpers(t *testing.T) {
	if got := string(Float64(-0.12)); got != "-0.12" {
		t.Errorf("Float64 = %s", got)
	}
	if got := string(String(`a"b`)); got != `"a\"b"` {
		t.Errorf("String = %s", got)
	}
}
