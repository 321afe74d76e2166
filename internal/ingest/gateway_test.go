// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/arcgis"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
	"github.com/tomtom215/geoclover/internal/replication"
	"github.com/tomtom215/geoclover/internal/websocket"
)

//nolint:gochecknoinits // quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// recorder captures the order in which pipeline stages run.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeHub struct {
	rec      *recorder
	mu       sync.Mutex
	payloads []interface{}
	err      error
}

func (h *fakeHub) Broadcast(_ context.Context, event string, payload interface{}) (int, error) {
	h.rec.add("broadcast:" + event)
	h.mu.Lock()
	h.payloads = append(h.payloads, payload)
	h.mu.Unlock()
	return 2, h.err
}

type fakeRelay struct {
	rec *recorder
	err error
}

func (r *fakeRelay) Publish(_ context.Context, event string, _ interface{}) error {
	r.rec.add("relay:" + event)
	return r.err
}

type fakeReplicator struct {
	rec  *recorder
	pins []models.Pin
	body json.RawMessage
	err  error
}

func (f *fakeReplicator) Replicate(_ context.Context, entrypoint string, pin models.Pin) (json.RawMessage, error) {
	f.rec.add("replicate:" + entrypoint)
	f.pins = append(f.pins, pin)
	return f.body, f.err
}

type fakeDispatcher struct {
	rec  *recorder
	mu   sync.Mutex
	pins []models.Pin
	ctxs []context.Context
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, entrypoint string, pin models.Pin) {
	f.rec.add("dispatch:" + entrypoint)
	f.mu.Lock()
	f.pins = append(f.pins, pin)
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()
}

type fixture struct {
	rec        *recorder
	hub        *fakeHub
	relay      *fakeRelay
	replicator *fakeReplicator
	dispatcher *fakeDispatcher
	gateway    *Gateway
}

func newFixture(withRelay bool) *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:        rec,
		hub:        &fakeHub{rec: rec},
		relay:      &fakeRelay{rec: rec},
		replicator: &fakeReplicator{rec: rec, body: json.RawMessage(`{"addResults":[{"success":true}]}`)},
		dispatcher: &fakeDispatcher{rec: rec},
	}
	var relay Publisher
	if withRelay {
		relay = f.relay
	}
	f.gateway = NewGateway(f.hub, relay, f.replicator, f.dispatcher)
	return f
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestHandleNewPin_BroadcastsVerbatimThenDispatches(t *testing.T) {
	f := newFixture(false)
	payload := json.RawMessage(`{"lat":10,"lng":20,"username":"a","imageUrl":"u"}`)

	f.gateway.HandleNewPin(context.Background(), nil, payload)

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "dispatch:socket")

	raw, ok := f.hub.payloads[0].(json.RawMessage)
	if !ok || string(raw) != string(payload) {
		t.Errorf("broadcast payload = %v, want the received bytes", f.hub.payloads[0])
	}

	pin := f.dispatcher.pins[0]
	if string(pin.Latitude) != "10" || string(pin.Longitude) != "20" || string(pin.Username) != `"a"` || string(pin.ImageURL) != `"u"` {
		t.Errorf("dispatched pin = %+v", pin)
	}
}

func TestHandleNewPin_ExtraFieldsEchoed(t *testing.T) {
	f := newFixture(false)
	payload := json.RawMessage(`{"lat":1,"lng":2,"color":"green"}`)

	f.gateway.HandleNewPin(context.Background(), nil, payload)

	if string(f.hub.payloads[0].(json.RawMessage)) != string(payload) {
		t.Errorf("payload not echoed verbatim")
	}
}

func TestHandleNewPin_NonObjectStillBroadcast(t *testing.T) {
	f := newFixture(false)

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`"just a string"`))

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin")
}

func TestHandleNewPin_AbsentFieldsPassThrough(t *testing.T) {
	f := newFixture(false)

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{"username":"a"}`))

	pin := f.dispatcher.pins[0]
	if pin.Latitude != nil || pin.Longitude != nil || pin.ImageURL != nil {
		t.Errorf("pin = %+v, want absent fields nil", pin)
	}
}

func TestHandleNewPin_MistypedCoordinatesStillReplicate(t *testing.T) {
	f := newFixture(false)

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{"lat":"10","lng":"20"}`))

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "dispatch:socket")
	pin := f.dispatcher.pins[0]
	if string(pin.Latitude) != `"10"` || string(pin.Longitude) != `"20"` {
		t.Errorf("pin = %+v", pin)
	}
}

func TestHandleNewPin_BroadcastFailureDoesNotStopReplication(t *testing.T) {
	f := newFixture(false)
	f.hub.err = websocket.ErrHubStopped

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{"lat":1,"lng":2}`))

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "dispatch:socket")
}

func TestHandleNewPin_AssignsCorrelationID(t *testing.T) {
	f := newFixture(false)

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{}`))

	if id := logging.CorrelationIDFromContext(f.dispatcher.ctxs[0]); id == "" {
		t.Error("expected a correlation id on the dispatch context")
	}
}

func TestHandleNewPin_PublishesToRelay(t *testing.T) {
	f := newFixture(true)

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{"lat":1,"lng":2}`))

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "relay:add-pin", "dispatch:socket")
}

func TestHandleNewPin_RelayFailureIgnored(t *testing.T) {
	f := newFixture(true)
	f.relay.err = errors.New("nats down")

	f.gateway.HandleNewPin(context.Background(), nil, json.RawMessage(`{"lat":1,"lng":2}`))

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "relay:add-pin", "dispatch:socket")
}

func TestCreatePin_BroadcastsThenAwaitsReplication(t *testing.T) {
	f := newFixture(false)
	req := models.PinRequest{
		Latitude:  models.Float64(10),
		Longitude: models.Float64(20),
		Username:  models.String("a"),
		ImageURL:  models.String("u"),
	}

	body, err := f.gateway.CreatePin(context.Background(), req)
	if err != nil {
		t.Fatalf("CreatePin: %v", err)
	}
	if string(body) != `{"addResults":[{"success":true}]}` {
		t.Errorf("body = %s", body)
	}

	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "replicate:http")

	payload, ok := f.hub.payloads[0].(models.PinPayload)
	if !ok {
		t.Fatalf("broadcast payload type = %T", f.hub.payloads[0])
	}
	if string(payload.Lat) != "10" || string(payload.Lng) != "20" || string(payload.Username) != `"a"` || string(payload.ImageURL) != `"u"` {
		t.Errorf("payload = %+v", payload)
	}
}

func TestCreatePin_ReturnsReplicationFailure(t *testing.T) {
	f := newFixture(false)
	f.replicator.body = nil
	f.replicator.err = &replication.Failure{Kind: replication.KindCredentialAcquisition, Err: errors.New("no token")}

	_, err := f.gateway.CreatePin(context.Background(), models.PinRequest{})
	if replication.KindOf(err) != replication.KindCredentialAcquisition {
		t.Fatalf("err = %v", err)
	}
	// The broadcast still happened.
	assertOrder(t, f.rec.snapshot(), "broadcast:add-pin", "replicate:http")
	if got := FailureMessage(err); got != "ArcGIS token failed: no token" {
		t.Errorf("FailureMessage = %q", got)
	}
}

// A REST caller that disconnects while the layer call is in flight must not
// abort it: the store still gets the pin and the outcome is a success.
func TestCreatePin_CallerCancelDoesNotAbortReplication(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	layerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"addResults":[{"objectId":1,"success":true}]}`))
	}))
	defer layerSrv.Close()

	creds := arcgis.NewClientCredentials(arcgis.CredentialsConfig{
		TokenURL:          tokenSrv.URL,
		ClientID:          "id",
		ClientSecret:      "secret",
		ExpirationMinutes: 60,
	})
	rep := replication.NewReplicator(creds, arcgis.NewFeatureLayer(layerSrv.URL, nil, nil))
	rec := &recorder{}
	gw := NewGateway(&fakeHub{rec: rec}, nil, rep, &fakeDispatcher{rec: rec})

	body, err := gw.CreatePin(ctx, models.PinRequest{
		Latitude:  models.Float64(10),
		Longitude: models.Float64(20),
		Username:  models.String("a"),
		ImageURL:  models.String("u"),
	})
	if err != nil {
		t.Fatalf("CreatePin: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context should have been canceled during the layer call")
	}
	if string(body) != `{"addResults":[{"objectId":1,"success":true}]}` {
		t.Errorf("body = %s", body)
	}
}

func TestFailureMessage(t *testing.T) {
	if FailureMessage(nil) != "" {
		t.Error("nil error should have empty message")
	}
	if got := FailureMessage(errors.New("x")); got != "unexpected failure: x" {
		t.Errorf("got %q", got)
	}
}

// countingHub records how many clients each broadcast reached.
type countingHub struct {
	*websocket.Hub
	mu      sync.Mutex
	reached []int
}

func (h *countingHub) Broadcast(ctx context.Context, event string, payload interface{}) (int, error) {
	n, err := h.Hub.Broadcast(ctx, event, payload)
	h.mu.Lock()
	h.reached = append(h.reached, n)
	h.mu.Unlock()
	return n, err
}

// End to end against the real hub and replicator: two clients, a failing
// feature layer, and the pin still reaches both clients.
func TestHandleNewPin_RealHubWithFailingLayer(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	editorCalled := make(chan struct{}, 1)
	rep := replication.NewReplicator(staticAcquirer{}, layerFunc(func() (json.RawMessage, error) {
		editorCalled <- struct{}{}
		return nil, &arcgis.EditError{StatusCode: 500, Err: errors.New("down")}
	}))
	disp := replication.NewDispatcher(rep, 0)
	counting := &countingHub{Hub: hub}
	gw := NewGateway(counting, nil, rep, disp)

	a := websocket.NewClient(hub, nil, websocket.ClientOptions{Handler: gw})
	b := websocket.NewClient(hub, nil, websocket.ClientOptions{Handler: gw})
	for _, c := range []*websocket.Client{a, b} {
		if err := hub.Register(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	gw.HandleNewPin(ctx, a, json.RawMessage(`{"lat":10,"lng":20,"username":"a","imageUrl":"u"}`))

	counting.mu.Lock()
	reached := append([]int(nil), counting.reached...)
	counting.mu.Unlock()
	if len(reached) != 1 || reached[0] != 2 {
		t.Errorf("broadcast reached %v, want [2]", reached)
	}

	select {
	case <-editorCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("replication never reached the feature layer")
	}
	if err := disp.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

type staticAcquirer struct{}

func (staticAcquirer) AcquireToken(context.Context) (arcgis.AccessToken, error) {
	return arcgis.AccessToken{Value: "tok"}, nil
}

type layerFunc func() (json.RawMessage, error)

func (f layerFunc) ApplyEdits(context.Context, string, []arcgis.Feature) (json.RawMessage, error) {
	return f()
}
