// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
)

//nolint:gochecknoinits // quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

const testOrigin = "http://app.test"

type fakePins struct {
	mu   sync.Mutex
	got  []models.PinRequest
	body json.RawMessage
	err  error
}

func (f *fakePins) CreatePin(_ context.Context, req models.PinRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.body, f.err
}

type fakeAccounts struct {
	token string
	err   error
	got   models.Credentials
}

func (f *fakeAccounts) Signup(_ context.Context, creds models.Credentials) (string, error) {
	f.got = creds
	return f.token, f.err
}

func (f *fakeAccounts) Login(_ context.Context, creds models.Credentials) (string, error) {
	f.got = creds
	return f.token, f.err
}

type fakeJournal struct {
	enabled     bool
	entries     []models.FailedReplication
	listErr     error
	body        json.RawMessage
	resubmitErr error
	discardErr  error
	resubmitted []string
	discarded   []string
}

func (f *fakeJournal) JournalEnabled() bool { return f.enabled }

func (f *fakeJournal) Failures(context.Context) ([]models.FailedReplication, error) {
	return f.entries, f.listErr
}

func (f *fakeJournal) Resubmit(_ context.Context, id string) (json.RawMessage, error) {
	f.resubmitted = append(f.resubmitted, id)
	return f.body, f.resubmitErr
}

func (f *fakeJournal) Discard(_ context.Context, id string) error {
	f.discarded = append(f.discarded, id)
	return f.discardErr
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeRelay struct{ connected bool }

func (f fakeRelay) Connected() bool { return f.connected }

type fakeBreaker struct{ state string }

func (f fakeBreaker) State() string { return f.state }

// newTestRouter builds the full route tree with rate limiting off.
func newTestRouter(cfg HandlerConfig) http.Handler {
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{testOrigin}
	}
	mw := DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.AllowedOrigins
	mw.RateLimitDisabled = true
	return NewRouter(NewHandler(cfg), mw).SetupChi()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var raw struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode envelope data: %v", err)
		}
	}
	return models.APIResponse{Status: raw.Status, Metadata: raw.Metadata, Error: raw.Error}
}
