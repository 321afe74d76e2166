// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package replication

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/arcgis"
	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/models"
)

//nolint:gochecknoinits // quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type fakeAcquirer struct {
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeAcquirer) AcquireToken(context.Context) (arcgis.AccessToken, error) {
	f.calls.Add(1)
	if f.err != nil {
		return arcgis.AccessToken{}, f.err
	}
	return arcgis.AccessToken{Value: f.token}, nil
}

type fakeEditor struct {
	mu    sync.Mutex
	calls []editCall
	fn    func(ctx context.Context) (json.RawMessage, error)
}

type editCall struct {
	token string
	adds  []arcgis.Feature
}

func (f *fakeEditor) ApplyEdits(ctx context.Context, token string, adds []arcgis.Feature) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, editCall{token: token, adds: adds})
	f.mu.Unlock()
	if f.fn == nil {
		return json.RawMessage(`{"addResults":[{"objectId":1,"success":true}]}`), nil
	}
	return f.fn(ctx)
}

func (f *fakeEditor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func samplePin() models.Pin {
	return models.Pin{
		Latitude:  models.Float64(10),
		Longitude: models.Float64(20),
		Username:  models.String("a"),
		ImageURL:  models.String("u"),
	}
}

// openTestJournal opens an in-memory journal closed at test end.
func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}
