// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package replication

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
	"github.com/tomtom215/geoclover/internal/models"
)

const journalPrefix = "replication:failed:"

// ErrEntryNotFound is returned for an unknown journal ID.
var ErrEntryNotFound = errors.New("journal entry not found")

// Journal is a Badger-backed Store.
type Journal struct {
	db *badger.DB
}

// OpenJournal opens or creates the journal at path. An empty path opens an
// in-memory journal.
func OpenJournal(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open replication journal: %w", err)
	}

	j := &Journal{db: db}
	if n, err := j.count(); err == nil {
		metrics.ReplicationJournalEntries.Set(float64(n))
	}

	logging.Info().Str("path", path).Msg("Replication journal opened")
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores entry and returns its ID. A missing ID is generated.
func (j *Journal) Record(_ context.Context, entry models.FailedReplication) (string, error) {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate journal id: %w", err)
		}
		entry.ID = id.String()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode journal entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(journalPrefix+entry.ID), data))
	})
	if err != nil {
		return "", fmt.Errorf("write journal entry: %w", err)
	}

	metrics.ReplicationJournalEntries.Inc()
	return entry.ID, nil
}

// Get returns one entry.
func (j *Journal) Get(_ context.Context, id string) (models.FailedReplication, error) {
	var entry models.FailedReplication
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(journalPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return models.FailedReplication{}, err
	}
	return entry, nil
}

// List returns every entry, oldest first.
func (j *Journal) List(ctx context.Context) ([]models.FailedReplication, error) {
	entries := []models.FailedReplication{}

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(journalPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var entry models.FailedReplication
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("skipping unreadable journal entry")
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].FailedAt.Before(entries[b].FailedAt)
	})
	return entries, nil
}

// Delete removes an entry. Deleting an unknown ID returns ErrEntryNotFound.
func (j *Journal) Delete(_ context.Context, id string) error {
	key := []byte(journalPrefix + id)
	err := j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	metrics.ReplicationJournalEntries.Dec()
	return nil
}

func (j *Journal) count() (int, error) {
	n := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(journalPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
