// Package recordstore persists named collections as JSON arrays in a
// key-value backend. It knows nothing about the shape of the records; the
// repositories in internal/store enforce entity invariants on top of it.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/kvstore"
	"github.com/vbonduro/obras/internal/metrics"
)

// Collection names used as backend keys.
const (
	Sites       = "sites"
	Inspections = "inspections"
)

// ErrNoChange may be returned by an Update func to skip the write.
var ErrNoChange = errors.New("recordstore: no change")

type Store struct {
	kv      kvstore.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(kv kvstore.Store, m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		kv:      kv,
		metrics: m,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Load returns the records of collection, or an empty slice if it has never
// been written. Unreadable or undecodable data yields *domain.StorageReadError.
func (s *Store) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	start := time.Now()
	records, err := s.load(ctx, collection)
	s.metrics.ObserveStore(collection, "load", start, err)
	return records, err
}

func (s *Store) load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	raw, found, err := s.kv.Get(ctx, collection)
	if err != nil {
		return nil, &domain.StorageReadError{Collection: collection, Err: err}
	}
	if !found {
		return []json.RawMessage{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &domain.StorageReadError{Collection: collection, Err: err}
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// Save overwrites collection with records in one backend write.
func (s *Store) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	start := time.Now()
	err := s.save(ctx, collection, records)
	s.metrics.ObserveStore(collection, "save", start, err)
	return err
}

func (s *Store) save(ctx context.Context, collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return &domain.StorageWriteError{Collection: collection, Err: err}
	}
	if err := s.kv.Set(ctx, collection, data); err != nil {
		return &domain.StorageWriteError{Collection: collection, Err: err}
	}
	s.logger.Debug("collection saved", "collection", collection, "records", len(records), "bytes", len(data))
	return nil
}

// Update runs a read-modify-write cycle on collection. Cycles on the same
// collection are serialized, so concurrent updates never lose each other's
// writes. If fn fails nothing is written.
func (s *Store) Update(ctx context.Context, collection string, fn func([]json.RawMessage) ([]json.RawMessage, error)) error {
	unlock, err := s.lock(ctx, collection)
	if err != nil {
		return &domain.StorageWriteError{Collection: collection, Err: err}
	}
	defer unlock()

	records, err := s.Load(ctx, collection)
	if err != nil {
		return err
	}

	next, err := fn(records)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.Save(ctx, collection, next)
}

func (s *Store) lock(ctx context.Context, collection string) (func(), error) {
	s.mu.Lock()
	m, ok := s.locks[collection]
	if !ok {
		m = &sync.Mutex{}
		s.locks[collection] = m
	}
	s.mu.Unlock()

	m.Lock()
	locker, ok := s.kv.(kvstore.Locker)
	if !ok {
		return m.Unlock, nil
	}

	release, err := locker.Lock(ctx, collection)
	if err != nil {
		m.Unlock()
		return nil, err
	}
	return func() {
		release()
		m.Unlock()
	}, nil
}
