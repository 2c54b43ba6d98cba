package recordstore

import (
	"context"
	"encoding/json"

	"github.com/vbonduro/obras/internal/domain"
)

// Collection is a typed view of one named collection. Records are decoded
// into T on the way out and encoded back on the way in.
type Collection[T any] struct {
	store *Store
	name  string
}

func NewCollection[T any](store *Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

// Update is Store.Update with decoding and encoding around fn.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	return c.store.Update(ctx, c.name, func(raw []json.RawMessage) ([]json.RawMessage, error) {
		records, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		next, err := fn(records)
		if err != nil {
			return nil, err
		}
		return c.encode(next)
	})
}

func (c *Collection[T]) decode(raw []json.RawMessage) ([]T, error) {
	records := make([]T, 0, len(raw))
	for _, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, &domain.StorageReadError{Collection: c.name, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Collection[T]) encode(records []T) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, &domain.StorageWriteError{Collection: c.name, Err: err}
		}
		raw = append(raw, b)
	}
	return raw, nil
}
