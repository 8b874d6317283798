package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"realestate/internal/domain"
	"realestate/internal/storage/memory"
)

// ---- fakes ----

// flakyStore wraps the memory store and injects failures and pre-existing ids.
type flakyStore struct {
	*memory.Store
	maxSeqErr error
	existsErr error
	taken     map[string]bool // ids reported as present without being stored
	dupInsert int             // number of inserts to reject as duplicate

	mu      sync.Mutex
	inserts int
}

func newFlaky() *flakyStore { return &flakyStore{Store: memory.New(), taken: map[string]bool{}} }

func (f *flakyStore) MaxSeq(ctx context.Context, k domain.Kind) (int64, error) {
	if f.maxSeqErr != nil {
		return 0, f.maxSeqErr
	}
	return f.Store.MaxSeq(ctx, k)
}

func (f *flakyStore) Exists(ctx context.Context, k domain.Kind, id string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.taken[id] {
		return true, nil
	}
	return f.Store.Exists(ctx, k, id)
}

func (f *flakyStore) Insert(ctx context.Context, k domain.Kind, l *domain.Listing) error {
	f.mu.Lock()
	f.inserts++
	reject := f.inserts <= f.dupInsert
	f.mu.Unlock()
	if reject {
		return domain.ErrDuplicatePropertyID
	}
	return f.Store.Insert(ctx, k, l)
}

var errDown = errors.New("store down")

// jsonCache round-trips values through JSON like the redis adapter does.
type jsonCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	hits  int
	dels  []string
}

func newJSONCache() *jsonCache { return &jsonCache{store: map[string][]byte{}} }

func (c *jsonCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *jsonCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = b
	return nil
}

func (c *jsonCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
	}
	c.dels = append(c.dels, keys...)
	return nil
}

func mustKind(path string) domain.Kind {
	k, ok := domain.LookupKind(path)
	if !ok {
		panic("unknown kind " + path)
	}
	return k
}
