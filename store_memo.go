package recorder

import (
	"context"
	"sync"
)

type memoEntry struct {
	body []byte
	ok   bool
}

// NewMemoStore decorates store with per-process read memoization of tapes.
// Useful when many tests open recorders for the same connection.
// @group Memoization
//
// Example: memoize a backing store
//
//	ctx := context.Background()
//	base := recorder.NewFileStore(ctx, "testdata/tapes")
//	store := recorder.NewMemoStore(base)
//	rec := recorder.New(conn, recorder.WithStore(store))
//	_ = rec
func NewMemoStore(store Store) Store {
	return &memoStore{
		store: store,
		items: make(map[string]memoEntry),
	}
}

type memoStore struct {
	store Store
	mu    sync.RWMutex
	items map[string]memoEntry
}

func (s *memoStore) Driver() Driver {
	return s.store.Driver()
}

func (s *memoStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return cloneBytes(entry.body), entry.ok, nil
	}

	body, exists, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	s.items[key] = memoEntry{body: cloneBytes(body), ok: exists}
	s.mu.Unlock()

	return cloneBytes(body), exists, nil
}

func (s *memoStore) Save(ctx context.Context, key string, tape []byte) error {
	if err := s.store.Save(ctx, key, tape); err != nil {
		s.forget(key)
		return err
	}
	s.mu.Lock()
	s.items[key] = memoEntry{body: cloneBytes(tape), ok: true}
	s.mu.Unlock()
	return nil
}

func (s *memoStore) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

func (s *memoStore) Flush(ctx context.Context) error {
	if err := s.store.Flush(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = make(map[string]memoEntry)
	s.mu.Unlock()
	return nil
}

func (s *memoStore) forget(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}
