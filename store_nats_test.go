package recorder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNATSStoreNilKeyValueErrors(t *testing.T) {
	store := newNATSStore(nil, "")
	ctx := context.Background()

	if _, _, err := store.Load(ctx, "k"); !errors.Is(err, errNATSUnavailable) {
		t.Fatalf("expected load error when nats key-value is nil, got %v", err)
	}
	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, errNATSUnavailable) {
		t.Fatalf("expected save error when nats key-value is nil, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, errNATSUnavailable) {
		t.Fatalf("expected delete error when nats key-value is nil, got %v", err)
	}
	if err := store.Flush(ctx); !errors.Is(err, errNATSUnavailable) {
		t.Fatalf("expected flush error when nats key-value is nil, got %v", err)
	}
}

func TestNATSStoreEncodesKeysIntoSubjectAlphabet(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("tapes")
	store := newNATSStore(kv, "team a")

	if err := store.Save(ctx, "sap://dev host/100", []byte("tape")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	for key := range kv.entries {
		if strings.ContainsAny(key, " /:*>") {
			t.Fatalf("key %q contains characters outside the nats key alphabet", key)
		}
	}
	body, ok, err := store.Load(ctx, "sap://dev host/100")
	if err != nil || !ok || string(body) != "tape" {
		t.Fatalf("unexpected load: ok=%v err=%v body=%q", ok, err, body)
	}
}

func TestNATSStoreFlushOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("tapes")
	mine := newNATSStore(kv, "mine")
	theirs := newNATSStore(kv, "theirs")

	if err := mine.Save(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := theirs.Save(ctx, "a", []byte("2")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := mine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, ok, _ := mine.Load(ctx, "a"); ok {
		t.Fatalf("expected own tape flushed")
	}
	if body, ok, err := theirs.Load(ctx, "a"); err != nil || !ok || string(body) != "2" {
		t.Fatalf("expected other prefix untouched: ok=%v err=%v", ok, err)
	}
}

func TestNATSStoreFlushEmptyBucket(t *testing.T) {
	kv := newStubNATSKeyValue("tapes")
	kv.listErr = nats.ErrNoKeysFound
	if err := newNATSStore(kv, "").Flush(context.Background()); err != nil {
		t.Fatalf("expected empty bucket flush to succeed, got %v", err)
	}
}

func TestNATSStoreErrorPropagation(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("tapes")
	boom := errors.New("jetstream unavailable")
	kv.getErr, kv.putErr, kv.deleteErr, kv.listErr = boom, boom, boom, boom
	store := newNATSStore(kv, "")

	if _, _, err := store.Load(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if err := store.Flush(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected flush error, got %v", err)
	}
}

type stubNATSKeyValue struct {
	mu     sync.Mutex
	bucket string
	rev    uint64

	entries map[string]*stubNATSKeyValueEntry

	getErr    error
	putErr    error
	deleteErr error
	purgeErr  error
	listErr   error
}

func newStubNATSKeyValue(bucket string) *stubNATSKeyValue {
	return &stubNATSKeyValue{
		bucket:  bucket,
		entries: make(map[string]*stubNATSKeyValueEntry),
	}
}

func (s *stubNATSKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	if entry.op == nats.KeyValueDelete || entry.op == nats.KeyValuePurge {
		return nil, nats.ErrKeyDeleted
	}
	return entry.clone(), nil
}

func (s *stubNATSKeyValue) Put(key string, value []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return 0, s.putErr
	}
	s.rev++
	s.entries[key] = &stubNATSKeyValueEntry{
		bucket:   s.bucket,
		key:      key,
		value:    cloneBytes(value),
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValuePut,
	}
	return s.rev, nil
}

// Delete leaves a tombstone like JetStream does.
func (s *stubNATSKeyValue) Delete(key string, _ ...nats.DeleteOpt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.rev++
	s.entries[key] = &stubNATSKeyValueEntry{
		bucket:   s.bucket,
		key:      key,
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValueDelete,
	}
	return nil
}

func (s *stubNATSKeyValue) Purge(key string, _ ...nats.DeleteOpt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.purgeErr != nil {
		return s.purgeErr
	}
	delete(s.entries, key)
	return nil
}

func (s *stubNATSKeyValue) ListKeys(_ ...nats.WatchOpt) (nats.KeyLister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.op == nats.KeyValuePut {
			keys = append(keys, key)
		}
	}
	return newStubNATSKeyLister(keys), nil
}

type stubNATSKeyValueEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
	delta    uint64
	op       nats.KeyValueOp
}

func (e *stubNATSKeyValueEntry) clone() *stubNATSKeyValueEntry {
	cp := *e
	cp.value = cloneBytes(e.value)
	return &cp
}

func (e *stubNATSKeyValueEntry) Bucket() string             { return e.bucket }
func (e *stubNATSKeyValueEntry) Key() string                { return e.key }
func (e *stubNATSKeyValueEntry) Value() []byte              { return cloneBytes(e.value) }
func (e *stubNATSKeyValueEntry) Revision() uint64           { return e.revision }
func (e *stubNATSKeyValueEntry) Created() time.Time         { return e.created }
func (e *stubNATSKeyValueEntry) Delta() uint64              { return e.delta }
func (e *stubNATSKeyValueEntry) Operation() nats.KeyValueOp { return e.op }

type stubNATSKeyLister struct {
	keysCh chan string
	errCh  chan error
}

func newStubNATSKeyLister(keys []string) *stubNATSKeyLister {
	keysCh := make(chan string, len(keys))
	errCh := make(chan error)
	for _, key := range keys {
		keysCh <- key
	}
	close(keysCh)
	close(errCh)
	return &stubNATSKeyLister{keysCh: keysCh, errCh: errCh}
}

func (l *stubNATSKeyLister) Keys() <-chan string { return l.keysCh }
func (l *stubNATSKeyLister) Error() <-chan error { return l.errCh }
func (l *stubNATSKeyLister) Stop() error         { return nil }
