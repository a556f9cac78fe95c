package recorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// Recorder memoizes calls made against a connection and persists them as a
// tape so later runs replay results without touching the live connection.
// Wrapped calls are assumed idempotent: a key is recorded once and its first
// successful result is returned for the life of the recorder.
//
// A Recorder is safe for concurrent use.
type Recorder struct {
	conn     any
	connID   string
	record   bool
	store    Store
	observer Observer

	mu      sync.Mutex
	records map[RecordKey]*record
	gen     uint64
	saved   uint64
	group   singleflight.Group
}

// record holds a call result live, encoded, or both. Entries loaded from a
// tape start encoded and are decoded into the caller's result type on first hit.
type record struct {
	value    any
	hasValue bool
	raw      msgpack.RawMessage
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithRecord toggles writing new results into the records (default true).
// Existing records, including those loaded from a tape, are honored either way.
func WithRecord(enabled bool) Option {
	return func(r *Recorder) {
		r.record = enabled
	}
}

// WithStore sets where tapes are loaded from and saved to.
// Without a store the recorder is purely in-memory.
func WithStore(store Store) Option {
	return func(r *Recorder) {
		r.store = store
	}
}

// WithObserver attaches an observer to receive operation events.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithConnectionID overrides the identity derived by ConnectionID.
func WithConnectionID(id string) Option {
	return func(r *Recorder) {
		r.connID = id
	}
}

// New creates a recorder bound to conn. The connection is never invoked by
// the recorder; it only provides the identity under which the tape is stored.
// @group Recorder
//
// Example: in-memory memoization
//
//	rec := recorder.New(client)
//	double := recorder.Wrap(rec, func(x int) (int, error) { return x * 2, nil })
//	v, _ := double(3)
//	fmt.Println(v, rec.Len()) // 6 1
func New(conn any, opts ...Option) *Recorder {
	r := &Recorder{
		conn:    conn,
		record:  true,
		records: make(map[RecordKey]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.connID == "" {
		r.connID = ConnectionID(conn)
	}
	return r
}

// Open creates a recorder and loads the connection's tape.
// A load failure is fatal: no recorder is returned.
// @group Recorder
//
// Example: replay from disk
//
//	ctx := context.Background()
//	rec, err := recorder.Open(ctx, client, recorder.WithStore(recorder.NewFileStore(ctx, "testdata/tapes")))
//	if err != nil {
//		return err
//	}
//	defer rec.Close(ctx)
func Open(ctx context.Context, conn any, opts ...Option) (*Recorder, error) {
	r := New(conn, opts...)
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Session opens a recorder, runs fn and closes the recorder on every exit
// path, including a panic in fn. An error from fn is returned as-is; a save
// failure on close is joined after it.
// @group Recorder
//
// Example: scoped recording
//
//	err := recorder.Session(ctx, client, func(rec *recorder.Recorder) error {
//		call := rec.Invoker(client)
//		_, err := call.Call(ctx, "STFC_CONNECTION", recorder.Kwargs{"REQUTEXT": "ping"})
//		return err
//	}, recorder.WithStore(store))
func Session(ctx context.Context, conn any, fn func(*Recorder) error, opts ...Option) (err error) {
	r, err := Open(ctx, conn, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(r)
}

// Connection returns the connection handle the recorder is bound to.
func (r *Recorder) Connection() any {
	return r.conn
}

// ConnectionID returns the identity the tape is stored under.
func (r *Recorder) ConnectionID() string {
	return r.connID
}

// Recording reports whether new results are written into the records.
func (r *Recorder) Recording() bool {
	return r.record
}

// Store returns the tape store, or nil for an in-memory recorder.
func (r *Recorder) Store() Store {
	return r.store
}

// Driver reports the backend of the tape store; DriverNull when there is none.
func (r *Recorder) Driver() Driver {
	if r.store == nil {
		return DriverNull
	}
	return r.store.Driver()
}

// Len returns the number of records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Keys returns the record keys in a stable order.
func (r *Recorder) Keys() []RecordKey {
	r.mu.Lock()
	keys := make([]RecordKey, 0, len(r.records))
	for key := range r.records {
		keys = append(keys, key)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Has reports whether key is recorded.
func (r *Recorder) Has(key RecordKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[key]
	return ok
}

// Reset drops every in-memory record. The persisted tape is left untouched.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = make(map[RecordKey]*record)
	r.saved = r.gen
	r.mu.Unlock()
}

// Load reads the connection's tape and adds records not already present.
// A missing tape is not an error.
func (r *Recorder) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	start := time.Now()
	body, ok, err := r.store.Load(ctx, r.connID)
	if err == nil && ok {
		err = r.merge(body)
	}
	r.observe(ctx, OpLoad, "", ok, err, start)
	if err != nil {
		return fmt.Errorf("load tape %q: %w", r.connID, err)
	}
	return nil
}

func (r *Recorder) merge(body []byte) error {
	t, err := unmarshalTape(body)
	if err != nil {
		return err
	}
	if t.Connection != r.connID {
		return fmt.Errorf("%w: recorded for connection %q", ErrCorruptTape, t.Connection)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range t.Records {
		key := rec.key()
		if _, exists := r.records[key]; exists {
			continue
		}
		r.records[key] = &record{raw: rec.Result}
	}
	return nil
}

// Save writes all records to the tape. It is a no-op when nothing was
// recorded since the last load or save, so a scope without new calls leaves
// the persisted tape untouched.
func (r *Recorder) Save(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	start := time.Now()
	t, gen, changed, err := r.snapshot()
	if err != nil || !changed {
		if err != nil {
			r.observe(ctx, OpSave, "", false, err, start)
			return fmt.Errorf("save tape %q: %w", r.connID, err)
		}
		return nil
	}
	body, err := marshalTape(t)
	if err == nil {
		err = r.store.Save(ctx, r.connID, body)
	}
	r.observe(ctx, OpSave, "", false, err, start)
	if err != nil {
		return fmt.Errorf("save tape %q: %w", r.connID, err)
	}
	r.mu.Lock()
	if gen > r.saved {
		r.saved = gen
	}
	r.mu.Unlock()
	return nil
}

// Close ends the recorder scope by saving new records. It may be called
// more than once.
func (r *Recorder) Close(ctx context.Context) error {
	return r.Save(ctx)
}

func (r *Recorder) snapshot() (tape, uint64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == r.saved {
		return tape{}, r.gen, false, nil
	}
	records := make([]tapeRecord, 0, len(r.records))
	for key, rec := range r.records {
		if rec.raw == nil {
			raw, err := msgpack.Marshal(rec.value)
			if err != nil {
				return tape{}, 0, false, fmt.Errorf("encode result of %s: %w", key.Function, err)
			}
			rec.raw = raw
		}
		records = append(records, tapeRecord{
			Function: key.Function,
			Args:     []byte(key.Args),
			Kwargs:   []byte(key.Kwargs),
			Result:   rec.raw,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].key().String() < records[j].key().String()
	})
	return tape{
		Connection: r.connID,
		Session:    uuid.NewString(),
		RecordedAt: time.Now().UTC(),
		Records:    records,
	}, r.gen, true, nil
}

// put stores a result unless the key is already recorded.
func (r *Recorder) put(key RecordKey, value any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[key]; exists {
		return false
	}
	r.records[key] = &record{value: value, hasValue: true}
	r.gen++
	return true
}

func (r *Recorder) observe(ctx context.Context, op Op, function string, hit bool, err error, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.OnRecordOp(ctx, op, r.connID, function, hit, err, time.Since(start))
}
