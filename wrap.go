package recorder

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrResultType is returned when a recorded result does not fit the result
// type of the wrapper replaying it.
var ErrResultType = errors.New("recorder: recorded result has a different type")

// WrapOption configures a wrapped function.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	name string
}

// WithName sets the function name used in record keys. By default the
// runtime symbol name of the wrapped function is used.
func WithName(name string) WrapOption {
	return func(c *wrapConfig) {
		c.name = name
	}
}

func resolveName(fn any, opts []WrapOption) string {
	cfg := wrapConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name != "" {
		return cfg.name
	}
	return FuncName(fn)
}

// FuncName returns the runtime symbol name of fn, e.g. "pkg.(*Client).Fetch".
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	// Method values carry a "-fm" suffix.
	return strings.TrimSuffix(f.Name(), "-fm")
}

// Call runs fn through the recorder under the key (function, args, kwargs).
// A recorded result is returned without calling fn. Otherwise fn runs and,
// when recording, its result is stored; errors from fn are returned as-is
// and never recorded. Concurrent first calls of the same key share one run.
// @group Wrapping
//
// Example: record an arbitrary call
//
//	ctx := context.Background()
//	rec := recorder.New("erp")
//	user, err := recorder.Call(ctx, rec, "GetUser", []any{42}, nil, func(ctx context.Context) (User, error) {
//		return client.GetUser(ctx, 42)
//	})
func Call[R any](ctx context.Context, r *Recorder, function string, args []any, kwargs Kwargs, fn func(context.Context) (R, error)) (R, error) {
	key, err := NewRecordKey(function, args, kwargs)
	if err != nil {
		var zero R
		return zero, err
	}
	return invoke(ctx, r, key, func() (R, error) { return fn(ctx) })
}

func invoke[R any](ctx context.Context, r *Recorder, key RecordKey, fn func() (R, error)) (R, error) {
	start := time.Now()
	if v, ok, err := lookup[R](r, key); ok {
		r.observe(ctx, OpCall, key.Function, true, err, start)
		return v, err
	}
	if !r.record {
		v, err := fn()
		r.observe(ctx, OpCall, key.Function, false, err, start)
		return v, err
	}

	res, err, _ := r.group.Do(key.String(), func() (any, error) {
		// Another caller may have recorded the key while this one waited.
		if v, ok, err := lookup[R](r, key); ok {
			return v, err
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		if r.put(key, v) {
			r.observe(ctx, OpRecord, key.Function, false, nil, start)
		}
		return v, nil
	})
	v, ok := res.(R)
	if !ok && res != nil && err == nil {
		err = fmt.Errorf("%w: %s recorded %T, want %T", ErrResultType, key.Function, res, v)
	}
	r.observe(ctx, OpCall, key.Function, false, err, start)
	return v, err
}

func lookup[R any](r *Recorder, key RecordKey) (R, bool, error) {
	var zero R
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return zero, false, nil
	}
	if !rec.hasValue {
		var v R
		if err := msgpack.Unmarshal(rec.raw, &v); err != nil {
			return zero, true, fmt.Errorf("%w: decode result of %s: %v", ErrCorruptTape, key.Function, err)
		}
		rec.value, rec.hasValue = v, true
		return v, true, nil
	}
	if rec.value == nil {
		return zero, true, nil
	}
	v, ok := rec.value.(R)
	if !ok {
		return zero, true, fmt.Errorf("%w: %s recorded %T, want %T", ErrResultType, key.Function, rec.value, zero)
	}
	return v, true, nil
}

// Wrap0 returns a recording version of a function without arguments.
// @group Wrapping
func Wrap0[R any](r *Recorder, fn func() (R, error), opts ...WrapOption) func() (R, error) {
	name := resolveName(fn, opts)
	return func() (R, error) {
		return Call(context.Background(), r, name, nil, nil, func(context.Context) (R, error) {
			return fn()
		})
	}
}

// Wrap returns a recording version of fn with the same signature.
// @group Wrapping
//
// Example: memoize a single-argument function
//
//	rec := recorder.New("calc")
//	double := recorder.Wrap(rec, func(x int) (int, error) { return x * 2, nil }, recorder.WithName("double"))
//	v, _ := double(3)
//	v, _ = double(3) // served from records
//	fmt.Println(v) // 6
func Wrap[A, R any](r *Recorder, fn func(A) (R, error), opts ...WrapOption) func(A) (R, error) {
	name := resolveName(fn, opts)
	return func(a A) (R, error) {
		return Call(context.Background(), r, name, []any{a}, nil, func(context.Context) (R, error) {
			return fn(a)
		})
	}
}

// Wrap2 returns a recording version of a two-argument function.
// @group Wrapping
func Wrap2[A, B, R any](r *Recorder, fn func(A, B) (R, error), opts ...WrapOption) func(A, B) (R, error) {
	name := resolveName(fn, opts)
	return func(a A, b B) (R, error) {
		return Call(context.Background(), r, name, []any{a, b}, nil, func(context.Context) (R, error) {
			return fn(a, b)
		})
	}
}

// Wrap3 returns a recording version of a three-argument function.
// @group Wrapping
func Wrap3[A, B, C, R any](r *Recorder, fn func(A, B, C) (R, error), opts ...WrapOption) func(A, B, C) (R, error) {
	name := resolveName(fn, opts)
	return func(a A, b B, c C) (R, error) {
		return Call(context.Background(), r, name, []any{a, b, c}, nil, func(context.Context) (R, error) {
			return fn(a, b, c)
		})
	}
}

// WrapCtx returns a recording version of a context-aware function.
// The context is passed through and is not part of the record key.
// @group Wrapping
func WrapCtx[A, R any](r *Recorder, fn func(context.Context, A) (R, error), opts ...WrapOption) func(context.Context, A) (R, error) {
	name := resolveName(fn, opts)
	return func(ctx context.Context, a A) (R, error) {
		return Call(ctx, r, name, []any{a}, nil, func(ctx context.Context) (R, error) {
			return fn(ctx, a)
		})
	}
}

// WrapArgs returns a recording version of a function taking positional and
// named arguments of any arity.
// @group Wrapping
//
// Example: variadic call with keyword arguments
//
//	search := recorder.WrapArgs(rec, func(ctx context.Context, args []any, kw recorder.Kwargs) ([]string, error) {
//		return client.Search(ctx, args[0].(string), kw)
//	}, recorder.WithName("Search"))
//	hits, err := search(ctx, []any{"gopher"}, recorder.Kwargs{"limit": 10})
func WrapArgs[R any](r *Recorder, fn func(context.Context, []any, Kwargs) (R, error), opts ...WrapOption) func(context.Context, []any, Kwargs) (R, error) {
	name := resolveName(fn, opts)
	return func(ctx context.Context, args []any, kwargs Kwargs) (R, error) {
		return Call(ctx, r, name, args, kwargs, func(ctx context.Context) (R, error) {
			return fn(ctx, args, kwargs)
		})
	}
}
