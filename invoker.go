package recorder

import "context"

// Invoker is the calling surface of a remote-procedure-call connection:
// a named function invoked with named parameters returning named results.
type Invoker interface {
	Call(ctx context.Context, function string, params Kwargs) (Kwargs, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, function string, params Kwargs) (Kwargs, error)

// Call implements Invoker.
func (f InvokerFunc) Call(ctx context.Context, function string, params Kwargs) (Kwargs, error) {
	return f(ctx, function, params)
}

// Invoker wraps inv so every call is recorded under (function, params).
// Replayed results are decoded from the tape, so integer widths and nested
// map types follow msgpack decoding rather than the live connection's types.
// @group Wrapping
//
// Example: record a whole connection
//
//	rec, _ := recorder.Open(ctx, conn, recorder.WithStore(store))
//	defer rec.Close(ctx)
//	client := rec.Invoker(conn)
//	out, err := client.Call(ctx, "BAPI_USER_GET_DETAIL", recorder.Kwargs{"USERNAME": "DEVELOPER"})
func (r *Recorder) Invoker(inv Invoker) Invoker {
	return &recordingInvoker{recorder: r, inner: inv}
}

type recordingInvoker struct {
	recorder *Recorder
	inner    Invoker
}

func (i *recordingInvoker) Call(ctx context.Context, function string, params Kwargs) (Kwargs, error) {
	return Call(ctx, i.recorder, function, nil, params, func(ctx context.Context) (Kwargs, error) {
		return i.inner.Call(ctx, function, params)
	})
}
