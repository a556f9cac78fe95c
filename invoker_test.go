package recorder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goforj/recorder"
	"github.com/goforj/recorder/recorderfake"
)

func newUserConnection() *recorderfake.Connection {
	return recorderfake.NewConnection("erp-dev").
		Handle("BAPI_USER_GET_DETAIL", func(_ context.Context, params recorder.Kwargs) (recorder.Kwargs, error) {
			return recorder.Kwargs{"USERNAME": params["USERNAME"], "FULLNAME": "Ada Lovelace"}, nil
		})
}

func TestInvokerRecordsRemoteCalls(t *testing.T) {
	ctx := context.Background()
	conn := newUserConnection()
	rec := recorder.New(conn)
	client := rec.Invoker(conn)

	for i := 0; i < 3; i++ {
		out, err := client.Call(ctx, "BAPI_USER_GET_DETAIL", recorder.Kwargs{"USERNAME": "DEVELOPER"})
		if err != nil || out["FULLNAME"] != "Ada Lovelace" {
			t.Fatalf("unexpected result: %v err=%v", out, err)
		}
	}
	conn.AssertCalls(t, "BAPI_USER_GET_DETAIL", 1)

	if _, err := client.Call(ctx, "BAPI_USER_GET_DETAIL", recorder.Kwargs{"USERNAME": "ADMIN"}); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	conn.AssertCalls(t, "BAPI_USER_GET_DETAIL", 2)
	if rec.ConnectionID() != "erp-dev" {
		t.Fatalf("expected connection id from ID(), got %q", rec.ConnectionID())
	}
}

func TestInvokerDoesNotRecordRemoteErrors(t *testing.T) {
	ctx := context.Background()
	conn := recorderfake.NewConnection("erp-dev")
	rec := recorder.New(conn)
	client := rec.Invoker(conn)

	if _, err := client.Call(ctx, "Z_MISSING", nil); err == nil {
		t.Fatalf("expected unknown function error")
	}
	if _, err := client.Call(ctx, "Z_MISSING", nil); err == nil {
		t.Fatalf("expected unknown function error again")
	}
	conn.AssertCalls(t, "Z_MISSING", 2)
	if rec.Len() != 0 {
		t.Fatalf("expected no records, got %d", rec.Len())
	}
}

func TestInvokerReplaysTapeWithoutConnection(t *testing.T) {
	ctx := context.Background()
	fake := recorderfake.New()
	conn := newUserConnection()

	err := recorder.Session(ctx, conn, func(rec *recorder.Recorder) error {
		_, err := rec.Invoker(conn).Call(ctx, "BAPI_USER_GET_DETAIL", recorder.Kwargs{"USERNAME": "DEVELOPER"})
		return err
	}, recorder.WithStore(fake.Store()))
	if err != nil {
		t.Fatalf("record session failed: %v", err)
	}

	offline := recorderfake.NewConnection("erp-dev")
	err = recorder.Session(ctx, offline, func(rec *recorder.Recorder) error {
		out, err := rec.Invoker(offline).Call(ctx, "BAPI_USER_GET_DETAIL", recorder.Kwargs{"USERNAME": "DEVELOPER"})
		if err != nil {
			return err
		}
		if out["FULLNAME"] != "Ada Lovelace" || out["USERNAME"] != "DEVELOPER" {
			return errors.New("unexpected replayed result")
		}
		return nil
	}, recorder.WithStore(fake.Store()), recorder.WithRecord(false))
	if err != nil {
		t.Fatalf("replay session failed: %v", err)
	}
	offline.AssertCalls(t, "BAPI_USER_GET_DETAIL", 0)
	fake.AssertCalled(t, recorderfake.OpSave, "erp-dev", 1)
	fake.AssertCalled(t, recorderfake.OpLoad, "erp-dev", 2)
}

func TestInvokerFunc(t *testing.T) {
	calls := 0
	inv := recorder.InvokerFunc(func(_ context.Context, function string, _ recorder.Kwargs) (recorder.Kwargs, error) {
		calls++
		return recorder.Kwargs{"fn": function}, nil
	})
	rec := recorder.New("func")
	client := rec.Invoker(inv)
	_, _ = client.Call(context.Background(), "PING", nil)
	out, err := client.Call(context.Background(), "PING", recorder.Kwargs{})
	if err != nil || out["fn"] != "PING" || calls != 1 {
		t.Fatalf("unexpected: out=%v err=%v calls=%d", out, err, calls)
	}
}
