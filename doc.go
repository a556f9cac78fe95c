// Package recorder records calls made against an external connection and
// replays them in later runs.
//
// A Recorder memoizes wrapped calls by (function name, positional arguments,
// keyword arguments). The first call with a given key runs for real; every
// later call with the same key returns the recorded result without running.
// Calls are assumed idempotent: there is no eviction, expiry or invalidation.
//
// Records are persisted as a tape addressed by the connection's identity.
// Open (or Load) reads the tape on scope entry and Close (or Save) writes it
// on exit; Session wraps both around a function so the tape is saved on every
// exit path:
//
//	ctx := context.Background()
//	store := recorder.NewFileStore(ctx, "testdata/tapes")
//	err := recorder.Session(ctx, conn, func(rec *recorder.Recorder) error {
//		client := rec.Invoker(conn)
//		_, err := client.Call(ctx, "RFC_PING", nil)
//		return err
//	}, recorder.WithStore(store))
//
// Tapes can live on the filesystem, in memory, redis, memcached, a SQL
// database (sqlite, postgres, mysql), a NATS key-value bucket or DynamoDB,
// optionally compressed and encrypted.
package recorder
