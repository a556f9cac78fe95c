// Package recordertest provides reusable contract tests for tape stores.
//
// Driver tests can use this package without importing root test helpers.
//
// Example pattern:
//
//	func TestRedisTapeStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := recorder.NewRedisStore(context.Background(), client, recorder.WithPrefix("test"))
//		recordertest.RunStoreContract(t, store, recordertest.Options{CaseName: t.Name()})
//	}
package recordertest
