package recorder_test

import (
	"context"
	"fmt"
	"os"

	"github.com/goforj/recorder"
	"github.com/goforj/recorder/recorderfake"
)

func ExampleWrap() {
	rec := recorder.New("calc")
	calls := 0
	double := recorder.Wrap(rec, func(x int) (int, error) {
		calls++
		return x * 2, nil
	}, recorder.WithName("double"))

	a, _ := double(3)
	b, _ := double(3)
	c, _ := double(4)
	fmt.Println(a, b, c, calls)
	// Output: 6 6 8 2
}

func ExampleSession() {
	ctx := context.Background()
	dir, _ := os.MkdirTemp("", "tapes-*")
	defer os.RemoveAll(dir)
	store := recorder.NewFileStore(ctx, dir)

	conn := recorderfake.NewConnection("erp-dev").
		Handle("RFC_PING", func(context.Context, recorder.Kwargs) (recorder.Kwargs, error) {
			return recorder.Kwargs{"STATUS": "OK"}, nil
		})

	for run := 1; run <= 2; run++ {
		err := recorder.Session(ctx, conn, func(rec *recorder.Recorder) error {
			out, err := rec.Invoker(conn).Call(ctx, "RFC_PING", nil)
			fmt.Println("run", run, out["STATUS"])
			return err
		}, recorder.WithStore(store))
		if err != nil {
			fmt.Println(err)
		}
	}
	fmt.Println("live calls:", conn.Calls("RFC_PING"))
	// Output:
	// run 1 OK
	// run 2 OK
	// live calls: 1
}

func ExampleNewRecordKey() {
	a, _ := recorder.NewRecordKey("Search", []any{"gopher"}, recorder.Kwargs{"limit": 10, "page": 1})
	b, _ := recorder.NewRecordKey("Search", []any{"gopher"}, recorder.Kwargs{"page": 1, "limit": 10})
	fmt.Println(a == b)
	// Output: true
}
