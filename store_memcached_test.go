package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goforj/recorder/recordertest"
)

type fakeMemcached struct {
	mu   sync.Mutex
	data map[string][]byte
}

// useFakeMemcached routes dialMemcached to an in-process server over net.Pipe.
func useFakeMemcached(t *testing.T) *fakeMemcached {
	t.Helper()
	fake := &fakeMemcached{data: make(map[string][]byte)}
	origDial := dialMemcached
	dialMemcached = func(context.Context, string, string) (net.Conn, error) {
		server, client := net.Pipe()
		go fake.serve(server)
		return client, nil
	}
	t.Cleanup(func() { dialMemcached = origDial })
	return fake
}

func (f *fakeMemcached) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		f.mu.Lock()
		switch parts[0] {
		case "get":
			if v, ok := f.data[parts[1]]; ok {
				fmt.Fprintf(w, "VALUE %s 0 %d\r\n", parts[1], len(v))
				w.Write(v)
				w.WriteString("\r\n")
			}
			w.WriteString("END\r\n")
		case "set":
			// set <key> <flags> <exptime> <bytes>
			n, _ := strconv.Atoi(parts[4])
			buf := make([]byte, n+2)
			if _, err := io.ReadFull(r, buf); err != nil {
				f.mu.Unlock()
				return
			}
			f.data[parts[1]] = buf[:n]
			w.WriteString("STORED\r\n")
		case "delete":
			if _, ok := f.data[parts[1]]; ok {
				delete(f.data, parts[1])
				w.WriteString("DELETED\r\n")
			} else {
				w.WriteString("NOT_FOUND\r\n")
			}
		case "flush_all":
			f.data = make(map[string][]byte)
			w.WriteString("OK\r\n")
		default:
			w.WriteString("ERROR\r\n")
		}
		f.mu.Unlock()
		w.Flush()
	}
}

func TestMemcachedStoreContract(t *testing.T) {
	useFakeMemcached(t)
	store := NewMemcachedStore(context.Background(), []string{"pipe"}, WithPrefix("contract"))
	recordertest.RunStoreContract(t, store, recordertest.Options{})
}

func TestMemcachedStoreHexEncodesKeys(t *testing.T) {
	fake := useFakeMemcached(t)
	store := newMemcachedStore([]string{"pipe"}, "pfx")
	ctx := context.Background()

	if err := store.Save(ctx, "sap dev/100", []byte("tape\r\nEND\r\n")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	fake.mu.Lock()
	for key := range fake.data {
		if strings.ContainsAny(key, " \r\n") || !strings.HasPrefix(key, "pfx:") {
			t.Fatalf("unexpected memcached key %q", key)
		}
	}
	fake.mu.Unlock()

	body, ok, err := store.Load(ctx, "sap dev/100")
	if err != nil || !ok || string(body) != "tape\r\nEND\r\n" {
		t.Fatalf("unexpected load: ok=%v err=%v body=%q", ok, err, body)
	}
}

func TestMemcachedStoreReusesPooledConnections(t *testing.T) {
	useFakeMemcached(t)
	dials := 0
	inner := dialMemcached
	dialMemcached = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials++
		return inner(ctx, network, addr)
	}
	store := newMemcachedStore([]string{"pipe"}, "")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if dials != 1 {
		t.Fatalf("expected one pooled connection, got %d dials", dials)
	}
}

func TestMemcachedStoreDialErrors(t *testing.T) {
	origDial := dialMemcached
	defer func() { dialMemcached = origDial }()
	dialMemcached = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	ctx := context.Background()
	if _, _, err := newMemcachedStore([]string{"a:1", "b:1"}, "").Load(ctx, "k"); err == nil || !strings.Contains(err.Error(), "a:1") {
		t.Fatalf("expected dial error naming servers, got %v", err)
	}
	if err := newMemcachedStore(nil, "").Save(ctx, "k", nil); err == nil {
		t.Fatalf("expected error without addresses")
	}
}
