package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the routes schema.
// MaxOpenConns=1 ensures all operations use the same in-memory database
// (each connection to ":memory:" creates a separate database).
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRoute(t *testing.T, db *sql.DB, service, strategy, endpoint, config string) {
	t.Helper()
	if config == "" {
		config = "{}"
	}
	_, err := db.Exec(
		`INSERT INTO routes (service_name, strategy, endpoint, config) VALUES (?, ?, ?, ?)
		 ON CONFLICT(service_name) DO UPDATE SET strategy=excluded.strategy, endpoint=excluded.endpoint, config=excluded.config`,
		service, strategy, endpoint, config)
	if err != nil {
		t.Fatalf("insert route: %v", err)
	}
}

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.localHandlers == nil || r.remoteEntries == nil || r.factories == nil {
		t.Fatal("maps not initialized")
	}
}

func TestRegisterLocal_and_Call(t *testing.T) {
	r := New()
	called := false
	r.RegisterLocal("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		called = true
		return payload, nil
	})

	resp, err := r.Call(context.Background(), "echo", []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("local handler not called")
	}
	if string(resp) != "hello" {
		t.Fatalf("got %q, want %q", resp, "hello")
	}
}

func TestCall_ServiceNotFound(t *testing.T) {
	r := New()
	_, err := r.Call(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var snf *ErrServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("expected ErrServiceNotFound, got %T: %v", err, err)
	}
	if snf.Service != "nonexistent" {
		t.Fatalf("got service %q, want %q", snf.Service, "nonexistent")
	}
}

func TestCall_NoopRoute(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "noop", "", "")

	r := New()
	r.RegisterLocal("unfollow", func(ctx context.Context, payload []byte) ([]byte, error) {
		t.Fatal("local handler must not run for a noop route")
		return nil, nil
	})
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("reload: %v", err)
	}

	resp, err := r.Call(context.Background(), "unfollow", []byte(`{}`))
	if err != nil {
		t.Fatalf("noop call: %v", err)
	}
	if resp != nil {
		t.Fatalf("noop call returned %q, want nil", resp)
	}
}

func TestReload_BuildsRemoteHandler(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "http", "http://remote.example/unfollow", "")

	r := New()
	var built atomic.Int32
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		built.Add(1)
		h := func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte("remote:" + endpoint), nil
		}
		return h, nil, nil
	})

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if built.Load() != 1 {
		t.Fatalf("factory called %d times, want 1", built.Load())
	}

	resp, err := r.Call(context.Background(), "unfollow", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(resp) != "remote:http://remote.example/unfollow" {
		t.Fatalf("unexpected response %q", resp)
	}
}

func TestReload_RemotePreferredOverLocal(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "logDebug", "http", "http://remote.example/log", "")

	r := New()
	r.RegisterLocal("logDebug", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("local"), nil
	})
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte("remote"), nil
		}, nil, nil
	})

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("reload: %v", err)
	}

	resp, err := r.Call(context.Background(), "logDebug", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(resp) != "remote" {
		t.Fatalf("got %q, want remote dispatch", resp)
	}
}

func TestReload_UnchangedRouteNotRebuilt(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "http", "http://remote.example/unfollow", "")

	r := New()
	var built atomic.Int32
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		built.Add(1)
		return func(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil }, nil, nil
	})

	for i := 0; i < 3; i++ {
		if err := r.Reload(context.Background(), db); err != nil {
			t.Fatalf("reload %d: %v", i, err)
		}
	}
	if built.Load() != 1 {
		t.Fatalf("factory called %d times, want 1 for unchanged route", built.Load())
	}
}

func TestReload_ChangedRouteRebuiltAndOldClosed(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "http", "http://a.example", "")

	r := New()
	var built, closed atomic.Int32
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		built.Add(1)
		return func(ctx context.Context, payload []byte) ([]byte, error) { return nil, nil },
			func() { closed.Add(1) }, nil
	})

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("first reload: %v", err)
	}

	insertRoute(t, db, "unfollow", "http", "http://b.example", "")
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	if built.Load() != 2 {
		t.Fatalf("factory called %d times, want 2", built.Load())
	}
	if closed.Load() != 1 {
		t.Fatalf("close called %d times, want 1", closed.Load())
	}
}

func TestReload_RemovedRouteFallsBackToLocal(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "ping", "http", "http://remote.example/ping", "")

	r := New()
	r.RegisterLocal("ping", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("pong"), nil
	})
	var closed atomic.Int32
	r.RegisterTransport("http", func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte("remote"), nil
		}, func() { closed.Add(1) }, nil
	})

	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("first reload: %v", err)
	}
	if resp, _ := r.Call(context.Background(), "ping", nil); string(resp) != "remote" {
		t.Fatalf("before removal got %q, want remote", resp)
	}

	if _, err := db.Exec(`DELETE FROM routes WHERE service_name = 'ping'`); err != nil {
		t.Fatalf("delete route: %v", err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	resp, err := r.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("call after removal: %v", err)
	}
	if string(resp) != "pong" {
		t.Fatalf("after removal got %q, want local fallback", resp)
	}
	if closed.Load() != 1 {
		t.Fatalf("close called %d times, want 1", closed.Load())
	}
}

func TestReload_UnknownStrategySkipped(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "http", "http://a.example", "")

	r := New() // no http factory registered
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatalf("reload: %v", err)
	}

	_, err := r.Call(context.Background(), "unfollow", nil)
	var snf *ErrServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestWatch_PicksUpRouteChanges(t *testing.T) {
	db := setupTestDB(t)
	insertRoute(t, db, "unfollow", "local", "", "")

	r := New()
	r.RegisterLocal("unfollow", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("ok"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx, db, 10*time.Millisecond)

	// Wait for the initial reload.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := r.Call(context.Background(), "unfollow", nil); err == nil && string(resp) == "ok" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	insertRoute(t, db, "unfollow", "noop", "", "")

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := r.Call(context.Background(), "unfollow", nil)
		if err == nil && resp == nil {
			return // noop route picked up
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never picked up the noop route")
}

func TestAdmin_SetStrategy(t *testing.T) {
	db := setupTestDB(t)
	admin := NewAdmin(db)
	ctx := context.Background()

	if err := admin.UpsertRoute(ctx, "unfollow", "local", "", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := admin.SetStrategy(ctx, "unfollow", "noop"); err != nil {
		t.Fatalf("set strategy: %v", err)
	}

	routes, err := admin.ListRoutes(ctx)
	if err != nil {
		t.Fatalf("list routes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(routes))
	}
	if routes[0].Strategy != "noop" {
		t.Fatalf("got strategy %q, want noop", routes[0].Strategy)
	}

	err = admin.SetStrategy(ctx, "missing", "noop")
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) HandlerMiddleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				order = append(order, name)
				return next(ctx, payload)
			}
		}
	}

	h := Chain(mk("outer"), mk("inner"))(func(ctx context.Context, payload []byte) ([]byte, error) {
		order = append(order, "handler")
		return nil, nil
	})

	if _, err := h(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestRecovery_ConvertsPanic(t *testing.T) {
	h := Recovery(discardLogger())(func(ctx context.Context, payload []byte) ([]byte, error) {
		panic("boom")
	})

	_, err := h(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	var ep *ErrPanic
	if !errors.As(err, &ep) {
		t.Fatalf("expected ErrPanic, got %T: %v", err, err)
	}
	if ep.Value != "boom" {
		t.Fatalf("got panic value %v, want boom", ep.Value)
	}
}
