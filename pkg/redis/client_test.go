package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromClient(raw), mr
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	allowed, count, err := client.FixedWindowAllow(ctx, "chat:10.0.0.1", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("expected first request allowed with count 1, got allowed=%v count=%d", allowed, count)
	}
	if ttl := mr.TTL("peersen:rate_limit:chat:10.0.0.1"); ttl != time.Minute {
		t.Fatalf("expected ttl set on first increment, got %v", ttl)
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "chat:10.0.0.1", 2, time.Minute)
	if err != nil || !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d err=%v", allowed, count, err)
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "chat:10.0.0.1", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}

	mr.FastForward(time.Minute + time.Second)
	allowed, count, err = client.FixedWindowAllow(ctx, "chat:10.0.0.1", 2, time.Minute)
	if err != nil || !allowed || count != 1 {
		t.Fatalf("expected window reset, got allowed=%v count=%d err=%v", allowed, count, err)
	}
}

func TestGetMissingReturnsErrNil(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.Get(context.Background(), client.LocalCartKey("nobody"))
	if !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil, got %v", err)
	}
}

func TestSetNXAndExists(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.WebhookEventKey("stripe", "evt_1")

	ok, err := client.SetNX(ctx, key, "1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "1", time.Hour)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
	exists, err := client.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("expected key to exist, exists=%v err=%v", exists, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	exists, _ = client.Exists(ctx, key)
	if exists {
		t.Fatalf("expected key removed")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("checkout", "abc"):   "peersen:idempotency:checkout:abc",
		client.RateLimitKey("login:1.2.3.4"):       "peersen:rate_limit:login:1.2.3.4",
		client.AccessSessionKey("sid"):             "peersen:session:access:sid",
		client.RefreshSessionKey("sid"):            "peersen:session:refresh:sid",
		client.LocalCartKey(" device-1 "):          "peersen:cart:local:device-1",
		client.WebhookEventKey("stripe", "evt_42"): "peersen:webhook:stripe:evt_42",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error when neither url nor address set")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}
