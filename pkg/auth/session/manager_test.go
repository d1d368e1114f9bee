package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(id string) string {
	return "sess:" + id
}

func newTestManager() (*Manager, *mockStore) {
	store := newMockStore()
	return &Manager{store: store, keyer: store, ttl: time.Hour, now: time.Now}, store
}

func TestIssueAndRotate(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	issued, err := manager.Issue(ctx, userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := store.data[store.AccessSessionKey(issued.ID)]; !ok {
		t.Fatal("session not stored")
	}

	if _, _, err := manager.Rotate(ctx, issued.ID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}

	next, owner, err := manager.Rotate(ctx, issued.ID, issued.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if owner != userID {
		t.Fatalf("expected owner %s, got %s", userID, owner)
	}
	if next.ID == issued.ID || next.RefreshToken == issued.RefreshToken {
		t.Fatal("rotation must produce a new session")
	}
	if ok, _ := manager.HasSession(ctx, issued.ID); ok {
		t.Fatal("old session left behind")
	}
	if ok, _ := manager.HasSession(ctx, next.ID); !ok {
		t.Fatal("new session missing")
	}

	// a rotated refresh token cannot be replayed
	if _, _, err := manager.Rotate(ctx, issued.ID, issued.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	issued, err := manager.Issue(ctx, uuid.New())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(ctx, issued.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := manager.HasSession(ctx, issued.ID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, got ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestCorruptRecordIsInvalid(t *testing.T) {
	manager, store := newTestManager()
	store.data[store.AccessSessionKey("abc")] = "plain-token"

	if _, _, err := manager.Rotate(context.Background(), "abc", "plain-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}
