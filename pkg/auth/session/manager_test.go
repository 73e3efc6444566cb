package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) SessionKey(sessionID string) string {
	return fmt.Sprintf("sess:%s", sessionID)
}

func TestManagerCreateHasRevoke(t *testing.T) {
	store := newMockStore()
	manager := &Manager{
		store: store,
		keyer: store,
		ttl:   time.Hour,
	}

	ctx := context.Background()
	sessionID, err := manager.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := manager.Has(ctx, sessionID)
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !ok {
		t.Fatal("expected session to exist after create")
	}

	if err := manager.Revoke(ctx, sessionID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err = manager.Has(ctx, sessionID)
	if err != nil {
		t.Fatalf("has after revoke: %v", err)
	}
	if ok {
		t.Fatal("revoked session must not validate")
	}
}

func TestManagerCreate_requiresUserID(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}

	if _, err := manager.Create(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestManagerHas_blankSessionIsMiss(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}

	ok, err := manager.Has(context.Background(), "")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Fatal("blank session id must not match")
	}
}
