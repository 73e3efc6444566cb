package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	counts map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int64{}}
}

func (f *fakeStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func limitedHandler(policy AuthRateLimitPolicy, store *fakeStore, onBody func(string)) http.Handler {
	return AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onBody != nil {
			body, _ := io.ReadAll(r.Body)
			onBody(string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func postLogin(handler http.Handler, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = ip + ":51234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestAuthRateLimit_underLimitPassesAndBodySurvives(t *testing.T) {
	var seenBody string
	policy := NewAuthRateLimitPolicy("login", time.Minute, 5, 5)
	handler := limitedHandler(policy, newFakeStore(), func(b string) { seenBody = b })

	resp := postLogin(handler, "10.0.0.1", `{"email":"op@example.com","password":"x"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if seenBody != `{"email":"op@example.com","password":"x"}` {
		t.Fatalf("body not preserved for handler: %q", seenBody)
	}
}

func TestAuthRateLimit_ipLimitBlocks(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 0)
	handler := limitedHandler(policy, newFakeStore(), nil)

	for i := 0; i < 2; i++ {
		if resp := postLogin(handler, "10.0.0.2", `{}`); resp.Code != http.StatusOK {
			t.Fatalf("attempt %d should pass, got %d", i+1, resp.Code)
		}
	}
	resp := postLogin(handler, "10.0.0.2", `{}`)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if other := postLogin(handler, "10.0.0.3", `{}`); other.Code != http.StatusOK {
		t.Fatalf("other ip should not be affected, got %d", other.Code)
	}
}

func TestAuthRateLimit_emailLimitBlocksAcrossIPs(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := limitedHandler(policy, newFakeStore(), nil)

	body := `{"email":"target@example.com","password":"x"}`
	if resp := postLogin(handler, "10.0.1.1", body); resp.Code != http.StatusOK {
		t.Fatalf("first attempt should pass, got %d", resp.Code)
	}
	if resp := postLogin(handler, "10.0.1.2", body); resp.Code != http.StatusOK {
		t.Fatalf("second attempt should pass, got %d", resp.Code)
	}
	if resp := postLogin(handler, "10.0.1.3", body); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if resp := postLogin(handler, "10.0.1.3", `{"email":"other@example.com","password":"x"}`); resp.Code != http.StatusOK {
		t.Fatalf("other email should not be affected, got %d", resp.Code)
	}
}

func TestAuthRateLimit_disabledPolicyIsPassthrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 0, 0)
	store := newFakeStore()
	handler := limitedHandler(policy, store, nil)

	for i := 0; i < 10; i++ {
		if resp := postLogin(handler, "10.0.2.1", `{}`); resp.Code != http.StatusOK {
			t.Fatalf("disabled policy must pass, got %d", resp.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("store should not be touched when disabled: %v", store.counts)
	}
}
