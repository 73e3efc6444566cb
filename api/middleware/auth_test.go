package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/selleropsapp/sellerops-backend/pkg/auth"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "sellerops-test",
	ExpirationMinutes: 60,
	SessionTTLMinutes: 1440,
}

type fakeChecker struct {
	active map[string]bool
}

func (f *fakeChecker) Has(_ context.Context, sessionID string) (bool, error) {
	return f.active[sessionID], nil
}

func mintToken(t *testing.T, sessionID string, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "op@example.com",
		Role:   role,
		JTI:    sessionID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuth_missingHeaderRejected(t *testing.T) {
	handler := Auth(testJWT, &fakeChecker{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuth_invalidTokenRejected(t *testing.T) {
	handler := Auth(testJWT, &fakeChecker{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuth_revokedSessionRejected(t *testing.T) {
	token := mintToken(t, "session-1", enums.UserRoleAdmin)
	handler := Auth(testJWT, &fakeChecker{active: map[string]bool{}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestAuth_seedsContextClaims(t *testing.T) {
	token := mintToken(t, "session-2", enums.UserRoleShipping)
	checker := &fakeChecker{active: map[string]bool{"session-2": true}}

	var gotRole, gotEmail string
	handler := Auth(testJWT, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = RoleFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotRole != string(enums.UserRoleShipping) {
		t.Fatalf("role not seeded, got %q", gotRole)
	}
	if gotEmail != "op@example.com" {
		t.Fatalf("email not seeded, got %q", gotEmail)
	}
}

func TestRequireRole_blocksOtherRoles(t *testing.T) {
	handler := RequireRole(nil, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "sales"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireRole_allowsAnyListedRole(t *testing.T) {
	handler := RequireRole(nil, "admin", "shipping")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "shipping"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
